package assembler

import (
	"github.com/lookbusy1344/wolfvm/asmir"
	"github.com/lookbusy1344/wolfvm/diag"
	"github.com/lookbusy1344/wolfvm/isa"
)

// operandKind classifies the position an operand sits in, per spec.md
// §4.5 step 4: Dest accepts registers only, Src and Loc accept a register,
// an immediate, or a (still-unresolved) label.
type operandKind int

const (
	operandDest operandKind = iota
	operandSrc
	operandLoc
)

// shapeOperands returns the operand-kind signature for a shape, in
// argument order.
func shapeOperands(sh isa.Shape) []operandKind {
	switch sh {
	case isa.ShapeNullary:
		return nil
	case isa.ShapeDestSrc:
		return []operandKind{operandDest, operandSrc}
	case isa.ShapeSrcSrc:
		return []operandKind{operandSrc, operandSrc}
	case isa.ShapeDestLoc:
		return []operandKind{operandDest, operandLoc}
	case isa.ShapeLocSrc:
		return []operandKind{operandLoc, operandSrc}
	case isa.ShapeDestDestSrc:
		return []operandKind{operandDest, operandDest, operandSrc}
	case isa.ShapeSrc1:
		return []operandKind{operandSrc}
	case isa.ShapeDest1:
		return []operandKind{operandDest}
	case isa.ShapeLoc1:
		return []operandKind{operandLoc}
	default:
		return nil
	}
}

// zeroRegisterArg is the default operand error recovery substitutes for a
// missing or wrongly-kinded argument (spec.md §4.5 step 4, §4.9).
func zeroRegisterArg() asmir.InstrArg {
	return asmir.InstrArg{Kind: asmir.ArgRegister, Register: asmir.Register{Kind: asmir.RegisterNumbered, Number: 0}}
}

// validateProgram substitutes constants into every instruction's operands,
// resolves each instruction's mnemonic to a Kind (unknown mnemonics become
// `nop`), and validates/pads its argument list against the kind's operand
// shape. Statements are mutated in place; their size in bytes never
// changes, so the label-offset pass that follows remains valid.
func validateProgram(prog *asmir.Program, consts *asmir.ConstTable, sink *diag.Sink) {
	validateSection(prog.CodeSection, consts, sink)
	validateSection(prog.StaticSection, consts, sink)
}

func validateSection(sec asmir.Section, consts *asmir.ConstTable, sink *diag.Sink) {
	for i := range sec.Stmts {
		if sec.Stmts[i].Kind != asmir.StmtInstr {
			continue
		}
		validateInstr(&sec.Stmts[i].Instr, consts, sink)
	}
}

func validateInstr(instr *asmir.Instr, consts *asmir.ConstTable, sink *diag.Sink) {
	for i := range instr.Args {
		instr.Args[i] = consts.Substitute(instr.Args[i])
	}

	kind, ok := isa.KindFromMnemonic(instr.Name.Value)
	if !ok {
		sink.Error(diag.KindUnknownMnemonic, instr.Name.Span, "unknown mnemonic `%s`, treating as `nop`", instr.Name.Value)
		kind = isa.Nop
		instr.Name.Value = "nop"
	}

	positions := shapeOperands(kind.Shape())

	if len(instr.Args) > len(positions) {
		sink.Error(diag.KindOperandArityError, instr.Name.Span,
			"`%s` takes %d operand(s), found %d extra", instr.Name.Value, len(positions), len(instr.Args)-len(positions))
		instr.Args = instr.Args[:len(positions)]
	} else if len(instr.Args) < len(positions) {
		sink.Error(diag.KindOperandArityError, instr.Name.Span,
			"`%s` takes %d operand(s), found %d", instr.Name.Value, len(positions), len(instr.Args))
		for len(instr.Args) < len(positions) {
			instr.Args = append(instr.Args, zeroRegisterArg())
		}
	}

	for i, want := range positions {
		if want != operandDest {
			continue
		}
		if instr.Args[i].Kind != asmir.ArgRegister {
			sink.Error(diag.KindOperandKindError, instr.Args[i].Span(),
				"operand %d of `%s` must be a register", i+1, instr.Name.Value)
			instr.Args[i] = zeroRegisterArg()
		}
	}
}
