package assembler

import (
	"github.com/lookbusy1344/wolfvm/asmir"
	"github.com/lookbusy1344/wolfvm/diag"
	"github.com/lookbusy1344/wolfvm/exefmt"
	"github.com/lookbusy1344/wolfvm/isa"
)

// encodeSection resolves labels and packs every statement in sec into its
// final emit-record form (spec.md §4.5 steps 6-7).
func encodeSection(sec asmir.Section, offsets *asmir.LabelOffsets, sink *diag.Sink) []exefmt.Record {
	records := make([]exefmt.Record, 0, len(sec.Stmts))
	for _, stmt := range sec.Stmts {
		switch stmt.Kind {
		case asmir.StmtInstr:
			records = append(records, encodeInstr(stmt.Instr, offsets, sink))
		default:
			records = append(records, encodeStaticData(stmt.StaticData))
		}
	}
	return records
}

func encodeInstr(instr asmir.Instr, offsets *asmir.LabelOffsets, sink *diag.Sink) exefmt.Record {
	kind, ok := isa.KindFromMnemonic(instr.Name.Value)
	if !ok {
		kind = isa.Nop
	}

	layout, err := selectLayout(kind, instr.Args, offsets, sink)
	if err != nil {
		sink.Error(diag.KindImmediateRangeError, instr.Name.Span, "%s", err.Error())
	}

	return exefmt.Record{Kind: exefmt.RecordInstrWord, Word: layout.ToBinary(kind.BaseOpcode())}
}

// selectLayout resolves instr's arguments to concrete register/immediate
// values, then dispatches to the isa.SelectXxx function for its shape.
func selectLayout(kind isa.Kind, args []asmir.InstrArg, offsets *asmir.LabelOffsets, sink *diag.Sink) (isa.Layout, *isa.RangeError) {
	switch kind.Shape() {
	case isa.ShapeNullary:
		return isa.SelectNullary(), nil

	case isa.ShapeDestSrc:
		return isa.SelectDestSrc(asDest(args[0], offsets, sink), asSrc(args[1], offsets, sink))

	case isa.ShapeSrcSrc:
		return isa.SelectSrcSrc(asSrc(args[0], offsets, sink), asSrc(args[1], offsets, sink))

	case isa.ShapeDestLoc:
		return isa.SelectDestLoc(asDest(args[0], offsets, sink), asLoc(args[1], offsets, sink))

	case isa.ShapeLocSrc:
		return isa.SelectLocSrc(asLoc(args[0], offsets, sink), asSrc(args[1], offsets, sink))

	case isa.ShapeDestDestSrc:
		return isa.SelectDestDestSrc(asDest(args[0], offsets, sink), asDest(args[1], offsets, sink), asSrc(args[2], offsets, sink))

	case isa.ShapeSrc1:
		return isa.SelectSrc1(asSrc(args[0], offsets, sink))

	case isa.ShapeDest1:
		return isa.SelectDest1(asDest(args[0], offsets, sink))

	case isa.ShapeLoc1:
		return isa.SelectLoc1(asLoc(args[0], offsets, sink))

	default:
		return isa.SelectNullary(), nil
	}
}

func regOf(r asmir.Register) isa.Reg {
	if r.Kind == asmir.RegisterNamed {
		if r.Name == "sp" {
			return isa.SPIndex
		}
		return isa.FPIndex
	}
	return isa.Reg(r.Number)
}

// resolveValue narrows a substituted, non-register operand to an int64,
// resolving a label reference through offsets first.
func resolveValue(arg asmir.InstrArg, offsets *asmir.LabelOffsets, sink *diag.Sink) int64 {
	imm := arg.Immediate
	if arg.Kind == asmir.ArgLabel {
		imm = offsets.Lookup(arg.Label, sink)
	}
	v, ok := imm.Int64()
	if !ok {
		sink.Error(diag.KindImmediateRangeError, arg.Span(), "value %s does not fit in 64 bits", imm.Value.String())
		return 0
	}
	return v
}

func asDest(arg asmir.InstrArg, _ *asmir.LabelOffsets, _ *diag.Sink) isa.Destination {
	return isa.Destination{Reg: regOf(arg.Register)}
}

func asSrc(arg asmir.InstrArg, offsets *asmir.LabelOffsets, sink *diag.Sink) isa.Source {
	if arg.Kind == asmir.ArgRegister {
		return isa.RegisterSource(regOf(arg.Register))
	}
	return isa.ImmediateSource(resolveValue(arg, offsets, sink))
}

func asLoc(arg asmir.InstrArg, offsets *asmir.LabelOffsets, sink *diag.Sink) isa.Location {
	if arg.Kind == asmir.ArgRegister {
		return isa.RegisterLocation(regOf(arg.Register))
	}
	return isa.ImmediateLocation(resolveValue(arg, offsets, sink))
}

func encodeStaticData(d asmir.StaticData) exefmt.Record {
	switch d.Kind {
	case asmir.StaticKindBytes:
		return exefmt.Record{Kind: exefmt.RecordStaticBytes, Width: int(d.BytesWidth), Value: d.BytesValue}
	case asmir.StaticKindZero:
		return exefmt.Record{Kind: exefmt.RecordStaticZero, NBytes: d.NBytes.Value}
	case asmir.StaticKindUninit:
		return exefmt.Record{Kind: exefmt.RecordStaticUninit, NBytes: d.NBytes.Value}
	default:
		return exefmt.Record{Kind: exefmt.RecordStaticByteStr, ByteStr: d.ByteStr.Value}
	}
}
