// Package asmir holds the validated intermediate representation of a
// WolfVM program: the shape produced once syntax has been checked and
// constants are ready to be substituted, but before labels have been
// resolved to concrete offsets and before instructions have been packed
// into layouts. It mirrors the shape of a post-parse, pre-codegen AST
// that a compiler's middle end would hold.
package asmir

import (
	"fmt"
	"math/big"

	"github.com/lookbusy1344/wolfvm/diag"
)

// Ident is a name: a label definition/reference, or a constant name.
type Ident struct {
	Value string
	Span  diag.Span
}

func (id Ident) String() string { return id.Value }

// Immediate is a parsed integer literal or constant value. It is carried
// as a big.Int because `.b8`'s unsigned range extends to 2^64-1, which
// does not fit in an int64, and named-constant arithmetic should not
// silently wrap before range validation runs.
type Immediate struct {
	Value *big.Int
	Span  diag.Span
}

func NewImmediate(v int64, span diag.Span) Immediate {
	return Immediate{Value: big.NewInt(v), Span: span}
}

// bigFromUint64 converts a u64 quantity (e.g. a label byte offset) to a
// big.Int without the sign-loss an int64 conversion could cause for
// offsets above 2^63.
func bigFromUint64(v uint64) *big.Int {
	return new(big.Int).SetUint64(v)
}

func (im Immediate) String() string { return im.Value.String() }

// Int64 narrows the immediate to an int64, reporting ok=false if it does
// not fit (used right before layout selection, whose widest field is 52
// bits — always representable in an int64 when it fits at all).
func (im Immediate) Int64() (int64, bool) {
	if !im.Value.IsInt64() {
		return 0, false
	}
	return im.Value.Int64(), true
}

// Size is a non-negative byte count, e.g. the operand of `.zero`/`.uninit`.
type Size struct {
	Value uint64
	Span  diag.Span
}

// Bytes is a raw byte string, e.g. the operand of `.bytes`.
type Bytes struct {
	Value []byte
	Span  diag.Span
}

// RegisterKind distinguishes a named register alias from a numbered one.
type RegisterKind int

const (
	RegisterNamed RegisterKind = iota
	RegisterNumbered
)

// Register is a register operand as written in source: either a name
// (`$sp`, `$fp`) or a number (`$0`..`$63`).
type Register struct {
	Kind   RegisterKind
	Name   string // set when Kind == RegisterNamed
	Number uint8  // set when Kind == RegisterNumbered
	Span   diag.Span
}

// InstrArgKind distinguishes the three surface forms an instruction
// argument can take before label resolution.
type InstrArgKind int

const (
	ArgRegister InstrArgKind = iota
	ArgImmediate
	ArgLabel
)

// InstrArg is one operand of an instruction, still possibly a label
// reference rather than a concrete value.
type InstrArg struct {
	Kind      InstrArgKind
	Register  Register
	Immediate Immediate
	Label     Ident
}

func (a InstrArg) Span() diag.Span {
	switch a.Kind {
	case ArgRegister:
		return a.Register.Span
	case ArgImmediate:
		return a.Immediate.Span
	default:
		return a.Label.Span
	}
}

// Instr is a validated instruction statement: a known mnemonic with its
// arguments still in surface form.
type Instr struct {
	Name Ident
	Args []InstrArg
}

// StaticBytesWidth is the byte width of a `.b1`/`.b2`/`.b4`/`.b8` directive.
type StaticBytesWidth int

const (
	Width1 StaticBytesWidth = 1
	Width2 StaticBytesWidth = 2
	Width4 StaticBytesWidth = 4
	Width8 StaticBytesWidth = 8
)

// StaticDataKind distinguishes the four static-data directive forms.
type StaticDataKind int

const (
	StaticKindBytes StaticDataKind = iota
	StaticKindZero
	StaticKindUninit
	StaticKindByteStr
)

// StaticData is one static-section directive statement.
type StaticData struct {
	Kind StaticDataKind

	// StaticKindBytes
	BytesWidth StaticBytesWidth
	BytesValue [8]byte // little-endian, only the low BytesWidth bytes valid
	BytesSpan  diag.Span

	// StaticKindZero, StaticKindUninit
	NBytes Size

	// StaticKindByteStr
	ByteStr Bytes
}

func (d StaticData) String() string {
	switch d.Kind {
	case StaticKindBytes:
		return fmt.Sprintf(".b%d %v", d.BytesWidth, d.BytesValue[:d.BytesWidth])
	case StaticKindZero:
		return fmt.Sprintf(".zero %d", d.NBytes.Value)
	case StaticKindUninit:
		return fmt.Sprintf(".uninit %d", d.NBytes.Value)
	default:
		return fmt.Sprintf(".bytes %q", d.ByteStr.Value)
	}
}

// StmtKind distinguishes an instruction statement from a static-data
// statement.
type StmtKind int

const (
	StmtInstr StmtKind = iota
	StmtStaticData
)

// Stmt is one labeled statement: zero or more labels, then either an
// instruction or a static-data directive. Label names are not checked for
// uniqueness here; assembler.Assemble reports duplicates.
type Stmt struct {
	Labels     []Ident
	Kind       StmtKind
	Instr      Instr
	StaticData StaticData
}

// SizeBytes returns the number of bytes this statement occupies in the
// generated executable: every instruction is a fixed 8 bytes; static data
// size depends on its directive.
func (s Stmt) SizeBytes() uint64 {
	switch s.Kind {
	case StmtInstr:
		return 8
	default:
		switch s.StaticData.Kind {
		case StaticKindBytes:
			return uint64(s.StaticData.BytesWidth)
		case StaticKindZero, StaticKindUninit:
			return s.StaticData.NBytes.Value
		default:
			return uint64(len(s.StaticData.ByteStr.Value))
		}
	}
}

// Section is one of the two top-level sections of a program.
type Section struct {
	HeaderSpan diag.Span
	Stmts      []Stmt
}

// Program is a parsed program grouped into its two sections, as the parser
// produces it: constants are not yet substituted and label uniqueness is not
// yet checked; assembler.Assemble does both before label-offset computation
// and layout selection.
type Program struct {
	CodeSection   Section
	StaticSection Section
}

// AllStmts iterates every statement in the program in the exact order
// they will appear in the generated executable: code section first, then
// static section. This order is load-bearing for label-offset
// computation (spec.md §4.4).
func (p *Program) AllStmts(fn func(Stmt)) {
	for _, s := range p.CodeSection.Stmts {
		fn(s)
	}
	for _, s := range p.StaticSection.Stmts {
		fn(s)
	}
}
