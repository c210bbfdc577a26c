package asmir

import "github.com/lookbusy1344/wolfvm/diag"

// LabelOffsets maps every label defined in a program to its byte offset in
// the generated executable. It is built with one pass over the program in
// exactly the order statements will be emitted: the whole code section,
// then the whole static section (spec.md §4.4), so a label in the static
// section resolves to an offset relative to the start of the code section
// (i.e. relative to the executable's base, not to its own section).
type LabelOffsets struct {
	offsets map[string]uint64
}

// NewLabelOffsets computes every label's offset by walking the program
// once, accumulating each statement's SizeBytes.
func NewLabelOffsets(prog *Program) *LabelOffsets {
	offsets := make(map[string]uint64)
	var current uint64

	prog.AllStmts(func(s Stmt) {
		for _, label := range s.Labels {
			offsets[label.Value] = current
		}
		current += s.SizeBytes()
	})

	return &LabelOffsets{offsets: offsets}
}

// All returns every label's resolved offset, keyed by name. Used by
// debugger front-ends to build a symbol table without re-walking the
// program.
func (lo *LabelOffsets) All() map[string]uint64 {
	result := make(map[string]uint64, len(lo.offsets))
	for name, offset := range lo.offsets {
		result[name] = offset
	}
	return result
}

// Lookup resolves a label reference to its offset as an Immediate. An
// unknown label is a recoverable error: a diagnostic is emitted and the
// offset defaults to zero so the rest of the program can keep being
// checked (spec.md §7).
func (lo *LabelOffsets) Lookup(name Ident, sink *diag.Sink) Immediate {
	value, ok := lo.offsets[name.Value]
	if !ok {
		sink.Error(diag.KindUnknownLabel, name.Span, "unknown label `%s`", name.Value)
		value = 0
	}
	return Immediate{Value: bigFromUint64(value), Span: name.Span}
}
