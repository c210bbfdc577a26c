package vm

import "github.com/lookbusy1344/wolfvm/isa"

// Instr is a decoded instruction: its kind plus the fully-unpacked layout
// fields ready for the executor's dispatch.
type Instr struct {
	Kind   isa.Kind
	Layout isa.Layout
}

// Decode extracts the opcode from a 64-bit instruction word, resolves it
// to a kind and layout offset via the opcode table, and unpacks the
// layout's fields (spec.md §4.7).
func Decode(word uint64) (Instr, error) {
	opcode := uint16(isa.ReadOpcode(word, 0))
	kind, layoutOffset, ok := isa.KindFromOpcode(opcode)
	if !ok {
		return Instr{}, &DecodeInvalidOpcodeError{Opcode: opcode}
	}

	layoutID := isa.LayoutID(layoutOffset)
	if !layoutAccepted(kind.Shape(), layoutID) {
		return Instr{}, &DecodeUnsupportedLayoutError{Kind: kind, Layout: layoutOffset}
	}

	layout := isa.DecodeLayout(word, layoutID)
	return Instr{Kind: kind, Layout: layout}, nil
}

func layoutAccepted(shape isa.Shape, id isa.LayoutID) bool {
	for _, accepted := range shape.AcceptedLayouts() {
		if accepted == id {
			return true
		}
	}
	return false
}
