package isa

import "fmt"

// RangeError reports that an immediate did not fit the width required by
// the layout field it was about to be packed into. The caller (the
// assembler) turns this into a diagnostic at the call site's span; isa
// itself has already recovered by substituting zero for the offending
// field so the returned Layout is always safe to encode.
type RangeError struct {
	Value int64
	Bits  uint8
}

func (e *RangeError) Error() string {
	smin := -(int64(1) << (e.Bits - 1))
	umax := (int64(1) << (e.Bits - 1)) - 1
	return fmt.Sprintf("immediate value %d does not fit in a %d-bit signed number (must be between %d and %d)", e.Value, e.Bits, smin, umax)
}

func validatedImm(value int64, bits uint8) (Imm, *RangeError) {
	v, ok := ValidateImmediate(value, bits)
	if !ok {
		return Imm{Value: 0, Bits: bits}, &RangeError{Value: value, Bits: bits}
	}
	return Imm{Value: v, Bits: bits}, nil
}

// Source is a resolved (label-free) operand accepted in source position:
// either a register or an immediate.
type Source struct {
	IsRegister bool
	Reg        Reg
	Imm        int64
}

func RegisterSource(r Reg) Source   { return Source{IsRegister: true, Reg: r} }
func ImmediateSource(v int64) Source { return Source{Imm: v} }

// Destination is a resolved operand accepted in destination position. This
// ISA only allows registers there.
type Destination struct {
	Reg Reg
}

// Location is a resolved operand accepted in address position: a register
// with an optional 16-bit offset, or a bare immediate/label address.
type Location struct {
	IsRegister bool
	Reg        Reg
	HasOffset  bool
	Offset     Offset
	Imm        int64
}

func RegisterLocation(r Reg) Location { return Location{IsRegister: true, Reg: r} }
func RegisterOffsetLocation(r Reg, off Offset) Location {
	return Location{IsRegister: true, Reg: r, HasOffset: true, Offset: off}
}
func ImmediateLocation(v int64) Location { return Location{Imm: v} }

// SelectNullary returns the fixed layout used by zero-argument
// instructions: L1 with two zero registers, so the opcode offset stays 0
// and the kind's base opcode is the binary opcode verbatim (spec.md §4.2).
func SelectNullary() Layout {
	return Layout{ID: L1}
}

// SelectDestSrc implements the (Dest, Src) selection row of spec.md §4.2.
func SelectDestSrc(dest Destination, src Source) (Layout, *RangeError) {
	if src.IsRegister {
		return Layout{ID: L1, R1: dest.Reg, R2: src.Reg}, nil
	}
	im, err := validatedImm(src.Imm, ImmBits46)
	return Layout{ID: L2, R1: dest.Reg, Im1: im}, err
}

// SelectSrcSrc implements the (Src, Src) selection row.
func SelectSrcSrc(a, b Source) (Layout, *RangeError) {
	switch {
	case a.IsRegister && b.IsRegister:
		return Layout{ID: L1, R1: a.Reg, R2: b.Reg}, nil
	case a.IsRegister && !b.IsRegister:
		im, err := validatedImm(b.Imm, ImmBits46)
		return Layout{ID: L2, R1: a.Reg, Im1: im}, err
	case !a.IsRegister && b.IsRegister:
		im, err := validatedImm(a.Imm, ImmBits46)
		return Layout{ID: L3, Im1: im, R1: b.Reg}, err
	default:
		im1, err1 := validatedImm(a.Imm, ImmBits26)
		im2, err2 := validatedImm(b.Imm, ImmBits26)
		if err1 != nil {
			return Layout{ID: L6, Im1: im1, Im2: im2}, err1
		}
		return Layout{ID: L6, Im1: im1, Im2: im2}, err2
	}
}

// SelectDestLoc implements the (Dest, Loc) selection row.
func SelectDestLoc(dest Destination, loc Location) (Layout, *RangeError) {
	switch {
	case loc.IsRegister && !loc.HasOffset:
		return Layout{ID: L1, R1: dest.Reg, R2: loc.Reg}, nil
	case loc.IsRegister && loc.HasOffset:
		return Layout{ID: L4, R1: dest.Reg, R2: loc.Reg, Off: loc.Offset}, nil
	default:
		im, err := validatedImm(loc.Imm, ImmBits46)
		return Layout{ID: L2, R1: dest.Reg, Im1: im}, err
	}
}

// SelectLocSrc implements the (Loc, Src) selection row.
func SelectLocSrc(loc Location, src Source) (Layout, *RangeError) {
	switch {
	case loc.IsRegister && !loc.HasOffset && src.IsRegister:
		return Layout{ID: L1, R1: loc.Reg, R2: src.Reg}, nil
	case loc.IsRegister && !loc.HasOffset && !src.IsRegister:
		im, err := validatedImm(src.Imm, ImmBits46)
		return Layout{ID: L2, R1: loc.Reg, Im1: im}, err
	case loc.IsRegister && loc.HasOffset && src.IsRegister:
		return Layout{ID: L4, R1: loc.Reg, R2: src.Reg, Off: loc.Offset}, nil
	case loc.IsRegister && loc.HasOffset && !src.IsRegister:
		im, err := validatedImm(src.Imm, ImmBits30)
		return Layout{ID: L5, R1: loc.Reg, Off: loc.Offset, Im1: im}, err
	case !loc.IsRegister && src.IsRegister:
		im, err := validatedImm(loc.Imm, ImmBits46)
		return Layout{ID: L3, Im1: im, R1: src.Reg}, err
	default:
		im1, err1 := validatedImm(loc.Imm, ImmBits26)
		im2, err2 := validatedImm(src.Imm, ImmBits26)
		if err1 != nil {
			return Layout{ID: L6, Im1: im1, Im2: im2}, err1
		}
		return Layout{ID: L6, Im1: im1, Im2: im2}, err2
	}
}

// SelectDestDestSrc implements the (Dest, Dest, Src) selection row.
func SelectDestDestSrc(dest1, dest2 Destination, src Source) (Layout, *RangeError) {
	if src.IsRegister {
		return Layout{ID: L7, R1: dest1.Reg, R2: dest2.Reg, R3: src.Reg}, nil
	}
	im, err := validatedImm(src.Imm, ImmBits40)
	return Layout{ID: L8, R1: dest1.Reg, R2: dest2.Reg, Im1: im}, err
}

// SelectSrc1 implements the (Src,) selection row.
func SelectSrc1(src Source) (Layout, *RangeError) {
	if src.IsRegister {
		return Layout{ID: L9, R1: src.Reg}, nil
	}
	im, err := validatedImm(src.Imm, ImmBits52)
	return Layout{ID: L10, Im1: im}, err
}

// SelectDest1 implements the (Dest,) selection row.
func SelectDest1(dest Destination) (Layout, *RangeError) {
	return Layout{ID: L9, R1: dest.Reg}, nil
}

// UnpackDestSrc inverts SelectDestSrc: reconstructs the (Dest, Src) pair a
// decoded layout was built from.
func UnpackDestSrc(l Layout) (Destination, Source) {
	switch l.ID {
	case L1:
		return Destination{Reg: l.R1}, RegisterSource(l.R2)
	default: // L2
		return Destination{Reg: l.R1}, ImmediateSource(l.Im1.Value)
	}
}

// UnpackSrcSrc inverts SelectSrcSrc.
func UnpackSrcSrc(l Layout) (Source, Source) {
	switch l.ID {
	case L1:
		return RegisterSource(l.R1), RegisterSource(l.R2)
	case L2:
		return RegisterSource(l.R1), ImmediateSource(l.Im1.Value)
	case L3:
		return ImmediateSource(l.Im1.Value), RegisterSource(l.R1)
	default: // L6
		return ImmediateSource(l.Im1.Value), ImmediateSource(l.Im2.Value)
	}
}

// UnpackDestLoc inverts SelectDestLoc.
func UnpackDestLoc(l Layout) (Destination, Location) {
	switch l.ID {
	case L1:
		return Destination{Reg: l.R1}, RegisterLocation(l.R2)
	case L4:
		return Destination{Reg: l.R1}, RegisterOffsetLocation(l.R2, l.Off)
	default: // L2
		return Destination{Reg: l.R1}, ImmediateLocation(l.Im1.Value)
	}
}

// UnpackLocSrc inverts SelectLocSrc.
func UnpackLocSrc(l Layout) (Location, Source) {
	switch l.ID {
	case L1:
		return RegisterLocation(l.R1), RegisterSource(l.R2)
	case L2:
		return RegisterLocation(l.R1), ImmediateSource(l.Im1.Value)
	case L4:
		return RegisterOffsetLocation(l.R1, l.Off), RegisterSource(l.R2)
	case L5:
		return RegisterOffsetLocation(l.R1, l.Off), ImmediateSource(l.Im1.Value)
	case L3:
		return ImmediateLocation(l.Im1.Value), RegisterSource(l.R1)
	default: // L6
		return ImmediateLocation(l.Im1.Value), ImmediateSource(l.Im2.Value)
	}
}

// UnpackDestDestSrc inverts SelectDestDestSrc.
func UnpackDestDestSrc(l Layout) (Destination, Destination, Source) {
	switch l.ID {
	case L7:
		return Destination{Reg: l.R1}, Destination{Reg: l.R2}, RegisterSource(l.R3)
	default: // L8
		return Destination{Reg: l.R1}, Destination{Reg: l.R2}, ImmediateSource(l.Im1.Value)
	}
}

// UnpackSrc1 inverts SelectSrc1.
func UnpackSrc1(l Layout) Source {
	if l.ID == L9 {
		return RegisterSource(l.R1)
	}
	return ImmediateSource(l.Im1.Value)
}

// UnpackDest1 inverts SelectDest1.
func UnpackDest1(l Layout) Destination {
	return Destination{Reg: l.R1}
}

// UnpackLoc1 inverts SelectLoc1.
func UnpackLoc1(l Layout) Location {
	switch l.ID {
	case L9:
		return RegisterLocation(l.R1)
	case L11:
		return RegisterOffsetLocation(l.R1, l.Off)
	default: // L10
		return ImmediateLocation(l.Im1.Value)
	}
}

// AcceptedLayouts returns the set of layout IDs a given operand shape may
// decode from, per the selection table in spec.md §4.2. A decoded
// instruction whose layout ID is not in this set uses an opcode that was
// never produced by the assembler for this kind and is rejected as an
// unsupported layout.
func (sh Shape) AcceptedLayouts() []LayoutID {
	switch sh {
	case ShapeNullary:
		return []LayoutID{L1}
	case ShapeDestSrc:
		return []LayoutID{L1, L2}
	case ShapeSrcSrc:
		return []LayoutID{L1, L2, L3, L6}
	case ShapeDestLoc:
		return []LayoutID{L1, L4, L2}
	case ShapeLocSrc:
		return []LayoutID{L1, L2, L4, L5, L3, L6}
	case ShapeDestDestSrc:
		return []LayoutID{L7, L8}
	case ShapeSrc1:
		return []LayoutID{L9, L10}
	case ShapeDest1:
		return []LayoutID{L9}
	case ShapeLoc1:
		return []LayoutID{L9, L11, L10}
	default:
		return nil
	}
}

// SelectLoc1 implements the (Loc,) selection row.
func SelectLoc1(loc Location) (Layout, *RangeError) {
	switch {
	case loc.IsRegister && !loc.HasOffset:
		return Layout{ID: L9, R1: loc.Reg}, nil
	case loc.IsRegister && loc.HasOffset:
		return Layout{ID: L11, R1: loc.Reg, Off: loc.Offset}, nil
	default:
		im, err := validatedImm(loc.Imm, ImmBits52)
		return Layout{ID: L10, Im1: im}, err
	}
}
