package isa

// LayoutID identifies one of the eleven fixed argument-field arrangements.
// The numeric value is also its opcode_offset, i.e. the amount added to a
// kind's base opcode to produce the binary opcode that selects this layout.
type LayoutID uint8

const (
	L1 LayoutID = iota
	L2
	L3
	L4
	L5
	L6
	L7
	L8
	L9
	L10
	L11

	numLayouts
)

// MaxLayoutOffset is the highest valid opcode_offset (layout L11).
const MaxLayoutOffset = uint8(L11)

// Layout is the packed argument portion of an instruction: a layout ID
// plus the concrete field values it carries. Exactly one of the Reg*/Imm*/
// Offset fields is meaningful per field slot; which ones is determined by
// ID and documented per layout below.
type Layout struct {
	ID LayoutID

	// L1: R1, R2. L4: R1, R2, Off. L7: R1, R2, R3.
	R1, R2, R3 Reg
	// L4, L5, L11.
	Off Offset
	// L2/L3/L5/L6/L8/L10 immediates, each tagged with its own width.
	Im1, Im2 Imm
}

// usedArgumentsBits returns the number of argument-section bits (i.e.
// excluding the 12-bit opcode) this layout occupies. Every layout must
// satisfy usedArgumentsBits() <= 52 (spec.md §3 invariant).
func (id LayoutID) usedArgumentsBits() uint8 {
	switch id {
	case L1:
		return RegBits + RegBits // 12
	case L2:
		return RegBits + ImmBits46 // 52
	case L3:
		return ImmBits46 + RegBits // 52
	case L4:
		return RegBits + RegBits + OffsetBits // 28
	case L5:
		return RegBits + OffsetBits + ImmBits30 // 52
	case L6:
		return ImmBits26 + ImmBits26 // 52
	case L7:
		return RegBits + RegBits + RegBits // 18
	case L8:
		return RegBits + RegBits + ImmBits40 // 52
	case L9:
		return RegBits // 6
	case L10:
		return ImmBits52 // 52
	case L11:
		return RegBits + OffsetBits // 22
	default:
		panic("isa: unknown layout id")
	}
}

// ToBinary produces the 64-bit encoded instruction word for this layout
// under the given base opcode.
func (l Layout) ToBinary(baseOpcode uint16) uint64 {
	opcode := Opcode(baseOpcode + uint16(l.ID))
	var out uint64
	offset := uint8(0)
	opcode.Write(offset, &out)
	offset += opcode.SizeBits()

	write := func(f BitPattern) {
		f.Write(offset, &out)
		offset += f.SizeBits()
	}

	switch l.ID {
	case L1:
		write(l.R1)
		write(l.R2)
	case L2:
		write(l.R1)
		write(withBits(l.Im1, ImmBits46))
	case L3:
		write(withBits(l.Im1, ImmBits46))
		write(l.R1)
	case L4:
		write(l.R1)
		write(l.R2)
		write(l.Off)
	case L5:
		write(l.R1)
		write(l.Off)
		write(withBits(l.Im1, ImmBits30))
	case L6:
		write(withBits(l.Im1, ImmBits26))
		write(withBits(l.Im2, ImmBits26))
	case L7:
		write(l.R1)
		write(l.R2)
		write(l.R3)
	case L8:
		write(l.R1)
		write(l.R2)
		write(withBits(l.Im1, ImmBits40))
	case L9:
		write(l.R1)
	case L10:
		write(withBits(l.Im1, ImmBits52))
	case L11:
		write(l.R1)
		write(l.Off)
	default:
		panic("isa: unknown layout id")
	}

	if offset > MaxArgumentsSectionBits+OpcodeBits {
		panic("isa: layout wrote too many bits")
	}

	return out
}

// MaxArgumentsSectionBits is 64 - 12: the budget every layout must fit in.
const MaxArgumentsSectionBits uint8 = RegisterBits - uint8(OpcodeBits)

func withBits(im Imm, bits uint8) Imm {
	im.Bits = bits
	return im
}

// DecodeLayout reconstructs the typed field tuple for the given layout id
// from a 64-bit instruction word (the argument section starts right after
// the 12-bit opcode).
func DecodeLayout(word uint64, id LayoutID) Layout {
	offset := OpcodeBits
	l := Layout{ID: id}

	readReg := func() Reg {
		r := ReadReg(word, offset)
		offset += RegBits
		return r
	}
	readOff := func() Offset {
		o := ReadOffset(word, offset)
		offset += OffsetBits
		return o
	}
	readImm := func(bits uint8) Imm {
		im := ReadImm(word, offset, bits)
		offset += bits
		return im
	}

	switch id {
	case L1:
		l.R1 = readReg()
		l.R2 = readReg()
	case L2:
		l.R1 = readReg()
		l.Im1 = readImm(ImmBits46)
	case L3:
		l.Im1 = readImm(ImmBits46)
		l.R1 = readReg()
	case L4:
		l.R1 = readReg()
		l.R2 = readReg()
		l.Off = readOff()
	case L5:
		l.R1 = readReg()
		l.Off = readOff()
		l.Im1 = readImm(ImmBits30)
	case L6:
		l.Im1 = readImm(ImmBits26)
		l.Im2 = readImm(ImmBits26)
	case L7:
		l.R1 = readReg()
		l.R2 = readReg()
		l.R3 = readReg()
	case L8:
		l.R1 = readReg()
		l.R2 = readReg()
		l.Im1 = readImm(ImmBits40)
	case L9:
		l.R1 = readReg()
	case L10:
		l.Im1 = readImm(ImmBits52)
	case L11:
		l.R1 = readReg()
		l.Off = readOff()
	default:
		panic("isa: unknown layout id")
	}

	return l
}
