package isa

import "sort"

// Shape identifies the operand arity and kind pattern an instruction kind
// accepts. It selects which isa.SelectXxx layout-selection function the
// assembler calls for a given kind (spec.md §4.2).
type Shape uint8

const (
	ShapeNullary     Shape = iota // no operands: nop, ret
	ShapeDestSrc                  // dest, src
	ShapeSrcSrc                   // src, src (test, cmp: neither side is written back)
	ShapeDestLoc                  // dest, loc (load*)
	ShapeLocSrc                   // loc, src (store*)
	ShapeDestDestSrc              // dest, dest, src (mull, mullu, divr, divru)
	ShapeSrc1                     // single src operand (push)
	ShapeDest1                    // single dest operand (pop, not)
	ShapeLoc1                     // single loc operand (jumps, call)
)

// Kind enumerates every instruction mnemonic. Its integer value times 12 is
// the kind's base opcode (spec.md §4.2): the table is laid out in exactly
// this order so that property holds without a separate lookup.
type Kind uint8

const (
	Nop Kind = iota
	Add
	Sub
	Mul
	Mull
	Mulu
	Mullu
	Div
	Divr
	Divu
	Divru
	Rem
	Remu
	And
	Or
	Xor
	Not
	Test
	Cmp
	Mov
	Load1
	Loadu1
	Load2
	Loadu2
	Load4
	Loadu4
	Load8
	Loadu8
	Store1
	Store2
	Store4
	Store8
	Push
	Pop
	Jmp
	Je
	Jne
	Jg
	Jge
	Ja
	Jae
	Jl
	Jle
	Jb
	Jbe
	Jo
	Jno
	Jz
	Jnz
	Js
	Jns
	Call
	Ret

	numKinds
)

// kindInfo is the one row of the single source-of-truth table that every
// other table (mnemonic dispatch, decoder, executor) is generated from.
type kindInfo struct {
	kind     Kind
	mnemonic string
	shape    Shape
}

// kindTable is ordered by Kind, which is itself ordered by base opcode, so
// KindFromOpcode can binary search it directly.
var kindTable = [numKinds]kindInfo{
	{Nop, "nop", ShapeNullary},
	{Add, "add", ShapeDestSrc},
	{Sub, "sub", ShapeDestSrc},
	{Mul, "mul", ShapeDestSrc},
	{Mull, "mull", ShapeDestDestSrc},
	{Mulu, "mulu", ShapeDestSrc},
	{Mullu, "mullu", ShapeDestDestSrc},
	{Div, "div", ShapeDestSrc},
	{Divr, "divr", ShapeDestDestSrc},
	{Divu, "divu", ShapeDestSrc},
	{Divru, "divru", ShapeDestDestSrc},
	{Rem, "rem", ShapeDestSrc},
	{Remu, "remu", ShapeDestSrc},
	{And, "and", ShapeDestSrc},
	{Or, "or", ShapeDestSrc},
	{Xor, "xor", ShapeDestSrc},
	{Not, "not", ShapeDest1},
	{Test, "test", ShapeSrcSrc},
	{Cmp, "cmp", ShapeSrcSrc},
	{Mov, "mov", ShapeDestSrc},
	{Load1, "load1", ShapeDestLoc},
	{Loadu1, "loadu1", ShapeDestLoc},
	{Load2, "load2", ShapeDestLoc},
	{Loadu2, "loadu2", ShapeDestLoc},
	{Load4, "load4", ShapeDestLoc},
	{Loadu4, "loadu4", ShapeDestLoc},
	{Load8, "load8", ShapeDestLoc},
	{Loadu8, "loadu8", ShapeDestLoc},
	{Store1, "store1", ShapeLocSrc},
	{Store2, "store2", ShapeLocSrc},
	{Store4, "store4", ShapeLocSrc},
	{Store8, "store8", ShapeLocSrc},
	{Push, "push", ShapeSrc1},
	{Pop, "pop", ShapeDest1},
	{Jmp, "jmp", ShapeLoc1},
	{Je, "je", ShapeLoc1},
	{Jne, "jne", ShapeLoc1},
	{Jg, "jg", ShapeLoc1},
	{Jge, "jge", ShapeLoc1},
	{Ja, "ja", ShapeLoc1},
	{Jae, "jae", ShapeLoc1},
	{Jl, "jl", ShapeLoc1},
	{Jle, "jle", ShapeLoc1},
	{Jb, "jb", ShapeLoc1},
	{Jbe, "jbe", ShapeLoc1},
	{Jo, "jo", ShapeLoc1},
	{Jno, "jno", ShapeLoc1},
	{Jz, "jz", ShapeLoc1},
	{Jnz, "jnz", ShapeLoc1},
	{Js, "js", ShapeLoc1},
	{Jns, "jns", ShapeLoc1},
	{Call, "call", ShapeLoc1},
	{Ret, "ret", ShapeNullary},
}

var mnemonicToKind map[string]Kind

func init() {
	mnemonicToKind = make(map[string]Kind, len(kindTable))
	for _, info := range kindTable {
		mnemonicToKind[info.mnemonic] = info.kind
	}
}

// String returns the mnemonic for k, or "" if k is out of range.
func (k Kind) String() string {
	if int(k) >= len(kindTable) {
		return ""
	}
	return kindTable[k].mnemonic
}

// Shape returns the operand shape for k.
func (k Kind) Shape() Shape {
	return kindTable[k].shape
}

// BaseOpcode returns the binary opcode used when this kind's layout offset
// is zero (layout L1). Uniform 12-wide spacing between kinds guarantees the
// non-overlap invariant base_opcode + MaxLayoutOffset < next base_opcode
// (spec.md §4.2), since consecutive bases always differ by exactly 12 and
// MaxLayoutOffset is 10.
func (k Kind) BaseOpcode() uint16 {
	return 12 * uint16(k)
}

// KindFromMnemonic looks up a kind by its assembly mnemonic.
func KindFromMnemonic(mnemonic string) (Kind, bool) {
	k, ok := mnemonicToKind[mnemonic]
	return k, ok
}

// KindFromOpcode decodes a 12-bit opcode into its instruction kind and
// layout offset, by locating the greatest base opcode less than or equal
// to the observed opcode via binary search (spec.md §4.7). ok is false if
// the opcode does not belong to any kind (either it falls before the
// first base opcode, or its offset from the located base exceeds
// MaxLayoutOffset, i.e. it lands in a kind's unused twelfth slot).
func KindFromOpcode(opcode uint16) (kind Kind, layoutOffset uint8, ok bool) {
	i := sort.Search(len(kindTable), func(i int) bool {
		return kindTable[i].kind.BaseOpcode() > opcode
	})
	if i == 0 {
		return 0, 0, false
	}
	kind = kindTable[i-1].kind
	offset := opcode - kind.BaseOpcode()
	if offset > uint16(MaxLayoutOffset) {
		return 0, 0, false
	}
	return kind, uint8(offset), true
}
