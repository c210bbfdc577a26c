package isa

import "fmt"

// Disassemble renders a decoded instruction back to assembly-like text, for
// the execution trace and the disassembler tool. It prints `$sp`/`$fp` by
// name and every other register as `$N`. It is not required to round-trip
// through the parser exactly, only to be readable.
func Disassemble(kind Kind, l Layout) string {
	mnemonic := kind.String()
	if kind.Shape() == ShapeNullary {
		return mnemonic
	}
	switch l.ID {
	case L1:
		return fmt.Sprintf("%s %s, %s", mnemonic, regName(l.R1), regName(l.R2))
	case L2:
		return fmt.Sprintf("%s %s, %d", mnemonic, regName(l.R1), l.Im1.Value)
	case L3:
		return fmt.Sprintf("%s %d, %s", mnemonic, l.Im1.Value, regName(l.R1))
	case L4:
		return fmt.Sprintf("%s %s, [%s+%d]", mnemonic, regName(l.R1), regName(l.R2), l.Off)
	case L5:
		return fmt.Sprintf("%s [%s+%d], %d", mnemonic, regName(l.R1), l.Off, l.Im1.Value)
	case L6:
		return fmt.Sprintf("%s %d, %d", mnemonic, l.Im1.Value, l.Im2.Value)
	case L7:
		return fmt.Sprintf("%s %s, %s, %s", mnemonic, regName(l.R1), regName(l.R2), regName(l.R3))
	case L8:
		return fmt.Sprintf("%s %s, %s, %d", mnemonic, regName(l.R1), regName(l.R2), l.Im1.Value)
	case L9:
		return fmt.Sprintf("%s %s", mnemonic, regName(l.R1))
	case L10:
		return fmt.Sprintf("%s %d", mnemonic, l.Im1.Value)
	case L11:
		return fmt.Sprintf("%s [%s+%d]", mnemonic, regName(l.R1), l.Off)
	default:
		return mnemonic
	}
}

func regName(r Reg) string {
	switch r {
	case SPIndex:
		return "$sp"
	case FPIndex:
		return "$fp"
	default:
		return fmt.Sprintf("$%d", uint8(r))
	}
}
