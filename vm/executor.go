package vm

import (
	"math/bits"

	"github.com/lookbusy1344/wolfvm/isa"
)

func sourceValue(src isa.Source, regs *Registers) uint64 {
	if src.IsRegister {
		return regs.Load(src.Reg)
	}
	return uint64(src.Imm)
}

// effectiveAddress computes the address a Location operand refers to: a
// register (optionally plus a sign-extended offset) or a bare immediate
// address.
func effectiveAddress(loc isa.Location, regs *Registers) uint64 {
	if loc.IsRegister {
		addr := regs.Load(loc.Reg)
		if loc.HasOffset {
			addr += uint64(int64(loc.Offset))
		}
		return addr
	}
	return uint64(loc.Imm)
}

// execute dispatches a decoded instruction to its semantics (spec.md
// §4.6). Any returned error (out-of-bounds memory, divide-by-zero, I/O
// failure) terminates the run immediately; the VM has no recovery
// discipline, unlike the assembler.
func (m *Machine) execute(instr Instr) error {
	regs := m.Registers
	l := instr.Layout

	switch instr.Kind {
	case isa.Nop:
		return nil

	case isa.Add:
		dest, src := isa.UnpackDestSrc(l)
		lhs, rhs := regs.Load(dest.Reg), sourceValue(src, regs)
		result := lhs + rhs
		regs.Store(dest.Reg, result)
		m.Flags = addFlags(lhs, rhs, result)
		return nil

	case isa.Sub:
		dest, src := isa.UnpackDestSrc(l)
		lhs, rhs := regs.Load(dest.Reg), sourceValue(src, regs)
		result := lhs - rhs
		regs.Store(dest.Reg, result)
		m.Flags = subFlags(lhs, rhs, result)
		return nil

	case isa.Mul:
		dest, src := isa.UnpackDestSrc(l)
		lhs, rhs := regs.Load(dest.Reg), sourceValue(src, regs)
		hi, lo := signedMul128(lhs, rhs)
		regs.Store(dest.Reg, lo)
		overflowed := hi != signExtension(lo)
		m.Flags.Carry = overflowed
		m.Flags.Overflow = overflowed
		m.Flags.Zero = lo == 0
		m.Flags.Sign = lo&(1<<63) != 0
		return nil

	case isa.Mulu:
		dest, src := isa.UnpackDestSrc(l)
		lhs, rhs := regs.Load(dest.Reg), sourceValue(src, regs)
		hi, lo := bits.Mul64(lhs, rhs)
		regs.Store(dest.Reg, lo)
		m.Flags.Carry = hi != 0
		m.Flags.Overflow = hi != 0
		m.Flags.Zero = lo == 0
		m.Flags.Sign = lo&(1<<63) != 0
		return nil

	case isa.Mull:
		destHi, dest, src := isa.UnpackDestDestSrc(l)
		lhs, rhs := regs.Load(dest.Reg), sourceValue(src, regs)
		hi, lo := signedMul128(lhs, rhs)
		regs.Store(dest.Reg, lo)
		regs.Store(destHi.Reg, hi)
		return nil

	case isa.Mullu:
		destHi, dest, src := isa.UnpackDestDestSrc(l)
		lhs, rhs := regs.Load(dest.Reg), sourceValue(src, regs)
		hi, lo := bits.Mul64(lhs, rhs)
		regs.Store(dest.Reg, lo)
		regs.Store(destHi.Reg, hi)
		return nil

	case isa.Div:
		dest, src := isa.UnpackDestSrc(l)
		lhs, rhs := int64(regs.Load(dest.Reg)), int64(sourceValue(src, regs))
		if rhs == 0 {
			return &DivideByZeroError{Mnemonic: "div"}
		}
		regs.Store(dest.Reg, uint64(lhs/rhs))
		return nil

	case isa.Divu:
		dest, src := isa.UnpackDestSrc(l)
		lhs, rhs := regs.Load(dest.Reg), sourceValue(src, regs)
		if rhs == 0 {
			return &DivideByZeroError{Mnemonic: "divu"}
		}
		regs.Store(dest.Reg, lhs/rhs)
		return nil

	case isa.Divr:
		destRem, dest, src := isa.UnpackDestDestSrc(l)
		lhs, rhs := int64(regs.Load(dest.Reg)), int64(sourceValue(src, regs))
		if rhs == 0 {
			return &DivideByZeroError{Mnemonic: "divr"}
		}
		regs.Store(dest.Reg, uint64(lhs/rhs))
		regs.Store(destRem.Reg, uint64(lhs%rhs))
		return nil

	case isa.Divru:
		destRem, dest, src := isa.UnpackDestDestSrc(l)
		lhs, rhs := regs.Load(dest.Reg), sourceValue(src, regs)
		if rhs == 0 {
			return &DivideByZeroError{Mnemonic: "divru"}
		}
		regs.Store(dest.Reg, lhs/rhs)
		regs.Store(destRem.Reg, lhs%rhs)
		return nil

	case isa.Rem:
		dest, src := isa.UnpackDestSrc(l)
		lhs, rhs := int64(regs.Load(dest.Reg)), int64(sourceValue(src, regs))
		if rhs == 0 {
			return &DivideByZeroError{Mnemonic: "rem"}
		}
		regs.Store(dest.Reg, uint64(lhs%rhs))
		return nil

	case isa.Remu:
		dest, src := isa.UnpackDestSrc(l)
		lhs, rhs := regs.Load(dest.Reg), sourceValue(src, regs)
		if rhs == 0 {
			return &DivideByZeroError{Mnemonic: "remu"}
		}
		regs.Store(dest.Reg, lhs%rhs)
		return nil

	case isa.And:
		dest, src := isa.UnpackDestSrc(l)
		result := regs.Load(dest.Reg) & sourceValue(src, regs)
		regs.Store(dest.Reg, result)
		m.Flags = bitwiseFlags(result)
		return nil

	case isa.Or:
		dest, src := isa.UnpackDestSrc(l)
		result := regs.Load(dest.Reg) | sourceValue(src, regs)
		regs.Store(dest.Reg, result)
		m.Flags = bitwiseFlags(result)
		return nil

	case isa.Xor:
		dest, src := isa.UnpackDestSrc(l)
		result := regs.Load(dest.Reg) ^ sourceValue(src, regs)
		regs.Store(dest.Reg, result)
		m.Flags = bitwiseFlags(result)
		return nil

	case isa.Not:
		dest := isa.UnpackDest1(l)
		result := ^regs.Load(dest.Reg)
		regs.Store(dest.Reg, result)
		m.Flags = bitwiseFlags(result)
		return nil

	case isa.Test:
		a, b := isa.UnpackSrcSrc(l)
		result := sourceValue(a, regs) & sourceValue(b, regs)
		m.Flags = bitwiseFlags(result)
		return nil

	case isa.Cmp:
		a, b := isa.UnpackSrcSrc(l)
		lhs, rhs := sourceValue(a, regs), sourceValue(b, regs)
		m.Flags = subFlags(lhs, rhs, lhs-rhs)
		return nil

	case isa.Mov:
		dest, src := isa.UnpackDestSrc(l)
		regs.Store(dest.Reg, sourceValue(src, regs))
		return nil

	case isa.Load1, isa.Loadu1, isa.Load2, isa.Loadu2, isa.Load4, isa.Loadu4, isa.Load8, isa.Loadu8:
		return m.executeLoad(instr.Kind, l)

	case isa.Store1, isa.Store2, isa.Store4, isa.Store8:
		return m.executeStore(instr.Kind, l)

	case isa.Push:
		src := isa.UnpackSrc1(l)
		value := sourceValue(src, regs)
		sp := regs.LoadSP() - wordSizeBytes
		if err := m.Memory.WriteU64(sp, value); err != nil {
			return err
		}
		regs.StoreSP(sp)
		return nil

	case isa.Pop:
		dest := isa.UnpackDest1(l)
		sp := regs.LoadSP()
		value, err := m.Memory.ReadU64(sp)
		if err != nil {
			return err
		}
		regs.Store(dest.Reg, value)
		regs.StoreSP(sp + wordSizeBytes)
		return nil

	case isa.Jmp:
		m.PC = effectiveAddress(isa.UnpackLoc1(l), regs)
		return nil

	case isa.Je, isa.Jz, isa.Jne, isa.Jnz, isa.Jg, isa.Jge, isa.Jl, isa.Jle,
		isa.Ja, isa.Jae, isa.Jb, isa.Jbe, isa.Jo, isa.Jno, isa.Js, isa.Jns:
		return m.executeConditionalJump(instr.Kind, l)

	case isa.Call:
		target := effectiveAddress(isa.UnpackLoc1(l), regs)
		sp := regs.LoadSP() - wordSizeBytes
		if err := m.Memory.WriteU64(sp, m.PC); err != nil {
			return err
		}
		regs.StoreSP(sp)
		m.PC = target
		return nil

	case isa.Ret:
		sp := regs.LoadSP()
		target, err := m.Memory.ReadU64(sp)
		if err != nil {
			return err
		}
		regs.StoreSP(sp + wordSizeBytes)
		m.PC = target
		return nil

	default:
		return &DecodeInvalidOpcodeError{Opcode: uint16(instr.Kind.BaseOpcode())}
	}
}

func (m *Machine) executeLoad(kind isa.Kind, l isa.Layout) error {
	dest, loc := isa.UnpackDestLoc(l)
	addr := effectiveAddress(loc, m.Registers)

	var width int
	var signed bool
	switch kind {
	case isa.Load1:
		width, signed = 1, true
	case isa.Loadu1:
		width, signed = 1, false
	case isa.Load2:
		width, signed = 2, true
	case isa.Loadu2:
		width, signed = 2, false
	case isa.Load4:
		width, signed = 4, true
	case isa.Loadu4:
		width, signed = 4, false
	case isa.Load8:
		width, signed = 8, true
	case isa.Loadu8:
		width, signed = 8, false
	}

	raw, err := m.loadMemory(addr, width)
	if err != nil {
		return err
	}
	if signed {
		raw = isa.SignExtendBytes(raw, width)
	} else {
		raw = isa.ZeroExtendBytes(raw, width)
	}
	m.Registers.Store(dest.Reg, raw)
	return nil
}

var storeWidths = map[isa.Kind]int{isa.Store1: 1, isa.Store2: 2, isa.Store4: 4, isa.Store8: 8}

func (m *Machine) executeStore(kind isa.Kind, l isa.Layout) error {
	loc, src := isa.UnpackLocSrc(l)
	addr := effectiveAddress(loc, m.Registers)
	value := sourceValue(src, m.Registers)

	width := storeWidths[kind]
	return m.storeMemory(addr, width, isa.Narrow(value, width))
}

var conditionKinds = map[isa.Kind]jumpKind{
	isa.Je: jumpEQ, isa.Jz: jumpEQ,
	isa.Jne: jumpNE, isa.Jnz: jumpNE,
	isa.Jg: jumpG, isa.Jge: jumpGE,
	isa.Jl: jumpL, isa.Jle: jumpLE,
	isa.Ja: jumpA, isa.Jae: jumpAE,
	isa.Jb: jumpB, isa.Jbe: jumpBE,
	isa.Jo: jumpO, isa.Jno: jumpNO,
	isa.Js: jumpS, isa.Jns: jumpNS,
}

func (m *Machine) executeConditionalJump(kind isa.Kind, l isa.Layout) error {
	if conditionHolds(conditionKinds[kind], m.Flags) {
		m.PC = effectiveAddress(isa.UnpackLoc1(l), m.Registers)
	}
	return nil
}

// signExtension returns all-ones if low's sign bit is set, else all-zeros;
// the high word a signed 64-bit value would widen to at 128 bits.
func signExtension(low uint64) uint64 {
	if int64(low) < 0 {
		return ^uint64(0)
	}
	return 0
}

// signedMul128 computes the full 128-bit product of lhs*rhs interpreted
// as signed 64-bit integers, returning (high, low) as two's-complement
// halves. The low word is identical to the unsigned product's low word
// (multiplication mod 2^64 doesn't care about interpretation); the high
// word needs the standard two's-complement widening correction.
func signedMul128(lhs, rhs uint64) (hi, lo uint64) {
	hi, lo = bits.Mul64(lhs, rhs)
	if int64(lhs) < 0 {
		hi -= rhs
	}
	if int64(rhs) < 0 {
		hi -= lhs
	}
	return hi, lo
}
