package vm

// Flags is the machine's 4-bit status register, mirroring x86 arithmetic
// semantics (spec.md §4.6, §4.9 "Flag laws").
type Flags struct {
	Carry    bool // CF: set on unsigned overflow/underflow
	Zero     bool // ZF: set when the result is zero
	Sign     bool // SF: set when bit 63 of the result is 1
	Overflow bool // OF: set on signed overflow/underflow
}

// DefaultFlags is the machine's flag state before any instruction runs:
// no carry, zero result, positive sign, no overflow — matching the
// original program's Default impl.
func DefaultFlags() Flags {
	return Flags{Zero: true}
}

// addFlags computes the four flags that result from lhs + rhs (mod 2^64),
// given the wrapped result.
func addFlags(lhs, rhs, result uint64) Flags {
	carry := result < lhs // unsigned wraparound iff the sum wrapped below an operand
	signedLhs, signedRhs := int64(lhs), int64(rhs)
	signedResult := signedLhs + signedRhs
	overflow := (signedLhs >= 0) == (signedRhs >= 0) && (signedResult >= 0) != (signedLhs >= 0)
	return Flags{
		Carry:    carry,
		Zero:     result == 0,
		Sign:     result&(1<<63) != 0,
		Overflow: overflow,
	}
}

// subFlags computes the four flags that result from lhs - rhs (mod 2^64).
func subFlags(lhs, rhs, result uint64) Flags {
	carry := lhs < rhs // borrow occurred
	signedLhs, signedRhs := int64(lhs), int64(rhs)
	signedResult := signedLhs - signedRhs
	overflow := (signedLhs >= 0) != (signedRhs >= 0) && (signedResult >= 0) != (signedLhs >= 0)
	return Flags{
		Carry:    carry,
		Zero:     result == 0,
		Sign:     result&(1<<63) != 0,
		Overflow: overflow,
	}
}

// bitwiseFlags computes the flags `test`/`and`/`or`/`xor` leave behind:
// carry and overflow always clear, zero/sign from the result.
func bitwiseFlags(result uint64) Flags {
	return Flags{
		Zero: result == 0,
		Sign: result&(1<<63) != 0,
	}
}

// conditionHolds evaluates a jump's flag condition against the current
// flags, per spec.md §4.6's x86-analogue mapping.
func conditionHolds(kind jumpKind, f Flags) bool {
	switch kind {
	case jumpAlways:
		return true
	case jumpEQ: // je/jz
		return f.Zero
	case jumpNE: // jne/jnz
		return !f.Zero
	case jumpG:
		return f.Sign == f.Overflow && !f.Zero
	case jumpGE:
		return f.Sign == f.Overflow || f.Zero
	case jumpL:
		return f.Sign != f.Overflow
	case jumpLE:
		return f.Sign != f.Overflow || f.Zero
	case jumpA:
		return !f.Carry && !f.Zero
	case jumpAE:
		return !f.Carry || f.Zero
	case jumpB:
		return f.Carry
	case jumpBE:
		return f.Carry || f.Zero
	case jumpO:
		return f.Overflow
	case jumpNO:
		return !f.Overflow
	case jumpS:
		return f.Sign
	case jumpNS:
		return !f.Sign
	default:
		return false
	}
}

// jumpKind identifies which flag condition a conditional jump kind tests.
type jumpKind int

const (
	jumpAlways jumpKind = iota
	jumpEQ
	jumpNE
	jumpG
	jumpGE
	jumpA
	jumpAE
	jumpL
	jumpLE
	jumpB
	jumpBE
	jumpO
	jumpNO
	jumpS
	jumpNS
)
