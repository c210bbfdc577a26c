package vm_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/lookbusy1344/wolfvm/assembler"
	"github.com/lookbusy1344/wolfvm/diag"
	"github.com/lookbusy1344/wolfvm/loader"
	"github.com/lookbusy1344/wolfvm/parser"
	"github.com/lookbusy1344/wolfvm/vm"
)

// assembleAndRun assembles src, loads it onto a fresh machine backed by
// stdin/stdout, and runs it to completion (or until maxCycles fires).
func assembleAndRun(t *testing.T, src string, stdin string, stdout *bytes.Buffer, maxCycles uint64) *vm.Machine {
	t.Helper()
	sink := diag.NewSink()
	p := parser.NewParser(src, "test.s", sink)
	program, consts := p.Parse()
	exe, ok := assembler.Assemble(program, consts, sink)
	if !ok {
		t.Fatalf("assembly failed: %s", sink)
	}

	machine := vm.NewMachine(1<<20, strings.NewReader(stdin), stdout)
	if err := loader.LoadExecutable(machine, exe); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if err := machine.Run(maxCycles); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	return machine
}

func TestMachine_AddSetsResultAndZeroFlag(t *testing.T) {
	m := assembleAndRun(t, "section .code\nmov $0, 5\nadd $0, -5\nret\n", "", &bytes.Buffer{}, 0)
	if got := m.Registers.Load(0); got != 0 {
		t.Errorf("expected $0 == 0, got %d", got)
	}
	if !m.Flags.Zero {
		t.Error("expected Zero flag set")
	}
}

func TestMachine_SubSetsCarryOnBorrow(t *testing.T) {
	m := assembleAndRun(t, "section .code\nmov $0, 0\nsub $0, 1\nret\n", "", &bytes.Buffer{}, 0)
	if got := m.Registers.Load(0); got != ^uint64(0) {
		t.Errorf("expected $0 == all-ones, got %d", got)
	}
	if !m.Flags.Carry {
		t.Error("expected Carry flag set on unsigned borrow")
	}
	if !m.Flags.Sign {
		t.Error("expected Sign flag set for a negative result")
	}
}

func TestMachine_MulOverflowSetsFlags(t *testing.T) {
	src := "section .code\nmov $0, 1000000000000\nmul $0, 1000000000000\nret\n"
	m := assembleAndRun(t, src, "", &bytes.Buffer{}, 0)
	if !m.Flags.Overflow {
		t.Error("expected Overflow flag set for a product exceeding 64 bits")
	}
}

func TestMachine_MulluProducesHighWord(t *testing.T) {
	src := "section .code\nmov $0, 4294967296\nmullu $1, $0, $0\nret\n"
	m := assembleAndRun(t, src, "", &bytes.Buffer{}, 0)
	if got := m.Registers.Load(1); got != 1 {
		t.Errorf("expected high word $1 == 1, got %d", got)
	}
	if got := m.Registers.Load(0); got != 0 {
		t.Errorf("expected low word $0 == 0, got %d", got)
	}
}

func TestMachine_DivByZeroReturnsError(t *testing.T) {
	sink := diag.NewSink()
	p := parser.NewParser("section .code\nmov $0, 10\nmov $1, 0\ndiv $0, $1\nret\n", "test.s", sink)
	program, consts := p.Parse()
	exe, ok := assembler.Assemble(program, consts, sink)
	if !ok {
		t.Fatalf("assembly failed: %s", sink)
	}
	machine := vm.NewMachine(1<<20, strings.NewReader(""), &bytes.Buffer{})
	if err := loader.LoadExecutable(machine, exe); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	err := machine.Run(0)
	if err == nil {
		t.Fatal("expected divide-by-zero error")
	}
	var dbz *vm.DivideByZeroError
	if !errorsAs(err, &dbz) {
		t.Errorf("expected *vm.DivideByZeroError, got %T: %v", err, err)
	}
}

func TestMachine_RemuComputesRemainder(t *testing.T) {
	m := assembleAndRun(t, "section .code\nmov $0, 17\nremu $0, 5\nret\n", "", &bytes.Buffer{}, 0)
	if got := m.Registers.Load(0); got != 2 {
		t.Errorf("expected $0 == 2, got %d", got)
	}
}

func TestMachine_BitwiseOpsAndZeroFlag(t *testing.T) {
	m := assembleAndRun(t, "section .code\nmov $0, 12\nand $0, 3\nret\n", "", &bytes.Buffer{}, 0)
	if got := m.Registers.Load(0); got != 0 {
		t.Errorf("expected $0 == 0, got %d", got)
	}
	if !m.Flags.Zero {
		t.Error("expected Zero flag set")
	}
}

func TestMachine_NotInvertsAllBits(t *testing.T) {
	m := assembleAndRun(t, "section .code\nmov $0, 0\nnot $0\nret\n", "", &bytes.Buffer{}, 0)
	if got := m.Registers.Load(0); got != ^uint64(0) {
		t.Errorf("expected $0 == all-ones, got %d", got)
	}
}

func TestMachine_CmpDoesNotModifyOperands(t *testing.T) {
	m := assembleAndRun(t, "section .code\nmov $0, 5\nmov $1, 5\ncmp $0, $1\nret\n", "", &bytes.Buffer{}, 0)
	if got := m.Registers.Load(0); got != 5 {
		t.Errorf("cmp must not modify its operands, got $0 == %d", got)
	}
	if !m.Flags.Zero {
		t.Error("expected Zero flag set for equal operands")
	}
}

func TestMachine_ConditionalJumpTakenOnEqual(t *testing.T) {
	src := "section .code\nmov $0, 1\nmov $1, 1\ncmp $0, $1\nje equal\nmov $2, 0\nret\nequal:\nmov $2, 1\nret\n"
	m := assembleAndRun(t, src, "", &bytes.Buffer{}, 0)
	if got := m.Registers.Load(2); got != 1 {
		t.Errorf("expected je to be taken, $2 == %d", got)
	}
}

func TestMachine_ConditionalJumpNotTakenOnNotEqual(t *testing.T) {
	src := "section .code\nmov $0, 1\nmov $1, 2\ncmp $0, $1\nje equal\nmov $2, 7\nret\nequal:\nmov $2, 1\nret\n"
	m := assembleAndRun(t, src, "", &bytes.Buffer{}, 0)
	if got := m.Registers.Load(2); got != 7 {
		t.Errorf("expected je to be skipped, $2 == %d", got)
	}
}

func TestMachine_PushPopRoundTrips(t *testing.T) {
	m := assembleAndRun(t, "section .code\nmov $0, 42\npush $0\nmov $0, 0\npop $1\nret\n", "", &bytes.Buffer{}, 0)
	if got := m.Registers.Load(1); got != 42 {
		t.Errorf("expected $1 == 42 after pop, got %d", got)
	}
}

func TestMachine_CallRetRoundTrips(t *testing.T) {
	src := "section .code\n_start:\ncall helper\nmov $1, 99\nret\nhelper:\nmov $0, 1\nret\n"
	m := assembleAndRun(t, src, "", &bytes.Buffer{}, 0)
	if got := m.Registers.Load(0); got != 1 {
		t.Errorf("expected helper to run, $0 == %d", got)
	}
	if got := m.Registers.Load(1); got != 99 {
		t.Errorf("expected caller to resume after call, $1 == %d", got)
	}
}

func TestMachine_LoadStoreRoundTripWidth4(t *testing.T) {
	src := "section .code\nmov $0, 305419896\nstore4 buf, $0\nload4 $1, buf\nret\nsection .static\nbuf:\n.zero 4\n"
	m := assembleAndRun(t, src, "", &bytes.Buffer{}, 0)
	if got := m.Registers.Load(1); got != 305419896 {
		t.Errorf("expected load4 to round-trip store4, got %d", got)
	}
}

func TestMachine_LoadSignExtends(t *testing.T) {
	src := "section .code\nmov $0, 255\nstore1 buf, $0\nload1 $1, buf\nret\nsection .static\nbuf:\n.zero 1\n"
	m := assembleAndRun(t, src, "", &bytes.Buffer{}, 0)
	if got := int64(m.Registers.Load(1)); got != -1 {
		t.Errorf("expected load1 to sign-extend 0xFF to -1, got %d", got)
	}
}

func TestMachine_LoaduZeroExtends(t *testing.T) {
	src := "section .code\nmov $0, 255\nstore1 buf, $0\nloadu1 $1, buf\nret\nsection .static\nbuf:\n.zero 1\n"
	m := assembleAndRun(t, src, "", &bytes.Buffer{}, 0)
	if got := m.Registers.Load(1); got != 255 {
		t.Errorf("expected loadu1 to zero-extend 0xFF to 255, got %d", got)
	}
}

func TestMachine_StdoutWritesUTF8Scalar(t *testing.T) {
	var out bytes.Buffer
	src := "section .code\nmov $0, 65\nstore4 " + stdoutAddrLiteral() + ", $0\nret\n"
	assembleAndRun(t, src, "", &out, 0)
	if out.String() != "A" {
		t.Errorf("expected stdout to contain 'A', got %q", out.String())
	}
}

func TestMachine_StdinReadsByteThenZeroAtEOF(t *testing.T) {
	src := "section .code\nload1 $0, " + stdinAddrLiteral() + "\nload1 $1, " + stdinAddrLiteral() + "\nret\n"
	m := assembleAndRun(t, src, "x", &bytes.Buffer{}, 0)
	if got := m.Registers.Load(0); got != uint64('x') {
		t.Errorf("expected first stdin read to be 'x', got %d", got)
	}
	if got := m.Registers.Load(1); got != 0 {
		t.Errorf("expected stdin read past EOF to be 0, got %d", got)
	}
}

func TestMachine_OutOfBoundsMemoryAccessErrors(t *testing.T) {
	sink := diag.NewSink()
	p := parser.NewParser("section .code\nload4 $0, 99999999\nret\n", "test.s", sink)
	program, consts := p.Parse()
	exe, ok := assembler.Assemble(program, consts, sink)
	if !ok {
		t.Fatalf("assembly failed: %s", sink)
	}
	machine := vm.NewMachine(64, strings.NewReader(""), &bytes.Buffer{})
	if err := loader.LoadExecutable(machine, exe); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	err := machine.Run(0)
	if err == nil {
		t.Fatal("expected an out-of-bounds error")
	}
	var oob *vm.OutOfBoundsError
	if !errorsAs(err, &oob) {
		t.Errorf("expected *vm.OutOfBoundsError, got %T: %v", err, err)
	}
}

// When mov runs, SP is 1<<20-8 (the loader has pushed the quit sentinel);
// the final ret pops it, so SP is back at 1<<20 once Run returns.
func TestMachine_StackPointerAliasedToR63(t *testing.T) {
	m := assembleAndRun(t, "section .code\nmov $0, $sp\nret\n", "", &bytes.Buffer{}, 0)
	if got := m.Registers.Load(0); got != 1<<20-8 {
		t.Errorf("expected $sp alias to read SP at the time of the mov (%d), got $0=%d", 1<<20-8, got)
	}
}

func TestMachine_FramePointerPreservedAcrossMov(t *testing.T) {
	m := assembleAndRun(t, "section .code\nmov $fp, $sp\nret\n", "", &bytes.Buffer{}, 0)
	if m.Registers.LoadFP() != 1<<20-8 {
		t.Errorf("expected $fp to keep SP's value at the time of the mov (%d), fp=%d", 1<<20-8, m.Registers.LoadFP())
	}
}

func TestMachine_RunRespectsMaxCycles(t *testing.T) {
	sink := diag.NewSink()
	p := parser.NewParser("section .code\nloop:\nadd $0, 1\njmp loop\n", "test.s", sink)
	program, consts := p.Parse()
	exe, ok := assembler.Assemble(program, consts, sink)
	if !ok {
		t.Fatalf("assembly failed: %s", sink)
	}
	machine := vm.NewMachine(1<<20, strings.NewReader(""), &bytes.Buffer{})
	if err := loader.LoadExecutable(machine, exe); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if err := machine.Run(10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if machine.CyclesExecuted != 10 {
		t.Errorf("expected exactly 10 cycles executed, got %d", machine.CyclesExecuted)
	}
}

func TestMachine_StepReturnsDoneAtQuitSentinel(t *testing.T) {
	sink := diag.NewSink()
	p := parser.NewParser("section .code\nret\n", "test.s", sink)
	program, consts := p.Parse()
	exe, ok := assembler.Assemble(program, consts, sink)
	if !ok {
		t.Fatalf("assembly failed: %s", sink)
	}
	machine := vm.NewMachine(1<<20, strings.NewReader(""), &bytes.Buffer{})
	if err := loader.LoadExecutable(machine, exe); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	done, err := machine.Step()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !done {
		t.Error("expected Step to report done after the entry point's ret hits the quit sentinel")
	}
	if machine.PC != vm.QuitAddr {
		t.Errorf("expected PC == QuitAddr, got %#x", machine.PC)
	}
}

func stdoutAddrLiteral() string { return "0xFFFF000C" }
func stdinAddrLiteral() string  { return "0xFFFF0004" }

func errorsAs(err error, target interface{}) bool {
	switch t := target.(type) {
	case **vm.DivideByZeroError:
		e, ok := err.(*vm.DivideByZeroError)
		if ok {
			*t = e
		}
		return ok
	case **vm.OutOfBoundsError:
		e, ok := err.(*vm.OutOfBoundsError)
		if ok {
			*t = e
		}
		return ok
	}
	return false
}
