package loader_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/lookbusy1344/wolfvm/assembler"
	"github.com/lookbusy1344/wolfvm/diag"
	"github.com/lookbusy1344/wolfvm/isa"
	"github.com/lookbusy1344/wolfvm/loader"
	"github.com/lookbusy1344/wolfvm/parser"
	"github.com/lookbusy1344/wolfvm/vm"
)

func assembleSource(t *testing.T, src string) *vm.Machine {
	t.Helper()

	sink := diag.NewSink()
	p := parser.NewParser(src, "test.s", sink)
	program, consts := p.Parse()
	exe, ok := assembler.Assemble(program, consts, sink)
	if !ok {
		t.Fatalf("assembly failed: %s", sink)
	}

	machine := vm.NewMachine(1<<20, strings.NewReader(""), &bytes.Buffer{})
	if err := loader.LoadExecutable(machine, exe); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	return machine
}

func TestLoadExecutable_CodeStartsAtZero(t *testing.T) {
	machine := assembleSource(t, "section .code\nmov $0, 7\n")
	if machine.PC != 0 {
		t.Errorf("expected PC 0, got %d", machine.PC)
	}
	word, err := machine.Memory.ReadU64(0)
	if err != nil {
		t.Fatalf("ReadU64 failed: %v", err)
	}
	kind, _, ok := isa.KindFromOpcode(uint16(word >> 52))
	if !ok || kind != isa.Mov {
		t.Errorf("expected mov encoded at address 0, got kind=%v", kind)
	}
}

func TestLoadExecutable_QuitSentinelPushed(t *testing.T) {
	machine := assembleSource(t, "section .code\nnop\n")
	sp := machine.Registers.LoadSP()
	if sp != (uint64(1)<<20)-8 {
		t.Errorf("expected SP decremented by 8, got %d", sp)
	}
	word, err := machine.Memory.ReadU64(sp)
	if err != nil {
		t.Fatalf("ReadU64 failed: %v", err)
	}
	if word != vm.QuitAddr {
		t.Errorf("expected quit sentinel on stack, got %#x", word)
	}
}

func TestLoadExecutable_StaticSectionFollowsCode(t *testing.T) {
	machine := assembleSource(t, "section .code\nnop\nsection .static\n.b4 1234\n")
	b, err := machine.Memory.ReadN(8, 4)
	if err != nil {
		t.Fatalf("ReadN failed: %v", err)
	}
	if b != 1234 {
		t.Errorf("expected static value 1234 at address 8 (right after the one-word code section), got %d", b)
	}
}

func TestLoadExecutable_UninitIsZeroFilled(t *testing.T) {
	machine := assembleSource(t, "section .code\nnop\nsection .static\n.uninit 8\n")
	v, err := machine.Memory.ReadU64(8)
	if err != nil {
		t.Fatalf("ReadU64 failed: %v", err)
	}
	if v != 0 {
		t.Errorf("expected zero-filled .uninit region, got %d", v)
	}
}

func TestLoadExecutable_ByteStrIsBlitted(t *testing.T) {
	machine := assembleSource(t, "section .code\nnop\nsection .static\n.bytes \"ok\"\n")
	b0, _ := machine.Memory.Get(8)
	b1, _ := machine.Memory.Get(9)
	if b0 != 'o' || b1 != 'k' {
		t.Errorf("expected \"ok\" at address 8, got %c%c", b0, b1)
	}
}

func TestLoadExecutable_RunToCompletion(t *testing.T) {
	machine := assembleSource(t, "section .code\nmov $0, 5\nret\n")
	if err := machine.Run(0); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if machine.Registers.Load(0) != 5 {
		t.Errorf("expected register 0 to hold 5, got %d", machine.Registers.Load(0))
	}
	if machine.PC != vm.QuitAddr {
		t.Errorf("expected PC to have reached the quit sentinel, got %#x", machine.PC)
	}
}
