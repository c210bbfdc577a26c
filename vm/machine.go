package vm

import (
	"bufio"
	"io"

	"github.com/lookbusy1344/wolfvm/isa"
)

// Machine is the virtual machine: program counter, memory, registers,
// flags, and the two memory-mapped I/O streams. It owns all of its state
// exclusively (spec.md §9 "Ownership").
type Machine struct {
	PC        uint64
	Memory    *Memory
	Registers *Registers
	Flags     Flags

	stdin    *bufio.Reader
	stdinEOF bool
	stdout   io.Writer

	CyclesExecuted uint64

	// ExecutionTrace, MemoryTrace, and Statistics are nil unless a caller
	// (cmd/wolfvm's -trace/-mem-trace/-stats flags, or the debugger) opts
	// in; Step and the memory-mapped I/O helpers record into them only
	// when non-nil.
	ExecutionTrace *ExecutionTrace
	MemoryTrace    *MemoryTrace
	Statistics     *Statistics
}

// NewMachine allocates a machine with the given memory capacity. FP and SP
// both start at the memory's capacity (the top of the address space, one
// past the last valid byte) per the loader's convention of growing the
// stack down from the end of memory.
func NewMachine(memCapacity uint64, stdin io.Reader, stdout io.Writer) *Machine {
	m := &Machine{
		Memory:    NewMemory(memCapacity),
		Registers: NewRegisters(),
		Flags:     DefaultFlags(),
		stdin:     bufio.NewReader(stdin),
		stdout:    stdout,
	}
	m.Registers.StoreSP(memCapacity)
	m.Registers.StoreFP(memCapacity)
	return m
}

// PushQuitSentinel pushes QuitAddr onto the stack so that the entry
// point's final ret terminates the run (spec.md §4.8).
func (m *Machine) PushQuitSentinel() error {
	sp := m.Registers.LoadSP() - wordSizeBytes
	if err := m.Memory.WriteU64(sp, QuitAddr); err != nil {
		return err
	}
	m.Registers.StoreSP(sp)
	return nil
}

// Step performs one fetch-decode-execute cycle (spec.md §4.8): read 8
// bytes at PC, decode, advance PC by 8 (before executing, so call pushes
// the post-call address), then execute. It returns done=true once PC
// reaches the sentinel address.
func (m *Machine) Step() (done bool, err error) {
	pc := m.PC
	word, err := m.Memory.ReadU64(pc)
	if err != nil {
		return false, err
	}

	instr, err := Decode(word)
	if err != nil {
		return false, err
	}

	m.PC += instrSizeBytes

	if err := m.execute(instr); err != nil {
		return false, err
	}

	if m.Statistics != nil {
		m.Statistics.RecordInstruction(instr.Kind)
	}
	if m.ExecutionTrace != nil {
		m.ExecutionTrace.RecordInstruction(m, pc, isa.Disassemble(instr.Kind, instr.Layout))
	}

	m.CyclesExecuted++

	return m.PC == QuitAddr, nil
}

// Run steps the machine until it quits, a step errors, or maxCycles
// instructions have executed (0 means unbounded).
func (m *Machine) Run(maxCycles uint64) error {
	for maxCycles == 0 || m.CyclesExecuted < maxCycles {
		done, err := m.Step()
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
	return nil
}
