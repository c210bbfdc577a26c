package vm

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/lookbusy1344/wolfvm/isa"
)

// TraceEntry represents a single execution trace entry.
type TraceEntry struct {
	Sequence        uint64            // instruction sequence number
	PC              uint64            // instruction address
	Disassembly     string            // disassembled instruction
	RegisterChanges map[string]uint64 // register changes (name -> new value)
	Flags           Flags             // flags after execution
	Duration        time.Duration     // execution time
}

// ExecutionTrace records a running log of executed instructions and the
// register changes they produced, for the debugger and the --trace CLI flag.
type ExecutionTrace struct {
	Enabled       bool
	Writer        io.Writer
	FilterRegs    map[string]bool // registers to track (empty = all)
	IncludeFlags  bool
	IncludeTiming bool
	MaxEntries    int

	entries      []TraceEntry
	startTime    time.Time
	lastSnapshot map[string]uint64
}

// NewExecutionTrace creates a new execution trace writing to writer.
func NewExecutionTrace(writer io.Writer) *ExecutionTrace {
	return &ExecutionTrace{
		Enabled:       true,
		Writer:        writer,
		FilterRegs:    make(map[string]bool),
		IncludeFlags:  true,
		IncludeTiming: true,
		MaxEntries:    100000,
		entries:       make([]TraceEntry, 0, 1000),
		lastSnapshot:  make(map[string]uint64),
	}
}

// SetFilterRegisters sets which registers to track. Pass nil or empty to
// track all registers.
func (t *ExecutionTrace) SetFilterRegisters(regs []string) {
	t.FilterRegs = make(map[string]bool)
	for _, reg := range regs {
		t.FilterRegs[strings.ToLower(reg)] = true
	}
}

// Start resets the trace and records the starting time.
func (t *ExecutionTrace) Start() {
	t.startTime = time.Now()
	t.entries = t.entries[:0]
	t.lastSnapshot = make(map[string]uint64)
}

// RecordInstruction records one executed instruction's register deltas
// against the machine's state immediately after execution. pc is the
// instruction's own address (the machine's PC has already advanced, and may
// have jumped, by the time this is called).
func (t *ExecutionTrace) RecordInstruction(m *Machine, pc uint64, disasm string) {
	if !t.Enabled {
		return
	}
	if t.MaxEntries > 0 && len(t.entries) >= t.MaxEntries {
		return
	}

	entry := TraceEntry{
		Sequence:        m.CyclesExecuted,
		PC:              pc,
		Disassembly:     disasm,
		RegisterChanges: make(map[string]uint64),
		Flags:           m.Flags,
	}
	if t.IncludeTiming {
		entry.Duration = time.Since(t.startTime)
	}

	current := make(map[string]uint64, isa.NumRegisters)
	for i := 0; i < isa.NumRegisters; i++ {
		current[registerTraceName(isa.Reg(i))] = m.Registers.Load(isa.Reg(i))
	}

	for name, value := range current {
		if len(t.FilterRegs) > 0 && !t.FilterRegs[name] {
			continue
		}
		if oldValue, exists := t.lastSnapshot[name]; !exists || oldValue != value {
			entry.RegisterChanges[name] = value
			t.lastSnapshot[name] = value
		}
	}

	t.entries = append(t.entries, entry)
}

func registerTraceName(r isa.Reg) string {
	switch r {
	case isa.SPIndex:
		return "sp"
	case isa.FPIndex:
		return "fp"
	default:
		return fmt.Sprintf("r%d", r)
	}
}

// Flush writes all recorded entries to Writer.
func (t *ExecutionTrace) Flush() error {
	if t.Writer == nil {
		return nil
	}
	for _, entry := range t.entries {
		if err := t.writeEntry(entry); err != nil {
			return err
		}
	}
	return nil
}

func (t *ExecutionTrace) writeEntry(entry TraceEntry) error {
	line := fmt.Sprintf("[%06d] 0x%016X: %-30s", entry.Sequence, entry.PC, entry.Disassembly)

	if len(entry.RegisterChanges) > 0 {
		changes := make([]string, 0, len(entry.RegisterChanges))
		for name, value := range entry.RegisterChanges {
			changes = append(changes, fmt.Sprintf("%s=0x%016X", name, value))
		}
		line += " | " + strings.Join(changes, " ")
	} else {
		line += " | (no changes)"
	}

	if t.IncludeFlags {
		flags := ""
		for _, set := range []bool{entry.Flags.Sign, entry.Flags.Zero, entry.Flags.Carry, entry.Flags.Overflow} {
			if set {
				flags += "1"
			} else {
				flags += "-"
			}
		}
		line += " | SZCO=" + flags
	}

	if t.IncludeTiming {
		line += fmt.Sprintf(" | %v", entry.Duration)
	}

	line += "\n"
	_, err := t.Writer.Write([]byte(line))
	return err
}

// GetEntries returns all recorded trace entries.
func (t *ExecutionTrace) GetEntries() []TraceEntry { return t.entries }

// Clear discards all recorded entries.
func (t *ExecutionTrace) Clear() {
	t.entries = t.entries[:0]
	t.lastSnapshot = make(map[string]uint64)
}

// MemoryAccessEntry represents a single memory access made by a load or
// store instruction, memory-mapped I/O addresses included.
type MemoryAccessEntry struct {
	Sequence  uint64
	Address   uint64
	PC        uint64
	Type      string // "READ" or "WRITE"
	Width     int    // access width in bytes
	Value     uint64
	Timestamp time.Duration
}

// MemoryTrace records memory reads and writes for the -mem-trace CLI flag.
type MemoryTrace struct {
	Enabled    bool
	Writer     io.Writer
	MaxEntries int

	entries   []MemoryAccessEntry
	startTime time.Time
}

// NewMemoryTrace creates a new memory trace writing to writer.
func NewMemoryTrace(writer io.Writer) *MemoryTrace {
	return &MemoryTrace{
		Enabled:    true,
		Writer:     writer,
		MaxEntries: 100000,
		entries:    make([]MemoryAccessEntry, 0, 1000),
	}
}

// Start resets the memory trace and records the starting time.
func (t *MemoryTrace) Start() {
	t.startTime = time.Now()
	t.entries = t.entries[:0]
}

// RecordRead records a memory read of width bytes.
func (t *MemoryTrace) RecordRead(sequence, pc, address, value uint64, width int) {
	if !t.Enabled || (t.MaxEntries > 0 && len(t.entries) >= t.MaxEntries) {
		return
	}
	t.entries = append(t.entries, MemoryAccessEntry{
		Sequence: sequence, Address: address, PC: pc,
		Type: "READ", Width: width, Value: value, Timestamp: time.Since(t.startTime),
	})
}

// RecordWrite records a memory write of width bytes.
func (t *MemoryTrace) RecordWrite(sequence, pc, address, value uint64, width int) {
	if !t.Enabled || (t.MaxEntries > 0 && len(t.entries) >= t.MaxEntries) {
		return
	}
	t.entries = append(t.entries, MemoryAccessEntry{
		Sequence: sequence, Address: address, PC: pc,
		Type: "WRITE", Width: width, Value: value, Timestamp: time.Since(t.startTime),
	})
}

// Flush writes all recorded memory-access entries to Writer.
func (t *MemoryTrace) Flush() error {
	if t.Writer == nil {
		return nil
	}
	for _, entry := range t.entries {
		if err := t.writeEntry(entry); err != nil {
			return err
		}
	}
	return nil
}

func (t *MemoryTrace) writeEntry(entry MemoryAccessEntry) error {
	arrow := "<-"
	if entry.Type == "WRITE" {
		arrow = "->"
	}
	line := fmt.Sprintf("[%06d] [%-5s] 0x%016X %s [0x%016X] = 0x%X (%d bytes)\n",
		entry.Sequence, entry.Type, entry.PC, arrow, entry.Address, entry.Value, entry.Width)
	_, err := t.Writer.Write([]byte(line))
	return err
}

// GetEntries returns all recorded memory-access entries.
func (t *MemoryTrace) GetEntries() []MemoryAccessEntry { return t.entries }

// Clear discards all recorded memory-access entries.
func (t *MemoryTrace) Clear() { t.entries = t.entries[:0] }

// OpenTraceFile opens a trace file for writing.
func OpenTraceFile(filename string) (*os.File, error) {
	return os.Create(filename)
}
