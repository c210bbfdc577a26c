package service

import "github.com/lookbusy1344/wolfvm/isa"

// RegisterState represents a snapshot of the register file
type RegisterState struct {
	Registers [isa.NumRegisters]uint64
	Flags     FlagsState
	PC        uint64
	Cycles    uint64
}

// FlagsState represents the machine flags for serialization
type FlagsState struct {
	Carry    bool
	Zero     bool
	Sign     bool
	Overflow bool
}

// BreakpointInfo represents a breakpoint for UI display
type BreakpointInfo struct {
	Address   uint64 `json:"address"`
	Enabled   bool   `json:"enabled"`
	Condition string `json:"condition"` // Expression that must evaluate to true
}

// WatchpointInfo represents a watchpoint for UI display
type WatchpointInfo struct {
	ID      int    `json:"id"`
	Address uint64 `json:"address"`
	Type    string `json:"type"` // "read", "write", "readwrite"
	Enabled bool   `json:"enabled"`
}

// MemoryRegion represents a contiguous memory region
type MemoryRegion struct {
	Address uint64
	Data    []byte
	Size    uint64
}

// ExecutionState represents the current state of execution
type ExecutionState string

const (
	StateRunning    ExecutionState = "running"
	StateHalted     ExecutionState = "halted"
	StateBreakpoint ExecutionState = "breakpoint"
	StateError      ExecutionState = "error"
)

// DisassemblyLine represents a single disassembled instruction
type DisassemblyLine struct {
	Address uint64 `json:"address"`
	Word    uint64 `json:"word"`
	Text    string `json:"text"` // disassembled mnemonic form
	Symbol  string `json:"symbol"`
}

// StackEntry represents a single stack location
type StackEntry struct {
	Address uint64 `json:"address"`
	Value   uint64 `json:"value"`
	Symbol  string `json:"symbol"` // If value points to a symbol
}
