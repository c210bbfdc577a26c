package api

import (
	"time"

	"github.com/lookbusy1344/wolfvm/service"
)

// SessionCreateRequest represents a request to create a new session
type SessionCreateRequest struct {
	MemorySize uint64 `json:"memorySize,omitempty"` // Linear address space size in bytes (default: 1MB)
}

// SessionCreateResponse represents the response from creating a session
type SessionCreateResponse struct {
	SessionID string    `json:"sessionId"`
	CreatedAt time.Time `json:"createdAt"`
}

// SessionStatusResponse represents the current status of a session
type SessionStatusResponse struct {
	SessionID string `json:"sessionId"`
	State     string `json:"state"`
	PC        uint64 `json:"pc"`
	Cycles    uint64 `json:"cycles"`
	Error     string `json:"error,omitempty"`
	HasWrite  bool   `json:"hasWrite"`
	WriteAddr uint64 `json:"writeAddr,omitempty"`
}

// LoadProgramRequest represents a request to load a program
type LoadProgramRequest struct {
	Source   string `json:"source"`             // Assembly source code
	Filename string `json:"filename,omitempty"` // Used in diagnostics only
}

// LoadProgramResponse represents the response from loading a program
type LoadProgramResponse struct {
	Success bool              `json:"success"`
	Errors  []string          `json:"errors,omitempty"`
	Symbols map[string]uint64 `json:"symbols,omitempty"`
}

// RegistersResponse represents the current register state: 62 general
// registers plus the frame-pointer and stack-pointer aliases.
type RegistersResponse struct {
	Registers [62]uint64 `json:"registers"`
	FP        uint64     `json:"fp"`
	SP        uint64     `json:"sp"`
	PC        uint64     `json:"pc"`
	Flags     FlagsInfo  `json:"flags"`
	Cycles    uint64     `json:"cycles"`
}

// FlagsInfo represents the machine's condition flags
type FlagsInfo struct {
	Carry    bool `json:"carry"`
	Zero     bool `json:"zero"`
	Sign     bool `json:"sign"`
	Overflow bool `json:"overflow"`
}

// MemoryRequest represents a request for memory data
type MemoryRequest struct {
	Address uint64 `json:"address"`
	Length  uint64 `json:"length"`
}

// MemoryResponse represents memory data
type MemoryResponse struct {
	Address uint64 `json:"address"`
	Data    []byte `json:"data"`
	Length  uint64 `json:"length"`
}

// DisassemblyRequest represents a request for disassembly
type DisassemblyRequest struct {
	Address uint64 `json:"address"`
	Count   int    `json:"count"`
}

// DisassemblyResponse represents disassembled instructions
type DisassemblyResponse struct {
	Instructions []InstructionInfo `json:"instructions"`
}

// InstructionInfo represents a disassembled instruction
type InstructionInfo struct {
	Address     uint64 `json:"address"`
	Word        uint64 `json:"word"`
	Disassembly string `json:"disassembly"`
	Symbol      string `json:"symbol,omitempty"`
}

// BreakpointRequest represents a request to add/remove a breakpoint
type BreakpointRequest struct {
	Address uint64 `json:"address"`
}

// BreakpointsResponse represents a list of breakpoints
type BreakpointsResponse struct {
	Breakpoints []uint64 `json:"breakpoints"`
}

// WatchpointRequest represents a request to add a watchpoint
type WatchpointRequest struct {
	Expression string `json:"expression"`
	Type       string `json:"type"` // "read", "write", "readwrite"
}

// StdinRequest represents a request to send stdin data
type StdinRequest struct {
	Data string `json:"data"`
}

// WatchpointResponse represents a single watchpoint
type WatchpointResponse struct {
	ID      int    `json:"id"`
	Address uint64 `json:"address"`
	Type    string `json:"type"`
}

// WatchpointsResponse represents a list of watchpoints
type WatchpointsResponse struct {
	Watchpoints []service.WatchpointInfo `json:"watchpoints"`
}

// TraceDataResponse represents recorded execution trace lines
type TraceDataResponse struct {
	Entries []string `json:"entries"`
	Count   int      `json:"count"`
}

// StatisticsResponse wraps the machine's rendered statistics report
type StatisticsResponse struct {
	Report string `json:"report"`
}

// ExampleInfo describes one bundled example program
type ExampleInfo struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// ExamplesResponse lists the bundled example programs
type ExamplesResponse struct {
	Examples []ExampleInfo `json:"examples"`
	Count    int           `json:"count"`
}

// ExampleContentResponse carries the source of one bundled example
type ExampleContentResponse struct {
	Name    string `json:"name"`
	Content string `json:"content"`
	Size    int64  `json:"size"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

// SuccessResponse represents a simple success response
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// Event represents a WebSocket event
type Event struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// StateEvent represents a state change event
type StateEvent struct {
	State     string     `json:"state"`
	PC        uint64     `json:"pc"`
	Registers [62]uint64 `json:"registers"`
	Flags     FlagsInfo  `json:"flags"`
	Cycles    uint64     `json:"cycles"`
}

// OutputEvent represents console output
type OutputEvent struct {
	Stream  string `json:"stream"`  // "stdout" or "stderr"
	Content string `json:"content"` // Output content
}

// ExecutionEvent represents execution events like breakpoints
type ExecutionEvent struct {
	Event   string `json:"event"` // "breakpoint_hit", "error", "halted"
	Address uint64 `json:"address,omitempty"`
	Symbol  string `json:"symbol,omitempty"`
	Message string `json:"message,omitempty"`
}

// ToRegisterResponse converts service.RegisterState to an API response
func ToRegisterResponse(regs *service.RegisterState) *RegistersResponse {
	var general [62]uint64
	copy(general[:], regs.Registers[:62])

	return &RegistersResponse{
		Registers: general,
		FP:        regs.Registers[62],
		SP:        regs.Registers[63],
		PC:        regs.PC,
		Flags: FlagsInfo{
			Carry:    regs.Flags.Carry,
			Zero:     regs.Flags.Zero,
			Sign:     regs.Flags.Sign,
			Overflow: regs.Flags.Overflow,
		},
		Cycles: regs.Cycles,
	}
}

// ToInstructionInfo converts service.DisassemblyLine to an API response
func ToInstructionInfo(line *service.DisassemblyLine) InstructionInfo {
	return InstructionInfo{
		Address:     line.Address,
		Word:        line.Word,
		Disassembly: line.Text,
		Symbol:      line.Symbol,
	}
}
