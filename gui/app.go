package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/lookbusy1344/wolfvm/service"
	"github.com/wailsapp/wails/v2/pkg/runtime"
)

var debugLog *log.Logger
var debugEnabled bool

func init() {
	debugEnabled = os.Getenv("WOLFVM_DEBUG") != ""

	if debugEnabled {
		f, err := os.OpenFile("/tmp/wolfvm-gui-debug.log", os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open debug log: %v\n", err)
			debugLog = log.New(os.Stderr, "GUI: ", log.Ltime|log.Lmicroseconds|log.Lshortfile)
		} else {
			debugLog = log.New(f, "GUI: ", log.Ltime|log.Lmicroseconds|log.Lshortfile)
		}
	} else {
		debugLog = log.New(io.Discard, "", 0)
	}
}

// defaultMemoryCapacity is the size of the linear address space given to a
// freshly opened GUI session.
const defaultMemoryCapacity = 1 << 20

// App struct
type App struct {
	ctx          context.Context
	service      *service.DebuggerService
	eventsWriter *EventEmittingWriter
}

// NewApp creates a new App application struct
func NewApp() *App {
	writer := NewEventEmittingWriter()
	return &App{
		eventsWriter: writer,
		service:      service.NewDebuggerService(defaultMemoryCapacity, writer),
	}
}

// startup is called when the app starts
func (a *App) startup(ctx context.Context) {
	debugLog.Println("startup() called")
	a.ctx = ctx
	a.eventsWriter.SetContext(ctx)
	a.service.SetContext(ctx)
	debugLog.Println("startup() completed")
}

// LoadProgramFromSource assembles and loads source code into a fresh machine.
func (a *App) LoadProgramFromSource(source string, filename string) error {
	const maxSourceSize = 1024 * 1024 // 1MB limit
	if len(source) > maxSourceSize {
		return fmt.Errorf("source code too large: %d bytes (maximum %d bytes)", len(source), maxSourceSize)
	}

	return a.service.LoadProgram(source, filename)
}

// LoadProgramFromFile opens a file dialog and loads an assembly program
func (a *App) LoadProgramFromFile() error {
	filePath, err := runtime.OpenFileDialog(a.ctx, runtime.OpenDialogOptions{
		Title: "Load Assembly Program",
		Filters: []runtime.FileFilter{
			{
				DisplayName: "WolfVM Assembly Files (*.wasm)",
				Pattern:     "*.wasm",
			},
			{
				DisplayName: "All Files (*.*)",
				Pattern:     "*.*",
			},
		},
	})

	if err != nil {
		return fmt.Errorf("failed to open file dialog: %w", err)
	}

	if filePath == "" {
		return nil
	}

	const maxSourceSize = 1024 * 1024
	info, err := os.Stat(filePath)
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}
	if info.Size() > maxSourceSize {
		return fmt.Errorf("file too large: %d bytes (maximum %d bytes)", info.Size(), maxSourceSize)
	}

	source, err := os.ReadFile(filePath) // #nosec G304 -- path comes from the native file dialog
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	if err := a.LoadProgramFromSource(string(source), filePath); err != nil {
		runtime.EventsEmit(a.ctx, "vm:error", err.Error())
		return err
	}

	runtime.EventsEmit(a.ctx, "vm:state-changed")
	runtime.EventsEmit(a.ctx, "vm:program-loaded", filePath)
	return nil
}

// GetRegisters returns current register state
func (a *App) GetRegisters() service.RegisterState {
	return a.service.GetRegisterState()
}

// Step executes a single instruction
func (a *App) Step() error {
	debugLog.Println("Step() called")
	err := a.service.Step()
	if err == nil {
		runtime.EventsEmit(a.ctx, "vm:state-changed")
	} else {
		debugLog.Printf("Step() error: %v", err)
		runtime.EventsEmit(a.ctx, "vm:error", err.Error())
	}
	debugLog.Println("Step() completed")
	return err
}

// Continue runs until breakpoint or halt (asynchronously)
func (a *App) Continue() error {
	debugLog.Println("Continue() called - starting goroutine")
	ctx := a.ctx
	go func() {
		debugLog.Println("Goroutine started, calling RunUntilHalt")
		err := a.service.RunUntilHalt()
		debugLog.Printf("RunUntilHalt completed, err: %v", err)

		runtime.EventsEmit(ctx, "vm:state-changed")

		if err != nil {
			runtime.EventsEmit(ctx, "vm:error", err.Error())
		}

		state := a.service.GetExecutionState()
		debugLog.Printf("Execution state: %s", state)
		if state == service.StateBreakpoint {
			runtime.EventsEmit(ctx, "vm:breakpoint-hit")
		}
		debugLog.Println("Goroutine completed")
	}()

	debugLog.Println("Continue() returning")
	return nil
}

// Pause pauses execution
func (a *App) Pause() {
	a.service.Pause()
	runtime.EventsEmit(a.ctx, "vm:state-changed")
}

// Reset resets VM to initial state
func (a *App) Reset() error {
	err := a.service.Reset()
	if err == nil {
		runtime.EventsEmit(a.ctx, "vm:state-changed")
	} else {
		runtime.EventsEmit(a.ctx, "vm:error", err.Error())
	}
	return err
}

// AddBreakpoint adds a breakpoint at address
func (a *App) AddBreakpoint(address uint64) error {
	err := a.service.AddBreakpoint(address)
	if err == nil {
		runtime.EventsEmit(a.ctx, "vm:state-changed")
	}
	return err
}

// RemoveBreakpoint removes a breakpoint
func (a *App) RemoveBreakpoint(address uint64) error {
	err := a.service.RemoveBreakpoint(address)
	if err == nil {
		runtime.EventsEmit(a.ctx, "vm:state-changed")
	}
	return err
}

// GetBreakpoints returns all breakpoints
func (a *App) GetBreakpoints() []service.BreakpointInfo {
	return a.service.GetBreakpoints()
}

// GetMemory returns memory contents
func (a *App) GetMemory(address uint64, size uint64) ([]byte, error) {
	debugLog.Printf("GetMemory called: address=0x%X, size=%d", address, size)
	data, err := a.service.GetMemory(address, size)
	if err != nil {
		debugLog.Printf("GetMemory error: %v", err)
	} else {
		debugLog.Printf("GetMemory success: returned %d bytes", len(data))
	}
	return data, err
}

// GetSourceLine returns source for address
func (a *App) GetSourceLine(address uint64) string {
	return a.service.GetSourceLine(address)
}

// GetSymbols returns all symbols
func (a *App) GetSymbols() map[string]uint64 {
	return a.service.GetSymbols()
}

// GetExecutionState returns current state
func (a *App) GetExecutionState() string {
	return string(a.service.GetExecutionState())
}

// IsRunning returns whether execution is active
func (a *App) IsRunning() bool {
	return a.service.IsRunning()
}

// ToggleBreakpoint toggles a breakpoint at the specified address
func (a *App) ToggleBreakpoint(address uint64) error {
	bps := a.service.GetBreakpoints()
	exists := false

	for _, bp := range bps {
		if bp.Address == address {
			exists = true
			break
		}
	}

	var err error
	if exists {
		err = a.service.RemoveBreakpoint(address)
	} else {
		err = a.service.AddBreakpoint(address)
	}

	if err == nil {
		runtime.EventsEmit(a.ctx, "vm:state-changed")
	}

	return err
}

// GetSourceMap returns the complete source map
func (a *App) GetSourceMap() map[uint64]string {
	return a.service.GetSourceMap()
}

// GetDisassembly returns disassembled instructions
func (a *App) GetDisassembly(startAddr uint64, count int) []service.DisassemblyLine {
	return a.service.GetDisassembly(startAddr, count)
}

// GetStack returns stack contents
func (a *App) GetStack(offset int, count int) []service.StackEntry {
	return a.service.GetStack(offset, count)
}

// GetLastMemoryWrite returns the address of the last memory write
func (a *App) GetLastMemoryWrite() service.MemoryWriteInfo {
	result := a.service.GetLastMemoryWrite()
	debugLog.Printf("GetLastMemoryWrite: address=0x%X, hasWrite=%v", result.Address, result.HasWrite)
	return result
}

// GetSymbolForAddress resolves address to symbol
func (a *App) GetSymbolForAddress(addr uint64) string {
	return a.service.GetSymbolForAddress(addr)
}

// GetSymbolsForAddresses resolves multiple addresses to symbols in one call
func (a *App) GetSymbolsForAddresses(addrs []uint64) map[uint64]string {
	result := make(map[uint64]string, len(addrs))
	for _, addr := range addrs {
		symbol := a.service.GetSymbolForAddress(addr)
		if symbol != "" {
			result[addr] = symbol
		}
	}
	return result
}

// GetOutput returns captured output
func (a *App) GetOutput() string {
	return a.service.GetOutput()
}

// StepOver steps over function calls
func (a *App) StepOver() error {
	err := a.service.StepOver()
	if err == nil {
		runtime.EventsEmit(a.ctx, "vm:state-changed")
	} else {
		runtime.EventsEmit(a.ctx, "vm:error", err.Error())
	}
	return err
}

// StepOut steps out of current function
func (a *App) StepOut() error {
	err := a.service.StepOut()
	if err == nil {
		runtime.EventsEmit(a.ctx, "vm:state-changed")
	} else {
		runtime.EventsEmit(a.ctx, "vm:error", err.Error())
	}
	return err
}

// AddWatchpoint adds a watchpoint given a debugger expression (register or
// memory reference) and a watch type ("read", "write", "readwrite").
func (a *App) AddWatchpoint(expression string, watchType string) error {
	err := a.service.AddWatchpoint(expression, watchType)
	if err == nil {
		runtime.EventsEmit(a.ctx, "vm:state-changed")
	}
	return err
}

// RemoveWatchpoint removes a watchpoint
func (a *App) RemoveWatchpoint(id int) error {
	err := a.service.RemoveWatchpoint(id)
	if err == nil {
		runtime.EventsEmit(a.ctx, "vm:state-changed")
	}
	return err
}

// GetWatchpoints returns all watchpoints
func (a *App) GetWatchpoints() []service.WatchpointInfo {
	return a.service.GetWatchpoints()
}

// ExecuteCommand executes a debugger command
func (a *App) ExecuteCommand(command string) (string, error) {
	output, err := a.service.ExecuteCommand(command)

	if isStateModifyingCommand(command) {
		runtime.EventsEmit(a.ctx, "vm:state-changed")
	}

	return output, err
}

// EvaluateExpression evaluates an expression
func (a *App) EvaluateExpression(expr string) (uint64, error) {
	return a.service.EvaluateExpression(expr)
}

// isStateModifyingCommand checks if command modifies VM state
func isStateModifyingCommand(command string) bool {
	stateCommands := []string{"step", "next", "finish", "continue", "set", "break", "delete"}
	for _, cmd := range stateCommands {
		if strings.HasPrefix(strings.ToLower(command), cmd) {
			return true
		}
	}
	return false
}
