package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/lookbusy1344/wolfvm/asmir"
	"github.com/lookbusy1344/wolfvm/assembler"
	"github.com/lookbusy1344/wolfvm/debugger"
	"github.com/lookbusy1344/wolfvm/diag"
	"github.com/lookbusy1344/wolfvm/exefmt"
	"github.com/lookbusy1344/wolfvm/isa"
	"github.com/lookbusy1344/wolfvm/loader"
	"github.com/lookbusy1344/wolfvm/parser"
	"github.com/lookbusy1344/wolfvm/vm"
)

const (
	maxDisassemblyCount = 1000
	maxStackCount       = 1000
	maxStackOffset      = 100000
	stepsBeforeYield    = 1000
)

var serviceLog *log.Logger

func init() {
	if os.Getenv("WOLFVM_DEBUG") != "" {
		logPath := filepath.Join(os.TempDir(), "wolfvm-service-debug.log")
		f, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600) // #nosec G304 -- fixed filename in temp dir
		if err != nil {
			serviceLog = log.New(os.Stderr, "SERVICE: ", log.Ltime|log.Lmicroseconds|log.Lshortfile)
		} else {
			serviceLog = log.New(f, "SERVICE: ", log.Ltime|log.Lmicroseconds|log.Lshortfile)
		}
	} else {
		serviceLog = log.New(io.Discard, "", 0)
	}
}

// safeBuffer is a mutex-guarded byte buffer. RunUntilHalt may run on a
// background goroutine (the wails front-end drives Continue that way)
// while GetOutput drains it from the caller's goroutine.
type safeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *safeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *safeBuffer) TakeString() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.buf.String()
	b.buf.Reset()
	return s
}

// MemoryWriteInfo reports the address of the most recent memory write, for
// front-ends that flash the changed cell in a memory view.
type MemoryWriteInfo struct {
	Address  uint64 `json:"address"`
	Size     int    `json:"size"`
	HasWrite bool   `json:"hasWrite"`
}

// DebuggerService bridges a vm.Machine and a debugger.Debugger to the TUI,
// the wails desktop GUI, and the HTTP/websocket API, so that none of the
// three front-ends needs to talk to vm.Machine or the assembler pipeline
// directly.
type DebuggerService struct {
	mu sync.RWMutex

	machine     *vm.Machine
	debugger    *debugger.Debugger
	memCapacity uint64

	output      *safeBuffer
	extraOutput io.Writer
	stdinWriter *io.PipeWriter

	state ExecutionState

	lastExe   *exefmt.Executable
	symbols   map[string]uint64
	sourceMap map[uint64]string
	source    []string

	ctx context.Context
}

// NewDebuggerService allocates a machine with memCapacity bytes of linear
// memory. Its stdout is an internal buffer drained by GetOutput, tee'd to
// extraOutput when non-nil (the wails event writer or the API's websocket
// broadcaster); its stdin is a pipe fed by SendInput. vm.Machine binds
// both streams once at construction and never lets them be swapped later,
// so this wiring happens up front instead of being attached post hoc.
func NewDebuggerService(memCapacity uint64, extraOutput io.Writer) *DebuggerService {
	out := &safeBuffer{}

	pr, pw := io.Pipe()
	machine := vm.NewMachine(memCapacity, pr, stdoutFor(out, extraOutput))

	return &DebuggerService{
		machine:     machine,
		debugger:    debugger.NewDebugger(machine),
		memCapacity: memCapacity,
		output:      out,
		extraOutput: extraOutput,
		stdinWriter: pw,
		state:       StateHalted,
		symbols:     make(map[string]uint64),
		sourceMap:   make(map[uint64]string),
	}
}

func stdoutFor(out *safeBuffer, extra io.Writer) io.Writer {
	if extra == nil {
		return out
	}
	return io.MultiWriter(out, extra)
}

// SetContext records ctx for front-ends whose output writer needs one to
// emit events (the wails GUI's runtime.EventsEmit); forwarded to
// extraOutput when it accepts a context.
func (s *DebuggerService) SetContext(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctx = ctx
	if setter, ok := s.extraOutput.(interface{ SetContext(context.Context) }); ok {
		setter.SetContext(ctx)
	}
}

// LoadProgram assembles src under filename and loads the result into the
// machine. This ISA has no linker-level entry point (spec.md §9
// Non-goals): the loader always starts execution at byte 0 of the code
// section, so there is no separate entryPoint parameter.
func (s *DebuggerService) LoadProgram(src, filename string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sink := diag.NewSink()
	p := parser.NewParser(src, filename, sink)
	prog, consts := p.Parse()

	exe, ok := assembler.Assemble(prog, consts, sink)
	if !ok {
		return fmt.Errorf("assembly failed:\n%s", sink)
	}

	if err := loader.LoadExecutable(s.machine, exe); err != nil {
		return fmt.Errorf("load failed: %w", err)
	}

	lines := strings.Split(src, "\n")
	offsets := asmir.NewLabelOffsets(prog)

	s.lastExe = exe
	s.symbols = offsets.All()
	s.source = lines
	s.sourceMap = buildSourceMap(prog, lines)

	s.debugger.LoadSymbols(s.symbols)
	s.debugger.LoadSourceMap(s.sourceMap)
	s.debugger.Running = false

	s.state = StateHalted
	serviceLog.Printf("LoadProgram: %d labels, %d source-mapped addresses", len(s.symbols), len(s.sourceMap))

	return nil
}

// buildSourceMap walks prog in emission order (the same walk
// asmir.NewLabelOffsets performs) pairing each statement's load address
// with the original source line its first token came from.
func buildSourceMap(prog *asmir.Program, lines []string) map[uint64]string {
	result := make(map[uint64]string)
	var addr uint64

	prog.AllStmts(func(st asmir.Stmt) {
		line := stmtLine(st)
		if line >= 1 && line <= len(lines) {
			result[addr] = strings.TrimSpace(lines[line-1])
		}
		addr += st.SizeBytes()
	})

	return result
}

func stmtLine(st asmir.Stmt) int {
	switch st.Kind {
	case asmir.StmtInstr:
		return st.Instr.Name.Span.Start.Line
	default:
		switch st.StaticData.Kind {
		case asmir.StaticKindBytes:
			return st.StaticData.BytesSpan.Start.Line
		case asmir.StaticKindByteStr:
			return st.StaticData.ByteStr.Span.Start.Line
		default:
			return st.StaticData.NBytes.Span.Start.Line
		}
	}
}

// GetRegisterState returns a snapshot of every register, the flags, PC,
// and the cycle counter.
func (s *DebuggerService) GetRegisterState() RegisterState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var regs [isa.NumRegisters]uint64
	for i := 0; i < isa.NumRegisters; i++ {
		regs[i] = s.machine.Registers.Load(isa.Reg(i))
	}

	return RegisterState{
		Registers: regs,
		Flags: FlagsState{
			Carry:    s.machine.Flags.Carry,
			Zero:     s.machine.Flags.Zero,
			Sign:     s.machine.Flags.Sign,
			Overflow: s.machine.Flags.Overflow,
		},
		PC:     s.machine.PC,
		Cycles: s.machine.CyclesExecuted,
	}
}

// Step executes exactly one instruction.
func (s *DebuggerService) Step() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stepLocked()
}

func (s *DebuggerService) stepLocked() error {
	done, err := s.machine.Step()
	if err != nil {
		s.state = StateError
		return err
	}
	if done {
		s.state = StateHalted
		s.debugger.Running = false
		return nil
	}
	if shouldBreak, _ := s.debugger.ShouldBreak(); shouldBreak {
		s.state = StateBreakpoint
	} else {
		s.state = StateRunning
	}
	return nil
}

// RunUntilHalt steps the machine until it quits, hits a breakpoint or
// watchpoint, errors, or Pause clears Debugger.Running. Intended to be
// driven from a background goroutine by front-ends that must not block
// their event loop (the wails GUI's Continue).
func (s *DebuggerService) RunUntilHalt() error {
	s.mu.Lock()
	s.debugger.Running = true
	s.state = StateRunning
	s.mu.Unlock()

	steps := 0
	for {
		s.mu.Lock()
		if !s.debugger.Running {
			s.mu.Unlock()
			return nil
		}

		err := s.stepLocked()
		halted := s.state == StateHalted || s.state == StateBreakpoint || s.state == StateError
		if halted {
			s.debugger.Running = false
		}
		s.mu.Unlock()

		if err != nil {
			return err
		}
		if halted {
			return nil
		}

		steps++
		if steps%stepsBeforeYield == 0 {
			time.Sleep(time.Millisecond)
		}
	}
}

// Pause stops a RunUntilHalt loop running on another goroutine.
func (s *DebuggerService) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.debugger.Running = false
	s.state = StateHalted
}

// Reset reconstructs the machine and reloads the last-assembled program,
// since vm.Machine has no in-place Reset: its stdin/stdout are bound once
// at construction (spec.md §9 "Ownership"). Breakpoints survive the
// reset; the expression evaluator's value history does not.
func (s *DebuggerService) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lastExe == nil {
		return fmt.Errorf("no program loaded")
	}

	oldBreakpoints := s.debugger.Breakpoints.GetAllBreakpoints()

	pr, pw := io.Pipe()
	s.machine = vm.NewMachine(s.memCapacity, pr, stdoutFor(s.output, s.extraOutput))
	s.stdinWriter = pw

	if err := loader.LoadExecutable(s.machine, s.lastExe); err != nil {
		return fmt.Errorf("reset: reload failed: %w", err)
	}

	s.debugger = debugger.NewDebugger(s.machine)
	s.debugger.LoadSymbols(s.symbols)
	s.debugger.LoadSourceMap(s.sourceMap)
	for _, bp := range oldBreakpoints {
		s.debugger.Breakpoints.AddBreakpoint(bp.Address, bp.Temporary, bp.Condition)
	}

	s.state = StateHalted
	return nil
}

// AddBreakpoint sets a breakpoint at address.
func (s *DebuggerService) AddBreakpoint(address uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.debugger.Breakpoints.AddBreakpoint(address, false, "")
	return nil
}

// RemoveBreakpoint clears the breakpoint at address, if any.
func (s *DebuggerService) RemoveBreakpoint(address uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.debugger.Breakpoints.DeleteBreakpointAt(address)
}

// GetBreakpoints lists every breakpoint for UI display.
func (s *DebuggerService) GetBreakpoints() []BreakpointInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.debugger.Breakpoints.GetAllBreakpoints()
	result := make([]BreakpointInfo, len(all))
	for i, bp := range all {
		result[i] = BreakpointInfo{Address: bp.Address, Enabled: bp.Enabled, Condition: bp.Condition}
	}
	return result
}

// ClearAllBreakpoints removes every breakpoint.
func (s *DebuggerService) ClearAllBreakpoints() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.debugger.Breakpoints.Clear()
}

// GetMemory reads size bytes starting at address.
func (s *DebuggerService) GetMemory(address, size uint64) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data := make([]byte, size)
	for i := uint64(0); i < size; i++ {
		b, err := s.machine.Memory.Get(address + i)
		if err != nil {
			return nil, err
		}
		data[i] = b
	}
	return data, nil
}

// GetLastMemoryWrite always reports HasWrite=false: the new vm.Memory has
// no write-tracking hook analogous to the teacher's LastMemoryWrite field
// (vm.MemoryTrace exists but nothing in vm.Memory's write path populates
// it), so there is no data source left to report from here.
func (s *DebuggerService) GetLastMemoryWrite() MemoryWriteInfo {
	return MemoryWriteInfo{}
}

// GetSourceLine returns the source line mapped to address, if any.
func (s *DebuggerService) GetSourceLine(address uint64) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sourceMap[address]
}

// GetSourceMap returns the complete address-to-source-line mapping.
func (s *DebuggerService) GetSourceMap() map[uint64]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[uint64]string, len(s.sourceMap))
	for addr, line := range s.sourceMap {
		result[addr] = line
	}
	return result
}

// GetSymbols returns every label's resolved address.
func (s *DebuggerService) GetSymbols() map[string]uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]uint64, len(s.symbols))
	for name, addr := range s.symbols {
		result[name] = addr
	}
	return result
}

// GetSymbolForAddress resolves addr to the label defined there, if any.
func (s *DebuggerService) GetSymbolForAddress(addr uint64) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.symbolForAddressLocked(addr)
}

func (s *DebuggerService) symbolForAddressLocked(addr uint64) string {
	for name, a := range s.symbols {
		if a == addr {
			return name
		}
	}
	return ""
}

// GetExecutionState returns the service's tracked execution state.
func (s *DebuggerService) GetExecutionState() ExecutionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// IsRunning reports whether the debugger's run loop is currently active.
func (s *DebuggerService) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.debugger.Running
}

// GetOutput returns and clears buffered stdout produced by the machine.
func (s *DebuggerService) GetOutput() string {
	return s.output.TakeString()
}

// GetDisassembly decodes count instructions starting at startAddr.
func (s *DebuggerService) GetDisassembly(startAddr uint64, count int) []DisassemblyLine {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if count > maxDisassemblyCount {
		count = maxDisassemblyCount
	}

	result := make([]DisassemblyLine, 0, count)
	addr := startAddr
	for i := 0; i < count; i++ {
		word, err := s.machine.Memory.ReadU64(addr)
		if err != nil {
			break
		}

		line := DisassemblyLine{Address: addr, Word: word, Symbol: s.symbolForAddressLocked(addr)}
		if instr, decodeErr := vm.Decode(word); decodeErr == nil {
			line.Text = isa.Disassemble(instr.Kind, instr.Layout)
		} else {
			line.Text = fmt.Sprintf("0x%016X", word)
		}
		result = append(result, line)

		addr += 8
	}
	return result
}

// GetStack returns count stack words starting offset words above SP
// (offset may be negative to look below SP).
func (s *DebuggerService) GetStack(offset, count int) []StackEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if count > maxStackCount {
		count = maxStackCount
	}
	if offset > maxStackOffset || offset < -maxStackOffset {
		return nil
	}

	sp := int64(s.machine.Registers.LoadSP())
	base := sp + int64(offset)*8

	result := make([]StackEntry, 0, count)
	for i := 0; i < count; i++ {
		addr := uint64(base + int64(i)*8)
		value, err := s.machine.Memory.ReadU64(addr)
		if err != nil {
			break
		}
		result = append(result, StackEntry{Address: addr, Value: value, Symbol: s.symbolForAddressLocked(value)})
	}
	return result
}

// StepOver steps over a call instruction at PC, or a single instruction
// otherwise, running synchronously until the step completes.
func (s *DebuggerService) StepOver() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.debugger.SetStepOver()
	for s.debugger.Running {
		if err := s.stepLocked(); err != nil {
			s.debugger.Running = false
			return err
		}
		if shouldBreak, _ := s.debugger.ShouldBreak(); shouldBreak {
			s.debugger.Running = false
		}
		if s.state == StateHalted {
			break
		}
	}
	return nil
}

// StepOut runs in the debugger's StepOut mode, which does not track the
// call stack: it stops at a breakpoint, a watchpoint or halt, not when the
// current function returns.
func (s *DebuggerService) StepOut() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.debugger.SetStepOut()
	for s.debugger.Running {
		if err := s.stepLocked(); err != nil {
			s.debugger.Running = false
			return err
		}
		if shouldBreak, _ := s.debugger.ShouldBreak(); shouldBreak {
			s.debugger.Running = false
		}
		if s.state == StateHalted {
			break
		}
	}
	return nil
}

// AddWatchpoint adds a watchpoint on a register ("$0".."$63", "$sp",
// "$fp") or a memory address given as a bracketed expression.
func (s *DebuggerService) AddWatchpoint(expression string, watchType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var wt debugger.WatchType
	switch watchType {
	case "read":
		wt = debugger.WatchRead
	case "write":
		wt = debugger.WatchWrite
	case "readwrite", "access":
		wt = debugger.WatchReadWrite
	default:
		return fmt.Errorf("unknown watchpoint type: %s", watchType)
	}

	addr, isRegister, register, err := s.resolveWatchTargetLocked(expression)
	if err != nil {
		return err
	}

	wp := s.debugger.Watchpoints.AddWatchpoint(wt, expression, addr, isRegister, register)
	return s.debugger.Watchpoints.InitializeWatchpoint(wp.ID, s.machine)
}

func (s *DebuggerService) resolveWatchTargetLocked(expression string) (addr uint64, isRegister bool, register int, err error) {
	if expression == "" {
		return 0, false, 0, fmt.Errorf("empty watchpoint expression")
	}

	if expression[0] == '$' {
		name := expression[1:]
		switch name {
		case "sp":
			return 0, true, int(isa.SPIndex), nil
		case "fp":
			return 0, true, int(isa.FPIndex), nil
		default:
			n, convErr := parseUintField(name)
			if convErr != nil {
				return 0, false, 0, fmt.Errorf("invalid register: %s", expression)
			}
			return 0, true, int(n), nil
		}
	}

	trimmed := strings.TrimSuffix(strings.TrimPrefix(expression, "["), "]")
	if a, ok := s.symbols[trimmed]; ok {
		return a, false, 0, nil
	}
	a, convErr := parseUintField(strings.TrimPrefix(trimmed, "0x"))
	if convErr != nil {
		return 0, false, 0, fmt.Errorf("invalid address: %s", expression)
	}
	return a, false, 0, nil
}

func parseUintField(s string) (uint64, error) {
	var v uint64
	if _, err := fmt.Sscanf(s, "%d", &v); err == nil {
		return v, nil
	}
	if _, err := fmt.Sscanf(s, "%x", &v); err != nil {
		return 0, err
	}
	return v, nil
}

// RemoveWatchpoint deletes the watchpoint with the given ID.
func (s *DebuggerService) RemoveWatchpoint(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.debugger.Watchpoints.DeleteWatchpoint(id)
}

// GetWatchpoints lists every watchpoint for UI display.
func (s *DebuggerService) GetWatchpoints() []WatchpointInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.debugger.Watchpoints.GetAllWatchpoints()
	result := make([]WatchpointInfo, len(all))
	for i, wp := range all {
		typeName := "write"
		switch wp.Type {
		case debugger.WatchRead:
			typeName = "read"
		case debugger.WatchReadWrite:
			typeName = "readwrite"
		}
		result[i] = WatchpointInfo{ID: wp.ID, Address: wp.Address, Type: typeName, Enabled: wp.Enabled}
	}
	return result
}

// ExecuteCommand runs a single GDB-style debugger command line.
func (s *DebuggerService) ExecuteCommand(command string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.debugger.ExecuteCommand(command)
	output := s.debugger.GetOutput()

	if s.debugger.Running && s.machine.PC != vm.QuitAddr {
		s.state = StateRunning
	} else if shouldBreak, reason := s.debugger.ShouldBreak(); shouldBreak {
		output += reason + "\n"
		s.state = StateBreakpoint
	} else {
		s.state = StateHalted
	}

	return output, err
}

// EvaluateExpression evaluates a debugger expression against the current
// machine state and symbol table.
func (s *DebuggerService) EvaluateExpression(expr string) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.debugger.Evaluator.EvaluateExpression(expr, s.machine, s.symbols)
}

// SendInput writes input to the machine's stdin pipe, followed by a
// newline, for programs blocked on a `read` instruction.
func (s *DebuggerService) SendInput(input string) error {
	s.mu.RLock()
	w := s.stdinWriter
	s.mu.RUnlock()

	_, err := io.WriteString(w, input+"\n")
	return err
}

// EnableExecutionTrace turns on instruction tracing: a non-nil
// machine.ExecutionTrace is itself the "enabled" signal (spec.md's trace
// fields are nil unless a caller opts in).
func (s *DebuggerService) EnableExecutionTrace() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.machine.ExecutionTrace = vm.NewExecutionTrace(s.output)
	s.machine.ExecutionTrace.Start()
}

// DisableExecutionTrace turns off instruction tracing.
func (s *DebuggerService) DisableExecutionTrace() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.machine.ExecutionTrace = nil
}

// GetExecutionTraceData returns every recorded trace entry's disassembly.
func (s *DebuggerService) GetExecutionTraceData() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.machine.ExecutionTrace == nil {
		return nil
	}
	entries := s.machine.ExecutionTrace.GetEntries()
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = fmt.Sprintf("%016X: %s", e.PC, e.Disassembly)
	}
	return lines
}

// ClearExecutionTrace discards recorded trace entries without disabling
// tracing.
func (s *DebuggerService) ClearExecutionTrace() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.machine.ExecutionTrace != nil {
		s.machine.ExecutionTrace.Clear()
	}
}

// EnableStatistics turns on per-kind instruction counting.
func (s *DebuggerService) EnableStatistics() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.machine.Statistics = vm.NewStatistics()
	s.machine.Statistics.Start()
}

// DisableStatistics turns off instruction counting.
func (s *DebuggerService) DisableStatistics() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.machine.Statistics = nil
}

// GetStatistics returns the human-readable statistics report, or "" if
// statistics are not enabled.
func (s *DebuggerService) GetStatistics() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.machine.Statistics == nil {
		return ""
	}
	return s.machine.Statistics.String()
}
