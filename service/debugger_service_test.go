package service_test

import (
	"testing"
	"time"

	"github.com/lookbusy1344/wolfvm/service"
)

func TestDebuggerService_LoadAndRunToHalt(t *testing.T) {
	svc := service.NewDebuggerService(1<<16, nil)
	src := "section .code\n_start:\nmov $0, 5\nadd $0, 1\nret\n"

	if err := svc.LoadProgram(src, "test.s"); err != nil {
		t.Fatalf("LoadProgram error: %v", err)
	}

	if err := svc.RunUntilHalt(); err != nil {
		t.Fatalf("RunUntilHalt error: %v", err)
	}

	state := svc.GetRegisterState()
	if state.Registers[0] != 6 {
		t.Errorf("expected $0 == 6, got %d", state.Registers[0])
	}
	if svc.GetExecutionState() != service.StateHalted {
		t.Errorf("expected StateHalted, got %v", svc.GetExecutionState())
	}
}

func TestDebuggerService_LoadProgramRejectsAssemblyErrors(t *testing.T) {
	svc := service.NewDebuggerService(1<<16, nil)
	err := svc.LoadProgram("mov $0, 10\nret\n", "test.s")
	if err == nil {
		t.Fatal("expected an error for a statement outside any section")
	}
}

func TestDebuggerService_StepAdvancesOneInstruction(t *testing.T) {
	svc := service.NewDebuggerService(1<<16, nil)
	src := "section .code\nmov $0, 1\nmov $0, 2\nret\n"
	if err := svc.LoadProgram(src, "test.s"); err != nil {
		t.Fatalf("LoadProgram error: %v", err)
	}

	if err := svc.Step(); err != nil {
		t.Fatalf("Step error: %v", err)
	}
	if got := svc.GetRegisterState().Registers[0]; got != 1 {
		t.Errorf("expected $0 == 1 after one step, got %d", got)
	}

	if err := svc.Step(); err != nil {
		t.Fatalf("Step error: %v", err)
	}
	if got := svc.GetRegisterState().Registers[0]; got != 2 {
		t.Errorf("expected $0 == 2 after two steps, got %d", got)
	}
}

func TestDebuggerService_BreakpointStopsExecution(t *testing.T) {
	svc := service.NewDebuggerService(1<<16, nil)
	src := "section .code\n_start:\nmov $0, 1\ntarget:\nmov $0, 2\nret\n"
	if err := svc.LoadProgram(src, "test.s"); err != nil {
		t.Fatalf("LoadProgram error: %v", err)
	}

	symbols := svc.GetSymbols()
	target, ok := symbols["target"]
	if !ok {
		t.Fatal("expected 'target' symbol to be resolved")
	}

	if err := svc.AddBreakpoint(target); err != nil {
		t.Fatalf("AddBreakpoint error: %v", err)
	}

	if err := svc.RunUntilHalt(); err != nil {
		t.Fatalf("RunUntilHalt error: %v", err)
	}

	if svc.GetExecutionState() != service.StateBreakpoint {
		t.Errorf("expected StateBreakpoint, got %v", svc.GetExecutionState())
	}
	if got := svc.GetRegisterState().Registers[0]; got != 1 {
		t.Errorf("expected execution paused before the second mov, $0 == %d", got)
	}
}

func TestDebuggerService_ClearAllBreakpointsRemovesThem(t *testing.T) {
	svc := service.NewDebuggerService(1<<16, nil)
	if err := svc.LoadProgram("section .code\nnop\nret\n", "test.s"); err != nil {
		t.Fatalf("LoadProgram error: %v", err)
	}

	if err := svc.AddBreakpoint(0); err != nil {
		t.Fatalf("AddBreakpoint error: %v", err)
	}
	if len(svc.GetBreakpoints()) != 1 {
		t.Fatalf("expected 1 breakpoint, got %d", len(svc.GetBreakpoints()))
	}

	svc.ClearAllBreakpoints()
	if len(svc.GetBreakpoints()) != 0 {
		t.Errorf("expected no breakpoints after ClearAllBreakpoints, got %d", len(svc.GetBreakpoints()))
	}
}

func TestDebuggerService_GetMemoryReadsLoadedBytes(t *testing.T) {
	svc := service.NewDebuggerService(1<<16, nil)
	src := "section .code\nnop\nsection .static\nval:\n.b4 305419896\n"
	if err := svc.LoadProgram(src, "test.s"); err != nil {
		t.Fatalf("LoadProgram error: %v", err)
	}

	symbols := svc.GetSymbols()
	addr, ok := symbols["val"]
	if !ok {
		t.Fatal("expected 'val' symbol to be resolved")
	}

	data, err := svc.GetMemory(addr, 4)
	if err != nil {
		t.Fatalf("GetMemory error: %v", err)
	}
	want := []byte{0x78, 0x56, 0x34, 0x12}
	for i := range want {
		if data[i] != want[i] {
			t.Errorf("byte %d: expected %#x, got %#x", i, want[i], data[i])
		}
	}
}

func TestDebuggerService_ResetRestoresInitialRegisterState(t *testing.T) {
	svc := service.NewDebuggerService(1<<16, nil)
	src := "section .code\nmov $0, 7\nret\n"
	if err := svc.LoadProgram(src, "test.s"); err != nil {
		t.Fatalf("LoadProgram error: %v", err)
	}
	if err := svc.RunUntilHalt(); err != nil {
		t.Fatalf("RunUntilHalt error: %v", err)
	}
	if got := svc.GetRegisterState().Registers[0]; got != 7 {
		t.Fatalf("expected $0 == 7 before reset, got %d", got)
	}

	if err := svc.Reset(); err != nil {
		t.Fatalf("Reset error: %v", err)
	}
	if got := svc.GetRegisterState().Registers[0]; got != 0 {
		t.Errorf("expected $0 == 0 after reset, got %d", got)
	}
	if svc.GetExecutionState() != service.StateHalted {
		t.Errorf("expected StateHalted after reset, got %v", svc.GetExecutionState())
	}
}

func TestDebuggerService_ResetWithoutLoadedProgramErrors(t *testing.T) {
	svc := service.NewDebuggerService(1<<16, nil)
	if err := svc.Reset(); err == nil {
		t.Error("expected Reset to fail when no program has been loaded")
	}
}

func TestDebuggerService_GetOutputDrainsStdout(t *testing.T) {
	svc := service.NewDebuggerService(1<<16, nil)
	src := "section .code\nmov $0, 65\nstore4 0xFFFF000C, $0\nret\n"
	if err := svc.LoadProgram(src, "test.s"); err != nil {
		t.Fatalf("LoadProgram error: %v", err)
	}
	if err := svc.RunUntilHalt(); err != nil {
		t.Fatalf("RunUntilHalt error: %v", err)
	}

	if got := svc.GetOutput(); got != "A" {
		t.Errorf("expected stdout 'A', got %q", got)
	}
	if got := svc.GetOutput(); got != "" {
		t.Errorf("expected output to be drained on first read, got %q", got)
	}
}

func TestDebuggerService_EnableStatisticsRecordsInstructionCounts(t *testing.T) {
	svc := service.NewDebuggerService(1<<16, nil)
	svc.EnableStatistics()

	src := "section .code\nmov $0, 1\nadd $0, 1\nret\n"
	if err := svc.LoadProgram(src, "test.s"); err != nil {
		t.Fatalf("LoadProgram error: %v", err)
	}
	if err := svc.RunUntilHalt(); err != nil {
		t.Fatalf("RunUntilHalt error: %v", err)
	}

	if svc.GetStatistics() == "" {
		t.Error("expected a non-empty statistics report once enabled")
	}

	svc.DisableStatistics()
	if svc.GetStatistics() != "" {
		t.Error("expected an empty statistics report once disabled")
	}
}

func TestDebuggerService_AddWatchpointOnRegister(t *testing.T) {
	svc := service.NewDebuggerService(1<<16, nil)
	if err := svc.LoadProgram("section .code\nmov $0, 1\nret\n", "test.s"); err != nil {
		t.Fatalf("LoadProgram error: %v", err)
	}

	if err := svc.AddWatchpoint("$0", "write"); err != nil {
		t.Fatalf("AddWatchpoint error: %v", err)
	}
	if len(svc.GetWatchpoints()) != 1 {
		t.Errorf("expected 1 watchpoint, got %d", len(svc.GetWatchpoints()))
	}
}

func TestDebuggerService_AddWatchpointRejectsUnknownType(t *testing.T) {
	svc := service.NewDebuggerService(1<<16, nil)
	if err := svc.LoadProgram("section .code\nmov $0, 1\nret\n", "test.s"); err != nil {
		t.Fatalf("LoadProgram error: %v", err)
	}
	if err := svc.AddWatchpoint("$0", "bogus"); err == nil {
		t.Error("expected an error for an unrecognized watchpoint type")
	}
}

func TestDebuggerService_PauseStopsRunUntilHalt(t *testing.T) {
	svc := service.NewDebuggerService(1<<16, nil)
	src := "section .code\nloop:\nadd $0, 1\njmp loop\n"
	if err := svc.LoadProgram(src, "test.s"); err != nil {
		t.Fatalf("LoadProgram error: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- svc.RunUntilHalt() }()

	time.Sleep(20 * time.Millisecond)
	svc.Pause()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("RunUntilHalt error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("RunUntilHalt did not stop after Pause")
	}

	if svc.IsRunning() {
		t.Error("expected IsRunning to be false after Pause")
	}
}

func TestDebuggerService_GetDisassemblyDecodesInstructions(t *testing.T) {
	svc := service.NewDebuggerService(1<<16, nil)
	src := "section .code\nmov $0, 1\nret\n"
	if err := svc.LoadProgram(src, "test.s"); err != nil {
		t.Fatalf("LoadProgram error: %v", err)
	}

	lines := svc.GetDisassembly(0, 2)
	if len(lines) != 2 {
		t.Fatalf("expected 2 disassembled lines, got %d", len(lines))
	}
	if lines[0].Address != 0 || lines[1].Address != 8 {
		t.Errorf("expected addresses 0 and 8, got %d and %d", lines[0].Address, lines[1].Address)
	}
}
