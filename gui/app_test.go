package main

import (
	"testing"
)

func TestApp_LoadProgram(t *testing.T) {
	app := NewApp()

	source := "section .code\nmov $0, 42\nret\n"
	err := app.LoadProgramFromSource(source, "test.wasm")
	if err != nil {
		t.Fatalf("LoadProgramFromSource failed: %v", err)
	}

	regs := app.GetRegisters()
	if regs.PC != 0 {
		t.Errorf("expected PC=0, got 0x%X", regs.PC)
	}
}

func TestApp_StepExecution(t *testing.T) {
	app := NewApp()

	source := "section .code\nmov $0, 42\nret\n"
	if err := app.LoadProgramFromSource(source, "test.wasm"); err != nil {
		t.Fatalf("LoadProgramFromSource failed: %v", err)
	}

	err := app.Step()
	if err != nil {
		t.Fatalf("Step failed: %v", err)
	}

	regs := app.GetRegisters()
	if regs.Registers[0] != 42 {
		t.Errorf("expected $0=42, got %d", regs.Registers[0])
	}
}
