package isa_test

import (
	"testing"

	"github.com/lookbusy1344/wolfvm/isa"
)

func TestDisassemble_Nullary(t *testing.T) {
	got := isa.Disassemble(isa.Ret, isa.SelectNullary())
	if got != "ret" {
		t.Errorf("expected \"ret\", got %q", got)
	}
}

func TestDisassemble_RegisterToRegister(t *testing.T) {
	layout, err := isa.SelectDestSrc(isa.Destination{Reg: 0}, isa.RegisterSource(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := isa.Disassemble(isa.Mov, layout)
	if got != "mov $0, $1" {
		t.Errorf("expected \"mov $0, $1\", got %q", got)
	}
}

func TestDisassemble_RegisterToImmediate(t *testing.T) {
	layout, err := isa.SelectDestSrc(isa.Destination{Reg: 2}, isa.ImmediateSource(42))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := isa.Disassemble(isa.Mov, layout)
	if got != "mov $2, 42" {
		t.Errorf("expected \"mov $2, 42\", got %q", got)
	}
}

func TestDisassemble_NamedRegisters(t *testing.T) {
	layout, err := isa.SelectDestSrc(isa.Destination{Reg: isa.SPIndex}, isa.RegisterSource(isa.FPIndex))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := isa.Disassemble(isa.Mov, layout)
	if got != "mov $sp, $fp" {
		t.Errorf("expected \"mov $sp, $fp\", got %q", got)
	}
}
