package vm

import "github.com/lookbusy1344/wolfvm/isa"

// Registers is the machine's 64-entry general-purpose register file.
// Index isa.FPIndex aliases the frame pointer, isa.SPIndex the stack
// pointer; both are ordinary entries as far as storage is concerned.
type Registers struct {
	values [isa.NumRegisters]uint64
}

// NewRegisters returns a zeroed register file. Callers initialize FP/SP
// themselves (the machine driver sets both to the memory capacity).
func NewRegisters() *Registers {
	return &Registers{}
}

func (r *Registers) Load(reg isa.Reg) uint64 {
	return r.values[reg]
}

func (r *Registers) Store(reg isa.Reg, value uint64) {
	r.values[reg] = value
}

func (r *Registers) LoadSP() uint64 { return r.Load(isa.SPIndex) }
func (r *Registers) StoreSP(v uint64) { r.Store(isa.SPIndex, v) }

func (r *Registers) LoadFP() uint64 { return r.Load(isa.FPIndex) }
func (r *Registers) StoreFP(v uint64) { r.Store(isa.FPIndex, v) }
