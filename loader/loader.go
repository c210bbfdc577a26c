// Package loader blits an assembled exefmt.Executable into a vm.Machine's
// memory and prepares it to run, the way the teacher's loader.go frames an
// ARM2 binary image into emulator memory — but working from exefmt's
// record stream instead of re-encoding from a parser.Program.
package loader

import (
	"fmt"

	"github.com/lookbusy1344/wolfvm/exefmt"
	"github.com/lookbusy1344/wolfvm/vm"
)

// LoadExecutable blits exe's code section starting at address 0, followed
// immediately by its static section, into machine's memory, sets the
// program counter to 0 (this ISA has no linker and no symbol table to name
// any other entry, spec.md §9 Non-goals — a caller wanting to start
// somewhere else, e.g. `cmd/wolfvm`'s `-entry` flag, overrides
// machine.PC directly after Load returns), and pushes the quit sentinel so
// the program's final `ret` terminates the run (spec.md §4.8).
func LoadExecutable(machine *vm.Machine, exe *exefmt.Executable) error {
	addr, err := blitSection(machine, 0, exe.CodeSection)
	if err != nil {
		return fmt.Errorf("loader: writing code section: %w", err)
	}

	if _, err := blitSection(machine, addr, exe.StaticSection); err != nil {
		return fmt.Errorf("loader: writing static section: %w", err)
	}

	machine.PC = 0
	if err := machine.PushQuitSentinel(); err != nil {
		return fmt.Errorf("loader: pushing quit sentinel: %w", err)
	}

	return nil
}

// blitSection writes every record in records starting at addr and returns
// the address immediately past the last byte written.
func blitSection(machine *vm.Machine, addr uint64, records []exefmt.Record) (uint64, error) {
	for _, rec := range records {
		size := rec.SizeBytes()

		switch rec.Kind {
		case exefmt.RecordInstrWord:
			if err := machine.Memory.WriteU64(addr, rec.Word); err != nil {
				return 0, err
			}
		case exefmt.RecordStaticBytes:
			if err := machine.Memory.WriteN(addr, rec.Width, bytesToUint64(rec.Value, rec.Width)); err != nil {
				return 0, err
			}
		case exefmt.RecordStaticZero:
			if err := machine.Memory.Blit(addr, make([]byte, size)); err != nil {
				return 0, err
			}
		case exefmt.RecordStaticUninit:
			// Already zero-filled by vm.NewMemory's allocation; the loader
			// never writes file bytes for .uninit (spec.md §9 Open
			// Question, resolved in SPEC_FULL.md).
		case exefmt.RecordStaticByteStr:
			if err := machine.Memory.Blit(addr, rec.ByteStr); err != nil {
				return 0, err
			}
		}

		addr += size
	}
	return addr, nil
}

func bytesToUint64(b [8]byte, width int) uint64 {
	var v uint64
	for i := width - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}
