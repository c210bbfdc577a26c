package vm

import "unicode/utf8"

// loadMemory reads width bytes from addr, special-casing the
// memory-mapped stdin address (spec.md §6).
func (m *Machine) loadMemory(addr uint64, width int) (uint64, error) {
	var v uint64
	var err error
	if addr == StdinAddr {
		v, err = m.readStdinByte()
	} else {
		v, err = m.Memory.ReadN(addr, width)
	}
	if err == nil && m.MemoryTrace != nil {
		m.MemoryTrace.RecordRead(m.CyclesExecuted, m.PC, addr, v, width)
	}
	return v, err
}

// storeMemory writes the low width bytes of value to addr, special-casing
// the memory-mapped stdout address.
func (m *Machine) storeMemory(addr uint64, width int, value uint64) error {
	var err error
	if addr == StdoutAddr {
		err = m.writeStdoutScalar(value)
	} else {
		err = m.Memory.WriteN(addr, width, value)
	}
	if err == nil && m.MemoryTrace != nil {
		m.MemoryTrace.RecordWrite(m.CyclesExecuted, m.PC, addr, value, width)
	}
	return err
}

// readStdinByte returns the next input byte zero-extended, or 0x00 once
// the stream is exhausted. Once EOF has been observed it keeps being
// reported rather than re-attempting the read.
func (m *Machine) readStdinByte() (uint64, error) {
	if m.stdinEOF {
		return 0, nil
	}
	b, err := m.stdin.ReadByte()
	if err != nil {
		m.stdinEOF = true
		return 0, nil
	}
	return uint64(b), nil
}

// writeStdoutScalar interprets the low 4 bytes of value as a Unicode
// scalar and writes it as UTF-8, substituting the replacement character
// for an invalid scalar.
func (m *Machine) writeStdoutScalar(value uint64) error {
	r := rune(uint32(value))
	if r > utf8.MaxRune || !utf8.ValidRune(r) {
		r = utf8.RuneError
	}
	var buf [utf8.UTFMax]byte
	n := utf8.EncodeRune(buf[:], r)
	if _, err := m.stdout.Write(buf[:n]); err != nil {
		return &IOError{Op: "stdout write", Err: err}
	}
	return nil
}
