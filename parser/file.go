package parser

import (
	"os"
	"path/filepath"

	"github.com/lookbusy1344/wolfvm/asmir"
	"github.com/lookbusy1344/wolfvm/diag"
)

// Unit is the result of parsing one translation unit: a validated program
// plus its `.const` directives, not yet substituted into operands. The
// caller builds an asmir.ConstTable from Consts and resolves labels before
// handing the program to the assembler's layout-selection phase.
type Unit struct {
	Program *asmir.Program
	Consts  []asmir.ConstEntry
}

// ParseFileOptions configures file parsing behavior.
type ParseFileOptions struct {
	// EnablePreprocessor enables `.include` expansion (default: true).
	EnablePreprocessor bool
}

// DefaultParseFileOptions returns the default options for parsing.
func DefaultParseFileOptions() ParseFileOptions {
	return ParseFileOptions{EnablePreprocessor: true}
}

// ParseFile reads and parses an assembly file, expanding `.include`
// directives first when enabled. Parse errors are reported to sink rather
// than returned directly; callers should check sink.HasErrors() after a
// successful read.
func ParseFile(filePath string, opts ParseFileOptions, sink *diag.Sink) (*Unit, error) {
	content, err := os.ReadFile(filePath) // #nosec G304 -- user-provided assembly file path
	if err != nil {
		return nil, err
	}

	filename := filepath.Base(filePath)
	source := string(content)

	if opts.EnablePreprocessor {
		pp := NewPreprocessor(filepath.Dir(filePath), sink)
		source, err = pp.ProcessContent(source, filename)
		if err != nil {
			return nil, err
		}
	}

	p := NewParser(source, filename, sink)
	program, consts := p.Parse()
	return &Unit{Program: program, Consts: consts}, nil
}

// ParseFileSimple is a convenience wrapper that uses default options.
func ParseFileSimple(filePath string, sink *diag.Sink) (*Unit, error) {
	return ParseFile(filePath, DefaultParseFileOptions(), sink)
}
