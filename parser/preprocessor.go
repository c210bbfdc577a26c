package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lookbusy1344/wolfvm/diag"
)

// Preprocessor expands `.include "path"` directives by textual substitution
// before lexing begins. This dialect has no conditional-assembly directives.
type Preprocessor struct {
	includeStack []string
	baseDir      string
	sink         *diag.Sink
}

// NewPreprocessor creates a preprocessor rooted at baseDir, reporting
// include errors to sink.
func NewPreprocessor(baseDir string, sink *diag.Sink) *Preprocessor {
	if baseDir == "" {
		baseDir = "."
	}
	return &Preprocessor{baseDir: baseDir, sink: sink}
}

// ProcessFile reads filename relative to the preprocessor's base directory
// and expands any `.include` directives it contains.
func (p *Preprocessor) ProcessFile(filename string) (string, error) {
	absPath, err := filepath.Abs(filepath.Join(p.baseDir, filename))
	if err != nil {
		return "", err
	}

	for _, included := range p.includeStack {
		if included == absPath {
			return "", fmt.Errorf("circular include detected: %s", absPath)
		}
	}

	content, err := os.ReadFile(absPath) // #nosec G304 -- user-provided include file path
	if err != nil {
		return "", fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	p.includeStack = append(p.includeStack, absPath)
	defer func() {
		p.includeStack = p.includeStack[:len(p.includeStack)-1]
	}()

	return p.ProcessContent(string(content), filename)
}

// ProcessContent expands every `.include` line in content, leaving all
// other lines untouched. A diagnostic about an `.include` line carries the
// file and line number where that line appears. The expanded result is one
// text, so later lexer and parser diagnostics number its lines
// consecutively; they are not remapped to the included files.
func (p *Preprocessor) ProcessContent(content, filename string) (string, error) {
	lines := strings.Split(content, "\n")
	result := make([]string, 0, len(lines))

	for lineNum, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, ".include") {
			result = append(result, line)
			continue
		}

		pos := diag.Position{Filename: filename, Line: lineNum + 1, Column: 1}
		includeFile := parseIncludeDirective(trimmed)
		if includeFile == "" {
			p.sink.Error(diag.KindParseError, diag.Span{Start: pos, End: pos}, "invalid .include directive, expected: .include \"path\"")
			continue
		}

		includedContent, err := p.ProcessFile(includeFile)
		if err != nil {
			p.sink.Error(diag.KindParseError, diag.Span{Start: pos, End: pos}, "failed to include %s: %v", includeFile, err)
			continue
		}

		result = append(result, includedContent)
	}

	return strings.Join(result, "\n"), nil
}

// parseIncludeDirective extracts the quoted path from a `.include "path"`
// directive line, returning "" if malformed.
func parseIncludeDirective(line string) string {
	line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), ".include"))
	if len(line) >= 2 && line[0] == '"' && line[len(line)-1] == '"' {
		return line[1 : len(line)-1]
	}
	return ""
}
