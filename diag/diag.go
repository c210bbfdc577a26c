// Package diag implements the diagnostics sink shared by the parser, the
// IR builder, and the assembler driver: positions, a severity-tagged
// diagnostic record with an optional secondary span, and a sink that
// accumulates diagnostics across a pipeline phase without aborting it.
package diag

import (
	"fmt"
	"strings"
)

// Position is a location in a source file.
type Position struct {
	Filename string
	Line     int
	Column   int
}

func (p Position) String() string {
	return fmt.Sprintf("%s:%d:%d", p.Filename, p.Line, p.Column)
}

// Span is a half-open source range used to underline a diagnostic.
type Span struct {
	Start Position
	End   Position
}

func (s Span) String() string {
	if s.Start.Line == s.End.Line {
		return fmt.Sprintf("%s:%d:%d-%d", s.Start.Filename, s.Start.Line, s.Start.Column, s.End.Column)
	}
	return fmt.Sprintf("%s:%d:%d-%d:%d", s.Start.Filename, s.Start.Line, s.Start.Column, s.End.Line, s.End.Column)
}

// Severity is how seriously a diagnostic should be taken.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityNote
	SeverityHelp
	SeverityInfo
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityNote:
		return "note"
	case SeverityHelp:
		return "help"
	case SeverityInfo:
		return "info"
	default:
		return "unknown"
	}
}

// Kind categorizes the cause of a diagnostic (spec.md §7).
type Kind int

const (
	KindParseError Kind = iota
	KindIncludeError
	KindDuplicateName
	KindUnknownMnemonic
	KindOperandArityError
	KindOperandKindError
	KindImmediateRangeError
	KindUnknownLabel
	KindSectionOrderError
	KindDuplicateSection
)

// SecondarySpan annotates a diagnostic with a related, non-primary
// location, e.g. the site of an earlier conflicting definition.
type SecondarySpan struct {
	Span    Span
	Message string
}

// Diagnostic is a single accumulated error, warning, or note.
type Diagnostic struct {
	Severity  Severity
	Kind      Kind
	Primary   Span
	Message   string
	Context   string
	Secondary []SecondarySpan
}

func (d *Diagnostic) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s: %s\n", d.Primary, d.Severity, d.Message)
	if d.Context != "" {
		fmt.Fprintf(&sb, "    %s\n", d.Context)
	}
	for _, s := range d.Secondary {
		fmt.Fprintf(&sb, "%s: note: %s\n", s.Span, s.Message)
	}
	return sb.String()
}

// Sink accumulates diagnostics across the assembly pipeline. Unlike the
// VM's fail-fast typed errors, a Sink never aborts on its own: callers
// check HasErrors to decide whether to continue (cmd/wolfasm does so after
// parsing and after assembly; assembler.Assemble itself does not check
// between its phases).
type Sink struct {
	diagnostics []*Diagnostic
}

func NewSink() *Sink {
	return &Sink{}
}

func (s *Sink) add(severity Severity, kind Kind, primary Span, message string) *Diagnostic {
	d := &Diagnostic{Severity: severity, Kind: kind, Primary: primary, Message: message}
	s.diagnostics = append(s.diagnostics, d)
	return d
}

// Error records an error-severity diagnostic at primary and returns it so
// the caller can attach secondary spans via AddSecondary.
func (s *Sink) Error(kind Kind, primary Span, format string, args ...any) *Diagnostic {
	return s.add(SeverityError, kind, primary, fmt.Sprintf(format, args...))
}

// Warning records a warning-severity diagnostic.
func (s *Sink) Warning(kind Kind, primary Span, format string, args ...any) *Diagnostic {
	return s.add(SeverityWarning, kind, primary, fmt.Sprintf(format, args...))
}

// AddSecondary attaches a secondary span to a previously recorded
// diagnostic, e.g. pointing at the site of an earlier conflicting
// definition.
func AddSecondary(d *Diagnostic, span Span, format string, args ...any) {
	d.Secondary = append(d.Secondary, SecondarySpan{Span: span, Message: fmt.Sprintf(format, args...)})
}

// HasErrors reports whether any error-severity diagnostic was recorded.
func (s *Sink) HasErrors() bool {
	for _, d := range s.diagnostics {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Diagnostics returns every diagnostic recorded so far, in emission order.
func (s *Sink) Diagnostics() []*Diagnostic {
	return s.diagnostics
}

// String renders every diagnostic, most severe concerns interleaved in the
// order they were emitted, matching parser.ErrorList's plain-text report.
func (s *Sink) String() string {
	var sb strings.Builder
	for _, d := range s.diagnostics {
		sb.WriteString(d.String())
	}
	return sb.String()
}
