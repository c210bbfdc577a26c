// Package assembler drives the two-pass assembly pipeline described in
// spec.md §4.5: it groups parsed statements into sections, substitutes
// constants, validates and pads instruction operands, resolves labels, and
// emits the final executable.
package assembler

import (
	"github.com/lookbusy1344/wolfvm/asmir"
	"github.com/lookbusy1344/wolfvm/diag"
	"github.com/lookbusy1344/wolfvm/exefmt"
)

// Assemble runs the pipeline over prog and consts — label collection,
// constant substitution and operand validation, label offset resolution,
// then layout selection and emit — reporting every diagnostic to sink.
// Each phase recovers from individual errors and keeps going, and every
// phase runs even when an earlier one reported errors, so a best-effort
// executable is always returned. Assemble does not stop between phases;
// the returned bool is false when sink holds any error, and stopping the
// process is left to the caller (cmd/wolfasm).
func Assemble(prog *asmir.Program, consts []asmir.ConstEntry, sink *diag.Sink) (*exefmt.Executable, bool) {
	labelSpans := collectLabelSpans(prog, sink)
	constTable := asmir.NewConstTable(consts, labelSpans, sink)

	validateProgram(prog, constTable, sink)

	offsets := asmir.NewLabelOffsets(prog)

	exe := &exefmt.Executable{
		CodeSection:   encodeSection(prog.CodeSection, offsets, sink),
		StaticSection: encodeSection(prog.StaticSection, offsets, sink),
	}

	return exe, !sink.HasErrors()
}

// collectLabelSpans walks every statement in the program and records the
// span of each label's first definition, reporting a diagnostic at both
// spans for every duplicate (spec.md §4.5 step 1).
func collectLabelSpans(prog *asmir.Program, sink *diag.Sink) map[string]diag.Span {
	spans := make(map[string]diag.Span)

	prog.AllStmts(func(s asmir.Stmt) {
		for _, label := range s.Labels {
			if existing, ok := spans[label.Value]; ok {
				d := sink.Error(diag.KindDuplicateName, label.Span, "label `%s` is already defined", label.Value)
				diag.AddSecondary(d, existing, "first defined here")
				continue
			}
			spans[label.Value] = label.Span
		}
	})

	return spans
}
