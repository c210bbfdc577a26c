package tools

import (
	"strings"
	"testing"
)

func TestLint_UndefinedLabel(t *testing.T) {
	source := "section .code\nmov $0, 10\njmp undefined_label\nret\n"

	linter := NewLinter(DefaultLintOptions())
	issues := linter.Lint(source, "test.wasm")

	found := false
	for _, issue := range issues {
		if issue.Code == "UNDEF_LABEL" && strings.Contains(issue.Message, "undefined_label") {
			found = true
			if issue.Level != LintError {
				t.Errorf("expected error level, got %v", issue.Level)
			}
		}
	}
	if !found {
		t.Error("expected undefined label error")
	}
}

func TestLint_DefinedLabelOK(t *testing.T) {
	source := "section .code\nmov $0, 10\njmp loop\nloop:\nadd $0, 1\nret\n"

	linter := NewLinter(DefaultLintOptions())
	issues := linter.Lint(source, "test.wasm")

	for _, issue := range issues {
		if issue.Code == "UNDEF_LABEL" {
			t.Errorf("unexpected undefined label error: %s", issue.Message)
		}
	}
}

func TestLint_UnusedLabel(t *testing.T) {
	source := "section .code\n_start:\nmov $0, 10\nret\nunused:\nadd $0, 1\nret\n"

	linter := NewLinter(DefaultLintOptions())
	issues := linter.Lint(source, "test.wasm")

	found := false
	for _, issue := range issues {
		if issue.Code == "UNUSED_LABEL" && strings.Contains(issue.Message, "unused") {
			found = true
		}
		if issue.Code == "UNUSED_LABEL" && strings.Contains(issue.Message, "_start") {
			t.Error("_start should not be flagged as unused")
		}
	}
	if !found {
		t.Error("expected unused label warning for 'unused'")
	}
}

func TestLint_UnusedLabelDisabled(t *testing.T) {
	source := "section .code\nmov $0, 10\nret\nunused:\nadd $0, 1\nret\n"

	options := DefaultLintOptions()
	options.CheckUnused = false
	linter := NewLinter(options)
	issues := linter.Lint(source, "test.wasm")

	for _, issue := range issues {
		if issue.Code == "UNUSED_LABEL" {
			t.Error("unused label check should be disabled")
		}
	}
}

func TestLint_UnreachableCode(t *testing.T) {
	source := "section .code\nmov $0, 10\njmp done\nadd $0, 1\ndone:\nret\n"

	linter := NewLinter(DefaultLintOptions())
	issues := linter.Lint(source, "test.wasm")

	found := false
	for _, issue := range issues {
		if issue.Code == "UNREACHABLE_CODE" {
			found = true
		}
	}
	if !found {
		t.Error("expected unreachable code warning after unconditional jmp")
	}
}

func TestLint_ReachableAfterLabel(t *testing.T) {
	source := "section .code\nmov $0, 10\njmp done\nskipped:\nadd $0, 1\ndone:\nret\n"

	linter := NewLinter(DefaultLintOptions())
	issues := linter.Lint(source, "test.wasm")

	for _, issue := range issues {
		if issue.Code == "UNREACHABLE_CODE" {
			t.Error("a labeled statement is a valid jump target, not unreachable")
		}
	}
}

func TestLint_AliasedDestRegisters(t *testing.T) {
	source := "section .code\nmull $0, $0, 2\nret\n"

	linter := NewLinter(DefaultLintOptions())
	issues := linter.Lint(source, "test.wasm")

	found := false
	for _, issue := range issues {
		if issue.Code == "ALIASED_DEST_REGS" {
			found = true
		}
	}
	if !found {
		t.Error("expected aliased destination register warning for mull")
	}
}

func TestLint_RegisterUsageDisabled(t *testing.T) {
	source := "section .code\nmull $0, $0, 2\nret\n"

	options := DefaultLintOptions()
	options.CheckRegUse = false
	linter := NewLinter(options)
	issues := linter.Lint(source, "test.wasm")

	for _, issue := range issues {
		if issue.Code == "ALIASED_DEST_REGS" {
			t.Error("register usage check should be disabled")
		}
	}
}

func TestLint_EmptyStaticData(t *testing.T) {
	source := "section .code\nnop\nsection .static\ndata:\n.zero 0\n"

	linter := NewLinter(DefaultLintOptions())
	issues := linter.Lint(source, "test.wasm")

	found := false
	for _, issue := range issues {
		if issue.Code == "EMPTY_STATIC_DATA" {
			found = true
		}
	}
	if !found {
		t.Error("expected empty static data warning for .zero 0")
	}
}

func TestLint_ParseError(t *testing.T) {
	source := "mov $0, 10\nret\n"

	linter := NewLinter(DefaultLintOptions())
	issues := linter.Lint(source, "test.wasm")

	found := false
	for _, issue := range issues {
		if issue.Code == "PARSE_ERROR" {
			found = true
			if issue.Level != LintError {
				t.Errorf("expected error level for parse error, got %v", issue.Level)
			}
		}
	}
	if !found {
		t.Error("expected parse error for a statement outside of any section")
	}
}

func TestLint_DidYouMeanSuggestion(t *testing.T) {
	source := "section .code\nmov $0, 10\nloopx:\njmp loop\nret\n"

	linter := NewLinter(DefaultLintOptions())
	issues := linter.Lint(source, "test.wasm")

	found := false
	for _, issue := range issues {
		if issue.Code == "UNDEF_LABEL" && strings.Contains(issue.Message, "did you mean") {
			found = true
		}
	}
	if !found {
		t.Error("expected a 'did you mean' suggestion for a near-miss label")
	}
}

func TestLint_NoSuggestionWhenDisabled(t *testing.T) {
	source := "section .code\nmov $0, 10\nloopx:\njmp loop\nret\n"

	options := DefaultLintOptions()
	options.SuggestFixes = false
	linter := NewLinter(options)
	issues := linter.Lint(source, "test.wasm")

	for _, issue := range issues {
		if issue.Code == "UNDEF_LABEL" && strings.Contains(issue.Message, "did you mean") {
			t.Error("did not expect a suggestion when SuggestFixes is disabled")
		}
	}
}

func TestLint_IssuesSortedByPosition(t *testing.T) {
	source := "section .code\njmp nope1\njmp nope2\nret\n"

	linter := NewLinter(DefaultLintOptions())
	issues := linter.Lint(source, "test.wasm")

	for i := 1; i < len(issues); i++ {
		if issues[i].Line < issues[i-1].Line {
			t.Errorf("issues not sorted by line: %d before %d", issues[i-1].Line, issues[i].Line)
		}
	}
}

func TestLint_CleanProgramHasNoIssues(t *testing.T) {
	source := "section .code\n_start:\nmov $0, 10\nadd $0, 1\nret\n"

	linter := NewLinter(DefaultLintOptions())
	issues := linter.Lint(source, "test.wasm")

	if len(issues) != 0 {
		t.Errorf("expected no issues for a clean program, got: %v", issues)
	}
}
