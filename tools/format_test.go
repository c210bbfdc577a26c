package tools

import (
	"strings"
	"testing"
)

func TestFormat_BasicInstruction(t *testing.T) {
	source := "section .code\nmov $0, 10\nret\n"

	formatter := NewFormatter(DefaultFormatOptions())
	result, err := formatter.Format(source, "test.wasm")
	if err != nil {
		t.Fatalf("Format error: %v", err)
	}

	if !strings.Contains(result, "mov") {
		t.Error("expected mov instruction in output")
	}
	if !strings.Contains(result, "$0, 10") {
		t.Errorf("expected comma-separated operands, got: %s", result)
	}
}

func TestFormat_WithLabel(t *testing.T) {
	source := "section .code\nloop:\nmov $0, 10\nret\n"

	formatter := NewFormatter(DefaultFormatOptions())
	result, err := formatter.Format(source, "test.wasm")
	if err != nil {
		t.Fatalf("Format error: %v", err)
	}

	if !strings.Contains(result, "loop:") {
		t.Error("expected label with colon")
	}
}

func TestFormat_CompactStyle(t *testing.T) {
	source := "section .code\nloop:\nmov $0, 10\nadd $0, 1\nret\n"

	formatter := NewFormatter(CompactFormatOptions())
	result, err := formatter.Format(source, "test.wasm")
	if err != nil {
		t.Fatalf("Format error: %v", err)
	}

	for _, line := range strings.Split(strings.TrimSpace(result), "\n") {
		if strings.Contains(line, "  ") {
			t.Errorf("compact style should minimize whitespace: %q", line)
		}
	}
}

func TestFormat_ExpandedStyle(t *testing.T) {
	source := "section .code\nmov $0, 10\nret\n"

	formatter := NewFormatter(ExpandedFormatOptions())
	result, err := formatter.Format(source, "test.wasm")
	if err != nil {
		t.Fatalf("Format error: %v", err)
	}

	if !strings.Contains(result, " ") {
		t.Error("expected whitespace in expanded style")
	}
}

func TestFormat_MultipleInstructions(t *testing.T) {
	source := "section .code\n_start:\nmov $0, 10\nadd $0, 1\nsub $1, $0, 5\nret\n"

	formatter := NewFormatter(DefaultFormatOptions())
	result, err := formatter.Format(source, "test.wasm")
	if err != nil {
		t.Fatalf("Format error: %v", err)
	}

	for _, inst := range []string{"mov", "add", "sub", "ret"} {
		if !strings.Contains(result, inst) {
			t.Errorf("expected instruction %s in output", inst)
		}
	}
}

func TestFormat_StaticDirectives(t *testing.T) {
	source := "section .code\nnop\nsection .static\ndata:\n.b4 42\n.zero 8\n"

	formatter := NewFormatter(DefaultFormatOptions())
	result, err := formatter.Format(source, "test.wasm")
	if err != nil {
		t.Fatalf("Format error: %v", err)
	}

	if !strings.Contains(result, ".b4 42") {
		t.Error("expected .b4 directive")
	}
	if !strings.Contains(result, ".zero 8") {
		t.Error("expected .zero directive")
	}
	if !strings.Contains(result, "section .static") {
		t.Error("expected static section header")
	}
}

func TestFormat_ByteString(t *testing.T) {
	source := "section .code\nnop\nsection .static\nmsg:\n.bytes \"ok\"\n"

	formatter := NewFormatter(DefaultFormatOptions())
	result, err := formatter.Format(source, "test.wasm")
	if err != nil {
		t.Fatalf("Format error: %v", err)
	}

	if !strings.Contains(result, `.bytes "ok"`) {
		t.Errorf("expected .bytes directive with string, got: %s", result)
	}
}

func TestFormat_PreserveOperandOrder(t *testing.T) {
	source := "section .code\nadd $0, $1, $2\nret\n"

	formatter := NewFormatter(DefaultFormatOptions())
	result, err := formatter.Format(source, "test.wasm")
	if err != nil {
		t.Fatalf("Format error: %v", err)
	}

	if !strings.Contains(result, "$0, $1, $2") {
		t.Errorf("expected operands in order, got: %s", result)
	}
}

func TestFormat_EmptyCodeSection(t *testing.T) {
	source := "section .code\nnop\n"

	formatter := NewFormatter(DefaultFormatOptions())
	result, err := formatter.Format(source, "test.wasm")
	if err != nil {
		t.Fatalf("Format error: %v", err)
	}

	if strings.TrimSpace(result) == "" {
		t.Error("expected at least the section header and nop instruction")
	}
}

func TestFormat_MixedCaseMnemonic(t *testing.T) {
	source := "section .code\nMOV $0, 10\nret\n"

	formatter := NewFormatter(DefaultFormatOptions())
	result, err := formatter.Format(source, "test.wasm")
	if err != nil {
		t.Fatalf("Format error: %v", err)
	}

	if !strings.Contains(result, "mov") {
		t.Error("expected lower-cased mov instruction")
	}
}

func TestFormat_LabelOnly(t *testing.T) {
	source := "section .code\n_start:\nmov $0, 10\nret\n"

	formatter := NewFormatter(DefaultFormatOptions())
	result, err := formatter.Format(source, "test.wasm")
	if err != nil {
		t.Fatalf("Format error: %v", err)
	}

	if !strings.Contains(result, "_start:") {
		t.Error("expected _start label")
	}
}

func TestFormat_NamedRegisters(t *testing.T) {
	source := "section .code\npush $fp\nmov $fp, $sp\nret\n"

	formatter := NewFormatter(DefaultFormatOptions())
	result, err := formatter.Format(source, "test.wasm")
	if err != nil {
		t.Fatalf("Format error: %v", err)
	}

	if !strings.Contains(result, "$fp") || !strings.Contains(result, "$sp") {
		t.Errorf("expected named registers preserved, got: %s", result)
	}
}

func TestFormatString_Convenience(t *testing.T) {
	source := "section .code\nmov $0, 10\nret\n"

	result, err := FormatString(source, "test.wasm")
	if err != nil {
		t.Fatalf("FormatString error: %v", err)
	}

	if !strings.Contains(result, "mov") {
		t.Error("expected mov in formatted output")
	}
}

func TestFormatStringWithStyle_Compact(t *testing.T) {
	source := "section .code\nmov $0, 10\nret\n"

	result, err := FormatStringWithStyle(source, "test.wasm", FormatCompact)
	if err != nil {
		t.Fatalf("FormatStringWithStyle error: %v", err)
	}

	if !strings.Contains(result, "mov") {
		t.Error("expected mov in formatted output")
	}
}

func TestFormatStringWithStyle_Expanded(t *testing.T) {
	source := "section .code\nmov $0, 10\nret\n"

	result, err := FormatStringWithStyle(source, "test.wasm", FormatExpanded)
	if err != nil {
		t.Fatalf("FormatStringWithStyle error: %v", err)
	}

	if !strings.Contains(result, "mov") {
		t.Error("expected mov in formatted output")
	}
}

func TestFormat_BranchInstruction(t *testing.T) {
	source := "section .code\n_start:\nmov $0, 10\njmp loop\nloop:\nadd $0, 1\nret\n"

	formatter := NewFormatter(DefaultFormatOptions())
	result, err := formatter.Format(source, "test.wasm")
	if err != nil {
		t.Fatalf("Format error: %v", err)
	}

	if !strings.Contains(result, "jmp") {
		t.Error("expected jmp instruction in output")
	}
	if !strings.Contains(result, "loop") {
		t.Error("expected jmp instruction's label operand in output")
	}
	if !strings.Contains(result, "_start:") || !strings.Contains(result, "loop:") {
		t.Error("expected both labels in output")
	}
}

func TestFormat_ParseError(t *testing.T) {
	source := "mov $0, 10\nret\n"

	formatter := NewFormatter(DefaultFormatOptions())
	_, err := formatter.Format(source, "test.wasm")
	if err == nil {
		t.Error("expected parse error for a statement outside of any section")
	}
}
