package parser_test

import (
	"testing"

	"github.com/lookbusy1344/wolfvm/asmir"
	"github.com/lookbusy1344/wolfvm/diag"
	"github.com/lookbusy1344/wolfvm/parser"
)

func parse(t *testing.T, src string) (*asmir.Program, []asmir.ConstEntry, *diag.Sink) {
	t.Helper()
	sink := diag.NewSink()
	p := parser.NewParser(src, "test.s", sink)
	prog, consts := p.Parse()
	return prog, consts, sink
}

func TestParse_BasicInstruction(t *testing.T) {
	prog, _, sink := parse(t, "section .code\nmov $0, 10\nret\n")
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %s", sink)
	}
	if len(prog.CodeSection.Stmts) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(prog.CodeSection.Stmts))
	}
	first := prog.CodeSection.Stmts[0]
	if first.Kind != asmir.StmtInstr || first.Instr.Name.Value != "mov" {
		t.Errorf("expected first statement to be 'mov', got %+v", first)
	}
	if len(first.Instr.Args) != 2 {
		t.Fatalf("expected 2 operands, got %d", len(first.Instr.Args))
	}
	if first.Instr.Args[0].Kind != asmir.ArgRegister || first.Instr.Args[0].Register.Number != 0 {
		t.Errorf("expected first operand to be register 0, got %+v", first.Instr.Args[0])
	}
	if first.Instr.Args[1].Kind != asmir.ArgImmediate || first.Instr.Args[1].Immediate.Value.Int64() != 10 {
		t.Errorf("expected second operand to be immediate 10, got %+v", first.Instr.Args[1])
	}
}

func TestParse_LabelAttachesToNextStatement(t *testing.T) {
	prog, _, sink := parse(t, "section .code\nloop:\nadd $0, 1\nret\n")
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %s", sink)
	}
	first := prog.CodeSection.Stmts[0]
	if len(first.Labels) != 1 || first.Labels[0].Value != "loop" {
		t.Errorf("expected 'loop' label on the first statement, got %+v", first.Labels)
	}
}

func TestParse_TrailingLabelWithNoStatementErrors(t *testing.T) {
	_, _, sink := parse(t, "section .code\nmov $0, 1\ndangling:\n")
	if !sink.HasErrors() {
		t.Fatal("expected an error for a label not followed by a statement")
	}
}

func TestParse_NamedRegisters(t *testing.T) {
	prog, _, sink := parse(t, "section .code\npush $fp\nmov $fp, $sp\nret\n")
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %s", sink)
	}
	movArgs := prog.CodeSection.Stmts[1].Instr.Args
	if movArgs[0].Register.Kind != asmir.RegisterNamed || movArgs[0].Register.Name != "fp" {
		t.Errorf("expected $fp as a named register, got %+v", movArgs[0].Register)
	}
	if movArgs[1].Register.Kind != asmir.RegisterNamed || movArgs[1].Register.Name != "sp" {
		t.Errorf("expected $sp as a named register, got %+v", movArgs[1].Register)
	}
}

func TestParse_InvalidRegisterNumberErrors(t *testing.T) {
	_, _, sink := parse(t, "section .code\nmov $99, 1\nret\n")
	if !sink.HasErrors() {
		t.Fatal("expected an error for an out-of-range register number")
	}
}

func TestParse_UnknownMnemonicParsesSuccessfully(t *testing.T) {
	// mnemonic validation happens in the assembler, not the parser: an
	// unrecognized instruction name is syntactically just an identifier
	// followed by operands.
	prog, _, sink := parse(t, "section .code\nnotanopcode $0, $1\nret\n")
	if sink.HasErrors() {
		t.Fatalf("did not expect the parser itself to flag an unknown mnemonic: %s", sink)
	}
	if prog.CodeSection.Stmts[0].Instr.Name.Value != "notanopcode" {
		t.Errorf("expected the unknown mnemonic to parse as a plain instruction name")
	}
}

func TestParse_StatementBeforeSectionHeaderErrors(t *testing.T) {
	_, _, sink := parse(t, "mov $0, 10\nret\n")
	if !sink.HasErrors() {
		t.Fatal("expected a section-order error for a statement outside any section")
	}
	found := false
	for _, d := range sink.Diagnostics() {
		if d.Kind == diag.KindSectionOrderError {
			found = true
		}
	}
	if !found {
		t.Error("expected a KindSectionOrderError diagnostic")
	}
}

func TestParse_StaticSectionBeforeCodeErrors(t *testing.T) {
	_, _, sink := parse(t, "section .static\ndata:\n.zero 4\n")
	if !sink.HasErrors() {
		t.Fatal("expected an error for `section .static` before `section .code`")
	}
}

func TestParse_DuplicateCodeSectionErrors(t *testing.T) {
	_, _, sink := parse(t, "section .code\nnop\nsection .code\nret\n")
	if !sink.HasErrors() {
		t.Fatal("expected a duplicate section error")
	}
	found := false
	for _, d := range sink.Diagnostics() {
		if d.Kind == diag.KindDuplicateSection {
			found = true
		}
	}
	if !found {
		t.Error("expected a KindDuplicateSection diagnostic")
	}
}

func TestParse_StaticDataBytesDirective(t *testing.T) {
	prog, _, sink := parse(t, "section .code\nnop\nsection .static\nval:\n.b4 42\n")
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %s", sink)
	}
	stmt := prog.StaticSection.Stmts[0]
	if stmt.Kind != asmir.StmtStaticData || stmt.StaticData.Kind != asmir.StaticKindBytes {
		t.Fatalf("expected a .b4 static data statement, got %+v", stmt)
	}
	if stmt.StaticData.BytesWidth != asmir.Width4 {
		t.Errorf("expected Width4, got %v", stmt.StaticData.BytesWidth)
	}
}

func TestParse_StaticDataOutOfRangeErrors(t *testing.T) {
	_, _, sink := parse(t, "section .code\nnop\nsection .static\nval:\n.b1 1000\n")
	if !sink.HasErrors() {
		t.Fatal("expected an immediate range error for a value not fitting in one byte")
	}
}

func TestParse_ZeroAndUninitDirectives(t *testing.T) {
	prog, _, sink := parse(t, "section .code\nnop\nsection .static\na:\n.zero 8\nb:\n.uninit 4\n")
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %s", sink)
	}
	if prog.StaticSection.Stmts[0].StaticData.Kind != asmir.StaticKindZero {
		t.Error("expected first directive to be .zero")
	}
	if prog.StaticSection.Stmts[1].StaticData.Kind != asmir.StaticKindUninit {
		t.Error("expected second directive to be .uninit")
	}
}

func TestParse_BytesStringDirective(t *testing.T) {
	prog, _, sink := parse(t, "section .code\nnop\nsection .static\nmsg:\n.bytes \"hi\"\n")
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %s", sink)
	}
	data := prog.StaticSection.Stmts[0].StaticData
	if data.Kind != asmir.StaticKindByteStr || string(data.ByteStr.Value) != "hi" {
		t.Errorf("expected .bytes \"hi\", got %+v", data)
	}
}

func TestParse_ConstDirectiveRecorded(t *testing.T) {
	_, consts, sink := parse(t, "section .code\n.const LIMIT 100\nmov $0, 1\nret\n")
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %s", sink)
	}
	if len(consts) != 1 || consts[0].Name.Value != "LIMIT" || consts[0].Value.Value.Int64() != 100 {
		t.Errorf("expected one const entry LIMIT=100, got %+v", consts)
	}
}

func TestParse_HexAndBinaryLiterals(t *testing.T) {
	prog, _, sink := parse(t, "section .code\nmov $0, 0xFF\nmov $1, 0b101\nret\n")
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %s", sink)
	}
	hexVal := prog.CodeSection.Stmts[0].Instr.Args[1].Immediate.Value.Int64()
	if hexVal != 255 {
		t.Errorf("expected 0xFF == 255, got %d", hexVal)
	}
	binVal := prog.CodeSection.Stmts[1].Instr.Args[1].Immediate.Value.Int64()
	if binVal != 5 {
		t.Errorf("expected 0b101 == 5, got %d", binVal)
	}
}

func TestParse_LabelOperandParsesAsArgLabel(t *testing.T) {
	prog, _, sink := parse(t, "section .code\njmp loop\nloop:\nret\n")
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %s", sink)
	}
	arg := prog.CodeSection.Stmts[0].Instr.Args[0]
	if arg.Kind != asmir.ArgLabel || arg.Label.Value != "loop" {
		t.Errorf("expected a label argument 'loop', got %+v", arg)
	}
}

func TestParse_CommentsAreStripped(t *testing.T) {
	prog, _, sink := parse(t, "section .code ; header comment\nmov $0, 1 ; move it\nret\n")
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %s", sink)
	}
	if len(prog.CodeSection.Stmts) != 2 {
		t.Fatalf("expected comments to be stripped entirely, got %d statements", len(prog.CodeSection.Stmts))
	}
}

func TestParse_MultipleLabelsOnSameStatement(t *testing.T) {
	prog, _, sink := parse(t, "section .code\na:\nb:\nret\n")
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %s", sink)
	}
	labels := prog.CodeSection.Stmts[0].Labels
	if len(labels) != 2 || labels[0].Value != "a" || labels[1].Value != "b" {
		t.Errorf("expected both labels to attach to the same statement, got %+v", labels)
	}
}
