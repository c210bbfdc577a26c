package assembler_test

import (
	"testing"

	"github.com/lookbusy1344/wolfvm/assembler"
	"github.com/lookbusy1344/wolfvm/diag"
	"github.com/lookbusy1344/wolfvm/exefmt"
	"github.com/lookbusy1344/wolfvm/isa"
	"github.com/lookbusy1344/wolfvm/parser"
)

func assembleSource(t *testing.T, src string) (*exefmt.Executable, bool, *diag.Sink) {
	t.Helper()
	sink := diag.NewSink()
	p := parser.NewParser(src, "test.s", sink)
	program, consts := p.Parse()
	exe, ok := assembler.Assemble(program, consts, sink)
	return exe, ok, sink
}

func TestAssemble_RegisterToRegisterUsesL1(t *testing.T) {
	exe, ok, sink := assembleSource(t, "section .code\nmov $0, $1\n")
	if !ok {
		t.Fatalf("expected success, got errors: %s", sink)
	}
	if len(exe.CodeSection) != 1 {
		t.Fatalf("expected 1 record, got %d", len(exe.CodeSection))
	}
	word := exe.CodeSection[0].Word
	kind, layoutOffset, ok := isa.KindFromOpcode(uint16(word >> 52))
	if !ok || kind != isa.Mov || layoutOffset != uint8(isa.L1) {
		t.Errorf("expected mov/L1, got kind=%v offset=%d ok=%v", kind, layoutOffset, ok)
	}
}

func TestAssemble_RegisterToImmediateUsesL2(t *testing.T) {
	exe, ok, sink := assembleSource(t, "section .code\nmov $0, 42\n")
	if !ok {
		t.Fatalf("expected success, got errors: %s", sink)
	}
	word := exe.CodeSection[0].Word
	_, layoutOffset, ok := isa.KindFromOpcode(uint16(word >> 52))
	if !ok || layoutOffset != uint8(isa.L2) {
		t.Errorf("expected L2, got offset=%d ok=%v", layoutOffset, ok)
	}
}

func TestAssemble_UnknownMnemonicBecomesNop(t *testing.T) {
	exe, ok, sink := assembleSource(t, "section .code\nbogus $0, $1\n")
	if ok {
		t.Fatalf("expected a diagnostic for the unknown mnemonic")
	}
	if !sink.HasErrors() {
		t.Fatalf("expected sink to report the unknown mnemonic")
	}
	word := exe.CodeSection[0].Word
	kind, _, ok := isa.KindFromOpcode(uint16(word >> 52))
	if !ok || kind != isa.Nop {
		t.Errorf("expected nop, got kind=%v", kind)
	}
}

func TestAssemble_WrongArityIsPadded(t *testing.T) {
	exe, ok, sink := assembleSource(t, "section .code\nmov $0\n")
	if ok {
		t.Fatalf("expected a diagnostic for the missing operand")
	}
	if !sink.HasErrors() {
		t.Fatalf("expected an arity diagnostic")
	}
	if len(exe.CodeSection) != 1 {
		t.Fatalf("expected 1 record despite the error, got %d", len(exe.CodeSection))
	}
}

func TestAssemble_LabelResolvesToOffset(t *testing.T) {
	exe, ok, sink := assembleSource(t, "section .code\njmp target\nnop\ntarget:\nnop\n")
	if !ok {
		t.Fatalf("expected success, got errors: %s", sink)
	}
	word := exe.CodeSection[0].Word
	_, layoutOffset, ok := isa.KindFromOpcode(uint16(word >> 52))
	if !ok || layoutOffset != uint8(isa.L10) {
		t.Errorf("expected L10 (immediate jump target), got offset=%d ok=%v", layoutOffset, ok)
	}
	im := isa.DecodeLayout(word, isa.L10).Im1.Value
	if im != 16 {
		t.Errorf("expected jmp target offset 16, got %d", im)
	}
}

func TestAssemble_UnknownLabelRecoversWithZero(t *testing.T) {
	exe, ok, sink := assembleSource(t, "section .code\njmp nowhere\n")
	if ok {
		t.Fatalf("expected a diagnostic for the unknown label")
	}
	if !sink.HasErrors() {
		t.Fatalf("expected an unknown-label diagnostic")
	}
	word := exe.CodeSection[0].Word
	im := isa.DecodeLayout(word, isa.L10).Im1.Value
	if im != 0 {
		t.Errorf("expected recovery value 0, got %d", im)
	}
}

func TestAssemble_DuplicateLabelIsError(t *testing.T) {
	_, ok, sink := assembleSource(t, "section .code\na:\nnop\na:\nnop\n")
	if ok {
		t.Fatalf("expected a diagnostic for the duplicate label")
	}
	if !sink.HasErrors() {
		t.Fatalf("expected a duplicate-label diagnostic")
	}
}

func TestAssemble_ConstSubstitution(t *testing.T) {
	exe, ok, sink := assembleSource(t, ".const SIZE 64\nsection .code\nmov $0, SIZE\n")
	if !ok {
		t.Fatalf("expected success, got errors: %s", sink)
	}
	word := exe.CodeSection[0].Word
	im := isa.DecodeLayout(word, isa.L2).Im1.Value
	if im != 64 {
		t.Errorf("expected 64, got %d", im)
	}
}

func TestAssemble_StaticDataSections(t *testing.T) {
	exe, ok, sink := assembleSource(t, "section .code\nnop\nsection .static\n.b4 1000\n.zero 8\n.uninit 4\n.bytes \"hi\"\n")
	if !ok {
		t.Fatalf("expected success, got errors: %s", sink)
	}
	if len(exe.StaticSection) != 4 {
		t.Fatalf("expected 4 static records, got %d", len(exe.StaticSection))
	}
	if exe.StaticSection[0].Kind != exefmt.RecordStaticBytes || exe.StaticSection[0].Width != 4 {
		t.Errorf("expected RecordStaticBytes width 4, got %+v", exe.StaticSection[0])
	}
	if exe.StaticSection[1].Kind != exefmt.RecordStaticZero || exe.StaticSection[1].NBytes != 8 {
		t.Errorf("expected RecordStaticZero 8, got %+v", exe.StaticSection[1])
	}
	if exe.StaticSection[2].Kind != exefmt.RecordStaticUninit || exe.StaticSection[2].NBytes != 4 {
		t.Errorf("expected RecordStaticUninit 4, got %+v", exe.StaticSection[2])
	}
	if exe.StaticSection[3].Kind != exefmt.RecordStaticByteStr || string(exe.StaticSection[3].ByteStr) != "hi" {
		t.Errorf("expected RecordStaticByteStr \"hi\", got %+v", exe.StaticSection[3])
	}
}

func TestAssemble_OutOfRangeImmediateRecoversWithZero(t *testing.T) {
	exe, ok, sink := assembleSource(t, "section .code\npush 9999999999999999\n")
	if ok {
		t.Fatalf("expected a diagnostic for the out-of-range immediate")
	}
	if !sink.HasErrors() {
		t.Fatalf("expected a range-error diagnostic")
	}
	if im := isa.DecodeLayout(exe.CodeSection[0].Word, isa.L10).Im1.Value; im != 0 {
		t.Errorf("expected recovery value 0, got %d", im)
	}
}

func TestAssemble_NullaryInstructionUsesL1WithZeroRegisters(t *testing.T) {
	exe, ok, sink := assembleSource(t, "section .code\nret\n")
	if !ok {
		t.Fatalf("expected success, got errors: %s", sink)
	}
	word := exe.CodeSection[0].Word
	kind, layoutOffset, ok := isa.KindFromOpcode(uint16(word >> 52))
	if !ok || kind != isa.Ret || layoutOffset != uint8(isa.L1) {
		t.Errorf("expected ret/L1, got kind=%v offset=%d", kind, layoutOffset)
	}
}
