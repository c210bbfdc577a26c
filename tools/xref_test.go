package tools

import (
	"strings"
	"testing"
)

func TestXRef_DefinitionAndBranch(t *testing.T) {
	source := "section .code\nmov $0, 10\njmp loop\nloop:\nadd $0, 1\nret\n"

	gen := NewXRefGenerator()
	symbols, err := gen.Generate(source, "test.wasm")
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}

	sym, ok := symbols["loop"]
	if !ok {
		t.Fatal("expected symbol 'loop' to be present")
	}
	if sym.Definition == nil {
		t.Error("expected 'loop' to have a definition")
	}
	if len(sym.References) != 1 || sym.References[0].Type != RefBranch {
		t.Errorf("expected one branch reference, got %+v", sym.References)
	}
}

func TestXRef_CallMarksFunction(t *testing.T) {
	source := "section .code\ncall helper\nret\nhelper:\nmov $0, 1\nret\n"

	gen := NewXRefGenerator()
	symbols, err := gen.Generate(source, "test.wasm")
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}

	sym := symbols["helper"]
	if sym == nil || !sym.IsFunction {
		t.Error("expected 'helper' to be marked as a function")
	}
}

func TestXRef_LoadStoreMarksDataLabel(t *testing.T) {
	source := "section .code\nload4 $0, msg\nstore4 msg, $0\nret\nsection .static\nmsg:\n.b4 0\n"

	gen := NewXRefGenerator()
	symbols, err := gen.Generate(source, "test.wasm")
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}

	sym := symbols["msg"]
	if sym == nil {
		t.Fatal("expected symbol 'msg'")
	}
	if !sym.IsDataLabel {
		t.Error("expected 'msg' to be marked as a data label")
	}

	var loadCount, storeCount int
	for _, ref := range sym.References {
		switch ref.Type {
		case RefLoad:
			loadCount++
		case RefStore:
			storeCount++
		}
	}
	if loadCount != 1 || storeCount != 1 {
		t.Errorf("expected one load and one store reference, got load=%d store=%d", loadCount, storeCount)
	}
}

func TestXRef_UndefinedSymbol(t *testing.T) {
	source := "section .code\njmp missing\nret\n"

	gen := NewXRefGenerator()
	_, err := gen.Generate(source, "test.wasm")
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}

	undefined := gen.GetUndefinedSymbols()
	if len(undefined) != 1 || undefined[0].Name != "missing" {
		t.Errorf("expected 'missing' in undefined symbols, got %+v", undefined)
	}
}

func TestXRef_UnusedSymbolExcludesEntryPoint(t *testing.T) {
	source := "section .code\n_start:\nmov $0, 1\nret\nunused:\nadd $0, 1\nret\n"

	gen := NewXRefGenerator()
	_, err := gen.Generate(source, "test.wasm")
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}

	unused := gen.GetUnusedSymbols()
	names := make(map[string]bool)
	for _, sym := range unused {
		names[sym.Name] = true
	}
	if !names["unused"] {
		t.Error("expected 'unused' in unused symbols")
	}
	if names["_start"] {
		t.Error("_start should be excluded from unused symbols")
	}
}

func TestXRef_ReportIncludesSummary(t *testing.T) {
	source := "section .code\nmov $0, 10\njmp loop\nloop:\nadd $0, 1\nret\n"

	report, err := GenerateXRef(source, "test.wasm")
	if err != nil {
		t.Fatalf("GenerateXRef error: %v", err)
	}

	if !strings.Contains(report, "Summary") {
		t.Error("expected a summary section in the report")
	}
	if !strings.Contains(report, "loop") {
		t.Error("expected 'loop' symbol in the report")
	}
}

func TestXRef_ParseErrorPropagates(t *testing.T) {
	source := "mov $0, 10\nret\n"

	_, err := (&XRefGenerator{}).Generate(source, "test.wasm")
	if err == nil {
		t.Error("expected parse error for a statement outside of any section")
	}
}

func TestXRef_GetFunctionsAndDataLabels(t *testing.T) {
	source := "section .code\ncall helper\nload4 $0, msg\nret\nhelper:\nret\nsection .static\nmsg:\n.b4 0\n"

	gen := NewXRefGenerator()
	if _, err := gen.Generate(source, "test.wasm"); err != nil {
		t.Fatalf("Generate error: %v", err)
	}

	functions := gen.GetFunctions()
	if len(functions) != 1 || functions[0].Name != "helper" {
		t.Errorf("expected only 'helper' as a function, got %+v", functions)
	}

	dataLabels := gen.GetDataLabels()
	if len(dataLabels) != 1 || dataLabels[0].Name != "msg" {
		t.Errorf("expected only 'msg' as a data label, got %+v", dataLabels)
	}
}
