package tools

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lookbusy1344/wolfvm/asmir"
	"github.com/lookbusy1344/wolfvm/diag"
	"github.com/lookbusy1344/wolfvm/isa"
	"github.com/lookbusy1344/wolfvm/parser"
)

// ReferenceType indicates how a symbol is used
type ReferenceType int

const (
	RefDefinition ReferenceType = iota // symbol defined here
	RefBranch                          // jump target
	RefCall                            // call target
	RefLoad                            // address operand of a load*
	RefStore                           // address operand of a store*
)

func (r ReferenceType) String() string {
	switch r {
	case RefDefinition:
		return "definition"
	case RefBranch:
		return "branch"
	case RefCall:
		return "call"
	case RefLoad:
		return "load"
	case RefStore:
		return "store"
	default:
		return "unknown"
	}
}

// Reference represents a single reference to a symbol
type Reference struct {
	Type   ReferenceType
	Line   int
	Column int
}

// Symbol represents a label and every place it is defined or used
type Symbol struct {
	Name        string
	Definition  *Reference
	References  []*Reference
	IsFunction  bool // true if referenced by at least one call
	IsDataLabel bool // true if defined on static data or referenced by at least one load/store
}

// XRefGenerator generates cross-reference information for a program's
// labels: where each is defined, and every jump, call, load, or store
// that targets it.
type XRefGenerator struct {
	symbols map[string]*Symbol
}

// NewXRefGenerator creates a new cross-reference generator
func NewXRefGenerator() *XRefGenerator {
	return &XRefGenerator{
		symbols: make(map[string]*Symbol),
	}
}

// branchRefType classifies a jump or call mnemonic's sole label operand;
// loadKinds and storeKinds mark the load and store instruction kinds.
var branchRefType = map[string]ReferenceType{
	"jmp": RefBranch, "je": RefBranch, "jne": RefBranch, "jg": RefBranch,
	"jge": RefBranch, "ja": RefBranch, "jae": RefBranch, "jl": RefBranch,
	"jle": RefBranch, "jb": RefBranch, "jbe": RefBranch, "jo": RefBranch,
	"jno": RefBranch, "jz": RefBranch, "jnz": RefBranch, "js": RefBranch,
	"jns": RefBranch, "call": RefCall,
}

var loadKinds = map[isa.Kind]bool{
	isa.Load1: true, isa.Loadu1: true, isa.Load2: true, isa.Loadu2: true,
	isa.Load4: true, isa.Loadu4: true, isa.Load8: true, isa.Loadu8: true,
}

var storeKinds = map[isa.Kind]bool{
	isa.Store1: true, isa.Store2: true, isa.Store4: true, isa.Store8: true,
}

// Generate generates cross-reference information from assembly source.
func (x *XRefGenerator) Generate(input, filename string) (map[string]*Symbol, error) {
	sink := diag.NewSink()
	p := parser.NewParser(input, filename, sink)
	prog, _ := p.Parse()
	if sink.HasErrors() {
		return nil, fmt.Errorf("parse error:\n%s", sink)
	}

	x.symbols = make(map[string]*Symbol)
	x.collectDefinitions(prog)
	x.collectReferences(prog)

	return x.symbols, nil
}

func (x *XRefGenerator) symbolFor(name string) *Symbol {
	sym, ok := x.symbols[name]
	if !ok {
		sym = &Symbol{Name: name}
		x.symbols[name] = sym
	}
	return sym
}

// collectDefinitions records every label definition across both sections.
func (x *XRefGenerator) collectDefinitions(prog *asmir.Program) {
	prog.AllStmts(func(stmt asmir.Stmt) {
		for _, label := range stmt.Labels {
			sym := x.symbolFor(label.Value)
			if sym.Definition == nil {
				sym.Definition = &Reference{
					Type:   RefDefinition,
					Line:   label.Span.Start.Line,
					Column: label.Span.Start.Column,
				}
			}
			if stmt.Kind == asmir.StmtStaticData {
				sym.IsDataLabel = true
			}
		}
	})
}

// collectReferences records every jump, call, load, or store that
// targets a label.
func (x *XRefGenerator) collectReferences(prog *asmir.Program) {
	prog.AllStmts(func(stmt asmir.Stmt) {
		if stmt.Kind != asmir.StmtInstr {
			return
		}
		inst := stmt.Instr
		mnem := strings.ToLower(inst.Name.Value)

		if refType, ok := branchRefType[mnem]; ok {
			for _, arg := range inst.Args {
				if arg.Kind == asmir.ArgLabel {
					x.addReference(arg.Label, refType)
				}
			}
			return
		}

		kind, ok := isa.KindFromMnemonic(mnem)
		if !ok {
			return
		}
		refType := RefLoad
		isMemOp := loadKinds[kind]
		if storeKinds[kind] {
			refType = RefStore
			isMemOp = true
		}
		if !isMemOp {
			return
		}
		for _, arg := range inst.Args {
			if arg.Kind == asmir.ArgLabel {
				x.addReference(arg.Label, refType)
			}
		}
	})
}

func (x *XRefGenerator) addReference(label asmir.Ident, refType ReferenceType) {
	sym := x.symbolFor(label.Value)
	sym.References = append(sym.References, &Reference{
		Type:   refType,
		Line:   label.Span.Start.Line,
		Column: label.Span.Start.Column,
	})
	switch refType {
	case RefCall:
		sym.IsFunction = true
	case RefLoad, RefStore:
		sym.IsDataLabel = true
	}
}

// XRefReport renders cross-reference information as plain text.
type XRefReport struct {
	symbols []*Symbol
}

// NewXRefReport creates a new cross-reference report, symbols sorted by name.
func NewXRefReport(symbols map[string]*Symbol) *XRefReport {
	sorted := make([]*Symbol, 0, len(symbols))
	for _, sym := range symbols {
		sorted = append(sorted, sym)
	}
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})
	return &XRefReport{symbols: sorted}
}

// String generates a text report.
func (r *XRefReport) String() string {
	var sb strings.Builder

	sb.WriteString("Symbol Cross-Reference\n")
	sb.WriteString("=======================\n\n")

	for _, sym := range r.symbols {
		fmt.Fprintf(&sb, "%-30s", sym.Name)
		switch {
		case sym.IsFunction:
			sb.WriteString(" [function]")
		case sym.IsDataLabel:
			sb.WriteString(" [data]")
		default:
			sb.WriteString(" [label]")
		}
		sb.WriteString("\n")

		if sym.Definition != nil {
			fmt.Fprintf(&sb, "  Defined:     line %d\n", sym.Definition.Line)
		} else {
			sb.WriteString("  Defined:     (undefined)\n")
		}

		if len(sym.References) == 0 {
			sb.WriteString("  Referenced:  (never)\n")
		} else {
			fmt.Fprintf(&sb, "  Referenced:  %d time(s)\n", len(sym.References))

			refsByType := make(map[ReferenceType][]*Reference)
			for _, ref := range sym.References {
				refsByType[ref.Type] = append(refsByType[ref.Type], ref)
			}

			for _, refType := range []ReferenceType{RefCall, RefBranch, RefLoad, RefStore} {
				refs := refsByType[refType]
				if len(refs) == 0 {
					continue
				}
				lines := make([]string, len(refs))
				for i, ref := range refs {
					lines[i] = fmt.Sprintf("%d", ref.Line)
				}
				fmt.Fprintf(&sb, "    %-10s: line(s) %s\n", refType.String(), strings.Join(lines, ", "))
			}
		}

		sb.WriteString("\n")
	}

	totalSymbols := len(r.symbols)
	definedSymbols := 0
	undefinedSymbols := 0
	unusedSymbols := 0
	functionCount := 0

	for _, sym := range r.symbols {
		if sym.Definition != nil {
			definedSymbols++
		} else {
			undefinedSymbols++
		}
		if len(sym.References) == 0 {
			unusedSymbols++
		}
		if sym.IsFunction {
			functionCount++
		}
	}

	sb.WriteString("Summary\n")
	sb.WriteString("=======\n")
	fmt.Fprintf(&sb, "Total symbols:     %d\n", totalSymbols)
	fmt.Fprintf(&sb, "Defined:           %d\n", definedSymbols)
	fmt.Fprintf(&sb, "Undefined:         %d\n", undefinedSymbols)
	fmt.Fprintf(&sb, "Unused:            %d\n", unusedSymbols)
	fmt.Fprintf(&sb, "Functions:         %d\n", functionCount)

	return sb.String()
}

// GenerateXRef is a convenience function to generate a cross-reference report.
func GenerateXRef(input, filename string) (string, error) {
	gen := NewXRefGenerator()
	symbols, err := gen.Generate(input, filename)
	if err != nil {
		return "", err
	}
	report := NewXRefReport(symbols)
	return report.String(), nil
}

// GetSymbols returns all symbols found in the source.
func (x *XRefGenerator) GetSymbols() map[string]*Symbol {
	return x.symbols
}

// GetSymbol returns a specific symbol by name.
func (x *XRefGenerator) GetSymbol(name string) (*Symbol, bool) {
	sym, exists := x.symbols[name]
	return sym, exists
}

// GetFunctions returns all symbols called at least once, sorted by name.
func (x *XRefGenerator) GetFunctions() []*Symbol {
	functions := make([]*Symbol, 0)
	for _, sym := range x.symbols {
		if sym.IsFunction {
			functions = append(functions, sym)
		}
	}
	sort.Slice(functions, func(i, j int) bool { return functions[i].Name < functions[j].Name })
	return functions
}

// GetDataLabels returns all symbols defined on static data or referenced by
// a load or store, sorted by name.
func (x *XRefGenerator) GetDataLabels() []*Symbol {
	dataLabels := make([]*Symbol, 0)
	for _, sym := range x.symbols {
		if sym.IsDataLabel {
			dataLabels = append(dataLabels, sym)
		}
	}
	sort.Slice(dataLabels, func(i, j int) bool { return dataLabels[i].Name < dataLabels[j].Name })
	return dataLabels
}

// GetUndefinedSymbols returns all symbols that are referenced but never defined.
func (x *XRefGenerator) GetUndefinedSymbols() []*Symbol {
	undefined := make([]*Symbol, 0)
	for _, sym := range x.symbols {
		if sym.Definition == nil && len(sym.References) > 0 {
			undefined = append(undefined, sym)
		}
	}
	sort.Slice(undefined, func(i, j int) bool { return undefined[i].Name < undefined[j].Name })
	return undefined
}

// GetUnusedSymbols returns all symbols that are defined but never referenced,
// excluding conventional entry-point labels.
func (x *XRefGenerator) GetUnusedSymbols() []*Symbol {
	unused := make([]*Symbol, 0)
	for _, sym := range x.symbols {
		if sym.Definition != nil && len(sym.References) == 0 && !isSpecialLabel(sym.Name) {
			unused = append(unused, sym)
		}
	}
	sort.Slice(unused, func(i, j int) bool { return unused[i].Name < unused[j].Name })
	return unused
}
