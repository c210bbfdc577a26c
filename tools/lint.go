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

// LintLevel represents the severity of a lint issue
type LintLevel int

const (
	LintError   LintLevel = iota // parse errors, undefined labels
	LintWarning                  // best-practice violations, likely mistakes
	LintInfo                     // suggestions, style recommendations
)

func (l LintLevel) String() string {
	switch l {
	case LintError:
		return "error"
	case LintWarning:
		return "warning"
	case LintInfo:
		return "info"
	default:
		return "unknown"
	}
}

// LintIssue represents a single lint finding
type LintIssue struct {
	Level   LintLevel
	Line    int
	Column  int
	Message string
	Code    string // e.g. "UNDEF_LABEL", "UNREACHABLE_CODE"
}

func (i *LintIssue) String() string {
	return fmt.Sprintf("line %d:%d: %s: %s [%s]", i.Line, i.Column, i.Level, i.Message, i.Code)
}

// LintOptions controls linter behavior
type LintOptions struct {
	Strict       bool // treat warnings as errors
	CheckUnused  bool // check for unused labels
	CheckReach   bool // check for unreachable code
	CheckRegUse  bool // check register usage
	SuggestFixes bool // suggest fixes for common issues
}

// DefaultLintOptions returns default linter options
func DefaultLintOptions() *LintOptions {
	return &LintOptions{
		Strict:       false,
		CheckUnused:  true,
		CheckReach:   true,
		CheckRegUse:  true,
		SuggestFixes: true,
	}
}

// jumpKinds names every instruction kind whose sole operand is a jump or
// call target, as opposed to a load/store address.
var jumpKinds = map[string]bool{
	"jmp": true, "je": true, "jne": true, "jg": true, "jge": true,
	"ja": true, "jae": true, "jl": true, "jle": true, "jb": true,
	"jbe": true, "jo": true, "jno": true, "jz": true, "jnz": true,
	"js": true, "jns": true, "call": true,
}

// Linter analyzes assembly source for likely mistakes beyond what the
// parser and assembler already reject outright.
type Linter struct {
	options *LintOptions
	issues  []*LintIssue

	definedLabels    map[string]diag.Span
	referencedLabels map[string][]diag.Span
}

// NewLinter creates a new linter
func NewLinter(options *LintOptions) *Linter {
	if options == nil {
		options = DefaultLintOptions()
	}
	return &Linter{
		options:          options,
		issues:           make([]*LintIssue, 0),
		definedLabels:    make(map[string]diag.Span),
		referencedLabels: make(map[string][]diag.Span),
	}
}

// Lint analyzes the given assembly source and returns every issue found,
// sorted by position.
func (l *Linter) Lint(input, filename string) []*LintIssue {
	sink := diag.NewSink()
	p := parser.NewParser(input, filename, sink)
	prog, _ := p.Parse()

	for _, d := range sink.Diagnostics() {
		l.issues = append(l.issues, &LintIssue{
			Level:   LintError,
			Line:    d.Primary.Start.Line,
			Column:  d.Primary.Start.Column,
			Message: d.Message,
			Code:    "PARSE_ERROR",
		})
	}

	if sink.HasErrors() {
		return l.sortedIssues()
	}

	l.collectLabels(prog)
	l.checkUndefinedLabels(prog)

	if l.options.CheckUnused {
		l.checkUnusedLabels()
	}
	if l.options.CheckReach {
		l.checkUnreachableCode(prog)
	}
	if l.options.CheckRegUse {
		l.checkRegisterUsage(prog)
	}
	l.checkStaticData(prog)

	return l.sortedIssues()
}

func (l *Linter) sortedIssues() []*LintIssue {
	sort.Slice(l.issues, func(i, j int) bool {
		if l.issues[i].Line == l.issues[j].Line {
			return l.issues[i].Column < l.issues[j].Column
		}
		return l.issues[i].Line < l.issues[j].Line
	})
	return l.issues
}

// collectLabels records every label definition across both sections.
func (l *Linter) collectLabels(prog *asmir.Program) {
	prog.AllStmts(func(stmt asmir.Stmt) {
		for _, label := range stmt.Labels {
			if existing, ok := l.definedLabels[label.Value]; ok {
				l.issues = append(l.issues, &LintIssue{
					Level:   LintWarning,
					Line:    label.Span.Start.Line,
					Column:  label.Span.Start.Column,
					Message: fmt.Sprintf("duplicate label '%s' (first defined at %s)", label.Value, existing),
					Code:    "DUPLICATE_LABEL",
				})
				continue
			}
			l.definedLabels[label.Value] = label.Span
		}
	})
}

// checkUndefinedLabels reports jump/call targets that never resolve to a
// defined label.
func (l *Linter) checkUndefinedLabels(prog *asmir.Program) {
	prog.AllStmts(func(stmt asmir.Stmt) {
		if stmt.Kind != asmir.StmtInstr {
			return
		}
		inst := stmt.Instr
		if !jumpKinds[strings.ToLower(inst.Name.Value)] {
			return
		}
		for _, arg := range inst.Args {
			if arg.Kind != asmir.ArgLabel {
				continue
			}
			l.checkLabelReference(arg.Label)
		}
	})
}

func (l *Linter) checkLabelReference(label asmir.Ident) {
	l.referencedLabels[label.Value] = append(l.referencedLabels[label.Value], label.Span)

	if _, exists := l.definedLabels[label.Value]; exists {
		return
	}

	suggestion := l.findSimilarLabel(label.Value)
	msg := fmt.Sprintf("undefined label '%s'", label.Value)
	if suggestion != "" && l.options.SuggestFixes {
		msg += fmt.Sprintf(" (did you mean '%s'?)", suggestion)
	}
	l.issues = append(l.issues, &LintIssue{
		Level:   LintError,
		Line:    label.Span.Start.Line,
		Column:  label.Span.Start.Column,
		Message: msg,
		Code:    "UNDEF_LABEL",
	})
}

// checkUnusedLabels warns about labels that are defined but never the
// target of any jump or call.
func (l *Linter) checkUnusedLabels() {
	for name, span := range l.definedLabels {
		if isSpecialLabel(name) {
			continue
		}
		if _, used := l.referencedLabels[name]; !used {
			l.issues = append(l.issues, &LintIssue{
				Level:   LintWarning,
				Line:    span.Start.Line,
				Column:  span.Start.Column,
				Message: fmt.Sprintf("label '%s' defined but never referenced", name),
				Code:    "UNUSED_LABEL",
			})
		}
	}
}

// checkUnreachableCode detects a statement with no label immediately
// following a jmp or ret — such a statement can
// never be reached by falling through.
func (l *Linter) checkUnreachableCode(prog *asmir.Program) {
	stmts := prog.CodeSection.Stmts
	for i, stmt := range stmts {
		if stmt.Kind != asmir.StmtInstr {
			continue
		}
		mnem := strings.ToLower(stmt.Instr.Name.Value)
		if mnem != "jmp" && mnem != "ret" {
			continue
		}
		if i+1 >= len(stmts) {
			continue
		}
		next := stmts[i+1]
		if len(next.Labels) > 0 {
			continue
		}
		l.issues = append(l.issues, &LintIssue{
			Level:   LintWarning,
			Line:    statementLine(next),
			Column:  1,
			Message: "unreachable code detected",
			Code:    "UNREACHABLE_CODE",
		})
	}
}

func statementLine(stmt asmir.Stmt) int {
	if stmt.Kind == asmir.StmtInstr {
		return stmt.Instr.Name.Span.Start.Line
	}
	return stmt.StaticData.BytesSpan.Start.Line
}

// checkRegisterUsage flags instructions whose register operands alias
// each other in a way the ISA disallows or discourages.
func (l *Linter) checkRegisterUsage(prog *asmir.Program) {
	prog.AllStmts(func(stmt asmir.Stmt) {
		if stmt.Kind != asmir.StmtInstr {
			return
		}
		inst := stmt.Instr
		kind, ok := isa.KindFromMnemonic(strings.ToLower(inst.Name.Value))
		if !ok {
			return
		}

		if kind == isa.Mull || kind == isa.Mullu || kind == isa.Divr || kind == isa.Divru {
			if len(inst.Args) >= 2 && registerKey(inst.Args[0]) == registerKey(inst.Args[1]) && registerKey(inst.Args[0]) != "" {
				l.issues = append(l.issues, &LintIssue{
					Level:   LintWarning,
					Line:    inst.Name.Span.Start.Line,
					Column:  inst.Name.Span.Start.Column,
					Message: fmt.Sprintf("%s: the two destination registers are the same; only the second result survives", inst.Name.Value),
					Code:    "ALIASED_DEST_REGS",
				})
			}
		}
	})
}

func registerKey(arg asmir.InstrArg) string {
	if arg.Kind != asmir.ArgRegister {
		return ""
	}
	if arg.Register.Kind == asmir.RegisterNamed {
		return arg.Register.Name
	}
	return fmt.Sprintf("$%d", arg.Register.Number)
}

// checkStaticData warns about static-data directives likely to be
// mistakes, such as a zero-length run.
func (l *Linter) checkStaticData(prog *asmir.Program) {
	for _, stmt := range prog.StaticSection.Stmts {
		if stmt.Kind != asmir.StmtStaticData {
			continue
		}
		data := stmt.StaticData
		switch data.Kind {
		case asmir.StaticKindZero, asmir.StaticKindUninit:
			if data.NBytes.Value == 0 {
				l.issues = append(l.issues, &LintIssue{
					Level:   LintWarning,
					Line:    data.NBytes.Span.Start.Line,
					Column:  data.NBytes.Span.Start.Column,
					Message: "zero-length static-data directive has no effect",
					Code:    "EMPTY_STATIC_DATA",
				})
			}
		case asmir.StaticKindByteStr:
			if len(data.ByteStr.Value) == 0 {
				l.issues = append(l.issues, &LintIssue{
					Level:   LintWarning,
					Line:    data.ByteStr.Span.Start.Line,
					Column:  data.ByteStr.Span.Start.Column,
					Message: "empty byte string has no effect",
					Code:    "EMPTY_STATIC_DATA",
				})
			}
		}
	}
}

// findSimilarLabel finds a defined label with a similar spelling, for
// "did you mean" suggestions.
func (l *Linter) findSimilarLabel(target string) string {
	lowered := strings.ToLower(target)
	bestMatch := ""
	bestDistance := 4 // max edit distance worth suggesting

	for label := range l.definedLabels {
		dist := levenshteinDistance(strings.ToLower(label), lowered)
		if dist < bestDistance {
			bestMatch = label
			bestDistance = dist
		}
	}

	return bestMatch
}

// levenshteinDistance calculates edit distance between two strings
func levenshteinDistance(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	matrix := make([][]int, len(s1)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(s2)+1)
		matrix[i][0] = i
	}
	for j := range matrix[0] {
		matrix[0][j] = j
	}

	for i := 1; i <= len(s1); i++ {
		for j := 1; j <= len(s2); j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}
			matrix[i][j] = minInt(
				matrix[i-1][j]+1,      // deletion
				matrix[i][j-1]+1,      // insertion
				matrix[i-1][j-1]+cost, // substitution
			)
		}
	}

	return matrix[len(s1)][len(s2)]
}

// isSpecialLabel checks if a label is a conventional entry point that may
// legitimately go unreferenced within the file (the loader starts
// execution there instead of via a jump).
func isSpecialLabel(label string) bool {
	special := []string{"_start", "main", "__start", "start"}
	for _, s := range special {
		if strings.EqualFold(label, s) {
			return true
		}
	}
	return false
}

func minInt(a, b, c int) int {
	if a < b {
		if a < c {
			return a
		}
		return c
	}
	if b < c {
		return b
	}
	return c
}
