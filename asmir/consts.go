package asmir

import (
	"math/big"

	"github.com/lookbusy1344/wolfvm/diag"
)

// ConstEntry is one named `.const` value.
type ConstEntry struct {
	Name  Ident
	Value Immediate
}

// ConstTable maps constant names to their values. Built once per program
// from every `.const` directive before instruction validation substitutes
// name-valued operands (spec.md §4.4).
type ConstTable struct {
	entries map[string]ConstEntry
}

// NewConstTable builds a constant table from the program's `.const`
// directives. A duplicate name with an identical value is permitted
// silently; a duplicate with a different value emits a warning and keeps
// the first definition. A name that collides with any label defined in
// the program is an error.
func NewConstTable(directives []ConstEntry, labels map[string]diag.Span, sink *diag.Sink) *ConstTable {
	t := &ConstTable{entries: make(map[string]ConstEntry, len(directives))}

	for _, entry := range directives {
		if labelSpan, isLabel := labels[entry.Name.Value]; isLabel {
			d := sink.Error(diag.KindDuplicateName, entry.Name.Span,
				"constant `%s` has the same name as a label", entry.Name.Value)
			diag.AddSecondary(d, labelSpan, "label `%s` defined here", entry.Name.Value)
			continue
		}

		existing, ok := t.entries[entry.Name.Value]
		if !ok {
			t.entries[entry.Name.Value] = entry
			continue
		}
		if existing.Value.Value.Cmp(entry.Value.Value) != 0 {
			d := sink.Warning(diag.KindDuplicateName, entry.Name.Span,
				"constant `%s` redefined with a different value (keeping the first definition)", entry.Name.Value)
			diag.AddSecondary(d, existing.Name.Span, "first defined here")
		}
	}

	return t
}

// Lookup returns the constant's value if name names a known constant.
func (t *ConstTable) Lookup(name string) (Immediate, bool) {
	entry, ok := t.entries[name]
	return entry.Value, ok
}

// Substitute rewrites a name-valued operand into either a constant
// immediate or a (still-unresolved) label reference, per spec.md §4.4's
// substitution rule: try the constant table first, otherwise leave it as
// a label to be resolved at layout time.
func (t *ConstTable) Substitute(arg InstrArg) InstrArg {
	if arg.Kind != ArgLabel {
		return arg
	}
	if value, ok := t.Lookup(arg.Label.Value); ok {
		return InstrArg{Kind: ArgImmediate, Immediate: Immediate{Value: new(big.Int).Set(value.Value), Span: arg.Label.Span}}
	}
	return arg
}
