package tools

import (
	"fmt"
	"strings"

	"github.com/lookbusy1344/wolfvm/asmir"
	"github.com/lookbusy1344/wolfvm/diag"
	"github.com/lookbusy1344/wolfvm/parser"
)

// FormatStyle defines formatting options
type FormatStyle int

const (
	FormatDefault  FormatStyle = iota // Standard formatting
	FormatCompact                     // Minimal whitespace
	FormatExpanded                    // Extra whitespace for readability
)

// FormatOptions controls formatter behavior
type FormatOptions struct {
	Style             FormatStyle
	InstructionColumn int  // Column for instructions (default: 8)
	OperandColumn     int  // Column for operands (default: 16)
	AlignOperands     bool // Align operands in columns
}

// DefaultFormatOptions returns default formatter options
func DefaultFormatOptions() *FormatOptions {
	return &FormatOptions{
		Style:             FormatDefault,
		InstructionColumn: 8,
		OperandColumn:     16,
		AlignOperands:     true,
	}
}

// CompactFormatOptions returns options for compact formatting
func CompactFormatOptions() *FormatOptions {
	opts := DefaultFormatOptions()
	opts.Style = FormatCompact
	opts.InstructionColumn = 0
	opts.OperandColumn = 0
	opts.AlignOperands = false
	return opts
}

// ExpandedFormatOptions returns options for expanded formatting
func ExpandedFormatOptions() *FormatOptions {
	opts := DefaultFormatOptions()
	opts.Style = FormatExpanded
	opts.InstructionColumn = 12
	opts.OperandColumn = 24
	return opts
}

// Formatter formats assembly source code into its canonical textual form:
// one `section` header per section, one label per line, and instructions
// with their mnemonic and operands aligned into columns.
type Formatter struct {
	options *FormatOptions
	output  strings.Builder
}

// NewFormatter creates a new formatter
func NewFormatter(options *FormatOptions) *Formatter {
	if options == nil {
		options = DefaultFormatOptions()
	}
	return &Formatter{options: options}
}

// Format formats the given assembly source code
func (f *Formatter) Format(input, filename string) (string, error) {
	sink := diag.NewSink()
	p := parser.NewParser(input, filename, sink)
	prog, _ := p.Parse()
	if sink.HasErrors() {
		return "", fmt.Errorf("parse error:\n%s", sink)
	}

	f.output.Reset()
	f.formatSection(".code", prog.CodeSection)
	if len(prog.StaticSection.Stmts) > 0 {
		f.formatSection(".static", prog.StaticSection)
	}

	return f.output.String(), nil
}

func (f *Formatter) formatSection(name string, section asmir.Section) {
	f.output.WriteString("section ")
	f.output.WriteString(name)
	f.output.WriteString("\n")

	for _, stmt := range section.Stmts {
		for _, label := range stmt.Labels {
			f.output.WriteString(label.Value)
			f.output.WriteString(":\n")
		}

		switch stmt.Kind {
		case asmir.StmtInstr:
			f.formatInstruction(stmt.Instr)
		default:
			f.formatStaticData(stmt.StaticData)
		}
	}
}

// formatInstruction formats a single instruction
func (f *Formatter) formatInstruction(inst asmir.Instr) {
	line := strings.Builder{}

	if f.options.Style != FormatCompact {
		f.padToColumn(&line, f.options.InstructionColumn)
	}

	mnemonic := strings.ToLower(inst.Name.Value)
	line.WriteString(mnemonic)

	if len(inst.Args) > 0 {
		if f.options.Style == FormatCompact {
			line.WriteString(" ")
		} else if f.options.AlignOperands {
			f.padToColumn(&line, f.options.OperandColumn)
		} else {
			line.WriteString(" ")
		}
		line.WriteString(f.formatOperands(inst.Args))
	}

	f.output.WriteString(line.String())
	f.output.WriteString("\n")
}

// formatStaticData formats a single static-data directive
func (f *Formatter) formatStaticData(data asmir.StaticData) {
	line := strings.Builder{}

	if f.options.Style != FormatCompact {
		f.padToColumn(&line, f.options.InstructionColumn)
	}

	switch data.Kind {
	case asmir.StaticKindBytes:
		fmt.Fprintf(&line, ".b%d %d", data.BytesWidth, littleEndianValue(data.BytesValue, int(data.BytesWidth)))
	case asmir.StaticKindZero:
		fmt.Fprintf(&line, ".zero %d", data.NBytes.Value)
	case asmir.StaticKindUninit:
		fmt.Fprintf(&line, ".uninit %d", data.NBytes.Value)
	case asmir.StaticKindByteStr:
		fmt.Fprintf(&line, ".bytes %q", string(data.ByteStr.Value))
	}

	f.output.WriteString(line.String())
	f.output.WriteString("\n")
}

func littleEndianValue(b [8]byte, width int) uint64 {
	var v uint64
	for i := width - 1; i >= 0; i-- {
		v = (v << 8) | uint64(b[i])
	}
	return v
}

// formatOperands renders an instruction's argument list
func (f *Formatter) formatOperands(args []asmir.InstrArg) string {
	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = formatArg(arg)
	}
	return strings.Join(parts, ", ")
}

func formatArg(arg asmir.InstrArg) string {
	switch arg.Kind {
	case asmir.ArgRegister:
		if arg.Register.Kind == asmir.RegisterNamed {
			return "$" + arg.Register.Name
		}
		return fmt.Sprintf("$%d", arg.Register.Number)
	case asmir.ArgImmediate:
		return arg.Immediate.Value.String()
	default:
		return arg.Label.Value
	}
}

// padToColumn pads the string builder to the specified column
func (f *Formatter) padToColumn(sb *strings.Builder, column int) {
	current := sb.Len()
	if current < column {
		sb.WriteString(strings.Repeat(" ", column-current))
	} else if current > column {
		sb.WriteString(" ")
	}
}

// FormatString is a convenience function to format a string with default options
func FormatString(input, filename string) (string, error) {
	formatter := NewFormatter(DefaultFormatOptions())
	return formatter.Format(input, filename)
}

// FormatStringWithStyle formats a string with the specified style
func FormatStringWithStyle(input, filename string, style FormatStyle) (string, error) {
	var options *FormatOptions
	switch style {
	case FormatCompact:
		options = CompactFormatOptions()
	case FormatExpanded:
		options = ExpandedFormatOptions()
	default:
		options = DefaultFormatOptions()
	}
	formatter := NewFormatter(options)
	return formatter.Format(input, filename)
}
