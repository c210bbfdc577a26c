package parser

import (
	"math/big"

	"github.com/lookbusy1344/wolfvm/asmir"
	"github.com/lookbusy1344/wolfvm/diag"
)

type sectionKind int

const (
	sectionNone sectionKind = iota
	sectionCode
	sectionStatic
)

// Parser turns a token stream into an asmir.Program and the program's
// `.const` directives. It also groups statements into the code and static
// sections and enforces section-header ordering, since asmir.Program's
// shape already assumes a sectioned statement list rather than a flat one.
type Parser struct {
	lexer    *Lexer
	filename string
	sink     *diag.Sink

	cur  Token
	peek Token

	pendingLabels []asmir.Ident

	codeSection   asmir.Section
	staticSection asmir.Section
	current       sectionKind

	consts []asmir.ConstEntry
}

// NewParser creates a parser over source, reporting diagnostics to sink.
func NewParser(source, filename string, sink *diag.Sink) *Parser {
	p := &Parser{filename: filename, sink: sink, lexer: NewLexer(source, filename, sink)}
	p.cur = p.lexer.NextToken()
	p.peek = p.lexer.NextToken()
	return p
}

func (p *Parser) advance() {
	p.cur = p.peek
	p.peek = p.lexer.NextToken()
}

func (p *Parser) span(pos diag.Position) diag.Span {
	return diag.Span{Start: pos, End: pos}
}

// Parse consumes the whole token stream and returns the assembled program
// plus the `.const` directives encountered (not yet substituted).
func (p *Parser) Parse() (*asmir.Program, []asmir.ConstEntry) {
	for p.cur.Type != TokenEOF {
		if p.cur.Type == TokenNewline {
			p.advance()
			continue
		}
		p.parseStatement()
	}

	if len(p.pendingLabels) > 0 {
		last := p.pendingLabels[len(p.pendingLabels)-1]
		p.sink.Error(diag.KindParseError, last.Span, "label `%s` is not followed by a statement", last.Value)
	}

	return &asmir.Program{CodeSection: p.codeSection, StaticSection: p.staticSection}, p.consts
}

// recoverToNewline discards tokens up to (and including) the next newline
// or EOF, used after a statement-level error to resynchronize.
func (p *Parser) recoverToNewline() {
	for p.cur.Type != TokenNewline && p.cur.Type != TokenEOF {
		p.advance()
	}
	if p.cur.Type == TokenNewline {
		p.advance()
	}
}

func (p *Parser) expectStatementEnd() {
	if p.cur.Type != TokenNewline && p.cur.Type != TokenEOF {
		p.sink.Error(diag.KindParseError, p.span(p.cur.Pos), "unexpected token %s after statement, expected end of line", p.cur)
		p.recoverToNewline()
		return
	}
	if p.cur.Type == TokenNewline {
		p.advance()
	}
}

func (p *Parser) parseStatement() {
	switch {
	case p.cur.Type == TokenIdent && p.cur.Literal == "section" && p.peek.Type == TokenDirective:
		p.parseSectionHeader()

	case p.cur.Type == TokenIdent && p.peek.Type == TokenColon:
		p.parseLabel()

	case p.cur.Type == TokenDirective && p.cur.Literal == ".const":
		p.parseConst()

	case p.cur.Type == TokenDirective:
		p.parseStaticData()

	case p.cur.Type == TokenIdent:
		p.parseInstruction()

	default:
		p.sink.Error(diag.KindParseError, p.span(p.cur.Pos), "unexpected token %s, expected a label, directive, or instruction", p.cur)
		p.recoverToNewline()
	}
}

func (p *Parser) parseSectionHeader() {
	pos := p.cur.Pos
	p.advance() // "section"
	directive := p.cur.Literal
	headerSpan := p.span(p.cur.Pos)
	p.advance() // ".code" / ".static"

	switch directive {
	case ".code":
		if p.current != sectionNone || p.codeSection.Stmts != nil || p.codeSection.HeaderSpan != (diag.Span{}) {
			p.sink.Error(diag.KindDuplicateSection, headerSpan, "duplicate `section .code` header")
		} else {
			p.codeSection.HeaderSpan = headerSpan
		}
		p.current = sectionCode

	case ".static":
		if p.current == sectionNone {
			p.sink.Error(diag.KindSectionOrderError, headerSpan, "`section .static` appears before `section .code`")
		}
		if p.staticSection.Stmts != nil || p.staticSection.HeaderSpan != (diag.Span{}) {
			p.sink.Error(diag.KindDuplicateSection, headerSpan, "duplicate `section .static` header")
		} else {
			p.staticSection.HeaderSpan = headerSpan
		}
		p.current = sectionStatic

	default:
		p.sink.Error(diag.KindParseError, p.span(pos), "unknown section `%s`, expected `.code` or `.static`", directive)
	}

	p.expectStatementEnd()
}

func (p *Parser) parseLabel() {
	name := p.cur.Literal
	span := p.span(p.cur.Pos)
	p.advance() // ident
	p.advance() // colon
	p.pendingLabels = append(p.pendingLabels, asmir.Ident{Value: name, Span: span})
	p.expectStatementEnd()
}

func (p *Parser) takeLabels() []asmir.Ident {
	labels := p.pendingLabels
	p.pendingLabels = nil
	return labels
}

func (p *Parser) appendStmt(stmt asmir.Stmt) {
	switch p.current {
	case sectionCode:
		p.codeSection.Stmts = append(p.codeSection.Stmts, stmt)
	case sectionStatic:
		p.staticSection.Stmts = append(p.staticSection.Stmts, stmt)
	default:
		pos := p.cur.Pos
		p.sink.Error(diag.KindSectionOrderError, p.span(pos), "statement outside of any `section` block")
	}
}

func (p *Parser) parseConst() {
	pos := p.cur.Pos
	p.advance() // .const

	if p.cur.Type != TokenIdent {
		p.sink.Error(diag.KindParseError, p.span(pos), "`.const` requires a name, found %s", p.cur)
		p.recoverToNewline()
		return
	}
	name := asmir.Ident{Value: p.cur.Literal, Span: p.span(p.cur.Pos)}
	p.advance()

	value, ok := p.parseImmediateValue()
	if !ok {
		p.recoverToNewline()
		return
	}
	p.consts = append(p.consts, asmir.ConstEntry{Name: name, Value: value})
	p.expectStatementEnd()
}

func (p *Parser) parseStaticData() {
	labels := p.takeLabels()
	directive := p.cur.Literal
	pos := p.cur.Pos

	var data asmir.StaticData

	switch directive {
	case ".b1", ".b2", ".b4", ".b8":
		width := map[string]asmir.StaticBytesWidth{".b1": asmir.Width1, ".b2": asmir.Width2, ".b4": asmir.Width4, ".b8": asmir.Width8}[directive]
		p.advance()
		value, ok := p.parseImmediateValue()
		if !ok {
			p.recoverToNewline()
			return
		}
		if !fitsByteWidth(value.Value, int(width)) {
			p.sink.Error(diag.KindImmediateRangeError, value.Span, "value %s does not fit in %d byte(s)", value.Value.String(), width)
		}
		data = asmir.StaticData{Kind: asmir.StaticKindBytes, BytesWidth: width, BytesValue: packLowBytes(value.Value), BytesSpan: value.Span}

	case ".zero", ".uninit":
		p.advance()
		size, ok := p.parseSizeValue()
		if !ok {
			p.recoverToNewline()
			return
		}
		kind := asmir.StaticKindZero
		if directive == ".uninit" {
			kind = asmir.StaticKindUninit
		}
		data = asmir.StaticData{Kind: kind, NBytes: size}

	case ".bytes":
		p.advance()
		if p.cur.Type != TokenString {
			p.sink.Error(diag.KindParseError, p.span(pos), "`.bytes` requires a string literal, found %s", p.cur)
			p.recoverToNewline()
			return
		}
		strPos := p.cur.Pos
		raw := UnescapeBytes(p.cur.Literal, strPos, p.sink)
		data = asmir.StaticData{Kind: asmir.StaticKindByteStr, ByteStr: asmir.Bytes{Value: raw, Span: p.span(strPos)}}
		p.advance()

	default:
		p.sink.Error(diag.KindParseError, p.span(pos), "unknown directive `%s`", directive)
		p.recoverToNewline()
		return
	}

	p.appendStmt(asmir.Stmt{Labels: labels, Kind: asmir.StmtStaticData, StaticData: data})
	p.expectStatementEnd()
}

func (p *Parser) parseInstruction() {
	labels := p.takeLabels()
	name := asmir.Ident{Value: p.cur.Literal, Span: p.span(p.cur.Pos)}
	p.advance()

	var args []asmir.InstrArg
	if p.cur.Type != TokenNewline && p.cur.Type != TokenEOF {
		for {
			arg, ok := p.parseOperand()
			if !ok {
				p.recoverToNewline()
				return
			}
			args = append(args, arg)
			if p.cur.Type != TokenComma {
				break
			}
			p.advance()
		}
	}

	p.appendStmt(asmir.Stmt{Labels: labels, Kind: asmir.StmtInstr, Instr: asmir.Instr{Name: name, Args: args}})
	p.expectStatementEnd()
}

func (p *Parser) parseOperand() (asmir.InstrArg, bool) {
	switch p.cur.Type {
	case TokenRegister:
		reg, ok := p.parseRegister()
		if !ok {
			return asmir.InstrArg{}, false
		}
		return asmir.InstrArg{Kind: asmir.ArgRegister, Register: reg}, true

	case TokenNumber:
		imm, ok := p.parseImmediateValue()
		if !ok {
			return asmir.InstrArg{}, false
		}
		return asmir.InstrArg{Kind: asmir.ArgImmediate, Immediate: imm}, true

	case TokenIdent:
		label := asmir.Ident{Value: p.cur.Literal, Span: p.span(p.cur.Pos)}
		p.advance()
		return asmir.InstrArg{Kind: asmir.ArgLabel, Label: label}, true

	default:
		p.sink.Error(diag.KindParseError, p.span(p.cur.Pos), "unexpected token %s, expected a register, immediate, or label", p.cur)
		return asmir.InstrArg{}, false
	}
}

func (p *Parser) parseRegister() (asmir.Register, bool) {
	literal := p.cur.Literal
	pos := p.span(p.cur.Pos)
	p.advance()

	if literal == "sp" || literal == "fp" {
		return asmir.Register{Kind: asmir.RegisterNamed, Name: literal, Span: pos}, true
	}
	n, ok, isNumeric := isRegisterName(literal)
	if !isNumeric || !ok {
		p.sink.Error(diag.KindParseError, pos, "invalid register `$%s`, expected `$0`-`$63`, `$sp`, or `$fp`", literal)
		return asmir.Register{}, false
	}
	return asmir.Register{Kind: asmir.RegisterNumbered, Number: n, Span: pos}, true
}

// parseImmediateValue parses the current TokenNumber as an asmir.Immediate.
func (p *Parser) parseImmediateValue() (asmir.Immediate, bool) {
	if p.cur.Type != TokenNumber {
		p.sink.Error(diag.KindParseError, p.span(p.cur.Pos), "expected a number, found %s", p.cur)
		return asmir.Immediate{}, false
	}
	value, ok := parseBigInt(p.cur.Literal)
	pos := p.span(p.cur.Pos)
	if !ok {
		p.sink.Error(diag.KindParseError, pos, "invalid numeric literal `%s`", p.cur.Literal)
		return asmir.Immediate{}, false
	}
	p.advance()
	return asmir.Immediate{Value: value, Span: pos}, true
}

// parseSizeValue parses the current TokenNumber as a non-negative byte count.
func (p *Parser) parseSizeValue() (asmir.Size, bool) {
	imm, ok := p.parseImmediateValue()
	if !ok {
		return asmir.Size{}, false
	}
	if imm.Value.Sign() < 0 || !imm.Value.IsUint64() {
		p.sink.Error(diag.KindImmediateRangeError, imm.Span, "size must be a non-negative integer fitting in 64 bits, found `%s`", imm.Value.String())
		return asmir.Size{}, false
	}
	return asmir.Size{Value: imm.Value.Uint64(), Span: imm.Span}, true
}

// parseBigInt parses a lexed number literal (decimal, 0x hex, 0b binary,
// optionally negative) into a big.Int.
func parseBigInt(literal string) (*big.Int, bool) {
	neg := false
	s := literal
	if len(s) > 0 && s[0] == '-' {
		neg = true
		s = s[1:]
	}

	base := 10
	switch {
	case len(s) > 2 && (s[0:2] == "0x" || s[0:2] == "0X"):
		base = 16
		s = s[2:]
	case len(s) > 2 && (s[0:2] == "0b" || s[0:2] == "0B"):
		base = 2
		s = s[2:]
	}

	v, ok := new(big.Int).SetString(s, base)
	if !ok {
		return nil, false
	}
	if neg {
		v.Neg(v)
	}
	return v, true
}

// fitsByteWidth reports whether v fits in the two's-complement or unsigned
// range of width bytes.
func fitsByteWidth(v *big.Int, width int) bool {
	bits := uint(width * 8)
	maxUnsigned := new(big.Int).Lsh(big.NewInt(1), bits)
	maxUnsigned.Sub(maxUnsigned, big.NewInt(1))
	minSigned := new(big.Int).Lsh(big.NewInt(1), bits-1)
	minSigned.Neg(minSigned)
	return v.Cmp(minSigned) >= 0 && v.Cmp(maxUnsigned) <= 0
}

// packLowBytes returns the low 8 bytes of v's two's-complement
// representation, little-endian. Only the declared width's worth of
// leading bytes are meaningful to the caller.
func packLowBytes(v *big.Int) [8]byte {
	mask := new(big.Int).Lsh(big.NewInt(1), 64)
	mask.Sub(mask, big.NewInt(1))
	m := new(big.Int).And(v, mask)
	low := m.Uint64()
	var out [8]byte
	for i := 0; i < 8; i++ {
		out[i] = byte(low >> (8 * uint(i)))
	}
	return out
}
