package parser

import (
	"strconv"

	"github.com/lookbusy1344/wolfvm/diag"
)

// UnescapeBytes interprets the fixed escape set spec.md §6 defines for
// string literals: \\ \" \' \n \r \t \0 \x{HH} \b{BBBBBBBB}. Unknown
// escapes are reported and dropped.
func UnescapeBytes(raw string, pos diag.Position, sink *diag.Sink) []byte {
	out := make([]byte, 0, len(raw))
	i := 0
	for i < len(raw) {
		if raw[i] != '\\' {
			out = append(out, raw[i])
			i++
			continue
		}
		consumed, b, ok := parseEscapeAt(raw, i, pos, sink)
		if !ok {
			i++
			continue
		}
		out = append(out, b)
		i += consumed
	}
	return out
}

func parseEscapeAt(s string, i int, pos diag.Position, sink *diag.Sink) (int, byte, bool) {
	if i+1 >= len(s) {
		sink.Error(diag.KindParseError, diag.Span{Start: pos, End: pos}, "unterminated escape sequence")
		return 0, 0, false
	}
	switch s[i+1] {
	case '\\':
		return 2, '\\', true
	case '"':
		return 2, '"', true
	case '\'':
		return 2, '\'', true
	case 'n':
		return 2, '\n', true
	case 'r':
		return 2, '\r', true
	case 't':
		return 2, '\t', true
	case '0':
		return 2, 0, true
	case 'x':
		return parseBracedEscape(s, i, pos, sink, 16, 2, "hex", "\\x{HH}")
	case 'b':
		return parseBracedEscape(s, i, pos, sink, 2, 8, "binary", "\\b{BBBBBBBB}")
	default:
		sink.Error(diag.KindParseError, diag.Span{Start: pos, End: pos}, "unknown character escape: \\%c", s[i+1])
		return 0, 0, false
	}
}

// parseBracedEscape parses \x{...} or \b{...}, where the digits between the
// braces are interpreted in the given base and must fit in a byte.
func parseBracedEscape(s string, i int, pos diag.Position, sink *diag.Sink, base, maxDigits int, name, example string) (int, byte, bool) {
	if i+2 >= len(s) || s[i+2] != '{' {
		sink.Error(diag.KindParseError, diag.Span{Start: pos, End: pos}, "invalid %s escape, must look like: %s", name, example)
		return 0, 0, false
	}
	end := i + 3
	for end < len(s) && s[end] != '}' {
		end++
	}
	if end >= len(s) {
		sink.Error(diag.KindParseError, diag.Span{Start: pos, End: pos}, "unterminated %s escape, must look like: %s", name, example)
		return 0, 0, false
	}
	digits := s[i+3 : end]
	if len(digits) == 0 || len(digits) > maxDigits {
		sink.Error(diag.KindParseError, diag.Span{Start: pos, End: pos}, "%s byte escape must be 1-%d digits long, e.g. %s", name, maxDigits, example)
		return 0, 0, false
	}
	value, err := strconv.ParseUint(digits, base, 8)
	if err != nil {
		sink.Error(diag.KindParseError, diag.Span{Start: pos, End: pos}, "invalid %s escape, must look like: %s", name, example)
		return 0, 0, false
	}
	return end - i + 1, byte(value), true
}
