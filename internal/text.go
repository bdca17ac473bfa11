// Package internal holds the string scanning primitives shared by the
// instruction table, the expression evaluator and the assembler.
//
// All of the Safe* helpers ignore anything inside a "string" or 'c'
// literal, honoring backslash escapes within those literals.
package internal

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding"
)

// quoteState tracks whether a scan position is inside a literal.
type quoteState struct {
	inString bool
	inChar   bool
	escaped  bool
}

// quoted reports whether the scanner is inside a literal.
func (qs *quoteState) quoted() bool {
	return qs.inString || qs.inChar
}

// step updates the literal state with the character just consumed.
func (qs *quoteState) step(c byte) {
	if qs.escaped {
		qs.escaped = false
		return
	}
	switch {
	case c == '\\' && qs.quoted():
		qs.escaped = true
	case c == '"' && !qs.inChar:
		qs.inString = !qs.inString
	case c == '\'' && !qs.inString:
		qs.inChar = !qs.inChar
	}
}

// SafeIndex returns the index of the first needle at or after from that is
// not inside a literal, or -1.
func SafeIndex(s string, needle string, from int) int {
	if len(needle) == 0 {
		return -1
	}
	qs := quoteState{}
	for i := 0; i < len(s); i++ {
		if i >= from && !qs.quoted() && strings.HasPrefix(s[i:], needle) {
			return i
		}
		qs.step(s[i])
	}
	return -1
}

// SafeIndexAll returns the indexes of every needle not inside a literal.
// Matches may overlap.
func SafeIndexAll(s string, needle string) (indexes []int) {
	if len(needle) == 0 {
		return
	}
	qs := quoteState{}
	for i := 0; i < len(s); i++ {
		if !qs.quoted() && strings.HasPrefix(s[i:], needle) {
			indexes = append(indexes, i)
		}
		qs.step(s[i])
	}
	return
}

// SafeContains reports whether needle appears outside of any literal.
func SafeContains(s string, needle string) bool {
	return SafeIndex(s, needle, 0) >= 0
}

// SafeSplit splits s at every character of seps that is outside a literal.
// The separators are dropped, and the parts are not trimmed.
func SafeSplit(s string, seps string) (parts []string) {
	qs := quoteState{}
	start := 0
	for i := 0; i < len(s); i++ {
		if !qs.quoted() && strings.IndexByte(seps, s[i]) >= 0 {
			parts = append(parts, s[start:i])
			start = i + 1
			continue
		}
		qs.step(s[i])
	}
	parts = append(parts, s[start:])
	return
}

// TrimComments removes a trailing ';' comment and surrounding whitespace.
func TrimComments(s string) string {
	index := SafeIndex(s, ";", 0)
	if index >= 0 {
		s = s[:index]
	}
	return strings.TrimSpace(s)
}

// RemoveExcessWhitespace turns tabs into spaces and collapses runs of
// whitespace outside of literals into a single space.
func RemoveExcessWhitespace(s string) string {
	s = strings.TrimSpace(s)
	var sb strings.Builder
	qs := quoteState{}
	previous := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		space := c == ' ' || c == '\t'
		if qs.quoted() {
			sb.WriteByte(c)
		} else if space {
			if !previous {
				sb.WriteByte(' ')
			}
		} else {
			sb.WriteByte(c)
		}
		previous = space && !qs.quoted()
		qs.step(c)
	}
	return sb.String()
}

// IsQuoted reports whether s is a complete "string" or 'c' literal.
func IsQuoted(s string) bool {
	if len(s) < 2 {
		return false
	}
	q := s[0]
	if (q != '"' && q != '\'') || s[len(s)-1] != q {
		return false
	}
	// The closing quote must not be escaped.
	escaped := false
	for i := 1; i < len(s)-1; i++ {
		switch {
		case escaped:
			escaped = false
		case s[i] == '\\':
			escaped = true
		case s[i] == q:
			return false
		}
	}
	return !escaped
}

// unescape decodes the C style escape sequences in s, passing decoded
// text to emit. A \xNN escape is passed alone as a raw byte. It fails on
// a dangling backslash or an unknown escape.
func unescape(s string, emit func(text string, raw bool)) (ok bool) {
	start := 0
	flush := func(end int) {
		if end > start {
			emit(s[start:end], false)
		}
	}

	for i := 0; i < len(s); i++ {
		if s[i] != '\\' {
			continue
		}
		flush(i)
		i++
		if i == len(s) {
			return
		}
		switch s[i] {
		case 'a':
			emit("\a", false)
		case 'b':
			emit("\b", false)
		case 'f':
			emit("\f", false)
		case 'n':
			emit("\n", false)
		case 'r':
			emit("\r", false)
		case 't':
			emit("\t", false)
		case 'v':
			emit("\v", false)
		case '\'', '"', '\\':
			emit(s[i:i+1], false)
		case '0':
			emit("\x00", false)
		case 'x':
			if i+2 >= len(s) {
				return
			}
			value, err := strconv.ParseUint(s[i+1:i+3], 16, 8)
			if err != nil {
				return
			}
			emit(string([]byte{byte(value)}), true)
			i += 2
		default:
			return
		}
		start = i + 1
	}
	flush(len(s))

	return true
}

// Unescape decodes the C style escape sequences in s. A \xNN escape
// becomes the rune U+00NN. It fails on a dangling backslash or an unknown
// escape.
func Unescape(s string) (out string, ok bool) {
	var sb strings.Builder
	ok = unescape(s, func(text string, raw bool) {
		if raw {
			sb.WriteRune(rune(text[0]))
		} else {
			sb.WriteString(text)
		}
	})
	if ok {
		out = sb.String()
	}
	return
}

// EncodeEscaped decodes the escape sequences in s and encodes the text
// with enc, or as UTF-8 when enc is nil. A \xNN escape is copied as a
// single raw byte. count is the number of characters, each raw byte
// counting as one.
func EncodeEscaped(s string, enc encoding.Encoding) (data []byte, count int, ok bool) {
	var text strings.Builder
	var err error
	flush := func() {
		if text.Len() == 0 || err != nil {
			return
		}
		encoded := []byte(text.String())
		if enc != nil {
			encoded, err = enc.NewEncoder().Bytes(encoded)
		}
		data = append(data, encoded...)
		text.Reset()
	}

	ok = unescape(s, func(part string, raw bool) {
		if raw {
			flush()
			data = append(data, part[0])
			count++
			return
		}
		text.WriteString(part)
		count += utf8.RuneCountInString(part)
	})
	flush()
	if !ok || err != nil {
		return nil, 0, false
	}
	return
}

// IsIdentifier reports whether s is non-empty and made only of letters,
// digits and '_'.
func IsIdentifier(s string) bool {
	if len(s) == 0 {
		return false
	}
	for _, c := range s {
		if !IsIdentifierRune(c) {
			return false
		}
	}
	return true
}

// IsIdentifierRune reports whether c may appear in an identifier.
func IsIdentifierRune(c rune) bool {
	return c == '_' || unicode.IsLetter(c) || unicode.IsDigit(c)
}

// SafeIndexFold is SafeIndex with ASCII case folding of the needle.
func SafeIndexFold(s string, needle string, from int) int {
	if len(needle) == 0 {
		return -1
	}
	qs := quoteState{}
	for i := 0; i < len(s); i++ {
		if i >= from && !qs.quoted() && i+len(needle) <= len(s) &&
			strings.EqualFold(s[i:i+len(needle)], needle) {
			return i
		}
		qs.step(s[i])
	}
	return -1
}

// MatchingParen returns the index of the ')' balancing the '(' at s[open],
// ignoring parentheses inside literals, or -1.
func MatchingParen(s string, open int) int {
	if open < 0 || open >= len(s) || s[open] != '(' {
		return -1
	}
	qs := quoteState{}
	depth := 0
	for i := 0; i < len(s); i++ {
		if i >= open && !qs.quoted() {
			switch s[i] {
			case '(':
				depth++
			case ')':
				depth--
				if depth == 0 {
					return i
				}
			}
		}
		qs.step(s[i])
	}
	return -1
}
