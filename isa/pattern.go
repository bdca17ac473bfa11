package isa

import (
	"strconv"
	"strings"
)

// TokenKind is the type of a parsed template token.
type TokenKind int

//go:generate go tool stringer -linecomment -type=TokenKind
const (
	TOKEN_LITERAL        = TokenKind(0) // literal
	TOKEN_SPACE          = TokenKind(1) // space
	TOKEN_OPTIONAL_SPACE = TokenKind(2) // optional space
	TOKEN_IMMEDIATE      = TokenKind(3) // immediate
	TOKEN_RELATIVE       = TokenKind(4) // relative
	TOKEN_RST            = TokenKind(5) // rst
	TOKEN_OPERAND        = TokenKind(6) // operand
)

// sigil maps a placeholder kind to its template character.
func (kind TokenKind) sigil() byte {
	switch kind {
	case TOKEN_SPACE:
		return '_'
	case TOKEN_OPTIONAL_SPACE:
		return '-'
	case TOKEN_IMMEDIATE:
		return '%'
	case TOKEN_RELATIVE:
		return '^'
	case TOKEN_RST:
		return '&'
	case TOKEN_OPERAND:
		return '@'
	}
	return 0
}

// Placeholder reports whether the token binds a value.
func (kind TokenKind) Placeholder() bool {
	return kind >= TOKEN_IMMEDIATE
}

// Token is one element of a parsed match or value template.
type Token struct {
	Kind    TokenKind
	Literal string // Literal text (TOKEN_LITERAL only).
	Key     byte   // Placeholder key.
	Bits    int    // Immediate width in bits.
	Group   string // Operand group name, lower case.
}

// Pattern is a single INS line of an instruction set.
type Pattern struct {
	Match string // Match template, lower case.
	Value string // Value template, whitespace removed.

	match []Token
	value []Token
}

// RST vectors are matched as 8-bit immediates.
const rstBits = 8

// kindOf returns the placeholder kind for a template character.
func kindOf(c byte) (kind TokenKind, ok bool) {
	switch c {
	case '%':
		return TOKEN_IMMEDIATE, true
	case '^':
		return TOKEN_RELATIVE, true
	case '&':
		return TOKEN_RST, true
	case '@':
		return TOKEN_OPERAND, true
	}
	return
}

// angle reads a '<...>' suffix starting at template[i].
func angle(template string, i int) (inner string, next int, err error) {
	if i >= len(template) || template[i] != '<' {
		err = ErrPlaceholderSyntax
		return
	}
	end := strings.IndexByte(template[i:], '>')
	if end < 2 {
		err = ErrPlaceholderSyntax
		return
	}
	inner = template[i+1 : i+end]
	next = i + end + 1
	return
}

// parseMatch tokenizes a match template.
func parseMatch(template string) (tokens []Token, err error) {
	for i := 0; i < len(template); {
		c := template[i]
		switch c {
		case '_':
			tokens = append(tokens, Token{Kind: TOKEN_SPACE})
			i++
			continue
		case '-':
			tokens = append(tokens, Token{Kind: TOKEN_OPTIONAL_SPACE})
			i++
			continue
		}

		kind, ok := kindOf(c)
		if !ok {
			n := len(tokens)
			if n > 0 && tokens[n-1].Kind == TOKEN_LITERAL {
				tokens[n-1].Literal += string(c)
			} else {
				tokens = append(tokens, Token{Kind: TOKEN_LITERAL, Literal: string(c)})
			}
			i++
			continue
		}

		if i+1 >= len(template) {
			err = ErrPlaceholderSyntax
			return
		}
		token := Token{Kind: kind, Key: template[i+1]}
		i += 2

		switch kind {
		case TOKEN_RST:
			token.Bits = rstBits
		case TOKEN_OPERAND:
			token.Group, i, err = angle(template, i)
			if err != nil {
				return
			}
		default:
			var width string
			width, i, err = angle(template, i)
			if err != nil {
				return
			}
			token.Bits, err = strconv.Atoi(width)
			if err != nil || token.Bits <= 0 || token.Bits > 64 {
				err = ErrPlaceholderSyntax
				return
			}
		}

		tokens = append(tokens, token)
	}

	return
}

// parseValue tokenizes a value template.
func parseValue(template string) (tokens []Token, err error) {
	for i := 0; i < len(template); i++ {
		c := template[i]
		if c == '0' || c == '1' {
			n := len(tokens)
			if n > 0 && tokens[n-1].Kind == TOKEN_LITERAL {
				tokens[n-1].Literal += string(c)
			} else {
				tokens = append(tokens, Token{Kind: TOKEN_LITERAL, Literal: string(c)})
			}
			continue
		}

		kind, ok := kindOf(c)
		if !ok || i+1 >= len(template) {
			err = ErrValueSyntax
			return
		}
		i++
		tokens = append(tokens, Token{Kind: kind, Key: template[i]})
	}

	return
}

// newPattern parses and cross-checks a match and value template.
func newPattern(match, value string) (pattern *Pattern, err error) {
	pattern = &Pattern{
		Match: strings.ToLower(match),
		Value: value,
	}

	pattern.match, err = parseMatch(pattern.Match)
	if err != nil {
		return
	}

	pattern.value, err = parseValue(pattern.Value)
	if err != nil {
		return
	}

	declared := map[byte]TokenKind{}
	for _, token := range pattern.match {
		if token.Kind.Placeholder() {
			declared[token.Key] = token.Kind
		}
	}
	for _, token := range pattern.value {
		if !token.Kind.Placeholder() {
			continue
		}
		kind, ok := declared[token.Key]
		if !ok || kind != token.Kind {
			err = ErrPlaceholderUnbound
			return
		}
	}

	return
}

// Tokens returns the parsed value template.
func (pattern *Pattern) Tokens() []Token {
	return pattern.value
}

// groups returns the operand groups referenced by the match template.
func (pattern *Pattern) groups() (names []string) {
	for _, token := range pattern.match {
		if token.Kind == TOKEN_OPERAND {
			names = append(names, token.Group)
		}
	}
	return
}

// LiteralBits returns the number of fixed bits in the value template.
func (pattern *Pattern) LiteralBits() (bits int) {
	for _, token := range pattern.value {
		if token.Kind == TOKEN_LITERAL {
			bits += len(token.Literal)
		}
	}
	return
}

// String returns the token as written in a template, without widths.
func (token Token) String() string {
	switch {
	case token.Kind == TOKEN_LITERAL:
		return token.Literal
	case token.Kind.Placeholder():
		return string([]byte{token.Kind.sigil(), token.Key})
	}
	return string(token.Kind.sigil())
}
