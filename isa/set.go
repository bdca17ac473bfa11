package isa

import (
	"strconv"
	"strings"

	"github.com/ezrec/sass/internal"
)

// DefaultWordSize is the machine word width used when a definition has no WORDSIZE line.
const DefaultWordSize = 16

// Operand is a named operand token and its bit encoding.
type Operand struct {
	Name  string // Operand name as written in source.
	Value string // Bit string of '0' and '1'.
}

// OperandGroup is a named, ordered set of operands sharing a role.
type OperandGroup struct {
	Name     string
	Operands []Operand
}

// Lookup finds an operand by case-insensitive name.
func (og *OperandGroup) Lookup(name string) (operand Operand, ok bool) {
	for _, op := range og.Operands {
		if strings.EqualFold(op.Name, name) {
			return op, true
		}
	}
	return
}

// Set is a loaded instruction set. It is read-only once loaded.
type Set struct {
	WordSize int                      // Bits per machine word.
	Groups   map[string]*OperandGroup // Operand groups, by lower case name.
	Patterns []*Pattern               // Instruction patterns, in table order.
}

// Load parses an instruction set definition.
func Load(definition string) (set *Set, err error) {
	set = &Set{
		WordSize: DefaultWordSize,
		Groups:   map[string]*OperandGroup{},
	}

	var lineno int
	var line string

	defer func() {
		if err != nil {
			err = &ErrFormat{LineNo: lineno, Line: line, Err: err}
			set = nil
		}
	}()

	// Line where each pattern was declared, for late validation.
	declaredAt := map[*Pattern]int{}
	declaredLine := map[*Pattern]string{}

	definition = strings.ReplaceAll(definition, "\r", "")
	for n, text := range strings.Split(definition, "\n") {
		lineno = n + 1
		line = strings.TrimSpace(text)
		if len(line) == 0 || strings.HasPrefix(line, "#") {
			continue
		}
		line = internal.RemoveExcessWhitespace(line)
		words := strings.Split(line, " ")

		switch words[0] {
		case "OPERAND":
			if len(words) != 4 {
				err = ErrOperandSyntax
				return
			}
			if strings.Trim(words[3], "01") != "" {
				err = ErrOperandValue
				return
			}
			name := strings.ToLower(words[1])
			group, ok := set.Groups[name]
			if !ok {
				group = &OperandGroup{Name: words[1]}
				set.Groups[name] = group
			}
			group.Operands = append(group.Operands, Operand{Name: words[2], Value: words[3]})
		case "INS":
			if len(words) < 3 {
				err = ErrInstructionSyntax
				return
			}
			value := strings.Join(words[2:], "")
			var pattern *Pattern
			pattern, err = newPattern(words[1], value)
			if err != nil {
				return
			}
			set.Patterns = append(set.Patterns, pattern)
			declaredAt[pattern] = lineno
			declaredLine[pattern] = line
		case "WORDSIZE":
			if len(words) != 2 {
				err = ErrWordSize
				return
			}
			var size int
			size, err = strconv.Atoi(words[1])
			if err != nil || size <= 0 || size%8 != 0 {
				err = ErrWordSize
				return
			}
			set.WordSize = size
		default:
			err = ErrLineInvalid
			return
		}
	}

	// Operand groups may be declared after the patterns that use them.
	for _, pattern := range set.Patterns {
		for _, group := range pattern.groups() {
			if _, ok := set.Groups[group]; !ok {
				lineno = declaredAt[pattern]
				line = declaredLine[pattern]
				err = ErrGroupMissing(group)
				return
			}
		}
	}

	return
}

// Group returns an operand group by case-insensitive name.
func (set *Set) Group(name string) (group *OperandGroup, ok bool) {
	group, ok = set.Groups[strings.ToLower(name)]
	return
}

// Match returns the first pattern, in table order, that matches the whole
// of a whitespace-normalized source line, with all of its placeholders bound.
func (set *Set) Match(code string) (ins *Instruction, ok bool) {
	for _, pattern := range set.Patterns {
		ins, ok = set.matchPattern(pattern, code)
		if ok {
			return
		}
	}

	return nil, false
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t'
}

// capture returns the text of a placeholder starting at code[j]. It runs up
// to the next literal delimiter in the template, or to the end of the line
// when none follows.
func capture(tokens []Token, t int, code string, j int) (text string, ok bool) {
	for ; t < len(tokens); t++ {
		switch tokens[t].Kind {
		case TOKEN_SPACE, TOKEN_OPTIONAL_SPACE:
			continue
		case TOKEN_LITERAL:
			index := internal.SafeIndex(code, tokens[t].Literal[:1], j)
			if index < 0 {
				return
			}
			return code[j:index], true
		default:
			return code[j:], true
		}
	}

	return code[j:], true
}

// matchPattern attempts a single pattern against the line.
func (set *Set) matchPattern(pattern *Pattern, code string) (ins *Instruction, ok bool) {
	ins = &Instruction{
		Pattern:    pattern,
		Match:      pattern.Match,
		Value:      pattern.Value,
		Immediates: map[byte]Immediate{},
		Operands:   map[byte]Operand{},
	}

	j := 0
	for t, token := range pattern.match {
		switch token.Kind {
		case TOKEN_LITERAL:
			for n := 0; n < len(token.Literal); n++ {
				if j >= len(code) || token.Literal[n] != lower(code[j]) {
					return nil, false
				}
				j++
			}
		case TOKEN_SPACE:
			if j >= len(code) || !isSpace(code[j]) {
				return nil, false
			}
			for j < len(code) && isSpace(code[j]) {
				j++
			}
		case TOKEN_OPTIONAL_SPACE:
			for j < len(code) && isSpace(code[j]) {
				j++
			}
		default:
			if j >= len(code) {
				return nil, false
			}
			text, found := capture(pattern.match, t+1, code, j)
			if !found {
				return nil, false
			}
			value := strings.TrimRightFunc(text, func(r rune) bool { return r == ' ' || r == '\t' })
			if len(value) == 0 {
				return nil, false
			}
			j += len(value)

			if token.Kind == TOKEN_OPERAND {
				group := set.Groups[token.Group]
				operand, found := group.Lookup(strings.TrimSpace(value))
				if !found {
					return nil, false
				}
				ins.Operands[token.Key] = operand
				continue
			}

			ins.Immediates[token.Key] = Immediate{
				Bits:         token.Bits,
				Value:        value,
				RelativeToPC: token.Kind == TOKEN_RELATIVE,
				RstOnly:      token.Kind == TOKEN_RST,
			}
		}
	}

	if j != len(code) {
		return nil, false
	}

	return ins, true
}

func lower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}
