// Package expr evaluates the integer expressions used by instruction
// operands and directives, and holds the symbol table they refer to.
//
// Operators, lowest precedence first:
//
//	||  &&  |  ^  &  == !=  << >>  < <= > >=  + -  * / %
//
// with unary '-' (two's complement negation) and '~' (bitwise NOT), and
// parentheses. Binary operators are left associative.
package expr

import (
	"strconv"
	"strings"

	"golang.org/x/text/encoding"

	"github.com/ezrec/sass/internal"
)

// operators are grouped by priority, lowest first. Within a group the
// longer spellings come first so that "<=" is not read as "<".
var operators = [][]string{
	{"||"},
	{"&&"},
	{"|"},
	{"^"},
	{"&"},
	{"==", "!="},
	{"<<", ">>"},
	{"<=", ">=", "<", ">"},
	{"+", "-"},
	{"*", "/", "%"},
}

// tokens recognized when scanning, longest first.
var operatorTokens = []string{
	"||", "&&", "==", "!=", "<<", ">>", "<=", ">=",
	"|", "^", "&", "<", ">", "+", "-", "*", "/", "%", "~",
}

// Evaluator evaluates expressions against a symbol table.
type Evaluator struct {
	Symbols         map[string]Symbol // Symbols, by qualified lower case name.
	RelativeLabels  []RelativeLabel   // Anonymous labels, in source order.
	LastGlobalLabel string            // Scope for local ".name" references.
	Encoding        encoding.Encoding // Encoding of character literals; nil is UTF-8.
}

// NewEvaluator returns an evaluator with an empty symbol table.
func NewEvaluator() *Evaluator {
	return &Evaluator{
		Symbols: map[string]Symbol{},
	}
}

// opToken is an operator found in expression text.
type opToken struct {
	index  int
	op     string
	binary bool
}

// scanOperators lists the operators outside of literals, left to right,
// noting which are in binary (infix) position.
func scanOperators(expression string) (tokens []opToken) {
	// Unquoted positions of the expression.
	plain := make([]bool, len(expression))
	inString, inChar, escaped := false, false, false
	for i := 0; i < len(expression); i++ {
		c := expression[i]
		plain[i] = !inString && !inChar
		switch {
		case escaped:
			escaped = false
		case (inString || inChar) && c == '\\':
			escaped = true
		case c == '"' && !inChar:
			inString = !inString
		case c == '\'' && !inString:
			inChar = !inChar
		}
	}

	operand := false // An operand precedes the current position.
	for i := 0; i < len(expression); {
		c := expression[i]
		if !plain[i] {
			operand = true
			i++
			continue
		}
		if c == ' ' || c == '\t' {
			i++
			continue
		}
		op := ""
		for _, candidate := range operatorTokens {
			if strings.HasPrefix(expression[i:], candidate) {
				op = candidate
				break
			}
		}
		if len(op) == 0 {
			operand = true
			i++
			continue
		}
		tokens = append(tokens, opToken{index: i, op: op, binary: operand && op != "~"})
		operand = false
		i += len(op)
	}

	return
}

// split finds the rightmost binary operator of the lowest priority group
// present in the expression.
func split(expression string) (left, op, right string, ok bool) {
	tokens := scanOperators(expression)
	for _, group := range operators {
		for n := len(tokens) - 1; n >= 0; n-- {
			token := tokens[n]
			if !token.binary {
				continue
			}
			for _, candidate := range group {
				if token.op == candidate {
					left = expression[:token.index]
					right = expression[token.index+len(token.op):]
					return left, token.op, right, true
				}
			}
		}
	}
	return
}

// parenthesis returns the index of the first '(' outside of literals and
// the index of its balancing ')'.
func parenthesis(expression string) (open, close int, err error) {
	open = internal.SafeIndex(expression, "(", 0)
	closing := internal.SafeIndex(expression, ")", 0)
	if open < 0 {
		if closing >= 0 {
			err = ErrInvalidExpression(expression)
		}
		return -1, -1, err
	}
	if closing >= 0 && closing < open {
		err = ErrInvalidExpression(expression)
		return
	}

	depth := 0
	for _, index := range mergeIndexes(
		internal.SafeIndexAll(expression, "("),
		internal.SafeIndexAll(expression, ")")) {
		if index < open {
			continue
		}
		if expression[index] == '(' {
			depth++
		} else {
			depth--
		}
		if depth == 0 {
			close = index
			return
		}
	}

	err = ErrInvalidExpression(expression)
	return
}

// mergeIndexes merges two sorted index lists.
func mergeIndexes(a, b []int) (merged []int) {
	for len(a) > 0 || len(b) > 0 {
		if len(b) == 0 || (len(a) > 0 && a[0] < b[0]) {
			merged = append(merged, a[0])
			a = a[1:]
		} else {
			merged = append(merged, b[0])
			b = b[1:]
		}
	}
	return
}

// Evaluate computes the value of an expression. pc is the value of '$',
// and rootLineNumber anchors anonymous label references.
func (ev *Evaluator) Evaluate(expression string, pc uint64, rootLineNumber int) (value uint64, err error) {
	expression = strings.TrimSpace(expression)
	if len(expression) == 0 {
		err = ErrInvalidExpression(expression)
		return
	}

	// Anonymous label references look like operators, so check them first.
	if offset, ok := relativeOffset(expression); ok {
		return ev.relativeLabel(expression, offset, rootLineNumber)
	}

	// Collapse parenthesized sub-expressions into their values.
	for {
		var open, close int
		open, close, err = parenthesis(expression)
		if err != nil {
			return
		}
		if open < 0 {
			break
		}
		var inner uint64
		inner, err = ev.Evaluate(expression[open+1:close], pc, rootLineNumber)
		if err != nil {
			return
		}
		// Spaces keep "1(2)" from reading as "12".
		expression = expression[:open] + " " + strconv.FormatUint(inner, 10) + " " + expression[close+1:]
	}

	expression = strings.TrimSpace(expression)

	left, op, right, ok := split(expression)
	if ok {
		return ev.binary(left, op, right, pc, rootLineNumber)
	}

	switch expression[0] {
	case '-':
		value, err = ev.Evaluate(expression[1:], pc, rootLineNumber)
		value = -value
		return
	case '~':
		value, err = ev.Evaluate(expression[1:], pc, rootLineNumber)
		value = ^value
		return
	case '+':
		return ev.Evaluate(expression[1:], pc, rootLineNumber)
	}

	return ev.value(expression, pc)
}

func boolValue(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// binary evaluates both sides of an operator, left first.
func (ev *Evaluator) binary(left, op, right string, pc uint64, rootLineNumber int) (value uint64, err error) {
	a, err := ev.Evaluate(left, pc, rootLineNumber)
	if err != nil {
		return
	}
	b, err := ev.Evaluate(right, pc, rootLineNumber)
	if err != nil {
		return
	}

	switch op {
	case "+":
		value = a + b
	case "-":
		value = a - b
	case "*":
		value = a * b
	case "/", "%":
		if b == 0 {
			err = ErrInvalidExpression(left + op + right)
			return
		}
		if op == "/" {
			value = a / b
		} else {
			value = a % b
		}
	case "<<":
		value = a << b
	case ">>":
		value = a >> b
	case "<":
		value = boolValue(a < b)
	case "<=":
		value = boolValue(a <= b)
	case ">":
		value = boolValue(a > b)
	case ">=":
		value = boolValue(a >= b)
	case "==":
		value = boolValue(a == b)
	case "!=":
		value = boolValue(a != b)
	case "&":
		value = a & b
	case "^":
		value = a ^ b
	case "|":
		value = a | b
	case "&&":
		value = boolValue(a != 0 && b != 0)
	case "||":
		value = boolValue(a != 0 || b != 0)
	default:
		err = ErrInvalidExpression(left + op + right)
	}

	return
}

// parse converts digits in a base, rejecting empty or out of range text.
func parse(expression string, digits string, base int) (value uint64, err error) {
	value, err = strconv.ParseUint(digits, base, 64)
	if err != nil {
		err = ErrInvalidExpression(expression)
	}
	return
}

func isDigits(s string, digits string) bool {
	if len(s) == 0 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(digits, s[i]) < 0 {
			return false
		}
	}
	return true
}

const (
	decimalDigits = "0123456789"
	hexDigits     = "0123456789abcdef"
	binaryDigits  = "01"
)

// isSymbol reports whether s is spelled like a symbol reference.
func isSymbol(s string) bool {
	if len(s) == 0 || strings.IndexByte(decimalDigits, s[0]) >= 0 {
		return false
	}
	for _, c := range s {
		if c != '.' && c != '@' && !internal.IsIdentifierRune(c) {
			return false
		}
	}
	return true
}

// value interprets a single operand: a literal or a symbol reference.
func (ev *Evaluator) value(expression string, pc uint64) (value uint64, err error) {
	lower := strings.ToLower(expression)

	switch {
	case lower == "$":
		return pc, nil
	case strings.HasPrefix(lower, "0x"):
		return parse(expression, lower[2:], 16)
	case strings.HasPrefix(lower, "$"):
		return parse(expression, lower[1:], 16)
	case strings.HasSuffix(lower, "h") && isDigits(lower[:1], decimalDigits) &&
		isDigits(lower[:len(lower)-1], hexDigits):
		return parse(expression, lower[:len(lower)-1], 16)
	case strings.HasPrefix(lower, "0b"):
		return parse(expression, lower[2:], 2)
	case strings.HasPrefix(lower, "%"):
		return parse(expression, lower[1:], 2)
	case strings.HasSuffix(lower, "b") && isDigits(lower[:len(lower)-1], binaryDigits):
		return parse(expression, lower[:len(lower)-1], 2)
	case strings.HasPrefix(lower, "0o"):
		return parse(expression, lower[2:], 8)
	case lower == "true":
		return 1, nil
	case lower == "false":
		return 0, nil
	case strings.HasPrefix(expression, "'"):
		return ev.character(expression)
	case isDigits(lower, decimalDigits):
		return parse(expression, lower, 10)
	case isSymbol(lower):
		symbol, ok := ev.Lookup(lower)
		if !ok {
			err = ErrUnknownSymbol(ev.Qualify(lower))
			return
		}
		return symbol.Value, nil
	}

	err = ErrInvalidExpression(expression)
	return
}

// character evaluates a 'c' literal to its first encoded byte.
func (ev *Evaluator) character(expression string) (value uint64, err error) {
	if !internal.IsQuoted(expression) {
		err = ErrInvalidExpression(expression)
		return
	}
	bytes, count, ok := internal.EncodeEscaped(expression[1:len(expression)-1], ev.Encoding)
	if !ok || count != 1 || len(bytes) == 0 {
		err = ErrInvalidExpression(expression)
		return
	}

	value = uint64(bytes[0])
	return
}
