package expr

import (
	"strings"
)

// Symbol is a named value. Labels and constants share one table.
type Symbol struct {
	Value   uint64
	IsLabel bool
}

// RelativeLabel is an anonymous label, ordered by source position.
type RelativeLabel struct {
	Address        uint64
	RootLineNumber int
}

// localSeparator joins a local label to its enclosing global label.
const localSeparator = "@"

// Qualify returns the table name for a symbol reference: lower case, with
// a local ".name" rewritten to "name@lastglobal".
func (ev *Evaluator) Qualify(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if strings.HasPrefix(name, ".") {
		name = name[1:] + localSeparator + ev.LastGlobalLabel
	}
	return name
}

// IsLocal reports whether a qualified name carries a scope qualifier.
func IsLocal(qualified string) bool {
	return strings.Contains(qualified, localSeparator)
}

// Define adds a symbol. Redefinition is an error, and the first value is kept.
func (ev *Evaluator) Define(name string, symbol Symbol) (err error) {
	name = ev.Qualify(name)
	if _, ok := ev.Symbols[name]; ok {
		err = ErrDuplicateName(name)
		return
	}
	ev.Symbols[name] = symbol
	return
}

// Undefine removes a symbol, reporting whether it existed.
func (ev *Evaluator) Undefine(name string) bool {
	name = ev.Qualify(name)
	_, ok := ev.Symbols[name]
	delete(ev.Symbols, name)
	return ok
}

// Lookup finds a symbol by reference name.
func (ev *Evaluator) Lookup(name string) (symbol Symbol, ok bool) {
	symbol, ok = ev.Symbols[ev.Qualify(name)]
	return
}

// AddRelativeLabel records an anonymous label. Labels must be added in
// source order.
func (ev *Evaluator) AddRelativeLabel(address uint64, rootLineNumber int) {
	ev.RelativeLabels = append(ev.RelativeLabels, RelativeLabel{
		Address:        address,
		RootLineNumber: rootLineNumber,
	})
}

// relativeOffset parses an anonymous label reference such as "-_" or "++_".
func relativeOffset(expression string) (offset int, ok bool) {
	if len(expression) < 2 || !strings.HasSuffix(expression, "_") {
		return
	}
	firstPlus := false
	for _, c := range expression[:len(expression)-1] {
		switch c {
		case '-':
			offset--
		case '+':
			if firstPlus {
				offset++
			} else {
				firstPlus = true
			}
		default:
			return 0, false
		}
	}
	return offset, true
}

// relativeLabel resolves an anonymous label reference from a source position.
func (ev *Evaluator) relativeLabel(expression string, offset int, rootLineNumber int) (value uint64, err error) {
	i := 0
	for ; i < len(ev.RelativeLabels); i++ {
		if ev.RelativeLabels[i].RootLineNumber > rootLineNumber {
			break
		}
	}
	i += offset
	if i < 0 || i >= len(ev.RelativeLabels) {
		err = ErrUnknownSymbol(expression)
		return
	}
	value = ev.RelativeLabels[i].Address
	return
}
