package asm

import (
	"strings"

	"github.com/ezrec/sass/internal"
)

// MacroDepthLimit bounds nested macro expansion.
const MacroDepthLimit = 64

// Macro is a named block of source text with optional parameters.
type Macro struct {
	Name       string   // Name, lower case.
	Parameters []string // Parameter names, as written.
	Lines      []string // Body text.
}

// Binding is an argument bound to a macro parameter.
type Binding struct {
	Parameter string
	Argument  string
}

// Expand substitutes bindings into template, in order. Every occurrence of
// a parameter is replaced, including inside literals and longer words, and
// later bindings see the text left by earlier ones.
func Expand(template string, bindings []Binding) string {
	for _, binding := range bindings {
		if len(binding.Parameter) == 0 {
			continue
		}
		template = strings.ReplaceAll(template, binding.Parameter, binding.Argument)
	}
	return template
}

// parseMacroHeader splits "name(a, b)" into a name and parameters.
func parseMacroHeader(header string) (name string, parameters []string, err error) {
	header = strings.TrimSpace(header)
	open := strings.IndexByte(header, '(')
	if open < 0 {
		name = header
	} else {
		close := internal.MatchingParen(header, open)
		if close != len(header)-1 {
			err = ErrMacroSyntax
			return
		}
		name = strings.TrimSpace(header[:open])
		inner := strings.TrimSpace(header[open+1 : close])
		if len(inner) > 0 {
			for _, parameter := range strings.Split(inner, ",") {
				parameter = strings.TrimSpace(parameter)
				if !internal.IsIdentifier(parameter) {
					err = ErrMacroSyntax
					return
				}
				parameters = append(parameters, parameter)
			}
		}
	}

	if !internal.IsIdentifier(name) {
		err = ErrMacroSyntax
		return
	}
	name = strings.ToLower(name)

	return
}

// invocation is a macro call found in a line.
type invocation struct {
	macro      *Macro
	start, end int      // Span of the call text.
	arguments  []string // Argument text, trimmed.
}

// locate finds the first call of a macro in code, outside of literals. A
// call with the wrong number of arguments is not a call.
func (macro *Macro) locate(code string) (call invocation, ok bool) {
	for from := 0; ; {
		start := internal.SafeIndexFold(code, macro.Name, from)
		if start < 0 {
			return
		}
		from = start + 1
		end := start + len(macro.Name)

		call = invocation{macro: macro, start: start, end: end}
		if len(macro.Parameters) == 0 {
			return call, true
		}

		open := end
		for open < len(code) && code[open] == ' ' {
			open++
		}
		close := internal.MatchingParen(code, open)
		if close < 0 {
			continue
		}
		for _, argument := range internal.SafeSplit(code[open+1:close], ",") {
			call.arguments = append(call.arguments, strings.TrimSpace(argument))
		}
		if len(call.arguments) != len(macro.Parameters) {
			continue
		}
		call.end = close + 1
		return call, true
	}
}

// findInvocation returns the macro call in code. The first macro in
// registration order wins, unless a longer macro name overlaps it.
func findInvocation(macros []*Macro, code string) (call invocation, ok bool) {
	found := false
	for _, macro := range macros {
		candidate, hit := macro.locate(code)
		if !hit {
			continue
		}
		if !found {
			call, found = candidate, true
			continue
		}
		overlaps := candidate.start < call.end && call.start < candidate.end
		if overlaps && len(candidate.macro.Name) > len(call.macro.Name) {
			call = candidate
		}
	}

	return call, found
}

// expand returns the lines that replace a line containing a macro call.
func (call invocation) expand(code string) []string {
	bindings := make([]Binding, len(call.macro.Parameters))
	for n, parameter := range call.macro.Parameters {
		bindings[n] = Binding{Parameter: parameter, Argument: call.arguments[n]}
	}
	body := Expand(strings.Join(call.macro.Lines, "\n"), bindings)
	return strings.Split(code[:call.start]+body+code[call.end:], "\n")
}
