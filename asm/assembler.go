// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package asm

import (
	"log"
	"maps"
	"slices"
	"strings"
	"unicode"

	"github.com/ezrec/sass/expr"
	"github.com/ezrec/sass/internal"
	"github.com/ezrec/sass/isa"
)

// SymbolWordSize is the predefined symbol holding the machine word size.
const SymbolWordSize = "__wordsize"

// source is a pending run of lines.
type source struct {
	lines     []string
	next      int
	synthetic bool // Lines share the line number of the line that made them.
	depth     int  // Macro expansion depth.
}

// position is the location of the line being assembled.
type position struct {
	fileName   string
	lineNumber int
}

// condition is one level of .if nesting.
type condition struct {
	parent   bool // The enclosing level is assembled.
	value    bool // The current branch is selected.
	seenElse bool
	entry    *Entry // Opening line, if it was assembled.

	code string
	pos  position
	root int
}

func (c *condition) active() bool {
	return c.parent && c.value
}

// definition is a .macro whose body is being collected.
type definition struct {
	macro *Macro
	entry *Entry
	depth int  // Nested .macro lines still open.
	valid bool // Header parsed; the macro will be registered.
}

// Assembler is a two pass macro assembler for a table driven instruction set.
type Assembler struct {
	Set      *isa.Set // Instruction set.
	Settings Settings

	predefine map[string]string

	settings   Settings
	ev         *expr.Evaluator
	macros     []*Macro
	sources    Stack[source]
	positions  Stack[position]
	conditions Stack[condition]
	defining   *definition
	root       int
	pc         uint64
	listing    bool
	pass2      bool
	out        *Output
}

// Predefine defines a symbol before assembly starts. The value is an expression.
func (asm *Assembler) Predefine(name string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{name: value}
	} else {
		asm.predefine[name] = value
	}
}

// splitLines breaks text into lines, dropping carriage returns.
func splitLines(text string) []string {
	return strings.Split(strings.ReplaceAll(text, "\r", ""), "\n")
}

// Assemble assembles source text read from fileName. Problems with the
// source are recorded on the listing entries, never returned.
func (asm *Assembler) Assemble(text string, fileName string) (out *Output) {
	out = &Output{}

	asm.settings = asm.Settings.withDefaults()
	asm.ev = expr.NewEvaluator()
	asm.ev.Encoding = asm.settings.Encoding
	asm.macros = nil
	asm.sources.Reset()
	asm.positions.Reset()
	asm.conditions.Reset()
	asm.defining = nil
	asm.root = 0
	asm.pc = 0
	asm.listing = true
	asm.pass2 = false
	asm.out = out

	asm.predefined()

	asm.positions.Push(position{fileName: fileName})
	asm.sources.Push(source{lines: splitLines(text)})
	asm.run()
	asm.unterminated()

	asm.finish()

	out.Symbols = maps.Clone(asm.ev.Symbols)

	return
}

// predefined seeds the symbol table.
func (asm *Assembler) predefined() {
	_ = asm.ev.Define(SymbolWordSize, expr.Symbol{Value: uint64(asm.wordSize())})

	for _, name := range slices.Sorted(maps.Keys(asm.predefine)) {
		text := asm.predefine[name]
		value, err := asm.ev.Evaluate(text, 0, 0)
		if err == nil {
			err = asm.ev.Define(name, expr.Symbol{Value: value})
		}
		if err != nil {
			entry := asm.newEntry(CODE_DIRECTIVE, ".equ "+name+", "+text)
			entry.Fail(err)
		}
	}
}

// run consumes lines until every source is exhausted.
func (asm *Assembler) run() {
	for !asm.sources.Empty() {
		src := asm.sources.Top()
		if src.next >= len(src.lines) {
			asm.sources.Pop()
			continue
		}

		text := src.lines[src.next]
		src.next++
		depth := src.depth
		if !src.synthetic {
			asm.positions.Top().lineNumber++
			asm.root++
		}

		if asm.settings.Verbose {
			pos, _ := asm.positions.Peek()
			log.Printf("%v:%v: %v", pos.fileName, pos.lineNumber, text)
		}

		asm.line(text, depth)
	}
}

// newEntry appends a listing entry at the current position.
func (asm *Assembler) newEntry(codeType CodeType, code string) *Entry {
	pos, _ := asm.positions.Peek()
	entry := &Entry{
		CodeType:       codeType,
		Code:           code,
		Address:        asm.pc,
		FileName:       pos.fileName,
		LineNumber:     pos.lineNumber,
		RootLineNumber: asm.root,
		Scope:          asm.ev.LastGlobalLabel,
		Listed:         asm.listing,
	}
	asm.out.Listing = append(asm.out.Listing, entry)
	return entry
}

// splitDirective returns the lower case name and the parameter text of a
// directive line, or an empty name.
func splitDirective(code string) (name string, parameter string) {
	if len(code) == 0 || (code[0] != '.' && code[0] != '#') {
		return
	}
	name, parameter, _ = strings.Cut(code[1:], " ")
	name = strings.ToLower(name)
	parameter = strings.TrimSpace(parameter)
	return
}

// inlineEquate rewrites "name .equ value" as ".equ name, value".
func inlineEquate(code string) string {
	index := internal.SafeIndexFold(code, ".equ", 0)
	if index <= 0 || code[index-1] != ' ' {
		return code
	}
	rest := code[index+len(".equ"):]
	if len(rest) > 0 && rest[0] != ' ' {
		return code
	}
	name := strings.TrimSuffix(strings.TrimSpace(code[:index]), ":")
	return ".equ " + name + ", " + strings.TrimSpace(rest)
}

// line assembles one line of source.
func (asm *Assembler) line(text string, depth int) {
	code := internal.RemoveExcessWhitespace(internal.TrimComments(text))

	if name, _ := splitDirective(code); name == "endfile" {
		asm.endfile(code)
		return
	}

	if asm.defining != nil {
		asm.collect(code)
		return
	}

	if len(code) == 0 {
		return
	}

	if internal.SafeContains(code, `\`) {
		asm.sources.Push(source{
			lines:     internal.SafeSplit(code, `\`),
			synthetic: true,
			depth:     depth,
		})
		return
	}

	code = inlineEquate(code)

	name, parameter := splitDirective(code)
	switch name {
	case "if", "ifdef", "ifndef", "else", "endif", "elif", "elseif":
		asm.conditional(code, name, parameter)
		return
	}

	if !asm.assembling() {
		return
	}

	switch name {
	case "macro", "endmacro", "define", "undefine":
	default:
		if call, ok := findInvocation(asm.macros, code); ok {
			entry := asm.newEntry(CODE_DIRECTIVE, code)
			if depth >= MacroDepthLimit {
				entry.Fail(&ErrMacro{Macro: call.macro.Name, Err: ErrMacroRecursion})
				return
			}
			asm.sources.Push(source{
				lines:     call.expand(code),
				synthetic: true,
				depth:     depth + 1,
			})
			return
		}
	}

	code = asm.labels(code)
	if len(code) == 0 {
		return
	}

	name, parameter = splitDirective(code)
	if len(name) > 0 {
		asm.directive(code, name, parameter, depth)
		return
	}

	asm.instruction(code)
}

// splitLabel separates a leading label from the rest of a line.
func splitLabel(code string) (label string, rest string, ok bool) {
	if strings.HasPrefix(code, ":") {
		return strings.TrimSpace(code[1:]), "", true
	}

	word, rest, _ := strings.Cut(code, " ")
	colon := internal.SafeIndex(word, ":", 0)
	if colon < 0 || colon != len(word)-1 {
		return "", code, false
	}

	return word[:colon], strings.TrimSpace(rest), true
}

// validLabel reports whether name may be used as a label.
func validLabel(name string) bool {
	if !internal.IsIdentifier(name) {
		return false
	}
	first := []rune(name)[0]
	return !unicode.IsDigit(first)
}

// labels defines the labels at the start of a line and returns the rest.
func (asm *Assembler) labels(code string) string {
	for {
		label, rest, ok := splitLabel(code)
		if !ok {
			return code
		}
		asm.label(label)
		code = rest
		if len(code) == 0 {
			return code
		}
	}
}

// label defines a label at the current program counter.
func (asm *Assembler) label(name string) {
	lower := strings.ToLower(name)

	switch {
	case lower == "_":
		asm.newEntry(CODE_LABEL, name)
		asm.ev.AddRelativeLabel(asm.pc, asm.root)
	case strings.HasPrefix(lower, "."):
		entry := asm.newEntry(CODE_LABEL, name)
		if !validLabel(lower[1:]) {
			entry.Fail(ErrLabelInvalid)
			return
		}
		entry.Fail(asm.ev.Define(lower, expr.Symbol{Value: asm.pc, IsLabel: true}))
	default:
		if !validLabel(lower) {
			entry := asm.newEntry(CODE_LABEL, name)
			entry.Fail(ErrLabelInvalid)
			return
		}
		asm.ev.LastGlobalLabel = lower
		entry := asm.newEntry(CODE_LABEL, name)
		entry.Fail(asm.ev.Define(lower, expr.Symbol{Value: asm.pc, IsLabel: true}))
	}
}

// instruction matches a line against the instruction set.
func (asm *Assembler) instruction(code string) {
	entry := asm.newEntry(CODE_INSTRUCTION, code)

	if asm.Set == nil {
		entry.Fail(ErrInstructionInvalid)
		return
	}

	ins, ok := asm.Set.Match(code)
	if !ok {
		entry.Fail(ErrInstructionInvalid)
		return
	}

	entry.Instruction = ins
	asm.pc += uint64(ins.Length())
}

// assembling reports whether the current conditional branch is selected.
func (asm *Assembler) assembling() bool {
	top := asm.conditions.Top()
	return top == nil || top.active()
}

// defined reports whether a name is a symbol or a macro.
func (asm *Assembler) defined(name string) bool {
	if _, ok := asm.ev.Lookup(name); ok {
		return true
	}
	return asm.macro(name) >= 0
}

// macro returns the index of a macro by name, or -1.
func (asm *Assembler) macro(name string) int {
	name = strings.ToLower(strings.TrimSpace(name))
	return slices.IndexFunc(asm.macros, func(m *Macro) bool { return m.Name == name })
}

// conditional handles the .if family. It runs even in unselected branches
// so that nesting is tracked.
func (asm *Assembler) conditional(code string, name string, parameter string) {
	active := asm.assembling()

	switch name {
	case "if", "ifdef", "ifndef":
		pos, _ := asm.positions.Peek()
		cond := condition{parent: active, code: code, pos: pos, root: asm.root}
		if active {
			cond.entry = asm.newEntry(CODE_DIRECTIVE, code)
			var err error
			cond.value, err = asm.test(name, parameter)
			cond.entry.Fail(err)
		}
		asm.conditions.Push(cond)
	case "else":
		top := asm.conditions.Top()
		if top == nil {
			asm.newEntry(CODE_DIRECTIVE, code).Fail(ErrElseLonely)
			return
		}
		if top.parent {
			entry := asm.newEntry(CODE_DIRECTIVE, code)
			if top.seenElse {
				entry.Fail(ErrElseDuplicate)
				return
			}
		}
		if !top.seenElse {
			top.seenElse = true
			top.value = !top.value
		}
	case "endif":
		top, ok := asm.conditions.Pop()
		if !ok {
			asm.newEntry(CODE_DIRECTIVE, code).Fail(ErrEndifLonely)
			return
		}
		if top.parent {
			asm.newEntry(CODE_DIRECTIVE, code)
		}
	default:
		if active {
			asm.newEntry(CODE_DIRECTIVE, code).Fail(ErrElif)
		}
	}
}

// test evaluates the condition of an .if, .ifdef or .ifndef.
func (asm *Assembler) test(name string, parameter string) (value bool, err error) {
	if len(parameter) == 0 {
		err = ErrDirectiveSyntax
		return
	}

	switch name {
	case "ifdef":
		value = asm.defined(parameter)
	case "ifndef":
		value = !asm.defined(parameter)
	default:
		var result uint64
		result, err = asm.ev.Evaluate(parameter, asm.pc, asm.root)
		value = err == nil && result != 0
	}

	return
}

// collect adds a line to the body of the macro being defined.
func (asm *Assembler) collect(code string) {
	def := asm.defining
	name, _ := splitDirective(code)

	switch name {
	case "macro":
		def.depth++
		if !asm.settings.AllowNestedMacros {
			asm.newEntry(CODE_DIRECTIVE, code).Fail(ErrMacroNesting)
			return
		}
	case "endmacro":
		if def.depth == 0 {
			asm.defining = nil
			asm.register(def.macro, def.entry, def.valid)
			return
		}
		def.depth--
		if !asm.settings.AllowNestedMacros {
			return
		}
	}

	if len(code) > 0 {
		def.macro.Lines = append(def.macro.Lines, code)
	}
}

// register adds a completed macro definition.
func (asm *Assembler) register(macro *Macro, entry *Entry, valid bool) {
	if !valid {
		return
	}
	if asm.macro(macro.Name) >= 0 {
		entry.Fail(expr.ErrDuplicateName(macro.Name))
		return
	}
	asm.macros = append(asm.macros, macro)
}

// unterminated flags .macro and .if blocks still open at the end of input.
func (asm *Assembler) unterminated() {
	if asm.defining != nil {
		asm.defining.entry.Fail(ErrMacroLonely)
		asm.defining = nil
	}

	for !asm.conditions.Empty() {
		cond, _ := asm.conditions.Pop()
		entry := cond.entry
		if entry == nil {
			entry = &Entry{
				CodeType:       CODE_DIRECTIVE,
				Code:           cond.code,
				Address:        asm.pc,
				FileName:       cond.pos.fileName,
				LineNumber:     cond.pos.lineNumber,
				RootLineNumber: cond.root,
				Listed:         asm.listing,
			}
			asm.out.Listing = append(asm.out.Listing, entry)
		}
		entry.Fail(ErrIfLonely)
	}
}
