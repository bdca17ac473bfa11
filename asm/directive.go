package asm

import (
	"context"
	"errors"
	"io/fs"
	"path"
	"strconv"
	"strings"

	"github.com/ezrec/sass/expr"
	"github.com/ezrec/sass/internal"
	"github.com/ezrec/sass/isa"
	"github.com/ezrec/sass/translate"
)

// reserveLimit bounds the size of a single .block or .fill.
const reserveLimit = 1 << 24

// IncludeDepthLimit bounds nested .include files.
const IncludeDepthLimit = 64

// splitParameters splits comma separated directive parameters.
func splitParameters(parameter string) (params []string) {
	if len(strings.TrimSpace(parameter)) == 0 {
		return
	}
	for _, param := range internal.SafeSplit(parameter, ",") {
		params = append(params, strings.TrimSpace(param))
	}
	return
}

// directive dispatches a directive line.
func (asm *Assembler) directive(code string, name string, parameter string, depth int) {
	switch name {
	case "list":
		asm.listing = true
	case "nolist":
		asm.listing = false
	}

	entry := asm.newEntry(CODE_DIRECTIVE, code)

	var err error
	switch name {
	case "list", "nolist", "end":
	case "block":
		err = asm.block(entry, parameter)
	case "fill":
		err = asm.fill(entry, parameter)
	case "byte", "db", "word", "dw", "ascii", "asciiz", "asciip":
		asm.data(entry, name, splitParameters(parameter))
	case "echo", "error":
		asm.echo(entry, name, splitParameters(parameter))
	case "org":
		err = asm.org(parameter)
	case "equ":
		err = asm.equate(parameter)
	case "define":
		err = asm.define(parameter)
	case "undefine":
		err = asm.undefine(parameter)
	case "include":
		err = asm.include(parameter, depth)
	case "exec":
		err = asm.exec(entry, parameter)
	case "macro":
		macroName, parameters, perr := parseMacroHeader(parameter)
		err = perr
		asm.defining = &definition{
			macro: &Macro{Name: macroName, Parameters: parameters},
			entry: entry,
			valid: perr == nil,
		}
	case "endmacro":
		err = ErrMacroLonelyEndm
	default:
		err = ErrDirectiveInvalid
	}

	entry.Fail(err)
}

// endfile closes an included file.
func (asm *Assembler) endfile(code string) {
	if asm.positions.Len() > 1 {
		asm.positions.Pop()
		asm.root--
		return
	}
	asm.newEntry(CODE_DIRECTIVE, code).Fail(ErrEndfileLonely)
}

// count evaluates a byte count that must be known in the first pass.
func (asm *Assembler) count(text string) (n uint64, err error) {
	n, err = asm.ev.Evaluate(text, asm.pc, asm.root)
	if err == nil && n > reserveLimit {
		err = ErrDirectiveSyntax
	}
	return
}

// block reserves zero filled bytes.
func (asm *Assembler) block(entry *Entry, parameter string) (err error) {
	n, err := asm.count(parameter)
	if err != nil {
		return
	}
	entry.Output = make([]byte, n)
	asm.pc += n
	return
}

// fill reserves bytes set to a value. The value may be resolved later.
func (asm *Assembler) fill(entry *Entry, parameter string) (err error) {
	params := splitParameters(parameter)
	if len(params) < 1 || len(params) > 2 {
		err = ErrDirectiveSyntax
		return
	}
	n, err := asm.count(params[0])
	if err != nil {
		return
	}
	value := "0"
	if len(params) == 2 {
		value = params[1]
	}
	asm.data(entry, "fill", []string{strconv.FormatUint(n, 10), value})
	return
}

// data emits the bytes of a data directive, deferring it to the second
// pass when a symbol is not yet defined.
func (asm *Assembler) data(entry *Entry, name string, params []string) {
	output, warn, err := asm.bytes(name, params, asm.pc, asm.root)
	entry.Output = output
	asm.pc += uint64(len(output))

	if ErrorCode(err) == ERROR_UNKNOWN_SYMBOL {
		entry.Deferred = &Deferred{Directive: name, Parameters: params}
		return
	}

	entry.Fail(err)
	if warn != nil {
		entry.Warn(warn)
	}
}

// fitsData reports whether a value is representable in bits, as either an
// unsigned or a sign extended value.
func fitsData(value uint64, bits int) bool {
	if bits >= 64 || value>>bits == 0 {
		return true
	}
	return value>>(bits-1) == ^uint64(0)>>(bits-1)
}

// text encodes the contents of a quoted string.
func (asm *Assembler) text(item string) (data []byte, err error) {
	if !internal.IsQuoted(item) || item[0] != '"' {
		err = ErrStringExpected
		return
	}
	data, _, ok := internal.EncodeEscaped(item[1:len(item)-1], asm.settings.Encoding)
	if !ok {
		err = expr.ErrInvalidExpression(item)
	}
	return
}

// bytes produces the output of a data directive located at address. The
// output always has its full length; items that fail are zero filled and
// the first failure is returned.
func (asm *Assembler) bytes(name string, params []string, address uint64, root int) (output []byte, warn error, err error) {
	fail := func(e error) {
		if err == nil {
			err = e
		}
	}
	truncated := func(value uint64, bits int) {
		if warn == nil && !fitsData(value, bits) {
			warn = &ErrTruncated{Value: value, Bits: bits}
		}
	}

	if len(params) == 0 {
		err = ErrDirectiveSyntax
		return
	}

	switch name {
	case "byte", "db":
		for _, item := range params {
			if strings.HasPrefix(item, `"`) {
				data, e := asm.text(item)
				fail(e)
				output = append(output, data...)
				continue
			}
			value, e := asm.ev.Evaluate(item, address+uint64(len(output)), root)
			fail(e)
			truncated(value, 8)
			output = append(output, byte(value))
		}
	case "word", "dw":
		bits := asm.wordSize()
		for _, item := range params {
			value, e := asm.ev.Evaluate(item, address+uint64(len(output)), root)
			fail(e)
			truncated(value, bits)
			output = append(output, ConvertFromBinary(ConvertToBinary(value, bits))...)
		}
	case "fill":
		n, _ := strconv.ParseUint(params[0], 10, 64)
		output = make([]byte, n)
		for i := range output {
			value, e := asm.ev.Evaluate(params[1], address+uint64(i), root)
			if e != nil {
				fail(e)
				break
			}
			truncated(value, 8)
			output[i] = byte(value)
		}
	case "ascii", "asciiz", "asciip":
		for _, item := range params {
			data, e := asm.text(item)
			fail(e)
			output = append(output, data...)
		}
		switch name {
		case "asciiz":
			output = append(output, 0)
		case "asciip":
			truncated(uint64(len(output)), 8)
			output = append([]byte{byte(len(output))}, output...)
		}
	}

	return
}

// wordSize returns the machine word size in bits.
func (asm *Assembler) wordSize() int {
	if asm.Set == nil {
		return isa.DefaultWordSize
	}
	return asm.Set.WordSize
}

// message formats the parameters of .echo and .error. A leading format
// string has its "{n}" markers replaced by the following values; otherwise
// the strings and values are concatenated.
func (asm *Assembler) message(params []string, address uint64, root int) (msg string, err error) {
	values := make([]string, len(params))
	for n, item := range params {
		if internal.IsQuoted(item) && item[0] == '"' {
			text, ok := internal.Unescape(item[1 : len(item)-1])
			if !ok {
				err = expr.ErrInvalidExpression(item)
				return
			}
			values[n] = text
			continue
		}
		var value uint64
		value, err = asm.ev.Evaluate(item, address, root)
		if err != nil {
			return
		}
		values[n] = strconv.FormatUint(value, 10)
	}

	if len(params) > 1 && strings.HasPrefix(params[0], `"`) && strings.Contains(values[0], "{") {
		var pairs []string
		for n, value := range values[1:] {
			pairs = append(pairs, "{"+strconv.Itoa(n)+"}", value)
		}
		msg = strings.NewReplacer(pairs...).Replace(values[0])
		return
	}

	msg = strings.Join(values, "")
	return
}

// echo prints a message, or raises it as an error.
func (asm *Assembler) echo(entry *Entry, name string, params []string) {
	msg, err := asm.message(params, entry.Address, entry.RootLineNumber)
	if ErrorCode(err) == ERROR_UNKNOWN_SYMBOL && !asm.pass2 {
		entry.Deferred = &Deferred{Directive: name, Parameters: params}
		return
	}
	if err != nil {
		entry.Fail(err)
		return
	}

	if name == "error" {
		entry.Fail(ErrUser(msg))
		return
	}
	translate.Fprintf(asm.settings.Stdout, "%v\n", msg)
}

// org moves the program counter.
func (asm *Assembler) org(parameter string) (err error) {
	value, err := asm.ev.Evaluate(parameter, asm.pc, asm.root)
	if err != nil {
		return
	}
	asm.pc = value
	return
}

// cutName splits "name, value" or "name value".
func cutName(parameter string) (name string, value string) {
	index := internal.SafeIndex(parameter, ",", 0)
	if space := strings.IndexByte(parameter, ' '); index < 0 || (space >= 0 && space < index) {
		index = space
	}
	if index < 0 {
		return strings.TrimSpace(parameter), ""
	}
	name = strings.TrimSpace(parameter[:index])
	value = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(parameter[index:]), ","))
	return
}

// symbolName checks the name of an equate.
func symbolName(name string) (err error) {
	if !validLabel(strings.TrimPrefix(name, ".")) {
		err = ErrDirectiveSyntax
	}
	return
}

// equate binds a symbol to a value known in the first pass.
func (asm *Assembler) equate(parameter string) (err error) {
	name, text := cutName(parameter)
	if err = symbolName(name); err != nil {
		return
	}
	if len(text) == 0 {
		err = ErrDirectiveSyntax
		return
	}
	value, err := asm.ev.Evaluate(text, asm.pc, asm.root)
	if err != nil {
		return
	}
	return asm.ev.Define(name, expr.Symbol{Value: value})
}

// define binds a symbol, or a macro when the value is not an expression
// or the name takes parameters.
func (asm *Assembler) define(parameter string) (err error) {
	open := strings.IndexByte(parameter, '(')
	space := strings.IndexByte(parameter, ' ')
	if open > 0 && (space < 0 || open < space) {
		close := internal.MatchingParen(parameter, open)
		if close < 0 {
			err = ErrMacroSyntax
			return
		}
		name, parameters, perr := parseMacroHeader(parameter[:close+1])
		if perr != nil {
			return perr
		}
		body := strings.TrimSpace(parameter[close+1:])
		macro := &Macro{Name: name, Parameters: parameters, Lines: []string{body}}
		return asm.addMacro(macro)
	}

	name, text := cutName(parameter)
	if err = symbolName(name); err != nil {
		return
	}
	if len(text) == 0 {
		return asm.ev.Define(name, expr.Symbol{Value: 1})
	}
	if value, verr := asm.ev.Evaluate(text, asm.pc, asm.root); verr == nil {
		return asm.ev.Define(name, expr.Symbol{Value: value})
	}

	return asm.addMacro(&Macro{Name: strings.ToLower(name), Lines: []string{text}})
}

// addMacro registers a macro, refusing duplicates.
func (asm *Assembler) addMacro(macro *Macro) (err error) {
	if asm.macro(macro.Name) >= 0 {
		return expr.ErrDuplicateName(macro.Name)
	}
	asm.macros = append(asm.macros, macro)
	return
}

// undefine removes a symbol or a macro.
func (asm *Assembler) undefine(parameter string) (err error) {
	name := strings.TrimSpace(parameter)
	if len(name) == 0 {
		return ErrDirectiveSyntax
	}
	if asm.ev.Undefine(name) {
		return
	}
	if index := asm.macro(name); index >= 0 {
		asm.macros = append(asm.macros[:index], asm.macros[index+1:]...)
		return
	}
	return expr.ErrUnknownSymbol(strings.ToLower(name))
}

// unquote strips "" or <> from an include name.
func unquote(name string) string {
	name = strings.TrimSpace(name)
	if len(name) >= 2 {
		switch {
		case name[0] == '"' && name[len(name)-1] == '"',
			name[0] == '<' && name[len(name)-1] == '>':
			return name[1 : len(name)-1]
		}
	}
	return name
}

// readInclude finds a file by name, then along the include path.
func (asm *Assembler) readInclude(name string) (data []byte, err error) {
	data, err = fs.ReadFile(asm.settings.FS, name)
	if err == nil {
		return
	}
	for _, dir := range asm.settings.IncludePath {
		data, err = fs.ReadFile(asm.settings.FS, path.Join(dir, name))
		if err == nil {
			return
		}
	}
	err = ErrFileNotFound(name)
	return
}

// include splices a file into the source, ending with an .endfile marker.
func (asm *Assembler) include(parameter string, depth int) (err error) {
	name := unquote(parameter)
	if len(name) == 0 {
		return ErrDirectiveSyntax
	}
	if asm.positions.Len() > IncludeDepthLimit {
		return ErrIncludeDepth
	}
	data, err := asm.readInclude(name)
	if err != nil {
		return
	}

	lines := append(splitLines(string(data)), ".endfile")
	asm.positions.Push(position{fileName: name})
	asm.sources.Push(source{lines: lines, depth: depth})
	return
}

// commandLine splits an .exec parameter into words, unquoting strings.
func commandLine(parameter string) (words []string, err error) {
	for _, word := range internal.SafeSplit(parameter, " ") {
		if len(word) == 0 {
			continue
		}
		if internal.IsQuoted(word) && word[0] == '"' {
			text, ok := internal.Unescape(word[1 : len(word)-1])
			if !ok {
				err = ErrDirectiveSyntax
				return
			}
			word = text
		}
		words = append(words, word)
	}
	if len(words) == 0 {
		err = ErrExecEmpty
	}
	return
}

// exec runs a command and emits its standard output.
func (asm *Assembler) exec(entry *Entry, parameter string) (err error) {
	words, err := commandLine(parameter)
	if err != nil {
		return
	}

	ctx := context.Background()
	if asm.settings.ExecTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, asm.settings.ExecTimeout)
		defer cancel()
	}

	output, err := asm.settings.Exec(ctx, words[0], words[1:])
	if ctx.Err() != nil {
		err = errors.Join(err, ctx.Err())
	}
	if err != nil {
		return
	}

	entry.Output = output
	asm.pc += uint64(len(output))
	return
}
