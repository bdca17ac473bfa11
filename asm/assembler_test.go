package asm

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/ezrec/sass/isa"
	"github.com/ezrec/sass/tables"
)

func z80(t *testing.T) *isa.Set {
	t.Helper()

	definition, ok := tables.Get("z80")
	if !ok {
		t.Fatal("z80 table missing")
	}
	set, err := isa.Load(definition)
	if err != nil {
		t.Fatal(err)
	}
	return set
}

func assemble(t *testing.T, settings Settings, lines ...string) *Output {
	t.Helper()

	asm := &Assembler{Set: z80(t), Settings: settings}
	return asm.Assemble(strings.Join(lines, "\n"), "main.asm")
}

// lengthsAgree checks that every instruction emitted its matched length,
// and that the image is the concatenation of the entry outputs.
func lengthsAgree(t *testing.T, out *Output) {
	t.Helper()

	total := 0
	for _, entry := range out.Listing {
		if entry.Instruction != nil {
			assert.Equal(t, entry.Instruction.Length(), len(entry.Output), entry.Code)
		}
		total += len(entry.Output)
	}
	assert.Equal(t, total, len(out.Data))
}

func TestAssemble(t *testing.T) {
	table := [...]struct {
		name  string
		lines []string
		data  []byte
	}{
		{"load immediate", []string{"ld a, 5"}, []byte{0x3e, 0x05}},
		{"register operands", []string{"ld b, c"}, []byte{0x41}},
		{"sixteen bit immediate", []string{"ld hl, 0x1234"}, []byte{0x21, 0x34, 0x12}},
		{"case insensitive", []string{"LD A, 5", ".DB 1"}, []byte{0x3e, 0x05, 0x01}},
		{"org and label", []string{".org 0x100", "start:", "jp start"}, []byte{0xc3, 0x00, 0x01}},
		{"forward reference", []string{"jp end", "end: halt"}, []byte{0xc3, 0x03, 0x00, 0x76}},
		{"relative to self", []string{"jr $"}, []byte{0x18, 0xfe}},
		{"relative backward", []string{"loop: nop", "jr loop"}, []byte{0x00, 0x18, 0xff}},
		{"relative conditional", []string{"jr nz, $"}, []byte{0x20, 0xfe}},
		{"relative forward", []string{"jr fwd", "fwd: nop"}, []byte{0x18, 0xfc, 0x00}},
		{"rst", []string{"rst 0x38", "rst 8"}, []byte{0xff, 0xcf}},
		{"comments", []string{"nop ; do nothing", "; nothing at all", `.db ";"`}, []byte{0x00, ';'}},
		{"data bytes", []string{`.db 1, "AB", 'c'`}, []byte{0x01, 0x41, 0x42, 0x63}},
		{"data negative", []string{".byte -1, -128"}, []byte{0xff, 0x80}},
		{"data words", []string{".dw 0x1234, $"}, []byte{0x34, 0x12, 0x02, 0x00}},
		{"data forward", []string{".db end, end >> 8", ".org 0x1234", "end:"}, []byte{0x34, 0x12}},
		{"word size", []string{".word __wordsize"}, []byte{16, 0}},
		{"strings", []string{`.ascii "hi"`, `.asciiz "hi"`, `.asciip "hi"`},
			[]byte{'h', 'i', 'h', 'i', 0, 2, 'h', 'i'}},
		{"escapes", []string{`.ascii "a\n\x41"`}, []byte{'a', '\n', 'A'}},
		{"byte escapes", []string{`.ascii "\xff\x80"`, `.db '\xff'`}, []byte{0xff, 0x80, 0xff}},
		{"block and fill", []string{".block 2", ".fill 3, 0xaa", ".fill 1"},
			[]byte{0, 0, 0xaa, 0xaa, 0xaa, 0}},
		{"fill with pc", []string{".fill 3, $"}, []byte{0, 1, 2}},
		{"equates", []string{"size .equ 4", ".equ twice, size*2", "half: .equ 2", ".db size, twice, half"},
			[]byte{4, 8, 2}},
		{"define symbol", []string{".define three 3", ".define flag", ".db three, flag"}, []byte{3, 1}},
		{"define text", []string{".define loada ld a,", "loada 7"}, []byte{0x3e, 0x07}},
		{"define function", []string{".define sq(x) ((x)*(x))", ".db sq(3)"}, []byte{9}},
		{"undefine", []string{".define three 3", ".undefine three", ".ifndef three", "nop", ".endif"}, []byte{0x00}},
		{"macro", []string{".macro twice(v)", "ld a, v", "ld a, v", ".endmacro", "twice(1)", "twice(2)"},
			[]byte{0x3e, 1, 0x3e, 1, 0x3e, 2, 0x3e, 2}},
		{"macro with label", []string{".macro pair", "nop", "halt", ".endmacro", "here: pair", "jp here"},
			[]byte{0x00, 0x76, 0xc3, 0x00, 0x00}},
		{"macro in literal", []string{".macro msg(x)", `.ascii "x"`, ".endmacro", "msg(7)"}, []byte{'7'}},
		{"macro inside word", []string{"v1 .equ 9", ".macro put(v)", ".db v1", ".endmacro", "put(2)"}, []byte{21}},
		{"conditional", []string{".if 0", "nop", ".else", "halt", ".endif"}, []byte{0x76}},
		{"conditional nested", []string{"#if 1", "#if 0", "nop", "#else", "di", "#endif", "#else", "halt", "#endif"},
			[]byte{0xf3}},
		{"conditional inactive", []string{".if 0", ".if 1", "nop", ".else", "halt", ".endif", ".endif"}, nil},
		{"conditional defined", []string{".define flag", ".ifdef flag", "nop", ".endif", ".ifndef flag", "halt", ".endif"},
			[]byte{0x00}},
		{"continuation", []string{`nop \ halt`}, []byte{0x00, 0x76}},
		{"local labels", []string{"main:", ".loop: nop", "jp .loop", "other:", ".loop: halt", "jp .loop"},
			[]byte{0x00, 0xc3, 0x00, 0x00, 0x76, 0xc3, 0x04, 0x00}},
		{"anonymous labels", []string{"_: nop", "jp -_", "jp +_", "_: halt"},
			[]byte{0x00, 0xc3, 0x00, 0x00, 0xc3, 0x07, 0x00, 0x76}},
		{"label alone", []string{":first", "second:", ".db first, second"}, []byte{0, 0}},
		{"listing off", []string{".nolist", "nop", ".list", "halt"}, []byte{0x00, 0x76}},
	}

	for _, entry := range table {
		t.Run(entry.name, func(t *testing.T) {
			assert := assert.New(t)

			out := assemble(t, Settings{Stdout: &bytes.Buffer{}}, entry.lines...)
			for _, diag := range out.Diagnostics() {
				t.Errorf("%v:%v: %v: %v", diag.FileName, diag.LineNumber, diag.Code, diag.Err)
			}
			assert.Equal(entry.data, out.Data)
			lengthsAgree(t, out)
		})
	}
}

func TestAssembleErrors(t *testing.T) {
	table := [...]struct {
		name  string
		lines []string
		code  Error
		data  []byte
	}{
		{"unknown instruction", []string{"frob"}, ERROR_INVALID_INSTRUCTION, nil},
		{"unknown symbol", []string{"jp nowhere"}, ERROR_UNKNOWN_SYMBOL, []byte{0, 0, 0}},
		{"unknown anonymous", []string{"jp -_"}, ERROR_UNKNOWN_SYMBOL, []byte{0, 0, 0}},
		{"unknown data", []string{".db 1, nowhere, 3"}, ERROR_UNKNOWN_SYMBOL, []byte{1, 0, 3}},
		{"bad expression", []string{"ld a, 1+"}, ERROR_INVALID_EXPRESSION, []byte{0, 0}},
		{"duplicate label", []string{"here: nop", "here: halt"}, ERROR_DUPLICATE_NAME, []byte{0x00, 0x76}},
		{"duplicate equate", []string{".equ k, 1", ".equ k, 2"}, ERROR_DUPLICATE_NAME, nil},
		{"invalid label", []string{"1abc: nop"}, ERROR_INVALID_LABEL, []byte{0x00}},
		{"unknown directive", []string{".frob"}, ERROR_INVALID_DIRECTIVE, nil},
		{"rst vector", []string{"rst 9"}, ERROR_INVALID_DIRECTIVE, []byte{0x00}},
		{"string expected", []string{".ascii 5"}, ERROR_INVALID_DIRECTIVE, nil},
		{"user error", []string{`.error "stop"`}, ERROR_USER_ERROR, nil},
		{"lonely endif", []string{".endif"}, ERROR_UNCOUPLED_STATEMENT, nil},
		{"lonely else", []string{".else"}, ERROR_UNCOUPLED_STATEMENT, nil},
		{"duplicate else", []string{".if 1", ".else", ".else", ".endif"}, ERROR_UNCOUPLED_STATEMENT, nil},
		{"unterminated if", []string{".if 1", "nop"}, ERROR_UNCOUPLED_STATEMENT, []byte{0x00}},
		{"unterminated inactive if", []string{".if 0", ".if 1", ".endif"}, ERROR_UNCOUPLED_STATEMENT, nil},
		{"unterminated macro", []string{".macro m", "nop"}, ERROR_UNCOUPLED_STATEMENT, nil},
		{"lonely endmacro", []string{".endmacro"}, ERROR_UNCOUPLED_STATEMENT, nil},
		{"lonely endfile", []string{".endfile"}, ERROR_UNCOUPLED_STATEMENT, nil},
		{"elif", []string{".if 1", ".elif 1", ".endif"}, ERROR_INVALID_DIRECTIVE, nil},
		{"missing include", []string{`.include "nope.inc"`}, ERROR_FILE_NOT_FOUND, nil},
		{"duplicate macro", []string{".macro m", ".endmacro", ".macro m", ".endmacro"}, ERROR_DUPLICATE_NAME, nil},
		{"nested macro", []string{".macro outer", ".macro inner", ".endmacro", ".endmacro"}, ERROR_INVALID_DIRECTIVE, nil},
		{"macro header", []string{".macro 1+2", ".endmacro"}, ERROR_INVALID_DIRECTIVE, nil},
		{"org unknown", []string{".org later", "later:"}, ERROR_UNKNOWN_SYMBOL, nil},
		{"block too large", []string{".block 0x10000000"}, ERROR_INVALID_DIRECTIVE, nil},
	}

	for _, entry := range table {
		t.Run(entry.name, func(t *testing.T) {
			assert := assert.New(t)

			settings := Settings{
				FS:     fstest.MapFS{},
				Stdout: &bytes.Buffer{},
			}
			out := assemble(t, settings, entry.lines...)
			diags := out.Diagnostics()
			if assert.Len(diags, 1) {
				assert.Equal(entry.code, diags[0].Error, "%v", diags[0].Err)
				assert.Equal(WARNING_NONE, diags[0].Warning)
			}
			assert.Equal(entry.data, out.Data)
			lengthsAgree(t, out)
		})
	}
}

func TestAssembleTruncation(t *testing.T) {
	table := [...]struct {
		line string
		data []byte
	}{
		{"ld a, 0x1ff", []byte{0x3e, 0xff}},
		{".db 0x100", []byte{0x00}},
		{".dw 0x12345", []byte{0x45, 0x23}},
		{"jr 0x200", []byte{0x18, 0xfe}},
		{".fill 2, 0x1ab", []byte{0xab, 0xab}},
	}

	for _, entry := range table {
		assert := assert.New(t)

		out := assemble(t, Settings{}, entry.line)
		diags := out.Diagnostics()
		if assert.Len(diags, 1, entry.line) {
			assert.Equal(ERROR_NONE, diags[0].Error, entry.line)
			assert.Equal(WARNING_VALUE_TRUNCATED, diags[0].Warning, entry.line)
			var truncated *ErrTruncated
			assert.True(errors.As(diags[0].Err, &truncated), entry.line)
		}
		assert.Equal(entry.data, out.Data, entry.line)
	}
}

func TestAssembleDiagnosticsOrder(t *testing.T) {
	assert := assert.New(t)

	out := assemble(t, Settings{}, "jp nowhere", "frob", "nop", ".db 0x100")

	diags := out.Diagnostics()
	assert.Equal(3, out.Errors())
	if assert.Len(diags, 3) {
		assert.Equal(ERROR_UNKNOWN_SYMBOL, diags[0].Error)
		assert.Equal(1, diags[0].LineNumber)
		assert.Equal(ERROR_INVALID_INSTRUCTION, diags[1].Error)
		assert.Equal(2, diags[1].LineNumber)
		assert.Equal(WARNING_VALUE_TRUNCATED, diags[2].Warning)
		assert.Equal(4, diags[2].LineNumber)
	}

	// The failed jump keeps its length; the invalid line has none.
	assert.Equal([]byte{0, 0, 0, 0x00, 0x00}, out.Data)
	assert.Equal(uint64(3), out.Listing[2].Address)
}

func TestAssembleConditionalSkipped(t *testing.T) {
	assert := assert.New(t)

	out := assemble(t, Settings{}, ".if 0", "inside: nop", "k .equ 5", "_: halt", ".endif", "next: nop", "jp -_")

	assert.NotContains(out.Symbols, "inside")
	assert.NotContains(out.Symbols, "k")
	if assert.Contains(out.Symbols, "next") {
		assert.Equal(uint64(0), out.Symbols["next"].Value)
	}
	assert.Equal([]byte{0x00, 0x00, 0x00, 0x00}, out.Data)

	// The skipped anonymous label is not a target.
	diags := out.Diagnostics()
	if assert.Len(diags, 1) {
		assert.Equal("jp -_", diags[0].Code)
		assert.Equal(ERROR_UNKNOWN_SYMBOL, diags[0].Error)
	}
}

func TestAssembleMacroRecursion(t *testing.T) {
	assert := assert.New(t)

	out := assemble(t, Settings{}, ".macro forever", "forever", ".endmacro", "forever", "nop")

	diags := out.Diagnostics()
	if assert.Len(diags, 1) {
		assert.Equal(ERROR_INVALID_DIRECTIVE, diags[0].Error)
		assert.ErrorIs(diags[0].Err, ErrMacroRecursion)
		var macro *ErrMacro
		if assert.True(errors.As(diags[0].Err, &macro)) {
			assert.Equal("forever", macro.Macro)
		}
	}
	assert.Equal([]byte{0x00}, out.Data)
}

func TestAssembleNestedMacros(t *testing.T) {
	assert := assert.New(t)

	lines := []string{
		".macro outer",
		".macro inner",
		"halt",
		".endmacro",
		"nop",
		".endmacro",
		"outer",
		"inner",
	}

	asm := &Assembler{Set: z80(t), Settings: Settings{AllowNestedMacros: true}}
	out := asm.Assemble(strings.Join(lines, "\n"), "main.asm")
	assert.Empty(out.Diagnostics())
	assert.Equal([]byte{0x00, 0x76}, out.Data)
}

func TestAssembleInclude(t *testing.T) {
	assert := assert.New(t)

	settings := Settings{
		FS: fstest.MapFS{
			"inc/defs.inc": &fstest.MapFile{Data: []byte("value .equ 7\nnop\n")},
			"tail.inc":     &fstest.MapFile{Data: []byte(".if 0\nhalt\n")},
		},
		IncludePath: []string{"inc"},
	}
	out := assemble(t, settings, `.include "defs.inc"`, ".db value", "nop", ".include <tail.inc>", ".endif", "di")

	// The end of an included file is seen inside a skipped branch, and
	// the branch may be closed by the including file.
	assert.Empty(out.Diagnostics())
	assert.Equal([]byte{0x00, 0x07, 0x00, 0xf3}, out.Data)

	nop := out.Listing[2]
	assert.Equal("nop", nop.Code)
	assert.Equal("defs.inc", nop.FileName)
	assert.Equal(2, nop.LineNumber)

	db := out.Listing[3]
	assert.Equal(".db value", db.Code)
	assert.Equal("main.asm", db.FileName)
	assert.Equal(2, db.LineNumber)
}

func TestAssembleIncludeRecursion(t *testing.T) {
	assert := assert.New(t)

	settings := Settings{
		FS: fstest.MapFS{
			"loop.inc": &fstest.MapFile{Data: []byte("nop\n.include \"loop.inc\"\n")},
		},
	}
	out := assemble(t, settings, `.include "loop.inc"`, "halt")

	diagnostics := out.Diagnostics()
	if assert.Len(diagnostics, 1) {
		assert.Equal(ERROR_INVALID_DIRECTIVE, diagnostics[0].Error)
		assert.ErrorIs(diagnostics[0].Err, ErrIncludeDepth)
		assert.Equal("loop.inc", diagnostics[0].FileName)
	}
	assert.Len(out.Data, IncludeDepthLimit+1)
	assert.Equal(byte(0x76), out.Data[len(out.Data)-1])
}

func TestAssembleExec(t *testing.T) {
	assert := assert.New(t)

	var calls [][]string
	settings := Settings{
		Exec: func(ctx context.Context, name string, args []string) ([]byte, error) {
			calls = append(calls, append([]string{name}, args...))
			if name == "fail" {
				return nil, errors.New("exit status 1")
			}
			return []byte{1, 2, 3}, nil
		},
	}

	out := assemble(t, settings, `.exec gen "two words" x`, "after: nop", ".exec fail")
	assert.Equal([][]string{{"gen", "two words", "x"}, {"fail"}}, calls)
	assert.Equal([]byte{1, 2, 3, 0x00}, out.Data)
	assert.Equal(uint64(3), out.Symbols["after"].Value)

	diags := out.Diagnostics()
	if assert.Len(diags, 1) {
		assert.Equal(ERROR_INVALID_DIRECTIVE, diags[0].Error)
		assert.Equal(3, diags[0].LineNumber)
	}
}

func TestAssembleExecTimeout(t *testing.T) {
	assert := assert.New(t)

	settings := Settings{
		ExecTimeout: 10 * time.Millisecond,
		Exec: func(ctx context.Context, name string, args []string) ([]byte, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}

	out := assemble(t, settings, ".exec hang", "nop")
	diags := out.Diagnostics()
	if assert.Len(diags, 1) {
		assert.Equal(ERROR_INVALID_DIRECTIVE, diags[0].Error)
		assert.ErrorIs(diags[0].Err, context.DeadlineExceeded)
	}
	assert.Equal([]byte{0x00}, out.Data)
}

func TestAssembleEcho(t *testing.T) {
	assert := assert.New(t)

	var stdout bytes.Buffer
	out := assemble(t, Settings{Stdout: &stdout},
		`.echo "size {0} of {1}", 2, 3`,
		`.echo "end=", end`,
		`.error "bad {0}", 2`,
		"nop",
		"end:",
	)

	assert.Equal("size 2 of 3\nend=1\n", stdout.String())

	diags := out.Diagnostics()
	if assert.Len(diags, 1) {
		assert.Equal(ERROR_USER_ERROR, diags[0].Error)
		assert.Equal(ErrUser("bad 2"), diags[0].Err)
	}
}

func TestAssembleEncoding(t *testing.T) {
	assert := assert.New(t)

	out := assemble(t, Settings{}, `.db "é", 'A'`)
	assert.Equal([]byte{0xc3, 0xa9, 0x41}, out.Data)

	out = assemble(t, Settings{Encoding: charmap.ISO8859_1}, `.db "é", 'é'`)
	assert.Empty(out.Diagnostics())
	assert.Equal([]byte{0xe9, 0xe9}, out.Data)

	enc, err := LookupEncoding("windows-1252")
	assert.NoError(err)
	out = assemble(t, Settings{Encoding: enc}, `.ascii "é"`)
	assert.Equal([]byte{0xe9}, out.Data)
}

func TestLookupEncoding(t *testing.T) {
	assert := assert.New(t)

	enc, err := LookupEncoding("")
	assert.NoError(err)
	assert.Equal(unicode.UTF8, enc)

	_, err = LookupEncoding("utf-16le")
	assert.NoError(err)

	_, err = LookupEncoding("klingon")
	assert.Equal(ErrEncodingUnknown("klingon"), err)
}

func TestAssemblePredefine(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{Set: z80(t)}
	asm.Predefine("BASE", "0x10")
	asm.Predefine("broken", "1+")

	out := asm.Assemble(".db base", "main.asm")
	assert.Equal([]byte{0x10}, out.Data)

	diags := out.Diagnostics()
	if assert.Len(diags, 1) {
		assert.Equal(ERROR_INVALID_EXPRESSION, diags[0].Error)
	}

	// Each assembly starts afresh from the predefined symbols.
	out = asm.Assemble("here: nop\nhere: nop", "main.asm")
	assert.Len(out.Diagnostics(), 2)
	assert.Equal(uint64(0), out.Symbols["here"].Value)
	assert.Equal(uint64(0x10), out.Symbols["base"].Value)
}

func TestAssembleNoSet(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	out := asm.Assemble(".db 1\nnop", "main.asm")
	assert.Equal([]byte{1}, out.Data)
	if diags := out.Diagnostics(); assert.Len(diags, 1) {
		assert.Equal(ERROR_INVALID_INSTRUCTION, diags[0].Error)
	}
	assert.Equal(uint64(isa.DefaultWordSize), out.Symbols[SymbolWordSize].Value)
}

func TestAssembleListed(t *testing.T) {
	assert := assert.New(t)

	out := assemble(t, Settings{}, ".nolist", "nop", ".list", "halt")

	var listed []string
	for _, entry := range out.Listing {
		if entry.Listed {
			listed = append(listed, entry.Code)
		}
	}
	assert.Equal([]string{".list", "halt"}, listed)
}
