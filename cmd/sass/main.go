// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/k0kubun/pp/v3"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ezrec/sass/asm"
	"github.com/ezrec/sass/isa"
	"github.com/ezrec/sass/tables"
	"github.com/ezrec/sass/translate"
)

var f = translate.From

var (
	ErrTerminal = errors.New(f("refusing to write a binary to a terminal, use -o or --force"))
	ErrSource   = errors.New(f("exactly one source file expected"))
)

// options are the command line settings.
type options struct {
	instr       string
	include     []string
	defines     []string
	output      string
	listing     string
	symbols     string
	encoding    string
	nestMacros  bool
	execTimeout time.Duration
	force       bool
	dump        bool
	tables      bool
	verbose     bool
}

// files are the standard streams, replaceable for tests.
type files struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	if fd, ok := w.(interface{ Fd() uintptr }); ok {
		return term.IsTerminal(int(fd.Fd()))
	}
	return false
}

// loadSet resolves --instr as a bundled table name or a table file.
func loadSet(name string) (set *isa.Set, err error) {
	definition, ok := tables.Get(name)
	if !ok {
		var data []byte
		data, err = os.ReadFile(name)
		if err != nil {
			return
		}
		definition = string(data)
	}

	set, err = isa.Load(definition)
	if err != nil {
		err = &os.PathError{Op: "load", Path: name, Err: err}
	}
	return
}

// readSource reads a source file, or standard input for "-".
func readSource(name string, stdin io.Reader) (text string, err error) {
	var data []byte
	if name == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(name)
	}
	text = string(data)
	return
}

// create opens an output file, or standard output for "-".
func create(name string, stdout io.Writer) (w io.WriteCloser, err error) {
	if name == "-" {
		return nopCloser{stdout}, nil
	}
	return os.Create(name)
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

// writeFile writes one output through fn.
func writeFile(name string, stdout io.Writer, fn func(w io.Writer) error) (err error) {
	w, err := create(name, stdout)
	if err != nil {
		return
	}
	err = fn(w)
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	return
}

// binaryName derives the default image name from the source name.
func binaryName(source string) string {
	if source == "-" {
		return "-"
	}
	return strings.TrimSuffix(source, filepath.Ext(source)) + ".bin"
}

// report prints the diagnostics of an assembly.
func report(out *asm.Output, w io.Writer) {
	for _, entry := range out.Diagnostics() {
		kind := "error"
		class := entry.Error.String()
		if entry.Error == asm.ERROR_NONE {
			kind = "warning"
			class = entry.Warning.String()
		}
		translate.Fprintf(w, "%v:%v: %v: %v: %v\n", entry.FileName, strconv.Itoa(entry.LineNumber), kind, class, entry.Err)
	}
}

// run assembles the source and writes the requested outputs. It returns
// the number of diagnostics.
func run(opts *options, source string, std files) (count int, err error) {
	set, err := loadSet(opts.instr)
	if err != nil {
		return
	}

	encoding, err := asm.LookupEncoding(opts.encoding)
	if err != nil {
		return
	}

	text, err := readSource(source, std.stdin)
	if err != nil {
		return
	}

	output := opts.output
	if len(output) == 0 {
		output = binaryName(source)
	}
	if output == "-" && !opts.force && isTerminal(std.stdout) {
		err = ErrTerminal
		return
	}

	includePath := opts.include
	if source != "-" {
		includePath = append([]string{filepath.Dir(source)}, includePath...)
	}

	assembler := &asm.Assembler{
		Set: set,
		Settings: asm.Settings{
			Encoding:          encoding,
			IncludePath:       includePath,
			AllowNestedMacros: opts.nestMacros,
			ExecTimeout:       opts.execTimeout,
			Stdout:            std.stderr,
			Verbose:           opts.verbose,
		},
	}
	for _, define := range opts.defines {
		name, value, ok := strings.Cut(define, "=")
		if !ok {
			value = "1"
		}
		assembler.Predefine(strings.TrimSpace(name), value)
	}

	out := assembler.Assemble(text, source)
	report(out, std.stderr)
	count = out.Errors()

	if opts.dump {
		printer := pp.New()
		printer.SetOutput(std.stderr)
		printer.SetColoringEnabled(isTerminal(std.stderr))
		printer.Println(out.Listing)
		printer.Println(out.Symbols)
	}

	err = writeFile(output, std.stdout, func(w io.Writer) (err error) {
		_, err = w.Write(out.Data)
		return
	})
	if err != nil {
		return
	}

	if len(opts.listing) != 0 {
		err = writeFile(opts.listing, std.stdout, out.WriteListing)
		if err != nil {
			return
		}
	}

	if len(opts.symbols) != 0 {
		err = writeFile(opts.symbols, std.stdout, out.WriteSymbols)
		if err != nil {
			return
		}
	}

	return
}

// newCommand builds the command line. The diagnostic count of the last
// assembly is stored in status.
func newCommand(std files, status *int) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "sass [flags] source",
		Short: "Table driven macro assembler",
		Long: `Sass assembles a source file for any instruction set described by an
instruction table. A table is either one of the bundled tables, named
with --instr, or a table file.

The binary image is written next to the source with a .bin suffix unless
-o is given. Diagnostics are printed to standard error, and the exit
status is the number of lines with errors or warnings.
`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if opts.tables {
				for _, name := range tables.Names() {
					translate.Fprintf(std.stdout, "%v\n", name)
				}
				return
			}
			if len(args) != 1 {
				return ErrSource
			}
			*status, err = run(opts, args[0], std)
			return
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.instr, "instr", "i", "z80", f("instruction table name or file"))
	flags.StringArrayVarP(&opts.include, "include", "I", nil, f("directory searched by .include"))
	flags.StringArrayVarP(&opts.defines, "define", "D", nil, f("predefine a symbol, as name or name=value"))
	flags.StringVarP(&opts.output, "output", "o", "", f("binary image file, - for standard output"))
	flags.StringVarP(&opts.listing, "listing", "l", "", f("listing file, - for standard output"))
	flags.StringVarP(&opts.symbols, "symbols", "s", "", f("symbol file, - for standard output"))
	flags.StringVar(&opts.encoding, "encoding", "utf-8", f("character encoding of strings"))
	flags.BoolVar(&opts.nestMacros, "nest-macros", false, f("allow .macro inside a macro body"))
	flags.DurationVar(&opts.execTimeout, "exec-timeout", 0, f("limit on each .exec command"))
	flags.BoolVar(&opts.force, "force", false, f("write a binary to a terminal"))
	flags.BoolVar(&opts.dump, "dump", false, f("dump the listing and symbols to standard error"))
	flags.BoolVar(&opts.tables, "tables", false, f("list the bundled instruction tables"))
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, f("log each line as it is assembled"))

	return cmd
}

func main() {
	var status int

	cmd := newCommand(files{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}, &status)
	if err := cmd.Execute(); err != nil {
		log.Fatalf("%v: %v", os.Args[0], err)
	}

	os.Exit(min(status, 255))
}
