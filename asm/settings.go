package asm

import (
	"context"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

// ExecFunc runs an external command and returns its standard output.
type ExecFunc func(ctx context.Context, name string, args []string) ([]byte, error)

// Settings configure an assembly.
type Settings struct {
	Encoding          encoding.Encoding // Encoding of strings and characters. Default UTF-8.
	IncludePath       []string          // Directories searched by .include, in order.
	FS                fs.FS             // Filesystem for .include. Default is the host filesystem.
	AllowNestedMacros bool              // Permit .macro inside a .macro body.
	Exec              ExecFunc          // Runs .exec commands. Default runs a host process.
	ExecTimeout       time.Duration     // Limit on an .exec command, if positive.
	Stdout            io.Writer         // Destination of .echo and .error output. Default os.Stdout.
	Verbose           bool              // If set, logs each line as it is assembled.
}

// LookupEncoding resolves a character encoding by its WHATWG name or
// label, such as "utf-8", "iso-8859-1" or "utf-16le". An empty name is UTF-8.
func LookupEncoding(name string) (enc encoding.Encoding, err error) {
	name = strings.TrimSpace(name)
	if len(name) == 0 {
		enc = unicode.UTF8
		return
	}

	enc, err = htmlindex.Get(name)
	if err != nil {
		err = ErrEncodingUnknown(name)
	}
	return
}

// withDefaults fills in the unset fields.
func (settings Settings) withDefaults() Settings {
	if settings.Encoding == nil {
		settings.Encoding = unicode.UTF8
	}
	if settings.FS == nil {
		settings.FS = hostFS{}
	}
	if settings.Exec == nil {
		settings.Exec = hostExec
	}
	if settings.Stdout == nil {
		settings.Stdout = os.Stdout
	}
	return settings
}

// hostFS opens host paths as given, relative to the working directory.
type hostFS struct{}

func (hostFS) Open(name string) (fs.File, error) {
	return os.Open(name)
}

func (hostFS) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(name)
}

func hostExec(ctx context.Context, name string, args []string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}
