// Package tables bundles instruction set definitions with the assembler.
package tables

import (
	"embed"
	"io/fs"
	"path"
	"slices"
	"strings"
)

//go:embed *.table
var files embed.FS

const suffix = ".table"

// Get returns the bundled definition with the given name, such as "z80".
func Get(name string) (definition string, ok bool) {
	data, err := files.ReadFile(strings.ToLower(name) + suffix)
	if err != nil {
		return
	}
	return string(data), true
}

// Names lists the bundled definitions, sorted.
func Names() (names []string) {
	entries, err := fs.ReadDir(files, ".")
	if err != nil {
		return
	}
	for _, entry := range entries {
		names = append(names, strings.TrimSuffix(entry.Name(), path.Ext(entry.Name())))
	}
	slices.Sort(names)
	return
}
