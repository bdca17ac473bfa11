package asm

import (
	"io"
	"iter"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/ezrec/sass/expr"
	"github.com/ezrec/sass/translate"
)

// listingBytes is the number of output bytes shown on a listing line.
const listingBytes = 8

// Output is the result of an assembly.
type Output struct {
	Data    []byte                 // Binary image, in listing order.
	Listing []*Entry               // One entry per assembled line.
	Symbols map[string]expr.Symbol // Final symbol table.
}

// Debug locates the entry that emitted a byte.
type Debug struct {
	*Entry
	Index int // Offset of the byte within the entry output.
}

// Debug returns the entry whose output covers address. The first entry
// wins when org has made ranges overlap.
func (out *Output) Debug(address uint64) (dbg Debug) {
	for _, entry := range out.Listing {
		length := uint64(len(entry.Output))
		if address >= entry.Address && address < entry.Address+length {
			dbg = Debug{
				Entry: entry,
				Index: int(address - entry.Address),
			}
			break
		}
	}

	return
}

// Diagnostics returns the entries with errors or warnings, ordered by
// their position across the whole assembly.
func (out *Output) Diagnostics() (entries []*Entry) {
	for _, entry := range out.Listing {
		if entry.Failed() {
			entries = append(entries, entry)
		}
	}
	slices.SortStableFunc(entries, func(a, b *Entry) int {
		return a.RootLineNumber - b.RootLineNumber
	})
	return
}

// Errors returns the number of entries with errors or warnings.
func (out *Output) Errors() (count int) {
	for _, entry := range out.Listing {
		if entry.Failed() {
			count++
		}
	}
	return
}

// Labels yields the global labels and their addresses, sorted by name.
func (out *Output) Labels() iter.Seq2[string, uint64] {
	return func(yield func(name string, address uint64) bool) {
		for _, name := range slices.Sorted(maps.Keys(out.Symbols)) {
			symbol := out.Symbols[name]
			if !symbol.IsLabel || expr.IsLocal(name) {
				continue
			}
			if !yield(name, symbol.Value) {
				return
			}
		}
	}
}

// WriteSymbols writes the global labels as .equ lines that can be
// included by another assembly.
func (out *Output) WriteSymbols(w io.Writer) (err error) {
	for name, address := range out.Labels() {
		_, err = translate.Fprintf(w, ".equ %v 0x%X\n", name, address)
		if err != nil {
			return
		}
	}
	return
}

// WriteListing writes the listed entries, one per line.
func (out *Output) WriteListing(w io.Writer) (err error) {
	for _, entry := range out.Listing {
		if !entry.Listed {
			continue
		}

		var hex strings.Builder
		for n, b := range entry.Output {
			if n == listingBytes {
				hex.WriteString("..")
				break
			}
			if n > 0 {
				hex.WriteByte(' ')
			}
			translate.Fprintf(&hex, "%02X", b)
		}

		_, err = translate.Fprintf(w, "%v:%v\t%04X\t%-26v\t%v", entry.FileName, strconv.Itoa(entry.LineNumber), entry.Address, hex.String(), entry.Code)
		if err != nil {
			return
		}
		if entry.Error != ERROR_NONE {
			_, err = translate.Fprintf(w, "\t; %v: %v", entry.Error, entry.Err)
		} else if entry.Warning != WARNING_NONE {
			_, err = translate.Fprintf(w, "\t; %v: %v", entry.Warning, entry.Err)
		}
		if err != nil {
			return
		}
		_, err = io.WriteString(w, "\n")
		if err != nil {
			return
		}
	}
	return
}
