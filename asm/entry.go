package asm

import (
	"github.com/ezrec/sass/isa"
)

// Deferred is directive work left for the second pass.
type Deferred struct {
	Directive  string   // Directive name, lower case.
	Parameters []string // Unevaluated parameter text.
}

// Entry is one line of the listing.
type Entry struct {
	CodeType    CodeType
	Code        string           // Source text, without comment.
	Address     uint64           // Program counter at the start of the line.
	Instruction *isa.Instruction // Matched instruction, if any.
	Output      []byte           // Emitted bytes.
	Deferred    *Deferred        // Set while the output awaits the second pass.

	Error   Error
	Warning Warning
	Err     error // Detail of the error or warning.

	FileName       string
	LineNumber     int    // Line in FileName.
	RootLineNumber int    // Line across the whole assembly.
	Scope          string // Global label in effect for local references.
	Listed         bool   // False between .nolist and .list.
}

// Fail records an error on the entry. The first error is kept.
func (entry *Entry) Fail(err error) {
	if err == nil || entry.Error != ERROR_NONE {
		return
	}
	entry.Err = err
	entry.Error = ErrorCode(err)
}

// Warn records a truncation warning on the entry.
func (entry *Entry) Warn(err error) {
	if entry.Warning != WARNING_NONE {
		return
	}
	if entry.Err == nil {
		entry.Err = err
	}
	entry.Warning = WARNING_VALUE_TRUNCATED
}

// Failed reports whether the entry has an error or a warning.
func (entry *Entry) Failed() bool {
	return entry.Error != ERROR_NONE || entry.Warning != WARNING_NONE
}

// Length returns the number of bytes the entry occupies.
func (entry *Entry) Length() int {
	if entry.Instruction != nil {
		return entry.Instruction.Length()
	}
	return len(entry.Output)
}
