package isa

import (
	"errors"

	"github.com/ezrec/sass/translate"
)

var f = translate.From

var (
	ErrLineInvalid        = errors.New(f("line not valid"))
	ErrOperandSyntax      = errors.New(f("OPERAND syntax"))
	ErrOperandValue       = errors.New(f("operand value must be a binary number"))
	ErrInstructionSyntax  = errors.New(f("INS syntax"))
	ErrWordSize           = errors.New(f("WORDSIZE must be a positive multiple of 8"))
	ErrPlaceholderSyntax  = errors.New(f("placeholder syntax"))
	ErrPlaceholderUnbound = errors.New(f("placeholder not declared in the match template"))
	ErrValueSyntax        = errors.New(f("value template may only contain bits and placeholders"))
)

// ErrGroupMissing is returned when a template names an undefined operand group.
type ErrGroupMissing string

func (err ErrGroupMissing) Error() string {
	return f("operand group %v missing", string(err))
}

// ErrFormat locates a definition error.
type ErrFormat struct {
	LineNo int
	Line   string
	Err    error
}

func (err *ErrFormat) Error() string {
	return f("instruction set line %d '%v' %v", err.LineNo, err.Line, err.Err)
}

func (err *ErrFormat) Unwrap() error {
	return err.Err
}
