package asm

import (
	"errors"

	"github.com/ezrec/sass/expr"
	"github.com/ezrec/sass/translate"
)

var f = translate.From

var (
	// Source errors
	ErrInstructionInvalid = errors.New(f("no instruction matches"))
	ErrLabelInvalid       = errors.New(f("label invalid"))

	// Directive errors
	ErrDirectiveInvalid = errors.New(f("directive unknown"))
	ErrDirectiveSyntax  = errors.New(f("directive syntax"))
	ErrElif             = errors.New(f(".elif is not supported"))
	ErrStringExpected   = errors.New(f("quoted string expected"))
	ErrMacroSyntax      = errors.New(f(".macro syntax"))
	ErrMacroNesting     = errors.New(f(".macro in .macro prohibited"))
	ErrMacroRecursion   = errors.New(f("macro expansion too deep"))
	ErrRstVector        = errors.New(f("rst vector must be a multiple of 8 from 0x00 to 0x38"))
	ErrExecEmpty        = errors.New(f(".exec command missing"))
	ErrIncludeDepth     = errors.New(f(".include nested too deep"))

	// Structure errors
	ErrMacroLonely     = errors.New(f(".macro without .endmacro"))
	ErrMacroLonelyEndm = errors.New(f(".endmacro without .macro"))
	ErrIfLonely        = errors.New(f(".if without .endif"))
	ErrElseLonely      = errors.New(f(".else without .if"))
	ErrElseDuplicate   = errors.New(f(".else after .else"))
	ErrEndifLonely     = errors.New(f(".endif without .if"))
	ErrEndfileLonely   = errors.New(f(".endfile outside of an included file"))
)

// ErrFileNotFound is returned when an included file is missing.
type ErrFileNotFound string

func (err ErrFileNotFound) Error() string {
	return f("file %v not found", string(err))
}

// ErrUser is raised by the .error directive.
type ErrUser string

func (err ErrUser) Error() string {
	return f("user error: %v", string(err))
}

// ErrEncodingUnknown is returned for an unsupported character encoding name.
type ErrEncodingUnknown string

func (err ErrEncodingUnknown) Error() string {
	return f("encoding %v unknown", string(err))
}

// ErrTruncated is the warning for a value that does not fit its field.
type ErrTruncated struct {
	Value uint64
	Bits  int
}

func (err *ErrTruncated) Error() string {
	return f("value 0x%x truncated to %d bits", err.Value, err.Bits)
}

// ErrMacro locates an error raised while expanding a macro.
type ErrMacro struct {
	Macro string
	Err   error
}

func (err *ErrMacro) Error() string {
	return f("macro %v %v", err.Macro, err.Err)
}

func (err *ErrMacro) Unwrap() error {
	return err.Err
}

// ErrorCode classifies an error into the listing error taxonomy.
func ErrorCode(err error) Error {
	var unknown expr.ErrUnknownSymbol
	var invalid expr.ErrInvalidExpression
	var duplicate expr.ErrDuplicateName
	var notFound ErrFileNotFound
	var user ErrUser

	switch {
	case err == nil:
		return ERROR_NONE
	case errors.As(err, &unknown):
		return ERROR_UNKNOWN_SYMBOL
	case errors.As(err, &invalid):
		return ERROR_INVALID_EXPRESSION
	case errors.As(err, &duplicate):
		return ERROR_DUPLICATE_NAME
	case errors.As(err, &notFound):
		return ERROR_FILE_NOT_FOUND
	case errors.As(err, &user):
		return ERROR_USER_ERROR
	case errors.Is(err, ErrInstructionInvalid):
		return ERROR_INVALID_INSTRUCTION
	case errors.Is(err, ErrLabelInvalid):
		return ERROR_INVALID_LABEL
	case errors.Is(err, ErrMacroLonely),
		errors.Is(err, ErrMacroLonelyEndm),
		errors.Is(err, ErrIfLonely),
		errors.Is(err, ErrElseLonely),
		errors.Is(err, ErrElseDuplicate),
		errors.Is(err, ErrEndifLonely),
		errors.Is(err, ErrEndfileLonely):
		return ERROR_UNCOUPLED_STATEMENT
	}

	return ERROR_INVALID_DIRECTIVE
}
