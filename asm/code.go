package asm

// CodeType is the kind of a listing entry.
type CodeType int

//go:generate go tool stringer -linecomment -type=CodeType
const (
	CODE_LABEL       = CodeType(0) // Label
	CODE_DIRECTIVE   = CodeType(1) // Directive
	CODE_INSTRUCTION = CodeType(2) // Instruction
)

// Error is the error class of a listing entry.
type Error int

//go:generate go tool stringer -linecomment -type=Error
const (
	ERROR_NONE                = Error(0) // None
	ERROR_INVALID_INSTRUCTION = Error(1) // InvalidInstruction
	ERROR_INVALID_LABEL       = Error(2) // InvalidLabel
	ERROR_FILE_NOT_FOUND      = Error(3) // FileNotFound
	ERROR_INVALID_DIRECTIVE   = Error(4) // InvalidDirective
	ERROR_DUPLICATE_NAME      = Error(5) // DuplicateName
	ERROR_INVALID_EXPRESSION  = Error(6) // InvalidExpression
	ERROR_UNKNOWN_SYMBOL      = Error(7) // UnknownSymbol
	ERROR_UNCOUPLED_STATEMENT = Error(8) // UncoupledStatement
	ERROR_USER_ERROR          = Error(9) // UserError
)

// Warning is the warning class of a listing entry.
type Warning int

//go:generate go tool stringer -linecomment -type=Warning
const (
	WARNING_NONE            = Warning(0) // None
	WARNING_VALUE_TRUNCATED = Warning(1) // ValueTruncated
)
