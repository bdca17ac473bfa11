package expr

import (
	"github.com/ezrec/sass/translate"
)

var f = translate.From

// ErrInvalidExpression is returned for malformed expression text.
type ErrInvalidExpression string

func (err ErrInvalidExpression) Error() string {
	return f("'%v' is not a valid expression", string(err))
}

// ErrUnknownSymbol is returned when a symbol, or an anonymous label
// reference, cannot be resolved. It may resolve once more of the program
// has been seen.
type ErrUnknownSymbol string

func (err ErrUnknownSymbol) Error() string {
	return f("symbol '%v' not found", string(err))
}

// ErrDuplicateName is returned when a symbol is defined twice.
type ErrDuplicateName string

func (err ErrDuplicateName) Error() string {
	return f("'%v' already defined", string(err))
}
