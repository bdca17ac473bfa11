package asm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeString(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("Directive", CODE_DIRECTIVE.String())
	assert.Equal("None", ERROR_NONE.String())
	assert.Equal("UncoupledStatement", ERROR_UNCOUPLED_STATEMENT.String())
	assert.Equal("UserError", ERROR_USER_ERROR.String())
	assert.Equal("ValueTruncated", WARNING_VALUE_TRUNCATED.String())
	assert.Equal("Error(42)", Error(42).String())
	assert.Equal("Warning(-1)", Warning(-1).String())
	assert.Equal("CodeType(3)", CodeType(3).String())
}
