// Package isa loads a declarative instruction set definition and matches
// source lines against its opcode patterns.
//
// A definition is line oriented:
//
//	# comment
//	WORDSIZE 16
//	OPERAND reg8 b 000
//	INS ld_@a<reg8>-,-%b<8> 00@a110 %b
//
// The match template of an INS line is a small pattern language:
//
//	c          literal character (case-insensitive)
//	_          one or more whitespace characters
//	-          zero or more whitespace characters
//	%k<bits>   immediate value k of the given width
//	^k<bits>   PC relative immediate value k
//	&k         8-bit RST vector k (0x00-0x38, multiple of 8)
//	@k<group>  operand k taken from the named operand group
//
// The value template is a bit string of '0' and '1' characters with the
// same placeholders (without widths) marking where the bits of immediates
// and operands are substituted.
package isa
