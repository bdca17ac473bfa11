// Package asm implements a two pass macro assembler driven by an
// instruction set table.
//
// The first pass expands macros, evaluates conditionals and directives,
// defines labels and matches each instruction to a pattern, which fixes
// its length and so the address of every following line. The second pass
// evaluates the expressions left unresolved, encodes the instructions and
// concatenates the output of every listing entry into the binary image.
//
// Problems in the source never stop an assembly. They are recorded on the
// listing entry of the offending line, and an entry that fails keeps its
// length so that later addresses do not move.
package asm
