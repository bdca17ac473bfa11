package asm

import (
	"log"
	"strings"

	"github.com/ezrec/sass/isa"
)

// ConvertToBinary renders the low bits of value as a string of '0' and
// '1'. Widths that are a whole number of octets, wider than one, are
// rendered least significant octet first.
func ConvertToBinary(value uint64, bits int) string {
	digits := make([]byte, bits)
	for n := range bits {
		if n < 64 && value&(1<<n) != 0 {
			digits[bits-1-n] = '1'
		} else {
			digits[bits-1-n] = '0'
		}
	}

	if bits <= 8 || bits%8 != 0 {
		return string(digits)
	}

	var little strings.Builder
	for n := bits - 8; n >= 0; n -= 8 {
		little.Write(digits[n : n+8])
	}
	return little.String()
}

// ConvertFromBinary packs a string of '0' and '1' into bytes, most
// significant bit first. A partial final octet is padded with zeros.
func ConvertFromBinary(bits string) (data []byte) {
	data = make([]byte, (len(bits)+7)/8)
	for n := range len(bits) {
		if bits[n] == '1' {
			data[n/8] |= 0x80 >> (n % 8)
		}
	}
	return
}

// fit sizes data to exactly n bytes.
func fit(data []byte, n int) []byte {
	if len(data) == n {
		return data
	}
	out := make([]byte, n)
	copy(out, data)
	return out
}

// finish is the second pass. Deferred directives are resolved, instructions
// are encoded, and the image is built from the listing.
func (asm *Assembler) finish() {
	asm.pass2 = true

	for _, entry := range asm.out.Listing {
		asm.ev.LastGlobalLabel = entry.Scope

		switch {
		case entry.Deferred != nil:
			asm.resolve(entry)
		case entry.Instruction != nil:
			asm.encode(entry)
		}

		if asm.settings.Verbose && len(entry.Output) > 0 {
			log.Printf("%04x: % x", entry.Address, entry.Output)
		}

		asm.out.Data = append(asm.out.Data, entry.Output...)
	}
}

// resolve evaluates a directive left over from the first pass.
func (asm *Assembler) resolve(entry *Entry) {
	deferred := entry.Deferred
	entry.Deferred = nil

	switch deferred.Directive {
	case "echo", "error":
		asm.echo(entry, deferred.Directive, deferred.Parameters)
	default:
		output, warn, err := asm.bytes(deferred.Directive, deferred.Parameters, entry.Address, entry.RootLineNumber)
		entry.Output = fit(output, len(entry.Output))
		entry.Fail(err)
		if warn != nil {
			entry.Warn(warn)
		}
	}
}

// encode fills in the value template of a matched instruction. An
// instruction that cannot be encoded is emitted as zeros.
func (asm *Assembler) encode(entry *Entry) {
	ins := entry.Instruction
	length := ins.Length()

	var bits strings.Builder
	var warn error
	for _, token := range ins.Pattern.Tokens() {
		switch token.Kind {
		case isa.TOKEN_LITERAL:
			bits.WriteString(token.Literal)
		case isa.TOKEN_OPERAND:
			bits.WriteString(ins.Operands[token.Key].Value)
		default:
			text, w, err := asm.immediate(ins.Immediates[token.Key], entry.Address, length, entry.RootLineNumber)
			if err != nil {
				entry.Fail(err)
				entry.Output = make([]byte, length)
				return
			}
			if warn == nil {
				warn = w
			}
			bits.WriteString(text)
		}
	}

	entry.Output = fit(ConvertFromBinary(bits.String()), length)
	if warn != nil {
		entry.Warn(warn)
	}
}

// immediate evaluates and encodes one immediate value of an instruction
// at address.
func (asm *Assembler) immediate(imm isa.Immediate, address uint64, length int, root int) (bits string, warn error, err error) {
	value, err := asm.ev.Evaluate(imm.Value, address, root)
	if err != nil {
		return
	}

	switch {
	case imm.RstOnly:
		if value > 0x38 || value%8 != 0 {
			err = ErrRstVector
			return
		}
		bits = ConvertToBinary(value>>3, 3)
		return
	case imm.RelativeToPC:
		value = address - (value + uint64(length))
		if imm.Bits < 64 {
			high := value >> (imm.Bits - 1)
			if high != 0 && high != ^uint64(0)>>(imm.Bits-1) {
				warn = &ErrTruncated{Value: value, Bits: imm.Bits}
			}
		}
	default:
		if imm.Bits < 64 && value>>imm.Bits != 0 {
			warn = &ErrTruncated{Value: value, Bits: imm.Bits}
		}
	}

	bits = ConvertToBinary(value, imm.Bits)
	return
}
