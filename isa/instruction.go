package isa

// Immediate is a numeric operand captured from a source line.
type Immediate struct {
	Bits         int    // Encoded width in bits.
	Value        string // Expression text.
	RelativeToPC bool   // Encode as a displacement from the instruction.
	RstOnly      bool   // Restricted to RST vectors 0x00-0x38, step 8.
}

// Instruction is a source line bound to a pattern.
type Instruction struct {
	Pattern *Pattern

	Match      string             // Match template of the pattern.
	Value      string             // Value template of the pattern.
	Immediates map[byte]Immediate // Immediate values, by key.
	Operands   map[byte]Operand   // Resolved operands, by key.
}

// Length returns the encoded size of the instruction in bytes. It does not
// need any expression to be evaluated.
func (ins *Instruction) Length() int {
	bits := ins.Pattern.LiteralBits()
	for _, imm := range ins.Immediates {
		bits += imm.Bits
	}
	for _, op := range ins.Operands {
		bits += len(op.Value)
	}
	return bits / 8
}
