package bytecode

import (
	"fmt"
	"io"
)

// Resolver names an instruction's operand for a caller that has more
// context than the bare instruction stream — typically a linked
// program's function table, so a call's target byte offset can be
// printed as the function it actually calls rather than a bare number.
// size is ins.Size(width), handed in so a relative-call/jump resolver
// doesn't need its own copy of the width to recompute it.
type Resolver func(offset int, size int, ins Instruction) (name string, ok bool)

// Disassembler renders a decoded instruction stream as human-readable
// text, one line per instruction, byte-offset prefixed.
//
// Grounded on the teacher's own internal/bytecode/disasm.go Disassembler,
// generalized from its per-opcode-category dispatch table (one opcode
// shape per chunk element: simple/constant/var/jump/call/...) down to this
// instruction set's single shape (an opcode plus one optional operand),
// since every opcode here already carries OpCode.Width() telling the
// disassembler whether to print an operand at all.
type Disassembler struct {
	w        io.Writer
	width    IntWidth
	resolver Resolver
}

// NewDisassembler builds a Disassembler for an instruction stream encoded
// at width.
func NewDisassembler(w io.Writer, width IntWidth) *Disassembler {
	return &Disassembler{w: w, width: width}
}

// SetResolver installs r, consulted for every operand-bearing instruction
// before falling back to printing the raw numeric operand. A nil resolver
// (the default) always prints raw operands.
func (d *Disassembler) SetResolver(r Resolver) { d.resolver = r }

// Disassemble writes one line per instruction in ins, prefixed by its byte
// offset; offsets must be the DecodeAll-reported offset of each
// instruction.
func (d *Disassembler) Disassemble(ins []Instruction, offsets []int) {
	for i, instr := range ins {
		d.line(offsets[i], instr)
	}
}

func (d *Disassembler) line(offset int, ins Instruction) {
	if ins.Op.Width() == NoOperand {
		fmt.Fprintf(d.w, "%06d  %s\n", offset, ins.Op)
		return
	}
	if d.resolver != nil {
		if name, ok := d.resolver(offset, ins.Size(d.width), ins); ok {
			fmt.Fprintf(d.w, "%06d  %-12s %d  ; %s\n", offset, ins.Op, ins.Operand, name)
			return
		}
	}
	fmt.Fprintf(d.w, "%06d  %-12s %d\n", offset, ins.Op, ins.Operand)
}
