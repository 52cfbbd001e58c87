package bytecode

import "encoding/binary"

// IntWidth is the build-time integer width (spec.md §4.10): it decides how
// many bytes a "full" operand occupies, and therefore how many bytes a
// "half" operand occupies (half of a full-width word).
type IntWidth int

const (
	Width32 IntWidth = 32
	Width64 IntWidth = 64
)

// WordBytes is the byte size of a full operand at this width.
func (w IntWidth) WordBytes() int { return int(w) / 8 }

// HalfBytes is the byte size of a half operand at this width.
func (w IntWidth) HalfBytes() int { return w.WordBytes() / 2 }

// Instruction is one decoded VM instruction: an opcode plus its immediate
// operand (zero for NoOperand opcodes). Operand is always stored as a
// 64-bit signed integer regardless of encoded width; encoding narrows or
// widens it on the way to/from a byte stream.
type Instruction struct {
	Op      OpCode
	Operand int64
}

// Size returns the number of bytes this instruction occupies when encoded
// at the given width: one opcode byte plus its operand bytes.
func (ins Instruction) Size(width IntWidth) int {
	switch ins.Op.Width() {
	case ByteOperand:
		return 2
	case HalfOperand:
		return 1 + width.HalfBytes()
	case FullOperand:
		return 1 + width.WordBytes()
	default:
		return 1
	}
}

// Encode appends ins's wire form to buf at the given integer width and
// returns the extended slice. Operands are little-endian (spec.md §9's
// canonical-endianness redesign flag).
func (ins Instruction) Encode(buf []byte, width IntWidth) []byte {
	buf = append(buf, byte(ins.Op))
	switch ins.Op.Width() {
	case ByteOperand:
		buf = append(buf, byte(ins.Operand))
	case HalfOperand:
		buf = appendLittleEndian(buf, uint64(ins.Operand), width.HalfBytes())
	case FullOperand:
		buf = appendLittleEndian(buf, uint64(ins.Operand), width.WordBytes())
	}
	return buf
}

func appendLittleEndian(buf []byte, v uint64, n int) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:n]...)
}

// DecodeInstruction reads one instruction from buf[offset:] at the given
// width, returning it and the offset of the next instruction. DecodeError
// is returned if buf is truncated.
func DecodeInstruction(buf []byte, offset int, width IntWidth) (Instruction, int, error) {
	if offset >= len(buf) {
		return Instruction{}, offset, &DecodeError{Offset: offset, Message: "truncated opcode"}
	}
	op := OpCode(buf[offset])
	if int(op) >= NumOpCodes {
		return Instruction{}, offset, &DecodeError{Offset: offset, Message: "invalid opcode byte"}
	}
	pos := offset + 1

	var n int
	switch op.Width() {
	case ByteOperand:
		n = 1
	case HalfOperand:
		n = width.HalfBytes()
	case FullOperand:
		n = width.WordBytes()
	}
	if n == 0 {
		return Instruction{Op: op}, pos, nil
	}
	if pos+n > len(buf) {
		return Instruction{}, offset, &DecodeError{Offset: offset, Message: "truncated operand"}
	}
	var operand int64
	switch op.Width() {
	case ByteOperand:
		operand = int64(int8(buf[pos]))
	default:
		var tmp [8]byte
		copy(tmp[:], buf[pos:pos+n])
		raw := binary.LittleEndian.Uint64(tmp[:])
		operand = signExtend(raw, n)
	}
	return Instruction{Op: op, Operand: operand}, pos + n, nil
}

func signExtend(raw uint64, nbytes int) int64 {
	bits := uint(nbytes * 8)
	shift := 64 - bits
	return int64(raw<<shift) >> shift
}

// DecodeError reports a malformed instruction stream.
type DecodeError struct {
	Offset  int
	Message string
}

func (e *DecodeError) Error() string {
	return e.Message
}

// EncodeAll encodes a full instruction stream at the given width.
func EncodeAll(ins []Instruction, width IntWidth) []byte {
	var buf []byte
	for _, i := range ins {
		buf = i.Encode(buf, width)
	}
	return buf
}

// DecodeAll decodes a full instruction stream, returning each instruction's
// byte offset alongside it (needed by link/debug tables, which reference
// instructions by byte offset rather than index).
func DecodeAll(buf []byte, width IntWidth) ([]Instruction, []int, error) {
	var ins []Instruction
	var offsets []int
	pos := 0
	for pos < len(buf) {
		i, next, err := DecodeInstruction(buf, pos, width)
		if err != nil {
			return nil, nil, err
		}
		ins = append(ins, i)
		offsets = append(offsets, pos)
		pos = next
	}
	return ins, offsets, nil
}
