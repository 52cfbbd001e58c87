package bytecode

import "testing"

func TestOpCodeCount(t *testing.T) {
	if NumOpCodes != 92 {
		t.Fatalf("expected 92 opcodes, got %d", NumOpCodes)
	}
}

func TestOpCodeStringRoundTrip(t *testing.T) {
	for op := OpCode(0); int(op) < NumOpCodes; op++ {
		if op.String() == "" || op.String() == "INVALID" {
			t.Fatalf("opcode %d has no name", op)
		}
	}
}

func TestEncodeDecodeFullOperand(t *testing.T) {
	ins := Instruction{Op: OpPushF, Operand: 123456}
	buf := ins.Encode(nil, Width32)
	if len(buf) != 5 {
		t.Fatalf("expected 5 bytes, got %d", len(buf))
	}
	got, next, err := DecodeInstruction(buf, 0, Width32)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Op != OpPushF || got.Operand != 123456 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if next != len(buf) {
		t.Fatalf("expected next offset %d, got %d", len(buf), next)
	}
}

func TestEncodeDecodeByteOperandNegative(t *testing.T) {
	ins := Instruction{Op: OpAddBI, Operand: -5}
	buf := ins.Encode(nil, Width64)
	got, _, err := DecodeInstruction(buf, 0, Width64)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Operand != -5 {
		t.Fatalf("expected -5, got %d", got.Operand)
	}
}

func TestEncodeDecodeNoOperand(t *testing.T) {
	ins := Instruction{Op: OpRet}
	buf := ins.Encode(nil, Width32)
	if len(buf) != 1 {
		t.Fatalf("expected 1 byte, got %d", len(buf))
	}
}

func TestDecodeAllMultiple(t *testing.T) {
	src := []Instruction{
		{Op: OpPushB, Operand: 1},
		{Op: OpPushB, Operand: 2},
		{Op: OpAdd},
		{Op: OpRet},
	}
	buf := EncodeAll(src, Width32)
	got, offsets, err := DecodeAll(buf, Width32)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != len(src) {
		t.Fatalf("expected %d instructions, got %d", len(src), len(got))
	}
	for i, ins := range got {
		if ins != src[i] {
			t.Fatalf("instruction %d mismatch: got %+v want %+v", i, ins, src[i])
		}
	}
	if offsets[0] != 0 || offsets[1] != 2 || offsets[2] != 4 {
		t.Fatalf("unexpected offsets: %v", offsets)
	}
}

func TestDecodeTruncatedOperand(t *testing.T) {
	buf := []byte{byte(OpPushF), 1, 2}
	_, _, err := DecodeInstruction(buf, 0, Width32)
	if err == nil {
		t.Fatalf("expected truncation error")
	}
}

func TestImmediateFamily(t *testing.T) {
	b, h, f, ok := OpAddBI.ImmediateFamily()
	if !ok || b != OpAddBI || h != OpAddHI || f != OpAddFI {
		t.Fatalf("unexpected family: %v %v %v %v", b, h, f, ok)
	}
	if _, _, _, ok := OpRet.ImmediateFamily(); ok {
		t.Fatalf("RET should not have an immediate family")
	}
}

func TestIsRelativeJump(t *testing.T) {
	if !OpJRFI.IsRelativeJump() {
		t.Fatalf("expected JRFI to be a relative jump")
	}
	if OpJI.IsRelativeJump() {
		t.Fatalf("JI is absolute, not relative")
	}
}
