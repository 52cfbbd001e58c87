package bytecode

import (
	"strings"
	"testing"
)

func TestDisassembleWithoutResolverPrintsRawOperands(t *testing.T) {
	ins := []Instruction{
		{Op: OpPushB, Operand: 5},
		{Op: OpNot},
	}
	var buf strings.Builder
	NewDisassembler(&buf, Width64).Disassemble(ins, []int{0, 2})

	got := buf.String()
	if !strings.Contains(got, "000000  PUSHB        5\n") {
		t.Fatalf("expected a raw-operand PUSHB line, got %q", got)
	}
	if !strings.Contains(got, "000002  NOT\n") {
		t.Fatalf("expected a bare NOT line, got %q", got)
	}
}

func TestDisassembleWithResolverAnnotatesOperand(t *testing.T) {
	ins := []Instruction{{Op: OpCallI, Operand: 42}}

	var buf strings.Builder
	d := NewDisassembler(&buf, Width64)
	d.SetResolver(func(offset, size int, i Instruction) (string, bool) {
		if i.Op == OpCallI && i.Operand == 42 {
			return "double", true
		}
		return "", false
	})
	d.Disassemble(ins, []int{0})

	if got := buf.String(); !strings.Contains(got, "; double") {
		t.Fatalf("expected resolved target name in output, got %q", got)
	}
}
