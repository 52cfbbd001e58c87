package optimize

import (
	"testing"

	"github.com/decisionlang/decision/internal/bytecode"
	"github.com/decisionlang/decision/internal/program"
)

func TestRemoveRedundantNot(t *testing.T) {
	p := program.New(bytecode.Width64)
	p.Text = []bytecode.Instruction{
		{Op: bytecode.OpPushB, Operand: 1},
		{Op: bytecode.OpNot},
		{Op: bytecode.OpNot},
		{Op: bytecode.OpRet},
	}
	Run(p)
	if len(p.Text) != 2 {
		t.Fatalf("expected NOT-NOT pair removed, got %v", p.Text)
	}
	if p.Text[0].Op != bytecode.OpPushB || p.Text[1].Op != bytecode.OpRet {
		t.Fatalf("unexpected surviving instructions: %v", p.Text)
	}
}

func TestRemoveZeroCountNoOp(t *testing.T) {
	p := program.New(bytecode.Width64)
	p.Text = []bytecode.Instruction{
		{Op: bytecode.OpPushB, Operand: 1},
		{Op: bytecode.OpPopF, Operand: 0},
		{Op: bytecode.OpRet},
	}
	Run(p)
	if len(p.Text) != 2 {
		t.Fatalf("expected zero-count POPF removed, got %v", p.Text)
	}
}

func TestRemoveZeroDeltaJumpAndFixUpFuncOffsets(t *testing.T) {
	p := program.New(bytecode.Width64)
	p.Text = []bytecode.Instruction{
		{Op: bytecode.OpJRFI, Operand: 0}, // jumps straight to the next instruction
		{Op: bytecode.OpRet},
	}
	p.Funcs = []program.FuncEntry{{Name: "f", EntryOffset: 1}}
	p.MainOffset = 1
	Run(p)
	if len(p.Text) != 1 {
		t.Fatalf("expected zero-delta jump removed, got %v", p.Text)
	}
	if p.Funcs[0].EntryOffset != 0 {
		t.Fatalf("expected func entry offset shifted to 0, got %d", p.Funcs[0].EntryOffset)
	}
	if p.MainOffset != 0 {
		t.Fatalf("expected main offset shifted to 0, got %d", p.MainOffset)
	}
}

func TestRewriteRelativeCallDropsRelocation(t *testing.T) {
	p := program.New(bytecode.Width64)
	p.Text = []bytecode.Instruction{
		{Op: bytecode.OpCallI, Operand: 0},
		{Op: bytecode.OpRet},
		{Op: bytecode.OpAdd},
		{Op: bytecode.OpRet},
	}
	p.Funcs = []program.FuncEntry{{Name: "double", EntryOffset: 2}}
	p.LinkTable = []program.LinkRecord{{Kind: program.LinkUserFunction, Name: "double"}}
	p.Relocs = []program.Relocation{{InstrIndex: 0, LinkIndex: 0}}

	Run(p)

	switch p.Text[0].Op {
	case bytecode.OpCallRF, bytecode.OpCallRH, bytecode.OpCallRB:
		// expected: rewritten to a relative call, then shrunk to its
		// narrowest fitting immediate width.
	default:
		t.Fatalf("expected CALLI rewritten to a relative call, got %v", p.Text[0].Op)
	}
	if len(p.Relocs) != 0 {
		t.Fatalf("expected relocation dropped after rewrite, got %v", p.Relocs)
	}
}

func TestShrinkImmediatesNarrowsSmallOperand(t *testing.T) {
	p := program.New(bytecode.Width64)
	p.Text = []bytecode.Instruction{
		{Op: bytecode.OpAddFI, Operand: 3},
		{Op: bytecode.OpRet},
	}
	Run(p)
	if p.Text[0].Op != bytecode.OpAddBI {
		t.Fatalf("expected ADDFI narrowed to ADDBI, got %v with operand %d", p.Text[0].Op, p.Text[0].Operand)
	}
	if p.Text[0].Operand != 3 {
		t.Fatalf("expected operand preserved, got %d", p.Text[0].Operand)
	}
}

func TestShrinkImmediatesSkipsRelocatedInstruction(t *testing.T) {
	p := program.New(bytecode.Width64)
	p.Text = []bytecode.Instruction{
		{Op: bytecode.OpPushF, Operand: 1}, // small value, but pending a relocation
		{Op: bytecode.OpRet},
	}
	p.LinkTable = []program.LinkRecord{{Kind: program.LinkVariableValue, Name: "x"}}
	p.Relocs = []program.Relocation{{InstrIndex: 0, LinkIndex: 0}}
	Run(p)
	if p.Text[0].Op != bytecode.OpPushF {
		t.Fatalf("expected relocated PUSHF left at full width, got %v", p.Text[0].Op)
	}
}

func TestRelativeJumpSurvivesShrinkOfInterveningInstruction(t *testing.T) {
	p := program.New(bytecode.Width64)
	// JRFI jumps past a full-width ADDFI that will shrink to ADDBI; the
	// jump's delta must be recomputed to the new, smaller byte distance.
	p.Text = []bytecode.Instruction{
		{Op: bytecode.OpJRFI, Operand: 9}, // ADDFI (9 bytes: 1+8) then land on RET
		{Op: bytecode.OpAddFI, Operand: 2},
		{Op: bytecode.OpRet},
	}
	Run(p)
	if p.Text[1].Op != bytecode.OpAddBI {
		t.Fatalf("expected ADDFI narrowed, got %v", p.Text[1].Op)
	}
	from := p.Text[0].Size(p.Width)
	addSize := p.Text[1].Size(p.Width)
	want := int64(addSize)
	if p.Text[0].Operand != want {
		t.Fatalf("expected jump delta recomputed to %d (post-shrink), got %d (from=%d)", want, p.Text[0].Operand, from)
	}
}
