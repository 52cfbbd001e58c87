package link

import (
	"testing"

	"github.com/decisionlang/decision/internal/bytecode"
	"github.com/decisionlang/decision/internal/program"
)

func TestResolveVariableAndFunction(t *testing.T) {
	p := program.New(bytecode.Width64)
	p.Text = []bytecode.Instruction{
		{Op: bytecode.OpPushF, Operand: 0}, // reloc target: variable address
		{Op: bytecode.OpCallI, Operand: 0}, // reloc target: function entry
		{Op: bytecode.OpRet},
	}
	p.Vars = []program.VarEntry{{Name: "count", DataOffset: 16}}
	p.Funcs = []program.FuncEntry{{Name: "double", EntryOffset: 2}}
	p.LinkTable = []program.LinkRecord{
		{Kind: program.LinkVariableValue, Name: "count"},
		{Kind: program.LinkUserFunction, Name: "double"},
	}
	p.Relocs = []program.Relocation{{InstrIndex: 0, LinkIndex: 0}, {InstrIndex: 1, LinkIndex: 1}}

	if err := Resolve(p); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if p.Text[0].Operand != 16 {
		t.Fatalf("expected variable address 16, got %d", p.Text[0].Operand)
	}
	wantFuncByte := p.Text[0].Size(p.Width) + p.Text[1].Size(p.Width)
	if p.Text[1].Operand != int64(wantFuncByte) {
		t.Fatalf("expected function byte offset %d, got %d", wantFuncByte, p.Text[1].Operand)
	}
	if p.LinkTable != nil || p.Relocs != nil {
		t.Fatalf("expected link bookkeeping cleared after resolve")
	}
}

func TestResolveUnknownFunctionErrors(t *testing.T) {
	p := program.New(bytecode.Width64)
	p.Text = []bytecode.Instruction{{Op: bytecode.OpCallI, Operand: 0}}
	p.LinkTable = []program.LinkRecord{{Kind: program.LinkUserFunction, Name: "missing"}}
	p.Relocs = []program.Relocation{{InstrIndex: 0, LinkIndex: 0}}

	if err := Resolve(p); err == nil {
		t.Fatalf("expected an unresolved-reference error")
	}
}

func TestResolveNativeAssignsStableIndices(t *testing.T) {
	p := program.New(bytecode.Width64)
	p.Text = []bytecode.Instruction{
		{Op: bytecode.OpPushF, Operand: 0},
		{Op: bytecode.OpPushF, Operand: 0},
	}
	p.LinkTable = []program.LinkRecord{
		{Kind: program.LinkNativeFunction, Name: "HostLog"},
		{Kind: program.LinkNativeFunction, Name: "HostLog"},
	}
	p.Relocs = []program.Relocation{{InstrIndex: 0, LinkIndex: 0}, {InstrIndex: 1, LinkIndex: 1}}

	if err := Resolve(p); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if p.Text[0].Operand != p.Text[1].Operand {
		t.Fatalf("expected the same native name to resolve to the same index both times")
	}
	if len(p.Natives) != 1 || p.Natives[0] != "HostLog" {
		t.Fatalf("expected a single native table entry, got %v", p.Natives)
	}
}

func TestVerifyNativesReportsEveryMissingSignature(t *testing.T) {
	p := program.New(bytecode.Width64)
	p.Natives = []string{"HostLog", "HostAlert"}

	err := VerifyNatives(p, map[string]bool{"HostLog": true})
	if err == nil {
		t.Fatalf("expected a missing-native error")
	}
	mnErr, ok := err.(*MissingNativeError)
	if !ok {
		t.Fatalf("expected *MissingNativeError, got %T", err)
	}
	if len(mnErr.Missing) != 1 || mnErr.Missing[0] != "HostAlert" {
		t.Fatalf("expected only HostAlert reported missing, got %v", mnErr.Missing)
	}
}

func TestVerifyNativesSucceedsWhenRegistryCoversEveryName(t *testing.T) {
	p := program.New(bytecode.Width64)
	p.Natives = []string{"HostLog"}

	if err := VerifyNatives(p, map[string]bool{"HostLog": true, "Unused": true}); err != nil {
		t.Fatalf("VerifyNatives: %v", err)
	}
}

func TestMergeRebasesIncludedProgram(t *testing.T) {
	main := program.New(bytecode.Width64)
	main.Text = []bytecode.Instruction{{Op: bytecode.OpRet}}
	main.Data = []byte{1, 2, 3, 4}

	inc := program.New(bytecode.Width64)
	inc.Text = []bytecode.Instruction{{Op: bytecode.OpAdd}, {Op: bytecode.OpRet}}
	inc.Data = []byte{9, 9}
	inc.Funcs = []program.FuncEntry{{Name: "helper", EntryOffset: 0}}
	inc.Vars = []program.VarEntry{{Name: "shared", DataOffset: 0}}
	inc.LinkTable = []program.LinkRecord{{Kind: program.LinkStringLiteral, DataOffset: 0, DataLen: 2}}
	inc.Relocs = []program.Relocation{{InstrIndex: 0, LinkIndex: 0}}
	inc.StringLiterals = []program.StringLiteral{{Value: "hi", Offset: 0, Count: 2}}

	Merge(main, inc)

	if len(main.Text) != 3 {
		t.Fatalf("expected merged text length 3, got %d", len(main.Text))
	}
	if main.Funcs[0].EntryOffset != 1 {
		t.Fatalf("expected included function entry rebased to 1, got %d", main.Funcs[0].EntryOffset)
	}
	if main.Vars[0].DataOffset != 4 {
		t.Fatalf("expected included variable offset rebased to 4, got %d", main.Vars[0].DataOffset)
	}
	if main.LinkTable[0].DataOffset != 4 {
		t.Fatalf("expected included string literal offset rebased to 4, got %d", main.LinkTable[0].DataOffset)
	}
	if main.Relocs[0].InstrIndex != 1 {
		t.Fatalf("expected included reloc instruction index rebased to 1, got %d", main.Relocs[0].InstrIndex)
	}
	if len(main.StringLiterals) != 1 || main.StringLiterals[0].Offset != 4 {
		t.Fatalf("expected included string-literal offset rebased to 4, got %+v", main.StringLiterals)
	}
}
