package objfile

import (
	"bytes"
	"testing"

	"github.com/decisionlang/decision/internal/bytecode"
	"github.com/decisionlang/decision/internal/program"
)

func samplProgram() *program.Program {
	p := program.New(bytecode.Width64)
	p.Text = []bytecode.Instruction{
		{Op: bytecode.OpPushF, Operand: 16},
		{Op: bytecode.OpCallC, Operand: 2},
		{Op: bytecode.OpRet},
	}
	p.Data = []byte{1, 2, 3, 4, 5, 6, 7, 8}
	p.MainOffset = 2
	p.Funcs = []program.FuncEntry{{Name: "double", EntryOffset: 0, NumParams: 1, NumReturns: 1}}
	p.Vars = []program.VarEntry{{Name: "total", Type: 1, DataOffset: 0}}
	p.LinkTable = []program.LinkRecord{
		{Kind: program.LinkVariableValue, Name: "total"},
	}
	p.Relocs = []program.Relocation{{InstrIndex: 0, LinkIndex: 0}}
	p.Natives = []string{"HostLog"}
	p.Debug = []program.DebugEntry{{InstrIndex: 0, Node: 3, Wire: -1}}
	p.StringLiterals = []program.StringLiteral{{Value: "hi", Offset: 0, Count: 2}}
	return p
}

func TestWriteReadRoundTrip(t *testing.T) {
	p := samplProgram()
	includes := []string{"shared.decision"}

	var buf bytes.Buffer
	if err := Write(&buf, p, includes); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, gotIncludes, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if len(got.Text) != len(p.Text) {
		t.Fatalf("text length: got %d want %d", len(got.Text), len(p.Text))
	}
	for i := range p.Text {
		if got.Text[i] != p.Text[i] {
			t.Fatalf("text[%d]: got %+v want %+v", i, got.Text[i], p.Text[i])
		}
	}
	if !bytes.Equal(got.Data, p.Data) {
		t.Fatalf("data mismatch: got %v want %v", got.Data, p.Data)
	}
	if got.MainOffset != p.MainOffset {
		t.Fatalf("main offset: got %d want %d", got.MainOffset, p.MainOffset)
	}
	if got.Width != p.Width {
		t.Fatalf("width: got %v want %v", got.Width, p.Width)
	}
	if len(got.Funcs) != 1 || got.Funcs[0] != p.Funcs[0] {
		t.Fatalf("funcs mismatch: got %+v", got.Funcs)
	}
	if len(got.Vars) != 1 || got.Vars[0] != p.Vars[0] {
		t.Fatalf("vars mismatch: got %+v", got.Vars)
	}
	if len(got.LinkTable) != 1 || got.LinkTable[0] != p.LinkTable[0] {
		t.Fatalf("link table mismatch: got %+v", got.LinkTable)
	}
	if len(got.Relocs) != 1 || got.Relocs[0] != p.Relocs[0] {
		t.Fatalf("relocs mismatch: got %+v", got.Relocs)
	}
	if len(got.Natives) != 1 || got.Natives[0] != "HostLog" {
		t.Fatalf("natives mismatch: got %v", got.Natives)
	}
	if len(got.Debug) != 1 || got.Debug[0] != p.Debug[0] {
		t.Fatalf("debug mismatch: got %+v", got.Debug)
	}
	if len(gotIncludes) != 1 || gotIncludes[0] != "shared.decision" {
		t.Fatalf("includes mismatch: got %v", gotIncludes)
	}
	if len(got.StringLiterals) != 1 || got.StringLiterals[0] != p.StringLiterals[0] {
		t.Fatalf("string literals mismatch: got %+v", got.StringLiterals)
	}
}

func TestReadRejectsBadMagic(t *testing.T) {
	buf := bytes.NewBufferString("NOPE")
	if _, _, err := Read(buf); err == nil {
		t.Fatalf("expected an error for bad magic")
	}
}

func TestWriteReadWithoutDebugInfo(t *testing.T) {
	p := samplProgram()
	p.Debug = nil
	p.StringLiterals = nil

	var buf bytes.Buffer
	if err := Write(&buf, p, nil); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, includes, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.Debug != nil {
		t.Fatalf("expected nil debug info, got %v", got.Debug)
	}
	if got.StringLiterals != nil {
		t.Fatalf("expected nil string literals, got %v", got.StringLiterals)
	}
	if includes != nil {
		t.Fatalf("expected nil includes, got %v", includes)
	}
}
