package graph

import (
	"testing"

	"github.com/decisionlang/decision/internal/token"
)

func startDef() *NodeDef {
	return &NodeDef{
		Name:       "Start",
		SplitIndex: 0,
		Sockets:    []SocketDef{{Name: "after", Type: token.Execution}},
	}
}

func printDef() *NodeDef {
	return &NodeDef{
		Name:       "Print",
		SplitIndex: 2,
		Sockets: []SocketDef{
			{Name: "before", Type: token.Execution},
			{Name: "value", Type: token.VarAny},
			{Name: "after", Type: token.Execution},
		},
	}
}

func TestAddWireAndLookup(t *testing.T) {
	g := New()
	start := g.AddNode(&Node{Def: startDef()})
	print := g.AddNode(&Node{Def: printDef()})

	if err := g.AddWire(Endpoint{start, 0}, Endpoint{print, 0}); err != nil {
		t.Fatalf("AddWire exec: %v", err)
	}

	w, ok := g.FirstWireFrom(Endpoint{start, 0})
	if !ok || w.To != (Endpoint{print, 0}) {
		t.Fatalf("expected wire start->print, got %+v ok=%v", w, ok)
	}
	if g.ConnectionCount(Endpoint{print, 0}) != 1 {
		t.Fatalf("expected 1 connection at print.before")
	}
	// Sortedness: every wire appears with both orientations.
	if len(g.Wires) != 2 {
		t.Fatalf("expected 2 stored wire entries (both directions), got %d", len(g.Wires))
	}
}

func TestExecutionOutputSingleConnection(t *testing.T) {
	g := New()
	start := g.AddNode(&Node{Def: startDef()})
	p1 := g.AddNode(&Node{Def: printDef()})
	p2 := g.AddNode(&Node{Def: printDef()})

	if err := g.AddWire(Endpoint{start, 0}, Endpoint{p1, 0}); err != nil {
		t.Fatalf("first wire: %v", err)
	}
	if err := g.AddWire(Endpoint{start, 0}, Endpoint{p2, 0}); err == nil {
		t.Fatalf("expected error connecting a second wire from an execution output")
	}
}

func TestTypeMismatchRejected(t *testing.T) {
	g := New()
	a := g.AddNode(&Node{Def: &NodeDef{SplitIndex: 1, Sockets: []SocketDef{
		{Name: "in", Type: token.Int}, {Name: "out", Type: token.Int},
	}}})
	b := g.AddNode(&Node{Def: &NodeDef{SplitIndex: 1, Sockets: []SocketDef{
		{Name: "in", Type: token.String}, {Name: "out", Type: token.String},
	}}})
	if err := g.AddWire(Endpoint{a, 1}, Endpoint{b, 0}); err == nil {
		t.Fatalf("expected type-mismatch error connecting Int output to String input")
	}
}

func TestInfiniteInputsFolding(t *testing.T) {
	def := &NodeDef{
		Name:           "Concat",
		SplitIndex:     1,
		InfiniteInputs: true,
		Sockets: []SocketDef{
			{Name: "a", Type: token.String},
			{Name: "result", Type: token.String},
		},
	}
	n := &Node{Def: def, InfiniteSplit: 3}
	// Instance has 3 concrete inputs (folded onto def socket 0) then 1 output.
	if n.NumSockets() != 4 {
		t.Fatalf("expected 4 sockets (3 inputs + 1 output), got %d", n.NumSockets())
	}
	if n.SocketType(0) != token.String || n.SocketType(2) != token.String {
		t.Fatalf("expected folded input sockets to be String")
	}
	if n.StartOutputIndex() != 3 {
		t.Fatalf("expected output to start at index 3, got %d", n.StartOutputIndex())
	}
	if n.SocketType(3) != token.String {
		t.Fatalf("expected output socket to be String, got %v", n.SocketType(3))
	}
}
