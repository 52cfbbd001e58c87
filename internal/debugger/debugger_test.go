package debugger

import (
	"testing"

	"github.com/decisionlang/decision/internal/bytecode"
	"github.com/decisionlang/decision/internal/program"
	"github.com/decisionlang/decision/internal/vm"
)

func sampleProgram() *program.Program {
	p := program.New(bytecode.Width64)
	p.Text = []bytecode.Instruction{
		{Op: bytecode.OpPushB, Operand: 3}, // node 1, wire 10 (value)
		{Op: bytecode.OpPushB, Operand: 4}, // node 2, wire 11 (value)
		{Op: bytecode.OpAdd},               // node 3, wire 12 (value)
		{Op: bytecode.OpRet},               // node 4, wire -1 (not wire-attributable)
	}
	p.Debug = []program.DebugEntry{
		{InstrIndex: 0, Node: 1, Wire: 10},
		{InstrIndex: 1, Node: 2, Wire: 11},
		{InstrIndex: 2, Node: 3, Wire: 12},
		{InstrIndex: 3, Node: 4, Wire: -1},
	}
	return p
}

func TestStepFiresNodeAndWireValueHooks(t *testing.T) {
	p := sampleProgram()
	v := vm.New(p, nil, nil)
	var nodes []int
	var wireValues []int64
	d := New(v, p, Hooks{
		OnNodeActivated: func(node int) { nodes = append(nodes, node) },
		OnWireValue:     func(wire int, value int64) { wireValues = append(wireValues, value) },
	})

	for i := 0; i < 3; i++ {
		if _, _, err := d.Step(); err != nil {
			t.Fatalf("Step: %v", err)
		}
	}

	if len(nodes) != 3 || nodes[0] != 1 || nodes[1] != 2 || nodes[2] != 3 {
		t.Fatalf("expected node activations [1 2 3], got %v", nodes)
	}
	if len(wireValues) != 3 || wireValues[0] != 3 || wireValues[1] != 4 || wireValues[2] != 7 {
		t.Fatalf("expected wire values [3 4 7], got %v", wireValues)
	}
}

func TestContinueStopsAtNodeBreakpoint(t *testing.T) {
	p := sampleProgram()
	v := vm.New(p, nil, nil)
	var hitNode int
	d := New(v, p, Hooks{
		OnNodeBreakpoint: func(node int) { hitNode = node },
	})
	d.SetNodeBreakpoint(3, true)

	reason, err := d.Continue()
	if err != nil {
		t.Fatalf("Continue: %v", err)
	}
	if reason != StopBreakpoint {
		t.Fatalf("expected StopBreakpoint, got %v", reason)
	}
	if hitNode != 3 {
		t.Fatalf("expected breakpoint to report node 3, got %d", hitNode)
	}
}

func TestContinueRunsToHaltWithoutBreakpoints(t *testing.T) {
	p := sampleProgram()
	v := vm.New(p, nil, nil)
	d := New(v, p, Hooks{})

	reason, err := d.Continue()
	if err != nil {
		t.Fatalf("Continue: %v", err)
	}
	if reason != StopHalted {
		t.Fatalf("expected StopHalted, got %v", reason)
	}
}

func TestOnCallAndOnReturnFireAroundUserFunctionCall(t *testing.T) {
	p := program.New(bytecode.Width64)
	p.Text = []bytecode.Instruction{
		{Op: bytecode.OpGetBI, Operand: 0}, // double: entry 0
		{Op: bytecode.OpPushB, Operand: 2},
		{Op: bytecode.OpMul},
		{Op: bytecode.OpRetN, Operand: 1},
		{Op: bytecode.OpPushB, Operand: 5}, // main: entry 4
		{Op: bytecode.OpCallI, Operand: 0},
		{Op: bytecode.OpRet},
	}
	p.Funcs = []program.FuncEntry{{Name: "double", EntryOffset: 0, NumParams: 1, NumReturns: 1}}
	p.MainOffset = 4

	v := vm.New(p, nil, nil)
	var calls, returns []string
	d := New(v, p, Hooks{
		OnCall:   func(name string) { calls = append(calls, name) },
		OnReturn: func(name string) { returns = append(returns, name) },
	})

	for i := 0; i < 7; i++ {
		_, halted, err := d.Step()
		if err != nil {
			t.Fatalf("Step: %v", err)
		}
		if halted {
			break
		}
	}

	if len(calls) != 1 || calls[0] != "double" {
		t.Fatalf("expected one call to double, got %v", calls)
	}
	if len(returns) != 1 || returns[0] != "double" {
		t.Fatalf("expected one return from double, got %v", returns)
	}
}
