// Package debugger wraps an internal/vm.VM with the single-step loop and
// instruction-to-graph-element lookup spec.md §4.10 describes: "a
// single-step form of the dispatcher, consulting the map before each
// instruction" to fire callbacks, plus breakpoints that Continue stops on.
// It only exists to drive a VM built from debug-mode codegen output (one
// whose internal/program.Program carries a non-nil Debug slice); running
// an optimized, debug-info-free program through it degrades gracefully —
// every instruction simply attributes to no node and no wire.
//
// Grounded on the teacher's internal/bytecode/disasm.go Disassembler (a
// per-instruction walk over a Chunk) generalized from "decode and print"
// to "decode and notify", and on cmd/dwscript/cmd/run.go's --trace flag
// for the idea of threading a callback-driven hook set through the
// interpreter loop rather than hardcoding one behavior.
package debugger

import (
	"github.com/decisionlang/decision/internal/bytecode"
	"github.com/decisionlang/decision/internal/program"
	"github.com/decisionlang/decision/internal/vm"
)

// Hooks are the instrumentation callbacks spec.md §4.10 names. Every field
// is optional; a nil hook is simply not called.
type Hooks struct {
	OnNodeActivated  func(node int)
	OnExecutionWire  func(wire int)
	OnWireValue      func(wire int, value int64)
	OnCall           func(name string)
	OnReturn         func(name string)
	OnNodeBreakpoint func(node int)
	OnWireBreakpoint func(wire int)
}

// Debugger drives one VM one instruction at a time, firing Hooks between
// instructions and stopping Continue when a breakpoint fires.
type Debugger struct {
	vm    *vm.VM
	prog  *program.Program
	hooks Hooks

	debugByInstr map[int]program.DebugEntry
	funcByEntry  map[int]program.FuncEntry // keyed by byte offset, for onCall/onReturn name lookup
	offsets      []int

	nodeBreakpoints map[int]bool
	wireBreakpoints map[int]bool

	lastNode int // last node an OnNodeActivated fired for, to suppress repeats within the same node's instruction run
}

// New wraps v, which must have been constructed from p (the same, already
// linked program v executes), so the debugger can resolve each
// instruction's DebugEntry and function metadata.
func New(v *vm.VM, p *program.Program, hooks Hooks) *Debugger {
	debugByInstr := make(map[int]program.DebugEntry, len(p.Debug))
	for _, d := range p.Debug {
		debugByInstr[d.InstrIndex] = d
	}

	offsets := make([]int, len(p.Text)+1)
	off := 0
	for i, ins := range p.Text {
		offsets[i] = off
		off += ins.Size(p.Width)
	}
	offsets[len(p.Text)] = off

	funcByEntry := make(map[int]program.FuncEntry, len(p.Funcs))
	for _, fn := range p.Funcs {
		funcByEntry[offsets[fn.EntryOffset]] = fn
	}

	return &Debugger{
		vm:              v,
		prog:            p,
		hooks:           hooks,
		debugByInstr:    debugByInstr,
		funcByEntry:     funcByEntry,
		offsets:         offsets,
		nodeBreakpoints: map[int]bool{},
		wireBreakpoints: map[int]bool{},
		lastNode:        -1,
	}
}

// SetNodeBreakpoint arms or disarms a breakpoint on a graph node.
func (d *Debugger) SetNodeBreakpoint(node int, on bool) {
	if on {
		d.nodeBreakpoints[node] = true
	} else {
		delete(d.nodeBreakpoints, node)
	}
}

// SetWireBreakpoint arms or disarms a breakpoint on a graph wire.
func (d *Debugger) SetWireBreakpoint(wire int, on bool) {
	if on {
		d.wireBreakpoints[wire] = true
	} else {
		delete(d.wireBreakpoints, wire)
	}
}

// StopReason reports why Continue returned.
type StopReason int

const (
	StopHalted StopReason = iota
	StopBreakpoint
	StopError
)

// Step executes exactly one instruction, firing any hooks attributable to
// it, and reports whether a breakpoint armed on that instruction's node or
// wire fired.
func (d *Debugger) Step() (hitBreakpoint bool, halted bool, err error) {
	idx := d.vm.PC()
	ins := d.vm.Instruction()

	entry, hasEntry := d.debugByInstr[idx]
	if hasEntry {
		hitBreakpoint = d.fireBefore(entry, ins)
	}
	if name, ok := d.callTargetName(ins); ok && d.hooks.OnCall != nil {
		d.hooks.OnCall(name)
	}
	wasReturn := isReturnOp(ins.Op)

	halt, stepErr := d.vm.Step()
	if stepErr != nil {
		return hitBreakpoint, false, stepErr
	}
	// A RET with no active call frame halts the whole program rather than
	// returning from a function call — that case reports halt=true, which
	// is how this distinguishes program termination from a real return.
	if wasReturn && !halt && d.hooks.OnReturn != nil {
		d.hooks.OnReturn(d.callerFuncName(idx))
	}
	if hasEntry && entry.Wire >= 0 && !isControlFlowOp(ins.Op) {
		if v, ok := d.vm.Top(); ok && d.hooks.OnWireValue != nil {
			d.hooks.OnWireValue(entry.Wire, v)
		}
	}
	return hitBreakpoint, halt, nil
}

// fireBefore fires the node/execution-wire/breakpoint hooks attributable
// to the instruction about to execute, and reports whether a breakpoint
// armed on its node or wire is present.
func (d *Debugger) fireBefore(entry program.DebugEntry, ins bytecode.Instruction) bool {
	hit := false
	if entry.Node != d.lastNode {
		d.lastNode = entry.Node
		if d.hooks.OnNodeActivated != nil {
			d.hooks.OnNodeActivated(entry.Node)
		}
	}
	if d.nodeBreakpoints[entry.Node] {
		hit = true
		if d.hooks.OnNodeBreakpoint != nil {
			d.hooks.OnNodeBreakpoint(entry.Node)
		}
	}
	if entry.Wire >= 0 {
		if isControlFlowOp(ins.Op) && d.hooks.OnExecutionWire != nil {
			d.hooks.OnExecutionWire(entry.Wire)
		}
		if d.wireBreakpoints[entry.Wire] {
			hit = true
			if d.hooks.OnWireBreakpoint != nil {
				d.hooks.OnWireBreakpoint(entry.Wire)
			}
		}
	}
	return hit
}

// Continue steps until a breakpoint fires, the VM halts, or a runtime
// error occurs.
func (d *Debugger) Continue() (StopReason, error) {
	for {
		hit, halted, err := d.Step()
		if err != nil {
			return StopError, err
		}
		if hit {
			return StopBreakpoint, nil
		}
		if halted {
			return StopHalted, nil
		}
	}
}

func (d *Debugger) callTargetName(ins bytecode.Instruction) (string, bool) {
	switch ins.Op {
	case bytecode.OpCallI:
		fn, ok := d.funcByEntry[int(ins.Operand)]
		return fn.Name, ok
	default:
		return "", false
	}
}

// callerFuncName names the function whose body contains instruction idx,
// for an OnReturn callback fired right after its RET/RETN executes: the
// declared function whose EntryOffset is the closest one at or before idx.
func (d *Debugger) callerFuncName(idx int) string {
	best := ""
	bestEntry := -1
	for _, fn := range d.prog.Funcs {
		if fn.EntryOffset <= idx && fn.EntryOffset > bestEntry {
			bestEntry = fn.EntryOffset
			best = fn.Name
		}
	}
	return best
}

func isReturnOp(op bytecode.OpCode) bool {
	return op == bytecode.OpRet || op == bytecode.OpRetN
}

func isControlFlowOp(op bytecode.OpCode) bool {
	switch op {
	case bytecode.OpJ, bytecode.OpJI, bytecode.OpJCon, bytecode.OpJConI,
		bytecode.OpJR, bytecode.OpJRBI, bytecode.OpJRHI, bytecode.OpJRFI,
		bytecode.OpJRCon, bytecode.OpJRConBI, bytecode.OpJRConHI, bytecode.OpJRConFI,
		bytecode.OpCall, bytecode.OpCallI,
		bytecode.OpCallR, bytecode.OpCallRB, bytecode.OpCallRH, bytecode.OpCallRF,
		bytecode.OpCallC, bytecode.OpCallCI,
		bytecode.OpRet, bytecode.OpRetN:
		return true
	default:
		return false
	}
}
