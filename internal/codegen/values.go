package codegen

import (
	"github.com/decisionlang/decision/internal/bytecode"
	"github.com/decisionlang/decision/internal/graph"
	"github.com/decisionlang/decision/internal/program"
	"github.com/decisionlang/decision/internal/semantic"
	"github.com/decisionlang/decision/internal/token"
)

// lowerValue ensures the value produced at ep sits at the top of the
// virtual stack, computing its producing node if this is the first use and
// copying it from its recorded frame position otherwise (spec.md §4.6's
// "subsequent uses either find the value already at top-of-stack or emit a
// copy-from-frame instruction").
func (b *Builder) lowerValue(ep graph.Endpoint) {
	if pos, ok := b.valuePos[ep]; ok {
		if pos == b.height-1 {
			return
		}
		b.emit(bytecode.OpGetFI, int64(pos))
		b.push()
		b.valuePos[ep] = b.height - 1
		return
	}
	idx := ep.Node
	n := b.g.Nodes[idx]
	if n.Def.Name == "For" && ep.Socket == n.StartOutputIndex()+1 {
		b.loadVar(b.forIndexVar[idx], token.Int)
		b.valuePos[ep] = b.height - 1
		return
	}
	switch n.Def.Name {
	case "Add", "Subtract", "Multiply":
		b.lowerArith(idx, n)
	case "Divide":
		b.lowerDivide(idx, n)
	case "Div":
		b.lowerBinaryInt(idx, n, bytecode.OpDiv)
	case "Mod":
		b.lowerBinaryInt(idx, n, bytecode.OpMod)
	case "And":
		b.lowerBinaryInt(idx, n, bytecode.OpAnd)
	case "Or":
		b.lowerBinaryInt(idx, n, bytecode.OpOr)
	case "Xor":
		b.lowerBinaryInt(idx, n, bytecode.OpXor)
	case "Not":
		b.lowerUnary(idx, n, bytecode.OpNot)
	case "Equal", "NotEqual", "LessThan", "LessThanOrEqual", "MoreThan", "MoreThanOrEqual":
		b.lowerComparison(idx, n)
	case "Length":
		b.lowerLength(idx, n)
	case "Ternary":
		b.lowerTernary(idx, n)
	default:
		if fn, ok := b.pr.Functions[n.Def.Name]; ok && !fn.IsSubroutine {
			b.lowerCall(idx, n, fn)
			return
		}
		b.lowerNativeCall(idx, n)
	}
}

// lowerArith handles the variadic Add/Multiply and binary Subtract core
// ops: push the first input, then fold each subsequent input in as soon as
// it is pushed (left-associative, matching the stack machine's a-OP-b
// convention — see package doc), converting Int operands to Float when the
// reduced output is Float (spec.md §4.5's arithmetic output rule).
func (b *Builder) lowerArith(idx int, n *graph.Node) {
	outIdx := n.NumSockets() - 1
	isFloat := n.SocketType(outIdx) == token.Float
	numInputs := n.StartOutputIndex()
	op := binOpForName(n.Def.Name, isFloat)

	b.ensureInput(idx, n, 0)
	b.convertIfNeeded(n.SocketType(0), n.SocketType(outIdx))
	for i := 1; i < numInputs; i++ {
		b.ensureInput(idx, n, i)
		b.convertIfNeeded(n.SocketType(i), n.SocketType(outIdx))
		b.emit(op, 0)
		b.popN(1)
	}
	b.valuePos[graph.Endpoint{Node: idx, Socket: outIdx}] = b.height - 1
}

func binOpForName(name string, isFloat bool) bytecode.OpCode {
	switch name {
	case "Add":
		if isFloat {
			return bytecode.OpAddF
		}
		return bytecode.OpAdd
	case "Subtract":
		if isFloat {
			return bytecode.OpSubF
		}
		return bytecode.OpSub
	case "Multiply":
		if isFloat {
			return bytecode.OpMulF
		}
		return bytecode.OpMul
	default:
		return bytecode.OpAdd
	}
}

func (b *Builder) lowerDivide(idx int, n *graph.Node) {
	b.ensureInput(idx, n, 0)
	b.convertIfNeeded(n.SocketType(0), token.Float)
	b.ensureInput(idx, n, 1)
	b.convertIfNeeded(n.SocketType(1), token.Float)
	b.emit(bytecode.OpDivF, 0)
	b.popN(1)
	outIdx := n.NumSockets() - 1
	b.valuePos[graph.Endpoint{Node: idx, Socket: outIdx}] = b.height - 1
}

func (b *Builder) lowerBinaryInt(idx int, n *graph.Node, op bytecode.OpCode) {
	b.ensureInput(idx, n, 0)
	b.ensureInput(idx, n, 1)
	b.emit(op, 0)
	b.popN(1)
	outIdx := n.NumSockets() - 1
	b.valuePos[graph.Endpoint{Node: idx, Socket: outIdx}] = b.height - 1
}

func (b *Builder) lowerUnary(idx int, n *graph.Node, op bytecode.OpCode) {
	b.ensureInput(idx, n, 0)
	b.emit(op, 0)
	outIdx := n.NumSockets() - 1
	b.valuePos[graph.Endpoint{Node: idx, Socket: outIdx}] = b.height - 1
}

func (b *Builder) lowerLength(idx int, n *graph.Node) {
	b.ensureInput(idx, n, 0)
	b.emit(bytecode.OpSyscall, bytecode.SysStrlen)
	outIdx := n.NumSockets() - 1
	b.valuePos[graph.Endpoint{Node: idx, Socket: outIdx}] = b.height - 1
}

var intCmpOp = map[string]bytecode.OpCode{
	"Equal":           bytecode.OpCEq,
	"LessThan":        bytecode.OpCLT,
	"LessThanOrEqual": bytecode.OpCLEq,
	"MoreThan":        bytecode.OpCMT,
	"MoreThanOrEqual": bytecode.OpCMEq,
}

var floatCmpOp = map[string]bytecode.OpCode{
	"Equal":           bytecode.OpCEqF,
	"LessThan":        bytecode.OpCLTF,
	"LessThanOrEqual": bytecode.OpCLEqF,
	"MoreThan":        bytecode.OpCMTF,
	"MoreThanOrEqual": bytecode.OpCMEqF,
}

var strcmpPredicate = map[string]int64{
	"Equal":           bytecode.StrcmpEqual,
	"NotEqual":        bytecode.StrcmpNotEqual,
	"LessThan":        bytecode.StrcmpLessThan,
	"LessThanOrEqual": bytecode.StrcmpLessThanOrEqual,
	"MoreThan":        bytecode.StrcmpMoreThan,
	"MoreThanOrEqual": bytecode.StrcmpMoreThanOrEqual,
}

// lowerComparison handles spec.md §4.5's three comparison domains:
// strings dispatch to the strcmp syscall with a predicate selector, bools
// and ints use the plain integer comparator, floats (or an int compared
// against a float) use the float comparator. NotEqual has no dedicated
// opcode and is synthesized as Equal followed by Not.
func (b *Builder) lowerComparison(idx int, n *graph.Node) {
	a, c := n.SocketType(0), n.SocketType(1)
	outIdx := n.NumSockets() - 1
	if a == token.String {
		b.ensureInput(idx, n, 0)
		b.ensureInput(idx, n, 1)
		b.emit(bytecode.OpPushF, strcmpPredicate[n.Def.Name])
		b.push()
		b.emit(bytecode.OpSyscall, bytecode.SysStrcmp)
		b.popN(2)
		b.valuePos[graph.Endpoint{Node: idx, Socket: outIdx}] = b.height - 1
		return
	}

	opName := n.Def.Name
	negate := false
	if opName == "NotEqual" {
		opName = "Equal"
		negate = true
	}

	isFloat := a == token.Float || c == token.Float
	b.ensureInput(idx, n, 0)
	if isFloat {
		b.convertIfNeeded(a, token.Float)
	}
	b.ensureInput(idx, n, 1)
	if isFloat {
		b.convertIfNeeded(c, token.Float)
	}
	if isFloat {
		b.emit(floatCmpOp[opName], 0)
	} else {
		b.emit(intCmpOp[opName], 0)
	}
	b.popN(1)
	if negate {
		b.emit(bytecode.OpNot, 0)
	}
	b.valuePos[graph.Endpoint{Node: idx, Socket: outIdx}] = b.height - 1
}

// lowerTernary lowers condition then each branch in turn, connecting them
// with relative jumps. Both branches are single VarAny sockets (spec.md
// §4.4's Ternary socket shape), so each always contributes exactly one
// pushed value — the "equalize net stack growth" requirement of spec.md
// §4.6 holds structurally and needs no zero-push padding here.
func (b *Builder) lowerTernary(idx int, n *graph.Node) {
	outIdx := n.NumSockets() - 1
	outType := n.SocketType(outIdx)

	b.ensureInput(idx, n, 0) // condition
	b.emit(bytecode.OpNot, 0)
	jToFalse := b.emit(bytecode.OpJRConFI, 0)
	b.popN(1)

	base := b.height
	b.ensureInput(idx, n, 1) // whenTrue
	b.convertIfNeeded(n.SocketType(1), outType)
	jToEnd := b.emit(bytecode.OpJRFI, 0)

	// Only one branch executes at runtime; the compile-time height tracker
	// must rejoin at the pre-branch height before lowering the other side.
	b.height = base
	b.patchRelative(jToFalse)
	b.ensureInput(idx, n, 2) // whenFalse
	b.convertIfNeeded(n.SocketType(2), outType)

	b.patchRelative(jToEnd)
	b.valuePos[graph.Endpoint{Node: idx, Socket: outIdx}] = b.height - 1
}

// lowerCall emits argument pushes followed by a relocation-based absolute
// call to a pure (non-subroutine) user function; return values land on
// top of stack in declaration order (spec.md §4.6/§4.10).
func (b *Builder) lowerCall(idx int, n *graph.Node, fn *semantic.FuncDecl) {
	for i := 0; i < n.StartOutputIndex(); i++ {
		b.ensureInput(idx, n, i)
	}
	argc := n.StartOutputIndex()
	callIdx := b.emit(bytecode.OpCallI, 0)
	li := b.addLinkRecord(program.LinkRecord{Kind: program.LinkUserFunction, Name: n.Def.Name})
	b.addReloc(callIdx, li)
	b.popN(argc)

	numReturns := len(fn.Outputs)
	b.height += numReturns
	for i := 0; i < numReturns; i++ {
		ep := graph.Endpoint{Node: idx, Socket: n.StartOutputIndex() + i}
		b.valuePos[ep] = b.height - numReturns + i
	}
}

// lowerNativeCall emits a push of the native function's address (resolved
// by the linker against the host registry), followed by a byte-operand
// CALLC carrying the argument count (spec.md §4.6's "native calls use a
// distinct opcode and carry the argument count as an immediate").
func (b *Builder) lowerNativeCall(idx int, n *graph.Node) {
	for i := 0; i < n.StartOutputIndex(); i++ {
		b.ensureInput(idx, n, i)
	}
	argc := n.StartOutputIndex()
	addrIdx := b.emit(bytecode.OpPushF, 0)
	li := b.addLinkRecord(program.LinkRecord{Kind: program.LinkNativeFunction, Name: n.Def.Name})
	b.addReloc(addrIdx, li)
	b.push()
	b.emit(bytecode.OpCallC, int64(argc))
	b.popN(argc + 1)
	b.push() // native calls here are only reached as single-value expressions
	outIdx := n.NumSockets() - 1
	b.valuePos[graph.Endpoint{Node: idx, Socket: outIdx}] = b.height - 1
}
