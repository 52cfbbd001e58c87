package semantic

import (
	"github.com/decisionlang/decision/internal/diag"
	"github.com/decisionlang/decision/internal/graph"
	"github.com/decisionlang/decision/internal/token"
)

// ReduceTypes runs spec.md §4.5 phase 3: an iterative fixed-point pass that
// narrows every vague socket to a concrete scalar type, applying a
// core-op-specific rule per node family. A node is marked reduced once
// every input socket is concrete (propagated from its wired source,
// literal, or name reference) and — where a rule computes one — its output
// is concrete too, or once a type mismatch has been reported for it.
func ReduceTypes(g *graph.Graph, pr *PropertyResult, bag *diag.Bag, file string) {
	reduced := make([]bool, len(g.Nodes))
	for {
		changed := false
		for idx, n := range g.Nodes {
			if reduced[idx] {
				continue
			}
			pullThroughInputs(g, pr, n, idx)
			if applyRule(n, idx, bag, file) {
				reduced[idx] = true
				changed = true
			}
		}
		if !changed {
			break
		}
	}
}

// pullThroughInputs resolves any input socket whose declared type is vague
// from its wired source, literal override, or name reference, recording
// the concrete result in the node's per-instance ReducedTypes.
func pullThroughInputs(g *graph.Graph, pr *PropertyResult, n *graph.Node, idx int) {
	for i := 0; i < n.StartOutputIndex(); i++ {
		if n.SocketType(i).IsConcrete() {
			continue
		}
		t, ok := inputSourceType(g, pr, n, idx, i)
		if ok && t.IsConcrete() {
			if n.ReducedTypes == nil {
				n.ReducedTypes = map[int]token.Type{}
			}
			n.ReducedTypes[i] = t
		}
	}
}

// inputSourceType determines the concrete type flowing into socket i of the
// node at idx, via its wire, literal override, or name reference.
func inputSourceType(g *graph.Graph, pr *PropertyResult, n *graph.Node, idx, i int) (token.Type, bool) {
	ep := graph.Endpoint{Node: idx, Socket: i}
	if w, ok := g.FirstWireFrom(ep); ok {
		src := g.Nodes[w.To.Node]
		t := src.SocketType(w.To.Socket)
		return t, t.IsConcrete()
	}
	if lit, ok := n.LiteralOverrides[i]; ok {
		return lit.Type, true
	}
	if ref, ok := n.ArgRefs[i]; ok {
		if ref.Kind == graph.KindVariable {
			if t, ok := pr.VarType(ref.Name); ok {
				return t, true
			}
			return 0, false
		}
		return token.Name, true
	}
	return 0, false
}

func setOutput(n *graph.Node, i int, t token.Type) {
	if n.ReducedTypes == nil {
		n.ReducedTypes = map[int]token.Type{}
	}
	n.ReducedTypes[i] = t
}

func allInputsConcrete(n *graph.Node) bool {
	for i := 0; i < n.StartOutputIndex(); i++ {
		if !n.SocketType(i).IsConcrete() {
			return false
		}
	}
	return true
}

// applyRule dispatches to the per-node-family type-reduction rule. It
// returns true once the node is fully reduced (success or a reported
// mismatch), matching spec.md §4.5 phase 3's termination condition.
func applyRule(n *graph.Node, idx int, bag *diag.Bag, file string) bool {
	switch n.Def.Name {
	case "Add", "Subtract", "Multiply":
		return reduceArithmeticOutput(n, n.NumSockets()-1, bag, file)
	case "For":
		return reduceForIndex(n, bag, file)
	case "And", "Or", "Xor", "Not":
		return reduceBitwise(n, bag, file)
	case "Equal", "NotEqual", "LessThan", "LessThanOrEqual", "MoreThan", "MoreThanOrEqual":
		return reduceComparison(n, bag, file)
	case "Print":
		return allInputsConcrete(n)
	case "Set":
		return reduceSet(n, bag, file)
	case "Ternary":
		return reduceTernary(n, bag, file)
	default:
		// Divide, Div, Mod, Length, IfThen, IfThenElse, While, Start, Define,
		// Return, user-function calls and native calls all declare fully
		// concrete sockets already (or, for native calls, a deliberately
		// permissive token.All that no rule can narrow further without host
		// type information) — nothing left to reduce once inputs resolve.
		return allInputsConcrete(n)
	}
}

func reduceArithmeticOutput(n *graph.Node, outIdx int, bag *diag.Bag, file string) bool {
	if !allInputsConcrete(n) {
		return false
	}
	anyFloat := false
	for i := 0; i < n.StartOutputIndex(); i++ {
		if n.SocketType(i) == token.Float {
			anyFloat = true
		}
	}
	if anyFloat {
		setOutput(n, outIdx, token.Float)
	} else {
		setOutput(n, outIdx, token.Int)
	}
	_ = bag
	_ = file
	return true
}

func reduceForIndex(n *graph.Node, bag *diag.Bag, file string) bool {
	// For's sockets (coreops.go): 0 before(Execution), 1 start, 2 end, 3
	// step (inputs); 4 loop(Execution), 5 index, 6 after(Execution)
	// (outputs). Only start/end/step (1,2,3) drive the index rule.
	for _, i := range []int{1, 2, 3} {
		if !n.SocketType(i).IsConcrete() {
			return false
		}
	}
	anyFloat := n.SocketType(1) == token.Float || n.SocketType(2) == token.Float || n.SocketType(3) == token.Float
	if anyFloat {
		setOutput(n, 5, token.Float)
	} else {
		setOutput(n, 5, token.Int)
	}
	_ = bag
	_ = file
	return true
}

func reduceBitwise(n *graph.Node, bag *diag.Bag, file string) bool {
	if !allInputsConcrete(n) {
		return false
	}
	var agreed token.Type
	for i := 0; i < n.StartOutputIndex(); i++ {
		t := n.SocketType(i)
		if agreed == 0 {
			agreed = t
		} else if t != agreed {
			bag.Errorf(file, n.Line, "%s: mixed Integer/Boolean operands", n.Def.Name)
			return true
		}
	}
	outIdx := n.NumSockets() - 1
	setOutput(n, outIdx, agreed)
	return true
}

func reduceComparison(n *graph.Node, bag *diag.Bag, file string) bool {
	if !allInputsConcrete(n) {
		return false
	}
	a, b := n.SocketType(0), n.SocketType(1)
	switch {
	case a == token.String || b == token.String:
		if a != token.String || b != token.String {
			bag.Errorf(file, n.Line, "%s: cannot compare String with a non-String operand", n.Def.Name)
		}
	case a == token.Bool || b == token.Bool:
		if a != token.Bool || b != token.Bool {
			bag.Errorf(file, n.Line, "%s: cannot compare Boolean with a non-Boolean operand", n.Def.Name)
		}
	}
	return true
}

func reduceSet(n *graph.Node, bag *diag.Bag, file string) bool {
	// Set's sockets (coreops.go): 0 variable(Name), 1 before(Execution), 2
	// value(VarAny) inputs; 3 after(Execution) output.
	if !n.SocketType(2).IsConcrete() {
		return false
	}
	ref, ok := n.ArgRefs[0]
	if !ok || ref.Kind != graph.KindVariable {
		bag.Errorf(file, n.Line, "Set: first argument must name a variable")
		return true
	}
	return true // variable-type agreement is checked separately by CheckSetTargets, which has PropertyResult access
}

func reduceTernary(n *graph.Node, bag *diag.Bag, file string) bool {
	// Ternary's sockets (coreops.go): 0 condition(Bool), 1 whenTrue(VarAny),
	// 2 whenFalse(VarAny) inputs; 3 result(VarAny) output.
	if !n.SocketType(1).IsConcrete() || !n.SocketType(2).IsConcrete() {
		return false
	}
	t, f := n.SocketType(1), n.SocketType(2)
	if t != f {
		bag.Errorf(file, n.Line, "Ternary: whenTrue and whenFalse must agree on type")
		return true
	}
	setOutput(n, 3, t)
	return true
}

// CheckSetTargets re-validates every Set node's value type against its
// target variable's declared type, run after ReduceTypes has reached a
// fixed point (Set's own rule above only confirms the variable reference
// resolves; it can't see declared variable types without PropertyResult in
// scope at call sites that don't thread it through applyRule).
func CheckSetTargets(g *graph.Graph, pr *PropertyResult, bag *diag.Bag, file string) {
	for _, n := range g.Nodes {
		if n.Def.Name != "Set" {
			continue
		}
		ref, ok := n.ArgRefs[0]
		if !ok || ref.Kind != graph.KindVariable {
			continue
		}
		declared, ok := pr.VarType(ref.Name)
		if !ok {
			continue
		}
		got := n.SocketType(2)
		if got == token.Int && declared == token.Float {
			continue // Int literal/value auto-converts to Float, per spec.md §4.5
		}
		if got.IsConcrete() && got != declared {
			bag.Errorf(file, n.Line, "Set: value type %s does not match variable %q's declared type %s", got, ref.Name, declared)
		}
	}
}
