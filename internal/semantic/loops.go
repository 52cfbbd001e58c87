package semantic

import (
	"github.com/decisionlang/decision/internal/diag"
	"github.com/decisionlang/decision/internal/graph"
)

// DetectLoops runs spec.md §4.5 phase 4: starting a DFS from every node with
// no wired (non-Name) inputs, walk successors reached through output
// wires; a revisit of a node already on the current DFS path is a feedback
// cycle, which Decision's graph model forbids.
func DetectLoops(g *graph.Graph, bag *diag.Bag, file string) {
	onPath := make([]bool, len(g.Nodes))
	visited := make([]bool, len(g.Nodes))

	for idx, n := range g.Nodes {
		if !isRoot(g, n, idx) || visited[idx] {
			continue
		}
		walk(g, idx, onPath, visited, bag, file)
	}
	// Any node never reached from a root (e.g. a cycle with no external
	// root at all) still needs checking, so sweep the rest too.
	for idx := range g.Nodes {
		if !visited[idx] {
			walk(g, idx, onPath, visited, bag, file)
		}
	}
}

func isRoot(g *graph.Graph, n *graph.Node, idx int) bool {
	for i := 0; i < n.StartOutputIndex(); i++ {
		if _, ok := g.FirstWireFrom(graph.Endpoint{Node: idx, Socket: i}); ok {
			return false
		}
	}
	return true
}

func walk(g *graph.Graph, idx int, onPath, visited []bool, bag *diag.Bag, file string) {
	if onPath[idx] {
		bag.Errorf(file, g.Nodes[idx].Line, "%s: feedback loop detected (cycles are not permitted)", g.Nodes[idx].Def.Name)
		return
	}
	if visited[idx] {
		return
	}
	onPath[idx] = true
	n := g.Nodes[idx]
	for i := n.StartOutputIndex(); i < n.NumSockets(); i++ {
		for _, w := range g.WiresFrom(graph.Endpoint{Node: idx, Socket: i}) {
			walk(g, w.To.Node, onPath, visited, bag, file)
		}
	}
	onPath[idx] = false
	visited[idx] = true
}
