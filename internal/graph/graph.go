// Package graph implements the dataflow graph IR of spec.md §3/§4.3/§9:
// nodes kept in an indexable container, wires as (node,socket) pairs in a
// single sorted, bidirectionally-duplicated list. Storing wires this way
// instead of as owning pointers between node instances sidesteps cyclic
// ownership and gives O(log n) lookup + O(k) enumeration of the wires at a
// socket (spec.md §9 "Graph cycles versus ownership").
//
// Structurally grounded on github.com/cwbudde/go-dws's internal/ast (a
// slice-indexed node table) and internal/types (compound-type tables); the
// node/socket/wire semantics themselves are specific to Decision.
package graph

import (
	"fmt"
	"sort"

	"github.com/decisionlang/decision/internal/token"
)

// NameKind classifies what a node instance semantically refers to.
type NameKind int

const (
	KindCoreOp NameKind = iota
	KindVariable
	KindUserFunction
	KindNativeFunction
)

// NameRef is the resolved identity of a node instance, set by the semantic
// pass's name-resolution phase (spec.md §4.4/§4.5).
type NameRef struct {
	Name string
	Kind NameKind
}

// SocketDef describes one input or output socket on a node definition.
type SocketDef struct {
	Name        string
	Description string
	Type        token.Type // possibly vague prior to reduction
	Default     token.Value
	HasDefault  bool
}

// NodeDef is a node definition: an ordered list of sockets split into an
// input prefix and an output suffix, with an optional unbounded input
// prefix (InfiniteInputs) that replicates the type of the last declared
// input.
type NodeDef struct {
	Name            string
	Description     string
	Sockets         []SocketDef
	SplitIndex      int // sockets[0:SplitIndex] are inputs, the rest outputs
	InfiniteInputs  bool
}

// IsExecutionSocket reports whether socket i is of Execution type.
func (d *NodeDef) IsExecutionSocket(i int) bool {
	if i < 0 || i >= len(d.Sockets) {
		return false
	}
	return d.Sockets[i].Type == token.Execution
}

// IsExecutionNode reports whether at least one socket is execution-typed.
func (d *NodeDef) IsExecutionNode() bool {
	for i := range d.Sockets {
		if d.IsExecutionSocket(i) {
			return true
		}
	}
	return false
}

// NumInputs and NumOutputs describe the definition's own (non-instance-
// specific) socket counts.
func (d *NodeDef) NumInputs() int  { return d.SplitIndex }
func (d *NodeDef) NumOutputs() int { return len(d.Sockets) - d.SplitIndex }

// Node is an instance of a NodeDef within a graph.
type Node struct {
	Def              *NodeDef
	NameDef          *NameRef // nil until name resolution has run
	ReducedTypes     map[int]token.Type
	LiteralOverrides map[int]token.Value
	// ArgRefs binds an input socket directly to a name (a variable getter,
	// or a user/native function passed by reference) rather than through a
	// wire or a literal — spec.md §4.6's "variable getter" lowering source.
	ArgRefs       map[int]NameRef
	Line          int
	InfiniteSplit int // concrete input count for InfiniteInputs defs; 0 if n/a
}

// SocketType returns the effective type of socket i: the per-instance
// reduced override if present, else the definition's declared type. For
// InfiniteInputs definitions, indices beyond the declared inputs fold back
// onto the last declared input socket (spec.md §4.3).
func (n *Node) SocketType(i int) token.Type {
	if t, ok := n.ReducedTypes[i]; ok {
		return t
	}
	return n.Def.Sockets[n.defSocketIndex(i)].Type
}

// defSocketIndex rewrites an instance-relative socket index to the
// corresponding definition-relative index, folding the excess input
// indices of an InfiniteInputs node onto its last declared input.
func (n *Node) defSocketIndex(i int) int {
	if !n.Def.InfiniteInputs {
		return i
	}
	lastInput := n.Def.SplitIndex - 1
	if i < lastInput {
		return i
	}
	concreteInputs := n.InfiniteSplit
	if concreteInputs == 0 {
		concreteInputs = n.Def.SplitIndex
	}
	if i < concreteInputs {
		return lastInput
	}
	// Output socket: rebase past the concrete extra inputs back onto the
	// definition's own output range.
	return i - concreteInputs + n.Def.SplitIndex
}

// NumSockets returns the total number of sockets on this instance,
// accounting for an InfiniteInputs node's concrete input count.
func (n *Node) NumSockets() int {
	if !n.Def.InfiniteInputs {
		return len(n.Def.Sockets)
	}
	concreteInputs := n.InfiniteSplit
	if concreteInputs == 0 {
		concreteInputs = n.Def.SplitIndex
	}
	return concreteInputs + n.Def.NumOutputs()
}

// StartOutputIndex returns the first output-socket index on this instance.
func (n *Node) StartOutputIndex() int {
	if !n.Def.InfiniteInputs {
		return n.Def.SplitIndex
	}
	if n.InfiniteSplit == 0 {
		return n.Def.SplitIndex
	}
	return n.InfiniteSplit
}

// Endpoint identifies one socket on one node instance within a Graph.
type Endpoint struct {
	Node   int
	Socket int
}

func (e Endpoint) less(o Endpoint) bool {
	if e.Node != o.Node {
		return e.Node < o.Node
	}
	return e.Socket < o.Socket
}

// Wire is a directed connection From one socket To another. The Graph
// stores each logical wire twice — once keyed by From, once by To — both
// entries living in the single Wires slice, which stays sorted
// lexicographically by (From.Node, From.Socket, To.Node, To.Socket)
// (spec.md §3 invariant).
type Wire struct {
	From, To Endpoint
}

// Graph is a sheet's node graph.
type Graph struct {
	Nodes []*Node
	Wires []Wire
}

// New creates an empty graph.
func New() *Graph { return &Graph{} }

// AddNode appends a node instance and returns its stable index.
func (g *Graph) AddNode(n *Node) int {
	g.Nodes = append(g.Nodes, n)
	return len(g.Nodes) - 1
}

func (g *Graph) socketDef(ep Endpoint) (SocketDef, error) {
	if ep.Node < 0 || ep.Node >= len(g.Nodes) {
		return SocketDef{}, fmt.Errorf("node index %d out of range", ep.Node)
	}
	n := g.Nodes[ep.Node]
	if ep.Socket < 0 || ep.Socket >= n.NumSockets() {
		return SocketDef{}, fmt.Errorf("socket index %d out of range on node %d", ep.Socket, ep.Node)
	}
	sd := n.Def.Sockets[n.defSocketIndex(ep.Socket)]
	sd.Type = n.SocketType(ep.Socket)
	return sd, nil
}

// SocketMeta looks up socket metadata honoring per-instance reductions and
// infinite-input folding.
func (g *Graph) SocketMeta(ep Endpoint) (SocketDef, error) {
	return g.socketDef(ep)
}

func isInputSocket(n *Node, idx int) bool {
	return idx < n.StartOutputIndex()
}

// AddWire validates and inserts a wire in both directions, keeping Wires
// sorted. It enforces: endpoints exist, declared types intersect, a
// non-execution input socket has at most one incoming connection, and an
// execution output socket has at most one outgoing connection (spec.md §3).
func (g *Graph) AddWire(from, to Endpoint) error {
	fromDef, err := g.socketDef(from)
	if err != nil {
		return fmt.Errorf("wire source: %w", err)
	}
	toDef, err := g.socketDef(to)
	if err != nil {
		return fmt.Errorf("wire destination: %w", err)
	}
	if fromDef.Type.Intersect(toDef.Type) == 0 {
		return fmt.Errorf("wire type mismatch: %s does not intersect %s", fromDef.Type, toDef.Type)
	}

	toNode := g.Nodes[to.Node]
	if !isInputSocket(toNode, to.Socket) {
		return fmt.Errorf("wire destination socket %d on node %d is not an input", to.Socket, to.Node)
	}
	fromNode := g.Nodes[from.Node]
	if isInputSocket(fromNode, from.Socket) {
		return fmt.Errorf("wire source socket %d on node %d is not an output", from.Socket, from.Node)
	}

	if toDef.Type != token.Execution && g.ConnectionCount(to) >= 1 {
		return fmt.Errorf("non-execution input socket %d on node %d already connected", to.Socket, to.Node)
	}
	if fromDef.Type == token.Execution && g.ConnectionCountFrom(from) >= 1 {
		return fmt.Errorf("execution output socket %d on node %d already connected", from.Socket, from.Node)
	}

	g.insertWire(Wire{From: from, To: to})
	g.insertWire(Wire{From: to, To: from})
	return nil
}

func (g *Graph) insertWire(w Wire) {
	i := sort.Search(len(g.Wires), func(i int) bool {
		return !g.wireLess(g.Wires[i], w)
	})
	g.Wires = append(g.Wires, Wire{})
	copy(g.Wires[i+1:], g.Wires[i:])
	g.Wires[i] = w
}

func (g *Graph) wireLess(a, b Wire) bool {
	if a.From != b.From {
		return a.From.less(b.From)
	}
	return a.To.less(b.To)
}

// firstIndexFrom returns the index of the first Wire in the sorted slice
// whose From endpoint equals ep, via binary search, and ok=false if none.
func (g *Graph) firstIndexFrom(ep Endpoint) (int, bool) {
	i := sort.Search(len(g.Wires), func(i int) bool {
		return !g.Wires[i].From.less(ep)
	})
	if i < len(g.Wires) && g.Wires[i].From == ep {
		return i, true
	}
	return 0, false
}

// FirstWireFrom locates, via binary search, the first wire originating at
// ep (spec.md §4.3).
func (g *Graph) FirstWireFrom(ep Endpoint) (Wire, bool) {
	i, ok := g.firstIndexFrom(ep)
	if !ok {
		return Wire{}, false
	}
	return g.Wires[i], true
}

// WiresFrom returns every wire originating at ep — the contiguous range
// located by FirstWireFrom.
func (g *Graph) WiresFrom(ep Endpoint) []Wire {
	i, ok := g.firstIndexFrom(ep)
	if !ok {
		return nil
	}
	j := i
	for j < len(g.Wires) && g.Wires[j].From == ep {
		j++
	}
	return g.Wires[i:j]
}

// ConnectionCount returns the number of wires terminating at (connected
// to) ep as a destination — computed by counting wires whose *reverse*
// entry (ep as From) exist, since every wire is stored in both
// orientations.
func (g *Graph) ConnectionCount(ep Endpoint) int {
	return len(g.WiresFrom(ep))
}

// ConnectionCountFrom is an alias of ConnectionCount kept for call-site
// clarity when counting outgoing connections at an output socket.
func (g *Graph) ConnectionCountFrom(ep Endpoint) int {
	return len(g.WiresFrom(ep))
}
