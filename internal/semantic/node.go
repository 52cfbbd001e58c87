package semantic

import (
	"github.com/decisionlang/decision/internal/diag"
	"github.com/decisionlang/decision/internal/graph"
	"github.com/decisionlang/decision/internal/lexer"
	"github.com/decisionlang/decision/internal/parser"
	"github.com/decisionlang/decision/internal/resolve"
	"github.com/decisionlang/decision/internal/token"
)

func coreOpDef(name string) *graph.NodeDef {
	return resolve.CoreOpDef(name)
}

// startDef is the sheet's implicit entry-point node: no inputs, a single
// execution output starting the sheet's main execution chain.
var startDef = &graph.NodeDef{
	Name:       "Start",
	SplitIndex: 0,
	Sockets:    []graph.SocketDef{{Name: "after", Type: token.Execution}},
}

type pendingInput struct {
	ep     graph.Endpoint
	lineID int
	pos    lexer.Position
}

// NodeCounts tallies the special nodes spec.md §4.5 phase 2 requires exactly
// one of (Start per sheet, Define per subroutine, Return per non-subroutine
// function).
type NodeCounts struct {
	Start       int
	DefinePer   map[string]int
	ReturnPer   map[string]int
}

// RunNodePhase builds a graph from every NodeStmt in tree (spec.md §4.5
// phase 2): each statement's name resolves to a definition (Start, a
// function's Define/Return, a core op, a user/native function call), its
// arguments bind input sockets (by literal, by name reference, or by a
// pending line identifier awaiting its wire), and its declared outputs
// register the line identifiers downstream consumers await. After every
// statement is placed, unmatched line identifiers are reported as errors.
func RunNodePhase(tree *parser.Tree, pr *PropertyResult, scope *resolve.Scope, bag *diag.Bag, file string) (*graph.Graph, *NodeCounts) {
	g := graph.New()
	counts := &NodeCounts{DefinePer: map[string]int{}, ReturnPer: map[string]int{}}

	pendingOutputs := map[int]graph.Endpoint{}
	var pendingInputs []pendingInput

	for _, stmt := range tree.Statements {
		if stmt.Node == nil {
			continue
		}
		ns := stmt.Node
		def, tagArg, owner, ok := resolveNodeDef(ns, pr, scope, bag, file, counts)
		if !ok {
			continue
		}

		n := &graph.Node{Def: def, Line: ns.Line}
		if owner != "" {
			n.NameDef = &graph.NameRef{Name: owner, Kind: graph.KindUserFunction}
		}
		if def.InfiniteInputs {
			n.InfiniteSplit = len(ns.Args) - tagArg
		}
		idx := g.AddNode(n)

		args := ns.Args[tagArg:]
		for i, a := range args {
			if i >= def.SplitIndex && !def.InfiniteInputs {
				bag.Errorf(file, a.Pos.Line, "%s: too many arguments", ns.Name)
				break
			}
			switch a.Kind {
			case parser.ArgLiteral:
				if n.LiteralOverrides == nil {
					n.LiteralOverrides = map[int]token.Value{}
				}
				n.LiteralOverrides[i] = a.Literal
			case parser.ArgLineRef:
				pendingInputs = append(pendingInputs, pendingInput{
					ep:     graph.Endpoint{Node: idx, Socket: i},
					lineID: a.LineRef,
					pos:    a.Pos,
				})
			case parser.ArgName:
				ref, err := resolve.Lookup(scope, a.Name)
				if err != nil {
					bag.Errorf(file, a.Pos.Line, "%s: %v", ns.Name, err)
					continue
				}
				if n.ArgRefs == nil {
					n.ArgRefs = map[int]graph.NameRef{}
				}
				n.ArgRefs[i] = ref
			default:
				bag.Errorf(file, a.Pos.Line, "%s: argument %d has an unsupported form here", ns.Name, i)
			}
		}

		for i, out := range ns.Outputs {
			socket := n.StartOutputIndex() + i
			ep := graph.Endpoint{Node: idx, Socket: socket}
			if _, dup := pendingOutputs[out.LineID]; dup {
				bag.Errorf(file, out.Pos.Line, "line identifier #%d declared more than once", out.LineID)
				continue
			}
			pendingOutputs[out.LineID] = ep
		}
	}

	for _, pi := range pendingInputs {
		out, ok := pendingOutputs[pi.lineID]
		if !ok {
			bag.Errorf(file, pi.pos.Line, "line identifier #%d has no matching output", pi.lineID)
			continue
		}
		if err := g.AddWire(out, pi.ep); err != nil {
			bag.Errorf(file, pi.pos.Line, "%v", err)
		}
	}

	if counts.Start != 1 {
		bag.Errorf(file, 0, "sheet must declare exactly one Start node, found %d", counts.Start)
	}
	for name, fn := range pr.Functions {
		if fn.IsSubroutine {
			if counts.DefinePer[name] != 1 {
				bag.Errorf(file, 0, "subroutine %q must have exactly one Define node, found %d", name, counts.DefinePer[name])
			}
		} else {
			if counts.ReturnPer[name] != 1 {
				bag.Errorf(file, 0, "function %q must have exactly one Return node, found %d", name, counts.ReturnPer[name])
			}
		}
	}

	return g, counts
}

// resolveNodeDef resolves a node statement's callee name to a NodeDef.
// tagArg is the number of leading arguments consumed as metadata rather
// than bound to a socket (1 for Define/Return's function-name tag, else 0).
// owner names the function a Define/Return node belongs to, since every
// function's Define (and every function's Return) shares the same
// Def.Name — codegen needs owner, recorded on the instance as NameDef, to
// find the right body's entry/exit node in a sheet with several functions.
func resolveNodeDef(ns *parser.NodeStmt, pr *PropertyResult, scope *resolve.Scope, bag *diag.Bag, file string, counts *NodeCounts) (def *graph.NodeDef, tagArg int, owner string, ok bool) {
	switch ns.Name {
	case "Start":
		counts.Start++
		return startDef, 0, "", true
	case "Define", "Return":
		if len(ns.Args) < 1 {
			bag.Errorf(file, ns.Pos.Line, "%s requires the containing function's name as its first argument", ns.Name)
			return nil, 0, "", false
		}
		fnName, ok := argName(ns.Args[0])
		if !ok {
			bag.Errorf(file, ns.Pos.Line, "%s's first argument must be a function name", ns.Name)
			return nil, 0, "", false
		}
		fn, ok := pr.Functions[fnName]
		if !ok {
			bag.Errorf(file, ns.Pos.Line, "%s", DescribeMissingFunction(fnName))
			return nil, 0, "", false
		}
		if ns.Name == "Define" {
			counts.DefinePer[fnName]++
			return fn.DefineDef(), 1, fnName, true
		}
		counts.ReturnPer[fnName]++
		return fn.ReturnDef(), 1, fnName, true
	}

	ref, err := resolve.Lookup(scope, ns.Name)
	if err != nil {
		bag.Errorf(file, ns.Pos.Line, "%v", err)
		return nil, 0, "", false
	}
	switch ref.Kind {
	case graph.KindCoreOp:
		return coreOpDef(ns.Name), 0, "", true
	case graph.KindUserFunction:
		fn, ok := pr.Functions[ns.Name]
		if !ok {
			bag.Errorf(file, ns.Pos.Line, "internal error: resolved user function %q has no declaration", ns.Name)
			return nil, 0, "", false
		}
		return fn.CallDef(), 0, "", true
	case graph.KindNativeFunction:
		// Native signatures are supplied by the host registry at link time
		// (spec.md §1); the graph records only that a call site exists, with
		// a permissive pass-through shape resolved concretely during codegen
		// linking against the injected table.
		return &graph.NodeDef{Name: ns.Name, SplitIndex: len(ns.Args), InfiniteInputs: true,
			Sockets: []graph.SocketDef{{Name: "arg", Type: token.All}, {Name: "result", Type: token.All}}}, 0, "", true
	default:
		bag.Errorf(file, ns.Pos.Line, "%q does not name an invocable node", ns.Name)
		return nil, 0, "", false
	}
}
