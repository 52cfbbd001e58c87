package resolve

import (
	"github.com/decisionlang/decision/internal/graph"
	"github.com/decisionlang/decision/internal/token"
)

// The closed set of 24 core operators/intrinsics (spec.md §4.4), with their
// exact socket shapes grounded on the CORE_FUNC_NAME/NUM_INPUTS/NUM_OUTPUTS/
// INPUT_TYPES/OUTPUT_TYPES tables in
// _examples/original_source/src/dcore.c — the only place spec.md's prose
// description of each op is pinned down to concrete socket counts and
// positions. Ordering matches that source's alphabetical CoreFunction enum.
var coreOps = buildCoreOps()

func binaryNumeric(name string, out token.Type) *graph.NodeDef {
	return &graph.NodeDef{
		Name:       name,
		SplitIndex: 2,
		Sockets: []graph.SocketDef{
			{Name: "a", Type: token.Number},
			{Name: "b", Type: token.Number},
			{Name: "result", Type: out},
		},
	}
}

func binaryBitwise(name string) *graph.NodeDef {
	bit := token.Int | token.Bool
	return &graph.NodeDef{
		Name:       name,
		SplitIndex: 2,
		Sockets: []graph.SocketDef{
			{Name: "a", Type: bit},
			{Name: "b", Type: bit},
			{Name: "result", Type: bit},
		},
	}
}

func comparison(name string) *graph.NodeDef {
	cmp := token.Number | token.String
	return &graph.NodeDef{
		Name:       name,
		SplitIndex: 2,
		Sockets: []graph.SocketDef{
			{Name: "a", Type: cmp},
			{Name: "b", Type: cmp},
			{Name: "result", Type: token.Bool},
		},
	}
}

func variadicNumeric(name string) *graph.NodeDef {
	return &graph.NodeDef{
		Name:           name,
		SplitIndex:     1,
		InfiniteInputs: true,
		Sockets: []graph.SocketDef{
			{Name: "a", Type: token.Number},
			{Name: "result", Type: token.Number},
		},
	}
}

func buildCoreOps() map[string]*graph.NodeDef {
	defs := []*graph.NodeDef{
		variadicNumeric("Add"),
		binaryBitwise("And"),
		{
			Name: "Div", SplitIndex: 2,
			Sockets: []graph.SocketDef{
				{Name: "a", Type: token.Int}, {Name: "b", Type: token.Int},
				{Name: "result", Type: token.Int},
			},
		},
		binaryNumeric("Divide", token.Float),
		comparison("Equal"),
		{
			Name: "For", SplitIndex: 4,
			Sockets: []graph.SocketDef{
				{Name: "before", Type: token.Execution},
				{Name: "start", Type: token.Number},
				{Name: "end", Type: token.Number},
				{Name: "step", Type: token.Number},
				{Name: "loop", Type: token.Execution},
				{Name: "index", Type: token.Number},
				{Name: "after", Type: token.Execution},
			},
		},
		{
			Name: "IfThen", SplitIndex: 2,
			Sockets: []graph.SocketDef{
				{Name: "before", Type: token.Execution},
				{Name: "condition", Type: token.Bool},
				{Name: "then", Type: token.Execution},
				{Name: "after", Type: token.Execution},
			},
		},
		{
			Name: "IfThenElse", SplitIndex: 2,
			Sockets: []graph.SocketDef{
				{Name: "before", Type: token.Execution},
				{Name: "condition", Type: token.Bool},
				{Name: "then", Type: token.Execution},
				{Name: "else", Type: token.Execution},
				{Name: "after", Type: token.Execution},
			},
		},
		{
			Name: "Length", SplitIndex: 1,
			Sockets: []graph.SocketDef{
				{Name: "string", Type: token.String},
				{Name: "length", Type: token.Int},
			},
		},
		comparison("LessThan"),
		comparison("LessThanOrEqual"),
		{
			Name: "Mod", SplitIndex: 2,
			Sockets: []graph.SocketDef{
				{Name: "a", Type: token.Int}, {Name: "b", Type: token.Int},
				{Name: "result", Type: token.Int},
			},
		},
		comparison("MoreThan"),
		comparison("MoreThanOrEqual"),
		variadicNumeric("Multiply"),
		{
			Name: "Not", SplitIndex: 1,
			Sockets: []graph.SocketDef{
				{Name: "a", Type: token.Int | token.Bool},
				{Name: "result", Type: token.Int | token.Bool},
			},
		},
		comparison("NotEqual"),
		binaryBitwise("Or"),
		{
			Name: "Print", SplitIndex: 2,
			Sockets: []graph.SocketDef{
				{Name: "before", Type: token.Execution},
				{Name: "value", Type: token.VarAny},
				{Name: "after", Type: token.Execution},
			},
		},
		{
			Name: "Set", SplitIndex: 3,
			Sockets: []graph.SocketDef{
				{Name: "variable", Type: token.Name},
				{Name: "before", Type: token.Execution},
				{Name: "value", Type: token.VarAny},
				{Name: "after", Type: token.Execution},
			},
		},
		binaryNumeric("Subtract", token.Number),
		{
			Name: "Ternary", SplitIndex: 3,
			Sockets: []graph.SocketDef{
				{Name: "condition", Type: token.Bool},
				{Name: "whenTrue", Type: token.VarAny},
				{Name: "whenFalse", Type: token.VarAny},
				{Name: "result", Type: token.VarAny},
			},
		},
		{
			Name: "While", SplitIndex: 2,
			Sockets: []graph.SocketDef{
				{Name: "before", Type: token.Execution},
				{Name: "condition", Type: token.Bool},
				{Name: "loop", Type: token.Execution},
				{Name: "after", Type: token.Execution},
			},
		},
		binaryBitwise("Xor"),
	}
	m := make(map[string]*graph.NodeDef, len(defs))
	for _, d := range defs {
		m[d.Name] = d
	}
	return m
}

// CoreOpDef returns the NodeDef for a core-op name, or nil if name is not a
// core op.
func CoreOpDef(name string) *graph.NodeDef {
	return coreOps[name]
}

// IsCoreOp reports whether name is one of the 24 built-in core functions.
func IsCoreOp(name string) bool {
	_, ok := coreOps[name]
	return ok
}

// NumCoreOps returns the size of the closed core-op set (24, per spec.md
// §4.4).
func NumCoreOps() int { return len(coreOps) }
