// Package semantic implements spec.md §4.5's four-phase semantic pass over
// a parsed Tree: property declarations, node-statement graph construction,
// iterative type reduction, and loop detection.
//
// Grounded on github.com/cwbudde/go-dws's internal/semantic package: a
// multi-pass analyzer (property-like declarations resolved in one pass,
// executable statements in another) with a fixed-point type-inference loop
// for partially-typed expressions, generalized here from an expression AST
// to a dataflow graph.
package semantic

import (
	"fmt"

	"github.com/decisionlang/decision/internal/diag"
	"github.com/decisionlang/decision/internal/graph"
	"github.com/decisionlang/decision/internal/parser"
	"github.com/decisionlang/decision/internal/token"
)

// VarDecl is a sheet-level Variable property declaration.
type VarDecl struct {
	Name       string
	Type       token.Type
	Default    token.Value
	HasDefault bool
}

// FuncDecl is a Function or Subroutine property declaration, accumulated
// across its own Function/Subroutine statement plus every FunctionInput and
// FunctionOutput statement naming it.
type FuncDecl struct {
	Name         string
	IsSubroutine bool
	Inputs       []graph.SocketDef
	Outputs      []graph.SocketDef
}

// CallDef is the graph.NodeDef a plain call to this function instantiates:
// for a subroutine, an implicit leading "before" Execution input and
// trailing "after" Execution output are spliced around the declared
// sockets (spec.md §4.5 phase 1).
func (f *FuncDecl) CallDef() *graph.NodeDef {
	var sockets []graph.SocketDef
	if f.IsSubroutine {
		sockets = append(sockets, graph.SocketDef{Name: "before", Type: token.Execution})
	}
	sockets = append(sockets, f.Inputs...)
	split := len(sockets)
	sockets = append(sockets, f.Outputs...)
	if f.IsSubroutine {
		sockets = append(sockets, graph.SocketDef{Name: "after", Type: token.Execution})
	}
	return &graph.NodeDef{Name: f.Name, Sockets: sockets, SplitIndex: split}
}

// DefineDef is the graph.NodeDef the function's own "Define(Name, ...)"
// node instantiates inside the function body: it has no data inputs (its
// first argument is the function-name tag, consumed separately, not bound
// to a socket) and exposes the declared inputs as outputs, i.e. the values
// available to the body, followed by an execution "after" that starts the
// body's execution chain (subroutines only — pure functions have no
// Define node).
func (f *FuncDecl) DefineDef() *graph.NodeDef {
	sockets := append([]graph.SocketDef{}, f.Inputs...)
	sockets = append(sockets, graph.SocketDef{Name: "after", Type: token.Execution})
	return &graph.NodeDef{Name: "Define", Sockets: sockets, SplitIndex: 0}
}

// ReturnDef is the graph.NodeDef the function's "Return(Name, ...)" node
// instantiates: a leading "before" Execution input for subroutines, then
// the declared outputs as data inputs (the values being returned).
func (f *FuncDecl) ReturnDef() *graph.NodeDef {
	var sockets []graph.SocketDef
	if f.IsSubroutine {
		sockets = append(sockets, graph.SocketDef{Name: "before", Type: token.Execution})
	}
	sockets = append(sockets, f.Outputs...)
	return &graph.NodeDef{Name: "Return", Sockets: sockets, SplitIndex: len(sockets)}
}

// PropertyResult is the accumulated output of the property phase.
type PropertyResult struct {
	Variables map[string]*VarDecl
	Functions map[string]*FuncDecl
	Natives   map[string]bool
	Includes  []string
}

// RunPropertyPhase processes every PropertyStmt in tree (spec.md §4.5 phase
// 1): Variable, Include, Function, Subroutine, FunctionInput,
// FunctionOutput, and Native declarations. Diagnostics for malformed
// declarations are added to bag; the returned result reflects only the
// declarations that parsed cleanly.
func RunPropertyPhase(tree *parser.Tree, bag *diag.Bag, file string) *PropertyResult {
	pr := &PropertyResult{
		Variables: map[string]*VarDecl{},
		Functions: map[string]*FuncDecl{},
		Natives:   map[string]bool{},
	}
	for _, stmt := range tree.Statements {
		if stmt.Property == nil {
			continue
		}
		p := stmt.Property
		switch p.Name {
		case "Variable":
			runVariable(pr, p, bag, file)
		case "Include":
			runInclude(pr, p, bag, file)
		case "Function":
			declFunc(pr, p, bag, file, false)
		case "Subroutine":
			declFunc(pr, p, bag, file, true)
		case "FunctionInput":
			runFunctionSocket(pr, p, bag, file, true)
		case "FunctionOutput":
			runFunctionSocket(pr, p, bag, file, false)
		case "Native":
			runNative(pr, p, bag, file)
		default:
			bag.Errorf(file, p.Pos.Line, "unknown property statement %q", p.Name)
		}
	}
	return pr
}

func runVariable(pr *PropertyResult, p *parser.PropertyStmt, bag *diag.Bag, file string) {
	if len(p.Args) < 2 {
		bag.Errorf(file, p.Pos.Line, "Variable requires a name and a type")
		return
	}
	name, ok := argName(p.Args[0])
	if !ok {
		bag.Errorf(file, p.Pos.Line, "Variable's first argument must be a name")
		return
	}
	if p.Args[1].Kind != parser.ArgTypeKeyword {
		bag.Errorf(file, p.Pos.Line, "Variable %q's second argument must be a type keyword", name)
		return
	}
	typ := p.Args[1].Type
	if typ.IsVague() || typ == token.None || typ == token.Execution {
		bag.Errorf(file, p.Pos.Line, "Variable %q must declare a single concrete, non-execution type", name)
		return
	}
	vd := &VarDecl{Name: name, Type: typ}
	if len(p.Args) >= 3 {
		lit := p.Args[2]
		if lit.Kind != parser.ArgLiteral {
			bag.Errorf(file, p.Pos.Line, "Variable %q's default must be a literal", name)
			return
		}
		v := lit.Literal
		if v.Type == token.Int && typ == token.Float {
			v = token.Float64(float64(v.Int))
		}
		if v.Type != typ {
			bag.Errorf(file, p.Pos.Line, "Variable %q's default type does not match its declared type", name)
			return
		}
		vd.Default = v
		vd.HasDefault = true
	}
	if _, dup := pr.Variables[name]; dup {
		bag.Errorf(file, p.Pos.Line, "Variable %q redeclared", name)
		return
	}
	pr.Variables[name] = vd
}

func runInclude(pr *PropertyResult, p *parser.PropertyStmt, bag *diag.Bag, file string) {
	if len(p.Args) != 1 || p.Args[0].Kind != parser.ArgLiteral || p.Args[0].Literal.Type != token.String {
		bag.Errorf(file, p.Pos.Line, "Include requires a single string path argument")
		return
	}
	pr.Includes = append(pr.Includes, p.Args[0].Literal.Str)
}

func declFunc(pr *PropertyResult, p *parser.PropertyStmt, bag *diag.Bag, file string, sub bool) {
	if len(p.Args) != 1 {
		bag.Errorf(file, p.Pos.Line, "%s requires exactly one name argument", p.Name)
		return
	}
	name, ok := argName(p.Args[0])
	if !ok {
		bag.Errorf(file, p.Pos.Line, "%s's argument must be a name", p.Name)
		return
	}
	if _, dup := pr.Functions[name]; dup {
		bag.Errorf(file, p.Pos.Line, "function %q redeclared", name)
		return
	}
	pr.Functions[name] = &FuncDecl{Name: name, IsSubroutine: sub}
}

func runFunctionSocket(pr *PropertyResult, p *parser.PropertyStmt, bag *diag.Bag, file string, isInput bool) {
	if len(p.Args) != 3 {
		bag.Errorf(file, p.Pos.Line, "%s requires a function name, a socket name, and a type", p.Name)
		return
	}
	fnName, ok := argName(p.Args[0])
	if !ok {
		bag.Errorf(file, p.Pos.Line, "%s's first argument must be a function name", p.Name)
		return
	}
	fn, ok := pr.Functions[fnName]
	if !ok {
		bag.Errorf(file, p.Pos.Line, "%s refers to undeclared function %q", p.Name, fnName)
		return
	}
	socketName, ok := argName(p.Args[1])
	if !ok {
		bag.Errorf(file, p.Pos.Line, "%s's second argument must be a socket name", p.Name)
		return
	}
	if p.Args[2].Kind != parser.ArgTypeKeyword {
		bag.Errorf(file, p.Pos.Line, "%s's third argument must be a type keyword", p.Name)
		return
	}
	sd := graph.SocketDef{Name: socketName, Type: p.Args[2].Type}
	if isInput {
		fn.Inputs = append(fn.Inputs, sd)
	} else {
		fn.Outputs = append(fn.Outputs, sd)
	}
}

func runNative(pr *PropertyResult, p *parser.PropertyStmt, bag *diag.Bag, file string) {
	if len(p.Args) < 1 {
		bag.Errorf(file, p.Pos.Line, "Native requires a name argument")
		return
	}
	name, ok := argName(p.Args[0])
	if !ok {
		bag.Errorf(file, p.Pos.Line, "Native's first argument must be a name")
		return
	}
	pr.Natives[name] = true
}

func argName(a parser.Arg) (string, bool) {
	if a.Kind != parser.ArgName {
		return "", false
	}
	return a.Name, true
}

// VarType returns the declared type of a variable, for callers (type
// reduction, codegen) that only have the name.
func (pr *PropertyResult) VarType(name string) (token.Type, bool) {
	vd, ok := pr.Variables[name]
	if !ok {
		return 0, false
	}
	return vd.Type, true
}

// DescribeMissingFunction renders a diagnostic-friendly message for a
// Define/Return node whose function tag doesn't resolve.
func DescribeMissingFunction(name string) string {
	return fmt.Sprintf("no Function or Subroutine declared for %q", name)
}
