package semantic

import (
	"github.com/decisionlang/decision/internal/diag"
	"github.com/decisionlang/decision/internal/graph"
	"github.com/decisionlang/decision/internal/parser"
	"github.com/decisionlang/decision/internal/resolve"
)

// BuildScope turns a sheet's own property declarations into a resolve.Scope
// for this sheet alone; the caller (internal/sheet) attaches Includes once
// included sheets have themselves been analyzed, avoiding the import cycle
// noted in internal/resolve's doc comment.
func BuildScope(pr *PropertyResult) *resolve.Scope {
	scope := &resolve.Scope{}
	for name := range pr.Variables {
		scope.Variables = append(scope.Variables, resolve.VarSymbol{Name: name})
	}
	for name := range pr.Functions {
		scope.Functions = append(scope.Functions, resolve.FuncSymbol{Name: name})
	}
	for name := range pr.Natives {
		scope.Natives = append(scope.Natives, resolve.NativeSymbol{Name: name})
	}
	return scope
}

// Analyze runs phases 2-4 of spec.md §4.5 (the property phase, phase 1, is
// run separately by RunPropertyPhase since its result — the sheet's own
// variable/function declarations — must feed BuildScope before includes are
// attached and node-phase name resolution can run). It returns the built
// graph; diagnostics accumulate in bag regardless of success.
func Analyze(tree *parser.Tree, pr *PropertyResult, scope *resolve.Scope, bag *diag.Bag, file string) *graph.Graph {
	g, _ := RunNodePhase(tree, pr, scope, bag, file)
	ReduceTypes(g, pr, bag, file)
	CheckSetTargets(g, pr, bag, file)
	DetectLoops(g, bag, file)
	return g
}
