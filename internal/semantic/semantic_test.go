package semantic

import (
	"testing"

	"github.com/decisionlang/decision/internal/diag"
	"github.com/decisionlang/decision/internal/parser"
)

func analyzeSource(t *testing.T, src string) (*PropertyResult, *diag.Bag) {
	t.Helper()
	bag := diag.New()
	tree := parser.ParseSource(src, bag, "test.dec")
	if !tree.Success {
		t.Fatalf("parse failed: %s", bag.String())
	}
	pr := RunPropertyPhase(tree, bag, "test.dec")
	scope := BuildScope(pr)
	g := Analyze(tree, pr, scope, bag, "test.dec")
	if g == nil {
		t.Fatalf("expected a graph")
	}
	return pr, bag
}

func TestHelloWorldAnalyzes(t *testing.T) {
	_, bag := analyzeSource(t, "Start() ~ #1; Print(#1, 'Hello, world!');")
	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %s", bag.String())
	}
}

func TestEqualStringIntMismatchIsError(t *testing.T) {
	_, bag := analyzeSource(t, "Start() ~ #1; Equal(3, 'abcd') ~ #2;")
	if !bag.HasErrors() {
		t.Fatalf("expected a type-mismatch error")
	}
}

func TestMissingStartIsError(t *testing.T) {
	_, bag := analyzeSource(t, "Print(#1, 'unreachable');")
	if !bag.HasErrors() {
		t.Fatalf("expected a missing-Start error")
	}
}
