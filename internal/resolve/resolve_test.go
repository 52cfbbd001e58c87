package resolve

import (
	"testing"

	"github.com/decisionlang/decision/internal/graph"
)

func TestCoreOpCount(t *testing.T) {
	if NumCoreOps() != 24 {
		t.Fatalf("expected 24 core ops, got %d", NumCoreOps())
	}
	if !IsCoreOp("Add") || !IsCoreOp("Ternary") {
		t.Fatalf("expected Add and Ternary to be core ops")
	}
	if IsCoreOp("NotACoreOp") {
		t.Fatalf("did not expect NotACoreOp to resolve as a core op")
	}
}

func TestLookupVariableShadowsNothingButIsFound(t *testing.T) {
	scope := &Scope{Variables: []VarSymbol{{Name: "count"}}}
	ref, err := Lookup(scope, "count")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref.Kind != graph.KindVariable || ref.Name != "count" {
		t.Fatalf("unexpected ref: %+v", ref)
	}
}

func TestLookupUnknown(t *testing.T) {
	scope := &Scope{}
	_, err := Lookup(scope, "Mystery")
	if _, ok := err.(*UnknownNameError); !ok {
		t.Fatalf("expected UnknownNameError, got %v", err)
	}
}

func TestLookupAmbiguousAcrossIncludes(t *testing.T) {
	inc := &Scope{Functions: []FuncSymbol{{Name: "Helper"}}}
	scope := &Scope{
		Functions: []FuncSymbol{{Name: "Helper"}},
		Includes:  []*Scope{inc},
	}
	_, err := Lookup(scope, "Helper")
	ambErr, ok := err.(*AmbiguousError)
	if !ok {
		t.Fatalf("expected AmbiguousError, got %v", err)
	}
	if len(ambErr.Matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(ambErr.Matches))
	}
}

func TestLookupCoreOpNotDuplicatedThroughIncludes(t *testing.T) {
	inc := &Scope{}
	scope := &Scope{Includes: []*Scope{inc, inc}}
	ref, err := Lookup(scope, "Add")
	if err != nil {
		t.Fatalf("unexpected error resolving a core op through includes: %v", err)
	}
	if ref.Kind != graph.KindCoreOp {
		t.Fatalf("expected core-op ref, got %+v", ref)
	}
}

func TestIsSpecialName(t *testing.T) {
	if !IsSpecialName("Define") || !IsSpecialName("Return") {
		t.Fatalf("expected Define and Return to be special names")
	}
	if IsSpecialName("Print") {
		t.Fatalf("Print is not special")
	}
}
