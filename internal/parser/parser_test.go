package parser

import (
	"testing"

	"github.com/decisionlang/decision/internal/diag"
)

func TestParseHelloWorld(t *testing.T) {
	src := "Start() ~ #1;\nPrint(#1, 'Hello, world!');\n"
	bag := diag.New()
	tree := ParseSource(src, bag, "hello.dec")
	if !tree.Success {
		t.Fatalf("expected success, diagnostics: %v", bag.All())
	}
	if len(tree.Statements) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(tree.Statements))
	}
	start := tree.Statements[0].Node
	if start == nil || start.Name != "Start" || len(start.Outputs) != 1 || start.Outputs[0].LineID != 1 {
		t.Fatalf("unexpected Start node: %+v", start)
	}
	print := tree.Statements[1].Node
	if print == nil || print.Name != "Print" || len(print.Args) != 2 {
		t.Fatalf("unexpected Print node: %+v", print)
	}
	if print.Args[0].Kind != ArgLineRef || print.Args[0].LineRef != 1 {
		t.Fatalf("expected first Print arg to be line ref #1, got %+v", print.Args[0])
	}
	if print.Args[1].Kind != ArgLiteral || print.Args[1].Literal.Str != "Hello, world!" {
		t.Fatalf("expected second Print arg to be literal string, got %+v", print.Args[1])
	}
}

func TestParsePropertyStmt(t *testing.T) {
	src := "[Variable(count, Integer, 0)]\n"
	bag := diag.New()
	tree := ParseSource(src, bag, "vars.dec")
	if !tree.Success {
		t.Fatalf("expected success, diagnostics: %v", bag.All())
	}
	stmt := tree.Statements[0].Property
	if stmt == nil || stmt.Name != "Variable" {
		t.Fatalf("unexpected property statement: %+v", stmt)
	}
	if len(stmt.Args) != 3 {
		t.Fatalf("expected 3 args, got %d", len(stmt.Args))
	}
	if stmt.Args[1].Kind != ArgTypeKeyword {
		t.Fatalf("expected second arg to be a type keyword, got %+v", stmt.Args[1])
	}
}

func TestParseErrorRecoveryContinues(t *testing.T) {
	src := "Foo(\nBar() ~ #1;\n"
	bag := diag.New()
	tree := ParseSource(src, bag, "broken.dec")
	if tree.Success {
		t.Fatalf("expected failure due to unterminated Foo(...)")
	}
	if !bag.HasErrors() {
		t.Fatalf("expected at least one diagnostic")
	}
	// Parser should have resynchronized and still parsed Bar.
	found := false
	for _, s := range tree.Statements {
		if s.Node != nil && s.Node.Name == "Bar" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected parser to recover and still find Bar node, statements: %+v", tree.Statements)
	}
}
