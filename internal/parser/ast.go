// Package parser implements the recursive-descent LL(1) grammar of
// spec.md §4.2 over the token stream produced by internal/lexer. The
// recursive-descent shape and "report and continue" error recovery is
// grounded on github.com/cwbudde/go-dws's internal/parser (parser.go,
// error_recovery.go); the grammar itself is specific to Decision's
// property/node statement forms.
package parser

import (
	"github.com/decisionlang/decision/internal/lexer"
	"github.com/decisionlang/decision/internal/token"
)

// ArgKind distinguishes the four forms an argument can take in source.
type ArgKind int

const (
	ArgName ArgKind = iota
	ArgLiteral
	ArgTypeKeyword
	ArgLineRef
)

// Arg is a single argument to a property or node statement.
type Arg struct {
	Name    string
	Literal token.Value
	Type    token.Type
	LineRef int
	Pos     lexer.Position
	Kind    ArgKind
}

// OutputRef names one of a node's output sockets via a line identifier,
// e.g. the "#1, #2" in `Foo(...) ~ #1, #2;`.
type OutputRef struct {
	Pos    lexer.Position
	LineID int
}

// PropertyStmt is `[ Name(args?) ] eos` — declares a variable, include,
// function, subroutine, or function socket.
type PropertyStmt struct {
	Name string
	Args []Arg
	Pos  lexer.Position
}

// NodeStmt is `Name(args?) (~ lineList)? eos` — instantiates a node.
type NodeStmt struct {
	Name    string
	Args    []Arg
	Outputs []OutputRef
	Pos     lexer.Position
	Line    int
}

// Stmt is a tagged union of the grammar's two top-level constructs; exactly
// one of Property or Node is non-nil.
type Stmt struct {
	Property *PropertyStmt
	Node     *NodeStmt
}

// Tree is the parser's output: a flat statement list plus a success flag.
// Callers must not trust Statements when Success is false (spec.md §4.2).
type Tree struct {
	Statements []Stmt
	Success    bool
}
