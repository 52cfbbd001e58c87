package parser

import (
	"github.com/decisionlang/decision/internal/diag"
	"github.com/decisionlang/decision/internal/lexer"
)

// ParseSource lexes and parses a whole source file in one step, reporting
// both lex and parse errors into bag.
func ParseSource(src string, bag *diag.Bag, file string) *Tree {
	l := lexer.New(src)
	toks := l.Tokenize()
	for _, e := range l.Errors() {
		bag.Errorf(file, e.Pos.Line, "%s", e.Message)
	}
	p := New(toks, bag, file)
	tree := p.Parse()
	if len(l.Errors()) > 0 {
		tree.Success = false
	}
	return tree
}
