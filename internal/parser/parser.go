package parser

import (
	"fmt"

	"github.com/decisionlang/decision/internal/diag"
	"github.com/decisionlang/decision/internal/lexer"
	"github.com/decisionlang/decision/internal/token"
)

// Parser consumes a pre-lexed token stream and produces a Tree. On error it
// reports the offending file/line into the supplied diag.Bag, drops the
// partial statement, and resynchronizes at the next end-of-statement run
// so later errors still surface (spec.md §4.2).
type Parser struct {
	c    *cursor
	bag  *diag.Bag
	file string
	ok   bool
}

// New creates a Parser over toks, reporting into bag with the given file
// name (used only for diagnostics).
func New(toks []lexer.Token, bag *diag.Bag, file string) *Parser {
	return &Parser{c: newCursor(toks), bag: bag, file: file, ok: true}
}

// Parse runs the grammar over the whole token stream.
func (p *Parser) Parse() *Tree {
	tree := &Tree{}
	p.skipEOS()
	for !p.c.atEOF() {
		stmt, err := p.parseStmt()
		if err != nil {
			p.ok = false
			line := 0
			if pe, ok := err.(*parseError); ok {
				line = pe.pos.Line
			}
			p.bag.Errorf(p.file, line, "%s", err.Error())
			p.recover()
			continue
		}
		tree.Statements = append(tree.Statements, stmt)
		p.expectEOS()
	}
	tree.Success = p.ok
	return tree
}

type parseError struct {
	msg string
	pos lexer.Position
}

func (e *parseError) Error() string { return e.msg }

func errAt(pos lexer.Position, format string, args ...interface{}) error {
	return &parseError{msg: fmt.Sprintf(format, args...), pos: pos}
}

// recover discards tokens until the next end-of-statement run (or EOF) so
// parsing can continue with the next statement.
func (p *Parser) recover() {
	for !p.c.atEOF() && p.c.peek().Kind != lexer.Newline && p.c.peek().Kind != lexer.Semicolon {
		p.c.advance()
	}
	p.skipEOS()
}

func (p *Parser) skipEOS() {
	for p.c.peek().Kind == lexer.Newline || p.c.peek().Kind == lexer.Semicolon {
		p.c.advance()
	}
}

func (p *Parser) expectEOS() {
	if p.c.atEOF() {
		return
	}
	if p.c.peek().Kind != lexer.Newline && p.c.peek().Kind != lexer.Semicolon {
		p.ok = false
		p.bag.Errorf(p.file, p.c.peek().Pos.Line, "expected end of statement, got %v", p.c.peek().Kind)
		p.recover()
		return
	}
	p.skipEOS()
}

func (p *Parser) parseStmt() (Stmt, error) {
	if p.c.at(lexer.LBracket) {
		s, err := p.parsePropertyStmt()
		return Stmt{Property: s}, err
	}
	s, err := p.parseNodeStmt()
	return Stmt{Node: s}, err
}

// parsePropertyStmt parses `[ Name ( args? ) ]`.
func (p *Parser) parsePropertyStmt() (*PropertyStmt, error) {
	open := p.c.advance() // '['
	if p.c.peek().Kind != lexer.Ident {
		return nil, errAt(p.c.peek().Pos, "expected property name, got %v", p.c.peek().Kind)
	}
	nameTok := p.c.advance()
	stmt := &PropertyStmt{Name: nameTok.Text, Pos: open.Pos}

	if p.c.peek().Kind != lexer.LParen {
		return nil, errAt(p.c.peek().Pos, "expected '(' after property name %q", nameTok.Text)
	}
	p.c.advance()
	args, err := p.parseArgList(lexer.RParen)
	if err != nil {
		return nil, err
	}
	stmt.Args = args
	if p.c.peek().Kind != lexer.RParen {
		return nil, errAt(p.c.peek().Pos, "expected ')' to close property %q", nameTok.Text)
	}
	p.c.advance()
	if p.c.peek().Kind != lexer.RBracket {
		return nil, errAt(p.c.peek().Pos, "expected ']' to close property %q", nameTok.Text)
	}
	p.c.advance()
	return stmt, nil
}

// parseNodeStmt parses `Name(args?) (~ lineList)?`.
func (p *Parser) parseNodeStmt() (*NodeStmt, error) {
	if p.c.peek().Kind != lexer.Ident {
		return nil, errAt(p.c.peek().Pos, "expected node name, got %v", p.c.peek().Kind)
	}
	nameTok := p.c.advance()
	stmt := &NodeStmt{Name: nameTok.Text, Pos: nameTok.Pos, Line: nameTok.Pos.Line}

	if p.c.peek().Kind != lexer.LParen {
		return nil, errAt(p.c.peek().Pos, "expected '(' after node name %q", nameTok.Text)
	}
	p.c.advance()
	args, err := p.parseArgList(lexer.RParen)
	if err != nil {
		return nil, err
	}
	stmt.Args = args
	if p.c.peek().Kind != lexer.RParen {
		return nil, errAt(p.c.peek().Pos, "expected ')' to close node %q", nameTok.Text)
	}
	p.c.advance()

	if p.c.peek().Kind == lexer.Tilde {
		p.c.advance()
		outs, err := p.parseOutputList()
		if err != nil {
			return nil, err
		}
		stmt.Outputs = outs
	}
	return stmt, nil
}

func (p *Parser) parseArgList(closing lexer.Kind) ([]Arg, error) {
	var args []Arg
	if p.c.peek().Kind == closing {
		return args, nil
	}
	for {
		a, err := p.parseArg()
		if err != nil {
			return nil, err
		}
		args = append(args, a)
		if p.c.peek().Kind == lexer.Comma {
			p.c.advance()
			continue
		}
		break
	}
	return args, nil
}

func (p *Parser) parseArg() (Arg, error) {
	t := p.c.peek()
	switch t.Kind {
	case lexer.Ident:
		p.c.advance()
		return Arg{Kind: ArgName, Name: t.Text, Pos: t.Pos}, nil
	case lexer.TypeKeyword:
		p.c.advance()
		return Arg{Kind: ArgTypeKeyword, Type: t.DeclType, Pos: t.Pos}, nil
	case lexer.Hash:
		p.c.advance()
		return Arg{Kind: ArgLineRef, LineRef: int(t.IntVal), Pos: t.Pos}, nil
	case lexer.IntLit:
		p.c.advance()
		return Arg{Kind: ArgLiteral, Literal: token.Int64(t.IntVal), Pos: t.Pos}, nil
	case lexer.FloatLit:
		p.c.advance()
		return Arg{Kind: ArgLiteral, Literal: token.Float64(t.FloatVal), Pos: t.Pos}, nil
	case lexer.StringLit:
		p.c.advance()
		return Arg{Kind: ArgLiteral, Literal: token.StringValue(t.Text), Pos: t.Pos}, nil
	case lexer.BoolLit:
		p.c.advance()
		return Arg{Kind: ArgLiteral, Literal: token.Boolean(t.BoolVal), Pos: t.Pos}, nil
	default:
		return Arg{}, errAt(t.Pos, "unexpected token %v in argument list", t.Kind)
	}
}

func (p *Parser) parseOutputList() ([]OutputRef, error) {
	var outs []OutputRef
	for {
		t := p.c.peek()
		if t.Kind != lexer.Hash {
			return nil, errAt(t.Pos, "expected '#' line identifier, got %v", t.Kind)
		}
		p.c.advance()
		outs = append(outs, OutputRef{LineID: int(t.IntVal), Pos: t.Pos})
		if p.c.peek().Kind == lexer.Comma {
			p.c.advance()
			continue
		}
		break
	}
	return outs, nil
}
