package parser

import "github.com/decisionlang/decision/internal/lexer"

// cursor provides one-token lookahead over a pre-scanned token slice,
// grounded on go-dws's internal/parser/cursor.go.
type cursor struct {
	toks []lexer.Token
	pos  int
}

func newCursor(toks []lexer.Token) *cursor {
	return &cursor{toks: toks}
}

func (c *cursor) peek() lexer.Token {
	if c.pos >= len(c.toks) {
		return lexer.Token{Kind: lexer.EOF}
	}
	return c.toks[c.pos]
}

func (c *cursor) peekAt(offset int) lexer.Token {
	idx := c.pos + offset
	if idx >= len(c.toks) {
		return lexer.Token{Kind: lexer.EOF}
	}
	return c.toks[idx]
}

func (c *cursor) advance() lexer.Token {
	t := c.peek()
	if c.pos < len(c.toks) {
		c.pos++
	}
	return t
}

func (c *cursor) at(k lexer.Kind) bool {
	return c.peek().Kind == k
}

func (c *cursor) atEOF() bool {
	return c.at(lexer.EOF)
}
