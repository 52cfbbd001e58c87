package lexer

import "github.com/decisionlang/decision/internal/token"

// Kind identifies the lexical class of a Token.
type Kind int

const (
	EOF Kind = iota
	Newline
	Semicolon
	Comma
	Pipe
	Hash
	LParen
	RParen
	LBracket
	RBracket
	LBrace
	RBrace
	Tilde
	Ident
	TypeKeyword // Integer, Float, String, Boolean, Execution
	IntLit
	FloatLit
	StringLit
	BoolLit
)

var kindNames = map[Kind]string{
	EOF: "EOF", Newline: "Newline", Semicolon: ";", Comma: ",", Pipe: "|",
	Hash: "#", LParen: "(", RParen: ")", LBracket: "[", RBracket: "]",
	LBrace: "{", RBrace: "}", Tilde: "~", Ident: "Ident",
	TypeKeyword: "TypeKeyword", IntLit: "IntLit", FloatLit: "FloatLit",
	StringLit: "StringLit", BoolLit: "BoolLit",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// Position is a 1-based line/column location in the source file.
type Position struct {
	Line   int
	Column int
}

// Token is a single lexical unit with its attached literal data, if any.
type Token struct {
	Text     string
	Pos      Position
	Kind     Kind
	IntVal   int64
	FloatVal float64
	BoolVal  bool
	DeclType token.Type // populated when Kind == TypeKeyword
}
