// Package token defines the lexical tokens of the TuskLang configuration language.
//
// The three section dialects ([name], name { }, name > <) are recognized by
// their punctuation only; telling them apart is the parser's job.
package token

import "fmt"

// TokenType represents the type of a lexical token.
//
//nolint:revive // Accept stutter as token.TokenType is clear and widely used
type TokenType int32

//nolint:revive // ALL_CAPS token names mirror the grammar
const (
	// Special tokens
	EOF TokenType = iota
	ILLEGAL
	NEWLINE
	COMMENT // # comment

	// Literals
	IDENT        // name, max-connections
	GLOBAL_IDENT // $name
	INT          // 8080
	FLOAT        // 1.5, 2e10
	STRING       // "hello", 'hello'
	TEMPLATE     // "hello ${name}"
	DIRECTIVE    // @env

	// Punctuation
	LBRACKET  // [
	RBRACKET  // ]
	LBRACE    // {
	RBRACE    // }
	LPAREN    // (
	RPAREN    // )
	COMMA     // ,
	COLON     // :
	SEMICOLON // ;
	DOT       // .
	QUESTION  // ?
	ASSIGN    // =

	// Operators
	PLUS    // +
	MINUS   // -
	STAR    // *
	SLASH   // /
	PERCENT // %
	EQ      // ==
	NE      // !=
	LT      // <
	LE      // <=
	GT      // >
	GE      // >=
	AND     // &&
	OR      // ||
	NOT     // !

	// Keywords
	TRUE
	FALSE
	NULL
)

// String returns a human-readable representation of the token type.
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TOKEN(%d)", t)
}

var tokenNames = map[TokenType]string{
	EOF:     "EOF",
	ILLEGAL: "ILLEGAL",
	NEWLINE: "NEWLINE",
	COMMENT: "COMMENT",

	IDENT:        "IDENT",
	GLOBAL_IDENT: "GLOBAL_IDENT",
	INT:          "INT",
	FLOAT:        "FLOAT",
	STRING:       "STRING",
	TEMPLATE:     "TEMPLATE",
	DIRECTIVE:    "DIRECTIVE",

	LBRACKET:  "[",
	RBRACKET:  "]",
	LBRACE:    "{",
	RBRACE:    "}",
	LPAREN:    "(",
	RPAREN:    ")",
	COMMA:     ",",
	COLON:     ":",
	SEMICOLON: ";",
	DOT:       ".",
	QUESTION:  "?",
	ASSIGN:    "=",

	PLUS:    "+",
	MINUS:   "-",
	STAR:    "*",
	SLASH:   "/",
	PERCENT: "%",
	EQ:      "==",
	NE:      "!=",
	LT:      "<",
	LE:      "<=",
	GT:      ">",
	GE:      ">=",
	AND:     "&&",
	OR:      "||",
	NOT:     "!",

	TRUE:  "true",
	FALSE: "false",
	NULL:  "null",
}

var keywords = map[string]TokenType{
	"true":  TRUE,
	"false": FALSE,
	"null":  NULL,
}

// LookupIdent returns the keyword token type for ident, or IDENT.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

// IsOperator returns true if the token type is a binary or unary operator.
func IsOperator(t TokenType) bool {
	return t >= PLUS && t <= NOT
}

// IsLiteral returns true for tokens that carry a literal value.
func IsLiteral(t TokenType) bool {
	return t >= IDENT && t <= DIRECTIVE
}

// Position represents a location in the source text.
type Position struct {
	Line   int // 1-based line number
	Column int // 1-based column number
	Offset int // 0-based byte offset
}

// IsValid returns true if the position is valid (line > 0).
func (p Position) IsValid() bool {
	return p.Line > 0
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Before reports whether p sorts before q.
func (p Position) Before(q Position) bool {
	if p.Line != q.Line {
		return p.Line < q.Line
	}
	return p.Column < q.Column
}

// Token represents a lexical token with position information.
type Token struct {
	Type    TokenType
	Literal string
	Pos     Position
	// End is the byte offset just past the token's source text.
	End int
}

func (t Token) String() string {
	switch t.Type {
	case EOF, NEWLINE:
		return t.Type.String()
	case STRING, TEMPLATE:
		return fmt.Sprintf("%s(%q)", t.Type, t.Literal)
	}
	if IsLiteral(t.Type) || t.Type == ILLEGAL || t.Type == COMMENT {
		return fmt.Sprintf("%s(%s)", t.Type, t.Literal)
	}
	return t.Type.String()
}

// Touches reports whether next starts exactly where t ends.
func (t Token) Touches(next Token) bool {
	return t.End == next.Pos.Offset
}

// IsIdentStart reports whether ch can begin an identifier.
func IsIdentStart(ch byte) bool {
	return ch == '_' || ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z')
}

// IsIdentPart reports whether ch can continue an identifier.
// A '-' is accepted separately when it is followed by an identifier start.
func IsIdentPart(ch byte) bool {
	return IsIdentStart(ch) || ('0' <= ch && ch <= '9')
}

// IsIdentifier reports whether s lexes as a single non-keyword IDENT.
func IsIdentifier(s string) bool {
	if s == "" || !IsIdentStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		ch := s[i]
		if ch == '-' {
			if i+1 >= len(s) || !IsIdentStart(s[i+1]) {
				return false
			}
			continue
		}
		if !IsIdentPart(ch) {
			return false
		}
	}
	return LookupIdent(s) == IDENT
}
