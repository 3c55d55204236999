// Package parser turns TuskLang source text into a core.Configuration.
//
// # Usage
//
//	cfg, errs := parser.Parse(src)
//	if err := errs.Err(); err != nil {
//	    // cfg is still a usable partial tree
//	}
//
// # Grammar Overview
//
//	file        → { statement terminator }
//	statement   → "[" name "]"                  bracket section header
//	            | IDENT "{" | "}"                brace block open/close
//	            | IDENT ">" | "<"                angle block open/close
//	            | "$" IDENT (":"|"=") value      global declaration
//	            | key (":"|"=") value            assignment
//	            | "@include" value               include / import
//	terminator  → NEWLINE | ";" | EOF
//
// Values are parsed by precedence climbing; see parser_expr.go. Composite
// literals are in parser_composite.go.
package parser

import (
	"fmt"

	"github.com/cyber-boost/tusktsk/pkg/core"
	"github.com/cyber-boost/tusktsk/pkg/token"
)

// Parser parses TuskLang into an AST.
type Parser struct {
	lexer  *Lexer
	token  token.Token // current token
	peek   token.Token // lookahead token
	peek2  token.Token // second lookahead token
	errors ErrorList

	// nest counts open (), [] and {} inside a value. While it is positive,
	// line breaks and comments are insignificant.
	nest int
	// newlineBefore reports whether a line break was skipped right before
	// the current token.
	newlineBefore bool
	// recovering suppresses follow-on errors until the next statement.
	recovering bool
	// resumeHere is set when an unclosed composite was cut short at a line
	// that starts a new statement, so recovery must not skip that line.
	resumeHere bool

	blocks  []*core.Section // open brace/angle sections, innermost last
	section *core.Section   // current bracket section
}

// NewParser creates a new parser for the given input.
func NewParser(src string) *Parser {
	p := &Parser{lexer: NewLexer(src)}
	// Read three tokens to initialize current, peek, and peek2
	p.advance()
	p.advance()
	p.advance()
	return p
}

// Parse parses a whole file. It always returns a tree; when errors were
// recorded the tree holds every statement that could be recovered.
func Parse(src string) (*core.Configuration, ErrorList) {
	p := NewParser(src)
	cfg := p.parseConfiguration()
	return cfg, p.errors
}

// ParseExpr parses a single value expression.
func ParseExpr(src string) (core.Expr, ErrorList) {
	p := NewParser(src)
	p.skipTerminators()
	expr := p.parseExpression()
	p.skipTerminators()
	if expr != nil && !p.check(token.EOF) {
		p.addError(fmt.Sprintf(ErrExpectedEnd, describe(p.token)))
	}
	return expr, p.errors
}

// Errors returns the errors recorded so far.
func (p *Parser) Errors() ErrorList {
	return p.errors
}

// ---------- Token Helpers ----------

// advance shifts the token window by one.
func (p *Parser) advance() {
	p.token = p.peek
	p.peek = p.peek2
	p.peek2 = p.lexer.NextToken()
}

// nextToken advances to the next significant token.
func (p *Parser) nextToken() {
	p.advance()
	p.newlineBefore = false
	for p.nest > 0 && (p.token.Type == token.NEWLINE || p.token.Type == token.COMMENT) {
		if p.token.Type == token.NEWLINE {
			p.newlineBefore = true
		}
		p.advance()
	}
}

// open consumes an opening bracket and enters a nested context.
func (p *Parser) open() {
	p.nest++
	p.nextToken()
}

// closeWith leaves a nested context and consumes the closing token when it
// matches. The nest counter drops first so a line break after the closing
// bracket is significant again.
func (p *Parser) closeWith(t token.TokenType) bool {
	if p.nest > 0 {
		p.nest--
	}
	if p.check(t) {
		p.nextToken()
		return true
	}
	return false
}

// check returns true if the current token is of the given type.
func (p *Parser) check(t token.TokenType) bool {
	return p.token.Type == t
}

// checkPeek returns true if the peek token is of the given type.
func (p *Parser) checkPeek(t token.TokenType) bool {
	return p.peek.Type == t
}

// checkPeek2 returns true if the peek2 token is of the given type.
func (p *Parser) checkPeek2(t token.TokenType) bool {
	return p.peek2.Type == t
}

// match consumes the current token if it matches and returns true.
func (p *Parser) match(t token.TokenType) bool {
	if p.check(t) {
		p.nextToken()
		return true
	}
	return false
}

// expect consumes the current token if it matches, otherwise adds an error.
func (p *Parser) expect(t token.TokenType, what string) bool {
	if p.check(t) {
		p.nextToken()
		return true
	}
	p.addError(fmt.Sprintf(ErrUnexpectedToken, describe(p.token), what))
	return false
}

// addError adds a parse error at the current token.
func (p *Parser) addError(msg string) {
	p.addErrorAt(p.token.Pos, msg)
}

// addErrorAt adds a parse error unless the parser is already recovering
// from an earlier error in the same statement.
func (p *Parser) addErrorAt(pos token.Position, msg string) {
	if p.recovering {
		return
	}
	p.recovering = true
	p.errors = append(p.errors, &ParseError{Pos: pos, Message: msg})
}

// illegalMessage explains an ILLEGAL token.
func illegalMessage(tok token.Token) string {
	switch {
	case tok.Literal == "":
		return fmt.Sprintf(ErrUnexpectedChar, tok.Literal)
	case tok.Literal[0] == '"' || tok.Literal[0] == '\'':
		return ErrUnterminatedString
	case isDigit(tok.Literal[0]):
		return fmt.Sprintf(ErrInvalidNumber, tok.Literal)
	default:
		return fmt.Sprintf(ErrUnexpectedChar, tok.Literal)
	}
}

// describe renders a token for error messages.
func describe(tok token.Token) string {
	switch tok.Type {
	case token.EOF:
		return "end of file"
	case token.NEWLINE:
		return "end of line"
	case token.IDENT:
		return fmt.Sprintf("identifier %q", tok.Literal)
	case token.GLOBAL_IDENT:
		return fmt.Sprintf("global $%s", tok.Literal)
	case token.INT, token.FLOAT:
		return fmt.Sprintf("number %s", tok.Literal)
	case token.STRING, token.TEMPLATE:
		return "string"
	case token.DIRECTIVE:
		return fmt.Sprintf("directive @%s", tok.Literal)
	case token.COMMENT:
		return "comment"
	case token.ILLEGAL:
		return fmt.Sprintf("%q", tok.Literal)
	default:
		return fmt.Sprintf("'%s'", tok.Type)
	}
}
