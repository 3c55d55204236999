package parser

import (
	"fmt"

	"github.com/cyber-boost/tusktsk/pkg/core"
	"github.com/cyber-boost/tusktsk/pkg/token"
)

// Composite literals and argument lists.
//
//	array   → "[" [ value { sep value } [ "," ] ] "]"
//	object  → "{" [ field { sep field } [ "," ] ] "}"
//	field   → ( IDENT | STRING ) ( ":" | "=" ) value
//	args    → "(" [ value { "," value } [ "," ] ] ")"
//	sep     → "," | line break
//
// Strings are single tokens by the time they get here, so commas and
// brackets inside quotes never split an element. Nesting is handled by
// recursion rather than by scanning for the matching bracket.
//
// A composite left open at the end of a line is detected when the next
// line starts like a statement: the error points at the opening bracket
// and parsing resumes on that line.

// parseArray parses an array literal.
func (p *Parser) parseArray() core.Expr {
	arr := &core.Array{Lbrack: p.token.Pos}
	base := p.nest
	p.open()

	for {
		switch p.token.Type {
		case token.RBRACKET:
			p.closeWith(token.RBRACKET)
			return arr
		case token.EOF:
			p.addErrorAt(arr.Lbrack, fmt.Sprintf(ErrUnterminated, "array"))
			p.nest = base
			return nil
		}
		if p.statementAhead(false) {
			return p.cutShort(arr.Lbrack, "array", base)
		}

		elem := p.parseExpression()
		if elem == nil {
			p.abandon(token.RBRACKET, base)
			return nil
		}
		arr.Elements = append(arr.Elements, elem)

		if !p.separator(token.RBRACKET, "array", arr.Lbrack, base) {
			return nil
		}
	}
}

// parseObject parses an object literal. The current token is '{'.
func (p *Parser) parseObject() *core.Object {
	obj := &core.Object{Lbrace: p.token.Pos}
	base := p.nest
	p.open()

	for {
		switch p.token.Type {
		case token.RBRACE:
			p.closeWith(token.RBRACE)
			return obj
		case token.EOF:
			p.addErrorAt(obj.Lbrace, fmt.Sprintf(ErrUnterminated, "object"))
			p.nest = base
			return nil
		}
		if p.statementAhead(true) {
			p.cutShort(obj.Lbrace, "object", base)
			return nil
		}

		field, ok := p.parseField()
		if !ok {
			p.abandon(token.RBRACE, base)
			return nil
		}
		obj.Fields = append(obj.Fields, field)

		if !p.separator(token.RBRACE, "object", obj.Lbrace, base) {
			return nil
		}
	}
}

// parseField parses one `key: value` entry of an object literal.
func (p *Parser) parseField() (core.ObjectField, bool) {
	switch p.token.Type {
	case token.IDENT, token.STRING, token.TRUE, token.FALSE, token.NULL:
	default:
		p.addError(fmt.Sprintf(ErrExpectedObjectKey, describe(p.token)))
		return core.ObjectField{}, false
	}

	field := core.ObjectField{Key: p.token.Literal, KeyPos: p.token.Pos}
	p.nextToken()
	if !p.check(token.COLON) && !p.check(token.ASSIGN) {
		p.addError(fmt.Sprintf(ErrUnexpectedToken, describe(p.token), "':' after object key"))
		return core.ObjectField{}, false
	}
	p.nextToken()

	field.Value = p.parseExpression()
	return field, field.Value != nil
}

// separator consumes what follows an element: a comma, a line break, or
// the closing bracket (left for the caller). Anything else is an error and
// the rest of the composite is skipped.
func (p *Parser) separator(closer token.TokenType, what string, open token.Position, base int) bool {
	switch {
	case p.check(token.COMMA):
		p.nextToken()
		return true
	case p.check(closer), p.newlineBefore:
		return true
	case p.check(token.EOF):
		p.addErrorAt(open, fmt.Sprintf(ErrUnterminated, what))
		p.nest = base
		return false
	}
	p.addError(fmt.Sprintf(ErrUnexpectedToken, describe(p.token), fmt.Sprintf("',' or '%s'", closer)))
	p.skipToClose(closer, base)
	return false
}

// parseArgs parses a parenthesized argument list. The current token is '('.
func (p *Parser) parseArgs() ([]core.Expr, bool) {
	lparen := p.token.Pos
	base := p.nest
	p.open()

	var args []core.Expr
	for {
		switch p.token.Type {
		case token.RPAREN:
			p.closeWith(token.RPAREN)
			return args, true
		case token.EOF:
			p.addErrorAt(lparen, fmt.Sprintf(ErrUnterminated, "argument list"))
			p.nest = base
			return nil, false
		}
		if p.statementAhead(false) {
			p.cutShort(lparen, "argument list", base)
			return nil, false
		}

		arg := p.parseExpression()
		if arg == nil {
			p.abandon(token.RPAREN, base)
			return nil, false
		}
		args = append(args, arg)

		switch {
		case p.check(token.COMMA):
			p.nextToken()
		case p.check(token.RPAREN):
		case p.statementAhead(false):
			p.cutShort(lparen, "argument list", base)
			return nil, false
		case p.check(token.EOF):
			p.addErrorAt(lparen, fmt.Sprintf(ErrUnterminated, "argument list"))
			p.nest = base
			return nil, false
		default:
			p.addError(fmt.Sprintf(ErrUnexpectedToken, describe(p.token), "',' or ')'"))
			p.skipToClose(token.RPAREN, base)
			return nil, false
		}
	}
}

// statementAhead reports whether the current token opens a new line that
// reads as a statement. Inside an object a `key:` line is a field, so only
// a global declaration counts there.
func (p *Parser) statementAhead(inObject bool) bool {
	if !p.newlineBefore {
		return false
	}
	switch p.token.Type {
	case token.GLOBAL_IDENT:
		return p.checkPeek(token.COLON) || p.checkPeek(token.ASSIGN)
	case token.IDENT, token.STRING:
		return !inObject && (p.checkPeek(token.COLON) || p.checkPeek(token.ASSIGN))
	}
	return false
}

// cutShort reports an unterminated composite at its opening bracket and
// leaves the current token for the statement loop.
func (p *Parser) cutShort(open token.Position, what string, base int) core.Expr {
	p.addErrorAt(open, fmt.Sprintf(ErrUnterminated, what))
	p.nest = base
	p.resumeHere = true
	return nil
}

// abandon gives up on a composite whose element failed to parse. When an
// inner composite was cut short the current token already starts the next
// statement and nothing is skipped.
func (p *Parser) abandon(closer token.TokenType, base int) {
	if p.resumeHere {
		p.nest = base
		return
	}
	p.skipToClose(closer, base)
}

// skipToClose skips to the bracket that closes the current composite and
// consumes it, restoring the nesting level to base. Brackets opened along
// the way are balanced first.
func (p *Parser) skipToClose(closer token.TokenType, base int) {
	depth := 0
	for !p.check(token.EOF) {
		switch p.token.Type {
		case token.LBRACKET, token.LBRACE, token.LPAREN:
			depth++
		case token.RBRACKET, token.RBRACE, token.RPAREN:
			if depth == 0 && p.check(closer) {
				p.nest = base + 1
				p.closeWith(closer)
				return
			}
			if depth > 0 {
				depth--
			}
		}
		p.nextToken()
	}
	p.nest = base
}
