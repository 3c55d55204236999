package parser

import (
	"fmt"
	"strings"

	"github.com/cyber-boost/tusktsk/pkg/core"
	"github.com/cyber-boost/tusktsk/pkg/token"
)

// Statement parsing: section headers, blocks, declarations, includes.
//
// Statements are tried in this order:
//
//	"[" name "]"                 bracket section header
//	IDENT "{" / IDENT ">" EOL    block open
//	"}" / "<" EOL                block close
//	"$" IDENT (":"|"=") value    global declaration
//	key (":"|"=") value          assignment (key is IDENT or STRING)
//	"@include" / "@import"       include
//
// A bracket section runs until the next header. Brace and angle blocks
// nest and must be closed with their own delimiter.

// parseConfiguration parses statements until EOF.
func (p *Parser) parseConfiguration() *core.Configuration {
	cfg := &core.Configuration{}

	for !p.check(token.EOF) {
		p.recovering = false
		if p.match(token.NEWLINE) || p.match(token.SEMICOLON) {
			continue
		}

		stmt := p.parseStatement()
		if p.recovering {
			p.synchronize()
		}
		switch s := stmt.(type) {
		case nil:
		case *core.Section:
			if s.Dialect == core.DialectBracket {
				cfg.Statements = append(cfg.Statements, s)
				p.section = s
				continue
			}
			p.appendStmt(cfg, s)
			p.blocks = append(p.blocks, s)
		default:
			p.appendStmt(cfg, stmt)
		}
	}

	p.recovering = false
	for i := len(p.blocks) - 1; i >= 0; i-- {
		b := p.blocks[i]
		p.addErrorAt(b.NamePos, fmt.Sprintf(ErrUnclosedSection, b.Name))
		p.recovering = false
	}
	p.blocks = nil
	return cfg
}

// appendStmt adds a statement to the innermost open container.
func (p *Parser) appendStmt(cfg *core.Configuration, stmt core.Stmt) {
	switch {
	case len(p.blocks) > 0:
		b := p.blocks[len(p.blocks)-1]
		b.Body = append(b.Body, stmt)
	case p.section != nil:
		p.section.Body = append(p.section.Body, stmt)
	default:
		cfg.Statements = append(cfg.Statements, stmt)
	}
}

// parseStatement parses one statement. Section openers are returned as
// *core.Section for the caller to attach; block closers return nil.
func (p *Parser) parseStatement() core.Stmt {
	switch p.token.Type {
	case token.COMMENT:
		c := &core.Comment{Text: strings.TrimSpace(p.token.Literal), HashPos: p.token.Pos}
		p.nextToken()
		return c

	case token.LBRACKET:
		return p.parseSectionHeader()

	case token.IDENT:
		if p.checkPeek(token.LBRACE) {
			return p.parseBlockOpen(core.DialectBrace)
		}
		if p.checkPeek(token.GT) && isLineEnd(p.peek2.Type) {
			return p.parseBlockOpen(core.DialectAngle)
		}
		if p.checkPeek(token.COLON) || p.checkPeek(token.ASSIGN) {
			return p.parseAssignment()
		}

	case token.STRING:
		if p.checkPeek(token.COLON) || p.checkPeek(token.ASSIGN) {
			return p.parseAssignment()
		}

	case token.RBRACE:
		p.parseBlockClose(core.DialectBrace)
		return nil

	case token.LT:
		if isLineEnd(p.peek.Type) {
			p.parseBlockClose(core.DialectAngle)
			return nil
		}

	case token.GLOBAL_IDENT:
		if p.checkPeek(token.COLON) || p.checkPeek(token.ASSIGN) {
			return p.parseGlobalDecl()
		}

	case token.DIRECTIVE:
		if p.token.Literal == "include" || p.token.Literal == "import" {
			return p.parseInclude()
		}
		p.addError(fmt.Sprintf(ErrDirectiveStatement, p.token.Literal))
		return nil

	case token.ILLEGAL:
		p.addError(illegalMessage(p.token))
		return nil
	}

	p.addError(fmt.Sprintf(ErrExpectedStatement, describe(p.token)))
	return nil
}

// isLineEnd reports whether t ends a logical line.
func isLineEnd(t token.TokenType) bool {
	return t == token.NEWLINE || t == token.EOF || t == token.SEMICOLON || t == token.COMMENT
}

// parseSectionHeader parses `[name]` or `[a.b]`.
func (p *Parser) parseSectionHeader() core.Stmt {
	pos := p.token.Pos
	p.nextToken() // skip '['

	name, ok := p.parseDottedName()
	if !ok {
		return nil
	}
	if !p.expect(token.RBRACKET, "']'") {
		return nil
	}
	if len(p.blocks) > 0 {
		open := p.blocks[len(p.blocks)-1]
		p.addErrorAt(pos, fmt.Sprintf(ErrHeaderInBlock, name, open.Dialect))
		return nil
	}
	if !p.endStatement() {
		return nil
	}
	return &core.Section{Name: name, Dialect: core.DialectBracket, NamePos: pos}
}

// parseDottedName parses IDENT ("." IDENT)*.
func (p *Parser) parseDottedName() (string, bool) {
	if !p.check(token.IDENT) {
		p.addError(fmt.Sprintf(ErrUnexpectedToken, describe(p.token), "section name"))
		return "", false
	}
	parts := []string{p.token.Literal}
	p.nextToken()
	for p.check(token.DOT) && p.checkPeek(token.IDENT) {
		p.nextToken()
		parts = append(parts, p.token.Literal)
		p.nextToken()
	}
	return strings.Join(parts, "."), true
}

// parseBlockOpen parses `name {` or `name >`.
func (p *Parser) parseBlockOpen(d core.Dialect) core.Stmt {
	s := &core.Section{Name: p.token.Literal, Dialect: d, NamePos: p.token.Pos}
	p.nextToken() // name
	p.nextToken() // '{' or '>'
	if d == core.DialectAngle && !p.endStatement() {
		return nil
	}
	return s
}

// parseBlockClose parses `}` or `<`.
func (p *Parser) parseBlockClose(d core.Dialect) {
	closer := describe(p.token)
	pos := p.token.Pos
	p.nextToken()

	if len(p.blocks) == 0 {
		p.addErrorAt(pos, fmt.Sprintf(ErrUnmatchedClose, closer))
		return
	}
	open := p.blocks[len(p.blocks)-1]
	p.blocks = p.blocks[:len(p.blocks)-1]
	if open.Dialect != d {
		p.addErrorAt(pos, fmt.Sprintf(ErrMismatchedClose, closer, open.Dialect, open.Name))
		return
	}
	p.endStatement()
}

// parseGlobalDecl parses `$name = value`.
func (p *Parser) parseGlobalDecl() core.Stmt {
	decl := &core.GlobalVariableDecl{Name: p.token.Literal, NamePos: p.token.Pos}
	p.nextToken() // $name
	p.nextToken() // ':' or '='

	decl.Value = p.parseExpression()
	if decl.Value == nil || !p.endStatement() {
		return nil
	}
	return decl
}

// parseAssignment parses `key: value` or `key = value`.
func (p *Parser) parseAssignment() core.Stmt {
	a := &core.Assignment{Key: p.token.Literal, KeyPos: p.token.Pos}
	p.nextToken() // key
	p.nextToken() // ':' or '='

	a.Value = p.parseExpression()
	if a.Value == nil || !p.endStatement() {
		return nil
	}
	return a
}

// parseInclude parses `@include "path"` or `@include("path")`.
func (p *Parser) parseInclude() core.Stmt {
	inc := &core.Include{Import: p.token.Literal == "import", AtPos: p.token.Pos}
	name := p.token.Literal
	p.nextToken()

	if isLineEnd(p.token.Type) {
		p.addErrorAt(inc.AtPos, fmt.Sprintf(ErrMissingIncludePath, name))
		return nil
	}
	if p.check(token.LPAREN) {
		p.open()
		if p.check(token.RPAREN) {
			p.closeWith(token.RPAREN)
			p.addErrorAt(inc.AtPos, fmt.Sprintf(ErrMissingIncludePath, name))
			return nil
		}
		inc.Path = p.parseExpression()
		if inc.Path == nil {
			return nil
		}
		if !p.closeWith(token.RPAREN) {
			p.addError(fmt.Sprintf(ErrUnexpectedToken, describe(p.token), "')'"))
			return nil
		}
	} else {
		inc.Path = p.parseExpression()
		if inc.Path == nil {
			return nil
		}
	}
	if !p.endStatement() {
		return nil
	}
	return inc
}

// endStatement consumes a statement terminator. A `}` closing the
// innermost brace block also ends a statement but is left for the caller.
func (p *Parser) endStatement() bool {
	switch p.token.Type {
	case token.NEWLINE, token.SEMICOLON:
		p.nextToken()
		return true
	case token.EOF, token.COMMENT:
		return true
	case token.RBRACE:
		if len(p.blocks) > 0 && p.blocks[len(p.blocks)-1].Dialect == core.DialectBrace {
			return true
		}
	case token.ILLEGAL:
		p.addError(illegalMessage(p.token))
		return false
	}
	p.addError(fmt.Sprintf(ErrExpectedEnd, describe(p.token)))
	return false
}

// skipTerminators skips line breaks, semicolons and comments.
func (p *Parser) skipTerminators() {
	for p.check(token.NEWLINE) || p.check(token.SEMICOLON) || p.check(token.COMMENT) {
		p.nextToken()
	}
}

// synchronize skips to the next statement boundary after an error,
// counting bracket depth so a broken multi-line composite is skipped as a
// whole. Quotes need no special care: the lexer already folded every
// string into one token.
func (p *Parser) synchronize() {
	p.nest = 0
	if p.resumeHere {
		p.resumeHere = false
		return
	}
	depth := 0
	for !p.check(token.EOF) {
		switch p.token.Type {
		case token.LBRACKET, token.LBRACE, token.LPAREN:
			depth++
		case token.RBRACKET, token.RPAREN:
			if depth > 0 {
				depth--
			}
		case token.RBRACE:
			if depth == 0 && len(p.blocks) > 0 {
				// Let the statement loop close the block.
				return
			}
			if depth > 0 {
				depth--
			}
		case token.NEWLINE, token.SEMICOLON:
			if depth == 0 {
				p.nextToken()
				return
			}
		}
		p.nextToken()
	}
}
