package parser

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cyber-boost/tusktsk/pkg/core"
	"github.com/cyber-boost/tusktsk/pkg/token"
)

// Value parsing by precedence climbing.
//
// Precedence levels (from core):
//
//	ternary              ?:      (right associative, lowest)
//	PrecedenceOr         = 1     ||
//	PrecedenceAnd        = 2     &&
//	PrecedenceEquality   = 3     == !=
//	PrecedenceComparison = 4     < <= > >=
//	PrecedenceAdditive   = 5     + -
//	PrecedenceMultiply   = 6     * / %
//	PrecedenceUnary      = 7     ! -
//	postfix                      .name  [index]  .name(args)
//
// Whether `+` concatenates or adds is decided by the analyzer; the parser
// only builds the node.

var binaryOperators = map[token.TokenType]core.Operator{
	token.OR:      core.OpOr,
	token.AND:     core.OpAnd,
	token.EQ:      core.OpEq,
	token.NE:      core.OpNe,
	token.LT:      core.OpLt,
	token.LE:      core.OpLe,
	token.GT:      core.OpGt,
	token.GE:      core.OpGe,
	token.PLUS:    core.OpAdd,
	token.MINUS:   core.OpSub,
	token.STAR:    core.OpMul,
	token.SLASH:   core.OpDiv,
	token.PERCENT: core.OpMod,
}

// parseExpression parses a full value, including the ternary operator.
func (p *Parser) parseExpression() core.Expr {
	cond := p.parseExpressionWithPrecedence(core.PrecedenceOr)
	if cond == nil {
		return nil
	}
	if !p.check(token.QUESTION) {
		return cond
	}
	p.nextToken()

	then := p.parseExpression()
	if then == nil {
		return nil
	}
	if !p.expect(token.COLON, "':' in conditional expression") {
		return nil
	}
	els := p.parseExpression()
	if els == nil {
		return nil
	}
	return &core.Ternary{Cond: cond, Then: then, Else: els}
}

// parseExpressionWithPrecedence parses binary operators whose precedence
// is at least minPrecedence. All binary operators are left associative.
func (p *Parser) parseExpressionWithPrecedence(minPrecedence int) core.Expr {
	left := p.parseUnary()
	if left == nil {
		return nil
	}

	for {
		op, ok := binaryOperators[p.token.Type]
		if !ok || op.Precedence() < minPrecedence {
			return left
		}
		opPos := p.token.Pos
		p.nextToken()

		right := p.parseExpressionWithPrecedence(op.Precedence() + 1)
		if right == nil {
			return nil
		}
		left = &core.BinaryOp{Op: op, Left: left, Right: right, OpPos: opPos}
	}
}

// parseUnary parses prefix `!` and `-`.
func (p *Parser) parseUnary() core.Expr {
	var op core.Operator
	switch p.token.Type {
	case token.NOT:
		op = core.OpNot
	case token.MINUS:
		op = core.OpNeg
	default:
		return p.parsePostfix(p.parsePrimary())
	}

	pos := p.token.Pos
	p.nextToken()
	operand := p.parseUnary()
	if operand == nil {
		return nil
	}
	return &core.UnaryOp{Op: op, Operand: operand, OpPos: pos}
}

// parsePostfix parses property access, indexing and method calls.
func (p *Parser) parsePostfix(expr core.Expr) core.Expr {
	for expr != nil {
		switch p.token.Type {
		case token.DOT:
			p.nextToken()
			if !p.check(token.IDENT) {
				p.addError(fmt.Sprintf(ErrExpectedPropertyKey, describe(p.token)))
				return nil
			}
			name := p.token.Literal
			p.nextToken()
			if p.check(token.LPAREN) {
				args, ok := p.parseArgs()
				if !ok {
					return nil
				}
				expr = &core.MethodCall{Receiver: expr, Method: name, Args: args}
			} else {
				expr = &core.PropertyAccess{Object: expr, Property: name}
			}

		case token.LBRACKET:
			// A bracket on the next line inside a composite starts a new
			// element, not an index.
			if p.newlineBefore {
				return expr
			}
			p.open()
			index := p.parseExpression()
			if index == nil {
				return nil
			}
			if !p.closeWith(token.RBRACKET) {
				p.addError(fmt.Sprintf(ErrUnexpectedToken, describe(p.token), "']'"))
				return nil
			}
			expr = &core.IndexAccess{Object: expr, Index: index}

		default:
			return expr
		}
	}
	return nil
}

// parsePrimary parses literals, references, directives and composites.
func (p *Parser) parsePrimary() core.Expr {
	tok := p.token

	switch tok.Type {
	case token.INT:
		if p.isRange() {
			return p.parseRange()
		}
		p.nextToken()
		return p.intLiteral(tok)

	case token.FLOAT:
		p.nextToken()
		f, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil || math.IsInf(f, 0) {
			p.addErrorAt(tok.Pos, fmt.Sprintf(ErrInvalidNumber, tok.Literal))
			return nil
		}
		return &core.Literal{Type: core.TypeDouble, Value: f, ValuePos: tok.Pos}

	case token.STRING:
		p.nextToken()
		return &core.Literal{Type: core.TypeString, Value: tok.Literal, ValuePos: tok.Pos}

	case token.TEMPLATE:
		p.nextToken()
		raw, slots, ok := decodeTemplate(tok.Literal)
		if !ok {
			p.addErrorAt(tok.Pos, ErrUnterminatedSlot)
			return nil
		}
		return &core.TemplateString{Raw: raw, Slots: slots, ValuePos: tok.Pos}

	case token.TRUE, token.FALSE:
		p.nextToken()
		return &core.Literal{Type: core.TypeBoolean, Value: tok.Type == token.TRUE, ValuePos: tok.Pos}

	case token.NULL:
		p.nextToken()
		return &core.Literal{Type: core.TypeNull, ValuePos: tok.Pos}

	case token.IDENT:
		p.nextToken()
		if p.check(token.LBRACE) {
			obj := p.parseObject()
			if obj == nil {
				return nil
			}
			return &core.NamedObject{Name: tok.Literal, Object: obj, NamePos: tok.Pos}
		}
		return &core.VariableRef{Name: tok.Literal, NamePos: tok.Pos}

	case token.GLOBAL_IDENT:
		p.nextToken()
		return &core.VariableRef{Name: tok.Literal, Global: true, NamePos: tok.Pos}

	case token.DIRECTIVE:
		return p.parseDirective()

	case token.LBRACKET:
		return p.parseArray()

	case token.LBRACE:
		if obj := p.parseObject(); obj != nil {
			return obj
		}
		return nil

	case token.LPAREN:
		p.open()
		inner := p.parseExpression()
		if inner == nil {
			return nil
		}
		if !p.closeWith(token.RPAREN) {
			p.addError(fmt.Sprintf(ErrUnexpectedToken, describe(p.token), "')'"))
			return nil
		}
		return &core.Grouping{Inner: inner, Lparen: tok.Pos}

	case token.ILLEGAL:
		p.addError(illegalMessage(tok))
		return nil
	}

	p.addError(fmt.Sprintf(ErrExpectedValue, describe(tok)))
	return nil
}

// intLiteral types an integer literal: Integer when it fits 32 bits, Long
// when it fits 64 bits, otherwise it falls back to Double.
func (p *Parser) intLiteral(tok token.Token) core.Expr {
	n, err := strconv.ParseInt(tok.Literal, 10, 64)
	if err == nil {
		typ := core.TypeLong
		if n >= math.MinInt32 && n <= math.MaxInt32 {
			typ = core.TypeInteger
		}
		return &core.Literal{Type: typ, Value: n, ValuePos: tok.Pos}
	}
	f, ferr := strconv.ParseFloat(tok.Literal, 64)
	if ferr != nil || math.IsInf(f, 0) {
		p.addErrorAt(tok.Pos, fmt.Sprintf(ErrInvalidNumber, tok.Literal))
		return nil
	}
	return &core.Literal{Type: core.TypeDouble, Value: f, ValuePos: tok.Pos}
}

// isRange reports whether the current INT starts a `min-max` range: the
// INT, '-' and INT tokens must touch each other.
func (p *Parser) isRange() bool {
	return p.check(token.INT) &&
		p.checkPeek(token.MINUS) &&
		p.checkPeek2(token.INT) &&
		p.token.Touches(p.peek) &&
		p.peek.Touches(p.peek2)
}

// parseRange parses `min-max`.
func (p *Parser) parseRange() core.Expr {
	minTok := p.token
	p.nextToken() // min
	p.nextToken() // '-'
	maxTok := p.token
	p.nextToken() // max

	lo, err := strconv.ParseInt(minTok.Literal, 10, 64)
	if err != nil {
		p.addErrorAt(minTok.Pos, fmt.Sprintf(ErrInvalidNumber, minTok.Literal))
		return nil
	}
	hi, err := strconv.ParseInt(maxTok.Literal, 10, 64)
	if err != nil {
		p.addErrorAt(maxTok.Pos, fmt.Sprintf(ErrInvalidNumber, maxTok.Literal))
		return nil
	}
	return &core.Range{Min: lo, Max: hi, ValuePos: minTok.Pos}
}

// parseDirective parses `@name`, `@name(args)` and `@file.ext.method(args)`.
// Dotted parts belong to the directive only when they touch it. A single
// dotted part is a namespaced directive such as `@request.method`; a
// cross-file call needs the file extension too.
func (p *Parser) parseDirective() core.Expr {
	at := p.token
	p.nextToken()

	var parts []string
	last := at
	for p.check(token.DOT) && p.checkPeek(token.IDENT) && last.Touches(p.token) && p.token.Touches(p.peek) {
		p.nextToken()
		parts = append(parts, p.token.Literal)
		last = p.token
		p.nextToken()
	}

	var args []core.Expr
	if p.check(token.LPAREN) {
		var ok bool
		if args, ok = p.parseArgs(); !ok {
			return nil
		}
	}

	if len(parts) < 2 {
		name := strings.Join(append([]string{at.Literal}, parts...), ".")
		return &core.DirectiveCall{Name: name, Args: args, AtPos: at.Pos}
	}
	file := strings.Join(append([]string{at.Literal}, parts[:len(parts)-1]...), ".")
	return &core.CrossFileCall{
		File:   file,
		Method: parts[len(parts)-1],
		Args:   args,
		AtPos:  at.Pos,
	}
}

// decodeTemplate resolves escapes in a template's raw text and records
// where each `${name}` slot starts in the decoded text.
func decodeTemplate(raw string) (string, []core.TemplateSlot, bool) {
	var sb strings.Builder
	var slots []core.TemplateSlot
	for i := 0; i < len(raw); i++ {
		ch := raw[i]
		switch {
		case ch == '\\' && i+1 < len(raw):
			i++
			sb.WriteByte(unescape(raw[i]))
		case ch == '$' && i+1 < len(raw) && raw[i+1] == '{':
			end := strings.IndexByte(raw[i+2:], '}')
			if end < 0 {
				return "", nil, false
			}
			slot := raw[i : i+2+end+1]
			slots = append(slots, core.TemplateSlot{
				Name:   strings.TrimSpace(slot[2 : len(slot)-1]),
				Offset: sb.Len(),
			})
			sb.WriteString(slot)
			i += len(slot) - 1
		default:
			sb.WriteByte(ch)
		}
	}
	return sb.String(), slots, true
}
