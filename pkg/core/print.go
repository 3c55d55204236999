package core

import (
	"math"
	"strconv"
	"strings"

	"github.com/cyber-boost/tusktsk/pkg/token"
)

// FormatExpr renders an expression as canonical source text. Parsing the
// result yields an equivalent expression.
func FormatExpr(e Expr) string {
	var sb strings.Builder
	writeExpr(&sb, e)
	return sb.String()
}

// FormatKey renders an assignment or object key, quoting it when it is not
// a plain identifier.
func FormatKey(key string) string {
	if token.IsIdentifier(key) {
		return key
	}
	return QuoteString(key)
}

// QuoteString renders s as a double-quoted string literal that will not be
// read back as a template.
func QuoteString(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	writeEscaped(&sb, s, nil)
	sb.WriteByte('"')
	return sb.String()
}

// FormatLiteral renders a literal value.
func FormatLiteral(l *Literal) string {
	switch v := l.Value.(type) {
	case nil:
		return "null"
	case bool:
		return strconv.FormatBool(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return formatFloat(v)
	case string:
		return QuoteString(v)
	default:
		return "null"
	}
}

func formatFloat(f float64) string {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		// Not representable as a literal; the lexer has no syntax for it.
		return "0.0"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func writeEscaped(sb *strings.Builder, s string, slots map[int]bool) {
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch ch {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		case '$':
			if i+1 < len(s) && s[i+1] == '{' && !slots[i] {
				sb.WriteString(`\$`)
			} else {
				sb.WriteByte('$')
			}
		default:
			sb.WriteByte(ch)
		}
	}
}

func writeExprs(sb *strings.Builder, es []Expr) {
	for i, e := range es {
		if i > 0 {
			sb.WriteString(", ")
		}
		writeExpr(sb, e)
	}
}

// exprPrecedence is the binding power of e when it appears as an operand.
func exprPrecedence(e Expr) int {
	switch e := e.(type) {
	case *Ternary:
		return PrecedenceNone
	case *BinaryOp:
		return e.Op.Precedence()
	case *UnaryOp:
		return PrecedenceUnary
	default:
		return PrecedenceUnary + 1
	}
}

func writeOperand(sb *strings.Builder, e Expr, minPrec int) {
	if exprPrecedence(e) < minPrec {
		sb.WriteByte('(')
		writeExpr(sb, e)
		sb.WriteByte(')')
		return
	}
	writeExpr(sb, e)
}

func writeExpr(sb *strings.Builder, e Expr) {
	switch e := e.(type) {
	case nil:
		sb.WriteString("null")
	case *Literal:
		sb.WriteString(FormatLiteral(e))
	case *TemplateString:
		slots := make(map[int]bool, len(e.Slots))
		for _, s := range e.Slots {
			slots[s.Offset] = true
		}
		sb.WriteByte('"')
		writeEscaped(sb, e.Raw, slots)
		sb.WriteByte('"')
	case *VariableRef:
		if e.Global {
			sb.WriteByte('$')
		}
		sb.WriteString(e.Name)
	case *BinaryOp:
		prec := e.Op.Precedence()
		writeOperand(sb, e.Left, prec)
		sb.WriteByte(' ')
		sb.WriteString(e.Op.String())
		sb.WriteByte(' ')
		// Operators are left-associative, so an equal-precedence right
		// operand needs parentheses.
		writeOperand(sb, e.Right, prec+1)
	case *UnaryOp:
		sb.WriteString(e.Op.String())
		writeOperand(sb, e.Operand, PrecedenceUnary)
	case *Ternary:
		writeOperand(sb, e.Cond, PrecedenceOr)
		sb.WriteString(" ? ")
		writeExpr(sb, e.Then)
		sb.WriteString(" : ")
		writeExpr(sb, e.Else)
	case *Range:
		sb.WriteString(strconv.FormatInt(e.Min, 10))
		sb.WriteByte('-')
		sb.WriteString(strconv.FormatInt(e.Max, 10))
	case *Array:
		sb.WriteByte('[')
		writeExprs(sb, e.Elements)
		sb.WriteByte(']')
	case *Object:
		writeObject(sb, e)
	case *NamedObject:
		sb.WriteString(e.Name)
		sb.WriteByte(' ')
		if e.Object == nil {
			sb.WriteString("{}")
		} else {
			writeObject(sb, e.Object)
		}
	case *DirectiveCall:
		sb.WriteByte('@')
		sb.WriteString(e.Name)
		sb.WriteByte('(')
		writeExprs(sb, e.Args)
		sb.WriteByte(')')
	case *CrossFileCall:
		sb.WriteByte('@')
		sb.WriteString(e.File)
		sb.WriteByte('.')
		sb.WriteString(e.Method)
		sb.WriteByte('(')
		writeExprs(sb, e.Args)
		sb.WriteByte(')')
	case *PropertyAccess:
		writeOperand(sb, e.Object, PrecedenceUnary+1)
		sb.WriteByte('.')
		sb.WriteString(e.Property)
	case *IndexAccess:
		writeOperand(sb, e.Object, PrecedenceUnary+1)
		sb.WriteByte('[')
		writeExpr(sb, e.Index)
		sb.WriteByte(']')
	case *MethodCall:
		writeOperand(sb, e.Receiver, PrecedenceUnary+1)
		sb.WriteByte('.')
		sb.WriteString(e.Method)
		sb.WriteByte('(')
		writeExprs(sb, e.Args)
		sb.WriteByte(')')
	case *Grouping:
		sb.WriteByte('(')
		writeExpr(sb, e.Inner)
		sb.WriteByte(')')
	}
}

func writeObject(sb *strings.Builder, o *Object) {
	if len(o.Fields) == 0 {
		sb.WriteString("{}")
		return
	}
	sb.WriteByte('{')
	for i, f := range o.Fields {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(FormatKey(f.Key))
		sb.WriteString(": ")
		writeExpr(sb, f.Value)
	}
	sb.WriteByte('}')
}
