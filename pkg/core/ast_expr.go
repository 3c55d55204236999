package core

import "github.com/cyber-boost/tusktsk/pkg/token"

// ---------- Expression Types ----------

// Literal is a null, boolean, numeric or plain string value.
// Value holds nil, bool, int64, float64 or string according to Type.
type Literal struct {
	Type     TuskType
	Value    any
	ValuePos token.Position
}

func (*Literal) exprNode() {}

// Pos implements Node.
func (l *Literal) Pos() token.Position { return l.ValuePos }

// TemplateSlot is one `${name}` interpolation inside a template string.
type TemplateSlot struct {
	Name   string
	Offset int // byte offset of `$` within Raw
}

// TemplateString is a string with `${identifier}` slots. Slots are
// validated but never substituted.
type TemplateString struct {
	Raw      string
	Slots    []TemplateSlot
	ValuePos token.Position
}

func (*TemplateString) exprNode() {}

// Pos implements Node.
func (t *TemplateString) Pos() token.Position { return t.ValuePos }

// VariableRef references a variable by name. Global refs (`$name`)
// resolve against the global table only.
type VariableRef struct {
	Name    string
	Global  bool
	NamePos token.Position
}

func (*VariableRef) exprNode() {}

// Pos implements Node.
func (v *VariableRef) Pos() token.Position { return v.NamePos }

// BinaryOp is `Left Op Right`.
type BinaryOp struct {
	Op    Operator
	Left  Expr
	Right Expr
	OpPos token.Position
}

func (*BinaryOp) exprNode() {}

// Pos implements Node.
func (b *BinaryOp) Pos() token.Position {
	if b.Left != nil {
		return b.Left.Pos()
	}
	return b.OpPos
}

// UnaryOp is `!x` or `-x`.
type UnaryOp struct {
	Op      Operator
	Operand Expr
	OpPos   token.Position
}

func (*UnaryOp) exprNode() {}

// Pos implements Node.
func (u *UnaryOp) Pos() token.Position { return u.OpPos }

// Ternary is `Cond ? Then : Else`.
type Ternary struct {
	Cond Expr
	Then Expr
	Else Expr
}

func (*Ternary) exprNode() {}

// Pos implements Node.
func (t *Ternary) Pos() token.Position {
	if t.Cond != nil {
		return t.Cond.Pos()
	}
	return token.Position{}
}

// Range is an integer pair written `min-max`.
type Range struct {
	Min      int64
	Max      int64
	ValuePos token.Position
}

func (*Range) exprNode() {}

// Pos implements Node.
func (r *Range) Pos() token.Position { return r.ValuePos }

// Array is `[a, b, ...]`.
type Array struct {
	Elements []Expr
	Lbrack   token.Position
}

func (*Array) exprNode() {}

// Pos implements Node.
func (a *Array) Pos() token.Position { return a.Lbrack }

// ObjectField is one key/value pair of an Object.
type ObjectField struct {
	Key    string
	Value  Expr
	KeyPos token.Position
}

// Object is `{key: value, ...}`. Fields keep source order; duplicates
// are kept here and resolved last-write-wins by consumers.
type Object struct {
	Fields []ObjectField
	Lbrace token.Position
}

func (*Object) exprNode() {}

// Pos implements Node.
func (o *Object) Pos() token.Position { return o.Lbrace }

// NamedObject is an identifier-tagged object: `point {x: 1, y: 2}`.
type NamedObject struct {
	Name    string
	Object  *Object
	NamePos token.Position
}

func (*NamedObject) exprNode() {}

// Pos implements Node.
func (n *NamedObject) Pos() token.Position { return n.NamePos }

// DirectiveCall is `@name(args...)`. The core validates its shape only.
type DirectiveCall struct {
	Name  string
	Args  []Expr
	AtPos token.Position
}

func (*DirectiveCall) exprNode() {}

// Pos implements Node.
func (d *DirectiveCall) Pos() token.Position { return d.AtPos }

// CrossFileCall is `@file.ext.method(args...)`.
type CrossFileCall struct {
	File   string
	Method string
	Args   []Expr
	AtPos  token.Position
}

func (*CrossFileCall) exprNode() {}

// Pos implements Node.
func (c *CrossFileCall) Pos() token.Position { return c.AtPos }

// PropertyAccess is `Object.Property`.
type PropertyAccess struct {
	Object   Expr
	Property string
}

func (*PropertyAccess) exprNode() {}

// Pos implements Node.
func (p *PropertyAccess) Pos() token.Position { return posOf(p.Object) }

// IndexAccess is `Object[Index]`.
type IndexAccess struct {
	Object Expr
	Index  Expr
}

func (*IndexAccess) exprNode() {}

// Pos implements Node.
func (i *IndexAccess) Pos() token.Position { return posOf(i.Object) }

// MethodCall is `Receiver.Method(args...)`.
type MethodCall struct {
	Receiver Expr
	Method   string
	Args     []Expr
}

func (*MethodCall) exprNode() {}

// Pos implements Node.
func (m *MethodCall) Pos() token.Position { return posOf(m.Receiver) }

// Grouping is a parenthesized expression.
type Grouping struct {
	Inner  Expr
	Lparen token.Position
}

func (*Grouping) exprNode() {}

// Pos implements Node.
func (g *Grouping) Pos() token.Position { return g.Lparen }

func posOf(e Expr) token.Position {
	if e == nil {
		return token.Position{}
	}
	return e.Pos()
}
