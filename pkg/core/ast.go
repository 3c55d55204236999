package core

import "github.com/cyber-boost/tusktsk/pkg/token"

// Node is the base interface for all AST nodes.
type Node interface {
	// Pos returns the position of the first character of the node.
	Pos() token.Position
}

// Expr is a marker interface for value-position nodes.
type Expr interface {
	Node
	exprNode()
}

// Stmt is a marker interface for statement nodes.
type Stmt interface {
	Node
	stmtNode()
}

// ---------- Statements ----------

// Configuration is the root of a parsed file.
type Configuration struct {
	Statements []Stmt
}

// Pos implements Node.
func (c *Configuration) Pos() token.Position {
	if len(c.Statements) > 0 {
		return c.Statements[0].Pos()
	}
	return token.Position{Line: 1, Column: 1}
}

// Dialect records which bracket family opened a section.
type Dialect uint8

// Section dialects.
const (
	DialectBracket Dialect = iota // [name]
	DialectBrace                  // name { ... }
	DialectAngle                  // name > ... <
)

func (d Dialect) String() string {
	switch d {
	case DialectBrace:
		return "brace"
	case DialectAngle:
		return "angle"
	default:
		return "bracket"
	}
}

// Section is a named group of statements.
// Bracket sections run until the next bracket header; brace and angle
// sections are explicitly closed and may nest.
type Section struct {
	Name    string
	Dialect Dialect
	Body    []Stmt
	NamePos token.Position
}

func (*Section) stmtNode() {}

// Pos implements Node.
func (s *Section) Pos() token.Position { return s.NamePos }

// GlobalVariableDecl is a `$name = value` declaration.
type GlobalVariableDecl struct {
	Name    string
	Value   Expr
	NamePos token.Position
}

func (*GlobalVariableDecl) stmtNode() {}

// Pos implements Node.
func (g *GlobalVariableDecl) Pos() token.Position { return g.NamePos }

// Assignment is a `key: value` or `key = value` statement.
type Assignment struct {
	Key    string
	Value  Expr
	KeyPos token.Position
}

func (*Assignment) stmtNode() {}

// Pos implements Node.
func (a *Assignment) Pos() token.Position { return a.KeyPos }

// Include is an `@include "path"` (or `@import`) statement.
// Path is nil when the argument was missing.
type Include struct {
	Path   Expr
	Import bool
	AtPos  token.Position
}

func (*Include) stmtNode() {}

// Pos implements Node.
func (i *Include) Pos() token.Position { return i.AtPos }

// Comment is a `#` line comment kept at statement level.
type Comment struct {
	Text    string
	HashPos token.Position
}

func (*Comment) stmtNode() {}

// Pos implements Node.
func (c *Comment) Pos() token.Position { return c.HashPos }
