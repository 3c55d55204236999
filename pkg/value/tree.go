package value

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cyber-boost/tusktsk/pkg/core"
)

// ErrNotFound is returned when a lookup path does not exist.
var ErrNotFound = errors.New("key not found")

// Tree is a whole configuration. Globals are stored at the root under
// their `$name` key.
type Tree struct {
	Root     *Object
	Includes []string
}

// NewTree creates an empty tree.
func NewTree() *Tree {
	return &Tree{Root: NewObject()}
}

// FromAST projects a parsed configuration into a value tree. Comments and
// positions are dropped, repeated sections are merged and dotted section
// names become nested objects.
func FromAST(cfg *core.Configuration) *Tree {
	t := NewTree()
	if cfg == nil {
		return t
	}
	t.statements(t.Root, cfg.Statements)
	return t
}

func (t *Tree) statements(obj *Object, stmts []core.Stmt) {
	for _, stmt := range stmts {
		switch s := stmt.(type) {
		case *core.Section:
			target := obj
			if s.Dialect == core.DialectBracket {
				target = t.Root
			}
			for _, part := range strings.Split(s.Name, ".") {
				target = target.child(part)
			}
			t.statements(target, s.Body)
		case *core.Assignment:
			obj.Set(s.Key, FromExpr(s.Value))
		case *core.GlobalVariableDecl:
			t.Root.Set("$"+s.Name, FromExpr(s.Value))
		case *core.Include:
			t.Includes = append(t.Includes, includePath(s.Path))
		}
	}
}

func includePath(e core.Expr) string {
	if lit, ok := e.(*core.Literal); ok {
		if s, ok := lit.Value.(string); ok {
			return s
		}
	}
	return core.FormatExpr(e)
}

// FromExpr projects a single expression. Literals and composites become
// data; everything else is kept as an expression.
func FromExpr(e core.Expr) *Value {
	switch e := e.(type) {
	case nil:
		return Null()
	case *core.Literal:
		switch v := e.Value.(type) {
		case bool:
			return Bool(v)
		case int64:
			return Int(v)
		case float64:
			return Float(v)
		case string:
			return String(v)
		}
		return Null()
	case *core.UnaryOp:
		if lit, ok := e.Operand.(*core.Literal); ok && e.Op == core.OpNeg {
			switch v := lit.Value.(type) {
			case int64:
				return Int(-v)
			case float64:
				return Float(-v)
			}
		}
	case *core.Range:
		return Range(e.Min, e.Max)
	case *core.Array:
		items := make([]*Value, len(e.Elements))
		for i, el := range e.Elements {
			items[i] = FromExpr(el)
		}
		return Array(items...)
	case *core.Object:
		return ObjectOf(fromObject(e))
	case *core.NamedObject:
		o := NewObject()
		o.Set(e.Name, ObjectOf(fromObject(e.Object)))
		return ObjectOf(o)
	case *core.Grouping:
		if inner := FromExpr(e.Inner); inner.Kind != KindExpr {
			return inner
		}
	}
	return Expression(e)
}

func fromObject(e *core.Object) *Object {
	o := NewObject()
	if e == nil {
		return o
	}
	for _, f := range e.Fields {
		o.Set(f.Key, FromExpr(f.Value))
	}
	return o
}

// Get returns the value at a dotted path such as "server.port" or "$env".
// Keys that themselves contain dots are matched greedily.
func (t *Tree) Get(path string) (*Value, bool) {
	if t == nil || path == "" {
		return nil, false
	}
	return lookup(t.Root, strings.Split(path, "."))
}

func lookup(obj *Object, parts []string) (*Value, bool) {
	for j := len(parts); j > 0; j-- {
		v, ok := obj.Get(strings.Join(parts[:j], "."))
		if !ok {
			continue
		}
		if j == len(parts) {
			return v, true
		}
		if v != nil && v.Kind == KindObject {
			if found, ok := lookup(v.Object, parts[j:]); ok {
				return found, true
			}
		}
	}
	return nil, false
}

// Lookup is like Get but returns ErrNotFound for a missing path.
func (t *Tree) Lookup(path string) (*Value, error) {
	v, ok := t.Get(path)
	if !ok {
		return nil, fmt.Errorf("%q: %w", path, ErrNotFound)
	}
	return v, nil
}

// Equal reports whether two trees hold the same data and includes.
func (t *Tree) Equal(other *Tree) bool {
	if t == nil || other == nil {
		return t == other
	}
	if len(t.Includes) != len(other.Includes) {
		return false
	}
	for i := range t.Includes {
		if t.Includes[i] != other.Includes[i] {
			return false
		}
	}
	return t.Root.Equal(other.Root)
}

// MergeTrees cascades override onto base. Includes are concatenated.
func MergeTrees(base, override *Tree) *Tree {
	out := NewTree()
	if base != nil {
		out.Root = base.Root.Clone()
		out.Includes = append(out.Includes, base.Includes...)
	}
	if override != nil {
		out.Root = Merge(out.Root, override.Root)
		out.Includes = append(out.Includes, override.Includes...)
	}
	return out
}
