package binary

import (
	"encoding/binary"
	"fmt"

	"github.com/cyber-boost/tusktsk/pkg/core"
)

// encoder flattens a configuration into pool constants and pre-order
// node records.
type encoder struct {
	pool *poolWriter
	recs []record
}

// frame tracks the last child appended under a node so sibling links can
// be patched as children arrive.
type frame struct {
	idx  int
	last int
}

// encodePayload returns the uncompressed payload for cfg.
func encodePayload(cfg *core.Configuration) ([]byte, error) {
	e := &encoder{pool: newPoolWriter()}
	root := e.add(nil, record{kind: kindConfiguration, name: noRef, value: noRef})
	if err := e.stmts(root, cfg.Statements); err != nil {
		return nil, err
	}

	b := e.pool.appendTo(nil)
	b = binary.AppendUvarint(b, uint64(len(e.recs)))
	for _, r := range e.recs {
		b = r.appendTo(b)
	}
	return b, nil
}

func (e *encoder) add(p *frame, r record) *frame {
	idx := len(e.recs)
	if p != nil {
		r.parent = uint32(idx - p.idx)
		if p.last >= 0 {
			e.recs[p.last].next = uint32(idx - p.last)
		}
		p.last = idx
		e.recs[p.idx].count++
	}
	e.recs = append(e.recs, r)
	return &frame{idx: idx, last: -1}
}

func (e *encoder) leaf(k kind) record {
	return record{kind: k, name: noRef, value: noRef}
}

func (e *encoder) named(k kind, name string) record {
	return record{kind: k, name: e.pool.str(name), value: noRef}
}

func (e *encoder) stmts(p *frame, stmts []core.Stmt) error {
	for _, s := range stmts {
		if err := e.stmt(p, s); err != nil {
			return err
		}
	}
	return nil
}

func (e *encoder) stmt(p *frame, stmt core.Stmt) error {
	switch s := stmt.(type) {
	case *core.Section:
		r := e.named(kindSection, s.Name)
		r.aux = uint16(s.Dialect)
		return e.stmts(e.add(p, r), s.Body)

	case *core.GlobalVariableDecl:
		return e.expr(e.add(p, e.named(kindGlobal, s.Name)), s.Value)

	case *core.Assignment:
		return e.expr(e.add(p, e.named(kindAssignment, s.Key)), s.Value)

	case *core.Include:
		r := e.leaf(kindInclude)
		if s.Import {
			r.flags = flagBit
		}
		return e.expr(e.add(p, r), s.Path)

	case *core.Comment:
		return nil
	}
	return fmt.Errorf("cannot encode statement %T", stmt)
}

func (e *encoder) exprs(p *frame, es []core.Expr) error {
	for _, x := range es {
		if err := e.expr(p, x); err != nil {
			return err
		}
	}
	return nil
}

func (e *encoder) expr(p *frame, expr core.Expr) error {
	switch x := expr.(type) {
	case nil:
		return fmt.Errorf("%w: incomplete expression", ErrRefused)

	case *core.Literal:
		return e.literal(p, x)

	case *core.TemplateString:
		r := e.leaf(kindTemplate)
		r.value = e.pool.str(x.Raw)
		t := e.add(p, r)
		for _, slot := range x.Slots {
			sr := e.named(kindSlot, slot.Name)
			sr.value = e.pool.int(int64(slot.Offset))
			e.add(t, sr)
		}
		return nil

	case *core.VariableRef:
		r := e.named(kindVarRef, x.Name)
		if x.Global {
			r.flags = flagBit
		}
		e.add(p, r)
		return nil

	case *core.BinaryOp:
		r := e.leaf(kindBinary)
		r.aux = uint16(x.Op)
		return e.exprs(e.add(p, r), []core.Expr{x.Left, x.Right})

	case *core.UnaryOp:
		r := e.leaf(kindUnary)
		r.aux = uint16(x.Op)
		return e.expr(e.add(p, r), x.Operand)

	case *core.Ternary:
		return e.exprs(e.add(p, e.leaf(kindTernary)), []core.Expr{x.Cond, x.Then, x.Else})

	case *core.Range:
		e.add(p, record{kind: kindRange, name: e.pool.int(x.Min), value: e.pool.int(x.Max)})
		return nil

	case *core.Array:
		return e.exprs(e.add(p, e.leaf(kindArray)), x.Elements)

	case *core.Object:
		return e.object(p, x)

	case *core.NamedObject:
		if x.Object == nil {
			return fmt.Errorf("%w: named object %q has no body", ErrRefused, x.Name)
		}
		return e.object(e.add(p, e.named(kindNamedObject, x.Name)), x.Object)

	case *core.DirectiveCall:
		return e.exprs(e.add(p, e.named(kindDirective, x.Name)), x.Args)

	case *core.CrossFileCall:
		r := e.named(kindCrossFile, x.File)
		r.value = e.pool.str(x.Method)
		return e.exprs(e.add(p, r), x.Args)

	case *core.PropertyAccess:
		return e.expr(e.add(p, e.named(kindProperty, x.Property)), x.Object)

	case *core.IndexAccess:
		return e.exprs(e.add(p, e.leaf(kindIndex)), []core.Expr{x.Object, x.Index})

	case *core.MethodCall:
		m := e.add(p, e.named(kindMethod, x.Method))
		if err := e.expr(m, x.Receiver); err != nil {
			return err
		}
		return e.exprs(m, x.Args)

	case *core.Grouping:
		return e.expr(e.add(p, e.leaf(kindGrouping)), x.Inner)
	}
	return fmt.Errorf("cannot encode expression %T", expr)
}

func (e *encoder) object(p *frame, o *core.Object) error {
	obj := e.add(p, e.leaf(kindObject))
	for _, f := range o.Fields {
		if err := e.expr(e.add(obj, e.named(kindField, f.Key)), f.Value); err != nil {
			return err
		}
	}
	return nil
}

func (e *encoder) literal(p *frame, l *core.Literal) error {
	r := e.leaf(kindLiteral)
	r.aux = uint16(l.Type)

	switch l.Type {
	case core.TypeNull:
	case core.TypeBoolean:
		b, ok := l.Value.(bool)
		if !ok {
			return fmt.Errorf("boolean literal holds %T", l.Value)
		}
		if b {
			r.flags = flagBit
		}
	case core.TypeInteger, core.TypeLong:
		i, ok := l.Value.(int64)
		if !ok {
			return fmt.Errorf("integer literal holds %T", l.Value)
		}
		r.value = e.pool.int(i)
	case core.TypeDouble:
		f, ok := l.Value.(float64)
		if !ok {
			return fmt.Errorf("double literal holds %T", l.Value)
		}
		r.value = e.pool.float(f)
	case core.TypeString:
		s, ok := l.Value.(string)
		if !ok {
			return fmt.Errorf("string literal holds %T", l.Value)
		}
		r.value = e.pool.str(s)
	default:
		return fmt.Errorf("cannot encode %s literal", l.Type)
	}

	e.add(p, r)
	return nil
}
