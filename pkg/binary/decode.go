package binary

import (
	"fmt"

	"github.com/cyber-boost/tusktsk/pkg/core"
)

// decoder rebuilds an AST from a validated pool and node table. Every
// structural link is checked; malformed input yields ErrCorrupt.
type decoder struct {
	pool pool
	recs []record
	pos  int
}

// decodePayload parses an uncompressed payload. The returned decoder
// holds the pool and node table.
func decodePayload(payload []byte) (*core.Configuration, *decoder, error) {
	p, rest, err := readPool(payload)
	if err != nil {
		return nil, nil, err
	}
	recs, err := readRecords(rest)
	if err != nil {
		return nil, nil, err
	}

	d := &decoder{pool: p, recs: recs}
	cfg, err := d.configuration()
	if err != nil {
		return nil, nil, err
	}
	if d.pos != len(d.recs) {
		return nil, nil, fmt.Errorf("%w: %d unreachable node(s)", ErrCorrupt, len(d.recs)-d.pos)
	}
	return cfg, d, nil
}

func corrupt(idx int, format string, args ...any) error {
	return fmt.Errorf("%w: node %d: %s", ErrCorrupt, idx, fmt.Sprintf(format, args...))
}

// take consumes the next record, checking that it points back at parent.
// parent is -1 for the root.
func (d *decoder) take(parent, depth int) (int, record, error) {
	if depth > maxDepth {
		return 0, record{}, fmt.Errorf("%w: nesting deeper than %d", ErrCorrupt, maxDepth)
	}
	if d.pos >= len(d.recs) {
		return 0, record{}, fmt.Errorf("%w: node table ends early", ErrCorrupt)
	}
	idx := d.pos
	r := d.recs[idx]
	want := uint32(0)
	if parent >= 0 {
		want = uint32(idx - parent)
	}
	if r.parent != want {
		return 0, record{}, corrupt(idx, "parent offset %d, want %d", r.parent, want)
	}
	d.pos++
	return idx, r, nil
}

// each decodes the r.count children of node idx, validating sibling links.
func (d *decoder) each(idx int, r record, fn func() error) error {
	for i := uint32(0); i < r.count; i++ {
		start := d.pos
		if err := fn(); err != nil {
			return err
		}
		next := d.recs[start].next
		want := uint32(d.pos - start)
		if i == r.count-1 {
			want = 0
		}
		if next != want {
			return corrupt(start, "sibling offset %d, want %d (child %d of %d)", next, want, i, idx)
		}
	}
	return nil
}

func expectCount(idx int, r record, n uint32) error {
	if r.count != n {
		return corrupt(idx, "%s has %d children, want %d", r.kind, r.count, n)
	}
	return nil
}

func (d *decoder) configuration() (*core.Configuration, error) {
	idx, r, err := d.take(-1, 0)
	if err != nil {
		return nil, err
	}
	if r.kind != kindConfiguration {
		return nil, corrupt(idx, "root is %s", r.kind)
	}
	stmts, err := d.stmts(idx, r, 1)
	if err != nil {
		return nil, err
	}
	return &core.Configuration{Statements: stmts}, nil
}

func (d *decoder) stmts(idx int, r record, depth int) ([]core.Stmt, error) {
	var out []core.Stmt
	err := d.each(idx, r, func() error {
		s, err := d.stmt(idx, depth)
		if err != nil {
			return err
		}
		out = append(out, s)
		return nil
	})
	return out, err
}

func (d *decoder) stmt(parent, depth int) (core.Stmt, error) {
	idx, r, err := d.take(parent, depth)
	if err != nil {
		return nil, err
	}

	switch r.kind {
	case kindSection:
		name, err := d.pool.str(r.name)
		if err != nil {
			return nil, err
		}
		dialect := core.Dialect(r.aux)
		if dialect > core.DialectAngle {
			return nil, corrupt(idx, "unknown section dialect %d", r.aux)
		}
		body, err := d.stmts(idx, r, depth+1)
		if err != nil {
			return nil, err
		}
		return &core.Section{Name: name, Dialect: dialect, Body: body}, nil

	case kindGlobal, kindAssignment:
		name, err := d.pool.str(r.name)
		if err != nil {
			return nil, err
		}
		v, err := d.only(idx, r, depth)
		if err != nil {
			return nil, err
		}
		if r.kind == kindGlobal {
			return &core.GlobalVariableDecl{Name: name, Value: v}, nil
		}
		return &core.Assignment{Key: name, Value: v}, nil

	case kindInclude:
		path, err := d.only(idx, r, depth)
		if err != nil {
			return nil, err
		}
		return &core.Include{Path: path, Import: r.flags&flagBit != 0}, nil
	}
	return nil, corrupt(idx, "%s is not a statement", r.kind)
}

// only decodes the single child of a node.
func (d *decoder) only(idx int, r record, depth int) (core.Expr, error) {
	if err := expectCount(idx, r, 1); err != nil {
		return nil, err
	}
	list, err := d.exprs(idx, r, depth)
	if err != nil {
		return nil, err
	}
	return list[0], nil
}

func (d *decoder) exprs(idx int, r record, depth int) ([]core.Expr, error) {
	var out []core.Expr
	err := d.each(idx, r, func() error {
		x, err := d.expr(idx, depth+1)
		if err != nil {
			return err
		}
		out = append(out, x)
		return nil
	})
	return out, err
}

func (d *decoder) fixed(idx int, r record, depth int, n uint32) ([]core.Expr, error) {
	if err := expectCount(idx, r, n); err != nil {
		return nil, err
	}
	return d.exprs(idx, r, depth)
}

func (d *decoder) expr(parent, depth int) (core.Expr, error) {
	idx, r, err := d.take(parent, depth)
	if err != nil {
		return nil, err
	}

	switch r.kind {
	case kindLiteral:
		if err := expectCount(idx, r, 0); err != nil {
			return nil, err
		}
		return d.literal(idx, r)

	case kindTemplate:
		raw, err := d.pool.str(r.value)
		if err != nil {
			return nil, err
		}
		t := &core.TemplateString{Raw: raw}
		err = d.each(idx, r, func() error {
			sidx, sr, err := d.take(idx, depth+1)
			if err != nil {
				return err
			}
			if sr.kind != kindSlot || sr.count != 0 {
				return corrupt(sidx, "template child is %s", sr.kind)
			}
			name, err := d.pool.str(sr.name)
			if err != nil {
				return err
			}
			off, err := d.pool.int(sr.value)
			if err != nil {
				return err
			}
			if off < 0 || off >= int64(len(raw)) {
				return corrupt(sidx, "slot offset %d outside template", off)
			}
			t.Slots = append(t.Slots, core.TemplateSlot{Name: name, Offset: int(off)})
			return nil
		})
		if err != nil {
			return nil, err
		}
		return t, nil

	case kindVarRef:
		if err := expectCount(idx, r, 0); err != nil {
			return nil, err
		}
		name, err := d.pool.str(r.name)
		if err != nil {
			return nil, err
		}
		return &core.VariableRef{Name: name, Global: r.flags&flagBit != 0}, nil

	case kindBinary:
		op := core.Operator(r.aux)
		if !op.Valid() || op.Precedence() == core.PrecedenceUnary {
			return nil, corrupt(idx, "invalid binary operator %d", r.aux)
		}
		xs, err := d.fixed(idx, r, depth, 2)
		if err != nil {
			return nil, err
		}
		return &core.BinaryOp{Op: op, Left: xs[0], Right: xs[1]}, nil

	case kindUnary:
		op := core.Operator(r.aux)
		if op != core.OpNot && op != core.OpNeg {
			return nil, corrupt(idx, "invalid unary operator %d", r.aux)
		}
		x, err := d.only(idx, r, depth)
		if err != nil {
			return nil, err
		}
		return &core.UnaryOp{Op: op, Operand: x}, nil

	case kindTernary:
		xs, err := d.fixed(idx, r, depth, 3)
		if err != nil {
			return nil, err
		}
		return &core.Ternary{Cond: xs[0], Then: xs[1], Else: xs[2]}, nil

	case kindRange:
		if err := expectCount(idx, r, 0); err != nil {
			return nil, err
		}
		lo, err := d.pool.int(r.name)
		if err != nil {
			return nil, err
		}
		hi, err := d.pool.int(r.value)
		if err != nil {
			return nil, err
		}
		return &core.Range{Min: lo, Max: hi}, nil

	case kindArray:
		xs, err := d.exprs(idx, r, depth)
		if err != nil {
			return nil, err
		}
		return &core.Array{Elements: xs}, nil

	case kindObject:
		return d.object(idx, r, depth)

	case kindNamedObject:
		name, err := d.pool.str(r.name)
		if err != nil {
			return nil, err
		}
		if err := expectCount(idx, r, 1); err != nil {
			return nil, err
		}
		var obj *core.Object
		err = d.each(idx, r, func() error {
			oidx, or, err := d.take(idx, depth+1)
			if err != nil {
				return err
			}
			if or.kind != kindObject {
				return corrupt(oidx, "named object body is %s", or.kind)
			}
			obj, err = d.object(oidx, or, depth+1)
			return err
		})
		if err != nil {
			return nil, err
		}
		return &core.NamedObject{Name: name, Object: obj}, nil

	case kindDirective:
		name, err := d.pool.str(r.name)
		if err != nil {
			return nil, err
		}
		args, err := d.exprs(idx, r, depth)
		if err != nil {
			return nil, err
		}
		return &core.DirectiveCall{Name: name, Args: args}, nil

	case kindCrossFile:
		file, err := d.pool.str(r.name)
		if err != nil {
			return nil, err
		}
		method, err := d.pool.str(r.value)
		if err != nil {
			return nil, err
		}
		args, err := d.exprs(idx, r, depth)
		if err != nil {
			return nil, err
		}
		return &core.CrossFileCall{File: file, Method: method, Args: args}, nil

	case kindProperty:
		name, err := d.pool.str(r.name)
		if err != nil {
			return nil, err
		}
		x, err := d.only(idx, r, depth)
		if err != nil {
			return nil, err
		}
		return &core.PropertyAccess{Object: x, Property: name}, nil

	case kindIndex:
		xs, err := d.fixed(idx, r, depth, 2)
		if err != nil {
			return nil, err
		}
		return &core.IndexAccess{Object: xs[0], Index: xs[1]}, nil

	case kindMethod:
		name, err := d.pool.str(r.name)
		if err != nil {
			return nil, err
		}
		if r.count == 0 {
			return nil, corrupt(idx, "method call without receiver")
		}
		xs, err := d.exprs(idx, r, depth)
		if err != nil {
			return nil, err
		}
		return &core.MethodCall{Receiver: xs[0], Method: name, Args: xs[1:]}, nil

	case kindGrouping:
		x, err := d.only(idx, r, depth)
		if err != nil {
			return nil, err
		}
		return &core.Grouping{Inner: x}, nil
	}
	return nil, corrupt(idx, "%s is not an expression", r.kind)
}

// object decodes an object whose record has already been taken.
func (d *decoder) object(idx int, r record, depth int) (*core.Object, error) {
	obj := &core.Object{}
	err := d.each(idx, r, func() error {
		fidx, fr, err := d.take(idx, depth+1)
		if err != nil {
			return err
		}
		if fr.kind != kindField {
			return corrupt(fidx, "object child is %s", fr.kind)
		}
		key, err := d.pool.str(fr.name)
		if err != nil {
			return err
		}
		v, err := d.only(fidx, fr, depth+1)
		if err != nil {
			return err
		}
		obj.Fields = append(obj.Fields, core.ObjectField{Key: key, Value: v})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return obj, nil
}

func (d *decoder) literal(idx int, r record) (*core.Literal, error) {
	t := core.TuskType(r.aux)
	l := &core.Literal{Type: t}

	var err error
	switch t {
	case core.TypeNull:
	case core.TypeBoolean:
		l.Value = r.flags&flagBit != 0
	case core.TypeInteger, core.TypeLong:
		l.Value, err = d.pool.int(r.value)
	case core.TypeDouble:
		l.Value, err = d.pool.float(r.value)
	case core.TypeString:
		l.Value, err = d.pool.str(r.value)
	default:
		return nil, corrupt(idx, "literal of type %s", t)
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}
