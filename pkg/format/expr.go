package format

import "github.com/cyber-boost/tusktsk/pkg/core"

// value prints e inline when it fits before maxWidth and breaks arrays
// and objects one element per line otherwise.
func (p *Printer) value(e core.Expr) {
	inline := core.FormatExpr(e)
	if p.column()+len(inline) <= maxWidth || !breakable(e) {
		p.write(inline)
		return
	}

	switch e := e.(type) {
	case *core.Array:
		p.write("[")
		p.writeln()
		p.indent()
		p.formatList(len(e.Elements), func(i int) {
			p.value(e.Elements[i])
		}, ",", true)
		p.dedent()
		p.writeln()
		p.write("]")

	case *core.Object:
		p.object(e)

	case *core.NamedObject:
		p.write(e.Name)
		p.space()
		p.object(e.Object)
	}
}

func (p *Printer) object(o *core.Object) {
	p.write("{")
	p.writeln()
	p.indent()
	p.formatList(len(o.Fields), func(i int) {
		p.write(core.FormatKey(o.Fields[i].Key))
		p.write(": ")
		p.value(o.Fields[i].Value)
	}, ",", true)
	p.dedent()
	p.writeln()
	p.write("}")
}

// breakable reports whether e can be printed over several lines.
func breakable(e core.Expr) bool {
	switch e := e.(type) {
	case *core.Array:
		return len(e.Elements) > 0
	case *core.Object:
		return len(e.Fields) > 0
	case *core.NamedObject:
		return e.Object != nil && len(e.Object.Fields) > 0
	}
	return false
}
