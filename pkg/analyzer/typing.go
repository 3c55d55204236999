package analyzer

import (
	"strings"

	"github.com/cyber-boost/tusktsk/pkg/core"
	"github.com/cyber-boost/tusktsk/pkg/token"
)

// expr infers the type of e and records it in the result.
func (a *Analyzer) expr(e core.Expr) core.TuskType {
	if e == nil {
		return core.TypeUnknown
	}
	t := a.infer(e)
	a.res.Types[e] = t
	return t
}

func (a *Analyzer) exprs(es []core.Expr) []core.TuskType {
	types := make([]core.TuskType, len(es))
	for i, e := range es {
		types[i] = a.expr(e)
	}
	return types
}

func (a *Analyzer) infer(e core.Expr) core.TuskType {
	switch e := e.(type) {
	case *core.Literal:
		return e.Type

	case *core.TemplateString:
		a.template(e)
		return core.TypeString

	case *core.VariableRef:
		return a.reference(e)

	case *core.BinaryOp:
		return a.binary(e)

	case *core.UnaryOp:
		return a.unary(e)

	case *core.Ternary:
		return a.ternary(e)

	case *core.Range:
		if e.Min > e.Max {
			a.errorf(e.ValuePos, CodeInvalidRange, "range %d-%d has min greater than max", e.Min, e.Max)
		}
		return core.TypeRange

	case *core.Array:
		a.array(e)
		return core.TypeArray

	case *core.Object:
		a.object(e)
		return core.TypeObject

	case *core.NamedObject:
		if e.Object != nil {
			a.expr(e.Object)
		}
		return core.TypeObject

	case *core.DirectiveCall:
		return a.directive(e)

	case *core.CrossFileCall:
		return a.crossFile(e)

	case *core.PropertyAccess:
		return a.property(e)

	case *core.IndexAccess:
		return a.index(e)

	case *core.MethodCall:
		a.expr(e.Receiver)
		a.exprs(e.Args)
		return core.TypeUnknown

	case *core.Grouping:
		return a.expr(e.Inner)
	}
	return core.TypeUnknown
}

// ---------- References ----------

func (a *Analyzer) reference(e *core.VariableRef) core.TuskType {
	if e.Global {
		info, ok := a.res.Globals[e.Name]
		if !ok {
			a.errorf(e.NamePos, CodeUndefinedVariable, "undefined global variable $%s", e.Name)
			return core.TypeUnknown
		}
		info.Used = true
		return info.Type
	}

	if info, ok := a.scope.lookup(e.Name); ok {
		info.Used = true
		return info.Type
	}
	if _, _, ok := a.lookupSection(e.Name); ok {
		return core.TypeObject
	}
	a.errorf(e.NamePos, CodeUndefinedVariable, "undefined variable %q", e.Name)
	return core.TypeUnknown
}

// refPath flattens a.b.c into its parts when the chain starts at a bare
// (non-global) name.
func refPath(e core.Expr) ([]string, *core.VariableRef, bool) {
	switch e := e.(type) {
	case *core.VariableRef:
		if e.Global {
			return nil, nil, false
		}
		return []string{e.Name}, e, true
	case *core.PropertyAccess:
		parts, base, ok := refPath(e.Object)
		if !ok {
			return nil, nil, false
		}
		return append(parts, e.Property), base, true
	}
	return nil, nil, false
}

func (a *Analyzer) property(e *core.PropertyAccess) core.TuskType {
	parts, base, ok := refPath(e)
	if !ok {
		a.expr(e.Object)
		return core.TypeUnknown
	}
	if _, isVar := a.scope.lookup(base.Name); isVar {
		a.expr(e.Object)
		return core.TypeUnknown
	}

	info, path, i, found := a.resolveSectionKey(parts)
	switch {
	case found && info == nil:
		if _, _, isSection := a.lookupSection(strings.Join(parts[:i+1], ".")); isSection {
			return core.TypeObject
		}
		a.errorf(base.NamePos, CodeUndefinedVariable, "undefined key %q in section %q", parts[i], path)
		return core.TypeUnknown
	case found:
		info.Used = true
		if i == len(parts)-1 {
			return info.Type
		}
		return core.TypeUnknown
	}

	a.errorf(base.NamePos, CodeUndefinedVariable, "undefined variable %q", base.Name)
	return core.TypeUnknown
}

func (a *Analyzer) index(e *core.IndexAccess) core.TuskType {
	obj := a.expr(e.Object)
	idx := a.expr(e.Index)

	switch obj {
	case core.TypeNull, core.TypeBoolean, core.TypeInteger, core.TypeLong, core.TypeDouble:
		a.errorf(e.Index.Pos(), CodeTypeMismatch, "cannot index a value of type %s", obj)
	case core.TypeArray:
		if idx != core.TypeUnknown && idx != core.TypeInteger && idx != core.TypeLong {
			a.errorf(e.Index.Pos(), CodeTypeMismatch, "array index must be Integer, got %s", idx)
		}
	}
	return core.TypeUnknown
}

// template validates `${name}` slots. Slots name runtime values, so an
// unresolved name is not an error; a resolved one counts as used.
func (a *Analyzer) template(e *core.TemplateString) {
	for _, slot := range e.Slots {
		name := slot.Name
		global := strings.HasPrefix(name, "$")
		name = strings.TrimPrefix(name, "$")

		parts := strings.Split(name, ".")
		valid := true
		for _, p := range parts {
			if !token.IsIdentifier(p) {
				valid = false
				break
			}
		}
		if !valid {
			a.errorf(e.ValuePos, CodeInvalidIdentifier, "invalid identifier %q in template slot", slot.Name)
			continue
		}

		switch {
		case global:
			if info, ok := a.res.Globals[parts[0]]; ok {
				info.Used = true
			}
		default:
			if info, ok := a.scope.lookup(parts[0]); ok {
				info.Used = true
			} else if info, _, _, ok := a.resolveSectionKey(parts); ok && info != nil {
				info.Used = true
			}
		}
	}
}

// ---------- Operators ----------

func (a *Analyzer) binary(e *core.BinaryOp) core.TuskType {
	lt := a.expr(e.Left)
	rt := a.expr(e.Right)

	switch {
	case e.Op == core.OpAdd:
		return a.add(e, lt, rt)

	case e.Op.IsArithmetic():
		if t, ok := numericResult(lt, rt); ok {
			return t
		}
		a.errorf(e.OpPos, CodeTypeMismatch, "operator %s requires numeric operands, got %s and %s", e.Op, lt, rt)
		return core.TypeUnknown

	case e.Op == core.OpEq || e.Op == core.OpNe:
		return core.TypeBoolean

	case e.Op.IsRelational():
		comparable := lt == core.TypeUnknown || rt == core.TypeUnknown ||
			(lt.IsNumeric() && rt.IsNumeric()) ||
			(lt == core.TypeString && rt == core.TypeString)
		if !comparable {
			a.errorf(e.OpPos, CodeTypeMismatch, "cannot compare %s with %s using %s", lt, rt, e.Op)
		}
		return core.TypeBoolean

	case e.Op.IsLogical():
		a.truthy(e.Left, lt, e.Op.String())
		a.truthy(e.Right, rt, e.Op.String())
		return core.TypeBoolean
	}
	return core.TypeUnknown
}

// add types `+`: concatenation when either side is a String, otherwise
// numeric addition.
func (a *Analyzer) add(e *core.BinaryOp, lt, rt core.TuskType) core.TuskType {
	if lt == core.TypeString || rt == core.TypeString {
		if a.opts.StrictCoercion && lt != rt && lt != core.TypeUnknown && rt != core.TypeUnknown {
			a.errorf(e.OpPos, CodeTypeMismatch, "cannot concatenate %s and %s without conversion", lt, rt)
		}
		return core.TypeString
	}
	if t, ok := numericResult(lt, rt); ok {
		return t
	}
	a.errorf(e.OpPos, CodeTypeMismatch, "operator + cannot be applied to %s and %s", lt, rt)
	return core.TypeUnknown
}

// numericResult widens two numeric operand types. Unknown operands are
// accepted and make the result Unknown.
func numericResult(lt, rt core.TuskType) (core.TuskType, bool) {
	switch {
	case lt.IsNumeric() && rt.IsNumeric():
		return core.Widen(lt, rt), true
	case lt == core.TypeUnknown && (rt.IsNumeric() || rt == core.TypeUnknown),
		rt == core.TypeUnknown && lt.IsNumeric():
		return core.TypeUnknown, true
	}
	return core.TypeUnknown, false
}

// truthy flags an operand used as a condition that is known not to be a
// Boolean.
func (a *Analyzer) truthy(e core.Expr, t core.TuskType, context string) {
	if t == core.TypeBoolean || t == core.TypeUnknown {
		return
	}
	a.coercion(e.Pos(), "operand of %s may not be boolean (got %s)", context, t)
}

func (a *Analyzer) unary(e *core.UnaryOp) core.TuskType {
	t := a.expr(e.Operand)
	if e.Op == core.OpNot {
		a.truthy(e.Operand, t, "!")
		return core.TypeBoolean
	}
	switch {
	case t.IsNumeric():
		return t
	case t == core.TypeUnknown:
		return core.TypeUnknown
	}
	a.errorf(e.OpPos, CodeTypeMismatch, "cannot negate a value of type %s", t)
	return core.TypeUnknown
}

func (a *Analyzer) ternary(e *core.Ternary) core.TuskType {
	ct := a.expr(e.Cond)
	a.truthy(e.Cond, ct, "?:")

	tt := a.expr(e.Then)
	et := a.expr(e.Else)
	switch {
	case tt == et:
		return tt
	case tt.IsNumeric() && et.IsNumeric():
		return core.Widen(tt, et)
	case tt == core.TypeUnknown || et == core.TypeUnknown:
		return core.TypeUnknown
	case tt == core.TypeNull:
		return et
	case et == core.TypeNull:
		return tt
	}
	a.warnf(e.Cond.Pos(), CodeUnresolvedType, "conditional branches have different types %s and %s", tt, et)
	return core.TypeUnknown
}

// ---------- Composites ----------

// array reports at most one warning when elements mix types. Numeric
// types count as one kind; Null and Unknown elements are ignored.
func (a *Analyzer) array(e *core.Array) {
	first := core.TypeUnknown
	mixed := core.TypeUnknown
	for _, el := range e.Elements {
		t := a.expr(el)
		if t == core.TypeUnknown || t == core.TypeNull {
			continue
		}
		switch {
		case first == core.TypeUnknown:
			first = t
		case mixed == core.TypeUnknown && kindOf(t) != kindOf(first):
			mixed = t
		}
	}
	if mixed != core.TypeUnknown {
		a.warnf(e.Lbrack, CodeMixedArray, "array mixes element types %s and %s", first, mixed)
	}
}

func kindOf(t core.TuskType) core.TuskType {
	if t.IsNumeric() {
		return core.TypeDouble
	}
	return t
}

func (a *Analyzer) object(e *core.Object) {
	seen := make(map[string]bool, len(e.Fields))
	for _, f := range e.Fields {
		if seen[f.Key] {
			a.warnf(f.KeyPos, CodeDuplicateKey, "duplicate key %q in object; the last value wins", f.Key)
		}
		seen[f.Key] = true
		a.expr(f.Value)
	}
}

// ---------- Directives ----------

func (a *Analyzer) directive(e *core.DirectiveCall) core.TuskType {
	argTypes := a.exprs(e.Args)
	d, ok := LookupDirective(e.Name)
	if !ok {
		a.warnf(e.AtPos, CodeUnknownDirective, "unknown directive @%s", e.Name)
		return core.TypeUnknown
	}
	return a.call("@"+e.Name, d, e.Args, argTypes, e.AtPos, CodeDirectiveArity)
}

func (a *Analyzer) crossFile(e *core.CrossFileCall) core.TuskType {
	argTypes := a.exprs(e.Args)
	name := "@" + e.File + "." + e.Method

	m, ok := crossFileMethods[e.Method]
	if !ok {
		a.warnf(e.AtPos, CodeCrossFileMethod, "unknown cross-file method %q in %s, expected one of %s",
			e.Method, name, strings.Join(CrossFileMethods(), ", "))
		return core.TypeUnknown
	}
	if a.opts.CrossFileChecks {
		a.warnf(e.AtPos, CodeCrossFile, "reference to %q cannot be verified until runtime", e.File)
	}
	return a.call(name, m, e.Args, argTypes, e.AtPos, CodeCrossFileArity)
}

// call checks arity and argument types against a signature and returns
// the result type.
func (a *Analyzer) call(name string, d Directive, args []core.Expr, argTypes []core.TuskType, pos token.Position, arityCode string) core.TuskType {
	lo, hi := d.MinArgs(), d.MaxArgs()
	if n := len(args); n < lo || (hi >= 0 && n > hi) {
		a.errorf(pos, arityCode, "%s expects %s argument(s), got %d", name, arity(lo, hi), n)
	}

	for i, t := range argTypes {
		p, ok := d.param(i)
		if !ok {
			break
		}
		if !p.Kind.accepts(t) {
			a.errorf(args[i].Pos(), CodeDirectiveType, "%s argument %q must be %s, got %s", name, p.Name, p.Kind, t)
		}
	}

	if d.ReturnsArg > 0 {
		if d.ReturnsArg <= len(argTypes) {
			return argTypes[d.ReturnsArg-1]
		}
		return core.TypeUnknown
	}
	return d.Returns
}
