// Package value holds the in-memory configuration tree that loaded
// artifacts and parsed files are projected into.
//
// A Value is one of the kinds below. Directives, references and operators
// are not evaluated here; they are kept as KindExpr and compared by their
// canonical source text.
package value

import (
	"math"
	"strconv"

	"github.com/cyber-boost/tusktsk/pkg/core"
)

// Kind identifies the variant held by a Value.
type Kind uint8

// Value kinds.
const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindArray
	KindObject
	KindRange
	KindExpr
)

var kindNames = [...]string{
	KindNull:   "null",
	KindBool:   "bool",
	KindInt:    "int",
	KindFloat:  "float",
	KindString: "string",
	KindArray:  "array",
	KindObject: "object",
	KindRange:  "range",
	KindExpr:   "expr",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Value is a node of the configuration tree.
type Value struct {
	Kind   Kind
	Bool   bool
	Int    int64
	Float  float64
	Str    string
	Items  []*Value
	Object *Object
	Min    int64
	Max    int64
	Expr   core.Expr
}

// Null returns a null value.
func Null() *Value { return &Value{Kind: KindNull} }

// Bool returns a boolean value.
func Bool(b bool) *Value { return &Value{Kind: KindBool, Bool: b} }

// Int returns an integer value.
func Int(n int64) *Value { return &Value{Kind: KindInt, Int: n} }

// Float returns a floating-point value.
func Float(f float64) *Value { return &Value{Kind: KindFloat, Float: f} }

// String returns a string value.
func String(s string) *Value { return &Value{Kind: KindString, Str: s} }

// Array returns an array value.
func Array(items ...*Value) *Value { return &Value{Kind: KindArray, Items: items} }

// ObjectOf wraps an object as a value.
func ObjectOf(o *Object) *Value { return &Value{Kind: KindObject, Object: o} }

// Range returns a range value.
func Range(lo, hi int64) *Value { return &Value{Kind: KindRange, Min: lo, Max: hi} }

// Expression wraps an unevaluated expression.
func Expression(e core.Expr) *Value { return &Value{Kind: KindExpr, Expr: e} }

// IsNull reports whether v is nil or null.
func (v *Value) IsNull() bool {
	return v == nil || v.Kind == KindNull
}

// Interface converts v to plain Go values: nil, bool, int64, float64,
// string, []any, map[string]any. Ranges become a two-element []int64 and
// expressions their source text.
func (v *Value) Interface() any {
	if v == nil {
		return nil
	}
	switch v.Kind {
	case KindBool:
		return v.Bool
	case KindInt:
		return v.Int
	case KindFloat:
		return v.Float
	case KindString:
		return v.Str
	case KindArray:
		out := make([]any, len(v.Items))
		for i, item := range v.Items {
			out[i] = item.Interface()
		}
		return out
	case KindObject:
		out := make(map[string]any, v.Object.Len())
		for k, item := range v.Object.All() {
			out[k] = item.Interface()
		}
		return out
	case KindRange:
		return []int64{v.Min, v.Max}
	case KindExpr:
		return core.FormatExpr(v.Expr)
	}
	return nil
}

// String renders scalars as plain text and composites as JSON.
func (v *Value) String() string {
	if v == nil {
		return "null"
	}
	switch v.Kind {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case KindString:
		return v.Str
	case KindRange:
		return strconv.FormatInt(v.Min, 10) + "-" + strconv.FormatInt(v.Max, 10)
	case KindExpr:
		return core.FormatExpr(v.Expr)
	}
	b, err := v.MarshalJSON()
	if err != nil {
		return "<" + v.Kind.String() + ">"
	}
	return string(b)
}

// Equal reports whether two values are semantically equal. Object key
// order is ignored; array order is not.
func Equal(a, b *Value) bool {
	if a.IsNull() || b.IsNull() {
		return a.IsNull() && b.IsNull()
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindBool:
		return a.Bool == b.Bool
	case KindInt:
		return a.Int == b.Int
	case KindFloat:
		return a.Float == b.Float || (math.IsNaN(a.Float) && math.IsNaN(b.Float))
	case KindString:
		return a.Str == b.Str
	case KindArray:
		if len(a.Items) != len(b.Items) {
			return false
		}
		for i := range a.Items {
			if !Equal(a.Items[i], b.Items[i]) {
				return false
			}
		}
		return true
	case KindObject:
		return a.Object.Equal(b.Object)
	case KindRange:
		return a.Min == b.Min && a.Max == b.Max
	case KindExpr:
		return core.FormatExpr(a.Expr) == core.FormatExpr(b.Expr)
	}
	return false
}
