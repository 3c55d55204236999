package analyzer

import (
	"fmt"
	"slices"
	"strings"

	"github.com/cyber-boost/tusktsk/pkg/core"
)

// ParamKind constrains the type of a directive argument.
type ParamKind uint8

// Parameter kinds.
const (
	ParamAny ParamKind = iota
	ParamString
	ParamNumeric
	ParamInteger
	ParamIntegerOrString
)

func (k ParamKind) String() string {
	switch k {
	case ParamString:
		return "String"
	case ParamNumeric:
		return "number"
	case ParamInteger:
		return "Integer"
	case ParamIntegerOrString:
		return "Integer|String"
	default:
		return "any"
	}
}

// accepts reports whether a value of type t may be passed. Unknown types
// are always accepted since they are only known at runtime.
func (k ParamKind) accepts(t core.TuskType) bool {
	if t == core.TypeUnknown {
		return true
	}
	switch k {
	case ParamString:
		return t == core.TypeString
	case ParamNumeric:
		return t.IsNumeric()
	case ParamInteger:
		return t == core.TypeInteger || t == core.TypeLong
	case ParamIntegerOrString:
		return t == core.TypeInteger || t == core.TypeLong || t == core.TypeString
	default:
		return true
	}
}

// Param is one directive parameter.
type Param struct {
	Name     string
	Kind     ParamKind
	Optional bool
}

// Directive describes the shape of a well-known `@name(...)` directive.
type Directive struct {
	Name     string
	Category string
	Summary  string
	Params   []Param
	// Variadic means the last parameter may repeat.
	Variadic bool
	Returns  core.TuskType
	// ReturnsArg, when positive, makes the result type follow the type of
	// that (1-based) argument.
	ReturnsArg int
}

// MinArgs returns the number of required arguments.
func (d Directive) MinArgs() int {
	n := 0
	for _, p := range d.Params {
		if !p.Optional {
			n++
		}
	}
	return n
}

// MaxArgs returns the maximum number of arguments, or -1 when variadic.
func (d Directive) MaxArgs() int {
	if d.Variadic {
		return -1
	}
	return len(d.Params)
}

// param returns the parameter that argument i binds to.
func (d Directive) param(i int) (Param, bool) {
	if i < len(d.Params) {
		return d.Params[i], true
	}
	if d.Variadic && len(d.Params) > 0 {
		return d.Params[len(d.Params)-1], true
	}
	return Param{}, false
}

// Signature renders the directive as `@name(a: String, b?: any) -> Type`.
func (d Directive) Signature() string {
	parts := make([]string, len(d.Params))
	for i, p := range d.Params {
		opt := ""
		if p.Optional {
			opt = "?"
		}
		parts[i] = fmt.Sprintf("%s%s: %s", p.Name, opt, p.Kind)
	}
	args := strings.Join(parts, ", ")
	if d.Variadic {
		args += "..."
	}
	ret := d.Returns.String()
	if d.ReturnsArg > 0 {
		ret = "type of " + d.Params[d.ReturnsArg-1].Name
	}
	return fmt.Sprintf("@%s(%s) -> %s", d.Name, args, ret)
}

// arity describes the accepted argument count for messages.
func arity(lo, hi int) string {
	switch {
	case hi < 0:
		return fmt.Sprintf("at least %d", lo)
	case lo == hi:
		return fmt.Sprintf("%d", lo)
	default:
		return fmt.Sprintf("%d to %d", lo, hi)
	}
}

func str(name string) Param         { return Param{Name: name, Kind: ParamString} }
func optStr(name string) Param      { return Param{Name: name, Kind: ParamString, Optional: true} }
func anyParam(name string) Param    { return Param{Name: name, Kind: ParamAny} }
func optAny(name string) Param      { return Param{Name: name, Kind: ParamAny, Optional: true} }
func numeric(name string) Param     { return Param{Name: name, Kind: ParamNumeric} }
func optNumeric(name string) Param  { return Param{Name: name, Kind: ParamNumeric, Optional: true} }
func optInteger(name string) Param  { return Param{Name: name, Kind: ParamInteger, Optional: true} }
func intOrString(name string) Param { return Param{Name: name, Kind: ParamIntegerOrString} }

var directives = []Directive{
	{Name: "env", Category: "environment", Summary: "read an environment variable", Params: []Param{str("name"), optAny("default")}, Returns: core.TypeString},
	{Name: "variable", Category: "environment", Summary: "read a runtime variable", Params: []Param{str("name")}, Returns: core.TypeUnknown},

	{Name: "date", Category: "time", Summary: "format the current date", Params: []Param{optStr("format")}, Returns: core.TypeString},
	{Name: "time", Category: "time", Summary: "format the current time", Params: []Param{optStr("format")}, Returns: core.TypeString},
	{Name: "now", Category: "time", Summary: "current date and time", Params: []Param{optStr("format")}, Returns: core.TypeString},
	{Name: "timestamp", Category: "time", Summary: "unix timestamp in seconds", Returns: core.TypeLong},

	{Name: "query", Category: "data", Summary: "run a database query", Params: []Param{str("sql")}, Returns: core.TypeUnknown},
	{Name: "cache", Category: "data", Summary: "cache a value for a ttl", Params: []Param{intOrString("ttl"), anyParam("value")}, ReturnsArg: 2},
	{Name: "file", Category: "data", Summary: "read a file as text", Params: []Param{str("path")}, Returns: core.TypeString},
	{Name: "json", Category: "data", Summary: "decode a JSON document", Params: []Param{str("source")}, Returns: core.TypeUnknown},

	{Name: "uuid", Category: "encoding", Summary: "generate a random UUID", Returns: core.TypeString},
	{Name: "base64", Category: "encoding", Summary: "base64-encode a string", Params: []Param{str("value")}, Returns: core.TypeString},
	{Name: "hash", Category: "encoding", Summary: "hash a string", Params: []Param{str("value"), optStr("algorithm")}, Returns: core.TypeString},

	{Name: "request", Category: "web", Summary: "read a request field", Params: []Param{str("name"), optAny("default")}, Returns: core.TypeUnknown},
	{Name: "session", Category: "web", Summary: "read a session value", Params: []Param{str("name"), optAny("default")}, Returns: core.TypeUnknown},
	{Name: "cookie", Category: "web", Summary: "read a cookie", Params: []Param{str("name"), optAny("default")}, Returns: core.TypeUnknown},
	{Name: "header", Category: "web", Summary: "read a request header", Params: []Param{str("name"), optAny("default")}, Returns: core.TypeUnknown},
	{Name: "param", Category: "web", Summary: "read a request parameter", Params: []Param{str("name"), optAny("default")}, Returns: core.TypeUnknown},

	{Name: "min", Category: "math", Summary: "smallest of the arguments", Params: []Param{numeric("value")}, Variadic: true, Returns: core.TypeDouble},
	{Name: "max", Category: "math", Summary: "largest of the arguments", Params: []Param{numeric("value")}, Variadic: true, Returns: core.TypeDouble},
	{Name: "avg", Category: "math", Summary: "mean of the arguments", Params: []Param{numeric("value")}, Variadic: true, Returns: core.TypeDouble},
	{Name: "sum", Category: "math", Summary: "sum of the arguments", Params: []Param{numeric("value")}, Variadic: true, Returns: core.TypeDouble},
	{Name: "round", Category: "math", Summary: "round to a number of decimals", Params: []Param{numeric("value"), optInteger("decimals")}, Returns: core.TypeDouble},

	{Name: "length", Category: "string", Summary: "length of a string, array or object", Params: []Param{anyParam("value")}, Returns: core.TypeInteger},
	{Name: "upper", Category: "string", Summary: "upper-case a string", Params: []Param{str("value")}, Returns: core.TypeString},
	{Name: "lower", Category: "string", Summary: "lower-case a string", Params: []Param{str("value")}, Returns: core.TypeString},

	{Name: "if", Category: "logic", Summary: "pick a value by condition", Params: []Param{anyParam("condition"), anyParam("then"), anyParam("else")}, Returns: core.TypeUnknown},

	{Name: "learn", Category: "operational", Summary: "learned value with a fallback", Params: []Param{str("key"), optAny("default")}, Returns: core.TypeUnknown},
	{Name: "optimize", Category: "operational", Summary: "auto-tuned value with a start point", Params: []Param{str("key"), optAny("initial")}, Returns: core.TypeUnknown},
	{Name: "metrics", Category: "operational", Summary: "record or read a metric", Params: []Param{str("name"), optNumeric("value")}, Returns: core.TypeDouble},
	{Name: "feature", Category: "operational", Summary: "feature flag state", Params: []Param{str("name")}, Returns: core.TypeBoolean},
}

var directiveIndex = func() map[string]Directive {
	m := make(map[string]Directive, len(directives))
	for _, d := range directives {
		m[d.Name] = d
	}
	return m
}()

// Directives returns the well-known directives sorted by category, then name.
func Directives() []Directive {
	out := slices.Clone(directives)
	slices.SortFunc(out, func(a, b Directive) int {
		if c := strings.Compare(a.Category, b.Category); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	return out
}

// LookupDirective returns the well-known directive with the given name.
func LookupDirective(name string) (Directive, bool) {
	d, ok := directiveIndex[name]
	return d, ok
}

// crossFileMethods are the methods a `@file.method(...)` call may use.
var crossFileMethods = map[string]Directive{
	"get":    {Name: "get", Params: []Param{str("key")}, Returns: core.TypeUnknown},
	"set":    {Name: "set", Params: []Param{str("key"), anyParam("value")}, Returns: core.TypeBoolean},
	"exists": {Name: "exists", Params: []Param{str("key")}, Returns: core.TypeBoolean},
}

// CrossFileMethods returns the accepted cross-file method names.
func CrossFileMethods() []string {
	names := make([]string, 0, len(crossFileMethods))
	for name := range crossFileMethods {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
