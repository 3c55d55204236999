package value

import (
	"iter"
	"slices"
)

// Object is an ordered string-keyed map. Keys keep the position of their
// first insertion.
type Object struct {
	keys []string
	m    map[string]*Value
}

// NewObject creates an empty object.
func NewObject() *Object {
	return &Object{m: make(map[string]*Value)}
}

// Set stores v under key. Setting an existing key replaces its value but
// keeps its position.
func (o *Object) Set(key string, v *Value) {
	if _, ok := o.m[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.m[key] = v
}

// Get returns the value stored under key.
func (o *Object) Get(key string) (*Value, bool) {
	if o == nil {
		return nil, false
	}
	v, ok := o.m[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	return slices.Clone(o.keys)
}

// Len returns the number of keys.
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// All iterates over key/value pairs in insertion order.
func (o *Object) All() iter.Seq2[string, *Value] {
	return func(yield func(string, *Value) bool) {
		if o == nil {
			return
		}
		for _, k := range o.keys {
			if !yield(k, o.m[k]) {
				return
			}
		}
	}
}

// Equal compares two objects by key set and values.
func (o *Object) Equal(other *Object) bool {
	if o.Len() != other.Len() {
		return false
	}
	for k, v := range o.All() {
		w, ok := other.Get(k)
		if !ok || !Equal(v, w) {
			return false
		}
	}
	return true
}

// child returns the object stored under key, replacing any non-object
// value with a fresh object.
func (o *Object) child(key string) *Object {
	if v, ok := o.m[key]; ok && v != nil && v.Kind == KindObject {
		return v.Object
	}
	c := NewObject()
	o.Set(key, ObjectOf(c))
	return c
}

// Clone returns a deep copy of o. Expressions are shared; they are never
// mutated.
func (o *Object) Clone() *Object {
	out := NewObject()
	for k, v := range o.All() {
		out.Set(k, v.Clone())
	}
	return out
}

// Clone returns a deep copy of v.
func (v *Value) Clone() *Value {
	if v == nil {
		return nil
	}
	c := *v
	switch v.Kind {
	case KindArray:
		c.Items = make([]*Value, len(v.Items))
		for i, item := range v.Items {
			c.Items[i] = item.Clone()
		}
	case KindObject:
		c.Object = v.Object.Clone()
	}
	return &c
}

// Merge cascades override onto base and returns a new object. Objects
// present on both sides merge recursively; any other value from override
// replaces the base value. Neither input is modified.
func Merge(base, override *Object) *Object {
	out := NewObject()
	if base != nil {
		out = base.Clone()
	}
	for k, v := range override.All() {
		if cur, ok := out.Get(k); ok && cur != nil && v != nil &&
			cur.Kind == KindObject && v.Kind == KindObject {
			out.Set(k, ObjectOf(Merge(cur.Object, v.Object)))
			continue
		}
		out.Set(k, v.Clone())
	}
	return out
}
