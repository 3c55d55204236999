package core

// TuskType is the flat type tag the analyzer infers for values.
// It is used only for compatibility checks.
type TuskType uint8

// TuskType values.
const (
	TypeUnknown TuskType = iota
	TypeNull
	TypeBoolean
	TypeInteger
	TypeLong
	TypeDouble
	TypeString
	TypeArray
	TypeObject
	TypeRange
)

var typeNames = [...]string{
	TypeUnknown: "Unknown",
	TypeNull:    "Null",
	TypeBoolean: "Boolean",
	TypeInteger: "Integer",
	TypeLong:    "Long",
	TypeDouble:  "Double",
	TypeString:  "String",
	TypeArray:   "Array",
	TypeObject:  "Object",
	TypeRange:   "Range",
}

func (t TuskType) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return typeNames[TypeUnknown]
}

// IsNumeric reports whether t is Integer, Long or Double.
func (t TuskType) IsNumeric() bool {
	return t == TypeInteger || t == TypeLong || t == TypeDouble
}

// Widen returns the wider of two numeric types (Integer < Long < Double).
// Non-numeric input yields TypeUnknown.
func Widen(a, b TuskType) TuskType {
	if !a.IsNumeric() || !b.IsNumeric() {
		return TypeUnknown
	}
	if a > b {
		return a
	}
	return b
}
