package core

// Operator identifies a unary or binary operator.
type Operator uint16

// Operators, in no particular order. Values are part of the binary
// artifact encoding and must not be renumbered.
const (
	OpInvalid Operator = iota
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
	OpNot
	OpNeg
)

var operatorSymbols = [...]string{
	OpInvalid: "?",
	OpAdd:     "+",
	OpSub:     "-",
	OpMul:     "*",
	OpDiv:     "/",
	OpMod:     "%",
	OpEq:      "==",
	OpNe:      "!=",
	OpLt:      "<",
	OpLe:      "<=",
	OpGt:      ">",
	OpGe:      ">=",
	OpAnd:     "&&",
	OpOr:      "||",
	OpNot:     "!",
	OpNeg:     "-",
}

func (o Operator) String() string {
	if int(o) < len(operatorSymbols) {
		return operatorSymbols[o]
	}
	return operatorSymbols[OpInvalid]
}

// Valid reports whether o is a known operator.
func (o Operator) Valid() bool {
	return o > OpInvalid && int(o) < len(operatorSymbols)
}

// Precedence levels for binary operators (higher binds tighter).
const (
	PrecedenceNone       = 0
	PrecedenceOr         = 1
	PrecedenceAnd        = 2
	PrecedenceEquality   = 3
	PrecedenceComparison = 4
	PrecedenceAdditive   = 5
	PrecedenceMultiply   = 6
	PrecedenceUnary      = 7
)

// Precedence returns the binding power of a binary operator.
func (o Operator) Precedence() int {
	switch o {
	case OpOr:
		return PrecedenceOr
	case OpAnd:
		return PrecedenceAnd
	case OpEq, OpNe:
		return PrecedenceEquality
	case OpLt, OpLe, OpGt, OpGe:
		return PrecedenceComparison
	case OpAdd, OpSub:
		return PrecedenceAdditive
	case OpMul, OpDiv, OpMod:
		return PrecedenceMultiply
	case OpNot, OpNeg:
		return PrecedenceUnary
	default:
		return PrecedenceNone
	}
}

// IsArithmetic reports whether o is one of - * / %.
func (o Operator) IsArithmetic() bool {
	return o == OpSub || o == OpMul || o == OpDiv || o == OpMod
}

// IsRelational reports whether o is one of < <= > >=.
func (o Operator) IsRelational() bool {
	return o >= OpLt && o <= OpGe
}

// IsLogical reports whether o is && or ||.
func (o Operator) IsLogical() bool {
	return o == OpAnd || o == OpOr
}
