package query

import (
	"strconv"
)

// Node is either a *Condition or a *Binary.
type Node interface {
	isNode()
}

// Op is a comparison operator
type Op string

const (
	OpEq  Op = "=="
	OpNe  Op = "!="
	OpLt  Op = "<"
	OpLte Op = "<="
	OpGt  Op = ">"
	OpGte Op = ">="
	OpOf  Op = "OF"
)

// Ordering reports whether op only makes sense on numeric fields.
func (op Op) Ordering() bool {
	switch op {
	case OpLt, OpLte, OpGt, OpGte:
		return true
	}
	return false
}

func opFromToken(k TokenKind) Op {
	switch k {
	case TokEq:
		return OpEq
	case TokNe:
		return OpNe
	case TokLt:
		return OpLt
	case TokLte:
		return OpLte
	case TokGt:
		return OpGt
	case TokGte:
		return OpGte
	case TokOf:
		return OpOf
	}
	return ""
}

// Connector joins the two sides of a Binary node
type Connector string

const (
	ConnAnd Connector = "AND"
	ConnOr  Connector = "OR"
)

// ValueKind is the type carried by a Value
type ValueKind int

const (
	ValueString ValueKind = iota
	ValueInt
	ValueFloat
)

func (k ValueKind) String() string {
	switch k {
	case ValueString:
		return "string"
	case ValueInt:
		return "int"
	case ValueFloat:
		return "float"
	default:
		return "?"
	}
}

// Value is a typed condition operand. Raw keeps the source lexeme so that
// digit strings such as postal codes survive with their leading zeros.
type Value struct {
	Kind   ValueKind
	Str    string
	Int    int64
	Float  float64
	Raw    string
	Quoted bool
}

func StringValue(s string) Value {
	return Value{Kind: ValueString, Str: s, Raw: s}
}

func IntValue(i int64) Value {
	return Value{Kind: ValueInt, Int: i, Raw: strconv.FormatInt(i, 10)}
}

func FloatValue(f float64) Value {
	return Value{Kind: ValueFloat, Float: f, Raw: strconv.FormatFloat(f, 'f', -1, 64)}
}

// Any returns the Go value handed to the store.
func (v Value) Any() any {
	switch v.Kind {
	case ValueInt:
		return v.Int
	case ValueFloat:
		return v.Float
	default:
		return v.Str
	}
}

func (v Value) String() string {
	switch v.Kind {
	case ValueInt:
		return strconv.FormatInt(v.Int, 10)
	case ValueFloat:
		return strconv.FormatFloat(v.Float, 'f', -1, 64)
	default:
		return strconv.Quote(v.Str)
	}
}

// Numeric reports whether the value is an int or a float.
func (v Value) Numeric() bool {
	return v.Kind == ValueInt || v.Kind == ValueFloat
}

// Condition is a single field-operator-value triple
type Condition struct {
	Field string
	Op    Op
	Value Value
	Pos   int
}

func (*Condition) isNode() {}

// Binary joins two conditions with AND or OR
type Binary struct {
	Left      Node
	Connector Connector
	Right     Node
}

func (*Binary) isNode() {}

// Direction is an ORDER BY direction
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// OrderBy is the optional ORDER BY clause
type OrderBy struct {
	Field     string
	Direction Direction
}

// Query is a parsed query: a condition tree plus its modifiers.
type Query struct {
	Root    Node
	OrderBy *OrderBy
	Limit   *int
}

// Conditions returns the leaf conditions from left to right.
func (q *Query) Conditions() []*Condition {
	var out []*Condition
	collectConditions(q.Root, &out)
	return out
}

func collectConditions(n Node, out *[]*Condition) {
	switch n := n.(type) {
	case *Condition:
		*out = append(*out, n)
	case *Binary:
		collectConditions(n.Left, out)
		collectConditions(n.Right, out)
	}
}
