package qcode

import (
	"fmt"
)

type ExpKind int8

const (
	ExpField ExpKind = iota
	ExpVar
	ExpLit
	ExpTag
	ExpBinary
)

type ExpOp int8

const (
	OpNop ExpOp = iota
	OpEquals
	OpNotEquals
	OpLesserThan
	OpLesserOrEquals
	OpGreaterThan
	OpGreaterOrEquals
	OpHasSubstring
	OpAnd
	OpOr
	OpIn
	OpNotIn
)

// Cardinality classifies how an operator consumes its operands. Single
// operators are plain infix comparisons, dual operators are two-argument
// combinators, many operators test membership against a list parameter.
type Cardinality int8

const (
	CardSingle Cardinality = iota
	CardDual
	CardMany
)

var opCardinality = map[ExpOp]Cardinality{
	OpEquals:          CardSingle,
	OpNotEquals:       CardSingle,
	OpLesserThan:      CardSingle,
	OpLesserOrEquals:  CardSingle,
	OpGreaterThan:     CardSingle,
	OpGreaterOrEquals: CardSingle,
	OpHasSubstring:    CardSingle,
	OpAnd:             CardDual,
	OpOr:              CardDual,
	OpIn:              CardMany,
	OpNotIn:           CardMany,
}

func (op ExpOp) Cardinality() Cardinality {
	return opCardinality[op]
}

func (op ExpOp) String() string {
	switch op {
	case OpEquals:
		return "="
	case OpNotEquals:
		return "!="
	case OpLesserThan:
		return "<"
	case OpLesserOrEquals:
		return "<="
	case OpGreaterThan:
		return ">"
	case OpGreaterOrEquals:
		return ">="
	case OpHasSubstring:
		return "has_substring"
	case OpAnd:
		return "&&"
	case OpOr:
		return "||"
	case OpIn:
		return "in"
	case OpNotIn:
		return "not_in"
	}
	return "nop"
}

// ParseOp maps the operator spellings of the query surface onto ExpOp
// values. Both the symbolic and word forms are accepted.
func ParseOp(s string) (ExpOp, error) {
	switch s {
	case "=", "eq":
		return OpEquals, nil
	case "!=", "neq":
		return OpNotEquals, nil
	case "<", "lt":
		return OpLesserThan, nil
	case "<=", "lte":
		return OpLesserOrEquals, nil
	case ">", "gt":
		return OpGreaterThan, nil
	case ">=", "gte":
		return OpGreaterOrEquals, nil
	case "has_substring":
		return OpHasSubstring, nil
	case "&&", "and":
		return OpAnd, nil
	case "||", "or":
		return OpOr, nil
	case "in", "contains":
		return OpIn, nil
	case "not_in", "not_contains":
		return OpNotIn, nil
	}
	return OpNop, fmt.Errorf("unknown filter operator: %s", s)
}

// Exp is one node of a predicate tree, a closed union over field
// references, bound variables, literals, tag references and binary
// compositions.
type Exp struct {
	Kind ExpKind

	FieldName string
	VarName   string
	Literal   string
	TagName   string

	Op    ExpOp
	Left  *Exp
	Right *Exp
}

func NewField(name string) *Exp {
	return &Exp{Kind: ExpField, FieldName: name}
}

func NewVar(name string) *Exp {
	return &Exp{Kind: ExpVar, VarName: name}
}

func NewLiteral(v string) *Exp {
	return &Exp{Kind: ExpLit, Literal: v}
}

func NewTag(name string) *Exp {
	return &Exp{Kind: ExpTag, TagName: name}
}

func NewBinary(op ExpOp, left, right *Exp) *Exp {
	return &Exp{Kind: ExpBinary, Op: op, Left: left, Right: right}
}

// NewBetween builds a range predicate. It lowers immediately into the
// conjunction of the two boundary comparisons, which every backend can
// render without a dedicated operator.
func NewBetween(field, lo, hi *Exp) *Exp {
	return NewBinary(OpAnd,
		NewBinary(OpGreaterOrEquals, field, lo),
		NewBinary(OpLesserOrEquals, field, hi),
	)
}
