package types

import "fmt"

type Operator string

const (
	OpEquals         Operator = "eq"
	OpNotEquals      Operator = "ne"
	OpGreaterThan    Operator = "gt"
	OpGreaterOrEqual Operator = "gte"
	OpLessThan       Operator = "lt"
	OpLessOrEqual    Operator = "lte"
)

func ParseOperator(s string) (Operator, error) {
	op := Operator(s)
	switch op {
	case OpEquals, OpNotEquals, OpGreaterThan, OpGreaterOrEqual, OpLessThan, OpLessOrEqual:
		return op, nil
	}
	return "", NewSchemaError(fmt.Sprintf("unknown operator %q", s))
}

// IsRange is true for the ordering operators.
func (op Operator) IsRange() bool {
	switch op {
	case OpGreaterThan, OpGreaterOrEqual, OpLessThan, OpLessOrEqual:
		return true
	}
	return false
}

// Holds reports whether a Compare result satisfies op.
func (op Operator) Holds(cmp int) bool {
	switch op {
	case OpEquals:
		return cmp == 0
	case OpNotEquals:
		return cmp != 0
	case OpGreaterThan:
		return cmp > 0
	case OpGreaterOrEqual:
		return cmp >= 0
	case OpLessThan:
		return cmp < 0
	case OpLessOrEqual:
		return cmp <= 0
	}
	return false
}
