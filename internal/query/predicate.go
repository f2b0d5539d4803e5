package query

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tobsdb/mousedb/internal/types"
)

type PredicateKind int

const (
	PredicateLeaf PredicateKind = iota
	PredicateAnd
	PredicateOr
)

// Predicate is a condition tree. Leaves compare one column against a literal; And and
// Or nodes combine exactly two children.
type Predicate struct {
	Kind PredicateKind

	Column string
	Op     types.Operator
	Value  any

	Left, Right *Predicate
}

func Leaf(column string, op types.Operator, value any) *Predicate {
	return &Predicate{Kind: PredicateLeaf, Column: column, Op: op, Value: value}
}

func Equals(column string, value any) *Predicate {
	return Leaf(column, types.OpEquals, value)
}

func NotEquals(column string, value any) *Predicate {
	return Leaf(column, types.OpNotEquals, value)
}

func GreaterThan(column string, value any) *Predicate {
	return Leaf(column, types.OpGreaterThan, value)
}

func GreaterOrEqual(column string, value any) *Predicate {
	return Leaf(column, types.OpGreaterOrEqual, value)
}

func LessThan(column string, value any) *Predicate {
	return Leaf(column, types.OpLessThan, value)
}

func LessOrEqual(column string, value any) *Predicate {
	return Leaf(column, types.OpLessOrEqual, value)
}

func And(left, right *Predicate) *Predicate {
	return &Predicate{Kind: PredicateAnd, Left: left, Right: right}
}

func Or(left, right *Predicate) *Predicate {
	return &Predicate{Kind: PredicateOr, Left: left, Right: right}
}

func (p *Predicate) String() string {
	if p == nil {
		return "true"
	}
	switch p.Kind {
	case PredicateAnd:
		return fmt.Sprintf("(%s and %s)", p.Left, p.Right)
	case PredicateOr:
		return fmt.Sprintf("(%s or %s)", p.Left, p.Right)
	}
	return fmt.Sprintf("%s %s %v", p.Column, p.Op, p.Value)
}

type jsonPredicate struct {
	Column string            `json:"column,omitempty"`
	Op     string            `json:"op,omitempty"`
	Value  any               `json:"value,omitempty"`
	And    []json.RawMessage `json:"and,omitempty"`
	Or     []json.RawMessage `json:"or,omitempty"`
}

// UnmarshalJSON reads {"column","op","value"} leaves and {"and": [...]} / {"or": [...]}
// nodes. Lists longer than two are folded from the left.
func (p *Predicate) UnmarshalJSON(data []byte) error {
	var raw jsonPredicate
	if err := json.Unmarshal(data, &raw); err != nil {
		return types.NewSchemaError(fmt.Sprintf("invalid predicate: %s", err.Error()))
	}

	switch {
	case raw.And != nil && raw.Or != nil:
		return types.NewSchemaError("predicate cannot have both and & or")
	case raw.And != nil:
		return p.unmarshalChildren(PredicateAnd, raw.And)
	case raw.Or != nil:
		return p.unmarshalChildren(PredicateOr, raw.Or)
	}

	if raw.Column == "" {
		return types.NewSchemaError("predicate is missing a column")
	}
	op := types.OpEquals
	if raw.Op != "" {
		var err error
		if op, err = types.ParseOperator(raw.Op); err != nil {
			return err
		}
	}
	*p = *Leaf(raw.Column, op, raw.Value)
	return nil
}

func (p *Predicate) unmarshalChildren(kind PredicateKind, items []json.RawMessage) error {
	if len(items) < 2 {
		return types.NewSchemaError("and/or predicates need at least 2 conditions")
	}
	children := make([]*Predicate, len(items))
	for i, item := range items {
		children[i] = &Predicate{}
		if err := json.Unmarshal(item, children[i]); err != nil {
			var schema_err *types.SchemaError
			if errors.As(err, &schema_err) {
				return err
			}
			return types.NewSchemaError(fmt.Sprintf("invalid predicate: %s", err.Error()))
		}
	}

	node := children[0]
	for _, child := range children[1:] {
		node = &Predicate{Kind: kind, Left: node, Right: child}
	}
	*p = *node
	return nil
}

func (p *Predicate) MarshalJSON() ([]byte, error) {
	switch p.Kind {
	case PredicateAnd:
		return json.Marshal(map[string][]*Predicate{"and": {p.Left, p.Right}})
	case PredicateOr:
		return json.Marshal(map[string][]*Predicate{"or": {p.Left, p.Right}})
	}
	return json.Marshal(map[string]any{"column": p.Column, "op": p.Op, "value": p.Value})
}
