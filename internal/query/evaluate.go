package query

import (
	"fmt"

	"github.com/tobsdb/mousedb/internal/builder"
	"github.com/tobsdb/mousedb/internal/types"
)

// Evaluate reports whether row satisfies p. A leaf on a column the row doesn't hold is
// false for every operator. Bool columns only answer eq and ne. A nil predicate matches
// every row.
//
// Literals are expected in their column's normalized form, as returned by Bind.
func Evaluate(table *builder.Table, p *Predicate, row types.Row) bool {
	if p == nil {
		return true
	}
	switch p.Kind {
	case PredicateAnd:
		return Evaluate(table, p.Left, row) && Evaluate(table, p.Right, row)
	case PredicateOr:
		return Evaluate(table, p.Left, row) || Evaluate(table, p.Right, row)
	}

	field := table.Fields.Get(p.Column)
	if field == nil {
		return false
	}
	value, ok := row.Lookup(p.Column)
	if !ok || value == nil {
		return false
	}
	if field.BuiltinType == types.FieldTypeBool && p.Op.IsRange() {
		return false
	}
	cmp, ok := types.Compare(field.BuiltinType, value, p.Value)
	if !ok {
		return false
	}
	return p.Op.Holds(cmp)
}

// Bind checks p against table and returns a copy whose literals are normalized to
// their column types. Unknown columns and literals that don't fit the column type are
// a SchemaError.
func Bind(table *builder.Table, p *Predicate) (*Predicate, error) {
	if p == nil {
		return nil, nil
	}
	switch p.Kind {
	case PredicateAnd, PredicateOr:
		if p.Left == nil || p.Right == nil {
			return nil, types.NewSchemaError("and/or predicates need 2 conditions")
		}
		left, err := Bind(table, p.Left)
		if err != nil {
			return nil, err
		}
		right, err := Bind(table, p.Right)
		if err != nil {
			return nil, err
		}
		return &Predicate{Kind: p.Kind, Left: left, Right: right}, nil
	case PredicateLeaf:
	default:
		return nil, types.NewSchemaError(fmt.Sprintf("unknown predicate kind %d", p.Kind))
	}

	field, err := table.Field(p.Column)
	if err != nil {
		return nil, err
	}
	if _, err := types.ParseOperator(string(p.Op)); err != nil {
		return nil, err
	}
	if field.BuiltinType == types.FieldTypeBool && p.Op.IsRange() {
		return nil, types.NewSchemaError(
			fmt.Sprintf("operator %s is not supported on Bool column %s", p.Op, p.Column))
	}
	if p.Value == nil {
		return nil, types.NewSchemaError(fmt.Sprintf("missing value for column %s", p.Column))
	}
	value, err := types.Normalize(field.BuiltinType, p.Value)
	if err != nil {
		return nil, types.NewSchemaError(fmt.Sprintf("column %s: %s", p.Column, err.Error()))
	}
	return Leaf(p.Column, p.Op, value), nil
}
