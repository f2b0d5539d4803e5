package query

import (
	"fmt"

	"github.com/tobsdb/mousedb/internal/builder"
	"github.com/tobsdb/mousedb/internal/types"
	"github.com/tobsdb/mousedb/pkg"
)

type AggregateOp string

const (
	AggregateAverage AggregateOp = "average"
	AggregateSum     AggregateOp = "sum"
	AggregateMin     AggregateOp = "min"
	AggregateMax     AggregateOp = "max"
	AggregateCount   AggregateOp = "count"
)

func ParseAggregateOp(s string) (AggregateOp, error) {
	op := AggregateOp(s)
	switch op {
	case AggregateAverage, AggregateSum, AggregateMin, AggregateMax, AggregateCount:
		return op, nil
	}
	return "", types.NewSchemaError(fmt.Sprintf("unknown aggregate %q", s))
}

// Aggregator folds rows one at a time. Rows missing the column, or holding a value the
// op can't use, count towards nothing.
type Aggregator struct {
	op    AggregateOp
	field *builder.Field

	sum   float64
	count int
	best  any
}

func NewAggregator(op AggregateOp, field *builder.Field) (*Aggregator, error) {
	if _, err := ParseAggregateOp(string(op)); err != nil {
		return nil, err
	}
	if (op == AggregateMin || op == AggregateMax) && field.BuiltinType == types.FieldTypeBool {
		return nil, types.NewSchemaError(fmt.Sprintf("%s is not supported on Bool column %s", op, field.Name))
	}
	return &Aggregator{op: op, field: field}, nil
}

func (a *Aggregator) Add(row types.Row) {
	value, ok := row.Lookup(a.field.Name)
	if !ok || value == nil {
		return
	}

	switch a.op {
	case AggregateAverage, AggregateSum:
		n, ok := pkg.NumToFloat(value)
		if !ok {
			return
		}
		a.sum += n
	case AggregateMin, AggregateMax:
		if a.best != nil {
			cmp, ok := types.Compare(a.field.BuiltinType, value, a.best)
			if !ok {
				return
			}
			if (a.op == AggregateMin && cmp >= 0) || (a.op == AggregateMax && cmp <= 0) {
				a.count++
				return
			}
		} else if _, ok := types.Compare(a.field.BuiltinType, value, value); !ok {
			return
		}
		a.best = value
	}
	a.count++
}

// Result fails with an AggregationError when no row qualified, except for count which
// is 0 then.
func (a *Aggregator) Result() (any, error) {
	if a.count == 0 {
		if a.op == AggregateCount {
			return 0, nil
		}
		return nil, types.NewAggregationError(
			fmt.Sprintf("no rows with a value for %s to %s", a.field.Name, a.op))
	}

	switch a.op {
	case AggregateAverage:
		return a.sum / float64(a.count), nil
	case AggregateSum:
		return a.sum, nil
	case AggregateMin, AggregateMax:
		return a.best, nil
	}
	return a.count, nil
}

// AggregateRows applies op over column of rows.
func AggregateRows(op AggregateOp, field *builder.Field, rows []types.Row) (any, error) {
	a, err := NewAggregator(op, field)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		a.Add(row)
	}
	return a.Result()
}
