package query

import (
	"context"
	"fmt"
	"iter"

	"github.com/tobsdb/mousedb/internal/builder"
	"github.com/tobsdb/mousedb/internal/types"
	"github.com/tobsdb/mousedb/pkg"
)

// Result holds the rows a select returned alongside one *types.CorruptionError for
// every stored row that had to be skipped.
type Result struct {
	Rows   []types.Row
	Errors []error
}

func insert(tdb *builder.TobsDB, table *builder.Table, data types.Row) (types.Row, any, error) {
	table.GetLocker().Lock()
	defer table.GetLocker().Unlock()

	row, pk, err := table.PrepareRow(data)
	if err != nil {
		return nil, nil, err
	}
	exists, err := tdb.HasRow(table, pk)
	if err != nil {
		return nil, nil, err
	}
	if exists {
		return nil, nil, types.NewConflictError("Primary key already exists")
	}
	if err := tdb.PutRow(table, pk, row); err != nil {
		return nil, nil, err
	}
	tdb.Indexes.OnInsert(table, row)
	return row, pk, nil
}

// Insert stores data as a new row of table_name and returns its primary key.
func Insert(ctx context.Context, tdb *builder.TobsDB, table_name string, data types.Row) (any, error) {
	_, pk, err := Create(ctx, tdb, table_name, data)
	return pk, err
}

// Create is Insert returning the stored row too.
func Create(ctx context.Context, tdb *builder.TobsDB, table_name string, data types.Row) (types.Row, any, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	table, err := tdb.Schema.Table(table_name)
	if err != nil {
		return nil, nil, err
	}
	return insert(tdb, table, data)
}

// CreateMany inserts rows in order and stops at the first failure. Rows inserted
// before it stay.
func CreateMany(ctx context.Context, tdb *builder.TobsDB, table_name string, data []types.Row) ([]types.Row, error) {
	table, err := tdb.Schema.Table(table_name)
	if err != nil {
		return nil, err
	}
	created := make([]types.Row, 0, len(data))
	for i, d := range data {
		if err := ctx.Err(); err != nil {
			return created, err
		}
		row, _, err := insert(tdb, table, d)
		if err != nil {
			return created, fmt.Errorf("row %d: %w", i, err)
		}
		created = append(created, row)
	}
	return created, nil
}

// scan fetches every candidate of plan and yields the rows satisfying its predicate.
// ctx is checked after every fetch.
func scan(ctx context.Context, tdb *builder.TobsDB, plan *Plan) iter.Seq2[types.Row, error] {
	return func(yield func(types.Row, error) bool) {
		if plan.FullScan() {
			for row, err := range tdb.ScanRows(plan.Table) {
				if ctx_err := ctx.Err(); ctx_err != nil {
					yield(nil, ctx_err)
					return
				}
				if err != nil {
					if !yield(nil, err) {
						return
					}
					continue
				}
				if Evaluate(plan.Table, plan.Predicate, row) && !yield(row, nil) {
					return
				}
			}
			return
		}

		for pk := range plan.PrimaryKeys(tdb) {
			row, ok, err := tdb.GetRow(plan.Table, pk)
			if ctx_err := ctx.Err(); ctx_err != nil {
				yield(nil, ctx_err)
				return
			}
			if err != nil {
				if !yield(nil, err) || !builder.IsCorruption(err) {
					return
				}
				continue
			}
			// deleted since the index was read
			if !ok {
				continue
			}
			if Evaluate(plan.Table, plan.Predicate, row) && !yield(row, nil) {
				return
			}
		}
	}
}

// SelectIter lazily yields the rows of table_name satisfying p. Corrupt rows are
// yielded as errors and the iteration goes on; any other error ends it.
func SelectIter(ctx context.Context, tdb *builder.TobsDB, table_name string, p *Predicate) iter.Seq2[types.Row, error] {
	return func(yield func(types.Row, error) bool) {
		table, err := tdb.Schema.Table(table_name)
		if err != nil {
			yield(nil, err)
			return
		}
		plan, err := NewPlan(tdb, table, p)
		if err != nil {
			yield(nil, err)
			return
		}
		for row, err := range scan(ctx, tdb, plan) {
			if !yield(row, err) {
				return
			}
		}
	}
}

// Select returns every row of table_name satisfying p. A nil p selects every row.
// On cancellation nothing but ctx.Err() is returned.
func Select(ctx context.Context, tdb *builder.TobsDB, table_name string, p *Predicate) (*Result, error) {
	res := &Result{Rows: []types.Row{}}
	for row, err := range SelectIter(ctx, tdb, table_name, p) {
		if err != nil {
			if builder.IsCorruption(err) {
				pkg.WarnLog("skipped row:", err)
				res.Errors = append(res.Errors, err)
				continue
			}
			return nil, err
		}
		res.Rows = append(res.Rows, row)
	}
	return res, nil
}

// Delete removes every row of table_name satisfying p and returns how many were
// removed. Corrupt rows are left in place.
func Delete(ctx context.Context, tdb *builder.TobsDB, table_name string, p *Predicate) (int, error) {
	table, err := tdb.Schema.Table(table_name)
	if err != nil {
		return 0, err
	}

	table.GetLocker().Lock()
	defer table.GetLocker().Unlock()

	plan, err := NewPlan(tdb, table, p)
	if err != nil {
		return 0, err
	}

	pk_name := table.PrimaryKey().Name
	pks := []any{}
	for row, err := range scan(ctx, tdb, plan) {
		if err != nil {
			if builder.IsCorruption(err) {
				pkg.WarnLog("delete skipped row:", err)
				continue
			}
			return 0, err
		}
		pks = append(pks, row.Get(pk_name))
	}

	for i, pk := range pks {
		if err := tdb.DeleteRow(table, pk); err != nil {
			return i, err
		}
		tdb.Indexes.OnDelete(table, pk)
	}
	return len(pks), nil
}

// Aggregate applies op over column of the rows of table_name satisfying p.
func Aggregate(
	ctx context.Context, tdb *builder.TobsDB, table_name string, op AggregateOp, column string, p *Predicate,
) (any, error) {
	table, err := tdb.Schema.Table(table_name)
	if err != nil {
		return nil, err
	}
	field, err := table.Field(column)
	if err != nil {
		return nil, err
	}
	a, err := NewAggregator(op, field)
	if err != nil {
		return nil, err
	}
	plan, err := NewPlan(tdb, table, p)
	if err != nil {
		return nil, err
	}

	for row, err := range scan(ctx, tdb, plan) {
		if err != nil {
			if builder.IsCorruption(err) {
				pkg.WarnLog("aggregate skipped row:", err)
				continue
			}
			return nil, err
		}
		a.Add(row)
	}
	return a.Result()
}

// CreateIndex builds a kind index over column of table_name from its current rows.
func CreateIndex(ctx context.Context, tdb *builder.TobsDB, table_name, column string, kind builder.IndexKind) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	table, err := tdb.Schema.Table(table_name)
	if err != nil {
		return err
	}
	return tdb.CreateIndex(table, column, kind)
}

// Explain plans p without fetching any row.
func Explain(tdb *builder.TobsDB, table_name string, p *Predicate) (*Plan, error) {
	table, err := tdb.Schema.Table(table_name)
	if err != nil {
		return nil, err
	}
	return NewPlan(tdb, table, p)
}
