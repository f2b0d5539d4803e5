package query

import (
	"errors"
	"iter"
	"slices"

	"github.com/tobsdb/mousedb/internal/builder"
	"github.com/tobsdb/mousedb/internal/types"
)

type Strategy string

const (
	StrategyIndexEquals    Strategy = "index-equals"
	StrategyIndexRange     Strategy = "index-range"
	StrategyIndexIntersect Strategy = "index-intersect"
	StrategyIndexUnion     Strategy = "index-union"
	StrategyFullScan       Strategy = "full-scan"
)

// Plan is the scan chosen for one predicate. Candidates over-approximate the matching
// rows; the bound predicate is always re-evaluated against every fetched row.
type Plan struct {
	Table     *builder.Table
	Predicate *Predicate
	Strategy  Strategy
	// nil for full scans
	Candidates builder.KeySet
}

// NewPlan binds p to table and picks a strategy:
//   - an eq leaf on an indexed column, or any leaf on a sorted index, is looked up
//   - an and node intersects its indexed sides, or drives from the one indexed side
//   - an or node unions its sides only when both are indexed
//   - anything else is a full scan
func NewPlan(tdb *builder.TobsDB, table *builder.Table, p *Predicate) (*Plan, error) {
	bound, err := Bind(table, p)
	if err != nil {
		return nil, err
	}

	plan := &Plan{Table: table, Predicate: bound, Strategy: StrategyFullScan}
	if bound == nil {
		return plan, nil
	}

	indexed := tdb.Indexes.Indexed(table.Name)
	if len(indexed) == 0 {
		return plan, nil
	}

	keys, strategy, ok, err := candidates(tdb, table, indexed, bound)
	if err != nil {
		return nil, err
	}
	if ok {
		plan.Candidates, plan.Strategy = keys, strategy
	}
	return plan, nil
}

func candidates(
	tdb *builder.TobsDB, table *builder.Table, indexed map[string]builder.IndexKind, p *Predicate,
) (builder.KeySet, Strategy, bool, error) {
	switch p.Kind {
	case PredicateAnd:
		left, left_strategy, left_ok, err := candidates(tdb, table, indexed, p.Left)
		if err != nil {
			return nil, "", false, err
		}
		right, right_strategy, right_ok, err := candidates(tdb, table, indexed, p.Right)
		if err != nil {
			return nil, "", false, err
		}
		switch {
		case left_ok && right_ok:
			return builder.IntersectKeys(left, right), StrategyIndexIntersect, true, nil
		case left_ok:
			return left, left_strategy, true, nil
		case right_ok:
			return right, right_strategy, true, nil
		}
		return nil, "", false, nil
	case PredicateOr:
		left, _, left_ok, err := candidates(tdb, table, indexed, p.Left)
		if err != nil || !left_ok {
			return nil, "", false, err
		}
		right, _, right_ok, err := candidates(tdb, table, indexed, p.Right)
		if err != nil || !right_ok {
			return nil, "", false, err
		}
		return builder.UnionKeys(left, right), StrategyIndexUnion, true, nil
	}

	kind, ok := indexed[p.Column]
	if !ok {
		return nil, "", false, nil
	}

	var (
		keys     builder.KeySet
		strategy Strategy
		err      error
	)
	switch {
	case p.Op == types.OpEquals:
		keys, err = tdb.Indexes.LookupEquals(table, p.Column, p.Value)
		strategy = StrategyIndexEquals
	case kind == builder.IndexKindSorted:
		keys, err = tdb.Indexes.LookupRange(table, p.Column, p.Op, p.Value)
		strategy = StrategyIndexRange
	default:
		return nil, "", false, nil
	}
	if errors.Is(err, builder.ErrIndexNotFound) || errors.Is(err, types.ErrRangeUnsupported) {
		// dropped or replaced since Indexed was read
		return nil, "", false, nil
	} else if err != nil {
		return nil, "", false, err
	}
	return keys, strategy, true, nil
}

func (p *Plan) FullScan() bool { return p.Candidates == nil }

// CandidateCount is -1 for full scans.
func (p *Plan) CandidateCount() int {
	if p.FullScan() {
		return -1
	}
	return len(p.Candidates)
}

// PrimaryKeys yields the candidate primary keys in ascending order. Full scans yield
// every key of the table.
func (p *Plan) PrimaryKeys(tdb *builder.TobsDB) iter.Seq2[any, error] {
	if p.FullScan() {
		return tdb.ScanKeys(p.Table)
	}

	pk_type := p.Table.PrimaryKey().BuiltinType
	keys := make([]any, 0, len(p.Candidates))
	for _, pk := range p.Candidates {
		keys = append(keys, pk)
	}
	slices.SortFunc(keys, func(a, b any) int {
		cmp, _ := types.Compare(pk_type, a, b)
		return cmp
	})

	return func(yield func(any, error) bool) {
		for _, pk := range keys {
			if !yield(pk, nil) {
				return
			}
		}
	}
}
