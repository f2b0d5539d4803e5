package query_test

import (
	"testing"

	"github.com/tobsdb/mousedb/internal/builder"
	. "github.com/tobsdb/mousedb/internal/query"
	"github.com/tobsdb/mousedb/internal/types"
	"gotest.tools/assert"
)

const planSchema = `
$TABLE events {
    level Int index(hash)
    score Int index(sorted)
    user_id Int
}
`

func seedEvents(t *testing.T, tdb *builder.TobsDB) {
	for i := 1; i <= 12; i++ {
		_, err := Insert(ctx, tdb, "events", types.Row{"level": i % 3, "score": i * 10, "user_id": i % 4})
		assert.NilError(t, err)
	}
}

func planKeys(t *testing.T, tdb *builder.TobsDB, plan *Plan) []any {
	keys := []any{}
	for pk, err := range plan.PrimaryKeys(tdb) {
		assert.NilError(t, err)
		keys = append(keys, pk)
	}
	return keys
}

func TestPlan(t *testing.T) {
	tdb := newTestDB(t, planSchema)
	seedEvents(t, tdb)
	table := getTable(t, tdb, "events")

	cases := []struct {
		name       string
		p          *Predicate
		strategy   Strategy
		candidates []any
	}{
		{"equals on hash", Equals("level", 1), StrategyIndexEquals, []any{1, 4, 7, 10}},
		{"equals on sorted", Equals("score", 30), StrategyIndexEquals, []any{3}},
		{"range on sorted", GreaterThan("score", 100), StrategyIndexRange, []any{11, 12}},
		{"range on hash", GreaterThan("level", 1), StrategyFullScan, nil},
		{"unindexed", Equals("user_id", 1), StrategyFullScan, nil},
		{"and of indexed", And(Equals("level", 1), LessOrEqual("score", 40)), StrategyIndexIntersect, []any{1, 4}},
		{"and drives from indexed side", And(Equals("user_id", 1), Equals("level", 2)), StrategyIndexEquals, []any{2, 5, 8, 11}},
		{"and of unindexed", And(Equals("user_id", 1), GreaterThan("level", 0)), StrategyFullScan, nil},
		{"or of indexed", Or(Equals("level", 0), GreaterOrEqual("score", 110)), StrategyIndexUnion, []any{3, 6, 9, 11, 12}},
		{"or with unindexed side", Or(Equals("level", 2), Equals("user_id", 1)), StrategyFullScan, nil},
		{"no predicate", nil, StrategyFullScan, nil},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			plan, err := NewPlan(tdb, table, c.p)
			assert.NilError(t, err)
			assert.Equal(t, plan.Strategy, c.strategy)
			if c.candidates == nil {
				assert.Assert(t, plan.FullScan())
				assert.Equal(t, plan.CandidateCount(), -1)
				assert.Equal(t, len(planKeys(t, tdb, plan)), 12)
				return
			}
			assert.DeepEqual(t, planKeys(t, tdb, plan), c.candidates)
			assert.Equal(t, plan.CandidateCount(), len(c.candidates))
		})
	}

	t.Run("unknown column", func(t *testing.T) {
		_, err := NewPlan(tdb, table, And(Equals("level", 1), Equals("nope", 1)))
		assert.ErrorContains(t, err, "column nope does not exist on table events")
	})

	t.Run("no matches is empty, not an error", func(t *testing.T) {
		plan, err := NewPlan(tdb, table, Equals("level", 99))
		assert.NilError(t, err)
		assert.Equal(t, plan.Strategy, StrategyIndexEquals)
		assert.Equal(t, len(planKeys(t, tdb, plan)), 0)
	})
}
