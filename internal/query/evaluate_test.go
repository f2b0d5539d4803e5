package query_test

import (
	"testing"
	"time"

	. "github.com/tobsdb/mousedb/internal/query"
	"github.com/tobsdb/mousedb/internal/types"
	"gotest.tools/assert"
)

const evaluateSchema = `
$TABLE things {
    n Int
    f Float
    s String
    d Date
    b Bool
}
`

func TestEvaluate(t *testing.T) {
	tdb := newTestDB(t, evaluateSchema)
	table := getTable(t, tdb, "things")

	t0 := time.Unix(1000, 0)
	row := types.Row{"id": 1, "n": 5, "f": 1.5, "s": "mouse", "d": t0, "b": true}

	cases := []struct {
		name     string
		p        *Predicate
		expected bool
	}{
		{"int eq", Equals("n", 5), true},
		{"int ne", NotEquals("n", 5), false},
		{"int gt", GreaterThan("n", 4), true},
		{"int lt", LessThan("n", 5), false},
		{"int lte", LessOrEqual("n", 5), true},
		{"float gte", GreaterOrEqual("f", 1.5), true},
		{"string gt", GreaterThan("s", "cat"), true},
		{"string lt", LessThan("s", "cat"), false},
		{"date gt", GreaterThan("d", t0.Add(-time.Second)), true},
		{"date eq", Equals("d", t0), true},
		{"bool eq", Equals("b", true), true},
		{"bool ne", NotEquals("b", true), false},
		{"bool range", GreaterThan("b", false), false},
		{"and", And(Equals("n", 5), Equals("s", "mouse")), true},
		{"and false", And(Equals("n", 5), Equals("s", "cat")), false},
		{"or", Or(Equals("n", 1), Equals("s", "mouse")), true},
		{"or false", Or(Equals("n", 1), Equals("s", "cat")), false},
		{"nested", Or(And(GreaterThan("n", 1), LessThan("n", 3)), And(GreaterThan("f", 1.0), Equals("b", true))), true},
		{"unknown column", Equals("missing", 1), false},
		{"nil", nil, true},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, Evaluate(table, c.p, row), c.expected)
		})
	}

	t.Run("absent column is false for every operator", func(t *testing.T) {
		sparse := types.Row{"id": 2}
		for _, op := range []types.Operator{
			types.OpEquals, types.OpNotEquals, types.OpGreaterThan,
			types.OpGreaterOrEqual, types.OpLessThan, types.OpLessOrEqual,
		} {
			assert.Assert(t, !Evaluate(table, Leaf("n", op, 1), sparse), op)
		}
	})
}

func TestBind(t *testing.T) {
	tdb := newTestDB(t, evaluateSchema)
	table := getTable(t, tdb, "things")

	t.Run("normalizes literals", func(t *testing.T) {
		bound, err := Bind(table, And(Equals("n", 2.0), GreaterThan("d", 1000)))
		assert.NilError(t, err)
		assert.DeepEqual(t, bound.Left, Equals("n", 2))
		assert.Assert(t, bound.Right.Value.(time.Time).Equal(time.Unix(1000, 0)))
	})

	t.Run("unknown column", func(t *testing.T) {
		_, err := Bind(table, Or(Equals("n", 1), Equals("missing", 1)))
		assert.ErrorContains(t, err, "column missing does not exist on table things")
		assert.Equal(t, types.ErrorStatus(err), 400)
	})

	t.Run("literal type mismatch", func(t *testing.T) {
		_, err := Bind(table, Equals("n", "five"))
		assert.ErrorContains(t, err, "column n: invalid value five")
	})

	t.Run("range on bool", func(t *testing.T) {
		_, err := Bind(table, LessThan("b", true))
		assert.ErrorContains(t, err, "operator lt is not supported on Bool column b")
	})

	t.Run("missing value", func(t *testing.T) {
		_, err := Bind(table, Equals("s", nil))
		assert.ErrorContains(t, err, "missing value for column s")
	})

	t.Run("half built node", func(t *testing.T) {
		_, err := Bind(table, And(Equals("n", 1), nil))
		assert.ErrorContains(t, err, "and/or predicates need 2 conditions")
	})
}
