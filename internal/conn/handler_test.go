package conn_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/tobsdb/mousedb/internal/auth"
	"github.com/tobsdb/mousedb/internal/builder"
	"github.com/tobsdb/mousedb/internal/codec"
	. "github.com/tobsdb/mousedb/internal/conn"
	"github.com/tobsdb/mousedb/internal/query"
	"github.com/tobsdb/mousedb/internal/storage"
	"github.com/tobsdb/mousedb/internal/types"
	"gotest.tools/assert"
)

var ctx = context.Background()

func reqEncode(v map[string]any) []byte {
	buf, _ := json.Marshal(v)
	return buf
}

func newTestDB(t *testing.T) *builder.TobsDB {
	schema, err := builder.NewSchemaFromString(`
$TABLE a {
    b Int index(hash)
    c String
}`)
	assert.NilError(t, err)
	tdb := builder.NewTobsDB(schema, storage.NewMemStore(), codec.NewGobCodec())
	assert.NilError(t, tdb.Restore())
	return tdb
}

func newPopulatedTestDB(t *testing.T, n int) *builder.TobsDB {
	tdb := newTestDB(t)
	for i := 1; i <= n; i++ {
		res := CreateReqHandler(ctx, tdb, reqEncode(map[string]any{"table": "a", "data": map[string]any{"b": i % 3}}))
		assert.Equal(t, res.Status, http.StatusCreated, res.Message)
	}
	return tdb
}

func TestCreateReqHandler(t *testing.T) {
	t.Run("table not found", func(t *testing.T) {
		res := CreateReqHandler(ctx, newTestDB(t), reqEncode(map[string]any{"table": "b", "data": map[string]any{"a": 1}}))
		assert.Equal(t, res.Status, http.StatusNotFound, res.Message)
		assert.Equal(t, res.Message, "Table not found")
	})

	t.Run("simple create", func(t *testing.T) {
		res := CreateReqHandler(ctx, newTestDB(t), reqEncode(map[string]any{"table": "a", "data": map[string]any{"b": 1}}))
		assert.Equal(t, res.Status, http.StatusCreated, res.Message)
		assert.Equal(t, res.Message, "Created new row in table a")
		assert.DeepEqual(t, res.Data, types.Row{"id": 1, "b": 1})
	})

	t.Run("duplicate primary key", func(t *testing.T) {
		tdb := newTestDB(t)
		raw := reqEncode(map[string]any{"table": "a", "data": map[string]any{"id": 4}})
		CreateReqHandler(ctx, tdb, raw)
		res := CreateReqHandler(ctx, tdb, raw)
		assert.Equal(t, res.Status, http.StatusConflict, res.Message)
		assert.Equal(t, res.Message, "Primary key already exists")
	})

	t.Run("invalid value", func(t *testing.T) {
		res := CreateReqHandler(ctx, newTestDB(t), reqEncode(map[string]any{"table": "a", "data": map[string]any{"b": "x"}}))
		assert.Equal(t, res.Status, http.StatusBadRequest, res.Message)
	})
}

func TestCreateManyReqHandler(t *testing.T) {
	tdb := newTestDB(t)
	res := CreateManyReqHandler(ctx, tdb, reqEncode(map[string]any{
		"table": "a",
		"data":  []map[string]any{{"b": 1}, {"b": 2}},
	}))
	assert.Equal(t, res.Status, http.StatusCreated, res.Message)
	assert.Equal(t, res.Message, "Created 2 new rows in table a")

	res = CreateManyReqHandler(ctx, tdb, reqEncode(map[string]any{
		"table": "a",
		"data":  []map[string]any{{"b": 3}, {"id": 1}},
	}))
	assert.Equal(t, res.Status, http.StatusConflict, res.Message)
	assert.Equal(t, res.Message, "row 1: Primary key already exists (created 1 rows before failing)")
}

func TestFindManyReqHandler(t *testing.T) {
	tdb := newPopulatedTestDB(t, 9)

	t.Run("indexed", func(t *testing.T) {
		res := FindManyReqHandler(ctx, tdb, []byte(`{"table":"a","where":{"column":"b","op":"eq","value":1}}`))
		assert.Equal(t, res.Status, http.StatusOK, res.Message)
		assert.Equal(t, len(res.Data.([]types.Row)), 3)
		assert.Equal(t, res.Message, "Found 3 rows in table a")
	})

	t.Run("nested", func(t *testing.T) {
		res := FindManyReqHandler(ctx, tdb, []byte(`{"table":"a","where":{"or":[
			{"column":"b","value":0},
			{"and":[{"column":"id","op":"gte","value":7},{"column":"b","op":"ne","value":2}]}
		]}}`))
		assert.Equal(t, res.Status, http.StatusOK, res.Message)
		// b=0: 3,6,9; id>=7 and b!=2: 7,9
		assert.Equal(t, len(res.Data.([]types.Row)), 4)
	})

	t.Run("no where", func(t *testing.T) {
		res := FindManyReqHandler(ctx, tdb, []byte(`{"table":"a"}`))
		assert.Equal(t, res.Status, http.StatusOK, res.Message)
		assert.Equal(t, len(res.Data.([]types.Row)), 9)
	})

	t.Run("unknown column", func(t *testing.T) {
		res := FindManyReqHandler(ctx, tdb, []byte(`{"table":"a","where":{"column":"z","value":1}}`))
		assert.Equal(t, res.Status, http.StatusBadRequest, res.Message)
		assert.Equal(t, res.Message, "column z does not exist on table a")
	})

	t.Run("bad operator", func(t *testing.T) {
		res := FindManyReqHandler(ctx, tdb, []byte(`{"table":"a","where":{"column":"b","op":"~","value":1}}`))
		assert.Equal(t, res.Status, http.StatusBadRequest, res.Message)
	})

	t.Run("corrupt rows are reported", func(t *testing.T) {
		tdb := newPopulatedTestDB(t, 3)
		key, err := storage.RowKey("a", 2)
		assert.NilError(t, err)
		assert.NilError(t, tdb.Store.Put(key, []byte{0xff, 0x00}))

		res := FindManyReqHandler(ctx, tdb, []byte(`{"table":"a"}`))
		assert.Equal(t, res.Status, http.StatusOK, res.Message)
		assert.Equal(t, len(res.Data.([]types.Row)), 2)
		assert.Equal(t, res.Message, "Found 2 rows in table a, skipped 1 corrupt rows")
		assert.Equal(t, len(res.Skipped), 1)
		assert.Assert(t, strings.HasPrefix(res.Skipped[0], fmt.Sprintf("corrupt row %q", key)), res.Skipped[0])

		buf, err := json.Marshal(res)
		assert.NilError(t, err)
		assert.Assert(t, strings.Contains(string(buf), `"skipped":[`))
	})
}

func TestDeleteManyReqHandler(t *testing.T) {
	tdb := newPopulatedTestDB(t, 6)

	res := DeleteManyReqHandler(ctx, tdb, []byte(`{"table":"a"}`))
	assert.Equal(t, res.Status, http.StatusBadRequest, res.Message)
	assert.Equal(t, res.Message, "Where constraints cannot be empty")

	res = DeleteManyReqHandler(ctx, tdb, []byte(`{"table":"a","where":{"column":"b","value":2}}`))
	assert.Equal(t, res.Status, http.StatusOK, res.Message)
	assert.Equal(t, res.Data, 2)
	assert.Equal(t, res.Message, "Deleted 2 rows from table a")
}

func TestAggregateReqHandler(t *testing.T) {
	tdb := newPopulatedTestDB(t, 6)

	res := AggregateReqHandler(ctx, tdb, []byte(`{"table":"a","op":"sum","column":"b"}`))
	assert.Equal(t, res.Status, http.StatusOK, res.Message)
	assert.Equal(t, res.Data, 6.0)

	res = AggregateReqHandler(ctx, tdb, []byte(`{"table":"a","op":"average","column":"b","where":{"column":"b","value":9}}`))
	assert.Equal(t, res.Status, http.StatusUnprocessableEntity, res.Message)

	res = AggregateReqHandler(ctx, tdb, []byte(`{"table":"a","op":"median","column":"b"}`))
	assert.Equal(t, res.Status, http.StatusBadRequest, res.Message)
}

func TestExplainAndCreateIndex(t *testing.T) {
	tdb := newPopulatedTestDB(t, 6)

	res := ExplainReqHandler(tdb, []byte(`{"table":"a","where":{"column":"c","value":"x"}}`))
	assert.Equal(t, res.Status, http.StatusOK, res.Message)
	assert.Equal(t, res.Data.(ExplainResponse).Strategy, query.StrategyFullScan)

	res = CreateIndexReqHandler(ctx, tdb, []byte(`{"table":"a","column":"c","kind":"sorted"}`))
	assert.Equal(t, res.Status, http.StatusCreated, res.Message)
	assert.Equal(t, res.Message, "Created sorted index on a.c")

	res = ExplainReqHandler(tdb, []byte(`{"table":"a","where":{"column":"c","op":"gt","value":"x"}}`))
	assert.Equal(t, res.Status, http.StatusOK, res.Message)
	assert.DeepEqual(t, res.Data, ExplainResponse{Strategy: "index-range", Candidates: 0, Predicate: "c gt x"})

	res = CreateIndexReqHandler(ctx, tdb, []byte(`{"table":"a","column":"c","kind":"btree"}`))
	assert.Equal(t, res.Status, http.StatusBadRequest, res.Message)
}

func TestListTablesReqHandler(t *testing.T) {
	res := ListTablesReqHandler(newTestDB(t))
	assert.Equal(t, res.Status, http.StatusOK, res.Message)
	tables := res.Data.([]TableInfo)
	assert.Equal(t, len(tables), 1)
	assert.Equal(t, tables[0].PrimaryKey, "id")
	assert.DeepEqual(t, tables[0].Indexes, map[string]builder.IndexKind{"b": builder.IndexKindHash})
}

func TestCreateUserReqHandler(t *testing.T) {
	users := auth.NewTdbUsers()
	res := CreateUserReqHandler(users, []byte(`{"name":"test","password":"test","role":"readonly"}`))
	assert.Equal(t, res.Status, http.StatusCreated, res.Message)

	user, err := users.Validate("test", "test")
	assert.NilError(t, err)
	assert.Equal(t, user.Role, auth.TdbUserRoleReadOnly)

	res = CreateUserReqHandler(users, []byte(`{"name":"test","password":"again"}`))
	assert.Equal(t, res.Status, http.StatusConflict, res.Message)
}
