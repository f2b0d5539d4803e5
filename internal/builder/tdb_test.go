package builder_test

import (
	"errors"
	"testing"

	. "github.com/tobsdb/mousedb/internal/builder"
	"github.com/tobsdb/mousedb/internal/codec"
	"github.com/tobsdb/mousedb/internal/storage"
	"github.com/tobsdb/mousedb/internal/types"
	"gotest.tools/assert"
)

const testSchema = `
$TABLE users {
    user_id Int key(primary)
    name String
    email String index(hash)
}
`

func newTestDB(t *testing.T) (*TobsDB, *Table) {
	schema, err := NewSchemaFromString(testSchema)
	assert.NilError(t, err)
	tdb := NewTobsDB(schema, storage.NewMemStore(), codec.NewGobCodec())
	table, err := schema.Table("users")
	assert.NilError(t, err)
	return tdb, table
}

func TestRows(t *testing.T) {
	tdb, table := newTestDB(t)

	assert.NilError(t, tdb.PutRow(table, 2, types.Row{"user_id": 2, "name": "B"}))
	assert.NilError(t, tdb.PutRow(table, 1, types.Row{"user_id": 1, "name": "A"}))

	row, ok, err := tdb.GetRow(table, 1)
	assert.NilError(t, err)
	assert.Assert(t, ok)
	assert.DeepEqual(t, row, types.Row{"user_id": 1, "name": "A"})

	_, ok, err = tdb.GetRow(table, 3)
	assert.NilError(t, err)
	assert.Assert(t, !ok)

	pks := []any{}
	for pk, err := range tdb.ScanKeys(table) {
		assert.NilError(t, err)
		pks = append(pks, pk)
	}
	assert.DeepEqual(t, pks, []any{1, 2})

	assert.NilError(t, tdb.DeleteRow(table, 1))
	has, err := tdb.HasRow(table, 1)
	assert.NilError(t, err)
	assert.Assert(t, !has)
}

func TestScanRowsSkipsCorruption(t *testing.T) {
	tdb, table := newTestDB(t)
	assert.NilError(t, tdb.PutRow(table, 1, types.Row{"user_id": 1}))
	assert.NilError(t, tdb.PutRow(table, 3, types.Row{"user_id": 3}))

	bad_key, err := storage.RowKey(table.Name, 2)
	assert.NilError(t, err)
	assert.NilError(t, tdb.Store.Put(bad_key, []byte("not a row")))

	rows, corrupt := 0, 0
	for _, err := range tdb.ScanRows(table) {
		if err != nil {
			var c *types.CorruptionError
			assert.Assert(t, errors.As(err, &c))
			assert.DeepEqual(t, c.Key, bad_key)
			corrupt++
			continue
		}
		rows++
	}
	assert.Equal(t, rows, 2)
	assert.Equal(t, corrupt, 1)

	_, _, err = tdb.GetRow(table, 2)
	assert.Assert(t, IsCorruption(err))
	assert.Equal(t, types.ErrorStatus(err), 500)
}

func TestCreateIndexFromRows(t *testing.T) {
	tdb, table := newTestDB(t)
	assert.NilError(t, tdb.PutRow(table, 1, types.Row{"user_id": 1, "name": "A"}))
	assert.NilError(t, tdb.PutRow(table, 2, types.Row{"user_id": 2, "name": "A"}))

	assert.NilError(t, tdb.CreateIndex(table, "name", IndexKindHash))
	keys, err := tdb.Indexes.LookupEquals(table, "name", "A")
	assert.NilError(t, err)
	assert.Equal(t, len(keys), 2)

	err = tdb.CreateIndex(table, "age", IndexKindHash)
	assert.ErrorContains(t, err, "column age does not exist on table users")
}

func TestRestore(t *testing.T) {
	dir := t.TempDir()
	settings, err := NewWriteSettings(dir, false, 1000)
	assert.NilError(t, err)

	schema, err := NewSchemaFromString(testSchema)
	assert.NilError(t, err)
	tdb, err := OpenTobsDB(schema, settings)
	assert.NilError(t, err)
	table, _ := schema.Table("users")
	assert.NilError(t, tdb.PutRow(table, 7, types.Row{"user_id": 7, "email": "a@x"}))
	assert.NilError(t, tdb.Flush())
	assert.NilError(t, tdb.Close())

	schema, err = NewSchemaFromString(testSchema)
	assert.NilError(t, err)
	tdb, err = OpenTobsDB(schema, settings)
	assert.NilError(t, err)
	defer tdb.Close()
	table, _ = schema.Table("users")

	assert.Equal(t, table.CreateId(), 8)
	assert.DeepEqual(t, tdb.Indexes.Indexed("users"), map[string]IndexKind{"email": IndexKindHash})
	keys, err := tdb.Indexes.LookupEquals(table, "email", "a@x")
	assert.NilError(t, err)
	assert.DeepEqual(t, keys, KeySet{"7": 7})
}

func TestNewWriteSettings(t *testing.T) {
	_, err := NewWriteSettings("", false, 1000)
	assert.ErrorContains(t, err, "Must either provide db path or use in-memory mode")

	settings, err := NewWriteSettings("", true, 250)
	assert.NilError(t, err)
	assert.Equal(t, settings.WriteInterval.Milliseconds(), int64(250))
}
