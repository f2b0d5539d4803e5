package query_test

import (
	"context"
	"testing"

	"github.com/tobsdb/mousedb/internal/builder"
	"github.com/tobsdb/mousedb/internal/codec"
	"github.com/tobsdb/mousedb/internal/storage"
	"gotest.tools/assert"
)

func newTestDB(t *testing.T, schema_data string) *builder.TobsDB {
	schema, err := builder.NewSchemaFromString(schema_data)
	assert.NilError(t, err)
	tdb := builder.NewTobsDB(schema, storage.NewMemStore(), codec.NewGobCodec())
	assert.NilError(t, tdb.Restore())
	return tdb
}

func getTable(t *testing.T, tdb *builder.TobsDB, name string) *builder.Table {
	table, err := tdb.Schema.Table(name)
	assert.NilError(t, err)
	return table
}

var ctx = context.Background()
