package builder

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tobsdb/mousedb/internal/props"
	"github.com/tobsdb/mousedb/internal/storage"
	"github.com/tobsdb/mousedb/internal/types"
	"github.com/tobsdb/mousedb/pkg"
)

const (
	SYS_PRIMARY_KEY = "id"
	SYS_TIMESTAMP   = "timestamp"
)

type Table struct {
	Name       string
	Fields     *pkg.InsertSortMap[string, *Field]
	TimeSeries bool

	IdTracker atomic.Int64

	// held for writing by inserts, deletes and index builds
	locker sync.RWMutex

	primary_key string
}

// NewTable validates fields and fills in the implicit columns: an auto-incremented
// Int "id" primary key when none is declared, and a Date "timestamp" column for
// time-series tables.
func NewTable(name string, time_series bool, fields ...*Field) (*Table, error) {
	if !storage.ValidTableName(name) {
		return nil, types.NewSchemaError(fmt.Sprintf("invalid table name %q", name))
	}

	t := &Table{Name: name, Fields: pkg.NewInsertSortMap[string, *Field](), TimeSeries: time_series}
	for _, field := range fields {
		if err := CheckFieldRules(field); err != nil {
			return nil, err
		}
		if t.Fields.Has(field.Name) {
			return nil, types.NewSchemaError(fmt.Sprintf("duplicate field %s in table %s", field.Name, name))
		}
		if field.IsPrimaryKey() {
			if t.primary_key != "" {
				return nil, types.NewSchemaError(fmt.Sprintf("table %s has more than one primary key", name))
			}
			t.primary_key = field.Name
		}
		t.Fields.Push(field.Name, field)
	}

	if t.primary_key == "" {
		if t.Fields.Has(SYS_PRIMARY_KEY) {
			return nil, types.NewSchemaError(
				fmt.Sprintf("field %s in table %s must be the primary key", SYS_PRIMARY_KEY, name))
		}
		pk := NewField(SYS_PRIMARY_KEY, types.FieldTypeInt, map[props.FieldProp]string{props.FieldPropKey: props.KeyPropPrimary})
		t.Fields.Push(pk.Name, pk)
		t.primary_key = pk.Name
	}

	if time_series {
		if ts := t.Fields.Get(SYS_TIMESTAMP); ts == nil {
			t.Fields.Push(SYS_TIMESTAMP, NewField(SYS_TIMESTAMP, types.FieldTypeDate, nil))
		} else if ts.BuiltinType != types.FieldTypeDate {
			return nil, types.NewSchemaError(
				fmt.Sprintf("field(%s %s) in time series table %s must be type Date", ts.Name, ts.BuiltinType, name))
		}
	}

	return t, nil
}

func (t *Table) GetLocker() *sync.RWMutex { return &t.locker }

func (t *Table) PrimaryKey() *Field { return t.Fields.Get(t.primary_key) }

// Field fails with a SchemaError when the column doesn't exist.
func (t *Table) Field(name string) (*Field, error) {
	field := t.Fields.Get(name)
	if field == nil {
		return nil, types.NewSchemaError(fmt.Sprintf("column %s does not exist on table %s", name, t.Name))
	}
	return field, nil
}

// FormatPrimaryKey renders pk as a set key.
func (t *Table) FormatPrimaryKey(pk any) string {
	return types.FormatValue(t.PrimaryKey().BuiltinType, pk)
}

func (t *Table) CreateId() int { return int(t.IdTracker.Add(1)) }

// TrackId moves the id tracker past pk so auto-incremented ids never reuse it.
func (t *Table) TrackId(pk any) {
	id, ok := pk.(int)
	if !ok || t.PrimaryKey().BuiltinType != types.FieldTypeInt {
		return
	}
	for {
		curr := t.IdTracker.Load()
		if int64(id) <= curr || t.IdTracker.CompareAndSwap(curr, int64(id)) {
			return
		}
	}
}

// PrepareRow validates data against the table's columns and returns the row to store
// along with its primary key.
func (t *Table) PrepareRow(data types.Row) (types.Row, any, error) {
	for name := range data {
		if !t.Fields.Has(name) {
			return nil, nil, types.NewSchemaError(fmt.Sprintf("column %s does not exist on table %s", name, t.Name))
		}
	}

	row := make(types.Row, len(data))
	for _, field := range t.Fields.Values() {
		input, ok := data[field.Name]
		if !ok || input == nil {
			continue
		}
		value, err := types.Normalize(field.BuiltinType, input)
		if err != nil {
			return nil, nil, types.NewSchemaError(fmt.Sprintf("column %s: %s", field.Name, err.Error()))
		}
		row.Set(field.Name, value)
	}

	pk_field := t.PrimaryKey()
	pk, ok := row.Lookup(pk_field.Name)
	if !ok {
		if pk_field.BuiltinType != types.FieldTypeInt {
			return nil, nil, types.NewSchemaError(fmt.Sprintf("missing primary key %s", pk_field.Name))
		}
		pk = t.CreateId()
		row.Set(pk_field.Name, pk)
	} else {
		t.TrackId(pk)
	}

	if t.TimeSeries && !row.Has(SYS_TIMESTAMP) {
		row.Set(SYS_TIMESTAMP, time.Now())
	}

	return row, pk, nil
}

// DeclaredIndexes maps column name to the index kind its schema asked for.
func (t *Table) DeclaredIndexes() map[string]IndexKind {
	declared := map[string]IndexKind{}
	for _, field := range t.Fields.Values() {
		if kind, ok := field.DeclaredIndex(); ok {
			declared[field.Name] = kind
		}
	}
	return declared
}
