package builder

import (
	"errors"
	"fmt"
	"iter"
	"sync"

	"github.com/tobsdb/mousedb/internal/types"
	"github.com/tobsdb/mousedb/pkg"
	sorted "github.com/tobshub/go-sortedmap"
)

var ErrIndexNotFound = errors.New("index not found")

type IndexKind string

const (
	// IndexKindHash maps values to buckets without ordering. Equality lookups only.
	IndexKindHash IndexKind = "hash"
	// IndexKindSorted keeps buckets ordered by value and also serves range lookups.
	IndexKindSorted IndexKind = "sorted"
)

func (k IndexKind) IsValid() bool { return k == IndexKindHash || k == IndexKindSorted }

func ParseIndexKind(s string) (IndexKind, error) {
	if s == "" {
		return IndexKindHash, nil
	}
	kind := IndexKind(s)
	if !kind.IsValid() {
		return "", types.NewSchemaError(fmt.Sprintf("invalid index kind %q", s))
	}
	return kind, nil
}

// KeySet maps a formatted primary key to the primary key itself.
type KeySet = pkg.Map[string, any]

func IntersectKeys(a, b KeySet) KeySet {
	if len(b) < len(a) {
		a, b = b, a
	}
	res := KeySet{}
	for k, pk := range a {
		if b.Has(k) {
			res.Set(k, pk)
		}
	}
	return res
}

func UnionKeys(a, b KeySet) KeySet {
	res := a.Clone()
	for k, pk := range b {
		res.Set(k, pk)
	}
	return res
}

type indexBucket struct {
	Value any
	Keys  KeySet
}

func indexBucketComparisonFunc(field_type types.FieldType) func(a, b *indexBucket) bool {
	return func(a, b *indexBucket) bool {
		cmp, _ := types.Compare(field_type, a.Value, b.Value)
		return cmp < 0
	}
}

// TDBTableIndex maps the values of one column to the primary keys of the rows holding them.
type TDBTableIndex struct {
	locker sync.RWMutex

	Table  string
	Column string
	Kind   IndexKind

	field_type types.FieldType
	pk_type    types.FieldType

	hashed pkg.Map[string, *indexBucket]
	sorted *sorted.SortedMap[string, *indexBucket]
	// formatted primary key -> bucket key
	reverse pkg.Map[string, string]
}

func newTableIndex(table *Table, field *Field, kind IndexKind) *TDBTableIndex {
	idx := &TDBTableIndex{
		Table:      table.Name,
		Column:     field.Name,
		Kind:       kind,
		field_type: field.BuiltinType,
		pk_type:    table.PrimaryKey().BuiltinType,
		reverse:    pkg.Map[string, string]{},
	}
	if kind == IndexKindSorted {
		idx.sorted = sorted.New[string, *indexBucket](0, indexBucketComparisonFunc(field.BuiltinType))
	} else {
		idx.hashed = pkg.Map[string, *indexBucket]{}
	}
	return idx
}

func (idx *TDBTableIndex) bucket(key string) (*indexBucket, bool) {
	if idx.sorted != nil {
		return idx.sorted.Get(key)
	}
	return idx.hashed.Lookup(key)
}

func (idx *TDBTableIndex) dropBucket(key string) {
	if idx.sorted != nil {
		idx.sorted.Delete(key)
		return
	}
	idx.hashed.Delete(key)
}

func (idx *TDBTableIndex) addBucket(key string, b *indexBucket) {
	if idx.sorted != nil {
		idx.sorted.Insert(key, b)
		return
	}
	idx.hashed.Set(key, b)
}

func (idx *TDBTableIndex) formatPrimaryKey(pk any) string {
	return types.FormatValue(idx.pk_type, pk)
}

// Insert files pk under value, moving it out of any bucket it was in before.
// A nil value (column absent from the row) leaves pk unindexed.
func (idx *TDBTableIndex) Insert(pk, value any) {
	idx.locker.Lock()
	defer idx.locker.Unlock()
	pk_key := idx.formatPrimaryKey(pk)
	idx.remove(pk_key)
	if value == nil {
		return
	}

	key := types.FormatValue(idx.field_type, value)
	b, ok := idx.bucket(key)
	if !ok {
		b = &indexBucket{Value: value, Keys: KeySet{}}
		idx.addBucket(key, b)
	}
	b.Keys.Set(pk_key, pk)
	idx.reverse.Set(pk_key, key)
}

func (idx *TDBTableIndex) Remove(pk any) {
	idx.locker.Lock()
	defer idx.locker.Unlock()
	idx.remove(idx.formatPrimaryKey(pk))
}

func (idx *TDBTableIndex) remove(pk_key string) {
	key, ok := idx.reverse.Lookup(pk_key)
	if !ok {
		return
	}
	idx.reverse.Delete(pk_key)
	b, ok := idx.bucket(key)
	if !ok {
		return
	}
	b.Keys.Delete(pk_key)
	if len(b.Keys) == 0 {
		idx.dropBucket(key)
	}
}

// Equals returns a copy of the bucket for value, empty when no row holds it.
func (idx *TDBTableIndex) Equals(value any) KeySet {
	idx.locker.RLock()
	defer idx.locker.RUnlock()
	b, ok := idx.bucket(types.FormatValue(idx.field_type, value))
	if !ok {
		return KeySet{}
	}
	return b.Keys.Clone()
}

// Range returns the keys of every bucket whose value satisfies op against value.
// Only sorted indexes support it.
func (idx *TDBTableIndex) Range(op types.Operator, value any) (KeySet, error) {
	if idx.Kind != IndexKindSorted {
		return nil, types.ErrRangeUnsupported
	}
	if op == types.OpEquals {
		return idx.Equals(value), nil
	}

	idx.locker.RLock()
	defer idx.locker.RUnlock()
	res := KeySet{}
	iterCh, err := idx.sorted.IterCh()
	if err != nil {
		// empty map
		return res, nil
	}
	for rec := range iterCh.Records() {
		cmp, ok := types.Compare(idx.field_type, rec.Val.Value, value)
		if !ok || !op.Holds(cmp) {
			continue
		}
		for k, pk := range rec.Val.Keys {
			res.Set(k, pk)
		}
	}
	return res, nil
}

// Len is the number of rows currently indexed.
func (idx *TDBTableIndex) Len() int {
	idx.locker.RLock()
	defer idx.locker.RUnlock()
	return len(idx.reverse)
}

type TDBTableIndexes = pkg.Map[string, *TDBTableIndex]

// IndexManager owns every index of a database. Mutations of one table's indexes are
// serialized by that table's write lock; each index guards its buckets with its own lock.
type IndexManager struct {
	locker  sync.RWMutex
	indexes pkg.Map[string, TDBTableIndexes]
}

func NewIndexManager() *IndexManager {
	return &IndexManager{indexes: pkg.Map[string, TDBTableIndexes]{}}
}

// CreateIndex builds an index over rows and installs it, replacing any index already
// on the column. Fails with a SchemaError when the column doesn't exist.
func (m *IndexManager) CreateIndex(table *Table, column string, kind IndexKind, rows iter.Seq[types.Row]) error {
	field, err := table.Field(column)
	if err != nil {
		return err
	}
	if !kind.IsValid() {
		return types.NewSchemaError(fmt.Sprintf("invalid index kind %q", kind))
	}

	idx := newTableIndex(table, field, kind)
	pk_name := table.PrimaryKey().Name
	for row := range rows {
		pk, ok := row.Lookup(pk_name)
		if !ok {
			continue
		}
		idx.Insert(pk, row.Get(column))
	}

	m.locker.Lock()
	defer m.locker.Unlock()
	table_indexes, ok := m.indexes.Lookup(table.Name)
	if !ok {
		table_indexes = TDBTableIndexes{}
		m.indexes.Set(table.Name, table_indexes)
	}
	table_indexes.Set(column, idx)
	pkg.DebugLog("built", kind, "index on", table.Name+"."+column, "with", idx.Len(), "rows")
	return nil
}

func (m *IndexManager) tableIndexes(table string) []*TDBTableIndex {
	m.locker.RLock()
	defer m.locker.RUnlock()
	table_indexes := m.indexes.Get(table)
	res := make([]*TDBTableIndex, 0, len(table_indexes))
	for _, idx := range table_indexes {
		res = append(res, idx)
	}
	return res
}

// OnInsert files row under every index of table.
func (m *IndexManager) OnInsert(table *Table, row types.Row) {
	pk := row.Get(table.PrimaryKey().Name)
	for _, idx := range m.tableIndexes(table.Name) {
		idx.Insert(pk, row.Get(idx.Column))
	}
}

// OnDelete removes pk from every index of table.
func (m *IndexManager) OnDelete(table *Table, pk any) {
	for _, idx := range m.tableIndexes(table.Name) {
		idx.Remove(pk)
	}
}

func (m *IndexManager) Index(table, column string) (*TDBTableIndex, bool) {
	m.locker.RLock()
	defer m.locker.RUnlock()
	return m.indexes.Get(table).Lookup(column)
}

func (m *IndexManager) lookup(table *Table, column string, value any) (*TDBTableIndex, any, error) {
	field, err := table.Field(column)
	if err != nil {
		return nil, nil, err
	}
	idx, ok := m.Index(table.Name, column)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s.%s", ErrIndexNotFound, table.Name, column)
	}
	value, err = types.Normalize(field.BuiltinType, value)
	if err != nil {
		return nil, nil, err
	}
	return idx, value, nil
}

// LookupEquals returns the primary keys of rows whose column equals value.
func (m *IndexManager) LookupEquals(table *Table, column string, value any) (KeySet, error) {
	idx, value, err := m.lookup(table, column, value)
	if err != nil {
		return nil, err
	}
	return idx.Equals(value), nil
}

// LookupRange fails with types.ErrRangeUnsupported unless the column has a sorted index.
func (m *IndexManager) LookupRange(table *Table, column string, op types.Operator, value any) (KeySet, error) {
	idx, value, err := m.lookup(table, column, value)
	if err != nil {
		return nil, err
	}
	return idx.Range(op, value)
}

// Indexed maps each indexed column of table to its index kind.
func (m *IndexManager) Indexed(table string) map[string]IndexKind {
	m.locker.RLock()
	defer m.locker.RUnlock()
	res := map[string]IndexKind{}
	for column, idx := range m.indexes.Get(table) {
		res[column] = idx.Kind
	}
	return res
}

func (m *IndexManager) DropIndex(table, column string) error {
	m.locker.Lock()
	defer m.locker.Unlock()
	table_indexes := m.indexes.Get(table)
	if !table_indexes.Has(column) {
		return fmt.Errorf("%w: %s.%s", ErrIndexNotFound, table, column)
	}
	table_indexes.Delete(column)
	return nil
}

func (m *IndexManager) DropTable(table string) {
	m.locker.Lock()
	defer m.locker.Unlock()
	m.indexes.Delete(table)
}
