package builder

import (
	"errors"
	"fmt"
	"iter"

	"github.com/tobsdb/mousedb/internal/storage"
	"github.com/tobsdb/mousedb/internal/types"
	"github.com/tobsdb/mousedb/pkg"
)

func IsCorruption(err error) bool {
	var c *types.CorruptionError
	return errors.As(err, &c)
}

func (tdb *TobsDB) decodeRow(key, value []byte) (types.Row, error) {
	row, err := tdb.Codec.Decode(value)
	if err != nil {
		var c *types.CorruptionError
		if errors.As(err, &c) {
			return nil, types.NewCorruptionError(key, c.Err)
		}
		return nil, types.NewCorruptionError(key, err)
	}
	return row, nil
}

// GetRow fetches the row stored under pk. A row that fails to decode is reported as a
// *types.CorruptionError.
func (tdb *TobsDB) GetRow(table *Table, pk any) (types.Row, bool, error) {
	key, err := storage.RowKey(table.Name, pk)
	if err != nil {
		return nil, false, err
	}
	value, ok, err := tdb.Store.Get(key)
	if err != nil {
		return nil, false, fmt.Errorf("get %s row: %w", table.Name, err)
	}
	if !ok {
		return nil, false, nil
	}
	row, err := tdb.decodeRow(key, value)
	if err != nil {
		return nil, false, err
	}
	return row, true, nil
}

func (tdb *TobsDB) HasRow(table *Table, pk any) (bool, error) {
	key, err := storage.RowKey(table.Name, pk)
	if err != nil {
		return false, err
	}
	_, ok, err := tdb.Store.Get(key)
	if err != nil {
		return false, fmt.Errorf("get %s row: %w", table.Name, err)
	}
	return ok, nil
}

func (tdb *TobsDB) PutRow(table *Table, pk any, row types.Row) error {
	key, err := storage.RowKey(table.Name, pk)
	if err != nil {
		return err
	}
	value, err := tdb.Codec.Encode(row)
	if err != nil {
		return fmt.Errorf("encode %s row: %w", table.Name, err)
	}
	if err := tdb.Store.Put(key, value); err != nil {
		return fmt.Errorf("put %s row: %w", table.Name, err)
	}
	tdb.Touch()
	return nil
}

func (tdb *TobsDB) DeleteRow(table *Table, pk any) error {
	key, err := storage.RowKey(table.Name, pk)
	if err != nil {
		return err
	}
	if err := tdb.Store.Delete(key); err != nil {
		return fmt.Errorf("delete %s row: %w", table.Name, err)
	}
	tdb.Touch()
	return nil
}

// ScanRows yields every row of table in primary key order. Rows that fail to decode
// are yielded as a *types.CorruptionError and the scan goes on; a store error ends it.
func (tdb *TobsDB) ScanRows(table *Table) iter.Seq2[types.Row, error] {
	return func(yield func(types.Row, error) bool) {
		for entry, err := range tdb.Store.Scan(storage.TablePrefix(table.Name)) {
			if err != nil {
				yield(nil, fmt.Errorf("scan %s: %w", table.Name, err))
				return
			}
			if !yield(tdb.decodeRow(entry.Key, entry.Value)) {
				return
			}
		}
	}
}

// ScanKeys yields the primary key of every row of table without decoding the rows.
func (tdb *TobsDB) ScanKeys(table *Table) iter.Seq2[any, error] {
	return func(yield func(any, error) bool) {
		for entry, err := range tdb.Store.Scan(storage.TablePrefix(table.Name)) {
			if err != nil {
				yield(nil, fmt.Errorf("scan %s: %w", table.Name, err))
				return
			}
			pk, err := storage.ParseRowKey(table.Name, entry.Key)
			if err != nil {
				err = types.NewCorruptionError(entry.Key, err)
			}
			if !yield(pk, err) {
				return
			}
		}
	}
}

// CreateIndex scans table and builds a kind index on column. Inserts and deletes on
// the table wait for the build to finish. Corrupt rows are left out of the index.
func (tdb *TobsDB) CreateIndex(table *Table, column string, kind IndexKind) error {
	table.GetLocker().Lock()
	defer table.GetLocker().Unlock()

	var scan_err error
	rows := func(yield func(types.Row) bool) {
		for row, err := range tdb.ScanRows(table) {
			if err != nil {
				if IsCorruption(err) {
					pkg.WarnLog("index build skipped row:", err)
					continue
				}
				scan_err = err
				return
			}
			if !yield(row) {
				return
			}
		}
	}
	if err := tdb.Indexes.CreateIndex(table, column, kind, rows); err != nil {
		return err
	}
	if scan_err != nil {
		tdb.Indexes.DropIndex(table.Name, column)
		return scan_err
	}
	return nil
}
