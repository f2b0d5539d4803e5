package builder

import (
	"errors"
	"sync"
	"time"

	"github.com/tobsdb/mousedb/internal/codec"
	"github.com/tobsdb/mousedb/internal/storage"
	"github.com/tobsdb/mousedb/pkg"
)

type TDBWriteSettings struct {
	WritePath     string
	InMem         bool
	WriteInterval time.Duration
}

func NewWriteSettings(write_path string, in_mem bool, write_interval_ms int) (*TDBWriteSettings, error) {
	if !in_mem && len(write_path) == 0 {
		return nil, errors.New("Must either provide db path or use in-memory mode")
	}
	write_interval := time.Duration(write_interval_ms) * time.Millisecond
	return &TDBWriteSettings{write_path, in_mem, write_interval}, nil
}

// Flusher is implemented by stores that buffer writes, like storage.PagedStore.
type Flusher interface{ Flush() error }

// TobsDB is one opened database: its tables, the store rows live in and the indexes
// kept over them. Several can coexist in a process.
type TobsDB struct {
	Locker  sync.RWMutex
	Schema  *Schema
	Store   storage.Store
	Codec   codec.Codec
	Indexes *IndexManager

	WriteSettings *TDBWriteSettings
	LastChange    time.Time
	last_flush    time.Time
}

func NewTobsDB(schema *Schema, store storage.Store, c codec.Codec) *TobsDB {
	if c == nil {
		c = codec.NewGobCodec()
	}
	now := time.Now()
	return &TobsDB{
		Schema:        schema,
		Store:         store,
		Codec:         c,
		Indexes:       NewIndexManager(),
		WriteSettings: &TDBWriteSettings{InMem: true},
		LastChange:    now,
		last_flush:    now,
	}
}

// OpenTobsDB opens the store described by write_settings, then restores id trackers
// and declared indexes from the rows already stored.
func OpenTobsDB(schema *Schema, write_settings *TDBWriteSettings) (*TobsDB, error) {
	var store storage.Store
	if write_settings.InMem {
		store = storage.NewMemStore()
	} else {
		paged, err := storage.OpenPagedStore(write_settings.WritePath)
		if err != nil {
			return nil, err
		}
		store = paged
		pkg.InfoLog("loaded database from", write_settings.WritePath)
	}

	tdb := NewTobsDB(schema, store, nil)
	tdb.WriteSettings = write_settings
	if err := tdb.Restore(); err != nil {
		store.Close()
		return nil, err
	}
	return tdb, nil
}

func (tdb *TobsDB) GetLocker() *sync.RWMutex { return &tdb.Locker }

func (tdb *TobsDB) Touch() {
	pkg.LockWrap(tdb, func() { tdb.LastChange = time.Now() })
}

// Restore walks every table once, moving its id tracker past the stored primary keys
// and rebuilding the indexes its schema declares from scratch.
func (tdb *TobsDB) Restore() error {
	for _, name := range tdb.Schema.TableNames() {
		table, err := tdb.Schema.Table(name)
		if err != nil {
			return err
		}
		tdb.Indexes.DropTable(name)

		count := 0
		for row, err := range tdb.ScanRows(table) {
			if err != nil {
				if IsCorruption(err) {
					pkg.ErrorLog(err)
					continue
				}
				return err
			}
			table.TrackId(row.Get(table.PrimaryKey().Name))
			count++
		}

		for column, kind := range table.DeclaredIndexes() {
			if err := tdb.CreateIndex(table, column, kind); err != nil {
				return err
			}
		}
		pkg.DebugLog("restored table", name, "with", count, "rows")
	}
	return nil
}

// Flush persists buffered writes when the store buffers them and something changed
// since the last flush.
func (tdb *TobsDB) Flush() error {
	f, ok := tdb.Store.(Flusher)
	if !ok || tdb.WriteSettings.InMem {
		return nil
	}

	started := time.Now()
	var changed bool
	pkg.RLockWrap(tdb, func() { changed = tdb.LastChange.After(tdb.last_flush) })
	if !changed {
		return nil
	}

	pkg.DebugLog("writing database to disk", tdb.WriteSettings.WritePath)
	if err := f.Flush(); err != nil {
		return err
	}
	pkg.LockWrap(tdb, func() { tdb.last_flush = started })
	return nil
}

func (tdb *TobsDB) Close() error {
	return tdb.Store.Close()
}
