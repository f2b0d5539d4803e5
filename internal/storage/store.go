// Package storage holds the ordered key-value backends rows are persisted through.
package storage

import "iter"

type Entry struct {
	Key   []byte
	Value []byte
}

// Store is an ordered byte-keyed store. Scan yields entries whose key starts with
// prefix in ascending key order.
//
// Implementations must be safe for concurrent use. Errors are returned as is; the
// query layer never retries.
type Store interface {
	Get(key []byte) ([]byte, bool, error)
	Put(key, value []byte) error
	Delete(key []byte) error
	Scan(prefix []byte) iter.Seq2[Entry, error]
	Close() error
}
