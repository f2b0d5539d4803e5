package storage

import (
	"bytes"
	"errors"
	"iter"
	"sync"

	sorted "github.com/tobshub/go-sortedmap"
)

var ErrClosed = errors.New("store is closed")

func entryComparisonFunc(a, b Entry) bool {
	return bytes.Compare(a.Key, b.Key) < 0
}

// MemStore keeps every entry in a sorted map ordered by key.
type MemStore struct {
	locker sync.RWMutex
	m      *sorted.SortedMap[string, Entry]
	closed bool
}

func NewMemStore() *MemStore {
	return &MemStore{m: sorted.New[string, Entry](0, entryComparisonFunc)}
}

func (s *MemStore) GetLocker() *sync.RWMutex { return &s.locker }

func (s *MemStore) Get(key []byte) ([]byte, bool, error) {
	s.locker.RLock()
	defer s.locker.RUnlock()
	if s.closed {
		return nil, false, ErrClosed
	}
	e, ok := s.m.Get(string(key))
	if !ok {
		return nil, false, nil
	}
	return bytes.Clone(e.Value), true, nil
}

func (s *MemStore) Put(key, value []byte) error {
	s.locker.Lock()
	defer s.locker.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.put(key, value)
	return nil
}

func (s *MemStore) put(key, value []byte) {
	e := Entry{Key: bytes.Clone(key), Value: bytes.Clone(value)}
	if !s.m.Insert(string(key), e) {
		s.m.Replace(string(key), e)
	}
}

func (s *MemStore) Delete(key []byte) error {
	s.locker.Lock()
	defer s.locker.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.m.Delete(string(key))
	return nil
}

// Scan takes a snapshot of the matching entries before yielding, so callers may
// write to the store while ranging.
func (s *MemStore) Scan(prefix []byte) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		entries, err := s.snapshot(prefix)
		if err != nil {
			yield(Entry{}, err)
			return
		}
		for _, e := range entries {
			if !yield(e, nil) {
				return
			}
		}
	}
}

func (s *MemStore) snapshot(prefix []byte) ([]Entry, error) {
	s.locker.RLock()
	defer s.locker.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	entries := []Entry{}
	iterCh, err := s.m.IterCh()
	if err != nil {
		// empty map
		return entries, nil
	}
	for rec := range iterCh.Records() {
		if bytes.HasPrefix(rec.Val.Key, prefix) {
			entries = append(entries, Entry{bytes.Clone(rec.Val.Key), bytes.Clone(rec.Val.Value)})
		}
	}
	return entries, nil
}

func (s *MemStore) Len() int {
	s.locker.RLock()
	defer s.locker.RUnlock()
	return s.m.Len()
}

func (s *MemStore) Close() error {
	s.locker.Lock()
	defer s.locker.Unlock()
	s.closed = true
	return nil
}
