package storage

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path"
	"sync"

	"github.com/google/uuid"
	"github.com/tobsdb/mousedb/internal/paging"
	"github.com/tobsdb/mousedb/pkg"
)

const (
	recordPut    byte = 1
	recordDelete byte = 2

	metaFile = "meta.tdb"
)

// PagedStore serves reads from an in-memory MemStore and records every write in a
// chain of pages. Flush writes the dirty pages to dir.
type PagedStore struct {
	locker sync.Mutex
	mem    *MemStore
	dir    string
	pages  []*paging.Page
}

type pagedMeta struct {
	FirstPage uuid.UUID `json:"first_page"`
	Pages     int       `json:"pages"`
}

// OpenPagedStore loads the page chain found in dir, creating dir when missing.
func OpenPagedStore(dir string) (*PagedStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	s := &PagedStore{mem: NewMemStore(), dir: dir}

	f, err := os.Open(path.Join(dir, metaFile))
	if errors.Is(err, os.ErrNotExist) {
		s.pages = []*paging.Page{paging.NewPage(uuid.Nil, uuid.Nil)}
		return s, nil
	} else if err != nil {
		return nil, err
	}
	defer f.Close()

	var meta pagedMeta
	if err := json.NewDecoder(f).Decode(&meta); err != nil {
		if err == io.EOF {
			pkg.WarnLog("read empty meta file", dir)
			s.pages = []*paging.Page{paging.NewPage(uuid.Nil, uuid.Nil)}
			return s, nil
		}
		return nil, fmt.Errorf("decoding %s: %w", metaFile, err)
	}

	for id := meta.FirstPage; id != uuid.Nil; {
		p, err := paging.LoadPage(dir, id)
		if err != nil {
			return nil, fmt.Errorf("loading page %s: %w", id, err)
		}
		if err := s.replay(p); err != nil {
			return nil, fmt.Errorf("replaying page %s: %w", id, err)
		}
		s.pages = append(s.pages, p)
		id = p.Next
	}
	if len(s.pages) == 0 {
		s.pages = []*paging.Page{paging.NewPage(uuid.Nil, uuid.Nil)}
	}

	pkg.InfoLog("loaded", len(s.pages), "pages from", dir)
	return s, nil
}

func (s *PagedStore) replay(p *paging.Page) error {
	r := p.NewReader()
	for r.ReadNext() {
		op, key, value, err := decodeRecord(r.Buf)
		if err != nil {
			return err
		}
		switch op {
		case recordPut:
			s.mem.put(key, value)
		case recordDelete:
			s.mem.m.Delete(string(key))
		}
	}
	return r.Err()
}

func encodeRecord(op byte, key, value []byte) []byte {
	buf := make([]byte, 0, 3+len(key)+len(value))
	buf = append(buf, op)
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(key)))
	buf = append(buf, key...)
	return append(buf, value...)
}

func decodeRecord(buf []byte) (op byte, key, value []byte, err error) {
	if len(buf) < 3 {
		return 0, nil, nil, fmt.Errorf("short record of %d bytes", len(buf))
	}
	op = buf[0]
	key_len := int(binary.BigEndian.Uint16(buf[1:3]))
	if len(buf) < 3+key_len {
		return 0, nil, nil, fmt.Errorf("record key overruns block")
	}
	return op, buf[3 : 3+key_len], buf[3+key_len:], nil
}

// append must be called with s.locker held.
func (s *PagedStore) append(record []byte) error {
	if !paging.Fits(len(record)) {
		return paging.ERR_MAX_DATA_SIZE
	}
	last := s.pages[len(s.pages)-1]
	err := last.Push(record)
	if err != paging.ERR_PAGE_OVERFLOW {
		return err
	}

	// on ERR_PAGE_OVERFLOW link a new page and push there
	next := paging.NewPage(last.Id, uuid.Nil)
	last.Next = next.Id
	last.MarkDirty()
	s.pages = append(s.pages, next)
	return next.Push(record)
}

func (s *PagedStore) Get(key []byte) ([]byte, bool, error) { return s.mem.Get(key) }

func (s *PagedStore) Put(key, value []byte) error {
	s.locker.Lock()
	defer s.locker.Unlock()
	if err := s.append(encodeRecord(recordPut, key, value)); err != nil {
		return err
	}
	return s.mem.Put(key, value)
}

func (s *PagedStore) Delete(key []byte) error {
	s.locker.Lock()
	defer s.locker.Unlock()
	if err := s.append(encodeRecord(recordDelete, key, nil)); err != nil {
		return err
	}
	return s.mem.Delete(key)
}

func (s *PagedStore) Scan(prefix []byte) iter.Seq2[Entry, error] { return s.mem.Scan(prefix) }

// Flush writes every dirty page and the meta file.
func (s *PagedStore) Flush() error {
	s.locker.Lock()
	defer s.locker.Unlock()

	written := 0
	for _, p := range s.pages {
		if !p.Dirty() {
			continue
		}
		if err := p.WriteToFile(s.dir); err != nil {
			return err
		}
		written++
	}

	meta, err := json.Marshal(pagedMeta{FirstPage: s.pages[0].Id, Pages: len(s.pages)})
	if err != nil {
		return err
	}
	if err := os.WriteFile(path.Join(s.dir, metaFile), meta, 0644); err != nil {
		return err
	}
	pkg.DebugLog("flushed", written, "pages to", s.dir)
	return nil
}

func (s *PagedStore) Close() error {
	if err := s.Flush(); err != nil {
		return err
	}
	return s.mem.Close()
}
