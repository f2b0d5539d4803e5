package paging

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path"

	"github.com/google/uuid"
)

const (
	MAX_PAGE_SIZE    = 4000 // 4KB
	PAGE_HEADER_SIZE = 48
)

var (
	ERR_INVALID_PAGE_HEADER = errors.New("invalid page headers")
	ERR_PAGE_OVERFLOW       = errors.New("page overflow")
	ERR_MAX_DATA_SIZE       = errors.New("maximum data size exceeded")
	ERR_TRUNCATED_BLOCK     = errors.New("truncated page block")
)

// Page is a file holding length-prefixed blocks, linked to its neighbours by id.
type Page struct {
	Id uuid.UUID

	Prev uuid.UUID
	Next uuid.UUID

	buf   []byte
	dirty bool
}

func NewPage(prev_page_id, next_page_id uuid.UUID) *Page {
	return &Page{uuid.New(), prev_page_id, next_page_id, []byte{}, true}
}

func LoadPage(base string, id uuid.UUID) (*Page, error) {
	data, err := os.ReadFile(path.Join(base, id.String()))
	if err != nil {
		return nil, err
	}
	if len(data) < PAGE_HEADER_SIZE {
		return nil, fmt.Errorf("%w: page %s is %d bytes", ERR_INVALID_PAGE_HEADER, id, len(data))
	}

	page_id, err := uuid.FromBytes(data[0:16])
	if err != nil {
		return nil, fmt.Errorf("%w: page ID: %v", ERR_INVALID_PAGE_HEADER, err)
	}
	prev_page_id, err := uuid.FromBytes(data[16:32])
	if err != nil {
		return nil, fmt.Errorf("%w: previous page ID: %v", ERR_INVALID_PAGE_HEADER, err)
	}
	next_page_id, err := uuid.FromBytes(data[32:48])
	if err != nil {
		return nil, fmt.Errorf("%w: next page ID: %v", ERR_INVALID_PAGE_HEADER, err)
	}

	if id != page_id {
		return nil, fmt.Errorf("%w: page id mismatch %s != %s", ERR_INVALID_PAGE_HEADER, id, page_id)
	}

	return &Page{page_id, prev_page_id, next_page_id, data[PAGE_HEADER_SIZE:], false}, nil
}

func (p *Page) Dirty() bool { return p.dirty }

func (p *Page) MarkDirty() { p.dirty = true }

func (p *Page) Len() int { return len(p.buf) }

// The first 48 bytes are reserved for page ids.
// 16 for this page, 16 for the previous page and 16 for the next page.
//
// The rest ({MAX_PAGE_SIZE}) is the page data.
func (p *Page) WriteToFile(base string) error {
	buf := make([]byte, 0, PAGE_HEADER_SIZE+len(p.buf))
	buf = append(buf, p.Id[:]...)
	buf = append(buf, p.Prev[:]...)
	buf = append(buf, p.Next[:]...)
	buf = append(buf, p.buf...)

	if err := os.WriteFile(path.Join(base, p.Id.String()), buf, 0644); err != nil {
		return err
	}
	p.dirty = false
	return nil
}

const block_header_size = 2

// Fits reports whether a block of data_size bytes can ever be stored in a page.
func Fits(data_size int) bool {
	return data_size+block_header_size <= MAX_PAGE_SIZE
}

func (p *Page) Push(data []byte) error {
	data_size := len(data)
	if !Fits(data_size) {
		return ERR_MAX_DATA_SIZE
	}

	// +2 bytes to account for the header
	if data_size+block_header_size+len(p.buf) > MAX_PAGE_SIZE {
		return ERR_PAGE_OVERFLOW
	}

	// prefix each data block with its size
	p.buf = binary.BigEndian.AppendUint16(p.buf, uint16(data_size))
	p.buf = append(p.buf, data...)
	p.dirty = true

	return nil
}

func (p *Page) NewReader() *PageReader {
	return &PageReader{r: bytes.NewReader(p.buf)}
}

type PageReader struct {
	r   *bytes.Reader
	err error
	Buf []byte
}

// ReadNext loads the next block into Buf. It returns false at the end of the page or
// on a malformed block, in which case Err is set.
func (r *PageReader) ReadNext() bool {
	header := make([]byte, block_header_size)
	if _, err := io.ReadFull(r.r, header); err != nil {
		if err != io.EOF {
			r.err = ERR_TRUNCATED_BLOCK
		}
		return false
	}
	size := binary.BigEndian.Uint16(header)

	buf := make([]byte, size)
	if _, err := io.ReadFull(r.r, buf); err != nil {
		r.err = ERR_TRUNCATED_BLOCK
		return false
	}
	r.Buf = buf
	return true
}

func (r *PageReader) Err() error { return r.err }
