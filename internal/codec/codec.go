// Package codec converts rows to and from the bytes kept by a storage.Store.
package codec

import (
	"bytes"
	"encoding/gob"
	"sync"
	"time"

	"github.com/tobsdb/mousedb/internal/types"
)

type Codec interface {
	Encode(row types.Row) ([]byte, error)
	// Decode fails with a *types.CorruptionError on malformed input.
	Decode(buf []byte) (types.Row, error)
}

var registerOnce sync.Once

func GobRegisterTypes() {
	registerOnce.Do(func() {
		gob.Register(int(0))
		gob.Register(float64(0.))
		gob.Register(string(""))
		gob.Register(time.Time{})
		gob.Register(bool(false))
	})
}

// GobCodec encodes each row as a standalone gob stream.
type GobCodec struct{}

func NewGobCodec() GobCodec {
	GobRegisterTypes()
	return GobCodec{}
}

func (GobCodec) Encode(row types.Row) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(map[string]any(row)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (GobCodec) Decode(buf []byte) (types.Row, error) {
	m := map[string]any{}
	if err := gob.NewDecoder(bytes.NewReader(buf)).Decode(&m); err != nil {
		return nil, types.NewCorruptionError(nil, err)
	}
	return types.Row(m), nil
}
