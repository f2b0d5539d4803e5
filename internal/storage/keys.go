package storage

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"time"
)

const KeySeparator byte = 0

const (
	pkTagInt    byte = 'i'
	pkTagFloat  byte = 'f'
	pkTagString byte = 's'
	pkTagDate   byte = 'd'
	pkTagBool   byte = 'b'
)

func ValidTableName(name string) bool {
	return len(name) > 0 && !strings.ContainsRune(name, rune(KeySeparator))
}

// TablePrefix is the prefix shared by every row key of table.
func TablePrefix(table string) []byte {
	return append([]byte(table), KeySeparator)
}

// RowKey builds table ++ separator ++ primary key. Keys of one table sort by primary key.
func RowKey(table string, pk any) ([]byte, error) {
	enc, err := EncodePrimaryKey(pk)
	if err != nil {
		return nil, err
	}
	return append(TablePrefix(table), enc...), nil
}

// ParseRowKey is the inverse of RowKey.
func ParseRowKey(table string, key []byte) (any, error) {
	prefix := TablePrefix(table)
	if !bytes.HasPrefix(key, prefix) {
		return nil, fmt.Errorf("key %q does not belong to table %s", key, table)
	}
	return DecodePrimaryKey(key[len(prefix):])
}

// EncodePrimaryKey produces a tagged, order preserving encoding of pk.
func EncodePrimaryKey(pk any) ([]byte, error) {
	switch pk := pk.(type) {
	case int:
		return append([]byte{pkTagInt}, orderedInt(int64(pk))...), nil
	case int64:
		return append([]byte{pkTagInt}, orderedInt(pk)...), nil
	case float64:
		if pk == 0 {
			pk = 0
		}
		bits := math.Float64bits(pk)
		if bits&(1<<63) != 0 {
			bits = ^bits
		} else {
			bits |= 1 << 63
		}
		return binary.BigEndian.AppendUint64([]byte{pkTagFloat}, bits), nil
	case string:
		return append([]byte{pkTagString}, pk...), nil
	case time.Time:
		buf := append([]byte{pkTagDate}, orderedInt(pk.Unix())...)
		return binary.BigEndian.AppendUint32(buf, uint32(pk.Nanosecond())), nil
	case bool:
		if pk {
			return []byte{pkTagBool, 1}, nil
		}
		return []byte{pkTagBool, 0}, nil
	}
	return nil, fmt.Errorf("unsupported primary key type %T", pk)
}

func DecodePrimaryKey(buf []byte) (any, error) {
	if len(buf) == 0 {
		return nil, fmt.Errorf("empty primary key")
	}
	tag, data := buf[0], buf[1:]
	switch tag {
	case pkTagInt, pkTagFloat:
		if len(data) != 8 {
			return nil, fmt.Errorf("invalid primary key length %d", len(data))
		}
	case pkTagDate:
		// seconds then nanoseconds
		if len(data) != 12 {
			return nil, fmt.Errorf("invalid primary key length %d", len(data))
		}
	}

	switch tag {
	case pkTagInt:
		return int(unorderedInt(data)), nil
	case pkTagDate:
		return time.Unix(unorderedInt(data[:8]), int64(binary.BigEndian.Uint32(data[8:]))), nil
	case pkTagFloat:
		bits := binary.BigEndian.Uint64(data)
		if bits&(1<<63) != 0 {
			bits &^= 1 << 63
		} else {
			bits = ^bits
		}
		return math.Float64frombits(bits), nil
	case pkTagString:
		return string(data), nil
	case pkTagBool:
		if len(data) != 1 {
			return nil, fmt.Errorf("invalid primary key length %d", len(data))
		}
		return data[0] == 1, nil
	}
	return nil, fmt.Errorf("unknown primary key tag %q", tag)
}

func orderedInt(v int64) []byte {
	return binary.BigEndian.AppendUint64(nil, uint64(v)^(1<<63))
}

func unorderedInt(buf []byte) int64 {
	return int64(binary.BigEndian.Uint64(buf) ^ (1 << 63))
}
