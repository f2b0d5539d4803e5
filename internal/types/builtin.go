package types

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/tobsdb/mousedb/pkg"
)

var VALID_BUILTIN_TYPES = []FieldType{
	FieldTypeInt, FieldTypeFloat, FieldTypeString, FieldTypeDate, FieldTypeBool,
}

type FieldType string

const (
	FieldTypeInt    FieldType = "Int"
	FieldTypeFloat  FieldType = "Float"
	FieldTypeString FieldType = "String"
	FieldTypeDate   FieldType = "Date"
	FieldTypeBool   FieldType = "Bool"
)

func (t FieldType) IsValid() bool { return slices.Contains(VALID_BUILTIN_TYPES, t) }

// ParseFieldType is case-insensitive and also accepts "Timestamp" for Date.
func ParseFieldType(s string) (FieldType, error) {
	switch strings.ToLower(s) {
	case "int", "integer":
		return FieldTypeInt, nil
	case "float", "number":
		return FieldTypeFloat, nil
	case "string":
		return FieldTypeString, nil
	case "date", "timestamp":
		return FieldTypeDate, nil
	case "bool", "boolean":
		return FieldTypeBool, nil
	}
	return "", NewSchemaError(fmt.Sprintf("invalid field type %q", s))
}

// Normalize coerces input to the Go representation stored for fields of type t:
// int, float64, string, time.Time or bool.
//
// Numbers decoded from json arrive as float64, so Int accepts whole floats and Date
// accepts unix seconds as well as RFC3339 strings.
func Normalize(t FieldType, input any) (any, error) {
	invalid := func() error {
		return NewSchemaError(fmt.Sprintf("invalid value %v (%T) for type %s", input, input, t))
	}

	switch t {
	case FieldTypeInt:
		switch v := input.(type) {
		case int, int64:
			return pkg.NumToInt(v), nil
		case int32:
			return int(v), nil
		case float64:
			if v != math.Trunc(v) || v >= 1<<63 || v < -(1<<63) {
				return nil, invalid()
			}
			return pkg.NumToInt(v), nil
		}
	case FieldTypeFloat:
		v, ok := pkg.NumToFloat(input)
		if f, is_f32 := input.(float32); is_f32 {
			v, ok = float64(f), true
		}
		if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, invalid()
		}
		if v == 0 {
			// -0 and 0 are one value
			v = 0
		}
		return v, nil
	case FieldTypeString:
		if v, ok := input.(string); ok {
			return v, nil
		}
	case FieldTypeDate:
		switch v := input.(type) {
		case time.Time:
			return v, nil
		case string:
			parsed, err := time.Parse(time.RFC3339Nano, v)
			if err != nil {
				return nil, invalid()
			}
			return parsed, nil
		case int, int64, float64:
			secs, _ := pkg.NumToFloat(v)
			if math.IsNaN(secs) || secs >= 1<<63 || secs < -(1<<63) {
				return nil, invalid()
			}
			whole, frac := math.Modf(secs)
			return time.Unix(int64(whole), int64(frac*1e9)), nil
		}
	case FieldTypeBool:
		if v, ok := input.(bool); ok {
			return v, nil
		}
	default:
		return nil, NewSchemaError(fmt.Sprintf("invalid field type %q", t))
	}
	return nil, invalid()
}

// Compare orders two normalized values of type t. ok is false when the values are not
// comparable under t; Bool values only report equality (0) or ok=false.
func Compare(t FieldType, a, b any) (order int, ok bool) {
	switch t {
	case FieldTypeInt, FieldTypeFloat:
		x, ok1 := pkg.NumToFloat(a)
		y, ok2 := pkg.NumToFloat(b)
		if !ok1 || !ok2 {
			return 0, false
		}
		if ai, ok := a.(int); ok {
			if bi, ok := b.(int); ok {
				return cmp.Compare(ai, bi), true
			}
		}
		return cmp.Compare(x, y), true
	case FieldTypeString:
		x, ok1 := a.(string)
		y, ok2 := b.(string)
		if !ok1 || !ok2 {
			return 0, false
		}
		return strings.Compare(x, y), true
	case FieldTypeDate:
		x, ok1 := a.(time.Time)
		y, ok2 := b.(time.Time)
		if !ok1 || !ok2 {
			return 0, false
		}
		return x.Compare(y), true
	case FieldTypeBool:
		x, ok1 := a.(bool)
		y, ok2 := b.(bool)
		if !ok1 || !ok2 || x != y {
			return 1, ok1 && ok2
		}
		return 0, true
	}
	return 0, false
}

// FormatValue renders a normalized value as a map key. Values that Compare as equal
// produce the same key.
func FormatValue(t FieldType, v any) string {
	switch v := v.(type) {
	case time.Time:
		return fmt.Sprintf("%d.%09d", v.Unix(), v.Nanosecond())
	case int:
		if t == FieldTypeFloat {
			return FormatValue(t, float64(v))
		}
	case float64:
		if v == 0 {
			return "0"
		}
	}
	return fmt.Sprintf("%v", v)
}
