package props

import (
	"fmt"
	"slices"
)

type FieldProp string

var VALID_BUILTIN_PROPS = []FieldProp{FieldPropKey, FieldPropIndex}

const (
	FieldPropKey   FieldProp = "key"   // key(primary)
	FieldPropIndex FieldProp = "index" // index(hash|sorted)
)

func (p FieldProp) IsValid() bool {
	return slices.Contains(VALID_BUILTIN_PROPS, p)
}

const KeyPropPrimary string = "primary"

const (
	IndexPropHash   string = "hash"
	IndexPropSorted string = "sorted"
)

func ValidatePropValue(prop FieldProp, value string) error {
	switch prop {
	case FieldPropKey:
		if value != KeyPropPrimary {
			return fmt.Errorf("Invalid syntax: key(%s)", value)
		}
	case FieldPropIndex:
		if value != IndexPropHash && value != IndexPropSorted {
			return fmt.Errorf("Invalid syntax: index(%s)", value)
		}
	}
	return nil
}
