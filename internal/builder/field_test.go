package builder_test

import (
	"testing"

	. "github.com/tobsdb/mousedb/internal/builder"
	"github.com/tobsdb/mousedb/internal/props"
	"github.com/tobsdb/mousedb/internal/types"
	"gotest.tools/assert"
)

func TestBoolPrimaryKey(t *testing.T) {
	f := NewField("a", types.FieldTypeBool, map[props.FieldProp]string{props.FieldPropKey: props.KeyPropPrimary})
	err := CheckFieldRules(f)
	assert.ErrorContains(t, err, "field(a Bool key(primary)) cannot be type Bool")
}

func TestInvalidFieldType(t *testing.T) {
	err := CheckFieldRules(NewField("a", types.FieldType("Vector"), nil))
	assert.ErrorContains(t, err, "field(a Vector) has invalid type")
}

func TestEmptyFieldName(t *testing.T) {
	err := CheckFieldRules(NewField("", types.FieldTypeInt, nil))
	assert.ErrorContains(t, err, "field name cannot be empty")
}

func TestInvalidIndexProp(t *testing.T) {
	f := NewField("a", types.FieldTypeInt, map[props.FieldProp]string{props.FieldPropIndex: "btree"})
	err := CheckFieldRules(f)
	assert.ErrorContains(t, err, "Invalid syntax: index(btree)")
}

func TestDeclaredIndex(t *testing.T) {
	f := NewField("a", types.FieldTypeInt, map[props.FieldProp]string{props.FieldPropIndex: props.IndexPropSorted})
	assert.NilError(t, CheckFieldRules(f))
	kind, ok := f.DeclaredIndex()
	assert.Assert(t, ok)
	assert.Equal(t, kind, IndexKindSorted)

	_, ok = NewField("b", types.FieldTypeInt, nil).DeclaredIndex()
	assert.Assert(t, !ok)
}
