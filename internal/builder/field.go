package builder

import (
	"fmt"

	"github.com/tobsdb/mousedb/internal/props"
	"github.com/tobsdb/mousedb/internal/types"
)

type Field struct {
	Name        string
	BuiltinType types.FieldType
	Properties  map[props.FieldProp]string
}

func NewField(name string, builtin_type types.FieldType, field_props map[props.FieldProp]string) *Field {
	if field_props == nil {
		field_props = map[props.FieldProp]string{}
	}
	return &Field{Name: name, BuiltinType: builtin_type, Properties: field_props}
}

func (f *Field) IsPrimaryKey() bool {
	return f.Properties[props.FieldPropKey] == props.KeyPropPrimary
}

// DeclaredIndex reports the index kind requested with index(...), if any.
func (f *Field) DeclaredIndex() (IndexKind, bool) {
	v, ok := f.Properties[props.FieldPropIndex]
	if !ok {
		return "", false
	}
	return IndexKind(v), true
}

// field local rules:
// - name must not be empty
// - type must be a builtin type
// - primary key field can't be type Bool
// - index prop must be hash or sorted
func CheckFieldRules(field *Field) error {
	if len(field.Name) == 0 {
		return types.NewSchemaError("field name cannot be empty")
	}

	if !field.BuiltinType.IsValid() {
		return types.NewSchemaError(fmt.Sprintf("field(%s %s) has invalid type", field.Name, field.BuiltinType))
	}

	if field.IsPrimaryKey() && field.BuiltinType == types.FieldTypeBool {
		return types.NewSchemaError(fmt.Sprintf("field(%s %s key(primary)) cannot be type Bool", field.Name, field.BuiltinType))
	}

	for prop, value := range field.Properties {
		if !prop.IsValid() {
			return types.NewSchemaError(fmt.Sprintf("field(%s %s) has invalid prop %s", field.Name, field.BuiltinType, prop))
		}
		if err := props.ValidatePropValue(prop, value); err != nil {
			return types.NewSchemaError(fmt.Sprintf("field(%s %s) %s", field.Name, field.BuiltinType, err.Error()))
		}
	}

	return nil
}
