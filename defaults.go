package configurator

import (
	"fmt"
	"reflect"
	"strings"
)

// DefaultsFromStruct builds a defaults schema from a struct, using "toml"
// struct tags for key names (falling back to the field name). Nested structs
// become nested tables; fields tagged "-" and unexported fields are skipped.
func DefaultsFromStruct(structWithDefaults any) (map[string]any, error) {
	v := reflect.ValueOf(structWithDefaults)

	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil, fmt.Errorf("%w: defaults struct must be a non-nil struct pointer or value", ErrInvalidArgument)
		}
		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: defaults must be a struct or struct pointer, got %T", ErrInvalidArgument, structWithDefaults)
	}

	return structFields(v), nil
}

// structFields walks one struct level into a defaults table.
func structFields(v reflect.Value) map[string]any {
	out := make(map[string]any)
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		fieldValue := v.Field(i)

		if !field.IsExported() {
			continue
		}

		tag := field.Tag.Get("toml")
		if tag == "-" {
			continue
		}

		key := field.Name
		if tag != "" {
			parts := strings.Split(tag, ",")
			if parts[0] != "" {
				key = parts[0]
			}
		}

		isStruct := fieldValue.Kind() == reflect.Struct
		isPtrToStruct := fieldValue.Kind() == reflect.Ptr && field.Type.Elem().Kind() == reflect.Struct

		if isStruct || isPtrToStruct {
			nested := fieldValue
			if isPtrToStruct {
				if fieldValue.IsNil() {
					// Nil pointers have no well-defined defaults.
					continue
				}
				nested = fieldValue.Elem()
			}
			out[key] = structFields(nested)
			continue
		}

		out[key] = fieldValue.Interface()
	}

	return out
}
