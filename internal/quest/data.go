package quest

import (
	"fmt"
	"reflect"
	"strings"
)

// Field reads the named field from a quest data bag. Names match the json
// tag first, then the Go field name.
func Field(data any, name string) (any, error) {
	v, err := fieldValue(data, name)
	if err != nil {
		return nil, err
	}
	return v.Interface(), nil
}

// SetField writes value into the named field of a quest data bag, converting
// between numeric types where possible.
func SetField(data any, name string, value any) error {
	v, err := fieldValue(data, name)
	if err != nil {
		return err
	}
	if !v.CanSet() {
		return fmt.Errorf("quest data field %q is not settable", name)
	}

	rv := reflect.ValueOf(value)
	if !rv.IsValid() {
		v.Set(reflect.Zero(v.Type()))
		return nil
	}
	if rv.Type().AssignableTo(v.Type()) {
		v.Set(rv)
		return nil
	}
	if rv.Type().ConvertibleTo(v.Type()) && isNumeric(rv.Kind()) && isNumeric(v.Kind()) {
		v.Set(rv.Convert(v.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to quest data field %q (%s)", value, name, v.Type())
}

func fieldValue(data any, name string) (reflect.Value, error) {
	v := reflect.ValueOf(data)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return reflect.Value{}, fmt.Errorf("quest data must be a non-nil struct pointer, got %T", data)
	}
	v = v.Elem()
	if v.Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("quest data must be a struct pointer, got %T", data)
	}

	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("json")
		if idx := strings.Index(tag, ","); idx >= 0 {
			tag = tag[:idx]
		}
		if tag == name || f.Name == name {
			return v.Field(i), nil
		}
	}
	return reflect.Value{}, fmt.Errorf("quest data has no field %q", name)
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
