package netcdf

import (
	"fmt"
	"reflect"
)

type number interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~float32 | ~float64
}

func appendNumbers[T number](out []float64, vals []T) []float64 {
	for _, v := range vals {
		out = append(out, float64(v))
	}
	return out
}

// flatten appends the values of a reader result, a scalar or an arbitrarily
// nested slice of one numeric type, in row-major order.
func flatten(out []float64, raw any) ([]float64, error) {
	switch vals := raw.(type) {
	case []float64:
		return append(out, vals...), nil
	case []float32:
		return appendNumbers(out, vals), nil
	case []int32:
		return appendNumbers(out, vals), nil
	case []int16:
		return appendNumbers(out, vals), nil
	case []int8:
		return appendNumbers(out, vals), nil
	case []int64:
		return appendNumbers(out, vals), nil
	case []uint8:
		return appendNumbers(out, vals), nil
	case []uint16:
		return appendNumbers(out, vals), nil
	case []uint32:
		return appendNumbers(out, vals), nil
	case []uint64:
		return appendNumbers(out, vals), nil
	}
	return flattenValue(out, reflect.ValueOf(raw))
}

func flattenValue(out []float64, v reflect.Value) ([]float64, error) {
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		var err error
		for i := range v.Len() {
			if out, err = flatten(out, v.Index(i).Interface()); err != nil {
				return nil, err
			}
		}
		return out, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return append(out, float64(v.Int())), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return append(out, float64(v.Uint())), nil
	case reflect.Float32, reflect.Float64:
		return append(out, v.Float()), nil
	case reflect.Invalid:
		return nil, fmt.Errorf("no values")
	}
	return nil, fmt.Errorf("unsupported value type %s", v.Type())
}
