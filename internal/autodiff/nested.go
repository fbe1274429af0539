package autodiff

import (
	"fmt"
	"reflect"

	"github.com/born-ml/valgrad/internal/tensor"
)

var float64Type = reflect.TypeOf(float64(0))

// flatten infers the shape of nested float64 slices and returns their
// row-major contents. Ragged nesting is a shape error.
func flatten(nested any) (tensor.Shape, []float64, error) {
	if nested == nil {
		return nil, nil, tensor.NewShapeError("flatten", "nil input")
	}
	rv := reflect.ValueOf(nested)

	shape := tensor.Shape{}
	for t := rv.Type(); t.Kind() == reflect.Slice || t.Kind() == reflect.Array; t = t.Elem() {
		shape = append(shape, 0)
	}
	if !elemType(rv.Type()).ConvertibleTo(float64Type) {
		return nil, nil, tensor.NewShapeError("flatten", fmt.Sprintf("unsupported element type %s", elemType(rv.Type())))
	}

	// First pass records the extent of each level along the leading path.
	cur := rv
	for d := range shape {
		shape[d] = cur.Len()
		if cur.Len() == 0 {
			break
		}
		cur = cur.Index(0)
	}

	flat := make([]float64, 0, shape.NumElements())
	var walk func(v reflect.Value, depth int) error
	walk = func(v reflect.Value, depth int) error {
		if depth == len(shape) {
			flat = append(flat, v.Convert(float64Type).Float())
			return nil
		}
		if v.Len() != shape[depth] {
			return tensor.NewShapeError("flatten",
				fmt.Sprintf("ragged input at depth %d: length %d, want %d", depth, v.Len(), shape[depth]))
		}
		for i := range v.Len() {
			if err := walk(v.Index(i), depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(rv, 0); err != nil {
		return nil, nil, err
	}
	return shape, flat, nil
}

func elemType(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Slice || t.Kind() == reflect.Array {
		t = t.Elem()
	}
	return t
}
