package autodiff

import (
	"fmt"

	"github.com/born-ml/valgrad/internal/tensor"
)

// Reshape returns a copy of t with a new shape and the same row-major element
// order. Backward adds the output gradient element for element into t.
func Reshape(t *Val, shape tensor.Shape) (*Val, error) {
	if err := requireVals(OpReshape, t); err != nil {
		return nil, err
	}
	if err := shape.Validate(); err != nil {
		return nil, tensor.NewDimensionError(OpReshape.String(), err.Error(), t.shape, shape)
	}
	if shape.NumElements() != t.Size() {
		return nil, tensor.NewDimensionError(OpReshape.String(),
			fmt.Sprintf("cannot reshape %d elements into %d", t.Size(), shape.NumElements()), t.shape, shape)
	}
	out := newResult(shape.Clone(), OpReshape, t)
	copy(out.data, t.data)
	return out, nil
}

// Reshape is the method form of Reshape.
func (v *Val) Reshape(shape ...int) (*Val, error) {
	return Reshape(v, tensor.Shape(shape))
}

// Transpose swaps axes 0 and 1 of a rank-2 value. Rank 0 and 1 values are
// their own transpose and come back as a copy. Rank > 2 is a dimension error.
func Transpose(t *Val) (*Val, error) {
	if err := requireVals(OpTranspose, t); err != nil {
		return nil, err
	}
	switch t.Dim() {
	case 0, 1:
		out := newResult(t.shape.Clone(), OpTranspose, t)
		copy(out.data, t.data)
		return out, nil
	case 2:
		rows, cols := t.shape[0], t.shape[1]
		out := newResult(tensor.Shape{cols, rows}, OpTranspose, t)
		transpose2D(out.data, t.data, rows, cols, false)
		return out, nil
	default:
		return nil, tensor.NewDimensionError(OpTranspose.String(),
			fmt.Sprintf("transpose supports rank <= 2, got rank %d", t.Dim()), t.shape)
	}
}

// T is the method form of Transpose.
func (v *Val) T() (*Val, error) {
	return Transpose(v)
}

// transpose2D writes src [rows, cols] transposed into dst [cols, rows].
// With add set it accumulates instead of overwriting.
func transpose2D(dst, src []float64, rows, cols int, add bool) {
	for r := range rows {
		for c := range cols {
			if add {
				dst[c*rows+r] += src[r*cols+c]
			} else {
				dst[c*rows+r] = src[r*cols+c]
			}
		}
	}
}

func reshapeBackward(v *Val) {
	accumulate(v.parents[0].grad, v.grad)
}

// transposeBackward scatters the gradient back into the source index order.
func transposeBackward(v *Val) {
	t := v.parents[0]
	if t.Dim() < 2 {
		accumulate(t.grad, v.grad)
		return
	}
	// v is [cols, rows]; transposing it again lands in t's layout.
	transpose2D(t.grad, v.grad, v.shape[0], v.shape[1], true)
}
