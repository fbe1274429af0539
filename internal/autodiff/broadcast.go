package autodiff

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/born-ml/valgrad/internal/tensor"
)

// Broadcasting is deliberately limited. The resolver accepts, in order:
//
//  1. identical shapes;
//  2. a size-1 operand against any other shape (scalar replication);
//  3. rank-2 axis-aligned expansion: [M,1]~[M,N], [M,N]~[M,1], [1,N]~[M,N], [M,N]~[1,N].
//
// Anything else is a *tensor.ShapeError. broadcastShape, expand and
// ReduceGradient must keep the same case list: each expansion has exactly one
// reduction.

// broadcastPattern names the expansion applied to one operand.
type broadcastPattern uint8

const (
	patternNone    broadcastPattern = iota // shapes already equal
	patternScalar                          // size 1 replicated everywhere
	patternColumn                          // [M,1] -> [M,N]
	patternRow                             // [1,N] -> [M,N]
	patternInvalid                         // no supported expansion
)

// classify returns the pattern that expands from into to.
func classify(from, to tensor.Shape) broadcastPattern {
	switch {
	case from.Equal(to):
		return patternNone
	case from.NumElements() == 1:
		return patternScalar
	case len(from) == 2 && len(to) == 2 && from[0] == to[0] && from[1] == 1:
		return patternColumn
	case len(from) == 2 && len(to) == 2 && from[1] == to[1] && from[0] == 1:
		return patternRow
	default:
		return patternInvalid
	}
}

// broadcastShape resolves the common shape of two operands.
func broadcastShape(op string, a, b tensor.Shape) (tensor.Shape, error) {
	if a.Equal(b) {
		return a.Clone(), nil
	}

	na, nb := a.NumElements(), b.NumElements()
	switch {
	case na == 1 && nb == 1:
		// Both are scalars in different clothing ([] vs [1] vs [1,1]); keep the higher rank.
		if len(a) >= len(b) {
			return a.Clone(), nil
		}
		return b.Clone(), nil
	case na == 1:
		return b.Clone(), nil
	case nb == 1:
		return a.Clone(), nil
	}

	if len(a) == 2 && len(b) == 2 {
		if classify(a, b) != patternInvalid {
			return b.Clone(), nil
		}
		if classify(b, a) != patternInvalid {
			return a.Clone(), nil
		}
	}
	return nil, tensor.NewShapeError(op, "shapes not compatible for broadcasting", a, b)
}

// expand replicates data of shape from into shape to.
func expand(data []float64, from, to tensor.Shape) ([]float64, error) {
	out := make([]float64, to.NumElements())
	switch classify(from, to) {
	case patternNone:
		copy(out, data)
	case patternScalar:
		for i := range out {
			out[i] = data[0]
		}
	case patternColumn:
		rows, cols := to[0], to[1]
		for i := range rows {
			row := out[i*cols : (i+1)*cols]
			for j := range row {
				row[j] = data[i]
			}
		}
	case patternRow:
		rows, cols := to[0], to[1]
		for i := range rows {
			copy(out[i*cols:(i+1)*cols], data)
		}
	default:
		return nil, tensor.NewShapeError("broadcast", "unsupported expansion", from, to)
	}
	return out, nil
}

// Broadcast resolves two operands to a common shape.
//
// Operands already in the common shape are returned as-is; expanded operands
// are returned as fresh leaves. Numbers enter as Scalar values.
func Broadcast(a, b *Val) (*Val, *Val, error) {
	shape, err := broadcastShape("broadcast", a.shape, b.shape)
	if err != nil {
		return nil, nil, err
	}
	ea, err := expandVal(a, shape)
	if err != nil {
		return nil, nil, err
	}
	eb, err := expandVal(b, shape)
	if err != nil {
		return nil, nil, err
	}
	return ea, eb, nil
}

func expandVal(v *Val, shape tensor.Shape) (*Val, error) {
	if v.shape.Equal(shape) {
		return v, nil
	}
	data, err := expand(v.data, v.shape, shape)
	if err != nil {
		return nil, err
	}
	out := newVal(shape.Clone())
	copy(out.data, data)
	return out, nil
}

// ReduceGradient maps a gradient computed at the broadcasted shape back to the
// operand's original shape by summing over the replicated axes.
func ReduceGradient(grad []float64, original, broadcasted tensor.Shape) ([]float64, error) {
	if len(grad) != broadcasted.NumElements() {
		return nil, tensor.NewShapeError("reduce_gradient",
			fmt.Sprintf("gradient has %d elements, broadcast shape needs %d", len(grad), broadcasted.NumElements()),
			broadcasted)
	}

	out := make([]float64, original.NumElements())
	switch classify(original, broadcasted) {
	case patternNone:
		copy(out, grad)
	case patternScalar:
		out[0] = floats.Sum(grad)
	case patternColumn:
		rows, cols := broadcasted[0], broadcasted[1]
		for i := range rows {
			out[i] = floats.Sum(grad[i*cols : (i+1)*cols])
		}
	case patternRow:
		rows, cols := broadcasted[0], broadcasted[1]
		for i := range rows {
			floats.Add(out, grad[i*cols:(i+1)*cols])
		}
	default:
		return nil, tensor.NewShapeError("reduce_gradient", "unsupported reduction", original, broadcasted)
	}
	return out, nil
}
