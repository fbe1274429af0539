package autodiff

import (
	"gonum.org/v1/gonum/floats"

	"github.com/born-ml/valgrad/internal/tensor"
)

// Sum reduces every element of t to a scalar.
// Backward broadcasts the scalar gradient to every element.
func Sum(t *Val) (*Val, error) {
	if err := requireVals(OpSum, t); err != nil {
		return nil, err
	}
	out := newResult(tensor.Shape{}, OpSum, t)
	out.data[0] = floats.Sum(t.data)
	return out, nil
}

// Mean reduces t to the scalar average of its elements.
// Backward distributes grad/size to every element. An empty t is a shape error.
func Mean(t *Val) (*Val, error) {
	if err := requireVals(OpMean, t); err != nil {
		return nil, err
	}
	if t.Size() == 0 {
		return nil, tensor.NewShapeError(OpMean.String(), "mean of empty tensor", t.shape)
	}
	out := newResult(tensor.Shape{}, OpMean, t)
	out.data[0] = floats.Sum(t.data) / float64(t.Size())
	return out, nil
}

func sumBackward(v *Val) {
	t, g := v.parents[0], v.grad[0]
	for i := range t.grad {
		t.grad[i] += g
	}
}

func meanBackward(v *Val) {
	t := v.parents[0]
	g := v.grad[0] / float64(t.Size())
	for i := range t.grad {
		t.grad[i] += g
	}
}
