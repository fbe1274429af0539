package autodiff

import (
	"github.com/born-ml/valgrad/internal/tensor"
)

// Add returns a + b with broadcasting.
//
// Backward: both operands receive the output gradient, reduced back to their
// own shape when they were broadcast.
func Add(a, b *Val) (*Val, error) {
	return binary(OpAdd, a, b, func(x, y float64) float64 { return x + y })
}

// Sub returns a - b with broadcasting.
//
// Backward: a receives +grad, b receives -grad.
func Sub(a, b *Val) (*Val, error) {
	return binary(OpSub, a, b, func(x, y float64) float64 { return x - y })
}

// Mul returns the Hadamard product a * b with broadcasting.
//
// Backward: a receives grad * b, b receives grad * a, each reduced to the
// operand's original shape.
func Mul(a, b *Val) (*Val, error) {
	return binary(OpMul, a, b, func(x, y float64) float64 { return x * y })
}

func binary(op OpKind, a, b *Val, f func(x, y float64) float64) (*Val, error) {
	if err := requireVals(op, a, b); err != nil {
		return nil, err
	}
	shape, err := broadcastShape(op.String(), a.shape, b.shape)
	if err != nil {
		return nil, err
	}
	ad, err := expand(a.data, a.shape, shape)
	if err != nil {
		return nil, err
	}
	bd, err := expand(b.data, b.shape, shape)
	if err != nil {
		return nil, err
	}
	if len(ad) != len(bd) {
		return nil, tensor.NewShapeError(op.String(), "operands differ after broadcasting", a.shape, b.shape)
	}

	out := newResult(shape, op, a, b)
	for i := range out.data {
		out.data[i] = f(ad[i], bd[i])
	}
	return out, nil
}

func addBackward(v *Val) error {
	for _, p := range v.parents {
		g, err := ReduceGradient(v.grad, p.shape, v.shape)
		if err != nil {
			return err
		}
		accumulate(p.grad, g)
	}
	return nil
}

func subBackward(v *Val) error {
	a, b := v.parents[0], v.parents[1]
	ga, err := ReduceGradient(v.grad, a.shape, v.shape)
	if err != nil {
		return err
	}
	gb, err := ReduceGradient(v.grad, b.shape, v.shape)
	if err != nil {
		return err
	}
	accumulate(a.grad, ga)
	for i, g := range gb {
		b.grad[i] -= g
	}
	return nil
}

func mulBackward(v *Val) error {
	a, b := v.parents[0], v.parents[1]
	ad, err := expand(a.data, a.shape, v.shape)
	if err != nil {
		return err
	}
	bd, err := expand(b.data, b.shape, v.shape)
	if err != nil {
		return err
	}

	// Reuse the expanded buffers for the full-shape products.
	for i, g := range v.grad {
		ad[i], bd[i] = g*bd[i], g*ad[i]
	}
	ga, err := ReduceGradient(ad, a.shape, v.shape)
	if err != nil {
		return err
	}
	gb, err := ReduceGradient(bd, b.shape, v.shape)
	if err != nil {
		return err
	}
	accumulate(a.grad, ga)
	accumulate(b.grad, gb)
	return nil
}

// requireVals rejects nil operands before any allocation.
func requireVals(op OpKind, vals ...*Val) error {
	for _, v := range vals {
		if v == nil {
			return tensor.NewShapeError(op.String(), "nil operand")
		}
	}
	return nil
}
