package autodiff

import "math"

// ReLU returns max(t, 0).
//
// Backward reads the pre-activation input: grad passes where t > 0.
func ReLU(t *Val) (*Val, error) {
	return unary(OpReLU, t, func(x float64) float64 {
		if x > 0 {
			return x
		}
		return 0
	})
}

// Sigmoid returns 1 / (1 + e^-t).
//
// Backward reads the post-activation output: out * (1 - out).
func Sigmoid(t *Val) (*Val, error) {
	return unary(OpSigmoid, t, func(x float64) float64 {
		// Split on sign so exp never overflows.
		if x >= 0 {
			return 1 / (1 + math.Exp(-x))
		}
		e := math.Exp(x)
		return e / (1 + e)
	})
}

// Tanh returns the hyperbolic tangent of t.
//
// Backward reads the post-activation output: 1 - out².
func Tanh(t *Val) (*Val, error) {
	return unary(OpTanh, t, math.Tanh)
}

func reluBackward(v *Val) {
	t := v.parents[0]
	for i, g := range v.grad {
		if t.data[i] > 0 {
			t.grad[i] += g
		}
	}
}

func sigmoidBackward(v *Val) {
	t := v.parents[0]
	for i, g := range v.grad {
		out := v.data[i]
		t.grad[i] += g * out * (1 - out)
	}
}

func tanhBackward(v *Val) {
	t := v.parents[0]
	for i, g := range v.grad {
		out := v.data[i]
		t.grad[i] += g * (1 - out*out)
	}
}
