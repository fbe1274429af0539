package autodiff

import (
	"math"
)

// Pow raises every element to the power n.
// Local derivative: n * t^(n-1).
func Pow(t *Val, n float64) (*Val, error) {
	out, err := unary(OpPow, t, func(x float64) float64 { return math.Pow(x, n) })
	if err != nil {
		return nil, err
	}
	out.attrs.exponent = n
	return out, nil
}

// Div divides every element by num.
// Local derivative: 1/num. Division by zero follows IEEE-754.
func Div(t *Val, num float64) (*Val, error) {
	out, err := unary(OpDiv, t, func(x float64) float64 { return x / num })
	if err != nil {
		return nil, err
	}
	out.attrs.divisor = num
	return out, nil
}

// Negate returns -t.
func Negate(t *Val) (*Val, error) {
	return unary(OpNeg, t, func(x float64) float64 { return -x })
}

// Abs returns |t|. The derivative at zero is taken as zero.
func Abs(t *Val) (*Val, error) {
	return unary(OpAbs, t, math.Abs)
}

// Exp returns e^t.
func Exp(t *Val) (*Val, error) {
	return unary(OpExp, t, math.Exp)
}

// Log returns the natural logarithm of t.
// Non-positive inputs produce NaN or -Inf; numerical issues are not trapped here.
func Log(t *Val) (*Val, error) {
	return unary(OpLog, t, math.Log)
}

// unary applies f elementwise and tags the result with op.
func unary(op OpKind, t *Val, f func(float64) float64) (*Val, error) {
	if err := requireVals(op, t); err != nil {
		return nil, err
	}
	out := newResult(t.shape.Clone(), op, t)
	for i, x := range t.data {
		out.data[i] = f(x)
	}
	return out, nil
}

func powBackward(v *Val) {
	t, n := v.parents[0], v.attrs.exponent
	for i, g := range v.grad {
		t.grad[i] += g * n * math.Pow(t.data[i], n-1)
	}
}

func divBackward(v *Val) {
	t, num := v.parents[0], v.attrs.divisor
	for i, g := range v.grad {
		t.grad[i] += g / num
	}
}

func negBackward(v *Val) {
	t := v.parents[0]
	for i, g := range v.grad {
		t.grad[i] -= g
	}
}

func absBackward(v *Val) {
	t := v.parents[0]
	for i, g := range v.grad {
		t.grad[i] += g * sign(t.data[i])
	}
}

// expBackward reads the output: d/dx e^x = e^x.
func expBackward(v *Val) {
	t := v.parents[0]
	for i, g := range v.grad {
		t.grad[i] += g * v.data[i]
	}
}

func logBackward(v *Val) {
	t := v.parents[0]
	for i, g := range v.grad {
		t.grad[i] += g / t.data[i]
	}
}

func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}
