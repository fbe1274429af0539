// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package autodiff provides tensor values with reverse-mode automatic differentiation.
//
// Every operator returns a new Val that remembers its operands and the
// operation that produced it. Calling Backward on a single-element result
// fills the gradient buffer of every value it depends on.
//
// Example:
//
//	import "github.com/born-ml/valgrad/autodiff"
//
//	func main() {
//	    a, b, c := autodiff.Scalar(2), autodiff.Scalar(-3), autodiff.Scalar(10)
//	    ab, _ := autodiff.Mul(a, b)
//	    d, _ := autodiff.Add(ab, c) // 4
//
//	    _ = d.Backward()
//	    // a.Grad() == [-3], b.Grad() == [2], c.Grad() == [1]
//	}
package autodiff

import (
	"github.com/born-ml/valgrad/internal/autodiff"
	"github.com/born-ml/valgrad/tensor"
)

// Val is a tensor value and a node of the computation graph.
type Val = autodiff.Val

// OpKind tags the operation that produced a Val.
type OpKind = autodiff.OpKind

// Operation tags.
const (
	OpLeaf      = autodiff.OpLeaf
	OpAdd       = autodiff.OpAdd
	OpSub       = autodiff.OpSub
	OpMul       = autodiff.OpMul
	OpPow       = autodiff.OpPow
	OpDiv       = autodiff.OpDiv
	OpNeg       = autodiff.OpNeg
	OpAbs       = autodiff.OpAbs
	OpExp       = autodiff.OpExp
	OpLog       = autodiff.OpLog
	OpSum       = autodiff.OpSum
	OpMean      = autodiff.OpMean
	OpDot       = autodiff.OpDot
	OpTranspose = autodiff.OpTranspose
	OpReshape   = autodiff.OpReshape
	OpReLU      = autodiff.OpReLU
	OpSigmoid   = autodiff.OpSigmoid
	OpTanh      = autodiff.OpTanh
	OpConv2D    = autodiff.OpConv2D
	OpBiasAdd4D = autodiff.OpBiasAdd4D
)

// Construction

// New creates a zero-filled leaf with the given shape.
func New(shape tensor.Shape) (*Val, error) { return autodiff.New(shape) }

// Full creates a leaf with every element set to fill.
func Full(shape tensor.Shape, fill float64) (*Val, error) { return autodiff.Full(shape, fill) }

// FromSlice creates a leaf holding a copy of data in the given shape.
func FromSlice(data []float64, shape tensor.Shape) (*Val, error) {
	return autodiff.FromSlice(data, shape)
}

// FromNested creates a leaf from nested []float64 slices.
//
// Example:
//
//	m, _ := autodiff.FromNested([][]float64{{1, 2}, {3, 4}}) // shape [2,2]
func FromNested(nested any) (*Val, error) { return autodiff.FromNested(nested) }

// Scalar creates a scalar (shape []) leaf.
func Scalar(x float64) *Val { return autodiff.Scalar(x) }

// Must unwraps an operator result, panicking on error.
func Must(v *Val, err error) *Val { return autodiff.Must(v, err) }

// Elementwise (broadcasting)

// Add returns a + b.
func Add(a, b *Val) (*Val, error) { return autodiff.Add(a, b) }

// Sub returns a - b.
func Sub(a, b *Val) (*Val, error) { return autodiff.Sub(a, b) }

// Mul returns the elementwise product a * b.
func Mul(a, b *Val) (*Val, error) { return autodiff.Mul(a, b) }

// Unary

// Pow raises every element to the power n.
func Pow(t *Val, n float64) (*Val, error) { return autodiff.Pow(t, n) }

// Div divides every element by num.
func Div(t *Val, num float64) (*Val, error) { return autodiff.Div(t, num) }

// Negate returns -t.
func Negate(t *Val) (*Val, error) { return autodiff.Negate(t) }

// Abs returns |t|.
func Abs(t *Val) (*Val, error) { return autodiff.Abs(t) }

// Exp returns e^t.
func Exp(t *Val) (*Val, error) { return autodiff.Exp(t) }

// Log returns the natural logarithm of t.
func Log(t *Val) (*Val, error) { return autodiff.Log(t) }

// ReLU returns max(0, t).
func ReLU(t *Val) (*Val, error) { return autodiff.ReLU(t) }

// Sigmoid returns 1 / (1 + e^-t).
func Sigmoid(t *Val) (*Val, error) { return autodiff.Sigmoid(t) }

// Tanh returns tanh(t).
func Tanh(t *Val) (*Val, error) { return autodiff.Tanh(t) }

// Reductions

// Sum adds every element into a scalar.
func Sum(t *Val) (*Val, error) { return autodiff.Sum(t) }

// Mean averages every element into a scalar.
func Mean(t *Val) (*Val, error) { return autodiff.Mean(t) }

// Structural

// Reshape returns t viewed with a new shape of the same size.
func Reshape(t *Val, shape tensor.Shape) (*Val, error) { return autodiff.Reshape(t, shape) }

// Transpose swaps the axes of a rank-2 value.
func Transpose(t *Val) (*Val, error) { return autodiff.Transpose(t) }

// Linear algebra and convolution

// Dot multiplies rank-1 and rank-2 operands.
func Dot(t1, t2 *Val) (*Val, error) { return autodiff.Dot(t1, t2) }

// Conv2D convolves an NHWC input with a [C_out,K,K,C_in] kernel.
func Conv2D(input, kernel *Val, stride, padding int) (*Val, error) {
	return autodiff.Conv2D(input, kernel, stride, padding)
}

// BiasAdd4D adds a per-channel bias [C] to an NHWC value [B,H,W,C].
func BiasAdd4D(x, bias *Val) (*Val, error) { return autodiff.BiasAdd4D(x, bias) }

// Broadcasting

// Broadcast resolves two operands to a common shape.
func Broadcast(a, b *Val) (*Val, *Val, error) { return autodiff.Broadcast(a, b) }

// ReduceGradient sums a gradient computed at the broadcasted shape back to
// the operand's original shape.
func ReduceGradient(grad []float64, original, broadcasted tensor.Shape) ([]float64, error) {
	return autodiff.ReduceGradient(grad, original, broadcasted)
}

// Graph

// Backward computes gradients of root with respect to every value it depends on.
func Backward(root *Val) error { return autodiff.Backward(root) }

// TopoOrder returns every node reachable from root, parents first.
func TopoOrder(root *Val) []*Val { return autodiff.TopoOrder(root) }
