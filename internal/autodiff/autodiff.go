// Package autodiff implements the tensor value type and its reverse-mode
// automatic differentiation engine.
//
// Architecture:
//   - Val: flat float64 buffer, shape, gradient buffer and graph linkage
//   - OpKind: closed set of operation tags; one dispatcher replays gradients per tag
//   - Broadcast resolver: scalar and axis-aligned 2D expansion only
//   - Backward: iterative post-order DFS into an arena, zero every reachable
//     gradient, then replay rules in reverse arena order
//
// Usage:
//
//	a := autodiff.Scalar(2)
//	b := autodiff.Scalar(-3)
//	c := autodiff.Scalar(10)
//	ab, _ := autodiff.Mul(a, b)
//	out, _ := autodiff.Add(ab, c)
//	_ = out.Backward()
//	fmt.Println(a.Grad()) // [-3]
//
// Every operator returns (*Val, error). Errors are *tensor.ShapeError,
// *tensor.DimensionError or *tensor.GraphStateError; no partial Val is ever
// returned alongside an error.
//
// The package is single-threaded: a Val's gradient buffer is the accumulation
// point for every consumer, so concurrent forward or backward passes over a
// shared parent must be serialized by the caller.
package autodiff

import (
	"fmt"

	"github.com/born-ml/valgrad/internal/tensor"
)

// Val is a tensor value and a node of the computation graph.
//
// data and grad are exclusively owned by the Val. parents is a non-owning
// back-reference used only for graph traversal.
type Val struct {
	shape   tensor.Shape
	data    []float64
	grad    []float64
	op      OpKind
	parents []*Val
	attrs   opAttrs
}

// opAttrs carries the per-op constants the gradient dispatcher needs.
type opAttrs struct {
	exponent float64 // Pow
	divisor  float64 // Div
	stride   int     // Conv2D
	padding  int     // Conv2D
}

// New creates a zero-filled leaf with the given shape.
func New(shape tensor.Shape) (*Val, error) {
	return Full(shape, 0)
}

// Full creates a leaf with every element set to fill.
// Fails with a *tensor.DimensionError if any dimension is negative.
func Full(shape tensor.Shape, fill float64) (*Val, error) {
	if err := shape.Validate(); err != nil {
		return nil, tensor.NewDimensionError("new", err.Error(), shape)
	}
	v := newVal(shape.Clone())
	if fill != 0 {
		for i := range v.data {
			v.data[i] = fill
		}
	}
	return v, nil
}

// FromSlice creates a leaf holding a copy of data in the given shape.
func FromSlice(data []float64, shape tensor.Shape) (*Val, error) {
	if err := shape.Validate(); err != nil {
		return nil, tensor.NewDimensionError("from_slice", err.Error(), shape)
	}
	if shape.NumElements() != len(data) {
		return nil, tensor.NewShapeError("from_slice",
			fmt.Sprintf("shape requires %d elements, got %d", shape.NumElements(), len(data)), shape)
	}
	v := newVal(shape.Clone())
	copy(v.data, data)
	return v, nil
}

// FromNested creates a leaf from nested []float64 slices, inferring the shape
// from the nesting. A bare float64 yields a scalar.
func FromNested(nested any) (*Val, error) {
	shape, flat, err := flatten(nested)
	if err != nil {
		return nil, err
	}
	v := newVal(shape)
	copy(v.data, flat)
	return v, nil
}

// Scalar creates a scalar (shape []) leaf.
func Scalar(x float64) *Val {
	v := newVal(tensor.Shape{})
	v.data[0] = x
	return v
}

// Must unwraps an operator result, panicking on error.
// Intended for tests and examples that build known-good graphs.
func Must(v *Val, err error) *Val {
	if err != nil {
		panic(err)
	}
	return v
}

// newVal allocates data and grad for a validated shape.
func newVal(shape tensor.Shape) *Val {
	n := shape.NumElements()
	return &Val{
		shape: shape,
		data:  make([]float64, n),
		grad:  make([]float64, n),
		op:    OpLeaf,
	}
}

// newResult allocates an op output with its tag and parents already bound.
func newResult(shape tensor.Shape, op OpKind, parents ...*Val) *Val {
	v := newVal(shape)
	v.op = op
	v.parents = parents
	return v
}

// Shape returns a copy of the value's shape.
func (v *Val) Shape() tensor.Shape {
	return v.shape.Clone()
}

// Size returns the number of elements (1 for a scalar).
func (v *Val) Size() int {
	return v.shape.NumElements()
}

// Dim returns the rank.
func (v *Val) Dim() int {
	return len(v.shape)
}

// Data returns the row-major data buffer.
//
// WARNING: the slice aliases the Val's storage; writes are visible to the graph.
func (v *Val) Data() []float64 {
	return v.data
}

// SetData replaces the data buffer.
//
// Accepts either a flat []float64 holding exactly Size() elements in row-major
// order, or nested slices whose inferred shape equals Shape() dimension by
// dimension. On success the gradient is reset to zeros.
func (v *Val) SetData(data any) error {
	if flat, ok := data.([]float64); ok && len(v.shape) != 1 {
		if len(flat) != v.Size() {
			return tensor.NewShapeError("set_data",
				fmt.Sprintf("flat buffer has %d elements, want %d", len(flat), v.Size()), v.shape)
		}
		v.data = append([]float64(nil), flat...)
		v.grad = make([]float64, len(flat))
		return nil
	}

	shape, flat, err := flatten(data)
	if err != nil {
		return err
	}
	if !shape.Equal(v.shape) {
		return tensor.NewShapeError("set_data", "shape mismatch", v.shape, shape)
	}
	v.data = flat
	v.grad = make([]float64, len(flat))
	return nil
}

// Grad returns the gradient buffer.
func (v *Val) Grad() []float64 {
	return v.grad
}

// SetGrad replaces the gradient buffer with a copy of grad.
func (v *Val) SetGrad(grad []float64) error {
	if len(grad) != v.Size() {
		return tensor.NewGraphStateError("set_grad",
			fmt.Sprintf("gradient has %d elements, value has %d", len(grad), v.Size()))
	}
	v.grad = append(v.grad[:0:0], grad...)
	return nil
}

// ZeroGrad resets the gradient buffer to zeros, reallocating it if its length
// no longer matches the data.
func (v *Val) ZeroGrad() {
	if len(v.grad) != len(v.data) {
		v.grad = make([]float64, len(v.data))
		return
	}
	clear(v.grad)
}

// Item returns the single element of a size-1 value.
func (v *Val) Item() (float64, error) {
	if v.Size() != 1 {
		return 0, tensor.NewShapeError("item", "value has more than one element", v.shape)
	}
	return v.data[0], nil
}

// Op returns the tag of the operation that produced the value.
func (v *Val) Op() OpKind {
	return v.op
}

// Parents returns the values this one was computed from.
func (v *Val) Parents() []*Val {
	return append([]*Val(nil), v.parents...)
}

// IsLeaf reports whether the value has no parents.
func (v *Val) IsLeaf() bool {
	return len(v.parents) == 0
}

// Clone deep-copies data and grad and shares the operation tag, attributes and
// a shallow copy of the parent list.
func (v *Val) Clone() *Val {
	return &Val{
		shape:   v.shape.Clone(),
		data:    append([]float64(nil), v.data...),
		grad:    append([]float64(nil), v.grad...),
		op:      v.op,
		parents: append([]*Val(nil), v.parents...),
		attrs:   v.attrs,
	}
}

// Detach returns a leaf copy of the value's data with a fresh zero gradient.
func (v *Val) Detach() *Val {
	out := newVal(v.shape.Clone())
	copy(out.data, v.data)
	return out
}

// String implements fmt.Stringer.
func (v *Val) String() string {
	if v.Size() <= 8 {
		return fmt.Sprintf("Val(%s, shape=%v, data=%v)", v.op, v.shape, v.data)
	}
	return fmt.Sprintf("Val(%s, shape=%v, data=%v...)", v.op, v.shape, v.data[:8])
}
