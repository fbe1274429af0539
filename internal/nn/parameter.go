package nn

import (
	"github.com/born-ml/valgrad/internal/autodiff"
	"github.com/born-ml/valgrad/internal/tensor"
)

// Parameter represents a trainable parameter in a neural network.
//
// A Parameter wraps a leaf Val. Its gradient is the Val's own gradient
// buffer, filled by Backward and consumed by an optimizer.
//
// Example:
//
//	weight := nn.NewParameter("weight", w)
//	out, _ := autodiff.Dot(x, weight.Value())
//	_ = loss.Backward()
//	g := weight.Grad()
type Parameter struct {
	name  string        // Parameter name (e.g., "weight", "bias")
	value *autodiff.Val // The parameter value
}

// NewParameter creates a new trainable parameter.
func NewParameter(name string, v *autodiff.Val) *Parameter {
	return &Parameter{name: name, value: v}
}

// Name returns the parameter name.
func (p *Parameter) Name() string {
	return p.name
}

// Value returns the underlying leaf value.
func (p *Parameter) Value() *autodiff.Val {
	return p.value
}

// Data returns the parameter data buffer. Optimizers update it in place.
func (p *Parameter) Data() []float64 {
	return p.value.Data()
}

// Grad returns the gradient accumulated by the last backward pass.
func (p *Parameter) Grad() []float64 {
	return p.value.Grad()
}

// Shape returns the parameter shape.
func (p *Parameter) Shape() tensor.Shape {
	return p.value.Shape()
}

// Size returns the number of scalar elements.
func (p *Parameter) Size() int {
	return p.value.Size()
}

// ZeroGrad clears the gradient buffer.
func (p *Parameter) ZeroGrad() {
	p.value.ZeroGrad()
}

// ZeroGrad clears the gradients of every parameter in params.
func ZeroGrad(params []*Parameter) {
	for _, p := range params {
		p.ZeroGrad()
	}
}

// CountParameters returns the total number of scalar elements in params.
func CountParameters(params []*Parameter) int {
	n := 0
	for _, p := range params {
		n += p.Size()
	}
	return n
}
