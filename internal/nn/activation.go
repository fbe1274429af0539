package nn

import (
	"github.com/born-ml/valgrad/internal/autodiff"
	"github.com/born-ml/valgrad/internal/tensor"
)

// ReLU is a Rectified Linear Unit activation module.
//
// Applies the element-wise function: f(x) = max(0, x)
type ReLU struct{}

// NewReLU creates a new ReLU activation module.
func NewReLU() *ReLU {
	return &ReLU{}
}

// Forward applies ReLU activation.
func (r *ReLU) Forward(input *autodiff.Val) (*autodiff.Val, error) {
	return autodiff.ReLU(input)
}

// Parameters returns nil (ReLU has no trainable parameters).
func (r *ReLU) Parameters() []*Parameter {
	return nil
}

func (r *ReLU) String() string { return "ReLU" }

// Sigmoid is a sigmoid activation module.
//
// Applies the element-wise function: σ(x) = 1 / (1 + exp(-x))
//
// Sigmoid squashes values to the range (0, 1), which pairs it with
// BCELoss for binary classification.
type Sigmoid struct{}

// NewSigmoid creates a new Sigmoid activation module.
func NewSigmoid() *Sigmoid {
	return &Sigmoid{}
}

// Forward applies Sigmoid activation.
func (s *Sigmoid) Forward(input *autodiff.Val) (*autodiff.Val, error) {
	return autodiff.Sigmoid(input)
}

// Parameters returns nil (Sigmoid has no trainable parameters).
func (s *Sigmoid) Parameters() []*Parameter {
	return nil
}

func (s *Sigmoid) String() string { return "Sigmoid" }

// Tanh is a hyperbolic tangent activation module.
//
// Applies the element-wise function: tanh(x), range (-1, 1).
type Tanh struct{}

// NewTanh creates a new Tanh activation module.
func NewTanh() *Tanh {
	return &Tanh{}
}

// Forward applies Tanh activation.
func (t *Tanh) Forward(input *autodiff.Val) (*autodiff.Val, error) {
	return autodiff.Tanh(input)
}

// Parameters returns nil (Tanh has no trainable parameters).
func (t *Tanh) Parameters() []*Parameter {
	return nil
}

func (t *Tanh) String() string { return "Tanh" }

// Flatten reshapes [B, d1, d2, ...] into [B, d1*d2*...].
//
// Used between convolutional and linear layers.
type Flatten struct{}

// NewFlatten creates a new Flatten module.
func NewFlatten() *Flatten {
	return &Flatten{}
}

// Forward flattens every axis after the first.
func (f *Flatten) Forward(input *autodiff.Val) (*autodiff.Val, error) {
	shape := input.Shape()
	if len(shape) < 1 {
		return nil, tensor.NewShapeError("flatten", "input must have a batch axis", shape)
	}
	rest := 1
	for _, d := range shape[1:] {
		rest *= d
	}
	return input.Reshape(shape[0], rest)
}

// Parameters returns nil (Flatten has no trainable parameters).
func (f *Flatten) Parameters() []*Parameter {
	return nil
}

func (f *Flatten) String() string { return "Flatten" }
