package nn

import (
	"fmt"
	"math/rand"

	"github.com/pkg/errors"

	"github.com/born-ml/valgrad/internal/autodiff"
	"github.com/born-ml/valgrad/internal/tensor"
)

// Linear implements a fully connected (dense) layer.
//
// Performs the transformation: y = x · W + b
// where:
//   - x is the input with shape [batch_size, in_features]
//   - W is the weight matrix with shape [in_features, out_features]
//   - b is the bias row with shape [1, out_features]
//   - y is the output with shape [batch_size, out_features]
//
// The bias row is added through [1,N] broadcasting, so its gradient is the
// column sum of the output gradient.
//
// Example:
//
//	rng := rand.New(rand.NewSource(1))
//	layer, _ := nn.NewLinear(2, 8, rng)
//	out, err := layer.Forward(x) // x: [4, 2] -> out: [4, 8]
type Linear struct {
	inFeatures  int
	outFeatures int
	weight      *Parameter // [in_features, out_features]
	bias        *Parameter // [1, out_features]
}

// NewLinear creates a new Linear layer.
//
// Weights are initialized using Xavier/Glorot uniform distribution.
// Biases are initialized to zeros.
func NewLinear(inFeatures, outFeatures int, rng *rand.Rand) (*Linear, error) {
	if inFeatures <= 0 || outFeatures <= 0 {
		return nil, errors.Errorf("linear: invalid features in=%d, out=%d", inFeatures, outFeatures)
	}

	w, err := Xavier(inFeatures, outFeatures, tensor.Shape{inFeatures, outFeatures}, rng)
	if err != nil {
		return nil, errors.Wrap(err, "linear: weight")
	}
	b, err := Zeros(tensor.Shape{1, outFeatures})
	if err != nil {
		return nil, errors.Wrap(err, "linear: bias")
	}

	return &Linear{
		inFeatures:  inFeatures,
		outFeatures: outFeatures,
		weight:      NewParameter("weight", w),
		bias:        NewParameter("bias", b),
	}, nil
}

// Forward computes x · W + b.
//
// Input shape: [batch_size, in_features]
// Output shape: [batch_size, out_features]
func (l *Linear) Forward(input *autodiff.Val) (*autodiff.Val, error) {
	shape := input.Shape()
	if len(shape) != 2 || shape[1] != l.inFeatures {
		return nil, tensor.NewShapeError("linear",
			fmt.Sprintf("expected input [batch, %d]", l.inFeatures), shape)
	}

	out, err := autodiff.Dot(input, l.weight.Value())
	if err != nil {
		return nil, errors.Wrap(err, "linear")
	}
	out, err = autodiff.Add(out, l.bias.Value())
	if err != nil {
		return nil, errors.Wrap(err, "linear")
	}
	return out, nil
}

// Parameters returns [weight, bias].
func (l *Linear) Parameters() []*Parameter {
	return []*Parameter{l.weight, l.bias}
}

// Weight returns the weight parameter.
func (l *Linear) Weight() *Parameter {
	return l.weight
}

// Bias returns the bias parameter.
func (l *Linear) Bias() *Parameter {
	return l.bias
}

// InFeatures returns the number of input features.
func (l *Linear) InFeatures() int {
	return l.inFeatures
}

// OutFeatures returns the number of output features.
func (l *Linear) OutFeatures() int {
	return l.outFeatures
}

func (l *Linear) String() string {
	return fmt.Sprintf("Linear(%d -> %d)", l.inFeatures, l.outFeatures)
}
