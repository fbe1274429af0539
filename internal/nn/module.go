// Package nn implements neural network layers on top of the autodiff value graph.
//
// This package provides building blocks for constructing small networks:
//   - Module interface: Base interface for all NN components
//   - Parameter: Named trainable value
//   - Linear: Fully connected layer
//   - Conv2D: 2D convolution over NHWC images
//   - Activations: ReLU, Sigmoid, Tanh, plus Flatten
//   - Loss functions: MSE, binary cross-entropy
//   - Sequential: Container for stacking layers
//
// Every Forward call builds new graph nodes from the current parameter
// values, so a fresh graph is produced per training iteration.
package nn

import (
	"github.com/born-ml/valgrad/internal/autodiff"
)

// Module is the base interface for all neural network components.
//
// Modules can be composed to build complex architectures:
//
//	model := nn.NewSequential(
//	    nn.NewLinear(2, 8, rng),
//	    nn.NewTanh(),
//	    nn.NewLinear(8, 1, rng),
//	    nn.NewSigmoid(),
//	)
type Module interface {
	// Forward computes the output of the module given an input value.
	//
	// The input should have the appropriate shape for this module.
	// For example, Linear expects [batch_size, in_features].
	Forward(input *autodiff.Val) (*autodiff.Val, error)

	// Parameters returns all trainable parameters of this module.
	//
	// Returns an empty slice for modules without trainable parameters
	// (e.g., activation functions).
	Parameters() []*Parameter
}
