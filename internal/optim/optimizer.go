// Package optim implements optimization algorithms for training neural networks.
//
// This package provides:
//   - Optimizer interface: Base interface for all optimizers
//   - SGD: Stochastic Gradient Descent with momentum
//   - Adam: Adaptive Moment Estimation
//
// Optimizers read each parameter's gradient buffer, filled by the last
// backward pass, and update the parameter data in place.
//
// Example usage:
//
//	optimizer := optim.NewAdam(model.Parameters(), optim.AdamConfig{LR: 0.01})
//
//	for range epochs {
//	    out, _ := model.Forward(x)
//	    loss, _ := lossFn.Forward(out, y)
//	    if err := loss.Backward(); err != nil {
//	        return err
//	    }
//	    if err := optimizer.Step(); err != nil {
//	        return err
//	    }
//	}
package optim

import (
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/born-ml/valgrad/internal/nn"
	"github.com/born-ml/valgrad/internal/tensor"
)

// Optimizer is the base interface for all optimization algorithms.
type Optimizer interface {
	// Step applies gradient updates to all parameters.
	//
	// A parameter whose gradient buffer does not match its data is a
	// *tensor.GraphStateError; no parameter is updated in that case.
	Step() error

	// ZeroGrad clears all parameter gradients.
	ZeroGrad()

	// LR returns the current learning rate.
	LR() float64
}

// State is an optimizer's per-parameter buffers keyed "<buffer>.<param index>".
type State = orderedmap.OrderedMap[string, []float64]

// NewState returns an empty State.
func NewState() *State {
	return orderedmap.New[string, []float64]()
}

// checkGradients validates every parameter before any update is applied.
func checkGradients(op string, params []*nn.Parameter) error {
	for i, p := range params {
		if len(p.Grad()) != len(p.Data()) {
			return tensor.NewGraphStateError(op,
				fmt.Sprintf("parameter %d (%s): gradient has %d elements, data has %d",
					i, p.Name(), len(p.Grad()), len(p.Data())))
		}
	}
	return nil
}

// zeroGrads clears gradients for all parameters.
func zeroGrads(params []*nn.Parameter) {
	nn.ZeroGrad(params)
}

// loadBuffer copies state[key] into dst after a length check. A missing key
// leaves dst untouched.
func loadBuffer(state *State, key string, dst []float64) error {
	src, ok := state.Get(key)
	if !ok {
		return nil
	}
	if len(src) != len(dst) {
		return fmt.Errorf("%s: expected %d elements, got %d", key, len(dst), len(src))
	}
	copy(dst, src)
	return nil
}
