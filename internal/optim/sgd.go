package optim

import (
	"fmt"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/born-ml/valgrad/internal/nn"
)

// SGD implements Stochastic Gradient Descent optimizer with optional momentum.
//
// Update rule without momentum:
//
//	param = param - lr * gradient
//
// Update rule with momentum:
//
//	velocity = momentum * velocity + gradient
//	param = param - lr * velocity
//
// Example:
//
//	optimizer := optim.NewSGD(model.Parameters(), optim.SGDConfig{
//	    LR:       0.1,
//	    Momentum: 0.9,
//	})
type SGD struct {
	params     []*nn.Parameter
	lr         float64
	momentum   float64
	velocities [][]float64 // one per parameter, allocated lazily
}

// SGDConfig holds configuration for SGD optimizer.
type SGDConfig struct {
	LR       float64 // Learning rate (default: 0.01)
	Momentum float64 // Momentum factor (default: 0.0, range: [0, 1))
}

// NewSGD creates a new SGD optimizer.
func NewSGD(params []*nn.Parameter, config SGDConfig) *SGD {
	if config.LR == 0 {
		config.LR = 0.01
	}
	return &SGD{
		params:     params,
		lr:         config.LR,
		momentum:   config.Momentum,
		velocities: make([][]float64, len(params)),
	}
}

// Step performs a single optimization step.
func (s *SGD) Step() error {
	if err := checkGradients("sgd", s.params); err != nil {
		return err
	}
	for i, param := range s.params {
		grad := param.Grad()
		if s.momentum == 0 {
			floats.AddScaled(param.Data(), -s.lr, grad)
			continue
		}

		if s.velocities[i] == nil {
			s.velocities[i] = make([]float64, len(grad))
		}
		v := s.velocities[i]
		floats.Scale(s.momentum, v)
		floats.Add(v, grad)
		floats.AddScaled(param.Data(), -s.lr, v)
	}
	return nil
}

// ZeroGrad clears gradients for all parameters.
func (s *SGD) ZeroGrad() {
	zeroGrads(s.params)
}

// LR returns the current learning rate.
func (s *SGD) LR() float64 {
	return s.lr
}

// SetLR updates the learning rate.
func (s *SGD) SetLR(lr float64) {
	s.lr = lr
}

// State exports velocity buffers as "velocity.<param index>".
// Without momentum, or before the first step, the state is empty.
func (s *SGD) State() *State {
	state := NewState()
	for i, v := range s.velocities {
		if v != nil {
			state.Set(fmt.Sprintf("velocity.%d", i), append([]float64(nil), v...))
		}
	}
	return state
}

// LoadState restores velocity buffers exported by State.
func (s *SGD) LoadState(state *State) error {
	for i, p := range s.params {
		key := fmt.Sprintf("velocity.%d", i)
		if _, ok := state.Get(key); !ok {
			continue
		}
		v := make([]float64, p.Size())
		if err := loadBuffer(state, key, v); err != nil {
			return errors.Wrap(err, "sgd: load state")
		}
		s.velocities[i] = v
	}
	return nil
}
