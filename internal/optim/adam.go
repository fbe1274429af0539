package optim

import (
	"fmt"
	"math"

	"github.com/pkg/errors"

	"github.com/born-ml/valgrad/internal/nn"
)

// Adam implements the Adam (Adaptive Moment Estimation) optimizer.
//
// Update rule:
//
//	m_t = beta1 * m_{t-1} + (1-beta1) * gradient       // First moment
//	v_t = beta2 * v_{t-1} + (1-beta2) * gradient²      // Second moment
//	m_hat = m_t / (1 - beta1^t)                        // Bias correction
//	v_hat = v_t / (1 - beta2^t)                        // Bias correction
//	param = param - lr * m_hat / (sqrt(v_hat) + eps)   // Parameter update
//
// Reference: "Adam: A Method for Stochastic Optimization" (Kingma & Ba, 2014)
type Adam struct {
	params []*nn.Parameter
	lr     float64
	beta1  float64
	beta2  float64
	eps    float64
	t      int         // Timestep for bias correction
	m      [][]float64 // First moment estimates
	v      [][]float64 // Second moment estimates
}

// AdamConfig holds configuration for Adam optimizer.
type AdamConfig struct {
	LR    float64    // Learning rate (default: 0.001)
	Betas [2]float64 // Coefficients for computing running averages (default: [0.9, 0.999])
	Eps   float64    // Term for numerical stability (default: 1e-8)
}

// NewAdam creates a new Adam optimizer.
//
// Default hyperparameters:
//   - LR: 0.001
//   - Beta1: 0.9
//   - Beta2: 0.999
//   - Eps: 1e-8
func NewAdam(params []*nn.Parameter, config AdamConfig) *Adam {
	if config.LR == 0 {
		config.LR = 0.001
	}
	if config.Betas[0] == 0 {
		config.Betas[0] = 0.9
	}
	if config.Betas[1] == 0 {
		config.Betas[1] = 0.999
	}
	if config.Eps == 0 {
		config.Eps = 1e-8
	}

	a := &Adam{
		params: params,
		lr:     config.LR,
		beta1:  config.Betas[0],
		beta2:  config.Betas[1],
		eps:    config.Eps,
		m:      make([][]float64, len(params)),
		v:      make([][]float64, len(params)),
	}
	for i, p := range params {
		a.m[i] = make([]float64, p.Size())
		a.v[i] = make([]float64, p.Size())
	}
	return a
}

// Step performs a single optimization step using Adam algorithm.
func (a *Adam) Step() error {
	if err := checkGradients("adam", a.params); err != nil {
		return err
	}

	a.t++
	biasCorrection1 := 1.0 - math.Pow(a.beta1, float64(a.t))
	biasCorrection2 := 1.0 - math.Pow(a.beta2, float64(a.t))

	for i, param := range a.params {
		grad := param.Grad()
		m, v := a.m[i], a.v[i]
		data := param.Data()
		for j, g := range grad {
			m[j] = a.beta1*m[j] + (1.0-a.beta1)*g
			v[j] = a.beta2*v[j] + (1.0-a.beta2)*g*g
			mHat := m[j] / biasCorrection1
			vHat := v[j] / biasCorrection2
			data[j] -= a.lr * mHat / (math.Sqrt(vHat) + a.eps)
		}
	}
	return nil
}

// ZeroGrad clears gradients for all parameters.
func (a *Adam) ZeroGrad() {
	zeroGrads(a.params)
}

// LR returns the current learning rate.
func (a *Adam) LR() float64 {
	return a.lr
}

// SetLR updates the learning rate.
func (a *Adam) SetLR(lr float64) {
	a.lr = lr
}

// Steps returns the number of completed optimization steps.
func (a *Adam) Steps() int {
	return a.t
}

// State exports "m.<i>" and "v.<i>" per parameter plus the step counter
// under "t".
func (a *Adam) State() *State {
	state := NewState()
	state.Set("t", []float64{float64(a.t)})
	for i := range a.params {
		state.Set(fmt.Sprintf("m.%d", i), append([]float64(nil), a.m[i]...))
		state.Set(fmt.Sprintf("v.%d", i), append([]float64(nil), a.v[i]...))
	}
	return state
}

// LoadState restores moment buffers and the step counter exported by State.
func (a *Adam) LoadState(state *State) error {
	if t, ok := state.Get("t"); ok && len(t) == 1 {
		a.t = int(t[0])
	}
	for i := range a.params {
		if err := loadBuffer(state, fmt.Sprintf("m.%d", i), a.m[i]); err != nil {
			return errors.Wrap(err, "adam: load state")
		}
		if err := loadBuffer(state, fmt.Sprintf("v.%d", i), a.v[i]); err != nil {
			return errors.Wrap(err, "adam: load state")
		}
	}
	return nil
}
