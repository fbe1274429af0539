package optim_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/valgrad/internal/autodiff"
	"github.com/born-ml/valgrad/internal/nn"
	"github.com/born-ml/valgrad/internal/optim"
	"github.com/born-ml/valgrad/internal/tensor"
)

func newParam(t *testing.T, name string, data ...float64) *nn.Parameter {
	t.Helper()
	v, err := autodiff.FromSlice(data, tensor.Shape{len(data)})
	require.NoError(t, err)
	return nn.NewParameter(name, v)
}

func setGrad(t *testing.T, p *nn.Parameter, grad ...float64) {
	t.Helper()
	require.NoError(t, p.Value().SetGrad(grad))
}

func TestSGD_SimpleUpdate(t *testing.T) {
	param := newParam(t, "x", 2.0)
	opt := optim.NewSGD([]*nn.Parameter{param}, optim.SGDConfig{LR: 0.1})
	setGrad(t, param, 1.0)

	require.NoError(t, opt.Step())
	assert.InDelta(t, 1.9, param.Data()[0], 1e-12)
	assert.Equal(t, 0.1, opt.LR())
	assert.Equal(t, 0, opt.State().Len(), "no velocity without momentum")
}

func TestSGD_WithMomentum(t *testing.T) {
	param := newParam(t, "x", 1.0)
	opt := optim.NewSGD([]*nn.Parameter{param}, optim.SGDConfig{LR: 0.1, Momentum: 0.9})

	setGrad(t, param, 1.0)
	require.NoError(t, opt.Step()) // v = 1, x = 0.9
	assert.InDelta(t, 0.9, param.Data()[0], 1e-12)

	setGrad(t, param, 1.0)
	require.NoError(t, opt.Step()) // v = 1.9, x = 0.71
	assert.InDelta(t, 0.71, param.Data()[0], 1e-12)

	v, ok := opt.State().Get("velocity.0")
	require.True(t, ok)
	assert.InDeltaSlice(t, []float64{1.9}, v, 1e-12)
}

func TestSGD_DefaultLR(t *testing.T) {
	opt := optim.NewSGD(nil, optim.SGDConfig{})
	assert.Equal(t, 0.01, opt.LR())
	opt.SetLR(0.5)
	assert.Equal(t, 0.5, opt.LR())
}

func TestSGD_StateRoundTrip(t *testing.T) {
	a := newParam(t, "a", 1, 2)
	opt := optim.NewSGD([]*nn.Parameter{a}, optim.SGDConfig{LR: 0.1, Momentum: 0.5})
	setGrad(t, a, 1, 1)
	require.NoError(t, opt.Step())

	b := newParam(t, "a", 1, 2)
	restored := optim.NewSGD([]*nn.Parameter{b}, optim.SGDConfig{LR: 0.1, Momentum: 0.5})
	require.NoError(t, restored.LoadState(opt.State()))

	setGrad(t, a, 1, 1)
	setGrad(t, b, 1, 1)
	require.NoError(t, opt.Step())
	require.NoError(t, restored.Step())
	assert.InDeltaSlice(t, []float64{1 - 0.1 - 0.15, 2 - 0.1 - 0.15}, a.Data(), 1e-12)
	assert.InDeltaSlice(t, []float64{1 - 0.15, 2 - 0.15}, b.Data(), 1e-12)

	bad := optim.NewSGD([]*nn.Parameter{newParam(t, "c", 1, 2, 3)}, optim.SGDConfig{Momentum: 0.5})
	assert.Error(t, bad.LoadState(opt.State()))
}

func TestAdam_FirstStep(t *testing.T) {
	param := newParam(t, "x", 1.0, -1.0)
	opt := optim.NewAdam([]*nn.Parameter{param}, optim.AdamConfig{LR: 0.1})
	setGrad(t, param, 0.5, -2.0)

	require.NoError(t, opt.Step())
	// With bias correction the first step moves each element by ~lr * sign(grad).
	assert.InDelta(t, 0.9, param.Data()[0], 1e-6)
	assert.InDelta(t, -0.9, param.Data()[1], 1e-6)
	assert.Equal(t, 1, opt.Steps())
}

func TestAdam_Defaults(t *testing.T) {
	opt := optim.NewAdam(nil, optim.AdamConfig{})
	assert.Equal(t, 0.001, opt.LR())
}

func TestAdam_StateRoundTrip(t *testing.T) {
	a := newParam(t, "a", 0.3)
	opt := optim.NewAdam([]*nn.Parameter{a}, optim.AdamConfig{LR: 0.05})
	for range 3 {
		setGrad(t, a, 0.7)
		require.NoError(t, opt.Step())
	}
	state := opt.State()
	var keys []string
	for pair := state.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	assert.Equal(t, []string{"t", "m.0", "v.0"}, keys)

	b := newParam(t, "a", a.Data()...)
	restored := optim.NewAdam([]*nn.Parameter{b}, optim.AdamConfig{LR: 0.05})
	require.NoError(t, restored.LoadState(state))
	assert.Equal(t, 3, restored.Steps())

	setGrad(t, a, -0.2)
	setGrad(t, b, -0.2)
	require.NoError(t, opt.Step())
	require.NoError(t, restored.Step())
	assert.Equal(t, a.Data(), b.Data())
}

func TestOptimizers_ZeroGrad(t *testing.T) {
	p := newParam(t, "x", 1, 2)
	setGrad(t, p, 3, 4)
	optim.NewAdam([]*nn.Parameter{p}, optim.AdamConfig{}).ZeroGrad()
	assert.Equal(t, []float64{0, 0}, p.Grad())
}

func TestSGD_MinimizesQuadratic(t *testing.T) {
	// f(x) = (x - 3)², minimized at 3.
	x := newParam(t, "x", 0)
	opt := optim.NewSGD([]*nn.Parameter{x}, optim.SGDConfig{LR: 0.1, Momentum: 0.5})
	for range 200 {
		diff := autodiff.Must(autodiff.Sub(x.Value(), autodiff.Scalar(3)))
		loss := autodiff.Must(autodiff.Pow(diff, 2))
		require.NoError(t, loss.Backward())
		require.NoError(t, opt.Step())
	}
	assert.InDelta(t, 3.0, x.Data()[0], 1e-6)
	assert.False(t, math.IsNaN(x.Data()[0]))
}
