package nn_test

import (
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/valgrad/autodiff"
	"github.com/born-ml/valgrad/nn"
	"github.com/born-ml/valgrad/tensor"
)

func TestPublicAPI(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	l1, err := nn.NewLinear(2, 3, rng)
	require.NoError(t, err)
	l2, err := nn.NewLinear(3, 1, rng)
	require.NoError(t, err)

	var model nn.Module = nn.NewSequential(l1, nn.NewReLU(), l2, nn.NewSigmoid())
	x := autodiff.Must(autodiff.New(tensor.Shape{4, 2}))
	out, err := model.Forward(x)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{4, 1}, out.Shape())
	assert.Equal(t, 2*3+3+3+1, nn.CountParameters(model.Parameters()))

	loss, err := nn.NewMSELoss().Forward(out, autodiff.Must(autodiff.New(tensor.Shape{4, 1})))
	require.NoError(t, err)
	require.NoError(t, loss.Backward())
	assert.Len(t, l2.Bias().Grad(), 1)
}

func TestCheckpoint(t *testing.T) {
	build := func(seed int64) *nn.Sequential {
		l, err := nn.NewLinear(3, 2, rand.New(rand.NewSource(seed)))
		require.NoError(t, err)
		return nn.NewSequential(l, nn.NewTanh())
	}
	path := filepath.Join(t.TempDir(), "tanh.born")

	src := build(1)
	require.NoError(t, nn.SaveCheckpoint(path, src, nil, nn.CheckpointMeta{Epoch: 7}))

	dst := build(2)
	meta, err := nn.LoadCheckpoint(path, dst, nil)
	require.NoError(t, err)
	assert.Equal(t, 7, meta.Epoch)
	for i, p := range dst.Parameters() {
		assert.Equal(t, src.Parameters()[i].Data(), p.Data())
	}
}
