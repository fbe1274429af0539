package train_test

import (
	"context"
	"math"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/valgrad/internal/autodiff"
	"github.com/born-ml/valgrad/internal/logutil"
	"github.com/born-ml/valgrad/internal/nn"
	"github.com/born-ml/valgrad/internal/optim"
	"github.com/born-ml/valgrad/internal/tensor"
	"github.com/born-ml/valgrad/internal/train"
)

func xorModel(t *testing.T, seed int64) *nn.Sequential {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	l1, err := nn.NewLinear(2, 8, rng)
	require.NoError(t, err)
	l2, err := nn.NewLinear(8, 1, rng)
	require.NoError(t, err)
	return nn.NewSequential(l1, nn.NewTanh(), l2, nn.NewSigmoid())
}

func newTrainer(model *nn.Sequential, data *train.Dataset, epochs int) *train.Trainer {
	return &train.Trainer{
		Model:     model,
		Loss:      nn.NewBCELoss(),
		Optimizer: optim.NewAdam(model.Parameters(), optim.AdamConfig{LR: 0.05}),
		Data:      data,
		Epochs:    epochs,
		Logger:    logutil.Discard(),
	}
}

func TestDatasetBatches(t *testing.T) {
	data := train.XOR()
	assert.Equal(t, 4, data.Len())

	batches, err := data.Batches(3, nil)
	require.NoError(t, err)
	require.Len(t, batches, 2)
	assert.Equal(t, tensor.Shape{3, 2}, batches[0].X.Shape())
	assert.Equal(t, tensor.Shape{1, 1}, batches[1].Y.Shape())
	assert.Equal(t, []float64{0, 0, 0, 1, 1, 0}, batches[0].X.Data())
	assert.Equal(t, []float64{0}, batches[1].Y.Data())

	batches[0].X.Data()[0] = 9
	assert.Equal(t, 0.0, data.X.Data()[0], "batches hold copies")

	_, err = data.Batches(0, nil)
	assert.Error(t, err)
}

func TestDatasetShuffleKeepsRowsPaired(t *testing.T) {
	data := train.XOR()
	batches, err := data.Batches(1, rand.New(rand.NewSource(3)))
	require.NoError(t, err)
	require.Len(t, batches, 4)

	seen := map[[2]float64]bool{}
	for _, b := range batches {
		x := b.X.Data()
		want := 0.0
		if x[0] != x[1] {
			want = 1
		}
		assert.Equal(t, []float64{want}, b.Y.Data())
		seen[[2]float64{x[0], x[1]}] = true
	}
	assert.Len(t, seen, 4)
}

func TestNewDatasetRejectsMismatch(t *testing.T) {
	x := autodiff.Must(autodiff.New(tensor.Shape{4, 2}))
	y := autodiff.Must(autodiff.New(tensor.Shape{3, 1}))
	_, err := train.NewDataset(x, y)
	assert.ErrorIs(t, err, tensor.ErrShape)

	_, err = train.NewDataset(x, autodiff.Scalar(1))
	assert.Error(t, err)

	d, err := train.NewDataset(x, autodiff.Must(autodiff.New(tensor.Shape{4, 1})))
	require.NoError(t, err)
	assert.Equal(t, 4, d.Len())
}

func TestSyntheticShapes(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	blobs := train.Blobs(10, rng)
	assert.Equal(t, tensor.Shape{10, 2}, blobs.X.Shape())
	assert.Equal(t, tensor.Shape{10, 1}, blobs.Y.Shape())

	stripes := train.Stripes(6, 5, rng)
	assert.Equal(t, tensor.Shape{6, 5, 5, 1}, stripes.X.Shape())
	assert.Equal(t, []float64{0, 1, 0, 1, 0, 1}, stripes.Y.Data())
}

func TestTrainerLearnsXOR(t *testing.T) {
	model := xorModel(t, 1)
	tr := newTrainer(model, train.XOR(), 1500)

	history, err := tr.Run(t.Context())
	require.NoError(t, err)
	require.Len(t, history, 1500)

	last := history.Last()
	assert.Less(t, last.Loss, 0.1)
	assert.Less(t, last.Loss, history[0].Loss)
	assert.Equal(t, 1, last.Steps)
	assert.Zero(t, last.Skipped)

	out, err := train.Predict(model, train.XOR().X)
	require.NoError(t, err)
	for i, want := range []float64{0, 1, 1, 0} {
		assert.InDelta(t, want, out[i], 0.3, "row %d", i)
	}
}

// poisonLoss returns an infinite loss on its first call.
type poisonLoss struct {
	inner nn.Loss
	calls int
}

func (p *poisonLoss) Forward(pred, target *autodiff.Val) (*autodiff.Val, error) {
	p.calls++
	loss, err := p.inner.Forward(pred, target)
	if err != nil || p.calls > 1 {
		return loss, err
	}
	return autodiff.Add(loss, autodiff.Scalar(math.Inf(1)))
}

func TestTrainerSkipsNonFiniteSteps(t *testing.T) {
	model := xorModel(t, 2)
	before := append([]float64(nil), model.Parameters()[0].Data()...)

	tr := newTrainer(model, train.XOR(), 2)
	tr.Loss = &poisonLoss{inner: nn.NewBCELoss()}

	history, err := tr.Run(t.Context())
	require.NoError(t, err)
	require.Len(t, history, 2)

	assert.Equal(t, 1, history[0].Skipped)
	assert.Equal(t, 0, history[0].Steps)
	assert.True(t, math.IsNaN(history[0].Loss))
	assert.Equal(t, 1, history[1].Steps)
	assert.NotEqual(t, before, model.Parameters()[0].Data(), "second epoch updates")
}

func TestTrainerStop(t *testing.T) {
	ctrl := &train.Control{}
	tr := newTrainer(xorModel(t, 3), train.XOR(), 100)
	tr.Control = ctrl
	tr.OnEpoch = func(s train.EpochStats) {
		if s.Epoch == 3 {
			ctrl.Stop()
		}
	}

	history, err := tr.Run(t.Context())
	require.NoError(t, err)
	assert.Len(t, history, 3)
	assert.True(t, ctrl.Stopped())
}

func TestTrainerContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	history, err := newTrainer(xorModel(t, 4), train.XOR(), 10).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, history)
}

func TestTrainerPauseResume(t *testing.T) {
	ctrl := &train.Control{}
	ctrl.Pause()

	var epochs atomic.Int32
	tr := newTrainer(xorModel(t, 5), train.XOR(), 5)
	tr.Control = ctrl
	tr.OnEpoch = func(train.EpochStats) { epochs.Add(1) }

	done := make(chan train.History, 1)
	go func() {
		h, err := tr.Run(context.Background())
		assert.NoError(t, err)
		done <- h
	}()

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, epochs.Load(), "paused trainer makes no progress")
	assert.True(t, ctrl.Paused())

	ctrl.Resume()
	select {
	case h := <-done:
		assert.Len(t, h, 5)
	case <-time.After(10 * time.Second):
		t.Fatal("trainer did not resume")
	}
}

func TestControlStopReleasesPause(t *testing.T) {
	ctrl := &train.Control{}
	ctrl.Pause()
	errc := make(chan error, 1)
	go func() { errc <- ctrl.Wait(context.Background()) }()

	ctrl.Stop()
	select {
	case err := <-errc:
		assert.ErrorIs(t, err, train.ErrStopped)
	case <-time.After(5 * time.Second):
		t.Fatal("Wait did not return after Stop")
	}
	assert.False(t, ctrl.Paused())

	ctrl.Pause()
	assert.False(t, ctrl.Paused(), "a stopped control cannot be paused")
}

func TestTrainerValidates(t *testing.T) {
	_, err := (&train.Trainer{}).Run(t.Context())
	assert.Error(t, err)
}

func TestTrainerStripesCNN(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	conv, err := nn.NewConv2D(1, 4, 3, 1, 0, rng)
	require.NoError(t, err)
	head, err := nn.NewLinear(4*4*4, 1, rng)
	require.NoError(t, err)
	model := nn.NewSequential(conv, nn.NewReLU(), nn.NewFlatten(), head, nn.NewSigmoid())

	data := train.Stripes(16, 6, rng)
	tr := &train.Trainer{
		Model:     model,
		Loss:      nn.NewBCELoss(),
		Optimizer: optim.NewAdam(model.Parameters(), optim.AdamConfig{LR: 0.02}),
		Data:      data,
		Epochs:    30,
		BatchSize: 8,
		Shuffle:   true,
		Seed:      11,
		Logger:    logutil.Discard(),
	}
	history, err := tr.Run(t.Context())
	require.NoError(t, err)
	require.Len(t, history, 30)
	assert.Equal(t, 2, history[0].Steps)
	assert.Less(t, history.Last().Loss, history[0].Loss)

	loss, acc, err := train.Evaluate(model, nn.NewBCELoss(), data, 0.5)
	require.NoError(t, err)
	assert.False(t, math.IsNaN(loss))
	assert.GreaterOrEqual(t, acc, 0.0)
}
