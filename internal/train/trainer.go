package train

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/pkg/errors"

	"github.com/born-ml/valgrad/internal/autodiff"
	"github.com/born-ml/valgrad/internal/nn"
	"github.com/born-ml/valgrad/internal/optim"
)

// EpochStats summarizes one pass over the dataset.
type EpochStats struct {
	Epoch    int
	Loss     float64 // mean loss over batches that produced an update
	Accuracy float64 // binary accuracy over the epoch; 0 when not applicable
	Steps    int     // optimizer steps taken
	Skipped  int     // batches dropped for non-finite loss or gradients
	Elapsed  time.Duration
}

// History is the per-epoch record of a training run.
type History []EpochStats

// Last returns the final epoch, or the zero value for an empty history.
func (h History) Last() EpochStats {
	if len(h) == 0 {
		return EpochStats{}
	}
	return h[len(h)-1]
}

// Trainer runs mini-batch gradient descent.
//
// Example:
//
//	tr := &train.Trainer{
//	    Model:     model,
//	    Loss:      nn.NewBCELoss(),
//	    Optimizer: optim.NewAdam(model.Parameters(), optim.AdamConfig{LR: 0.05}),
//	    Data:      train.XOR(),
//	    Epochs:    500,
//	    BatchSize: 4,
//	}
//	history, err := tr.Run(ctx)
type Trainer struct {
	Model     nn.Module
	Loss      nn.Loss
	Optimizer optim.Optimizer
	Data      *Dataset

	Epochs    int
	BatchSize int   // 0 uses the whole dataset as one batch
	Seed      int64 // shuffling seed; rows are not shuffled when Shuffle is false
	Shuffle   bool

	// Threshold for binary accuracy. Accuracy is only reported when the
	// model output has the same shape as the targets.
	Threshold float64

	Logger  *slog.Logger
	Control *Control

	// OnEpoch, when set, is called after every epoch.
	OnEpoch func(EpochStats)
}

func (t *Trainer) validate() error {
	switch {
	case t.Model == nil:
		return errors.New("trainer: nil model")
	case t.Loss == nil:
		return errors.New("trainer: nil loss")
	case t.Optimizer == nil:
		return errors.New("trainer: nil optimizer")
	case t.Data == nil:
		return errors.New("trainer: nil dataset")
	case t.Epochs < 0:
		return errors.Errorf("trainer: negative epochs %d", t.Epochs)
	case t.BatchSize < 0:
		return errors.Errorf("trainer: negative batch size %d", t.BatchSize)
	}
	return nil
}

// Run trains for Epochs passes over Data.
//
// Stop ends the run after the current cycle and returns the history so far
// with a nil error. Context cancellation returns the history so far with the
// context's error. Any other error aborts the run.
func (t *Trainer) Run(ctx context.Context) (History, error) {
	if err := t.validate(); err != nil {
		return nil, err
	}
	logger := t.Logger
	if logger == nil {
		logger = slog.Default()
	}
	control := t.Control
	if control == nil {
		control = &Control{}
	}
	batchSize := t.BatchSize
	if batchSize == 0 {
		batchSize = max(t.Data.Len(), 1)
	}
	var rng *rand.Rand
	if t.Shuffle {
		//nolint:gosec // shuffling is not security-critical
		rng = rand.New(rand.NewSource(t.Seed))
	}

	history := make(History, 0, t.Epochs)
	for epoch := 1; epoch <= t.Epochs; epoch++ {
		start := time.Now()
		batches, err := t.Data.Batches(batchSize, rng)
		if err != nil {
			return history, err
		}

		stats := EpochStats{Epoch: epoch}
		var lossSum, correct float64
		var rows int
		accuracyValid := true
		for i, b := range batches {
			if err := control.Wait(ctx); err != nil {
				if errors.Is(err, ErrStopped) {
					logger.Info("training stopped", "epoch", epoch, "batch", i)
					return history, nil
				}
				return history, err
			}

			res, err := t.step(b)
			if err != nil {
				return history, errors.Wrapf(err, "epoch %d batch %d", epoch, i)
			}
			if res.skipped {
				stats.Skipped++
				logger.Warn("skipping update: non-finite loss or gradient",
					"epoch", epoch, "batch", i, "loss", res.loss)
				continue
			}
			stats.Steps++
			lossSum += res.loss
			if res.accuracy < 0 {
				accuracyValid = false
			} else {
				correct += res.accuracy * float64(res.rows)
				rows += res.rows
			}
			logger.Debug("batch", "epoch", epoch, "batch", i, "loss", res.loss)
		}

		if stats.Steps > 0 {
			stats.Loss = lossSum / float64(stats.Steps)
		} else {
			stats.Loss = math.NaN()
		}
		if accuracyValid && rows > 0 {
			stats.Accuracy = correct / float64(rows)
		}
		stats.Elapsed = time.Since(start)
		history = append(history, stats)

		logger.Log(ctx, epochLevel(epoch, t.Epochs), "epoch",
			"epoch", epoch, "loss", stats.Loss, "accuracy", stats.Accuracy,
			"steps", stats.Steps, "skipped", stats.Skipped, "elapsed", stats.Elapsed)
		if t.OnEpoch != nil {
			t.OnEpoch(stats)
		}
	}
	return history, nil
}

// epochLevel keeps long runs readable: the first, last and every tenth
// epoch log at Info, the rest at Debug.
func epochLevel(epoch, total int) slog.Level {
	if epoch == 1 || epoch == total || epoch%10 == 0 {
		return slog.LevelInfo
	}
	return slog.LevelDebug
}

type stepResult struct {
	loss     float64
	accuracy float64 // -1 when the output and target shapes differ
	rows     int
	skipped  bool
}

// step runs one forward/backward cycle on a fresh graph and applies the
// update unless the loss or any gradient is non-finite.
func (t *Trainer) step(b Batch) (stepResult, error) {
	out, err := t.Model.Forward(b.X)
	if err != nil {
		return stepResult{}, errors.Wrap(err, "forward")
	}
	loss, err := t.Loss.Forward(out, b.Y)
	if err != nil {
		return stepResult{}, errors.Wrap(err, "loss")
	}
	lossValue, err := loss.Item()
	if err != nil {
		return stepResult{}, errors.Wrap(err, "loss")
	}
	if err := loss.Backward(); err != nil {
		return stepResult{}, errors.Wrap(err, "backward")
	}

	res := stepResult{loss: lossValue, accuracy: -1, rows: b.X.Shape()[0]}
	params := t.Model.Parameters()
	if !finite(lossValue) || !gradientsFinite(params) {
		res.skipped = true
		nn.ZeroGrad(params)
		return res, nil
	}
	if err := t.Optimizer.Step(); err != nil {
		return stepResult{}, errors.Wrap(err, "optimizer")
	}

	if acc, err := nn.BinaryAccuracy(out, b.Y, t.threshold()); err == nil {
		res.accuracy = acc
	}
	return res, nil
}

func (t *Trainer) threshold() float64 {
	if t.Threshold == 0 {
		return 0.5
	}
	return t.Threshold
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

func gradientsFinite(params []*nn.Parameter) bool {
	for _, p := range params {
		for _, g := range p.Grad() {
			if !finite(g) {
				return false
			}
		}
	}
	return true
}

// Evaluate runs the model over the whole dataset without updating it and
// returns the loss and, when shapes allow, the binary accuracy.
func Evaluate(model nn.Module, loss nn.Loss, data *Dataset, threshold float64) (float64, float64, error) {
	out, err := model.Forward(data.X)
	if err != nil {
		return 0, 0, errors.Wrap(err, "evaluate: forward")
	}
	l, err := loss.Forward(out, data.Y)
	if err != nil {
		return 0, 0, errors.Wrap(err, "evaluate: loss")
	}
	value, err := l.Item()
	if err != nil {
		return 0, 0, errors.Wrap(err, "evaluate: loss")
	}
	acc, err := nn.BinaryAccuracy(out, data.Y, threshold)
	if err != nil {
		acc = 0
	}
	return value, acc, nil
}

// Predict runs the model on x and returns the output data.
func Predict(model nn.Module, x *autodiff.Val) ([]float64, error) {
	out, err := model.Forward(x)
	if err != nil {
		return nil, errors.Wrap(err, "predict")
	}
	return out.Data(), nil
}
