// Package train runs mini-batch training loops over nn modules.
//
// A Trainer builds a fresh graph per batch from fresh leaf values, runs the
// backward pass, skips updates whose gradients are not finite, and steps
// the optimizer. Pause, resume and stop requests are honored between whole
// forward/backward cycles only.
package train

import (
	"fmt"
	"math/rand"

	"github.com/pkg/errors"

	"github.com/born-ml/valgrad/internal/autodiff"
	"github.com/born-ml/valgrad/internal/tensor"
)

// Dataset pairs inputs and targets. Rows are laid out along axis 0 of both.
type Dataset struct {
	X *autodiff.Val
	Y *autodiff.Val
}

// Batch is one mini-batch of fresh leaf values.
type Batch struct {
	X *autodiff.Val
	Y *autodiff.Val
}

// NewDataset checks that x and y hold the same number of rows.
func NewDataset(x, y *autodiff.Val) (*Dataset, error) {
	if x == nil || y == nil {
		return nil, errors.New("dataset: nil inputs or targets")
	}
	if x.Dim() == 0 || y.Dim() == 0 {
		return nil, tensor.NewShapeError("dataset", "inputs and targets need a row axis", x.Shape(), y.Shape())
	}
	if x.Shape()[0] != y.Shape()[0] {
		return nil, tensor.NewShapeError("dataset",
			fmt.Sprintf("row count mismatch: %d vs %d", x.Shape()[0], y.Shape()[0]), x.Shape(), y.Shape())
	}
	return &Dataset{X: x, Y: y}, nil
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	if d.X.Dim() == 0 {
		return 0
	}
	return d.X.Shape()[0]
}

// Batches splits the dataset into mini-batches of at most size rows. When
// rng is non-nil the rows are shuffled first. Every batch holds copies, so
// graphs built from one batch never alias the dataset.
func (d *Dataset) Batches(size int, rng *rand.Rand) ([]Batch, error) {
	if size <= 0 {
		return nil, errors.Errorf("dataset: batch size must be positive, got %d", size)
	}
	n := d.Len()
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	if rng != nil {
		rng.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })
	}

	var batches []Batch
	for start := 0; start < n; start += size {
		rows := order[start:min(start+size, n)]
		x, err := gather(d.X, rows)
		if err != nil {
			return nil, errors.Wrap(err, "dataset: inputs")
		}
		y, err := gather(d.Y, rows)
		if err != nil {
			return nil, errors.Wrap(err, "dataset: targets")
		}
		batches = append(batches, Batch{X: x, Y: y})
	}
	return batches, nil
}

// gather copies the given rows of v into a new leaf.
func gather(v *autodiff.Val, rows []int) (*autodiff.Val, error) {
	shape := v.Shape()
	stride := 1
	for _, d := range shape[1:] {
		stride *= d
	}
	data := v.Data()
	out := make([]float64, 0, len(rows)*stride)
	for _, r := range rows {
		out = append(out, data[r*stride:(r+1)*stride]...)
	}
	shape[0] = len(rows)
	return autodiff.FromSlice(out, shape)
}
