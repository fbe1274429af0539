// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package train runs mini-batch training loops and ships small synthetic
// datasets for demos.
package train

import (
	"math/rand"

	"github.com/born-ml/valgrad/autodiff"
	"github.com/born-ml/valgrad/internal/train"
	"github.com/born-ml/valgrad/nn"
)

// Dataset pairs inputs and targets along axis 0.
type Dataset = train.Dataset

// Batch is one mini-batch of fresh leaf values.
type Batch = train.Batch

// NewDataset checks that x and y hold the same number of rows.
func NewDataset(x, y *autodiff.Val) (*Dataset, error) { return train.NewDataset(x, y) }

// Trainer runs mini-batch gradient descent.
type Trainer = train.Trainer

// Control pauses, resumes or stops a running Trainer.
type Control = train.Control

// EpochStats summarizes one pass over the dataset.
type EpochStats = train.EpochStats

// History is the per-epoch record of a training run.
type History = train.History

// ErrStopped is returned by Control.Wait after Stop.
var ErrStopped = train.ErrStopped

// Evaluate returns the loss and binary accuracy of model over data.
func Evaluate(model nn.Module, loss nn.Loss, data *Dataset, threshold float64) (float64, float64, error) {
	return train.Evaluate(model, loss, data, threshold)
}

// XOR returns the four-row XOR truth table.
func XOR() *Dataset { return train.XOR() }

// Blobs returns n points from two Gaussian clusters.
func Blobs(n int, rng *rand.Rand) *Dataset { return train.Blobs(n, rng) }

// Stripes returns n size×size images of horizontal (1) or vertical (0) stripes.
func Stripes(n, size int, rng *rand.Rand) *Dataset { return train.Stripes(n, size, rng) }
