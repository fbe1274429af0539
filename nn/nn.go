// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides neural network layers, losses and metrics built on
// autodiff values.
//
// Example:
//
//	rng := rand.New(rand.NewSource(1))
//	l1, _ := nn.NewLinear(2, 8, rng)
//	l2, _ := nn.NewLinear(8, 1, rng)
//	model := nn.NewSequential(l1, nn.NewTanh(), l2, nn.NewSigmoid())
//
//	out, _ := model.Forward(x)
//	loss, _ := nn.NewBCELoss().Forward(out, y)
//	_ = loss.Backward()
package nn

import (
	"math/rand"

	"github.com/born-ml/valgrad/autodiff"
	"github.com/born-ml/valgrad/internal/nn"
	"github.com/born-ml/valgrad/internal/serialization"
	"github.com/born-ml/valgrad/tensor"
)

// Module interface defines the common interface for all neural network modules.
type Module = nn.Module

// Parameter represents a trainable parameter in a neural network.
type Parameter = nn.Parameter

// NewParameter creates a new parameter with the given name and value.
func NewParameter(name string, v *autodiff.Val) *Parameter {
	return nn.NewParameter(name, v)
}

// ZeroGrad clears the gradients of every parameter in params.
func ZeroGrad(params []*Parameter) { nn.ZeroGrad(params) }

// CountParameters returns the total number of scalar elements in params.
func CountParameters(params []*Parameter) int { return nn.CountParameters(params) }

// Layers

// Linear represents a fully connected (dense) layer.
type Linear = nn.Linear

// NewLinear creates a new linear layer with Xavier initialization.
//
// Example:
//
//	layer, err := nn.NewLinear(784, 128, rand.New(rand.NewSource(1)))
func NewLinear(inFeatures, outFeatures int, rng *rand.Rand) (*Linear, error) {
	return nn.NewLinear(inFeatures, outFeatures, rng)
}

// Conv2D represents a 2D convolutional layer over NHWC images.
type Conv2D = nn.Conv2D

// NewConv2D creates a new 2D convolutional layer.
//
// Example:
//
//	conv, err := nn.NewConv2D(1, 8, 3, 1, 1, rng) // in=1, out=8, kernel=3x3, stride=1, padding=1
func NewConv2D(inChannels, outChannels, kernelSize, stride, padding int, rng *rand.Rand) (*Conv2D, error) {
	return nn.NewConv2D(inChannels, outChannels, kernelSize, stride, padding, rng)
}

// Sequential chains modules.
type Sequential = nn.Sequential

// NewSequential creates a new Sequential container.
func NewSequential(modules ...Module) *Sequential { return nn.NewSequential(modules...) }

// Activations

// ReLU is a Rectified Linear Unit activation module.
type ReLU = nn.ReLU

// NewReLU creates a new ReLU activation module.
func NewReLU() *ReLU { return nn.NewReLU() }

// Sigmoid is a sigmoid activation module.
type Sigmoid = nn.Sigmoid

// NewSigmoid creates a new Sigmoid activation module.
func NewSigmoid() *Sigmoid { return nn.NewSigmoid() }

// Tanh is a hyperbolic tangent activation module.
type Tanh = nn.Tanh

// NewTanh creates a new Tanh activation module.
func NewTanh() *Tanh { return nn.NewTanh() }

// Flatten reshapes [B, ...] into [B, rest].
type Flatten = nn.Flatten

// NewFlatten creates a new Flatten module.
func NewFlatten() *Flatten { return nn.NewFlatten() }

// Loss functions

// Loss maps predictions and targets to a single-element value.
type Loss = nn.Loss

// MSELoss computes Mean Squared Error loss.
type MSELoss = nn.MSELoss

// NewMSELoss creates a new MSE loss function.
func NewMSELoss() *MSELoss { return nn.NewMSELoss() }

// BCELoss computes binary cross-entropy over probabilities.
type BCELoss = nn.BCELoss

// NewBCELoss creates a binary cross-entropy loss.
func NewBCELoss() *BCELoss { return nn.NewBCELoss() }

// Metrics

// BinaryAccuracy returns the fraction of thresholded predictions that match
// the targets, or 0 for empty input.
func BinaryAccuracy(predictions, targets *autodiff.Val, threshold float64) (float64, error) {
	return nn.BinaryAccuracy(predictions, targets, threshold)
}

// Initialization

// Xavier returns a value drawn from the Glorot uniform distribution.
func Xavier(fanIn, fanOut int, shape tensor.Shape, rng *rand.Rand) (*autodiff.Val, error) {
	return nn.Xavier(fanIn, fanOut, shape, rng)
}

// Checkpoints

// CheckpointMeta is the training state stored alongside a checkpoint.
type CheckpointMeta = serialization.CheckpointMeta

// OptimizerState is an optimizer whose buffers can be checkpointed.
type OptimizerState = serialization.Stateful

// SaveCheckpoint writes the parameters of model and, when opt is non-nil,
// its buffers to a .born file.
func SaveCheckpoint(path string, model *Sequential, opt OptimizerState, meta CheckpointMeta) error {
	return serialization.SaveCheckpoint(path, model, opt, meta)
}

// LoadCheckpoint restores model and, when opt is non-nil, its buffers from a
// .born file written by SaveCheckpoint.
func LoadCheckpoint(path string, model *Sequential, opt OptimizerState) (CheckpointMeta, error) {
	return serialization.LoadCheckpoint(path, model, opt)
}
