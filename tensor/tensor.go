// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides shapes and the error taxonomy shared by every
// operator.
//
// Errors can be matched by type with errors.As or by kind with errors.Is
// against ErrShape, ErrDimension and ErrGraphState.
package tensor

import (
	"github.com/born-ml/valgrad/internal/tensor"
)

// Shape lists the dimensions of a value, outermost first.
type Shape = tensor.Shape

// ShapeError reports operands whose shapes are incompatible.
type ShapeError = tensor.ShapeError

// DimensionError reports an invalid reshape or unsupported rank.
type DimensionError = tensor.DimensionError

// GraphStateError reports a graph that cannot be differentiated.
type GraphStateError = tensor.GraphStateError

// Sentinels for errors.Is.
var (
	ErrShape      = tensor.ErrShape
	ErrDimension  = tensor.ErrDimension
	ErrGraphState = tensor.ErrGraphState
)
