package tensor

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels for errors.Is checks against the concrete error types below.
var (
	ErrShape      = errors.New("shape error")
	ErrDimension  = errors.New("dimension error")
	ErrGraphState = errors.New("graph state error")
)

// ShapeError reports operand shapes that are incompatible for an operation:
// unsupported broadcast patterns, inner-dimension mismatches, wrong ranks.
type ShapeError struct {
	Op     string
	Reason string
	Shapes []Shape
}

// NewShapeError builds a *ShapeError.
func NewShapeError(op, reason string, shapes ...Shape) *ShapeError {
	return &ShapeError{Op: op, Reason: reason, Shapes: shapes}
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: %s%s", e.Op, e.Reason, formatShapes(e.Shapes))
}

// Is matches ErrShape.
func (e *ShapeError) Is(target error) bool {
	return target == ErrShape
}

// DimensionError reports a structural op (reshape, transpose) whose target is
// incompatible with the source element count or rank.
type DimensionError struct {
	Op     string
	Reason string
	Shapes []Shape
}

// NewDimensionError builds a *DimensionError.
func NewDimensionError(op, reason string, shapes ...Shape) *DimensionError {
	return &DimensionError{Op: op, Reason: reason, Shapes: shapes}
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("%s: %s%s", e.Op, e.Reason, formatShapes(e.Shapes))
}

// Is matches ErrDimension.
func (e *DimensionError) Is(target error) bool {
	return target == ErrDimension
}

// GraphStateError reports a backward pass that cannot proceed: a non-scalar
// root or a gradient buffer whose length does not match its value.
type GraphStateError struct {
	Op     string
	Reason string
}

// NewGraphStateError builds a *GraphStateError.
func NewGraphStateError(op, reason string) *GraphStateError {
	return &GraphStateError{Op: op, Reason: reason}
}

func (e *GraphStateError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

// Is matches ErrGraphState.
func (e *GraphStateError) Is(target error) bool {
	return target == ErrGraphState
}

func formatShapes(shapes []Shape) string {
	if len(shapes) == 0 {
		return ""
	}
	parts := make([]string, len(shapes))
	for i, s := range shapes {
		parts[i] = s.String()
	}
	return " (" + strings.Join(parts, " vs ") + ")"
}
