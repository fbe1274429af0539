package tensor

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShapeNumElements(t *testing.T) {
	tests := []struct {
		shape Shape
		want  int
	}{
		{Shape{}, 1},
		{Shape{3}, 3},
		{Shape{2, 3}, 6},
		{Shape{2, 0, 4}, 0},
		{Shape{1, 5, 5, 1}, 25},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.shape.NumElements(), "shape %v", tt.shape)
	}
}

func TestShapeValidate(t *testing.T) {
	require.NoError(t, Shape{}.Validate())
	require.NoError(t, Shape{0, 3}.Validate())
	assert.Error(t, Shape{2, -1}.Validate())
}

func TestShapeStridesAndString(t *testing.T) {
	assert.Equal(t, []int{12, 4, 1}, Shape{2, 3, 4}.ComputeStrides())
	assert.Empty(t, Shape{}.ComputeStrides())
	assert.Equal(t, "[2,3,4]", Shape{2, 3, 4}.String())
	assert.Equal(t, "[]", Shape{}.String())
}

func TestShapeCloneIsIndependent(t *testing.T) {
	s := Shape{2, 3}
	c := s.Clone()
	c[0] = 9
	assert.Equal(t, 2, s[0])
	assert.False(t, s.Equal(c))
}

func TestErrorTaxonomy(t *testing.T) {
	var err error = NewShapeError("add", "incompatible", Shape{2, 3}, Shape{4, 2})
	assert.True(t, errors.Is(err, ErrShape))
	assert.False(t, errors.Is(err, ErrDimension))
	assert.Equal(t, "add: incompatible ([2,3] vs [4,2])", err.Error())

	wrapped := fmt.Errorf("layer: %w", NewDimensionError("reshape", "size mismatch", Shape{6}, Shape{4}))
	var dimErr *DimensionError
	require.True(t, errors.As(wrapped, &dimErr))
	assert.Equal(t, "reshape", dimErr.Op)
	assert.True(t, errors.Is(wrapped, ErrDimension))

	assert.True(t, errors.Is(NewGraphStateError("backward", "non-scalar root"), ErrGraphState))
}
