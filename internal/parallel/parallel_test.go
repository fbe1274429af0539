package parallel

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFor(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 4, MinItems: 2}

	var counter int64
	seen := make([]int32, 1000)
	For(len(seen), func(i int) {
		atomic.AddInt64(&counter, 1)
		atomic.AddInt32(&seen[i], 1)
	}, cfg)

	assert.Equal(t, int64(len(seen)), counter)
	for i, s := range seen {
		require.Equal(t, int32(1), s, "item %d", i)
	}
}

func TestForSequential(t *testing.T) {
	var order []int
	For(5, func(i int) {
		order = append(order, i)
	}, Sequential())
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestForBelowMinItems(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 8, MinItems: 10}

	var order []int
	For(3, func(i int) {
		order = append(order, i)
	}, cfg)
	assert.Equal(t, []int{0, 1, 2}, order)
}

func TestForZeroItems(t *testing.T) {
	called := false
	For(0, func(int) { called = true }, DefaultConfig())
	assert.False(t, called)
}

func TestForErrReturnsLowestIndex(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 3, MinItems: 1}
	errA := errors.New("a")
	errB := errors.New("b")

	var ran int64
	err := ForErr(10, func(i int) error {
		atomic.AddInt64(&ran, 1)
		switch i {
		case 7:
			return errB
		case 3:
			return errA
		}
		return nil
	}, cfg)

	assert.ErrorIs(t, err, errA)
	assert.Equal(t, int64(10), ran)
}

func TestForErrNil(t *testing.T) {
	err := ForErr(4, func(int) error { return nil }, DefaultConfig())
	assert.NoError(t, err)
}

func BenchmarkFor(b *testing.B) {
	n := 10000

	b.Run("parallel", func(b *testing.B) {
		cfg := DefaultConfig()
		for b.Loop() {
			var sum int64
			For(n, func(i int) {
				atomic.AddInt64(&sum, int64(i))
			}, cfg)
		}
	})

	b.Run("sequential", func(b *testing.B) {
		for b.Loop() {
			var sum int64
			For(n, func(i int) {
				atomic.AddInt64(&sum, int64(i))
			}, Sequential())
		}
	})
}
