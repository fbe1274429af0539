package nn

import (
	"math"
	"math/rand"

	"github.com/born-ml/valgrad/internal/autodiff"
	"github.com/born-ml/valgrad/internal/tensor"
)

// Xavier (Glorot) initialization for weights.
//
// Initializes weights with values drawn from a uniform distribution:
// U(-sqrt(6/(fan_in + fan_out)), sqrt(6/(fan_in + fan_out)))
//
// Parameters:
//   - fanIn: Number of input units
//   - fanOut: Number of output units
//   - shape: Shape of the weight value
//   - rng: Source of randomness; nil uses the global source
//
// Returns a leaf value initialized with the Xavier distribution.
func Xavier(fanIn, fanOut int, shape tensor.Shape, rng *rand.Rand) (*autodiff.Val, error) {
	v, err := autodiff.New(shape)
	if err != nil {
		return nil, err
	}
	if fanIn+fanOut == 0 {
		return v, nil
	}
	bound := math.Sqrt(6.0 / float64(fanIn+fanOut))

	data := v.Data()
	for i := range data {
		data[i] = (uniform(rng)*2.0 - 1.0) * bound
	}
	return v, nil
}

// Zeros creates a zero-filled leaf value. Used for bias initialization.
func Zeros(shape tensor.Shape) (*autodiff.Val, error) {
	return autodiff.New(shape)
}

func uniform(rng *rand.Rand) float64 {
	if rng == nil {
		//nolint:gosec // Using math/rand for weight initialization (not security-critical)
		return rand.Float64()
	}
	return rng.Float64()
}
