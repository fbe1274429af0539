package train

import (
	"math/rand"

	"github.com/born-ml/valgrad/internal/autodiff"
	"github.com/born-ml/valgrad/internal/tensor"
)

// XOR returns the four-row XOR truth table: X [4,2], Y [4,1].
func XOR() *Dataset {
	x := autodiff.Must(autodiff.FromNested([][]float64{{0, 0}, {0, 1}, {1, 0}, {1, 1}}))
	y := autodiff.Must(autodiff.FromNested([][]float64{{0}, {1}, {1}, {0}}))
	return &Dataset{X: x, Y: y}
}

// Blobs returns n points drawn from two Gaussian clusters centred at
// (-1,-1) (label 0) and (1,1) (label 1), alternating labels: X [n,2], Y [n,1].
func Blobs(n int, rng *rand.Rand) *Dataset {
	const spread = 0.5
	x := make([]float64, 0, 2*n)
	y := make([]float64, 0, n)
	for i := range n {
		label := float64(i % 2)
		centre := 2*label - 1
		x = append(x, centre+spread*rng.NormFloat64(), centre+spread*rng.NormFloat64())
		y = append(y, label)
	}
	return &Dataset{
		X: autodiff.Must(autodiff.FromSlice(x, tensor.Shape{n, 2})),
		Y: autodiff.Must(autodiff.FromSlice(y, tensor.Shape{n, 1})),
	}
}

// Stripes returns n single-channel size×size images in NHWC layout. Label 1
// images have horizontal stripes, label 0 images vertical ones; each image
// gets a random phase and a little noise. X [n,size,size,1], Y [n,1].
func Stripes(n, size int, rng *rand.Rand) *Dataset {
	const noise = 0.1
	x := make([]float64, 0, n*size*size)
	y := make([]float64, 0, n)
	for i := range n {
		horizontal := i%2 == 1
		phase := rng.Intn(2)
		for r := range size {
			for c := range size {
				line := c
				if horizontal {
					line = r
				}
				v := 0.0
				if (line+phase)%2 == 0 {
					v = 1
				}
				x = append(x, v+noise*rng.NormFloat64())
			}
		}
		if horizontal {
			y = append(y, 1)
		} else {
			y = append(y, 0)
		}
	}
	return &Dataset{
		X: autodiff.Must(autodiff.FromSlice(x, tensor.Shape{n, size, size, 1})),
		Y: autodiff.Must(autodiff.FromSlice(y, tensor.Shape{n, 1})),
	}
}
