package autodiff

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/valgrad/internal/tensor"
)

// naiveConv2D evaluates the convolution definition directly.
func naiveConv2D(in, kernel *Val, stride, padding int) []float64 {
	b, h, w, cin := in.shape[0], in.shape[1], in.shape[2], in.shape[3]
	cout, k := kernel.shape[0], kernel.shape[1]
	oh := (h-k+2*padding)/stride + 1
	ow := (w-k+2*padding)/stride + 1
	out := make([]float64, b*oh*ow*cout)
	for n := range b {
		for y := range oh {
			for x := range ow {
				for co := range cout {
					var sum float64
					for kh := range k {
						for kw := range k {
							iy, ix := y*stride+kh-padding, x*stride+kw-padding
							if iy < 0 || iy >= h || ix < 0 || ix >= w {
								continue
							}
							for ci := range cin {
								sum += kernel.data[((co*k+kh)*k+kw)*cin+ci] * in.data[((n*h+iy)*w+ix)*cin+ci]
							}
						}
					}
					out[((n*oh+y)*ow+x)*cout+co] = sum
				}
			}
		}
	}
	return out
}

func randomVal(rng *rand.Rand, shape tensor.Shape) *Val {
	v := Must(New(shape))
	for i := range v.data {
		v.data[i] = rng.NormFloat64()
	}
	return v
}

func TestConv2DOutputShape(t *testing.T) {
	tests := []struct {
		name            string
		in, kernel      tensor.Shape
		stride, padding int
		wantH, wantW    int
	}{
		{"stride 1 padding 0", tensor.Shape{1, 5, 5, 1}, tensor.Shape{2, 3, 3, 1}, 1, 0, 3, 3},
		{"stride 2 padding 1", tensor.Shape{1, 5, 5, 1}, tensor.Shape{2, 3, 3, 1}, 2, 1, 3, 3},
		{"same padding", tensor.Shape{2, 4, 6, 3}, tensor.Shape{4, 3, 3, 3}, 1, 1, 4, 6},
		{"floor division", tensor.Shape{1, 6, 6, 1}, tensor.Shape{1, 3, 3, 1}, 2, 0, 2, 2},
		{"1x1 kernel", tensor.Shape{1, 2, 3, 2}, tensor.Shape{5, 1, 1, 2}, 1, 0, 2, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Conv2D(Must(New(tt.in)), Must(New(tt.kernel)), tt.stride, tt.padding)
			require.NoError(t, err)

			// H_out = floor((H - K + 2*padding)/stride) + 1
			k := tt.kernel[1]
			wantH := (tt.in[1]-k+2*tt.padding)/tt.stride + 1
			wantW := (tt.in[2]-k+2*tt.padding)/tt.stride + 1
			assert.Equal(t, tt.wantH, wantH)
			assert.Equal(t, tt.wantW, wantW)
			assert.Equal(t, tensor.Shape{tt.in[0], wantH, wantW, tt.kernel[0]}, out.Shape())
			assertShapeInvariant(t, out)
		})
	}
}

func TestConv2DErrors(t *testing.T) {
	tests := []struct {
		name            string
		in, kernel      tensor.Shape
		stride, padding int
	}{
		{"kernel larger than input", tensor.Shape{1, 2, 2, 1}, tensor.Shape{1, 3, 3, 1}, 1, 0},
		{"channel mismatch", tensor.Shape{1, 5, 5, 2}, tensor.Shape{1, 3, 3, 1}, 1, 0},
		{"non-square kernel", tensor.Shape{1, 5, 5, 1}, tensor.Shape{1, 3, 2, 1}, 1, 0},
		{"rank-3 input", tensor.Shape{5, 5, 1}, tensor.Shape{1, 3, 3, 1}, 1, 0},
		{"rank-3 kernel", tensor.Shape{1, 5, 5, 1}, tensor.Shape{3, 3, 1}, 1, 0},
		{"zero stride", tensor.Shape{1, 5, 5, 1}, tensor.Shape{1, 3, 3, 1}, 0, 0},
		{"negative padding", tensor.Shape{1, 5, 5, 1}, tensor.Shape{1, 3, 3, 1}, 1, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Conv2D(Must(New(tt.in)), Must(New(tt.kernel)), tt.stride, tt.padding)
			require.Error(t, err)
			assert.Nil(t, out)
			assert.ErrorIs(t, err, tensor.ErrShape)
		})
	}
}

func TestConv2DForwardAndBackwardLiteral(t *testing.T) {
	in := Must(FromSlice([]float64{1, 2, 3, 4, 5, 6, 7, 8, 9}, tensor.Shape{1, 3, 3, 1}))
	kernel := Must(FromSlice([]float64{1, 2, 3, 4}, tensor.Shape{1, 2, 2, 1}))

	out := Must(Conv2D(in, kernel, 1, 0))
	assert.Equal(t, tensor.Shape{1, 2, 2, 1}, out.Shape())
	assert.Equal(t, []float64{37, 47, 67, 77}, out.Data())

	require.NoError(t, Must(Sum(out)).Backward())
	assert.Equal(t, []float64{12, 16, 24, 28}, kernel.Grad())
	assert.Equal(t, []float64{1, 3, 2, 4, 10, 6, 3, 7, 4}, in.Grad())
}

func TestConv2DMatchesDefinition(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	tests := []struct {
		in, kernel      tensor.Shape
		stride, padding int
	}{
		{tensor.Shape{2, 5, 5, 3}, tensor.Shape{4, 3, 3, 3}, 1, 0},
		{tensor.Shape{2, 5, 5, 3}, tensor.Shape{4, 3, 3, 3}, 2, 1},
		{tensor.Shape{1, 7, 6, 2}, tensor.Shape{3, 5, 5, 2}, 1, 2},
		{tensor.Shape{1, 4, 4, 1}, tensor.Shape{2, 2, 2, 1}, 3, 1},
	}
	for _, tt := range tests {
		in := randomVal(rng, tt.in)
		kernel := randomVal(rng, tt.kernel)
		out := Must(Conv2D(in, kernel, tt.stride, tt.padding))
		assert.InDeltaSlice(t, naiveConv2D(in, kernel, tt.stride, tt.padding), out.Data(), 1e-9,
			"in %v kernel %v stride %d padding %d", tt.in, tt.kernel, tt.stride, tt.padding)
	}
}

func TestBiasAdd4D(t *testing.T) {
	x := Must(New(tensor.Shape{2, 2, 2, 3}))
	bias := Must(FromSlice([]float64{1, 2, 3}, tensor.Shape{3}))

	out := Must(BiasAdd4D(x, bias))
	for i, v := range out.Data() {
		assert.Equal(t, float64(i%3+1), v)
	}

	require.NoError(t, Must(Sum(out)).Backward())
	assert.Equal(t, []float64{8, 8, 8}, bias.Grad())
	for _, g := range x.Grad() {
		assert.Equal(t, 1.0, g)
	}

	_, err := BiasAdd4D(x, Must(New(tensor.Shape{2})))
	assert.ErrorIs(t, err, tensor.ErrShape)
	_, err = BiasAdd4D(Must(New(tensor.Shape{2, 3})), Must(New(tensor.Shape{3})))
	assert.ErrorIs(t, err, tensor.ErrShape)
}
