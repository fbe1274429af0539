package autodiff

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/valgrad/internal/tensor"
)

func TestBinaryBroadcastPatterns(t *testing.T) {
	mn := Must(FromNested([][]float64{{1, 2, 3}, {4, 5, 6}}))
	m1 := Must(FromNested([][]float64{{10}, {20}}))
	n1 := Must(FromNested([][]float64{{100, 200, 300}}))

	tests := []struct {
		name string
		op   func(a, b *Val) (*Val, error)
		a, b *Val
		want []float64
	}{
		{"add [M,1]+[M,N]", Add, m1, mn, []float64{11, 12, 13, 24, 25, 26}},
		{"add [1,N]+[M,N]", Add, n1, mn, []float64{101, 202, 303, 104, 205, 306}},
		{"add [M,N]+[M,1]", Add, mn, m1, []float64{11, 12, 13, 24, 25, 26}},
		{"add [M,N]+[1,N]", Add, mn, n1, []float64{101, 202, 303, 104, 205, 306}},
		{"add scalar", Add, Scalar(1), mn, []float64{2, 3, 4, 5, 6, 7}},
		{"sub scalar", Sub, mn, Scalar(1), []float64{0, 1, 2, 3, 4, 5}},
		{"sub scalar left", Sub, Scalar(10), mn, []float64{9, 8, 7, 6, 5, 4}},
		{"mul scalar", Mul, mn, Scalar(2), []float64{2, 4, 6, 8, 10, 12}},
		{"sub [M,N]-[M,1]", Sub, mn, m1, []float64{-9, -8, -7, -16, -15, -14}},
		{"mul [M,N]*[1,N]", Mul, mn, n1, []float64{100, 400, 900, 400, 1000, 1800}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := tt.op(tt.a, tt.b)
			require.NoError(t, err)
			assert.Equal(t, tensor.Shape{2, 3}, out.Shape())
			assert.Equal(t, tt.want, out.Data())
			assertShapeInvariant(t, out)
		})
	}
}

func TestBinaryIncompatibleShapes(t *testing.T) {
	a := Must(New(tensor.Shape{2, 3}))
	b := Must(New(tensor.Shape{4, 2}))
	for _, op := range []func(a, b *Val) (*Val, error){Add, Sub, Mul} {
		out, err := op(a, b)
		require.Error(t, err)
		assert.Nil(t, out, "no partial value on error")
		var shapeErr *tensor.ShapeError
		require.ErrorAs(t, err, &shapeErr)
	}
	_, err := Add(a, nil)
	assert.ErrorIs(t, err, tensor.ErrShape)
}

func TestUnaryForward(t *testing.T) {
	x := Must(FromSlice([]float64{-2, -0.5, 0, 1, 3}, tensor.Shape{5}))
	tests := []struct {
		name string
		op   func(*Val) (*Val, error)
		want func(float64) float64
	}{
		{"pow 2", func(v *Val) (*Val, error) { return Pow(v, 2) }, func(x float64) float64 { return x * x }},
		{"div 4", func(v *Val) (*Val, error) { return Div(v, 4) }, func(x float64) float64 { return x / 4 }},
		{"negate", Negate, func(x float64) float64 { return -x }},
		{"abs", Abs, math.Abs},
		{"exp", Exp, math.Exp},
		{"relu", ReLU, func(x float64) float64 { return math.Max(x, 0) }},
		{"sigmoid", Sigmoid, func(x float64) float64 { return 1 / (1 + math.Exp(-x)) }},
		{"tanh", Tanh, math.Tanh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := tt.op(x)
			require.NoError(t, err)
			require.Equal(t, x.Shape(), out.Shape())
			for i, v := range x.Data() {
				assert.InDelta(t, tt.want(v), out.Data()[i], 1e-12, "element %d", i)
			}
		})
	}

	lg := Must(Log(Must(FromSlice([]float64{1, math.E}, tensor.Shape{2}))))
	assert.InDeltaSlice(t, []float64{0, 1}, lg.Data(), 1e-12)
}

func TestSigmoidIsStableForLargeInputs(t *testing.T) {
	x := Must(FromSlice([]float64{-1000, 1000}, tensor.Shape{2}))
	out := Must(Sigmoid(x))
	assert.Equal(t, []float64{0, 1}, out.Data())
	assert.False(t, math.IsNaN(out.Data()[0]))
}

func TestUnaryGradients(t *testing.T) {
	tests := []struct {
		name string
		op   func(*Val) (*Val, error)
		in   []float64
		want []float64
	}{
		{"pow 3", func(v *Val) (*Val, error) { return Pow(v, 3) }, []float64{2, -1}, []float64{12, 3}},
		{"div 4", func(v *Val) (*Val, error) { return Div(v, 4) }, []float64{2, -1}, []float64{0.25, 0.25}},
		{"negate", Negate, []float64{2, -1}, []float64{-1, -1}},
		{"abs", Abs, []float64{2, -1, 0}, []float64{1, -1, 0}},
		{"exp", Exp, []float64{0, 1}, []float64{1, math.E}},
		{"log", Log, []float64{2, 0.5}, []float64{0.5, 2}},
		{"relu", ReLU, []float64{2, -1, 0}, []float64{1, 0, 0}},
		{"sigmoid", Sigmoid, []float64{0}, []float64{0.25}},
		{"tanh", Tanh, []float64{0}, []float64{1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x := Must(FromSlice(tt.in, tensor.Shape{len(tt.in)}))
			out := Must(Sum(Must(tt.op(x))))
			require.NoError(t, out.Backward())
			assert.InDeltaSlice(t, tt.want, x.Grad(), 1e-12)
		})
	}
}

func TestActivationBackwardReadsTheRightBuffer(t *testing.T) {
	// relu reads the pre-activation input.
	x := Must(FromSlice([]float64{-1, 2}, tensor.Shape{2}))
	r := Must(ReLU(x))
	r.data[0] = 5 // output buffer must not influence the mask
	require.NoError(t, Must(Sum(r)).Backward())
	assert.Equal(t, []float64{0, 1}, x.Grad())

	// sigmoid and tanh read the post-activation output.
	y := Must(FromSlice([]float64{0}, tensor.Shape{1}))
	s := Must(Sigmoid(y))
	s.data[0] = 0.9
	require.NoError(t, Must(Sum(s)).Backward())
	assert.InDelta(t, 0.9*0.1, y.Grad()[0], 1e-12)

	z := Must(FromSlice([]float64{0}, tensor.Shape{1}))
	th := Must(Tanh(z))
	th.data[0] = 0.5
	require.NoError(t, Must(Sum(th)).Backward())
	assert.InDelta(t, 0.75, z.Grad()[0], 1e-12)
}

func TestReductions(t *testing.T) {
	x := Must(FromNested([][]float64{{1, 2}, {3, 4}}))

	s := Must(Sum(x))
	assert.Equal(t, tensor.Shape{}, s.Shape())
	assert.Equal(t, []float64{10}, s.Data())
	require.NoError(t, s.Backward())
	assert.Equal(t, []float64{1, 1, 1, 1}, x.Grad())

	m := Must(Mean(x))
	assert.Equal(t, []float64{2.5}, m.Data())
	require.NoError(t, m.Backward())
	assert.Equal(t, []float64{0.25, 0.25, 0.25, 0.25}, x.Grad())

	_, err := Mean(Must(New(tensor.Shape{0})))
	assert.ErrorIs(t, err, tensor.ErrShape)
	empty := Must(Sum(Must(New(tensor.Shape{0}))))
	assert.Equal(t, []float64{0}, empty.Data())
}

func TestBroadcastGradientsReduceToOperandShape(t *testing.T) {
	mn := Must(FromNested([][]float64{{1, 2, 3}, {4, 5, 6}}))
	col := Must(FromNested([][]float64{{2}, {3}}))
	row := Must(FromNested([][]float64{{1, 10, 100}}))
	s := Scalar(2)

	prod := Must(Mul(mn, col))
	sum := Must(Add(prod, row))
	diff := Must(Sub(sum, s))
	loss := Must(Sum(diff))
	require.NoError(t, loss.Backward())

	assert.Equal(t, []float64{2, 2, 2, 3, 3, 3}, mn.Grad())
	assert.Equal(t, []float64{6, 15}, col.Grad())
	assert.Equal(t, []float64{2, 2, 2}, row.Grad())
	assert.Equal(t, []float64{-6}, s.Grad())
}

func TestReshapeAndTranspose(t *testing.T) {
	x := Must(FromNested([][]float64{{1, 2, 3}, {4, 5, 6}}))

	r := Must(x.Reshape(3, 2))
	assert.Equal(t, tensor.Shape{3, 2}, r.Shape())
	back := Must(Reshape(r, x.Shape()))
	assert.Equal(t, x.Data(), back.Data())

	r.Data()[0] = 100
	assert.Equal(t, 1.0, x.Data()[0], "reshape copies data")

	_, err := x.Reshape(4, 2)
	assert.ErrorIs(t, err, tensor.ErrDimension)
	_, err = x.Reshape(-1, -6)
	assert.ErrorIs(t, err, tensor.ErrDimension)

	xt := Must(x.T())
	assert.Equal(t, tensor.Shape{3, 2}, xt.Shape())
	assert.Equal(t, []float64{1, 4, 2, 5, 3, 6}, xt.Data())
	xtt := Must(xt.T())
	assert.Equal(t, x.Data(), xtt.Data())
	assert.Equal(t, x.Shape(), xtt.Shape())

	v := Must(FromSlice([]float64{1, 2, 3}, tensor.Shape{3}))
	vt := Must(v.T())
	assert.Equal(t, v.Shape(), vt.Shape())
	assert.Equal(t, v.Data(), vt.Data())

	_, err = Must(New(tensor.Shape{2, 2, 2})).T()
	assert.ErrorIs(t, err, tensor.ErrDimension)
}

func TestTransposeTwiceKeepsGradient(t *testing.T) {
	x := Must(FromNested([][]float64{{1, 2, 3}, {4, 5, 6}}))
	w := Must(FromNested([][]float64{{1, 2, 3}, {4, 5, 6}}))
	xtt := Must(Transpose(Must(Transpose(x))))
	require.NoError(t, Must(Sum(Must(Mul(xtt, w)))).Backward())
	assert.Equal(t, w.Data(), x.Grad())

	y := Must(FromNested([][]float64{{1, 2, 3}, {4, 5, 6}}))
	wt := Must(FromNested([][]float64{{1, 2}, {3, 4}, {5, 6}}))
	require.NoError(t, Must(Sum(Must(Mul(Must(y.T()), wt)))).Backward())
	assert.Equal(t, []float64{1, 3, 5, 2, 4, 6}, y.Grad())

	z := Must(FromSlice([]float64{1, 2, 3, 4}, tensor.Shape{4}))
	wr := Must(FromSlice([]float64{1, 2, 3, 4}, tensor.Shape{2, 2}))
	require.NoError(t, Must(Sum(Must(Mul(Must(z.Reshape(2, 2)), wr)))).Backward())
	assert.Equal(t, []float64{1, 2, 3, 4}, z.Grad())
}
