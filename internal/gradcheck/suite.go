package gradcheck

import (
	"math/rand"

	"github.com/born-ml/valgrad/internal/autodiff"
	"github.com/born-ml/valgrad/internal/tensor"
)

type buildFunc = func(in []*autodiff.Val) (*autodiff.Val, error)

// Suite returns one case per operator of the autodiff package, plus a
// composite layer-like expression. Inputs are drawn from rng and kept away
// from the kinks of abs and relu.
func Suite(rng *rand.Rand) []Case {
	g := &gen{rng: rng}
	return []Case{
		g.binary("add [3,1]+[3,4]", autodiff.Add, tensor.Shape{3, 1}, tensor.Shape{3, 4}),
		g.binary("add [1,4]+[3,4]", autodiff.Add, tensor.Shape{1, 4}, tensor.Shape{3, 4}),
		g.binary("sub [3,4]-[3,1]", autodiff.Sub, tensor.Shape{3, 4}, tensor.Shape{3, 1}),
		g.binary("sub [2,3]-scalar", autodiff.Sub, tensor.Shape{2, 3}, tensor.Shape{}),
		g.binary("mul [3,4]*[1,4]", autodiff.Mul, tensor.Shape{3, 4}, tensor.Shape{1, 4}),
		g.binary("mul scalar*[2,3]", autodiff.Mul, tensor.Shape{}, tensor.Shape{2, 3}),
		g.binary("mul [2,3]*[2,3]", autodiff.Mul, tensor.Shape{2, 3}, tensor.Shape{2, 3}),
		g.unaryPositive("pow 3", func(t *autodiff.Val) (*autodiff.Val, error) { return autodiff.Pow(t, 3) }),
		g.unaryPositive("pow 0.5", func(t *autodiff.Val) (*autodiff.Val, error) { return autodiff.Pow(t, 0.5) }),
		g.unary("div 4", func(t *autodiff.Val) (*autodiff.Val, error) { return autodiff.Div(t, 4) }),
		g.unary("negate", autodiff.Negate),
		g.unary("abs", autodiff.Abs),
		g.unary("exp", autodiff.Exp),
		g.unaryPositive("log", autodiff.Log),
		g.unary("relu", autodiff.ReLU),
		g.unary("sigmoid", autodiff.Sigmoid),
		g.unary("tanh", autodiff.Tanh),
		g.unary("transpose", autodiff.Transpose),
		g.unary("reshape", func(t *autodiff.Val) (*autodiff.Val, error) { return t.Reshape(6) }),
		g.reduce("sum", autodiff.Sum),
		g.reduce("mean", autodiff.Mean),
		g.binary("dot [4]·[4]", autodiff.Dot, tensor.Shape{4}, tensor.Shape{4}),
		g.binary("dot [3]·[3,2]", autodiff.Dot, tensor.Shape{3}, tensor.Shape{3, 2}),
		g.binary("dot [2,3]·[3]", autodiff.Dot, tensor.Shape{2, 3}, tensor.Shape{3}),
		g.binary("dot [2,3]·[3,4]", autodiff.Dot, tensor.Shape{2, 3}, tensor.Shape{3, 4}),
		g.conv("conv2d s1 p0", tensor.Shape{1, 5, 5, 2}, tensor.Shape{3, 3, 3, 2}, 1, 0),
		g.conv("conv2d s2 p1", tensor.Shape{2, 5, 5, 1}, tensor.Shape{2, 3, 3, 1}, 2, 1),
		g.binary("bias_add_4d", autodiff.BiasAdd4D, tensor.Shape{2, 3, 3, 4}, tensor.Shape{4}),
		g.dense("dense tanh mean"),
	}
}

type gen struct {
	rng *rand.Rand
}

// val draws a value in [-1,-0.1] ∪ [0.1,1].
func (g *gen) val(shape tensor.Shape) *autodiff.Val {
	v := autodiff.Must(autodiff.New(shape))
	data := v.Data()
	for i := range data {
		x := 0.1 + 0.9*g.rng.Float64()
		if g.rng.Intn(2) == 0 {
			x = -x
		}
		data[i] = x
	}
	return v
}

// positive draws a value in [0.5, 2].
func (g *gen) positive(shape tensor.Shape) *autodiff.Val {
	v := autodiff.Must(autodiff.New(shape))
	data := v.Data()
	for i := range data {
		data[i] = 0.5 + 1.5*g.rng.Float64()
	}
	return v
}

// weighted reduces out to a scalar with fixed random weights, so that every
// output element carries a distinct upstream gradient. Weights come from a
// generator private to the case, so cases can be checked concurrently.
func (g *gen) weighted(op buildFunc) buildFunc {
	//nolint:gosec // test inputs, not security-critical
	own := &gen{rng: rand.New(rand.NewSource(g.rng.Int63()))}
	var weights *autodiff.Val
	return func(in []*autodiff.Val) (*autodiff.Val, error) {
		out, err := op(in)
		if err != nil {
			return nil, err
		}
		if weights == nil || !weights.Shape().Equal(out.Shape()) {
			weights = own.val(out.Shape())
		}
		prod, err := autodiff.Mul(out, weights)
		if err != nil {
			return nil, err
		}
		return autodiff.Sum(prod)
	}
}

func (g *gen) binary(name string, op func(a, b *autodiff.Val) (*autodiff.Val, error), sa, sb tensor.Shape) Case {
	return Case{
		Name:   name,
		Inputs: []*autodiff.Val{g.val(sa), g.val(sb)},
		Build: g.weighted(func(in []*autodiff.Val) (*autodiff.Val, error) {
			return op(in[0], in[1])
		}),
	}
}

func (g *gen) unary(name string, op func(*autodiff.Val) (*autodiff.Val, error)) Case {
	return Case{
		Name:   name,
		Inputs: []*autodiff.Val{g.val(tensor.Shape{2, 3})},
		Build: g.weighted(func(in []*autodiff.Val) (*autodiff.Val, error) {
			return op(in[0])
		}),
	}
}

func (g *gen) unaryPositive(name string, op func(*autodiff.Val) (*autodiff.Val, error)) Case {
	c := g.unary(name, op)
	c.Inputs = []*autodiff.Val{g.positive(tensor.Shape{2, 3})}
	return c
}

func (g *gen) reduce(name string, op func(*autodiff.Val) (*autodiff.Val, error)) Case {
	return Case{
		Name:   name,
		Inputs: []*autodiff.Val{g.val(tensor.Shape{3, 4})},
		Build: func(in []*autodiff.Val) (*autodiff.Val, error) {
			return op(in[0])
		},
	}
}

func (g *gen) conv(name string, in, kernel tensor.Shape, stride, padding int) Case {
	return g.binary(name, func(x, k *autodiff.Val) (*autodiff.Val, error) {
		return autodiff.Conv2D(x, k, stride, padding)
	}, in, kernel)
}

// dense checks mean(tanh(x·W + b)) with a [1,N] bias row.
func (g *gen) dense(name string) Case {
	return Case{
		Name:   name,
		Inputs: []*autodiff.Val{g.val(tensor.Shape{4, 3}), g.val(tensor.Shape{3, 2}), g.val(tensor.Shape{1, 2})},
		Build: func(in []*autodiff.Val) (*autodiff.Val, error) {
			xw, err := autodiff.Dot(in[0], in[1])
			if err != nil {
				return nil, err
			}
			z, err := autodiff.Add(xw, in[2])
			if err != nil {
				return nil, err
			}
			h, err := autodiff.Tanh(z)
			if err != nil {
				return nil, err
			}
			return autodiff.Mean(h)
		},
	}
}
