package autodiff

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/valgrad/internal/tensor"
)

// Dot performs matrix multiplication on rank-1 and rank-2 operands.
//
// Resolution:
//
//	[x]   · [x]   -> [1]   (sum of products)
//	[x]   · [x,y] -> [1,y] (t1 promoted to a row)
//	[x,y] · [y]   -> [x,1] (t2 promoted to a column)
//	[x,y] · [y,z] -> [x,z]
//
// Backward follows the matmul adjoint, built from Dot and Transpose:
//
//	dL/dt1 = grad · t2ᵀ
//	dL/dt2 = t1ᵀ · grad
func Dot(t1, t2 *Val) (*Val, error) {
	if err := requireVals(OpDot, t1, t2); err != nil {
		return nil, err
	}
	if t1.Dim() < 1 || t1.Dim() > 2 || t2.Dim() < 1 || t2.Dim() > 2 {
		return nil, tensor.NewShapeError(OpDot.String(), "operands must be rank 1 or 2", t1.shape, t2.shape)
	}

	m, k := asRow(t1.shape)
	k2, n := asColumn(t2.shape)
	if k != k2 {
		return nil, tensor.NewShapeError(OpDot.String(),
			fmt.Sprintf("inner dimension mismatch: %d vs %d", k, k2), t1.shape, t2.shape)
	}

	if t1.Dim() == 1 && t2.Dim() == 1 {
		out := newResult(tensor.Shape{1}, OpDot, t1, t2)
		out.data[0] = floats.Dot(t1.data, t2.data)
		return out, nil
	}

	out := newResult(tensor.Shape{m, n}, OpDot, t1, t2)
	matmul(out.data, t1.data, t2.data, m, k, n)
	return out, nil
}

// asRow views a left operand as a matrix; rank 1 becomes a single row.
func asRow(s tensor.Shape) (rows, cols int) {
	if len(s) == 1 {
		return 1, s[0]
	}
	return s[0], s[1]
}

// asColumn views a right operand as a matrix; rank 1 becomes a single column.
func asColumn(s tensor.Shape) (rows, cols int) {
	if len(s) == 1 {
		return s[0], 1
	}
	return s[0], s[1]
}

// matmul computes dst[m,n] = a[m,k] · b[k,n] over row-major buffers.
func matmul(dst, a, b []float64, m, k, n int) {
	if m == 0 || n == 0 {
		return
	}
	if k == 0 {
		clear(dst)
		return
	}
	c := mat.NewDense(m, n, dst)
	c.Mul(mat.NewDense(m, k, a), mat.NewDense(k, n, b))
}

func dotBackward(v *Val) error {
	t1, t2 := v.parents[0], v.parents[1]
	m, k := asRow(t1.shape)
	_, n := asColumn(t2.shape)

	g := detachedLeaf(v.grad, tensor.Shape{m, n})
	a := detachedLeaf(t1.data, tensor.Shape{m, k})
	b := detachedLeaf(t2.data, tensor.Shape{k, n})

	bT, err := Transpose(b)
	if err != nil {
		return err
	}
	gradA, err := Dot(g, bT)
	if err != nil {
		return err
	}
	aT, err := Transpose(a)
	if err != nil {
		return err
	}
	gradB, err := Dot(aT, g)
	if err != nil {
		return err
	}

	// Promoted and original layouts share element order.
	accumulate(t1.grad, gradA.data)
	accumulate(t2.grad, gradB.data)
	return nil
}

// detachedLeaf copies data into a parentless value, used when a gradient
// rule re-applies forward ops.
func detachedLeaf(data []float64, shape tensor.Shape) *Val {
	v := newVal(shape)
	copy(v.data, data)
	return v
}
