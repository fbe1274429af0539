package autodiff

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/born-ml/valgrad/internal/tensor"
)

// OpKind tags the operation that produced a Val.
//
// The set is closed: the gradient dispatcher (backwardStep) has exactly one
// rule per tag, and each tag documents the parents and attributes it reads.
type OpKind uint8

// Operation tags.
const (
	OpLeaf      OpKind = iota // no parents; gradient is terminal
	OpAdd                     // parents [a, b]
	OpSub                     // parents [a, b]
	OpMul                     // parents [a, b]
	OpPow                     // parents [t], attrs.exponent
	OpDiv                     // parents [t], attrs.divisor
	OpNeg                     // parents [t]
	OpAbs                     // parents [t]
	OpExp                     // parents [t]
	OpLog                     // parents [t]
	OpSum                     // parents [t]
	OpMean                    // parents [t]
	OpDot                     // parents [t1, t2]
	OpTranspose               // parents [t]
	OpReshape                 // parents [t]
	OpReLU                    // parents [t]
	OpSigmoid                 // parents [t]
	OpTanh                    // parents [t]
	OpConv2D                  // parents [input, kernel], attrs.stride, attrs.padding
	OpBiasAdd4D               // parents [x, bias]
	numOps
)

var opNames = [...]string{
	OpLeaf:      "leaf",
	OpAdd:       "add",
	OpSub:       "sub",
	OpMul:       "mul",
	OpPow:       "pow",
	OpDiv:       "div",
	OpNeg:       "negate",
	OpAbs:       "abs",
	OpExp:       "exp",
	OpLog:       "log",
	OpSum:       "sum",
	OpMean:      "mean",
	OpDot:       "dot",
	OpTranspose: "transpose",
	OpReshape:   "reshape",
	OpReLU:      "relu",
	OpSigmoid:   "sigmoid",
	OpTanh:      "tanh",
	OpConv2D:    "conv2d",
	OpBiasAdd4D: "bias_add_4d",
}

func (k OpKind) String() string {
	if k < numOps {
		return opNames[k]
	}
	return fmt.Sprintf("OpKind(%d)", uint8(k))
}

// arity is the number of parents each tag requires.
func (k OpKind) arity() int {
	switch k {
	case OpLeaf:
		return 0
	case OpAdd, OpSub, OpMul, OpDot, OpConv2D, OpBiasAdd4D:
		return 2
	default:
		return 1
	}
}

// backwardStep adds v's contribution into its parents' gradients.
// It reads v.grad, which must already hold every consumer's contribution.
func (v *Val) backwardStep() error {
	if v.op == OpLeaf {
		return nil
	}
	if len(v.parents) != v.op.arity() {
		return tensor.NewGraphStateError(v.op.String(),
			fmt.Sprintf("node has %d parents, want %d", len(v.parents), v.op.arity()))
	}
	if err := checkGradBuffer(v); err != nil {
		return err
	}
	for _, p := range v.parents {
		if err := checkGradBuffer(p); err != nil {
			return err
		}
	}

	switch v.op {
	case OpAdd:
		return addBackward(v)
	case OpSub:
		return subBackward(v)
	case OpMul:
		return mulBackward(v)
	case OpPow:
		powBackward(v)
	case OpDiv:
		divBackward(v)
	case OpNeg:
		negBackward(v)
	case OpAbs:
		absBackward(v)
	case OpExp:
		expBackward(v)
	case OpLog:
		logBackward(v)
	case OpSum:
		sumBackward(v)
	case OpMean:
		meanBackward(v)
	case OpDot:
		return dotBackward(v)
	case OpTranspose:
		transposeBackward(v)
	case OpReshape:
		reshapeBackward(v)
	case OpReLU:
		reluBackward(v)
	case OpSigmoid:
		sigmoidBackward(v)
	case OpTanh:
		tanhBackward(v)
	case OpConv2D:
		conv2DBackward(v)
	case OpBiasAdd4D:
		biasAdd4DBackward(v)
	default:
		return tensor.NewGraphStateError("backward", fmt.Sprintf("unknown operation %s", v.op))
	}
	return nil
}

// checkGradBuffer enforces the fatal policy for missing or mismatched
// gradient buffers.
func checkGradBuffer(v *Val) error {
	if len(v.data) != v.Size() {
		return tensor.NewGraphStateError(v.op.String(),
			fmt.Sprintf("data buffer has %d elements, shape %v needs %d", len(v.data), v.shape, v.Size()))
	}
	if len(v.grad) != v.Size() {
		return tensor.NewGraphStateError(v.op.String(),
			fmt.Sprintf("gradient buffer has %d elements, shape %v needs %d", len(v.grad), v.shape, v.Size()))
	}
	return nil
}

// accumulate adds src into dst element by element.
// Lengths are checked by checkGradBuffer before any rule runs.
func accumulate(dst, src []float64) {
	floats.Add(dst, src)
}
