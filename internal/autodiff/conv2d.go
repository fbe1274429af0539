package autodiff

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/valgrad/internal/tensor"
)

// convGeom holds the resolved dimensions of a 2D convolution.
type convGeom struct {
	batch, height, width, inC int
	outC, k                   int
	outH, outW                int
	stride, padding           int
}

// patch is the flattened receptive-field length K*K*C_in.
func (g convGeom) patch() int { return g.k * g.k * g.inC }

// rows is the number of output positions B*H_out*W_out.
func (g convGeom) rows() int { return g.batch * g.outH * g.outW }

// Conv2D performs 2D convolution over NHWC input.
//
// Shapes:
//   - input:  [B, H, W, C_in]
//   - kernel: [C_out, K, K, C_in]
//   - output: [B, H_out, W_out, C_out] with H_out = floor((H - K + 2*padding)/stride) + 1
//
// Padding is symmetric zero padding. The output at [b,h,w,co] is
// Σ kernel[co,kh,kw,ci] * input_padded[b, h*stride+kh, w*stride+kw, ci].
//
// Algorithm: im2col. Patches are laid out as rows of a [B*H_out*W_out, K*K*C_in]
// matrix whose column order matches the kernel's row-major [K, K, C_in] tail,
// so the output is col · kernelᵀ and already in NHWC order.
//
// Backward:
//   - d_input:  (d_out · kernel) scattered back through col2im and cropped to the valid region
//   - d_kernel: d_outᵀ · col
func Conv2D(input, kernel *Val, stride, padding int) (*Val, error) {
	if err := requireVals(OpConv2D, input, kernel); err != nil {
		return nil, err
	}
	g, err := resolveConv(input.shape, kernel.shape, stride, padding)
	if err != nil {
		return nil, err
	}

	out := newResult(tensor.Shape{g.batch, g.outH, g.outW, g.outC}, OpConv2D, input, kernel)
	out.attrs.stride = stride
	out.attrs.padding = padding
	if g.rows() == 0 || g.outC == 0 || g.patch() == 0 {
		return out, nil
	}

	col := make([]float64, g.rows()*g.patch())
	im2col(col, input.data, g)

	// [rows, patch] · [outC, patch]ᵀ -> [rows, outC]
	dst := mat.NewDense(g.rows(), g.outC, out.data)
	dst.Mul(mat.NewDense(g.rows(), g.patch(), col), mat.NewDense(g.outC, g.patch(), kernel.data).T())
	return out, nil
}

func resolveConv(in, kernel tensor.Shape, stride, padding int) (convGeom, error) {
	op := OpConv2D.String()
	if len(in) != 4 {
		return convGeom{}, tensor.NewShapeError(op, "input must be 4D [B,H,W,C_in]", in)
	}
	if len(kernel) != 4 {
		return convGeom{}, tensor.NewShapeError(op, "kernel must be 4D [C_out,K,K,C_in]", kernel)
	}
	if kernel[1] != kernel[2] {
		return convGeom{}, tensor.NewShapeError(op, "kernel must be square", kernel)
	}
	if in[3] != kernel[3] {
		return convGeom{}, tensor.NewShapeError(op,
			fmt.Sprintf("input channels %d != kernel channels %d", in[3], kernel[3]), in, kernel)
	}
	if stride < 1 {
		return convGeom{}, tensor.NewShapeError(op, fmt.Sprintf("stride must be >= 1, got %d", stride))
	}
	if padding < 0 {
		return convGeom{}, tensor.NewShapeError(op, fmt.Sprintf("padding must be >= 0, got %d", padding))
	}

	g := convGeom{
		batch: in[0], height: in[1], width: in[2], inC: in[3],
		outC: kernel[0], k: kernel[1],
		stride: stride, padding: padding,
	}
	spanH := g.height - g.k + 2*padding
	spanW := g.width - g.k + 2*padding
	if spanH < 0 || spanW < 0 {
		return convGeom{}, tensor.NewShapeError(op,
			fmt.Sprintf("non-positive output dimensions (kernel %d larger than padded input)", g.k), in, kernel)
	}
	g.outH = spanH/stride + 1
	g.outW = spanW/stride + 1
	return g, nil
}

// im2col copies every receptive field of src into one row of col.
// Out-of-bounds (padding) positions stay zero.
func im2col(col, src []float64, g convGeom) {
	patch := g.patch()
	for b := range g.batch {
		for oh := range g.outH {
			for ow := range g.outW {
				row := col[((b*g.outH+oh)*g.outW+ow)*patch:][:patch]
				for kh := range g.k {
					ih := oh*g.stride + kh - g.padding
					if ih < 0 || ih >= g.height {
						continue
					}
					for kw := range g.k {
						iw := ow*g.stride + kw - g.padding
						if iw < 0 || iw >= g.width {
							continue
						}
						at := ((b*g.height+ih)*g.width + iw) * g.inC
						copy(row[(kh*g.k+kw)*g.inC:][:g.inC], src[at:at+g.inC])
					}
				}
			}
		}
	}
}

// col2im is the adjoint of im2col: it adds every row of col back into the
// positions it was read from, dropping the padding.
func col2im(dst, col []float64, g convGeom) {
	patch := g.patch()
	for b := range g.batch {
		for oh := range g.outH {
			for ow := range g.outW {
				row := col[((b*g.outH+oh)*g.outW+ow)*patch:][:patch]
				for kh := range g.k {
					ih := oh*g.stride + kh - g.padding
					if ih < 0 || ih >= g.height {
						continue
					}
					for kw := range g.k {
						iw := ow*g.stride + kw - g.padding
						if iw < 0 || iw >= g.width {
							continue
						}
						at := ((b*g.height+ih)*g.width + iw) * g.inC
						accumulate(dst[at:at+g.inC], row[(kh*g.k+kw)*g.inC:][:g.inC])
					}
				}
			}
		}
	}
}

func conv2DBackward(v *Val) {
	input, kernel := v.parents[0], v.parents[1]
	// Shapes were validated on the forward pass.
	g, _ := resolveConv(input.shape, kernel.shape, v.attrs.stride, v.attrs.padding)
	if g.rows() == 0 || g.outC == 0 || g.patch() == 0 {
		return
	}

	gradOut := mat.NewDense(g.rows(), g.outC, v.grad)

	// d_col = d_out · kernel: [rows, outC] · [outC, patch]
	dCol := make([]float64, g.rows()*g.patch())
	mat.NewDense(g.rows(), g.patch(), dCol).Mul(gradOut, mat.NewDense(g.outC, g.patch(), kernel.data))
	col2im(input.grad, dCol, g)

	// d_kernel = d_outᵀ · col: [outC, rows] · [rows, patch]
	col := make([]float64, g.rows()*g.patch())
	im2col(col, input.data, g)
	dKernel := make([]float64, g.outC*g.patch())
	mat.NewDense(g.outC, g.patch(), dKernel).Mul(gradOut.T(), mat.NewDense(g.rows(), g.patch(), col))
	accumulate(kernel.grad, dKernel)
}

// BiasAdd4D adds a per-channel bias [C] to an NHWC value [B,H,W,C].
//
// This is an explicit rank-4 broadcast outside the general resolver, which
// only handles rank <= 2. Backward passes the gradient through to x and sums
// it over batch, height and width for each channel of bias.
func BiasAdd4D(x, bias *Val) (*Val, error) {
	if err := requireVals(OpBiasAdd4D, x, bias); err != nil {
		return nil, err
	}
	if x.Dim() != 4 {
		return nil, tensor.NewShapeError(OpBiasAdd4D.String(), "input must be 4D [B,H,W,C]", x.shape)
	}
	channels := x.shape[3]
	if bias.Dim() != 1 || bias.shape[0] != channels {
		return nil, tensor.NewShapeError(OpBiasAdd4D.String(),
			fmt.Sprintf("bias must be [%d]", channels), x.shape, bias.shape)
	}

	out := newResult(x.shape.Clone(), OpBiasAdd4D, x, bias)
	for i, xv := range x.data {
		out.data[i] = xv + bias.data[i%channels]
	}
	return out, nil
}

func biasAdd4DBackward(v *Val) {
	x, bias := v.parents[0], v.parents[1]
	accumulate(x.grad, v.grad)
	channels := v.shape[3]
	for i, g := range v.grad {
		bias.grad[i%channels] += g
	}
}
