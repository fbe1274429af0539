package nn

import (
	"fmt"
	"math/rand"

	"github.com/pkg/errors"

	"github.com/born-ml/valgrad/internal/autodiff"
	"github.com/born-ml/valgrad/internal/tensor"
)

// Conv2D is a 2D convolutional layer over NHWC images.
//
// Performs convolution: output = Conv2D(input, kernel) + bias
//
// Input shape:  [batch, height, width, in_channels]
// Kernel shape: [out_channels, kernel, kernel, in_channels]
// Bias shape:   [out_channels]
// Output shape: [batch, out_h, out_w, out_channels]
//
// Where:
//
//	out_h = (height + 2*padding - kernel) / stride + 1
//	out_w = (width + 2*padding - kernel) / stride + 1
//
// Example:
//
//	// 1 channel -> 4 channels, 3x3 kernel
//	conv, _ := nn.NewConv2D(1, 4, 3, 1, 0, rng)
//	out, err := conv.Forward(images) // [8, 6, 6, 1] -> [8, 4, 4, 4]
type Conv2D struct {
	inChannels  int
	outChannels int
	kernelSize  int
	stride      int
	padding     int

	kernel *Parameter // [out_channels, kernel, kernel, in_channels]
	bias   *Parameter // [out_channels]
}

// NewConv2D creates a new 2D convolutional layer.
//
// Initialization:
//   - Kernel: Xavier/Glorot uniform with fan_in = in*k*k, fan_out = out*k*k
//   - Bias: Zeros
func NewConv2D(inChannels, outChannels, kernelSize, stride, padding int, rng *rand.Rand) (*Conv2D, error) {
	if inChannels <= 0 || outChannels <= 0 {
		return nil, errors.Errorf("conv2d: invalid channels in=%d, out=%d", inChannels, outChannels)
	}
	if kernelSize <= 0 {
		return nil, errors.Errorf("conv2d: invalid kernel size %d", kernelSize)
	}
	if stride <= 0 {
		return nil, errors.Errorf("conv2d: invalid stride %d", stride)
	}
	if padding < 0 {
		return nil, errors.Errorf("conv2d: invalid padding %d", padding)
	}

	area := kernelSize * kernelSize
	k, err := Xavier(inChannels*area, outChannels*area,
		tensor.Shape{outChannels, kernelSize, kernelSize, inChannels}, rng)
	if err != nil {
		return nil, errors.Wrap(err, "conv2d: kernel")
	}
	b, err := Zeros(tensor.Shape{outChannels})
	if err != nil {
		return nil, errors.Wrap(err, "conv2d: bias")
	}

	return &Conv2D{
		inChannels:  inChannels,
		outChannels: outChannels,
		kernelSize:  kernelSize,
		stride:      stride,
		padding:     padding,
		kernel:      NewParameter("kernel", k),
		bias:        NewParameter("bias", b),
	}, nil
}

// Forward applies the convolution and adds the per-channel bias.
func (c *Conv2D) Forward(input *autodiff.Val) (*autodiff.Val, error) {
	out, err := autodiff.Conv2D(input, c.kernel.Value(), c.stride, c.padding)
	if err != nil {
		return nil, errors.Wrap(err, "conv2d layer")
	}
	out, err = autodiff.BiasAdd4D(out, c.bias.Value())
	if err != nil {
		return nil, errors.Wrap(err, "conv2d layer")
	}
	return out, nil
}

// Parameters returns [kernel, bias].
func (c *Conv2D) Parameters() []*Parameter {
	return []*Parameter{c.kernel, c.bias}
}

// Kernel returns the kernel parameter.
func (c *Conv2D) Kernel() *Parameter {
	return c.kernel
}

// Bias returns the bias parameter.
func (c *Conv2D) Bias() *Parameter {
	return c.bias
}

// OutputShape computes the output shape for a given input shape.
func (c *Conv2D) OutputShape(in tensor.Shape) (tensor.Shape, error) {
	if len(in) != 4 || in[3] != c.inChannels {
		return nil, tensor.NewShapeError("conv2d layer",
			fmt.Sprintf("expected input [B,H,W,%d]", c.inChannels), in)
	}
	outH := (in[1]+2*c.padding-c.kernelSize)/c.stride + 1
	outW := (in[2]+2*c.padding-c.kernelSize)/c.stride + 1
	return tensor.Shape{in[0], outH, outW, c.outChannels}, nil
}

func (c *Conv2D) String() string {
	return fmt.Sprintf("Conv2D(%d -> %d, k=%d, s=%d, p=%d)",
		c.inChannels, c.outChannels, c.kernelSize, c.stride, c.padding)
}
