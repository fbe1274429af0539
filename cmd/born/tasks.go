package main

import (
	"math/rand"

	"github.com/pkg/errors"

	"github.com/born-ml/valgrad/internal/nn"
	"github.com/born-ml/valgrad/internal/train"
)

// task bundles a demo model with its loss and dataset.
type task struct {
	name  string
	model *nn.Sequential
	loss  nn.Loss
	data  *train.Dataset
}

const stripeSize = 6

func buildTask(name string, rng *rand.Rand) (*task, error) {
	switch name {
	case "xor":
		model, err := mlp(rng, nn.NewTanh())
		if err != nil {
			return nil, err
		}
		return &task{name: name, model: model, loss: nn.NewBCELoss(), data: train.XOR()}, nil
	case "blobs":
		model, err := mlp(rng, nn.NewReLU())
		if err != nil {
			return nil, err
		}
		return &task{name: name, model: model, loss: nn.NewBCELoss(), data: train.Blobs(64, rng)}, nil
	case "stripes":
		model, err := stripesCNN(rng)
		if err != nil {
			return nil, err
		}
		return &task{name: name, model: model, loss: nn.NewBCELoss(), data: train.Stripes(32, stripeSize, rng)}, nil
	default:
		return nil, errors.Errorf("unknown task %q (want xor, blobs or stripes)", name)
	}
}

// mlp is a 2-8-1 network with a sigmoid output.
func mlp(rng *rand.Rand, hidden nn.Module) (*nn.Sequential, error) {
	l1, err := nn.NewLinear(2, 8, rng)
	if err != nil {
		return nil, err
	}
	l2, err := nn.NewLinear(8, 1, rng)
	if err != nil {
		return nil, err
	}
	return nn.NewSequential(l1, hidden, l2, nn.NewSigmoid()), nil
}

// stripesCNN is conv(1->4, 3x3) -> relu -> flatten -> linear -> sigmoid.
func stripesCNN(rng *rand.Rand) (*nn.Sequential, error) {
	conv, err := nn.NewConv2D(1, 4, 3, 1, 0, rng)
	if err != nil {
		return nil, err
	}
	out := stripeSize - 3 + 1
	head, err := nn.NewLinear(out*out*4, 1, rng)
	if err != nil {
		return nil, err
	}
	return nn.NewSequential(conv, nn.NewReLU(), nn.NewFlatten(), head, nn.NewSigmoid()), nil
}
