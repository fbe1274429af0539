package nn

import (
	"github.com/pkg/errors"

	"github.com/born-ml/valgrad/internal/autodiff"
	"github.com/born-ml/valgrad/internal/tensor"
)

// Loss maps predictions and targets to a single-element value that can be
// the root of a backward pass.
type Loss interface {
	Forward(predictions, targets *autodiff.Val) (*autodiff.Val, error)
}

// MSELoss computes Mean Squared Error loss.
//
// Loss = mean((predictions - targets)²)
//
// Example:
//
//	mse := nn.NewMSELoss()
//	loss, err := mse.Forward(predictions, targets)
//	err = loss.Backward()
type MSELoss struct{}

// NewMSELoss creates a new MSE loss function.
func NewMSELoss() *MSELoss {
	return &MSELoss{}
}

// Forward computes the MSE loss. Shapes must match exactly.
func (m *MSELoss) Forward(predictions, targets *autodiff.Val) (*autodiff.Val, error) {
	if err := sameShape("mse_loss", predictions, targets); err != nil {
		return nil, err
	}
	diff, err := autodiff.Sub(predictions, targets)
	if err != nil {
		return nil, errors.Wrap(err, "mse_loss")
	}
	sq, err := autodiff.Pow(diff, 2)
	if err != nil {
		return nil, errors.Wrap(err, "mse_loss")
	}
	return autodiff.Mean(sq)
}

// DefaultBCEEpsilon keeps log away from zero in BCELoss.
const DefaultBCEEpsilon = 1e-7

// BCELoss computes binary cross-entropy over probabilities in (0, 1).
//
// Loss = -mean(t * log(p + eps) + (1 - t) * log(1 - p + eps))
//
// Predictions are expected to come out of a Sigmoid.
type BCELoss struct {
	Eps float64
}

// NewBCELoss creates a binary cross-entropy loss with DefaultBCEEpsilon.
func NewBCELoss() *BCELoss {
	return &BCELoss{Eps: DefaultBCEEpsilon}
}

// Forward computes the BCE loss. Shapes must match exactly.
func (b *BCELoss) Forward(predictions, targets *autodiff.Val) (*autodiff.Val, error) {
	if err := sameShape("bce_loss", predictions, targets); err != nil {
		return nil, err
	}
	eps := b.Eps
	if eps <= 0 {
		eps = DefaultBCEEpsilon
	}

	// t * log(p + eps)
	pShift, err := autodiff.Add(predictions, autodiff.Scalar(eps))
	if err != nil {
		return nil, errors.Wrap(err, "bce_loss")
	}
	logP, err := autodiff.Log(pShift)
	if err != nil {
		return nil, errors.Wrap(err, "bce_loss")
	}
	pos, err := autodiff.Mul(targets, logP)
	if err != nil {
		return nil, errors.Wrap(err, "bce_loss")
	}

	// (1 - t) * log(1 - p + eps)
	qShift, err := autodiff.Sub(autodiff.Scalar(1+eps), predictions)
	if err != nil {
		return nil, errors.Wrap(err, "bce_loss")
	}
	logQ, err := autodiff.Log(qShift)
	if err != nil {
		return nil, errors.Wrap(err, "bce_loss")
	}
	oneMinusT, err := autodiff.Sub(autodiff.Scalar(1), targets)
	if err != nil {
		return nil, errors.Wrap(err, "bce_loss")
	}
	neg, err := autodiff.Mul(oneMinusT, logQ)
	if err != nil {
		return nil, errors.Wrap(err, "bce_loss")
	}

	total, err := autodiff.Add(pos, neg)
	if err != nil {
		return nil, errors.Wrap(err, "bce_loss")
	}
	mean, err := autodiff.Mean(total)
	if err != nil {
		return nil, errors.Wrap(err, "bce_loss")
	}
	return autodiff.Negate(mean)
}

func sameShape(op string, predictions, targets *autodiff.Val) error {
	if predictions == nil || targets == nil {
		return tensor.NewShapeError(op, "nil operand")
	}
	if !predictions.Shape().Equal(targets.Shape()) {
		return tensor.NewShapeError(op, "predictions and targets must have the same shape",
			predictions.Shape(), targets.Shape())
	}
	return nil
}
