package nn

import (
	"github.com/born-ml/valgrad/internal/autodiff"
	"github.com/born-ml/valgrad/internal/tensor"
)

// BinaryAccuracy returns the fraction of elements where the thresholded
// prediction matches the target label (target >= 0.5 counts as positive).
//
// An empty input returns 0 rather than NaN.
func BinaryAccuracy(predictions, targets *autodiff.Val, threshold float64) (float64, error) {
	if err := sameShape("binary_accuracy", predictions, targets); err != nil {
		return 0, err
	}
	p, t := predictions.Data(), targets.Data()
	if len(p) == 0 {
		return 0, nil
	}
	if len(p) != len(t) {
		return 0, tensor.NewShapeError("binary_accuracy", "data length mismatch",
			predictions.Shape(), targets.Shape())
	}

	correct := 0
	for i := range p {
		if (p[i] >= threshold) == (t[i] >= 0.5) {
			correct++
		}
	}
	return float64(correct) / float64(len(p)), nil
}
