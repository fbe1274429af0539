// Package gradcheck verifies analytic gradients from the autodiff engine
// against central finite differences.
package gradcheck

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/diff/fd"

	"github.com/born-ml/valgrad/internal/autodiff"
	"github.com/born-ml/valgrad/internal/parallel"
)

// Options controls the finite-difference comparison.
type Options struct {
	Step   float64 // Central-difference step (default: 1e-5)
	RelTol float64 // Relative tolerance (default: 1e-4)
	AbsTol float64 // Absolute floor below which differences always pass (default: 1e-7)
}

// DefaultOptions returns the tolerances used by the CLI and tests.
func DefaultOptions() Options {
	return Options{Step: 1e-5, RelTol: 1e-4, AbsTol: 1e-7}
}

// Case is one differentiable expression to verify.
//
// Build must construct a fresh graph from inputs on every call and return a
// scalar root; Check calls it once for the analytic pass and twice per input
// element for the numerical pass.
type Case struct {
	Name   string
	Inputs []*autodiff.Val
	Build  func(inputs []*autodiff.Val) (*autodiff.Val, error)
}

// Result summarizes a Check.
type Result struct {
	Name      string
	Checked   int     // Number of input elements compared
	MaxAbsErr float64 // Largest |analytic - numeric|
	MaxRelErr float64 // Largest relative error
	OK        bool
}

// Check compares Backward gradients with fd.Gradient for every input element.
func Check(c Case, opts Options) (Result, error) {
	opts = withDefaults(opts)
	res := Result{Name: c.Name, OK: true}

	root, err := c.Build(c.Inputs)
	if err != nil {
		return res, errors.Wrapf(err, "%s: build", c.Name)
	}
	if err := root.Backward(); err != nil {
		return res, errors.Wrapf(err, "%s: backward", c.Name)
	}
	analytic := make([][]float64, len(c.Inputs))
	for i, in := range c.Inputs {
		analytic[i] = append([]float64(nil), in.Grad()...)
	}

	settings := &fd.Settings{Formula: fd.Central, Step: opts.Step}
	for i, in := range c.Inputs {
		var evalErr error
		f := func(x []float64) float64 {
			data := in.Data()
			saved := append([]float64(nil), data...)
			copy(data, x)
			defer copy(data, saved)

			out, err := c.Build(c.Inputs)
			if err != nil {
				evalErr = err
				return math.NaN()
			}
			return out.Data()[0]
		}
		x := append([]float64(nil), in.Data()...)
		numeric := fd.Gradient(nil, f, x, settings)
		if evalErr != nil {
			return res, errors.Wrapf(evalErr, "%s: numerical evaluation of input %d", c.Name, i)
		}

		for j := range numeric {
			absErr := math.Abs(analytic[i][j] - numeric[j])
			scale := math.Max(math.Abs(analytic[i][j]), math.Abs(numeric[j]))
			relErr := 0.0
			if scale > 0 {
				relErr = absErr / scale
			}
			res.Checked++
			res.MaxAbsErr = math.Max(res.MaxAbsErr, absErr)
			res.MaxRelErr = math.Max(res.MaxRelErr, relErr)
			if absErr > opts.AbsTol && relErr > opts.RelTol {
				res.OK = false
			}
		}
	}
	return res, nil
}

// CheckAll runs Check for every case and returns the results in case order.
//
// Cases must not share input values; each case builds its own graphs, so
// cases run concurrently according to cfg.
func CheckAll(cases []Case, opts Options, cfg parallel.Config) ([]Result, error) {
	results := make([]Result, len(cases))
	err := parallel.ForErr(len(cases), func(i int) error {
		res, err := Check(cases[i], opts)
		results[i] = res
		return err
	}, cfg)
	if err != nil {
		return nil, err
	}
	return results, nil
}

func withDefaults(opts Options) Options {
	def := DefaultOptions()
	if opts.Step == 0 {
		opts.Step = def.Step
	}
	if opts.RelTol == 0 {
		opts.RelTol = def.RelTol
	}
	if opts.AbsTol == 0 {
		opts.AbsTol = def.AbsTol
	}
	return opts
}
