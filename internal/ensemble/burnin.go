package ensemble

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/mcalder42/vicsek/internal/flock"
)

// DefaultBurnInThreshold is the order parameter level taken to indicate a
// settled, fully ordered zero-noise system.
const DefaultBurnInThreshold = 0.98

// BurnInOptions controls burn-in detection.
type BurnInOptions struct {
	Threshold float64 // 0 means DefaultBurnInThreshold
	MaxSteps  int     // hard cutoff per repeat, must be positive
	Repeats   int     // independent detections, minimum 1
	Seed      int64
}

func (o BurnInOptions) threshold() float64 {
	if o.Threshold == 0 {
		return DefaultBurnInThreshold
	}
	return o.Threshold
}

// Validate reports the first invalid option.
func (o BurnInOptions) Validate() error {
	if t := o.threshold(); t <= 0 || t > 1 {
		return fmt.Errorf("ensemble: burn-in threshold must be in (0, 1], got %g", t)
	}
	if o.MaxSteps < 1 {
		return fmt.Errorf("ensemble: burn-in step cutoff must be positive, got %d", o.MaxSteps)
	}
	if o.Repeats < 1 {
		return fmt.Errorf("ensemble: at least one burn-in repeat required, got %d", o.Repeats)
	}
	return nil
}

// BurnInResult reports the per-repeat step counts with their mean and
// standard error.
type BurnInResult struct {
	Counts []int
	Mean   float64
	StdErr float64
}

// DetectBurnIn measures how many steps a freshly initialised zero-noise
// system needs before its order parameter reaches the threshold. The noise in
// p is ignored and forced to zero; each repeat starts from a fresh random
// state. A repeat that exhausts MaxSteps yields ErrBurnInTimeout rather than
// hanging.
func DetectBurnIn(ctx context.Context, p flock.Params, opts BurnInOptions) (BurnInResult, error) {
	if err := opts.Validate(); err != nil {
		return BurnInResult{}, err
	}
	quiet := p
	quiet.Noise = 0
	if err := quiet.Validate(); err != nil {
		return BurnInResult{}, err
	}

	threshold := opts.threshold()
	counts := make([]int, opts.Repeats)
	steps := make([]float64, opts.Repeats)

	for rep := 0; rep < opts.Repeats; rep++ {
		select {
		case <-ctx.Done():
			return BurnInResult{}, ctx.Err()
		default:
		}

		m, err := flock.NewModelFromParams(quiet, flock.Leaders{}, opts.Seed+int64(rep))
		if err != nil {
			return BurnInResult{}, err
		}

		t := 0
		for m.OrderParameter() < threshold {
			if t >= opts.MaxSteps {
				return BurnInResult{}, fmt.Errorf("%w: N=%d L=%g after %d steps",
					ErrBurnInTimeout, quiet.N, quiet.Length, opts.MaxSteps)
			}
			m.Step()
			t++
		}
		counts[rep] = t
		steps[rep] = float64(t)
	}

	return BurnInResult{
		Counts: counts,
		Mean:   stat.Mean(steps, nil),
		StdErr: stat.PopStdDev(steps, nil) / math.Sqrt(float64(opts.Repeats)),
	}, nil
}

// BurnInFit is the linear model nt_burn(N) = Slope*N + Intercept calibrated
// from burn-in measurements at several particle counts. The sweep consumes it
// to budget the discarded steps per combination.
type BurnInFit struct {
	Slope     float64
	Intercept float64
}

// FitBurnIn fits the linear burn-in model by weighted least squares, with
// weights 1/stderr^2. Measurements with a zero standard error get unit
// weight.
func FitBurnIn(ns, means, stderrs []float64) (BurnInFit, error) {
	if len(ns) < 2 {
		return BurnInFit{}, fmt.Errorf("ensemble: at least two particle counts required for a fit, got %d", len(ns))
	}
	if len(means) != len(ns) || len(stderrs) != len(ns) {
		return BurnInFit{}, fmt.Errorf("ensemble: burn-in fit inputs must have equal length (%d, %d, %d)",
			len(ns), len(means), len(stderrs))
	}

	weights := make([]float64, len(stderrs))
	for i, e := range stderrs {
		if e > 0 {
			weights[i] = 1 / (e * e)
		} else {
			weights[i] = 1
		}
	}

	intercept, slope := stat.LinearRegression(ns, means, weights, false)
	return BurnInFit{Slope: slope, Intercept: intercept}, nil
}

// Steps evaluates the fitted model for a particle count, rounded to the
// nearest whole step and never negative.
func (f BurnInFit) Steps(n int) int {
	steps := int(math.Round(f.Slope*float64(n) + f.Intercept))
	if steps < 0 {
		return 0
	}
	return steps
}
