package ensemble

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/mcalder42/vicsek/internal/flock"
)

func TestBurnInOptions_Validate(t *testing.T) {
	valid := BurnInOptions{MaxSteps: 100, Repeats: 1}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid options rejected: %v", err)
	}

	tests := []struct {
		name string
		opts BurnInOptions
	}{
		{"threshold above one", BurnInOptions{Threshold: 1.5, MaxSteps: 100, Repeats: 1}},
		{"no step budget", BurnInOptions{MaxSteps: 0, Repeats: 1}},
		{"no repeats", BurnInOptions{MaxSteps: 100, Repeats: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.opts.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestDetectBurnIn(t *testing.T) {
	// Small system with a generous radius settles quickly at zero noise.
	p, err := flock.FixedDensityParams(12, 0.5, 0.1, 2.0, 5.0)
	if err != nil {
		t.Fatal(err)
	}
	opts := BurnInOptions{MaxSteps: 50000, Repeats: 4, Seed: 13}

	res, err := DetectBurnIn(context.Background(), p, opts)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Counts) != 4 {
		t.Fatalf("expected 4 counts, got %d", len(res.Counts))
	}
	for i, c := range res.Counts {
		if c < 0 {
			t.Errorf("repeat %d: negative count %d", i, c)
		}
	}
	if res.Mean < 0 {
		t.Errorf("negative mean burn-in: %g", res.Mean)
	}
	if res.StdErr < 0 {
		t.Errorf("negative standard error: %g", res.StdErr)
	}
}

// DetectBurnIn runs at zero noise regardless of the noise in the parameters,
// so the measurement is identical for any noise value.
func TestDetectBurnIn_IgnoresNoise(t *testing.T) {
	opts := BurnInOptions{MaxSteps: 50000, Repeats: 2, Seed: 3}

	quiet, _ := flock.FixedDensityParams(12, 0.5, 0.1, 2.0, 0)
	loud, _ := flock.FixedDensityParams(12, 0.5, 0.1, 2.0, 4.0)

	a, err := DetectBurnIn(context.Background(), quiet, opts)
	if err != nil {
		t.Fatal(err)
	}
	b, err := DetectBurnIn(context.Background(), loud, opts)
	if err != nil {
		t.Fatal(err)
	}
	if a.Mean != b.Mean {
		t.Errorf("noise leaked into burn-in detection: %g vs %g", a.Mean, b.Mean)
	}
}

func TestDetectBurnIn_Timeout(t *testing.T) {
	// Zero radius prevents alignment forever.
	p := flock.Params{Length: 10, N: 50, Speed: 0.1, Radius: 0, Noise: 0}
	opts := BurnInOptions{MaxSteps: 40, Repeats: 1, Seed: 8}

	_, err := DetectBurnIn(context.Background(), p, opts)
	if !errors.Is(err, ErrBurnInTimeout) {
		t.Errorf("expected ErrBurnInTimeout, got %v", err)
	}
}

func TestFitBurnIn_RecoversLinearModel(t *testing.T) {
	ns := []float64{50, 100, 200, 300}
	means := make([]float64, len(ns))
	stderrs := make([]float64, len(ns))
	for i, n := range ns {
		means[i] = 2*n + 5
		stderrs[i] = 1
	}

	fit, err := FitBurnIn(ns, means, stderrs)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(fit.Slope-2) > 1e-9 {
		t.Errorf("expected slope 2, got %g", fit.Slope)
	}
	if math.Abs(fit.Intercept-5) > 1e-9 {
		t.Errorf("expected intercept 5, got %g", fit.Intercept)
	}
	if got := fit.Steps(100); got != 205 {
		t.Errorf("expected 205 steps at N=100, got %d", got)
	}
}

func TestFitBurnIn_WeightsDownNoisyPoints(t *testing.T) {
	// The outlier carries a huge standard error and should barely move the fit.
	ns := []float64{50, 100, 200, 300}
	means := []float64{105, 205, 405, 100000}
	stderrs := []float64{1, 1, 1, 1e6}

	fit, err := FitBurnIn(ns, means, stderrs)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(fit.Slope-2) > 0.05 {
		t.Errorf("outlier dominated the weighted fit: slope %g", fit.Slope)
	}
}

func TestFitBurnIn_Errors(t *testing.T) {
	if _, err := FitBurnIn([]float64{1}, []float64{1}, []float64{1}); err == nil {
		t.Error("expected error for a single point")
	}
	if _, err := FitBurnIn([]float64{1, 2}, []float64{1}, []float64{1, 1}); err == nil {
		t.Error("expected error for mismatched lengths")
	}
}

func TestBurnInFit_StepsClampsNegative(t *testing.T) {
	fit := BurnInFit{Slope: -1, Intercept: 10}
	if got := fit.Steps(100); got != 0 {
		t.Errorf("expected 0 steps, got %d", got)
	}
}
