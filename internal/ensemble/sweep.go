package ensemble

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mcalder42/vicsek/internal/flock"
)

// seedStride separates the random streams of different parameter
// combinations so their repeats are uncorrelated.
const seedStride = int64(1) << 20

// Sweep enumerates the cartesian product of particle counts, speeds, radii
// and noise magnitudes, and drives an aggregation for each combination.
type Sweep struct {
	Ns     []int
	Speeds []float64
	Radii  []float64
	Noises []float64

	// FixedDensity rescales the box per combination, L = sqrt(N/density);
	// otherwise Length is used for every N.
	FixedDensity bool
	Density      float64
	Length       float64

	// BurnCoeff is the calibrated linear burn-in model
	// nt_burn = BurnCoeff[0]*N + BurnCoeff[1] (see FitBurnIn).
	BurnCoeff [2]float64

	Leaders flock.Leaders
}

// Combinations expands the sweep into parameter combinations, ordered N
// outermost and noise innermost as in the results files.
func (s *Sweep) Combinations() ([]flock.Params, error) {
	if len(s.Ns) == 0 || len(s.Speeds) == 0 || len(s.Radii) == 0 || len(s.Noises) == 0 {
		return nil, fmt.Errorf("%w: sweep requires at least one value per parameter", flock.ErrInvalidParameter)
	}

	combos := make([]flock.Params, 0, len(s.Ns)*len(s.Speeds)*len(s.Radii)*len(s.Noises))
	for _, n := range s.Ns {
		for _, v0 := range s.Speeds {
			for _, r := range s.Radii {
				for _, eta := range s.Noises {
					var p flock.Params
					var err error
					if s.FixedDensity {
						p, err = flock.FixedDensityParams(n, s.Density, v0, r, eta)
					} else {
						p = flock.Params{Length: s.Length, N: n, Speed: v0, Radius: r, Noise: eta}
						err = p.Validate()
					}
					if err != nil {
						return nil, err
					}
					combos = append(combos, p)
				}
			}
		}
	}
	return combos, nil
}

// burnSteps budgets the burn-in for a particle count from the calibrated
// coefficients.
func (s *Sweep) burnSteps(n int) int {
	return BurnInFit{Slope: s.BurnCoeff[0], Intercept: s.BurnCoeff[1]}.Steps(n)
}

// Run aggregates every combination and hands each Result to handle. Workers
// process combinations in parallel; handle is called from a single collector
// goroutine, so the output sink never sees concurrent writes. Results arrive
// in completion order. Cancellation is honoured between combinations; the
// first error stops the handling of further results.
func (s *Sweep) Run(ctx context.Context, opts Options, workers int, handle func(Result) error) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	combos, err := s.Combinations()
	if err != nil {
		return err
	}
	if workers < 1 {
		workers = 1
	}
	if workers > len(combos) {
		workers = len(combos)
	}

	type outcome struct {
		idx int
		res Result
		err error
	}

	jobs := make(chan int)
	out := make(chan outcome)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				p := combos[idx]
				o := opts
				o.Seed = opts.Seed + int64(idx)*seedStride
				o.BurnInSteps = s.burnSteps(p.N)

				slog.Info("parameter combination",
					"index", idx+1, "total", len(combos),
					"N", p.N, "L", p.Length, "v0", p.Speed, "R", p.Radius, "eta", p.Noise,
					"burn_in", o.BurnInSteps, "steps", o.Steps)

				res, err := Aggregate(ctx, p, s.Leaders, o)
				out <- outcome{idx: idx, res: res, err: err}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := range combos {
			select {
			case <-ctx.Done():
				return
			case jobs <- i:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(out)
	}()

	var firstErr error
	for o := range out {
		if firstErr != nil {
			continue
		}
		if o.err != nil {
			firstErr = o.err
			continue
		}
		if err := handle(o.res); err != nil {
			firstErr = fmt.Errorf("handling result %d: %w", o.idx, err)
		}
	}
	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}
