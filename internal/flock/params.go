package flock

import (
	"fmt"
	"math"
)

// Params identifies one experiment: a single combination of box size,
// particle count, speed, interaction radius and noise magnitude. It is
// immutable; a sweep produces one Params per point in parameter space.
type Params struct {
	Length float64 // side of the square box
	N      int     // particle count
	Speed  float64 // v0
	Radius float64 // interaction radius R
	Noise  float64 // noise magnitude eta
}

// NewParams derives the particle count from a box length and number density,
// N = floor(density * L^2).
func NewParams(length, density, speed, radius, noise float64) (Params, error) {
	if length <= 0 {
		return Params{}, fmt.Errorf("%w: box length must be positive, got %g", ErrInvalidParameter, length)
	}
	if density <= 0 || density > 1 {
		return Params{}, fmt.Errorf("%w: density must be in (0, 1], got %g", ErrInvalidParameter, density)
	}
	p := Params{
		Length: length,
		N:      int(density * length * length),
		Speed:  speed,
		Radius: radius,
		Noise:  noise,
	}
	return p, p.Validate()
}

// FixedDensityParams derives the box length from a particle count and number
// density, L = sqrt(N / density). Used by sweeps that vary N at constant
// density.
func FixedDensityParams(n int, density, speed, radius, noise float64) (Params, error) {
	if n <= 0 {
		return Params{}, fmt.Errorf("%w: particle count must be positive, got %d", ErrInvalidParameter, n)
	}
	if density <= 0 || density > 1 {
		return Params{}, fmt.Errorf("%w: density must be in (0, 1], got %g", ErrInvalidParameter, density)
	}
	p := Params{
		Length: math.Sqrt(float64(n) / density),
		N:      n,
		Speed:  speed,
		Radius: radius,
		Noise:  noise,
	}
	return p, p.Validate()
}

// Validate reports the first out-of-range parameter. Violations are errors at
// construction time, never clamped.
func (p Params) Validate() error {
	if p.Length <= 0 {
		return fmt.Errorf("%w: box length must be positive, got %g", ErrInvalidParameter, p.Length)
	}
	if p.N < 1 {
		return fmt.Errorf("%w: particle count must be at least 1, got %d", ErrInvalidParameter, p.N)
	}
	if p.Speed < 0 || math.IsNaN(p.Speed) {
		return fmt.Errorf("%w: speed must be non-negative, got %g", ErrInvalidParameter, p.Speed)
	}
	if p.Radius < 0 || math.IsNaN(p.Radius) {
		return fmt.Errorf("%w: radius must be non-negative, got %g", ErrInvalidParameter, p.Radius)
	}
	if p.Noise < 0 || math.IsNaN(p.Noise) {
		return fmt.Errorf("%w: noise must be non-negative, got %g", ErrInvalidParameter, p.Noise)
	}
	return nil
}

// Leaders configures the weighted leader variant. The first Count agents form
// a second neighbour set, queried at the fixed Radius and contributing to the
// heading average with the extra Weight. The first min(len(Trajectories),
// Count) leaders override their computed heading with the prescribed
// trajectory heading = Trajectories[k] * t at step index t.
type Leaders struct {
	Count        int
	Weight       float64
	Radius       float64
	Trajectories []float64 // angular frequencies
}

// Validate checks the leader configuration against a particle count.
func (l Leaders) Validate(n int) error {
	if l.Count < 0 || l.Count > n {
		return fmt.Errorf("%w: leader count must be in [0, %d], got %d", ErrInvalidParameter, n, l.Count)
	}
	if l.Count == 0 {
		return nil
	}
	if l.Weight < 0 || math.IsNaN(l.Weight) {
		return fmt.Errorf("%w: leader weight must be non-negative, got %g", ErrInvalidParameter, l.Weight)
	}
	if l.Radius < 0 || math.IsNaN(l.Radius) {
		return fmt.Errorf("%w: leader radius must be non-negative, got %g", ErrInvalidParameter, l.Radius)
	}
	return nil
}

// trajectoryCount is the number of leaders with a prescribed trajectory.
// Extra trajectory entries beyond the leader count are ignored.
func (l Leaders) trajectoryCount() int {
	if len(l.Trajectories) < l.Count {
		return len(l.Trajectories)
	}
	return l.Count
}
