package flock

import (
	"fmt"
	"math"
)

// Profile is a per-agent scalar parameter array whose length equals the
// particle count. Speed, noise, radius and weight are all profiles.
type Profile []float64

// ExpandProfile expands values into a profile of length n. A single value is
// broadcast to every agent. A short array is padded by repeating its last
// element, and the result is reversed, so the supplied values occupy the tail
// of the profile in reverse order. Placing the distinguished agents at the end
// means renderers draw them on top of the rest.
//
// ExpandProfile(36, [4 2 3 1]) yields 32 entries of 1 followed by 1, 3, 2, 4.
func ExpandProfile(n int, values []float64) (Profile, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: particle count %d", ErrInvalidParameter, n)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: no values supplied", ErrInvalidParameter)
	}
	if len(values) > n {
		return nil, fmt.Errorf("%w: got %d values for %d particles", ErrDimensionMismatch, len(values), n)
	}

	out := make(Profile, n)
	last := values[len(values)-1]
	for i := range out {
		out[i] = last
	}
	copy(out, values)

	for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// Mean returns the arithmetic mean of the profile, 0 for an empty profile.
func (p Profile) Mean() float64 {
	if len(p) == 0 {
		return 0
	}
	var sum float64
	for _, v := range p {
		sum += v
	}
	return sum / float64(len(p))
}

func checkNonNegative(name string, p Profile) error {
	for _, v := range p {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("%w: %s must be non-negative, got %g", ErrInvalidParameter, name, v)
		}
	}
	return nil
}
