package ensemble

import "errors"

// Domain errors for the statistics pipeline.
var (
	// ErrTooFewRepeats indicates fewer than two repeats were requested;
	// the sample variance is undefined below that.
	ErrTooFewRepeats = errors.New("ensemble: at least two repeats required")

	// ErrNoErrorSamples indicates a non-positive Monte-Carlo sample count.
	ErrNoErrorSamples = errors.New("ensemble: at least one error sample required")

	// ErrBurnInTimeout indicates the order parameter never reached the
	// detection threshold within the step budget.
	ErrBurnInTimeout = errors.New("ensemble: order parameter never reached threshold")

	// ErrResamplingStall indicates rejection sampling exceeded its retry
	// budget for a single draw.
	ErrResamplingStall = errors.New("ensemble: rejection sampling exceeded retry budget")
)
