package flock

import "errors"

// Domain errors for model construction and configuration.
var (
	// ErrInvalidParameter indicates a parameter outside its valid range
	// (negative speed/noise/radius/weight, non-positive box length,
	// density outside (0, 1]).
	ErrInvalidParameter = errors.New("flock: parameter out of valid range")

	// ErrDimensionMismatch indicates a per-agent value array longer than
	// the particle count.
	ErrDimensionMismatch = errors.New("flock: per-agent values exceed particle count")
)
