package flock

import "math"

// OrderParameter returns the instantaneous alignment magnitude
// V = |sum of velocities| / (N * mean speed), in [0, 1] up to floating point
// slack. V = 1 means perfect alignment; V near 0 means disordered motion.
func (m *Model) OrderParameter() float64 {
	var vx, vy, total float64
	for i, h := range m.headings {
		v := m.speed[i]
		vx += v * math.Cos(h)
		vy += v * math.Sin(h)
		total += v
	}
	if total == 0 {
		return 0
	}
	return math.Hypot(vx, vy) / total
}
