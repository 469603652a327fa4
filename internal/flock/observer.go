package flock

// StepObserver is notified after every completed step. Observers compose:
// recording, rendering and noise schedules are independent strategies
// attached to the same model.
type StepObserver interface {
	OnStep(m *Model)
}

// TrajectoryRecorder records the order parameter after every step.
type TrajectoryRecorder struct {
	Steps  []int
	Values []float64
}

func (r *TrajectoryRecorder) OnStep(m *Model) {
	r.Steps = append(r.Steps, m.CurrentStep())
	r.Values = append(r.Values, m.OrderParameter())
}

// Last returns the most recent recorded order parameter, 0 if none.
func (r *TrajectoryRecorder) Last() float64 {
	if len(r.Values) == 0 {
		return 0
	}
	return r.Values[len(r.Values)-1]
}

// NoiseAnnealer steps the noise magnitude through a linear schedule from
// Start to Finish across Levels values, holding each level for StepsPerLevel
// steps. After the last level the noise stays at Finish.
type NoiseAnnealer struct {
	Start         float64
	Finish        float64
	Levels        int
	StepsPerLevel int
}

// Current returns the noise magnitude for a given step count.
func (a *NoiseAnnealer) Current(step int) float64 {
	if a.Levels <= 1 || a.StepsPerLevel <= 0 {
		return a.Start
	}
	level := step / a.StepsPerLevel
	if level >= a.Levels {
		level = a.Levels - 1
	}
	frac := float64(level) / float64(a.Levels-1)
	eta := a.Start + (a.Finish-a.Start)*frac
	if eta < 0 {
		eta = 0
	}
	return eta
}

func (a *NoiseAnnealer) OnStep(m *Model) {
	// Current is never negative, so SetNoise cannot fail here.
	_ = m.SetNoise(a.Current(m.CurrentStep()))
}
