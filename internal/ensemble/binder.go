package ensemble

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/stat"
)

// binderCumulant estimates U = 1 - <V^4>/(3<V^2>^2) and its standard error
// by Monte Carlo. The central limit theorem makes the across-trial means of
// V^2 and V^4 approximately normal, so pairs (x, y) are drawn from
// Normal(mean2, std2) and Normal(mean4, std4), each rejection-sampled into
// [0, 1], and the cumulant distribution is built from u = 1 - y/(3x^2). This
// performs better than propagating the standard errors through the ratio of
// moments directly.
func binderCumulant(rng *rand.Rand, mean2, std2, mean4, std4 float64, samples, maxRetries int) (u, eu float64, err error) {
	dist := make([]float64, samples)
	for i := range dist {
		x, err := sampleUnitInterval(rng, mean2, std2, maxRetries)
		if err != nil {
			return 0, 0, err
		}
		y, err := sampleUnitInterval(rng, mean4, std4, maxRetries)
		if err != nil {
			return 0, 0, err
		}
		dist[i] = 1 - y/(3*x*x)
	}

	u = stat.Mean(dist, nil)
	eu = stat.PopStdDev(dist, nil) / math.Sqrt(float64(samples))
	return u, eu, nil
}

// sampleUnitInterval draws from Normal(mu, sigma), redrawing until the value
// lands in [0, 1]. The retry budget turns a pathological (mu, sigma) into an
// error instead of an infinite loop.
func sampleUnitInterval(rng *rand.Rand, mu, sigma float64, budget int) (float64, error) {
	for try := 0; try < budget; try++ {
		v := mu + sigma*rng.NormFloat64()
		if v >= 0 && v <= 1 {
			return v, nil
		}
	}
	return 0, fmt.Errorf("%w: mu=%g sigma=%g after %d draws", ErrResamplingStall, mu, sigma, budget)
}
