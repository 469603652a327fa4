package ensemble

import (
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Binder cumulant Monte Carlo", func() {
	var rng *rand.Rand

	BeforeEach(func() {
		rng = rand.New(rand.NewSource(1))
	})

	Describe("sampleUnitInterval", func() {
		It("returns draws inside the unit interval", func() {
			for i := 0; i < 100; i++ {
				v, err := sampleUnitInterval(rng, 0.5, 0.4, DefaultMaxRetries)
				Expect(err).NotTo(HaveOccurred())
				Expect(v).To(BeNumerically(">=", 0))
				Expect(v).To(BeNumerically("<=", 1))
			}
		})

		It("fails when the distribution cannot reach the unit interval", func() {
			_, err := sampleUnitInterval(rng, 5.0, 1e-6, 1000)
			Expect(err).To(MatchError(ErrResamplingStall))
		})
	})

	Describe("binderCumulant", func() {
		It("recovers the analytic cumulant for tight moments", func() {
			mean2, mean4 := 0.9, 0.82
			u, eu, err := binderCumulant(rng, mean2, 1e-6, mean4, 1e-6, 2000, DefaultMaxRetries)
			Expect(err).NotTo(HaveOccurred())

			analytic := 1 - mean4/(3*mean2*mean2)
			Expect(u).To(BeNumerically("~", analytic, 1e-4))
			Expect(eu).To(BeNumerically("<", 1e-6))
		})

		It("never exceeds one", func() {
			u, _, err := binderCumulant(rng, 0.5, 0.2, 0.4, 0.2, 500, DefaultMaxRetries)
			Expect(err).NotTo(HaveOccurred())
			Expect(u).To(BeNumerically("<=", 1))
		})

		It("reports a positive error for spread moments", func() {
			_, eu, err := binderCumulant(rng, 0.6, 0.1, 0.5, 0.1, 500, DefaultMaxRetries)
			Expect(err).NotTo(HaveOccurred())
			Expect(eu).To(BeNumerically(">", 0))
		})

		It("propagates a stalled rejection sampler", func() {
			_, _, err := binderCumulant(rng, 5.0, 1e-6, 0.5, 0.1, 10, 1000)
			Expect(err).To(MatchError(ErrResamplingStall))
		})
	})
})
