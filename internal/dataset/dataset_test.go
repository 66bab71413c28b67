package dataset_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/grt43/genetic-ode/internal/dataset"
)

var _ = Describe("Dataset", func() {
	Describe("construction", func() {
		It("accepts valid paired samples", func() {
			d, err := dataset.New([]float64{0, 1, 2, 3}, []float64{0, 1, 4, 9})
			Expect(err).NotTo(HaveOccurred())
			Expect(d.Len()).To(Equal(4))
		})

		It("rejects mismatched lengths", func() {
			_, err := dataset.New([]float64{0, 1, 2}, []float64{0, 1})
			Expect(err).To(MatchError(dataset.ErrLengthMismatch))
			Expect(err).To(MatchError(dataset.ErrInvalid))
		})

		It("rejects fewer than two samples", func() {
			_, err := dataset.New([]float64{0}, []float64{0})
			Expect(err).To(MatchError(dataset.ErrTooFewSamples))
		})

		It("rejects non-increasing time", func() {
			_, err := dataset.New([]float64{0, 2, 2}, []float64{0, 1, 2})
			Expect(err).To(MatchError(dataset.ErrNonIncreasingTime))

			_, err = dataset.New([]float64{0, 2, 1}, []float64{0, 1, 2})
			Expect(err).To(MatchError(dataset.ErrNonIncreasingTime))
		})
	})

	Describe("accessors", func() {
		It("exposes the initial condition from the first sample", func() {
			d, err := dataset.New([]float64{1.5, 2, 3}, []float64{-4, 0, 4})
			Expect(err).NotTo(HaveOccurred())
			Expect(d.T0()).To(Equal(1.5))
			Expect(d.X0()).To(Equal(-4.0))
		})

		It("is unaffected by later writes to the input slices", func() {
			times := []float64{0, 1}
			positions := []float64{5, 6}
			d, err := dataset.New(times, positions)
			Expect(err).NotTo(HaveOccurred())

			times[0] = 99
			positions[0] = 99
			Expect(d.T0()).To(Equal(0.0))
			Expect(d.X0()).To(Equal(5.0))
		})
	})
})
