package task

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Task", func() {
	It("should be created from valid input", func() {
		t, err := New("A", 3)

		Expect(err).NotTo(HaveOccurred())
		Expect(t).To(Equal(Task{ID: "A", Duration: 3}))
		Expect(t.String()).To(Equal("{A, 3}"))
	})

	It("should reject zero duration", func() {
		_, err := New("A", 0)

		Expect(err).To(MatchError(ErrInvalidTask))
	})

	It("should reject an empty id", func() {
		_, err := New("", 1)

		Expect(err).To(MatchError(ErrInvalidTask))
	})

	It("should generate hex ids", func() {
		Expect(NewID()).To(MatchRegexp(`^[0-9a-f]{32}$`))
	})
})

var _ = Describe("Generator", func() {
	It("should generate tasks with durations in [1, n)", func() {
		g := NewGenerator(42)

		tasks := g.Generate(10)

		Expect(tasks).To(HaveLen(10))
		seen := map[string]bool{}
		for _, t := range tasks {
			Expect(t.Duration).To(BeNumerically(">=", 1))
			Expect(t.Duration).To(BeNumerically("<", 10))
			Expect(seen).NotTo(HaveKey(t.ID))
			seen[t.ID] = true
		}
	})

	It("should use one-tact tasks for tiny batches", func() {
		g := NewGenerator(1)

		for _, t := range g.Generate(2) {
			Expect(t.Duration).To(Equal(uint64(1)))
		}
	})

	It("should be reproducible for the same seed", func() {
		durations := func(seed int64) []uint64 {
			var out []uint64
			for _, t := range NewGenerator(seed).Generate(20) {
				out = append(out, t.Duration)
			}
			return out
		}

		Expect(durations(7)).To(Equal(durations(7)))
	})

	It("should generate nothing for zero", func() {
		Expect(NewGenerator(1).Generate(0)).To(BeEmpty())
	})
})
