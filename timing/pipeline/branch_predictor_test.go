package pipeline_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rv32sim/timing/pipeline"
)

var _ = Describe("BranchPredictor", func() {
	var bp *pipeline.BranchPredictor

	BeforeEach(func() {
		bp = pipeline.NewBranchPredictor(pipeline.DefaultBranchPredictorConfig())
	})

	It("should predict not-taken for an untrained branch", func() {
		pred := bp.Predict(0x1000)

		Expect(pred.Taken).To(BeFalse())
		Expect(pred.TargetKnown).To(BeFalse())
		Expect(pred.Effective()).To(BeFalse())
	})

	It("should predict taken after one taken outcome", func() {
		bp.Update(0x1000, true, 0x2000)

		pred := bp.Predict(0x1000)

		Expect(pred.Taken).To(BeTrue())
		Expect(pred.Target).To(Equal(uint32(0x2000)))
		Expect(pred.TargetKnown).To(BeTrue())
		Expect(pred.Effective()).To(BeTrue())
	})

	It("should stay taken after one not-taken outcome when strongly trained", func() {
		bp.Update(0x1000, true, 0x2000)
		bp.Update(0x1000, true, 0x2000)
		bp.Update(0x1000, false, 0)

		pred := bp.Predict(0x1000)

		Expect(pred.Taken).To(BeTrue())
	})

	It("should flip to not-taken after two not-taken outcomes", func() {
		bp.Update(0x1000, true, 0x2000)
		bp.Update(0x1000, true, 0x2000)
		bp.Update(0x1000, false, 0)
		bp.Update(0x1000, false, 0)

		pred := bp.Predict(0x1000)

		Expect(pred.Taken).To(BeFalse())
	})

	It("should saturate instead of wrapping", func() {
		for i := 0; i < 10; i++ {
			bp.Update(0x1000, true, 0x2000)
		}
		bp.Update(0x1000, false, 0)

		pred := bp.Predict(0x1000)

		Expect(pred.Taken).To(BeTrue())
	})

	It("should not predict a taken direction without a BTB target as effective", func() {
		// Train the counter through a colliding PC so the BTB tag does
		// not match the queried one.
		colliding := uint32(0x1000 + 1024*4)
		bp.Update(colliding, true, 0x2000)
		bp.Update(colliding, true, 0x2000)

		pred := bp.Predict(0x1000)

		Expect(pred.Taken).To(BeTrue())
		Expect(pred.TargetKnown).To(BeFalse())
		Expect(pred.Effective()).To(BeFalse())
	})

	It("should reject a BTB entry whose tag does not match", func() {
		bp.Update(0x1000, true, 0x2000)

		colliding := uint32(0x1000 + 256*4)
		pred := bp.Predict(colliding)

		Expect(pred.TargetKnown).To(BeFalse())
	})

	It("should track prediction statistics", func() {
		bp.Update(0x1000, true, 0x2000)  // predicted NT, mispredict
		bp.Update(0x1000, true, 0x2000)  // predicted T, correct
		bp.Update(0x1000, false, 0)      // predicted T, mispredict

		stats := bp.Stats()

		Expect(stats.Correct).To(Equal(uint64(1)))
		Expect(stats.Mispredictions).To(Equal(uint64(2)))
		Expect(stats.Accuracy()).To(BeNumerically("~", 100.0/3.0, 0.01))
		Expect(stats.MispredictionRate()).To(BeNumerically("~", 200.0/3.0, 0.01))
	})

	It("should count BTB hits and misses", func() {
		bp.Predict(0x1000)
		bp.Update(0x1000, true, 0x2000)
		bp.Predict(0x1000)

		stats := bp.Stats()

		Expect(stats.BTBHits).To(Equal(uint64(1)))
		Expect(stats.BTBMisses).To(Equal(uint64(1)))
		Expect(stats.BTBHitRate()).To(BeNumerically("~", 50.0, 0.01))
	})

	It("should return to the cold state on reset", func() {
		bp.Update(0x1000, true, 0x2000)
		bp.Update(0x1000, true, 0x2000)
		bp.Reset()

		pred := bp.Predict(0x1000)

		Expect(pred.Taken).To(BeFalse())
		Expect(pred.TargetKnown).To(BeFalse())
		Expect(bp.Stats().Predictions).To(Equal(uint64(1)))
	})
})
