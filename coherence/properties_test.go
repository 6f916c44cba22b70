package coherence_test

import (
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/moesisim/coherence"
)

type txLog struct {
	txs []coherence.BusTransaction
}

func (l *txLog) ObserveBus(tx coherence.BusTransaction) {
	l.txs = append(l.txs, tx)
}

func totalInvalidations(e *coherence.Engine, processors int) uint64 {
	var total uint64
	for p := 0; p < processors; p++ {
		total += e.Stats(p).TotalInvalidations()
	}
	return total
}

var _ = Describe("Protocol properties", func() {
	const processors = 4

	var (
		geometry coherence.Geometry
		events   []coherence.AccessEvent
	)

	BeforeEach(func() {
		var err error
		// 4 indices and 3 tags per index keep conflicts and sharing frequent.
		geometry, err = coherence.NewGeometry(16, 4, 16)
		Expect(err).NotTo(HaveOccurred())

		rng := rand.New(rand.NewSource(42))
		events = nil
		for cycle := uint64(0); cycle < 2000; cycle++ {
			index := uint64(rng.Intn(geometry.NumIndices()))
			tag := uint64(rng.Intn(3))
			ev, err := coherence.NewAccessEvent(
				geometry,
				cycle,
				rng.Intn(processors),
				rng.Intn(3) == 0,
				geometry.LineAddress(index, tag)|uint64(rng.Intn(4)),
			)
			Expect(err).NotTo(HaveOccurred())
			events = append(events, ev)
		}
	})

	It("should keep M and E exclusive on every line", func() {
		engine, err := coherence.NewEngine(geometry, processors,
			coherence.WithInvariantChecking())
		Expect(err).NotTo(HaveOccurred())

		for _, ev := range events {
			Expect(engine.Apply(ev)).To(Succeed())
		}
		Expect(coherence.CheckDirectory(engine.Directory())).To(Succeed())
	})

	It("should count one invalidation per invalidated copy", func() {
		log := &txLog{}
		engine, err := coherence.NewEngine(geometry, processors,
			coherence.WithObserver(log))
		Expect(err).NotTo(HaveOccurred())

		for _, ev := range events {
			before := totalInvalidations(engine, processors)
			seen := len(log.txs)

			Expect(engine.Apply(ev)).To(Succeed())

			invalidated := 0
			for _, tx := range log.txs[seen:] {
				invalidated += len(tx.Invalidated)
			}
			Expect(totalInvalidations(engine, processors) - before).
				To(Equal(uint64(invalidated)))
		}
	})

	It("should only credit transfers to the supplier of a transaction", func() {
		log := &txLog{}
		engine, err := coherence.NewEngine(geometry, processors,
			coherence.WithObserver(log))
		Expect(err).NotTo(HaveOccurred())

		previous := make([]coherence.ProcessorStats, processors)
		for p := range previous {
			previous[p] = engine.Stats(p)
		}

		for _, ev := range events {
			seen := len(log.txs)
			Expect(engine.Apply(ev)).To(Succeed())

			for p := 0; p < processors; p++ {
				current := engine.Stats(p)
				for r := 0; r < processors; r++ {
					Expect(current.Transfers[r]).To(BeNumerically(">=", previous[p].Transfers[r]))
					if current.Transfers[r] == previous[p].Transfers[r] {
						continue
					}

					Expect(r).To(Equal(ev.Processor))
					Expect(log.txs[seen:]).To(ContainElement(
						HaveField("Supplier", p)))
				}
				previous[p] = current
			}
		}
	})

	It("should give identical results for identical input", func() {
		run := func() coherence.Snapshot {
			engine, err := coherence.NewEngine(geometry, processors)
			Expect(err).NotTo(HaveOccurred())
			Expect(engine.Run(events)).To(Succeed())
			return engine.Snapshot()
		}

		Expect(run()).To(Equal(run()))
	})
})
