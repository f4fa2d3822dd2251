package platform

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/sarchlab/mesisim/mem/acceptancetests/memaccessagent"
	"github.com/sarchlab/mesisim/tracing"
)

var _ = Describe("Platform", func() {
	smallRun := func(split bool) Config {
		c := DefaultConfig()
		c.Split = split
		c.Agent.Reads = 200
		c.Agent.Writes = 200
		c.Agent.MaxAddress = 32 * 1024

		return c
	}

	It("should build a system with private L1s and shared slices", func() {
		p := MakeBuilder().Build()

		Expect(p.L1s).To(HaveLen(2))
		Expect(p.L2s).To(HaveLen(2))
		Expect(p.Muxes).To(BeEmpty())
		Expect(p.Agents).To(HaveLen(2))
		Expect(p.Components()).To(HaveLen(7))
		Expect(p.L2s[1].ID()).To(Equal(3))
		Expect(p.Memory.ID()).To(Equal(4))
	})

	It("should build a split system", func() {
		c := DefaultConfig()
		c.Split = true
		c.Cores = 3

		p := MakeBuilder().WithConfig(c).Build()

		Expect(p.L1s).To(HaveLen(3))
		Expect(p.L2s).To(HaveLen(3))
		Expect(p.Muxes).To(HaveLen(3))
		Expect(p.L1s[2].ID()).To(Equal(2))
		Expect(p.L2s[2].ID()).To(Equal(2))
		Expect(p.Memory.ID()).To(Equal(3))
	})

	It("should refuse an invalid config", func() {
		c := DefaultConfig()
		c.Cores = 0

		Expect(func() { MakeBuilder().WithConfig(c).Build() }).To(Panic())
	})

	It("should run a script to completion", func() {
		c := DefaultConfig()
		c.Cores = 1

		p := MakeBuilder().
			WithConfig(c).
			WithScripts([]memaccessagent.Access{loadAt(lineA), storeAt(lineA),
				loadAt(lineA)}).
			Build()

		_, _, total := p.Progress()
		Expect(total).To(Equal(uint64(3)))

		Expect(p.Run()).To(Succeed())

		finished, inflight, total := p.Progress()
		Expect(finished).To(Equal(uint64(3)))
		Expect(inflight).To(BeZero())
		Expect(total).To(Equal(uint64(3)))
		Expect(p.Agents[0].Completed).To(Equal(uint64(3)))
		Expect(StateOf(p.L1s[0], lineA)).To(Equal("M"))
		Expect(p.CheckCoherence(lineA)).To(Succeed())
	})

	It("should let cores without a script stay idle", func() {
		p := MakeBuilder().
			WithScripts([]memaccessagent.Access{loadAt(lineA)}).
			Build()

		Expect(p.Run()).To(Succeed())
		Expect(p.Agents[0].Completed).To(Equal(uint64(1)))
		Expect(p.Agents[1].Completed).To(BeZero())
	})

	It("should run random traffic on private caches", func() {
		p := MakeBuilder().WithConfig(smallRun(false)).Build()

		Expect(p.Run()).To(Succeed())
		for _, a := range p.Agents {
			Expect(a.Completed).To(Equal(uint64(400)))
		}
	})

	It("should run random traffic on split nodes", func() {
		p := MakeBuilder().WithConfig(smallRun(true)).Build()

		Expect(p.Run()).To(Succeed())
		for _, a := range p.Agents {
			Expect(a.Completed).To(Equal(uint64(400)))
		}

		for _, m := range p.Muxes {
			Expect(m.Credits()).To(Equal(16))
		}
	})

	It("should trace processor requests", func() {
		c := DefaultConfig()
		c.Cores = 1

		p := MakeBuilder().
			WithConfig(c).
			WithScripts([]memaccessagent.Access{loadAt(lineA), loadAt(lineB)}).
			Build()
		t := tracing.NewAverageTimeTracer(p.Engine, tracing.KindIs("req_in"))
		p.CollectTrace(t)

		Expect(p.Run()).To(Succeed())
		Expect(t.TotalCount()).To(Equal(uint64(2)))
		Expect(t.AverageTime()).To(BeNumerically(">", 100))
	})

	It("should log events and messages at trace level", func() {
		logger, hook := test.NewNullLogger()
		logger.SetLevel(logrus.TraceLevel)

		p := MakeBuilder().
			WithScripts([]memaccessagent.Access{loadAt(lineA)}).
			Build()
		p.LogActivity(logger)

		Expect(p.Run()).To(Succeed())

		var events, msgs int
		for _, e := range hook.AllEntries() {
			switch e.Message {
			case "event":
				events++
			case "msg":
				msgs++
			}
		}

		Expect(events).To(BeNumerically(">", 0))
		Expect(msgs).To(BeNumerically(">", 0))
	})

	It("should report the counters of every component", func() {
		p := MakeBuilder().
			WithScripts([]memaccessagent.Access{loadAt(lineA)}).
			Build()
		Expect(p.Run()).To(Succeed())

		buf := new(bytes.Buffer)
		p.ReportStats(buf)

		Expect(buf.String()).To(ContainSubstring("cycles "))
		Expect(buf.String()).To(ContainSubstring("L1[0]"))
		Expect(buf.String()).To(ContainSubstring("L2[1]"))
		Expect(buf.String()).To(ContainSubstring("Memory"))
	})

	It("should count stalls by reason", func() {
		s, _ := LookupScenario("d")

		p, err := RunScenario(s, nil)
		Expect(err).NotTo(HaveOccurred())

		Expect(p.Steps().GetStepNames()).To(ConsistOf("MSHR_STALL"))
		Expect(p.Steps().GetStepCount("MSHR_STALL")).To(Equal(uint64(1)))
		Expect(p.Steps().GetTaskCount("MSHR_STALL")).To(Equal(uint64(1)))

		buf := new(bytes.Buffer)
		p.ReportStats(buf)

		Expect(buf.String()).To(ContainSubstring("steps.MSHR_STALL 1\n"))
		Expect(buf.String()).To(ContainSubstring("steps.MSHR_STALL.tasks 1\n"))
	})
})

var _ = Describe("Scenarios", func() {
	It("should list the scenarios in order", func() {
		Expect(ScenarioNames()).To(Equal([]string{"a", "b", "c", "d", "e"}))
	})

	It("should not find an unknown scenario", func() {
		_, ok := LookupScenario("z")
		Expect(ok).To(BeFalse())
	})

	It("should make the directory drop a stale eviction", func() {
		s, _ := LookupScenario("c")

		p, err := RunScenario(s, nil)
		Expect(err).NotTo(HaveOccurred())

		Expect(p.L1s[0].AutomataStats().Races).To(BeNumerically(">=", 1))
		Expect(p.L2s[0].AutomataStats().Ignored).To(BeNumerically(">=", 1))
		Expect(p.L2s[0].Stats().Ignored).To(BeNumerically(">=", 1))
	})

	for _, name := range []string{"a", "b", "c", "d", "e"} {
		name := name

		It("should pass scenario "+name, func() {
			s, ok := LookupScenario(name)
			Expect(ok).To(BeTrue())

			_, err := RunScenario(s, nil)
			Expect(err).NotTo(HaveOccurred())
		})
	}
})
