package monitoring

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mesisim/mem/cache"
	"github.com/sarchlab/mesisim/sim"
)

type sampleComponent struct {
	*sim.ComponentBase

	buffer sim.Buffer
}

func (c *sampleComponent) Handle(_ sim.Event) error {
	return nil
}

func (c *sampleComponent) NotifyRecv(_ sim.Port) {
	// Do nothing
}

func (c *sampleComponent) ReportStats(w io.Writer) {
	fmt.Fprintf(w, "%s.buffered %d\n", c.Name(), c.buffer.Size())
}

func newSampleComponent(name string, capacity int) *sampleComponent {
	c := &sampleComponent{
		ComponentBase: sim.NewComponentBase(name),
		buffer:        sim.NewBuffer(name+".Buf", capacity),
	}

	c.AddPort("Port1", sim.NewPort(c, 2, name+".Port1"))

	return c
}

var _ = Describe("Monitor", func() {
	var (
		m      *Monitor
		engine *sim.SerialEngine
		server *httptest.Server
	)

	get := func(path string) (int, string) {
		rsp, err := http.Get(server.URL + path)
		Expect(err).NotTo(HaveOccurred())

		defer rsp.Body.Close()

		body, err := io.ReadAll(rsp.Body)
		Expect(err).NotTo(HaveOccurred())

		return rsp.StatusCode, string(body)
	}

	BeforeEach(func() {
		engine = sim.NewSerialEngine()
		m = NewMonitor()
		m.RegisterEngine(engine)
		server = httptest.NewServer(m.Handler())
	})

	AfterEach(func() {
		server.Close()
	})

	It("should register components and internal buffers", func() {
		c := newSampleComponent("Comp", 10)
		m.RegisterComponent(c)

		Expect(m.components).To(HaveLen(1))
		Expect(m.buffers).To(HaveLen(2))
		Expect(m.reporters).To(HaveLen(1))
	})

	It("should fall back to a random port for reserved ports", func() {
		Expect(m.WithPortNumber(80).portNumber).To(BeZero())
		Expect(m.WithPortNumber(8080).portNumber).To(Equal(8080))
	})

	It("should list components", func() {
		m.RegisterComponent(newSampleComponent("A", 1))
		m.RegisterComponent(newSampleComponent("B", 1))

		status, body := get("/api/list_components")

		Expect(status).To(Equal(http.StatusOK))
		Expect(body).To(MatchJSON(`["A","B"]`))
	})

	It("should tell the time", func() {
		status, body := get("/api/now")

		Expect(status).To(Equal(http.StatusOK))
		Expect(body).To(MatchJSON(`{"now":0}`))
	})

	It("should report stats", func() {
		c := newSampleComponent("Comp", 10)
		c.buffer.Push(1)
		m.RegisterComponent(c)

		_, body := get("/api/stats")

		Expect(body).To(Equal("Comp.buffered 1\n"))
	})

	It("should sort buffers by fill level", func() {
		a := newSampleComponent("A", 10)
		b := newSampleComponent("B", 2)
		a.buffer.Push(1)
		a.buffer.Push(2)
		b.buffer.Push(1)
		m.RegisterComponent(a)
		m.RegisterComponent(b)

		status, body := get("/api/hangdetector/buffers?sort=percent&limit=2")

		Expect(status).To(Equal(http.StatusOK))
		Expect(body).To(MatchJSON(`[
			{"buffer":"B.Buf","level":1,"peak":1,"cap":2},
			{"buffer":"A.Buf","level":2,"peak":2,"cap":10}
		]`))

		_, body = get("/api/hangdetector/buffers?sort=level&limit=1")
		Expect(body).To(MatchJSON(
			`[{"buffer":"A.Buf","level":2,"peak":2,"cap":10}]`))

		a.buffer.Pop()
		a.buffer.Pop()
		_, body = get("/api/hangdetector/buffers?sort=peak&limit=1")
		Expect(body).To(MatchJSON(
			`[{"buffer":"A.Buf","level":0,"peak":2,"cap":10}]`))
	})

	It("should reject unknown sort methods", func() {
		status, _ := get("/api/hangdetector/buffers?sort=name")

		Expect(status).To(Equal(http.StatusBadRequest))
	})

	It("should answer 404 for unknown components", func() {
		status, body := get("/api/component/Nothing")

		Expect(status).To(Equal(http.StatusNotFound))
		Expect(body).To(Equal("Component not found"))
	})

	It("should inspect cache lines", func() {
		l1 := cache.MakeBuilder().
			WithEngine(engine).
			WithNextLevel(&cache.SingleTarget{Target: 1}).
			WithoutNetworkPort().
			BuildL1("L1")
		m.RegisterComponent(l1)

		status, body := get("/api/line/L1/0x40")
		Expect(status).To(Equal(http.StatusOK))

		var rsp lineRsp
		Expect(json.Unmarshal([]byte(body), &rsp)).To(Succeed())
		Expect(rsp.Cache).To(Equal("L1"))
		Expect(rsp.Addr).To(Equal(uint64(0x40)))
		Expect(rsp.State).To(Equal("absent"))
		Expect(rsp.Stalled).To(BeEmpty())
	})

	It("should refuse to inspect lines of other components", func() {
		m.RegisterComponent(newSampleComponent("Comp", 1))

		status, _ := get("/api/line/Comp/0x40")

		Expect(status).To(Equal(http.StatusBadRequest))
	})

	It("should serve the page", func() {
		status, body := get("/")

		Expect(status).To(Equal(http.StatusOK))
		Expect(body).To(HavePrefix("<!DOCTYPE html>"))
	})
})

var _ = Describe("ProgressBar", func() {
	It("should track progress", func() {
		m := NewMonitor()
		bar := m.CreateProgressBar("Requests", 10)

		bar.Update(3, 2)
		bar.Update(2, 1)

		Expect(bar.InProgress).To(Equal(uint64(1)))
		Expect(bar.Finished).To(Equal(uint64(3)))
		Expect(bar.Done()).To(BeFalse())
		Expect(m.progressBars).To(ContainElement(bar))

		bar.Update(10, 0)
		Expect(bar.Done()).To(BeTrue())

		m.CompleteProgressBar(bar)
		Expect(m.progressBars).To(BeEmpty())
	})
})
