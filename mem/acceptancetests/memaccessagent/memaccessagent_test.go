package memaccessagent

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/mesisim/mem/coherence"
	"github.com/sarchlab/mesisim/sim"
)

type fakeCache struct {
	*sim.ComponentBase
	top sim.Port
}

func (c *fakeCache) NotifyRecv(_ sim.Port) {}

func (c *fakeCache) Handle(_ sim.Event) error {
	return nil
}

func newFakeCache() *fakeCache {
	c := &fakeCache{ComponentBase: sim.NewComponentBase("L1")}
	c.top = sim.NewPort(c, 4, "L1.Top")
	c.AddPort("Top", c.top)

	return c
}

var _ = Describe("MemAccessAgent", func() {
	var (
		mockCtrl *gomock.Controller
		engine   *MockEngine
		conn     *MockConnection
		l1       *fakeCache
		now      sim.VTimeInCycle
		sent     []*coherence.CacheReq
	)

	respond := func(a *MemAccessAgent, req *coherence.CacheReq, hit bool) {
		rsp := coherence.NewCacheRsp(req, hit)
		a.GetPortByName("Mem").Deliver(rsp)
	}

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		engine = NewMockEngine(mockCtrl)
		conn = NewMockConnection(mockCtrl)
		l1 = newFakeCache()
		now = 0
		sent = nil

		engine.EXPECT().
			CurrentTime().
			DoAndReturn(func() sim.VTimeInCycle { return now }).
			AnyTimes()
		engine.EXPECT().Schedule(gomock.Any()).AnyTimes()
		conn.EXPECT().
			Send(gomock.Any(), gomock.Any()).
			Do(func(msg sim.Msg, _ sim.VTimeInCycle) {
				sent = append(sent, msg.(*coherence.CacheReq))
			}).
			AnyTimes()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should issue the script in order", func() {
		a := MakeBuilder().
			WithEngine(engine).
			WithLowModule(l1.top).
			WithScript(
				Access{Op: coherence.Load, Addr: 0x40},
				Access{Op: coherence.Store, Addr: 0x80},
			).
			Build("Agent")
		a.GetPortByName("Mem").SetConnection(conn)

		Expect(a.Tick()).To(BeTrue())
		Expect(a.Tick()).To(BeTrue())
		Expect(a.Tick()).To(BeFalse())

		Expect(sent).To(HaveLen(2))
		Expect(sent[0].Op).To(Equal(coherence.Load))
		Expect(sent[0].Addr).To(Equal(uint64(0x40)))
		Expect(sent[1].Op).To(Equal(coherence.Store))
		Expect(sent[1].Dst).To(Equal(l1.top.AsRemote()))
		Expect(a.Done()).To(BeTrue())
		Expect(a.AllCompleted()).To(BeFalse())
		Expect(a.MustBeComplete).To(Panic())

		now = 7
		respond(a, sent[0], false)
		respond(a, sent[1], true)
		a.Tick()
		a.Tick()

		Expect(a.AllCompleted()).To(BeTrue())
		Expect(a.Completed).To(Equal(uint64(2)))
		Expect(a.Hits).To(Equal(uint64(1)))
		Expect(a.TotalLatency).To(Equal(uint64(14)))
	})

	It("should hold a scripted access until its cycle", func() {
		a := MakeBuilder().
			WithEngine(engine).
			WithLowModule(l1.top).
			WithScript(Access{Op: coherence.Load, Addr: 0x40, NotBefore: 5}).
			Build("Agent")
		a.GetPortByName("Mem").SetConnection(conn)

		now = 4
		Expect(a.Tick()).To(BeTrue())
		Expect(sent).To(BeEmpty())
		Expect(a.Done()).To(BeFalse())

		now = 5
		Expect(a.Tick()).To(BeTrue())
		Expect(sent).To(HaveLen(1))
		Expect(a.Done()).To(BeTrue())
	})

	It("should stop issuing when too many requests are in flight", func() {
		a := MakeBuilder().
			WithEngine(engine).
			WithLowModule(l1.top).
			WithReadLeft(5).
			WithWriteLeft(5).
			WithMaxInflight(2).
			WithMaxAddress(4096).
			Build("Agent")
		a.GetPortByName("Mem").SetConnection(conn)

		a.Tick()
		a.Tick()
		Expect(a.Tick()).To(BeFalse())

		Expect(sent).To(HaveLen(2))
		Expect(a.ReadLeft + a.WriteLeft).To(Equal(8))

		for _, req := range sent {
			Expect(req.Addr).To(BeNumerically("<", 4096))
			Expect(req.Addr % 4).To(BeZero())
		}

		respond(a, sent[0], false)
		Expect(a.Tick()).To(BeTrue())
		Expect(sent).To(HaveLen(3))
	})

	It("should panic on a response it did not ask for", func() {
		a := MakeBuilder().
			WithEngine(engine).
			WithLowModule(l1.top).
			Build("Agent")

		req := coherence.CacheReqBuilder{}.
			WithSrc(a.GetPortByName("Mem").AsRemote()).
			WithDst(l1.top.AsRemote()).
			Build()
		respond(a, req, false)

		Expect(func() { a.Tick() }).To(Panic())
	})
})
