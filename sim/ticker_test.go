package sim

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	gomock "go.uber.org/mock/gomock"
)

var _ = Describe("Ticking Component", func() {
	var (
		mockCtrl *gomock.Controller
		engine   *MockEngine
		ticker   *MockTicker
		tc       *TickingComponent
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		engine = NewMockEngine(mockCtrl)
		ticker = NewMockTicker(mockCtrl)
		tc = NewTickingComponent("TC", engine, ticker)

		engine.EXPECT().CurrentTime().Return(VTimeInCycle(10)).AnyTimes()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should tick in the current cycle when receiving a message", func() {
		engine.EXPECT().Schedule(gomock.Any()).
			Do(func(e Event) {
				Expect(e.Time()).To(Equal(VTimeInCycle(10)))
				Expect(e.IsSecondary()).To(BeTrue())
			})

		tc.NotifyRecv(nil)
	})

	It("should tick again when the ticker makes progress", func() {
		engine.EXPECT().Schedule(gomock.Any()).
			Do(func(e Event) {
				Expect(e.Time()).To(Equal(VTimeInCycle(11)))
			})
		ticker.EXPECT().Tick().Return(true)

		Expect(tc.Handle(MakeTickEvent(tc, 10))).To(Succeed())
	})

	It("should not schedule twice for the same cycle", func() {
		engine.EXPECT().Schedule(gomock.Any()).
			Do(func(e Event) {
				Expect(e.Time()).To(Equal(VTimeInCycle(11)))
			})

		ticker.EXPECT().Tick().Return(true).Times(2)
		Expect(tc.Handle(MakeTickEvent(tc, 10))).To(Succeed())
		Expect(tc.Handle(MakeTickEvent(tc, 10))).To(Succeed())
	})

	It("should not schedule a tick now if one is pending", func() {
		engine.EXPECT().Schedule(gomock.Any()).Times(1)
		ticker.EXPECT().Tick().Return(true)

		Expect(tc.Handle(MakeTickEvent(tc, 10))).To(Succeed())
		tc.NotifyRecv(nil)
	})

	It("should stop ticking if no progress is made", func() {
		ticker.EXPECT().Tick().Return(false)

		Expect(tc.Handle(MakeTickEvent(tc, 10))).To(Succeed())
	})
})
