package sim

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	gomock "go.uber.org/mock/gomock"
)

var _ = Describe("SerialEngine", func() {
	var (
		mockCtrl *gomock.Controller
		handler  *MockHandler
		engine   *SerialEngine
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		handler = NewMockHandler(mockCtrl)
		engine = NewSerialEngine()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should run events in order", func() {
		evt1 := NewEventBase(10, handler)
		evt2 := NewEventBase(5, handler)
		engine.Schedule(evt1)
		engine.Schedule(evt2)

		gomock.InOrder(
			handler.EXPECT().Handle(evt2).Return(nil),
			handler.EXPECT().Handle(evt1).Return(nil),
		)

		Expect(engine.Run()).To(Succeed())
		Expect(engine.CurrentTime()).To(Equal(VTimeInCycle(10)))
	})

	It("should run primary events before secondary events of the cycle",
		func() {
			secondary := NewEventBase(3, handler)
			secondary.secondary = true
			primary := NewEventBase(3, handler)
			engine.Schedule(secondary)
			engine.Schedule(primary)

			gomock.InOrder(
				handler.EXPECT().Handle(primary).Return(nil),
				handler.EXPECT().Handle(secondary).Return(nil),
			)

			Expect(engine.Run()).To(Succeed())
		})

	It("should stop at the first handler error", func() {
		evt1 := NewEventBase(1, handler)
		evt2 := NewEventBase(2, handler)
		engine.Schedule(evt1)
		engine.Schedule(evt2)

		handler.EXPECT().Handle(evt1).Return(errors.New("broken"))

		Expect(engine.Run()).To(MatchError("broken"))
	})

	It("should panic when scheduling into the past", func() {
		evt := NewEventBase(4, handler)
		engine.Schedule(evt)
		handler.EXPECT().Handle(evt).Return(nil)
		Expect(engine.Run()).To(Succeed())

		Expect(func() { engine.Schedule(NewEventBase(3, handler)) }).
			To(Panic())
	})

	It("should invoke hooks around events", func() {
		positions := make([]*HookPos, 0)
		engine.AcceptHook(HookFunc(func(ctx HookCtx) {
			positions = append(positions, ctx.Pos)
		}))

		evt := NewEventBase(1, handler)
		engine.Schedule(evt)
		handler.EXPECT().Handle(evt).Return(nil)

		Expect(engine.Run()).To(Succeed())
		Expect(positions).To(Equal(
			[]*HookPos{HookPosBeforeEvent, HookPosAfterEvent}))
	})
})
