package sim

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
)

func mockEventAt(
	ctrl *gomock.Controller,
	t VTime,
	handler Handler,
	secondary bool,
) *MockEvent {
	evt := NewMockEvent(ctrl)
	evt.EXPECT().Time().Return(t).AnyTimes()
	evt.EXPECT().Handler().Return(handler).AnyTimes()
	evt.EXPECT().IsSecondary().Return(secondary).AnyTimes()

	return evt
}

var _ = Describe("SerialEngine", func() {
	var (
		mockCtrl *gomock.Controller
		engine   *SerialEngine
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		engine = NewSerialEngine()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should schedule events", func() {
		handler1 := NewMockHandler(mockCtrl)
		handler2 := NewMockHandler(mockCtrl)
		evt1 := mockEventAt(mockCtrl, 4*NS, handler1, false)
		evt2 := mockEventAt(mockCtrl, 2*NS, handler2, false)
		evt3 := mockEventAt(mockCtrl, 3*NS, handler1, false)
		evt4 := mockEventAt(mockCtrl, 5*NS, handler1, false)

		handleEvt2 := handler2.EXPECT().Handle(evt2).
			DoAndReturn(func(e Event) error {
				engine.Schedule(evt3)
				engine.Schedule(evt4)
				return nil
			})
		handleEvt3 := handler1.EXPECT().Handle(evt3).Return(nil).
			After(handleEvt2)
		handleEvt1 := handler1.EXPECT().Handle(evt1).Return(nil).
			After(handleEvt3)
		handler1.EXPECT().Handle(evt4).Return(nil).After(handleEvt1)

		engine.Schedule(evt1)
		engine.Schedule(evt2)

		Expect(engine.Run()).To(Succeed())
		Expect(engine.CurrentTime()).To(Equal(5 * NS))
	})

	It("should handle secondary events after primary events", func() {
		handler1 := NewMockHandler(mockCtrl)
		handler2 := NewMockHandler(mockCtrl)
		handler3 := NewMockHandler(mockCtrl)
		evt1 := mockEventAt(mockCtrl, 2*NS, handler1, true)
		evt2 := mockEventAt(mockCtrl, 2*NS, handler2, false)
		evt3 := mockEventAt(mockCtrl, 2*NS, handler3, false)

		handleEvt2 := handler2.EXPECT().Handle(evt2).Return(nil)
		handleEvt3 := handler3.EXPECT().Handle(evt3).Return(nil)
		handler1.EXPECT().Handle(evt1).Return(nil).
			After(handleEvt2).
			After(handleEvt3)

		engine.Schedule(evt1)
		engine.Schedule(evt2)
		engine.Schedule(evt3)

		Expect(engine.Run()).To(Succeed())
	})

	It("should stop at the first failing handler", func() {
		handler := NewMockHandler(mockCtrl)
		evt1 := mockEventAt(mockCtrl, 1*NS, handler, false)
		evt2 := mockEventAt(mockCtrl, 2*NS, handler, false)
		boom := errors.New("boom")

		handler.EXPECT().Handle(evt1).Return(boom)

		engine.Schedule(evt1)
		engine.Schedule(evt2)

		err := engine.Run()

		Expect(err).To(MatchError(boom))
		Expect(engine.Pending()).To(Equal(1))
	})

	It("should panic when scheduling into the past", func() {
		handler := NewMockHandler(mockCtrl)
		evt1 := mockEventAt(mockCtrl, 10*NS, handler, false)
		evt2 := mockEventAt(mockCtrl, 5*NS, handler, false)

		handler.EXPECT().Handle(evt1).DoAndReturn(func(e Event) error {
			Expect(func() { engine.Schedule(evt2) }).To(Panic())
			return nil
		})

		engine.Schedule(evt1)

		Expect(engine.Run()).To(Succeed())
	})

	It("should invoke hooks around each event", func() {
		handler := NewMockHandler(mockCtrl)
		evt := mockEventAt(mockCtrl, 1*NS, handler, false)
		handler.EXPECT().Handle(evt).Return(nil)

		var positions []string
		engine.AcceptHook(HookFunc(func(ctx HookCtx) {
			Expect(ctx.Item).To(BeIdenticalTo(evt))
			positions = append(positions, ctx.Pos.Name)
		}))

		engine.Schedule(evt)
		Expect(engine.Run()).To(Succeed())

		Expect(positions).To(Equal([]string{"BeforeEvent", "AfterEvent"}))
	})

	It("should call simulation end handlers with the final time", func() {
		handler := NewMockHandler(mockCtrl)
		evt := mockEventAt(mockCtrl, 7*NS, handler, false)
		handler.EXPECT().Handle(evt).Return(nil)

		var endedAt VTime
		engine.RegisterSimulationEndHandler(endHandlerFunc(func(now VTime) {
			endedAt = now
		}))

		engine.Schedule(evt)
		Expect(engine.Run()).To(Succeed())
		engine.Finished()

		Expect(endedAt).To(Equal(7 * NS))
	})

	It("should report pause state", func() {
		engine.Pause()
		Expect(engine.IsPaused()).To(BeTrue())
		engine.Continue()
		Expect(engine.IsPaused()).To(BeFalse())
	})
})

type endHandlerFunc func(now VTime)

func (f endHandlerFunc) Handle(now VTime) {
	f(now)
}
