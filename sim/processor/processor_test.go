package processor

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/tactsched/sim/hooking"
	"github.com/sarchlab/tactsched/sim/task"
)

var _ = Describe("Processor", func() {
	var (
		mockCtrl *gomock.Controller
		hook     *MockHook
		p        *Processor
		t2       task.Task
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		hook = NewMockHook(mockCtrl)
		p = New("P1")
		t2 = task.Task{ID: "A", Duration: 2}
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should start idle", func() {
		Expect(p.IsBusy()).To(BeFalse())
		Expect(p.IsComplete()).To(BeFalse())

		_, ok := p.Task()
		Expect(ok).To(BeFalse())
	})

	It("should report idle tacts", func() {
		p.AcceptHook(hook)
		hook.EXPECT().Func(gomock.Any()).Do(func(ctx hooking.HookCtx) {
			Expect(ctx.Pos).To(BeIdenticalTo(HookPosIdle))
			Expect(ctx.Domain).To(BeIdenticalTo(p))
		})

		p.AdvanceTact()
	})

	It("should complete exactly after duration tacts", func() {
		p.AcceptHook(hook)
		var reported []uint64
		hook.EXPECT().Func(gomock.Any()).Do(func(ctx hooking.HookCtx) {
			Expect(ctx.Pos).To(BeIdenticalTo(HookPosProgress))
			reported = append(reported, ctx.Item.(Progress).Elapsed)
		}).Times(2)

		p.Assign(t2)
		Expect(p.Elapsed()).To(Equal(uint64(0)))

		p.AdvanceTact()
		Expect(p.IsComplete()).To(BeFalse())

		p.AdvanceTact()
		Expect(p.IsComplete()).To(BeTrue())
		Expect(reported).To(Equal([]uint64{0, 1}))
	})

	It("should hold a completed task without counting further", func() {
		p.Assign(task.Task{ID: "A", Duration: 1})
		p.AdvanceTact()

		p.AcceptHook(hook)
		hook.EXPECT().Func(gomock.Any()).Do(func(ctx hooking.HookCtx) {
			Expect(ctx.Pos).To(BeIdenticalTo(HookPosStalled))
			Expect(ctx.Item.(Progress).Elapsed).To(Equal(uint64(1)))
		}).Times(3)

		p.AdvanceTact()
		p.AdvanceTact()
		p.AdvanceTact()

		Expect(p.Elapsed()).To(Equal(uint64(1)))
		Expect(p.IsComplete()).To(BeTrue())
	})

	It("should release the task", func() {
		p.Assign(t2)

		released := p.Release()

		Expect(released).To(Equal(t2))
		Expect(p.IsBusy()).To(BeFalse())
		Expect(p.Elapsed()).To(Equal(uint64(0)))
	})

	It("should allow assigning over a completed task", func() {
		p.Assign(task.Task{ID: "A", Duration: 1})
		p.AdvanceTact()

		p.Assign(t2)

		current, ok := p.Task()
		Expect(ok).To(BeTrue())
		Expect(current).To(Equal(t2))
		Expect(p.Elapsed()).To(Equal(uint64(0)))
	})

	It("should panic when assigning over a running task", func() {
		p.Assign(t2)

		Expect(func() { p.Assign(task.Task{ID: "B", Duration: 1}) }).
			To(PanicWith(Satisfy(func(v any) bool {
				err, ok := v.(error)
				return ok && errors.Is(err, ErrProtocolViolation)
			})))
	})

	It("should panic when releasing an idle processor", func() {
		Expect(func() { p.Release() }).To(Panic())
	})
})
