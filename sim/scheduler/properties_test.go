package scheduler

import (
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/tactsched/sim/hooking"
	"github.com/sarchlab/tactsched/sim/processor"
	"github.com/sarchlab/tactsched/sim/queueing"
	"github.com/sarchlab/tactsched/sim/task"
)

// invariantChecker replays every container operation on reference containers
// and checks processor progress as the simulation runs.
type invariantChecker struct {
	refStack []string
	refQueue []string

	movesThisTact []Move
	elapsed       map[string]uint64
}

func newInvariantChecker() *invariantChecker {
	return &invariantChecker{elapsed: map[string]uint64{}}
}

func (c *invariantChecker) attach(s *Scheduler) {
	s.Stack().AcceptHook(hooking.HookFunc(c.onStack))
	s.Queue().AcceptHook(hooking.HookFunc(c.onQueue))
	s.AcceptHook(hooking.HookFunc(c.onScheduler))

	for _, p := range s.Processors() {
		p.AcceptHook(hooking.HookFunc(c.onProcessor))
	}
}

func (c *invariantChecker) onStack(ctx hooking.HookCtx) {
	id := ctx.Item.(task.Task).ID

	switch ctx.Pos {
	case queueing.HookPosPush:
		c.refStack = append(c.refStack, id)
	case queueing.HookPosPop:
		Expect(c.refStack).NotTo(BeEmpty())
		Expect(id).To(Equal(c.refStack[len(c.refStack)-1]), "stack must be LIFO")
		c.refStack = c.refStack[:len(c.refStack)-1]
	}
}

func (c *invariantChecker) onQueue(ctx hooking.HookCtx) {
	id := ctx.Item.(task.Task).ID

	switch ctx.Pos {
	case queueing.HookPosPush:
		c.refQueue = append(c.refQueue, id)
	case queueing.HookPosPop:
		Expect(c.refQueue).NotTo(BeEmpty())
		Expect(id).To(Equal(c.refQueue[0]), "queue must be FIFO")
		c.refQueue = c.refQueue[1:]
	}
}

func (c *invariantChecker) onProcessor(ctx hooking.HookCtx) {
	p := ctx.Domain.(*processor.Processor)

	switch ctx.Pos {
	case processor.HookPosProgress:
		progress := ctx.Item.(processor.Progress)
		Expect(progress.Elapsed).To(BeNumerically("<", progress.Duration))
		Expect(progress.Elapsed).To(Equal(c.elapsed[p.Name()]))
		c.elapsed[p.Name()]++
	case processor.HookPosStalled:
		progress := ctx.Item.(processor.Progress)
		Expect(progress.Elapsed).To(Equal(progress.Duration))
	}
}

func (c *invariantChecker) onScheduler(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case HookPosTaskMoved:
		move := ctx.Item.(Move)
		c.movesThisTact = append(c.movesThisTact, move)

		if move.To == "P1" || move.To == "P2" {
			c.elapsed[move.To] = 0
		}
	case HookPosTactEnd:
		c.checkNoPassThrough()
		c.movesThisTact = nil
	}
}

func (c *invariantChecker) checkNoPassThrough() {
	left := map[string]string{}
	for _, m := range c.movesThisTact {
		left[m.Task.ID+"@"+m.From] = m.From
	}

	for _, m := range c.movesThisTact {
		_, leftTarget := left[m.Task.ID+"@"+m.To]
		Expect(leftTarget).To(BeFalse(),
			"task %s re-entered %s in the tact it left", m.Task.ID, m.To)
	}
}

func randomTasks(rng *rand.Rand, n int) []task.Task {
	tasks := make([]task.Task, 0, n)
	for i := 0; i < n; i++ {
		tasks = append(tasks, task.Task{
			ID:       string(rune('a'+i%26)) + string(rune('0'+i/26)),
			Duration: uint64(rng.Intn(5)) + 1,
		})
	}

	return tasks
}

var _ = Describe("Scheduler invariants", func() {
	DescribeTable("random workloads",
		func(seed int64, n, stackCap, queueCap int) {
			rng := rand.New(rand.NewSource(seed))
			tasks := randomTasks(rng, n)

			s := New(stackCap, queueCap)
			checker := newInvariantChecker()
			checker.attach(s)
			s.Submit(tasks...)

			var finished []task.Task
			limit := 10 * n * 6

			for i := 0; !s.IsDone(); i++ {
				Expect(i).To(BeNumerically("<", limit), "must terminate")

				r, err := s.Step()
				Expect(err).NotTo(HaveOccurred())

				Expect(len(r.Stack)).To(BeNumerically("<=", stackCap))
				Expect(len(r.Queue)).To(BeNumerically("<=", queueCap))
				Expect(uint64(r.InFlight()) + r.Completed).
					To(Equal(uint64(n)), "tasks must be conserved")

				for _, p := range r.Processors {
					Expect(p.Elapsed).To(BeNumerically("<=", p.Duration))
					if p.State == ProcessorCompleted {
						Expect(p.Elapsed).To(Equal(p.Duration))
					}
				}

				finished = append(finished, r.Finished...)
			}

			Expect(finished).To(ConsistOf(tasks))
			Expect(checker.refStack).To(BeEmpty())
			Expect(checker.refQueue).To(BeEmpty())
		},
		Entry("single slots", int64(1), 10, 1, 1),
		Entry("wide stack", int64(2), 20, 8, 1),
		Entry("wide queue", int64(3), 20, 1, 8),
		Entry("both wide", int64(4), 30, 30, 30),
		Entry("many tasks", int64(5), 60, 3, 2),
	)
})
