// Package scheduler runs the two-stage pipeline
//
//	backlog -> stack -> P1 -> queue -> P2 -> done
//
// one tact at a time.
//
// Every tact executes the same stages in the same order:
//
//  1. P2 takes the head of the queue if it is idle.
//  2. P1 takes the top of the stack if it is idle.
//  3. P2 hands its completed task out of the system.
//  4. P1 hands its completed task to the queue. If the queue is full the task
//     stays on P1 and the hand-off is retried next tact.
//  5. The head of the backlog is pushed onto the stack. If the stack is full
//     the task goes back to the head of the backlog.
//  6. P1 and P2 each advance by one tact.
//
// Processors pick up work before any stage produces work, so a slot freed in
// a tact is never filled and drained again within that same tact. A task
// assigned in stages 1 or 2 reports 0 elapsed tacts at stage 6 of the same
// tact.
package scheduler

import (
	"errors"
	"fmt"

	"github.com/sarchlab/tactsched/sim/hooking"
	"github.com/sarchlab/tactsched/sim/naming"
	"github.com/sarchlab/tactsched/sim/processor"
	"github.com/sarchlab/tactsched/sim/queueing"
	"github.com/sarchlab/tactsched/sim/task"
)

// Builder builds Schedulers.
type Builder struct {
	stackCapacity int
	queueCapacity int
}

// MakeBuilder creates a builder with single-slot containers.
func MakeBuilder() Builder {
	return Builder{
		stackCapacity: 1,
		queueCapacity: 1,
	}
}

// WithStackCapacity sets the capacity of the LIFO stage.
func (b Builder) WithStackCapacity(c int) Builder {
	b.stackCapacity = c
	return b
}

// WithQueueCapacity sets the capacity of the FIFO stage.
func (b Builder) WithQueueCapacity(c int) Builder {
	b.queueCapacity = c
	return b
}

// Build creates an empty scheduler.
func (b Builder) Build(name string) *Scheduler {
	s := &Scheduler{
		NamedBase: naming.MakeNamedBase(name),
		stack: queueing.StackBuilder[task.Task]{}.
			WithCapacity(b.stackCapacity).
			Build(name + ".Stack"),
		queue: queueing.QueueBuilder[task.Task]{}.
			WithCapacity(b.queueCapacity).
			Build(name + ".Queue"),
		p1:   processor.New("P1"),
		p2:   processor.New("P2"),
		done: true,
	}

	return s
}

// New creates a scheduler named "Scheduler" with the given capacities.
func New(stackCapacity, queueCapacity int) *Scheduler {
	return MakeBuilder().
		WithStackCapacity(stackCapacity).
		WithQueueCapacity(queueCapacity).
		Build("Scheduler")
}

// A Scheduler owns the backlog, both containers and both processors. It is
// not safe for concurrent use.
type Scheduler struct {
	naming.NamedBase
	hooking.HookableBase

	backlog []task.Task
	stack   *queueing.Stack[task.Task]
	queue   *queueing.Queue[task.Task]
	p1, p2  *processor.Processor

	tact      uint64
	submitted uint64
	completed uint64
	done      bool

	finished   []task.Task
	rejections []Rejection
}

// Submit appends tasks to the backlog in order.
func (s *Scheduler) Submit(tasks ...task.Task) {
	s.backlog = append(s.backlog, tasks...)
	s.submitted += uint64(len(tasks))
	s.done = s.isDrained()
}

// IsDone returns true when nothing is left to process.
func (s *Scheduler) IsDone() bool {
	return s.done
}

// Tact returns the number of tacts executed so far.
func (s *Scheduler) Tact() uint64 {
	return s.tact
}

// Submitted returns the number of tasks ever submitted.
func (s *Scheduler) Submitted() uint64 {
	return s.submitted
}

// CompletedCount returns the number of tasks that left the system.
func (s *Scheduler) CompletedCount() uint64 {
	return s.completed
}

// Stack returns the LIFO container.
func (s *Scheduler) Stack() *queueing.Stack[task.Task] {
	return s.stack
}

// Queue returns the FIFO container.
func (s *Scheduler) Queue() *queueing.Queue[task.Task] {
	return s.queue
}

// Processors returns P1 and P2, in that order.
func (s *Scheduler) Processors() []*processor.Processor {
	return []*processor.Processor{s.p1, s.p2}
}

// Step executes one tact and reports the board at its end. Stepping a done
// scheduler does nothing. An error is only returned when a container
// misbehaves in a way the guards should have prevented; the scheduler must not
// be used after that.
func (s *Scheduler) Step() (TactReport, error) {
	if s.done {
		return s.Report(), nil
	}

	s.tact++
	s.finished = nil
	s.rejections = nil

	stages := []func() error{
		s.feedP2,
		s.feedP1,
		s.drainP2,
		s.drainP1,
		s.admitFromBacklog,
		s.advanceProcessors,
	}

	for _, stage := range stages {
		if err := stage(); err != nil {
			return TactReport{}, fmt.Errorf("tact %d: %w", s.tact, err)
		}
	}

	s.done = s.isDrained()

	report := s.Report()
	s.Invoke(s, HookPosTactEnd, report)

	return report, nil
}

// Report returns a snapshot of the current board.
func (s *Scheduler) Report() TactReport {
	return TactReport{
		Tact:    s.tact,
		Backlog: append([]task.Task{}, s.backlog...),
		Stack:   s.stack.Elements(),
		Queue:   s.queue.Elements(),
		Processors: []ProcessorStatus{
			statusOf(s.p1),
			statusOf(s.p2),
		},
		Finished:      s.finished,
		Rejections:    s.rejections,
		StackCapacity: s.stack.Capacity(),
		QueueCapacity: s.queue.Capacity(),
		Completed:     s.completed,
		Submitted:     s.submitted,
		Done:          s.done,
	}
}

func (s *Scheduler) feedP2() error {
	if s.p2.IsBusy() || s.queue.IsEmpty() {
		return nil
	}

	t, err := s.queue.Pop()
	if err != nil {
		return err
	}

	s.p2.Assign(t)
	s.moved(t, s.queue.Name(), s.p2.Name())

	return nil
}

func (s *Scheduler) feedP1() error {
	if s.p1.IsBusy() || s.stack.IsEmpty() {
		return nil
	}

	t, err := s.stack.Pop()
	if err != nil {
		return err
	}

	s.p1.Assign(t)
	s.moved(t, s.stack.Name(), s.p1.Name())

	return nil
}

func (s *Scheduler) drainP2() error {
	if !s.p2.IsComplete() {
		return nil
	}

	t := s.p2.Release()
	s.completed++
	s.finished = append(s.finished, t)

	move := s.moved(t, s.p2.Name(), LocationDone)
	s.Invoke(s, HookPosTaskFinished, move)

	return nil
}

func (s *Scheduler) drainP1() error {
	if !s.p1.IsComplete() {
		return nil
	}

	t, _ := s.p1.Task()

	err := s.queue.Push(t)
	if errors.Is(err, queueing.ErrCapacityExceeded) {
		s.rejected(t, s.queue.Name(), err)
		return nil
	}

	if err != nil {
		return err
	}

	s.p1.Release()
	s.moved(t, s.p1.Name(), s.queue.Name())

	return nil
}

func (s *Scheduler) admitFromBacklog() error {
	if len(s.backlog) == 0 {
		return nil
	}

	t := s.backlog[0]
	s.backlog = s.backlog[1:]

	err := s.stack.Push(t)
	if errors.Is(err, queueing.ErrCapacityExceeded) {
		s.backlog = append([]task.Task{t}, s.backlog...)
		s.rejected(t, s.stack.Name(), err)

		return nil
	}

	if err != nil {
		return err
	}

	s.moved(t, LocationBacklog, s.stack.Name())

	return nil
}

func (s *Scheduler) advanceProcessors() error {
	s.p1.AdvanceTact()
	s.p2.AdvanceTact()

	return nil
}

func (s *Scheduler) isDrained() bool {
	return len(s.backlog) == 0 &&
		s.stack.IsEmpty() &&
		s.queue.IsEmpty() &&
		!s.p1.IsBusy() &&
		!s.p2.IsBusy()
}

func (s *Scheduler) moved(t task.Task, from, to string) Move {
	move := Move{
		Tact: s.tact,
		Task: t,
		From: from,
		To:   to,
	}

	s.Invoke(s, HookPosTaskMoved, move)

	return move
}

func (s *Scheduler) rejected(t task.Task, container string, err error) {
	rejection := Rejection{
		Tact:      s.tact,
		Task:      t,
		Container: container,
		Err:       err,
	}

	s.rejections = append(s.rejections, rejection)
	s.Invoke(s, HookPosCapacityExceeded, rejection)
}
