// Package processor implements the single-slot execution units of the
// scheduler.
package processor

import (
	"errors"
	"fmt"

	"github.com/sarchlab/tactsched/sim/hooking"
	"github.com/sarchlab/tactsched/sim/naming"
	"github.com/sarchlab/tactsched/sim/task"
)

// ErrProtocolViolation marks a misuse of the processor by its caller. It is
// raised with panic because it can only come from a defect in the scheduler.
var ErrProtocolViolation = errors.New("processor protocol violation")

var (
	// HookPosProgress is invoked when a tact is spent on the assigned task.
	HookPosProgress = &hooking.HookPos{Name: "Processor Progress"}

	// HookPosIdle is invoked when a tact passes with no task assigned.
	HookPosIdle = &hooking.HookPos{Name: "Processor Idle"}

	// HookPosStalled is invoked when a tact passes while the processor still
	// holds a completed task that could not be handed off.
	HookPosStalled = &hooking.HookPos{Name: "Processor Stalled"}
)

// Progress is the hook item of HookPosProgress and HookPosStalled.
type Progress struct {
	Processor string
	Task      task.Task

	// Elapsed is the number of tacts spent before this one.
	Elapsed  uint64
	Duration uint64
}

// A Processor executes at most one task, one tact at a time.
type Processor struct {
	naming.NamedBase
	hooking.HookableBase

	task    task.Task
	busy    bool
	elapsed uint64
}

// New creates an idle processor.
func New(name string) *Processor {
	return &Processor{NamedBase: naming.MakeNamedBase(name)}
}

// IsBusy returns true if a task is assigned.
func (p *Processor) IsBusy() bool {
	return p.busy
}

// IsComplete returns true if the assigned task has received all its tacts.
func (p *Processor) IsComplete() bool {
	return p.busy && p.elapsed == p.task.Duration
}

// Task returns the assigned task, if any.
func (p *Processor) Task() (task.Task, bool) {
	return p.task, p.busy
}

// Elapsed returns the number of tacts spent on the assigned task.
func (p *Processor) Elapsed() uint64 {
	return p.elapsed
}

// Assign starts a task. The processor must not hold an unfinished task.
func (p *Processor) Assign(t task.Task) {
	if p.busy && !p.IsComplete() {
		panic(fmt.Errorf("%w: %s is still running %s",
			ErrProtocolViolation, p.Name(), p.task))
	}

	p.task = t
	p.busy = true
	p.elapsed = 0
}

// Release removes and returns the assigned task.
func (p *Processor) Release() task.Task {
	if !p.busy {
		panic(fmt.Errorf("%w: %s has nothing to release",
			ErrProtocolViolation, p.Name()))
	}

	t := p.task
	p.task = task.Task{}
	p.busy = false
	p.elapsed = 0

	return t
}

// AdvanceTact spends one tact. A completed task is held without counting
// further so that elapsed never exceeds the duration.
func (p *Processor) AdvanceTact() {
	if !p.busy {
		p.Invoke(p, HookPosIdle, nil)
		return
	}

	progress := Progress{
		Processor: p.Name(),
		Task:      p.task,
		Elapsed:   p.elapsed,
		Duration:  p.task.Duration,
	}

	if p.IsComplete() {
		p.Invoke(p, HookPosStalled, progress)
		return
	}

	p.elapsed++
	p.Invoke(p, HookPosProgress, progress)
}
