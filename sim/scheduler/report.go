package scheduler

import (
	"github.com/sarchlab/tactsched/sim/processor"
	"github.com/sarchlab/tactsched/sim/task"
)

// ProcessorState is the externally visible state of a processor.
type ProcessorState string

// Processor states.
const (
	ProcessorIdle      ProcessorState = "idle"
	ProcessorRunning   ProcessorState = "running"
	ProcessorCompleted ProcessorState = "completed"
)

// ProcessorStatus is a snapshot of one processor.
type ProcessorStatus struct {
	Name     string         `json:"name"`
	State    ProcessorState `json:"state"`
	Task     *task.Task     `json:"task,omitempty"`
	Elapsed  uint64         `json:"elapsed"`
	Duration uint64         `json:"duration"`
}

// A TactReport is a snapshot of the whole board at the end of a tact.
type TactReport struct {
	Tact uint64 `json:"tact"`

	Backlog []task.Task `json:"backlog"`

	// Stack lists the stack from top to bottom.
	Stack []task.Task `json:"stack"`

	// Queue lists the queue from head to tail.
	Queue []task.Task `json:"queue"`

	Processors []ProcessorStatus `json:"processors"`

	// Finished and Rejections only cover the reported tact.
	Finished   []task.Task `json:"finished"`
	Rejections []Rejection `json:"rejections"`

	StackCapacity int    `json:"stack_capacity"`
	QueueCapacity int    `json:"queue_capacity"`
	Completed     uint64 `json:"completed"`
	Submitted     uint64 `json:"submitted"`
	Done          bool   `json:"done"`
}

// InFlight returns the number of tasks that are in the system and not
// finished.
func (r TactReport) InFlight() int {
	n := len(r.Backlog) + len(r.Stack) + len(r.Queue)

	for _, p := range r.Processors {
		if p.State != ProcessorIdle {
			n++
		}
	}

	return n
}

func statusOf(p *processor.Processor) ProcessorStatus {
	status := ProcessorStatus{
		Name:  p.Name(),
		State: ProcessorIdle,
	}

	t, busy := p.Task()
	if !busy {
		return status
	}

	status.Task = &t
	status.Elapsed = p.Elapsed()
	status.Duration = t.Duration
	status.State = ProcessorRunning

	if p.IsComplete() {
		status.State = ProcessorCompleted
	}

	return status
}
