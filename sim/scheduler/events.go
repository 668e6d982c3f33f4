package scheduler

import (
	"github.com/sarchlab/tactsched/sim/hooking"
	"github.com/sarchlab/tactsched/sim/task"
)

// Locations that are not containers or processors.
const (
	LocationBacklog = "Backlog"
	LocationDone    = "Done"
)

var (
	// HookPosTaskMoved is invoked every time a task changes location. The
	// item is a Move.
	HookPosTaskMoved = &hooking.HookPos{Name: "Task Moved"}

	// HookPosTaskFinished is invoked when a task leaves the system. The item
	// is a Move whose To is LocationDone.
	HookPosTaskFinished = &hooking.HookPos{Name: "Task Finished"}

	// HookPosCapacityExceeded is invoked when a task could not be handed to a
	// full container. The item is a Rejection.
	HookPosCapacityExceeded = &hooking.HookPos{Name: "Capacity Exceeded"}

	// HookPosTactEnd is invoked after every tact. The item is a TactReport.
	HookPosTactEnd = &hooking.HookPos{Name: "Tact End"}
)

// Move records a task changing location within a tact.
type Move struct {
	Tact uint64
	Task task.Task
	From string
	To   string
}

// Rejection records a hand-off that failed because the target was full. The
// task stays where it was and the hand-off is retried next tact.
type Rejection struct {
	Tact      uint64    `json:"tact"`
	Task      task.Task `json:"task"`
	Container string    `json:"container"`
	Err       error     `json:"-"`
}
