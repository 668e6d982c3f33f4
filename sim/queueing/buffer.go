// Package queueing provides the fixed-capacity containers that sit between
// the stages of the scheduler: a LIFO Stack and a circular FIFO Queue.
//
// Both containers report a full container with ErrCapacityExceeded and an
// empty one with ErrUnderflow. The former is an expected condition under
// backpressure; the latter means the caller forgot to check IsEmpty.
package queueing

import (
	"errors"

	"github.com/sarchlab/tactsched/sim/hooking"
	"github.com/sarchlab/tactsched/sim/naming"
)

var (
	// ErrCapacityExceeded is returned when adding to a full container.
	ErrCapacityExceeded = errors.New("capacity exceeded")

	// ErrUnderflow is returned when removing from an empty container.
	ErrUnderflow = errors.New("underflow")
)

// HookPosPush marks when an element is pushed into a container.
var HookPosPush = &hooking.HookPos{Name: "Buf Push"}

// HookPosPop marks when an element is popped from a container.
var HookPosPop = &hooking.HookPos{Name: "Buf Pop"}

// A Buffer is the element-type independent view of a container, used by
// observers that only care about occupancy.
type Buffer interface {
	naming.Named
	hooking.Hookable

	IsEmpty() bool
	CanAdd() bool
	Size() int
	Capacity() int
}
