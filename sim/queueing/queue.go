package queueing

import (
	"fmt"

	"github.com/sarchlab/tactsched/sim/hooking"
	"github.com/sarchlab/tactsched/sim/naming"
)

// QueueBuilder builds Queues.
type QueueBuilder[T any] struct {
	capacity int
}

// WithCapacity defines the capacity of the queue.
func (b QueueBuilder[T]) WithCapacity(capacity int) QueueBuilder[T] {
	b.capacity = capacity
	return b
}

// Build creates a new empty Queue.
func (b QueueBuilder[T]) Build(name string) *Queue[T] {
	if b.capacity < 0 {
		panic(fmt.Sprintf("queue %s: negative capacity %d", name, b.capacity))
	}

	return &Queue[T]{
		NamedBase: naming.MakeNamedBase(name),
		slots:     make([]T, b.capacity),
	}
}

// A Queue is a first-in-first-out ring buffer. All len(slots) slots can hold
// an element; fullness is decided by the live count, not by index equality.
type Queue[T any] struct {
	naming.NamedBase
	hooking.HookableBase

	slots []T
	head  int
	count int
}

// IsEmpty returns true if the queue holds no element.
func (q *Queue[T]) IsEmpty() bool {
	return q.count == 0
}

// CanAdd returns true if one more element fits.
func (q *Queue[T]) CanAdd() bool {
	return q.count < len(q.slots)
}

// Size returns the number of elements in the queue.
func (q *Queue[T]) Size() int {
	return q.count
}

// Capacity returns the maximum number of elements.
func (q *Queue[T]) Capacity() int {
	return len(q.slots)
}

// Push appends e at the tail of the queue.
func (q *Queue[T]) Push(e T) error {
	if !q.CanAdd() {
		return fmt.Errorf("enqueue to %s: %w", q.Name(), ErrCapacityExceeded)
	}

	tail := (q.head + q.count) % len(q.slots)
	q.slots[tail] = e
	q.count++

	q.Invoke(q, HookPosPush, e)

	return nil
}

// Pop removes and returns the element at the head of the queue.
func (q *Queue[T]) Pop() (T, error) {
	var zero T

	if q.IsEmpty() {
		return zero, fmt.Errorf("dequeue from %s: %w", q.Name(), ErrUnderflow)
	}

	e := q.slots[q.head]
	q.slots[q.head] = zero
	q.head = (q.head + 1) % len(q.slots)
	q.count--

	q.Invoke(q, HookPosPop, e)

	return e, nil
}

// Elements returns a copy of the content, head of the queue first.
func (q *Queue[T]) Elements() []T {
	out := make([]T, 0, q.count)
	for i := 0; i < q.count; i++ {
		out = append(out, q.slots[(q.head+i)%len(q.slots)])
	}

	return out
}
