package queueing

import (
	"fmt"

	"github.com/sarchlab/tactsched/sim/hooking"
	"github.com/sarchlab/tactsched/sim/naming"
)

// StackBuilder builds Stacks.
type StackBuilder[T any] struct {
	capacity int
}

// WithCapacity defines the capacity of the stack.
func (b StackBuilder[T]) WithCapacity(capacity int) StackBuilder[T] {
	b.capacity = capacity
	return b
}

// Build creates a new empty Stack.
func (b StackBuilder[T]) Build(name string) *Stack[T] {
	if b.capacity < 0 {
		panic(fmt.Sprintf("stack %s: negative capacity %d", name, b.capacity))
	}

	return &Stack[T]{
		NamedBase: naming.MakeNamedBase(name),
		elements:  make([]T, 0, b.capacity),
		capacity:  b.capacity,
	}
}

// A Stack is a last-in-first-out container that never holds more than its
// capacity.
type Stack[T any] struct {
	naming.NamedBase
	hooking.HookableBase

	elements []T
	capacity int
}

// IsEmpty returns true if the stack holds no element.
func (s *Stack[T]) IsEmpty() bool {
	return len(s.elements) == 0
}

// CanAdd returns true if one more element fits.
func (s *Stack[T]) CanAdd() bool {
	return len(s.elements) < s.capacity
}

// Size returns the number of elements in the stack.
func (s *Stack[T]) Size() int {
	return len(s.elements)
}

// Capacity returns the maximum number of elements.
func (s *Stack[T]) Capacity() int {
	return s.capacity
}

// Push places e on top of the stack.
func (s *Stack[T]) Push(e T) error {
	if !s.CanAdd() {
		return fmt.Errorf("push to %s: %w", s.Name(), ErrCapacityExceeded)
	}

	s.elements = append(s.elements, e)

	s.Invoke(s, HookPosPush, e)

	return nil
}

// Pop removes and returns the top element.
func (s *Stack[T]) Pop() (T, error) {
	var zero T

	if s.IsEmpty() {
		return zero, fmt.Errorf("pop from %s: %w", s.Name(), ErrUnderflow)
	}

	last := len(s.elements) - 1
	e := s.elements[last]
	s.elements[last] = zero
	s.elements = s.elements[:last]

	s.Invoke(s, HookPosPop, e)

	return e, nil
}

// Elements returns a copy of the content, top of the stack first.
func (s *Stack[T]) Elements() []T {
	out := make([]T, 0, len(s.elements))
	for i := len(s.elements) - 1; i >= 0; i-- {
		out = append(out, s.elements[i])
	}

	return out
}
