// Package task defines the unit of work that flows through the scheduler.
package task

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"github.com/google/uuid"
)

// ErrInvalidTask is returned when a task cannot be constructed.
var ErrInvalidTask = errors.New("invalid task")

// A Task is an immutable piece of work that needs Duration tacts on each
// processor it visits.
type Task struct {
	ID       string `json:"id"`
	Duration uint64 `json:"duration"`
}

// New creates a task after checking that it is well formed.
func New(id string, duration uint64) (Task, error) {
	if id == "" {
		return Task{}, fmt.Errorf("%w: empty id", ErrInvalidTask)
	}

	if duration == 0 {
		return Task{}, fmt.Errorf("%w: task %s has zero duration", ErrInvalidTask, id)
	}

	return Task{ID: id, Duration: duration}, nil
}

func (t Task) String() string {
	return fmt.Sprintf("{%s, %d}", t.ID, t.Duration)
}

// NewID returns a fresh random task identifier.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// A Generator creates random tasks.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator creates a generator whose durations are drawn from a source
// seeded with seed.
func NewGenerator(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

// Generate creates n tasks. Durations are uniform in [1, n); when n is too
// small for that range every task takes a single tact.
func (g *Generator) Generate(n int) []Task {
	tasks := make([]Task, 0, n)

	for i := 0; i < n; i++ {
		duration := uint64(1)
		if n > 2 {
			duration = uint64(g.rng.Int63n(int64(n-1))) + 1
		}

		tasks = append(tasks, Task{ID: NewID(), Duration: duration})
	}

	return tasks
}
