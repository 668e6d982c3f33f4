package input

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/sarchlab/tactsched/sim/task"
)

// Upper bounds of interactive answers.
const (
	MaxTasks    = 1_000_000
	MaxCapacity = math.MaxInt32
)

// A Prompter asks questions on out and reads answers from in. Invalid
// answers are asked again.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPrompter creates a Prompter.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// Read reads raw input, sharing the buffer with ReadLine.
func (p *Prompter) Read(b []byte) (int, error) {
	return p.in.Read(b)
}

// ReadLine reads one answer without the trailing newline. A final line
// without newline is returned; io.EOF is returned only when nothing is left.
func (p *Prompter) ReadLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}

	return strings.TrimRight(line, "\r\n"), nil
}

// Uint asks for an integer between 0 and limit. If def is not nil, an
// unparsable or out-of-range answer selects it. Otherwise the question is
// asked again.
func (p *Prompter) Uint(question string, def *uint64, limit uint64) (uint64, error) {
	for {
		fmt.Fprintln(p.out, question)

		answer, err := p.ReadLine()
		if err != nil {
			return 0, err
		}

		n, err := strconv.ParseUint(strings.TrimSpace(answer), 10, 64)
		if err == nil && n <= limit {
			return n, nil
		}

		if def != nil {
			return *def, nil
		}
	}
}

// Choice asks until one of the options is answered and returns its value.
func (p *Prompter) Choice(question string, options map[string]bool) (bool, error) {
	for {
		fmt.Fprintln(p.out, question)

		answer, err := p.ReadLine()
		if err != nil {
			return false, err
		}

		if v, ok := options[strings.TrimSpace(answer)]; ok {
			return v, nil
		}
	}
}

// Session is what an interactive session decided.
type Session struct {
	Tasks         []task.Task
	StackCapacity int
	QueueCapacity int
	StepMode      bool
}

// Interactive runs the full question sequence: generate or type tasks, the
// capacities (defaulting to the number of tasks) and the step mode.
func (p *Prompter) Interactive(gen *task.Generator) (Session, error) {
	s := Session{}

	generate, err := p.Choice(
		"Generate tasks (1) or enter them yourself (2)?",
		map[string]bool{"1": true, "2": false})
	if err != nil {
		return s, err
	}

	if generate {
		n, err := p.Uint("How many tasks should be generated?", nil, MaxTasks)
		if err != nil {
			return s, err
		}

		s.Tasks = gen.Generate(int(n))
	} else {
		s.Tasks, err = p.enterTasks()
		if err != nil {
			return s, err
		}
	}

	fmt.Fprintln(p.out, formatTasks(s.Tasks))

	count := uint64(len(s.Tasks))

	stackCapacity, err := p.Uint(fmt.Sprintf(
		"Maximum number of tasks on the stack (default: %d)", count), &count,
		MaxCapacity)
	if err != nil {
		return s, err
	}

	queueCapacity, err := p.Uint(fmt.Sprintf(
		"Maximum number of tasks in the queue (default: %d)", count), &count,
		MaxCapacity)
	if err != nil {
		return s, err
	}

	s.StackCapacity = int(stackCapacity)
	s.QueueCapacity = int(queueCapacity)

	s.StepMode, err = p.Choice(
		"Pause after every tact? (1 - yes, 0 - no)",
		map[string]bool{"1": true, "0": false})

	return s, err
}

func (p *Prompter) enterTasks() ([]task.Task, error) {
	n, err := p.Uint("How many tasks do you want to enter?", nil, MaxTasks)
	if err != nil {
		return nil, err
	}

	var tasks []task.Task

	for i := uint64(0); i < n; i++ {
		fmt.Fprintln(p.out, "Task ID (leave empty for a random one)")

		id, err := p.ReadLine()
		if err != nil {
			return nil, err
		}

		id = strings.TrimSpace(id)
		if id == "" {
			id = task.NewID()
		}

		var duration uint64
		for duration == 0 {
			duration, err = p.Uint("Number of tacts the task needs (at least 1)",
				nil, math.MaxUint64)
			if err != nil {
				return nil, err
			}
		}

		tasks = append(tasks, task.Task{ID: id, Duration: duration})
	}

	return tasks, nil
}

func formatTasks(tasks []task.Task) string {
	parts := make([]string, 0, len(tasks))
	for _, t := range tasks {
		parts = append(parts, t.String())
	}

	return "[" + strings.Join(parts, ", ") + "]"
}
