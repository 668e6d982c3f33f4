// Package input reads task lists and interactive answers.
package input

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sarchlab/tactsched/sim/task"
)

// ErrMalformedLine is returned for lines that do not describe a task.
var ErrMalformedLine = errors.New("malformed task line")

// ParseTasks reads one task per line. A line is either "id duration" or a
// bare duration, in which case a random id is assigned. Blank lines and lines
// starting with '#' are skipped.
func ParseTasks(r io.Reader) ([]task.Task, error) {
	var tasks []task.Task

	scanner := bufio.NewScanner(r)
	lineNo := 0

	for scanner.Scan() {
		lineNo++

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		t, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}

		tasks = append(tasks, t)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return tasks, nil
}

func parseLine(line string) (task.Task, error) {
	fields := strings.Fields(line)

	var id, durationField string
	switch len(fields) {
	case 1:
		id, durationField = task.NewID(), fields[0]
	case 2:
		id, durationField = fields[0], fields[1]
	default:
		return task.Task{}, fmt.Errorf("%w: %q", ErrMalformedLine, line)
	}

	duration, err := strconv.ParseUint(durationField, 10, 64)
	if err != nil {
		return task.Task{}, fmt.Errorf("%w: bad duration %q", ErrMalformedLine, durationField)
	}

	return task.New(id, duration)
}

// WriteTasks writes tasks in the format ParseTasks reads.
func WriteTasks(w io.Writer, tasks []task.Task) error {
	for _, t := range tasks {
		if _, err := fmt.Fprintf(w, "%s %d\n", t.ID, t.Duration); err != nil {
			return err
		}
	}

	return nil
}
