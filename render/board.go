// Package render turns tact reports into text for a terminal.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/sarchlab/tactsched/sim/scheduler"
	"github.com/sarchlab/tactsched/sim/task"
)

// A Board renders tact reports to a writer. Colors are used only if the
// writer is a terminal that supports them.
type Board struct {
	w io.Writer

	title     lipgloss.Style
	label     lipgloss.Style
	idle      lipgloss.Style
	running   lipgloss.Style
	completed lipgloss.Style
	finished  lipgloss.Style
	warning   lipgloss.Style
}

// NewBoard creates a Board writing to w.
func NewBoard(w io.Writer) *Board {
	r := lipgloss.NewRenderer(w)

	return &Board{
		w:         w,
		title:     r.NewStyle().Bold(true),
		label:     r.NewStyle().Width(9),
		idle:      r.NewStyle().Foreground(lipgloss.Color("240")),
		running:   r.NewStyle().Foreground(lipgloss.Color("11")).Bold(true),
		completed: r.NewStyle().Foreground(lipgloss.Color("10")).Bold(true),
		finished:  r.NewStyle().Foreground(lipgloss.Color("10")),
		warning:   r.NewStyle().Foreground(lipgloss.Color("9")),
	}
}

// Render writes one tact.
func (b *Board) Render(report scheduler.TactReport) error {
	_, err := io.WriteString(b.w, b.Format(report))
	return err
}

// Format returns the text of one tact, ending with a blank line.
func (b *Board) Format(report scheduler.TactReport) string {
	sb := &strings.Builder{}

	fmt.Fprintln(sb, b.title.Render(fmt.Sprintf("Tact %d", report.Tact)))
	b.line(sb, "Backlog", Tasks(report.Backlog))
	b.line(sb, "Stack", fmt.Sprintf("%s %d/%d",
		Tasks(report.Stack), len(report.Stack), report.StackCapacity))
	b.line(sb, "P1", b.processor(report.Processors[0]))
	b.line(sb, "Queue", fmt.Sprintf("%s %d/%d",
		Tasks(report.Queue), len(report.Queue), report.QueueCapacity))
	b.line(sb, "P2", b.processor(report.Processors[1]))

	for _, t := range report.Finished {
		b.line(sb, "Finished", b.finished.Render(t.String()))
	}

	for _, r := range report.Rejections {
		b.line(sb, "Full", b.warning.Render(
			fmt.Sprintf("%s rejected %s", r.Container, r.Task)))
	}

	fmt.Fprintln(sb)

	return sb.String()
}

// Summary writes the closing line of a run.
func (b *Board) Summary(report scheduler.TactReport) error {
	_, err := fmt.Fprintf(b.w, "%s\n",
		b.title.Render(fmt.Sprintf("All %d tasks finished after %d tacts",
			report.Completed, report.Tact)))

	return err
}

func (b *Board) line(sb *strings.Builder, label, value string) {
	fmt.Fprintf(sb, "%s%s\n", b.label.Render(label), value)
}

func (b *Board) processor(p scheduler.ProcessorStatus) string {
	switch p.State {
	case scheduler.ProcessorRunning:
		return b.running.Render(fmt.Sprintf("running %s %d/%d",
			p.Task, p.Elapsed, p.Duration))
	case scheduler.ProcessorCompleted:
		return b.completed.Render(fmt.Sprintf("completed %s %d/%d",
			p.Task, p.Elapsed, p.Duration))
	default:
		return b.idle.Render("idle")
	}
}

// Tasks formats a task list as [{id, duration}, ...].
func Tasks(tasks []task.Task) string {
	parts := make([]string, 0, len(tasks))
	for _, t := range tasks {
		parts = append(parts, t.String())
	}

	return "[" + strings.Join(parts, ", ") + "]"
}
