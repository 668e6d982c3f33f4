package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sarchlab/tactsched/render"
	"github.com/sarchlab/tactsched/sim/scheduler"
	"github.com/sarchlab/tactsched/tracing"
)

// ErrTactLimit is returned when a run reaches its tact limit before every
// task has finished.
var ErrTactLimit = errors.New("tact limit reached")

// runner drives a scheduler until it is done and prints what happens.
type runner struct {
	scheduler   *scheduler.Scheduler
	out         io.Writer
	board       *render.Board
	utilization *tracing.UtilizationTracer

	maxTacts    uint64
	waitForNext func(context.Context) error
}

func (r *runner) run(ctx context.Context) error {
	if err := r.board.Render(r.scheduler.Report()); err != nil {
		return err
	}

	for !r.scheduler.IsDone() {
		if err := ctx.Err(); err != nil {
			return err
		}

		if r.maxTacts > 0 && r.scheduler.Tact() >= r.maxTacts {
			return r.stuck()
		}

		report, err := r.scheduler.Step()
		if err != nil {
			return err
		}

		if err := r.board.Render(report); err != nil {
			return err
		}

		if r.waitForNext != nil && !report.Done {
			if err := r.waitForNext(ctx); err != nil {
				return err
			}
		}
	}

	if err := r.board.Summary(r.scheduler.Report()); err != nil {
		return err
	}

	if r.utilization != nil {
		r.utilization.Report(r.out)
	}

	return nil
}

func (r *runner) stuck() error {
	report := r.scheduler.Report()

	return fmt.Errorf("%w after %d tacts: %d of %d tasks finished, "+
		"backlog %s, stack %s, queue %s, P1 %s, P2 %s",
		ErrTactLimit, report.Tact, report.Completed, report.Submitted,
		render.Tasks(report.Backlog),
		render.Tasks(report.Stack),
		render.Tasks(report.Queue),
		report.Processors[0].State,
		report.Processors[1].State)
}
