package tracing

import (
	"context"
	"log/slog"

	"github.com/sarchlab/tactsched/sim/hooking"
	"github.com/sarchlab/tactsched/sim/naming"
	"github.com/sarchlab/tactsched/sim/processor"
	"github.com/sarchlab/tactsched/sim/queueing"
	"github.com/sarchlab/tactsched/sim/scheduler"
)

// LogTracer writes every hook invocation to a structured logger. Processor
// and container activity is logged at debug level, finished tasks at info and
// full containers at warn.
type LogTracer struct {
	logger *slog.Logger
}

// NewLogTracer creates a LogTracer.
func NewLogTracer(logger *slog.Logger) *LogTracer {
	return &LogTracer{logger: logger}
}

// Func logs the event.
func (t *LogTracer) Func(ctx hooking.HookCtx) {
	where := ""
	if named, ok := ctx.Domain.(naming.Named); ok {
		where = named.Name()
	}

	switch ctx.Pos {
	case processor.HookPosProgress, processor.HookPosStalled:
		p := ctx.Item.(processor.Progress)
		t.logger.Debug(ctx.Pos.Name,
			"processor", p.Processor,
			"task", p.Task.ID,
			"elapsed", p.Elapsed,
			"duration", p.Duration)
	case processor.HookPosIdle:
		t.logger.Debug(ctx.Pos.Name, "processor", where)
	case queueing.HookPosPush, queueing.HookPosPop:
		t.logger.Debug(ctx.Pos.Name, "container", where, "item", ctx.Item)
	case scheduler.HookPosTaskMoved:
		m := ctx.Item.(scheduler.Move)
		t.logger.Debug(ctx.Pos.Name,
			"tact", m.Tact, "task", m.Task.ID, "from", m.From, "to", m.To)
	case scheduler.HookPosTaskFinished:
		m := ctx.Item.(scheduler.Move)
		t.logger.Info("task finished",
			"tact", m.Tact, "task", m.Task.ID, "duration", m.Task.Duration)
	case scheduler.HookPosCapacityExceeded:
		r := ctx.Item.(scheduler.Rejection)
		t.logger.Warn("container full, retrying next tact",
			"tact", r.Tact, "task", r.Task.ID, "container", r.Container)
	case scheduler.HookPosTactEnd:
		r := ctx.Item.(scheduler.TactReport)
		if t.logger.Enabled(context.Background(), slog.LevelDebug) {
			t.logger.Debug(ctx.Pos.Name,
				"tact", r.Tact,
				"backlog", len(r.Backlog),
				"stack", len(r.Stack),
				"queue", len(r.Queue),
				"completed", r.Completed,
				"done", r.Done)
		}
	default:
		t.logger.Debug("unknown hook position", "pos", ctx.Pos.Name, "domain", where)
	}
}
