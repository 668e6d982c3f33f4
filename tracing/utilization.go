package tracing

import (
	"fmt"
	"io"
	"sort"

	"github.com/sarchlab/tactsched/sim/hooking"
	"github.com/sarchlab/tactsched/sim/processor"
	"github.com/sarchlab/tactsched/sim/queueing"
	"github.com/sarchlab/tactsched/sim/scheduler"
)

// ProcessorUtilization counts how a processor spent its tacts.
type ProcessorUtilization struct {
	Name    string `json:"name"`
	Busy    uint64 `json:"busy"`
	Idle    uint64 `json:"idle"`
	Stalled uint64 `json:"stalled"`
}

// Total returns the number of tacts observed.
func (u ProcessorUtilization) Total() uint64 {
	return u.Busy + u.Idle + u.Stalled
}

// BufferOccupancy summarizes the level of a container over a run.
type BufferOccupancy struct {
	Name     string  `json:"name"`
	Capacity int     `json:"capacity"`
	Peak     int     `json:"peak"`
	Average  float64 `json:"average"`
	Rejected uint64  `json:"rejected"`
}

type bufferInfo struct {
	capacity int
	level    int
	peak     int
	levelSum uint64
	rejected uint64
}

// UtilizationTracer accumulates processor and container statistics. Container
// levels are sampled at the end of every tact.
type UtilizationTracer struct {
	processors map[string]*ProcessorUtilization
	buffers    map[string]*bufferInfo
	tacts      uint64
}

// NewUtilizationTracer creates an empty UtilizationTracer.
func NewUtilizationTracer() *UtilizationTracer {
	return &UtilizationTracer{
		processors: make(map[string]*ProcessorUtilization),
		buffers:    make(map[string]*bufferInfo),
	}
}

// Func records the event.
func (t *UtilizationTracer) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case processor.HookPosProgress:
		t.processor(ctx).Busy++
	case processor.HookPosIdle:
		t.processor(ctx).Idle++
	case processor.HookPosStalled:
		t.processor(ctx).Stalled++
	case queueing.HookPosPush, queueing.HookPosPop:
		t.updateLevel(ctx.Domain.(queueing.Buffer))
	case scheduler.HookPosCapacityExceeded:
		r := ctx.Item.(scheduler.Rejection)
		t.buffer(r.Container).rejected++
	case scheduler.HookPosTactEnd:
		t.sample()
	}
}

func (t *UtilizationTracer) processor(ctx hooking.HookCtx) *ProcessorUtilization {
	name := ctx.Domain.(*processor.Processor).Name()

	u, ok := t.processors[name]
	if !ok {
		u = &ProcessorUtilization{Name: name}
		t.processors[name] = u
	}

	return u
}

func (t *UtilizationTracer) buffer(name string) *bufferInfo {
	info, ok := t.buffers[name]
	if !ok {
		info = &bufferInfo{}
		t.buffers[name] = info
	}

	return info
}

func (t *UtilizationTracer) updateLevel(buf queueing.Buffer) {
	info := t.buffer(buf.Name())
	info.capacity = buf.Capacity()
	info.level = buf.Size()

	if info.level > info.peak {
		info.peak = info.level
	}
}

func (t *UtilizationTracer) sample() {
	t.tacts++

	for _, info := range t.buffers {
		info.levelSum += uint64(info.level)
	}
}

// Processors returns the per-processor counters sorted by name.
func (t *UtilizationTracer) Processors() []ProcessorUtilization {
	out := make([]ProcessorUtilization, 0, len(t.processors))
	for _, u := range t.processors {
		out = append(out, *u)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out
}

// Buffers returns the per-container statistics sorted by name.
func (t *UtilizationTracer) Buffers() []BufferOccupancy {
	out := make([]BufferOccupancy, 0, len(t.buffers))

	for name, info := range t.buffers {
		avg := 0.0
		if t.tacts > 0 {
			avg = float64(info.levelSum) / float64(t.tacts)
		}

		out = append(out, BufferOccupancy{
			Name:     name,
			Capacity: info.capacity,
			Peak:     info.peak,
			Average:  avg,
			Rejected: info.rejected,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out
}

// Report writes a plain-text summary.
func (t *UtilizationTracer) Report(w io.Writer) {
	for _, u := range t.Processors() {
		busyPercent := 0.0
		if u.Total() > 0 {
			busyPercent = 100 * float64(u.Busy) / float64(u.Total())
		}

		fmt.Fprintf(w, "%s: busy %d, stalled %d, idle %d (%.1f%% busy)\n",
			u.Name, u.Busy, u.Stalled, u.Idle, busyPercent)
	}

	for _, b := range t.Buffers() {
		fmt.Fprintf(w, "%s: peak %d/%d, average %.2f, rejected %d\n",
			b.Name, b.Peak, b.Capacity, b.Average, b.Rejected)
	}
}
