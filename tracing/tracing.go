// Package tracing provides hooks that observe a scheduler run: structured
// logging, utilization accounting and OpenTelemetry spans.
package tracing

import (
	"github.com/sarchlab/tactsched/sim/hooking"
	"github.com/sarchlab/tactsched/sim/scheduler"
)

// Attach registers the hooks on the scheduler, on both of its containers and
// on both of its processors.
func Attach(s *scheduler.Scheduler, hooks ...hooking.Hook) {
	domains := []hooking.Hookable{s, s.Stack(), s.Queue()}
	for _, p := range s.Processors() {
		domains = append(domains, p)
	}

	for _, h := range hooks {
		for _, d := range domains {
			d.AcceptHook(h)
		}
	}
}
