// Package hooking is how the simulation reports what happens inside it.
// Containers, processors and the scheduler invoke hooks at well-defined
// positions; tracers, loggers and recorders implement Hook.
package hooking

// HookPos names a point in the simulation where hooks are invoked. Positions
// are compared by pointer, so each one is declared once as a package variable.
type HookPos struct {
	Name string
}

// String returns the name of the position.
func (p *HookPos) String() string {
	return p.Name
}

// HookCtx describes one event.
type HookCtx struct {
	// Domain is the element that raised the event.
	Domain Hookable

	// Pos tells what happened. The type of Item depends on it.
	Pos *HookPos

	Item any
}

// Hookable is an element that reports events to hooks.
type Hookable interface {
	AcceptHook(hook Hook)
	NumHooks() int
	Hooks() []Hook
}

// Hook receives events.
type Hook interface {
	Func(ctx HookCtx)
}

// HookFunc turns a plain function into a Hook.
type HookFunc func(ctx HookCtx)

// Func calls f.
func (f HookFunc) Func(ctx HookCtx) {
	f(ctx)
}

// HookableBase keeps the hooks of an element. Embed it and call Invoke.
type HookableBase struct {
	hooks []Hook
}

// NumHooks returns how many hooks are attached.
func (h *HookableBase) NumHooks() int {
	return len(h.hooks)
}

// Hooks returns the attached hooks in the order they were attached.
func (h *HookableBase) Hooks() []Hook {
	return h.hooks
}

// AcceptHook attaches a hook. Attaching the same hook value twice panics;
// HookFunc values cannot be compared and are always accepted.
func (h *HookableBase) AcceptHook(hook Hook) {
	if h.isAttached(hook) {
		panic("hook is already attached")
	}

	h.hooks = append(h.hooks, hook)
}

func (h *HookableBase) isAttached(hook Hook) bool {
	if _, ok := hook.(HookFunc); ok {
		return false
	}

	for _, attached := range h.hooks {
		if _, ok := attached.(HookFunc); ok {
			continue
		}

		if attached == hook {
			return true
		}
	}

	return false
}

// InvokeHook passes ctx to every hook, in attach order.
func (h *HookableBase) InvokeHook(ctx HookCtx) {
	for _, hook := range h.hooks {
		hook.Func(ctx)
	}
}

// Invoke reports an event raised by domain. Nothing is built when no hook is
// attached.
func (h *HookableBase) Invoke(domain Hookable, pos *HookPos, item any) {
	if len(h.hooks) == 0 {
		return
	}

	h.InvokeHook(HookCtx{
		Domain: domain,
		Pos:    pos,
		Item:   item,
	})
}
