// internal/sched/env.go

package sched

import (
	"runtime"
	"time"

	"krunq/internal/hal"
	"krunq/internal/task"
)

// Env is a task's handle into the scheduler: every entry closure receives
// its own, and the init task gets one from Boot. Methods that suspend the
// caller (YieldNow, Sleep, Join, Exit, wait-queue waits) must only be called
// from the task's own goroutine.
type Env struct {
	sys *System
	rq  *RunQueue
	t   *task.Task
}

// Task returns the control block this handle belongs to.
func (e *Env) Task() *task.Task {
	return e.t
}

// System returns the composed scheduler state.
func (e *Env) System() *System {
	return e.sys
}

// SpawnOption tunes Spawn.
type SpawnOption func(*spawnConfig)

type spawnConfig struct {
	priority int
	cpu      int
}

// WithPriority sets the new task's priority, clamped to the legal range.
func WithPriority(p int) SpawnOption {
	return func(sc *spawnConfig) { sc.priority = p }
}

// OnCPU pins the new task to the given scheduling domain instead of the
// spawner's.
func OnCPU(cpu int) SpawnOption {
	return func(sc *spawnConfig) { sc.cpu = cpu }
}

// Spawn creates a ready task running entry. The closure's return value
// becomes the task's exit code.
func (e *Env) Spawn(name string, entry func(*Env) int, opts ...SpawnOption) (*task.Task, error) {
	return e.sys.spawn(name, e.rq.cpu, entry, true, opts...)
}

// YieldNow gives up the CPU voluntarily; the caller resumes when the policy
// picks it again.
func (e *Env) YieldNow() {
	e.rq.yieldCurrent(false)
}

// Checkpoint is a preemption safe point: if a reschedule is pending and
// preemption is enabled, the caller gives way here.
func (e *Env) Checkpoint() {
	if e.t.PreemptCount() > 0 {
		return
	}
	if e.t.TakeNeedResched() {
		e.rq.yieldCurrent(true)
	}
}

// DisablePreemption opens a preemption-disable scope. Scopes nest; a
// reschedule requested while disabled is deferred, not dropped.
func (e *Env) DisablePreemption() {
	e.t.PreemptDisable()
}

// EnablePreemption closes a scope. When the outermost scope closes, a
// deferred reschedule is honored exactly once.
func (e *Env) EnablePreemption() {
	if e.t.PreemptEnable() == 0 && e.t.TakeNeedResched() {
		e.rq.yieldCurrent(true)
	}
}

// Exit terminates the current task with the given code and never returns
// for spawned tasks. The init task is privileged: its exit arms shutdown
// detection and control returns to the boot caller, which is outside the
// scheduling domain from then on.
func (e *Env) Exit(code int) {
	e.rq.exitCurrent(code)
	if e.t.IsInit {
		return
	}
	runtime.Goexit()
}

// Sleep blocks the caller for at least d, rounded up to whole ticks.
func (e *Env) Sleep(d time.Duration) {
	e.SleepUntil(e.sys.clock.Now() + e.sys.ticksIn(d))
}

// SleepUntil blocks the caller until the clock reaches deadline.
func (e *Env) SleepUntil(deadline hal.Tick) {
	e.rq.sleepUntil(deadline)
}

// Join blocks until t exits and returns its exit code. Joining an already
// exited task returns immediately.
func (e *Env) Join(t *task.Task) int {
	if t.State() == task.Exited {
		return t.ExitCode()
	}
	q := e.sys.exitQueue(t.ID)
	q.Wait(e, func() bool { return t.State() == task.Exited })
	return t.ExitCode()
}

// SetPriority changes a task's scheduling weight, reporting whether the
// active policy supports priorities.
func (e *Env) SetPriority(t *task.Task, priority int) bool {
	return e.sys.domain(t.CPU).setPriority(t, priority)
}

// SetCurrentPriority adjusts the calling task's own weight.
func (e *Env) SetCurrentPriority(priority int) bool {
	return e.rq.setCurrentPriority(priority)
}
