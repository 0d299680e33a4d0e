// Package policy holds the scheduling policies a run queue can be built
// with. A policy orders ready tasks and decides who runs next; it knows
// nothing about blocking or waking. All methods are called with the owning
// run queue's lock held.
package policy

import (
	"fmt"

	"krunq/internal/task"
)

// Kind selects which policy a run queue is built with. The choice is made
// once at boot and never swapped at runtime.
type Kind string

const (
	FIFO         Kind = "fifo"
	RoundRobin   Kind = "rr"
	WeightedFair Kind = "wfair"
)

// Policy is implemented identically by every variant.
type Policy interface {
	// AddTask inserts a ready task; it becomes eligible for PickNextTask.
	AddTask(t *task.Task)

	// RemoveTask removes a specific task from the ready set and returns it.
	// Precondition: the task is currently present; removing an absent task
	// is a broken invariant and panics.
	RemoveTask(t *task.Task) *task.Task

	// PickNextTask removes and returns the task that should run next, or
	// nil when the ready set is empty.
	PickNextTask() *task.Task

	// PutPrevTask returns a task that just stopped running to the ready
	// set. preempted distinguishes a forcible takeover from a voluntary
	// stop, letting a policy requeue a still-eligible task at the front.
	PutPrevTask(t *task.Task, preempted bool)

	// TaskTick advances per-tick accounting for the running task and
	// reports whether a reschedule is now warranted.
	TaskTick(cur *task.Task) bool

	// Preempts reports whether a task that just became ready should
	// displace the currently running one at its next safe point.
	Preempts(woken, cur *task.Task) bool

	// SetPriority changes the task's scheduling weight, reporting whether
	// this policy supports priorities at all.
	SetPriority(t *task.Task, priority int) bool
}

// New constructs the configured policy.
func New(kind Kind, sliceTicks int64) (Policy, error) {
	switch kind {
	case FIFO:
		return NewFIFO(), nil
	case RoundRobin:
		return NewRoundRobin(sliceTicks), nil
	case WeightedFair:
		return NewWeightedFair(), nil
	default:
		return nil, fmt.Errorf("unknown scheduling policy %q", kind)
	}
}
