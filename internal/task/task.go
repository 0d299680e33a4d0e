package task

import (
	"fmt"
	"sync/atomic"

	"krunq/internal/hal"
)

// ID uniquely identifies a task for the lifetime of the process.
type ID uint64

// State is the task's scheduling state. Exiting is a transient internal
// value between "decided to exit" and "fully exited"; it keeps a waker from
// re-queueing a task that is in the middle of its final switch.
type State int32

const (
	Ready State = iota
	Running
	Blocked
	Exiting
	Exited
)

func (s State) String() string {
	switch s {
	case Ready:
		return "Ready"
	case Running:
		return "Running"
	case Blocked:
		return "Blocked"
	case Exiting:
		return "Exiting"
	case Exited:
		return "Exited"
	default:
		return "Unknown"
	}
}

// Priority bounds. Larger priority means larger weight and therefore a
// larger share of the CPU under the weighted-fair policy.
const (
	MinPriority     = 0
	MaxPriority     = 40
	DefaultPriority = 20
)

var nextID atomic.Uint64

// Task is the unit of scheduling: identity, state, stack, saved execution
// context, and the per-task accounting the policies need.
//
// Membership rule: a task is linked into at most one of the ready set, one
// wait queue, and one timer list at any instant. The inWait/inTimer flags
// mirror that linkage; they are CAS-claimed so a timeout and a concurrent
// notify cannot both wake the same task.
type Task struct {
	ID     ID
	Name   string
	IsIdle bool
	IsInit bool

	// Internal marks scheduler-owned background tasks (the reaper); they
	// do not count toward shutdown detection.
	Internal bool

	// CPU is the scheduling domain the task is pinned to.
	CPU int

	// Scheduling fields, owned by whichever policy the run queue carries.
	// Mutated only under the run-queue lock.
	Priority  int
	Weight    float64
	Vruntime  float64
	SliceLeft int64

	// Deadline is valid only while inTimer is set.
	Deadline hal.Tick

	// Stack is nil for the adopted init task, which never owned one.
	Stack *hal.StackRegion
	Ctx   *hal.Context

	entry func() int

	state        atomic.Int32
	inWait       atomic.Bool
	inTimer      atomic.Bool
	needResched  atomic.Bool
	preemptCount atomic.Int32
	timedOut     atomic.Bool

	exitCode    atomic.Int64
	exitCodeSet atomic.Bool
	refs        atomic.Int32
}

// New allocates a control block with a fresh monotonic ID and one owning
// reference. The entry closure is consumed exactly once at first dispatch;
// privileged tasks built by the scheduler pass nil.
func New(name string, priority, cpu int, entry func() int) *Task {
	if priority < MinPriority {
		priority = MinPriority
	} else if priority > MaxPriority {
		priority = MaxPriority
	}
	t := &Task{
		ID:       ID(nextID.Add(1)),
		Name:     name,
		CPU:      cpu,
		Priority: priority,
		Weight:   float64(1 + priority),
		entry:    entry,
	}
	t.state.Store(int32(Ready))
	t.refs.Store(1)
	return t
}

// SetEntry installs the entry closure before the first dispatch.
func (t *Task) SetEntry(fn func() int) {
	t.entry = fn
}

// TakeEntry consumes the entry closure. Second and later calls return nil.
func (t *Task) TakeEntry() func() int {
	e := t.entry
	t.entry = nil
	return e
}

func (t *Task) State() State {
	return State(t.state.Load())
}

func (t *Task) SetState(s State) {
	t.state.Store(int32(s))
}

// CasState transitions from old to new atomically, reporting success.
func (t *Task) CasState(old, new State) bool {
	return t.state.CompareAndSwap(int32(old), int32(new))
}

// SetInWait marks the task as linked into a wait queue. Linking a task that
// is already linked somewhere is a broken invariant, not a recoverable
// condition.
func (t *Task) SetInWait() {
	if !t.inWait.CompareAndSwap(false, true) {
		panic(fmt.Sprintf("task %d already linked into a wait queue", t.ID))
	}
}

// ClaimWake clears the wait-queue membership flag, reporting whether the
// caller won it. Exactly one of a concurrent notify and a concurrent timeout
// claims the wake; the loser must leave the task alone.
func (t *Task) ClaimWake() bool {
	return t.inWait.CompareAndSwap(true, false)
}

// ArmTimer marks the task as linked into a timer list.
func (t *Task) ArmTimer(deadline hal.Tick) {
	if !t.inTimer.CompareAndSwap(false, true) {
		panic(fmt.Sprintf("task %d already linked into a timer list", t.ID))
	}
	t.Deadline = deadline
}

// DisarmTimer clears timer-list membership, reporting whether the caller won
// it.
func (t *Task) DisarmTimer() bool {
	return t.inTimer.CompareAndSwap(true, false)
}

func (t *Task) SetTimedOut() {
	t.timedOut.Store(true)
}

func (t *Task) ResetTimedOut() {
	t.timedOut.Store(false)
}

// TookTimeout reports whether the last timed wait ended at its deadline.
func (t *Task) TookTimeout() bool {
	return t.timedOut.Load()
}

func (t *Task) SetNeedResched() {
	t.needResched.Store(true)
}

// TakeNeedResched consumes a pending reschedule request.
func (t *Task) TakeNeedResched() bool {
	return t.needResched.Swap(false)
}

// PreemptDisable opens a preemption-disable scope. Scopes nest.
func (t *Task) PreemptDisable() {
	t.preemptCount.Add(1)
}

// PreemptEnable closes a scope and returns the remaining nesting count.
func (t *Task) PreemptEnable() int32 {
	n := t.preemptCount.Add(-1)
	if n < 0 {
		panic(fmt.Sprintf("task %d: unbalanced preemption enable", t.ID))
	}
	return n
}

// PreemptCount returns the current nesting count.
func (t *Task) PreemptCount() int32 {
	return t.preemptCount.Load()
}

// SetExitCode records the exit code. Write-once: the first writer wins.
func (t *Task) SetExitCode(code int) {
	if t.exitCodeSet.CompareAndSwap(false, true) {
		t.exitCode.Store(int64(code))
	}
}

// ExitCode returns the recorded code; meaningful once State is Exited.
func (t *Task) ExitCode() int {
	return int(t.exitCode.Load())
}

// Ref takes an owning reference.
func (t *Task) Ref() {
	t.refs.Add(1)
}

// Unref drops an owning reference and reports whether it was the last one.
// Dropping past zero is a double-free.
func (t *Task) Unref() bool {
	n := t.refs.Add(-1)
	if n < 0 {
		panic(fmt.Sprintf("task %d: reference count underflow", t.ID))
	}
	return n == 0
}

func (t *Task) String() string {
	return fmt.Sprintf("task %d (%s) %s", t.ID, t.Name, t.State())
}
