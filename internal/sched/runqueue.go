// internal/sched/runqueue.go

package sched

import (
	"fmt"

	"krunq/internal/hal"
	"krunq/internal/policy"
	"krunq/internal/task"
)

// RunQueue owns one scheduling domain: a policy instance, the currently
// running task, the idle task, and the domain's timer list.
//
// Locking: the IRQ line is the run-queue lock. Holding it masks the clock
// interrupt for this domain and serializes every mutation of the policy and
// the current/idle pointers. It is never held across a context switch: every
// path releases it immediately before hal.Switch, and a task resumes with it
// already unlocked.
type RunQueue struct {
	sys  *System
	cpu  int
	pol  policy.Policy
	line hal.IRQLine

	timers  *timerList
	current *task.Task
	idle    *task.Task

	// wake unparks the idle task when work arrives. Capacity 1: a wakeup
	// that lands while idle is mid-yield is deposited, not lost.
	wake chan struct{}
}

func newRunQueue(sys *System, cpu int, pol policy.Policy) *RunQueue {
	return &RunQueue{
		sys:    sys,
		cpu:    cpu,
		pol:    pol,
		timers: newTimerList(),
		wake:   make(chan struct{}, 1),
	}
}

func (rq *RunQueue) lock() hal.IRQToken {
	return rq.line.Disable()
}

// startIdle builds and arms this domain's idle task. It never enters the
// policy; pickNext falls back to it when the ready set is empty.
func (rq *RunQueue) startIdle() {
	idle := task.New("idle", task.MinPriority, rq.cpu, nil)
	idle.IsIdle = true
	idle.Ctx = hal.NewContext()
	rq.idle = idle
	idle.Ctx.Start(rq.idleMain)
}

// idleMain hands the CPU to any ready task and otherwise parks until work
// arrives. On shutdown the goroutine simply winds down.
func (rq *RunQueue) idleMain() {
	for {
		if rq.sys.stopping.Load() {
			return
		}
		rq.yieldCurrent(false)
		<-rq.wake
	}
}

func (rq *RunQueue) wakeIdle() {
	select {
	case rq.wake <- struct{}{}:
	default:
	}
}

// pickNext chooses the next task to run, falling back to the idle task.
// Callers hold the lock.
func (rq *RunQueue) pickNext() *task.Task {
	if t := rq.pol.PickNextTask(); t != nil {
		return t
	}
	return rq.idle
}

// addTask marks a task ready and inserts it into the policy.
func (rq *RunQueue) addTask(t *task.Task) {
	tok := rq.lock()
	t.SetState(task.Ready)
	rq.pol.AddTask(t)
	rq.wakeIdle()
	tok.Restore()
}

// yieldCurrent moves the current task back to the ready set and switches to
// the next one. This is a suspension point: the caller does not resume until
// it is chosen again. preempted tells the policy whether the stop was
// voluntary.
func (rq *RunQueue) yieldCurrent(preempted bool) {
	tok := rq.lock()
	cur := rq.current
	cur.TakeNeedResched() // this reschedule satisfies any pending request
	cur.SetState(task.Ready)
	if !cur.IsIdle {
		rq.pol.PutPrevTask(cur, preempted)
	}
	next := rq.pickNext()
	if next == cur {
		cur.SetState(task.Running)
		tok.Restore()
		return
	}
	rq.current = next
	next.SetState(task.Running)
	kind := EventYield
	if preempted {
		kind = EventPreempt
	}
	rq.sys.emit(Event{Kind: kind, TaskID: cur.ID, CPU: rq.cpu, Vruntime: cur.Vruntime})
	rq.emitDispatch(next)
	tok.Restore()
	hal.Switch(cur.Ctx, next.Ctx)
}

func (rq *RunQueue) emitDispatch(next *task.Task) {
	if next.IsIdle {
		return
	}
	rq.sys.emit(Event{Kind: EventDispatch, TaskID: next.ID, CPU: rq.cpu, Vruntime: next.Vruntime})
}

// blockCurrent suspends the current task, which the caller has already
// linked into its destination wait structure. unlock releases the caller's
// lock after the task is marked Blocked and before the switch: releasing
// earlier would let a waker miss the task, holding it across the switch
// would deadlock the waker.
func (rq *RunQueue) blockCurrent(unlock func()) {
	tok := rq.lock()
	cur := rq.current
	if cur.IsIdle {
		panic("sched: idle task may not block")
	}
	cur.SetState(task.Blocked)
	next := rq.pickNext()
	rq.current = next
	next.SetState(task.Running)
	rq.sys.emit(Event{Kind: EventBlock, TaskID: cur.ID, CPU: rq.cpu, Vruntime: cur.Vruntime})
	rq.emitDispatch(next)
	if unlock != nil {
		unlock()
	}
	tok.Restore()
	hal.Switch(cur.Ctx, next.Ctx)
}

// blockWithTimer is blockCurrent plus a deadline that unblocks the task if
// no notify arrives first.
func (rq *RunQueue) blockWithTimer(q *WaitQueue, deadline hal.Tick, unlock func()) {
	tok := rq.lock()
	cur := rq.current
	if cur.IsIdle {
		panic("sched: idle task may not block")
	}
	cur.ArmTimer(deadline)
	rq.timers.add(deadline, cur, q)
	cur.SetState(task.Blocked)
	next := rq.pickNext()
	rq.current = next
	next.SetState(task.Running)
	rq.sys.emit(Event{Kind: EventBlock, TaskID: cur.ID, CPU: rq.cpu, Vruntime: cur.Vruntime})
	rq.emitDispatch(next)
	if unlock != nil {
		unlock()
	}
	tok.Restore()
	hal.Switch(cur.Ctx, next.Ctx)
}

// sleepUntil blocks the current task with nothing but the clock to wake it.
func (rq *RunQueue) sleepUntil(deadline hal.Tick) {
	tok := rq.lock()
	cur := rq.current
	if cur.IsIdle {
		panic("sched: idle task may not sleep")
	}
	cur.ArmTimer(deadline)
	rq.timers.add(deadline, cur, nil)
	cur.SetState(task.Blocked)
	next := rq.pickNext()
	rq.current = next
	next.SetState(task.Running)
	rq.sys.emit(Event{Kind: EventSleep, TaskID: cur.ID, CPU: rq.cpu, Vruntime: cur.Vruntime})
	rq.emitDispatch(next)
	tok.Restore()
	hal.Switch(cur.Ctx, next.Ctx)
}

// unblockTask transitions a task from Blocked back to Ready. With
// reschedHint set, the policy decides whether the woken task should displace
// the current one at its next safe point.
func (rq *RunQueue) unblockTask(t *task.Task, reschedHint bool) {
	tok := rq.lock()
	rq.unblockLocked(t, reschedHint)
	tok.Restore()
}

func (rq *RunQueue) unblockLocked(t *task.Task, reschedHint bool) {
	if !t.CasState(task.Blocked, task.Ready) {
		panic(fmt.Sprintf("sched: unblocking %v", t))
	}
	rq.pol.AddTask(t)
	rq.sys.emit(Event{Kind: EventWake, TaskID: t.ID, CPU: rq.cpu, Vruntime: t.Vruntime})
	if reschedHint && rq.current != nil && !rq.current.IsIdle &&
		rq.pol.Preempts(t, rq.current) {
		rq.current.SetNeedResched()
	}
	rq.wakeIdle()
}

// disarmTimer cancels a task's pending deadline, if it is still armed.
func (rq *RunQueue) disarmTimer(t *task.Task) {
	tok := rq.lock()
	if t.DisarmTimer() {
		rq.timers.remove(t.Deadline, t.ID)
	}
	tok.Restore()
}

// exitCurrent retires the current task for good. It records the exit code,
// wakes joiners, hands the control block to the holding pen, wakes the
// reaper, and switches away. The caller arranges that this task's goroutine
// never runs scheduled code again.
func (rq *RunQueue) exitCurrent(code int) {
	tok := rq.lock()
	cur := rq.current
	if cur.IsIdle {
		panic("sched: idle task may not exit")
	}
	cur.SetExitCode(code)
	cur.SetState(task.Exiting)
	next := rq.pickNext()
	rq.current = next
	next.SetState(task.Running)
	rq.sys.emit(Event{Kind: EventExit, TaskID: cur.ID, CPU: rq.cpu, Vruntime: cur.Vruntime})
	rq.emitDispatch(next)
	tok.Restore()

	cur.SetState(task.Exited)
	rq.sys.finishTask(cur)
	hal.Handoff(next.Ctx)
}

// setCurrentPriority forwards to the policy for the running task.
func (rq *RunQueue) setCurrentPriority(priority int) bool {
	tok := rq.lock()
	ok := rq.pol.SetPriority(rq.current, priority)
	tok.Restore()
	return ok
}

func (rq *RunQueue) setPriority(t *task.Task, priority int) bool {
	tok := rq.lock()
	ok := rq.pol.SetPriority(t, priority)
	tok.Restore()
	return ok
}

// onTick is the clock interrupt handler: per-tick policy accounting plus
// timer expiry. A warranted reschedule is recorded on the running task and
// honored at its next safe point; a preemption-disable scope defers it until
// the scope closes.
func (rq *RunQueue) onTick(now hal.Tick) {
	tok := rq.lock()
	cur := rq.current
	var resched bool
	if cur != nil && !cur.IsIdle && cur.State() == task.Running {
		resched = rq.pol.TaskTick(cur)
	}
	fired := rq.timers.expire(now)
	tok.Restore()

	if resched {
		cur.SetNeedResched()
	}

	for _, en := range fired {
		t := en.t
		if en.q != nil {
			// Timed wait: the deadline races an explicit notify for the
			// same task, and exactly one side may wake it.
			if !t.ClaimWake() {
				continue
			}
			en.q.removeWaiter(t)
			t.SetTimedOut()
		}
		rq.unblockTask(t, true)
	}
}
