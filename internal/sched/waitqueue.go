// internal/sched/waitqueue.go

package sched

import (
	"sync"
	"time"

	"github.com/emirpasic/gods/lists/doublylinkedlist"

	"krunq/internal/task"
)

// WaitQueue is the reusable blocking primitive: a list of blocked tasks plus
// a caller-supplied condition. Predicates run under the queue's lock, like
// sync.Cond's.
//
// The lost-wakeup-critical ordering lives in Wait: the queue lock is held
// from the moment the predicate is found false until after the task is
// marked Blocked inside blockCurrent, so a notifier can never observe the
// task linked but still runnable.
type WaitQueue struct {
	sys     *System
	mu      sync.Mutex
	waiters *doublylinkedlist.List
}

// NewWaitQueue builds a wait queue for task synchronization.
func (s *System) NewWaitQueue() *WaitQueue {
	return &WaitQueue{sys: s, waiters: doublylinkedlist.New()}
}

// Wait blocks the current task until pred is true. If pred is already true
// it returns immediately. Spurious wakeups re-check and re-block, so pred is
// guaranteed true on return.
func (q *WaitQueue) Wait(e *Env, pred func() bool) {
	for {
		q.mu.Lock()
		if pred() {
			q.mu.Unlock()
			return
		}
		t := e.t
		t.SetInWait()
		q.waiters.Append(t)
		e.rq.blockCurrent(q.mu.Unlock)
	}
}

// WaitTimeout is Wait with a deadline. It reports whether the wait ended
// because the deadline passed rather than because pred came true.
func (q *WaitQueue) WaitTimeout(e *Env, pred func() bool, d time.Duration) bool {
	deadline := q.sys.clock.Now() + q.sys.ticksIn(d)
	for {
		q.mu.Lock()
		if pred() {
			q.mu.Unlock()
			return false
		}
		if q.sys.clock.Now() >= deadline {
			q.mu.Unlock()
			return true
		}
		t := e.t
		t.ResetTimedOut()
		t.SetInWait()
		q.waiters.Append(t)
		e.rq.blockWithTimer(q, deadline, q.mu.Unlock)
		if t.TookTimeout() {
			return true
		}
	}
}

// NotifyOne wakes the first claimable waiter, if any.
func (q *WaitQueue) NotifyOne() {
	q.notify(1)
}

// NotifyAll wakes every currently linked waiter. Each woken task is Ready
// with its membership flag cleared before it runs again.
func (q *WaitQueue) NotifyAll() {
	q.notify(-1)
}

func (q *WaitQueue) notify(limit int) {
	var claimed []*task.Task
	q.mu.Lock()
	for i := 0; i < q.waiters.Size(); {
		v, _ := q.waiters.Get(i)
		t := v.(*task.Task)
		// A waiter whose timeout already claimed the wake stays in the
		// list until the timeout path unlinks it; skip it here.
		if !t.ClaimWake() {
			i++
			continue
		}
		q.waiters.Remove(i)
		claimed = append(claimed, t)
		if limit > 0 && len(claimed) == limit {
			break
		}
	}
	q.mu.Unlock()

	for _, t := range claimed {
		rq := q.sys.domain(t.CPU)
		rq.disarmTimer(t)
		rq.unblockTask(t, true)
	}
}

// removeWaiter unlinks a task whose timeout won the wake race.
func (q *WaitQueue) removeWaiter(t *task.Task) {
	q.mu.Lock()
	if idx := q.waiters.IndexOf(t); idx >= 0 {
		q.waiters.Remove(idx)
	}
	q.mu.Unlock()
}

// Len reports the number of linked waiters.
func (q *WaitQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.waiters.Size()
}
