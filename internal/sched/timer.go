// internal/sched/timer.go

package sched

import (
	"github.com/emirpasic/gods/trees/redblacktree"

	"krunq/internal/hal"
	"krunq/internal/task"
)

// timerEntry is one armed deadline. q is nil for plain sleeps and points at
// the wait queue for timed waits, so expiry can unlink the loser of the
// notify/timeout race.
type timerEntry struct {
	t *task.Task
	q *WaitQueue
}

// timerKey orders entries by deadline, ties broken by task ID.
type timerKey struct {
	deadline hal.Tick
	id       task.ID
}

func timerCompare(a, b any) int {
	ka, kb := a.(timerKey), b.(timerKey)
	switch {
	case ka.deadline < kb.deadline:
		return -1
	case ka.deadline > kb.deadline:
		return 1
	case ka.id < kb.id:
		return -1
	case ka.id > kb.id:
		return 1
	default:
		return 0
	}
}

// timerList is the per-domain deadline list. All access happens under the
// owning run queue's lock.
type timerList struct {
	tree *redblacktree.Tree
}

func newTimerList() *timerList {
	return &timerList{tree: redblacktree.NewWith(timerCompare)}
}

// add links an entry. The task's timer membership flag must already be
// armed.
func (l *timerList) add(deadline hal.Tick, t *task.Task, q *WaitQueue) {
	l.tree.Put(timerKey{deadline, t.ID}, timerEntry{t: t, q: q})
}

// remove unlinks a disarmed task's entry, if still present.
func (l *timerList) remove(deadline hal.Tick, id task.ID) {
	l.tree.Remove(timerKey{deadline, id})
}

// expire pops every entry whose deadline has passed. The popped tasks'
// timer flags are disarmed here; the caller wakes them after dropping the
// run-queue lock.
func (l *timerList) expire(now hal.Tick) []timerEntry {
	var fired []timerEntry
	for {
		node := l.tree.Left()
		if node == nil {
			break
		}
		key := node.Key.(timerKey)
		if key.deadline > now {
			break
		}
		en := node.Value.(timerEntry)
		l.tree.Remove(key)
		if en.t.DisarmTimer() {
			fired = append(fired, en)
		}
	}
	return fired
}
