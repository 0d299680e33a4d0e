package policy

import (
	"fmt"

	"github.com/emirpasic/gods/trees/redblacktree"

	"krunq/internal/task"
)

// weightedFair orders ready tasks in a red-black tree keyed by accumulated
// weighted runtime, picking the most underserved task next. Ties break on
// the lowest task ID, which keeps selection deterministic.
type weightedFair struct {
	tree        *redblacktree.Tree
	minVruntime float64
}

// wfKey is the tree key.
type wfKey struct {
	vruntime float64
	id       task.ID
}

func wfCompare(a, b any) int {
	ka, kb := a.(wfKey), b.(wfKey)
	switch {
	case ka.vruntime < kb.vruntime:
		return -1
	case ka.vruntime > kb.vruntime:
		return 1
	case ka.id < kb.id:
		return -1
	case ka.id > kb.id:
		return 1
	default:
		return 0
	}
}

func NewWeightedFair() Policy {
	return &weightedFair{tree: redblacktree.NewWith(wfCompare)}
}

// AddTask floors the task's vruntime at the queue minimum so a task that
// blocked for a long time cannot monopolize the CPU on wake.
func (w *weightedFair) AddTask(t *task.Task) {
	if t.Vruntime < w.minVruntime {
		t.Vruntime = w.minVruntime
	}
	w.tree.Put(wfKey{t.Vruntime, t.ID}, t)
}

func (w *weightedFair) RemoveTask(t *task.Task) *task.Task {
	key := wfKey{t.Vruntime, t.ID}
	if _, ok := w.tree.Get(key); !ok {
		panic(fmt.Sprintf("wfair: removing task %d which is not queued", t.ID))
	}
	w.tree.Remove(key)
	return t
}

func (w *weightedFair) PickNextTask() *task.Task {
	node := w.tree.Left()
	if node == nil {
		return nil
	}
	key := node.Key.(wfKey)
	t := node.Value.(*task.Task)
	w.tree.Remove(key)
	w.minVruntime = key.vruntime
	return t
}

func (w *weightedFair) PutPrevTask(t *task.Task, preempted bool) {
	w.tree.Put(wfKey{t.Vruntime, t.ID}, t)
	if first := w.tree.Left(); first != nil {
		w.minVruntime = first.Key.(wfKey).vruntime
	}
}

// TaskTick charges the running task one tick of weighted runtime and asks
// for a reschedule as soon as a ready task becomes more underserved.
func (w *weightedFair) TaskTick(cur *task.Task) bool {
	cur.Vruntime += 1.0 / cur.Weight
	if first := w.tree.Left(); first != nil {
		return first.Key.(wfKey).vruntime < cur.Vruntime
	}
	return false
}

// Preempts is true when the woken task is more underserved than the running
// one. AddTask has already floored the woken task's vruntime, so the
// comparison cannot be skewed by a long block.
func (w *weightedFair) Preempts(woken, cur *task.Task) bool {
	return woken.Vruntime < cur.Vruntime
}

// SetPriority reweights the task so future ticks accrue at the new rate. A
// queued task is re-inserted under the same vruntime.
func (w *weightedFair) SetPriority(t *task.Task, priority int) bool {
	if priority < task.MinPriority {
		priority = task.MinPriority
	} else if priority > task.MaxPriority {
		priority = task.MaxPriority
	}
	key := wfKey{t.Vruntime, t.ID}
	_, queued := w.tree.Get(key)
	if queued {
		w.tree.Remove(key)
	}
	t.Priority = priority
	t.Weight = float64(1 + priority)
	if queued {
		w.tree.Put(wfKey{t.Vruntime, t.ID}, t)
	}
	return true
}
