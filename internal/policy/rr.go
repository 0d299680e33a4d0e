package policy

import (
	"fmt"

	"github.com/emirpasic/gods/lists/doublylinkedlist"

	"krunq/internal/task"
)

// DefaultSliceTicks is the round-robin quantum used when the configuration
// does not provide one.
const DefaultSliceTicks = 5

// roundRobin grants every task a fixed time slice. A preempted task that
// still has slice left goes back to the head of the queue: it did not use up
// its turn.
type roundRobin struct {
	ready      *doublylinkedlist.List
	sliceTicks int64
}

func NewRoundRobin(sliceTicks int64) Policy {
	if sliceTicks <= 0 {
		sliceTicks = DefaultSliceTicks
	}
	return &roundRobin{
		ready:      doublylinkedlist.New(),
		sliceTicks: sliceTicks,
	}
}

func (r *roundRobin) AddTask(t *task.Task) {
	t.SliceLeft = r.sliceTicks
	r.ready.Append(t)
}

func (r *roundRobin) RemoveTask(t *task.Task) *task.Task {
	idx := r.ready.IndexOf(t)
	if idx < 0 {
		panic(fmt.Sprintf("rr: removing task %d which is not queued", t.ID))
	}
	r.ready.Remove(idx)
	return t
}

func (r *roundRobin) PickNextTask() *task.Task {
	v, ok := r.ready.Get(0)
	if !ok {
		return nil
	}
	r.ready.Remove(0)
	return v.(*task.Task)
}

func (r *roundRobin) PutPrevTask(t *task.Task, preempted bool) {
	if preempted && t.SliceLeft > 0 {
		r.ready.Prepend(t)
		return
	}
	t.SliceLeft = r.sliceTicks
	r.ready.Append(t)
}

func (r *roundRobin) TaskTick(cur *task.Task) bool {
	cur.SliceLeft--
	return cur.SliceLeft <= 0
}

// Preempts is false: a woken task waits its turn, the running task keeps
// whatever slice it has left.
func (r *roundRobin) Preempts(woken, cur *task.Task) bool {
	return false
}

func (r *roundRobin) SetPriority(t *task.Task, priority int) bool {
	return false
}
