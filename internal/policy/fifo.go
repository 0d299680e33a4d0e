package policy

import (
	"fmt"

	"github.com/emirpasic/gods/lists/doublylinkedlist"

	"krunq/internal/task"
)

// fifo is pure cooperative ordering: a running task keeps the CPU until it
// yields, blocks, or exits. Ticks never request a reschedule and priorities
// are unsupported.
type fifo struct {
	ready *doublylinkedlist.List
}

func NewFIFO() Policy {
	return &fifo{ready: doublylinkedlist.New()}
}

func (f *fifo) AddTask(t *task.Task) {
	f.ready.Append(t)
}

func (f *fifo) RemoveTask(t *task.Task) *task.Task {
	idx := f.ready.IndexOf(t)
	if idx < 0 {
		panic(fmt.Sprintf("fifo: removing task %d which is not queued", t.ID))
	}
	f.ready.Remove(idx)
	return t
}

func (f *fifo) PickNextTask() *task.Task {
	v, ok := f.ready.Get(0)
	if !ok {
		return nil
	}
	f.ready.Remove(0)
	return v.(*task.Task)
}

func (f *fifo) PutPrevTask(t *task.Task, preempted bool) {
	f.ready.Append(t)
}

func (f *fifo) TaskTick(cur *task.Task) bool {
	return false
}

func (f *fifo) Preempts(woken, cur *task.Task) bool {
	return false
}

func (f *fifo) SetPriority(t *task.Task, priority int) bool {
	return false
}
