package policy

import (
	"testing"

	"krunq/internal/task"
)

func TestRRSliceExhaustion(t *testing.T) {
	p := NewRoundRobin(3)
	tasks := spawn(2)
	p.AddTask(tasks[0])
	p.AddTask(tasks[1])

	cur := p.PickNextTask()
	if p.TaskTick(cur) || p.TaskTick(cur) {
		t.Fatal("reschedule requested before the slice ran out")
	}
	if !p.TaskTick(cur) {
		t.Fatal("no reschedule after the slice ran out")
	}
}

func TestRRPreemptedKeepsTurn(t *testing.T) {
	p := NewRoundRobin(4)
	tasks := spawn(3)
	for _, tk := range tasks {
		p.AddTask(tk)
	}

	cur := p.PickNextTask()
	p.TaskTick(cur) // one tick used, slice remains
	p.PutPrevTask(cur, true)

	if got := p.PickNextTask(); got != cur {
		t.Fatalf("preempted task with slice left not at head: got %d", got.ID)
	}
	if cur.SliceLeft != 3 {
		t.Fatalf("slice was reset on a kept turn: %d", cur.SliceLeft)
	}
}

func TestRRVoluntaryStopResetsSlice(t *testing.T) {
	p := NewRoundRobin(4)
	tasks := spawn(2)
	p.AddTask(tasks[0])
	p.AddTask(tasks[1])

	cur := p.PickNextTask()
	p.TaskTick(cur)
	p.PutPrevTask(cur, false)

	if got := p.PickNextTask(); got != tasks[1] {
		t.Fatal("voluntary stop did not go to the tail")
	}
	if cur.SliceLeft != 4 {
		t.Fatalf("slice not reset: %d", cur.SliceLeft)
	}
	if p.Preempts(tasks[1], cur) {
		t.Fatal("rr let a wake cut the running slice short")
	}
}

// Any ready task waits at most (N-1) * slice ticks before it is dispatched,
// assuming nobody blocks.
func TestRRBoundedLatency(t *testing.T) {
	const (
		slice = 3
		n     = 4
		ticks = 40 * slice * n
	)
	bound := (n - 1) * slice

	p := NewRoundRobin(slice)
	tasks := spawn(n)
	for _, tk := range tasks {
		p.AddTask(tk)
	}

	waits := make(map[task.ID]int, n)
	cur := p.PickNextTask()
	for i := 0; i < ticks; i++ {
		for _, tk := range tasks {
			if tk == cur {
				continue
			}
			waits[tk.ID]++
			if waits[tk.ID] > bound {
				t.Fatalf("task %d waited %d ticks, bound %d", tk.ID, waits[tk.ID], bound)
			}
		}
		if p.TaskTick(cur) {
			p.PutPrevTask(cur, false)
			cur = p.PickNextTask()
			waits[cur.ID] = 0
		}
	}
}
