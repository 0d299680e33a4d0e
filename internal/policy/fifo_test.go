package policy

import (
	"testing"

	"krunq/internal/task"
)

func spawn(n int) []*task.Task {
	out := make([]*task.Task, n)
	for i := range out {
		out[i] = task.New("t", task.DefaultPriority, 0, nil)
	}
	return out
}

func TestFIFOOrdering(t *testing.T) {
	p := NewFIFO()
	tasks := spawn(3)
	for _, tk := range tasks {
		p.AddTask(tk)
	}
	for i, want := range tasks {
		got := p.PickNextTask()
		if got != want {
			t.Fatalf("pick %d: got task %d, want %d", i, got.ID, want.ID)
		}
	}
	if p.PickNextTask() != nil {
		t.Fatal("empty ready set did not return nil")
	}
}

func TestFIFOPutPrevAppends(t *testing.T) {
	p := NewFIFO()
	tasks := spawn(2)
	p.AddTask(tasks[0])
	p.AddTask(tasks[1])

	first := p.PickNextTask()
	p.PutPrevTask(first, true) // preempted or not, fifo appends

	if got := p.PickNextTask(); got != tasks[1] {
		t.Fatalf("got task %d, want %d", got.ID, tasks[1].ID)
	}
	if got := p.PickNextTask(); got != first {
		t.Fatalf("requeued task not at tail")
	}
}

func TestFIFORemoveTask(t *testing.T) {
	p := NewFIFO()
	tasks := spawn(3)
	for _, tk := range tasks {
		p.AddTask(tk)
	}
	p.RemoveTask(tasks[1])
	if got := p.PickNextTask(); got != tasks[0] {
		t.Fatalf("head changed by middle removal")
	}
	if got := p.PickNextTask(); got != tasks[2] {
		t.Fatalf("removed task still queued")
	}
}

func TestFIFONeverPreempts(t *testing.T) {
	p := NewFIFO()
	tasks := spawn(2)
	p.AddTask(tasks[0])
	cur := p.PickNextTask()
	for i := 0; i < 100; i++ {
		if p.TaskTick(cur) {
			t.Fatal("fifo requested a reschedule")
		}
	}
	if p.SetPriority(cur, 5) {
		t.Fatal("fifo claims to support priorities")
	}
	if p.Preempts(tasks[1], cur) {
		t.Fatal("fifo let a wake preempt the runner")
	}
}
