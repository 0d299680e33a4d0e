package policy

import (
	"math"
	"testing"

	"krunq/internal/task"
)

func TestWFairPicksMostUnderserved(t *testing.T) {
	p := NewWeightedFair()
	a := task.New("a", task.DefaultPriority, 0, nil)
	b := task.New("b", task.DefaultPriority, 0, nil)
	a.Vruntime = 5
	b.Vruntime = 2
	p.AddTask(a)
	p.AddTask(b)

	if got := p.PickNextTask(); got != b {
		t.Fatalf("picked task %d, want the lower vruntime", got.ID)
	}
}

func TestWFairTieBreaksOnLowestID(t *testing.T) {
	p := NewWeightedFair()
	a := task.New("a", task.DefaultPriority, 0, nil)
	b := task.New("b", task.DefaultPriority, 0, nil)
	// identical keys except for the id
	a.Vruntime = 1
	b.Vruntime = 1
	p.AddTask(b)
	p.AddTask(a)

	if got := p.PickNextTask(); got != a {
		t.Fatalf("tie went to task %d, want lowest id %d", got.ID, a.ID)
	}
}

func TestWFairAddFloorsAtMinVruntime(t *testing.T) {
	p := NewWeightedFair()
	a := task.New("a", task.DefaultPriority, 0, nil)
	a.Vruntime = 100
	p.AddTask(a)
	p.PickNextTask() // min vruntime is now 100

	late := task.New("late", task.DefaultPriority, 0, nil)
	p.AddTask(late)
	if late.Vruntime != 100 {
		t.Fatalf("latecomer vruntime %f, want floored to 100", late.Vruntime)
	}
}

func TestWFairSetPriorityReweights(t *testing.T) {
	p := NewWeightedFair()
	a := task.New("a", 4, 0, nil)
	p.AddTask(a)

	if !p.SetPriority(a, 9) {
		t.Fatal("weighted-fair rejected a priority change")
	}
	if a.Weight != 10 {
		t.Fatalf("weight = %f, want 10", a.Weight)
	}
	if got := p.PickNextTask(); got != a {
		t.Fatal("reweighted task lost from the tree")
	}

	// clamping
	p.AddTask(a)
	p.SetPriority(a, task.MaxPriority+10)
	if a.Priority != task.MaxPriority {
		t.Fatalf("priority = %d, want clamped", a.Priority)
	}
}

func TestWFairRemoveTask(t *testing.T) {
	p := NewWeightedFair()
	tasks := spawn(3)
	for _, tk := range tasks {
		p.AddTask(tk)
	}
	p.RemoveTask(tasks[0])
	if got := p.PickNextTask(); got == tasks[0] {
		t.Fatal("removed task picked")
	}
}

func TestWFairPreemptsWhenWokenIsUnderserved(t *testing.T) {
	p := NewWeightedFair()
	woken := task.New("woken", task.DefaultPriority, 0, nil)
	cur := task.New("cur", task.DefaultPriority, 0, nil)
	woken.Vruntime = 1
	cur.Vruntime = 5

	if !p.Preempts(woken, cur) {
		t.Fatal("underserved wake did not preempt an overserved runner")
	}
	if p.Preempts(cur, woken) {
		t.Fatal("overserved wake preempted an underserved runner")
	}
}

// Two tasks running concurrently with no blocking converge to CPU shares
// proportional to their weights.
func TestWFairProportionality(t *testing.T) {
	p := NewWeightedFair()
	a := task.New("a", 1, 0, nil) // weight 2
	b := task.New("b", 7, 0, nil) // weight 8
	p.AddTask(a)
	p.AddTask(b)

	ran := make(map[task.ID]int)
	cur := p.PickNextTask()
	const ticks = 100000
	for i := 0; i < ticks; i++ {
		ran[cur.ID]++
		if p.TaskTick(cur) {
			p.PutPrevTask(cur, true)
			cur = p.PickNextTask()
		}
	}

	total := float64(ran[a.ID] + ran[b.ID])
	gotB := float64(ran[b.ID]) / total
	wantB := 8.0 / 10.0
	if math.Abs(gotB-wantB) > 0.02 {
		t.Fatalf("heavy task share %f, want about %f", gotB, wantB)
	}
}
