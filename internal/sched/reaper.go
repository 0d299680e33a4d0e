// internal/sched/reaper.go

package sched

import (
	"sync"

	"github.com/emirpasic/gods/queues/linkedlistqueue"

	"krunq/internal/task"
)

// holdingPen collects exited control blocks awaiting reclamation. Shared by
// every domain.
type holdingPen struct {
	mu sync.Mutex
	q  *linkedlistqueue.Queue
}

func newHoldingPen() *holdingPen {
	return &holdingPen{q: linkedlistqueue.New()}
}

func (p *holdingPen) push(t *task.Task) {
	p.mu.Lock()
	p.q.Enqueue(t)
	p.mu.Unlock()
}

func (p *holdingPen) drain() []*task.Task {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []*task.Task
	for {
		v, ok := p.q.Dequeue()
		if !ok {
			return out
		}
		out = append(out, v.(*task.Task))
	}
}

func (p *holdingPen) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.q.Size()
}

// reaperMain is the background reclamation task, scheduled like any other.
// It blocks until the pen has work, drains it, and drops each control
// block's pen reference. It exits only at shutdown.
func (s *System) reaperMain(e *Env) int {
	for {
		s.reaperWake.Wait(e, func() bool {
			return s.pen.size() > 0 || s.stopping.Load()
		})
		for _, t := range s.pen.drain() {
			if t.Unref() {
				s.releaseTask(t)
			}
		}
		if s.stopping.Load() {
			return 0
		}
	}
}

// releaseTask frees a control block's resources once its last reference is
// gone. Idle and init tasks never get here.
func (s *System) releaseTask(t *task.Task) {
	s.alloc.Release(t.Stack)
	s.dropExitQueue(t.ID)
	s.emit(Event{Kind: EventReclaim, TaskID: t.ID, CPU: t.CPU})
	s.log.Debug("reclaimed task", "id", t.ID, "name", t.Name)
}
