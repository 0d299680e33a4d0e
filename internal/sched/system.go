// internal/sched/system.go

package sched

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"krunq/internal/hal"
	"krunq/internal/logging"
	"krunq/internal/policy"
	"krunq/internal/task"
)

// System is the composed scheduler state: one run queue per CPU, the shared
// clock and stack allocator, the exited-task holding pen, and the reaper.
// It is constructed once by Boot and passed explicitly into every entry
// point; there are no package-level singletons.
type System struct {
	cfg   Config
	log   *slog.Logger
	clock *hal.TickClock
	alloc hal.StackAllocator

	domains *hal.PerCPU[*RunQueue]

	pen        *holdingPen
	reaperWake *WaitQueue

	exitMu sync.Mutex
	exitQs map[task.ID]*WaitQueue

	events chan Event
	trace  atomic.Pointer[csvTrace]

	// live counts spawned, non-internal tasks that have not exited yet.
	live       atomic.Int64
	initExited atomic.Bool
	stopping   atomic.Bool
	stopOnce   sync.Once
	done       chan struct{}
	doneOnce   sync.Once
}

// Boot constructs the scheduler and adopts the calling goroutine as the init
// task on CPU 0. The returned Env is the init task's handle into the public
// API. Exactly one idle task per domain and one init task exist.
func Boot(cfg Config) (*System, *Env, error) {
	s := &System{
		cfg:    cfg,
		log:    logging.New(cfg.LogLevel, cfg.LogFormat),
		clock:  hal.NewTickClock(256),
		alloc:  hal.NewCountingAllocator(),
		pen:    newHoldingPen(),
		exitQs: make(map[task.ID]*WaitQueue),
		events: make(chan Event, 256),
		done:   make(chan struct{}),
	}

	s.domains = hal.NewPerCPU[*RunQueue](cfg.CPUs)
	for cpu := 0; cpu < cfg.CPUs; cpu++ {
		pol, err := policy.New(policy.Kind(cfg.Policy), cfg.SliceTicks)
		if err != nil {
			return nil, nil, err
		}
		s.domains.Set(cpu, newRunQueue(s, cpu, pol))
	}
	s.reaperWake = s.NewWaitQueue()

	initTask := task.New("init", task.DefaultPriority, 0, nil)
	initTask.IsInit = true
	initTask.Ctx = hal.AdoptContext()
	initTask.SetState(task.Running)
	rq0 := s.domain(0)
	rq0.current = initTask
	s.createExitQueue(initTask.ID)
	env := &Env{sys: s, rq: rq0, t: initTask}

	for cpu := 0; cpu < cfg.CPUs; cpu++ {
		rq := s.domain(cpu)
		rq.startIdle()
		if cpu != 0 {
			// Secondary domains have no init task; their idle task is the
			// first thing that runs on them.
			rq.current = rq.idle
			rq.idle.SetState(task.Running)
			hal.Handoff(rq.idle.Ctx)
		}
	}

	if _, err := s.spawn("reaper", 0, s.reaperMain, false); err != nil {
		return nil, nil, err
	}

	if cfg.TickMS > 0 {
		s.clock.Start(time.Duration(cfg.TickMS) * time.Millisecond)
		go s.runTicks()
	}

	s.log.Info("scheduler booted",
		"policy", cfg.Policy, "cpus", cfg.CPUs, "tick_ms", cfg.TickMS)
	return s, env, nil
}

func (s *System) domain(cpu int) *RunQueue {
	return s.domains.Get(cpu)
}

// spawn builds a control block, arms its context with the auto-exit
// trampoline, and enqueues it ready. counted=false marks scheduler-internal
// tasks that do not hold up shutdown detection.
func (s *System) spawn(name string, defaultCPU int, entry func(*Env) int, counted bool, opts ...SpawnOption) (*task.Task, error) {
	sc := spawnConfig{priority: task.DefaultPriority, cpu: defaultCPU}
	for _, o := range opts {
		o(&sc)
	}
	if sc.cpu < 0 || sc.cpu >= s.domains.Len() {
		return nil, fmt.Errorf("spawn %s: no such cpu %d", name, sc.cpu)
	}
	stack, err := s.alloc.Acquire(s.cfg.StackBytes)
	if err != nil {
		return nil, fmt.Errorf("spawn %s: %w", name, err)
	}

	rq := s.domain(sc.cpu)
	t := task.New(name, sc.priority, sc.cpu, nil)
	t.Internal = !counted
	t.Stack = stack
	t.Ctx = hal.NewContext()
	env := &Env{sys: s, rq: rq, t: t}
	t.SetEntry(func() int { return entry(env) })

	s.createExitQueue(t.ID)
	if counted {
		s.live.Add(1)
	}

	// First dispatch runs the entry closure; if it returns, the trampoline
	// exits the task with the closure's result.
	t.Ctx.Start(func() {
		thunk := t.TakeEntry()
		code := 0
		if thunk != nil {
			code = thunk()
		}
		env.Exit(code)
	})

	rq.addTask(t)
	s.emit(Event{Kind: EventSpawn, TaskID: t.ID, CPU: sc.cpu})
	s.log.Debug("spawned task", "id", t.ID, "name", name, "cpu", sc.cpu, "priority", sc.priority)
	return t, nil
}

// finishTask runs after a task's state became Exited: joiners wake, the
// control block enters the pen, and the reaper is prodded. The init task is
// privileged: it is never penned and its exit arms shutdown detection.
func (s *System) finishTask(t *task.Task) {
	if q := s.exitQueue(t.ID); q != nil {
		q.NotifyAll()
	}
	if t.IsInit {
		s.initExited.Store(true)
		s.checkDone()
		return
	}
	// The pen takes its own reference before the creation reference is
	// dropped; whichever of the two drops lands last frees the task.
	t.Ref()
	s.pen.push(t)
	s.reaperWake.NotifyOne()
	if t.Unref() {
		s.releaseTask(t)
	}
	if !t.Internal {
		s.live.Add(-1)
		s.checkDone()
	}
}

// checkDone closes Done once the init task has exited and no counted tasks
// remain.
func (s *System) checkDone() {
	if s.initExited.Load() && s.live.Load() == 0 {
		s.doneOnce.Do(func() { close(s.done) })
	}
}

func (s *System) createExitQueue(id task.ID) {
	s.exitMu.Lock()
	s.exitQs[id] = s.NewWaitQueue()
	s.exitMu.Unlock()
}

// exitQueue returns the wait queue tasks block on to join id. A task whose
// queue was already dropped is necessarily Exited, so callers checking the
// state first never miss a wake.
func (s *System) exitQueue(id task.ID) *WaitQueue {
	s.exitMu.Lock()
	defer s.exitMu.Unlock()
	if q, ok := s.exitQs[id]; ok {
		return q
	}
	q := s.NewWaitQueue()
	s.exitQs[id] = q
	return q
}

func (s *System) dropExitQueue(id task.ID) {
	s.exitMu.Lock()
	delete(s.exitQs, id)
	s.exitMu.Unlock()
}

// runTicks delivers clock interrupts to every domain until the clock stops.
func (s *System) runTicks() {
	for range s.clock.Ch {
		s.dispatchTick(s.clock.Now())
	}
}

func (s *System) dispatchTick(now hal.Tick) {
	for cpu := 0; cpu < s.domains.Len(); cpu++ {
		s.domain(cpu).onTick(now)
	}
	s.emit(Event{Kind: EventTick})
}

// InjectTick advances the clock by one tick and delivers the interrupt
// synchronously. This is the tickless/test path; it replaces the periodic
// clock when tick_ms is 0.
func (s *System) InjectTick() {
	s.dispatchTick(s.clock.Advance())
}

// ticksIn converts a duration to whole ticks, never less than one. With no
// periodic clock configured a millisecond tick is assumed.
func (s *System) ticksIn(d time.Duration) hal.Tick {
	interval := time.Duration(s.cfg.TickMS) * time.Millisecond
	if interval <= 0 {
		interval = time.Millisecond
	}
	n := hal.Tick((d + interval - 1) / interval)
	if n < 1 {
		n = 1
	}
	return n
}

func (s *System) emit(ev Event) {
	ev.Time = time.Now()
	if ev.Tick == 0 {
		ev.Tick = s.clock.Now()
	}
	if tr := s.trace.Load(); tr != nil && !s.stopping.Load() {
		tr.record(ev)
	}
	select {
	case s.events <- ev:
	default:
	}
}

// Events exposes the read-only status stream. The channel is buffered and
// never closed; slow consumers lose events rather than stalling the core.
func (s *System) Events() <-chan Event {
	return s.events
}

// EnableCSVTrace opens the given file path for CSV logging of events.
// Call it right after Boot, before spawning load.
func (s *System) EnableCSVTrace(path string) error {
	tr, err := newCSVTrace(path)
	if err != nil {
		return err
	}
	s.trace.Store(tr)
	return nil
}

// Done is closed once the init task has exited and no spawned tasks remain.
func (s *System) Done() <-chan struct{} {
	return s.done
}

// Allocator exposes the stack allocator for leak accounting.
func (s *System) Allocator() hal.StackAllocator {
	return s.alloc
}

// Clock exposes the tick clock.
func (s *System) Clock() *hal.TickClock {
	return s.clock
}

// Shutdown stops the clock, retires the reaper, and winds down the idle
// tasks. Tasks still blocked on user wait queues stay parked; shutting down
// with live tasks is the caller's bug, not the scheduler's.
func (s *System) Shutdown() {
	s.stopOnce.Do(func() {
		s.stopping.Store(true)
		s.clock.Stop()
		s.reaperWake.NotifyAll()
		for cpu := 0; cpu < s.domains.Len(); cpu++ {
			s.domain(cpu).wakeIdle()
		}
		if tr := s.trace.Load(); tr != nil {
			tr.close()
		}
		s.log.Info("scheduler shut down")
	})
}
