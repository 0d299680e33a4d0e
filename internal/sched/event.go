// internal/sched/event.go

package sched

import (
	"time"

	"krunq/internal/hal"
	"krunq/internal/task"
)

// EventKind represents the type of scheduler event.
type EventKind int

const (
	EventSpawn EventKind = iota
	EventDispatch
	EventYield
	EventPreempt
	EventBlock
	EventWake
	EventSleep
	EventExit
	EventReclaim
	EventTick
)

// Event is emitted on every tick and on key lifecycle actions.
type Event struct {
	Time     time.Time
	Tick     hal.Tick
	Kind     EventKind
	TaskID   task.ID
	CPU      int
	RanTicks int64
	Vruntime float64
}

func (k EventKind) String() string {
	switch k {
	case EventSpawn:
		return "Spawn"
	case EventDispatch:
		return "Dispatch"
	case EventYield:
		return "Yield"
	case EventPreempt:
		return "Preempt"
	case EventBlock:
		return "Block"
	case EventWake:
		return "Wake"
	case EventSleep:
		return "Sleep"
	case EventExit:
		return "Exit"
	case EventReclaim:
		return "Reclaim"
	case EventTick:
		return "Tick"
	default:
		return "Unknown"
	}
}
