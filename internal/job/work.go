package job

import (
	"time"

	"krunq/internal/sched"
)

// Spin returns an entry that burns the given number of cooperative rounds,
// hitting a preemption safe point between rounds.
func Spin(rounds int) func(*sched.Env) int {
	return func(e *sched.Env) int {
		for i := 0; i < rounds; i++ {
			e.Checkpoint()
			e.YieldNow()
		}
		return 0
	}
}

// Sleeper returns an entry that sleeps for d the given number of times.
func Sleeper(d time.Duration, times int) func(*sched.Env) int {
	return func(e *sched.Env) int {
		for i := 0; i < times; i++ {
			e.Sleep(d)
		}
		return 0
	}
}
