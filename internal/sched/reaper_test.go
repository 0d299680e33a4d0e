package sched

import (
	"fmt"
	"testing"
)

// Stacks of exited tasks are returned to the allocator by the reaper, so
// outstanding stack bytes settle back to the post-boot baseline once all
// spawned tasks have finished.
func TestReaperReclaimsStacks(t *testing.T) {
	sys, env := boot(t, "fifo", 1, 0)
	baseline := sys.Allocator().Outstanding()

	for i := 0; i < 10; i++ {
		if _, err := env.Spawn(fmt.Sprintf("short%d", i), func(e *Env) int { return 0 }); err != nil {
			t.Fatal(err)
		}
	}

	settle(t, env, func() bool { return sys.Allocator().Outstanding() == baseline })
}

func TestReaperSurvivesBursts(t *testing.T) {
	sys, env := boot(t, "fifo", 1, 0)
	baseline := sys.Allocator().Outstanding()

	for round := 0; round < 5; round++ {
		for i := 0; i < 8; i++ {
			h, err := env.Spawn("burst", func(e *Env) int {
				e.YieldNow()
				return 0
			})
			if err != nil {
				t.Fatal(err)
			}
			env.Join(h)
		}
		settle(t, env, func() bool { return sys.Allocator().Outstanding() == baseline })
	}
}
