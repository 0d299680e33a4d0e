// internal/hal/stack.go

package hal

import (
	"fmt"
	"sync"
)

// StackRegion is the stack memory owned by one task. Goroutine stacks are
// managed by the runtime underneath, so the region backs the task's
// bookkeeping; acquire/release accounting still governs reclamation.
type StackRegion struct {
	buf []byte
}

// Size reports the region's size in bytes. Zero after release.
func (r *StackRegion) Size() int {
	return len(r.buf)
}

// StackAllocator is the contract the scheduling core consumes for task
// stacks. Outstanding makes reclamation observable, so leaks show up in
// accounting rather than silently.
type StackAllocator interface {
	Acquire(size int) (*StackRegion, error)
	Release(r *StackRegion)
	Outstanding() int
}

var _ StackAllocator = (*CountingAllocator)(nil)

// CountingAllocator is the default StackAllocator. It tracks outstanding
// bytes so leaks are observable; releasing a region twice is a fatal
// programming error.
type CountingAllocator struct {
	mu          sync.Mutex
	outstanding int
}

func NewCountingAllocator() *CountingAllocator {
	return &CountingAllocator{}
}

func (a *CountingAllocator) Acquire(size int) (*StackRegion, error) {
	if size <= 0 {
		return nil, fmt.Errorf("hal: stack size %d out of range", size)
	}
	a.mu.Lock()
	a.outstanding += size
	a.mu.Unlock()
	return &StackRegion{buf: make([]byte, size)}, nil
}

func (a *CountingAllocator) Release(r *StackRegion) {
	if r == nil {
		return
	}
	if r.buf == nil {
		panic("hal: double release of stack region")
	}
	a.mu.Lock()
	a.outstanding -= len(r.buf)
	a.mu.Unlock()
	r.buf = nil
}

// Outstanding returns the number of bytes currently acquired and not yet
// released.
func (a *CountingAllocator) Outstanding() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.outstanding
}
