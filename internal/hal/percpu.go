// internal/hal/percpu.go

package hal

// PerCPU is a fixed-size array of CPU-local slots, one per scheduling
// domain. Slots are written during boot and read-only afterwards, so access
// needs no synchronization.
type PerCPU[T any] struct {
	slots []T
}

func NewPerCPU[T any](ncpu int) *PerCPU[T] {
	return &PerCPU[T]{slots: make([]T, ncpu)}
}

func (p *PerCPU[T]) Get(cpu int) T {
	return p.slots[cpu]
}

func (p *PerCPU[T]) Set(cpu int, v T) {
	p.slots[cpu] = v
}

// Len returns the number of CPUs.
func (p *PerCPU[T]) Len() int {
	return len(p.slots)
}
