// internal/hal/interrupt.go

package hal

import "sync"

// IRQLine models local interrupt control for one scheduling domain. While a
// caller holds the line disabled, the tick dispatcher for that domain cannot
// deliver an interrupt, so the run queue uses the line as its lock: taking it
// both serializes mutation and masks the clock interrupt.
//
// Disable is not reentrant from the same goroutine.
type IRQLine struct {
	mu sync.Mutex
}

// IRQToken restores a previous Disable. Tokens must be restored exactly once.
type IRQToken struct {
	line *IRQLine
}

// Disable masks interrupts on this line and returns the restore token.
func (l *IRQLine) Disable() IRQToken {
	l.mu.Lock()
	return IRQToken{line: l}
}

// Restore re-enables the line.
func (t IRQToken) Restore() {
	t.line.mu.Unlock()
}
