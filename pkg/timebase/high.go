package timebase

import "sync/atomic"

// HighCounter is the software carry counter holding the upper 16 bits of
// time. It is incremented exactly once per LowCounter overflow, from the
// overflow interrupt handler, and read from anywhere. A double or missed
// increment breaks monotonicity irrecoverably, so the only writer is the
// handler that also clears the overflow condition.
type HighCounter struct {
	word atomic.Uint32 // low 16 bits significant
}

// NewHighCounter creates a carry counter at zero.
func NewHighCounter() *HighCounter {
	return &HighCounter{}
}

// Read returns the current high word.
func (h *HighCounter) Read() uint16 {
	return uint16(h.word.Load())
}

// Increment advances the high word by one, wrapping at 16 bits. Call only
// from the overflow interrupt handler.
func (h *HighCounter) Increment() {
	for {
		old := h.word.Load()
		if h.word.CompareAndSwap(old, (old+1)&0xFFFF) {
			return
		}
	}
}

// Reset zeroes the high word. Called once at clock initialization.
func (h *HighCounter) Reset() {
	h.word.Store(0)
}
