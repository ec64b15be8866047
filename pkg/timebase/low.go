package timebase

import "github.com/BYTE-6D65/timebase/pkg/hw"

// LowCounter wraps the 16-bit free-running counter/compare peripheral that
// produces the low half of time. It raises an overflow interrupt once per
// 65536 ticks and owns the single hardware compare channel. All operations
// are direct register accesses; none can fail.
type LowCounter struct {
	ctr hw.Counter
}

// NewLowCounter wraps the peripheral. The counter keeps whatever count it
// has; Reset positions it for a fresh timeline.
func NewLowCounter(ctr hw.Counter) *LowCounter {
	return &LowCounter{ctr: ctr}
}

// Read returns the live counter value.
func (l *LowCounter) Read() uint16 {
	return l.ctr.Read()
}

// ArmCompare programs the low 16 bits of the next wake target into the
// compare register and enables the match interrupt.
func (l *LowCounter) ArmCompare(value uint16) {
	l.ctr.ArmCompare(value)
}

// DisarmCompare disables the match interrupt.
func (l *LowCounter) DisarmCompare() {
	l.ctr.DisarmCompare()
}

// OverflowPending reports whether an overflow is latched and unacknowledged.
// While this is true a carry increment is still in flight.
func (l *LowCounter) OverflowPending() bool {
	return l.ctr.OverflowPending()
}

// AckOverflow clears the latched overflow condition.
func (l *LowCounter) AckOverflow() {
	l.ctr.AckOverflow()
}

// ComparePending reports whether a compare match is latched and
// unacknowledged.
func (l *LowCounter) ComparePending() bool {
	return l.ctr.ComparePending()
}

// AckCompare clears the latched compare match.
func (l *LowCounter) AckCompare() {
	l.ctr.AckCompare()
}

// BindOverflow attaches the overflow interrupt handler.
func (l *LowCounter) BindOverflow(h hw.Handler) {
	l.ctr.BindOverflow(h)
}

// BindCompare attaches the compare match interrupt handler.
func (l *LowCounter) BindCompare(h hw.Handler) {
	l.ctr.BindCompare(h)
}

// Reset zeroes the counter.
func (l *LowCounter) Reset() {
	l.ctr.Reset()
}
