package hw

import "sync/atomic"

// SimTimer is a deterministic in-memory implementation of Counter, driven by
// explicit Tick/Advance calls instead of a hardware clock. Interrupt handlers
// run synchronously inside the tick that raises them, so interrupt latency is
// zero and an overflow can never go unserviced for a full counter period.
//
// Counter state is held in atomics rather than behind a mutex: Read and the
// flag accessors stay safe from any goroutine while handlers re-program the
// compare register mid-tick, mirroring "readable from any context" register
// semantics.
type SimTimer struct {
	count        atomic.Uint32 // low 16 bits significant
	compare      atomic.Uint32
	compareArmed atomic.Bool
	overflowFlag atomic.Bool
	compareFlag  atomic.Bool

	onOverflow Handler
	onCompare  Handler

	ticks atomic.Uint64 // total ticks driven, for inspection
}

// NewSimTimer creates a stopped simulated counter at count zero.
func NewSimTimer() *SimTimer {
	return &SimTimer{}
}

// Read returns the live counter value.
func (t *SimTimer) Read() uint16 {
	return uint16(t.count.Load())
}

// ArmCompare programs the compare register and enables the match interrupt.
func (t *SimTimer) ArmCompare(value uint16) {
	t.compare.Store(uint32(value))
	t.compareArmed.Store(true)
}

// DisarmCompare disables the match interrupt.
func (t *SimTimer) DisarmCompare() {
	t.compareArmed.Store(false)
}

// OverflowPending reports whether an unacknowledged overflow is latched.
func (t *SimTimer) OverflowPending() bool {
	return t.overflowFlag.Load()
}

// AckOverflow clears the overflow flag.
func (t *SimTimer) AckOverflow() {
	t.overflowFlag.Store(false)
}

// ComparePending reports whether an unacknowledged compare match is latched.
func (t *SimTimer) ComparePending() bool {
	return t.compareFlag.Load()
}

// AckCompare clears the compare match flag.
func (t *SimTimer) AckCompare() {
	t.compareFlag.Store(false)
}

// BindOverflow attaches the overflow handler.
func (t *SimTimer) BindOverflow(h Handler) {
	t.onOverflow = h
}

// BindCompare attaches the compare match handler.
func (t *SimTimer) BindCompare(h Handler) {
	t.onCompare = h
}

// Reset zeroes the counter without raising an overflow.
func (t *SimTimer) Reset() {
	t.count.Store(0)
}

// Preset positions the counter at an arbitrary value without ticking.
// Test hook; hardware only ever resets to zero.
func (t *SimTimer) Preset(value uint16) {
	t.count.Store(uint32(value))
}

// Tick advances the counter by one. On the 65535 -> 0 rollover it latches the
// overflow flag and runs the overflow handler; if the new count equals an
// armed compare value it latches the compare flag and runs the compare
// handler. The overflow handler runs first, so a handler that re-programs the
// compare register during the rollover tick is still matched against the new
// count.
func (t *SimTimer) Tick() {
	next := (t.count.Load() + 1) & 0xFFFF
	if next == 0 {
		// Latch before the wrapped count becomes visible, so a reader that
		// sees the zero also sees the pending overflow.
		t.overflowFlag.Store(true)
	}
	t.count.Store(next)
	t.ticks.Add(1)

	if next == 0 {
		if t.onOverflow != nil {
			t.onOverflow()
		}
	}

	if t.compareArmed.Load() && next == t.compare.Load() {
		t.compareFlag.Store(true)
		if t.onCompare != nil {
			t.onCompare()
		}
	}
}

// Advance drives n ticks.
func (t *SimTimer) Advance(n uint32) {
	for i := uint32(0); i < n; i++ {
		t.Tick()
	}
}

// Ticks returns the total number of ticks driven since creation.
func (t *SimTimer) Ticks() uint64 {
	return t.ticks.Load()
}
