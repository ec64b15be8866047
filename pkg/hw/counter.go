package hw

// Handler is an interrupt service routine bound to one interrupt line.
// Handlers run synchronously at the tick that raises the interrupt and must
// not block.
type Handler func()

// Counter models the register surface of a 16-bit counter/compare peripheral:
// a free-running 16-bit counter, a 16-bit compare register with a match
// interrupt, and an overflow interrupt raised when the counter rolls from
// 65535 to 0. The exact register layout is chip-specific; consumers depend
// only on this surface.
type Counter interface {
	// Read returns the live counter value. Non-blocking, never fails,
	// callable from any context including interrupt handlers.
	Read() uint16

	// ArmCompare programs the compare register and enables the match
	// interrupt. A previously armed value is fully superseded.
	ArmCompare(value uint16)

	// DisarmCompare disables the match interrupt. Idempotent. The compare
	// register keeps its last value.
	DisarmCompare()

	// OverflowPending reports whether an overflow has been raised and not
	// yet acknowledged.
	OverflowPending() bool

	// AckOverflow clears the overflow flag. Idempotent.
	AckOverflow()

	// ComparePending reports whether a compare match has been raised and
	// not yet acknowledged.
	ComparePending() bool

	// AckCompare clears the compare match flag. Idempotent.
	AckCompare()

	// BindOverflow attaches the overflow interrupt handler. Must be called
	// before the counter starts ticking.
	BindOverflow(h Handler)

	// BindCompare attaches the compare match interrupt handler. Must be
	// called before the counter starts ticking.
	BindCompare(h Handler)

	// Reset zeroes the counter. Called once at initialization, before any
	// handler can fire.
	Reset()
}
