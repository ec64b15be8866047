package timebase

import (
	"fmt"
	"sync"

	"github.com/BYTE-6D65/timebase/pkg/hw"
	"github.com/BYTE-6D65/timebase/pkg/telemetry"
)

// stagingSentinel parks the comparator at zero while a target's high word is
// still in the future, so the match interrupt lands on the rollover tick and
// the channel gets a chance to re-evaluate the target.
const stagingSentinel uint16 = 0

// WakeFunc is invoked when a previously armed compare target is reached.
// synthetic is true when the target was already due at SetCompare time and no
// hardware match was involved. The callback runs outside the channel critical
// section and may call back into the clock.
type WakeFunc func(target Instant, synthetic bool)

// Option configures a Clock.
type Option func(*Clock)

// WithMetrics overrides the metrics instance used by the clock.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(c *Clock) { c.metrics = m }
}

// WithWakeFunc sets the compare-fired callback at construction.
func WithWakeFunc(fn WakeFunc) Option {
	return func(c *Clock) { c.wake = fn }
}

// Clock composes the 16-bit hardware counter and the software carry counter
// into a 32-bit monotonic time source with a single absolute-time compare
// channel.
//
// Now is lock-free and callable from any context, including the interrupt
// handlers. Channel state is mutated only under a short critical section that
// stands in for interrupt masking; no call blocks or sleeps.
type Clock struct {
	low  *LowCounter
	high *HighCounter

	mu     sync.Mutex // masks the compare channel against the handlers
	state  ChannelState
	target Instant

	wake    WakeFunc
	metrics *telemetry.Metrics
}

// New wraps the low counter peripheral, zeroes the timeline and binds the
// overflow and compare interrupt handlers. The counter must not be ticking
// yet when New is called.
func New(ctr hw.Counter, opts ...Option) *Clock {
	c := &Clock{
		low:   NewLowCounter(ctr),
		high:  NewHighCounter(),
		state: ChannelIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.metrics == nil {
		c.metrics = telemetry.Default()
	}

	c.low.BindOverflow(c.handleOverflow)
	c.low.BindCompare(c.handleCompare)
	c.low.Reset()
	c.high.Reset()
	return c
}

// SetWakeFunc replaces the compare-fired callback.
func (c *Clock) SetWakeFunc(fn WakeFunc) {
	c.mu.Lock()
	c.wake = fn
	c.mu.Unlock()
}

// Now returns a race-free snapshot of the 32-bit time. It reads the high
// word, the low counter, then the high word again; the pair is consistent
// only when both high reads agree and no carry is in flight. The loop settles
// in at most one extra pass per overflow, because a second overflow cannot
// occur within the few reads of one pass.
func (c *Clock) Now() Instant {
	for {
		h1 := c.high.Read()
		l := c.low.Read()
		if c.low.OverflowPending() {
			// The low counter has rolled over but the carry has not
			// landed yet. The handler clears the flag only after the
			// high word advances, so the next pass sees a settled pair.
			c.metrics.NowRetries.Inc()
			continue
		}
		h2 := c.high.Read()
		if h1 == h2 {
			return Compose(h2, l)
		}
		c.metrics.NowRetries.Inc()
	}
}

// SetCompare arms the compare channel to fire once Now() >= target. Any
// previously pending target is fully superseded. Because the hardware
// comparator is only 16 bits wide the arming is staged: targets in the
// current high-word epoch get the precise low-bit compare immediately,
// targets in a future epoch park on the staging sentinel until an overflow
// brings the epoch up to theirs. A target at or before the current time
// cannot be matched by hardware and is delivered synchronously instead of
// being missed.
//
// Exactly one notification is eventually delivered per target, no sooner
// than target and no more than one tick late, unless ClearCompare or a later
// SetCompare supersedes it first.
func (c *Clock) SetCompare(target Instant) {
	c.mu.Lock()

	if c.state != ChannelIdle {
		// Supersede the pending target silently.
		c.low.DisarmCompare()
		c.transitionLocked(ChannelIdle)
		c.metrics.ComparesCleared.Inc()
	}

	if uint32(target) <= uint32(c.Now()) {
		c.target = target
		c.transitionLocked(ChannelFired)
		c.transitionLocked(ChannelIdle)
		c.mu.Unlock()
		c.metrics.CompareFires.WithLabelValues("synthetic").Inc()
		c.notify(target, true)
		return
	}

	c.target = target
	if target.High() == c.high.Read() {
		c.transitionLocked(ChannelArmed)
		c.low.ArmCompare(target.Low())
		c.metrics.ComparesArmed.WithLabelValues("direct").Inc()
	} else {
		c.transitionLocked(ChannelStaged)
		c.low.ArmCompare(stagingSentinel)
		c.metrics.ComparesArmed.WithLabelValues("staged").Inc()
	}
	c.mu.Unlock()
}

// ClearCompare disarms the channel. No notification is delivered for the
// cancelled target. Idempotent; a compare interrupt already latched in
// hardware may still be observed afterwards and is discarded as stale.
func (c *Clock) ClearCompare() {
	c.mu.Lock()
	if c.state != ChannelIdle {
		c.transitionLocked(ChannelIdle)
		c.metrics.ComparesCleared.Inc()
	}
	c.low.DisarmCompare()
	c.mu.Unlock()
}

// ChannelState returns the current compare channel state.
func (c *Clock) ChannelState() ChannelState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// PendingTarget returns the pending compare target, if any.
func (c *Clock) PendingTarget() (Instant, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == ChannelStaged || c.state == ChannelArmed {
		return c.target, true
	}
	return 0, false
}

// handleOverflow services the low counter overflow interrupt: it propagates
// the carry into the high word, acknowledges the overflow, and re-evaluates a
// staged target against the new epoch. The carry must land before the
// overflow condition clears; Now relies on the pending flag to bridge that
// window.
func (c *Clock) handleOverflow() {
	c.high.Increment()
	c.low.AckOverflow()
	c.metrics.Overflows.Inc()
	c.metrics.CarryIncrements.Inc()

	c.mu.Lock()
	if c.state == ChannelStaged && c.target.High() == c.high.Read() {
		c.transitionLocked(ChannelArmed)
		c.low.ArmCompare(c.target.Low())
		c.metrics.ComparesArmed.WithLabelValues("direct").Inc()
	}
	c.mu.Unlock()
}

// handleCompare services the comparator match interrupt. Only an Armed
// channel delivers: a Staged channel matching on the staging sentinel is the
// expected rollover visit, anything else is a stale fire from a target that
// was cancelled or superseded after the match latched.
func (c *Clock) handleCompare() {
	c.low.AckCompare()

	c.mu.Lock()
	if c.state != ChannelArmed {
		kind := "spurious"
		if c.state == ChannelStaged {
			kind = "staging"
		}
		c.mu.Unlock()
		c.metrics.CompareFires.WithLabelValues(kind).Inc()
		return
	}

	target := c.target
	c.low.DisarmCompare()
	c.transitionLocked(ChannelFired)
	c.transitionLocked(ChannelIdle)
	c.mu.Unlock()

	c.metrics.CompareFires.WithLabelValues("hardware").Inc()
	c.notify(target, false)
}

func (c *Clock) notify(target Instant, synthetic bool) {
	c.mu.Lock()
	fn := c.wake
	c.mu.Unlock()
	if fn != nil {
		fn(target, synthetic)
	}
}

// transitionLocked moves the channel to next, enforcing the legality table.
// An illegal transition is a programming error in this package, not a
// runtime condition.
func (c *Clock) transitionLocked(next ChannelState) {
	if !c.state.CanTransition(next) {
		panic(fmt.Sprintf("compare channel: illegal transition %s -> %s", c.state, next))
	}
	c.metrics.ChannelTransitions.WithLabelValues(c.state.String(), next.String()).Inc()
	c.state = next
}
