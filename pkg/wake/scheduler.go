package wake

import (
	"context"
	"sync"

	"github.com/BYTE-6D65/timebase/pkg/telemetry"
	"github.com/BYTE-6D65/timebase/pkg/timebase"
	"github.com/google/uuid"
)

// Deadline is one registered wake request.
type Deadline struct {
	ID uuid.UUID
	At timebase.Instant
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithBus attaches a bus on which fired wakes are published.
func WithBus(bus Bus) SchedulerOption {
	return func(s *Scheduler) { s.bus = bus }
}

// WithCodec overrides the payload codec used for published events.
func WithCodec(codec Codec) SchedulerOption {
	return func(s *Scheduler) { s.codec = codec }
}

// WithMetrics overrides the metrics instance used by the scheduler.
func WithMetrics(m *telemetry.Metrics) SchedulerOption {
	return func(s *Scheduler) { s.metrics = m }
}

// Scheduler multiplexes any number of absolute wake deadlines onto the
// clock's single compare channel by always keeping the nearest one armed.
// When the channel fires it delivers every deadline that has come due,
// publishes a wake.fired event per deadline, and re-arms the next.
type Scheduler struct {
	mu      sync.Mutex
	clk     *timebase.Clock
	pending []Deadline // ascending by At

	bus     Bus
	codec   Codec
	metrics *telemetry.Metrics
}

// NewScheduler wires a scheduler to the clock's wake callback.
func NewScheduler(clk *timebase.Clock, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		clk:   clk,
		codec: JSONCodec{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = telemetry.Default()
	}
	clk.SetWakeFunc(s.onWake)
	return s
}

// Schedule registers a wake at the given absolute instant and returns its ID.
// A deadline at or before the current time is delivered immediately through
// the clock's synthetic fire path.
func (s *Scheduler) Schedule(at timebase.Instant) uuid.UUID {
	id := uuid.New()

	s.mu.Lock()
	s.insertLocked(Deadline{ID: id, At: at})
	rearm := s.pending[0].ID == id
	depth := len(s.pending)
	s.mu.Unlock()

	s.metrics.WakesScheduled.Inc()
	s.metrics.QueueDepth.Set(float64(depth))

	if rearm {
		// May deliver synchronously if the deadline is already due.
		s.clk.SetCompare(at)
	}
	return id
}

// Cancel removes a pending deadline. It reports whether the deadline was
// still pending. Cancelling the armed deadline re-arms the next one, or
// clears the channel when none remain.
func (s *Scheduler) Cancel(id uuid.UUID) bool {
	s.mu.Lock()
	idx := -1
	for i, d := range s.pending {
		if d.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	wasHead := idx == 0
	s.pending = append(s.pending[:idx], s.pending[idx+1:]...)
	var next *Deadline
	if wasHead && len(s.pending) > 0 {
		n := s.pending[0]
		next = &n
	}
	depth := len(s.pending)
	s.mu.Unlock()

	s.metrics.WakesCancelled.Inc()
	s.metrics.QueueDepth.Set(float64(depth))

	if wasHead {
		if next != nil {
			s.clk.SetCompare(next.At)
		} else {
			s.clk.ClearCompare()
		}
	}
	return true
}

// Pending returns the number of registered deadlines.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Next returns the nearest pending deadline, if any.
func (s *Scheduler) Next() (Deadline, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		return Deadline{}, false
	}
	return s.pending[0], true
}

// onWake runs when the clock's compare channel fires. It pops everything due
// at the current reading, publishes the wakes, then arms the next deadline.
// Arming may deliver synchronously and re-enter onWake, which is safe because
// the lock is not held across clock calls.
func (s *Scheduler) onWake(target timebase.Instant, synthetic bool) {
	now := s.clk.Now()

	s.mu.Lock()
	var due []Deadline
	for len(s.pending) > 0 && uint32(s.pending[0].At) <= uint32(now) {
		due = append(due, s.pending[0])
		s.pending = s.pending[1:]
	}
	var next *Deadline
	if len(s.pending) > 0 {
		n := s.pending[0]
		next = &n
	}
	depth := len(s.pending)
	s.mu.Unlock()

	for _, d := range due {
		s.metrics.WakesDelivered.Inc()
		s.publishFired(d, now, synthetic)
	}
	s.metrics.QueueDepth.Set(float64(depth))

	if next != nil {
		s.clk.SetCompare(next.At)
	}
}

// publishFired emits a wake.fired event for one delivered deadline.
func (s *Scheduler) publishFired(d Deadline, firedAt timebase.Instant, synthetic bool) {
	if s.bus == nil {
		return
	}
	evt, err := NewEvent(TypeFired, "wake.scheduler", Payload{
		DeadlineID: d.ID.String(),
		Deadline:   uint32(d.At),
		FiredAt:    uint32(firedAt),
		Synthetic:  synthetic,
	}, s.codec)
	if err != nil {
		return
	}
	// Delivery is best-effort; a closed bus only means nobody is listening.
	_ = s.bus.Publish(context.Background(), *evt)
}

// insertLocked places d into the pending slice, keeping ascending deadline
// order and stable ordering among equal deadlines.
func (s *Scheduler) insertLocked(d Deadline) {
	idx := len(s.pending)
	for i, p := range s.pending {
		if uint32(d.At) < uint32(p.At) {
			idx = i
			break
		}
	}
	s.pending = append(s.pending, Deadline{})
	copy(s.pending[idx+1:], s.pending[idx:])
	s.pending[idx] = d
}
