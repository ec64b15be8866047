package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the timebase.
type Metrics struct {
	// Clock Metrics
	Overflows          prometheus.Counter
	CarryIncrements    prometheus.Counter
	NowRetries         prometheus.Counter
	CompareFires       *prometheus.CounterVec
	ComparesArmed      *prometheus.CounterVec
	ComparesCleared    prometheus.Counter
	ChannelTransitions *prometheus.CounterVec

	// Wake Scheduler Metrics
	WakesScheduled prometheus.Counter
	WakesDelivered prometheus.Counter
	WakesCancelled prometheus.Counter
	QueueDepth     prometheus.Gauge
}

var defaultMetrics *Metrics

// InitMetrics initializes the Prometheus metrics.
// This should be called once at startup before any metrics are recorded.
func InitMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		// Clock Metrics
		Overflows: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Name: "timebase_overflows_total",
				Help: "Total number of low counter overflow interrupts serviced",
			},
		),

		CarryIncrements: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Name: "timebase_carry_increments_total",
				Help: "Total number of high word carry increments (must track overflows exactly)",
			},
		),

		NowRetries: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Name: "timebase_now_retries_total",
				Help: "Number of times a time read retried because a carry was in flight",
			},
		),

		CompareFires: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "timebase_compare_fires_total",
				Help: "Compare channel fires by kind (hardware, synthetic, staging, spurious)",
			},
			[]string{"kind"},
		),

		ComparesArmed: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "timebase_compares_armed_total",
				Help: "Compare targets armed by phase (direct, staged)",
			},
			[]string{"phase"},
		),

		ComparesCleared: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Name: "timebase_compares_cleared_total",
				Help: "Total number of pending compare targets cancelled before firing",
			},
		),

		ChannelTransitions: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "timebase_channel_transitions_total",
				Help: "Compare channel state transitions",
			},
			[]string{"from", "to"},
		),

		// Wake Scheduler Metrics
		WakesScheduled: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Name: "timebase_wakes_scheduled_total",
				Help: "Total number of wake deadlines registered",
			},
		),

		WakesDelivered: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Name: "timebase_wakes_delivered_total",
				Help: "Total number of wake notifications delivered",
			},
		),

		WakesCancelled: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Name: "timebase_wakes_cancelled_total",
				Help: "Total number of wake deadlines cancelled before delivery",
			},
		),

		QueueDepth: promauto.With(registry).NewGauge(
			prometheus.GaugeOpts{
				Name: "timebase_wake_queue_depth",
				Help: "Current number of pending wake deadlines",
			},
		),
	}

	defaultMetrics = m
	return m
}

// Default returns the default metrics instance.
// If InitMetrics hasn't been called, it will initialize with the default registry.
func Default() *Metrics {
	if defaultMetrics == nil {
		return InitMetrics(nil)
	}
	return defaultMetrics
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer starting now.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Observe records the elapsed time in seconds to the given histogram.
func (t *Timer) Observe(histogram prometheus.Observer) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// Elapsed returns the time elapsed since the timer started.
func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}
