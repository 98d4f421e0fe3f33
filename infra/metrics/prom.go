package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/chargeflow/chargeflow/core/metrics"
)

// PromSink records lifecycle and session events in Prometheus metrics.
type PromSink struct {
	transitions *prometheus.CounterVec
	sessions    prometheus.Gauge
	durations   prometheus.Histogram
	socFailures prometheus.Counter
}

// NewPromSink registers coordinator metrics on the default Prometheus
// registerer. The Prometheus server is started separately.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "evse_transitions_total",
		Help: "Total number of lifecycle transitions by operation and outcome",
	}, []string{"operation", "accepted"})
	sessions := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "charging_sessions_active",
		Help: "Number of charging sessions currently ticking",
	})
	durations := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "charging_session_duration_seconds",
		Help:    "Wall-clock duration of finished charging sessions",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	})
	socFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "soc_push_failures_total",
		Help: "Number of state-of-charge pushes that failed",
	})

	if err := reg.Register(transitions); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			transitions = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(sessions); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			sessions = are.ExistingCollector.(prometheus.Gauge)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(durations); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			durations = are.ExistingCollector.(prometheus.Histogram)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(socFailures); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			socFailures = are.ExistingCollector.(prometheus.Counter)
		} else {
			return nil, err
		}
	}

	return &PromSink{
		transitions: transitions,
		sessions:    sessions,
		durations:   durations,
		socFailures: socFailures,
	}, nil
}

// RecordTransition counts the operation by outcome.
func (s *PromSink) RecordTransition(ev coremetrics.TransitionEvent) error {
	s.transitions.WithLabelValues(ev.Operation, strconv.FormatBool(ev.Accepted)).Inc()
	return nil
}

// RecordSessionStart bumps the active session gauge.
func (s *PromSink) RecordSessionStart(coremetrics.SessionStartEvent) error {
	s.sessions.Inc()
	return nil
}

// RecordSessionTick is a no-op for Prometheus; per-tick samples go to the
// time-series sink instead.
func (s *PromSink) RecordSessionTick(coremetrics.SessionTickEvent) error { return nil }

// RecordSessionEnd drops the gauge and observes the session duration.
func (s *PromSink) RecordSessionEnd(ev coremetrics.SessionEndEvent) error {
	s.sessions.Dec()
	s.durations.Observe(ev.Duration.Seconds())
	return nil
}

// RecordSoCPushFailure counts a failed state-of-charge push.
func (s *PromSink) RecordSoCPushFailure(string) error {
	s.socFailures.Inc()
	return nil
}
