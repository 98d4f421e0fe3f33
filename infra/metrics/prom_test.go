package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	coremetrics "github.com/chargeflow/chargeflow/core/metrics"
	"github.com/chargeflow/chargeflow/core/model"
)

func newTestSink(t *testing.T) *PromSink {
	t.Helper()
	s, err := NewPromSinkWithRegistry(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("sink: %v", err)
	}
	return s
}

func TestPromSinkTransitions(t *testing.T) {
	s := newTestSink(t)
	if err := s.RecordTransition(coremetrics.TransitionEvent{
		EVSEID: "evse-1", Operation: "reserve",
		From: model.StatusAvailable, To: model.StatusReserved,
		Accepted: true, Time: time.Now(),
	}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := s.RecordTransition(coremetrics.TransitionEvent{
		EVSEID: "evse-1", Operation: "reserve",
		From: model.StatusReserved, To: model.StatusReserved,
		Accepted: false, Reason: "EVSE is not idle", Time: time.Now(),
	}); err != nil {
		t.Fatalf("record: %v", err)
	}

	if got := testutil.ToFloat64(s.transitions.WithLabelValues("reserve", "true")); got != 1 {
		t.Errorf("accepted count = %v", got)
	}
	if got := testutil.ToFloat64(s.transitions.WithLabelValues("reserve", "false")); got != 1 {
		t.Errorf("rejected count = %v", got)
	}
}

func TestPromSinkSessionGauge(t *testing.T) {
	s := newTestSink(t)
	start := coremetrics.SessionStartEvent{EVSEID: "evse-1", EVID: "EV-1", TotalSec: 60, Time: time.Now()}
	if err := s.RecordSessionStart(start); err != nil {
		t.Fatalf("start: %v", err)
	}
	if got := testutil.ToFloat64(s.sessions); got != 1 {
		t.Errorf("active sessions = %v", got)
	}
	end := coremetrics.SessionEndEvent{EVSEID: "evse-1", EVID: "EV-1", Completed: true, Duration: time.Minute, FinalSoC: 90, Time: time.Now()}
	if err := s.RecordSessionEnd(end); err != nil {
		t.Fatalf("end: %v", err)
	}
	if got := testutil.ToFloat64(s.sessions); got != 0 {
		t.Errorf("active sessions after end = %v", got)
	}
}

func TestPromSinkSoCFailures(t *testing.T) {
	s := newTestSink(t)
	if err := s.RecordSoCPushFailure("EV-1"); err != nil {
		t.Fatalf("record: %v", err)
	}
	if got := testutil.ToFloat64(s.socFailures); got != 1 {
		t.Errorf("failures = %v", got)
	}
}

func TestPromSinkDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewPromSinkWithRegistry(reg); err != nil {
		t.Fatalf("first: %v", err)
	}
	// Re-registering against the same registry reuses the collectors.
	if _, err := NewPromSinkWithRegistry(reg); err != nil {
		t.Fatalf("second: %v", err)
	}
}
