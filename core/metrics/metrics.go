package metrics

import (
	"time"

	"github.com/chargeflow/chargeflow/core/model"
)

// TransitionEvent records one lifecycle operation against an EVSE.
type TransitionEvent struct {
	EVSEID    string
	Operation string
	From      model.Status
	To        model.Status
	Accepted  bool
	Reason    string
	Time      time.Time
}

// SessionTickEvent is a per-tick sample of a charging session.
type SessionTickEvent struct {
	EVSEID      string
	EVID        string
	ProgressSec int
	TotalSec    int
	SoC         float64
	Time        time.Time
}

// SessionStartEvent records the creation of a charging session.
type SessionStartEvent struct {
	EVSEID   string
	EVID     string
	TotalSec int
	Time     time.Time
}

// SessionEndEvent records the end of a session, completed or cancelled.
type SessionEndEvent struct {
	EVSEID    string
	EVID      string
	Completed bool
	Duration  time.Duration
	FinalSoC  float64
	Time      time.Time
}

// Sink records coordinator events for observability purposes.
type Sink interface {
	RecordTransition(ev TransitionEvent) error
	RecordSessionStart(ev SessionStartEvent) error
	RecordSessionTick(ev SessionTickEvent) error
	RecordSessionEnd(ev SessionEndEvent) error
	RecordSoCPushFailure(evID string) error
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) RecordTransition(TransitionEvent) error     { return nil }
func (NopSink) RecordSessionStart(SessionStartEvent) error { return nil }
func (NopSink) RecordSessionTick(SessionTickEvent) error   { return nil }
func (NopSink) RecordSessionEnd(SessionEndEvent) error     { return nil }
func (NopSink) RecordSoCPushFailure(string) error          { return nil }
