package metrics

import (
	"errors"
	"testing"
	"time"
)

type countingSink struct {
	NopSink
	transitions int
}

func (c *countingSink) RecordTransition(TransitionEvent) error {
	c.transitions++
	return nil
}

type failingSink struct {
	NopSink
}

func (failingSink) RecordTransition(TransitionEvent) error {
	return errors.New("sink down")
}

func TestMultiSinkFansOut(t *testing.T) {
	a, b := &countingSink{}, &countingSink{}
	m := NewMultiSink(a, b)
	if err := m.RecordTransition(TransitionEvent{Time: time.Now()}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if a.transitions != 1 || b.transitions != 1 {
		t.Errorf("transitions = %d, %d", a.transitions, b.transitions)
	}
}

func TestMultiSinkKeepsGoingOnError(t *testing.T) {
	c := &countingSink{}
	m := NewMultiSink(failingSink{}, c)
	err := m.RecordTransition(TransitionEvent{Time: time.Now()})
	if err == nil {
		t.Fatal("expected joined error")
	}
	if c.transitions != 1 {
		t.Errorf("healthy sink skipped, transitions = %d", c.transitions)
	}
}
