package metrics

import "errors"

// MultiSink fans events out to several sinks and joins their errors.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink combines the given sinks into one.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (m *MultiSink) RecordTransition(ev TransitionEvent) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.RecordTransition(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordSessionStart(ev SessionStartEvent) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.RecordSessionStart(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordSessionTick(ev SessionTickEvent) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.RecordSessionTick(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordSessionEnd(ev SessionEndEvent) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.RecordSessionEnd(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordSoCPushFailure(evID string) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.RecordSoCPushFailure(evID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
