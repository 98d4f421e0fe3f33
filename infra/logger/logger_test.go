package logger

import "testing"

func TestNewReturnsLogger(t *testing.T) {
	l := New("test")
	if l == nil {
		t.Fatal("nil logger")
	}
	// Smoke the formatting paths.
	l.Debugf("debug %d", 1)
	l.Infof("info %s", "x")
	l.Warnf("warn")
	l.Errorf("error: %v", nil)
}

func TestNopLoggerIsSilent(t *testing.T) {
	var l Logger = NopLogger{}
	l.Infof("ignored")
	l.Debugf("ignored %d", 1)
}
