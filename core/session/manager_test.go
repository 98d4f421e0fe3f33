package session

import (
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/chargeflow/chargeflow/core/metrics"
	"github.com/chargeflow/chargeflow/core/model"
	"github.com/chargeflow/chargeflow/infra/logger"
	"github.com/chargeflow/chargeflow/internal/eventbus"
)

type recordingSoC struct{}

func (recordingSoC) SetVehicleSoC(string, float64) error { return nil }

type failingSoC struct{}

func (failingSoC) SetVehicleSoC(string, float64) error {
	return errors.New("backend unreachable")
}

type failureCountingSink struct {
	metrics.NopSink
	failures atomic.Int32
}

func (s *failureCountingSink) RecordSoCPushFailure(string) error {
	s.failures.Add(1)
	return nil
}

type capturingSoC struct {
	mu     sync.Mutex
	pushes map[string][]float64
}

func newCapturingSoC() *capturingSoC {
	return &capturingSoC{pushes: map[string][]float64{}}
}

func (c *capturingSoC) SetVehicleSoC(id string, soc float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pushes[id] = append(c.pushes[id], soc)
	return nil
}

func (c *capturingSoC) count(id string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pushes[id])
}

func (c *capturingSoC) at(id string, i int) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pushes[id][i]
}

func testEVSE() model.EVSE {
	return model.EVSE{ID: "evse-1", Name: "CaddeBostan DC", MaxPowerKW: 50, Status: model.StatusOccupied}
}

func testVehicle() model.Vehicle {
	return model.Vehicle{ID: "EV-002", BatteryKWh: 45, CurrentSoC: 40, TargetSoC: 90}
}

func newTestManager(soc SoCWriter) *Manager {
	return NewManager(Config{TickIntervalMS: 1}, soc, nil, nil, logger.NopLogger{})
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestSessionInterpolatesAndCompletes(t *testing.T) {
	soc := newCapturingSoC()
	m := newTestManager(soc)
	var completions atomic.Int32
	m.OnComplete = func(string) { completions.Add(1) }

	_, err := m.Start(testEVSE(), testVehicle(), 60)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	waitFor(t, 5*time.Second, func() bool { return completions.Load() == 1 })

	if n := soc.count("EV-002"); n != 60 {
		t.Fatalf("pushes = %d, want 60", n)
	}
	// Halfway through a 40 to 90 percent charge.
	if got := soc.at("EV-002", 29); math.Abs(got-65) > 1e-9 {
		t.Errorf("soc at tick 30 = %v, want 65", got)
	}
	if got := soc.at("EV-002", 59); got != 90 {
		t.Errorf("final soc = %v, want 90", got)
	}
	if m.Active("evse-1") {
		t.Error("session still active after completion")
	}

	// Completion fires exactly once; a late cancel finds nothing.
	if m.Cancel("evse-1") {
		t.Error("cancel after completion should be a no-op")
	}
	if completions.Load() != 1 {
		t.Errorf("completions = %d", completions.Load())
	}
}

func TestFailedPushNeverStallsTicking(t *testing.T) {
	sink := &failureCountingSink{}
	m := NewManager(Config{TickIntervalMS: 1}, failingSoC{}, nil, sink, logger.NopLogger{})
	var completions atomic.Int32
	m.OnComplete = func(string) { completions.Add(1) }

	_, err := m.Start(testEVSE(), testVehicle(), 10)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	// Every push fails, yet the session ticks through to completion.
	waitFor(t, 5*time.Second, func() bool { return completions.Load() == 1 })

	if got := sink.failures.Load(); got != 10 {
		t.Errorf("recorded failures = %d, want one per tick (10)", got)
	}
	if m.Active("evse-1") {
		t.Error("session still active after completion")
	}
}

func TestCancelStopsPushes(t *testing.T) {
	soc := newCapturingSoC()
	m := newTestManager(soc)
	var completions atomic.Int32
	m.OnComplete = func(string) { completions.Add(1) }

	_, err := m.Start(testEVSE(), testVehicle(), 100000)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	waitFor(t, 5*time.Second, func() bool { return soc.count("EV-002") >= 5 })

	if !m.Cancel("evse-1") {
		t.Fatal("cancel failed")
	}
	n := soc.count("EV-002")
	time.Sleep(20 * time.Millisecond)
	if got := soc.count("EV-002"); got != n {
		t.Errorf("pushes after cancel: %d -> %d", n, got)
	}
	if completions.Load() != 0 {
		t.Error("stop fired for a cancelled session")
	}
	if m.Active("evse-1") {
		t.Error("session still active after cancel")
	}
}

func TestStartRejectsDuplicate(t *testing.T) {
	m := newTestManager(&recordingSoC{})
	if _, err := m.Start(testEVSE(), testVehicle(), 100000); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer m.Cancel("evse-1")
	if _, err := m.Start(testEVSE(), testVehicle(), 100000); err == nil {
		t.Fatal("expected duplicate session error")
	}
}

func TestStartUsesDefaultDuration(t *testing.T) {
	m := NewManager(Config{TickIntervalMS: 1, DefaultDurationSec: 42}, &recordingSoC{}, nil, nil, logger.NopLogger{})
	snap, err := m.Start(testEVSE(), testVehicle(), 0)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer m.Cancel("evse-1")
	if snap.TotalSec != 42 {
		t.Errorf("total = %d, want 42", snap.TotalSec)
	}
}

func TestFocusGatesBusForwarding(t *testing.T) {
	bus := eventbus.New[model.SessionSnapshot]()
	defer bus.Close()
	sub := bus.Subscribe()

	m := NewManager(Config{TickIntervalMS: 1}, &recordingSoC{}, bus, nil, logger.NopLogger{})
	if _, err := m.Start(testEVSE(), testVehicle(), 100000); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer m.Cancel("evse-1")

	// Unfocused sessions stay off the bus.
	select {
	case snap := <-sub:
		t.Fatalf("unexpected snapshot %+v", snap)
	case <-time.After(20 * time.Millisecond):
	}

	m.Focus("evse-1")
	select {
	case snap := <-sub:
		if snap.EVSE.ID != "evse-1" {
			t.Errorf("snapshot for %s", snap.EVSE.ID)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no snapshot after focus")
	}

	m.Blur()
	if m.Focused() != "" {
		t.Error("focus not cleared")
	}
}

func TestSnapshotAndList(t *testing.T) {
	m := newTestManager(&recordingSoC{})
	if _, err := m.Start(testEVSE(), testVehicle(), 100000); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer m.Cancel("evse-1")

	snap, ok := m.Snapshot("evse-1")
	if !ok {
		t.Fatal("missing snapshot")
	}
	if snap.TotalSec != 100000 || snap.Vehicle.ID != "EV-002" {
		t.Errorf("snapshot = %+v", snap)
	}
	if got := len(m.List()); got != 1 {
		t.Errorf("list len = %d", got)
	}
	if _, ok := m.Snapshot("missing"); ok {
		t.Error("snapshot for unknown evse")
	}
}

func TestCancelClearsFocus(t *testing.T) {
	m := newTestManager(&recordingSoC{})
	if _, err := m.Start(testEVSE(), testVehicle(), 100000); err != nil {
		t.Fatalf("start: %v", err)
	}
	m.Focus("evse-1")
	m.Cancel("evse-1")
	if m.Focused() != "" {
		t.Error("focus survived cancel")
	}
}
