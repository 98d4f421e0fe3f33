// Package session runs the charging simulation: one ticking goroutine per
// active session, keyed by EVSE id. Each tick advances a one-second
// progress counter, interpolates the vehicle state of charge and pushes it
// to the backing store. Completion fires the lifecycle stop transition
// exactly once; cancellation halts the ticker and leaves the state of
// charge at its last pushed value.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chargeflow/chargeflow/core/logger"
	"github.com/chargeflow/chargeflow/core/metrics"
	"github.com/chargeflow/chargeflow/core/model"
	"github.com/chargeflow/chargeflow/internal/eventbus"
)

// SoCWriter pushes a vehicle's state of charge to the backing store.
// Pushes are fire-and-forget: an error is recorded but never interrupts
// the session.
type SoCWriter interface {
	SetVehicleSoC(id string, soc float64) error
}

// Manager owns all running sessions and the presentation focus pointer.
type Manager struct {
	cfg  Config
	soc  SoCWriter
	bus  *eventbus.Bus[model.SessionSnapshot]
	sink metrics.Sink
	log  logger.Logger

	// OnComplete is invoked exactly once when a session reaches full
	// progress, after the final SoC push. The application wires it to the
	// lifecycle stop transition.
	OnComplete func(evseID string)

	mu       sync.RWMutex
	sessions map[string]*session
	focused  string
}

type session struct {
	id      string
	evse    model.EVSE
	vehicle model.Vehicle // snapshot at start; CurrentSoC is the start SoC
	total   int
	started time.Time
	done    chan struct{}

	mu        sync.Mutex
	progress  int
	cancelled bool
}

// NewManager creates a Manager. The bus may be nil when no presentation
// layer is attached; the sink may be nil to disable observability.
func NewManager(cfg Config, soc SoCWriter, bus *eventbus.Bus[model.SessionSnapshot], sink metrics.Sink, log logger.Logger) *Manager {
	cfg.SetDefaults()
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Manager{
		cfg:      cfg,
		soc:      soc,
		bus:      bus,
		sink:     sink,
		log:      log,
		sessions: map[string]*session{},
	}
}

// Start spawns a ticking session for the EVSE. totalSec <= 0 selects the
// configured default duration. At most one session may exist per EVSE.
func (m *Manager) Start(evse model.EVSE, v model.Vehicle, totalSec int) (model.SessionSnapshot, error) {
	if totalSec <= 0 {
		totalSec = m.cfg.DefaultDurationSec
	}
	s := &session{
		id:      uuid.NewString(),
		evse:    evse,
		vehicle: v,
		total:   totalSec,
		started: time.Now(),
		done:    make(chan struct{}),
	}

	m.mu.Lock()
	if _, exists := m.sessions[evse.ID]; exists {
		m.mu.Unlock()
		return model.SessionSnapshot{}, fmt.Errorf("session already active for evse %s", evse.ID)
	}
	m.sessions[evse.ID] = s
	m.mu.Unlock()

	if err := m.sink.RecordSessionStart(metrics.SessionStartEvent{
		EVSEID: evse.ID, EVID: v.ID, TotalSec: totalSec, Time: s.started,
	}); err != nil {
		m.log.Warnf("record session start: %v", err)
	}
	m.log.Infof("session %s started: evse=%s ev=%s total=%ds", s.id, evse.ID, v.ID, totalSec)

	go m.run(s)
	return s.snapshot(0), nil
}

// Cancel halts the session for the EVSE, if any. No further ticks are
// observed after Cancel returns and the stop transition is not fired.
// It reports whether a session was cancelled.
func (m *Manager) Cancel(evseID string) bool {
	m.mu.Lock()
	s, ok := m.sessions[evseID]
	if !ok {
		m.mu.Unlock()
		return false
	}
	delete(m.sessions, evseID)
	if m.focused == evseID {
		m.focused = ""
	}
	m.mu.Unlock()

	s.mu.Lock()
	s.cancelled = true
	progress := s.progress
	s.mu.Unlock()
	close(s.done)

	if err := m.sink.RecordSessionEnd(metrics.SessionEndEvent{
		EVSEID:    evseID,
		EVID:      s.vehicle.ID,
		Completed: false,
		Duration:  time.Since(s.started),
		FinalSoC:  s.socAt(progress),
		Time:      time.Now(),
	}); err != nil {
		m.log.Warnf("record session end: %v", err)
	}
	m.log.Infof("session %s cancelled at %d/%ds", s.id, progress, s.total)
	return true
}

// Snapshot returns the live state of the session for the EVSE.
func (m *Manager) Snapshot(evseID string) (model.SessionSnapshot, bool) {
	m.mu.RLock()
	s, ok := m.sessions[evseID]
	m.mu.RUnlock()
	if !ok {
		return model.SessionSnapshot{}, false
	}
	s.mu.Lock()
	progress := s.progress
	s.mu.Unlock()
	return s.snapshot(progress), true
}

// List returns a snapshot of every active session.
func (m *Manager) List() []model.SessionSnapshot {
	m.mu.RLock()
	sessions := make([]*session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	out := make([]model.SessionSnapshot, 0, len(sessions))
	for _, s := range sessions {
		s.mu.Lock()
		progress := s.progress
		s.mu.Unlock()
		out = append(out, s.snapshot(progress))
	}
	return out
}

// Active reports whether the EVSE currently holds a session.
func (m *Manager) Active(evseID string) bool {
	m.mu.RLock()
	_, ok := m.sessions[evseID]
	m.mu.RUnlock()
	return ok
}

// Focus marks the session whose snapshots are forwarded to the
// presentation bus. It is a lookup key, not an owner: focusing or blurring
// never alters tick cadence or SoC pushes.
func (m *Manager) Focus(evseID string) {
	m.mu.Lock()
	m.focused = evseID
	m.mu.Unlock()
}

// Blur clears the focus pointer.
func (m *Manager) Blur() {
	m.mu.Lock()
	m.focused = ""
	m.mu.Unlock()
}

// Focused returns the currently focused EVSE id, empty when none.
func (m *Manager) Focused() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.focused
}

func (m *Manager) run(s *session) {
	ticker := time.NewTicker(m.cfg.TickInterval())
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			finished, ok := m.tick(s)
			if !ok {
				return
			}
			if finished {
				m.finish(s)
				return
			}
		}
	}
}

// tick advances progress by one second and pushes the interpolated SoC.
// The returned ok is false when the session was cancelled before the tick
// body ran. The SoC push happens outside the progress lock so cancellation
// never waits on I/O.
func (m *Manager) tick(s *session) (finished, ok bool) {
	s.mu.Lock()
	if s.cancelled {
		s.mu.Unlock()
		return false, false
	}
	s.progress++
	progress := s.progress
	s.mu.Unlock()

	soc := s.socAt(progress)
	if err := m.soc.SetVehicleSoC(s.vehicle.ID, soc); err != nil {
		m.log.Warnf("soc push for %s failed: %v", s.vehicle.ID, err)
		if serr := m.sink.RecordSoCPushFailure(s.vehicle.ID); serr != nil {
			m.log.Warnf("record soc push failure: %v", serr)
		}
	}

	m.log.Debugf("session %s tick %d/%d soc=%.1f", s.id, progress, s.total, soc)

	snap := s.snapshot(progress)
	if err := m.sink.RecordSessionTick(metrics.SessionTickEvent{
		EVSEID:      s.evse.ID,
		EVID:        s.vehicle.ID,
		ProgressSec: progress,
		TotalSec:    s.total,
		SoC:         soc,
		Time:        time.Now(),
	}); err != nil {
		m.log.Warnf("record session tick: %v", err)
	}
	if m.bus != nil && m.Focused() == s.evse.ID {
		m.bus.Publish(snap)
	}
	return progress >= s.total, true
}

// finish removes the session and fires the stop transition. Removal from
// the map is the arbiter between completion and a concurrent Cancel, so
// the stop transition cannot double-fire.
func (m *Manager) finish(s *session) {
	m.mu.Lock()
	cur, ok := m.sessions[s.evse.ID]
	if !ok || cur != s {
		m.mu.Unlock()
		return
	}
	delete(m.sessions, s.evse.ID)
	if m.focused == s.evse.ID {
		m.focused = ""
	}
	m.mu.Unlock()

	if err := m.sink.RecordSessionEnd(metrics.SessionEndEvent{
		EVSEID:    s.evse.ID,
		EVID:      s.vehicle.ID,
		Completed: true,
		Duration:  time.Since(s.started),
		FinalSoC:  s.vehicle.TargetSoC,
		Time:      time.Now(),
	}); err != nil {
		m.log.Warnf("record session end: %v", err)
	}
	m.log.Infof("session %s completed: evse=%s ev=%s", s.id, s.evse.ID, s.vehicle.ID)
	if m.OnComplete != nil {
		m.OnComplete(s.evse.ID)
	}
}

// socAt interpolates the SoC linearly between the start and target values.
func (s *session) socAt(progress int) float64 {
	p := float64(progress) / float64(s.total)
	if p > 1 {
		p = 1
	}
	return s.vehicle.CurrentSoC + (s.vehicle.TargetSoC-s.vehicle.CurrentSoC)*p
}

func (s *session) snapshot(progress int) model.SessionSnapshot {
	return model.SessionSnapshot{
		EVSE:        s.evse,
		Vehicle:     s.vehicle,
		ProgressSec: progress,
		TotalSec:    s.total,
		SoC:         s.socAt(progress),
	}
}
