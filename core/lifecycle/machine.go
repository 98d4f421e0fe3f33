// Package lifecycle enforces the EVSE status graph. Each transition runs
// under a short-lived per-EVSE lock and commits through a registry
// compare-and-set, so a concurrent operation on the same charge point
// observes either the prior or the posterior status, never a torn one.
package lifecycle

import (
	"fmt"
	"sync"
	"time"

	"github.com/chargeflow/chargeflow/core/estimate"
	"github.com/chargeflow/chargeflow/core/logger"
	"github.com/chargeflow/chargeflow/core/metrics"
	"github.com/chargeflow/chargeflow/core/model"
	"github.com/chargeflow/chargeflow/core/registry"
)

// Sessions is the charging simulator surface the machine drives.
type Sessions interface {
	Start(evse model.EVSE, v model.Vehicle, totalSec int) (model.SessionSnapshot, error)
	Cancel(evseID string) bool
	Active(evseID string) bool
}

// Machine owns all lifecycle transitions for the charge points in a
// registry.
type Machine struct {
	reg      registry.Registry
	sessions Sessions
	sink     metrics.Sink
	log      logger.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a Machine. The sink may be nil to disable observability.
func New(reg registry.Registry, sessions Sessions, sink metrics.Sink, log logger.Logger) *Machine {
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Machine{
		reg:      reg,
		sessions: sessions,
		sink:     sink,
		log:      log,
		locks:    map[string]*sync.Mutex{},
	}
}

// lockEVSE serialises transitions per charge point. Locks are never
// reclaimed; the registry is small and ids are stable.
func (m *Machine) lockEVSE(id string) func() {
	m.mu.Lock()
	l, ok := m.locks[id]
	if !ok {
		l = &sync.Mutex{}
		m.locks[id] = l
	}
	m.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// Connect brings a disconnected EVSE back to Available.
func (m *Machine) Connect(id string) (model.Status, error) {
	return m.simple(OpConnect, id)
}

// Disconnect takes the EVSE out of service and cancels any active session.
// The vehicle keeps the state of charge last pushed before the cancel.
func (m *Machine) Disconnect(id string) (model.Status, error) {
	defer m.lockEVSE(id)()
	e, err := m.reg.Get(id)
	if err != nil {
		return "", err
	}
	t, err := guard(OpDisconnect, e.Status)
	if err != nil {
		m.record(OpDisconnect, id, e.Status, e.Status, err)
		return "", err
	}
	if m.sessions.Cancel(id) {
		m.log.Infof("disconnect cancelled active session on evse %s", id)
	}
	if err := m.reg.SetStatus(id, t.To); err != nil {
		return "", err
	}
	m.releaseVehicle(e)
	m.record(OpDisconnect, id, e.Status, t.To, nil)
	return t.To, nil
}

// Reserve estimates feasibility and commits the reservation. The estimate
// is advisory: the commit re-validates the idle guard through a
// compare-and-set, so a reservation raced by another caller or a
// disconnect is rejected rather than applied to a stale snapshot.
func (m *Machine) Reserve(evID, evseID string) (model.Reservation, error) {
	defer m.lockEVSE(evseID)()
	v, err := m.reg.Vehicle(evID)
	if err != nil {
		return model.Reservation{}, err
	}
	e, err := m.reg.Get(evseID)
	if err != nil {
		return model.Reservation{}, err
	}
	est := estimate.Estimate(v, e)
	if !est.Reservable {
		rej := &TransitionError{Op: OpReserve, Status: e.Status, Reason: est.Reason}
		m.record(OpReserve, evseID, e.Status, e.Status, rej)
		return model.Reservation{}, rej
	}
	ok, err := m.reg.CompareAndSetStatus(evseID, model.StatusAvailable, model.StatusReserved)
	if err != nil {
		return model.Reservation{}, err
	}
	if !ok {
		// Stale estimate: the EVSE moved between snapshot and commit.
		cur, _ := m.reg.Get(evseID)
		rej := &TransitionError{Op: OpReserve, Status: cur.Status, Reason: estimate.ReasonNotIdle}
		m.record(OpReserve, evseID, cur.Status, cur.Status, rej)
		return model.Reservation{}, rej
	}
	if err := m.reg.ConnectVehicle(evID, e.Name); err != nil {
		return model.Reservation{}, err
	}
	if err := m.reg.AssignEV(evseID, evID); err != nil {
		return model.Reservation{}, err
	}
	m.record(OpReserve, evseID, model.StatusAvailable, model.StatusReserved, nil)
	return model.Reservation{
		EVID:              evID,
		EVSEID:            evseID,
		EstimatedDuration: time.Duration(est.EstimatedTimeMin) * time.Minute,
		Accepted:          true,
	}, nil
}

// Plug moves a reserved EVSE to Occupied.
func (m *Machine) Plug(id string) (model.Status, error) {
	return m.simple(OpPlug, id)
}

// Start spawns a charging session on an occupied EVSE. The guard requires
// a vehicle whose connection points at this EVSE's name.
func (m *Machine) Start(id string, totalSec int) (model.SessionSnapshot, error) {
	defer m.lockEVSE(id)()
	e, err := m.reg.Get(id)
	if err != nil {
		return model.SessionSnapshot{}, err
	}
	if _, err := guard(OpStart, e.Status); err != nil {
		m.record(OpStart, id, e.Status, e.Status, err)
		return model.SessionSnapshot{}, err
	}
	if m.sessions.Active(id) {
		rej := &TransitionError{Op: OpStart, Status: e.Status, Reason: "charging already in progress"}
		m.record(OpStart, id, e.Status, e.Status, rej)
		return model.SessionSnapshot{}, rej
	}
	v, ok := m.reg.FindVehicleByEVSE(e.Name)
	if !ok {
		m.record(OpStart, id, e.Status, e.Status, ErrNoMatchedVehicle)
		return model.SessionSnapshot{}, fmt.Errorf("start evse %s: %w", id, ErrNoMatchedVehicle)
	}
	snap, err := m.sessions.Start(e, v, totalSec)
	if err != nil {
		return model.SessionSnapshot{}, err
	}
	m.record(OpStart, id, e.Status, e.Status, nil)
	return snap, nil
}

// Stop ends charging and returns the EVSE to Available. The simulator
// invokes it on completion (its session is already removed by then); an
// external stop cancels the session first, leaving the SoC at its last
// pushed value.
func (m *Machine) Stop(id string) (model.Status, error) {
	defer m.lockEVSE(id)()
	e, err := m.reg.Get(id)
	if err != nil {
		return "", err
	}
	t, err := guard(OpStop, e.Status)
	if err != nil {
		m.record(OpStop, id, e.Status, e.Status, err)
		return "", err
	}
	m.sessions.Cancel(id)
	ok, err := m.reg.CompareAndSetStatus(id, e.Status, t.To)
	if err != nil {
		return "", err
	}
	if !ok {
		cur, _ := m.reg.Get(id)
		rej := &TransitionError{Op: OpStop, Status: cur.Status, Reason: t.Reason}
		m.record(OpStop, id, cur.Status, cur.Status, rej)
		return "", rej
	}
	m.releaseVehicle(e)
	m.record(OpStop, id, e.Status, t.To, nil)
	return t.To, nil
}

// simple handles the transitions whose only guard is the status check.
func (m *Machine) simple(op Op, id string) (model.Status, error) {
	defer m.lockEVSE(id)()
	e, err := m.reg.Get(id)
	if err != nil {
		return "", err
	}
	t, err := guard(op, e.Status)
	if err != nil {
		m.record(op, id, e.Status, e.Status, err)
		return "", err
	}
	ok, err := m.reg.CompareAndSetStatus(id, e.Status, t.To)
	if err != nil {
		return "", err
	}
	if !ok {
		cur, _ := m.reg.Get(id)
		rej := &TransitionError{Op: op, Status: cur.Status, Reason: t.Reason}
		m.record(op, id, cur.Status, cur.Status, rej)
		return "", rej
	}
	m.record(op, id, e.Status, t.To, nil)
	return t.To, nil
}

// releaseVehicle detaches whatever vehicle was bound to the EVSE.
func (m *Machine) releaseVehicle(e model.EVSE) {
	if v, ok := m.reg.FindVehicleByEVSE(e.Name); ok {
		if err := m.reg.DisconnectVehicle(v.ID); err != nil {
			m.log.Warnf("detach vehicle %s: %v", v.ID, err)
		}
	}
	if e.CurrentEVID != "" {
		if err := m.reg.AssignEV(e.ID, ""); err != nil {
			m.log.Warnf("clear ev assignment on %s: %v", e.ID, err)
		}
	}
}

func (m *Machine) record(op Op, id string, from, to model.Status, opErr error) {
	ev := metrics.TransitionEvent{
		EVSEID:    id,
		Operation: string(op),
		From:      from,
		To:        to,
		Accepted:  opErr == nil,
		Time:      time.Now(),
	}
	if opErr != nil {
		ev.Reason = opErr.Error()
	}
	if err := m.sink.RecordTransition(ev); err != nil {
		m.log.Warnf("record transition: %v", err)
	}
	if opErr != nil {
		m.log.Warnf("%s on evse %s rejected: %v", op, id, opErr)
		return
	}
	m.log.Infof("%s: evse %s %s -> %s", op, id, from, to)
}
