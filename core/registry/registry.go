package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/chargeflow/chargeflow/core/model"
)

// ErrNotFound is returned when an EVSE or vehicle id is unknown.
var ErrNotFound = errors.New("not found")

// Summary aggregates charge point counts for dashboards.
type Summary struct {
	Total     int `json:"total"`
	Connected int `json:"connected"`
}

// Registry is the authoritative store of charge points and vehicles.
// Reads are snapshots; callers must not assume isolation across calls.
// Transitions that need atomicity use CompareAndSetStatus.
type Registry interface {
	Get(id string) (model.EVSE, error)
	List() []model.EVSE
	Summary() Summary
	Add(e model.EVSE) (model.EVSE, error)
	Remove(id string) error
	SetStatus(id string, s model.Status) error

	// CompareAndSetStatus atomically moves the EVSE from expect to next.
	// It reports false without mutating anything when the current status
	// differs from expect.
	CompareAndSetStatus(id string, expect, next model.Status) (bool, error)

	// AssignEV records the vehicle an EVSE is reserved for or charging.
	// An empty evID clears the assignment.
	AssignEV(id, evID string) error

	Vehicle(id string) (model.Vehicle, error)
	Vehicles() []model.Vehicle
	FindVehicleByEVSE(name string) (model.Vehicle, bool)
	SetVehicleSoC(id string, soc float64) error
	ConnectVehicle(evID, evseName string) error
	DisconnectVehicle(evID string) error
}

// MemoryRegistry is an in-process Registry guarded by a single RWMutex.
type MemoryRegistry struct {
	mu       sync.RWMutex
	evses    map[string]model.EVSE
	order    []string // insertion order for stable listings
	vehicles map[string]model.Vehicle
	vorder   []string
}

// NewMemoryRegistry creates an empty registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		evses:    map[string]model.EVSE{},
		vehicles: map[string]model.Vehicle{},
	}
}

func (r *MemoryRegistry) Get(id string) (model.EVSE, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.evses[id]
	if !ok {
		return model.EVSE{}, fmt.Errorf("evse %s: %w", id, ErrNotFound)
	}
	return e, nil
}

func (r *MemoryRegistry) List() []model.EVSE {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.EVSE, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.evses[id])
	}
	return out
}

func (r *MemoryRegistry) Summary() Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := Summary{Total: len(r.evses)}
	for _, e := range r.evses {
		if !e.Status.Disconnected() {
			s.Connected++
		}
	}
	return s
}

// Add stores the EVSE and assigns an opaque id when none is set.
func (r *MemoryRegistry) Add(e model.EVSE) (model.EVSE, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if err := e.Validate(); err != nil {
		return model.EVSE{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.evses[e.ID]; ok {
		return model.EVSE{}, fmt.Errorf("evse %s already registered", e.ID)
	}
	r.evses[e.ID] = e
	r.order = append(r.order, e.ID)
	return e, nil
}

func (r *MemoryRegistry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.evses[id]; !ok {
		return fmt.Errorf("evse %s: %w", id, ErrNotFound)
	}
	delete(r.evses, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *MemoryRegistry) SetStatus(id string, s model.Status) error {
	if !s.Valid() {
		return fmt.Errorf("unknown status %q", string(s))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.evses[id]
	if !ok {
		return fmt.Errorf("evse %s: %w", id, ErrNotFound)
	}
	e.Status = s
	r.evses[id] = e
	return nil
}

func (r *MemoryRegistry) CompareAndSetStatus(id string, expect, next model.Status) (bool, error) {
	if !next.Valid() {
		return false, fmt.Errorf("unknown status %q", string(next))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.evses[id]
	if !ok {
		return false, fmt.Errorf("evse %s: %w", id, ErrNotFound)
	}
	if e.Status != expect {
		return false, nil
	}
	e.Status = next
	r.evses[id] = e
	return true, nil
}

func (r *MemoryRegistry) AssignEV(id, evID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.evses[id]
	if !ok {
		return fmt.Errorf("evse %s: %w", id, ErrNotFound)
	}
	e.CurrentEVID = evID
	r.evses[id] = e
	return nil
}

func (r *MemoryRegistry) Vehicle(id string) (model.Vehicle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.vehicles[id]
	if !ok {
		return model.Vehicle{}, fmt.Errorf("vehicle %s: %w", id, ErrNotFound)
	}
	return v, nil
}

func (r *MemoryRegistry) Vehicles() []model.Vehicle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Vehicle, 0, len(r.vorder))
	for _, id := range r.vorder {
		out = append(out, r.vehicles[id])
	}
	return out
}

func (r *MemoryRegistry) FindVehicleByEVSE(name string) (model.Vehicle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.vehicles))
	for id := range r.vehicles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if v := r.vehicles[id]; v.ConnectedEVSE == name && name != "" {
			return v, true
		}
	}
	return model.Vehicle{}, false
}

// SetVehicleSoC updates the state of charge, clamped to [0,100].
func (r *MemoryRegistry) SetVehicleSoC(id string, soc float64) error {
	if soc < 0 {
		soc = 0
	}
	if soc > 100 {
		soc = 100
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.vehicles[id]
	if !ok {
		return fmt.Errorf("vehicle %s: %w", id, ErrNotFound)
	}
	v.CurrentSoC = soc
	r.vehicles[id] = v
	return nil
}

func (r *MemoryRegistry) ConnectVehicle(evID, evseName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.vehicles[evID]
	if !ok {
		return fmt.Errorf("vehicle %s: %w", evID, ErrNotFound)
	}
	v.ConnectedEVSE = evseName
	r.vehicles[evID] = v
	return nil
}

func (r *MemoryRegistry) DisconnectVehicle(evID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.vehicles[evID]
	if !ok {
		return fmt.Errorf("vehicle %s: %w", evID, ErrNotFound)
	}
	v.ConnectedEVSE = ""
	r.vehicles[evID] = v
	return nil
}

// AddVehicle registers a vehicle. Used by seeding and tests.
func (r *MemoryRegistry) AddVehicle(v model.Vehicle) error {
	if err := v.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.vehicles[v.ID]; ok {
		return fmt.Errorf("vehicle %s already registered", v.ID)
	}
	r.vehicles[v.ID] = v
	r.vorder = append(r.vorder, v.ID)
	return nil
}
