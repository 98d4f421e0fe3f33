package model

import "fmt"

// EVSE represents a physical charge point. The ID is a stable opaque
// identifier assigned at registration time; positions in a listing carry
// no meaning.
type EVSE struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Brand      string  `json:"brand"`
	Model      string  `json:"model"`
	Vendor     string  `json:"vendor"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	MaxPowerKW float64 `json:"max_power_kw"`
	Status     Status  `json:"status"`

	// CurrentEVID holds the vehicle the EVSE is reserved for or charging,
	// empty otherwise.
	CurrentEVID string `json:"current_ev_id,omitempty"`
}

// Validate checks that the EVSE definition is sound.
func (e EVSE) Validate() error {
	if e.Name == "" {
		return fmt.Errorf("evse name is required")
	}
	if e.MaxPowerKW <= 0 {
		return fmt.Errorf("max power must be positive")
	}
	if !e.Status.Valid() {
		return fmt.Errorf("unknown status %q", string(e.Status))
	}
	return nil
}
