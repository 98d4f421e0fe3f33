package model

// SessionSnapshot is a read-only view of a running charging session,
// taken at a single tick.
type SessionSnapshot struct {
	EVSE        EVSE    `json:"evse"`
	Vehicle     Vehicle `json:"vehicle"`
	ProgressSec int     `json:"progress_sec"`
	TotalSec    int     `json:"total_sec"`
	SoC         float64 `json:"soc"`
}

// Percent returns the completion fraction in [0,1].
func (s SessionSnapshot) Percent() float64 {
	if s.TotalSec <= 0 {
		return 1
	}
	p := float64(s.ProgressSec) / float64(s.TotalSec)
	if p > 1 {
		p = 1
	}
	return p
}

// EnergyDeliveredKWh estimates the energy transferred so far, assuming a
// full session fills the battery by the target delta.
func (s SessionSnapshot) EnergyDeliveredKWh() float64 {
	return s.Vehicle.RequiredEnergyKWh() * s.Percent()
}
