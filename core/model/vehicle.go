package model

import "fmt"

// Vehicle represents an electric vehicle known to the coordinator.
// CurrentSoC is the only field the charging simulator mutates; everything
// else is supplied externally.
type Vehicle struct {
	ID         string  `json:"id"`
	Brand      string  `json:"brand"`
	Model      string  `json:"model"`
	BatteryKWh float64 `json:"battery_capacity_kwh"`
	CurrentSoC float64 `json:"current_soc"` // percent, [0,100]
	TargetSoC  float64 `json:"target_soc"`  // percent, [0,100]

	// ConnectedEVSE is the name of the EVSE the vehicle is attached to,
	// empty when the vehicle is not plugged or reserved anywhere.
	ConnectedEVSE string `json:"connected_evse_id,omitempty"`
}

// Validate checks that the vehicle configuration is sound.
// In particular BatteryKWh must be positive.
func (v Vehicle) Validate() error {
	if v.BatteryKWh <= 0 {
		return fmt.Errorf("battery capacity must be positive")
	}
	if v.CurrentSoC < 0 || v.CurrentSoC > 100 {
		return fmt.Errorf("current soc out of range: %v", v.CurrentSoC)
	}
	if v.TargetSoC < 0 || v.TargetSoC > 100 {
		return fmt.Errorf("target soc out of range: %v", v.TargetSoC)
	}
	return nil
}

// RequiredEnergyKWh returns the energy needed to reach the target state of
// charge. A target below the current level needs nothing.
func (v Vehicle) RequiredEnergyKWh() float64 {
	delta := v.TargetSoC - v.CurrentSoC
	if delta < 0 {
		delta = 0
	}
	return (delta / 100) * v.BatteryKWh
}
