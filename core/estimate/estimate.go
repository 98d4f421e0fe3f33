// Package estimate computes reservation feasibility for a vehicle and a
// charge point. Estimates are advisory: the commit step re-validates the
// same guard, so a successful estimate never holds the EVSE.
package estimate

import "github.com/chargeflow/chargeflow/core/model"

// Rejection reasons, surfaced verbatim to callers.
const (
	ReasonNotIdle            = "EVSE is not idle"
	ReasonConnectedElsewhere = "vehicle is already connected to another EVSE"
	ReasonNoDuration         = "cannot calculate charging time"
)

// Result describes whether a reservation is feasible and how long the
// charge would take.
type Result struct {
	Reservable       bool   `json:"reservable"`
	EstimatedTimeMin int    `json:"estimated_time_min,omitempty"`
	Reason           string `json:"reason,omitempty"`
}

// Estimate is a pure function of the supplied snapshots. It never mutates
// registry state.
func Estimate(v model.Vehicle, e model.EVSE) Result {
	if e.Status != model.StatusAvailable {
		return Result{Reason: ReasonNotIdle}
	}
	if v.ConnectedEVSE != "" && v.ConnectedEVSE != e.Name {
		return Result{Reason: ReasonConnectedElsewhere}
	}
	required := v.RequiredEnergyKWh()
	if e.MaxPowerKW <= 0 || required == 0 {
		return Result{Reason: ReasonNoDuration}
	}
	minutes := int(required / e.MaxPowerKW * 60)
	return Result{Reservable: true, EstimatedTimeMin: minutes}
}
