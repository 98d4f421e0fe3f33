package model

import "time"

// Reservation is the outcome of a committed reserve operation.
type Reservation struct {
	EVID              string        `json:"ev_id"`
	EVSEID            string        `json:"evse_id"`
	EstimatedDuration time.Duration `json:"estimated_duration"`
	Accepted          bool          `json:"accepted"`
}
