package model

import "fmt"

// Status is the OCPP-style connector status of an EVSE. Values are
// case-sensitive on the wire.
type Status string

const (
	StatusAvailable   Status = "Available"
	StatusOccupied    Status = "Occupied"
	StatusReserved    Status = "Reserved"
	StatusUnavailable Status = "Unavailable"
	StatusFaulted     Status = "Faulted"
)

// Statuses lists every valid status in wire order.
func Statuses() []Status {
	return []Status{
		StatusAvailable,
		StatusOccupied,
		StatusReserved,
		StatusUnavailable,
		StatusFaulted,
	}
}

// Valid reports whether s is one of the five known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusAvailable, StatusOccupied, StatusReserved, StatusUnavailable, StatusFaulted:
		return true
	}
	return false
}

// Disconnected reports whether the EVSE is in a disconnected state.
// Connect is only legal from a disconnected state.
func (s Status) Disconnected() bool {
	return s == StatusUnavailable || s == StatusFaulted
}

func (s Status) String() string { return string(s) }

// ParseStatus converts a wire string into a Status.
func ParseStatus(v string) (Status, error) {
	s := Status(v)
	if !s.Valid() {
		return "", fmt.Errorf("unknown status %q", v)
	}
	return s, nil
}
