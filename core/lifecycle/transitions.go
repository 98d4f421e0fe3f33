package lifecycle

import "github.com/chargeflow/chargeflow/core/model"

// Op identifies a lifecycle operation.
type Op string

const (
	OpConnect    Op = "connect"
	OpDisconnect Op = "disconnect"
	OpReserve    Op = "reserve"
	OpPlug       Op = "plug"
	OpStart      Op = "start"
	OpStop       Op = "stop"
)

// transition is a single allowed edge in the lifecycle graph. Operations
// with additional guards (estimator gating for reserve, vehicle matching
// for start) apply them on top of the status check.
type transition struct {
	From []model.Status
	To   model.Status
	// Reason is surfaced verbatim when the current status is not in From.
	Reason string
}

var transitions = map[Op]transition{
	OpConnect: {
		From:   []model.Status{model.StatusUnavailable, model.StatusFaulted},
		To:     model.StatusAvailable,
		Reason: "EVSE is not disconnected",
	},
	OpDisconnect: {
		From:   []model.Status{model.StatusAvailable, model.StatusOccupied, model.StatusReserved},
		To:     model.StatusUnavailable,
		Reason: "EVSE is already disconnected",
	},
	OpReserve: {
		From:   []model.Status{model.StatusAvailable},
		To:     model.StatusReserved,
		Reason: "EVSE is not idle",
	},
	OpPlug: {
		From:   []model.Status{model.StatusReserved},
		To:     model.StatusOccupied,
		Reason: "EVSE is not reserved",
	},
	OpStart: {
		From:   []model.Status{model.StatusOccupied},
		To:     model.StatusOccupied, // charging is a sub-state of Occupied
		Reason: "EVSE is not occupied",
	},
	OpStop: {
		From:   []model.Status{model.StatusOccupied},
		To:     model.StatusAvailable,
		Reason: "EVSE is not charging",
	},
}

// guard returns the transition edge for op, or a TransitionError when the
// current status is not a legal source.
func guard(op Op, cur model.Status) (transition, error) {
	t := transitions[op]
	for _, s := range t.From {
		if s == cur {
			return t, nil
		}
	}
	return transition{}, &TransitionError{Op: op, Status: cur, Reason: t.Reason}
}
