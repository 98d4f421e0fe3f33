package lifecycle

import (
	"errors"
	"fmt"

	"github.com/chargeflow/chargeflow/core/model"
)

// ErrNoMatchedVehicle is returned by the start operation when no vehicle
// is connected to the EVSE.
var ErrNoMatchedVehicle = errors.New("no vehicle connected to this EVSE")

// TransitionError rejects an operation whose guard failed. The reason is
// user-correctable and surfaced verbatim; the EVSE keeps its prior status.
type TransitionError struct {
	Op     Op
	Status model.Status
	Reason string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s rejected (status %s): %s", e.Op, e.Status, e.Reason)
}

// IsRejected reports whether err is a guard rejection and returns it.
func IsRejected(err error) (*TransitionError, bool) {
	var te *TransitionError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}
