// Package booking owns the reservation lifecycle: creation, the status
// state machine, and every capacity-affecting change.  It is the only
// writer to the capacity ledger.
package booking

import (
	"errors"
	"fmt"
)

// ErrSlotUnavailable means the requested time does not correspond to a
// bookable slot at all: the venue is closed that day, the time is off the
// granularity grid, too close to closing, or already in the past today.
// Distinct from a capacity failure, where the slot exists but is full.
var ErrSlotUnavailable = errors.New("slot unavailable")

// ErrTooEarly is returned by MarkNoShow when the reservation's slot window
// has not yet passed; a party cannot be a no-show for a table that is still
// waiting for them.
var ErrTooEarly = errors.New("slot window has not passed")

// ValidationError reports malformed or out-of-policy input on a single
// field.  It is surfaced to the caller verbatim and never retried.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Msg: msg}
}
