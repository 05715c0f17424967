// Package ledger defines the capacity ledger: the single authority deciding
// whether seats can be committed against a slot.  Memory implements the
// Ledger contract in-process; the MySQL ledger exposes the same operations
// as transaction-scoped steps that the reservation store composes with its
// own writes.  The availability service only reads committed sums, and the
// booking service is the only writer.
package ledger

import (
	"context"
	"errors"

	"github.com/iliyamo/restaurant-reservation/internal/model"
)

var (
	// ErrCapacityExceeded is returned when a reserve or adjust would push
	// the holding sum for a slot past its base capacity.  It is a terminal
	// answer for the request; the caller is expected to re-query
	// availability rather than retry.
	ErrCapacityExceeded = errors.New("capacity exceeded")

	// ErrConflict signals that an atomic capacity check lost a race
	// (deadlock victim, serialization failure).  It never reaches end
	// callers: the booking service retries the whole operation once and
	// surfaces ErrCapacityExceeded if it still fails.
	ErrConflict = errors.New("concurrency conflict")

	// ErrNotHeld is returned by Adjust when no holding commitment exists
	// for the reservation.
	ErrNotHeld = errors.New("no holding commitment")
)

// Handle identifies a capacity commitment for later release or adjustment.
type Handle struct {
	CommitmentID  uint64
	ReservationID uint64
	Date          string
	Slot          model.ClockTime
}

// Ledger is the authoritative accounting of committed capacity per slot.
//
// Reserve and Adjust must each execute as one atomic unit scoped to the
// (date, slot) key: two concurrent reserves for the last seats must
// serialize, and the invariant
//
//	Σ party_size over HOLDING commitments ≤ baseCapacity
//
// must hold after every individual operation.  Operations on distinct
// (date, slot) keys are independent.
type Ledger interface {
	// Reserve atomically checks committed+partySize against baseCapacity
	// and inserts a HOLDING commitment for reservationID.  Returns
	// ErrCapacityExceeded when the slot cannot take the party.
	Reserve(ctx context.Context, date string, slot model.ClockTime, baseCapacity, partySize int, reservationID uint64) (Handle, error)

	// Release moves the commitment out of the holding set.  Releasing an
	// already-released or unknown handle is a no-op, not an error.
	Release(ctx context.Context, h Handle) error

	// Adjust re-validates headroom for a party-size change on an existing
	// holding commitment and applies it, or returns ErrCapacityExceeded.
	Adjust(ctx context.Context, h Handle, baseCapacity, newPartySize int) error

	// Committed returns the current holding sum for a slot.
	Committed(ctx context.Context, date string, slot model.ClockTime) (int, error)

	// CommittedByDate returns holding sums for every slot of a date that
	// has at least one commitment.  Used by the availability query to
	// price a whole day in one read.
	CommittedByDate(ctx context.Context, date string) (map[model.ClockTime]int, error)
}
