package model

import "time"

// Commitment states.  HOLDING commitments count against their slot's
// capacity; RELEASED ones are kept for reporting but hold nothing.
const (
	CommitmentHolding  = "HOLDING"
	CommitmentReleased = "RELEASED"
)

// CapacityCommitment is the only persisted capacity fact: the seats a
// reservation holds against one slot.  The invariant the ledger enforces is
// that for every (date, slot) the sum of party_size over HOLDING commitments
// never exceeds the slot's base capacity, including under concurrent
// writers.
//
// Fields:
//  ID            – primary key identifier.
//  SlotDate      – slot date in "2006-01-02" form.
//  SlotTime      – slot start time.
//  ReservationID – reservation this commitment belongs to.
//  PartySize     – seats held.
//  State         – HOLDING or RELEASED.
//  CreatedAt     – creation timestamp.
//  UpdatedAt     – last update timestamp.
type CapacityCommitment struct {
	ID            uint64    // capacity_commitments.id
	SlotDate      string    // capacity_commitments.slot_date
	SlotTime      ClockTime // capacity_commitments.slot_time
	ReservationID uint64    // capacity_commitments.reservation_id
	PartySize     int       // capacity_commitments.party_size
	State         string    // capacity_commitments.state
	CreatedAt     time.Time // capacity_commitments.created_at
	UpdatedAt     time.Time // capacity_commitments.updated_at
}
