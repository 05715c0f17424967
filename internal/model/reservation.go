package model

import "time"

// Status is the lifecycle state of a reservation.  The forward path is
// pending -> confirmed -> seated -> completed; cancelled and no_show are
// reachable from any non-terminal state.  Terminal reservations are kept
// forever for lookup and reporting.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusSeated    Status = "seated"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no_show"
)

// Terminal reports whether no further transition is allowed from s.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// Holding reports whether a reservation in state s counts against its
// slot's capacity.
func (s Status) Holding() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusSeated:
		return true
	}
	return false
}

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusSeated,
		StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// Reservation is a customer's booking for one slot.  It is owned
// exclusively by the booking service; other components only read
// projections of it.  Rows are never deleted.
//
// Fields:
//  ID                  – primary key identifier.
//  ConfirmationCode    – public UUID handed to the customer for lookup and
//                        self-service cancellation.
//  FirstName, LastName – customer name.
//  Email, Phone        – customer contact, used for lookup.
//  Date                – reservation date in "2006-01-02" form (venue-local).
//  SlotTime            – start time of the reserved slot.
//  PartySize           – number of guests; also the size of the capacity
//                        commitment held against the slot.
//  Occasion            – optional ("birthday", "anniversary", ...).
//  SpecialRequests     – optional free text.
//  DietaryRestrictions – optional free text.
//  Status              – lifecycle state.
//  CreatedAt           – creation timestamp.
//  UpdatedAt           – last update timestamp.
type Reservation struct {
	ID                  uint64    // reservations.id
	ConfirmationCode    string    // reservations.confirmation_code
	FirstName           string    // reservations.first_name
	LastName            string    // reservations.last_name
	Email               string    // reservations.email
	Phone               string    // reservations.phone
	Date                string    // reservations.reservation_date
	SlotTime            ClockTime // reservations.slot_time
	PartySize           int       // reservations.party_size
	Occasion            string    // reservations.occasion
	SpecialRequests     string    // reservations.special_requests
	DietaryRestrictions string    // reservations.dietary_restrictions
	Status              Status    // reservations.status
	CreatedAt           time.Time // reservations.created_at
	UpdatedAt           time.Time // reservations.updated_at
}
