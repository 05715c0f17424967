// Package queue defines message payloads exchanged over the message broker.
package queue

// ReservationEvent is published on every reservation state change.  It
// carries enough for downstream consumers to log, notify the guest, or
// feed analytics without querying the primary database.
type ReservationEvent struct {
	Type             string `json:"type"` // created | confirmed | seated | completed | cancelled | no_show | updated
	ReservationID    uint64 `json:"reservation_id"`
	ConfirmationCode string `json:"confirmation_code"`
	GuestName        string `json:"guest_name"`
	Email            string `json:"email"`
	Date             string `json:"date"`
	Time             string `json:"time"`
	PartySize        int    `json:"party_size"`
	Status           string `json:"status"`
	OccurredAt       string `json:"occurred_at"`
}
