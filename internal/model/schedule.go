package model

import "time"

// VenueSchedule is one effective-dated version of the operating hours for a
// single weekday.  Schedules are never updated in place: staff publish a new
// version with a later EffectiveFrom, so reservations made under an older
// version remain interpretable against the schedule that applied at the time.
//
// Fields:
//  ID            – primary key identifier.
//  Weekday       – day of week this row applies to.
//  OpenTime      – first seating time (venue-local).
//  CloseTime     – closing time; the last slot starts early enough to fit a
//                  full service window before this.
//  SlotMinutes   – slot granularity, e.g. 30-minute increments.
//  BaseCapacity  – seats bookable per slot under this version.
//  EffectiveFrom – first date ("2006-01-02") this version applies to.
//  CreatedAt     – creation timestamp.
type VenueSchedule struct {
	ID            uint64       // venue_schedules.id
	Weekday       time.Weekday // venue_schedules.weekday (0=Sunday)
	OpenTime      ClockTime    // venue_schedules.open_time
	CloseTime     ClockTime    // venue_schedules.close_time
	SlotMinutes   int          // venue_schedules.slot_minutes
	BaseCapacity  int          // venue_schedules.base_capacity
	EffectiveFrom string       // venue_schedules.effective_from
	CreatedAt     time.Time    // venue_schedules.created_at
}

// DateOverride replaces or blacks out the weekday default for one specific
// calendar date (a holiday closure, a private event with shortened hours).
// It is consulted before falling back to VenueSchedule.  When Closed is
// true the remaining fields are ignored and the date yields no slots.
type DateOverride struct {
	ID           uint64    // date_overrides.id
	Date         string    // date_overrides.override_date, unique
	Closed       bool      // date_overrides.closed
	OpenTime     ClockTime // date_overrides.open_time (unused when Closed)
	CloseTime    ClockTime // date_overrides.close_time
	SlotMinutes  int       // date_overrides.slot_minutes
	BaseCapacity int       // date_overrides.base_capacity
	Reason       string    // date_overrides.reason (free text for staff)
	CreatedAt    time.Time // date_overrides.created_at
}
