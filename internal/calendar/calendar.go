// Package calendar derives the bookable slots for a calendar date from the
// venue's operating-hours configuration.  It is pure: given the same
// schedule, override and date it always produces the same slots, and it
// never touches storage.  All times are venue-local wall-clock values.
package calendar

import (
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/restaurant-reservation/internal/model"
)

// DateLayout is the canonical date form used across the engine.
const DateLayout = "2006-01-02"

// Out-of-range signals.  Both are distinguishable from a day that is simply
// closed, which yields an empty slot list and a nil error.
var (
	ErrPastDate      = errors.New("date is in the past")
	ErrBeyondHorizon = errors.New("date is beyond the booking horizon")
)

// ErrBadDate wraps date parse failures so callers can treat them as input
// validation rather than internal errors.
var ErrBadDate = errors.New("invalid date")

// ParseDate parses a "2006-01-02" date string.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrBadDate, s)
	}
	return t, nil
}

// Weekday returns the weekday of a date string.
func Weekday(date string) (time.Weekday, error) {
	t, err := ParseDate(date)
	if err != nil {
		return 0, err
	}
	return t.Weekday(), nil
}

// CheckHorizon validates that date falls inside the bookable window
// [today, today+horizonDays].  today must itself be a "2006-01-02" string;
// the comparison is by calendar day on the venue's clock, so a reservation
// for later today is in range.
func CheckHorizon(date, today string, horizonDays int) error {
	d, err := ParseDate(date)
	if err != nil {
		return err
	}
	t, err := ParseDate(today)
	if err != nil {
		return err
	}
	if d.Before(t) {
		return ErrPastDate
	}
	if d.After(t.AddDate(0, 0, horizonDays)) {
		return ErrBeyondHorizon
	}
	return nil
}

// SlotsFor generates the ordered slot sequence for date.  The override, when
// non-nil, replaces the weekday schedule entirely; a closed override or a
// nil schedule yields no slots.  minServiceMinutes is the shortest service
// window a party needs, so the last slot starts no later than
// close − minServiceMinutes.  Slots whose window would extend past closing
// are excluded.
func SlotsFor(date string, sched *model.VenueSchedule, ov *model.DateOverride, minServiceMinutes int) []model.Slot {
	open, close, step, capacity := hoursFor(sched, ov)
	if step <= 0 || capacity <= 0 || close <= open {
		return nil
	}
	lastStart := close - model.ClockTime(minServiceMinutes)
	var slots []model.Slot
	for start := open; start <= lastStart; start += model.ClockTime(step) {
		end := start + model.ClockTime(minServiceMinutes)
		if end > close {
			break
		}
		slots = append(slots, model.Slot{
			Date:         date,
			Start:        start,
			End:          end,
			BaseCapacity: capacity,
		})
	}
	return slots
}

// SlotAt returns the slot starting exactly at t on date, or false when t is
// not on the grid (venue closed, off-granularity time, start too close to
// closing).
func SlotAt(date string, t model.ClockTime, sched *model.VenueSchedule, ov *model.DateOverride, minServiceMinutes int) (model.Slot, bool) {
	for _, s := range SlotsFor(date, sched, ov, minServiceMinutes) {
		if s.Start == t {
			return s, true
		}
	}
	return model.Slot{}, false
}

// hoursFor resolves the operating window for a date: override first, weekday
// default second.
func hoursFor(sched *model.VenueSchedule, ov *model.DateOverride) (open, close model.ClockTime, step, capacity int) {
	if ov != nil {
		if ov.Closed {
			return 0, 0, 0, 0
		}
		return ov.OpenTime, ov.CloseTime, ov.SlotMinutes, ov.BaseCapacity
	}
	if sched == nil {
		return 0, 0, 0, 0
	}
	return sched.OpenTime, sched.CloseTime, sched.SlotMinutes, sched.BaseCapacity
}

// EffectiveSchedule picks, from all versions for one weekday, the one in
// force on date: the version with the latest EffectiveFrom that is not after
// date.  Versions with EffectiveFrom after date are invisible, so editing
// future hours never reinterprets existing reservations.
func EffectiveSchedule(versions []model.VenueSchedule, date string) *model.VenueSchedule {
	var best *model.VenueSchedule
	for i := range versions {
		v := &versions[i]
		if v.EffectiveFrom > date {
			continue
		}
		if best == nil || v.EffectiveFrom > best.EffectiveFrom {
			best = v
		}
	}
	return best
}
