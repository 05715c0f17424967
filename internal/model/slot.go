package model

import (
	"fmt"
	"strconv"
	"strings"
)

// ClockTime is a venue-local wall-clock time expressed as minutes since
// midnight.  Slot times are never stored or compared as UTC instants; the
// venue operates on its own wall clock and a "19:00" dinner slot means
// 19:00 on the venue's clock regardless of daylight saving shifts.
type ClockTime int

// ParseClock parses "HH:MM" or "HH:MM:SS" (seconds ignored) into a ClockTime.
// It rejects values outside a single day.
func ParseClock(s string) (ClockTime, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("time %q out of range", s)
	}
	return ClockTime(h*60 + m), nil
}

// String renders the time as 24-hour "HH:MM", the canonical wire and
// storage format.
func (t ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// Display renders the time for customers, e.g. "7:00 PM".
func (t ClockTime) Display() string {
	h := int(t) / 60
	m := int(t) % 60
	suffix := "AM"
	switch {
	case h == 0:
		h = 12
	case h == 12:
		suffix = "PM"
	case h > 12:
		h -= 12
		suffix = "PM"
	}
	return fmt.Sprintf("%d:%02d %s", h, m, suffix)
}

// Slot is a derived value, never persisted: a discrete bookable window on a
// given date.  Slots are recomputed from VenueSchedule/DateOverride on every
// query so that schedule changes take effect immediately.
//
// Fields:
//  Date         – calendar date in "2006-01-02" form (venue-local).
//  Start        – slot start time.
//  End          – end of the service window for this slot.
//  BaseCapacity – total seats bookable in this slot.
type Slot struct {
	Date         string    // derived; not a table column
	Start        ClockTime
	End          ClockTime
	BaseCapacity int
}
