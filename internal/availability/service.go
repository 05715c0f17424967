// Package availability answers the read side of booking: which slots a
// given date offers and how many seats each still has.  It never writes;
// capacity comes from the ledger's committed sums and hours come from the
// schedule configuration, composed over the same slot grid the booking
// path resolves against.
package availability

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/restaurant-reservation/internal/calendar"
	"github.com/iliyamo/restaurant-reservation/internal/model"
)

// Reasons a date has no bookable slots.  They are answers, not errors:
// asking about last Tuesday is a well-formed question.
const (
	ReasonPast          = "date_in_past"
	ReasonBeyondHorizon = "beyond_horizon"
	ReasonClosed        = "closed"
)

// CommittedReader reads holding sums from the capacity ledger.
type CommittedReader interface {
	CommittedByDate(ctx context.Context, date string) (map[model.ClockTime]int, error)
}

// ScheduleSource supplies operating hours and per-date overrides.
type ScheduleSource interface {
	VersionsFor(ctx context.Context, weekday time.Weekday) ([]model.VenueSchedule, error)
	OverrideFor(ctx context.Context, date string) (*model.DateOverride, error)
}

// Config mirrors the booking policy knobs the read side shares.
type Config struct {
	HorizonDays       int
	MinServiceMinutes int
}

// SlotView is one slot of a day's availability as served to clients.
type SlotView struct {
	Time              string `json:"time"`
	TimeDisplay       string `json:"time_display"`
	IsAvailable       bool   `json:"is_available"`
	AvailableCapacity int    `json:"available_capacity"`
}

// DayAvailability is the full answer for one date.  When the date is
// bookable Slots holds every slot on the grid; otherwise Slots is empty
// and Reason says why.
type DayAvailability struct {
	Date   string     `json:"date"`
	Reason string     `json:"reason,omitempty"`
	Slots  []SlotView `json:"slots"`
}

// ErrBadDate is returned for a date that does not parse at all.
var ErrBadDate = calendar.ErrBadDate

// Service serves availability queries.
type Service struct {
	ledger CommittedReader
	sched  ScheduleSource
	cfg    Config

	now func() time.Time
}

// NewService constructs a Service reading the real clock.
func NewService(ledger CommittedReader, sched ScheduleSource, cfg Config) *Service {
	return &Service{ledger: ledger, sched: sched, cfg: cfg, now: time.Now}
}

// Query returns the slot grid for date with per-slot remaining capacity
// and whether a party of partySize fits.  Remaining capacity is base
// capacity minus the ledger's holding sum for the slot; same-day slots
// whose start has already passed are reported but never available.
func (s *Service) Query(ctx context.Context, date string, partySize int) (*DayAvailability, error) {
	out := &DayAvailability{Date: date, Slots: []SlotView{}}

	today := s.now().Format(calendar.DateLayout)
	if err := calendar.CheckHorizon(date, today, s.cfg.HorizonDays); err != nil {
		switch {
		case errors.Is(err, calendar.ErrPastDate):
			out.Reason = ReasonPast
			return out, nil
		case errors.Is(err, calendar.ErrBeyondHorizon):
			out.Reason = ReasonBeyondHorizon
			return out, nil
		default:
			return nil, ErrBadDate
		}
	}

	sched, ov, err := s.resolveHours(ctx, date)
	if err != nil {
		return nil, err
	}
	slots := calendar.SlotsFor(date, sched, ov, s.cfg.MinServiceMinutes)
	if len(slots) == 0 {
		out.Reason = ReasonClosed
		return out, nil
	}

	committed, err := s.ledger.CommittedByDate(ctx, date)
	if err != nil {
		return nil, err
	}

	var nowClock model.ClockTime = -1
	if date == today {
		n := s.now()
		nowClock = model.ClockTime(n.Hour()*60 + n.Minute())
	}

	for _, slot := range slots {
		remaining := slot.BaseCapacity - committed[slot.Start]
		if remaining < 0 {
			remaining = 0
		}
		out.Slots = append(out.Slots, SlotView{
			Time:              slot.Start.String(),
			TimeDisplay:       slot.Start.Display(),
			IsAvailable:       remaining >= partySize && slot.Start > nowClock,
			AvailableCapacity: remaining,
		})
	}
	return out, nil
}

func (s *Service) resolveHours(ctx context.Context, date string) (*model.VenueSchedule, *model.DateOverride, error) {
	ov, err := s.sched.OverrideFor(ctx, date)
	if err != nil {
		return nil, nil, err
	}
	if ov != nil {
		return nil, ov, nil
	}
	weekday, err := calendar.Weekday(date)
	if err != nil {
		return nil, nil, err
	}
	versions, err := s.sched.VersionsFor(ctx, weekday)
	if err != nil {
		return nil, nil, err
	}
	return calendar.EffectiveSchedule(versions, date), nil, nil
}

// Hours reports the operating hours for date as clients see them on the
// public hours endpoint: the effective schedule after overrides, or a
// closed marker.
type Hours struct {
	Date        string `json:"date"`
	Closed      bool   `json:"closed"`
	OpenTime    string `json:"open_time,omitempty"`
	CloseTime   string `json:"close_time,omitempty"`
	SlotMinutes int    `json:"slot_minutes,omitempty"`
}

// HoursFor resolves the operating hours for one date.
func (s *Service) HoursFor(ctx context.Context, date string) (*Hours, error) {
	if _, err := calendar.ParseDate(date); err != nil {
		return nil, ErrBadDate
	}
	sched, ov, err := s.resolveHours(ctx, date)
	if err != nil {
		return nil, err
	}
	switch {
	case ov != nil && ov.Closed:
		return &Hours{Date: date, Closed: true}, nil
	case ov != nil:
		return &Hours{Date: date, OpenTime: ov.OpenTime.String(), CloseTime: ov.CloseTime.String(), SlotMinutes: ov.SlotMinutes}, nil
	case sched == nil:
		return &Hours{Date: date, Closed: true}, nil
	default:
		return &Hours{Date: date, OpenTime: sched.OpenTime.String(), CloseTime: sched.CloseTime.String(), SlotMinutes: sched.SlotMinutes}, nil
	}
}
