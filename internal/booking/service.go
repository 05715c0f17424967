package booking

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/restaurant-reservation/internal/calendar"
	"github.com/iliyamo/restaurant-reservation/internal/ledger"
	"github.com/iliyamo/restaurant-reservation/internal/model"
	"github.com/iliyamo/restaurant-reservation/internal/repository"
)

// Store is the persistence the lifecycle manager needs.  The MySQL
// implementation (repository.ReservationRepo) pairs every reservation write
// with its ledger commitment in one transaction, so each method is an
// atomic unit: a capacity failure leaves no reservation row behind and a
// transition never leaves a dangling commitment.
type Store interface {
	CreateWithCommitment(ctx context.Context, r *model.Reservation, baseCapacity int) error
	GetByID(ctx context.Context, id uint64) (*model.Reservation, error)
	GetByCode(ctx context.Context, code string) (*model.Reservation, error)
	Transition(ctx context.Context, id uint64, from []model.Status, to model.Status, release bool) (*model.Reservation, error)
	AdjustPartySize(ctx context.Context, id uint64, newSize, baseCapacity int) (*model.Reservation, error)
	MoveSlot(ctx context.Context, id uint64, date string, slot model.ClockTime, baseCapacity int) (*model.Reservation, error)
	ListByContact(ctx context.Context, email, phone string) ([]model.Reservation, error)
	ListByDate(ctx context.Context, date string) ([]model.Reservation, error)
}

// ScheduleSource supplies the operating-hours configuration the service
// resolves slots against.
type ScheduleSource interface {
	VersionsFor(ctx context.Context, weekday time.Weekday) ([]model.VenueSchedule, error)
	OverrideFor(ctx context.Context, date string) (*model.DateOverride, error)
}

// Config carries the venue's booking policy.
type Config struct {
	HorizonDays       int  // max days in advance a reservation may be made
	PartyMin          int  // smallest bookable party
	PartyMax          int  // largest bookable party
	MinServiceMinutes int  // service window a party occupies its slot
	ReleaseOnComplete bool // whether completing a reservation releases its commitment
}

// Service is the reservation lifecycle manager.
type Service struct {
	store Store
	sched ScheduleSource
	cfg   Config

	// now returns the current venue-local time; injected for tests.
	now func() time.Time
	// newCode mints public confirmation codes.
	newCode func() string
}

// NewService constructs a Service with production defaults for the clock
// and code generator.
func NewService(store Store, sched ScheduleSource, cfg Config) *Service {
	return &Service{
		store:   store,
		sched:   sched,
		cfg:     cfg,
		now:     time.Now,
		newCode: func() string { return uuid.NewString() },
	}
}

// CreateRequest carries the customer's booking submission.
type CreateRequest struct {
	FirstName           string `json:"first_name"`
	LastName            string `json:"last_name"`
	Email               string `json:"email"`
	Phone               string `json:"phone"`
	Date                string `json:"date"`
	Time                string `json:"time"`
	PartySize           int    `json:"party_size"`
	Occasion            string `json:"occasion"`
	SpecialRequests     string `json:"special_requests"`
	DietaryRestrictions string `json:"dietary_restrictions"`
}

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Create validates the request, resolves its slot, and books it.  The
// capacity check and the reservation insert are one atomic unit in the
// store; if that unit loses a concurrency race the whole operation is
// retried once before the failure is reported as capacity exhaustion.  On
// any failure no reservation exists and no capacity is held.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*model.Reservation, error) {
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Phone = strings.TrimSpace(req.Phone)

	if req.FirstName == "" {
		return nil, invalid("first_name", "required")
	}
	if req.LastName == "" {
		return nil, invalid("last_name", "required")
	}
	if !emailRe.MatchString(req.Email) {
		return nil, invalid("email", "not a valid email address")
	}
	if len(strings.Map(keepDigits, req.Phone)) < 7 {
		return nil, invalid("phone", "not a valid phone number")
	}
	if req.PartySize < s.cfg.PartyMin || req.PartySize > s.cfg.PartyMax {
		return nil, invalid("party_size", "out of range")
	}

	slot, err := s.resolveSlot(ctx, req.Date, req.Time)
	if err != nil {
		return nil, err
	}

	r := &model.Reservation{
		ConfirmationCode:    s.newCode(),
		FirstName:           req.FirstName,
		LastName:            req.LastName,
		Email:               req.Email,
		Phone:               req.Phone,
		Date:                slot.Date,
		SlotTime:            slot.Start,
		PartySize:           req.PartySize,
		Occasion:            strings.TrimSpace(req.Occasion),
		SpecialRequests:     strings.TrimSpace(req.SpecialRequests),
		DietaryRestrictions: strings.TrimSpace(req.DietaryRestrictions),
		Status:              model.StatusPending,
	}

	err = s.store.CreateWithCommitment(ctx, r, slot.BaseCapacity)
	if errors.Is(err, ledger.ErrConflict) {
		// Lost the race: retry the whole unit once, then report the slot
		// as full.  The conflict itself never reaches the caller.
		err = s.store.CreateWithCommitment(ctx, r, slot.BaseCapacity)
		if errors.Is(err, ledger.ErrConflict) {
			return nil, ledger.ErrCapacityExceeded
		}
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// resolveSlot validates date and time against the booking horizon and the
// slot grid.  Dates outside the horizon are validation failures; a time
// that is not on the grid (or already past, for same-day bookings) is
// ErrSlotUnavailable.
func (s *Service) resolveSlot(ctx context.Context, date, timeStr string) (model.Slot, error) {
	today := s.now().Format(calendar.DateLayout)
	if err := calendar.CheckHorizon(date, today, s.cfg.HorizonDays); err != nil {
		switch {
		case errors.Is(err, calendar.ErrPastDate):
			return model.Slot{}, invalid("date", "date is in the past")
		case errors.Is(err, calendar.ErrBeyondHorizon):
			return model.Slot{}, invalid("date", "date is beyond the booking horizon")
		default:
			return model.Slot{}, invalid("date", "must be YYYY-MM-DD")
		}
	}
	t, err := model.ParseClock(timeStr)
	if err != nil {
		return model.Slot{}, invalid("time", "must be HH:MM")
	}

	weekday, err := calendar.Weekday(date)
	if err != nil {
		return model.Slot{}, invalid("date", "must be YYYY-MM-DD")
	}
	ov, err := s.sched.OverrideFor(ctx, date)
	if err != nil {
		return model.Slot{}, err
	}
	var sched *model.VenueSchedule
	if ov == nil {
		versions, err := s.sched.VersionsFor(ctx, weekday)
		if err != nil {
			return model.Slot{}, err
		}
		sched = calendar.EffectiveSchedule(versions, date)
	}
	slot, ok := calendar.SlotAt(date, t, sched, ov, s.cfg.MinServiceMinutes)
	if !ok {
		return model.Slot{}, ErrSlotUnavailable
	}
	if date == today {
		now := s.now()
		nowClock := model.ClockTime(now.Hour()*60 + now.Minute())
		if slot.Start <= nowClock {
			return model.Slot{}, ErrSlotUnavailable
		}
	}
	return slot, nil
}

func keepDigits(r rune) rune {
	if r >= '0' && r <= '9' {
		return r
	}
	return -1
}

// Confirm moves pending -> confirmed.  Capacity is already held.
func (s *Service) Confirm(ctx context.Context, id uint64) (*model.Reservation, error) {
	return s.store.Transition(ctx, id, []model.Status{model.StatusPending}, model.StatusConfirmed, false)
}

// Seat moves confirmed -> seated.  No capacity effect.
func (s *Service) Seat(ctx context.Context, id uint64) (*model.Reservation, error) {
	return s.store.Transition(ctx, id, []model.Status{model.StatusConfirmed}, model.StatusSeated, false)
}

// Complete moves seated -> completed.  Whether the commitment is released
// is a ledger-hygiene policy choice (the slot's date has passed either
// way), controlled by Config.ReleaseOnComplete.
func (s *Service) Complete(ctx context.Context, id uint64) (*model.Reservation, error) {
	return s.store.Transition(ctx, id, []model.Status{model.StatusSeated}, model.StatusCompleted, s.cfg.ReleaseOnComplete)
}

var nonTerminal = []model.Status{model.StatusPending, model.StatusConfirmed, model.StatusSeated}

// Cancel moves any non-terminal status to cancelled and releases the
// capacity commitment in the same transaction.
func (s *Service) Cancel(ctx context.Context, id uint64) (*model.Reservation, error) {
	return s.store.Transition(ctx, id, nonTerminal, model.StatusCancelled, true)
}

// CancelByCode is the customer self-service path: the caller proves
// ownership with the confirmation code plus the booking email.  A mismatch
// is repository.ErrForbidden; the cancellation itself behaves like Cancel.
func (s *Service) CancelByCode(ctx context.Context, code, email string) (*model.Reservation, error) {
	r, err := s.store.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(strings.TrimSpace(email), r.Email) {
		return nil, repository.ErrForbidden
	}
	return s.Cancel(ctx, r.ID)
}

// MarkNoShow moves any non-terminal status to no_show once the slot's
// service window has passed, releasing the commitment.  Calling it while
// the window is still open returns ErrTooEarly.
func (s *Service) MarkNoShow(ctx context.Context, id uint64) (*model.Reservation, error) {
	r, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.Status.Terminal() {
		return nil, repository.ErrInvalidTransition
	}
	day, err := calendar.ParseDate(r.Date)
	if err != nil {
		return nil, err
	}
	windowEnd := day.Add(time.Duration(int(r.SlotTime)+s.cfg.MinServiceMinutes) * time.Minute)
	// Compare wall clocks: re-express venue-local "now" in the same UTC
	// frame ParseDate uses, so no zone conversion sneaks in.
	n := s.now()
	nowWall := time.Date(n.Year(), n.Month(), n.Day(), n.Hour(), n.Minute(), 0, 0, time.UTC)
	if nowWall.Before(windowEnd) {
		return nil, ErrTooEarly
	}
	return s.store.Transition(ctx, id, nonTerminal, model.StatusNoShow, true)
}

// UpdateRequest is a staff edit to an existing reservation: a new party
// size, a new slot, or both.
type UpdateRequest struct {
	PartySize *int    `json:"party_size"`
	Date      *string `json:"date"`
	Time      *string `json:"time"`
}

// Update applies staff changes to a pending or confirmed reservation.  A
// slot move re-checks capacity at the target via release+reserve; a party
// size change goes through the ledger's adjust.  Both preserve the global
// invariant because the store executes them under the slot locks.
func (s *Service) Update(ctx context.Context, id uint64, req UpdateRequest) (*model.Reservation, error) {
	r, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Date != nil || req.Time != nil {
		date := r.Date
		timeStr := r.SlotTime.String()
		if req.Date != nil {
			date = *req.Date
		}
		if req.Time != nil {
			timeStr = *req.Time
		}
		slot, err := s.resolveSlot(ctx, date, timeStr)
		if err != nil {
			return nil, err
		}
		r, err = s.moveWithRetry(ctx, id, slot)
		if err != nil {
			return nil, err
		}
	}

	if req.PartySize != nil {
		size := *req.PartySize
		if size < s.cfg.PartyMin || size > s.cfg.PartyMax {
			return nil, invalid("party_size", "out of range")
		}
		slot, err := s.resolveCurrentSlot(ctx, r)
		if err != nil {
			return nil, err
		}
		r, err = s.adjustWithRetry(ctx, id, size, slot.BaseCapacity)
		if err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (s *Service) moveWithRetry(ctx context.Context, id uint64, slot model.Slot) (*model.Reservation, error) {
	r, err := s.store.MoveSlot(ctx, id, slot.Date, slot.Start, slot.BaseCapacity)
	if errors.Is(err, ledger.ErrConflict) {
		r, err = s.store.MoveSlot(ctx, id, slot.Date, slot.Start, slot.BaseCapacity)
		if errors.Is(err, ledger.ErrConflict) {
			return nil, ledger.ErrCapacityExceeded
		}
	}
	return r, err
}

func (s *Service) adjustWithRetry(ctx context.Context, id uint64, size, baseCapacity int) (*model.Reservation, error) {
	r, err := s.store.AdjustPartySize(ctx, id, size, baseCapacity)
	if errors.Is(err, ledger.ErrConflict) {
		r, err = s.store.AdjustPartySize(ctx, id, size, baseCapacity)
		if errors.Is(err, ledger.ErrConflict) {
			return nil, ledger.ErrCapacityExceeded
		}
	}
	return r, err
}

// resolveCurrentSlot looks up the slot a reservation currently occupies,
// for its base capacity.  A schedule change can remove the slot from the
// grid; the reservation's own committed seats still count, so the base
// capacity of the nearest configuration is used.
func (s *Service) resolveCurrentSlot(ctx context.Context, r *model.Reservation) (model.Slot, error) {
	weekday, err := calendar.Weekday(r.Date)
	if err != nil {
		return model.Slot{}, err
	}
	ov, err := s.sched.OverrideFor(ctx, r.Date)
	if err != nil {
		return model.Slot{}, err
	}
	var sched *model.VenueSchedule
	if ov == nil {
		versions, err := s.sched.VersionsFor(ctx, weekday)
		if err != nil {
			return model.Slot{}, err
		}
		sched = calendar.EffectiveSchedule(versions, r.Date)
	}
	if slot, ok := calendar.SlotAt(r.Date, r.SlotTime, sched, ov, s.cfg.MinServiceMinutes); ok {
		return slot, nil
	}
	return model.Slot{}, ErrSlotUnavailable
}

// LookupByContact lists a customer's reservations by email and phone.
func (s *Service) LookupByContact(ctx context.Context, email, phone string) ([]model.Reservation, error) {
	if !emailRe.MatchString(strings.ToLower(strings.TrimSpace(email))) {
		return nil, invalid("email", "not a valid email address")
	}
	if len(strings.Map(keepDigits, phone)) < 7 {
		return nil, invalid("phone", "not a valid phone number")
	}
	return s.store.ListByContact(ctx, email, phone)
}

// DaySheet lists every reservation for one date, for the floor staff.
func (s *Service) DaySheet(ctx context.Context, date string) ([]model.Reservation, error) {
	if _, err := calendar.ParseDate(date); err != nil {
		return nil, invalid("date", "must be YYYY-MM-DD")
	}
	return s.store.ListByDate(ctx, date)
}
