package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/restaurant-reservation/internal/ledger"
	"github.com/iliyamo/restaurant-reservation/internal/model"
	"github.com/iliyamo/restaurant-reservation/internal/repository"
)

// fakeStore implements Store over the in-memory ledger, mirroring the
// pairing the MySQL store guarantees: a reservation row exists exactly when
// its commitment was accepted.  CreateErrs lets tests inject one error per
// call ahead of the real behavior, to exercise the conflict retry.
type fakeStore struct {
	mu         sync.Mutex
	ledger     ledger.Ledger
	nextID     uint64
	rows       map[uint64]*model.Reservation
	handles    map[uint64]ledger.Handle
	CreateErrs []error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		ledger:  ledger.NewMemory(),
		rows:    make(map[uint64]*model.Reservation),
		handles: make(map[uint64]ledger.Handle),
	}
}

func (f *fakeStore) CreateWithCommitment(ctx context.Context, r *model.Reservation, baseCapacity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.CreateErrs) > 0 {
		err := f.CreateErrs[0]
		f.CreateErrs = f.CreateErrs[1:]
		if err != nil {
			return err
		}
	}
	id := f.nextID + 1
	h, err := f.ledger.Reserve(ctx, r.Date, r.SlotTime, baseCapacity, r.PartySize, id)
	if err != nil {
		return err
	}
	f.nextID = id
	r.ID = id
	r.Status = model.StatusPending
	r.CreatedAt = time.Now()
	r.UpdatedAt = r.CreatedAt
	cp := *r
	f.rows[id] = &cp
	f.handles[id] = h
	return nil
}

func (f *fakeStore) GetByID(ctx context.Context, id uint64) (*model.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeStore) GetByCode(ctx context.Context, code string) (*model.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.ConfirmationCode == code {
			cp := *r
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeStore) Transition(ctx context.Context, id uint64, from []model.Status, to model.Status, release bool) (*model.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	allowed := false
	for _, s := range from {
		if r.Status == s {
			allowed = true
		}
	}
	if !allowed {
		return nil, repository.ErrInvalidTransition
	}
	r.Status = to
	if release {
		if err := f.ledger.Release(ctx, f.handles[id]); err != nil {
			return nil, err
		}
	}
	cp := *r
	return &cp, nil
}

func (f *fakeStore) AdjustPartySize(ctx context.Context, id uint64, newSize, baseCapacity int) (*model.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if r.Status != model.StatusPending && r.Status != model.StatusConfirmed {
		return nil, repository.ErrInvalidTransition
	}
	if err := f.ledger.Adjust(ctx, f.handles[id], baseCapacity, newSize); err != nil {
		return nil, err
	}
	r.PartySize = newSize
	cp := *r
	return &cp, nil
}

func (f *fakeStore) MoveSlot(ctx context.Context, id uint64, date string, slot model.ClockTime, baseCapacity int) (*model.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if r.Status != model.StatusPending && r.Status != model.StatusConfirmed {
		return nil, repository.ErrInvalidTransition
	}
	h, err := f.ledger.Reserve(ctx, date, slot, baseCapacity, r.PartySize, id)
	if err != nil {
		return nil, err
	}
	_ = f.ledger.Release(ctx, f.handles[id])
	f.handles[id] = h
	r.Date = date
	r.SlotTime = slot
	cp := *r
	return &cp, nil
}

func (f *fakeStore) ListByContact(ctx context.Context, email, phone string) ([]model.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Reservation
	for _, r := range f.rows {
		if r.Email == email {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeStore) ListByDate(ctx context.Context, date string) ([]model.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Reservation
	for _, r := range f.rows {
		if r.Date == date {
			out = append(out, *r)
		}
	}
	return out, nil
}

// fakeSchedule serves one schedule version for every weekday plus optional
// per-date overrides.
type fakeSchedule struct {
	version   model.VenueSchedule
	overrides map[string]*model.DateOverride
}

func (f *fakeSchedule) VersionsFor(ctx context.Context, weekday time.Weekday) ([]model.VenueSchedule, error) {
	v := f.version
	v.Weekday = weekday
	return []model.VenueSchedule{v}, nil
}

func (f *fakeSchedule) OverrideFor(ctx context.Context, date string) (*model.DateOverride, error) {
	return f.overrides[date], nil
}

func testConfig() Config {
	return Config{
		HorizonDays:       90,
		PartyMin:          1,
		PartyMax:          20,
		MinServiceMinutes: 90,
		ReleaseOnComplete: true,
	}
}

// newTestService wires a Service against the fakes with "now" pinned to
// 2026-08-31 12:00 so every date in the tests is deterministic.
func newTestService(t *testing.T) (*Service, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	sched := &fakeSchedule{
		version: model.VenueSchedule{
			OpenTime:      model.ClockTime(17 * 60),
			CloseTime:     model.ClockTime(22 * 60),
			SlotMinutes:   30,
			BaseCapacity:  10,
			EffectiveFrom: "2020-01-01",
		},
		overrides: map[string]*model.DateOverride{
			"2026-09-07": {Date: "2026-09-07", Closed: true},
		},
	}
	svc := NewService(store, sched, testConfig())
	svc.now = func() time.Time { return time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC) }
	var n atomic.Uint64
	svc.newCode = func() string { return fmt.Sprintf("code-%d", n.Add(1)) }
	return svc, store
}

func validRequest() CreateRequest {
	return CreateRequest{
		FirstName: "Ada",
		LastName:  "Moretti",
		Email:     "Ada.Moretti@example.com",
		Phone:     "(555) 010-2030",
		Date:      "2026-09-04",
		Time:      "19:00",
		PartySize: 6,
		Occasion:  "birthday",
	}
}

func TestCreateHoldsCapacity(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	r, err := svc.Create(ctx, validRequest())
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, r.Status)
	assert.Equal(t, "ada.moretti@example.com", r.Email) // normalized
	assert.NotEmpty(t, r.ConfirmationCode)
	assert.Equal(t, "19:00", r.SlotTime.String())

	sum, err := store.ledger.Committed(ctx, "2026-09-04", r.SlotTime)
	require.NoError(t, err)
	assert.Equal(t, 6, sum)
}

func TestCreateValidation(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*CreateRequest)
		field  string
	}{
		{"missing first name", func(r *CreateRequest) { r.FirstName = " " }, "first_name"},
		{"missing last name", func(r *CreateRequest) { r.LastName = "" }, "last_name"},
		{"bad email", func(r *CreateRequest) { r.Email = "not-an-email" }, "email"},
		{"bad phone", func(r *CreateRequest) { r.Phone = "12345" }, "phone"},
		{"party too small", func(r *CreateRequest) { r.PartySize = 0 }, "party_size"},
		{"party too large", func(r *CreateRequest) { r.PartySize = 21 }, "party_size"},
		{"past date", func(r *CreateRequest) { r.Date = "2026-08-30" }, "date"},
		{"beyond horizon", func(r *CreateRequest) { r.Date = "2026-11-30" }, "date"},
		{"garbage date", func(r *CreateRequest) { r.Date = "09/04/2026" }, "date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)
			_, err := svc.Create(ctx, req)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}

	// No residue from any failed attempt.
	assert.Empty(t, store.rows)
}

func TestCreateSlotUnavailable(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*CreateRequest)
	}{
		{"closed by override", func(r *CreateRequest) { r.Date = "2026-09-07" }},
		{"off the granularity grid", func(r *CreateRequest) { r.Time = "19:15" }},
		{"too close to closing", func(r *CreateRequest) { r.Time = "21:30" }},
		{"before opening", func(r *CreateRequest) { r.Time = "11:00" }},
		{"same-day slot already passed", func(r *CreateRequest) { r.Date = "2026-08-31"; r.Time = "17:00" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)
			_, err := svc.Create(ctx, req)
			assert.ErrorIs(t, err, ErrSlotUnavailable)
		})
	}
}

func TestCreateSameDayLaterSlot(t *testing.T) {
	svc, _ := newTestService(t)
	req := validRequest()
	req.Date = "2026-08-31" // "now" is 12:00; dinner slots are all ahead
	req.Time = "19:00"
	_, err := svc.Create(context.Background(), req)
	assert.NoError(t, err)
}

func TestCreateCapacityExceededLeavesNothing(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	full := validRequest()
	full.PartySize = 10
	_, err := svc.Create(ctx, full)
	require.NoError(t, err)

	req := validRequest()
	req.Email = "second@example.com"
	req.PartySize = 1
	_, err = svc.Create(ctx, req)
	assert.ErrorIs(t, err, ledger.ErrCapacityExceeded)

	assert.Len(t, store.rows, 1)
	sum, _ := store.ledger.Committed(ctx, "2026-09-04", model.ClockTime(19*60))
	assert.Equal(t, 10, sum)
}

func TestCreateBoundaryExactFit(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first := validRequest()
	first.PartySize = 4
	_, err := svc.Create(ctx, first)
	require.NoError(t, err)

	// Exactly the remaining capacity succeeds; one more fails.
	second := validRequest()
	second.PartySize = 6
	_, err = svc.Create(ctx, second)
	require.NoError(t, err)

	third := validRequest()
	third.PartySize = 1
	_, err = svc.Create(ctx, third)
	assert.ErrorIs(t, err, ledger.ErrCapacityExceeded)
}

func TestCreateRetriesConflictOnce(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	store.CreateErrs = []error{ledger.ErrConflict}
	r, err := svc.Create(ctx, validRequest())
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, r.Status)

	// Two conflicts in a row surface as capacity exhaustion, never as the
	// internal conflict.
	store.CreateErrs = []error{ledger.ErrConflict, ledger.ErrConflict}
	req := validRequest()
	req.Time = "20:00"
	_, err = svc.Create(ctx, req)
	assert.ErrorIs(t, err, ledger.ErrCapacityExceeded)
	assert.NotErrorIs(t, err, ledger.ErrConflict)
}

func TestCreateConcurrentNoOversell(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	// Five parties of four race for ten seats: exactly two fit.
	const callers = 5
	var ok, full atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := validRequest()
			req.PartySize = 4
			_, err := svc.Create(ctx, req)
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, ledger.ErrCapacityExceeded):
				full.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(2), ok.Load())
	assert.Equal(t, int32(callers-2), full.Load())
	sum, err := store.ledger.Committed(ctx, "2026-09-04", model.ClockTime(19*60))
	require.NoError(t, err)
	assert.Equal(t, 8, sum)
}

func TestLifecycleHappyPath(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	r, err := svc.Create(ctx, validRequest())
	require.NoError(t, err)

	r, err = svc.Confirm(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, r.Status)

	r, err = svc.Seat(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSeated, r.Status)

	// Capacity held through confirm and seat.
	sum, _ := store.ledger.Committed(ctx, r.Date, r.SlotTime)
	assert.Equal(t, 6, sum)

	r, err = svc.Complete(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, r.Status)

	// ReleaseOnComplete is set, so the commitment is released.
	sum, _ = store.ledger.Committed(ctx, r.Date, r.SlotTime)
	assert.Equal(t, 0, sum)
}

func TestIllegalTransitions(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	r, err := svc.Create(ctx, validRequest())
	require.NoError(t, err)

	// Cannot seat a pending reservation (it must be confirmed first).
	_, err = svc.Seat(ctx, r.ID)
	assert.ErrorIs(t, err, repository.ErrInvalidTransition)

	_, err = svc.Cancel(ctx, r.ID)
	require.NoError(t, err)

	// Seat on a cancelled reservation: rejected, status unchanged.
	_, err = svc.Seat(ctx, r.ID)
	assert.ErrorIs(t, err, repository.ErrInvalidTransition)
	got, err := svc.store.GetByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, got.Status)

	_, err = svc.Confirm(ctx, 999)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCancelReleasesOnce(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	r, err := svc.Create(ctx, validRequest())
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, r.ID)
	require.NoError(t, err)
	sum, _ := store.ledger.Committed(ctx, r.Date, r.SlotTime)
	assert.Equal(t, 0, sum)

	// Second cancel is an invalid transition and releases nothing more:
	// the freed seats can be rebooked exactly once.
	_, err = svc.Cancel(ctx, r.ID)
	assert.ErrorIs(t, err, repository.ErrInvalidTransition)

	again := validRequest()
	again.PartySize = 10
	_, err = svc.Create(ctx, again)
	assert.NoError(t, err)
}

func TestCancelScenario(t *testing.T) {
	// book 6 -> book 5 fails -> book 4 -> cancel the 6 -> 6 seats free.
	svc, store := newTestService(t)
	ctx := context.Background()
	slot := model.ClockTime(19 * 60)

	first := validRequest()
	r1, err := svc.Create(ctx, first)
	require.NoError(t, err)

	five := validRequest()
	five.PartySize = 5
	_, err = svc.Create(ctx, five)
	assert.ErrorIs(t, err, ledger.ErrCapacityExceeded)

	four := validRequest()
	four.PartySize = 4
	_, err = svc.Create(ctx, four)
	require.NoError(t, err)

	sum, _ := store.ledger.Committed(ctx, "2026-09-04", slot)
	assert.Equal(t, 10, sum)

	_, err = svc.Cancel(ctx, r1.ID)
	require.NoError(t, err)
	sum, _ = store.ledger.Committed(ctx, "2026-09-04", slot)
	assert.Equal(t, 4, sum)
}

func TestCancelByCode(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	r, err := svc.Create(ctx, validRequest())
	require.NoError(t, err)

	_, err = svc.CancelByCode(ctx, r.ConfirmationCode, "someone-else@example.com")
	assert.ErrorIs(t, err, repository.ErrForbidden)

	got, err := svc.CancelByCode(ctx, r.ConfirmationCode, "Ada.Moretti@example.com")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, got.Status)

	_, err = svc.CancelByCode(ctx, "missing-code", "ada.moretti@example.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestMarkNoShow(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	r, err := svc.Create(ctx, validRequest())
	require.NoError(t, err)

	// The slot is days away: too early to call it a no-show.
	_, err = svc.MarkNoShow(ctx, r.ID)
	assert.ErrorIs(t, err, ErrTooEarly)

	// Advance past the slot's service window.
	svc.now = func() time.Time { return time.Date(2026, 9, 4, 21, 0, 0, 0, time.UTC) }
	got, err := svc.MarkNoShow(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusNoShow, got.Status)
	sum, _ := store.ledger.Committed(ctx, r.Date, r.SlotTime)
	assert.Equal(t, 0, sum)

	// Terminal now: a second attempt is an invalid transition.
	_, err = svc.MarkNoShow(ctx, r.ID)
	assert.ErrorIs(t, err, repository.ErrInvalidTransition)
}

func TestUpdatePartySize(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	r, err := svc.Create(ctx, validRequest())
	require.NoError(t, err)
	other := validRequest()
	other.PartySize = 3
	_, err = svc.Create(ctx, other)
	require.NoError(t, err)

	// 6 -> 7 fits alongside the party of 3; 6 -> 8 would not.
	seven := 7
	got, err := svc.Update(ctx, r.ID, UpdateRequest{PartySize: &seven})
	require.NoError(t, err)
	assert.Equal(t, 7, got.PartySize)

	eight := 8
	_, err = svc.Update(ctx, r.ID, UpdateRequest{PartySize: &eight})
	assert.ErrorIs(t, err, ledger.ErrCapacityExceeded)

	sum, _ := store.ledger.Committed(ctx, r.Date, r.SlotTime)
	assert.Equal(t, 10, sum)
}

func TestUpdateMoveSlot(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	r, err := svc.Create(ctx, validRequest())
	require.NoError(t, err)

	newTime := "20:30"
	got, err := svc.Update(ctx, r.ID, UpdateRequest{Time: &newTime})
	require.NoError(t, err)
	assert.Equal(t, "20:30", got.SlotTime.String())

	old, _ := store.ledger.Committed(ctx, "2026-09-04", model.ClockTime(19*60))
	assert.Equal(t, 0, old)
	moved, _ := store.ledger.Committed(ctx, "2026-09-04", model.ClockTime(20*60+30))
	assert.Equal(t, 6, moved)

	// Moving to a non-slot time is rejected without touching capacity.
	bad := "23:00"
	_, err = svc.Update(ctx, r.ID, UpdateRequest{Time: &bad})
	assert.ErrorIs(t, err, ErrSlotUnavailable)
}
