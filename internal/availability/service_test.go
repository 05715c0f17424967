package availability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/restaurant-reservation/internal/ledger"
	"github.com/iliyamo/restaurant-reservation/internal/model"
)

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

func newTestService(t *testing.T) (*Service, *ledger.Memory) {
	t.Helper()
	mem := ledger.NewMemory()
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
			"2026-09-08": {
				Date:         "2026-09-08",
				OpenTime:     model.ClockTime(18 * 60),
				CloseTime:    model.ClockTime(21 * 60),
				SlotMinutes:  60,
				BaseCapacity: 4,
			},
		},
	}
	svc := NewService(mem, sched, Config{HorizonDays: 90, MinServiceMinutes: 90})
	svc.now = func() time.Time { return time.Date(2026, 8, 31, 18, 10, 0, 0, time.UTC) }
	return svc, mem
}

func TestQueryFullGrid(t *testing.T) {
	svc, _ := newTestService(t)

	day, err := svc.Query(context.Background(), "2026-09-04", 2)
	require.NoError(t, err)
	assert.Empty(t, day.Reason)
	// 17:00 through 20:30 inclusive on a 30-minute grid.
	require.Len(t, day.Slots, 8)
	assert.Equal(t, "17:00", day.Slots[0].Time)
	assert.Equal(t, "5:00 PM", day.Slots[0].TimeDisplay)
	assert.Equal(t, "20:30", day.Slots[7].Time)
	for _, s := range day.Slots {
		assert.True(t, s.IsAvailable)
		assert.Equal(t, 10, s.AvailableCapacity)
	}
}

func TestQueryReflectsCommitments(t *testing.T) {
	svc, mem := newTestService(t)
	ctx := context.Background()
	slot := model.ClockTime(19 * 60)

	_, err := mem.Reserve(ctx, "2026-09-04", slot, 10, 6, 1)
	require.NoError(t, err)
	h2, err := mem.Reserve(ctx, "2026-09-04", slot, 10, 3, 2)
	require.NoError(t, err)

	day, err := svc.Query(ctx, "2026-09-04", 2)
	require.NoError(t, err)
	var at19 SlotView
	for _, s := range day.Slots {
		if s.Time == "19:00" {
			at19 = s
		}
	}
	assert.Equal(t, 1, at19.AvailableCapacity)
	assert.False(t, at19.IsAvailable) // party of 2 does not fit in 1 seat

	day, err = svc.Query(ctx, "2026-09-04", 1)
	require.NoError(t, err)
	for _, s := range day.Slots {
		if s.Time == "19:00" {
			assert.True(t, s.IsAvailable)
		}
	}

	// Releasing a commitment frees its seats on the next read.
	require.NoError(t, mem.Release(ctx, h2))
	day, err = svc.Query(ctx, "2026-09-04", 4)
	require.NoError(t, err)
	for _, s := range day.Slots {
		if s.Time == "19:00" {
			assert.Equal(t, 4, s.AvailableCapacity)
			assert.True(t, s.IsAvailable)
		}
	}
}

func TestQueryOutOfRangeDates(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	day, err := svc.Query(ctx, "2026-08-30", 2)
	require.NoError(t, err)
	assert.Equal(t, ReasonPast, day.Reason)
	assert.Empty(t, day.Slots)

	// 90 days out is the last bookable date; 91 is not.
	day, err = svc.Query(ctx, "2026-11-29", 2)
	require.NoError(t, err)
	assert.Empty(t, day.Reason)
	assert.NotEmpty(t, day.Slots)

	day, err = svc.Query(ctx, "2026-11-30", 2)
	require.NoError(t, err)
	assert.Equal(t, ReasonBeyondHorizon, day.Reason)
	assert.Empty(t, day.Slots)

	_, err = svc.Query(ctx, "August 31", 2)
	assert.ErrorIs(t, err, ErrBadDate)
}

func TestQueryClosedDay(t *testing.T) {
	svc, _ := newTestService(t)

	day, err := svc.Query(context.Background(), "2026-09-07", 2)
	require.NoError(t, err)
	assert.Equal(t, ReasonClosed, day.Reason)
	assert.Empty(t, day.Slots)
}

func TestQueryOverrideHours(t *testing.T) {
	svc, _ := newTestService(t)

	day, err := svc.Query(context.Background(), "2026-09-08", 2)
	require.NoError(t, err)
	// 18:00 and 19:00 on the override's hour grid; 19:30 close cutoff
	// leaves nothing later.
	require.Len(t, day.Slots, 2)
	assert.Equal(t, "18:00", day.Slots[0].Time)
	assert.Equal(t, "19:00", day.Slots[1].Time)
	assert.Equal(t, 4, day.Slots[0].AvailableCapacity)
}

func TestQuerySameDayPastSlots(t *testing.T) {
	svc, _ := newTestService(t)

	// "Now" is 18:10: 17:00, 17:30, and 18:00 have started already.
	day, err := svc.Query(context.Background(), "2026-08-31", 2)
	require.NoError(t, err)
	require.Len(t, day.Slots, 8)
	for _, s := range day.Slots {
		started := s.Time == "17:00" || s.Time == "17:30" || s.Time == "18:00"
		assert.Equal(t, !started, s.IsAvailable, "slot %s", s.Time)
		// Past slots still report their remaining capacity.
		assert.Equal(t, 10, s.AvailableCapacity)
	}
}

func TestHoursFor(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	h, err := svc.HoursFor(ctx, "2026-09-04")
	require.NoError(t, err)
	assert.False(t, h.Closed)
	assert.Equal(t, "17:00", h.OpenTime)
	assert.Equal(t, "22:00", h.CloseTime)
	assert.Equal(t, 30, h.SlotMinutes)

	h, err = svc.HoursFor(ctx, "2026-09-07")
	require.NoError(t, err)
	assert.True(t, h.Closed)

	h, err = svc.HoursFor(ctx, "2026-09-08")
	require.NoError(t, err)
	assert.Equal(t, "18:00", h.OpenTime)
	assert.Equal(t, 60, h.SlotMinutes)

	_, err = svc.HoursFor(ctx, "bad")
	assert.ErrorIs(t, err, ErrBadDate)
}
