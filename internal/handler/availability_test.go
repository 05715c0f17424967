package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/restaurant-reservation/internal/availability"
	"github.com/iliyamo/restaurant-reservation/internal/booking"
	"github.com/iliyamo/restaurant-reservation/internal/ledger"
	"github.com/iliyamo/restaurant-reservation/internal/model"
)

type stubSchedule struct{}

func (stubSchedule) VersionsFor(ctx context.Context, weekday time.Weekday) ([]model.VenueSchedule, error) {
	return []model.VenueSchedule{{
		Weekday:       weekday,
		OpenTime:      model.ClockTime(17 * 60),
		CloseTime:     model.ClockTime(22 * 60),
		SlotMinutes:   30,
		BaseCapacity:  10,
		EffectiveFrom: "2020-01-01",
	}}, nil
}

func (stubSchedule) OverrideFor(ctx context.Context, date string) (*model.DateOverride, error) {
	return nil, nil
}

func newAvailabilityHandler(t *testing.T) *AvailabilityHandler {
	t.Helper()
	svc := availability.NewService(ledger.NewMemory(), stubSchedule{}, availability.Config{
		HorizonDays:       90,
		MinServiceMinutes: 90,
	})
	return NewAvailabilityHandler(svc, 1, 20)
}

func doGET(h echo.HandlerFunc, target string) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	_ = h(e.NewContext(req, rec))
	return rec
}

func TestAvailabilityQueryEndpoint(t *testing.T) {
	h := newAvailabilityHandler(t)
	future := time.Now().AddDate(0, 0, 7).Format("2006-01-02")

	rec := doGET(h.Query, "/v1/availability?date="+future+"&party_size=4")
	require.Equal(t, http.StatusOK, rec.Code)

	var day availability.DayAvailability
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &day))
	assert.Equal(t, future, day.Date)
	assert.Len(t, day.Slots, 8)
	for _, s := range day.Slots {
		assert.True(t, s.IsAvailable)
		assert.Equal(t, 10, s.AvailableCapacity)
	}
}

func TestAvailabilityQueryBadInput(t *testing.T) {
	h := newAvailabilityHandler(t)

	rec := doGET(h.Query, "/v1/availability")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doGET(h.Query, "/v1/availability?date=2026-09-04&party_size=zero")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doGET(h.Query, "/v1/availability?date=2026-09-04&party_size=99")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doGET(h.Query, "/v1/availability?date=not-a-date&party_size=2")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAvailabilityQueryPastDateIsAnswer(t *testing.T) {
	h := newAvailabilityHandler(t)
	past := time.Now().AddDate(0, 0, -3).Format("2006-01-02")

	rec := doGET(h.Query, "/v1/availability?date="+past)
	require.Equal(t, http.StatusOK, rec.Code)

	var day availability.DayAvailability
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &day))
	assert.Equal(t, availability.ReasonPast, day.Reason)
	assert.Empty(t, day.Slots)
}

func TestHoursEndpoint(t *testing.T) {
	h := newAvailabilityHandler(t)

	rec := doGET(h.Hours, "/v1/hours?date=2026-09-04")
	require.Equal(t, http.StatusOK, rec.Code)

	var hours availability.Hours
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &hours))
	assert.False(t, hours.Closed)
	assert.Equal(t, "17:00", hours.OpenTime)
	assert.Equal(t, "22:00", hours.CloseTime)
}

// Validation failures on create must surface the offending field and never
// reach storage; a nil store proves the handler rejects before persisting.
func TestCreateReservationValidationMapping(t *testing.T) {
	svc := booking.NewService(nil, stubSchedule{}, booking.Config{
		HorizonDays:       90,
		PartyMin:          1,
		PartyMax:          20,
		MinServiceMinutes: 90,
	})
	h := NewReservationHandler(svc)

	body := `{"first_name":"Ada","last_name":"Moretti","email":"bad-email","phone":"5550102030","date":"2099-01-01","time":"19:00","party_size":2}`
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/reservations", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	require.NoError(t, h.Create(e.NewContext(req, rec)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "validation_failed", resp["error"])
	assert.Equal(t, "email", resp["field"])
}
