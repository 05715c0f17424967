package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-reservation/internal/calendar"
	"github.com/iliyamo/restaurant-reservation/internal/model"
	"github.com/iliyamo/restaurant-reservation/internal/repository"
)

// ScheduleHandler serves the manager surface for operating hours: weekly
// schedule versions and per-date overrides.
type ScheduleHandler struct {
	Sched *repository.ScheduleRepo
}

func NewScheduleHandler(s *repository.ScheduleRepo) *ScheduleHandler {
	return &ScheduleHandler{Sched: s}
}

type scheduleReq struct {
	OpenTime      string `json:"open_time"`
	CloseTime     string `json:"close_time"`
	SlotMinutes   int    `json:"slot_minutes"`
	BaseCapacity  int    `json:"base_capacity"`
	EffectiveFrom string `json:"effective_from"`
}

type scheduleView struct {
	ID            uint64 `json:"id"`
	Weekday       int    `json:"weekday"`
	OpenTime      string `json:"open_time"`
	CloseTime     string `json:"close_time"`
	SlotMinutes   int    `json:"slot_minutes"`
	BaseCapacity  int    `json:"base_capacity"`
	EffectiveFrom string `json:"effective_from"`
}

func scheduleViewOf(s *model.VenueSchedule) scheduleView {
	return scheduleView{
		ID:            s.ID,
		Weekday:       int(s.Weekday),
		OpenTime:      s.OpenTime.String(),
		CloseTime:     s.CloseTime.String(),
		SlotMinutes:   s.SlotMinutes,
		BaseCapacity:  s.BaseCapacity,
		EffectiveFrom: s.EffectiveFrom,
	}
}

// CreateVersion handles PUT /v1/staff/schedule/:weekday.  Schedule rows
// are append-only versions: existing reservations keep the configuration
// they were booked under, new dates resolve against the latest effective
// version.
func (h *ScheduleHandler) CreateVersion(c echo.Context) error {
	weekday, err := strconv.Atoi(c.Param("weekday"))
	if err != nil || weekday < 0 || weekday > 6 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "weekday must be 0-6 (0 = Sunday)"})
	}
	var req scheduleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	open, err := model.ParseClock(req.OpenTime)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "open_time must be HH:MM"})
	}
	closing, err := model.ParseClock(req.CloseTime)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "close_time must be HH:MM"})
	}
	if closing <= open {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "close_time must be after open_time"})
	}
	if req.SlotMinutes <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "slot_minutes must be positive"})
	}
	if req.BaseCapacity <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "base_capacity must be positive"})
	}
	if _, err := calendar.ParseDate(req.EffectiveFrom); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "effective_from must be YYYY-MM-DD"})
	}

	s := &model.VenueSchedule{
		Weekday:       time.Weekday(weekday),
		OpenTime:      open,
		CloseTime:     closing,
		SlotMinutes:   req.SlotMinutes,
		BaseCapacity:  req.BaseCapacity,
		EffectiveFrom: req.EffectiveFrom,
	}
	if err := h.Sched.CreateVersion(c.Request().Context(), s); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "version already exists for this weekday and effective date"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create schedule failed"})
	}
	return c.JSON(http.StatusCreated, scheduleViewOf(s))
}

// List handles GET /v1/staff/schedule: every version, newest first per
// weekday.
func (h *ScheduleHandler) List(c echo.Context) error {
	all, err := h.Sched.ListAll(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list schedule failed"})
	}
	out := make([]scheduleView, 0, len(all))
	for i := range all {
		out = append(out, scheduleViewOf(&all[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"schedule": out})
}

type overrideReq struct {
	Closed       bool   `json:"closed"`
	OpenTime     string `json:"open_time"`
	CloseTime    string `json:"close_time"`
	SlotMinutes  int    `json:"slot_minutes"`
	BaseCapacity int    `json:"base_capacity"`
	Reason       string `json:"reason"`
}

type overrideView struct {
	Date         string `json:"date"`
	Closed       bool   `json:"closed"`
	OpenTime     string `json:"open_time,omitempty"`
	CloseTime    string `json:"close_time,omitempty"`
	SlotMinutes  int    `json:"slot_minutes,omitempty"`
	BaseCapacity int    `json:"base_capacity,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

func overrideViewOf(ov *model.DateOverride) overrideView {
	v := overrideView{Date: ov.Date, Closed: ov.Closed, Reason: ov.Reason}
	if !ov.Closed {
		v.OpenTime = ov.OpenTime.String()
		v.CloseTime = ov.CloseTime.String()
		v.SlotMinutes = ov.SlotMinutes
		v.BaseCapacity = ov.BaseCapacity
	}
	return v
}

// UpsertOverride handles PUT /v1/staff/overrides/:date.  A closed override
// needs no hours; an open one replaces the weekly schedule for that date.
func (h *ScheduleHandler) UpsertOverride(c echo.Context) error {
	date := strings.TrimSpace(c.Param("date"))
	if _, err := calendar.ParseDate(date); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
	}
	var req overrideReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ov := &model.DateOverride{Date: date, Closed: req.Closed, Reason: strings.TrimSpace(req.Reason)}
	if !req.Closed {
		open, err := model.ParseClock(req.OpenTime)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "open_time must be HH:MM"})
		}
		closing, err := model.ParseClock(req.CloseTime)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "close_time must be HH:MM"})
		}
		if closing <= open {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "close_time must be after open_time"})
		}
		if req.SlotMinutes <= 0 || req.BaseCapacity <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "slot_minutes and base_capacity must be positive"})
		}
		ov.OpenTime = open
		ov.CloseTime = closing
		ov.SlotMinutes = req.SlotMinutes
		ov.BaseCapacity = req.BaseCapacity
	}

	if err := h.Sched.UpsertOverride(c.Request().Context(), ov); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save override failed"})
	}
	return c.JSON(http.StatusOK, overrideViewOf(ov))
}

// DeleteOverride handles DELETE /v1/staff/overrides/:date.
func (h *ScheduleHandler) DeleteOverride(c echo.Context) error {
	date := strings.TrimSpace(c.Param("date"))
	if _, err := calendar.ParseDate(date); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
	}
	if err := h.Sched.DeleteOverride(c.Request().Context(), date); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "no override for this date"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete override failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// ListOverrides handles GET /v1/staff/overrides?from=&to=.
func (h *ScheduleHandler) ListOverrides(c echo.Context) error {
	from := strings.TrimSpace(c.QueryParam("from"))
	to := strings.TrimSpace(c.QueryParam("to"))
	if _, err := calendar.ParseDate(from); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "from must be YYYY-MM-DD"})
	}
	if _, err := calendar.ParseDate(to); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "to must be YYYY-MM-DD"})
	}
	ovs, err := h.Sched.ListOverrides(c.Request().Context(), from, to)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list overrides failed"})
	}
	out := make([]overrideView, 0, len(ovs))
	for i := range ovs {
		out = append(out, overrideViewOf(&ovs[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"overrides": out})
}
