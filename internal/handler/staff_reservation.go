package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-reservation/internal/booking"
	"github.com/iliyamo/restaurant-reservation/internal/model"
)

// StaffReservationHandler serves the floor staff surface: status
// transitions, edits, and the day sheet.
type StaffReservationHandler struct {
	Booking *booking.Service
}

func NewStaffReservationHandler(b *booking.Service) *StaffReservationHandler {
	return &StaffReservationHandler{Booking: b}
}

func (h *StaffReservationHandler) transition(c echo.Context, event string, op func(context.Context, uint64) (*model.Reservation, error)) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	r, err := op(c.Request().Context(), id)
	if err != nil {
		return bookingError(c, err)
	}
	publishEvent(event, r)
	return c.JSON(http.StatusOK, viewOf(r))
}

// Confirm handles PATCH /v1/staff/reservations/:id/confirm.
func (h *StaffReservationHandler) Confirm(c echo.Context) error {
	return h.transition(c, "confirmed", h.Booking.Confirm)
}

// Seat handles PATCH /v1/staff/reservations/:id/seat.
func (h *StaffReservationHandler) Seat(c echo.Context) error {
	return h.transition(c, "seated", h.Booking.Seat)
}

// Complete handles PATCH /v1/staff/reservations/:id/complete.
func (h *StaffReservationHandler) Complete(c echo.Context) error {
	return h.transition(c, "completed", h.Booking.Complete)
}

// Cancel handles PATCH /v1/staff/reservations/:id/cancel.
func (h *StaffReservationHandler) Cancel(c echo.Context) error {
	return h.transition(c, "cancelled", h.Booking.Cancel)
}

// NoShow handles PATCH /v1/staff/reservations/:id/no-show.  It fails with
// 409 too_early while the slot's service window is still open.
func (h *StaffReservationHandler) NoShow(c echo.Context) error {
	return h.transition(c, "no_show", h.Booking.MarkNoShow)
}

// Update handles PATCH /v1/staff/reservations/:id: a new party size, a new
// slot, or both.
func (h *StaffReservationHandler) Update(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	var req booking.UpdateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.PartySize == nil && req.Date == nil && req.Time == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "nothing to update"})
	}
	r, err := h.Booking.Update(c.Request().Context(), id, req)
	if err != nil {
		return bookingError(c, err)
	}
	publishEvent("updated", r)
	return c.JSON(http.StatusOK, viewOf(r))
}

// DaySheet handles GET /v1/staff/reservations?date=YYYY-MM-DD.
func (h *StaffReservationHandler) DaySheet(c echo.Context) error {
	date := strings.TrimSpace(c.QueryParam("date"))
	if date == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date is required"})
	}
	rs, err := h.Booking.DaySheet(c.Request().Context(), date)
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"date": date, "reservations": viewsOf(rs)})
}
