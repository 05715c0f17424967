package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-reservation/internal/booking"
	"github.com/iliyamo/restaurant-reservation/internal/ledger"
	"github.com/iliyamo/restaurant-reservation/internal/model"
	"github.com/iliyamo/restaurant-reservation/internal/queue"
	"github.com/iliyamo/restaurant-reservation/internal/repository"
	queue_publisher "github.com/iliyamo/restaurant-reservation/internal/service"
)

// ReservationHandler serves the public booking surface: create, lookup by
// contact, and self-service cancellation by confirmation code.
type ReservationHandler struct {
	Booking *booking.Service
}

func NewReservationHandler(b *booking.Service) *ReservationHandler {
	return &ReservationHandler{Booking: b}
}

// reservationView is the JSON shape of a reservation on the wire.
type reservationView struct {
	ID                  uint64 `json:"id"`
	ConfirmationCode    string `json:"confirmation_code"`
	FirstName           string `json:"first_name"`
	LastName            string `json:"last_name"`
	Email               string `json:"email"`
	Phone               string `json:"phone"`
	Date                string `json:"date"`
	Time                string `json:"time"`
	TimeDisplay         string `json:"time_display"`
	PartySize           int    `json:"party_size"`
	Occasion            string `json:"occasion,omitempty"`
	SpecialRequests     string `json:"special_requests,omitempty"`
	DietaryRestrictions string `json:"dietary_restrictions,omitempty"`
	Status              string `json:"status"`
	CreatedAt           string `json:"created_at"`
	UpdatedAt           string `json:"updated_at"`
}

func viewOf(r *model.Reservation) reservationView {
	return reservationView{
		ID:                  r.ID,
		ConfirmationCode:    r.ConfirmationCode,
		FirstName:           r.FirstName,
		LastName:            r.LastName,
		Email:               r.Email,
		Phone:               r.Phone,
		Date:                r.Date,
		Time:                r.SlotTime.String(),
		TimeDisplay:         r.SlotTime.Display(),
		PartySize:           r.PartySize,
		Occasion:            r.Occasion,
		SpecialRequests:     r.SpecialRequests,
		DietaryRestrictions: r.DietaryRestrictions,
		Status:              string(r.Status),
		CreatedAt:           r.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:           r.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func viewsOf(rs []model.Reservation) []reservationView {
	out := make([]reservationView, 0, len(rs))
	for i := range rs {
		out = append(out, viewOf(&rs[i]))
	}
	return out
}

// publishEvent fires a reservation event to the broker in the background.
// Booking outcomes never depend on the broker being up.
func publishEvent(typ string, r *model.Reservation) {
	ev := queue.ReservationEvent{
		Type:             typ,
		ReservationID:    r.ID,
		ConfirmationCode: r.ConfirmationCode,
		GuestName:        r.FirstName + " " + r.LastName,
		Email:            r.Email,
		Date:             r.Date,
		Time:             r.SlotTime.String(),
		PartySize:        r.PartySize,
		Status:           string(r.Status),
		OccurredAt:       time.Now().UTC().Format(time.RFC3339),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = queue_publisher.PublishReservationEvent(ctx, ev)
	}()
}

// bookingError maps service errors to HTTP responses shared by the public
// and staff surfaces.
func bookingError(c echo.Context, err error) error {
	var verr *booking.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation_failed", "field": verr.Field, "message": verr.Msg})
	case errors.Is(err, booking.ErrSlotUnavailable):
		return c.JSON(http.StatusConflict, echo.Map{"error": "slot_unavailable"})
	case errors.Is(err, ledger.ErrCapacityExceeded):
		return c.JSON(http.StatusConflict, echo.Map{"error": "capacity_exceeded"})
	case errors.Is(err, booking.ErrTooEarly):
		return c.JSON(http.StatusConflict, echo.Map{"error": "too_early"})
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "email does not match reservation"})
	case errors.Is(err, repository.ErrInvalidTransition):
		return c.JSON(http.StatusConflict, echo.Map{"error": "invalid_status_transition"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reservation operation failed"})
	}
}

// Create handles POST /v1/reservations.
func (h *ReservationHandler) Create(c echo.Context) error {
	var req booking.CreateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	r, err := h.Booking.Create(c.Request().Context(), req)
	if err != nil {
		return bookingError(c, err)
	}
	publishEvent("created", r)
	return c.JSON(http.StatusCreated, viewOf(r))
}

// Lookup handles GET /v1/reservations?email=&phone=.  Both identifiers are
// required so a phone book scan cannot enumerate bookings.
func (h *ReservationHandler) Lookup(c echo.Context) error {
	email := strings.TrimSpace(c.QueryParam("email"))
	phone := strings.TrimSpace(c.QueryParam("phone"))
	if email == "" || phone == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email and phone are required"})
	}
	rs, err := h.Booking.LookupByContact(c.Request().Context(), email, phone)
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reservations": viewsOf(rs)})
}

type cancelByCodeReq struct {
	Email string `json:"email"`
}

// CancelByCode handles POST /v1/reservations/:code/cancel.  The booking
// email doubles as the proof of ownership.
func (h *ReservationHandler) CancelByCode(c echo.Context) error {
	code := strings.TrimSpace(c.Param("code"))
	var req cancelByCodeReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email is required"})
	}
	r, err := h.Booking.CancelByCode(c.Request().Context(), code, req.Email)
	if err != nil {
		return bookingError(c, err)
	}
	publishEvent("cancelled", r)
	return c.JSON(http.StatusOK, viewOf(r))
}
