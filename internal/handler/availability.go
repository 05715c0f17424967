package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-reservation/internal/availability"
)

// AvailabilityHandler serves the public read side: the slot grid with
// remaining capacity, and the venue's operating hours.
type AvailabilityHandler struct {
	Avail    *availability.Service
	PartyMin int
	PartyMax int
}

func NewAvailabilityHandler(avail *availability.Service, partyMin, partyMax int) *AvailabilityHandler {
	return &AvailabilityHandler{Avail: avail, PartyMin: partyMin, PartyMax: partyMax}
}

// Query handles GET /v1/availability?date=YYYY-MM-DD&party_size=N.  The
// party size defaults to 2.  Out-of-range dates are a valid answer (empty
// slots with a reason), not an error.
func (h *AvailabilityHandler) Query(c echo.Context) error {
	date := strings.TrimSpace(c.QueryParam("date"))
	if date == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date is required"})
	}

	partySize := 2
	if raw := c.QueryParam("party_size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "party_size must be a number"})
		}
		partySize = n
	}
	if partySize < h.PartyMin || partySize > h.PartyMax {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "party_size out of range"})
	}

	day, err := h.Avail.Query(c.Request().Context(), date, partySize)
	if err != nil {
		if errors.Is(err, availability.ErrBadDate) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "availability query failed"})
	}
	return c.JSON(http.StatusOK, day)
}

// Hours handles GET /v1/hours?date=YYYY-MM-DD, the cacheable public view
// of one day's operating hours.
func (h *AvailabilityHandler) Hours(c echo.Context) error {
	date := strings.TrimSpace(c.QueryParam("date"))
	if date == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date is required"})
	}
	hours, err := h.Avail.HoursFor(c.Request().Context(), date)
	if err != nil {
		if errors.Is(err, availability.ErrBadDate) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "hours lookup failed"})
	}
	return c.JSON(http.StatusOK, hours)
}
