package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-reservation/internal/calendar"
	"github.com/iliyamo/restaurant-reservation/internal/repository"
)

// StatsHandler serves manager reporting over a date range.
type StatsHandler struct {
	Res *repository.ReservationRepo
}

func NewStatsHandler(r *repository.ReservationRepo) *StatsHandler {
	return &StatsHandler{Res: r}
}

// Range handles GET /v1/staff/stats?from=&to=: reservation counts grouped
// by status and by day.
func (h *StatsHandler) Range(c echo.Context) error {
	from := strings.TrimSpace(c.QueryParam("from"))
	to := strings.TrimSpace(c.QueryParam("to"))
	if _, err := calendar.ParseDate(from); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "from must be YYYY-MM-DD"})
	}
	if _, err := calendar.ParseDate(to); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "to must be YYYY-MM-DD"})
	}
	if to < from {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "to must not be before from"})
	}

	ctx := c.Request().Context()
	byStatus, err := h.Res.CountByStatus(ctx, from, to)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "stats query failed"})
	}
	byDay, err := h.Res.CountByDay(ctx, from, to)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "stats query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"from":      from,
		"to":        to,
		"by_status": byStatus,
		"by_day":    byDay,
	})
}
