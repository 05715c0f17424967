// Package router registers the HTTP surface: public booking and
// availability routes, staff routes behind JWT, and auth.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/restaurant-reservation/internal/config"
	"github.com/iliyamo/restaurant-reservation/internal/handler"
	"github.com/iliyamo/restaurant-reservation/internal/middleware"
	"github.com/iliyamo/restaurant-reservation/internal/model"
)

// RegisterRoutes registers routes that need no authentication or
// dependencies beyond Echo itself.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterPublic registers the guest-facing booking surface.  Reservation
// creation sits behind the Redis token bucket so one client cannot hammer
// the slot locks; the hours endpoint is cached since it only changes when
// a manager edits the schedule.
func RegisterPublic(e *echo.Echo, av *handler.AvailabilityHandler, res *handler.ReservationHandler, rdb *redis.Client) {
	cacheCfg := config.LoadCacheConfig()
	rlCfg := config.LoadRateLimitConfig()

	e.GET("/v1/availability", av.Query)
	e.GET("/v1/hours", av.Hours, middleware.NewRedisCache(cacheCfg, rdb))

	e.POST("/v1/reservations", res.Create, middleware.NewTokenBucket(rlCfg, rdb))
	e.GET("/v1/reservations", res.Lookup)
	e.POST("/v1/reservations/:code/cancel", res.CancelByCode)
}

// RegisterStaff registers the staff surface under /v1/staff.  Every route
// requires a valid access token; schedule and stats are manager-only,
// reservation handling is open to hosts as well.
func RegisterStaff(e *echo.Echo, staff *handler.StaffReservationHandler, sched *handler.ScheduleHandler, stats *handler.StatsHandler, jwtSecret string) {
	g := e.Group("/v1/staff")
	g.Use(middleware.JWTAuth(jwtSecret))

	floor := g.Group("", middleware.RequireRole(model.RoleManager, model.RoleHost))
	floor.GET("/reservations", staff.DaySheet)
	floor.PATCH("/reservations/:id", staff.Update)
	floor.PATCH("/reservations/:id/confirm", staff.Confirm)
	floor.PATCH("/reservations/:id/seat", staff.Seat)
	floor.PATCH("/reservations/:id/complete", staff.Complete)
	floor.PATCH("/reservations/:id/no-show", staff.NoShow)
	floor.PATCH("/reservations/:id/cancel", staff.Cancel)
	floor.GET("/schedule", sched.List)

	mgr := g.Group("", middleware.RequireRole(model.RoleManager))
	mgr.PUT("/schedule/:weekday", sched.CreateVersion)
	mgr.PUT("/overrides/:date", sched.UpsertOverride)
	mgr.DELETE("/overrides/:date", sched.DeleteOverride)
	mgr.GET("/overrides", sched.ListOverrides)
	mgr.GET("/stats", stats.Range)
}

// RegisterAuth registers staff session routes.  Register, login, refresh
// and logout are open; /v1/me requires a token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole(model.RoleManager, model.RoleHost))
	auth.GET("/me", a.Me)
}
