package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-reservation/internal/availability"
	"github.com/iliyamo/restaurant-reservation/internal/booking"
	"github.com/iliyamo/restaurant-reservation/internal/config"
	"github.com/iliyamo/restaurant-reservation/internal/database"
	"github.com/iliyamo/restaurant-reservation/internal/handler"
	"github.com/iliyamo/restaurant-reservation/internal/queue"
	"github.com/iliyamo/restaurant-reservation/internal/repository"
	"github.com/iliyamo/restaurant-reservation/internal/router"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis is optional: without it the rate limiter and response cache
	// become pass-throughs.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Print("redis unavailable; rate limiting and response cache disabled")
	}

	ledgerRepo := repository.NewCapacityLedgerRepo(db)
	reservations := repository.NewReservationRepo(db, ledgerRepo)
	schedules := repository.NewScheduleRepo(db)
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)

	bookingSvc := booking.NewService(reservations, schedules, booking.Config{
		HorizonDays:       cfg.HorizonDays,
		PartyMin:          cfg.PartySizeMin,
		PartyMax:          cfg.PartySizeMax,
		MinServiceMinutes: cfg.MinServiceMinutes,
		ReleaseOnComplete: cfg.ReleaseOnComplete,
	})
	availSvc := availability.NewService(ledgerRepo, schedules, availability.Config{
		HorizonDays:       cfg.HorizonDays,
		MinServiceMinutes: cfg.MinServiceMinutes,
	})

	authH := handler.NewAuthHandler(cfg, users, tokens)
	availH := handler.NewAvailabilityHandler(availSvc, cfg.PartySizeMin, cfg.PartySizeMax)
	resH := handler.NewReservationHandler(bookingSvc)
	staffH := handler.NewStaffReservationHandler(bookingSvc)
	schedH := handler.NewScheduleHandler(schedules)
	statsH := handler.NewStatsHandler(reservations)

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterPublic(e, availH, resH, rdb)
	router.RegisterStaff(e, staffH, schedH, statsH, cfg.JWTSecret)

	// Background consumer mirrors reservation events into logs/.
	go func() {
		if err := queue.StartReservationConsumer(); err != nil {
			log.Printf("reservation consumer stopped: %v", err)
		}
	}()

	// One-shot cleanup of long-expired staff sessions.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if n, err := tokens.PurgeExpired(ctx, time.Now().UTC().AddDate(0, 0, -cfg.RefreshTTLDays)); err == nil && n > 0 {
			log.Printf("purged %d expired refresh tokens", n)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
