// Package config loads application configuration from environment
// variables.
package config

import (
	"log"
	"os"
	"strconv"
)

// Config holds all runtime configuration.  Each field corresponds to an
// environment variable; required values are enforced at startup, booking
// policy knobs carry venue defaults.
type Config struct {
	Env            string // application environment (dev/test/prod)
	Port           string // HTTP port to listen on
	DBUser         string // database username
	DBPass         string // database password (optional)
	DBHost         string // database host address
	DBPort         string // database port number
	DBName         string // database name
	JWTSecret      string // secret used to sign JWTs
	RegisterToken  string // when set, staff registration requires this token
	AccessTTLMin   int    // access token time-to-live in minutes
	RefreshTTLDays int    // refresh token time-to-live in days
	BcryptCost     int    // bcrypt cost for password hashing

	// Booking policy.
	HorizonDays       int  // how many days ahead reservations open
	PartySizeMin      int  // smallest bookable party
	PartySizeMax      int  // largest bookable party
	MinServiceMinutes int  // minutes a party occupies its slot
	ReleaseOnComplete bool // release the capacity commitment on completion
}

// Load reads configuration from the environment.  Missing required
// variables are fatal.
func Load() Config {
	return Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"),
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		JWTSecret:      must("JWT_SECRET"),
		RegisterToken:  os.Getenv("STAFF_REGISTER_TOKEN"),
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:     mustInt("BCRYPT_COST"),

		HorizonDays:       envInt("BOOKING_HORIZON_DAYS", 90),
		PartySizeMin:      envInt("PARTY_SIZE_MIN", 1),
		PartySizeMax:      envInt("PARTY_SIZE_MAX", 20),
		MinServiceMinutes: envInt("MIN_SERVICE_MINUTES", 90),
		ReleaseOnComplete: envBool("RELEASE_ON_COMPLETE", true),
	}
}

// must retrieves a required environment variable or exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is must() with integer conversion.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
