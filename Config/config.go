package Config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

const (
	DefaultSchedule = "1 0 * * *"
	DefaultTimezone = "Asia/Almaty"

	// DefaultShiftRadius is how far from the coffeeshop, in meters, a
	// check-in is still accepted.
	DefaultShiftRadius = 200.0
)

type AppConfig struct {
	Port       string
	CORSOrigin string

	StoreDriver string
	DatabaseDSN string

	FirebaseCredentialsFile string
	FirebaseProjectID       string

	FanoutSchedule   string
	FanoutTimezone   string
	FanoutWorkers    int
	FanoutRunOnStart bool

	JWTSecret string

	SlackBotToken  string
	SlackChannelID string
	FCMEnabled     bool

	UploadDir         string
	ShiftRadiusMeters float64

	LogLevel  string
	LogFormat string

	location *time.Location
}

// Load reads .env when present, then the process environment.
func Load() (AppConfig, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return AppConfig{}, fmt.Errorf("error loading .env file: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds the configuration from a lookup function and validates it.
func FromEnv(getenv func(string) string) (AppConfig, error) {
	get := func(key, fallback string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return fallback
	}

	cfg := AppConfig{
		Port:                    get("PORT", "8080"),
		CORSOrigin:              get("CORS_ORIGINS", "*"),
		StoreDriver:             get("STORE_DRIVER", "firestore"),
		DatabaseDSN:             get("DATABASE_DSN", "barista.db"),
		FirebaseCredentialsFile: get("FIREBASE_CREDENTIALS_FILE", ""),
		FirebaseProjectID:       get("FIREBASE_PROJECT_ID", ""),
		FanoutSchedule:          get("FANOUT_SCHEDULE", DefaultSchedule),
		FanoutTimezone:          get("FANOUT_TIMEZONE", DefaultTimezone),
		JWTSecret:               get("JWT_SECRET", ""),
		SlackBotToken:           get("SLACK_BOT_TOKEN", ""),
		SlackChannelID:          get("SLACK_CHANNEL_ID", ""),
		UploadDir:               get("UPLOAD_DIR", "uploads"),
		LogLevel:                get("LOG_LEVEL", "info"),
		LogFormat:               get("LOG_FORMAT", "json"),
	}

	var err error
	if cfg.FanoutWorkers, err = strconv.Atoi(get("FANOUT_WORKERS", "4")); err != nil || cfg.FanoutWorkers < 1 {
		return AppConfig{}, fmt.Errorf("FANOUT_WORKERS must be a positive integer")
	}
	if cfg.FanoutRunOnStart, err = strconv.ParseBool(get("FANOUT_RUN_ON_START", "false")); err != nil {
		return AppConfig{}, fmt.Errorf("FANOUT_RUN_ON_START: %w", err)
	}
	if cfg.FCMEnabled, err = strconv.ParseBool(get("FCM_ENABLED", "false")); err != nil {
		return AppConfig{}, fmt.Errorf("FCM_ENABLED: %w", err)
	}

	if cfg.ShiftRadiusMeters, err = strconv.ParseFloat(get("SHIFT_RADIUS_METERS", "200"), 64); err != nil || cfg.ShiftRadiusMeters <= 0 {
		return AppConfig{}, fmt.Errorf("SHIFT_RADIUS_METERS must be a positive number")
	}

	if cfg.location, err = time.LoadLocation(cfg.FanoutTimezone); err != nil {
		return AppConfig{}, fmt.Errorf("FANOUT_TIMEZONE %q: %w", cfg.FanoutTimezone, err)
	}
	if _, err := cron.ParseStandard(cfg.FanoutSchedule); err != nil {
		return AppConfig{}, fmt.Errorf("FANOUT_SCHEDULE %q: %w", cfg.FanoutSchedule, err)
	}

	switch cfg.StoreDriver {
	case "firestore":
	case "sqlite", "mysql":
		if cfg.JWTSecret == "" {
			return AppConfig{}, fmt.Errorf("JWT_SECRET is required with STORE_DRIVER=%s", cfg.StoreDriver)
		}
	default:
		return AppConfig{}, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	return cfg, nil
}

// Location is the single zone every "today" is evaluated in.
func (c AppConfig) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}
