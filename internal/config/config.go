package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                  string
	DBUrl                 string
	JWTSecret             string
	AppEnv                string
	PracticeTimezone      string
	SessionBufferMinutes  int
	DefaultSessionMinutes int
	RenewalHorizonWeeks   int
	RenewalSweepMinutes   int
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	jwtSecret, exists := os.LookupEnv("JWT_SECRET")
	if !exists || jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	cfg := &Config{
		Port:                  getEnv("PORT", "8080"),
		DBUrl:                 getEnv("DB_URL", ""),
		JWTSecret:             jwtSecret,
		AppEnv:                normalizeEnv(getEnv("APP_ENV", "production")),
		PracticeTimezone:      getEnv("PRACTICE_TIMEZONE", "UTC"),
		SessionBufferMinutes:  getEnvInt("SESSION_BUFFER_MINUTES", 1),
		DefaultSessionMinutes: getEnvInt("DEFAULT_SESSION_MINUTES", 50),
		RenewalHorizonWeeks:   getEnvInt("RENEWAL_HORIZON_WEEKS", 12),
		RenewalSweepMinutes:   getEnvInt("RENEWAL_SWEEP_MINUTES", 60),
	}

	if cfg.SessionBufferMinutes < 0 {
		return nil, fmt.Errorf("SESSION_BUFFER_MINUTES must not be negative")
	}
	if cfg.DefaultSessionMinutes <= 0 {
		return nil, fmt.Errorf("DEFAULT_SESSION_MINUTES must be greater than 0")
	}
	if cfg.RenewalHorizonWeeks <= 0 {
		return nil, fmt.Errorf("RENEWAL_HORIZON_WEEKS must be greater than 0")
	}
	if cfg.RenewalSweepMinutes <= 0 {
		return nil, fmt.Errorf("RENEWAL_SWEEP_MINUTES must be greater than 0")
	}
	if _, err := time.LoadLocation(cfg.PracticeTimezone); err != nil {
		return nil, fmt.Errorf("PRACTICE_TIMEZONE %q is not a valid IANA zone: %w", cfg.PracticeTimezone, err)
	}

	return cfg, nil
}

// Location resolves the configured practice timezone. LoadConfig already
// validated the name, so a failure here can only mean tzdata went missing
// at runtime; fall back to UTC rather than crash.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.PracticeTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		log.Printf("Invalid value for %s, using default %d", key, fallback)
		return fallback
	}
	return parsed
}

func normalizeEnv(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "dev", "develop", "development", "local":
		return "development"
	default:
		return "production"
	}
}
