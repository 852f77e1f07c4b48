package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAppName        = "BankApplication"
	defaultAppEnv         = "development"
	defaultPort           = "8080"
	defaultLogLevel       = "info"
	defaultShutdownDelay  = 10 * time.Second
	defaultIdempotencyTTL = 24 * time.Hour
	defaultJWTIssuer      = "bank-application"
	defaultSessionTTL     = 30 * time.Minute
	defaultLockTimeout    = 2 * time.Second
	defaultLoginPerMinute = 5
	devJWTSecret          = "development-only-secret"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName           string
	AppEnv            string
	Port              string
	LogLevel          string
	DatabaseURL       string
	RedisURL          string
	ShutdownPeriod    time.Duration
	IdempotencyTTL    time.Duration
	JWTSecret         string
	JWTIssuer         string
	SessionTTL        time.Duration
	LockTimeout       time.Duration
	LoginMaxPerMinute int
	SeedClients       int
	SeedCSVPath       string
}

// Load reads configuration values from the environment and populates a Config instance.
// Outside development the database, Redis and JWT secret are mandatory.
func Load() (Config, error) {
	cfg := Config{
		AppName:     getEnv("APP_NAME", defaultAppName),
		AppEnv:      strings.ToLower(getEnv("APP_ENV", defaultAppEnv)),
		Port:        getEnv("PORT", defaultPort),
		LogLevel:    strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		JWTIssuer:   getEnv("JWT_ISSUER", defaultJWTIssuer),
		SeedCSVPath: os.Getenv("SEED_CSV_PATH"),
	}

	var err error
	if cfg.ShutdownPeriod, err = durationEnv("SHUTDOWN_TIMEOUT", defaultShutdownDelay); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = durationEnv("IDEMPOTENCY_TTL", defaultIdempotencyTTL); err != nil {
		return Config{}, err
	}
	if cfg.SessionTTL, err = durationEnv("SESSION_TTL", defaultSessionTTL); err != nil {
		return Config{}, err
	}
	if cfg.LockTimeout, err = durationEnv("LOCK_TIMEOUT", defaultLockTimeout); err != nil {
		return Config{}, err
	}
	if cfg.LoginMaxPerMinute, err = intEnv("LOGIN_MAX_PER_MINUTE", defaultLoginPerMinute); err != nil {
		return Config{}, err
	}
	if cfg.SeedClients, err = intEnv("SEED_CLIENTS", 0); err != nil {
		return Config{}, err
	}

	if cfg.SessionTTL <= 0 || cfg.LockTimeout <= 0 {
		return Config{}, errors.New("SESSION_TTL and LOCK_TIMEOUT must be positive")
	}
	if cfg.SeedClients < 0 {
		return Config{}, errors.New("SEED_CLIENTS must not be negative")
	}

	if cfg.IsDevelopment() {
		if cfg.JWTSecret == "" {
			cfg.JWTSecret = devJWTSecret
		}
		return cfg, nil
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL must be set")
	}
	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("REDIS_URL must be set")
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET must be set")
	}
	return cfg, nil
}

// IsDevelopment reports whether in-memory fallbacks are allowed.
func (c Config) IsDevelopment() bool {
	return c.AppEnv == "development" || c.AppEnv == "dev" || c.AppEnv == "test"
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// durationEnv reads KEY_SECONDS as whole seconds, else KEY as either a Go
// duration or whole seconds.
func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	if v := os.Getenv(key + "_SECONDS"); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s_SECONDS: %w", key, err)
		}
		return time.Duration(seconds) * time.Second, nil
	}
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	if seconds, err := strconv.Atoi(v); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
