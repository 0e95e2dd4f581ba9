package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/jcoliz/NuxtIdentity-sub000/pkg/jwtx"
)

const (
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

type Config struct {
	SigningKey []byte        // Required: HMAC key for access tokens, at least 32 bytes
	Issuer     string        // Required: issuer claim for tokens
	Audience   string        // Required: audience claim for tokens
	AccessTTL  time.Duration // Optional: access token lifespan (default: 15m)
	RefreshTTL time.Duration // Optional: refresh token lifespan (default: 14 days)

	StoreDriver  string // Optional: refresh token store driver (sqlite, redis) (default: sqlite)
	DatabaseFile string // Optional: path to SQLite database file (default: ./identity.db)
	RedisAddr    string // Optional: redis address for the redis driver (default: localhost:6379)

	SeedUser     string // Optional: name of a user seeded at startup
	SeedEmail    string // Optional: email of the seeded user
	SeedPassword string // Optional: password of the seeded user
	SeedRole     string // Optional: role assigned to the seeded user (default: admin)

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

func LoadConfig() Config {
	return Config{
		SigningKey: []byte(os.Getenv("IDENTITY_SIGNING_KEY")),
		Issuer:     os.Getenv("IDENTITY_ISSUER"),
		Audience:   os.Getenv("IDENTITY_AUDIENCE"),
		AccessTTL:  getEnvDurationOrDefault("IDENTITY_ACCESS_TTL", jwtx.DefaultAccessTokenTTL),
		RefreshTTL: getEnvDurationOrDefault("IDENTITY_REFRESH_TTL", jwtx.DefaultRefreshTokenTTL),

		StoreDriver:  getEnvOrDefault("IDENTITY_STORE", StoreSQLite),
		DatabaseFile: getEnvOrDefault("IDENTITY_DATABASE_FILE", "identity.db"),
		RedisAddr:    getEnvOrDefault("IDENTITY_REDIS_ADDR", "localhost:6379"),

		SeedUser:     os.Getenv("IDENTITY_SEED_USER"),
		SeedEmail:    os.Getenv("IDENTITY_SEED_EMAIL"),
		SeedPassword: os.Getenv("IDENTITY_SEED_PASSWORD"),
		SeedRole:     getEnvOrDefault("IDENTITY_SEED_ROLE", "admin"),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}
}

// Validate rejects configurations the service must not start with. The
// signing key check in particular has to happen before any token is signed,
// not on first use.
func (c Config) Validate() error {
	if len(c.SigningKey) == 0 {
		return errors.New("config: IDENTITY_SIGNING_KEY is required")
	}
	if len(c.SigningKey) < jwtx.MinKeyBytes {
		return fmt.Errorf("config: IDENTITY_SIGNING_KEY must be at least %d bytes", jwtx.MinKeyBytes)
	}
	if c.Issuer == "" {
		return errors.New("config: IDENTITY_ISSUER is required")
	}
	if c.Audience == "" {
		return errors.New("config: IDENTITY_AUDIENCE is required")
	}
	if c.StoreDriver != StoreSQLite && c.StoreDriver != StoreRedis {
		return fmt.Errorf("config: unknown IDENTITY_STORE %q", c.StoreDriver)
	}
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 {
		return errors.New("config: token lifespans must be positive")
	}
	if c.SeedUser != "" && c.SeedPassword == "" {
		return errors.New("config: IDENTITY_SEED_PASSWORD is required when IDENTITY_SEED_USER is set")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	return defaultValue
}
