package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// MinQuota is the smallest cohort that can produce a winner.
const MinQuota = 2

type Config struct {
	// Environment
	Environment string

	// Server
	Port        string
	FrontendURL string

	// Match settings
	MatchQuota              int
	SessionRetentionSeconds int
	JoinRateLimitSeconds    int
	StrictWinnerDeclaration bool

	// Payout
	EntryFee             float64
	PayoutAmount         float64
	PayoutDriver         string
	PayoutBaseURL        string
	PayoutTokenURL       string
	PayoutClientID       string
	PayoutClientSecret   string
	PayoutTimeoutSeconds int
	NATSURL              string
	PayoutNATSSubject    string
	BalanceCacheSeconds  int

	// Database (history archive)
	DatabaseURL    string
	MigrateOnStart bool

	// Redis
	RedisURL      string
	EventsChannel string

	// Security
	JWTSecret           string
	AdminSessionMinutes int
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		// Environment
		Environment: getEnv("APP_ENV", "development"),

		// Server
		Port:        getEnv("APP_PORT", getEnv("PORT", "3001")),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),

		// Match settings
		MatchQuota:              getEnvInt("MATCH_QUOTA", 100),
		SessionRetentionSeconds: getEnvInt("SESSION_RETENTION_SECONDS", 60),
		JoinRateLimitSeconds:    getEnvInt("JOIN_RATE_LIMIT_SECONDS", 0),
		StrictWinnerDeclaration: getEnvBool("STRICT_WINNER_DECLARATION", false),

		// Payout
		EntryFee:             getEnvFloat("ENTRY_FEE", 0.69),
		PayoutAmount:         getEnvFloat("PAYOUT_AMOUNT", 69),
		PayoutDriver:         strings.ToLower(getEnv("PAYOUT_DRIVER", "")),
		PayoutBaseURL:        getEnv("PAYOUT_BASE_URL", ""),
		PayoutTokenURL:       getEnv("PAYOUT_TOKEN_URL", "/oauth/token"),
		PayoutClientID:       getEnv("PAYOUT_CLIENT_ID", ""),
		PayoutClientSecret:   getEnv("PAYOUT_CLIENT_SECRET", ""),
		PayoutTimeoutSeconds: getEnvInt("PAYOUT_TIMEOUT_SECONDS", 60),
		NATSURL:              getEnv("NATS_URL", "nats://localhost:4222"),
		PayoutNATSSubject:    getEnv("PAYOUT_NATS_SUBJECT", "payout"),
		BalanceCacheSeconds:  getEnvInt("BALANCE_CACHE_SECONDS", 15),

		// Database
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		MigrateOnStart: getEnvBool("MIGRATE_ON_START", false),

		// Redis
		RedisURL:      getEnv("REDIS_URL", ""),
		EventsChannel: getEnv("EVENTS_CHANNEL", "royale_events"),

		// Security
		JWTSecret:           getEnv("JWT_SECRET", "change-me-in-production"),
		AdminSessionMinutes: getEnvInt("ADMIN_SESSION_MINUTES", 60),
	}

	if cfg.MatchQuota < MinQuota {
		log.Printf("[CONFIG] MATCH_QUOTA=%d is below %d, using %d", cfg.MatchQuota, MinQuota, MinQuota)
		cfg.MatchQuota = MinQuota
	}
	if cfg.SessionRetentionSeconds < 0 {
		cfg.SessionRetentionSeconds = 0
	}

	return cfg
}

// TotalPot is the amount collected from one full cohort.
func (c *Config) TotalPot() float64 {
	return c.EntryFee * float64(c.MatchQuota)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
