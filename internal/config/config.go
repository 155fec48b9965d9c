package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	Environment string

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// Server
	Port        string
	FrontendURL string

	// Wager settings
	MinWager           int64
	MaxWager           int64
	PlatformFeePercent int

	// Matchmaking
	MatchmakerPollSeconds int
	QueueStaleSeconds     int

	// Game lifecycle
	DisconnectGraceSeconds int
	ReconnectBackoffBaseMs int
	WaitingGameExpiryMins  int

	// Security
	JWTSecret       string
	TokenTTLHours   int
	DevTokenMinting bool
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	return &Config{
		// Environment
		Environment: getEnv("APP_ENV", "development"),

		// Database
		DatabaseURL: getEnv("DATABASE_URL", "postgres://localhost:5432/skilled?sslmode=disable"),

		// Redis
		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		// Server
		Port:        getEnv("APP_PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),

		// Wager settings
		MinWager:           getEnvInt64("MIN_WAGER", 50),
		MaxWager:           getEnvInt64("MAX_WAGER", 100000),
		PlatformFeePercent: getEnvInt("PLATFORM_FEE_PERCENT", 10),

		// Matchmaking
		MatchmakerPollSeconds: getEnvInt("MATCHMAKER_POLL_SECONDS", 3),
		QueueStaleSeconds:     getEnvInt("QUEUE_STALE_SECONDS", 180),

		// Game lifecycle
		DisconnectGraceSeconds: getEnvInt("DISCONNECT_GRACE_SECONDS", 120),
		ReconnectBackoffBaseMs: getEnvInt("RECONNECT_BACKOFF_BASE_MS", 500),
		WaitingGameExpiryMins:  getEnvInt("WAITING_GAME_EXPIRY_MINUTES", 10),

		// Security
		JWTSecret:       getEnv("JWT_SECRET", "change-me-in-production"),
		TokenTTLHours:   getEnvInt("TOKEN_TTL_HOURS", 24),
		DevTokenMinting: getEnv("DEV_TOKEN_MINTING", "true") == "true",
	}
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

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}
