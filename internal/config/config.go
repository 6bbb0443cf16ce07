package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string
	Env  string

	// External collaborators (webhook endpoints)
	ResolverWebhookURL string
	ScrapeResultURL    string

	// Session tokens
	JWTSecret string

	// Conversation
	RequestCooldownSeconds int
	ResolverTimeoutSeconds int
	ScrapeTimeoutMinutes   int
	SessionTTLMinutes      int

	// Analysis
	MinSqft      int
	PriceBuckets int

	// Workers
	WorkerCount int

	// Frontend
	FrontendURL string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:               getEnvOrDefault("PORT", "8080"),
		Env:                getEnvOrDefault("ENV", "development"),
		ResolverWebhookURL: mustGetEnv("RESOLVER_WEBHOOK_URL"),
		ScrapeResultURL:    mustGetEnv("SCRAPE_RESULT_URL"),
		JWTSecret:          mustGetEnv("JWT_SECRET"),

		RequestCooldownSeconds: getEnvAsIntOrDefault("REQUEST_COOLDOWN_SECONDS", 5),
		ResolverTimeoutSeconds: getEnvAsIntOrDefault("RESOLVER_TIMEOUT_SECONDS", 60),
		ScrapeTimeoutMinutes:   getEnvAsIntOrDefault("SCRAPE_TIMEOUT_MINUTES", 30),
		SessionTTLMinutes:      getEnvAsIntOrDefault("SESSION_TTL_MINUTES", 60),

		MinSqft:      getEnvAsIntOrDefault("MIN_SQFT", 200),
		PriceBuckets: getEnvAsIntOrDefault("PRICE_BUCKETS", 5),

		WorkerCount: getEnvAsIntOrDefault("WORKER_COUNT", 5),

		FrontendURL: getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),
	}

	return cfg
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}
