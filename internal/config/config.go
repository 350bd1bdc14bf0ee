package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Auth (tokens are issued by the LMS backend with this shared secret)
	JWTSecret string

	// LMS backend
	LMSAPIURL  string
	LMSTimeout time.Duration

	// Question source: "backend" or "local"
	QuestionSource string
	BankDBPath     string

	// Redis (optional, falls back to in-memory sessions)
	RedisURL string

	// Database (optional, enables the study-session time log)
	DatabaseURL   string
	MigrationsDir string

	// Sessions
	SessionTTL time.Duration

	// Rating relay
	WorkerCount int

	// Frontend
	FrontendOrigins []string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:            getEnvOrDefault("PORT", "8080"),
		Env:             getEnvOrDefault("ENV", "development"),
		JWTSecret:       mustGetEnv("JWT_SECRET"),
		LMSAPIURL:       mustGetEnv("LMS_API_URL"),
		LMSTimeout:      getEnvAsDurationOrDefault("LMS_TIMEOUT", 10*time.Second),
		QuestionSource:  getEnvOrDefault("QUESTION_SOURCE", "backend"),
		BankDBPath:      getEnvOrDefault("BANK_DB_PATH", "./data/banks.db"),
		RedisURL:        getEnvOrDefault("REDIS_URL", ""),
		DatabaseURL:     getEnvOrDefault("DATABASE_URL", ""),
		MigrationsDir:   getEnvOrDefault("MIGRATIONS_DIR", "migrations"),
		SessionTTL:      getEnvAsDurationOrDefault("SESSION_TTL", 3*time.Hour),
		WorkerCount:     getEnvAsIntOrDefault("WORKER_COUNT", 2),
		FrontendOrigins: getEnvAsListOrDefault("FRONTEND_URL", "http://localhost:5173"),
	}

	return cfg
}

func (c *Config) UseLocalBank() bool {
	return c.QuestionSource == "local"
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

func getEnvAsDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

func getEnvAsListOrDefault(key, defaultVal string) []string {
	parts := strings.Split(getEnvOrDefault(key, defaultVal), ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
