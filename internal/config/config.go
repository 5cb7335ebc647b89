package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Reply persistence strategies for the respond stage.
const (
	ReplyInPlace = "in_place"
	ReplyAppend  = "append"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Database
	DatabaseURL   string
	MigrationsDir string

	// Redis
	RedisURL string

	// JWT
	JWTSecret string

	// AI vendors
	OpenAIAPIKey         string
	OpenAIBaseURL        string
	GeminiAPIKey         string
	GeminiConcurrentReqs int
	AIRequestTimeout     time.Duration

	// Caching
	HistoryTTL        time.Duration
	ListCacheTTL      time.Duration
	LatestDialogueTTL time.Duration

	// Pipeline
	ReplyPersistence string
	WorkerCount      int
	JobMaxRetries    int

	// Rate limiting
	CreateRatePerMinute int

	// Logging
	LogLevel string
	LogFile  string

	// Frontend
	FrontendURL string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:                 getEnvOrDefault("PORT", "8080"),
		Env:                  getEnvOrDefault("ENV", "development"),
		DatabaseURL:          mustGetEnv("DATABASE_URL"),
		MigrationsDir:        os.Getenv("MIGRATIONS_DIR"),
		RedisURL:             mustGetEnv("REDIS_URL"),
		JWTSecret:            mustGetEnv("JWT_SECRET"),
		OpenAIAPIKey:         getEnvOrDefault("OPENAI_API_KEY", ""),
		OpenAIBaseURL:        getEnvOrDefault("OPENAI_BASE_URL", ""),
		GeminiAPIKey:         getEnvOrDefault("GEMINI_API_KEY", ""),
		GeminiConcurrentReqs: getEnvAsIntOrDefault("GEMINI_CONCURRENT_REQUESTS", 5),
		AIRequestTimeout:     time.Duration(getEnvAsIntOrDefault("AI_REQUEST_TIMEOUT_SECONDS", 60)) * time.Second,
		HistoryTTL:           time.Duration(getEnvAsIntOrDefault("HISTORY_TTL_MINUTES", 60)) * time.Minute,
		ListCacheTTL:         time.Duration(getEnvAsIntOrDefault("LIST_CACHE_TTL_SECONDS", 180)) * time.Second,
		LatestDialogueTTL:    time.Duration(getEnvAsIntOrDefault("LATEST_DIALOGUE_TTL_HOURS", 24)) * time.Hour,
		ReplyPersistence:     getReplyPersistence("REPLY_PERSISTENCE"),
		WorkerCount:          getEnvAsIntOrDefault("WORKER_COUNT", 5),
		JobMaxRetries:        getEnvAsIntOrDefault("JOB_MAX_RETRIES", 3),
		CreateRatePerMinute:  getEnvAsIntOrDefault("CREATE_RATE_LIMIT_PER_MINUTE", 30),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "INFO"),
		LogFile:              getEnvOrDefault("LOG_FILE", ""),
		FrontendURL:          getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),
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
	if err != nil || n <= 0 {
		return defaultVal
	}
	return n
}

// getReplyPersistence panics on unknown values so a typo never silently
// switches strategy.
func getReplyPersistence(key string) string {
	val := getEnvOrDefault(key, ReplyInPlace)
	switch val {
	case ReplyInPlace, ReplyAppend:
		return val
	default:
		panic(fmt.Sprintf("invalid %s %q (want %s or %s)", key, val, ReplyInPlace, ReplyAppend))
	}
}
