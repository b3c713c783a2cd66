package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// Calendar storage. Backend is "file" or "postgres".
	CalendarBackend string
	CalendarFile    string
	DatabaseURL     string

	// Business-hours slot grid.
	SlotDayStart    string
	SlotDayEnd      string
	SlotInterval    time.Duration
	DefaultUserID   string
	SessionTTL      time.Duration
	MaxHistoryTurns int

	// Session context storage.
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Model backends. Provider is "bedrock", "gemini" or "ollama".
	LLMProvider         string
	LLMFallbackProvider string
	BedrockModelID      string
	GeminiAPIKey        string
	GeminiModelID       string
	OllamaBaseURL       string
	OllamaModelID       string

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	AdminJWTSecret string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		CalendarBackend: strings.ToLower(strings.TrimSpace(getEnv("CALENDAR_BACKEND", "file"))),
		CalendarFile:    getEnv("CALENDAR_FILE", "./data/calendar.json"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),

		SlotDayStart:    getEnv("SLOT_DAY_START", "10:00"),
		SlotDayEnd:      getEnv("SLOT_DAY_END", "16:00"),
		SlotInterval:    getEnvAsDuration("SLOT_INTERVAL", 30*time.Minute),
		DefaultUserID:   getEnv("DEFAULT_USER_ID", ""),
		SessionTTL:      getEnvAsDuration("SESSION_TTL", 24*time.Hour),
		MaxHistoryTurns: getEnvAsInt("MAX_HISTORY_TURNS", 24),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		LLMProvider:         strings.ToLower(strings.TrimSpace(getEnv("LLM_PROVIDER", "bedrock"))),
		LLMFallbackProvider: strings.ToLower(strings.TrimSpace(getEnv("LLM_FALLBACK_PROVIDER", ""))),
		BedrockModelID:      getEnv("BEDROCK_MODEL_ID", "anthropic.claude-3-5-sonnet-20240620-v1:0"),
		GeminiAPIKey:        getEnv("GEMINI_API_KEY", ""),
		GeminiModelID:       getEnv("GEMINI_MODEL_ID", "gemini-2.5-flash"),
		OllamaBaseURL:       getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		OllamaModelID:       getEnv("OLLAMA_MODEL_ID", "llama3.1"),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
