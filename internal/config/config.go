package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
)

const DefaultTokenBudget = 8000

type Config struct {
	Port        string
	Environment string
	LogLevel    slog.Level

	RedisURL string
	DataDir  string

	ModelProvider   string
	ModelName       string
	AnthropicAPIKey string

	// TokenBudget is the per-turn document token budget.
	TokenBudget int

	// StrictMerge makes unknown state-update fields count as rejections
	// instead of being silently ignored.
	StrictMerge bool
}

func Load() *Config {
	return &Config{
		Port:            getEnv("PORT", "8080"),
		Environment:     getEnv("ENVIRONMENT", "development"),
		LogLevel:        parseLogLevel(getEnv("LOG_LEVEL", "info")),
		RedisURL:        getEnv("REDIS_URL", "redis://localhost:6379"),
		DataDir:         getEnv("DATA_DIR", "./data"),
		ModelProvider:   getEnv("MODEL_PROVIDER", "anthropic"),
		ModelName:       getEnv("MODEL_NAME", "claude-sonnet-4-20250514"),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		TokenBudget:     getEnvInt("TOKEN_BUDGET", DefaultTokenBudget),
		StrictMerge:     getEnvBool("STRICT_MERGE", false),
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
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
		if n, err := strconv.Atoi(value); err == nil {
			return n
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
