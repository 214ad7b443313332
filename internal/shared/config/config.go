package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	AI        AIConfig
	RateLimit RateLimitConfig
	History   HistoryConfig
	Analysis  AnalysisConfig
	CORS      CORSConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode,
	)
}

// AIConfig selects and tunes the language model backend.
type AIConfig struct {
	// Provider: "gemini" or "openai"
	Provider     string
	GeminiAPIKey string
	GeminiModel  string
	OpenAIAPIKey string
	OpenAIModel  string
	// Timeout bounds a single completion attempt. There are no retries.
	Timeout     time.Duration
	MaxTokens   int
	Temperature float32
}

// Model returns the model name for the configured provider.
func (a AIConfig) Model() string {
	if a.Provider == "openai" {
		return a.OpenAIModel
	}
	return a.GeminiModel
}

type RateLimitConfig struct {
	// Max analysis requests per client key within one Window
	Max    int
	Window time.Duration
	// Coarse per-IP cap across all routes, sized to stop floods only
	GlobalRPS   float64
	GlobalBurst int
}

type HistoryConfig struct {
	// PerSession is the number of records kept per session before the
	// oldest is evicted.
	PerSession int
}

type AnalysisConfig struct {
	// SymptomsMinChars rejects shorter descriptions; SymptomsMaxChars
	// truncates longer ones before prompt assembly.
	SymptomsMinChars int
	SymptomsMaxChars int
}

type CORSConfig struct {
	AllowedOrigins []string
}

func Load() (*Config, error) {
	return &Config{
		Server: ServerConfig{
			Port: getEnvInt("SERVER_PORT", 8080),
			Env:  getEnv("ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "checker"),
			Password: getEnv("DB_PASSWORD", "checker"),
			Database: getEnv("DB_NAME", "checker"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		AI: AIConfig{
			Provider:     getEnv("AI_PROVIDER", "gemini"),
			GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
			GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),
			OpenAIModel:  getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			Timeout:      getEnvDuration("AI_TIMEOUT", 15*time.Second),
			MaxTokens:    getEnvInt("AI_MAX_TOKENS", 1024),
			Temperature:  getEnvFloat32("AI_TEMPERATURE", 0.3),
		},
		RateLimit: RateLimitConfig{
			Max:         getEnvInt("RATE_LIMIT_MAX", 10),
			Window:      getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
			GlobalRPS:   getEnvFloat64("GLOBAL_RATE_RPS", 20),
			GlobalBurst: getEnvInt("GLOBAL_RATE_BURST", 40),
		},
		History: HistoryConfig{
			PerSession: getEnvInt("HISTORY_PER_SESSION", 5),
		},
		Analysis: AnalysisConfig{
			SymptomsMinChars: getEnvInt("SYMPTOMS_MIN_CHARS", 10),
			SymptomsMaxChars: getEnvInt("SYMPTOMS_MAX_CHARS", 2000),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(f)
		}
	}
	return defaultValue
}

func getEnvFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var result []string
		for _, part := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}
