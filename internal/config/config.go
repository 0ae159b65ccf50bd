package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port     string `validate:"required,numeric"`
	Env      string `validate:"oneof=development production test"`
	LogLevel string `validate:"oneof=debug info warn error"`

	// Database
	DatabaseURL string `validate:"required"`

	// Redis
	RedisURL string `validate:"required"`

	// Auth
	JWTSecret      string `validate:"required,min=32"`
	AccessTokenTTL time.Duration
	GoogleClientID string

	// Completion
	CompletionProvider   string `validate:"oneof=gemini openai"`
	GeminiAPIKey         string `validate:"required_if=CompletionProvider gemini"`
	GeminiModel          string
	GeminiConcurrentReqs int `validate:"min=1"`
	OpenAIAPIKey         string `validate:"required_if=CompletionProvider openai"`
	OpenAIBaseURL        string
	OpenAIModel          string

	// Workers
	WorkerCount int `validate:"min=1"`

	// Frontend
	FrontendURL string
}

// Load reads configuration from the environment, with values from a .env
// file filling in anything unset.
func Load() (*Config, error) {
	godotenv.Load()

	cfg := &Config{
		Port:                 getEnvOrDefault("PORT", "8080"),
		Env:                  getEnvOrDefault("ENV", "development"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		RedisURL:             os.Getenv("REDIS_URL"),
		JWTSecret:            os.Getenv("JWT_SECRET"),
		AccessTokenTTL:       getEnvAsDurationOrDefault("ACCESS_TOKEN_TTL", 15*time.Minute),
		GoogleClientID:       getEnvOrDefault("GOOGLE_CLIENT_ID", ""),
		CompletionProvider:   getEnvOrDefault("COMPLETION_PROVIDER", "gemini"),
		GeminiAPIKey:         getEnvOrDefault("GEMINI_API_KEY", ""),
		GeminiModel:          getEnvOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiConcurrentReqs: getEnvAsIntOrDefault("GEMINI_CONCURRENT_REQUESTS", 5),
		OpenAIAPIKey:         getEnvOrDefault("OPENAI_API_KEY", ""),
		OpenAIBaseURL:        getEnvOrDefault("OPENAI_BASE_URL", ""),
		OpenAIModel:          getEnvOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
		WorkerCount:          getEnvAsIntOrDefault("WORKER_COUNT", 3),
		FrontendURL:          getEnvOrDefault("FRONTEND_URL", "http://localhost:3000"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDatabaseURL reads only what the migrate command needs.
func LoadDatabaseURL() (string, error) {
	godotenv.Load()
	return requireEnv("DATABASE_URL")
}

var validate = validator.New()

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func requireEnv(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("required environment variable %s is not set", key)
	}
	return val, nil
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
	if err != nil {
		return defaultVal
	}
	return d
}
