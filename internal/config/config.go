package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// AI provider names accepted in AI_PROVIDER
const (
	ProviderDify   = "dify"
	ProviderOpenAI = "openai"
)

// Config holds application configuration
type Config struct {
	DatabaseURL      string
	ServerPort       string
	BaseURL          string
	FrontendURL      string
	AuthJWKSURL      string
	AuthIssuer       string
	AIProvider       string
	DifyAPIKey       string
	DifyBaseURL      string
	OpenAIKey        string
	AIModel          string
	AIBaseURL        string
	MediaDir         string
	MediaBaseURL     string
	RedisURL         string
	RabbitMQURL      string
	RabbitMQPrefetch int
	RateLimit        string
	EnableHSTS       bool
	WorkerDebugMode  bool
	ServerDebugMode  bool
	OTELEnabled      bool
	OTELEndpoint     string
}

// Load loads configuration from the environment. A .env file in the working
// directory is read first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		ServerPort:       getEnv("SERVER_PORT", "8080"),
		BaseURL:          getEnv("BASE_URL", "http://localhost:8080"),
		FrontendURL:      getEnv("FRONTEND_URL", "http://localhost:3000"),
		AuthJWKSURL:      getEnv("AUTH_JWKS_URL", ""),
		AuthIssuer:       getEnv("AUTH_ISSUER", ""),
		AIProvider:       getEnv("AI_PROVIDER", ProviderDify),
		DifyAPIKey:       getEnv("DIFY_API_KEY", ""),
		DifyBaseURL:      getEnv("DIFY_BASE_URL", "https://api.dify.ai/v1"),
		OpenAIKey:        getEnv("OPENAI_API_KEY", ""),
		AIModel:          getEnv("AI_MODEL", ""),
		AIBaseURL:        getEnv("AI_BASE_URL", ""),
		MediaDir:         getEnv("MEDIA_DIR", "./media"),
		MediaBaseURL:     getEnv("MEDIA_BASE_URL", "/media"),
		RedisURL:         getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RabbitMQURL:      getEnv("RABBITMQ_URL", ""),
		RabbitMQPrefetch: getEnvInt("RABBITMQ_PREFETCH", 1),
		RateLimit:        getEnv("RATE_LIMIT", "10-S"),
		EnableHSTS:       getEnvBool("ENABLE_HSTS", false),
		WorkerDebugMode:  getEnvBool("WORKER_DEBUG_MODE", false),
		ServerDebugMode:  getEnvBool("SERVER_DEBUG_MODE", false),
		OTELEnabled:      getEnvBool("OTEL_ENABLED", false),
		OTELEndpoint:     getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.RabbitMQURL == "" {
		return nil, fmt.Errorf("RABBITMQ_URL is required for the thumbnail job queue")
	}

	if cfg.AuthJWKSURL == "" || cfg.AuthIssuer == "" {
		return nil, fmt.Errorf("AUTH_JWKS_URL and AUTH_ISSUER are required to verify auth-provider tokens")
	}

	// Missing AI credentials are a configuration error, not a runtime one
	switch cfg.AIProvider {
	case ProviderDify:
		if cfg.DifyAPIKey == "" {
			return nil, fmt.Errorf("DIFY_API_KEY is required when AI_PROVIDER=dify")
		}
	case ProviderOpenAI:
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required when AI_PROVIDER=openai")
		}
	default:
		return nil, fmt.Errorf("unsupported AI_PROVIDER: %s", cfg.AIProvider)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
