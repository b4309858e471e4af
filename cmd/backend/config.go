package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the backend, loaded from the
// environment.
type AppConfig struct {
	Port         string
	Environment  string
	GeminiAPIKey string
	GeminiModel  string
	MCPServerURL string

	// RedisAddr is optional. When empty, response caching is disabled and
	// every chat request goes through the full orchestration.
	RedisAddr string

	Temperature  float32
	MaxTokens    int
	CacheTTLSecs int
}

// LoadConfig loads configuration from a .env file and environment
// variables. The .env file is only consulted in local development; in
// containers (GIN_MODE=release) configuration comes directly from the
// environment.
func LoadConfig() (*AppConfig, error) {
	if os.Getenv("GIN_MODE") != "release" {
		if err := godotenv.Load(); err != nil {
			log.Println("WARNING: No .env file found for local development.")
		}
	}

	cfg := &AppConfig{
		Port:         getEnv("PORT", "8000"),
		Environment:  getEnv("ENVIRONMENT", "dev"),
		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		MCPServerURL: getEnv("MCP_SERVER_URL", "http://localhost:8001"),
		RedisAddr:    os.Getenv("REDIS_ADDR"),
		Temperature:  0.2,
		MaxTokens:    4096,
		CacheTTLSecs: 3600,
	}

	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable is not set")
	}

	if raw := os.Getenv("LLM_TEMPERATURE"); raw != "" {
		t, err := strconv.ParseFloat(raw, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid LLM_TEMPERATURE %q: %w", raw, err)
		}
		cfg.Temperature = float32(t)
	}
	if raw := os.Getenv("LLM_MAX_TOKENS"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid LLM_MAX_TOKENS %q: %w", raw, err)
		}
		cfg.MaxTokens = n
	}
	if raw := os.Getenv("CACHE_TTL_SECONDS"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid CACHE_TTL_SECONDS %q: %w", raw, err)
		}
		cfg.CacheTTLSecs = n
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
