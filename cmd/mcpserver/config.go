package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the MCP server, loaded from the
// environment.
type AppConfig struct {
	Port              string
	WorkspacePath     string
	TerraformPlansDir string
	AppLogPath        string
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
		Port:              getEnv("MCP_PORT", "8001"),
		WorkspacePath:     getEnv("WORKSPACE_SNAPSHOT", "workspace.yaml"),
		TerraformPlansDir: getEnv("TERRAFORM_PLANS_DIR", "terraform_plans"),
		AppLogPath:        getEnv("APP_LOG_PATH", "logs/app.log"),
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
