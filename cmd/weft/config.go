package main

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config is read from the environment, with a .env file loaded first when
// present.
type Config struct {
	OpenRouterAPIKey string `envconfig:"OPENROUTER_API_KEY"`
	OpenRouterURL    string `envconfig:"OPENROUTER_BASE_URL"`
	Model            string `envconfig:"WEFT_MODEL" default:"anthropic/claude-sonnet-4"`
	ServicesURL      string `envconfig:"WEFT_SERVICES_URL"`
	ServicesAPIKey   string `envconfig:"WEFT_SERVICES_API_KEY"`
	DataDir          string `envconfig:"WEFT_DATA_DIR"`
	Slot             string `envconfig:"WEFT_SLOT" default:"default"`
	LogLevel         string `envconfig:"WEFT_LOG_LEVEL" default:"info"`
	MaxIterations    int    `envconfig:"WEFT_MAX_ITERATIONS" default:"10"`
}

// loadConfig loads .env (ignored when absent) and parses the environment.
func loadConfig() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("reading configuration: %w", err)
	}
	return &cfg, nil
}
