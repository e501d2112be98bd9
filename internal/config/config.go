package config

import (
	"fmt"
	"log"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the process configuration, read from the environment.
type Config struct {
	DevMode  bool   `env:"DEV_MODE" envDefault:"false"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile  string `env:"LOG_FILE"`

	IdentitiesPath string `env:"IDENTITIES_PATH" envDefault:"identities.yaml"`

	AIProvider string `env:"AI_PROVIDER" envDefault:"pollinations"`
	AIModel    string `env:"AI_MODEL" envDefault:"openai"`

	MediaBaseURL string `env:"MEDIA_BASE_URL"`
	MediaAPIKey  string `env:"MEDIA_API_KEY"`

	HistoryLimit        int    `env:"HISTORY_LIMIT" envDefault:"20"`
	SweepSchedule       string `env:"SWEEP_SCHEDULE" envDefault:"@every 10m"`
	MetricsAddr         string `env:"METRICS_ADDR" envDefault:":9090"`
	AllowDebugOverrides bool   `env:"ALLOW_DEBUG_OVERRIDES" envDefault:"false"`
}

// Load reads a .env file if one exists and then parses the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, falling back to system environment variables")
	}
	return Parse()
}

// Parse reads the environment into a Config without touching .env files.
func Parse() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if cfg.HistoryLimit < 1 {
		return nil, fmt.Errorf("HISTORY_LIMIT must be positive, got %d", cfg.HistoryLimit)
	}
	return &cfg, nil
}
