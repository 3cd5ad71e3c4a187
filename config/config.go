package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Env      string `env:"ENV"       envDefault:"local" validate:"required,oneof=local staging production"`
	Port     string `env:"PORT"      envDefault:"8080"  validate:"required"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"  validate:"oneof=debug info warn error DEBUG INFO WARN ERROR"`

	DatabaseURL string `env:"DATABASE_URL,required" validate:"required"`
	DBMaxConns  int32  `env:"DB_MAX_CONNS" envDefault:"20" validate:"min=1,max=200"`

	MetricsPort string `env:"METRICS_PORT" envDefault:"9090"`

	JWTSecret          string `env:"JWT_SECRET,required"    validate:"required,min=32"`
	RateLimitPerMinute int    `env:"RATE_LIMIT_PER_MINUTE" envDefault:"60" validate:"min=1,max=10000"`

	// Dispatcher
	DispatchIntervalSec    int    `env:"DISPATCH_INTERVAL_SEC"    envDefault:"10"  validate:"min=1,max=300"`
	DispatchBatchSize      int    `env:"DISPATCH_BATCH_SIZE"      envDefault:"100" validate:"min=1,max=1000"`
	TriggerConcurrency     int    `env:"TRIGGER_CONCURRENCY"      envDefault:"10"  validate:"min=1,max=100"`
	TriggerTimeoutSec      int    `env:"TRIGGER_TIMEOUT_SEC"      envDefault:"30"  validate:"min=1,max=300"`
	MaxConsecutiveFailures int    `env:"MAX_CONSECUTIVE_FAILURES" envDefault:"10"  validate:"min=1,max=1000"`
	ExecuteBaseURL         string `env:"EXECUTE_BASE_URL"         envDefault:"http://localhost:3000" validate:"required,url"`
	InternalAPISecret      string `env:"INTERNAL_API_SECRET"      validate:"required_if=Env production,required_if=Env staging"`

	ResendAPIKey string `env:"RESEND_API_KEY" validate:"required_if=Env production,required_if=Env staging"`
	ResendFrom   string `env:"RESEND_FROM"    validate:"required_if=Env production,required_if=Env staging"`
}

// Load reads .env files when present, then the process environment.
// Variables already set in the environment win over the files.
func Load() (*Config, error) {
	for _, file := range []string{".env", ".env.local"} {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", file, err)
		}
	}
	return parse()
}

func parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
