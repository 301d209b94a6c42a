// Package config loads runtime configuration for state machine processes
// from the environment, optionally seeded from .env files.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Store backends understood by store.Open.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
)

var (
	// ErrParsingConfig is returned when the environment cannot be decoded.
	ErrParsingConfig = errors.New("failed to parse config")

	// ErrInvalidConfig is returned by Validate.
	ErrInvalidConfig = errors.New("invalid config")
)

// Config is the full process configuration.
type Config struct {
	Logging   Logging   `envPrefix:"LOG_"`
	Store     Store     `envPrefix:"FSM_STORE_"`
	Codec     Codec     `envPrefix:"FSM_CODEC_"`
	Telemetry Telemetry `envPrefix:"OTEL_"`
	Offload   Offload   `envPrefix:"FSM_OFFLOAD_"`
}

// Logging controls the process logger.
type Logging struct {
	JSON   bool   `env:"JSON"   envDefault:"false"`
	Level  string `env:"LEVEL"  envDefault:"info"`
	Output string `env:"OUTPUT" envDefault:"stdout"`
	OTel   bool   `env:"OTEL"   envDefault:"false"`
}

// Store selects and configures the snapshot store.
type Store struct {
	Backend       string        `env:"BACKEND"        envDefault:"memory"`
	Path          string        `env:"PATH"`
	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisDB       int           `env:"REDIS_DB"       envDefault:"0"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	KeyPrefix     string        `env:"KEY_PREFIX"     envDefault:"fsm:"`
	TTL           time.Duration `env:"TTL"            envDefault:"0s"`
}

// Codec selects how snapshots are serialized.
type Codec struct {
	Format      string `env:"FORMAT"      envDefault:"json"`
	Compression string `env:"COMPRESSION" envDefault:"none"`
}

// Telemetry configures OpenTelemetry export.
type Telemetry struct {
	Enabled        bool          `env:"ENABLED"                       envDefault:"false"`
	ServiceName    string        `env:"SERVICE_NAME"                  envDefault:"amp-fsm"`
	ServiceVersion string        `env:"SERVICE_VERSION"`
	Environment    string        `env:"ENVIRONMENT"`
	TracesEndpoint string        `env:"EXPORTER_OTLP_TRACES_ENDPOINT"`
	LogsEndpoint   string        `env:"EXPORTER_OTLP_LOGS_ENDPOINT"`
	Timeout        time.Duration `env:"EXPORTER_OTLP_TIMEOUT"         envDefault:"10s"`
}

// Offload sizes the worker pool used by offloaded handlers.
type Offload struct {
	Workers int `env:"WORKERS" envDefault:"10"`
}

// Load reads the given .env files (or ./.env when none are given and it
// exists) into the process environment, then parses and validates Config.
// Variables already set in the environment win over .env values.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil {
		if len(files) > 0 || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading env files: %w", err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, errors.Join(ErrParsingConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadFromMap parses and validates Config from vars instead of the process
// environment.
func LoadFromMap(vars map[string]string) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: vars}); err != nil {
		return nil, errors.Join(ErrParsingConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks cross-field constraints that struct tags cannot express.
func (c *Config) Validate() error {
	var errs []error

	switch c.Store.Backend {
	case BackendMemory:
	case BackendFile, BackendSQLite:
		if c.Store.Path == "" {
			errs = append(errs, fmt.Errorf("store backend %s requires FSM_STORE_PATH", c.Store.Backend))
		}
	case BackendRedis:
		if c.Store.RedisAddr == "" {
			errs = append(errs, errors.New("store backend redis requires FSM_STORE_REDIS_ADDR")) //nolint:err113
		}
	case BackendBadger:
		// An empty path runs badger in memory.
	default:
		errs = append(errs, fmt.Errorf("unknown store backend %q", c.Store.Backend))
	}

	if c.Store.TTL < 0 {
		errs = append(errs, errors.New("FSM_STORE_TTL must not be negative")) //nolint:err113
	}

	if c.Offload.Workers < 0 {
		errs = append(errs, errors.New("FSM_OFFLOAD_WORKERS must not be negative")) //nolint:err113
	}

	if c.Telemetry.Enabled && c.Telemetry.ServiceName == "" {
		errs = append(errs, errors.New("OTEL_SERVICE_NAME is required when telemetry is enabled")) //nolint:err113
	}

	if len(errs) == 0 {
		return nil
	}

	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}
