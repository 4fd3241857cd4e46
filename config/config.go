// Package config loads server configuration from an optional file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	Env      string         `yaml:"env" env:"ENV" env-default:"dev"`
	Server   HTTPServer     `yaml:"server" env-prefix:"SERVER_"`
	Database DatabaseConfig `yaml:"database" env-prefix:"DB_"`
	Log      LogConfig      `yaml:"log" env-prefix:"LOG_"`
	Planning PlanningConfig `yaml:"planning" env-prefix:"PLANNING_"`
}

type HTTPServer struct {
	Port            int           `yaml:"port" env:"PORT" env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT" env-default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT" env-default:"15s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env:"IDLE_TIMEOUT" env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT" env-default:"30s"`
	AllowedOrigins  []string      `yaml:"allowed_origins" env:"ALLOWED_ORIGINS" env-separator:","`
	AccessLog       bool          `yaml:"access_log" env:"ACCESS_LOG" env-default:"true"`
}

type DatabaseConfig struct {
	// Path is the SQLite file; ":memory:" keeps everything in process.
	Path string `yaml:"path" env:"PATH" env-default:"planner.db"`
}

type LogConfig struct {
	Level string `yaml:"level" env:"LEVEL" env-default:"info"`
	// Format is "json" or "console".
	Format string `yaml:"format" env:"FORMAT" env-default:"json"`
}

type PlanningConfig struct {
	DefaultCapacity string        `yaml:"default_capacity" env:"DEFAULT_CAPACITY" env-default:"2"`
	BackfillEvery   time.Duration `yaml:"backfill_every" env:"BACKFILL_EVERY" env-default:"1h"`
	// Scenario, when set, is loaded into an empty database at startup.
	Scenario string `yaml:"scenario" env:"SCENARIO"`
}

// Load reads path (YAML, TOML, JSON or .env) when given, then the environment.
func Load(path string) (*Config, error) {
	var cfg Config
	var err error
	if path != "" {
		err = cleanenv.ReadConfig(path, &cfg)
	} else {
		err = cleanenv.ReadEnv(&cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// MustLoad is Load that panics on error.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err.Error())
	}
	return cfg
}

// Validate checks values cleanenv cannot.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server port %d out of range", c.Server.Port))
	}
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database path is required"))
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	if d, err := decimal.NewFromString(c.Planning.DefaultCapacity); err != nil {
		errs = append(errs, fmt.Errorf("default capacity: %w", err))
	} else if d.IsNegative() {
		errs = append(errs, errors.New("default capacity must not be negative"))
	}
	if c.Planning.BackfillEvery < 0 {
		errs = append(errs, errors.New("backfill interval must not be negative"))
	}
	return errors.Join(errs...)
}

// DefaultCapacity returns the parsed default member capacity.
func (c *Config) DefaultCapacity() decimal.Decimal {
	return decimal.RequireFromString(c.Planning.DefaultCapacity)
}

// Usage returns the environment variable help text.
func Usage() string {
	text, err := cleanenv.GetDescription(&Config{}, nil)
	if err != nil {
		return ""
	}
	return text
}
