// Package config loads config.toml over the defaults and applies the
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// AppConfig is the full service configuration
type AppConfig struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Redis    RedisConfig    `toml:"redis"`
	Ingest   IngestConfig   `toml:"ingest"`
	Log      LogConfig      `toml:"log"`
}

// ServerConfig configures the HTTP listener
type ServerConfig struct {
	Port         int `toml:"port"`
	MaxUploadMB  int `toml:"max_upload_mb"`
	ReadTimeoutS int `toml:"read_timeout_s"`
}

// DatabaseConfig configures the postgres connection
type DatabaseConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Name     string `toml:"name"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	SSLMode  string `toml:"sslmode"`
}

// RedisConfig configures the historical cache
type RedisConfig struct {
	Enabled  bool   `toml:"enabled"`
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	TTLS     int    `toml:"ttl_s"`
}

// IngestConfig tunes the ingestion runs
type IngestConfig struct {
	BatchSize         int    `toml:"batch_size"`
	HistoricBatchSize int    `toml:"historic_batch_size"`
	FallbackEpoch     string `toml:"fallback_epoch"` // YYYY-MM-DD
	HistoricSheet     string `toml:"historic_sheet"`
}

// LogConfig selects the slog handler
type LogConfig struct {
	Level  string `toml:"level"`  // debug, info, warn, error
	Format string `toml:"format"` // text or json
}

// DefaultConfig returns the built-in configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:         8080,
			MaxUploadMB:  32,
			ReadTimeoutS: 60,
		},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			Name:    "dairy",
			User:    "postgres",
			SSLMode: "disable",
		},
		Redis: RedisConfig{
			Enabled: false,
			Addr:    "localhost:6379",
			TTLS:    3600,
		},
		Ingest: IngestConfig{
			BatchSize:         1000,
			HistoricBatchSize: 500,
			FallbackEpoch:     "2025-01-01",
			HistoricSheet:     "SIC PROM",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads path over the defaults; a missing file is not an error. The
// environment overrides are applied last.
func Load(path string) (*AppConfig, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		default:
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s must be an integer: %w", key, err)
		}
		*dst = n
		return nil
	}

	str("DB_HOST", &c.Database.Host)
	str("DB_NAME", &c.Database.Name)
	str("DB_USER", &c.Database.User)
	str("DB_PASSWORD", &c.Database.Password)
	str("REDIS_ADDR", &c.Redis.Addr)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	if err := num("DB_PORT", &c.Database.Port); err != nil {
		return err
	}
	if err := num("PORT", &c.Server.Port); err != nil {
		return err
	}
	if v, ok := lookup("REDIS_ENABLED"); ok && v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("REDIS_ENABLED must be a boolean: %w", err)
		}
		c.Redis.Enabled = enabled
	}
	return nil
}

// Validate rejects settings the services cannot run with
func (c *AppConfig) Validate() error {
	var problems []string
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		problems = append(problems, "server.port out of range")
	}
	if c.Ingest.BatchSize <= 0 {
		problems = append(problems, "ingest.batch_size must be positive")
	}
	if c.Ingest.HistoricBatchSize <= 0 {
		problems = append(problems, "ingest.historic_batch_size must be positive")
	}
	if _, err := c.Ingest.Epoch(); err != nil {
		problems = append(problems, "ingest.fallback_epoch must be YYYY-MM-DD")
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json", "standard":
	default:
		problems = append(problems, "log.format must be text or json")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// DSN is the postgres connection string for gorm
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// Epoch parses the fallback epoch
func (i IngestConfig) Epoch() (time.Time, error) {
	return time.Parse("2006-01-02", i.FallbackEpoch)
}

// TTL is the cache entry lifetime
func (r RedisConfig) TTL() time.Duration {
	return time.Duration(r.TTLS) * time.Second
}
