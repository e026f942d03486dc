// Package config loads orderdesk settings: built-in defaults, then
// base.yaml, then <env>.yaml, then ORDERDESK_ environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"golang.org/x/text/currency"
)

const envPrefix = "ORDERDESK_"

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"

	PublisherLog  = "log"
	PublisherAMQP = "amqp"
)

type Config struct {
	App struct {
		Name     string `koanf:"name"`
		Env      string `koanf:"env"`
		HTTPAddr string `koanf:"http_addr"`
		LogLevel string `koanf:"log_level"`
		LogFile  string `koanf:"log_file"`
	} `koanf:"app"`

	HTTP struct {
		ReadTimeout     time.Duration `koanf:"read_timeout"`
		WriteTimeout    time.Duration `koanf:"write_timeout"`
		IdleTimeout     time.Duration `koanf:"idle_timeout"`
		ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	} `koanf:"http"`

	Storage struct {
		Driver string `koanf:"driver"`
	} `koanf:"storage"`

	Postgres struct {
		DSN              string        `koanf:"dsn"`
		MaxConns         int32         `koanf:"max_conns"`
		OperationTimeout time.Duration `koanf:"operation_timeout"`
		Migrate          bool          `koanf:"migrate"`
	} `koanf:"postgres"`

	Orders struct {
		Currency             string `koanf:"currency"`
		Timezone             string `koanf:"timezone"`
		DefaultPageSize      int    `koanf:"default_page_size"`
		MaxPageSize          int    `koanf:"max_page_size"`
		AllowPaidAfterCancel bool   `koanf:"allow_paid_after_cancel"`

		// Populated by Validate.
		Unit     currency.Unit  `koanf:"-"`
		Location *time.Location `koanf:"-"`
	} `koanf:"orders"`

	Export struct {
		Timeout time.Duration `koanf:"timeout"`
	} `koanf:"export"`

	// An empty Redis.Addr disables the stats cache.
	Redis struct {
		Addr     string        `koanf:"addr"`
		Password string        `koanf:"password"`
		DB       int           `koanf:"db"`
		Prefix   string        `koanf:"prefix"`
		StatsTTL time.Duration `koanf:"stats_ttl"`
	} `koanf:"redis"`

	Analytics struct {
		Publisher      string        `koanf:"publisher"`
		AMQPURL        string        `koanf:"amqp_url"`
		Exchange       string        `koanf:"exchange"`
		BufferSize     int           `koanf:"buffer_size"`
		PublishTimeout time.Duration `koanf:"publish_timeout"`
	} `koanf:"analytics"`
}

func defaults() map[string]any {
	return map[string]any{
		"app.name":      "orderdesk",
		"app.env":       "dev",
		"app.http_addr": ":8080",
		"app.log_level": "info",

		"http.read_timeout":     "10s",
		"http.write_timeout":    "10m",
		"http.idle_timeout":     "60s",
		"http.shutdown_timeout": "15s",

		"storage.driver": DriverMemory,

		"postgres.max_conns":         10,
		"postgres.operation_timeout": "5s",
		"postgres.migrate":           true,

		"orders.currency":          "INR",
		"orders.timezone":          "Asia/Kolkata",
		"orders.default_page_size": 20,
		"orders.max_page_size":     100,

		"export.timeout": "5m",

		"redis.prefix":    "orderdesk",
		"redis.stats_ttl": "30s",

		"analytics.publisher":       PublisherLog,
		"analytics.exchange":        "orderdesk.events",
		"analytics.buffer_size":     256,
		"analytics.publish_timeout": "5s",
	}
}

func Load(dir, envName string) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if err := k.Load(file.Provider(filepath.Join(dir, "base.yaml")), yaml.Parser()); err != nil {
		return Config{}, fmt.Errorf("load base: %w", err)
	}

	// the per-environment file is optional, but a broken one is not ignored
	if envName != "" {
		envFile := filepath.Join(dir, envName+".yaml")
		if _, err := os.Stat(envFile); err == nil {
			if err := k.Load(file.Provider(envFile), yaml.Parser()); err != nil {
				return Config{}, fmt.Errorf("load %s: %w", envName, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("stat %s: %w", envFile, err)
		}
	}

	// ORDERDESK_POSTGRES__DSN -> postgres.dsn
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		s = strings.ReplaceAll(s, "__", ".")
		return strings.ToLower(s)
	}), nil); err != nil {
		return Config{}, fmt.Errorf("env overlay: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}
	if envName != "" {
		cfg.App.Env = envName
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks required values and resolves the currency and time zone.
func (c *Config) Validate() error {
	if c.App.HTTPAddr == "" {
		return fmt.Errorf("app.http_addr required")
	}

	switch c.Storage.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("postgres.dsn required for storage.driver %q", DriverPostgres)
		}
	default:
		return fmt.Errorf("storage.driver: unknown value %q", c.Storage.Driver)
	}

	if c.Postgres.OperationTimeout <= 0 {
		return fmt.Errorf("postgres.operation_timeout must be positive")
	}
	if c.Export.Timeout <= 0 {
		return fmt.Errorf("export.timeout must be positive")
	}

	unit, err := currency.ParseISO(c.Orders.Currency)
	if err != nil {
		return fmt.Errorf("orders.currency: %w", err)
	}
	c.Orders.Unit = unit

	loc, err := time.LoadLocation(c.Orders.Timezone)
	if err != nil {
		return fmt.Errorf("orders.timezone: %w", err)
	}
	c.Orders.Location = loc

	if c.Orders.DefaultPageSize < 1 || c.Orders.MaxPageSize < c.Orders.DefaultPageSize {
		return fmt.Errorf("orders page sizes: need 1 <= default_page_size (%d) <= max_page_size (%d)",
			c.Orders.DefaultPageSize, c.Orders.MaxPageSize)
	}

	switch c.Analytics.Publisher {
	case PublisherLog:
	case PublisherAMQP:
		if c.Analytics.AMQPURL == "" {
			return fmt.Errorf("analytics.amqp_url required for analytics.publisher %q", PublisherAMQP)
		}
	default:
		return fmt.Errorf("analytics.publisher: unknown value %q", c.Analytics.Publisher)
	}

	return nil
}
