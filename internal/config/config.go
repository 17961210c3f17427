// Package config loads application configuration from a yaml file,
// environment variables, and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/jonesrussell/bidwatch/internal/logger"
	"github.com/jonesrussell/bidwatch/internal/notify"
	"github.com/jonesrussell/bidwatch/internal/scheduler"
	"github.com/jonesrussell/bidwatch/internal/source"
	"github.com/jonesrussell/bidwatch/internal/store"
)

// Storage backends.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

const envPrefix = "BIDWATCH"

// AppConfig identifies the running instance.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// StorageConfig selects and parameterizes the record store backend.
type StorageConfig struct {
	Backend  string          `mapstructure:"backend"`
	DataDir  string          `mapstructure:"data_dir"`
	Postgres store.SQLConfig `mapstructure:"postgres"`
}

// CrawlConfig bounds a crawl run.
type CrawlConfig struct {
	MaxArticles int `mapstructure:"max_articles"`
}

// Config is the full application configuration.
type Config struct {
	App      AppConfig          `mapstructure:"app"`
	Logger   logger.Config      `mapstructure:"logger"`
	Server   ServerConfig       `mapstructure:"server"`
	Storage  StorageConfig      `mapstructure:"storage"`
	Source   source.Config      `mapstructure:"source"`
	Schedule scheduler.Config   `mapstructure:"schedule"`
	Email    notify.EmailConfig `mapstructure:"email"`
	Crawl    CrawlConfig        `mapstructure:"crawl"`
}

// Load reads configuration. path, when non-empty, names an explicit
// config file; otherwise config.yaml is searched for in . and ./config.
// Environment variables prefixed BIDWATCH_ override file values.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app", map[string]any{
		"name":        "bidwatch",
		"environment": "production",
		"debug":       false,
	})
	v.SetDefault("logger", map[string]any{
		"level":       "info",
		"development": false,
		"encoding":    "json",
	})
	v.SetDefault("server", map[string]any{
		"address": ":8080",
	})
	v.SetDefault("storage", map[string]any{
		"backend":  BackendFile,
		"data_dir": "data",
		"postgres": map[string]any{
			"host":    "localhost",
			"port":    "5432",
			"user":    "bidwatch",
			"dbname":  "bidwatch",
			"sslmode": "disable",
		},
	})
	v.SetDefault("source", map[string]any{
		"request_timeout": "30s",
	})
	v.SetDefault("schedule", map[string]any{
		"enabled":          false,
		"interval_minutes": 0,
		"cron":             "",
		"timezone":         "Asia/Shanghai",
	})
	v.SetDefault("email", map[string]any{
		"enabled":   false,
		"smtp_port": 465,
	})
	v.SetDefault("crawl", map[string]any{
		"max_articles": 20,
	})
}

// Validate checks cross-field consistency.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendFile:
		if c.Storage.DataDir == "" {
			return errors.New("storage: data_dir is required for the file backend")
		}
	case BackendPostgres:
		if c.Storage.Postgres.Host == "" || c.Storage.Postgres.DBName == "" {
			return errors.New("storage: postgres host and dbname are required")
		}
	default:
		return fmt.Errorf("storage: unknown backend %q", c.Storage.Backend)
	}

	if c.Schedule.Enabled &&
		c.Schedule.IntervalMinutes <= 0 && c.Schedule.Cron == "" {
		return errors.New("schedule: enabled but neither interval_minutes nor cron is set")
	}

	if err := c.Email.Validate(); err != nil {
		return err
	}
	return nil
}
