// Package config loads movie-warehouse settings. Values are layered with
// koanf: built-in defaults, then an optional YAML file, then MOVIEREC_*
// environment variables (a .env file in the working directory is read into
// the environment first).
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/Skryldev/movie-warehouse/validation"
)

// EnvPrefix prefixes every environment override, e.g. MOVIEREC_STORE_HOST.
const EnvPrefix = "MOVIEREC_"

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{
	"movierec.yaml",
	"movierec.yml",
	"/etc/movierec/config.yaml",
}

// Config is the complete runtime configuration.
type Config struct {
	Store   StoreConfig   `koanf:"store"`
	Output  OutputConfig  `koanf:"output"`
	Logging LoggingConfig `koanf:"logging"`
}

// StoreConfig selects and addresses the analytic store.
type StoreConfig struct {
	// Driver is "hive" or a database/sql driver name.
	Driver   string `koanf:"driver" validate:"oneof=hive sqlite3 mysql postgres duckdb"`
	Host     string `koanf:"host"`
	Port     int    `koanf:"port" validate:"min=0,max=65535"`
	Database string `koanf:"database"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`

	// Auth is the HiveServer2 SASL mode.
	Auth string `koanf:"auth" validate:"oneof=NONE NOSASL LDAP KERBEROS CUSTOM"`

	// SSLMode is passed to postgres.
	SSLMode string `koanf:"sslmode"`

	// QueryTimeout bounds each statement. Zero waits indefinitely.
	QueryTimeout time.Duration `koanf:"query_timeout" validate:"min=0"`

	// SlowQueryThreshold logs statements slower than this at WARN.
	SlowQueryThreshold time.Duration `koanf:"slow_query_threshold" validate:"min=0"`
}

// Addr returns host:port for messages.
func (s StoreConfig) Addr() string {
	if s.Driver == "sqlite3" || s.Driver == "duckdb" {
		return s.Database
	}
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// OutputConfig controls how results are printed.
type OutputConfig struct {
	Format string `koanf:"format" validate:"oneof=table csv json"`
	// Color disables ANSI colors when false.
	Color bool `koanf:"color"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json text"`
	// File receives log records. Empty means stderr.
	File string `koanf:"file"`
}

// Default returns the built-in configuration: a local HiveServer2 without
// authentication.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Driver:             "hive",
			Host:               "localhost",
			Port:               10000,
			Database:           "default",
			Auth:               "NONE",
			SSLMode:            "disable",
			QueryTimeout:       0,
			SlowQueryThreshold: 5 * time.Second,
		},
		Output: OutputConfig{
			Format: "table",
			Color:  true,
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}

// Load builds the configuration from defaults, the first config file found
// and the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return LoadFile(findConfigFile())
}

// LoadFile is Load with an explicit config file. An empty path skips the file
// layer.
func LoadFile(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks field rules and the per-driver requirements.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return err
	}
	switch c.Store.Driver {
	case "hive", "mysql", "postgres":
		if c.Store.Host == "" {
			return fmt.Errorf("store.host is required for driver %s", c.Store.Driver)
		}
	case "sqlite3":
		if c.Store.Database == "" {
			return errors.New("store.database (file path) is required for driver sqlite3")
		}
	}
	return nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// envTransformFunc maps MOVIEREC_STORE_QUERY_TIMEOUT to store.query_timeout.
// Section names never contain underscores, so only the first one separates.
func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	section, field, ok := strings.Cut(key, "_")
	if !ok {
		return ""
	}
	return section + "." + field
}
