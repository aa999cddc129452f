// Package config loads taskbook settings from a YAML or TOML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Storage drivers
const (
	DriverJSON   = "json"
	DriverSQLite = "sqlite"
)

// Config represents the complete taskbook configuration
type Config struct {
	Storage StorageConfig `yaml:"storage" toml:"storage"`
	Server  ServerConfig  `yaml:"server" toml:"server"`
	Logging LoggingConfig `yaml:"logging" toml:"logging"`
}

// StorageConfig selects the persistence target
type StorageConfig struct {
	Driver string `yaml:"driver" toml:"driver"`
	Path   string `yaml:"path" toml:"path"`
	// StrictLoad aborts startup when the stored tasks cannot be read
	StrictLoad bool `yaml:"strict_load" toml:"strict_load"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	HTTPAddr        string        `yaml:"http_addr" toml:"http_addr"`
	ShutdownTimeout time.Duration `yaml:"-" toml:"-"`

	// Raw string value for unmarshaling
	ShutdownTimeoutRaw string `yaml:"shutdown_timeout" toml:"shutdown_timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// Default returns the configuration used when no file is present
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Driver: DriverJSON,
			Path:   "./tasks.json",
		},
		Server: ServerConfig{
			HTTPAddr:           ":8080",
			ShutdownTimeout:    5 * time.Second,
			ShutdownTimeoutRaw: "5s",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a configuration file from the given path on top of the defaults.
// A missing file yields the defaults. Variables from a .env file next to the
// config (or in the working directory) are loaded first, then ${VAR_NAME}
// patterns are expanded. Files ending in .toml are parsed as TOML, anything
// else as YAML.
func Load(path string) (*Config, error) {
	loadDotEnv(path)

	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, cfg.Validate()
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expanded, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// loadDotEnv loads .env files without overriding variables already set
func loadDotEnv(configPath string) {
	candidates := []string{filepath.Join(filepath.Dir(configPath), ".env"), ".env"}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			_ = godotenv.Load(c)
		}
	}
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverJSON, DriverSQLite:
	default:
		return fmt.Errorf("storage.driver must be %q or %q, got %q", DriverJSON, DriverSQLite, c.Storage.Driver)
	}

	if c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required")
	}

	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}

	if c.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("server.shutdown_timeout must not be negative")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error, got %q", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	if cfg.Server.ShutdownTimeoutRaw != "" {
		d, err := time.ParseDuration(cfg.Server.ShutdownTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing shutdown_timeout %q: %w", cfg.Server.ShutdownTimeoutRaw, err)
		}
		cfg.Server.ShutdownTimeout = d
	}
	return nil
}
