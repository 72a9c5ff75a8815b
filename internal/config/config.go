// Package config provides configuration management for the article exporter.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

const (
	defaultOutputPath    = "data/articles.json"
	defaultArchivePrefix = "articles_"
	defaultLogLevel      = "info"
)

// Config represents the exporter configuration.
type Config struct {
	OutputPath    string `yaml:"output_path"`    // Main cumulative store file
	ArchiveDir    string `yaml:"archive_dir"`    // Optional: defaults to the directory of output_path
	ArchivePrefix string `yaml:"archive_prefix"` // Prefix for year archive file names
	LogLevel      string `yaml:"log_level"`      // debug, info, warn or error
}

// DefaultConfigPath is where the config file lives when --config is not given.
func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, "article-exporter", "config.yaml")
}

// defaultConfig returns a configuration with every default applied.
func defaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads and parses a configuration file from the specified path. A
// missing file is not an error; defaults and environment overrides apply.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigPath()
	}

	var config Config

	// #nosec G304 -- path is provided by user as configuration file path
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// fall through to defaults
	default:
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Override with environment variables (env vars take precedence)
	if v := os.Getenv("ARTICLES_OUTPUT_PATH"); v != "" {
		config.OutputPath = v
	}
	if v := os.Getenv("ARTICLES_ARCHIVE_DIR"); v != "" {
		config.ArchiveDir = v
	}
	if v := os.Getenv("ARTICLES_LOG_LEVEL"); v != "" {
		config.LogLevel = v
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.OutputPath == "" {
		c.OutputPath = defaultOutputPath
	}
	if c.ArchivePrefix == "" {
		c.ArchivePrefix = defaultArchivePrefix
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.OutputPath) == "" {
		return fmt.Errorf("output_path cannot be empty")
	}
	if strings.ContainsAny(c.ArchivePrefix, `/\`) {
		return fmt.Errorf("archive_prefix must not contain a path separator, got %q", c.ArchivePrefix)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// SlogLevel returns the configured log level.
func (c *Config) SlogLevel() slog.Level {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("log_level must be one of debug, info, warn, error, got %q", s)
	}
}
