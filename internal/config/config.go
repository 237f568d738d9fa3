// Package config loads the wishlist server configuration.
//
// Values are layered, later sources overriding earlier ones:
//  1. Built-in defaults
//  2. Project config file (.wishlist/config.yml, or an explicit path)
//  3. Environment variables prefixed with WISHLIST_
//
// Nested keys use a double underscore in environment variable names, e.g.
// WISHLIST_RATE_LIMIT__RPS sets rate_limit.rps.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix for environment overrides
const EnvPrefix = "WISHLIST_"

// ProjectConfigFile is the config file looked up when no path is given
var ProjectConfigFile = filepath.Join(".wishlist", "config.yml")

// Config holds the server configuration
type Config struct {
	// Addr is the HTTP listen address
	// Default: ":8080"
	Addr string `koanf:"addr"`

	// DBPath is the SQLite database path. Empty means discover it.
	DBPath string `koanf:"db_path"`

	// ImageDir is where uploaded item images are written
	// Default: ".wishlist/images"
	ImageDir string `koanf:"image_dir"`

	// ImageURLPrefix is the URL path images are served under
	// Default: "/images"
	ImageURLPrefix string `koanf:"image_url_prefix"`

	// MaxUploadMB caps multipart request size
	// Default: 10, Range: 1-100
	MaxUploadMB int `koanf:"max_upload_mb"`

	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`

	RateLimit RateLimitConfig `koanf:"rate_limit"`
	Log       LogConfig       `koanf:"log"`
}

// RateLimitConfig throttles mutating API requests
type RateLimitConfig struct {
	// RPS is the sustained request rate. 0 disables limiting.
	RPS float64 `koanf:"rps"`
	// Burst is the bucket size
	Burst int `koanf:"burst"`
}

// LogConfig controls the structured logger
type LogConfig struct {
	// Level is one of debug, info, warn, error
	Level string `koanf:"level"`
	// Development switches to a human-readable console encoder
	Development bool `koanf:"development"`
}

// LoadOptions configures Load
type LoadOptions struct {
	// ConfigPath is an explicit config file. It must exist when set.
	ConfigPath string
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		Addr:              ":8080",
		ImageDir:          filepath.Join(".wishlist", "images"),
		ImageURLPrefix:    "/images",
		MaxUploadMB:       10,
		ReadHeaderTimeout: 10 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		RateLimit: RateLimitConfig{
			RPS:   5,
			Burst: 10,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration from defaults, the config file and the environment
func Load(opts LoadOptions) (*Config, error) {
	k := koanf.New(".")

	loadDefaults(k)

	if err := loadFileConfig(k, opts.ConfigPath); err != nil {
		return nil, err
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment config: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func loadDefaults(k *koanf.Koanf) {
	d := Default()
	defaults := map[string]interface{}{
		"addr":                d.Addr,
		"db_path":             d.DBPath,
		"image_dir":           d.ImageDir,
		"image_url_prefix":    d.ImageURLPrefix,
		"max_upload_mb":       d.MaxUploadMB,
		"read_header_timeout": d.ReadHeaderTimeout,
		"shutdown_timeout":    d.ShutdownTimeout,
		"rate_limit.rps":      d.RateLimit.RPS,
		"rate_limit.burst":    d.RateLimit.Burst,
		"log.level":           d.Log.Level,
		"log.development":     d.Log.Development,
	}
	for key, value := range defaults {
		_ = k.Set(key, value)
	}
}

func loadFileConfig(k *koanf.Koanf, customPath string) error {
	path := customPath
	if path == "" {
		path = ProjectConfigFile
		if _, err := os.Stat(path); err != nil {
			// No project config; defaults and environment only
			return nil
		}
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("failed to load config %s: %w", path, err)
	}
	return nil
}

// envTransform converts environment variable names to config keys
// Example: WISHLIST_RATE_LIMIT__RPS -> rate_limit.rps
func envTransform(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

// MaxUploadBytes returns MaxUploadMB in bytes
func (c Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// Validate checks if the configuration has valid values
func (c Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("addr is required")
	}
	if strings.TrimSpace(c.ImageDir) == "" {
		return fmt.Errorf("image_dir is required")
	}
	if !strings.HasPrefix(c.ImageURLPrefix, "/") || c.ImageURLPrefix == "/" || strings.HasPrefix(c.ImageURLPrefix, "/api") {
		return fmt.Errorf("image_url_prefix must be a path like /images (got %q)", c.ImageURLPrefix)
	}
	if c.MaxUploadMB < 1 || c.MaxUploadMB > 100 {
		return fmt.Errorf("max_upload_mb must be between 1 and 100 (got %d)", c.MaxUploadMB)
	}
	if c.ReadHeaderTimeout <= 0 {
		return fmt.Errorf("read_header_timeout must be positive (got %s)", c.ReadHeaderTimeout)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown_timeout must be positive (got %s)", c.ShutdownTimeout)
	}
	if c.RateLimit.RPS < 0 {
		return fmt.Errorf("rate_limit.rps cannot be negative (got %g)", c.RateLimit.RPS)
	}
	if c.RateLimit.RPS > 0 && c.RateLimit.Burst < 1 {
		return fmt.Errorf("rate_limit.burst must be at least 1 when rate limiting is enabled (got %d)", c.RateLimit.Burst)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error (got %q)", c.Log.Level)
	}
	return nil
}

// String returns a human-readable summary
func (c Config) String() string {
	rate := "off"
	if c.RateLimit.RPS > 0 {
		rate = fmt.Sprintf("%g/s burst %d", c.RateLimit.RPS, c.RateLimit.Burst)
	}
	db := c.DBPath
	if db == "" {
		db = "(discover)"
	}
	return fmt.Sprintf("Config{addr=%s, db=%s, images=%s at %s, max_upload=%dMB, rate_limit=%s, log=%s}",
		c.Addr, db, c.ImageDir, c.ImageURLPrefix, c.MaxUploadMB, rate, c.Log.Level)
}
