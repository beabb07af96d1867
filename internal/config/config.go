package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix prefixes every environment variable read by ApplyEnv.
const EnvPrefix = "FEEDQ_"

// Config holds application configuration.
type Config struct {
	// DefaultPageSize is the limit used when a request carries none.
	DefaultPageSize int `json:"default_page_size" env:"DEFAULT_PAGE_SIZE"`

	// MaxPageSize caps the limit of any request. Larger limits are clamped.
	MaxPageSize int `json:"max_page_size" env:"MAX_PAGE_SIZE"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// If set to 1, all database access is serialized (reduces "database is locked" errors).
	// 0 means use sql.DB default (unlimited). Only set if you experience contention.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty" env:"DB_MAX_OPEN_CONNS"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	// 0 means use sql.DB default. Typically set equal to DBMaxOpenConns.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty" env:"DB_MAX_IDLE_CONNS"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level,omitempty" env:"LOG_LEVEL"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// All tools are enabled by default. Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty" env:"DISABLED_TOOLS"`

	// DisabledTypes is a list of type names to disable entirely.
	// All tools belonging to disabled types are excluded from registration.
	// Known types: "feed", "object". Unknown type names are logged as warnings.
	DisabledTypes []string `json:"disabled_types,omitempty" env:"DISABLED_TYPES"`

	// KafkaBrokers enables publishing of activity mutations when non-empty.
	KafkaBrokers []string `json:"kafka_brokers,omitempty" env:"KAFKA_BROKERS"`

	// KafkaTopic is the topic mutation events are written to.
	KafkaTopic string `json:"kafka_topic,omitempty" env:"KAFKA_TOPIC"`

	// HTTPBind and HTTPPort are the listen address of `feedq serve`.
	HTTPBind string `json:"http_bind,omitempty" env:"HTTP_BIND"`
	HTTPPort int    `json:"http_port,omitempty" env:"HTTP_PORT"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		DefaultPageSize: 25,
		MaxPageSize:     100,
		LogLevel:        "info",
		KafkaTopic:      "feedq.activities",
		HTTPBind:        "127.0.0.1",
		HTTPPort:        8377,
	}
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.feedq.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// LoadWithRepo loads configuration from both global (~/.feedq) and repo (.feedq) directories.
// Repo config is found by walking upward from startDir to find the nearest .feedq/config.json.
// Repo config takes precedence for scalar values; arrays are merged (deduplicated).
// Either or both configs may be missing.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	repo, err := loadFileRaw(FindRepoConfig(startDir))
	if err != nil {
		return nil, err
	}

	// Apply defaults, then global, then repo
	return Merge(Merge(DefaultConfig(), global), repo), nil
}

// ApplyEnv overrides cfg with any FEEDQ_* environment variables that are set.
// Lists are comma-separated and replace, rather than merge with, file values.
func ApplyEnv(cfg *Config) error {
	return env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix})
}

// FindRepoConfig walks upward from startDir to find the nearest .feedq/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	dir := startDir
	for {
		configPath := filepath.Join(dir, ".feedq", "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	return &Config{
		DefaultPageSize: firstNonZero(overlay.DefaultPageSize, base.DefaultPageSize),
		MaxPageSize:     firstNonZero(overlay.MaxPageSize, base.MaxPageSize),
		DBMaxOpenConns:  firstNonZero(overlay.DBMaxOpenConns, base.DBMaxOpenConns),
		DBMaxIdleConns:  firstNonZero(overlay.DBMaxIdleConns, base.DBMaxIdleConns),
		LogLevel:        firstNonZero(overlay.LogLevel, base.LogLevel),
		KafkaTopic:      firstNonZero(overlay.KafkaTopic, base.KafkaTopic),
		HTTPBind:        firstNonZero(overlay.HTTPBind, base.HTTPBind),
		HTTPPort:        firstNonZero(overlay.HTTPPort, base.HTTPPort),

		DisabledTools: mergeStringSlice(base.DisabledTools, overlay.DisabledTools),
		DisabledTypes: mergeStringSlice(base.DisabledTypes, overlay.DisabledTypes),
		KafkaBrokers:  mergeStringSlice(base.KafkaBrokers, overlay.KafkaBrokers),
	}
}

// ClampLimit applies the page size defaults and bounds to a requested limit.
func (c *Config) ClampLimit(limit int) int {
	if limit <= 0 {
		limit = c.DefaultPageSize
	}
	if c.MaxPageSize > 0 && limit > c.MaxPageSize {
		limit = c.MaxPageSize
	}
	return limit
}

func firstNonZero[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string(nil), a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
