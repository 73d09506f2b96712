// Package config loads emoclassify configuration from TOML files and
// EMOCLASSIFY_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/emoclassify/internal/oracle"
	"github.com/JaimeStill/emoclassify/pkg/database"
	"github.com/JaimeStill/emoclassify/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvEmoclassifyEnv             = "EMOCLASSIFY_ENV"
	EnvEmoclassifyShutdownTimeout = "EMOCLASSIFY_SHUTDOWN_TIMEOUT"
	EnvEmoclassifyVersion         = "EMOCLASSIFY_VERSION"
)

var oracleEnv = &oracle.Env{
	BaseURL:         "EMOCLASSIFY_ORACLE_BASE_URL",
	Token:           "EMOCLASSIFY_ORACLE_TOKEN",
	Model:           "EMOCLASSIFY_ORACLE_MODEL",
	MaxConcurrent:   "EMOCLASSIFY_ORACLE_MAX_CONCURRENT",
	MaxOutputTokens: "EMOCLASSIFY_ORACLE_MAX_OUTPUT_TOKENS",
	Truncate:        "EMOCLASSIFY_ORACLE_TRUNCATE",
}

var databaseEnv = &database.Env{
	Host:            "EMOCLASSIFY_DB_HOST",
	Port:            "EMOCLASSIFY_DB_PORT",
	Name:            "EMOCLASSIFY_DB_NAME",
	User:            "EMOCLASSIFY_DB_USER",
	Password:        "EMOCLASSIFY_DB_PASSWORD",
	SSLMode:         "EMOCLASSIFY_DB_SSL_MODE",
	MaxConns:        "EMOCLASSIFY_DB_MAX_CONNS",
	MinConns:        "EMOCLASSIFY_DB_MIN_CONNS",
	ConnMaxLifetime: "EMOCLASSIFY_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "EMOCLASSIFY_DB_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	ContainerName:    "EMOCLASSIFY_STORAGE_CONTAINER_NAME",
	ConnectionString: "EMOCLASSIFY_STORAGE_CONNECTION_STRING",
	ServiceURL:       "EMOCLASSIFY_STORAGE_SERVICE_URL",
}

// Config is the root configuration shared by the CLI and the HTTP service.
// Database and Storage are optional; each is enabled only when configured.
type Config struct {
	Server          ServerConfig      `toml:"server"`
	Oracle          oracle.Config     `toml:"oracle"`
	Chunking        ChunkingConfig    `toml:"chunking"`
	Aggregation     AggregationConfig `toml:"aggregation"`
	Definitions     DefinitionsConfig `toml:"definitions"`
	Database        database.Config   `toml:"database"`
	Storage         storage.Config    `toml:"storage"`
	API             APIConfig         `toml:"api"`
	ShutdownTimeout string            `toml:"shutdown_timeout"`
	Version         string            `toml:"version"`
}

// Env returns the EMOCLASSIFY_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvEmoclassifyEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Load reads config.toml from the working directory.
func Load() (*Config, error) {
	return LoadFrom(BaseConfigFile)
}

// LoadFrom reads the base config at path (if present), applies the
// config.<env>.toml overlay found beside it, and finalizes all values. When
// no file exists, defaults and environment variables provide everything.
func LoadFrom(path string) (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(path); err == nil {
		loaded, err := load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if overlay := overlayPath(filepath.Dir(path)); overlay != "" {
		o, err := load(overlay)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", overlay, err)
		}
		cfg.Merge(o)
	}

	if err := cfg.Finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.Oracle.Merge(&overlay.Oracle)
	c.Chunking.Merge(&overlay.Chunking)
	c.Aggregation.Merge(&overlay.Aggregation)
	c.Definitions.Merge(&overlay.Definitions)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.API.Merge(&overlay.API)
}

// Finalize applies defaults, environment overrides, and validation to every
// sub-config.
func (c *Config) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Oracle.Finalize(oracleEnv); err != nil {
		return fmt.Errorf("oracle: %w", err)
	}
	if err := c.Chunking.Finalize(); err != nil {
		return fmt.Errorf("chunking: %w", err)
	}
	if err := c.Aggregation.Finalize(); err != nil {
		return fmt.Errorf("aggregation: %w", err)
	}
	if err := c.Definitions.Finalize(); err != nil {
		return fmt.Errorf("definitions: %w", err)
	}
	if err := c.Database.Finalize(databaseEnv); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Storage.Finalize(storageEnv); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvEmoclassifyShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvEmoclassifyVersion); v != "" {
		c.Version = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath(dir string) string {
	if env := os.Getenv(EnvEmoclassifyEnv); env != "" {
		path := filepath.Join(dir, fmt.Sprintf(OverlayConfigPattern, env))
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
