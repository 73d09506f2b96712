package config

import (
	"fmt"
	"os"

	"github.com/JaimeStill/emoclassify/pkg/auth"
	"github.com/JaimeStill/emoclassify/pkg/formatting"
	"github.com/JaimeStill/emoclassify/pkg/pagination"
)

const (
	EnvAPIBasePath    = "EMOCLASSIFY_API_BASE_PATH"
	EnvAPIMaxBodySize = "EMOCLASSIFY_API_MAX_BODY_SIZE"
)

var authEnv = &auth.Env{
	Issuer:   "EMOCLASSIFY_AUTH_ISSUER",
	Audience: "EMOCLASSIFY_AUTH_AUDIENCE",
	JWKSURL:  "EMOCLASSIFY_AUTH_JWKS_URL",
}

var paginationEnv = &pagination.Env{
	DefaultPageSize: "EMOCLASSIFY_PAGINATION_DEFAULT_PAGE_SIZE",
	MaxPageSize:     "EMOCLASSIFY_PAGINATION_MAX_PAGE_SIZE",
}

// APIConfig holds API routing, request limits, bearer authentication, and
// run listing pagination.
type APIConfig struct {
	BasePath    string            `toml:"base_path"`
	MaxBodySize string            `toml:"max_body_size"`
	Auth        auth.Config       `toml:"auth"`
	Pagination  pagination.Config `toml:"pagination"`
}

// MaxBodySizeBytes returns the request body limit in bytes.
func (c *APIConfig) MaxBodySizeBytes() int64 {
	size, err := formatting.ParseBytes(c.MaxBodySize)
	if err != nil {
		return 32 * 1024 * 1024
	}
	return size
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *APIConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if _, err := formatting.ParseBytes(c.MaxBodySize); err != nil {
		return fmt.Errorf("invalid max_body_size: %w", err)
	}
	if err := c.Auth.Finalize(authEnv); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if err := c.Pagination.Finalize(paginationEnv); err != nil {
		return fmt.Errorf("pagination: %w", err)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay.
func (c *APIConfig) Merge(overlay *APIConfig) {
	if overlay.BasePath != "" {
		c.BasePath = overlay.BasePath
	}
	if overlay.MaxBodySize != "" {
		c.MaxBodySize = overlay.MaxBodySize
	}
	c.Auth.Merge(&overlay.Auth)
	c.Pagination.Merge(&overlay.Pagination)
}

func (c *APIConfig) loadDefaults() {
	if c.BasePath == "" {
		c.BasePath = "/api"
	}
	if c.MaxBodySize == "" {
		c.MaxBodySize = "32MB"
	}
}

func (c *APIConfig) loadEnv() {
	if v := os.Getenv(EnvAPIBasePath); v != "" {
		c.BasePath = v
	}
	if v := os.Getenv(EnvAPIMaxBodySize); v != "" {
		c.MaxBodySize = v
	}
}
