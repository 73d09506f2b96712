package oracle

import (
	"fmt"
	"os"
	"strconv"
)

// Defaults for the oracle connection.
const (
	DefaultModel           = "gpt-4o-mini-2024-07-18"
	DefaultMaxConcurrent   = 5
	DefaultMaxOutputTokens = 20

	// FallbackTokenEnv is consulted when no token is configured.
	FallbackTokenEnv = "OPENAI_API_KEY"
)

// Config holds completion service parameters and the process-wide call cap.
type Config struct {
	BaseURL         string `toml:"base_url"`
	Token           string `toml:"token"`
	Model           string `toml:"model"`
	MaxConcurrent   int    `toml:"max_concurrent"`
	MaxOutputTokens int    `toml:"max_output_tokens"`
	Truncate        bool   `toml:"truncate"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	BaseURL         string
	Token           string
	Model           string
	MaxConcurrent   string
	MaxOutputTokens string
	Truncate        string
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.BaseURL != "" {
		c.BaseURL = overlay.BaseURL
	}
	if overlay.Token != "" {
		c.Token = overlay.Token
	}
	if overlay.Model != "" {
		c.Model = overlay.Model
	}
	if overlay.MaxConcurrent != 0 {
		c.MaxConcurrent = overlay.MaxConcurrent
	}
	if overlay.MaxOutputTokens != 0 {
		c.MaxOutputTokens = overlay.MaxOutputTokens
	}
	if overlay.Truncate {
		c.Truncate = true
	}
}

func (c *Config) loadDefaults() {
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.MaxConcurrent == 0 {
		c.MaxConcurrent = DefaultMaxConcurrent
	}
	if c.MaxOutputTokens == 0 {
		c.MaxOutputTokens = DefaultMaxOutputTokens
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.BaseURL != "" {
		if v := os.Getenv(env.BaseURL); v != "" {
			c.BaseURL = v
		}
	}
	if env.Token != "" {
		if v := os.Getenv(env.Token); v != "" {
			c.Token = v
		}
	}
	if c.Token == "" {
		c.Token = os.Getenv(FallbackTokenEnv)
	}
	if env.Model != "" {
		if v := os.Getenv(env.Model); v != "" {
			c.Model = v
		}
	}
	if env.MaxConcurrent != "" {
		if v := os.Getenv(env.MaxConcurrent); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.MaxConcurrent = n
			}
		}
	}
	if env.MaxOutputTokens != "" {
		if v := os.Getenv(env.MaxOutputTokens); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.MaxOutputTokens = n
			}
		}
	}
	if env.Truncate != "" {
		if v := os.Getenv(env.Truncate); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				c.Truncate = b
			}
		}
	}
}

func (c *Config) validate() error {
	if c.MaxConcurrent < 1 {
		return fmt.Errorf("max_concurrent must be positive, got %d", c.MaxConcurrent)
	}
	if c.MaxOutputTokens < 1 {
		return fmt.Errorf("max_output_tokens must be positive, got %d", c.MaxOutputTokens)
	}
	return nil
}
