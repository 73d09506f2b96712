package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/JaimeStill/emoclassify/internal/aggregation"
	"github.com/JaimeStill/emoclassify/internal/chunking"
)

const (
	EnvChunkingNContext          = "EMOCLASSIFY_CHUNKING_N_CONTEXT"
	EnvAggregationMode           = "EMOCLASSIFY_AGGREGATION_MODE"
	EnvAggregationAvgNumChunks   = "EMOCLASSIFY_AGGREGATION_AVG_NUM_CHUNKS"
	EnvDefinitionsDir            = "EMOCLASSIFY_DEFINITIONS_DIR"
	EnvDefinitionsDependencyPath = "EMOCLASSIFY_DEFINITIONS_DEPENDENCY_PATH"
)

// ChunkingConfig controls conversation windowing.
type ChunkingConfig struct {
	// NContext is the number of messages preceding each anchor. A pointer so
	// that an explicit 0 survives defaulting.
	NContext *int `toml:"n_context"`
}

// Context returns the configured context size.
func (c *ChunkingConfig) Context() int {
	if c.NContext == nil {
		return chunking.DefaultContext
	}
	return *c.NContext
}

func (c *ChunkingConfig) Finalize() error {
	if c.NContext == nil {
		n := chunking.DefaultContext
		c.NContext = &n
	}
	if v := os.Getenv(EnvChunkingNContext); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.NContext = &n
		}
	}
	if *c.NContext < 0 {
		return fmt.Errorf("n_context must not be negative, got %d", *c.NContext)
	}
	return nil
}

func (c *ChunkingConfig) Merge(overlay *ChunkingConfig) {
	if overlay.NContext != nil {
		n := *overlay.NContext
		c.NContext = &n
	}
}

// AggregationConfig selects the default aggregator for sub-level results.
type AggregationConfig struct {
	Mode         string `toml:"mode"`
	AvgNumChunks int    `toml:"avg_num_chunks"`
}

// Aggregator builds the configured aggregator.
func (c *AggregationConfig) Aggregator() (aggregation.Aggregator, error) {
	mode, err := aggregation.ParseMode(c.Mode)
	if err != nil {
		return aggregation.Aggregator{}, err
	}
	return aggregation.New(mode, c.AvgNumChunks)
}

// Resolve builds an aggregator from the configured values, replacing the
// mode when mode is non-empty and the sample size when avg is positive.
func (c *AggregationConfig) Resolve(mode string, avg int) (aggregation.Aggregator, error) {
	if avg < 0 {
		return aggregation.Aggregator{}, fmt.Errorf("%w: avg_num_chunks %d", aggregation.ErrInvalidSampleSize, avg)
	}

	o := *c
	if mode != "" {
		o.Mode = mode
	}
	if avg > 0 {
		o.AvgNumChunks = avg
	}
	return o.Aggregator()
}

func (c *AggregationConfig) Finalize() error {
	if c.Mode == "" {
		c.Mode = string(aggregation.ModeAny)
	}
	if c.AvgNumChunks == 0 {
		c.AvgNumChunks = aggregation.DefaultAvgNumChunks
	}
	if v := os.Getenv(EnvAggregationMode); v != "" {
		c.Mode = v
	}
	if v := os.Getenv(EnvAggregationAvgNumChunks); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.AvgNumChunks = n
		}
	}
	_, err := c.Aggregator()
	return err
}

func (c *AggregationConfig) Merge(overlay *AggregationConfig) {
	if overlay.Mode != "" {
		c.Mode = overlay.Mode
	}
	if overlay.AvgNumChunks != 0 {
		c.AvgNumChunks = overlay.AvgNumChunks
	}
}

// DefinitionsConfig locates classifier definition sets and the dependency graph.
type DefinitionsConfig struct {
	Dir            string `toml:"dir"`
	DependencyPath string `toml:"dependency_path"`
}

func (c *DefinitionsConfig) Finalize() error {
	if c.Dir == "" {
		c.Dir = "assets/definitions"
	}
	if v := os.Getenv(EnvDefinitionsDir); v != "" {
		c.Dir = v
	}
	if v := os.Getenv(EnvDefinitionsDependencyPath); v != "" {
		c.DependencyPath = v
	}
	return nil
}

func (c *DefinitionsConfig) Merge(overlay *DefinitionsConfig) {
	if overlay.Dir != "" {
		c.Dir = overlay.Dir
	}
	if overlay.DependencyPath != "" {
		c.DependencyPath = overlay.DependencyPath
	}
}
