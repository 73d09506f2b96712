// Package pipeline builds ready-to-run orchestrators from named classifier
// sets, sharing one oracle across every classifier it creates.
package pipeline

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/JaimeStill/emoclassify/internal/aggregation"
	"github.com/JaimeStill/emoclassify/internal/classifier"
	"github.com/JaimeStill/emoclassify/internal/config"
	"github.com/JaimeStill/emoclassify/internal/definitions"
	"github.com/JaimeStill/emoclassify/internal/orchestrator"
)

// Default classifier sets.
const (
	DefaultClassifierSet = "v1"
	DefaultTopLevelSet   = "v1_top_level"
	DefaultSubSet        = "v1"
)

// SimpleOptions selects the classifiers and aggregation for a simple run.
// DefinitionsPath, when set, replaces the named set.
type SimpleOptions struct {
	ClassifierSet   string
	DefinitionsPath string
	Aggregator      aggregation.Aggregator
}

// Label names the classifiers a simple run uses.
func (o SimpleOptions) Label() string {
	if o.DefinitionsPath != "" {
		return o.DefinitionsPath
	}
	return o.withDefaults().ClassifierSet
}

func (o SimpleOptions) withDefaults() SimpleOptions {
	if o.ClassifierSet == "" {
		o.ClassifierSet = DefaultClassifierSet
	}
	return o
}

// HierarchicalOptions selects both tiers and the dependency graph.
// DefinitionsPath, when set, replaces the sub-classifier set.
type HierarchicalOptions struct {
	TopLevelSet     string
	SubSet          string
	DefinitionsPath string
	DependencyPath  string
	Aggregator      aggregation.Aggregator
}

// Label names the two tiers a hierarchical run uses.
func (o HierarchicalOptions) Label() string {
	o = o.withDefaults()
	sub := o.SubSet
	if o.DefinitionsPath != "" {
		sub = o.DefinitionsPath
	}
	return o.TopLevelSet + "+" + sub
}

func (o HierarchicalOptions) withDefaults() HierarchicalOptions {
	if o.TopLevelSet == "" {
		o.TopLevelSet = DefaultTopLevelSet
	}
	if o.SubSet == "" {
		o.SubSet = DefaultSubSet
	}
	return o
}

// Service resolves definitions on disk and wires them to the oracle.
type Service struct {
	oracle   classifier.Oracle
	defs     config.DefinitionsConfig
	nContext int
	logger   *slog.Logger
}

// New creates a Service. o is shared by every classifier the Service builds.
func New(o classifier.Oracle, cfg *config.Config, logger *slog.Logger) *Service {
	return &Service{
		oracle:   o,
		defs:     cfg.Definitions,
		nContext: cfg.Chunking.Context(),
		logger:   logger.With("system", "pipeline"),
	}
}

// Simple loads one classifier set and returns its runner.
func (s *Service) Simple(opts SimpleOptions) (*orchestrator.Simple, error) {
	opts = opts.withDefaults()

	set, err := s.classifiers(opts.ClassifierSet, opts.DefinitionsPath)
	if err != nil {
		return nil, err
	}

	s.logger.Info("simple pipeline ready", "set", opts.Label(), "classifiers", len(set))
	return orchestrator.NewSimple(set, opts.Aggregator, s.logger), nil
}

// Hierarchical loads both tiers and the dependency graph and returns a
// validated runner.
func (s *Service) Hierarchical(opts HierarchicalOptions, o ...orchestrator.Option) (*orchestrator.Hierarchical, error) {
	opts = opts.withDefaults()

	top, err := s.classifiers(opts.TopLevelSet, "")
	if err != nil {
		return nil, fmt.Errorf("top-level: %w", err)
	}

	sub, err := s.classifiers(opts.SubSet, opts.DefinitionsPath)
	if err != nil {
		return nil, fmt.Errorf("sub-level: %w", err)
	}

	deps, err := definitions.LoadDependencies(s.dependencyPath(opts.DependencyPath))
	if err != nil {
		return nil, err
	}

	h, err := orchestrator.NewHierarchical(top, sub, deps, opts.Aggregator, s.logger, o...)
	if err != nil {
		return nil, err
	}

	s.logger.Info("hierarchical pipeline ready",
		"sets", opts.Label(),
		"top_level", len(top),
		"sub_level", len(sub),
	)
	return h, nil
}

func (s *Service) classifiers(set, customPath string) (classifier.Set, error) {
	defs, err := definitions.Load(s.defs.Dir, set, customPath)
	if err != nil {
		return nil, err
	}
	return classifier.FromDefinitions(defs, s.oracle, s.nContext), nil
}

func (s *Service) dependencyPath(custom string) string {
	switch {
	case custom != "":
		return custom
	case s.defs.DependencyPath != "":
		return s.defs.DependencyPath
	default:
		return filepath.Join(s.defs.Dir, definitions.DependencyFile)
	}
}
