package definitions

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/JaimeStill/emoclassify/internal/chunking"
)

// Format identifies the encoding of a definition source.
type Format string

// Supported source formats.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// DependencyFile is the default dependency graph filename inside the definitions directory.
const DependencyFile = "emoclassifiers_v1_dependency.json"

var setFiles = map[string]string{
	"v1":           "emoclassifiers_v1_definition.json",
	"v1_top_level": "emoclassifiers_v1_top_level_definition.json",
	"v2":           "emoclassifiers_v2_definition.json",
}

var validate = validator.New(validator.WithRequiredStructEnabled())

type record struct {
	Name     string   `json:"name,omitempty" yaml:"name"`
	Version  string   `json:"version" yaml:"version" validate:"required"`
	Chunker  string   `json:"chunker" yaml:"chunker" validate:"required"`
	Prompt   string   `json:"prompt" yaml:"prompt" validate:"required"`
	FullName string   `json:"full_name,omitempty" yaml:"full_name" validate:"required_if=Version v2"`
	Criteria []string `json:"criteria,omitempty" yaml:"criteria" validate:"required_if=Version v2,dive,required"`
}

// DependencyGraph maps a sub-classifier name to the top-level classifier
// names that must fire for it to run.
type DependencyGraph map[string][]string

type dependencyFile struct {
	Dependency DependencyGraph `json:"dependency" yaml:"dependency"`
}

// FormatFromPath infers the source format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// SetPath resolves a named classifier set to its file inside dir.
func SetPath(dir, set string) (string, error) {
	file, ok := setFiles[set]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownSet, set)
	}
	return filepath.Join(dir, file), nil
}

// Load reads a classifier set. A non-empty customPath takes precedence over
// the named set.
func Load(dir, set, customPath string) (Set, error) {
	path := customPath
	if path == "" {
		p, err := SetPath(dir, set)
		if err != nil {
			return nil, err
		}
		path = p
	}
	return LoadFile(path)
}

// LoadFile reads and decodes a definition file.
func LoadFile(path string) (Set, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read definitions: %w", err)
	}

	s, err := Decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Decode parses a definition document keyed by classifier name.
func Decode(data []byte, format Format) (Set, error) {
	var records map[string]record
	if err := unmarshal(data, format, &records); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
	}

	set := make(Set, len(records))
	for key, r := range records {
		d, err := fromRecord(key, r)
		if err != nil {
			return nil, fmt.Errorf("definition %q: %w", key, err)
		}
		set[key] = d
	}
	return set, nil
}

// LoadDependencies reads a dependency graph file of the form {"dependency": {...}}.
func LoadDependencies(path string) (DependencyGraph, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dependency graph: %w", err)
	}

	return DecodeDependencies(data, format)
}

// DecodeDependencies parses a dependency graph document.
func DecodeDependencies(data []byte, format Format) (DependencyGraph, error) {
	var f dependencyFile
	if err := unmarshal(data, format, &f); err != nil {
		return nil, fmt.Errorf("parse dependency graph: %w", err)
	}
	if f.Dependency == nil {
		return DependencyGraph{}, nil
	}
	return f.Dependency, nil
}

func unmarshal(data []byte, format Format, v any) error {
	switch format {
	case FormatJSON:
		return json.Unmarshal(data, v)
	case FormatYAML:
		return yaml.Unmarshal(data, v)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

func fromRecord(key string, r record) (Definition, error) {
	version, err := ParseVersion(r.Version)
	if err != nil {
		return nil, err
	}

	if err := validate.Struct(r); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
	}

	policy, err := chunking.ParsePolicy(r.Chunker)
	if err != nil {
		return nil, err
	}

	name := r.Name
	if name == "" {
		name = key
	}

	common := Common{
		ClassifierName: name,
		Chunker:        policy,
		Prompt:         r.Prompt,
	}

	switch version {
	case V1:
		return V1Definition{Common: common}, nil
	case V1TopLevel:
		return V1TopLevelDefinition{Common: common}, nil
	case V2:
		return V2Definition{
			Common:   common,
			FullName: r.FullName,
			Criteria: r.Criteria,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownVersion, version)
	}
}
