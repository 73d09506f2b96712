// Package definitions models the classifier library: one definition per
// criterion, versioned by prompt template, plus the dependency graph that
// links sub-classifiers to the top-level topics gating them.
package definitions

import (
	"fmt"
	"slices"
	"strings"

	"github.com/JaimeStill/emoclassify/internal/chunking"
)

// Version tags the prompt template family a definition renders with.
type Version string

// Supported definition versions.
const (
	V1         Version = "v1"
	V1TopLevel Version = "v1_top_level"
	V2         Version = "v2"
)

var versions = []Version{V1, V1TopLevel, V2}

// ParseVersion validates s as a known definition version.
func ParseVersion(s string) (Version, error) {
	v := Version(s)
	if !slices.Contains(versions, v) {
		return "", fmt.Errorf("%w: %q", ErrUnknownVersion, s)
	}
	return v, nil
}

// Definition is a classifier's immutable configuration.
type Definition interface {
	Name() string
	Version() Version
	Policy() chunking.Policy
	// RenderPrompt fills the version's template with the rendered chunk.
	RenderPrompt(snippet string) (string, error)
}

// Common holds the fields shared by every definition version.
type Common struct {
	ClassifierName string          `json:"name"`
	Chunker        chunking.Policy `json:"chunker"`
	Prompt         string          `json:"prompt"`
}

// Name returns the classifier name.
func (c Common) Name() string {
	return c.ClassifierName
}

// Policy returns the chunking policy the classifier windows conversations with.
func (c Common) Policy() chunking.Policy {
	return c.Chunker
}

// V1Definition is a sub-classifier judged on the final message of a snippet.
type V1Definition struct {
	Common
}

// Version returns V1.
func (d V1Definition) Version() Version { return V1 }

// RenderPrompt renders the v1 template. The first line of the prompt is
// repeated as the closing restatement of the task.
func (d V1Definition) RenderPrompt(snippet string) (string, error) {
	short, _, _ := strings.Cut(d.Prompt, "\n")
	return render(v1Template, promptData{
		ClassifierName: d.ClassifierName,
		Prompt:         d.Prompt,
		PromptShort:    short,
		Snippet:        snippet,
	})
}

// V1TopLevelDefinition is a topic classifier judged on a whole conversation.
type V1TopLevelDefinition struct {
	Common
}

// Version returns V1TopLevel.
func (d V1TopLevelDefinition) Version() Version { return V1TopLevel }

// RenderPrompt renders the top-level template.
func (d V1TopLevelDefinition) RenderPrompt(snippet string) (string, error) {
	return render(v1TopLevelTemplate, promptData{
		ClassifierName: d.ClassifierName,
		Prompt:         d.Prompt,
		Snippet:        snippet,
	})
}

// V2Definition adds a display name and an explicit criteria list.
type V2Definition struct {
	Common
	FullName string   `json:"full_name"`
	Criteria []string `json:"criteria"`
}

// Version returns V2.
func (d V2Definition) Version() Version { return V2 }

// RenderPrompt renders the v2 template with bullet-formatted criteria.
func (d V2Definition) RenderPrompt(snippet string) (string, error) {
	return render(v2Template, promptData{
		ClassifierName: d.FullName,
		Prompt:         d.Prompt,
		Criteria:       FormatCriteria(d.Criteria),
		Snippet:        snippet,
	})
}

// FormatCriteria renders one "- " bullet per criterion.
func FormatCriteria(criteria []string) string {
	lines := make([]string, len(criteria))
	for i, c := range criteria {
		lines[i] = "- " + c
	}
	return strings.Join(lines, "\n")
}

// Set is a named collection of definitions loaded from one source.
type Set map[string]Definition

// Names returns the definition names in sorted order.
func (s Set) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
