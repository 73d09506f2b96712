package definitions_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/emoclassify/internal/chunking"
	"github.com/JaimeStill/emoclassify/internal/definitions"
)

const setJSON = `{
  "loneliness": {
    "name": "Loneliness",
    "version": "v1",
    "chunker": "user_message",
    "prompt": "Does the user express loneliness?\nConsider explicit and implicit statements."
  },
  "emotional_topic": {
    "version": "v1_top_level",
    "chunker": "whole",
    "prompt": "Does the conversation touch on emotional topics?"
  },
  "affection": {
    "version": "v2",
    "chunker": "a_u_exchange",
    "full_name": "Expressions of Affection",
    "prompt": "Does the user express affection toward the assistant",
    "criteria": ["Terms of endearment", "Statements of fondness"]
  }
}`

const setYAML = `
vulnerability:
  version: v1
  chunker: u_a_exchange
  prompt: Does the user share something vulnerable?
`

func TestDecode(t *testing.T) {
	set, err := definitions.Decode([]byte(setJSON), definitions.FormatJSON)
	require.NoError(t, err)

	assert.Equal(t, []string{"affection", "emotional_topic", "loneliness"}, set.Names())

	lone, ok := set["loneliness"].(definitions.V1Definition)
	require.True(t, ok)
	assert.Equal(t, "Loneliness", lone.Name())
	assert.Equal(t, chunking.UserMessage, lone.Policy())
	assert.Equal(t, definitions.V1, lone.Version())

	top := set["emotional_topic"]
	assert.Equal(t, "emotional_topic", top.Name())
	assert.Equal(t, definitions.V1TopLevel, top.Version())
	assert.Equal(t, chunking.WholeConversation, top.Policy())

	aff, ok := set["affection"].(definitions.V2Definition)
	require.True(t, ok)
	assert.Equal(t, []string{"Terms of endearment", "Statements of fondness"}, aff.Criteria)
}

func TestDecodeYAML(t *testing.T) {
	set, err := definitions.Decode([]byte(setYAML), definitions.FormatYAML)
	require.NoError(t, err)
	require.Contains(t, set, "vulnerability")
	assert.Equal(t, chunking.UserAssistantExchange, set["vulnerability"].Policy())
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{
			"unknown version",
			`{"x": {"version": "v9", "chunker": "whole", "prompt": "p"}}`,
			definitions.ErrUnknownVersion,
		},
		{
			"unknown chunker",
			`{"x": {"version": "v1", "chunker": "sentence", "prompt": "p"}}`,
			chunking.ErrUnknownPolicy,
		},
		{
			"missing prompt",
			`{"x": {"version": "v1", "chunker": "whole"}}`,
			definitions.ErrInvalidDefinition,
		},
		{
			"v2 without criteria",
			`{"x": {"version": "v2", "chunker": "whole", "prompt": "p", "full_name": "X"}}`,
			definitions.ErrInvalidDefinition,
		},
		{
			"malformed",
			`{"x": `,
			definitions.ErrInvalidDefinition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := definitions.Decode([]byte(tt.doc), definitions.FormatJSON)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRenderPrompt(t *testing.T) {
	set, err := definitions.Decode([]byte(setJSON), definitions.FormatJSON)
	require.NoError(t, err)

	snippet := `[*USER*] "I feel alone"`

	t.Run("v1 uses first prompt line as restatement", func(t *testing.T) {
		p, err := set["loneliness"].RenderPrompt(snippet)
		require.NoError(t, err)
		assert.Contains(t, p, "'Loneliness'")
		assert.Contains(t, p, "<snippet>\n"+snippet+"\n</snippet>")
		assert.Contains(t, p, "The classification task, once more: Does the user express loneliness?\n")
		assert.Contains(t, p, `"yes", "no", or "unsure"`)
	})

	t.Run("v1 top level", func(t *testing.T) {
		p, err := set["emotional_topic"].RenderPrompt(snippet)
		require.NoError(t, err)
		assert.Contains(t, p, "Consider the conversation as a whole.")
		assert.Contains(t, p, snippet)
	})

	t.Run("v2 renders full name and criteria", func(t *testing.T) {
		p, err := set["affection"].RenderPrompt(snippet)
		require.NoError(t, err)
		assert.Contains(t, p, "'Expressions of Affection'")
		assert.Contains(t, p, "- Terms of endearment\n- Statements of fondness")
		assert.True(t, strings.Contains(p, "toward the assistant."))
	})
}

func TestSetPath(t *testing.T) {
	p, err := definitions.SetPath("assets", "v1_top_level")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("assets", "emoclassifiers_v1_top_level_definition.json"), p)

	_, err = definitions.SetPath("assets", "v3")
	assert.ErrorIs(t, err, definitions.ErrUnknownSet)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "emoclassifiers_v1_definition.json"), []byte(setJSON), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "custom.yml"), []byte(setYAML), 0644))

	set, err := definitions.Load(dir, "v1", "")
	require.NoError(t, err)
	assert.Len(t, set, 3)

	custom, err := definitions.Load(dir, "v1", filepath.Join(dir, "custom.yml"))
	require.NoError(t, err)
	assert.Equal(t, []string{"vulnerability"}, custom.Names())

	_, err = definitions.LoadFile(filepath.Join(dir, "defs.toml"))
	assert.ErrorIs(t, err, definitions.ErrUnsupportedFormat)
}

func TestDependencies(t *testing.T) {
	graph, err := definitions.DecodeDependencies(
		[]byte(`{"dependency": {"loneliness": ["emotional_topic"], "affection": ["emotional_topic", "relationship"]}}`),
		definitions.FormatJSON,
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"emotional_topic", "relationship"}, graph["affection"])

	yamlGraph, err := definitions.DecodeDependencies(
		[]byte("dependency:\n  loneliness:\n    - emotional_topic\n"),
		definitions.FormatYAML,
	)
	require.NoError(t, err)
	assert.Equal(t, definitions.DependencyGraph{"loneliness": {"emotional_topic"}}, yamlGraph)
}
