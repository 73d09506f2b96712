package pipeline_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/emoclassify/internal/aggregation"
	"github.com/JaimeStill/emoclassify/internal/chunking"
	"github.com/JaimeStill/emoclassify/internal/config"
	"github.com/JaimeStill/emoclassify/internal/conversation"
	"github.com/JaimeStill/emoclassify/internal/definitions"
	"github.com/JaimeStill/emoclassify/internal/oracle"
	"github.com/JaimeStill/emoclassify/internal/orchestrator"
	"github.com/JaimeStill/emoclassify/internal/pipeline"
)

const topLevelJSON = `{
  "emotional_content": {"version": "v1_top_level", "chunker": "whole", "prompt": "Does the conversation carry emotional content?"}
}`

const subLevelJSON = `{
  "sadness": {"version": "v1", "chunker": "user_message", "prompt": "Does the user express sadness?"},
  "joy": {"version": "v1", "chunker": "user_message", "prompt": "Does the user express joy?"}
}`

const dependencyJSON = `{"dependency": {"sadness": ["emotional_content"], "joy": ["emotional_content"]}}`

type sadOracle struct {
	calls atomic.Int64
}

// sadOracle answers yes for every classifier except joy when the chunk
// mentions sadness.
func (s *sadOracle) Classify(_ context.Context, def definitions.Definition, chunk chunking.Chunk) (oracle.Verdict, error) {
	s.calls.Add(1)
	if def.Name() != "joy" && strings.Contains(chunk.String(), "sad") {
		return oracle.Yes, nil
	}
	return oracle.No, nil
}

func writeDefinitions(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"emoclassifiers_v1_top_level_definition.json": topLevelJSON,
		"emoclassifiers_v1_definition.json":           subLevelJSON,
		definitions.DependencyFile:                    dependencyJSON,
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return dir
}

func newService(t *testing.T, o *sadOracle) *pipeline.Service {
	cfg := &config.Config{Definitions: config.DefinitionsConfig{Dir: writeDefinitions(t)}}
	return pipeline.New(o, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func anyAggregator(t *testing.T) aggregation.Aggregator {
	agg, err := aggregation.New(aggregation.ModeAny, aggregation.DefaultAvgNumChunks)
	require.NoError(t, err)
	return agg
}

var convs = []conversation.Conversation{
	{
		{Role: conversation.RoleUser, Content: "hi"},
		{Role: conversation.RoleAssistant, Content: "hello"},
		{Role: conversation.RoleUser, Content: "I feel sad"},
	},
	{
		{Role: conversation.RoleUser, Content: "what time is it"},
	},
}

func TestSimple(t *testing.T) {
	o := &sadOracle{}
	svc := newService(t, o)

	runner, err := svc.Simple(pipeline.SimpleOptions{Aggregator: anyAggregator(t)})
	require.NoError(t, err)

	results, err := runner.Run(context.Background(), convs)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.True(t, results[0]["sadness"].Truthy())
	assert.False(t, results[0]["joy"].Truthy())
	assert.False(t, results[1]["sadness"].Truthy())
	assert.EqualValues(t, 6, o.calls.Load())
}

func TestSimpleCustomPath(t *testing.T) {
	svc := newService(t, &sadOracle{})

	custom := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(custom, []byte(`
grief:
  version: v1
  chunker: user_message
  prompt: Does the user express grief?
`), 0o644))

	opts := pipeline.SimpleOptions{DefinitionsPath: custom, Aggregator: anyAggregator(t)}
	assert.Equal(t, custom, opts.Label())

	runner, err := svc.Simple(opts)
	require.NoError(t, err)

	results, err := runner.Run(context.Background(), convs[:1])
	require.NoError(t, err)
	assert.Contains(t, results[0], "grief")
}

func TestSimpleUnknownSet(t *testing.T) {
	svc := newService(t, &sadOracle{})

	_, err := svc.Simple(pipeline.SimpleOptions{ClassifierSet: "v9", Aggregator: anyAggregator(t)})
	assert.ErrorIs(t, err, definitions.ErrUnknownSet)
}

func TestHierarchical(t *testing.T) {
	o := &sadOracle{}
	svc := newService(t, o)

	opts := pipeline.HierarchicalOptions{Aggregator: anyAggregator(t)}
	runner, err := svc.Hierarchical(opts)
	require.NoError(t, err)

	results, err := runner.Run(context.Background(), convs)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.True(t, results[0].TopLevel["emotional_content"])
	assert.True(t, results[0].SubLevel["sadness"].Truthy())
	assert.False(t, results[1].TopLevel["emotional_content"])
	assert.Empty(t, results[1].SubLevel)

	// two top-level calls, plus two user-message chunks for each of two
	// sub-classifiers on the first conversation only
	assert.EqualValues(t, 6, o.calls.Load())
}

func TestHierarchicalDependencyErrors(t *testing.T) {
	svc := newService(t, &sadOracle{})

	deps := filepath.Join(t.TempDir(), "deps.json")
	require.NoError(t, os.WriteFile(deps, []byte(`{"dependency": {"sadness": ["missing_top"]}}`), 0o644))

	_, err := svc.Hierarchical(pipeline.HierarchicalOptions{
		DependencyPath: deps,
		Aggregator:     anyAggregator(t),
	})
	assert.ErrorIs(t, err, orchestrator.ErrUnknownDependency)
}

func TestHierarchicalTopLevelPolicy(t *testing.T) {
	svc := newService(t, &sadOracle{})

	_, err := svc.Hierarchical(pipeline.HierarchicalOptions{
		TopLevelSet: "v1",
		Aggregator:  anyAggregator(t),
	})
	assert.ErrorIs(t, err, orchestrator.ErrTopLevelPolicy)
}

func TestLabels(t *testing.T) {
	assert.Equal(t, "v2", pipeline.SimpleOptions{ClassifierSet: "v2"}.Label())
	assert.Equal(t, "v1_top_level+v1", pipeline.HierarchicalOptions{}.Label())
	assert.Equal(t, "v1", pipeline.SimpleOptions{}.Label())
}
