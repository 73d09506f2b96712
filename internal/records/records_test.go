package records_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/emoclassify/internal/conversation"
	"github.com/JaimeStill/emoclassify/internal/records"
	"github.com/JaimeStill/emoclassify/pkg/lifecycle"
	"github.com/JaimeStill/emoclassify/pkg/storage"
)

const input = `[{"role":"user","content":"hi"},{"role":"assistant","content":"hello"}]

{"messages":[{"role":"user","content":"I feel sad"}]}
`

type memoryBlobs struct {
	mu    sync.Mutex
	blobs map[string][]byte
	types map[string]string
}

func newMemoryBlobs() *memoryBlobs {
	return &memoryBlobs{blobs: map[string][]byte{}, types: map[string]string{}}
}

func (m *memoryBlobs) Start(*lifecycle.Coordinator) error { return nil }

func (m *memoryBlobs) Upload(_ context.Context, key string, r io.Reader, ct string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = data
	m.types[key] = ct
	return nil
}

func (m *memoryBlobs) Download(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParseLocation(t *testing.T) {
	loc, err := records.ParseLocation("blob://runs/in.jsonl")
	require.NoError(t, err)
	assert.Equal(t, records.Location{Path: "runs/in.jsonl", Blob: true}, loc)
	assert.Equal(t, "blob://runs/in.jsonl", loc.String())

	loc, err = records.ParseLocation(" data/in.jsonl ")
	require.NoError(t, err)
	assert.Equal(t, records.Location{Path: "data/in.jsonl"}, loc)

	_, err = records.ParseLocation("")
	assert.ErrorIs(t, err, records.ErrEmptyLocation)

	_, err = records.ParseLocation("blob://")
	assert.ErrorIs(t, err, storage.ErrEmptyKey)

	_, err = records.ParseLocation("blob://../escape")
	assert.ErrorIs(t, err, storage.ErrInvalidKey)
}

func TestLocalRoundTrip(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.jsonl")
	require.NoError(t, os.WriteFile(in, []byte(input), 0o644))

	store := records.New(nil, discardLogger())
	convs, err := store.ReadConversations(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, conversation.RoleAssistant, convs[0][1].Role)
	assert.Equal(t, "I feel sad", convs[1][0].Content)

	out := filepath.Join(dir, "nested", "out.jsonl")
	results := []map[string]bool{{"a": true}, {"a": false}, {}}
	require.NoError(t, records.WriteResults(context.Background(), store, out, results))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "{\"a\":true}\n{\"a\":false}\n{}\n", string(data))
}

func TestBlobRoundTrip(t *testing.T) {
	blobs := newMemoryBlobs()
	require.NoError(t, blobs.Upload(context.Background(), "in.jsonl", strings.NewReader(input), "application/x-ndjson"))

	store := records.New(blobs, discardLogger())
	convs, err := store.ReadConversations(context.Background(), "blob://in.jsonl")
	require.NoError(t, err)
	assert.Len(t, convs, 2)

	require.NoError(t, records.WriteResults(context.Background(), store, "blob://out/results.jsonl", []int{1, 2}))
	assert.Equal(t, "1\n2\n", string(blobs.blobs["out/results.jsonl"]))
	assert.Equal(t, "application/x-ndjson", blobs.types["out/results.jsonl"])

	_, err = store.ReadConversations(context.Background(), "blob://missing.jsonl")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestBlobWithoutStorage(t *testing.T) {
	store := records.New(nil, discardLogger())

	_, err := store.ReadConversations(context.Background(), "blob://in.jsonl")
	assert.ErrorIs(t, err, storage.ErrNotConfigured)

	err = records.WriteResults(context.Background(), store, "blob://out.jsonl", []int{1})
	assert.ErrorIs(t, err, storage.ErrNotConfigured)
}

func TestReadInvalidLine(t *testing.T) {
	in := filepath.Join(t.TempDir(), "bad.jsonl")
	require.NoError(t, os.WriteFile(in, []byte(`[{"role":"system","content":"x"}]`+"\n"), 0o644))

	_, err := records.New(nil, discardLogger()).ReadConversations(context.Background(), in)
	assert.ErrorIs(t, err, conversation.ErrInvalidRole)
}
