package api_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/emoclassify/internal/api"
	"github.com/JaimeStill/emoclassify/internal/config"
	"github.com/JaimeStill/emoclassify/internal/infrastructure"
	"github.com/JaimeStill/emoclassify/internal/oracle"
	"github.com/JaimeStill/emoclassify/pkg/module"
)

const (
	topLevelJSON = `{"emotional_content": {"version": "v1_top_level", "chunker": "whole", "prompt": "Does the conversation carry emotional content?"}}`
	subLevelJSON = `{"loneliness": {"version": "v1", "chunker": "user_message", "prompt": "Does the user express isolation?"}}`
	dependencies = `{"dependency": {"loneliness": ["emotional_content"]}}`
)

// lonelyCompleter answers yes whenever the prompt mentions feeling lonely.
type lonelyCompleter struct{}

func (lonelyCompleter) Complete(_ context.Context, req oracle.Request) (string, error) {
	if strings.Contains(req.Prompt, "lonely") {
		return `{"response": "yes"}`, nil
	}
	return `{"response": "no"}`, nil
}

func newRouter(t *testing.T) *module.Router {
	t.Helper()

	m, err := newModule(t)
	require.NoError(t, err)

	router := module.NewRouter()
	require.NoError(t, router.Mount(m))
	return router
}

func newModule(t *testing.T) (*module.Module, error) {
	t.Helper()

	dir := t.TempDir()
	for name, body := range map[string]string{
		"emoclassifiers_v1_top_level_definition.json": topLevelJSON,
		"emoclassifiers_v1_definition.json":           subLevelJSON,
		"emoclassifiers_v1_dependency.json":           dependencies,
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}

	t.Setenv("EMOCLASSIFY_DEFINITIONS_DIR", dir)
	t.Setenv("EMOCLASSIFY_API_MAX_BODY_SIZE", "4KB")

	cfg := &config.Config{}
	require.NoError(t, cfg.Finalize())

	infra, err := infrastructure.New(
		context.Background(), cfg,
		infrastructure.WithLogOutput(io.Discard),
		infrastructure.WithCompleter(lonelyCompleter{}),
	)
	require.NoError(t, err)

	return api.NewModule(cfg, infra)
}

func post(router http.Handler, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)
	return rec
}

const conversations = `[
	[{"role": "user", "content": "I have been so lonely lately"}, {"role": "assistant", "content": "I am here."}],
	{"messages": [{"role": "user", "content": "convert 3 miles to km"}]}
]`

func TestClassify(t *testing.T) {
	router := newRouter(t)

	rec := post(router, "/api/classify", `{"conversations": `+conversations+`, "aggregation_mode": "raw"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.JSONEq(t, `{"results": [
		{"loneliness": {"0": true}},
		{"loneliness": {"0": false}}
	]}`, rec.Body.String())
}

func TestClassifyHierarchical(t *testing.T) {
	router := newRouter(t)

	rec := post(router, "/api/classify/hierarchical", `{"conversations": `+conversations+`}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		RunID   *string `json:"run_id"`
		Results []struct {
			TopLevel map[string]bool            `json:"top_level"`
			SubLevel map[string]json.RawMessage `json:"sub_level"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Nil(t, resp.RunID)
	require.Len(t, resp.Results, 2)
	assert.True(t, resp.Results[0].TopLevel["emotional_content"])
	assert.JSONEq(t, `true`, string(resp.Results[0].SubLevel["loneliness"]))
	assert.False(t, resp.Results[1].TopLevel["emotional_content"])
	assert.Empty(t, resp.Results[1].SubLevel)
}

func TestClassifyBadRequests(t *testing.T) {
	router := newRouter(t)

	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"malformed", "/api/classify", `{"conversations":`, http.StatusBadRequest},
		{"no source", "/api/classify", `{}`, http.StatusBadRequest},
		{"unknown set", "/api/classify", `{"conversations": [], "classifier_set": "v9"}`, http.StatusBadRequest},
		{"unknown mode", "/api/classify", `{"conversations": [], "aggregation_mode": "most"}`, http.StatusBadRequest},
		{"invalid role", "/api/classify", `{"conversations": [[{"role": "system", "content": "x"}]]}`, http.StatusBadRequest},
		{"local input path", "/api/classify", `{"input_path": "/etc/passwd"}`, http.StatusBadRequest},
		{"blob without storage", "/api/classify", `{"input_path": "blob://in.jsonl"}`, http.StatusBadRequest},
		{"non-whole top level", "/api/classify/hierarchical", `{"conversations": [], "top_level_set": "v1"}`, http.StatusBadRequest},
		{"too large", "/api/classify", `{"conversations": [[{"role": "user", "content": "` + strings.Repeat("x", 8192) + `"}]]}`, http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(router, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestRunsRoutesRequireDatabase(t *testing.T) {
	router := newRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestClassifyRequiresBearerWhenAuthConfigured(t *testing.T) {
	t.Setenv("EMOCLASSIFY_AUTH_ISSUER", "https://login.example.com")
	t.Setenv("EMOCLASSIFY_AUTH_AUDIENCE", "emoclassify")
	t.Setenv("EMOCLASSIFY_AUTH_JWKS_URL", "https://login.example.com/keys")
	router := newRouter(t)

	rec := post(router, "/api/classify", `{"conversations": `+conversations+`}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing bearer token")
}

func TestNewModuleUnreachableIssuer(t *testing.T) {
	t.Setenv("EMOCLASSIFY_AUTH_ISSUER", "http://127.0.0.1:1")
	t.Setenv("EMOCLASSIFY_AUTH_AUDIENCE", "emoclassify")

	_, err := newModule(t)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth init failed")
}
