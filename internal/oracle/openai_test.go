package oracle_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/emoclassify/internal/oracle"
)

type capturedRequest struct {
	Model               string `json:"model"`
	MaxCompletionTokens int    `json:"max_completion_tokens"`
	Messages            []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	ResponseFormat struct {
		Type       string `json:"type"`
		JSONSchema struct {
			Name   string `json:"name"`
			Strict bool   `json:"strict"`
			Schema struct {
				Properties map[string]struct {
					Enum []string `json:"enum"`
				} `json:"properties"`
				Required []string `json:"required"`
			} `json:"schema"`
		} `json:"json_schema"`
	} `json:"response_format"`
}

func completionServer(t *testing.T, content, refusal string, captured *capturedRequest) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if captured != nil {
			if err := json.NewDecoder(r.Body).Decode(captured); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
		}

		message := map[string]any{"role": "assistant", "content": content}
		if refusal != "" {
			message["refusal"] = refusal
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"created": 1,
			"model":   "gpt-4o-mini-2024-07-18",
			"choices": []map[string]any{
				{"index": 0, "message": message, "finish_reason": "stop"},
			},
			"usage": map[string]int{"prompt_tokens": 12, "completion_tokens": 4, "total_tokens": 16},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewOpenAIRequiresToken(t *testing.T) {
	_, err := oracle.NewOpenAI(&oracle.Config{}, discardLogger())
	assert.ErrorIs(t, err, oracle.ErrMissingToken)
}

func TestOpenAIComplete(t *testing.T) {
	var captured capturedRequest
	srv := completionServer(t, `{"response":"unsure"}`, "", &captured)

	completer, err := oracle.NewOpenAI(&oracle.Config{
		BaseURL: srv.URL + "/v1",
		Token:   "sk-test",
		Model:   "gpt-4o-mini-2024-07-18",
	}, discardLogger())
	require.NoError(t, err)

	content, err := completer.Complete(context.Background(), oracle.Request{
		Prompt:          "Is the user sad?",
		Choices:         oracle.Choices(),
		MaxOutputTokens: 20,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"response":"unsure"}`, content)

	assert.Equal(t, "gpt-4o-mini-2024-07-18", captured.Model)
	assert.Equal(t, 20, captured.MaxCompletionTokens)
	require.Len(t, captured.Messages, 1)
	assert.Equal(t, "user", captured.Messages[0].Role)
	assert.Equal(t, "Is the user sad?", captured.Messages[0].Content)

	assert.Equal(t, "json_schema", captured.ResponseFormat.Type)
	assert.True(t, captured.ResponseFormat.JSONSchema.Strict)
	assert.Equal(t, []string{"response"}, captured.ResponseFormat.JSONSchema.Schema.Required)
	assert.Equal(t,
		[]string{"yes", "no", "unsure"},
		captured.ResponseFormat.JSONSchema.Schema.Properties["response"].Enum,
	)
}

func TestOpenAIRefusal(t *testing.T) {
	srv := completionServer(t, "", "I can't help with that", nil)

	completer, err := oracle.NewOpenAI(&oracle.Config{BaseURL: srv.URL + "/v1", Token: "sk-test"}, discardLogger())
	require.NoError(t, err)

	_, err = completer.Complete(context.Background(), oracle.Request{Prompt: "x", Choices: oracle.Choices()})
	assert.ErrorIs(t, err, oracle.ErrRefused)
}

func TestOpenAIThroughClient(t *testing.T) {
	srv := completionServer(t, `{"response":"yes"}`, "", nil)

	completer, err := oracle.NewOpenAI(&oracle.Config{BaseURL: srv.URL + "/v1", Token: "sk-test"}, discardLogger())
	require.NoError(t, err)

	client := oracle.New(completer, &oracle.Config{MaxConcurrent: 2}, discardLogger())
	v, err := client.Classify(context.Background(), testDefinition(), testChunk())
	require.NoError(t, err)
	assert.Equal(t, oracle.Yes, v)
}
