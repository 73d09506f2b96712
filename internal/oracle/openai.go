package oracle

import (
	"context"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

const schemaName = "emotional_classification"

// OpenAI is a Completer backed by an OpenAI-compatible chat completions API.
// Output is constrained by a strict JSON schema whose single field enumerates
// the request's choices.
type OpenAI struct {
	client *openai.Client
	model  string
	logger *slog.Logger
}

// NewOpenAI builds a completer from cfg. BaseURL is optional and targets
// compatible endpoints such as Azure or local gateways.
func NewOpenAI(cfg *Config, logger *slog.Logger) (*OpenAI, error) {
	if cfg.Token == "" {
		return nil, ErrMissingToken
	}

	oc := openai.DefaultConfig(cfg.Token)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &OpenAI{
		client: openai.NewClientWithConfig(oc),
		model:  model,
		logger: logger.With("system", "openai"),
	}, nil
}

// Complete issues a single-turn chat completion and returns the message content.
func (o *OpenAI) Complete(ctx context.Context, req Request) (string, error) {
	schema := jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"response": {
				Type: jsonschema.String,
				Enum: req.Choices,
			},
		},
		Required:             []string{"response"},
		AdditionalProperties: false,
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		MaxCompletionTokens: req.MaxOutputTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   schemaName,
				Schema: &schema,
				Strict: true,
			},
		},
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}

	msg := resp.Choices[0].Message
	if msg.Refusal != "" {
		return "", fmt.Errorf("%w: %s", ErrRefused, msg.Refusal)
	}

	o.logger.Debug("completion received",
		"model", resp.Model,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
	)

	return msg.Content, nil
}
