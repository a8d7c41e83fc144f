/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package openaiexecutor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/chainguard-dev/clog"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"chainguard.dev/reportfeedback/agents/executor/retry"
	"chainguard.dev/reportfeedback/agents/metrics"
	"chainguard.dev/reportfeedback/agents/model"
)

// DefaultEndpoint is the GitHub Models inference endpoint.
const DefaultEndpoint = "https://models.inference.ai.azure.com"

// NewGitHubModelsClient returns a client for GitHub Models authenticated with
// token. SDK-level retries are disabled; retrying is left to the caller's
// retry config and model fallback.
func NewGitHubModelsClient(token string, opts ...option.RequestOption) openai.Client {
	return openai.NewClient(append([]option.RequestOption{
		option.WithBaseURL(DefaultEndpoint),
		option.WithAPIKey(token),
		option.WithMaxRetries(0),
	}, opts...)...)
}

// Executor calls one model through the chat completions API.
type Executor struct {
	client       openai.Client
	modelName    string
	retryConfig  retry.Config
	genaiMetrics *metrics.GenAI
}

var _ model.Client = (*Executor)(nil)

// New returns an Executor calling modelName through client.
func New(client openai.Client, modelName string, opts ...Option) (*Executor, error) {
	if modelName == "" {
		return nil, errors.New("model name cannot be empty")
	}
	e := &Executor{
		client:       client,
		modelName:    modelName,
		retryConfig:  retry.Default(),
		genaiMetrics: metrics.NewGenAI("chainguard.dev/reportfeedback"),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}
	return e, nil
}

// Model implements model.Client.
func (e *Executor) Model() string { return e.modelName }

// Complete implements model.Client.
func (e *Executor) Complete(ctx context.Context, req model.Request) (*model.Response, error) {
	log := clog.FromContext(ctx).With("model", e.modelName)

	params := openai.ChatCompletionNewParams{
		Model:       e.modelName,
		Messages:    messages(req),
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.JSON {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	log.With("prompt_length", len(req.Prompt), "images", len(req.Images)).Info("Sending chat completion")
	completion, err := retry.Do(ctx, e.retryConfig, "chat_completion", nil, func(ctx context.Context) (*openai.ChatCompletion, error) {
		c, err := e.client.Chat.Completions.New(ctx, params)
		return c, e.classify(err)
	})
	if err != nil {
		return nil, err
	}

	usage := model.Usage{
		PromptTokens:     int(completion.Usage.PromptTokens),
		CompletionTokens: int(completion.Usage.CompletionTokens),
		TotalTokens:      int(completion.Usage.TotalTokens),
	}
	e.genaiMetrics.RecordTokens(ctx, e.modelName, completion.Usage.PromptTokens, completion.Usage.CompletionTokens)

	if len(completion.Choices) == 0 {
		return nil, &model.Error{Kind: model.MalformedResponse, Model: e.modelName, Err: errors.New("response has no choices")}
	}
	text := completion.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		return nil, &model.Error{Kind: model.MalformedResponse, Model: e.modelName, Err: errors.New("response has no content")}
	}
	return &model.Response{
		Model: e.modelName,
		Text:  text,
		Usage: usage,
		Raw:   rawJSON(completion.RawJSON()),
	}, nil
}

func messages(req model.Request) []openai.ChatCompletionMessageParamUnion {
	var out []openai.ChatCompletionMessageParamUnion
	if req.System != "" {
		out = append(out, openai.SystemMessage(req.System))
	}
	if len(req.Images) == 0 {
		return append(out, openai.UserMessage(req.Prompt))
	}
	parts := []openai.ChatCompletionContentPartUnionParam{openai.TextContentPart(req.Prompt)}
	for _, img := range req.Images {
		parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL: img.DataURI(),
		}))
	}
	return append(out, openai.UserMessage(parts))
}

// classify wraps err in a *model.Error.
func (e *Executor) classify(err error) error {
	if err == nil {
		return nil
	}
	kind := model.KindOf(err)
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if k, ok := model.Classify(apiErr.StatusCode); ok {
			kind = k
		}
	}
	return &model.Error{Kind: kind, Model: e.modelName, Err: err}
}

func rawJSON(s string) json.RawMessage {
	if !json.Valid([]byte(s)) {
		return nil
	}
	return json.RawMessage(s)
}
