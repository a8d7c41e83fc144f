/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package claudeexecutor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/vertex"
	"github.com/chainguard-dev/clog"

	"chainguard.dev/reportfeedback/agents/executor/retry"
	"chainguard.dev/reportfeedback/agents/metrics"
	"chainguard.dev/reportfeedback/agents/model"
)

// defaultMaxTokens is used when the request leaves MaxTokens unset, since the
// Messages API requires it.
const defaultMaxTokens = 2000

// NewVertexClient returns a client for Claude on Vertex AI, authenticated
// with application default credentials.
func NewVertexClient(ctx context.Context, region, projectID string, opts ...option.RequestOption) anthropic.Client {
	return anthropic.NewClient(append([]option.RequestOption{
		vertex.WithGoogleAuth(ctx, region, projectID),
		option.WithMaxRetries(0),
	}, opts...)...)
}

// Executor calls one Claude model through the Messages API.
type Executor struct {
	client       anthropic.Client
	modelName    string
	genaiMetrics *metrics.GenAI
	retryConfig  retry.Config
}

var _ model.Client = (*Executor)(nil)

// New creates an Executor for modelName.
func New(client anthropic.Client, modelName string, opts ...Option) (*Executor, error) {
	if !strings.HasPrefix(modelName, "claude-") {
		return nil, fmt.Errorf("model %q does not appear to be a Claude model (expected claude-* format)", modelName)
	}
	e := &Executor{
		client:       client,
		modelName:    modelName,
		genaiMetrics: metrics.NewGenAI("chainguard.dev/reportfeedback"),
		retryConfig:  retry.Default(),
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

	blocks := []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(req.Prompt)}
	for _, img := range req.Images {
		blocks = append(blocks, anthropic.NewImageBlockBase64(img.MediaType, img.Data))
	}

	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(e.modelName),
		MaxTokens:   maxTokens,
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(blocks...)},
		Temperature: anthropic.Float(req.Temperature),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	log.With("prompt_length", len(req.Prompt), "images", len(req.Images)).Info("Sending Claude message")
	message, err := retry.Do(ctx, e.retryConfig, "create_message", nil, func(ctx context.Context) (*anthropic.Message, error) {
		m, err := e.client.Messages.New(ctx, params)
		return m, e.classify(err)
	})
	if err != nil {
		return nil, err
	}

	e.genaiMetrics.RecordTokens(ctx, e.modelName, message.Usage.InputTokens, message.Usage.OutputTokens)

	var text strings.Builder
	for _, content := range message.Content {
		if content.Type == "text" {
			text.WriteString(content.Text)
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return nil, &model.Error{Kind: model.MalformedResponse, Model: e.modelName, Err: errors.New("no text content in Claude's response")}
	}

	var raw json.RawMessage
	if s := message.RawJSON(); json.Valid([]byte(s)) {
		raw = json.RawMessage(s)
	}
	return &model.Response{
		Model: e.modelName,
		Text:  text.String(),
		Usage: model.Usage{
			PromptTokens:     int(message.Usage.InputTokens),
			CompletionTokens: int(message.Usage.OutputTokens),
			TotalTokens:      int(message.Usage.InputTokens + message.Usage.OutputTokens),
		},
		Raw: raw,
	}, nil
}

// classify wraps err in a *model.Error.
func (e *Executor) classify(err error) error {
	if err == nil {
		return nil
	}
	kind := model.KindOf(err)
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		if k, ok := model.Classify(apiErr.StatusCode); ok {
			kind = k
		}
	}
	return &model.Error{Kind: kind, Model: e.modelName, Err: err}
}
