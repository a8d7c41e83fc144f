/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package googleexecutor

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/chainguard-dev/clog"
	"google.golang.org/genai"

	"chainguard.dev/reportfeedback/agents/executor/retry"
	"chainguard.dev/reportfeedback/agents/metrics"
	"chainguard.dev/reportfeedback/agents/model"
)

// Executor calls one Gemini model.
type Executor struct {
	client       *genai.Client
	model        string
	genaiMetrics *metrics.GenAI
	retryConfig  retry.Config
}

var _ model.Client = (*Executor)(nil)

// Option is a functional option for configuring the executor
type Option func(*Executor) error

// WithRetryConfig sets the retry configuration for transient Vertex AI
// errors.
func WithRetryConfig(cfg retry.Config) Option {
	return func(e *Executor) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		e.retryConfig = cfg
		return nil
	}
}

// WithAttributeEnricher sets a custom attribute enricher for metrics.
func WithAttributeEnricher(enricher metrics.AttributeEnricher) Option {
	return func(e *Executor) error {
		e.genaiMetrics.SetAttributeEnricher(enricher)
		return nil
	}
}

// New creates an Executor for modelName.
func New(client *genai.Client, modelName string, options ...Option) (*Executor, error) {
	if client == nil {
		return nil, errors.New("client is required")
	}
	if modelName == "" {
		return nil, errors.New("model name is required")
	}
	exec := &Executor{
		client:       client,
		model:        modelName,
		genaiMetrics: metrics.NewGenAI("chainguard.dev/reportfeedback"),
		retryConfig:  retry.Default(),
	}
	for _, opt := range options {
		if err := opt(exec); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}
	return exec, nil
}

// Model implements model.Client.
func (e *Executor) Model() string { return e.model }

// Complete implements model.Client.
func (e *Executor) Complete(ctx context.Context, req model.Request) (*model.Response, error) {
	log := clog.FromContext(ctx).With("model", e.model)

	parts := []*genai.Part{{Text: req.Prompt}}
	for _, img := range req.Images {
		data, err := base64.StdEncoding.DecodeString(img.Data)
		if err != nil {
			return nil, &model.Error{Kind: model.RequestRejected, Model: e.model, Err: fmt.Errorf("decoding image %s: %w", img.Name, err)}
		}
		parts = append(parts, &genai.Part{InlineData: &genai.Blob{Data: data, MIMEType: img.MediaType}})
	}

	config := &genai.GenerateContentConfig{
		Temperature: ptr(float32(req.Temperature)),
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.JSON {
		config.ResponseMIMEType = "application/json"
	}
	if req.System != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.System}}}
	}
	contents := []*genai.Content{{Role: genai.RoleUser, Parts: parts}}

	log.With("prompt_length", len(req.Prompt), "images", len(req.Images)).Info("Sending Gemini request")
	resp, err := retry.Do(ctx, e.retryConfig, "generate_content", nil, func(ctx context.Context) (*genai.GenerateContentResponse, error) {
		r, err := e.client.Models.GenerateContent(ctx, e.model, contents, config)
		if err != nil {
			return nil, &model.Error{Kind: classifyVertexError(err), Model: e.model, Err: err}
		}
		return r, nil
	})
	if err != nil {
		return nil, err
	}

	var usage model.Usage
	if u := resp.UsageMetadata; u != nil {
		usage = model.Usage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
		e.genaiMetrics.RecordTokens(ctx, e.model, int64(u.PromptTokenCount), int64(u.CandidatesTokenCount))
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return nil, &model.Error{Kind: model.MalformedResponse, Model: e.model, Err: errors.New("no text in Gemini response")}
	}
	raw, err := json.Marshal(resp)
	if err != nil {
		raw = nil
	}
	return &model.Response{Model: e.model, Text: text, Usage: usage, Raw: raw}, nil
}

// ptr is a helper function to create a pointer to a value
func ptr[T any](v T) *T {
	return &v
}
