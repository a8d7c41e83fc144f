/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/compute/metadata"
	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/chainguard-dev/clog"
	"github.com/openai/openai-go/option"
	"google.golang.org/genai"

	"chainguard.dev/reportfeedback/agents/agenttrace"
	"chainguard.dev/reportfeedback/agents/executor/claudeexecutor"
	"chainguard.dev/reportfeedback/agents/executor/googleexecutor"
	"chainguard.dev/reportfeedback/agents/executor/openaiexecutor"
	"chainguard.dev/reportfeedback/agents/model"
	"chainguard.dev/reportfeedback/grading/evaluate"
)

// newChain returns the primary model followed by the fallback, when one is
// configured and differs from the primary.
func newChain(ctx context.Context, cfg config) (evaluate.Chain, error) {
	names := []string{cfg.PrimaryModel}
	if cfg.FallbackModel != "" && cfg.FallbackModel != cfg.PrimaryModel {
		names = append(names, cfg.FallbackModel)
	}
	chain := make(evaluate.Chain, 0, len(names))
	for _, name := range names {
		c, err := newClient(ctx, cfg, name)
		if err != nil {
			return nil, fmt.Errorf("model %s: %w", name, err)
		}
		chain = append(chain, c)
	}
	return chain, nil
}

// newClient picks the provider from the model name: claude-* and gemini-*
// go to Anthropic and Google, everything else to the OpenAI-compatible
// models endpoint.
func newClient(ctx context.Context, cfg config, name string) (model.Client, error) {
	switch {
	case strings.HasPrefix(name, "claude-"):
		opts := []claudeexecutor.Option{
			claudeexecutor.WithRetryConfig(cfg.retryConfig()),
			claudeexecutor.WithAttributeEnricher(agenttrace.Enrich),
		}
		if cfg.AnthropicAPIKey != "" {
			return claudeexecutor.New(anthropic.NewClient(
				anthropicoption.WithAPIKey(cfg.AnthropicAPIKey),
				anthropicoption.WithMaxRetries(0),
			), name, opts...)
		}
		project, err := gcpProject(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return claudeexecutor.New(claudeexecutor.NewVertexClient(ctx, cfg.GCPRegion, project), name, opts...)

	case strings.HasPrefix(name, "gemini-"):
		cc := &genai.ClientConfig{APIKey: cfg.GeminiAPIKey, Backend: genai.BackendGeminiAPI}
		if cfg.GeminiAPIKey == "" {
			project, err := gcpProject(ctx, cfg)
			if err != nil {
				return nil, err
			}
			cc = &genai.ClientConfig{Project: project, Location: cfg.GCPRegion, Backend: genai.BackendVertexAI}
		}
		client, err := genai.NewClient(ctx, cc)
		if err != nil {
			return nil, fmt.Errorf("creating genai client: %w", err)
		}
		return googleexecutor.New(client, name,
			googleexecutor.WithRetryConfig(cfg.retryConfig()),
			googleexecutor.WithAttributeEnricher(agenttrace.Enrich))

	default:
		token := cfg.modelsToken()
		if token == "" {
			return nil, errors.New("MODELS_TOKEN or GITHUB_TOKEN is required")
		}
		return openaiexecutor.New(openaiexecutor.NewGitHubModelsClient(token, option.WithBaseURL(cfg.ModelsEndpoint)), name,
			openaiexecutor.WithRetryConfig(cfg.retryConfig()),
			openaiexecutor.WithAttributeEnricher(agenttrace.Enrich))
	}
}

// gcpProject returns the configured project, or the project of the GCE
// instance the binary runs on.
func gcpProject(ctx context.Context, cfg config) (string, error) {
	if cfg.GCPProject != "" {
		return cfg.GCPProject, nil
	}
	if !metadata.OnGCE() {
		return "", errors.New("GOOGLE_CLOUD_PROJECT is required outside GCP")
	}
	project, err := metadata.ProjectIDWithContext(ctx)
	if err != nil {
		return "", fmt.Errorf("detecting project: %w", err)
	}
	clog.FromContext(ctx).With("project", project).Info("Detected GCP project from metadata server")
	return project, nil
}
