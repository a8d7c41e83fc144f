/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/require"

	"chainguard.dev/reportfeedback/agents/model"
	"chainguard.dev/reportfeedback/grading/document"
	"chainguard.dev/reportfeedback/grading/evaluate"
)

func load(t *testing.T, env map[string]string) config {
	t.Helper()
	var cfg config
	require.NoError(t, envconfig.ProcessWith(context.Background(), &envconfig.Config{
		Target:   &cfg,
		Lookuper: envconfig.MapLookuper(env),
	}))
	return cfg
}

func TestConfigDefaults(t *testing.T) {
	t.Parallel()

	cfg := load(t, map[string]string{})
	require.NoError(t, cfg.validate())

	if cfg.Concurrency != 2 || cfg.TokenBudget != 6000 || cfg.Timeout != 2*time.Minute {
		t.Errorf("defaults = %d, %d, %v", cfg.Concurrency, cfg.TokenBudget, cfg.Timeout)
	}
	if cfg.PrimaryModel != "openai/gpt-4o" || cfg.FallbackModel != "openai/gpt-4o-mini" {
		t.Errorf("models = %q, %q", cfg.PrimaryModel, cfg.FallbackModel)
	}
	if rc := cfg.retryConfig(); rc.MaxRetries != 0 {
		t.Errorf("MaxRetries = %d, want 0", rc.MaxRetries)
	}

	xc := cfg.extractConfig()
	if diff := cmp.Diff([]string{"*"}, xc.Vision.Criteria); diff != "" {
		t.Errorf("vision criteria (-want, +got):\n%s", diff)
	}
	if xc.Vision.Enabled || xc.Vision.MaxImages != 3 || xc.CharsPerToken != 4 {
		t.Errorf("extract config = %+v", xc)
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	for name, env := range map[string]map[string]string{
		"no concurrency":       {"CONCURRENCY": "0"},
		"no budget":            {"TOKEN_BUDGET": "0"},
		"negative retries":     {"MODEL_RETRIES": "-1"},
		"post without repo":    {"POST_ISSUE": "true"},
		"zero chars per token": {"CHARS_PER_TOKEN": "0"},
	} {
		cfg := load(t, env)
		if err := cfg.validate(); err == nil {
			t.Errorf("%s: validate() = nil", name)
		}
	}

	cfg := load(t, map[string]string{"POST_ISSUE": "true", "LOCAL_TEST": "true"})
	if err := cfg.validate(); err != nil {
		t.Errorf("local preview needs no repository: %v", err)
	}
}

func TestModelsToken(t *testing.T) {
	t.Parallel()

	if got := (config{GitHubToken: "gh"}).modelsToken(); got != "gh" {
		t.Errorf("modelsToken() = %q, want gh", got)
	}
	if got := (config{GitHubToken: "gh", ModelsToken: "m"}).modelsToken(); got != "m" {
		t.Errorf("modelsToken() = %q, want m", got)
	}
}

func TestNewChain(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cfg := config{PrimaryModel: "openai/gpt-4o", FallbackModel: "openai/gpt-4o", GitHubToken: "t", ModelsEndpoint: "http://localhost"}
	chain, err := newChain(ctx, cfg)
	require.NoError(t, err)
	if diff := cmp.Diff([]string{"openai/gpt-4o"}, chain.Models()); diff != "" {
		t.Errorf("same fallback should be dropped (-want, +got):\n%s", diff)
	}

	cfg.FallbackModel = "claude-sonnet-4"
	cfg.AnthropicAPIKey = "k"
	chain, err = newChain(ctx, cfg)
	require.NoError(t, err)
	if diff := cmp.Diff([]string{"openai/gpt-4o", "claude-sonnet-4"}, chain.Models()); diff != "" {
		t.Errorf("models (-want, +got):\n%s", diff)
	}

	if _, err := newChain(ctx, config{PrimaryModel: "openai/gpt-4o"}); err == nil {
		t.Error("newChain() without a token = nil error")
	}
}

func TestWriteOutputs(t *testing.T) {
	t.Parallel()

	out := &evaluate.Outcome{
		Results: []evaluate.Result{{
			CriterionID: "method",
			Name:        "Methodology",
			States:      []evaluate.State{evaluate.Pending, evaluate.Requested, evaluate.Succeeded},
			Success:     &evaluate.Success{Feedback: evaluate.Feedback{Summary: "ok"}, TokensUsed: 10, ModelUsed: "m"},
		}, {
			CriterionID: "results",
			Name:        "Results",
			States:      []evaluate.State{evaluate.Pending, evaluate.Requested, evaluate.Failed},
			Failure:     &evaluate.Failure{ErrorKind: model.MalformedResponse, Message: "no JSON content", Model: "m"},
		}},
		Succeeded: 1,
		Failed:    1,
	}
	dir := filepath.Join(t.TempDir(), "out")
	require.NoError(t, writeOutputs(dir, out, document.Stats{Words: 5}, "# body"))

	b, err := os.ReadFile(filepath.Join(dir, "feedback.json"))
	require.NoError(t, err)
	var got []feedbackEntry
	require.NoError(t, json.Unmarshal(b, &got))
	want := []feedbackEntry{{
		CriterionID: "method",
		Criterion:   "Methodology",
		Success:     true,
		Feedback:    &evaluate.Feedback{Summary: "ok"},
		Model:       "m",
		Tokens:      10,
		States:      []evaluate.State{evaluate.Pending, evaluate.Requested, evaluate.Succeeded},
	}, {
		CriterionID: "results",
		Criterion:   "Results",
		Model:       "m",
		ErrorKind:   "malformed_response",
		Error:       "no JSON content",
		States:      []evaluate.State{evaluate.Pending, evaluate.Requested, evaluate.Failed},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("feedback.json (-want, +got):\n%s", diff)
	}

	md, err := os.ReadFile(filepath.Join(dir, "feedback.md"))
	require.NoError(t, err)
	if string(md) != "# body" {
		t.Errorf("feedback.md = %q", md)
	}
}
