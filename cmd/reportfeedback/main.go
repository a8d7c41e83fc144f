/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package main generates per-criterion feedback on a student report and
// optionally posts it as a GitHub issue.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/google/go-github/v84/github"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"

	"chainguard.dev/reportfeedback/agents/agenttrace"
	"chainguard.dev/reportfeedback/agents/metrics"
	"chainguard.dev/reportfeedback/delivery/debugsink"
	"chainguard.dev/reportfeedback/delivery/issue"
	"chainguard.dev/reportfeedback/delivery/render"
	"chainguard.dev/reportfeedback/grading/document"
	"chainguard.dev/reportfeedback/grading/evaluate"
	"chainguard.dev/reportfeedback/grading/extract"
	"chainguard.dev/reportfeedback/grading/markup"
	"chainguard.dev/reportfeedback/grading/rubric"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		clog.FatalContextf(ctx, "loading .env: %v", err)
	}
	var cfg config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		clog.FatalContextf(ctx, "processing config: %v", err)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	ctx = clog.WithLogger(ctx, clog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if err := cfg.validate(); err != nil {
		clog.FatalContextf(ctx, "invalid config: %v", err)
	}
	if err := run(ctx, cfg); err != nil {
		clog.FatalContextf(ctx, "%v", err)
	}
}

// run fails only on missing inputs and invalid configuration. Criteria that
// fail to evaluate are reported in the output.
func run(ctx context.Context, cfg config) error {
	started := time.Now()
	runID := uuid.NewString()
	ctx = agenttrace.WithExecutionContext(ctx, agenttrace.ExecutionContext{
		RunID:      runID,
		Tag:        cfg.TagName,
		Repository: cfg.Repository,
	})
	log := clog.FromContext(ctx).With("run_id", runID)

	r, err := rubric.LoadFile(cfg.RubricPath)
	if err != nil {
		return fmt.Errorf("loading rubric: %w", err)
	}
	guidance, err := os.ReadFile(cfg.GuidancePath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("reading guidance: %w", err)
		}
		log.Warnf("No guidance at %s, evaluating without it", cfg.GuidancePath)
	}
	raw, err := os.ReadFile(cfg.ReportPath)
	if err != nil {
		return fmt.Errorf("reading report: %w", err)
	}

	fsys := os.DirFS(filepath.Dir(cfg.ReportPath))
	doc := document.Parse(ctx, markup.Normalize(string(raw)), document.Options{FS: fsys})
	log.With("sections", doc.Stats.Sections, "figures", doc.Stats.Figures, "embeds", doc.Stats.NotebookEmbeds).
		Infof("Parsed report of %d words", doc.Stats.Words)

	chain, err := newChain(ctx, cfg)
	if err != nil {
		return err
	}

	tracer := agenttrace.NewDefaultTracer[evaluate.Result](ctx)
	var sink *debugsink.Sink
	if cfg.DebugRoot != "" {
		store, err := debugsink.Open(ctx, cfg.DebugRoot)
		if err != nil {
			return fmt.Errorf("opening debug root: %w", err)
		}
		defer store.Close()
		sink = debugsink.New(store, debugsink.Options{Tag: cfg.TagName, Started: started, Rubric: r, Scoring: cfg.Scoring})
		tracer = agenttrace.Multi(tracer, sink.Tracer())
		log.With("dir", sink.Dir()).Info("Writing debug traces")
	}
	ctx = agenttrace.WithTracer(ctx, tracer)

	gm := metrics.NewGenAI("chainguard.dev/reportfeedback")
	gm.SetAttributeEnricher(agenttrace.Enrich)

	orch, err := evaluate.New(extract.New(cfg.extractConfig(), extract.WithImages(fsys)), chain, evaluate.Options{
		Concurrency: cfg.Concurrency,
		Timeout:     cfg.Timeout,
		TokenBudget: cfg.TokenBudget,
		Scoring:     cfg.Scoring,
		Guidance:    string(guidance),
		Metrics:     gm,
	})
	if err != nil {
		return err
	}
	out, err := orch.Run(ctx, doc, r)
	if err != nil {
		return err
	}

	opts := render.Options{
		Scoring:   cfg.Scoring,
		TagName:   cfg.TagName,
		Model:     cfg.PrimaryModel,
		RubricURL: render.RubricURL(cfg.Repository, cfg.TagName, cfg.RubricLinkPath),
	}
	if !cfg.LocalTest {
		opts.Generated = time.Now()
	}
	body := render.IssueBody(out, r, doc.Stats, opts)
	if err := writeOutputs(cfg.OutputDir, out, doc.Stats, body); err != nil {
		return err
	}
	if err := render.Summary(os.Stdout, out); err != nil {
		log.Warnf("Failed to print summary: %v", err)
	}

	if cfg.PostIssue || cfg.LocalTest {
		if err := postIssue(ctx, cfg, render.Title(cfg.IssueTitleTemplate, cfg.TagName, time.Now()), body); err != nil {
			return err
		}
	}
	if cfg.MetricsTextfile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsTextfile); err != nil {
			log.Warnf("Failed to write metrics: %v", err)
		}
	}
	if sink != nil {
		if err := sink.Finish(ctx, runID, out); err != nil {
			log.Warnf("Some debug files were not written: %v", err)
		}
	}
	log.With("succeeded", out.Succeeded, "failed", out.Failed, "duration", time.Since(started)).Info("Feedback complete")
	return nil
}

// feedbackEntry is one element of feedback.json.
type feedbackEntry struct {
	CriterionID string             `json:"criterion_id"`
	Criterion   string             `json:"criterion"`
	Success     bool               `json:"success"`
	Feedback    *evaluate.Feedback `json:"feedback,omitempty"`
	Model       string             `json:"model,omitempty"`
	Tokens      int                `json:"tokens"`
	ErrorKind   string             `json:"error_kind,omitempty"`
	Error       string             `json:"error,omitempty"`
	States      []evaluate.State   `json:"states"`
}

func feedbackEntries(out *evaluate.Outcome) []feedbackEntry {
	entries := make([]feedbackEntry, 0, len(out.Results))
	for _, res := range out.Results {
		e := feedbackEntry{CriterionID: res.CriterionID, Criterion: res.Name, Success: res.Succeeded(), States: res.States}
		if res.Success != nil {
			e.Feedback, e.Model, e.Tokens = &res.Success.Feedback, res.Success.ModelUsed, res.Success.TokensUsed
		}
		if res.Failure != nil {
			e.ErrorKind, e.Error, e.Model = string(res.Failure.ErrorKind), res.Failure.Message, res.Failure.Model
		}
		entries = append(entries, e)
	}
	return entries
}

// writeOutputs writes feedback.json, the rendered feedback.md and the
// parsed report statistics.
func writeOutputs(dir string, out *evaluate.Outcome, stats document.Stats, body string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	for name, v := range map[string]any{
		"feedback.json": feedbackEntries(out),
		"run.json": struct {
			Succeeded int            `json:"succeeded"`
			Failed    int            `json:"failed"`
			Tokens    int            `json:"total_tokens"`
			Stats     document.Stats `json:"stats"`
		}{out.Succeeded, out.Failed, out.TotalTokens(), stats},
	} {
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling %s: %w", name, err)
		}
		if err := os.WriteFile(filepath.Join(dir, name), b, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "feedback.md"), []byte(body), 0o644); err != nil {
		return fmt.Errorf("writing feedback.md: %w", err)
	}
	return nil
}

func postIssue(ctx context.Context, cfg config, title, body string) error {
	if cfg.LocalTest {
		_, err := issue.NewPreview(os.Stdout).Post(ctx, title, body)
		return err
	}

	var client *github.Client
	switch {
	case cfg.AppID != 0:
		c, err := issue.NewAppClient(cfg.AppID, cfg.InstallationID, cfg.AppKeyFile)
		if err != nil {
			return err
		}
		client = c
	case cfg.GitHubToken != "":
		client = issue.NewTokenClient(ctx, cfg.GitHubToken)
	default:
		return errors.New("GITHUB_TOKEN or GITHUB_APP_ID is required to post an issue")
	}
	p, err := issue.New(client, cfg.Repository, issue.WithLabel(cfg.IssueLabel))
	if err != nil {
		return err
	}
	_, err = p.Post(ctx, title, body)
	return err
}
