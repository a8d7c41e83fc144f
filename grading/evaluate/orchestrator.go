/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package evaluate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chainguard-dev/clog"
	"golang.org/x/sync/errgroup"

	"chainguard.dev/reportfeedback/agents/agenttrace"
	"chainguard.dev/reportfeedback/agents/metrics"
	"chainguard.dev/reportfeedback/agents/model"
	"chainguard.dev/reportfeedback/grading/document"
	"chainguard.dev/reportfeedback/grading/extract"
	"chainguard.dev/reportfeedback/grading/rubric"
)

// Options configures an Orchestrator.
type Options struct {
	// Concurrency bounds the criteria evaluated at once. Defaults to 2.
	Concurrency int
	// Timeout bounds each model call. 0 means no per-call timeout.
	Timeout time.Duration
	// TokenBudget is the context budget per criterion. 0 uses the
	// extractor's configured budget.
	TokenBudget int
	// Scoring asks the model for a numeric score within the chosen level.
	Scoring bool
	// Temperature defaults to 0.3.
	Temperature *float64
	// MaxTokens bounds each reply. Defaults to 2000.
	MaxTokens int
	// Guidance is the shared guidance text. Each criterion gets the
	// excerpt rubric.GuidanceFor cuts from it.
	Guidance string
	// Metrics, when set, records one evaluation outcome per criterion.
	Metrics *metrics.GenAI
}

const (
	defaultConcurrency = 2
	defaultTemperature = 0.3
	defaultMaxTokens   = 2000
)

// Orchestrator evaluates every criterion of a rubric against a document.
// It is safe for concurrent use.
type Orchestrator struct {
	extractor *extract.Extractor
	chain     Chain
	opts      Options
	schema    *feedbackSchema
}

// New returns an Orchestrator sending requests down chain.
func New(extractor *extract.Extractor, chain Chain, opts Options) (*Orchestrator, error) {
	if extractor == nil {
		return nil, errors.New("extractor is required")
	}
	if len(chain) == 0 {
		return nil, errors.New("at least one model is required")
	}
	if opts.Concurrency < 0 || opts.Timeout < 0 || opts.TokenBudget < 0 || opts.MaxTokens < 0 {
		return nil, errors.New("concurrency, timeout, token budget and max tokens cannot be negative")
	}
	if opts.Concurrency == 0 {
		opts.Concurrency = defaultConcurrency
	}
	if opts.Temperature == nil {
		t := defaultTemperature
		opts.Temperature = &t
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	s := unscoredSchema
	if opts.Scoring {
		s = scoredSchema
	}
	return &Orchestrator{extractor: extractor, chain: chain, opts: opts, schema: s}, nil
}

var (
	unscoredSchema = mustSchema(newFeedbackSchema[feedbackPayload]())
	scoredSchema   = mustSchema(newFeedbackSchema[scoredPayload]())
)

// Run evaluates every criterion of r. A failed criterion is reported in its
// Result and never stops the others; Run itself only fails on an empty
// rubric or a nil document.
func (o *Orchestrator) Run(ctx context.Context, doc *document.Document, r *rubric.Rubric) (*Outcome, error) {
	if doc == nil {
		return nil, errors.New("document is required")
	}
	if r == nil || len(r.Criteria) == 0 {
		return nil, errors.New("rubric has no criteria")
	}
	log := clog.FromContext(ctx)
	log.With("criteria", len(r.Criteria), "concurrency", o.opts.Concurrency, "models", strings.Join(o.chain.Models(), ",")).
		Info("Evaluating criteria")

	var (
		mu      sync.Mutex
		results = make(map[string]Result, len(r.Criteria))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.Concurrency)
	for i, c := range r.Criteria {
		g.Go(func() error {
			res := o.evaluate(gctx, doc, c, i+1)
			mu.Lock()
			defer mu.Unlock()
			results[c.ID] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("evaluating criteria: %w", err)
	}

	out := &Outcome{Results: make([]Result, 0, len(r.Criteria))}
	for _, c := range r.Criteria {
		res := results[c.ID]
		out.Results = append(out.Results, res)
		if res.Succeeded() {
			out.Succeeded++
			out.Usage.PromptTokens += res.Success.Usage.PromptTokens
			out.Usage.CompletionTokens += res.Success.Usage.CompletionTokens
			out.Usage.TotalTokens += res.Success.TokensUsed
		} else {
			out.Failed++
		}
	}
	log.With("succeeded", out.Succeeded, "failed", out.Failed, "tokens", out.Usage.TotalTokens).
		Info("Evaluation complete")
	return out, nil
}

// evaluate runs one criterion from pending to succeeded or failed.
func (o *Orchestrator) evaluate(ctx context.Context, doc *document.Document, c rubric.Criterion, index int) Result {
	trace := agenttrace.StartTrace[Result](ctx, agenttrace.Subject{ID: c.ID, Name: c.Name, Index: index})
	ctx = trace.Context()
	log := clog.FromContext(ctx).With("criterion", c.ID)

	res := Result{CriterionID: c.ID, Name: c.Name, Index: index}
	transition := func(s State, modelName string) {
		res.States = append(res.States, s)
		trace.Transition(string(s))
		log.With("state", s, "model", modelName).Info("Criterion state changed")
	}
	fail := func(modelName string, err error) Result {
		res.Failure = failure(modelName, err)
		transition(Failed, modelName)
		log.With("error_kind", res.Failure.ErrorKind).Warnf("Criterion failed: %v", err)
		o.record(ctx, modelName, res)
		trace.Complete(res, res.Failure)
		return res
	}
	transition(Pending, "")

	cx := o.extractor.Extract(ctx, doc, c, o.opts.TokenBudget)
	res.Evidence = evidenceOf(cx)

	prompt, err := buildPrompt(rubric.GuidanceFor(o.opts.Guidance, c), c, cx, o.schema, o.opts.Scoring)
	if err != nil {
		return fail("", model.Errorf(model.RequestRejected, "%w", err))
	}
	req := model.Request{
		System:      SystemPrompt,
		Prompt:      prompt,
		Images:      cx.Images,
		Temperature: *o.opts.Temperature,
		MaxTokens:   o.opts.MaxTokens,
		JSON:        true,
	}
	trace.SetPrompt(cx.Text, prompt, &req)
	trace.SetMetadata("context_word_count", res.Evidence.Words)
	trace.SetMetadata("estimated_tokens", cx.EstimatedTokens)

	var (
		feedback Feedback
		call     *agenttrace.Call
	)
	attempt, err := o.chain.Complete(ctx, req, o.opts.Timeout, Hooks{
		Before: func(i int, modelName string) {
			if i == 0 {
				transition(Requested, modelName)
			} else {
				transition(RetriedOnFallback, modelName)
			}
			call = trace.StartCall(modelName)
		},
		Accept: func(resp *model.Response) error {
			var err error
			feedback, err = parseFeedback(o.schema, resp.Text, c, o.opts.Scoring)
			return err
		},
		After: func(a Attempt) {
			call.Complete(a.Response, a.Err)
		},
	})
	if err != nil {
		return fail(attempt.Model, err)
	}

	usage := attempt.Response.Usage
	res.Success = &Success{
		Feedback:     feedback,
		FeedbackText: attempt.Response.Text,
		TokensUsed:   usage.TotalTokens,
		ModelUsed:    attempt.Model,
		Usage:        usage,
	}
	transition(Succeeded, attempt.Model)
	o.record(ctx, attempt.Model, res)
	trace.Complete(res, nil)
	return res
}

func (o *Orchestrator) record(ctx context.Context, modelName string, res Result) {
	if o.opts.Metrics == nil {
		return
	}
	outcome, kind := string(Succeeded), ""
	if res.Failure != nil {
		outcome, kind = string(Failed), string(res.Failure.ErrorKind)
	}
	o.opts.Metrics.RecordEvaluation(ctx, modelName, outcome, kind)
}

func evidenceOf(cx *extract.Context) Evidence {
	e := Evidence{
		EstimatedTokens: cx.EstimatedTokens,
		Sections:        len(cx.Sections),
		Omitted:         len(cx.Omitted),
		Fallback:        cx.Fallback,
		Words:           len(strings.Fields(cx.Text)),
	}
	for _, img := range cx.Images {
		e.Images = append(e.Images, img.Name)
	}
	return e
}
