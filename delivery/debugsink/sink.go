/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package debugsink saves what each criterion evaluation saw and returned:
// the assembled context, the prompt, the request, the raw responses and the
// rendered feedback.
//
// A run is laid out as
//
//	<root>/<timestamp>_<tag>/
//	  final_feedback.json
//	  criteria/<NN>_<id>/
//	    context.txt prompt.txt request.json response.json feedback.md metadata.json
package debugsink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"regexp"
	"sync"
	"time"

	"github.com/chainguard-dev/clog"

	"chainguard.dev/reportfeedback/agents/agenttrace"
	"chainguard.dev/reportfeedback/agents/model"
	"chainguard.dev/reportfeedback/delivery/render"
	"chainguard.dev/reportfeedback/grading/evaluate"
	"chainguard.dev/reportfeedback/grading/rubric"
)

// Options configures a Sink.
type Options struct {
	// Tag names the run directory together with Started.
	Tag     string
	Started time.Time
	// Rubric supplies weights for rendered scores.
	Rubric  *rubric.Rubric
	Scoring bool
}

// Sink writes traces of criterion evaluations to a Store.
type Sink struct {
	store Store
	dir   string
	opts  Options

	mu   sync.Mutex
	errs []error
}

// New returns a Sink writing below a run directory of store.
func New(store Store, opts Options) *Sink {
	if opts.Started.IsZero() {
		opts.Started = time.Now()
	}
	tag := opts.Tag
	if tag == "" {
		tag = "local"
	}
	return &Sink{
		store: store,
		dir:   opts.Started.UTC().Format("20060102_150405") + "_" + safeName(tag),
		opts:  opts,
	}
}

// Dir is the run directory, relative to the store root.
func (s *Sink) Dir() string { return s.dir }

// Tracer returns a tracer that records every completed trace.
func (s *Sink) Tracer() agenttrace.Tracer[evaluate.Result] {
	return agenttrace.ByCode[evaluate.Result](s.Record)
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func safeName(s string) string {
	return unsafeChars.ReplaceAllString(s, "_")
}

// metadata is the content of metadata.json.
type metadata struct {
	CriterionID      string           `json:"criterion_id"`
	CriterionName    string           `json:"criterion_name"`
	CriterionIndex   int              `json:"criterion_index"`
	TraceID          string           `json:"trace_id"`
	RunID            string           `json:"run_id,omitempty"`
	Timestamp        time.Time        `json:"timestamp"`
	DurationSeconds  float64          `json:"duration_seconds"`
	Success          bool             `json:"success"`
	ModelUsed        string           `json:"model_used,omitempty"`
	ErrorKind        model.Kind       `json:"error_kind,omitempty"`
	Error            string           `json:"error,omitempty"`
	States           []evaluate.State `json:"states"`
	ImagePaths       []string         `json:"image_paths,omitempty"`
	EstimatedTokens  int              `json:"estimated_tokens"`
	ContextWordCount int              `json:"context_word_count"`
	Tokens           model.Usage      `json:"tokens"`
	Extra            map[string]any   `json:"extra,omitempty"`
}

// callRecord is one entry of response.json.
type callRecord struct {
	Model           string          `json:"model"`
	DurationSeconds float64         `json:"duration_seconds"`
	ErrorKind       model.Kind      `json:"error_kind,omitempty"`
	Error           string          `json:"error,omitempty"`
	Text            string          `json:"text,omitempty"`
	Usage           *model.Usage    `json:"usage,omitempty"`
	Raw             json.RawMessage `json:"raw,omitempty"`
}

// Record writes the files of one criterion. Write failures are logged and
// collected for Finish; they never fail the evaluation.
func (s *Sink) Record(tr *agenttrace.Trace[evaluate.Result]) {
	ctx := tr.Context()
	res := tr.Result
	dir := path.Join(s.dir, "criteria", fmt.Sprintf("%02d_%s", tr.Criterion.Index, safeName(tr.Criterion.ID)))

	meta := metadata{
		CriterionID:      tr.Criterion.ID,
		CriterionName:    tr.Criterion.Name,
		CriterionIndex:   tr.Criterion.Index,
		TraceID:          tr.ID,
		RunID:            tr.ExecContext.RunID,
		Timestamp:        tr.StartTime.UTC(),
		DurationSeconds:  tr.Duration().Seconds(),
		Success:          res.Succeeded(),
		States:           res.States,
		ImagePaths:       res.Evidence.Images,
		EstimatedTokens:  res.Evidence.EstimatedTokens,
		ContextWordCount: res.Evidence.Words,
		Tokens:           tr.Usage(),
		Extra:            tr.Metadata,
	}
	if res.Success != nil {
		meta.ModelUsed = res.Success.ModelUsed
	}
	if res.Failure != nil {
		meta.ErrorKind, meta.Error = res.Failure.ErrorKind, res.Failure.Message
	}

	calls := make([]callRecord, 0, len(tr.Calls))
	for _, c := range tr.Calls {
		rec := callRecord{Model: c.Model, DurationSeconds: c.Duration().Seconds(), ErrorKind: c.ErrorKind}
		if c.Error != nil {
			rec.Error = c.Error.Error()
		}
		if c.Response != nil {
			rec.Text, rec.Usage, rec.Raw = c.Response.Text, &c.Response.Usage, c.Response.Raw
		}
		calls = append(calls, rec)
	}

	files := []struct {
		name string
		data any
	}{
		{"context.txt", tr.Evidence},
		{"prompt.txt", promptText(tr.Request, tr.Prompt)},
		{"request.json", redact(tr.Request)},
		{"response.json", calls},
		{"feedback.md", render.Criterion(res, s.weight(res.CriterionID), s.opts.Scoring)},
		{"metadata.json", meta},
	}
	for _, f := range files {
		if err := s.write(ctx, path.Join(dir, f.name), f.data); err != nil {
			clog.FromContext(ctx).With("criterion", tr.Criterion.ID).Warnf("Failed to write debug file %s: %v", f.name, err)
		}
	}
}

// runRecord is the content of final_feedback.json.
type runRecord struct {
	RunID    string            `json:"run_id,omitempty"`
	Tag      string            `json:"tag,omitempty"`
	Started  time.Time         `json:"started"`
	Finished time.Time         `json:"finished"`
	Outcome  *evaluate.Outcome `json:"outcome"`
}

// Finish writes final_feedback.json and returns the write errors seen
// during the run.
func (s *Sink) Finish(ctx context.Context, runID string, out *evaluate.Outcome) error {
	// A failed write is collected with the others.
	_ = s.write(ctx, path.Join(s.dir, "final_feedback.json"), runRecord{
		RunID:    runID,
		Tag:      s.opts.Tag,
		Started:  s.opts.Started.UTC(),
		Finished: time.Now().UTC(),
		Outcome:  out,
	})
	s.mu.Lock()
	defer s.mu.Unlock()
	return errors.Join(s.errs...)
}

func (s *Sink) write(ctx context.Context, name string, data any) error {
	var b []byte
	switch v := data.(type) {
	case string:
		b = []byte(v)
	default:
		var err error
		if b, err = json.MarshalIndent(v, "", "  "); err != nil {
			return s.fail(fmt.Errorf("marshaling %s: %w", name, err))
		}
	}
	if err := s.store.Write(ctx, name, b); err != nil {
		return s.fail(err)
	}
	return nil
}

func (s *Sink) fail(err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, err)
	return err
}

func (s *Sink) weight(id string) float64 {
	if s.opts.Rubric == nil {
		return 0
	}
	c, _ := s.opts.Rubric.Find(id)
	return c.Weight
}

func promptText(req *model.Request, prompt string) string {
	if req == nil {
		return prompt
	}
	return "=== SYSTEM ===\n" + req.System + "\n\n=== USER ===\n" + prompt
}

// redact replaces image data with its size.
func redact(req *model.Request) *model.Request {
	if req == nil {
		return nil
	}
	out := *req
	out.Images = make([]model.Image, len(req.Images))
	for i, img := range req.Images {
		img.Data = fmt.Sprintf("<%d base64 bytes>", len(img.Data))
		out.Images[i] = img
	}
	return &out
}
