/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package extract selects, for one rubric criterion, the part of a parsed
// report that fits a token budget.
package extract

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/chainguard-dev/clog"

	"chainguard.dev/reportfeedback/agents/model"
	"chainguard.dev/reportfeedback/grading/document"
	"chainguard.dev/reportfeedback/grading/notebook"
	"chainguard.dev/reportfeedback/grading/rubric"
)

// Context is the evidence assembled for one criterion. It is never mutated
// after Extract returns it.
type Context struct {
	CriterionID string `json:"criterion_id"`

	// Text holds the selected sections in document order, each followed by
	// the notebook outputs its embed directives refer to.
	Text   string        `json:"text"`
	Images []model.Image `json:"images,omitempty"`

	TextTokens  int `json:"text_tokens"`
	ImageTokens int `json:"image_tokens"`
	// EstimatedTokens is TextTokens plus ImageTokens.
	EstimatedTokens int `json:"estimated_tokens"`

	// Sections are the indexes of the included sections, and Omitted those
	// of candidates dropped for lack of budget.
	Sections []int `json:"sections"`
	Omitted  []int `json:"omitted,omitempty"`
	// Fallback is set when no section matched the criterion and every
	// section was a candidate.
	Fallback bool `json:"fallback,omitempty"`
}

// Extractor builds criterion contexts. It is safe for concurrent use.
type Extractor struct {
	cfg      Config
	estimate Estimator
	fsys     fs.FS
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithEstimator replaces the character-ratio estimator.
func WithEstimator(e Estimator) Option {
	return func(x *Extractor) { x.estimate = e }
}

// WithImages sets the filesystem figure paths are read from. Without it only
// figures rendered into embedded notebook outputs are selected.
func WithImages(fsys fs.FS) Option {
	return func(x *Extractor) { x.fsys = fsys }
}

// New returns an Extractor for cfg.
func New(cfg Config, opts ...Option) *Extractor {
	x := &Extractor{cfg: cfg}
	for _, o := range opts {
		o(x)
	}
	if x.estimate == nil {
		x.estimate = CharEstimator(cfg.CharsPerToken)
	}
	return x
}

// Extract assembles the context for criterion c within budget tokens. A
// budget <= 0 means the configured TokenBudget.
//
// Sections whose heading or body mention a keyword, or that hold a figure
// matching an artifact pattern, are candidates; without any, every section
// is. Every unit is charged together with the separator that joins it to
// the previous one, so TextTokens is never below the estimate of Text.
// Candidates are taken whole, in document order, until the next one would
// exceed the budget. When not even the first fits it is included alone, so
// the text is empty only for an empty document.
func (x *Extractor) Extract(ctx context.Context, doc *document.Document, c rubric.Criterion, budget int) *Context {
	log := clog.FromContext(ctx).With("criterion", c.ID)
	if budget <= 0 {
		budget = x.cfg.TokenBudget
	}
	limit := budget - x.cfg.ReserveTokens

	out := &Context{CriterionID: c.ID}
	candidates := x.candidates(doc, c)
	if len(candidates) == 0 {
		candidates = make([]int, len(doc.Sections))
		for i := range candidates {
			candidates[i] = i
		}
		out.Fallback = len(candidates) > 0
	}

	var units []string
	// charge estimates s as it will appear in Text, separator included.
	charge := func(s string) int {
		if len(units) == 0 {
			return x.estimate(s)
		}
		return x.estimate(unitSeparator + s)
	}
	appended := map[string]bool{}
	for n, i := range candidates {
		unit := strings.TrimSpace(doc.Text(doc.Sections[i]))
		cost := charge(unit)
		if out.TextTokens+cost > limit && n > 0 {
			out.Omitted = append(out.Omitted, candidates[n:]...)
			break
		}
		units = append(units, unit)
		out.TextTokens += cost
		out.Sections = append(out.Sections, i)
		if out.TextTokens > limit {
			log.Warnf("Section %q alone exceeds the budget (%d > %d)", doc.Sections[i].Heading, cost, limit)
			out.Omitted = append(out.Omitted, candidates[n+1:]...)
			break
		}

		for _, rec := range recordsIn(doc, doc.Sections[i]) {
			if appended[rec.Directive] || !rec.Outputs.Textual() {
				continue
			}
			block := FormatOutputs(rec.Directive, rec.Outputs)
			bc := charge(block)
			if out.TextTokens+bc > limit {
				log.Infof("Notebook outputs for %q do not fit, omitting", rec.Directive)
				continue
			}
			appended[rec.Directive] = true
			units = append(units, block)
			out.TextTokens += bc
		}
	}
	out.Text = strings.Join(units, unitSeparator)

	if x.cfg.Vision.EnabledFor(c.ID) {
		out.Images, out.ImageTokens = x.selectImages(ctx, doc, c, out.Sections, min(x.cfg.Vision.ImageTokenBudget, limit-out.TextTokens))
	}
	out.EstimatedTokens = out.TextTokens + out.ImageTokens
	log.With("sections", len(out.Sections), "omitted", len(out.Omitted), "images", len(out.Images)).
		Infof("Extracted context of ~%d tokens", out.EstimatedTokens)
	return out
}

// unitSeparator joins sections and output blocks in Text.
const unitSeparator = "\n\n"

// candidates returns the indexes of matching sections in document order.
func (x *Extractor) candidates(doc *document.Document, c rubric.Criterion) []int {
	keywords := lowered(c.Keywords)
	figureSections := map[int]bool{}
	for _, f := range doc.Figures {
		if f.Section >= 0 && matchesArtifact(c.ArtifactPatterns, f) {
			figureSections[f.Section] = true
		}
	}

	var out []int
	for i, s := range doc.Sections {
		if figureSections[i] || containsAny(strings.ToLower(doc.Text(s)), keywords) {
			out = append(out, i)
		}
	}
	return out
}

// recordsIn returns the notebook records whose directive lies in s.
func recordsIn(doc *document.Document, s document.Section) []document.NotebookOutputRecord {
	var out []document.NotebookOutputRecord
	for _, r := range doc.NotebookOutputs {
		if r.Offset >= s.Start && r.Offset < s.End {
			out = append(out, r)
		}
	}
	return out
}

// FormatOutputs renders a notebook output bundle for the model: tables, then
// plain text in fences, then rich text.
func FormatOutputs(directive string, b notebook.Bundle) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "### Notebook Output from {{< embed %s >}}", directive)
	for _, t := range b.Tables {
		sb.WriteString("\n\n")
		sb.WriteString(t)
	}
	for _, t := range b.Text {
		fmt.Fprintf(&sb, "\n\n```\n%s\n```", t)
	}
	for _, t := range b.RichText {
		sb.WriteString("\n\n")
		sb.WriteString(t)
	}
	return sb.String()
}

func matchesArtifact(patterns []string, f document.Figure) bool {
	for _, p := range patterns {
		for _, name := range []string{f.Path, path.Base(f.Path), f.ID} {
			if ok, err := path.Match(p, name); err == nil && ok {
				return true
			}
		}
	}
	return false
}

func lowered(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			out = append(out, w)
		}
	}
	return out
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
