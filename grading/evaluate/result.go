/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package evaluate

import (
	"errors"
	"fmt"
	"slices"

	"chainguard.dev/reportfeedback/agents/model"
)

// State is a step in a criterion's evaluation.
type State string

const (
	Pending           State = "pending"
	Requested         State = "requested"
	RetriedOnFallback State = "retried_on_fallback"
	Succeeded         State = "succeeded"
	Failed            State = "failed"
)

// Result is the outcome of one criterion. Exactly one of Success and
// Failure is set.
type Result struct {
	CriterionID string `json:"criterion_id"`
	Name        string `json:"criterion"`
	// Index is the criterion's position in the rubric, starting at 1.
	Index int `json:"index"`

	Success *Success `json:"success,omitempty"`
	Failure *Failure `json:"failure,omitempty"`

	// States is the sequence of states the criterion passed through.
	States []State `json:"states"`
	// Evidence summarizes the context the model was given.
	Evidence Evidence `json:"evidence"`
}

// Succeeded reports whether the criterion produced feedback.
func (r Result) Succeeded() bool { return r.Success != nil }

// Final returns the last state in the trail.
func (r Result) Final() State {
	if len(r.States) == 0 {
		return Pending
	}
	return r.States[len(r.States)-1]
}

// Success is the feedback produced for a criterion.
type Success struct {
	Feedback Feedback `json:"feedback"`
	// FeedbackText is the validated JSON payload as the model sent it.
	FeedbackText string      `json:"feedback_text"`
	TokensUsed   int         `json:"tokens_used"`
	ModelUsed    string      `json:"model_used"`
	Usage        model.Usage `json:"usage"`
}

// Failure describes why a criterion has no feedback.
type Failure struct {
	ErrorKind model.Kind `json:"error_kind"`
	Message   string     `json:"message"`
	// Model is the last model tried, if any.
	Model string `json:"model,omitempty"`
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.ErrorKind, f.Message)
}

func failure(modelName string, err error) *Failure {
	msg := err.Error()
	var me *model.Error
	if errors.As(err, &me) && me.Err != nil {
		msg = me.Err.Error()
	}
	return &Failure{ErrorKind: kindOf(err), Message: msg, Model: modelName}
}

// Evidence summarizes an extracted criterion context.
type Evidence struct {
	EstimatedTokens int      `json:"estimated_tokens"`
	Sections        int      `json:"sections"`
	Omitted         int      `json:"omitted,omitempty"`
	Images          []string `json:"images,omitempty"`
	Fallback        bool     `json:"fallback,omitempty"`
	Words           int      `json:"words"`
}

// Outcome is the result of a run: one Result per criterion in rubric order,
// plus run-level counts.
type Outcome struct {
	Results   []Result    `json:"results"`
	Succeeded int         `json:"succeeded"`
	Failed    int         `json:"failed"`
	Usage     model.Usage `json:"usage"`
}

// Result returns the result for criterion id.
func (o *Outcome) Result(id string) (Result, bool) {
	i := slices.IndexFunc(o.Results, func(r Result) bool { return r.CriterionID == id })
	if i < 0 {
		return Result{}, false
	}
	return o.Results[i], true
}

// TotalTokens is the number of tokens used by successful calls.
func (o *Outcome) TotalTokens() int { return o.Usage.TotalTokens }
