/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package evaluate

import (
	"encoding/json"
	"errors"
	"fmt"

	"chainguard.dev/reportfeedback/agents/model"
	"chainguard.dev/reportfeedback/agents/result"
	"chainguard.dev/reportfeedback/agents/schema"
	"chainguard.dev/reportfeedback/grading/rubric"
)

// Feedback is the structured feedback a model returns for one criterion.
type Feedback struct {
	Summary             string        `json:"summary"`
	Strengths           []string      `json:"strengths"`
	AreasForImprovement []Improvement `json:"areas_for_improvement"`
	OverallAssessment   string        `json:"overall_assessment"`
	// Score is only requested when scoring is enabled.
	Score *int `json:"score,omitempty"`
}

// Improvement is one issue and a suggestion for fixing it.
type Improvement struct {
	Issue      string `json:"issue"`
	Suggestion string `json:"suggestion"`
}

// feedbackPayload is the schema source for Feedback without a score.
type feedbackPayload struct {
	Summary             string               `json:"summary" jsonschema:"required" jsonschema_description:"A concise, one-paragraph summary of the student's performance on this criterion."`
	Strengths           []string             `json:"strengths" jsonschema:"required" jsonschema_description:"Specific strengths observed in the report for this criterion."`
	AreasForImprovement []improvementPayload `json:"areas_for_improvement" jsonschema:"required" jsonschema_description:"Specific weaknesses, each with an actionable suggestion."`
	OverallAssessment   string               `json:"overall_assessment" jsonschema:"required" jsonschema_description:"The rubric level name that best describes the work."`
}

type improvementPayload struct {
	Issue      string `json:"issue" jsonschema:"required" jsonschema_description:"A specific weakness or area for improvement."`
	Suggestion string `json:"suggestion" jsonschema:"required" jsonschema_description:"A concrete, actionable suggestion to address the issue."`
}

type scoredPayload struct {
	feedbackPayload
	Score int `json:"score" jsonschema:"required,minimum=0" jsonschema_description:"An integer score within the point range of the chosen rubric level."`
}

// feedbackSchema is the JSON Schema document and compiled validator of one
// payload shape.
type feedbackSchema struct {
	doc       json.RawMessage
	validator *result.Validator
}

func newFeedbackSchema[T any]() (*feedbackSchema, error) {
	b, err := schema.JSONFor[T]()
	if err != nil {
		return nil, err
	}
	v, err := result.NewValidator(b)
	if err != nil {
		return nil, err
	}
	return &feedbackSchema{doc: b, validator: v}, nil
}

// parseFeedback extracts, validates and decodes the model's reply. When
// scored, the score must also lie within the criterion's point range.
func parseFeedback(s *feedbackSchema, text string, c rubric.Criterion, scored bool) (Feedback, error) {
	fb, err := result.ExtractValid[Feedback](s.validator, text)
	if err != nil {
		return Feedback{}, model.Errorf(model.MalformedResponse, "%w", err)
	}
	if scored {
		if fb.Score == nil {
			return Feedback{}, model.Errorf(model.MalformedResponse, "missing score")
		}
		if top := maxPoints(c); top > 0 && float64(*fb.Score) > top {
			return Feedback{}, model.Errorf(model.MalformedResponse, "score %d exceeds the maximum of %g", *fb.Score, top)
		}
	} else {
		fb.Score = nil
	}
	return fb, nil
}

// maxPoints is the highest upper bound among the levels, or the weight when
// the criterion has no levels.
func maxPoints(c rubric.Criterion) float64 {
	top := 0.0
	for _, l := range c.Levels {
		top = max(top, l.Upper)
	}
	if top == 0 {
		return c.Weight
	}
	return top
}

// kindOf classifies an evaluation error. Schema and decoding failures from
// the result package are malformed responses.
func kindOf(err error) model.Kind {
	var me *model.Error
	if !errors.As(err, &me) && errors.Is(err, result.ErrMalformed) {
		return model.MalformedResponse
	}
	return model.KindOf(err)
}

func mustSchema(s *feedbackSchema, err error) *feedbackSchema {
	if err != nil {
		panic(fmt.Sprintf("feedback schema: %v", err))
	}
	return s
}
