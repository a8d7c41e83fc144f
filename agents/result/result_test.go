/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package result

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "bare object", in: `  {"a": 1}  `, want: `{"a": 1}`},
		{name: "json fence with prose", in: "Here you go:\n\n```json\n{\"a\": 1}\n```\nThanks!", want: `{"a": 1}`},
		{name: "indented fence", in: "  ```json\n{\"a\": 1}\n  ```", want: `{"a": 1}`},
		{name: "generic fence", in: "```\n{\"a\": 1}\n```", want: `{"a": 1}`},
		{name: "unterminated fence", in: "```json\n{\"a\": 1}\n", want: `{"a": 1}`},
		{name: "empty fence", in: "```json\n```", want: ""},
		{name: "prose around object", in: "My evaluation: {\"a\": {\"b\": 2}} hope it helps", want: `{"a": {"b": 2}}`},
		{name: "first json fence wins", in: "```json\n{\"a\": 1}\n```\n```json\n{\"a\": 2}\n```", want: `{"a": 1}`},
		{name: "no json", in: "I cannot evaluate this.", want: "I cannot evaluate this."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ExtractJSON(tt.in); got != tt.want {
				t.Errorf("ExtractJSON() = %q, want %q", got, tt.want)
			}
		})
	}
}

type feedback struct {
	Summary   string   `json:"summary"`
	Strengths []string `json:"strengths"`
	Score     *int     `json:"score,omitempty"`
}

func TestExtract(t *testing.T) {
	t.Parallel()

	got, err := Extract[feedback]("```json\n{\"summary\": \"good\", \"strengths\": [\"clear\"]}\n```")
	require.NoError(t, err)
	if diff := cmp.Diff(feedback{Summary: "good", Strengths: []string{"clear"}}, got); diff != "" {
		t.Errorf("Extract() (-want +got):\n%s", diff)
	}

	for _, in := range []string{"no json here", "```json\n```", `{"summary": 3}`} {
		if _, err := Extract[feedback](in); !errors.Is(err, ErrMalformed) {
			t.Errorf("Extract(%q) error = %v, want ErrMalformed", in, err)
		}
	}
}

const testSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "summary": {"type": "string"},
    "strengths": {"type": "array", "items": {"type": "string"}},
    "score": {"type": "integer"}
  },
  "required": ["summary", "strengths"],
  "additionalProperties": false
}`

func TestExtractValid(t *testing.T) {
	t.Parallel()

	v, err := NewValidator([]byte(testSchema))
	require.NoError(t, err)

	tests := []struct {
		name    string
		in      string
		want    feedback
		wantErr bool
	}{{
		name: "valid",
		in:   `{"summary": "ok", "strengths": [], "score": 4}`,
		want: feedback{Summary: "ok", Strengths: []string{}, Score: ptr(4)},
	}, {
		name:    "missing required",
		in:      `{"summary": "ok"}`,
		wantErr: true,
	}, {
		name:    "wrong type",
		in:      `{"summary": "ok", "strengths": "many"}`,
		wantErr: true,
	}, {
		name:    "non-integer score",
		in:      `{"summary": "ok", "strengths": [], "score": 4.5}`,
		wantErr: true,
	}, {
		name:    "extra property",
		in:      `{"summary": "ok", "strengths": [], "grade": "A"}`,
		wantErr: true,
	}, {
		name:    "not json",
		in:      `Sorry, I can't help.`,
		wantErr: true,
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ExtractValid[feedback](v, tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformed) {
					t.Fatalf("ExtractValid() error = %v, want ErrMalformed", err)
				}
				return
			}
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ExtractValid() (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNewValidatorInvalidSchema(t *testing.T) {
	t.Parallel()

	if _, err := NewValidator([]byte(`{"type": 12}`)); err == nil {
		t.Error("NewValidator() = nil error for invalid schema")
	}
	if _, err := NewValidator([]byte(`not json`)); err == nil {
		t.Error("NewValidator() = nil error for non-JSON schema")
	}
}

func ptr[T any](v T) *T { return &v }
