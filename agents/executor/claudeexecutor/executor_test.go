/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package claudeexecutor

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"chainguard.dev/reportfeedback/agents/model"
)

const messageBody = `{
  "id": "msg_1",
  "type": "message",
  "role": "assistant",
  "model": "claude-sonnet-4",
  "content": [{"type": "text", "text": "{\"summary\":"}, {"type": "text", "text": "\"ok\"}"}],
  "stop_reason": "end_turn",
  "usage": {"input_tokens": 90, "output_tokens": 40}
}`

func newTestExecutor(t *testing.T, handler http.HandlerFunc) *Executor {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := anthropic.NewClient(
		option.WithBaseURL(srv.URL),
		option.WithAPIKey("test-key"),
		option.WithMaxRetries(0),
	)
	exec, err := New(client, "claude-sonnet-4")
	require.NoError(t, err)
	return exec
}

func TestComplete(t *testing.T) {
	t.Parallel()

	var body map[string]any
	exec := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("path = %s, want /v1/messages", r.URL.Path)
		}
		data, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(data, &body); err != nil {
			t.Errorf("request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, messageBody)
	})

	resp, err := exec.Complete(context.Background(), model.Request{
		System:      "system text",
		Prompt:      "evaluate this",
		Images:      []model.Image{{Name: "fig.jpg", MediaType: "image/jpeg", Data: "BBBB"}},
		Temperature: 0.3,
	})
	require.NoError(t, err)

	if resp.Text != `{"summary":"ok"}` {
		t.Errorf("Text = %q", resp.Text)
	}
	if diff := cmp.Diff(model.Usage{PromptTokens: 90, CompletionTokens: 40, TotalTokens: 130}, resp.Usage); diff != "" {
		t.Errorf("Usage (-want +got):\n%s", diff)
	}

	if body["max_tokens"] != float64(defaultMaxTokens) {
		t.Errorf("max_tokens = %v, want %d", body["max_tokens"], defaultMaxTokens)
	}
	system, _ := body["system"].([]any)
	require.Len(t, system, 1)
	msgs, _ := body["messages"].([]any)
	require.Len(t, msgs, 1)
	content, _ := msgs[0].(map[string]any)["content"].([]any)
	require.Len(t, content, 2)
	img, _ := content[1].(map[string]any)
	src, _ := img["source"].(map[string]any)
	if img["type"] != "image" || src["media_type"] != "image/jpeg" || src["data"] != "BBBB" {
		t.Errorf("image block = %v", img)
	}
}

func TestCompleteErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
		want   model.Kind
	}{
		{name: "overloaded", status: 529, body: `{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`, want: model.RateLimited},
		{name: "rate limited", status: http.StatusTooManyRequests, body: `{"type":"error","error":{"type":"rate_limit_error","message":"slow"}}`, want: model.RateLimited},
		{name: "too large", status: http.StatusRequestEntityTooLarge, body: `{"type":"error","error":{"type":"request_too_large","message":"big"}}`, want: model.PayloadTooLarge},
		{name: "bad request", status: http.StatusBadRequest, body: `{"type":"error","error":{"type":"invalid_request_error","message":"bad"}}`, want: model.RequestRejected},
		{name: "no text", status: http.StatusOK, body: `{"id":"msg_1","type":"message","role":"assistant","model":"claude-sonnet-4","content":[],"usage":{"input_tokens":1,"output_tokens":0}}`, want: model.MalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			exec := newTestExecutor(t, func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})
			_, err := exec.Complete(context.Background(), model.Request{Prompt: "p"})
			require.Error(t, err)
			if got := model.KindOf(err); got != tt.want {
				t.Errorf("KindOf(%v) = %s, want %s", err, got, tt.want)
			}
		})
	}
}

func TestNewRejectsNonClaudeModel(t *testing.T) {
	t.Parallel()

	if _, err := New(anthropic.NewClient(option.WithAPIKey("k")), "gpt-4o"); err == nil {
		t.Error("New(gpt-4o) = nil error, want error")
	}
}
