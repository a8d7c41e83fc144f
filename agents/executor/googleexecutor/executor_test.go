/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package googleexecutor

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"chainguard.dev/reportfeedback/agents/model"
)

func newTestExecutor(t *testing.T, handler http.HandlerFunc) *Executor {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:      "test-key",
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  srv.Client(),
		HTTPOptions: genai.HTTPOptions{BaseURL: srv.URL + "/"},
	})
	require.NoError(t, err)
	exec, err := New(client, "gemini-2.5-flash")
	require.NoError(t, err)
	return exec
}

func TestComplete(t *testing.T) {
	t.Parallel()

	var body map[string]any
	exec := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/models/gemini-2.5-flash:generateContent") {
			t.Errorf("path = %s", r.URL.Path)
		}
		data, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(data, &body); err != nil {
			t.Errorf("request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
  "candidates": [{"content": {"role": "model", "parts": [{"text": "{\"summary\":\"ok\"}"}]}, "finishReason": "STOP"}],
  "usageMetadata": {"promptTokenCount": 50, "candidatesTokenCount": 20, "totalTokenCount": 70}
}`)
	})

	resp, err := exec.Complete(context.Background(), model.Request{
		System:      "system text",
		Prompt:      "evaluate this",
		Images:      []model.Image{{Name: "fig.png", MediaType: "image/png", Data: "iVBORw=="}},
		Temperature: 0.3,
		MaxTokens:   2000,
		JSON:        true,
	})
	require.NoError(t, err)

	if resp.Text != `{"summary":"ok"}` {
		t.Errorf("Text = %q", resp.Text)
	}
	if diff := cmp.Diff(model.Usage{PromptTokens: 50, CompletionTokens: 20, TotalTokens: 70}, resp.Usage); diff != "" {
		t.Errorf("Usage (-want +got):\n%s", diff)
	}

	cfg, _ := body["generationConfig"].(map[string]any)
	if cfg["responseMimeType"] != "application/json" || cfg["maxOutputTokens"] != float64(2000) {
		t.Errorf("generationConfig = %v", cfg)
	}
	if _, ok := body["systemInstruction"]; !ok {
		t.Error("systemInstruction missing")
	}
	contents, _ := body["contents"].([]any)
	require.Len(t, contents, 1)
	parts, _ := contents[0].(map[string]any)["parts"].([]any)
	require.Len(t, parts, 2)
}

func TestCompleteErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
		want   model.Kind
	}{
		{name: "quota", status: http.StatusTooManyRequests, body: `{"error":{"code":429,"message":"Resource exhausted","status":"RESOURCE_EXHAUSTED"}}`, want: model.RateLimited},
		{name: "permission", status: http.StatusForbidden, body: `{"error":{"code":403,"message":"denied","status":"PERMISSION_DENIED"}}`, want: model.RequestRejected},
		{name: "empty", status: http.StatusOK, body: `{"candidates":[]}`, want: model.MalformedResponse},
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

func TestCompleteRejectsBadImage(t *testing.T) {
	t.Parallel()

	exec := newTestExecutor(t, func(http.ResponseWriter, *http.Request) {
		t.Error("no request expected")
	})
	_, err := exec.Complete(context.Background(), model.Request{
		Prompt: "p",
		Images: []model.Image{{Name: "x.png", MediaType: "image/png", Data: "not base64!"}},
	})
	if got := model.KindOf(err); got != model.RequestRejected {
		t.Errorf("KindOf(%v) = %s, want %s", err, got, model.RequestRejected)
	}
}
