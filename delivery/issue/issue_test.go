/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package issue_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-github/v84/github"
	"github.com/stretchr/testify/require"

	"chainguard.dev/reportfeedback/delivery/issue"
)

func TestPost(t *testing.T) {
	t.Parallel()

	var got github.IssueRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/repos/class/lab1/issues" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"number": 7, "html_url": "https://github.com/class/lab1/issues/7"}`))
	}))
	t.Cleanup(srv.Close)

	client := issue.NewTokenClient(context.Background(), "token")
	base, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	client.BaseURL = base

	p, err := issue.New(client, "class/lab1", issue.WithLabel("feedback"))
	require.NoError(t, err)
	created, err := p.Post(context.Background(), "📋 Feedback: v1 (2026-03-04)", "body")
	require.NoError(t, err)

	if diff := cmp.Diff(&issue.Issue{Number: 7, URL: "https://github.com/class/lab1/issues/7"}, created); diff != "" {
		t.Errorf("Post() (-want, +got):\n%s", diff)
	}
	if got.GetTitle() != "📋 Feedback: v1 (2026-03-04)" || got.GetBody() != "body" {
		t.Errorf("request = %q, %q", got.GetTitle(), got.GetBody())
	}
	if diff := cmp.Diff([]string{"feedback"}, got.GetLabels()); diff != "" {
		t.Errorf("labels (-want, +got):\n%s", diff)
	}
}

func TestPostError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"message": "Bad credentials"}`, http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	client := github.NewClient(nil)
	base, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	client.BaseURL = base

	p, err := issue.New(client, "class/lab1")
	require.NoError(t, err)
	if _, err := p.Post(context.Background(), "t", "b"); err == nil {
		t.Error("Post() = nil error, want 401 failure")
	}
}

func TestPreview(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	created, err := issue.NewPreview(&buf).Post(context.Background(), "Title", "Body text")
	require.NoError(t, err)
	if created != nil {
		t.Errorf("Post() = %+v, want nil", created)
	}
	for _, want := range []string{"LOCAL TEST", "# Title", "Body text", "END PREVIEW"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("preview is missing %q", want)
		}
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	for _, repo := range []string{"", "noslash", "/repo", "owner/", "a/b/c"} {
		if _, err := issue.New(github.NewClient(nil), repo); err == nil {
			t.Errorf("New(%q) = nil error", repo)
		}
	}
	if _, err := issue.New(nil, "a/b"); err == nil {
		t.Error("New(nil client) = nil error")
	}
	if _, err := issue.NewAppClient(1, 2, "/does/not/exist.pem"); err == nil {
		t.Error("NewAppClient() with a missing key = nil error")
	}
}
