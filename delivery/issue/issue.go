/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package issue posts rendered feedback as a GitHub issue.
package issue

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/chainguard-dev/clog"
	"github.com/google/go-github/v84/github"
	"golang.org/x/oauth2"
)

// DefaultLabel is applied to every feedback issue.
const DefaultLabel = "ai-feedback"

// NewTokenClient returns a GitHub client authenticated with a token, such as
// the workflow's GITHUB_TOKEN.
func NewTokenClient(ctx context.Context, token string) *github.Client {
	return github.NewClient(oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})))
}

// NewAppClient returns a GitHub client authenticated as a GitHub App
// installation, using the app's private key file.
func NewAppClient(appID, installationID int64, keyFile string) (*github.Client, error) {
	tr, err := ghinstallation.NewKeyFromFile(http.DefaultTransport, appID, installationID, keyFile)
	if err != nil {
		return nil, fmt.Errorf("loading app key: %w", err)
	}
	return github.NewClient(&http.Client{Transport: tr}), nil
}

// Issue is a created issue.
type Issue struct {
	Number int
	URL    string
}

// Poster creates feedback issues in one repository, or prints them when
// previewing.
type Poster struct {
	client      *github.Client
	owner, repo string
	label       string
	preview     io.Writer
}

// Option configures a Poster.
type Option func(*Poster)

// WithLabel replaces DefaultLabel.
func WithLabel(label string) Option {
	return func(p *Poster) { p.label = label }
}

// New returns a Poster for repository, given as "owner/name".
func New(client *github.Client, repository string, opts ...Option) (*Poster, error) {
	owner, repo, ok := strings.Cut(repository, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return nil, fmt.Errorf("repository %q is not of the form owner/name", repository)
	}
	if client == nil {
		return nil, errors.New("github client is required")
	}
	p := &Poster{client: client, owner: owner, repo: repo, label: DefaultLabel}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// NewPreview returns a Poster that writes issues to w instead of posting
// them.
func NewPreview(w io.Writer) *Poster {
	return &Poster{preview: w, label: DefaultLabel}
}

// Post creates the issue. A preview Poster returns a nil Issue.
func (p *Poster) Post(ctx context.Context, title, body string) (*Issue, error) {
	log := clog.FromContext(ctx)
	if p.preview != nil {
		if _, err := fmt.Fprintf(p.preview, "--- LOCAL TEST: ISSUE BODY PREVIEW ---\n# %s\n\n%s\n--- END PREVIEW ---\n", title, body); err != nil {
			return nil, fmt.Errorf("writing preview: %w", err)
		}
		return nil, nil
	}

	log.With("repository", p.owner+"/"+p.repo).Info("Creating feedback issue")
	issue, _, err := p.client.Issues.Create(ctx, p.owner, p.repo, &github.IssueRequest{
		Title:  github.Ptr(title),
		Body:   github.Ptr(body),
		Labels: &[]string{p.label},
	})
	if err != nil {
		return nil, fmt.Errorf("create issue: %w", err)
	}
	out := &Issue{Number: issue.GetNumber(), URL: issue.GetHTMLURL()}
	log.With("issue", out.Number, "url", out.URL).Info("Feedback issue created")
	return out, nil
}
