/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package evaluate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chainguard.dev/reportfeedback/agents/model"
)

// Chain is an ordered list of models. Each is tried once, and the next one
// only after a retryable failure.
type Chain []model.Client

// Attempt is one call made by Chain.Complete.
type Attempt struct {
	// Index is the position of the client in the chain.
	Index    int
	Model    string
	Response *model.Response
	Err      error
}

// Hooks observe the calls a Chain makes. Either may be nil.
type Hooks struct {
	// Before is called before each call.
	Before func(index int, modelName string)
	// After is called with the outcome of each call.
	After func(Attempt)
	// Accept validates a successful response. An error it returns is treated
	// as the call's error.
	Accept func(*model.Response) error
}

// Models returns the model names in order.
func (c Chain) Models() []string {
	out := make([]string, len(c))
	for i, m := range c {
		out[i] = m.Model()
	}
	return out
}

// Complete sends req to each model in turn until one succeeds or fails
// with a non-retryable error. Each call gets its own timeout when timeout
// > 0; a call that times out is a retryable network error. The returned
// attempt is the last one made.
func (c Chain) Complete(ctx context.Context, req model.Request, timeout time.Duration, hooks Hooks) (Attempt, error) {
	if len(c) == 0 {
		return Attempt{}, errors.New("no models configured")
	}
	var last Attempt
	for i, client := range c {
		if hooks.Before != nil {
			hooks.Before(i, client.Model())
		}
		last = Attempt{Index: i, Model: client.Model()}
		last.Response, last.Err = call(ctx, client, req, timeout)
		if last.Err == nil && hooks.Accept != nil {
			last.Err = hooks.Accept(last.Response)
		}
		if hooks.After != nil {
			hooks.After(last)
		}
		if last.Err == nil {
			return last, nil
		}
		// The run itself was canceled; another model will not help.
		if ctx.Err() != nil || !kindOf(last.Err).Retryable() {
			break
		}
	}
	return last, last.Err
}

func call(ctx context.Context, client model.Client, req model.Request, timeout time.Duration) (*model.Response, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	resp, err := client.Complete(ctx, req)
	switch {
	case err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded):
		return nil, &model.Error{Kind: model.NetworkError, Model: client.Model(), Err: fmt.Errorf("timed out after %v: %w", timeout, err)}
	case err != nil:
		return nil, err
	case resp == nil:
		return nil, &model.Error{Kind: model.MalformedResponse, Model: client.Model(), Err: errors.New("empty response")}
	}
	return resp, nil
}
