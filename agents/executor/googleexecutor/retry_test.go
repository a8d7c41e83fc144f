/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package googleexecutor

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"google.golang.org/genai"

	"chainguard.dev/reportfeedback/agents/model"
)

func TestClassifyVertexError(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		want model.Kind
	}{
		{name: "api error 429", err: genai.APIError{Code: 429, Message: "slow"}, want: model.RateLimited},
		{name: "wrapped api error 413", err: fmt.Errorf("call: %w", genai.APIError{Code: 413}), want: model.PayloadTooLarge},
		{name: "api error 403", err: genai.APIError{Code: 403, Message: "denied"}, want: model.RequestRejected},
		{name: "api error 500", err: genai.APIError{Code: 500}, want: model.NetworkError},
		{name: "429 status", err: errors.New("rpc error: code = ResourceExhausted desc = 429"), want: model.RateLimited},
		{name: "RESOURCE_EXHAUSTED", err: errors.New("googleapi: RESOURCE_EXHAUSTED"), want: model.RateLimited},
		{name: "Resource exhausted", err: errors.New("Resource exhausted: too many requests"), want: model.RateLimited},
		{name: "rate limit", err: errors.New("rate limit exceeded"), want: model.RateLimited},
		{name: "Overloaded", err: errors.New("model Overloaded, try again"), want: model.RateLimited},
		{name: "503 status", err: errors.New("503 Service Unavailable"), want: model.RateLimited},
		{name: "quota exceeded", err: errors.New("quota exceeded for project"), want: model.RateLimited},
		{name: "Internal error", err: errors.New("Internal error occurred"), want: model.NetworkError},
		{name: "server error", err: errors.New("server error: please retry"), want: model.NetworkError},
		{name: "deadline", err: fmt.Errorf("post: %w", context.DeadlineExceeded), want: model.NetworkError},
		{name: "canceled", err: context.Canceled, want: model.RequestRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := classifyVertexError(tt.err); got != tt.want {
				t.Errorf("classifyVertexError(%v) = %s, want %s", tt.err, got, tt.want)
			}
		})
	}
}
