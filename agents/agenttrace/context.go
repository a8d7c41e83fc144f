/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package agenttrace

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
)

// ExecutionContext provides run-level context for criterion evaluations.
type ExecutionContext struct {
	RunID      string `json:"run_id,omitempty"`     // unique per invocation
	Tag        string `json:"tag,omitempty"`        // release tag the report was submitted under
	Repository string `json:"repository,omitempty"` // owner/repo of the student repository
}

// EnrichAttributes adds the bounded execution context attributes to
// baseAttrs. The run id is left out of metrics because every run would
// create a new time series; it remains on spans.
func (e ExecutionContext) EnrichAttributes(baseAttrs []attribute.KeyValue) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, len(baseAttrs), len(baseAttrs)+2)
	copy(attrs, baseAttrs)
	if e.Repository != "" {
		attrs = append(attrs, attribute.String("repository", e.Repository))
	}
	if e.Tag != "" {
		attrs = append(attrs, attribute.String("tag", e.Tag))
	}
	return attrs
}

// Enrich is a metrics attribute enricher reading the execution context from
// ctx.
func Enrich(ctx context.Context, baseAttrs []attribute.KeyValue) []attribute.KeyValue {
	return GetExecutionContext(ctx).EnrichAttributes(baseAttrs)
}

type contextKey string

const executionContextKey contextKey = "execution_context"

// WithExecutionContext adds execution context to the Go context
func WithExecutionContext(ctx context.Context, execCtx ExecutionContext) context.Context {
	return context.WithValue(ctx, executionContextKey, execCtx)
}

// GetExecutionContext retrieves execution context from the Go context
func GetExecutionContext(ctx context.Context) ExecutionContext {
	if execCtx, ok := ctx.Value(executionContextKey).(ExecutionContext); ok {
		return execCtx
	}
	return ExecutionContext{}
}
