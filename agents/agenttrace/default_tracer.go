/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package agenttrace

import (
	"context"

	"github.com/chainguard-dev/clog"
)

// NewDefaultTracer creates a new default tracer that logs to clog
func NewDefaultTracer[T any](ctx context.Context) Tracer[T] {
	logger := clog.FromContext(ctx)
	return ByCode(func(trace *Trace[T]) {
		logger.With(
			"trace_id", trace.ID,
			"criterion", trace.Criterion.ID,
			"duration_ms", trace.Duration().Milliseconds(),
			"calls", len(trace.Calls),
		).Info("Criterion trace completed", "trace", trace.String())
	})
}
