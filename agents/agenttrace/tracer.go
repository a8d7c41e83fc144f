/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package agenttrace

import (
	"context"

	"golang.org/x/sync/errgroup"
)

type tracerKey[T any] struct{}

// Tracer creates traces and receives them once completed.
type Tracer[T any] interface {
	// NewTrace starts a trace for the criterion described by subject.
	NewTrace(ctx context.Context, subject Subject) *Trace[T]
	// RecordTrace is called once per trace, by Trace.Complete.
	RecordTrace(trace *Trace[T])
}

// WithTracer returns a new context with the given tracer
func WithTracer[T any](ctx context.Context, tracer Tracer[T]) context.Context {
	return context.WithValue(ctx, tracerKey[T]{}, tracer)
}

// TracerFromContext returns the tracer from the context, or the default
// logging tracer.
func TracerFromContext[T any](ctx context.Context) Tracer[T] {
	if tracer, ok := ctx.Value(tracerKey[T]{}).(Tracer[T]); ok {
		return tracer
	}
	return NewDefaultTracer[T](ctx)
}

// StartTrace starts a new trace using the tracer from the context
func StartTrace[T any](ctx context.Context, subject Subject) *Trace[T] {
	return TracerFromContext[T](ctx).NewTrace(ctx, subject)
}

// TraceCallback is a function that receives completed traces
type TraceCallback[T any] func(*Trace[T])

type byCodeTracer[T any] struct {
	callbacks []TraceCallback[T]
}

// ByCode returns a Tracer that invokes callbacks, in parallel, with every
// completed trace.
func ByCode[T any](callbacks ...TraceCallback[T]) Tracer[T] {
	return &byCodeTracer[T]{callbacks: callbacks}
}

func (t *byCodeTracer[T]) NewTrace(ctx context.Context, subject Subject) *Trace[T] {
	return newTrace(ctx, t, subject)
}

func (t *byCodeTracer[T]) RecordTrace(trace *Trace[T]) {
	var g errgroup.Group
	for _, callback := range t.callbacks {
		if callback != nil {
			g.Go(func() error {
				callback(trace)
				return nil
			})
		}
	}
	_ = g.Wait()
}

// Multi returns a Tracer that records every trace with each of tracers.
func Multi[T any](tracers ...Tracer[T]) Tracer[T] {
	callbacks := make([]TraceCallback[T], 0, len(tracers))
	for _, tr := range tracers {
		callbacks = append(callbacks, tr.RecordTrace)
	}
	return ByCode(callbacks...)
}
