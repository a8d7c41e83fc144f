/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package agenttrace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"

	"chainguard.dev/reportfeedback/agents/model"
)

const instrumentation = "chainguard.dev/reportfeedback/agents/agenttrace"

// Subject identifies the criterion a trace is about.
type Subject struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	// Index is the criterion's position in the rubric, starting at 1.
	Index int `json:"index"`
}

// Call is one model call within a trace.
type Call struct {
	Model     string          `json:"model"`
	Response  *model.Response `json:"response,omitempty"`
	Error     error           `json:"-"`
	ErrorKind model.Kind      `json:"error_kind,omitempty"`
	StartTime time.Time       `json:"start_time"`
	EndTime   time.Time       `json:"end_time"`
	trace     traceSink
	mu        sync.Mutex
	span      oteltrace.Span
}

// traceSink lets a Call add itself to its generic parent.
type traceSink interface {
	addCall(*Call)
}

// Trace is one criterion evaluation.
type Trace[T any] struct {
	ID          string           `json:"id"`
	Criterion   Subject          `json:"criterion"`
	ExecContext ExecutionContext `json:"exec_context"`
	// Evidence is the assembled context text and Prompt the full prompt.
	Evidence string         `json:"evidence"`
	Prompt   string         `json:"prompt"`
	Request  *model.Request `json:"request,omitempty"`
	Calls    []*Call        `json:"calls"`
	Result   T              `json:"result"`
	Error    error          `json:"-"`
	// States is the sequence of evaluation states the criterion went
	// through.
	States    []string       `json:"states"`
	StartTime time.Time      `json:"start_time"`
	EndTime   time.Time      `json:"end_time"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	tracer    Tracer[T]
	mu        sync.Mutex
	ctx       context.Context
	span      oteltrace.Span
}

func newTrace[T any](ctx context.Context, tracer Tracer[T], subject Subject) *Trace[T] {
	execCtx := GetExecutionContext(ctx)
	attrs := []attribute.KeyValue{
		attribute.String("criterion.id", subject.ID),
		attribute.Int("criterion.index", subject.Index),
	}
	if execCtx.RunID != "" {
		attrs = append(attrs, attribute.String("run_id", execCtx.RunID))
	}
	ctx, span := otel.Tracer(instrumentation, oteltrace.WithInstrumentationVersion("1.0.0")).
		Start(ctx, "criterion.evaluate", oteltrace.WithAttributes(execCtx.EnrichAttributes(attrs)...))

	return &Trace[T]{
		ID:          generateTraceID(),
		Criterion:   subject,
		ExecContext: execCtx,
		Calls:       []*Call{},
		StartTime:   time.Now(),
		Metadata:    make(map[string]any),
		tracer:      tracer,
		ctx:         ctx,
		span:        span,
	}
}

// Context returns ctx carrying the trace's span.
func (t *Trace[T]) Context() context.Context {
	if t.ctx == nil {
		return context.Background()
	}
	return t.ctx
}

// SetPrompt records the evidence and the prompt built from it.
func (t *Trace[T]) SetPrompt(evidence, prompt string, req *model.Request) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Evidence = evidence
	t.Prompt = prompt
	t.Request = req
	if t.span != nil {
		t.span.SetAttributes(attribute.Int("prompt.length", len(prompt)))
	}
}

// Transition appends state to the state trail.
func (t *Trace[T]) Transition(state string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.States = append(t.States, state)
	if t.span != nil {
		t.span.AddEvent(state)
	}
}

// SetMetadata records a key/value pair on the trace.
func (t *Trace[T]) SetMetadata(key string, value any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Metadata[key] = value
}

// StartCall starts a model call. It is added to the trace when completed.
func (t *Trace[T]) StartCall(modelName string) *Call {
	_, span := otel.Tracer(instrumentation, oteltrace.WithInstrumentationVersion("1.0.0")).
		Start(t.Context(), "criterion.model_call", oteltrace.WithAttributes(attribute.String("model", modelName)))
	return &Call{
		Model:     modelName,
		StartTime: time.Now(),
		trace:     t,
		span:      span,
	}
}

func (t *Trace[T]) addCall(c *Call) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Calls = append(t.Calls, c)
}

// Complete marks the call as complete and adds it to the parent trace.
func (c *Call) Complete(resp *model.Response, err error) {
	c.mu.Lock()
	c.Response = resp
	c.Error = err
	if err != nil {
		c.ErrorKind = model.KindOf(err)
	}
	c.EndTime = time.Now()
	span := c.span
	c.mu.Unlock()

	if span != nil {
		if resp != nil {
			span.SetAttributes(
				attribute.Int("tokens.input", resp.Usage.PromptTokens),
				attribute.Int("tokens.output", resp.Usage.CompletionTokens),
				attribute.Int("tokens.total", resp.Usage.TotalTokens),
			)
		}
		endSpan(span, err)
	}
	c.trace.addCall(c)
}

// Duration returns the duration of the call
func (c *Call) Duration() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return elapsed(c.StartTime, c.EndTime)
}

// Complete marks the trace as complete and records it with its tracer.
func (t *Trace[T]) Complete(result T, err error) {
	t.mu.Lock()
	t.Result = result
	t.Error = err
	t.EndTime = time.Now()
	tracer := t.tracer
	span := t.span
	t.mu.Unlock()

	if span != nil {
		endSpan(span, err)
	}
	tracer.RecordTrace(t)
}

// Usage sums the token usage of every completed call.
func (t *Trace[T]) Usage() model.Usage {
	t.mu.Lock()
	defer t.mu.Unlock()
	var u model.Usage
	for _, c := range t.Calls {
		if c.Response != nil {
			u.PromptTokens += c.Response.Usage.PromptTokens
			u.CompletionTokens += c.Response.Usage.CompletionTokens
			u.TotalTokens += c.Response.Usage.TotalTokens
		}
	}
	return u
}

// Duration returns the total duration of the trace
func (t *Trace[T]) Duration() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return elapsed(t.StartTime, t.EndTime)
}

// String returns a structured representation of the trace
func (t *Trace[T]) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var sb strings.Builder
	fmt.Fprintf(&sb, "=== Trace %s ===\n", t.ID)
	fmt.Fprintf(&sb, "Criterion: %s (#%d)\n", t.Criterion.ID, t.Criterion.Index)
	fmt.Fprintf(&sb, "Prompt: %d chars\n", len(t.Prompt))
	fmt.Fprintf(&sb, "Duration: %v\n", elapsed(t.StartTime, t.EndTime))
	if len(t.States) > 0 {
		fmt.Fprintf(&sb, "States: %s\n", strings.Join(t.States, " -> "))
	}

	if len(t.Calls) > 0 {
		fmt.Fprintf(&sb, "\nModel Calls (%d):\n", len(t.Calls))
		for i, c := range t.Calls {
			fmt.Fprintf(&sb, "  [%d] %s in %v\n", i+1, c.Model, elapsed(c.StartTime, c.EndTime))
			switch {
			case c.Error != nil:
				fmt.Fprintf(&sb, "      Error: %v\n", c.Error)
			case c.Response != nil:
				fmt.Fprintf(&sb, "      Tokens: %d prompt, %d completion\n", c.Response.Usage.PromptTokens, c.Response.Usage.CompletionTokens)
			}
		}
	} else {
		sb.WriteString("\nNo model calls\n")
	}

	sb.WriteString("\nCompletion:\n")
	switch {
	case t.Error != nil:
		fmt.Fprintf(&sb, "  Error: %v\n", t.Error)
	case any(t.Result) != nil:
		resultStr := fmt.Sprintf("%v", t.Result)
		if len(resultStr) > 500 {
			resultStr = resultStr[:497] + "..."
		}
		fmt.Fprintf(&sb, "  Result: %s\n", resultStr)
	default:
		sb.WriteString("  Result: <nil>\n")
	}

	if len(t.Metadata) > 0 {
		sb.WriteString("\nMetadata:\n")
		for k, v := range t.Metadata {
			fmt.Fprintf(&sb, "  %s: %v\n", k, v)
		}
	}
	return sb.String()
}

func endSpan(span oteltrace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

func elapsed(start, end time.Time) time.Duration {
	if end.IsZero() {
		return time.Since(start)
	}
	return end.Sub(start)
}

// generateTraceID returns an id of the form YYYYMMDD-HHMMSS-RRRRRRRR.
func generateTraceID() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return time.Now().Format("20060102-150405.000000")
	}
	return fmt.Sprintf("%s-%s", time.Now().Format("20060102-150405"), hex.EncodeToString(b))
}
