/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package metrics

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// AttributeEnricher returns the attributes to record, given the base
// attributes of a measurement. It is how run-level context such as the
// repository and release tag reaches the counters.
type AttributeEnricher func(ctx context.Context, baseAttrs []attribute.KeyValue) []attribute.KeyValue

// GenAI provides OpenTelemetry metrics for model calls: prompt and completion
// token usage, and the outcome of each criterion evaluation. Counters that
// fail to initialize are replaced by no-op counters.
type GenAI struct {
	promptTokens     metric.Int64Counter
	completionTokens metric.Int64Counter
	evaluations      metric.Int64Counter
	attrEnricher     AttributeEnricher
}

// NewGenAI creates the counters on the meter named meterName. The meter is
// shared by every model client; the model name is recorded as an attribute.
func NewGenAI(meterName string) *GenAI {
	meter := otel.Meter(meterName, metric.WithInstrumentationVersion("1.0.0"))
	return &GenAI{
		promptTokens: counter(meter, meterName, "genai.token.prompt",
			"The number of prompt tokens used", "{tokens}"),
		completionTokens: counter(meter, meterName, "genai.token.completion",
			"The number of completion tokens used", "{tokens}"),
		evaluations: counter(meter, meterName, "feedback.criterion.evaluations",
			"The number of criterion evaluations by outcome", "{evaluations}"),
	}
}

func counter(meter metric.Meter, meterName, name, desc, unit string) metric.Int64Counter {
	c, err := meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	if err != nil {
		slog.Warn("Failed to create counter, metric will be disabled", "error", err, "meter", meterName, "counter", name)
		return noop.Int64Counter{}
	}
	return c
}

// SetAttributeEnricher sets the enricher called before recording each metric.
func (m *GenAI) SetAttributeEnricher(enricher AttributeEnricher) {
	m.attrEnricher = enricher
}

func (m *GenAI) attributes(ctx context.Context, base []attribute.KeyValue, extra []attribute.KeyValue) metric.MeasurementOption {
	if m.attrEnricher != nil {
		base = m.attrEnricher(ctx, base)
	}
	return metric.WithAttributes(append(base, extra...)...)
}

// RecordTokens records the token usage of one call to model.
func (m *GenAI) RecordTokens(ctx context.Context, model string, promptTokens, completionTokens int64, attrs ...attribute.KeyValue) {
	opt := m.attributes(ctx, []attribute.KeyValue{attribute.String("model", model)}, attrs)
	m.promptTokens.Add(ctx, promptTokens, opt)
	m.completionTokens.Add(ctx, completionTokens, opt)
	tokensTotal.WithLabelValues(model, "prompt").Add(float64(promptTokens))
	tokensTotal.WithLabelValues(model, "completion").Add(float64(completionTokens))
}

// RecordEvaluation records the outcome of one criterion evaluation. kind is
// empty for successes.
func (m *GenAI) RecordEvaluation(ctx context.Context, model, outcome, kind string, attrs ...attribute.KeyValue) {
	opt := m.attributes(ctx, []attribute.KeyValue{
		attribute.String("model", model),
		attribute.String("outcome", outcome),
		attribute.String("error_kind", kind),
	}, attrs)
	m.evaluations.Add(ctx, 1, opt)
	criteriaTotal.WithLabelValues(outcome, kind).Inc()
}
