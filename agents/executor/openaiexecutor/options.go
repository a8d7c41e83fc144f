/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package openaiexecutor

import (
	"chainguard.dev/reportfeedback/agents/executor/retry"
	"chainguard.dev/reportfeedback/agents/metrics"
)

// Option is a functional option for configuring the executor
type Option func(*Executor) error

// WithRetryConfig sets the same-model retry configuration.
func WithRetryConfig(cfg retry.Config) Option {
	return func(e *Executor) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		e.retryConfig = cfg
		return nil
	}
}

// WithAttributeEnricher sets the enricher for token metrics.
func WithAttributeEnricher(enricher metrics.AttributeEnricher) Option {
	return func(e *Executor) error {
		e.genaiMetrics.SetAttributeEnricher(enricher)
		return nil
	}
}
