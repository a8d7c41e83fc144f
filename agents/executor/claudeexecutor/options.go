/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package claudeexecutor

import (
	"chainguard.dev/reportfeedback/agents/executor/retry"
	"chainguard.dev/reportfeedback/agents/metrics"
)

// Option configures an Executor. An option returning an error fails New.
type Option func(*Executor) error

// WithAttributeEnricher adds run attributes, such as the repository and
// tag, to the token counters.
func WithAttributeEnricher(enricher metrics.AttributeEnricher) Option {
	return func(e *Executor) error {
		e.genaiMetrics.SetAttributeEnricher(enricher)
		return nil
	}
}

// WithRetryConfig sets how often a 429 or 529 from the Messages API is
// retried on the same model before the error is returned.
func WithRetryConfig(cfg retry.Config) Option {
	return func(e *Executor) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		e.retryConfig = cfg
		return nil
	}
}
