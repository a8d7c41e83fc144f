/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	criteriaTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedback_criteria_total",
			Help: "Total number of criteria evaluated, by outcome and error kind",
		},
		[]string{"outcome", "error_kind"},
	)

	tokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedback_model_tokens_total",
			Help: "Total number of model tokens reported by providers",
		},
		[]string{"model", "direction"},
	)
)

// WriteTextfile writes every registered Prometheus metric to path in the
// node exporter textfile format.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
