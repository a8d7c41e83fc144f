/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package extract

import (
	"math"
	"slices"
	"unicode/utf8"
)

// Config is the immutable extraction configuration.
type Config struct {
	// TokenBudget is used when Extract is called with a budget <= 0.
	TokenBudget int
	// ReserveTokens is held back from every budget as a safety margin.
	ReserveTokens int
	// CharsPerToken drives the default estimator.
	CharsPerToken float64

	Vision VisionConfig
}

// VisionConfig controls image selection.
type VisionConfig struct {
	Enabled bool
	// Criteria lists the criterion ids images are selected for. "*" selects
	// every criterion.
	Criteria []string
	// MaxImages caps the images per criterion.
	MaxImages int
	// ImageTokenBudget caps the combined image cost per criterion.
	ImageTokenBudget int
	// ResizeMaxDimension downscales larger images before encoding. 0 keeps
	// the original size.
	ResizeMaxDimension int
	// Priority ranks images by the first keyword found in their file name or
	// caption. Images matching no keyword rank last.
	Priority []string
}

// DefaultConfig returns the defaults the binary starts from.
func DefaultConfig() Config {
	return Config{
		TokenBudget:   6000,
		CharsPerToken: 4,
		Vision: VisionConfig{
			MaxImages:        3,
			ImageTokenBudget: 2000,
		},
	}
}

// EnabledFor reports whether images are selected for the criterion.
func (v VisionConfig) EnabledFor(id string) bool {
	return v.Enabled && (slices.Contains(v.Criteria, "*") || slices.Contains(v.Criteria, id))
}

// Estimator estimates the token cost of a text. It must be monotonic in the
// length of its input.
type Estimator func(string) int

// CharEstimator estimates one token per charsPerToken characters, rounded
// up. A non-positive ratio falls back to 4.
func CharEstimator(charsPerToken float64) Estimator {
	if charsPerToken <= 0 {
		charsPerToken = 4
	}
	return func(s string) int {
		return int(math.Ceil(float64(utf8.RuneCountInString(s)) / charsPerToken))
	}
}
