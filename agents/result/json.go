/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package result

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformed is wrapped by every extraction, validation and decoding
// failure.
var ErrMalformed = errors.New("malformed model response")

// ExtractJSON returns the JSON content of a model response. It prefers the
// first ```json fenced block, then a bare ``` fence wrapping the whole
// response, then the span from the first '{' to the last '}'. Otherwise the
// trimmed response is returned unchanged.
func ExtractJSON(responseText string) string {
	var (
		block   []string
		inBlock bool
	)
	for line := range strings.Lines(responseText) {
		trimmed := strings.TrimSpace(line)
		switch {
		case !inBlock && trimmed == "```json":
			inBlock = true
		case inBlock && trimmed == "```":
			return strings.TrimSpace(strings.Join(block, ""))
		case inBlock:
			block = append(block, line)
		}
	}
	if inBlock {
		return strings.TrimSpace(strings.Join(block, ""))
	}

	text := strings.TrimSpace(responseText)
	if strings.HasPrefix(text, "```") && strings.HasSuffix(text, "```") && len(text) >= 6 {
		return strings.TrimSpace(text[3 : len(text)-3])
	}
	if start, end := strings.IndexByte(text, '{'), strings.LastIndexByte(text, '}'); start >= 0 && end > start {
		return text[start : end+1]
	}
	return text
}

// Extract extracts the JSON content of responseText and unmarshals it into T.
func Extract[T any](responseText string) (T, error) {
	var result T
	content := ExtractJSON(responseText)
	if content == "" {
		return result, fmt.Errorf("%w: no JSON content", ErrMalformed)
	}
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return result, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return result, nil
}
