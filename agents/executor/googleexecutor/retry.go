/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package googleexecutor

import (
	"errors"
	"strings"

	"google.golang.org/genai"

	"chainguard.dev/reportfeedback/agents/model"
)

var (
	rateLimitMessages = []string{"Resource exhausted", "429", "RESOURCE_EXHAUSTED", "rate limit", "Overloaded", "503", "quota exceeded"}
	serverMessages    = []string{"Internal error", "server error"}
)

// classifyVertexError returns the kind of a Gemini error.
func classifyVertexError(err error) model.Kind {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if k, ok := model.Classify(apiErr.Code); ok {
			return k
		}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		if k, ok := model.Classify(apiErrPtr.Code); ok {
			return k
		}
	}

	msg := err.Error()
	switch {
	case containsAny(msg, rateLimitMessages):
		return model.RateLimited
	case containsAny(msg, serverMessages):
		return model.NetworkError
	}
	return model.KindOf(err)
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
