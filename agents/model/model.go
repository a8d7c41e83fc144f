/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package model defines the contract between the grading core and the
// language-model clients.
package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Request is one bounded evaluation request.
type Request struct {
	// System is the system instruction.
	System string `json:"system"`
	// Prompt is the user message text.
	Prompt string `json:"prompt"`
	// Images are attached after the prompt text, in order.
	Images []Image `json:"images,omitempty"`

	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	// JSON asks the model for a single JSON object.
	JSON bool `json:"json"`
}

// Image is an inline image.
type Image struct {
	// Name is the figure path, used in prompts and logs.
	Name      string `json:"name"`
	MediaType string `json:"media_type"`
	// Data is the base64 encoded image.
	Data string `json:"-"`
}

// DataURI returns the image as a data: URI.
func (i Image) DataURI() string {
	return fmt.Sprintf("data:%s;base64,%s", i.MediaType, i.Data)
}

// Usage are the token counters reported by the provider.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a successful completion.
type Response struct {
	// Model is the model that produced the response.
	Model string `json:"model"`
	Text  string `json:"text"`
	Usage Usage  `json:"usage"`
	// Raw is the provider's response body, kept for debugging.
	Raw json.RawMessage `json:"raw,omitempty"`
}

// Client sends one request to one model.
type Client interface {
	// Model returns the name of the model this client calls.
	Model() string

	// Complete sends req. Failures are returned as *Error.
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Kind classifies a failed call.
type Kind string

const (
	RateLimited       Kind = "rate_limited"
	PayloadTooLarge   Kind = "payload_too_large"
	NetworkError      Kind = "network_error"
	MalformedResponse Kind = "malformed_response"
	// RequestRejected covers authentication and other client errors that a
	// different model will not fix.
	RequestRejected Kind = "request_rejected"
)

// Retryable reports whether the call may succeed on another attempt or
// another model.
func (k Kind) Retryable() bool {
	switch k {
	case RateLimited, PayloadTooLarge, NetworkError:
		return true
	default:
		return false
	}
}

// Error is a classified model call failure.
type Error struct {
	Kind  Kind
	Model string
	Err   error
}

func (e *Error) Error() string {
	if e.Model == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s (%s): %v", e.Kind, e.Model, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Errorf returns an *Error of the given kind.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of err. Errors that are not *Error are treated as
// network errors, except context cancellation which is not retryable.
func KindOf(err error) Kind {
	var me *Error
	if errors.As(err, &me) {
		return me.Kind
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return NetworkError
	case errors.Is(err, context.Canceled):
		return RequestRejected
	}
	return NetworkError
}

// Classify maps an HTTP status code to a Kind. It returns false for codes
// that are not failures.
func Classify(status int) (Kind, bool) {
	switch {
	case status == 413:
		return PayloadTooLarge, true
	case status == 408:
		return NetworkError, true
	case status == 429:
		return RateLimited, true
	// 529 is Anthropic's overloaded status.
	case status == 503 || status == 529:
		return RateLimited, true
	case status >= 500:
		return NetworkError, true
	case status >= 400:
		return RequestRejected, true
	}
	return "", false
}
