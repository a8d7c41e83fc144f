/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package claudeexecutor sends criterion evaluation requests to Claude,
// either through the Anthropic API or through Vertex AI.
//
// # Basic Usage
//
//	client := claudeexecutor.NewVertexClient(ctx, region, projectID)
//
//	exec, err := claudeexecutor.New(client, "claude-sonnet-4@20250514")
//	if err != nil {
//	    return nil, err
//	}
//	resp, err := exec.Complete(ctx, req)
//
// The system instruction becomes the system block and images are attached as
// base64 image blocks after the prompt text. Claude has no JSON response
// mode; Request.JSON is honored by the prompt itself and the response is
// parsed downstream.
//
// # Errors
//
// Errors are returned as *model.Error. The status of the SDK's
// *anthropic.Error decides the kind: 429 and 529 (overloaded) are
// rate_limited, 413 is payload_too_large, and other 5xx responses are
// network errors.
package claudeexecutor
