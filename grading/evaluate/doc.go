/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package evaluate runs one model evaluation per rubric criterion.
//
// Each criterion moves through a small state machine:
//
//	pending -> requested -> succeeded
//	                     -> retried_on_fallback -> succeeded | failed
//	                     -> failed
//
// A criterion's context is extracted, a prompt is built from it and the
// criterion's rubric entry, and the request is sent down a Chain of models.
// The next model in the chain is only tried when the previous one failed
// with a retryable error kind (rate limit, payload size, network or
// timeout). The model's reply must be JSON matching the feedback schema;
// anything else fails the criterion as malformed_response.
//
// Criteria are evaluated by a bounded pool of goroutines. Results are keyed
// by criterion id while the pool runs and returned in rubric order, so the
// Outcome does not depend on the concurrency limit or completion order.
//
// Usage:
//
//	orch, err := evaluate.New(extractor, evaluate.Chain{primary, fallback}, evaluate.Options{
//		Concurrency: 2,
//		Timeout:     2 * time.Minute,
//		Guidance:    guidance,
//	})
//	if err != nil {
//		return err
//	}
//	outcome, err := orch.Run(ctx, doc, r)
package evaluate
