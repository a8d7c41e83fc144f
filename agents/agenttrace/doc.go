/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

/*
Package agenttrace records what happened while one rubric criterion was
evaluated.

# Overview

  - ExecutionContext: run-level metadata (run id, release tag, repository)
    carried in the Go context and used to enrich spans and metrics.
  - Trace[T]: one criterion evaluation, from the assembled context and prompt
    to the final result.
  - Call: one model call within a trace. A trace has one call per model tried.
  - Tracer[T]: receives completed traces. ByCode adapts plain callbacks and
    NewDefaultTracer logs through clog.

Each trace and each call is also an OpenTelemetry span, so a run exported to
Cloud Trace shows one span per criterion with its model calls nested below.

# Usage

	ctx = agenttrace.WithExecutionContext(ctx, agenttrace.ExecutionContext{
		RunID:      "5d0f...",
		Tag:        "v1.2",
		Repository: "octo/lab-report",
	})
	ctx = agenttrace.WithTracer[Feedback](ctx, agenttrace.ByCode[Feedback](func(tr *agenttrace.Trace[Feedback]) {
		log.Printf("criterion %s took %v", tr.Criterion.ID, tr.Duration())
	}))

	tr := agenttrace.StartTrace[Feedback](ctx, agenttrace.Subject{ID: "methodology", Index: 2})
	tr.SetPrompt(contextText, prompt, &req)
	call := tr.StartCall("gpt-4o")
	call.Complete(resp, err)
	tr.Complete(feedback, err)
*/
package agenttrace
