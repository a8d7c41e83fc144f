/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

/*
Package result extracts, validates and decodes the JSON object a model was
asked to return.

# Overview

Models asked for "a single JSON object" still wrap it in markdown fences or a
sentence of preamble often enough that the raw text cannot be unmarshaled
directly:

	Here is my evaluation:

	```json
	{"summary": "Clear methods section.", "overall_assessment": "Proficient"}
	```

ExtractJSON returns the JSON text inside a ```json fence, or the outermost
{...} span when there is no fence. Extract[T] unmarshals that text into T.

# Validation

A Validator compiles a JSON Schema once and checks extracted payloads against
it before they are decoded:

	v, err := result.NewValidator(schemaJSON)
	if err != nil {
		return err
	}
	fb, err := result.ExtractValid[Feedback](v, resp.Text)

Every failure of ExtractValid wraps ErrMalformed, so callers can classify
them with errors.Is.
*/
package result
