/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package result

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const schemaURL = "mem://result/schema.json"

// Validator checks payloads against a compiled JSON Schema. It is safe for
// concurrent use.
type Validator struct {
	schema *jsonschema.Schema
}

// NewValidator compiles schema.
func NewValidator(schema []byte) (*Validator, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(schemaURL, bytes.NewReader(schema)); err != nil {
		return nil, fmt.Errorf("adding schema: %w", err)
	}
	s, err := c.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compiling schema: %w", err)
	}
	return &Validator{schema: s}, nil
}

// Validate checks the JSON document payload.
func (v *Validator) Validate(payload string) error {
	var doc any
	dec := json.NewDecoder(strings.NewReader(payload))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if err := v.schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return nil
}

// ExtractValid extracts the JSON content of responseText, validates it
// against v and unmarshals it into T.
func ExtractValid[T any](v *Validator, responseText string) (T, error) {
	var zero T
	content := ExtractJSON(responseText)
	if content == "" {
		return zero, fmt.Errorf("%w: no JSON content", ErrMalformed)
	}
	if err := v.Validate(content); err != nil {
		return zero, err
	}
	return Extract[T](content)
}
