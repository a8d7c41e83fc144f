/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package schema derives JSON Schemas for model response types.
package schema

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// Generator wraps jsonschema.Reflector with project defaults.
type Generator struct {
	reflector jsonschema.Reflector
}

// Option configures a Generator.
type Option func(*jsonschema.Reflector)

// Strict rejects properties the type does not declare.
func Strict() Option {
	return func(r *jsonschema.Reflector) { r.AllowAdditionalProperties = false }
}

// NewGenerator returns a generator that inlines every type, takes required
// fields from jsonschema tags, and omits $id so the schema reads cleanly when
// embedded in a prompt.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		reflector: jsonschema.Reflector{
			RequiredFromJSONSchemaTags: true,
			ExpandedStruct:             true,
			AllowAdditionalProperties:  true,
			DoNotReference:             true,
			Anonymous:                  true,
		},
	}
	for _, opt := range opts {
		opt(&g.reflector)
	}
	return g
}

// Reflect returns the JSON schema for the provided value.
func (g *Generator) Reflect(v any) *jsonschema.Schema {
	return g.reflector.Reflect(v)
}

// JSON returns the indented JSON schema of v.
func (g *Generator) JSON(v any) ([]byte, error) {
	b, err := json.MarshalIndent(g.Reflect(v), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling schema: %w", err)
	}
	return b, nil
}

// Reflect derives the JSON schema for the provided value using a default generator.
func Reflect(v any) *jsonschema.Schema {
	return NewGenerator().Reflect(v)
}

// ReflectType allocates a zero value of T and reflects it to a schema.
func ReflectType[T any](opts ...Option) *jsonschema.Schema {
	var zero T
	return NewGenerator(opts...).Reflect(&zero)
}

// JSONFor returns the indented JSON schema of T.
func JSONFor[T any](opts ...Option) ([]byte, error) {
	var zero T
	return NewGenerator(opts...).JSON(&zero)
}
