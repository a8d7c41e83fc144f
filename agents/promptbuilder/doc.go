/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

/*
Package promptbuilder builds prompts from developer-written templates with
named placeholders.

# Overview

A template is a string literal with {{name}} placeholders. Every placeholder
must be bound exactly once before Build succeeds, and binding returns a new
Prompt so a parsed template can be shared across goroutines.

  - BindStringLiteral binds developer text. Its parameter type only accepts
    untyped string constants.
  - BindText binds runtime text such as report excerpts or rubric fields.
  - BindJSON binds structured data marshaled as indented JSON.

Substitution is a single pass over the template, so a bound value that
itself contains {{name}} is emitted as is and never expanded.

# Usage

	var prompt = promptbuilder.MustNewPrompt(`### {{name}}
	Reply with JSON matching:
	{{schema}}`)

	p, err := prompt.BindText("name", c.Name)
	if err != nil {
		return "", err
	}
	p, err = p.BindJSON("schema", schemaDoc)
	...
	built, err := p.Build()

Request types implement Bindable so callers can keep the binding logic next to
the data it binds. BindAll applies several of them in order.
*/
package promptbuilder
