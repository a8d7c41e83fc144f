/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package promptbuilder

import (
	"encoding/json"
	"fmt"
)

// binding represents a value that will be substituted into the template
type binding interface {
	value() (string, error)
}

type unboundBinding struct {
	name string
}

func (u unboundBinding) value() (string, error) {
	return "", fmt.Errorf("unbound placeholder: %s", u.name)
}

// textBinding holds literal and runtime text alike.
type textBinding string

func (t textBinding) value() (string, error) {
	return string(t), nil
}

type jsonBinding struct {
	data any
}

func (j jsonBinding) value() (string, error) {
	bytes, err := json.MarshalIndent(j.data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(bytes), nil
}
