/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package promptbuilder

// Bindable binds its own fields to a prompt. A request type implements it so
// the placeholder names it fills stay next to the type.
type Bindable interface {
	Bind(prompt *Prompt) (*Prompt, error)
}

// BindAll applies each Bindable in order and stops at the first error.
func BindAll(p *Prompt, bs ...Bindable) (*Prompt, error) {
	for _, b := range bs {
		var err error
		if p, err = b.Bind(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}
