/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package promptbuilder

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNewPrompt(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		template stringLiteral
		want     []string
		wantErr  string
	}{
		{name: "no bindings", template: "plain text"},
		{name: "repeated binding", template: "{{a}} and {{ a }} then {{b_2}}", want: []string{"a", "b_2"}},
		{name: "unicode identifier", template: "{{nombre}} {{名前}}", want: []string{"nombre", "名前"}},
		{name: "unclosed", template: "hello {{name", wantErr: "unclosed binding"},
		{name: "leading digit", template: "{{1st}}", wantErr: "invalid binding identifier"},
		{name: "empty", template: "{{}}", wantErr: "invalid binding identifier"},
		{name: "hyphen", template: "{{a-b}}", wantErr: "invalid binding identifier"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p, err := NewPrompt(tt.template)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("NewPrompt() error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewPrompt() = %v", err)
			}
			if diff := cmp.Diff(tt.want, p.Bindings()); diff != "" {
				t.Errorf("Bindings() (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBuild(t *testing.T) {
	t.Parallel()

	base := MustNewPrompt("### {{name}} ({{weight}}%)\n{{schema}}\n{{name}}")
	p := Must(base.BindText("name", "Results {{weight}}"))
	p = Must(p.BindStringLiteral("weight", "25"))
	p = Must(p.BindJSON("schema", map[string]string{"type": "object"}))

	got, err := p.Build()
	if err != nil {
		t.Fatalf("Build() = %v", err)
	}
	want := "### Results {{weight}} (25%)\n{\n  \"type\": \"object\"\n}\nResults {{weight}}"
	if got != want {
		t.Errorf("Build() = %q, want %q", got, want)
	}

	// Binding returns a copy.
	if _, err := base.Build(); err == nil || !strings.Contains(err.Error(), "unbound placeholder") {
		t.Errorf("base.Build() error = %v, want unbound placeholder", err)
	}
}

func TestBindErrors(t *testing.T) {
	t.Parallel()

	p := MustNewPrompt("{{a}}")
	if _, err := p.BindText("missing", "x"); err == nil {
		t.Error("BindText(missing) = nil error")
	}
	bound := Must(p.BindText("a", "x"))
	if _, err := bound.BindText("a", "y"); err == nil || !strings.Contains(err.Error(), "already bound") {
		t.Errorf("rebinding error = %v, want already bound", err)
	}
	if _, err := Must(MustNewPrompt("{{a}}").BindJSON("a", make(chan int))).Build(); err == nil {
		t.Error("Build() with unmarshalable JSON = nil error")
	}
}

func TestMustPanics(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Error("MustNewPrompt() did not panic")
		}
	}()
	MustNewPrompt("{{")
}

type request struct{ text string }

func (r request) Bind(p *Prompt) (*Prompt, error) { return p.BindText("text", r.text) }

type fields map[string]string

func (f fields) Bind(p *Prompt) (*Prompt, error) {
	var err error
	for k, v := range f {
		if p, err = p.BindText(k, v); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func TestBindAll(t *testing.T) {
	t.Parallel()

	p, err := BindAll(MustNewPrompt("{{greeting}}, {{text}} and {{name}}"),
		request{text: "hi"}, fields{"greeting": "Hello", "name": "Ada"})
	if err != nil {
		t.Fatalf("BindAll() = %v", err)
	}
	if got, _ := p.Build(); got != "Hello, hi and Ada" {
		t.Errorf("Build() = %q", got)
	}

	// The second binding of text fails.
	if _, err := BindAll(MustNewPrompt("{{text}}"), request{text: "a"}, request{text: "b"}); err == nil {
		t.Error("BindAll() rebinding a placeholder = nil error")
	}
	if _, err := BindAll(MustNewPrompt("{{text}}"), fields{"missing": "x"}); err == nil {
		t.Error("BindAll() with an unknown placeholder = nil error")
	}
}
