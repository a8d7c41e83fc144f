/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package notebook

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"strings"
)

// Notebook is the subset of the nbformat 4 document this package reads.
type Notebook struct {
	Cells    []Cell `json:"cells"`
	NBFormat int    `json:"nbformat"`
}

// Cell is one notebook cell.
type Cell struct {
	ID       string       `json:"id,omitempty"`
	CellType string       `json:"cell_type"`
	Source   Text         `json:"source"`
	Metadata CellMetadata `json:"metadata"`
	Outputs  []Output     `json:"outputs,omitempty"`
}

// CellMetadata holds the cell metadata keys used for matching.
type CellMetadata struct {
	Label Text     `json:"label,omitempty"`
	Tags  []string `json:"tags,omitempty"`
}

// Output is one entry in a code cell's outputs list.
type Output struct {
	OutputType string                     `json:"output_type"`
	Name       string                     `json:"name,omitempty"`
	Text       Text                       `json:"text,omitempty"`
	Data       map[string]json.RawMessage `json:"data,omitempty"`
	EName      string                     `json:"ename,omitempty"`
	EValue     string                     `json:"evalue,omitempty"`
}

// Payload returns the output's data for the given MIME type as text.
func (o Output) Payload(mime string) (string, bool) {
	raw, ok := o.Data[mime]
	if !ok {
		return "", false
	}
	var t Text
	if err := json.Unmarshal(raw, &t); err != nil {
		// Structured payloads such as application/json are kept as JSON.
		return string(raw), true
	}
	return string(t), true
}

// HasImage reports whether the output carries an image payload.
func (o Output) HasImage() bool {
	for mime := range o.Data {
		if strings.HasPrefix(mime, "image/") {
			return true
		}
	}
	return false
}

// Text is a notebook multiline string. nbformat allows either a single string
// or a list of lines that are concatenated as-is.
type Text string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*t = Text(s)
		return nil
	}
	var lines []string
	if err := json.Unmarshal(b, &lines); err != nil {
		return fmt.Errorf("multiline string: %w", err)
	}
	*t = Text(strings.Join(lines, ""))
	return nil
}

// Load reads and decodes the notebook at name.
func Load(fsys fs.FS, name string) (*Notebook, error) {
	b, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, err
	}
	var nb Notebook
	if err := json.Unmarshal(b, &nb); err != nil {
		return nil, fmt.Errorf("decoding notebook %s: %w", name, err)
	}
	return &nb, nil
}
