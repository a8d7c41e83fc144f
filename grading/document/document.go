/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package document parses a normalized Quarto/Markdown report into sections,
// figures and resolved notebook outputs.
package document

import (
	"chainguard.dev/reportfeedback/grading/notebook"
)

// Document is a parsed report. It is built once by Parse and must be treated
// as read-only afterwards; concurrent readers share it without locking.
type Document struct {
	// Source is the text that was parsed. Offsets index into it.
	Source string `json:"-"`

	// Metadata is the decoded YAML frontmatter, or nil.
	Metadata map[string]any `json:"metadata,omitempty"`
	Title    string         `json:"title,omitempty"`
	Author   string         `json:"author,omitempty"`

	Sections        []Section              `json:"sections"`
	Figures         []Figure               `json:"figures"`
	NotebookOutputs []NotebookOutputRecord `json:"notebook_outputs"`
	Stats           Stats                  `json:"stats"`

	figures map[string]int
}

// Section is the text from one heading up to the next heading of any level.
// The preamble before the first heading, if it holds anything, is a level 0
// section with an empty heading.
type Section struct {
	Heading string `json:"heading"`
	Level   int    `json:"level"`
	// Body is the section text after the heading line.
	Body string `json:"body"`
	// Start and End delimit the section, heading line included, in
	// Document.Source.
	Start int `json:"start_offset"`
	End   int `json:"end_offset"`
}

// Figure is an image reference found in the report body.
type Figure struct {
	// ID is the Quarto label ("fig-x") when present, otherwise the path.
	ID      string `json:"id"`
	Path    string `json:"path"`
	Caption string `json:"caption"`
	// Section is the index into Document.Sections of the section holding the
	// figure, and NearestSection that section's heading.
	Section        int    `json:"section"`
	NearestSection string `json:"nearest_section"`
	Offset         int    `json:"offset"`
}

// NotebookOutputRecord is one embed directive and the outputs it resolved to.
type NotebookOutputRecord struct {
	// Directive is the text inside {{< embed ... >}}, e.g.
	// "analysis.ipynb#fit echo=false".
	Directive    string   `json:"embed_directive"`
	NotebookPath string   `json:"notebook_path"`
	CellRef      string   `json:"cell_ref,omitempty"`
	Params       []string `json:"params,omitempty"`
	Offset       int      `json:"offset"`

	Outputs notebook.Bundle `json:"outputs"`

	// ResolvedPath and Matcher describe how the directive was resolved.
	// Both are empty when the notebook could not be read.
	ResolvedPath string `json:"resolved_path,omitempty"`
	Matcher      string `json:"matcher,omitempty"`
}

// Stats are counts derived from the parsed document.
type Stats struct {
	Words          int `json:"word_count"`
	Sections       int `json:"sections"`
	Figures        int `json:"figures"`
	CodeBlocks     int `json:"code_blocks"`
	Equations      int `json:"equations"`
	NotebookEmbeds int `json:"notebook_embeds"`
}

// Figure returns the figure with the given id.
func (d *Document) Figure(id string) (Figure, bool) {
	i, ok := d.figures[id]
	if !ok {
		return Figure{}, false
	}
	return d.Figures[i], true
}

// Text returns the full text of a section, heading line included.
func (d *Document) Text(s Section) string {
	return d.Source[s.Start:s.End]
}

// SectionAt returns the index of the section containing offset, or -1.
func (d *Document) SectionAt(offset int) int {
	for i, s := range d.Sections {
		if offset >= s.Start && offset < s.End {
			return i
		}
	}
	return -1
}

// Empty reports whether the document holds no text at all.
func (d *Document) Empty() bool {
	return len(d.Sections) == 0
}
