/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package document

import (
	"regexp"
	"strings"
)

var (
	displayMath = regexp.MustCompile(`(?s)\$\$.*?\$\$`)
	inlineMath  = regexp.MustCompile(`\$[^$\n]+\$`)
	word        = regexp.MustCompile(`[\p{L}\p{N}_]+`)
)

// computeStats counts over the body. Words inside fenced code and math are
// not counted.
func computeStats(d *Document, fenced spans, bodyStart int) Stats {
	var prose strings.Builder
	pos := bodyStart
	for _, s := range fenced {
		if s.start > pos {
			prose.WriteString(d.Source[pos:s.start])
		}
		pos = max(pos, s.end)
	}
	if pos < len(d.Source) {
		prose.WriteString(d.Source[pos:])
	}

	text := prose.String()
	equations := len(displayMath.FindAllStringIndex(text, -1))
	text = displayMath.ReplaceAllString(text, " ")
	text = inlineMath.ReplaceAllString(text, " ")

	headed := 0
	for _, s := range d.Sections {
		if s.Level > 0 {
			headed++
		}
	}

	return Stats{
		Words:          len(word.FindAllStringIndex(text, -1)),
		Sections:       headed,
		Figures:        len(d.Figures),
		CodeBlocks:     len(fenced),
		Equations:      equations,
		NotebookEmbeds: len(d.NotebookOutputs),
	}
}
