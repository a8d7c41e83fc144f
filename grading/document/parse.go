/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package document

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"strings"

	"github.com/chainguard-dev/clog"
	"gopkg.in/yaml.v3"

	"chainguard.dev/reportfeedback/grading/notebook"
)

// Options configures Parse.
type Options struct {
	// FS holds the notebooks named by embed directives, with paths relative
	// to the report. When nil every embed resolves to an empty bundle.
	FS fs.FS

	// Candidates and Matchers override the notebook resolution order.
	Candidates []notebook.Candidate
	Matchers   []notebook.Matcher
}

var (
	headingLine = regexp.MustCompile(`^(#{1,6})[ \t]+(.+?)[ \t]*$`)
	headingTail = regexp.MustCompile(`(?:[ \t]+\{[^}]*\}|[ \t]+#+)[ \t]*$`)

	// ![caption](path "title"){#fig-label ...}
	figureRef = regexp.MustCompile(`!\[([^\]]*)\]\(\s*<?([^)\s>]+)>?(?:\s+"[^"]*")?\s*\)(\{[^}]*\})?`)
	figLabel  = regexp.MustCompile(`#([\w:-]+)`)

	embedDirective = regexp.MustCompile(`\{\{<\s*embed\s+(.*?)\s*>\}\}`)
)

// Parse builds a Document from normalized report text. It never fails: a
// malformed frontmatter block is ignored, and an embed whose notebook cannot
// be read yields an empty output bundle. Both are logged.
func Parse(ctx context.Context, text string, opts Options) *Document {
	log := clog.FromContext(ctx)

	doc := &Document{Source: text, figures: map[string]int{}}
	bodyStart := doc.frontmatter(ctx)

	ls := splitLines(text, bodyStart)
	fenced := fenceSpans(ls, len(text))
	doc.sections(ls, fenced, bodyStart)
	doc.findFigures(fenced, bodyStart)

	resolver := notebook.Resolver{FS: opts.FS, Candidates: opts.Candidates, Matchers: opts.Matchers}
	cache := map[string]notebook.Resolution{}
	for _, m := range embedDirective.FindAllStringSubmatchIndex(text[bodyStart:], -1) {
		off := bodyStart + m[0]
		if fenced.contains(off) {
			continue
		}
		rec := newRecord(text[bodyStart+m[2]:bodyStart+m[3]], off)
		if opts.FS == nil || rec.NotebookPath == "" {
			doc.NotebookOutputs = append(doc.NotebookOutputs, rec)
			continue
		}

		key := rec.NotebookPath + "#" + rec.CellRef
		res, ok := cache[key]
		if !ok {
			var err error
			res, err = resolver.Resolve(rec.NotebookPath, rec.CellRef)
			if err != nil {
				log.With("embed", rec.Directive).Warnf("Unable to read notebook, using empty outputs: %v", err)
			} else if res.Fallback() && rec.CellRef != "" {
				log.With("embed", rec.Directive).Warnf("No cell matches %q in %s, using outputs of every cell", rec.CellRef, res.Path)
			}
			cache[key] = res
		}
		rec.Outputs = res.Bundle
		rec.ResolvedPath = res.Path
		rec.Matcher = res.Matcher
		doc.NotebookOutputs = append(doc.NotebookOutputs, rec)
	}

	doc.Stats = computeStats(doc, fenced, bodyStart)
	return doc
}

// frontmatter decodes a leading YAML block and returns the offset where the
// body starts.
func (d *Document) frontmatter(ctx context.Context) int {
	first, rest, ok := strings.Cut(d.Source, "\n")
	if !ok || strings.TrimRight(first, " \t\r") != "---" {
		return 0
	}
	offset := len(first) + 1
	for line := range strings.Lines(rest) {
		trimmed := strings.TrimRight(line, " \t\r\n")
		if trimmed == "---" || trimmed == "..." {
			block := d.Source[len(first)+1 : offset]
			end := offset + len(line)
			var meta map[string]any
			if err := yaml.Unmarshal([]byte(block), &meta); err != nil {
				clog.WarnContextf(ctx, "Ignoring malformed frontmatter: %v", err)
				return end
			}
			d.Metadata = meta
			d.Title = stringField(meta, "title")
			d.Author = authorField(meta["author"])
			return end
		}
		offset += len(line)
	}
	// An unterminated block is ordinary text.
	return 0
}

func stringField(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

// authorField accepts the forms Quarto allows: a name, a list of names, or
// objects with a name key.
func authorField(v any) string {
	switch a := v.(type) {
	case string:
		return a
	case map[string]any:
		return stringField(a, "name")
	case []any:
		var names []string
		for _, item := range a {
			if s := authorField(item); s != "" {
				names = append(names, s)
			}
		}
		return strings.Join(names, ", ")
	}
	return ""
}

type line struct {
	start int
	// text excludes the line terminator.
	text string
}

func splitLines(s string, from int) []line {
	var out []line
	off := from
	for l := range strings.Lines(s[from:]) {
		out = append(out, line{start: off, text: strings.TrimRight(l, "\r\n")})
		off += len(l)
	}
	return out
}

type span struct{ start, end int }

type spans []span

func (ss spans) contains(off int) bool {
	for _, s := range ss {
		if off >= s.start && off < s.end {
			return true
		}
	}
	return false
}

var fenceMarker = regexp.MustCompile("^ {0,3}(`{3,}|~{3,})")

// fenceSpans returns the extent of each fenced code block. An unclosed fence
// runs to the end of the text.
func fenceSpans(ls []line, textLen int) spans {
	var out spans
	open := -1
	var marker string
	for i, l := range ls {
		m := fenceMarker.FindStringSubmatch(l.text)
		switch {
		case open < 0 && m != nil:
			open, marker = i, m[1]
		case open >= 0 && closesFence(l.text, marker):
			end := textLen
			if i+1 < len(ls) {
				end = ls[i+1].start
			}
			out = append(out, span{ls[open].start, end})
			open = -1
		}
	}
	if open >= 0 {
		out = append(out, span{ls[open].start, textLen})
	}
	return out
}

// closesFence reports whether text is a bare run of the opening marker's
// character at least as long as the marker.
func closesFence(text, marker string) bool {
	t := strings.TrimSpace(text)
	return len(t) >= len(marker) && strings.Trim(t, marker[:1]) == ""
}

func (d *Document) sections(ls []line, fenced spans, bodyStart int) {
	type heading struct {
		level       int
		text        string
		start, body int
	}
	var hs []heading
	for i, l := range ls {
		if fenced.contains(l.start) {
			continue
		}
		m := headingLine.FindStringSubmatch(l.text)
		if m == nil {
			continue
		}
		body := len(d.Source)
		if i+1 < len(ls) {
			body = ls[i+1].start
		}
		title := strings.TrimSpace(headingTail.ReplaceAllString(m[2], ""))
		hs = append(hs, heading{level: len(m[1]), text: title, start: l.start, body: body})
	}

	firstHeading := len(d.Source)
	if len(hs) > 0 {
		firstHeading = hs[0].start
	}
	if pre := d.Source[bodyStart:firstHeading]; strings.TrimSpace(pre) != "" {
		d.Sections = append(d.Sections, Section{
			Body:  strings.TrimSpace(pre),
			Start: bodyStart,
			End:   firstHeading,
		})
	}
	for i, h := range hs {
		end := len(d.Source)
		if i+1 < len(hs) {
			end = hs[i+1].start
		}
		d.Sections = append(d.Sections, Section{
			Heading: h.text,
			Level:   h.level,
			Body:    strings.TrimSpace(d.Source[h.body:end]),
			Start:   h.start,
			End:     end,
		})
	}
}

func (d *Document) findFigures(fenced spans, bodyStart int) {
	seen := map[string]int{}
	for _, m := range figureRef.FindAllStringSubmatchIndex(d.Source[bodyStart:], -1) {
		off := bodyStart + m[0]
		if fenced.contains(off) {
			continue
		}
		sub := func(i int) string {
			if m[2*i] < 0 {
				return ""
			}
			return d.Source[bodyStart+m[2*i] : bodyStart+m[2*i+1]]
		}
		fig := Figure{
			Path:    sub(2),
			Caption: strings.TrimSpace(sub(1)),
			Offset:  off,
			Section: d.SectionAt(off),
		}
		if fig.Section >= 0 {
			fig.NearestSection = d.Sections[fig.Section].Heading
		}

		fig.ID = fig.Path
		if lm := figLabel.FindStringSubmatch(sub(3)); lm != nil {
			fig.ID = lm[1]
		}
		seen[fig.ID]++
		if n := seen[fig.ID]; n > 1 {
			fig.ID = fmt.Sprintf("%s#%d", fig.ID, n)
		}

		d.figures[fig.ID] = len(d.Figures)
		d.Figures = append(d.Figures, fig)
	}
}

// newRecord splits a directive such as "nb/fit.ipynb#slope echo=false" into
// its notebook path, cell reference and parameters.
func newRecord(directive string, offset int) NotebookOutputRecord {
	rec := NotebookOutputRecord{Directive: directive, Offset: offset}
	fields := strings.Fields(directive)
	if len(fields) == 0 {
		return rec
	}
	target, ref, _ := strings.Cut(fields[0], "#")
	if target != "" {
		rec.NotebookPath = path.Clean(target)
	}
	rec.CellRef = ref
	rec.Params = fields[1:]
	return rec
}
