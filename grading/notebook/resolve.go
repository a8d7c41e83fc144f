/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package notebook

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"slices"
	"strings"
)

// Candidate maps the notebook path named by a directive to a path worth
// trying. It returns "" when it has nothing to offer.
type Candidate func(name string) string

// Rendered returns a Candidate for the rendered sibling of a notebook whose
// stem carries the given suffix, e.g. Rendered("_output") maps
// lab/fit.ipynb to lab/fit_output.ipynb.
func Rendered(suffix string) Candidate {
	return func(name string) string {
		ext := path.Ext(name)
		if ext == "" {
			return ""
		}
		return strings.TrimSuffix(name, ext) + suffix + ext
	}
}

// Source is the Candidate for the notebook exactly as named.
func Source(name string) string { return name }

// DefaultCandidates prefers rendered siblings over the source notebook.
var DefaultCandidates = []Candidate{
	Rendered("_output"),
	Rendered("-output"),
	Rendered(".output"),
	Source,
}

// Matcher selects cells for a cell reference.
type Matcher struct {
	Name  string
	Match func(c Cell, ref string) bool
}

var labelOption = regexp.MustCompile(`^#\|\s*label:\s*(\S+)\s*$`)

var (
	// ByID matches the nbformat 4.5 cell id.
	ByID = Matcher{Name: "id", Match: func(c Cell, ref string) bool {
		return c.ID == ref
	}}

	// ByLabel matches metadata.label or a "#| label:" option line at the top
	// of the cell source.
	ByLabel = Matcher{Name: "label", Match: func(c Cell, ref string) bool {
		if string(c.Metadata.Label) == ref {
			return true
		}
		for line := range strings.Lines(string(c.Source)) {
			line = strings.TrimSpace(line)
			if !strings.HasPrefix(line, "#|") {
				break
			}
			if m := labelOption.FindStringSubmatch(line); m != nil && m[1] == ref {
				return true
			}
		}
		return false
	}}

	// ByTag matches an entry in metadata.tags.
	ByTag = Matcher{Name: "tag", Match: func(c Cell, ref string) bool {
		return slices.Contains(c.Metadata.Tags, ref)
	}}
)

// DefaultMatchers is the cell resolution order.
var DefaultMatchers = []Matcher{ByID, ByLabel, ByTag}

// MatchAll is reported as the matcher name when every cell was used.
const MatchAll = "all"

// Select returns the cells ref refers to and the name of the matcher that
// found them. The first matcher that selects at least one cell wins. An empty
// ref, or a ref no matcher recognizes, selects every cell and reports
// MatchAll.
func (nb *Notebook) Select(ref string, matchers []Matcher) ([]Cell, string) {
	if ref != "" {
		for _, m := range matchers {
			var cells []Cell
			for _, c := range nb.Cells {
				if m.Match(c, ref) {
					cells = append(cells, c)
				}
			}
			if len(cells) > 0 {
				return cells, m.Name
			}
		}
	}
	return nb.Cells, MatchAll
}

// Resolver resolves embed targets against a filesystem.
type Resolver struct {
	FS fs.FS

	// Candidates defaults to DefaultCandidates.
	Candidates []Candidate

	// Matchers defaults to DefaultMatchers.
	Matchers []Matcher
}

// Resolution describes how one embed target was resolved.
type Resolution struct {
	// Path is the notebook file that was read.
	Path string
	// Matcher names the matcher that selected the cells, or MatchAll.
	Matcher string
	Bundle  Bundle
}

// Fallback reports whether the cell reference was not found and every cell
// was used instead.
func (r Resolution) Fallback() bool { return r.Matcher == MatchAll }

// Resolve loads the first readable candidate for name and extracts the
// outputs of the cells ref selects. It fails only when no candidate can be
// read and decoded.
func (r Resolver) Resolve(name, ref string) (Resolution, error) {
	nb, p, err := r.load(name)
	if err != nil {
		return Resolution{}, err
	}
	matchers := r.Matchers
	if matchers == nil {
		matchers = DefaultMatchers
	}
	cells, matcher := nb.Select(ref, matchers)
	return Resolution{
		Path:    p,
		Matcher: matcher,
		Bundle:  Extract(cells),
	}, nil
}

func (r Resolver) load(name string) (*Notebook, string, error) {
	candidates := r.Candidates
	if candidates == nil {
		candidates = DefaultCandidates
	}
	name = strings.TrimPrefix(path.Clean(name), "./")

	var errs []error
	seen := map[string]bool{}
	for _, c := range candidates {
		p := c(name)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		if !fs.ValidPath(p) {
			errs = append(errs, fmt.Errorf("%s: %w", p, fs.ErrInvalid))
			continue
		}
		nb, err := Load(r.FS, p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		return nb, p, nil
	}
	if len(errs) == 0 {
		return nil, "", fmt.Errorf("no candidate paths for %q", name)
	}
	return nil, "", fmt.Errorf("resolving notebook %q: %w", name, errors.Join(errs...))
}
