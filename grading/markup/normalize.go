/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package markup

import (
	"regexp"
	"strings"
)

var (
	// ::: {.callout-note title="x"} or ::: callout-note
	fenceOpen  = regexp.MustCompile(`^\s*(:{3,})\s*(\{[^}]*\}|[\w.-]+)\s*$`)
	fenceClose = regexp.MustCompile(`^\s*(:{3,})\s*$`)
	codeFence  = regexp.MustCompile("^\\s*(`{3,}|~{3,})")

	// A line holding nothing but a <div ...> or </div> wrapper.
	htmlWrapper = regexp.MustCompile(`(?i)^\s*</?div\b[^>]*>\s*$`)
)

// CalloutClasses lists the fenced-div classes treated as authoring scaffolding.
var CalloutClasses = []string{
	"callout",
	"callout-note",
	"callout-tip",
	"callout-warning",
	"callout-important",
	"callout-caution",
}

type fence struct {
	colons  int
	callout bool
}

// Normalize removes template callout blocks, including their fences and
// content, and drops lines that are only raw <div> wrappers. Everything else
// is returned as is. Normalize(Normalize(x)) == Normalize(x).
func Normalize(raw string) string {
	if raw == "" {
		return raw
	}

	lines := strings.Split(raw, "\n")
	out := make([]string, 0, len(lines))

	var (
		stack    []fence
		inCode   string
		dropping int // depth of callouts currently open
	)

	for _, line := range lines {
		if inCode != "" {
			if m := codeFence.FindStringSubmatch(line); m != nil && strings.HasPrefix(m[1], inCode) {
				inCode = ""
			}
			if dropping == 0 {
				out = append(out, line)
			}
			continue
		}
		if m := codeFence.FindStringSubmatch(line); m != nil {
			inCode = m[1]
			if dropping == 0 {
				out = append(out, line)
			}
			continue
		}

		if m := fenceOpen.FindStringSubmatch(line); m != nil {
			f := fence{colons: len(m[1]), callout: isCallout(m[2])}
			stack = append(stack, f)
			if f.callout {
				dropping++
			}
			if dropping == 0 {
				out = append(out, line)
			}
			continue
		}

		if fenceClose.MatchString(line) && len(stack) > 0 {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			keep := dropping == 0
			if top.callout {
				dropping--
			}
			if keep {
				out = append(out, line)
			}
			continue
		}

		if dropping > 0 || htmlWrapper.MatchString(line) {
			continue
		}
		out = append(out, line)
	}

	return strings.Join(out, "\n")
}

// isCallout reports whether a fenced-div attribute block names a callout class.
func isCallout(attrs string) bool {
	attrs = strings.Trim(attrs, "{}")
	for _, tok := range strings.Fields(attrs) {
		tok = strings.TrimPrefix(tok, ".")
		for _, c := range CalloutClasses {
			if strings.EqualFold(tok, c) {
				return true
			}
		}
	}
	return false
}
