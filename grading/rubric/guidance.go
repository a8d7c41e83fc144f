/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package rubric

import (
	"strings"
)

const criterionHeading = "## CRITERION:"

// GuidanceFor cuts shared guidance down to what one criterion needs.
//
// Guidance in the two-part layout has a "# PART I" heading with general
// advice and a "# PART II" heading followed by one "## CRITERION: <name>"
// section per criterion. The result is Part I and the matching criterion
// section joined by a rule. Without a criterion section only Part I is
// returned, and guidance without the layout is returned whole.
func GuidanceFor(guidance string, c Criterion) string {
	lines := strings.Split(guidance, "\n")

	partOne, partTwo := -1, -1
	for i, line := range lines {
		upper := strings.ToUpper(strings.TrimSpace(line))
		if !strings.HasPrefix(upper, "#") {
			continue
		}
		// PART II contains PART I, so test it first.
		if strings.Contains(upper, "PART II") {
			partTwo = i
			break
		}
		if strings.Contains(upper, "PART I") {
			partOne = i
		}
	}
	if partTwo < 0 {
		return guidance
	}
	general := strings.Join(lines[max(partOne, 0):partTwo], "\n")

	start, end := -1, len(lines)
	for i := partTwo + 1; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		switch {
		case start < 0:
			if strings.HasPrefix(line, criterionHeading) &&
				strings.TrimSpace(strings.TrimPrefix(line, criterionHeading)) == strings.TrimSpace(c.Name) {
				start = i
			}
		case strings.HasPrefix(line, criterionHeading),
			strings.HasPrefix(line, "# ") && !strings.Contains(line, "CRITERION"):
			end = i
		}
		if start >= 0 && end < len(lines) {
			break
		}
	}
	if start < 0 {
		return strings.TrimSpace(general)
	}
	specific := strings.Join(lines[start:end], "\n")
	return strings.TrimSpace(general) + "\n\n---\n\n" + strings.TrimSpace(specific)
}
