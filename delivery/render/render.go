/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package render formats an evaluation outcome as Markdown for students.
package render

import (
	"fmt"
	"strings"
	"time"

	"chainguard.dev/reportfeedback/grading/document"
	"chainguard.dev/reportfeedback/grading/evaluate"
	"chainguard.dev/reportfeedback/grading/rubric"
)

// DefaultTitle is the issue title template. {tag_name} and {date} are
// replaced by Title.
const DefaultTitle = "📋 Feedback: {tag_name} ({date})"

// Options controls what the issue body shows.
type Options struct {
	// Scoring shows each criterion's score out of its weight.
	Scoring bool
	// TagName is the release tag or ref the feedback was requested for.
	TagName string
	// Model is the primary model name shown in the header and footer.
	Model string
	// RubricURL is linked from the footer when set.
	RubricURL string
	// Generated is shown in the header. The zero time omits the request
	// line, as in local previews.
	Generated time.Time
}

// Title expands the {tag_name} and {date} placeholders of template.
func Title(template, tagName string, date time.Time) string {
	if template == "" {
		template = DefaultTitle
	}
	return strings.NewReplacer("{tag_name}", tagName, "{date}", date.Format(time.DateOnly)).Replace(template)
}

// IssueBody renders the header, one block per criterion in rubric order and
// the footer.
func IssueBody(out *evaluate.Outcome, r *rubric.Rubric, stats document.Stats, opts Options) string {
	var sb strings.Builder
	sb.WriteString("## 🤖 AI Report Feedback\n")
	if !opts.Generated.IsZero() {
		g := opts.Generated.UTC()
		fmt.Fprintf(&sb, "> **Requested**: `%s` • **Generated**: %s at %s\n", opts.TagName, g.Format(time.DateOnly), g.Format("15:04:05 UTC"))
		fmt.Fprintf(&sb, "> **Model**: %s\n", opts.Model)
	}
	sb.WriteString("\n---\n\n")

	for _, res := range out.Results {
		weight := 0.0
		if c, ok := r.Find(res.CriterionID); ok {
			weight = c.Weight
		}
		sb.WriteString(Criterion(res, weight, opts.Scoring))
		sb.WriteString("\n---\n\n")
	}
	sb.WriteString(footer(stats, opts))
	return sb.String()
}

// Criterion renders the block of one criterion. A failed criterion shows
// its error in place of feedback.
func Criterion(res evaluate.Result, weight float64, scoring bool) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "### %s\n\n", res.Name)
	if res.Success == nil {
		kind, msg := "unknown", "No details available."
		if res.Failure != nil {
			kind, msg = string(res.Failure.ErrorKind), res.Failure.Message
		}
		fmt.Fprintf(&sb, "**Error generating feedback:** %s: %s\n", kind, msg)
		return sb.String()
	}

	fb := res.Success.Feedback
	level := fb.OverallAssessment
	if level == "" {
		level = "N/A"
	}
	fmt.Fprintf(&sb, "**Assessment:** `%s`\n", level)
	if scoring {
		score := "N/A"
		if fb.Score != nil {
			score = fmt.Sprint(*fb.Score)
		}
		fmt.Fprintf(&sb, "**Score:** `%s / %g`\n", score, weight)
	}
	sb.WriteString("\n")
	if s := strings.TrimSpace(fb.Summary); s != "" {
		fmt.Fprintf(&sb, "> %s\n\n", strings.ReplaceAll(s, "\n", "\n> "))
	}
	if len(fb.Strengths) > 0 {
		sb.WriteString("**Strengths:**\n")
		for _, s := range fb.Strengths {
			fmt.Fprintf(&sb, "- %s\n", s)
		}
		sb.WriteString("\n")
	}
	if len(fb.AreasForImprovement) > 0 {
		sb.WriteString("**Areas for Improvement:**\n")
		for _, a := range fb.AreasForImprovement {
			issue := a.Issue
			if issue == "" {
				issue = "Suggestion"
			}
			fmt.Fprintf(&sb, "- **%s:** %s\n", issue, a.Suggestion)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func footer(stats document.Stats, opts Options) string {
	var sb strings.Builder
	if opts.RubricURL != "" {
		fmt.Fprintf(&sb, "### 📚 Resources\n- [View Rubric](%s)\n\n", opts.RubricURL)
	}
	sb.WriteString("### 📋 Report Statistics\n| Metric | Count |\n|--------|-------|\n")
	for _, row := range []struct {
		name  string
		count int
	}{
		{"Words", stats.Words},
		{"Sections", stats.Sections},
		{"Figures", stats.Figures},
		{"Code blocks", stats.CodeBlocks},
		{"Equations", stats.Equations},
		{"Notebook embeds", stats.NotebookEmbeds},
	} {
		fmt.Fprintf(&sb, "| %s | %d |\n", row.name, row.count)
	}
	model := opts.Model
	if model == "" {
		model = "unknown model"
	}
	fmt.Fprintf(&sb, "\n---\n*🤖 Powered by [GitHub Models](https://github.com/features/models) (%s).*\n", model)
	return sb.String()
}

// RubricURL returns the blob URL of the rubric file at ref.
func RubricURL(repository, ref, file string) string {
	if repository == "" {
		return ""
	}
	return fmt.Sprintf("https://github.com/%s/blob/%s/%s", repository, ref, strings.TrimPrefix(file, "/"))
}
