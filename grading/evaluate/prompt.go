/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package evaluate

import (
	"fmt"
	"strconv"
	"strings"

	"chainguard.dev/reportfeedback/agents/promptbuilder"
	"chainguard.dev/reportfeedback/grading/extract"
	"chainguard.dev/reportfeedback/grading/rubric"
)

// SystemPrompt is sent as the system message of every evaluation.
const SystemPrompt = "You are an expert instructor providing constructive, specific feedback on student technical reports in JSON format."

var criterionPrompt = promptbuilder.MustNewPrompt(`{{guidance}}

## Your Task
Evaluate the following criterion based on the relevant sections extracted from the student's report.

### {{name}} ({{weight}}%)
{{description}}

{{levels}}

## Output Format
Your response MUST be a single JSON object. Do not include any text outside of this JSON object.
The JSON object must have the following schema:
{{schema}}

{{scoring}}

## Report Sections Relevant to This Criterion
---
{{evidence}}
---
{{images}}`)

const (
	unscoredInstruction = "Base your feedback on the rubric levels provided. The 'overall_assessment' should be the exact rubric level name that best describes the work (e.g., 'Exemplary', 'Satisfactory', etc.)."
	scoredInstruction   = "Base your feedback and score on the rubric levels provided. The 'overall_assessment' should correspond to the rubric level that best describes the work. The 'score' must be an integer within the point range specified for that level in the rubric."
)

const imagesTemplate = `
## Images Provided
You have been provided with %d image(s) related to this criterion.
Please analyze these images and incorporate your visual observations into the feedback:

- For circuit schematics: Verify component values, connections, and proper symbols.
- For simulations: Check if waveforms match expectations, proper scaling, and labeling.
- For lab photos: Check for proper setup, wiring, and equipment configuration.

Reference specific images in your feedback (e.g., "In the schematic '%s'...")
`

// criterionFields binds the rubric entry of a criterion.
type criterionFields rubric.Criterion

func (c criterionFields) Bind(p *promptbuilder.Prompt) (*promptbuilder.Prompt, error) {
	return bindText(p, map[string]string{
		"name":        c.Name,
		"weight":      formatNumber(c.Weight),
		"description": c.Description,
		"levels":      formatLevels(c.Levels),
	})
}

// evidenceFields binds the guidance excerpt and extracted context.
type evidenceFields struct {
	guidance string
	cx       *extract.Context
}

func (e evidenceFields) Bind(p *promptbuilder.Prompt) (*promptbuilder.Prompt, error) {
	images := ""
	if len(e.cx.Images) > 0 {
		images = fmt.Sprintf(imagesTemplate, len(e.cx.Images), e.cx.Images[0].Name)
	}
	return bindText(p, map[string]string{
		"guidance": e.guidance,
		"evidence": e.cx.Text,
		"images":   images,
	})
}

// outputFields binds the reply schema and scoring instruction.
type outputFields struct {
	schema *feedbackSchema
	scored bool
}

func (o outputFields) Bind(p *promptbuilder.Prompt) (*promptbuilder.Prompt, error) {
	p, err := p.BindJSON("schema", o.schema.doc)
	if err != nil {
		return nil, err
	}
	if o.scored {
		return p.BindStringLiteral("scoring", scoredInstruction)
	}
	return p.BindStringLiteral("scoring", unscoredInstruction)
}

func bindText(p *promptbuilder.Prompt, values map[string]string) (*promptbuilder.Prompt, error) {
	var err error
	for name, value := range values {
		if p, err = p.BindText(name, value); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// buildPrompt renders the user prompt for criterion c from its guidance
// excerpt and extracted context.
func buildPrompt(guidance string, c rubric.Criterion, cx *extract.Context, s *feedbackSchema, scored bool) (string, error) {
	p, err := promptbuilder.BindAll(criterionPrompt,
		criterionFields(c),
		evidenceFields{guidance: guidance, cx: cx},
		outputFields{schema: s, scored: scored},
	)
	if err != nil {
		return "", fmt.Errorf("binding prompt: %w", err)
	}
	prompt, err := p.Build()
	if err != nil {
		return "", fmt.Errorf("building prompt: %w", err)
	}
	return strings.TrimLeft(prompt, "\n"), nil
}

func formatLevels(levels rubric.Levels) string {
	var sb strings.Builder
	for _, l := range levels {
		fmt.Fprintf(&sb, "- **%s** (Score: %s-%s): %s\n", l.Label, formatNumber(l.Lower), formatNumber(l.Upper), l.Description)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
