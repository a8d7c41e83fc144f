/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package render

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	"chainguard.dev/reportfeedback/grading/evaluate"
)

// newTable returns a Markdown table writer with left-aligned cells.
func newTable(headers []string, w io.Writer) *tablewriter.Table {
	cfg := tablewriter.Config{
		Header: tw.CellConfig{
			Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			Formatting: tw.CellFormatting{AutoFormat: tw.Off},
		},
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignLeft},
		},
		Behavior: tw.Behavior{TrimSpace: tw.Off},
	}
	return tablewriter.NewTable(w,
		tablewriter.WithConfig(cfg),
		tablewriter.WithHeader(headers),
		tablewriter.WithRenderer(renderer.NewBlueprint()),
		tablewriter.WithRendition(tw.Rendition{
			Symbols: tw.NewSymbols(tw.StyleMarkdown),
			Borders: tw.Border{
				Left:   tw.On,
				Top:    tw.Off,
				Right:  tw.On,
				Bottom: tw.Off,
			},
		}),
		tablewriter.WithRowAutoWrap(tw.WrapNone),
	)
}

// Summary writes one row per criterion with its status, model and tokens,
// followed by the run totals.
func Summary(w io.Writer, out *evaluate.Outcome) error {
	table := newTable([]string{"#", "Criterion", "Status", "Model", "Tokens"}, w)
	for _, res := range out.Results {
		status, modelName, tokens := string(res.Final()), "", "-"
		switch {
		case res.Success != nil:
			modelName, tokens = res.Success.ModelUsed, strconv.Itoa(res.Success.TokensUsed)
		case res.Failure != nil:
			status = fmt.Sprintf("%s (%s)", evaluate.Failed, res.Failure.ErrorKind)
			modelName = res.Failure.Model
		}
		if err := table.Append([]string{strconv.Itoa(res.Index), res.Name, status, modelName, tokens}); err != nil {
			return fmt.Errorf("appending row: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("rendering summary: %w", err)
	}
	_, err := fmt.Fprintf(w, "\n%d succeeded, %d failed, %d tokens\n", out.Succeeded, out.Failed, out.TotalTokens())
	return err
}
