/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package htmltext

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// TextTable converts every <table> in the fragment into a pipe-delimited text
// table. Multiple tables are separated by a blank line. The boolean is false
// when the fragment holds no table; that is not an error.
func TextTable(fragment string) (string, bool) {
	tables := Tables(fragment)
	if len(tables) == 0 {
		return "", false
	}
	return strings.Join(tables, "\n\n"), true
}

// Tables returns one converted text table per <table> element, in document
// order. Tables nested inside table cells are flattened into their cell text.
func Tables(fragment string) []string {
	nodes, err := parse(fragment)
	if err != nil {
		return nil
	}
	var out []string
	for _, n := range nodes {
		walkTables(n, func(t *html.Node) {
			if s := renderTable(t); s != "" {
				out = append(out, s)
			}
		})
	}
	return out
}

// walkTables calls fn for each outermost table under n.
func walkTables(n *html.Node, fn func(*html.Node)) {
	if n.Type == html.ElementNode && n.DataAtom == atom.Table {
		fn(n)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkTables(c, fn)
	}
}

type row struct {
	cells  []string
	header bool
}

func renderTable(table *html.Node) string {
	var rows []row
	collectRows(table, false, &rows)
	if len(rows) == 0 {
		return ""
	}

	width := 0
	for _, r := range rows {
		width = max(width, len(r.cells))
	}
	if width == 0 {
		return ""
	}

	// Leading header rows form the header block. Without any, the first row
	// is promoted.
	headerRows := 0
	for headerRows < len(rows) && rows[headerRows].header {
		headerRows++
	}
	if headerRows == 0 {
		headerRows = 1
	}

	var sb strings.Builder
	for i, r := range rows {
		writeRow(&sb, r.cells, width)
		if i == headerRows-1 {
			sep := make([]string, width)
			for j := range sep {
				sep[j] = "---"
			}
			writeRow(&sb, sep, width)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func writeRow(sb *strings.Builder, cells []string, width int) {
	sb.WriteString("|")
	for i := range width {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		sb.WriteString(" ")
		sb.WriteString(cell)
		sb.WriteString(" |")
	}
	sb.WriteString("\n")
}

// collectRows gathers <tr> rows under n without descending into nested tables.
func collectRows(n *html.Node, inHead bool, rows *[]row) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.DataAtom {
		case atom.Thead:
			collectRows(c, true, rows)
		case atom.Tbody, atom.Tfoot:
			collectRows(c, false, rows)
		case atom.Tr:
			*rows = append(*rows, readRow(c, inHead))
		}
	}
}

func readRow(tr *html.Node, inHead bool) row {
	r := row{header: inHead}
	allHeaders := true
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || (c.DataAtom != atom.Td && c.DataAtom != atom.Th) {
			continue
		}
		if c.DataAtom == atom.Td {
			allHeaders = false
		}
		text := strings.ReplaceAll(cellText(c), "|", `\|`)
		r.cells = append(r.cells, text)
		for range colspan(c) - 1 {
			r.cells = append(r.cells, "")
		}
	}
	if len(r.cells) > 0 && allHeaders {
		r.header = true
	}
	return r
}

func colspan(n *html.Node) int {
	for _, a := range n.Attr {
		if a.Key == "colspan" {
			if v, err := strconv.Atoi(a.Val); err == nil && v > 1 && v <= 64 {
				return v
			}
		}
	}
	return 1
}

// cellText is the whitespace-collapsed text content of n.
func cellText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			sb.WriteString(n.Data)
		case n.Type == html.ElementNode && n.DataAtom == atom.Br:
			sb.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}
