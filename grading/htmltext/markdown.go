/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package htmltext

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var blankRuns = regexp.MustCompile(`\n{3,}`)

// Markdown converts an HTML fragment into Markdown. Tables become pipe
// tables, lists keep their nesting as indentation, <pre> becomes a fenced
// code block, and emphasis, inline code and links keep their Markdown form.
func Markdown(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}
	nodes, err := parse(fragment)
	if err != nil {
		return ""
	}
	r := &renderer{}
	for _, n := range nodes {
		r.block(n, 0)
	}
	return tidy(r.sb.String())
}

// Split separates the tables of a fragment from the rest of its content.
// The tables are converted as with Tables. rest is the Markdown rendering of
// everything else, or "" when nothing else is left.
func Split(fragment string) (tables []string, rest string) {
	nodes, err := parse(fragment)
	if err != nil {
		return nil, ""
	}
	r := &renderer{skipTables: true}
	for _, n := range nodes {
		walkTables(n, func(t *html.Node) {
			if s := renderTable(t); s != "" {
				tables = append(tables, s)
			}
		})
		r.block(n, 0)
	}
	return tables, tidy(r.sb.String())
}

func tidy(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	return strings.TrimSpace(blankRuns.ReplaceAllString(strings.Join(lines, "\n"), "\n\n"))
}

type renderer struct {
	sb         strings.Builder
	skipTables bool
}

// block renders n as block-level Markdown. depth is the list nesting depth.
func (r *renderer) block(n *html.Node, depth int) {
	switch n.Type {
	case html.TextNode:
		text := collapse(n.Data)
		if r.sb.Len() == 0 || strings.HasSuffix(r.sb.String(), "\n") {
			text = strings.TrimLeft(text, " ")
		}
		r.sb.WriteString(text)
		return
	case html.ElementNode:
	default:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			r.block(c, depth)
		}
		return
	}

	switch n.DataAtom {
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		level := int(n.Data[1] - '0')
		fmt.Fprintf(&r.sb, "\n\n%s %s\n\n", strings.Repeat("#", level), r.inline(n))
	case atom.P:
		fmt.Fprintf(&r.sb, "\n\n%s\n\n", r.inline(n))
	case atom.Br:
		r.sb.WriteString("\n")
	case atom.Hr:
		r.sb.WriteString("\n\n---\n\n")
	case atom.Pre:
		fmt.Fprintf(&r.sb, "\n\n```\n%s\n```\n\n", strings.Trim(rawText(n), "\n"))
	case atom.Blockquote:
		var inner renderer
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			inner.block(c, depth)
		}
		lines := strings.Split(tidy(inner.sb.String()), "\n")
		for i, l := range lines {
			lines[i] = "> " + l
		}
		fmt.Fprintf(&r.sb, "\n\n%s\n\n", strings.Join(lines, "\n"))
	case atom.Ul, atom.Ol:
		if depth == 0 {
			r.sb.WriteString("\n\n")
		}
		r.list(n, depth)
		if depth == 0 {
			r.sb.WriteString("\n")
		}
	case atom.Table:
		if r.skipTables {
			return
		}
		if s := renderTable(n); s != "" {
			fmt.Fprintf(&r.sb, "\n\n%s\n\n", s)
		}
	case atom.Strong, atom.B, atom.Em, atom.I, atom.Code, atom.A:
		r.sb.WriteString(r.inlineNode(n))
	default:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			r.block(c, depth)
		}
	}
}

// list renders the <li> children of a <ul> or <ol>. Nested lists are
// indented two spaces per level.
func (r *renderer) list(n *html.Node, depth int) {
	ordered := n.DataAtom == atom.Ol
	indent := strings.Repeat("  ", depth)
	i := 0
	for li := n.FirstChild; li != nil; li = li.NextSibling {
		if li.Type != html.ElementNode || li.DataAtom != atom.Li {
			continue
		}
		i++
		marker := "-"
		if ordered {
			marker = fmt.Sprintf("%d.", i)
		}

		var text strings.Builder
		var nested []*html.Node
		for c := li.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && (c.DataAtom == atom.Ul || c.DataAtom == atom.Ol) {
				nested = append(nested, c)
				continue
			}
			text.WriteString(r.inlineNode(c))
		}
		fmt.Fprintf(&r.sb, "%s%s %s\n", indent, marker, strings.TrimSpace(collapse(text.String())))
		for _, sub := range nested {
			r.list(sub, depth+1)
		}
	}
}

// inline renders the children of n as a single line of inline Markdown.
func (r *renderer) inline(n *html.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(r.inlineNode(c))
	}
	return strings.TrimSpace(sb.String())
}

func (r *renderer) inlineNode(n *html.Node) string {
	switch n.Type {
	case html.TextNode:
		return collapse(n.Data)
	case html.ElementNode:
	default:
		return ""
	}

	switch n.DataAtom {
	case atom.Strong, atom.B:
		return wrap("**", r.inline(n))
	case atom.Em, atom.I:
		return wrap("*", r.inline(n))
	case atom.Code:
		return wrap("`", rawText(n))
	case atom.A:
		text := r.inline(n)
		href := attr(n, "href")
		if href == "" {
			return text
		}
		if text == "" {
			text = href
		}
		return fmt.Sprintf("[%s](%s)", text, href)
	case atom.Br:
		return "\n"
	default:
		return r.inline(n)
	}
}

func wrap(marker, s string) string {
	if s == "" {
		return ""
	}
	return marker + s + marker
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// rawText returns the text content of n with whitespace preserved.
func rawText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// collapse folds runs of whitespace into single spaces, keeping a leading or
// trailing space so adjacent inline nodes stay separated.
func collapse(s string) string {
	if s == "" {
		return ""
	}
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return " "
	}
	out := strings.Join(fields, " ")
	if isSpace(s[0]) {
		out = " " + out
	}
	if isSpace(s[len(s)-1]) {
		out += " "
	}
	return out
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\n' || b == '\t' || b == '\r' || b == '\f'
}
