/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package htmltext

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTextTable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		in     string
		want   string
		wantOK bool
	}{{
		name:   "header and data row",
		in:     `<table><tr><th>V</th><th>I</th></tr><tr><td>5.0</td><td>0.1</td></tr></table>`,
		want:   "| V | I |\n| --- | --- |\n| 5.0 | 0.1 |",
		wantOK: true,
	}, {
		name: "pandas rendering with style and div wrappers",
		in: `<div>
<style scoped>
    .dataframe tbody tr th { vertical-align: top; }
</style>
<table border="1" class="dataframe">
  <thead>
    <tr style="text-align: right;"><th></th><th>t</th><th>y</th></tr>
  </thead>
  <tbody>
    <tr><th>0</th><td>0.0</td><td>1.000</td></tr>
    <tr><th>1</th><td>0.1</td><td>0.905</td></tr>
  </tbody>
</table>
</div>`,
		want:   "|  | t | y |\n| --- | --- | --- |\n| 0 | 0.0 | 1.000 |\n| 1 | 0.1 | 0.905 |",
		wantOK: true,
	}, {
		name:   "no header promotes first row",
		in:     `<table><tr><td>a</td><td>b</td></tr><tr><td>1</td><td>2</td></tr></table>`,
		want:   "| a | b |\n| --- | --- |\n| 1 | 2 |",
		wantOK: true,
	}, {
		name:   "missing cells render empty",
		in:     `<table><tr><th>a</th><th>b</th><th>c</th></tr><tr><td>1</td></tr></table>`,
		want:   "| a | b | c |\n| --- | --- | --- |\n| 1 |  |  |",
		wantOK: true,
	}, {
		name:   "pipes in cells are escaped",
		in:     `<table><tr><th>x|y</th></tr><tr><td>1</td></tr></table>`,
		want:   "| x\\|y |\n| --- |\n| 1 |",
		wantOK: true,
	}, {
		name:   "colspan pads",
		in:     `<table><tr><th colspan="2">wide</th></tr><tr><td>1</td><td>2</td></tr></table>`,
		want:   "| wide |  |\n| --- | --- |\n| 1 | 2 |",
		wantOK: true,
	}, {
		name:   "no table",
		in:     `<p>Just text</p>`,
		wantOK: false,
	}, {
		name:   "empty",
		in:     ``,
		wantOK: false,
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := TextTable(tt.in)
			if ok != tt.wantOK {
				t.Fatalf("TextTable() ok = %v, want %v", ok, tt.wantOK)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("TextTable() mismatch (-want +got):\n%s", diff)
			}
			for _, remnant := range []string{"<style", "<div", "vertical-align"} {
				if strings.Contains(got, remnant) {
					t.Errorf("TextTable() output contains %q", remnant)
				}
			}
		})
	}
}

func TestTextTableMultiple(t *testing.T) {
	t.Parallel()

	in := `<table><tr><th>a</th></tr></table><p>between</p><table><tr><th>b</th></tr></table>`
	got, ok := TextTable(in)
	if !ok {
		t.Fatal("TextTable() ok = false, want true")
	}
	want := "| a |\n| --- |\n\n| b |\n| --- |"
	if got != want {
		t.Errorf("TextTable() = %q, want %q", got, want)
	}
}

func TestMarkdown(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{{
		name: "heading paragraph and list",
		in: `
    <h3>Analysis Results</h3>
    <p>The circuit performed <strong>within specifications</strong>.</p>
    <ul>
        <li>Voltage error: 0.4%</li>
        <li>Current error: 2.0%</li>
    </ul>`,
		want: "### Analysis Results\n\nThe circuit performed **within specifications**.\n\n- Voltage error: 0.4%\n- Current error: 2.0%",
	}, {
		name: "nested lists are indented",
		in:   `<ul><li>Outer<ul><li>Inner<ol><li>Deep</li></ol></li></ul></li><li>Second</li></ul>`,
		want: "- Outer\n  - Inner\n    1. Deep\n- Second",
	}, {
		name: "emphasis link and inline code",
		in:   `<p><em>slope</em> from <a href="https://example.com/fit">the fit</a> is <code>k=2</code></p>`,
		want: "*slope* from [the fit](https://example.com/fit) is `k=2`",
	}, {
		name: "pre becomes fenced code",
		in:   "<pre><code>x = 1\ny = 2\n</code></pre>",
		want: "```\nx = 1\ny = 2\n```",
	}, {
		name: "script and style dropped",
		in:   `<script>alert(1)</script><style>p{}</style><div><p>kept</p></div>`,
		want: "kept",
	}, {
		name: "tables inline",
		in:   `<p>Summary</p><table><tr><th>k</th></tr><tr><td>1</td></tr></table>`,
		want: "Summary\n\n| k |\n| --- |\n| 1 |",
	}, {
		name: "whitespace only",
		in:   "   \n ",
		want: "",
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if diff := cmp.Diff(tt.want, Markdown(tt.in)); diff != "" {
				t.Errorf("Markdown() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSplit(t *testing.T) {
	t.Parallel()

	in := `<div><p>Fit <b>results</b></p><table><tr><th>k</th></tr><tr><td>2.0</td></tr></table></div>`
	tables, rest := Split(in)
	if diff := cmp.Diff([]string{"| k |\n| --- |\n| 2.0 |"}, tables); diff != "" {
		t.Errorf("Split() tables mismatch (-want +got):\n%s", diff)
	}
	if rest != "Fit **results**" {
		t.Errorf("Split() rest = %q, want %q", rest, "Fit **results**")
	}

	tables, rest = Split(`<table><tr><td>only</td></tr></table>`)
	if len(tables) != 1 || rest != "" {
		t.Errorf("Split() = (%v, %q), want one table and empty rest", tables, rest)
	}
}
