/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package notebook

import (
	"encoding/json"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const analysisNotebook = `{
  "nbformat": 4,
  "nbformat_minor": 5,
  "metadata": {},
  "cells": [
    {
      "id": "intro",
      "cell_type": "markdown",
      "metadata": {},
      "source": ["# Analysis\n"]
    },
    {
      "id": "a1b2",
      "cell_type": "code",
      "metadata": {"tags": ["fit"]},
      "source": ["#| label: fig-voltage\n", "plt.plot(t, v)\n"],
      "outputs": [
        {"output_type": "stream", "name": "stdout", "text": ["slope = 2.01\n", "r2 = 0.998\n"]},
        {"output_type": "display_data", "data": {"image/png": "iVBORw0KGgo=", "text/plain": ["<Figure size 640x480 with 1 Axes>"]}, "metadata": {}}
      ]
    },
    {
      "id": "c3d4",
      "cell_type": "code",
      "metadata": {"label": "tbl-data"},
      "source": "df",
      "outputs": [
        {"output_type": "execute_result", "execution_count": 2, "metadata": {},
         "data": {
           "text/html": "<div><style scoped>.x{}</style><table><thead><tr><th>V</th><th>I</th></tr></thead><tbody><tr><td>5.0</td><td>0.1</td></tr></tbody></table></div>",
           "text/plain": "     V    I\n0  5.0  0.1"
         }}
      ]
    },
    {
      "id": "e5f6",
      "cell_type": "code",
      "metadata": {},
      "source": "display(Latex(...))",
      "outputs": [
        {"output_type": "display_data", "metadata": {}, "data": {"text/latex": "$$V = IR$$", "text/plain": "<IPython.core.display.Latex object>"}},
        {"output_type": "error", "ename": "ValueError", "evalue": "bad fit", "traceback": []}
      ]
    }
  ]
}`

var voltagePlot = []Image{{MediaType: "image/png", Data: "iVBORw0KGgo="}}

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"analysis.ipynb":       {Data: []byte(analysisNotebook)},
		"lab/raw.ipynb":        {Data: []byte(`{"nbformat": 4, "cells": [{"id": "x", "cell_type": "code", "metadata": {}, "source": "", "outputs": []}]}`)},
		"lab/raw_output.ipynb": {Data: []byte(`{"nbformat": 4, "cells": [{"id": "x", "cell_type": "code", "metadata": {}, "source": "", "outputs": [{"output_type": "stream", "name": "stdout", "text": "rendered\n"}]}]}`)},
		"broken.ipynb":         {Data: []byte(`{"cells": [`)},
	}
}

func TestResolveCellMatching(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		ref         string
		wantMatcher string
		want        Bundle
	}{{
		name:        "by id",
		ref:         "c3d4",
		wantMatcher: "id",
		want:        Bundle{Tables: []string{"| V | I |\n| --- | --- |\n| 5.0 | 0.1 |"}},
	}, {
		name:        "by metadata label",
		ref:         "tbl-data",
		wantMatcher: "label",
		want:        Bundle{Tables: []string{"| V | I |\n| --- | --- |\n| 5.0 | 0.1 |"}},
	}, {
		name:        "by source label option",
		ref:         "fig-voltage",
		wantMatcher: "label",
		want:        Bundle{Text: []string{"slope = 2.01\nr2 = 0.998"}, Images: voltagePlot},
	}, {
		name:        "by tag",
		ref:         "fit",
		wantMatcher: "tag",
		want:        Bundle{Text: []string{"slope = 2.01\nr2 = 0.998"}, Images: voltagePlot},
	}, {
		name:        "unknown ref falls back to every cell",
		ref:         "cell-7",
		wantMatcher: MatchAll,
		want: Bundle{
			Tables:   []string{"| V | I |\n| --- | --- |\n| 5.0 | 0.1 |"},
			Text:     []string{"slope = 2.01\nr2 = 0.998", "ValueError: bad fit"},
			RichText: []string{"$$V = IR$$"},
			Images:   voltagePlot,
		},
	}, {
		name:        "empty ref selects every cell",
		ref:         "",
		wantMatcher: MatchAll,
		want: Bundle{
			Tables:   []string{"| V | I |\n| --- | --- |\n| 5.0 | 0.1 |"},
			Text:     []string{"slope = 2.01\nr2 = 0.998", "ValueError: bad fit"},
			RichText: []string{"$$V = IR$$"},
			Images:   voltagePlot,
		},
	}}

	r := Resolver{FS: testFS()}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res, err := r.Resolve("analysis.ipynb", tt.ref)
			require.NoError(t, err)
			if res.Matcher != tt.wantMatcher {
				t.Errorf("Matcher = %q, want %q", res.Matcher, tt.wantMatcher)
			}
			if got := res.Fallback(); got != (tt.wantMatcher == MatchAll) {
				t.Errorf("Fallback() = %v", got)
			}
			if diff := cmp.Diff(tt.want, res.Bundle); diff != "" {
				t.Errorf("Bundle mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResolvePrefersRenderedSibling(t *testing.T) {
	t.Parallel()

	r := Resolver{FS: testFS()}
	res, err := r.Resolve("./lab/raw.ipynb", "x")
	require.NoError(t, err)
	if res.Path != "lab/raw_output.ipynb" {
		t.Errorf("Path = %q, want lab/raw_output.ipynb", res.Path)
	}
	if diff := cmp.Diff([]string{"rendered"}, res.Bundle.Text); diff != "" {
		t.Errorf("Text mismatch (-want +got):\n%s", diff)
	}

	// With only the source candidate the raw notebook is read.
	r.Candidates = []Candidate{Source}
	res, err = r.Resolve("lab/raw.ipynb", "x")
	require.NoError(t, err)
	if res.Path != "lab/raw.ipynb" || !res.Bundle.Empty() {
		t.Errorf("Resolve() = %+v, want empty bundle from lab/raw.ipynb", res)
	}
}

func TestResolveErrors(t *testing.T) {
	t.Parallel()

	r := Resolver{FS: testFS()}
	for _, name := range []string{"missing.ipynb", "broken.ipynb", "../outside.ipynb"} {
		if _, err := r.Resolve(name, "x"); err == nil {
			t.Errorf("Resolve(%q) = nil error, want error", name)
		}
	}
}

func TestRendered(t *testing.T) {
	t.Parallel()

	tests := []struct {
		suffix, in, want string
	}{
		{"_output", "fit.ipynb", "fit_output.ipynb"},
		{"-output", "lab/fit.ipynb", "lab/fit-output.ipynb"},
		{".output", "a.b.ipynb", "a.b.output.ipynb"},
		{"_output", "noext", ""},
	}
	for _, tt := range tests {
		if got := Rendered(tt.suffix)(tt.in); got != tt.want {
			t.Errorf("Rendered(%q)(%q) = %q, want %q", tt.suffix, tt.in, got, tt.want)
		}
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		out      Output
		wantKind Kind
		wantText string
		wantOK   bool
	}{{
		name:     "stream",
		out:      Output{OutputType: "stream", Text: "hello\n"},
		wantKind: KindText,
		wantText: "hello\n",
		wantOK:   true,
	}, {
		name:   "empty stream",
		out:    Output{OutputType: "stream"},
		wantOK: false,
	}, {
		name: "markdown beats plain",
		out: Output{OutputType: "execute_result", Data: map[string]json.RawMessage{
			"text/markdown": []byte(`"**bold**"`),
			"text/plain":    []byte(`"<Markdown>"`),
		}},
		wantKind: KindMarkdown,
		wantText: "**bold**",
		wantOK:   true,
	}, {
		name:     "error",
		out:      Output{OutputType: "error", EName: "KeyError", EValue: "'x'"},
		wantKind: KindError,
		wantText: "KeyError: 'x'",
		wantOK:   true,
	}, {
		name: "image repr skipped",
		out: Output{OutputType: "display_data", Data: map[string]json.RawMessage{
			"image/png":  []byte(`"AAAA"`),
			"text/plain": []byte(`"<Figure size 640x480 with 1 Axes>"`),
		}},
		wantOK: false,
	}, {
		name:   "unknown output type",
		out:    Output{OutputType: "update_display_data"},
		wantOK: false,
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			kind, text, ok := Classify(tt.out)
			if ok != tt.wantOK {
				t.Fatalf("Classify() ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if kind != tt.wantKind || text != tt.wantText {
				t.Errorf("Classify() = (%v, %q), want (%v, %q)", kind, text, tt.wantKind, tt.wantText)
			}
		})
	}
}

func TestHandlersCoverEveryKind(t *testing.T) {
	t.Parallel()

	for k := KindText; k <= KindError; k++ {
		if _, ok := handlers[k]; !ok {
			t.Errorf("no handler for kind %v", k)
		}
	}
}

func TestImageOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		out    Output
		want   Image
		wantOK bool
	}{{
		name: "png with line breaks",
		out: Output{OutputType: "display_data", Data: map[string]json.RawMessage{
			"image/png":  []byte(`["iVBO\n", "Rw0K\n"]`),
			"text/plain": []byte(`"<Figure size 640x480 with 1 Axes>"`),
		}},
		want:   Image{MediaType: "image/png", Data: "iVBORw0K"},
		wantOK: true,
	}, {
		name: "jpeg result",
		out: Output{OutputType: "execute_result", Data: map[string]json.RawMessage{
			"image/jpeg": []byte(`"/9j/4AAQ"`),
		}},
		want:   Image{MediaType: "image/jpeg", Data: "/9j/4AAQ"},
		wantOK: true,
	}, {
		name: "svg is not kept",
		out: Output{OutputType: "display_data", Data: map[string]json.RawMessage{
			"image/svg+xml": []byte(`"<svg/>"`),
		}},
	}, {
		name: "stream",
		out:  Output{OutputType: "stream", Text: "iVBORw0K"},
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := ImageOf(tt.out)
			if ok != tt.wantOK {
				t.Fatalf("ImageOf() ok = %v, want %v", ok, tt.wantOK)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ImageOf() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
