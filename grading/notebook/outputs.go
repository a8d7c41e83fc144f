/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package notebook

import (
	"strings"
	"unicode"

	"chainguard.dev/reportfeedback/grading/htmltext"
)

// Bundle is the classified output of one or more cells. Each list keeps the
// emission order of the source cells.
type Bundle struct {
	Tables   []string `json:"tables,omitempty"`
	Text     []string `json:"text,omitempty"`
	RichText []string `json:"rich_text,omitempty"`
	// Images are the rendered figures. They are kept out of JSON dumps.
	Images []Image `json:"-"`
}

// Image is a figure payload from a display_data or execute_result output.
type Image struct {
	MediaType string
	// Data is the base64 payload with line breaks removed.
	Data string
}

// Empty reports whether the bundle holds no output at all.
func (b Bundle) Empty() bool {
	return !b.Textual() && len(b.Images) == 0
}

// Textual reports whether the bundle holds any table or text output.
func (b Bundle) Textual() bool {
	return len(b.Tables) > 0 || len(b.Text) > 0 || len(b.RichText) > 0
}

// Kind is the closed set of output payload kinds.
type Kind int

const (
	// KindText is stream output or a text/plain result.
	KindText Kind = iota
	// KindHTML is a text/html result, usually a data-frame rendering.
	KindHTML
	// KindMarkdown is a text/markdown result.
	KindMarkdown
	// KindLaTeX is a text/latex result.
	KindLaTeX
	// KindError is a raised exception.
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindHTML:
		return "html"
	case KindMarkdown:
		return "markdown"
	case KindLaTeX:
		return "latex"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// mimeKinds is the rich-output precedence. text/plain comes last because
// every rich output also carries a plain fallback.
var mimeKinds = []struct {
	mime string
	kind Kind
}{
	{"text/html", KindHTML},
	{"text/markdown", KindMarkdown},
	{"text/latex", KindLaTeX},
	{"text/plain", KindText},
}

// Classify returns the kind and payload of an output. ok is false for
// outputs with nothing textual to contribute, such as a figure whose only
// text is its "<Figure size ...>" repr.
func Classify(o Output) (kind Kind, payload string, ok bool) {
	switch o.OutputType {
	case "stream":
		return KindText, string(o.Text), o.Text != ""
	case "error":
		return KindError, o.EName + ": " + o.EValue, true
	case "execute_result", "display_data":
		for _, mk := range mimeKinds {
			s, found := o.Payload(mk.mime)
			if !found {
				continue
			}
			if mk.kind == KindText && o.HasImage() {
				return 0, "", false
			}
			return mk.kind, s, strings.TrimSpace(s) != ""
		}
	}
	return 0, "", false
}

// imageMIMEs are the figure formats kept from outputs, in preference order.
var imageMIMEs = []string{"image/png", "image/jpeg"}

// ImageOf returns the figure carried by an output, if any.
func ImageOf(o Output) (Image, bool) {
	if o.OutputType != "display_data" && o.OutputType != "execute_result" {
		return Image{}, false
	}
	for _, mime := range imageMIMEs {
		s, found := o.Payload(mime)
		if !found {
			continue
		}
		data := strings.Map(func(r rune) rune {
			if unicode.IsSpace(r) {
				return -1
			}
			return r
		}, s)
		if data == "" {
			continue
		}
		return Image{MediaType: mime, Data: data}, true
	}
	return Image{}, false
}

// handlers holds exactly one handler per Kind.
var handlers = map[Kind]func(*Bundle, string){
	KindText: func(b *Bundle, s string) {
		b.Text = append(b.Text, strings.TrimRight(s, "\n"))
	},
	KindHTML: func(b *Bundle, s string) {
		tables, rest := htmltext.Split(s)
		b.Tables = append(b.Tables, tables...)
		if rest != "" {
			b.RichText = append(b.RichText, rest)
		}
	},
	KindMarkdown: func(b *Bundle, s string) {
		b.RichText = append(b.RichText, strings.TrimSpace(s))
	},
	KindLaTeX: func(b *Bundle, s string) {
		b.RichText = append(b.RichText, strings.TrimSpace(s))
	},
	KindError: func(b *Bundle, s string) {
		b.Text = append(b.Text, s)
	},
}

// Extract classifies the outputs of cells, in order, into a Bundle. Figures
// are collected alongside whatever text the same output carries.
func Extract(cells []Cell) Bundle {
	var b Bundle
	for _, c := range cells {
		for _, o := range c.Outputs {
			if img, ok := ImageOf(o); ok {
				b.Images = append(b.Images, img)
			}
			kind, payload, ok := Classify(o)
			if !ok {
				continue
			}
			handlers[kind](&b, payload)
		}
	}
	return b
}
