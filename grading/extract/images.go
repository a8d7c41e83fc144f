/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package extract

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // register decoder
	"image/jpeg"
	"image/png"
	"io/fs"
	"path"
	"regexp"
	"slices"
	"strings"

	"github.com/chainguard-dev/clog"
	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register decoder

	"chainguard.dev/reportfeedback/agents/model"
	"chainguard.dev/reportfeedback/grading/document"
	"chainguard.dev/reportfeedback/grading/rubric"
)

// supportedMedia are the image types vision models accept.
var supportedMedia = []string{"image/png", "image/jpeg", "image/gif", "image/webp"}

const (
	baseImageTokens = 85
	tileTokens      = 170
	tileSize        = 512
	maxSide         = 2048
)

// ImageTokens estimates the cost of a width x height image sent at full
// detail: a base cost plus a cost per 512px tile, after the image is scaled
// down to maxDim (when > 0) and to fit 2048x2048.
func ImageTokens(width, height, maxDim int) int {
	w, h := fitWithin(width, height, maxDim)
	w, h = fitWithin(w, h, maxSide)
	tiles := ((w + tileSize - 1) / tileSize) * ((h + tileSize - 1) / tileSize)
	return baseImageTokens + tileTokens*tiles
}

// fitWithin scales w x h so its longer side is at most limit, keeping the
// aspect ratio. limit <= 0 leaves the size unchanged.
func fitWithin(w, h, limit int) (int, int) {
	if limit <= 0 || (w <= limit && h <= limit) {
		return w, h
	}
	if w >= h {
		return limit, max(1, h*limit/w)
	}
	return max(1, w*limit/h), limit
}

var nameWord = regexp.MustCompile(`\w+`)

type imageCandidate struct {
	name string
	load func() ([]byte, error)
	// embedded is set for figures rendered by a notebook embed in an
	// included section. They rank ahead of every report figure.
	embedded bool
	priority int
	matched  bool
}

// selectImages ranks the figures associated with the criterion, caps them at
// MaxImages, and accepts them in rank order while the running cost fits
// budget. Acceptance stops at the first image that does not fit.
//
// Figures produced by notebook embeds inside the included sections come
// first. Report figures follow when their caption mentions the criterion,
// they sit in an included section, or they match an artifact pattern.
func (x *Extractor) selectImages(ctx context.Context, doc *document.Document, c rubric.Criterion, sections []int, budget int) ([]model.Image, int) {
	if budget <= 0 {
		return nil, 0
	}
	log := clog.FromContext(ctx).With("criterion", c.ID)
	v := x.cfg.Vision

	var ranked []imageCandidate
	seen := map[string]bool{}
	for _, i := range sections {
		for _, rec := range recordsIn(doc, doc.Sections[i]) {
			if seen[rec.Directive] {
				continue
			}
			seen[rec.Directive] = true
			for n, img := range rec.Outputs.Images {
				name := rec.Directive
				if len(rec.Outputs.Images) > 1 {
					name = fmt.Sprintf("%s [%d]", rec.Directive, n+1)
				}
				ranked = append(ranked, imageCandidate{
					name: name,
					load: func() ([]byte, error) {
						return base64.StdEncoding.DecodeString(img.Data)
					},
					embedded: true,
					priority: priority(rec.Directive, v.Priority),
				})
			}
		}
	}

	if x.fsys != nil {
		terms := lowered(c.Keywords)
		terms = append(terms, lowered(nameWord.FindAllString(c.Name, -1))...)
		for _, f := range doc.Figures {
			matched := containsAny(strings.ToLower(f.Caption), terms)
			if !matched && !slices.Contains(sections, f.Section) && !matchesArtifact(c.ArtifactPatterns, f) {
				continue
			}
			ranked = append(ranked, imageCandidate{
				name:     f.Path,
				load:     func() ([]byte, error) { return x.readImage(f.Path) },
				priority: priority(path.Base(f.Path)+" "+f.Caption, v.Priority),
				matched:  matched,
			})
		}
	}

	slices.SortStableFunc(ranked, func(a, b imageCandidate) int {
		if a.embedded != b.embedded {
			if a.embedded {
				return -1
			}
			return 1
		}
		if a.priority != b.priority {
			return a.priority - b.priority
		}
		switch {
		case a.matched && !b.matched:
			return -1
		case b.matched && !a.matched:
			return 1
		}
		return 0
	})

	var (
		images []model.Image
		used   int
	)
	for _, cand := range ranked {
		if v.MaxImages > 0 && len(images) >= v.MaxImages {
			break
		}
		data, err := cand.load()
		if err != nil {
			log.Warnf("Skipping image %s: %v", cand.name, err)
			continue
		}
		img, cost, err := x.encodeImage(cand.name, data)
		if err != nil {
			log.Warnf("Skipping image %s: %v", cand.name, err)
			continue
		}
		if used+cost > budget {
			log.Infof("Image %s (~%d tokens) would exceed the image budget of %d", cand.name, cost, budget)
			break
		}
		images = append(images, img)
		used += cost
	}
	return images, used
}

// priority is the index of the first priority keyword found in text, or
// len(keywords) when none is.
func priority(text string, keywords []string) int {
	text = strings.ToLower(text)
	for i, k := range keywords {
		if k != "" && strings.Contains(text, strings.ToLower(k)) {
			return i
		}
	}
	return len(keywords)
}

// readImage reads a report figure from the image filesystem.
func (x *Extractor) readImage(name string) ([]byte, error) {
	p := strings.TrimPrefix(path.Clean(name), "./")
	if strings.Contains(p, "://") || !fs.ValidPath(p) {
		return nil, errors.New("not a local path")
	}
	return fs.ReadFile(x.fsys, p)
}

// encodeImage validates, optionally downscales and encodes one image.
func (x *Extractor) encodeImage(name string, data []byte) (model.Image, int, error) {
	media := mimetype.Detect(data).String()
	if !slices.Contains(supportedMedia, media) {
		return model.Image{}, 0, fmt.Errorf("unsupported image type %s", media)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return model.Image{}, 0, fmt.Errorf("decoding image header: %w", err)
	}

	maxDim := x.cfg.Vision.ResizeMaxDimension
	cost := ImageTokens(cfg.Width, cfg.Height, maxDim)
	if maxDim > 0 && (cfg.Width > maxDim || cfg.Height > maxDim) {
		data, media, err = resize(data, media, maxDim)
		if err != nil {
			return model.Image{}, 0, err
		}
	}
	return model.Image{
		Name:      name,
		MediaType: media,
		Data:      base64.StdEncoding.EncodeToString(data),
	}, cost, nil
}

// resize scales the image so its longer side is maxDim. JPEG stays JPEG and
// every other type is re-encoded as PNG.
func resize(data []byte, media string, maxDim int) ([]byte, string, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decoding image: %w", err)
	}
	b := src.Bounds()
	w, h := fitWithin(b.Dx(), b.Dy(), maxDim)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)

	var buf bytes.Buffer
	if media == "image/jpeg" {
		if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 85}); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), media, nil
	}
	if err := png.Encode(&buf, dst); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), "image/png", nil
}
