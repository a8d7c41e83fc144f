/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package rubric loads and validates grading rubrics.
package rubric

import (
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Rubric is an ordered list of criteria. Declaration order is the order
// feedback is reported in.
type Rubric struct {
	Course   string      `yaml:"course,omitempty" json:"course,omitempty"`
	Project  string      `yaml:"project,omitempty" json:"project,omitempty"`
	Criteria []Criterion `yaml:"criteria" json:"criteria" validate:"required,min=1,unique=ID,dive"`
}

// Criterion is one scored dimension of a rubric.
type Criterion struct {
	ID          string  `yaml:"id" json:"id" validate:"required"`
	Name        string  `yaml:"name" json:"name" validate:"required"`
	Weight      float64 `yaml:"weight" json:"weight" validate:"gte=0"`
	Description string  `yaml:"description" json:"description"`
	Levels      Levels  `yaml:"levels" json:"levels" validate:"dive"`

	Keywords         []string `yaml:"keywords" json:"keywords,omitempty" validate:"dive,required"`
	ArtifactPatterns []string `yaml:"artifact_patterns" json:"artifact_patterns,omitempty" validate:"dive,required"`
	CommonIssues     []string `yaml:"common_issues" json:"common_issues,omitempty"`
}

// Level is one performance level of a criterion.
type Level struct {
	Label       string   `yaml:"label" json:"label" validate:"required"`
	Lower       float64  `yaml:"lower_bound" json:"lower_bound" validate:"gte=0"`
	Upper       float64  `yaml:"upper_bound" json:"upper_bound" validate:"gtefield=Lower"`
	Description string   `yaml:"description" json:"description"`
	Indicators  []string `yaml:"indicators,omitempty" json:"indicators,omitempty"`
}

// Levels is the ordered level list. In YAML it is either a list of levels or
// a mapping from level key to level, which keeps the mapping's order.
type Levels []Level

// levelFields is the YAML shape of one level. Bounds are accepted as
// point_range: [lo, hi], or as a "lo-hi" string under range or percentage.
type levelFields struct {
	Label       string    `yaml:"label"`
	Level       string    `yaml:"level"`
	PointRange  []float64 `yaml:"point_range"`
	Range       string    `yaml:"range"`
	Percentage  string    `yaml:"percentage"`
	Description string    `yaml:"description"`
	Indicators  []string  `yaml:"indicators"`
}

var boundsPattern = regexp.MustCompile(`^\s*(\d+(?:\.\d+)?)\s*%?\s*[-–]\s*(\d+(?:\.\d+)?)\s*%?\s*$`)

func (f levelFields) level(key string) (Level, error) {
	l := Level{
		Label:       f.Label,
		Description: strings.TrimSpace(f.Description),
		Indicators:  f.Indicators,
	}
	if l.Label == "" {
		l.Label = f.Level
	}
	if l.Label == "" {
		l.Label = titleCase(key)
	}

	switch {
	case len(f.PointRange) == 2:
		l.Lower, l.Upper = f.PointRange[0], f.PointRange[1]
	case len(f.PointRange) != 0:
		return Level{}, fmt.Errorf("level %q: point_range needs two values, got %d", l.Label, len(f.PointRange))
	case f.Range != "" || f.Percentage != "":
		s := f.Range
		if s == "" {
			s = f.Percentage
		}
		m := boundsPattern.FindStringSubmatch(s)
		if m == nil {
			return Level{}, fmt.Errorf("level %q: unparseable range %q", l.Label, s)
		}
		l.Lower, _ = strconv.ParseFloat(m[1], 64)
		l.Upper, _ = strconv.ParseFloat(m[2], 64)
	}
	return l, nil
}

// titleCase turns a level key such as "needs_work" into "Needs Work".
func titleCase(key string) string {
	words := strings.Fields(strings.ReplaceAll(key, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (ls *Levels) UnmarshalYAML(node *yaml.Node) error {
	var out Levels
	switch node.Kind {
	case yaml.SequenceNode:
		for _, n := range node.Content {
			var f levelFields
			if err := n.Decode(&f); err != nil {
				return err
			}
			l, err := f.level("")
			if err != nil {
				return err
			}
			out = append(out, l)
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			var f levelFields
			if err := node.Content[i+1].Decode(&f); err != nil {
				return err
			}
			l, err := f.level(node.Content[i].Value)
			if err != nil {
				return err
			}
			out = append(out, l)
		}
	default:
		return fmt.Errorf("line %d: levels must be a list or a mapping", node.Line)
	}
	*ls = out
	return nil
}

// Find returns the criterion with the given id.
func (r *Rubric) Find(id string) (Criterion, bool) {
	for _, c := range r.Criteria {
		if c.ID == id {
			return c, true
		}
	}
	return Criterion{}, false
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ErrEmpty is returned for a rubric without criteria.
var ErrEmpty = errors.New("rubric has no criteria")

// Validate checks that the rubric is non-empty, that criterion ids are unique
// and that every level is well-formed.
func (r *Rubric) Validate() error {
	if len(r.Criteria) == 0 {
		return ErrEmpty
	}
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("invalid rubric: %w", err)
	}
	return nil
}

// Load decodes and validates a YAML rubric.
func Load(r io.Reader) (*Rubric, error) {
	var rb Rubric
	if err := yaml.NewDecoder(r).Decode(&rb); err != nil {
		return nil, fmt.Errorf("decoding rubric: %w", err)
	}
	if err := rb.Validate(); err != nil {
		return nil, err
	}
	return &rb, nil
}

// LoadFile is Load for a file path.
func LoadFile(path string) (*Rubric, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}
