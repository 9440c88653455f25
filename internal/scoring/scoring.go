// Package scoring parses the numeric parts of model output.
//
// Every parser returns either a value or an error wrapping ErrMalformedOutput;
// what a malformed answer means is decided by the caller.
package scoring

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrMalformedOutput = errors.New("malformed completion output")

// Categories are the comparison dimensions in the order the model reports them.
var Categories = [3]string{"Experience", "Technical Skills", "Languages"}

// Range is an inclusive bound for scores.
type Range struct {
	Min int `mapstructure:"score-min" json:"min"`
	Max int `mapstructure:"score-max" json:"max"`
}

var DefaultRange = Range{Min: 0, Max: 10}

func (r Range) Contains(v int) bool {
	return v >= r.Min && v <= r.Max
}

// Clamp returns v limited to [r.Min, r.Max].
func (r Range) Clamp(v int) int {
	return min(max(v, r.Min), r.Max)
}

func (r Range) orDefault() Range {
	if r.Min == 0 && r.Max == 0 {
		return DefaultRange
	}
	return r
}

// Scores holds one line of the comparison output.
type Scores struct {
	Experience      int `json:"experience"`
	TechnicalSkills int `json:"technical_skills"`
	Languages       int `json:"languages"`
}

func (s Scores) values() [3]int {
	return [3]int{s.Experience, s.TechnicalSkills, s.Languages}
}

// Comparison is the parsed output of the compare step.
type Comparison struct {
	Requirements Scores `json:"requirements"`
	CV           Scores `json:"cv"`
}

// Row is one bar of the comparison chart.
type Row struct {
	Category     string `json:"category"`
	You          int    `json:"you"`
	Requirements int    `json:"requirements"`
}

// Table returns the comparison as chart rows keyed by category.
func (c Comparison) Table() []Row {
	you := c.CV.values()
	req := c.Requirements.values()

	rows := make([]Row, 0, len(Categories))
	for i, category := range Categories {
		rows = append(rows, Row{Category: category, You: you[i], Requirements: req[i]})
	}

	return rows
}

// ParseRating reads a single integer score such as "8", "8.", "`8`" or "8/10".
// A number outside r is clamped to the nearest bound; only non-numbers are malformed.
func ParseRating(raw string, r Range) (int, error) {
	r = r.orDefault()

	cleaned := strings.TrimSpace(stripFences(raw))
	cleaned = strings.TrimRight(cleaned, ".!")
	if idx := strings.Index(cleaned, "/"); idx != -1 {
		cleaned = strings.TrimSpace(cleaned[:idx])
	}

	value, err := strconv.Atoi(cleaned)
	if err != nil {
		return 0, fmt.Errorf("%w: rating %q is not an integer", ErrMalformedOutput, raw)
	}

	return r.Clamp(value), nil
}

// ParseComparison reads exactly two non-empty lines of three comma-separated
// integers: requirements first, then the CV.
func ParseComparison(raw string, r Range) (Comparison, error) {
	r = r.orDefault()

	lines := make([]string, 0, 2)
	for _, line := range strings.Split(stripFences(raw), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}

	if len(lines) != 2 {
		return Comparison{}, fmt.Errorf("%w: expected 2 lines of scores, got %d", ErrMalformedOutput, len(lines))
	}

	req, err := parseLine(lines[0], r)
	if err != nil {
		return Comparison{}, fmt.Errorf("requirements line: %w", err)
	}

	cv, err := parseLine(lines[1], r)
	if err != nil {
		return Comparison{}, fmt.Errorf("cv line: %w", err)
	}

	return Comparison{Requirements: req, CV: cv}, nil
}

func parseLine(line string, r Range) (Scores, error) {
	tokens := strings.Split(line, ",")
	if len(tokens) != len(Categories) {
		return Scores{}, fmt.Errorf("%w: expected %d values in %q, got %d", ErrMalformedOutput, len(Categories), line, len(tokens))
	}

	var values [3]int
	for i, token := range tokens {
		v, err := strconv.Atoi(strings.TrimSpace(token))
		if err != nil {
			return Scores{}, fmt.Errorf("%w: %s value %q is not an integer", ErrMalformedOutput, Categories[i], token)
		}
		if !r.Contains(v) {
			return Scores{}, fmt.Errorf("%w: %s value %d outside [%d, %d]", ErrMalformedOutput, Categories[i], v, r.Min, r.Max)
		}
		values[i] = v
	}

	return Scores{Experience: values[0], TechnicalSkills: values[1], Languages: values[2]}, nil
}

func stripFences(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```")
		if nl := strings.Index(raw, "\n"); nl != -1 && !strings.ContainsAny(raw[:nl], ",0123456789") {
			raw = raw[nl+1:]
		}
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}

	return strings.Trim(raw, "`")
}
