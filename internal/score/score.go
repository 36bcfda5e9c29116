// Package score converts raw marks into percentages and letter grades.
// All functions are pure and deterministic.
package score

import "math"

// Band maps a minimum percentage to a letter grade.
type Band struct {
	Min   int
	Grade string
}

// DefaultScale is the standard grade ladder used when a caller does not
// supply its own banding table. Bands are sorted descending by Min.
var DefaultScale = []Band{
	{Min: 90, Grade: "A*"},
	{Min: 80, Grade: "A"},
	{Min: 70, Grade: "B"},
	{Min: 60, Grade: "C"},
	{Min: 0, Grade: "D"},
}

// ToPercent converts raw marks out of max into a rounded percentage.
// Raw is clamped into [0, max] first; max <= 0 always yields 0.
func ToPercent(raw, max int) int {
	if max <= 0 {
		return 0
	}
	if raw < 0 {
		raw = 0
	}
	if raw > max {
		raw = max
	}
	return int(math.Round(float64(raw) / float64(max) * 100))
}

// GradeFromPercent returns the grade of the first band whose Min is at or
// below percent. The scale must be sorted descending by Min; the lowest
// band is the fallback. Percent is clamped into [0, 100].
func GradeFromPercent(percent int, scale []Band) string {
	if len(scale) == 0 {
		return ""
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	for _, b := range scale {
		if percent >= b.Min {
			return b.Grade
		}
	}
	return scale[len(scale)-1].Grade
}

// Result is an aggregated score for one attempt.
type Result struct {
	Raw     int    `json:"raw"`
	Max     int    `json:"max"`
	Percent int    `json:"percent"`
	Grade   string `json:"grade"`

	// PerItem holds the marks awarded per question, when available.
	PerItem []int `json:"perItem,omitempty"`

	// Rationale is optional marker commentary.
	Rationale string `json:"rationale,omitempty"`
}

// NewResult builds a Result from raw/max using the default scale.
func NewResult(raw, maximum int) Result {
	if maximum < 0 {
		maximum = 0
	}
	pct := ToPercent(raw, maximum)
	return Result{
		Raw:     min(max(raw, 0), maximum),
		Max:     maximum,
		Percent: pct,
		Grade:   GradeFromPercent(pct, DefaultScale),
	}
}
