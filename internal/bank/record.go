// Package bank normalizes heterogeneous raw question sources into one
// canonical record schema, indexes them by (topic, mode), and samples
// from the index deterministically or pseudo-randomly.
package bank

import (
	"fmt"
	"strings"
)

// Mode is the question format. Each mode has its own scoring strategy.
type Mode string

const (
	ModeMCQ      Mode = "mcq"
	ModeShort    Mode = "short"
	ModeScenario Mode = "scenario"
	ModeEssay    Mode = "essay"
)

// ParseMode normalizes a raw mode string. Returns an error for unknown modes.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeMCQ:
		return ModeMCQ, nil
	case ModeShort:
		return ModeShort, nil
	case ModeScenario:
		return ModeScenario, nil
	case ModeEssay:
		return ModeEssay, nil
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

// DefaultMarks returns the mark allocation assumed when a raw record
// carries none: 1 for mcq, 16 for essay, 6 otherwise.
func DefaultMarks(m Mode) int {
	switch m {
	case ModeMCQ:
		return 1
	case ModeEssay:
		return 16
	default:
		return 6
	}
}

// Record is the canonical question record. Built once at index time and
// immutable thereafter.
type Record struct {
	ID    string `json:"id"`
	Topic string `json:"topic"`
	Mode  Mode   `json:"mode"`
	Marks int    `json:"marks"`
	Stem  string `json:"stem"`

	// Choices is populated only for mcq records.
	Choices []string `json:"choices,omitempty"`

	// AnswerIndex is the index of the correct choice for mcq records,
	// -1 for free-text modes.
	AnswerIndex int `json:"answerIndex"`

	// Indicative lists mark-scheme keywords or indicative points.
	Indicative []string `json:"indicative,omitempty"`

	// Band holds level descriptors (e.g. L1..L4) for essay records.
	Band map[string]string `json:"band,omitempty"`

	// Meta carries source-specific extras untouched.
	Meta map[string]any `json:"meta,omitempty"`
}

// Validate checks the canonical-record invariants. Invalid records are
// dropped at index time, never served.
func (r *Record) Validate() error {
	if r.ID == "" || r.Topic == "" || r.Stem == "" {
		return fmt.Errorf("missing required field (id/topic/stem)")
	}
	if _, err := ParseMode(string(r.Mode)); err != nil {
		return err
	}
	if r.Marks < 1 {
		return fmt.Errorf("marks must be >= 1, got %d", r.Marks)
	}
	if r.Mode == ModeMCQ {
		if len(r.Choices) < 2 {
			return fmt.Errorf("mcq record needs at least 2 choices")
		}
		if r.AnswerIndex < 0 || r.AnswerIndex >= len(r.Choices) {
			return fmt.Errorf("mcq answer index %d out of range for %d choices", r.AnswerIndex, len(r.Choices))
		}
	}
	return nil
}
