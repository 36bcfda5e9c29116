package genset

import (
	"fmt"

	"github.com/AndyVanLandhof/psychprep/internal/bank"
	"github.com/AndyVanLandhof/psychprep/internal/llm"
)

// MCQSetSchema defines the JSON schema for generated MCQ sets.
var MCQSetSchema = &llm.Schema{
	Name:        "mcq-set",
	Description: "A set of multiple-choice questions with one correct option each",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"questions": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"question": map[string]any{
							"type":        "string",
							"description": "The question stem shown to the student",
						},
						"options": map[string]any{
							"type":        "array",
							"items":       map[string]any{"type": "string"},
							"minItems":    4,
							"maxItems":    4,
							"description": "Exactly 4 answer options",
						},
						"correctIndex": map[string]any{
							"type":        "integer",
							"minimum":     0,
							"maximum":     3,
							"description": "Zero-based index of the correct option",
						},
					},
					"required":             []any{"question", "options", "correctIndex"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []any{"questions"},
		"additionalProperties": false,
	},
}

// ItemSetSchema defines the JSON schema for generated short-answer and
// scenario sets.
var ItemSetSchema = &llm.Schema{
	Name:        "item-set",
	Description: "A set of free-text questions with per-question mark maxima",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"items": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"prompt": map[string]any{
							"type":        "string",
							"description": "The question prompt shown to the student",
						},
						"max": map[string]any{
							"type":        "integer",
							"minimum":     1,
							"description": "Maximum marks available for this question",
						},
					},
					"required":             []any{"prompt", "max"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []any{"items"},
		"additionalProperties": false,
	},
}

// schemaFor returns the response schema for a mode, or an error for
// modes that are not generated as sets.
func schemaFor(mode bank.Mode) (*llm.Schema, error) {
	switch mode {
	case bank.ModeMCQ:
		return MCQSetSchema, nil
	case bank.ModeShort, bank.ModeScenario:
		return ItemSetSchema, nil
	default:
		return nil, fmt.Errorf("no set schema for mode %q", mode)
	}
}
