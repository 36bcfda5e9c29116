// Package genset generates per-mode question sets via the LLM provider,
// with schema-validated responses. Sets that come back malformed or too
// small are rejected so callers can keep the bank-sampled fallback.
package genset

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/AndyVanLandhof/psychprep/internal/bank"
	"github.com/AndyVanLandhof/psychprep/internal/llm"
)

// Config controls the behavior of the Generator.
type Config struct {
	// MaxTokens is the token budget for the LLM response.
	MaxTokens int

	// Temperature controls LLM output randomness (0.0-1.0).
	Temperature float64

	// MaxStyleCues is the maximum number of style examples to include
	// in the prompt per mode.
	MaxStyleCues int
}

// DefaultConfig returns a Config with recommended defaults.
func DefaultConfig() Config {
	return Config{
		MaxTokens:    2048,
		Temperature:  0.7,
		MaxStyleCues: 2,
	}
}

// DefaultCount returns the standard set size for a mode.
func DefaultCount(mode bank.Mode) int {
	switch mode {
	case bank.ModeMCQ:
		return 5
	case bank.ModeShort:
		return 6
	case bank.ModeScenario:
		return 2
	default:
		return 1
	}
}

// Input holds all context needed to generate a question set.
type Input struct {
	// TopicID is the bank topic identifier the records are filed under.
	TopicID string

	// TopicTitle is the human-readable topic name used in the prompt.
	TopicTitle string

	// Mode selects the set shape: mcq, short, or scenario.
	Mode bank.Mode

	// Count is the requested set size. Zero means DefaultCount(Mode).
	Count int

	// StyleCues are example question stems that show the phrasing
	// register to imitate. Never copied verbatim into output.
	StyleCues []string
}

// Generator produces question sets using an LLM provider.
type Generator struct {
	provider llm.Provider
	config   Config
}

// New creates a Generator with the given provider and config.
func New(provider llm.Provider, cfg Config) *Generator {
	return &Generator{provider: provider, config: cfg}
}

// mcqOutput is the raw LLM response shape for an MCQ set.
type mcqOutput struct {
	Questions []struct {
		Question     string   `json:"question"`
		Options      []string `json:"options"`
		CorrectIndex int      `json:"correctIndex"`
	} `json:"questions"`
}

// itemOutput is the raw LLM response shape for short and scenario sets.
type itemOutput struct {
	Items []struct {
		Prompt string `json:"prompt"`
		Max    int    `json:"max"`
	} `json:"items"`
}

// Generate produces a validated question set for the given input.
// MCQ sets must contain exactly Count questions; short and scenario sets
// must be non-empty and are truncated to Count. Anything less is an
// error, never a partial set.
func (g *Generator) Generate(ctx context.Context, input Input) ([]bank.Record, error) {
	ctx = llm.WithPurpose(ctx, llm.PurposeQuestionGen)

	count := input.Count
	if count <= 0 {
		count = DefaultCount(input.Mode)
	}

	schema, err := schemaFor(input.Mode)
	if err != nil {
		return nil, err
	}

	resp, err := g.provider.Generate(ctx, llm.Request{
		System: setSystemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildUserMessage(input, count, g.config)},
		},
		Schema:      schema,
		MaxTokens:   g.config.MaxTokens,
		Temperature: g.config.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("set generation failed: %w", err)
	}

	if input.Mode == bank.ModeMCQ {
		return g.mcqRecords(input, count, resp.Content)
	}
	return g.itemRecords(input, count, resp.Content)
}

func (g *Generator) mcqRecords(input Input, count int, content json.RawMessage) ([]bank.Record, error) {
	var raw mcqOutput
	if err := json.Unmarshal(content, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse MCQ set: %w", err)
	}
	if len(raw.Questions) > count {
		raw.Questions = raw.Questions[:count]
	}
	if len(raw.Questions) != count {
		return nil, &llm.ErrInvalidResponse{
			Content: content,
			Err:     fmt.Errorf("expected %d MCQs, got %d", count, len(raw.Questions)),
		}
	}

	records := make([]bank.Record, 0, count)
	for _, q := range raw.Questions {
		rec := bank.Record{
			ID:          uuid.NewString(),
			Topic:       input.TopicID,
			Mode:        bank.ModeMCQ,
			Marks:       bank.DefaultMarks(bank.ModeMCQ),
			Stem:        q.Question,
			Choices:     q.Options,
			AnswerIndex: q.CorrectIndex,
		}
		if err := rec.Validate(); err != nil {
			return nil, &llm.ErrInvalidResponse{Content: content, Err: err}
		}
		records = append(records, rec)
	}
	return records, nil
}

func (g *Generator) itemRecords(input Input, count int, content json.RawMessage) ([]bank.Record, error) {
	var raw itemOutput
	if err := json.Unmarshal(content, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse item set: %w", err)
	}
	if len(raw.Items) == 0 {
		return nil, &llm.ErrInvalidResponse{
			Content: content,
			Err:     fmt.Errorf("empty %s set", input.Mode),
		}
	}
	if len(raw.Items) > count {
		raw.Items = raw.Items[:count]
	}

	records := make([]bank.Record, 0, len(raw.Items))
	for _, it := range raw.Items {
		marks := it.Max
		if marks <= 0 {
			marks = bank.DefaultMarks(input.Mode)
		}
		rec := bank.Record{
			ID:          uuid.NewString(),
			Topic:       input.TopicID,
			Mode:        input.Mode,
			Marks:       marks,
			Stem:        it.Prompt,
			AnswerIndex: -1,
		}
		if err := rec.Validate(); err != nil {
			return nil, &llm.ErrInvalidResponse{Content: content, Err: err}
		}
		records = append(records, rec)
	}
	return records, nil
}
