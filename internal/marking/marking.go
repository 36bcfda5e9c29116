// Package marking grades free-text answers against a mark scheme via the
// external marking service, with defensive response parsing and a
// heuristic fallback so callers always receive a usable score.
package marking

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/AndyVanLandhof/psychprep/internal/bank"
	"github.com/AndyVanLandhof/psychprep/internal/llm"
	"github.com/AndyVanLandhof/psychprep/internal/score"
)

// Request is the grading contract sent to the marking service.
type Request struct {
	QuestionText      string `json:"questionText"`
	MarkSchemeExcerpt string `json:"markSchemeExcerpt"`
	StudentAnswer     string `json:"studentAnswer"`
	MaxMarks          int    `json:"maxMarks"`
}

// Source records which path produced an Outcome.
type Source string

const (
	// SourceAI means the marking service graded the answer.
	SourceAI Source = "ai"

	// SourceHeuristic means the service or its response failed and the
	// local estimate was used instead.
	SourceHeuristic Source = "heuristic"
)

// Outcome is the normalized result of marking one answer or one batch.
// Raw is always clamped into [0, Max] regardless of what the service
// returned; callers never need to branch on the source, but it is
// carried for diagnostics.
type Outcome struct {
	score.Result
	Source Source `json:"source"`
}

// Grade is the parsed, clamped reply from the marking service.
type Grade struct {
	// Awarded is the mark, clamped into [0, MaxMarks]. A missing or
	// non-numeric awarded field parses as 0, not as an error.
	Awarded int

	// PerItem holds per-item marks when the service returned them.
	PerItem []int

	// Rationale is the service's explanation, when present.
	Rationale string

	// Fields carries every other response field for diagnostics.
	Fields map[string]any
}

// Config tunes the marking requests.
type Config struct {
	// MaxTokens is the response budget per marking call.
	MaxTokens int

	// Temperature for the marking calls. Low by default: marking should
	// be as repeatable as the service allows.
	Temperature float64
}

// DefaultConfig returns the standard marking configuration.
func DefaultConfig() Config {
	return Config{
		MaxTokens:   800,
		Temperature: 0.2,
	}
}

// Client drives the external marking service.
type Client struct {
	provider llm.Provider
	config   Config
}

// New creates a marking client on the given provider.
func New(provider llm.Provider, cfg Config) *Client {
	return &Client{provider: provider, config: cfg}
}

// MarkRaw performs a single marking call and returns the parsed, clamped
// grade. Exactly one service invocation, no retry. Errors are either the
// provider's (service unreachable, non-success) or a *ParseError after
// all parse strategies failed; the batch pipeline records them per
// sample, the interactive path converts them to a heuristic estimate.
func (c *Client) MarkRaw(ctx context.Context, req Request) (*Grade, error) {
	ctx = llm.WithPurpose(ctx, llm.PurposeMarking)

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal marking request: %w", err)
	}

	resp, err := c.provider.Generate(ctx, llm.Request{
		System: markerSystemPrompt(req.MaxMarks),
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: markerUserMessage(payload)},
		},
		MaxTokens:   c.config.MaxTokens,
		Temperature: c.config.Temperature,
	})
	if err != nil {
		return nil, err
	}

	fields, err := parseResponse(string(resp.Content))
	if err != nil {
		return nil, err
	}

	return gradeFromFields(fields, req.MaxMarks), nil
}

// Mark grades one answer and never fails: on any service or parse error
// it degrades to the heuristic estimate for the given mode.
func (c *Client) Mark(ctx context.Context, mode bank.Mode, req Request) Outcome {
	grade, err := c.MarkRaw(ctx, req)
	if err != nil {
		slog.Debug("marking degraded to heuristic", "mode", mode, "err", err)
		return heuristicOutcome(mode, req)
	}

	res := score.NewResult(grade.Awarded, req.MaxMarks)
	res.PerItem = grade.PerItem
	res.Rationale = grade.Rationale
	return Outcome{Result: res, Source: SourceAI}
}

// Item is one free-text answer in a batch.
type Item struct {
	Record bank.Record
	Answer string
}

// MarkItems grades a batch of short/scenario answers item by item and
// aggregates the total. Heuristic items are folded in transparently; the
// outcome is tagged heuristic only if every item degraded.
func (c *Client) MarkItems(ctx context.Context, mode bank.Mode, excerptFor func(bank.Record) string, items []Item) Outcome {
	raw, max := 0, 0
	perItem := make([]int, 0, len(items))
	rationale := ""
	anyAI := false

	for _, it := range items {
		req := Request{
			QuestionText:      it.Record.Stem,
			MarkSchemeExcerpt: excerptFor(it.Record),
			StudentAnswer:     it.Answer,
			MaxMarks:          it.Record.Marks,
		}
		out := c.Mark(ctx, mode, req)
		raw += out.Raw
		max += it.Record.Marks
		perItem = append(perItem, out.Raw)
		if out.Source == SourceAI {
			anyAI = true
			if rationale == "" {
				rationale = out.Rationale
			}
		}
	}

	res := score.NewResult(raw, max)
	res.PerItem = perItem
	res.Rationale = rationale

	src := SourceHeuristic
	if anyAI {
		src = SourceAI
	}
	return Outcome{Result: res, Source: src}
}
