// Package calibration measures how closely the marking service tracks
// examiner intent: it marks a corpus of synthetic answers written to hit
// known target marks and reports the error, overall and per performance
// tier. Runs are offline and sequential so one slow or failed sample
// never obscures another's outcome.
package calibration

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/AndyVanLandhof/psychprep/internal/marking"
)

// maxExcerptChars bounds the mark-scheme extract embedded per request.
const maxExcerptChars = 3500

// Marker performs one grading call without fallback, so failures stay
// visible in the results. Satisfied by *marking.Client via MarkRaw.
type Marker interface {
	MarkRaw(ctx context.Context, req marking.Request) (*marking.Grade, error)
}

// Record is one sample's calibration outcome. On a marking failure
// Awarded and Diff are null and Error carries the cause; the record
// still counts toward totals but not toward error averages.
type Record struct {
	PaperID        string `json:"paperId"`
	QuestionNumber string `json:"questionNumber"`
	Label          string `json:"label"`
	TargetMarks    int    `json:"targetMarks"`
	Awarded        *int   `json:"awarded"`
	Diff           *int   `json:"diff"`
	Feedback       string `json:"feedback,omitempty"`
	Error          string `json:"error,omitempty"`
}

// LabelStats aggregates one performance tier's bias.
type LabelStats struct {
	Count    int      `json:"count"`
	MeanDiff *float64 `json:"meanDiff"`
}

// GlobalStats is the corpus-wide accuracy aggregate.
type GlobalStats struct {
	Count        int      `json:"count"`
	MeanAbsError *float64 `json:"meanAbsError"`
}

// Summary is the aggregate section of a calibration report.
type Summary struct {
	PaperID      string                `json:"paperId"`
	Model        string                `json:"model"`
	TotalSamples int                   `json:"totalSamples"`
	ByLabel      map[string]LabelStats `json:"byLabel"`
	Global       GlobalStats           `json:"global"`
}

// Report is the pipeline's output artifact.
type Report struct {
	Meta        PaperMeta `json:"meta"`
	GeneratedAt time.Time `json:"generatedAt"`
	Summary     Summary   `json:"summary"`
	Results     []Record  `json:"results"`
}

// Pipeline runs a calibration pass for one paper.
type Pipeline struct {
	marker    Marker
	segmenter Segmenter
	model     string
}

// New creates a Pipeline for the given paper id. An unregistered paper
// id fails here, before any marking work starts.
func New(marker Marker, paperID, model string) (*Pipeline, error) {
	seg, err := SegmenterFor(paperID)
	if err != nil {
		return nil, err
	}
	return &Pipeline{marker: marker, segmenter: seg, model: model}, nil
}

// Run marks every sample in the corpus sequentially against the given
// mark-scheme text. A per-sample failure is recorded as an error entry
// and the loop continues; Run itself fails only on context cancellation.
func (p *Pipeline) Run(ctx context.Context, corpus *Corpus, schemeText string) ([]Record, error) {
	var results []Record

	for _, q := range corpus.Questions {
		excerpt := p.segmenter.Excerpt(schemeText, q.QuestionNumber)
		if excerpt == "" {
			slog.Warn("no mark-scheme section found", "paper", corpus.PaperID, "question", q.QuestionNumber)
		}
		if len(excerpt) > maxExcerptChars {
			excerpt = excerpt[:maxExcerptChars]
		}

		for _, s := range q.Samples {
			if err := ctx.Err(); err != nil {
				return results, err
			}

			rec := Record{
				PaperID:        corpus.PaperID,
				QuestionNumber: q.QuestionNumber,
				Label:          s.Label,
				TargetMarks:    s.TargetMarks,
			}

			questionText := s.QuestionText
			if questionText == "" {
				questionText = q.Text
			}

			slog.Info("marking sample", "question", q.QuestionNumber, "label", s.Label)
			grade, err := p.marker.MarkRaw(ctx, marking.Request{
				QuestionText:      questionText,
				MarkSchemeExcerpt: excerpt,
				StudentAnswer:     s.Text,
				MaxMarks:          q.MaxMarks,
			})
			if err != nil {
				slog.Error("sample marking failed", "question", q.QuestionNumber, "label", s.Label, "err", err)
				rec.Error = err.Error()
				results = append(results, rec)
				continue
			}

			awarded := grade.Awarded
			diff := awarded - s.TargetMarks
			rec.Awarded = &awarded
			rec.Diff = &diff
			rec.Feedback = grade.Rationale
			slog.Info("sample marked", "question", q.QuestionNumber, "label", s.Label, "target", s.TargetMarks, "awarded", awarded, "diff", diff)
			results = append(results, rec)
		}
	}
	return results, nil
}

// Summarize aggregates results into the report summary: mean absolute
// error over samples that were actually marked, and per-label mean diff
// to expose systematic over- or under-marking of a tier. Failed samples
// count toward totals but never toward averages.
func (p *Pipeline) Summarize(paperID string, results []Record) Summary {
	summary := Summary{
		PaperID:      paperID,
		Model:        p.model,
		TotalSamples: len(results),
		ByLabel:      map[string]LabelStats{},
	}

	absSum := 0.0
	absCount := 0
	diffSums := map[string]float64{}
	diffCounts := map[string]int{}

	for _, r := range results {
		stats := summary.ByLabel[r.Label]
		stats.Count++
		summary.ByLabel[r.Label] = stats

		if r.Diff == nil {
			continue
		}
		d := float64(*r.Diff)
		if d < 0 {
			absSum += -d
		} else {
			absSum += d
		}
		absCount++
		diffSums[r.Label] += d
		diffCounts[r.Label]++
	}

	summary.Global.Count = absCount
	if absCount > 0 {
		mean := absSum / float64(absCount)
		summary.Global.MeanAbsError = &mean
	}
	for label, n := range diffCounts {
		stats := summary.ByLabel[label]
		mean := diffSums[label] / float64(n)
		stats.MeanDiff = &mean
		summary.ByLabel[label] = stats
	}
	return summary
}

// BuildReport assembles the output artifact for a finished run.
func (p *Pipeline) BuildReport(corpus *Corpus, results []Record) *Report {
	return &Report{
		Meta:        corpus.Meta,
		GeneratedAt: time.Now().UTC(),
		Summary:     p.Summarize(corpus.PaperID, results),
		Results:     results,
	}
}

// WriteReport writes the report as indented JSON.
func WriteReport(path string, rep *Report) error {
	raw, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
