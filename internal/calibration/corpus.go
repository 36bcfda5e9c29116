package calibration

import (
	"encoding/json"
	"fmt"
	"io/fs"
)

// PaperMeta identifies the paper a sample corpus was generated for.
type PaperMeta struct {
	Paper   string `json:"paper"`
	Code    string `json:"code"`
	Year    int    `json:"year"`
	Session string `json:"session"`
}

// Sample is one synthetic student answer written to hit a target mark.
type Sample struct {
	// Label is the performance tier the answer was written at, e.g.
	// "A*", "B", "C".
	Label string `json:"label"`

	// TargetMarks is the mark the answer was written to deserve.
	TargetMarks int `json:"targetMarks"`

	// Text is the student answer.
	Text string `json:"text"`

	// QuestionText carries the question when the corpus embeds it.
	QuestionText string `json:"questionText,omitempty"`
}

// Question groups the samples written for one paper question.
type Question struct {
	QuestionNumber string   `json:"questionNumber"`
	MaxMarks       int      `json:"maxMarks"`
	Section        string   `json:"section,omitempty"`
	Text           string   `json:"text,omitempty"`
	Samples        []Sample `json:"samples"`
}

// Corpus is the sample-answer artifact a calibration run consumes.
type Corpus struct {
	PaperID   string     `json:"paperId"`
	Meta      PaperMeta  `json:"meta"`
	Questions []Question `json:"questions"`
}

// LoadCorpus reads and decodes a samples artifact.
func LoadCorpus(fsys fs.FS, path string) (*Corpus, error) {
	raw, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("read samples file: %w", err)
	}
	var c Corpus
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("decode samples file %s: %w", path, err)
	}
	if c.PaperID == "" {
		return nil, fmt.Errorf("samples file %s has no paperId", path)
	}
	return &c, nil
}

// SampleCount returns the total number of samples across all questions.
func (c *Corpus) SampleCount() int {
	n := 0
	for _, q := range c.Questions {
		n += len(q.Samples)
	}
	return n
}
