package calibration

import (
	"fmt"
	"regexp"
	"strings"
)

// Segmenter extracts the mark-scheme passage for one question from a
// full mark-scheme document. Each exam board lays its scheme out under a
// different heading convention, so there is one Segmenter per paper
// family. A question the scheme does not cover yields "", never an
// error: marking proceeds with an empty excerpt.
type Segmenter interface {
	// Excerpt returns the scheme section for the given question number.
	Excerpt(schemeText, questionNumber string) string
}

// Registry of segmenters by paper id. Selecting an unregistered paper is
// a setup error, surfaced loudly before any marking happens.
var registry = map[string]Segmenter{}

// Register a segmenter for a paper id. Call from init().
func Register(paperID string, s Segmenter) { registry[paperID] = s }

// SegmenterFor returns the segmenter registered for a paper id.
func SegmenterFor(paperID string) (Segmenter, error) {
	s, ok := registry[paperID]
	if !ok {
		return nil, fmt.Errorf("no mark-scheme segmenter registered for paper %q", paperID)
	}
	return s, nil
}

// PaperIDs returns the registered paper ids.
func PaperIDs() []string {
	ids := make([]string, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	return ids
}

func init() {
	Register("aqa-psych", aqaPsychSegmenter{})
	Register("ocr-phil", ocrPhilSegmenter{})
	Register("englit", englitSegmenter{})
}

// section returns the text from the first match of start up to (but not
// including) the following match of boundary, or to the end of the text.
func section(text string, start, boundary *regexp.Regexp) string {
	loc := start.FindStringIndex(text)
	if loc == nil {
		return ""
	}
	rest := text[loc[1]:]
	if next := boundary.FindStringIndex(rest); next != nil {
		return text[loc[0] : loc[1]+next[0]]
	}
	return text[loc[0]:]
}

// aqaPsychSegmenter handles AQA psychology schemes, where each question
// is headed "0 N" (the zero-prefixed question box of the paper). Dotted
// sub-numbers like "3.1" appear with optional spacing around the dot.
type aqaPsychSegmenter struct{}

var aqaBoundary = regexp.MustCompile(`(?i)0\s*\d`)

func (aqaPsychSegmenter) Excerpt(schemeText, questionNumber string) string {
	num := regexp.QuoteMeta(questionNumber)
	num = strings.ReplaceAll(num, `\.`, `\s*\.\s*`)
	start, err := regexp.Compile(`(?i)0\s*` + num)
	if err != nil {
		return ""
	}
	return section(schemeText, start, aqaBoundary)
}

// ocrPhilSegmenter handles OCR philosophy schemes, headed "N. " at the
// start of a line.
type ocrPhilSegmenter struct{}

var ocrBoundary = regexp.MustCompile(`\n\s*\d+\.\s`)

func (ocrPhilSegmenter) Excerpt(schemeText, questionNumber string) string {
	start, err := regexp.Compile(`\n\s*` + regexp.QuoteMeta(questionNumber) + `\.\s`)
	if err != nil {
		return ""
	}
	return section(schemeText, start, ocrBoundary)
}

// englitSegmenter handles Edexcel English Literature schemes, headed
// "Question N" on its own line.
type englitSegmenter struct{}

var englitBoundary = regexp.MustCompile(`(?i)\n\s*Question\s+\d+`)

func (englitSegmenter) Excerpt(schemeText, questionNumber string) string {
	start, err := regexp.Compile(`(?i)\n\s*Question\s+` + regexp.QuoteMeta(questionNumber) + `[^\n]*`)
	if err != nil {
		return ""
	}
	return section(schemeText, start, englitBoundary)
}
