package calibration

import (
	"context"
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/AndyVanLandhof/psychprep/internal/marking"
)

func TestSegmenterFor_UnknownPaper(t *testing.T) {
	if _, err := SegmenterFor("wjec-maths"); err == nil {
		t.Fatal("unknown paper id must fail at setup")
	}
}

func TestAQAPsychSegmenter(t *testing.T) {
	scheme := `Mark scheme
0 1 Outline coding in STM. AO1 content: acoustic coding, Baddeley.
Credit other relevant content.
0 2 Evaluate the multi-store model. Level descriptors follow.
`
	seg, err := SegmenterFor("aqa-psych")
	if err != nil {
		t.Fatal(err)
	}

	got := seg.Excerpt(scheme, "1")
	if !strings.Contains(got, "acoustic coding") {
		t.Errorf("excerpt missing question 1 content:\n%q", got)
	}
	if strings.Contains(got, "multi-store model") {
		t.Errorf("excerpt leaked into question 2:\n%q", got)
	}

	if got := seg.Excerpt(scheme, "9"); got != "" {
		t.Errorf("missing question should yield empty excerpt, got %q", got)
	}
}

func TestAQAPsychSegmenter_DottedNumber(t *testing.T) {
	scheme := "0 3 . 1 Name one type of long-term memory. [1 mark]\n0 4 Next question."
	seg, _ := SegmenterFor("aqa-psych")
	if got := seg.Excerpt(scheme, "3.1"); !strings.Contains(got, "long-term memory") {
		t.Errorf("dotted question number not matched:\n%q", got)
	}
}

func TestOCRPhilSegmenter(t *testing.T) {
	scheme := `
1. Explain Plato's theory of Forms. Indicative content: the realm of Forms.
2. Assess Aristotle's four causes. Indicative content: material, formal.
`
	seg, _ := SegmenterFor("ocr-phil")
	got := seg.Excerpt(scheme, "1")
	if !strings.Contains(got, "realm of Forms") {
		t.Errorf("excerpt missing question 1 content:\n%q", got)
	}
	if strings.Contains(got, "four causes") {
		t.Errorf("excerpt leaked into question 2:\n%q", got)
	}
}

func TestEnglitSegmenter(t *testing.T) {
	scheme := `
Question 1 (A Streetcar Named Desire)
Level 3: coherent analysis of dramatic methods.
Question 2 (Waiting for Godot)
Level 3: other content.
`
	seg, _ := SegmenterFor("englit")
	got := seg.Excerpt(scheme, "1")
	if !strings.Contains(got, "Streetcar") || !strings.Contains(got, "dramatic methods") {
		t.Errorf("excerpt missing question 1 content:\n%q", got)
	}
	if strings.Contains(got, "Godot") {
		t.Errorf("excerpt leaked into question 2:\n%q", got)
	}
}

func TestLoadCorpus(t *testing.T) {
	fsys := fstest.MapFS{
		"samples.json": {Data: []byte(`{
			"paperId": "aqa-71811-jun22",
			"meta": {"paper": "AS Paper 1", "code": "7181/1", "year": 2022, "session": "June"},
			"questions": [
				{"questionNumber": "1", "maxMarks": 6, "samples": [
					{"label": "A*", "targetMarks": 5, "text": "strong answer"},
					{"label": "C", "targetMarks": 3, "text": "middling answer"}
				]}
			]
		}`)},
		"nopaper.json": {Data: []byte(`{"questions": []}`)},
	}

	c, err := LoadCorpus(fsys, "samples.json")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.PaperID != "aqa-71811-jun22" || c.Meta.Year != 2022 {
		t.Errorf("corpus meta wrong: %+v", c)
	}
	if c.SampleCount() != 2 {
		t.Errorf("sample count = %d, want 2", c.SampleCount())
	}

	if _, err := LoadCorpus(fsys, "nopaper.json"); err == nil {
		t.Error("corpus without paperId should fail")
	}
}

// queueMarker returns canned grades (or errors) in order and records
// every request it sees.
type queueMarker struct {
	grades   []*marking.Grade
	errs     []error
	requests []marking.Request
}

func (m *queueMarker) MarkRaw(_ context.Context, req marking.Request) (*marking.Grade, error) {
	m.requests = append(m.requests, req)
	i := len(m.requests) - 1
	if m.errs[i] != nil {
		return nil, m.errs[i]
	}
	return m.grades[i], nil
}

func testCorpus() *Corpus {
	return &Corpus{
		PaperID: "aqa-71811-jun22",
		Meta:    PaperMeta{Paper: "AS Paper 1", Code: "7181/1", Year: 2022, Session: "June"},
		Questions: []Question{{
			QuestionNumber: "1",
			MaxMarks:       6,
			Text:           "Outline coding in STM.",
			Samples: []Sample{
				{Label: "A*", TargetMarks: 4, Text: "answer one"},
				{Label: "C", TargetMarks: 3, Text: "answer two"},
				{Label: "C", TargetMarks: 2, Text: "answer three"},
			},
		}},
	}
}

func TestPipeline_RunAndSummarize(t *testing.T) {
	marker := &queueMarker{
		grades: []*marking.Grade{
			{Awarded: 6, Rationale: "thorough"}, // diff +2
			{Awarded: 2},                        // diff -1
			nil,
		},
		errs: []error{nil, nil, errors.New("service 529")},
	}
	p, err := New(marker, "aqa-71811-jun22", "test-model")
	if err == nil {
		t.Fatal("unregistered paper id should fail")
	}
	p, err = New(marker, "aqa-psych", "test-model")
	if err != nil {
		t.Fatal(err)
	}

	scheme := "0 1 AO1: acoustic coding. Credit other relevant content.\n0 2 next"
	results, err := p.Run(context.Background(), testCorpus(), scheme)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3 including the error entry", len(results))
	}

	if results[0].Awarded == nil || *results[0].Awarded != 6 || *results[0].Diff != 2 {
		t.Errorf("first record = %+v, want awarded 6 diff +2", results[0])
	}
	if results[1].Diff == nil || *results[1].Diff != -1 {
		t.Errorf("second record = %+v, want diff -1", results[1])
	}
	if results[2].Error == "" || results[2].Awarded != nil {
		t.Errorf("failed sample must be an error entry, got %+v", results[2])
	}

	// Every request carried the segmented excerpt.
	for i, req := range marker.requests {
		if !strings.Contains(req.MarkSchemeExcerpt, "acoustic coding") {
			t.Errorf("request %d missing scheme excerpt", i)
		}
		if req.MaxMarks != 6 {
			t.Errorf("request %d maxMarks = %d, want 6", i, req.MaxMarks)
		}
	}

	sum := p.Summarize("aqa-71811-jun22", results)
	if sum.TotalSamples != 3 || sum.Global.Count != 2 {
		t.Errorf("summary counts = %d total / %d numeric, want 3 / 2", sum.TotalSamples, sum.Global.Count)
	}
	if sum.Global.MeanAbsError == nil || *sum.Global.MeanAbsError != 1.5 {
		t.Errorf("meanAbsError = %v, want 1.5 over the two numeric samples", sum.Global.MeanAbsError)
	}

	top := sum.ByLabel["A*"]
	if top.Count != 1 || top.MeanDiff == nil || *top.MeanDiff != 2 {
		t.Errorf("A* bucket = %+v, want count 1 meanDiff +2", top)
	}
	c := sum.ByLabel["C"]
	if c.Count != 2 || c.MeanDiff == nil || *c.MeanDiff != -1 {
		t.Errorf("C bucket = %+v, want count 2 meanDiff -1 over its single numeric sample", c)
	}
}

func TestPipeline_ExcerptTruncated(t *testing.T) {
	marker := &queueMarker{
		grades: []*marking.Grade{{Awarded: 3}},
		errs:   []error{nil},
	}
	p, err := New(marker, "aqa-psych", "test-model")
	if err != nil {
		t.Fatal(err)
	}

	scheme := "0 1 " + strings.Repeat("indicative point. ", 400) // well past the cap
	corpus := testCorpus()
	corpus.Questions[0].Samples = corpus.Questions[0].Samples[:1]

	if _, err := p.Run(context.Background(), corpus, scheme); err != nil {
		t.Fatal(err)
	}
	if got := len(marker.requests[0].MarkSchemeExcerpt); got > 3500 {
		t.Errorf("excerpt length = %d, must be capped at 3500", got)
	}
}

func TestPipeline_AllFailedSummary(t *testing.T) {
	marker := &queueMarker{
		grades: []*marking.Grade{nil},
		errs:   []error{errors.New("down")},
	}
	p, err := New(marker, "aqa-psych", "test-model")
	if err != nil {
		t.Fatal(err)
	}
	corpus := testCorpus()
	corpus.Questions[0].Samples = corpus.Questions[0].Samples[:1]

	results, err := p.Run(context.Background(), corpus, "0 1 scheme\n")
	if err != nil {
		t.Fatal(err)
	}
	sum := p.Summarize(corpus.PaperID, results)
	if sum.Global.MeanAbsError != nil {
		t.Error("meanAbsError must be null when no sample was marked")
	}
	if sum.ByLabel["A*"].MeanDiff != nil {
		t.Error("label meanDiff must be null when its samples all failed")
	}
}

func TestBuildReport(t *testing.T) {
	marker := &queueMarker{grades: []*marking.Grade{{Awarded: 4}}, errs: []error{nil}}
	p, err := New(marker, "aqa-psych", "test-model")
	if err != nil {
		t.Fatal(err)
	}
	corpus := testCorpus()
	corpus.Questions[0].Samples = corpus.Questions[0].Samples[:1]

	results, err := p.Run(context.Background(), corpus, "0 1 scheme\n")
	if err != nil {
		t.Fatal(err)
	}
	rep := p.BuildReport(corpus, results)
	if rep.Meta.Code != "7181/1" {
		t.Errorf("report meta = %+v", rep.Meta)
	}
	if rep.GeneratedAt.IsZero() {
		t.Error("report must carry a timestamp")
	}
	if len(rep.Results) != 1 || rep.Summary.TotalSamples != 1 {
		t.Errorf("report results/summary mismatch: %+v", rep.Summary)
	}
}
