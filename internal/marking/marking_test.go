package marking

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/AndyVanLandhof/psychprep/internal/bank"
	"github.com/AndyVanLandhof/psychprep/internal/llm"
)

func shortRequest(answer string) Request {
	return Request{
		QuestionText:      "Outline and briefly evaluate the working memory model.",
		MarkSchemeExcerpt: "central executive; phonological loop; dual-task evidence",
		StudentAnswer:     answer,
		MaxMarks:          6,
	}
}

func TestMarkRaw_PlainJSON(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{
		Content: json.RawMessage(`{"awarded": 4, "rationale": "Two strands credited."}`),
	})
	c := New(mock, DefaultConfig())

	grade, err := c.MarkRaw(context.Background(), shortRequest("an answer"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if grade.Awarded != 4 {
		t.Errorf("awarded = %d, want 4", grade.Awarded)
	}
	if grade.Rationale != "Two strands credited." {
		t.Errorf("rationale = %q", grade.Rationale)
	}
}

func TestMarkRaw_CodeFencedJSON(t *testing.T) {
	fenced := "```json\n{\"awarded\": 3}\n```"
	mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(fenced)})
	c := New(mock, DefaultConfig())

	grade, err := c.MarkRaw(context.Background(), shortRequest("an answer"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if grade.Awarded != 3 {
		t.Errorf("awarded = %d, want 3", grade.Awarded)
	}
}

func TestMarkRaw_EmbeddedObject(t *testing.T) {
	chatty := `Here is my assessment of the answer.

{"awarded": 5, "feedback": "Strong coverage of the loop."}

Hope that helps.`
	mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(chatty)})
	c := New(mock, DefaultConfig())

	grade, err := c.MarkRaw(context.Background(), shortRequest("an answer"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if grade.Awarded != 5 {
		t.Errorf("awarded = %d, want 5", grade.Awarded)
	}
	if grade.Rationale != "Strong coverage of the loop." {
		t.Errorf("feedback should populate rationale, got %q", grade.Rationale)
	}
}

func TestMarkRaw_UnparseableIsParseError(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{
		Content: json.RawMessage("I would award about four marks here."),
	})
	c := New(mock, DefaultConfig())

	_, err := c.MarkRaw(context.Background(), shortRequest("an answer"))
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *ParseError, got %T: %v", err, err)
	}
}

func TestMarkRaw_ClampsHostileAwards(t *testing.T) {
	cases := []struct {
		body string
		want int
	}{
		{`{"awarded": 56}`, 6},
		{`{"awarded": -3}`, 0},
		{`{"awarded": "4"}`, 4},
		{`{"awarded": null}`, 0},
		{`{"rationale": "no awarded field"}`, 0},
	}
	for _, tc := range cases {
		mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(tc.body)})
		c := New(mock, DefaultConfig())
		grade, err := c.MarkRaw(context.Background(), shortRequest("an answer"))
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.body, err)
		}
		if grade.Awarded != tc.want {
			t.Errorf("%s: awarded = %d, want %d", tc.body, grade.Awarded, tc.want)
		}
	}
}

func TestMark_ServiceErrorFallsBackToHeuristic(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{
		Err: &llm.ErrProviderUnavailable{},
	})
	c := New(mock, DefaultConfig())

	// 25 words is full credit for a short answer.
	answer := strings.Repeat("point ", 25)
	out := c.Mark(context.Background(), bank.ModeShort, shortRequest(answer))
	if out.Source != SourceHeuristic {
		t.Fatalf("source = %q, want heuristic", out.Source)
	}
	if out.Raw != 6 || out.Max != 6 {
		t.Errorf("heuristic score = %d/%d, want 6/6", out.Raw, out.Max)
	}
}

func TestMark_AITagged(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{
		Content: json.RawMessage(`{"awarded": 2}`),
	})
	c := New(mock, DefaultConfig())

	out := c.Mark(context.Background(), bank.ModeShort, shortRequest("brief answer"))
	if out.Source != SourceAI {
		t.Errorf("source = %q, want ai", out.Source)
	}
	if out.Raw != 2 || out.Max != 6 {
		t.Errorf("score = %d/%d, want 2/6", out.Raw, out.Max)
	}
}

func TestHeuristicAward_Essay(t *testing.T) {
	essay := strings.Repeat("word ", 200) // half the expected length
	if got := HeuristicAward(bank.ModeEssay, essay, 16); got != 8 {
		t.Errorf("essay heuristic = %d, want 8", got)
	}
	long := strings.Repeat("word ", 1000)
	if got := HeuristicAward(bank.ModeEssay, long, 16); got != 16 {
		t.Errorf("essay heuristic must cap at 16, got %d", got)
	}
}

func TestHeuristicAward_EssayNonStandardMarks(t *testing.T) {
	essay := strings.Repeat("word ", 200)
	if got := HeuristicAward(bank.ModeEssay, essay, 24); got != 12 {
		t.Errorf("24-mark essay heuristic = %d, want 12", got)
	}
	// Zero max falls back to the standard 16-mark ceiling.
	if got := HeuristicAward(bank.ModeEssay, essay, 0); got != 8 {
		t.Errorf("unspecified-max essay heuristic = %d, want 8", got)
	}
}

func TestMark_EssayFallbackKeepsRequestMax(t *testing.T) {
	c := New(llm.NewMockProvider(), DefaultConfig())
	out := c.Mark(context.Background(), bank.ModeEssay, Request{
		QuestionText:  "Discuss.",
		StudentAnswer: strings.Repeat("word ", 200),
		MaxMarks:      24,
	})
	if out.Source != SourceHeuristic {
		t.Fatalf("source = %q, want heuristic", out.Source)
	}
	if out.Max != 24 || out.Raw != 12 {
		t.Errorf("score = %d/%d, want 12/24", out.Raw, out.Max)
	}
}

func TestHeuristicAward_ShortCaps(t *testing.T) {
	long := strings.Repeat("word ", 500)
	if got := HeuristicAward(bank.ModeShort, long, 6); got != 6 {
		t.Errorf("short heuristic must cap at max, got %d", got)
	}
	if got := HeuristicAward(bank.ModeShort, "", 6); got != 0 {
		t.Errorf("empty answer should score 0, got %d", got)
	}
}

func TestMarkItems_Aggregates(t *testing.T) {
	mock := llm.NewMockProvider(
		llm.MockResponse{Content: json.RawMessage(`{"awarded": 4, "rationale": "first"}`)},
		llm.MockResponse{Content: json.RawMessage(`{"awarded": 2}`)},
	)
	c := New(mock, DefaultConfig())

	items := []Item{
		{Record: bank.Record{Stem: "Q1", Mode: bank.ModeShort, Marks: 6}, Answer: "a"},
		{Record: bank.Record{Stem: "Q2", Mode: bank.ModeShort, Marks: 4}, Answer: "b"},
	}
	out := c.MarkItems(context.Background(), bank.ModeShort, func(bank.Record) string { return "" }, items)

	if out.Raw != 6 || out.Max != 10 {
		t.Errorf("aggregate = %d/%d, want 6/10", out.Raw, out.Max)
	}
	if len(out.PerItem) != 2 || out.PerItem[0] != 4 || out.PerItem[1] != 2 {
		t.Errorf("perItem = %v, want [4 2]", out.PerItem)
	}
	if out.Source != SourceAI {
		t.Errorf("source = %q, want ai", out.Source)
	}
	if out.Rationale != "first" {
		t.Errorf("rationale = %q, want first AI rationale", out.Rationale)
	}
}

func TestMarkItems_AllHeuristic(t *testing.T) {
	mock := llm.NewMockProvider() // empty queue: every call errors
	c := New(mock, DefaultConfig())

	items := []Item{
		{Record: bank.Record{Stem: "Q1", Mode: bank.ModeShort, Marks: 6}, Answer: strings.Repeat("w ", 25)},
	}
	out := c.MarkItems(context.Background(), bank.ModeShort, func(bank.Record) string { return "" }, items)
	if out.Source != SourceHeuristic {
		t.Errorf("source = %q, want heuristic", out.Source)
	}
	if out.Raw != 6 {
		t.Errorf("raw = %d, want 6", out.Raw)
	}
}

func TestParseBalancedObject_NestedBraces(t *testing.T) {
	text := `prefix {"awarded": 1, "meta": {"note": "has {braces} in string"}} suffix`
	fields, err := parseBalancedObject(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := fields["meta"]; !ok {
		t.Error("nested object lost")
	}
}
