package bank

import (
	"testing"
	"testing/fstest"
)

func rawMCQ(id string) map[string]any {
	return map[string]any{
		"id":      id,
		"topic":   "memory",
		"mode":    "mcq",
		"stem":    "Capacity of STM is about...",
		"choices": []any{"3 items", "7±2 items", "15 items", "Unlimited"},
		"answer":  float64(1),
	}
}

func buildTestIndex(t *testing.T, records ...map[string]any) *Index {
	t.Helper()
	ix, err := BuildIndex(SliceSource{Name: "test", SchemaName: SchemaVault, Records: records})
	if err != nil {
		t.Fatalf("BuildIndex: %v", err)
	}
	return ix
}

func TestBuildIndex_UnknownSchema(t *testing.T) {
	_, err := BuildIndex(SliceSource{SchemaName: "mystery.v9", Records: []map[string]any{rawMCQ("q1")}})
	if err == nil {
		t.Fatal("expected error for unregistered schema")
	}
}

func TestBuildIndex_DropsMissingStem(t *testing.T) {
	noStem := map[string]any{
		"id":      "q1",
		"topic":   "memory",
		"mode":    "mcq",
		"choices": []any{"A", "B"},
		"answer":  float64(1),
	}
	ix := buildTestIndex(t, noStem)
	if got := ix.Count("memory", ModeMCQ); got != 0 {
		t.Errorf("record without stem should be dropped, count = %d", got)
	}
}

func TestBuildIndex_DropsMCQWithoutChoices(t *testing.T) {
	bad := map[string]any{
		"id":     "q2",
		"topic":  "memory",
		"mode":   "mcq",
		"stem":   "Which model?",
		"answer": float64(0),
	}
	ix := buildTestIndex(t, bad, rawMCQ("q3"))
	if got := ix.Count("memory", ModeMCQ); got != 1 {
		t.Errorf("expected only the valid record indexed, count = %d", got)
	}
}

func TestBuildIndex_MergesSources(t *testing.T) {
	aggregate := SliceSource{
		Name:       "bank.json",
		SchemaName: SchemaVault,
		Records:    []map[string]any{rawMCQ("q1"), rawMCQ("q2")},
	}
	scattered := SliceSource{
		Name:       "questions",
		SchemaName: SchemaLegacy,
		Records: []map[string]any{{
			"id":           "q3",
			"topic":        "Memory",
			"type":         "mcq",
			"question":     "Which component is NOT part of the multi-store model?",
			"options":      []any{"Sensory register", "STM", "LTM", "Procedural buffer"},
			"correctIndex": float64(3),
		}},
	}
	ix, err := BuildIndex(aggregate, scattered)
	if err != nil {
		t.Fatalf("BuildIndex: %v", err)
	}
	if got := ix.Count("memory", ModeMCQ); got != 3 {
		t.Errorf("expected 3 merged records, got %d", got)
	}
}

func TestAdaptLegacy_Aliases(t *testing.T) {
	raw := map[string]any{
		"id":       "s1",
		"topic":    "memory",
		"type":     "short",
		"prompt":   "Define coding in memory with one example.",
		"keywords": []any{"acoustic", "semantic"},
		"maxMarks": float64(4),
	}
	rec, err := adaptLegacy(raw)
	if err != nil {
		t.Fatalf("adaptLegacy: %v", err)
	}
	if rec.Stem != "Define coding in memory with one example." {
		t.Errorf("stem alias not resolved: %q", rec.Stem)
	}
	if rec.Marks != 4 {
		t.Errorf("marks alias not resolved: %d", rec.Marks)
	}
	if len(rec.Indicative) != 2 {
		t.Errorf("keywords alias not resolved: %v", rec.Indicative)
	}
}

func TestAdaptLegacy_AnswerText(t *testing.T) {
	raw := rawMCQ("q1")
	delete(raw, "answer")
	raw["correct"] = "7±2 items"
	rec, err := adaptLegacy(raw)
	if err != nil {
		t.Fatalf("adaptLegacy: %v", err)
	}
	if rec.AnswerIndex != 1 {
		t.Errorf("answer text should resolve to index 1, got %d", rec.AnswerIndex)
	}
}

func TestDefaultMarks(t *testing.T) {
	raw := map[string]any{
		"id":    "e1",
		"topic": "memory",
		"mode":  "essay",
		"stem":  "Discuss the multi-store model of memory.",
	}
	rec, err := adaptVault(raw)
	if err != nil {
		t.Fatalf("adaptVault: %v", err)
	}
	if rec.Marks != 16 {
		t.Errorf("essay default marks = %d, want 16", rec.Marks)
	}
}

func TestSampleSeeded_Deterministic(t *testing.T) {
	records := make([]map[string]any, 0, 10)
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"} {
		records = append(records, rawMCQ("q-"+id))
	}
	ix := buildTestIndex(t, records...)

	first := ix.SampleSeeded("memory", ModeMCQ, 10, 42)
	second := ix.SampleSeeded("memory", ModeMCQ, 10, 42)
	if len(first) != 10 || len(second) != 10 {
		t.Fatalf("expected full samples, got %d and %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Fatalf("same seed produced different order at %d: %s vs %s", i, first[i].ID, second[i].ID)
		}
	}

	// Different seeds should, with high probability, differ in order.
	other := ix.SampleSeeded("memory", ModeMCQ, 10, 43)
	same := true
	for i := range first {
		if first[i].ID != other[i].ID {
			same = false
			break
		}
	}
	if same {
		t.Error("seeds 42 and 43 produced identical order over 10 records")
	}
}

func TestSample_CapsAtSetSize(t *testing.T) {
	ix := buildTestIndex(t, rawMCQ("q1"), rawMCQ("q2"))
	got := ix.Sample("memory", ModeMCQ, 5)
	if len(got) != 2 {
		t.Errorf("expected min(n,set) = 2, got %d", len(got))
	}
}

func TestSample_EmptyTopic(t *testing.T) {
	ix := buildTestIndex(t)
	if got := ix.Sample("attachment", ModeEssay, 3); len(got) != 0 {
		t.Errorf("expected empty sample, got %d", len(got))
	}
}

func TestDirSource(t *testing.T) {
	fsys := fstest.MapFS{
		"bank.json": &fstest.MapFile{Data: []byte(`[
			{"id":"q1","topic":"memory","mode":"mcq","stem":"S1","choices":["A","B"],"answer":0}
		]`)},
		"questions/memory/short1.json": &fstest.MapFile{Data: []byte(
			`{"id":"s1","topic":"memory","mode":"short","stem":"Outline the WMM.","marks":6}`)},
		"questions/memory/more.json": &fstest.MapFile{Data: []byte(`[
			{"id":"s2","topic":"memory","mode":"short","stem":"Define coding.","marks":4},
			{"id":"s3","topic":"memory","mode":"short","stem":"Define capacity.","marks":2}
		]`)},
	}
	ix, err := BuildIndex(DirSource{FS: fsys, SchemaName: SchemaVault})
	if err != nil {
		t.Fatalf("BuildIndex: %v", err)
	}
	if got := ix.Count("memory", ModeMCQ); got != 1 {
		t.Errorf("mcq count = %d, want 1", got)
	}
	if got := ix.Count("memory", ModeShort); got != 3 {
		t.Errorf("short count = %d, want 3", got)
	}
}

func TestIndexCountIsolation(t *testing.T) {
	ix := buildTestIndex(t, rawMCQ("q1"))
	recs := ix.All("memory", ModeMCQ)
	recs[0].ID = "mutated"
	if ix.All("memory", ModeMCQ)[0].ID != "q1" {
		t.Error("All must return a copy, not the backing slice")
	}
}
