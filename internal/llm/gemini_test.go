package llm

import "testing"

func TestGeminiModelNames(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"gemini-flash", "gemini-2.0-flash"},
		{"gemini-pro", "gemini-2.0-pro"},
		{"gemini-2.5-flash", "gemini-2.5-flash"},
	}
	for _, tt := range tests {
		if got := resolveModel(tt.in, geminiModels); got != tt.want {
			t.Errorf("resolveModel(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGeminiSchema_GradeShape(t *testing.T) {
	// The marking schema: an awarded integer plus a rationale.
	def := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"awarded":   map[string]any{"type": "integer"},
			"rationale": map[string]any{"type": "string"},
		},
		"required": []any{"awarded"},
	}

	schema := geminiSchema(def)
	if schema.Type != "OBJECT" {
		t.Fatalf("type = %s, want OBJECT", schema.Type)
	}
	if schema.Properties["awarded"].Type != "INTEGER" {
		t.Errorf("awarded type = %s", schema.Properties["awarded"].Type)
	}
	if schema.Properties["rationale"].Type != "STRING" {
		t.Errorf("rationale type = %s", schema.Properties["rationale"].Type)
	}
	if len(schema.Required) != 1 || schema.Required[0] != "awarded" {
		t.Errorf("required = %v", schema.Required)
	}
}

func TestGeminiSchema_QuestionSetShape(t *testing.T) {
	// A trimmed question-set schema: array of objects with an enum.
	def := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"questions": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"question":     map[string]any{"type": "string"},
						"correctIndex": map[string]any{"type": "integer"},
						"difficulty":   map[string]any{"type": "string", "enum": []any{"AS", "A"}},
					},
				},
			},
		},
		"required": []any{"questions"},
	}

	schema := geminiSchema(def)
	questions := schema.Properties["questions"]
	if questions.Type != "ARRAY" {
		t.Fatalf("questions type = %s, want ARRAY", questions.Type)
	}
	item := questions.Items
	if item.Type != "OBJECT" {
		t.Fatalf("item type = %s, want OBJECT", item.Type)
	}
	if item.Properties["correctIndex"].Type != "INTEGER" {
		t.Errorf("correctIndex type = %s", item.Properties["correctIndex"].Type)
	}
	if got := len(item.Properties["difficulty"].Enum); got != 2 {
		t.Errorf("difficulty enum has %d values, want 2", got)
	}
}
