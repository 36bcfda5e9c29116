package marking

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseError indicates the service response was not valid structured
// data after every parse strategy was tried.
type ParseError struct {
	Response string
	Err      error
}

func (e *ParseError) Error() string {
	snippet := e.Response
	if len(snippet) > 200 {
		snippet = snippet[:200] + "..."
	}
	return fmt.Sprintf("unparseable marking response: %v (raw: %s)", e.Err, snippet)
}

func (e *ParseError) Unwrap() error { return e.Err }

// parseStrategy attempts to extract a JSON object from a response text.
type parseStrategy func(text string) (map[string]any, error)

// parseStrategies is the ordered fallback chain: whole text as JSON,
// then with code fences stripped, then the first balanced {...}
// substring. First success wins.
var parseStrategies = []parseStrategy{
	parseWhole,
	parseFenceStripped,
	parseBalancedObject,
}

// parseResponse runs the strategy chain over the response text.
func parseResponse(text string) (map[string]any, error) {
	var lastErr error
	for _, strategy := range parseStrategies {
		fields, err := strategy(text)
		if err == nil {
			return fields, nil
		}
		lastErr = err
	}
	return nil, &ParseError{Response: text, Err: lastErr}
}

func parseWhole(text string) (map[string]any, error) {
	var fields map[string]any
	if err := json.Unmarshal([]byte(text), &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

func parseFenceStripped(text string) (map[string]any, error) {
	trimmed := strings.TrimSpace(text)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	return parseWhole(strings.TrimSpace(trimmed))
}

// parseBalancedObject extracts the first brace-balanced {...} substring,
// skipping braces inside JSON strings.
func parseBalancedObject(text string) (map[string]any, error) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return nil, fmt.Errorf("no object found in response")
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return parseWhole(text[start : i+1])
			}
		}
	}
	return nil, fmt.Errorf("unbalanced object in response")
}

// gradeFromFields normalizes a parsed response. A missing or non-numeric
// awarded field is 0; the result is always clamped into [0, maxMarks].
func gradeFromFields(fields map[string]any, maxMarks int) *Grade {
	g := &Grade{Fields: fields}

	awarded, _ := asInt(firstField(fields, "awarded", "raw", "score"))
	g.Awarded = min(max(awarded, 0), max(maxMarks, 0))

	if items, ok := fields["perItem"].([]any); ok {
		for _, it := range items {
			if n, ok := asInt(it); ok {
				g.PerItem = append(g.PerItem, n)
			}
		}
	}

	for _, k := range []string{"rationale", "feedback"} {
		if s, ok := fields[k].(string); ok && s != "" {
			g.Rationale = s
			break
		}
	}

	return g
}

func firstField(fields map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := fields[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int(math.Round(n)), true
	case int:
		return n, true
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return int(math.Round(f)), true
		}
	}
	return 0, false
}
