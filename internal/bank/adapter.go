package bank

import (
	"fmt"
	"strconv"
	"strings"
)

// Adapter converts one raw record of a known source schema into a
// canonical Record. Adapters return an error when required fields cannot
// be resolved; the caller decides whether to skip or abort.
type Adapter func(raw map[string]any) (*Record, error)

// adapters is the registry of named adapters, one per known source
// schema. Selection is explicit: unknown schemas fail at ingestion, not
// silently at read time.
var adapters = map[string]Adapter{}

// RegisterAdapter binds an adapter to a schema name. Call from init().
func RegisterAdapter(schema string, a Adapter) { adapters[schema] = a }

// LookupAdapter returns the adapter registered for a schema.
func LookupAdapter(schema string) (Adapter, bool) {
	a, ok := adapters[schema]
	return a, ok
}

func init() {
	RegisterAdapter(SchemaVault, adaptVault)
	RegisterAdapter(SchemaLegacy, adaptLegacy)
}

// Known source schemas.
const (
	// SchemaVault is the canonical layout: records already use the
	// Record field names.
	SchemaVault = "vault.v1"

	// SchemaLegacy covers older banks using aliased keys
	// (question/prompt, options, correctIndex, keywords, maxMarks).
	SchemaLegacy = "legacy.v1"
)

// adaptVault maps canonical-keyed records.
func adaptVault(raw map[string]any) (*Record, error) {
	return buildRecord(raw,
		[]string{"stem"},
		[]string{"choices"},
		[]string{"answer", "answerIndex"},
		[]string{"indicative"},
		[]string{"marks"},
	)
}

// adaptLegacy maps the historical alias set seen across older banks.
func adaptLegacy(raw map[string]any) (*Record, error) {
	return buildRecord(raw,
		[]string{"stem", "question", "prompt"},
		[]string{"choices", "options"},
		[]string{"answer", "correctIndex", "correct"},
		[]string{"indicative", "keywords", "markscheme"},
		[]string{"marks", "maxMarks", "max"},
	)
}

func buildRecord(raw map[string]any, stemKeys, choiceKeys, answerKeys, indicativeKeys, markKeys []string) (*Record, error) {
	id := firstString(raw, "id", "_id", "key")
	topic := strings.ToLower(firstString(raw, "topic", "section", "domain"))
	modeStr := firstString(raw, "mode", "type")
	stem := firstString(raw, stemKeys...)

	if id == "" || topic == "" || modeStr == "" || stem == "" {
		return nil, fmt.Errorf("missing required field (id/topic/mode/stem)")
	}

	mode, err := ParseMode(modeStr)
	if err != nil {
		return nil, err
	}

	rec := &Record{
		ID:          id,
		Topic:       topic,
		Mode:        mode,
		Stem:        stem,
		Choices:     firstStringSlice(raw, choiceKeys...),
		AnswerIndex: -1,
		Indicative:  firstStringSlice(raw, indicativeKeys...),
	}

	rec.Marks = DefaultMarks(mode)
	if m, ok := firstNumber(raw, markKeys...); ok && int(m) >= 1 {
		rec.Marks = int(m)
	}

	if mode == ModeMCQ {
		idx, err := resolveAnswerIndex(raw, rec.Choices, answerKeys)
		if err != nil {
			return nil, err
		}
		rec.AnswerIndex = idx
	}

	if b, ok := raw["band"].(map[string]any); ok {
		rec.Band = make(map[string]string, len(b))
		for k, v := range b {
			if s, ok := v.(string); ok {
				rec.Band[k] = s
			}
		}
	}
	if m, ok := raw["meta"].(map[string]any); ok {
		rec.Meta = m
	}

	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return rec, nil
}

// resolveAnswerIndex accepts either a numeric choice index or the text of
// the correct option, and normalizes to an index.
func resolveAnswerIndex(raw map[string]any, choices []string, keys []string) (int, error) {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok || v == nil {
			continue
		}
		switch a := v.(type) {
		case float64:
			return int(a), nil
		case int:
			return a, nil
		case string:
			if n, err := strconv.Atoi(strings.TrimSpace(a)); err == nil {
				return n, nil
			}
			for i, c := range choices {
				if strings.EqualFold(strings.TrimSpace(c), strings.TrimSpace(a)) {
					return i, nil
				}
			}
			return -1, fmt.Errorf("answer %q matches no choice", a)
		}
	}
	return -1, fmt.Errorf("mcq record has no answer key")
}

func firstString(raw map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := raw[k]; ok {
			switch s := v.(type) {
			case string:
				if strings.TrimSpace(s) != "" {
					return strings.TrimSpace(s)
				}
			case float64:
				return strconv.FormatFloat(s, 'f', -1, 64)
			}
		}
	}
	return ""
}

func firstStringSlice(raw map[string]any, keys ...string) []string {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok {
			continue
		}
		items, ok := v.([]any)
		if !ok {
			continue
		}
		out := make([]string, 0, len(items))
		for _, it := range items {
			if s, ok := it.(string); ok {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

func firstNumber(raw map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		if v, ok := raw[k]; ok {
			switch n := v.(type) {
			case float64:
				return n, true
			case int:
				return float64(n), true
			case string:
				if f, err := strconv.ParseFloat(n, 64); err == nil {
					return f, true
				}
			}
		}
	}
	return 0, false
}
