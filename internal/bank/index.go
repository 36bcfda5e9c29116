package bank

import (
	"fmt"
	"log/slog"
	"strings"
)

// Raw is one unadapted record together with its origin label, used for
// skip warnings.
type Raw struct {
	Origin string
	Data   map[string]any
}

// Source provides raw records under a declared schema. A source may be
// one large aggregate collection or many small per-record files; the
// index merges both.
type Source interface {
	// Schema names the adapter to use for this source's records.
	Schema() string

	// Load returns every raw record in the source.
	Load() ([]Raw, error)
}

// SliceSource is an in-memory Source wrapping an aggregate collection.
type SliceSource struct {
	Name       string
	SchemaName string
	Records    []map[string]any
}

func (s SliceSource) Schema() string { return s.SchemaName }

func (s SliceSource) Load() ([]Raw, error) {
	out := make([]Raw, len(s.Records))
	for i, r := range s.Records {
		out[i] = Raw{Origin: s.Name, Data: r}
	}
	return out, nil
}

// Index is the in-memory (topic, mode) -> records map. Built once by
// BuildIndex and read-only afterwards.
type Index struct {
	byTopicMode map[string][]Record
}

func key(topic string, mode Mode) string {
	return strings.ToLower(topic) + "::" + string(mode)
}

// BuildIndex adapts and merges every source into a fresh index. An
// unknown source schema is a hard error; an individual record that fails
// adaptation or validation is skipped with a warning, never fatal.
func BuildIndex(sources ...Source) (*Index, error) {
	ix := &Index{byTopicMode: make(map[string][]Record)}

	for _, src := range sources {
		adapt, ok := LookupAdapter(src.Schema())
		if !ok {
			return nil, fmt.Errorf("no adapter registered for schema %q", src.Schema())
		}

		raws, err := src.Load()
		if err != nil {
			return nil, fmt.Errorf("load source (schema %s): %w", src.Schema(), err)
		}

		for _, raw := range raws {
			rec, err := adapt(raw.Data)
			if err != nil {
				slog.Warn("skipping invalid question record",
					"origin", raw.Origin, "schema", src.Schema(), "err", err)
				continue
			}
			k := key(rec.Topic, rec.Mode)
			ix.byTopicMode[k] = append(ix.byTopicMode[k], *rec)
		}
	}

	return ix, nil
}

// Count returns the number of indexed records for (topic, mode). O(1).
func (ix *Index) Count(topic string, mode Mode) int {
	return len(ix.byTopicMode[key(topic, mode)])
}

// All returns a copy of the records for (topic, mode).
func (ix *Index) All(topic string, mode Mode) []Record {
	src := ix.byTopicMode[key(topic, mode)]
	out := make([]Record, len(src))
	copy(out, src)
	return out
}

// Topics returns the distinct topics present in the index.
func (ix *Index) Topics() []string {
	seen := map[string]bool{}
	var out []string
	for k := range ix.byTopicMode {
		topic, _, _ := strings.Cut(k, "::")
		if !seen[topic] {
			seen[topic] = true
			out = append(out, topic)
		}
	}
	return out
}
