package bank

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"strings"
)

// DirSource reads a question vault from a filesystem: an optional
// aggregate bank.json array at the root, plus any number of per-record
// JSON files (single object or array each) under questions/.
type DirSource struct {
	FS         fs.FS
	SchemaName string
}

func (d DirSource) Schema() string { return d.SchemaName }

func (d DirSource) Load() ([]Raw, error) {
	var out []Raw

	if data, err := fs.ReadFile(d.FS, "bank.json"); err == nil {
		records, err := decodeRecords(data)
		if err != nil {
			return nil, fmt.Errorf("bank.json: %w", err)
		}
		for _, r := range records {
			out = append(out, Raw{Origin: "bank.json", Data: r})
		}
	}

	err := fs.WalkDir(d.FS, ".", func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() || !strings.HasPrefix(p, "questions/") || path.Ext(p) != ".json" {
			return nil
		}
		data, err := fs.ReadFile(d.FS, p)
		if err != nil {
			return fmt.Errorf("read %s: %w", p, err)
		}
		records, err := decodeRecords(data)
		if err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
		for _, r := range records {
			out = append(out, Raw{Origin: p, Data: r})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// decodeRecords accepts either a single JSON object or an array of them.
func decodeRecords(data []byte) ([]map[string]any, error) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var many []map[string]any
		if err := json.Unmarshal(data, &many); err != nil {
			return nil, err
		}
		return many, nil
	}
	var one map[string]any
	if err := json.Unmarshal(data, &one); err != nil {
		return nil, err
	}
	return []map[string]any{one}, nil
}
