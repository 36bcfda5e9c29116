package store

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	tests := []struct {
		pragma string
		want   string
	}{
		{"journal_mode", "wal"},
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
	}

	for _, tt := range tests {
		var got string
		if err := db.QueryRow("PRAGMA " + tt.pragma).Scan(&got); err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func TestEventRepo_AppendAndQuery(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	events := []LLMRequestEventData{
		{Provider: "mock", Model: "mock", Purpose: "marking", InputTokens: 100, OutputTokens: 50, Success: true},
		{Provider: "mock", Model: "mock", Purpose: "marking", Success: false, ErrorMessage: "boom"},
		{Provider: "mock", Model: "mock", Purpose: "question-gen", InputTokens: 20, OutputTokens: 10, Success: true},
	}
	for _, e := range events {
		if err := repo.AppendLLMRequest(ctx, e); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	got, err := repo.QueryLLMEvents(ctx, 10)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 events, got %d", len(got))
	}
	if got[0].Purpose != "question-gen" {
		t.Errorf("expected newest first, got %q", got[0].Purpose)
	}

	usage, err := repo.LLMUsageByPurpose(ctx)
	if err != nil {
		t.Fatalf("usage: %v", err)
	}
	if len(usage) != 2 {
		t.Fatalf("expected 2 purpose buckets, got %d", len(usage))
	}
	var marking *LLMUsageStats
	for i := range usage {
		if usage[i].Purpose == "marking" {
			marking = &usage[i]
		}
	}
	if marking == nil {
		t.Fatal("missing marking bucket")
	}
	if marking.Requests != 2 || marking.Failures != 1 || marking.InputTokens != 100 {
		t.Errorf("unexpected marking stats: %+v", *marking)
	}
}

func TestCacheRepo_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	cache := s.CacheRepo()
	ctx := context.Background()

	if v, err := cache.Get(ctx, "runner-mcq-memory"); err != nil || v != nil {
		t.Fatalf("expected miss, got %q err %v", v, err)
	}

	if err := cache.Put(ctx, "runner-mcq-memory", []byte(`{"currentIndex":2}`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := cache.Put(ctx, "runner-mcq-memory", []byte(`{"currentIndex":3}`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	v, err := cache.Get(ctx, "runner-mcq-memory")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(v) != `{"currentIndex":3}` {
		t.Errorf("unexpected value %q", v)
	}

	if err := cache.Delete(ctx, "runner-mcq-memory"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if v, _ := cache.Get(ctx, "runner-mcq-memory"); v != nil {
		t.Errorf("expected miss after delete, got %q", v)
	}
	if err := cache.Delete(ctx, "runner-mcq-memory"); err != nil {
		t.Errorf("deleting missing key should not error: %v", err)
	}
}

func TestMemoryCache(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()

	if err := cache.Put(ctx, "k", []byte("v1")); err != nil {
		t.Fatalf("put: %v", err)
	}
	v, err := cache.Get(ctx, "k")
	if err != nil || string(v) != "v1" {
		t.Fatalf("get = %q, %v", v, err)
	}
	v[0] = 'X' // must not corrupt the stored copy
	if v2, _ := cache.Get(ctx, "k"); string(v2) != "v1" {
		t.Error("Get must return a copy")
	}
	if err := cache.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if v, _ := cache.Get(ctx, "k"); v != nil {
		t.Error("expected miss after delete")
	}
}
