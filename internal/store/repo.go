package store

import (
	"context"
	"time"
)

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMRequestEventRecord is a stored event row.
type LLMRequestEventRecord struct {
	ID        int
	Timestamp time.Time
	LLMRequestEventData
}

// LLMUsageStats aggregates request counts and token usage per purpose.
type LLMUsageStats struct {
	Purpose      string
	Requests     int
	Failures     int
	InputTokens  int
	OutputTokens int
}

// LLMModelUsage aggregates request counts and token usage per model.
type LLMModelUsage struct {
	Provider     string
	Model        string
	Requests     int
	InputTokens  int
	OutputTokens int
}

// EventRepo provides append and query access to the LLM request log.
type EventRepo interface {
	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error

	// QueryLLMEvents returns the most recent events, newest first.
	QueryLLMEvents(ctx context.Context, limit int) ([]LLMRequestEventRecord, error)

	// GetLLMEvent returns one event with full request/response bodies,
	// or nil if the id is unknown.
	GetLLMEvent(ctx context.Context, id int) (*LLMRequestEventRecord, error)

	// LLMUsageByPurpose aggregates usage grouped by purpose label.
	LLMUsageByPurpose(ctx context.Context) ([]LLMUsageStats, error)

	// LLMUsageByModel aggregates usage grouped by provider and model.
	LLMUsageByModel(ctx context.Context) ([]LLMModelUsage, error)
}

// CacheRepo is the resumable session cache. Values are SessionState-shaped
// JSON keyed by "runner-<mode>-<topicId>"; entries survive process
// restarts and are removed only by explicit Delete.
type CacheRepo interface {
	// Get returns the cached value for key, or (nil, nil) when absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores or replaces the value for key.
	Put(ctx context.Context, key string, value []byte) error

	// Delete removes the entry for key. Deleting a missing key is not an
	// error.
	Delete(ctx context.Context, key string) error
}
