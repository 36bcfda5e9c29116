package runner

import (
	"fmt"
	"time"

	"github.com/AndyVanLandhof/psychprep/internal/bank"
)

// State is the lifecycle phase of a Runner.
type State int

const (
	// StateIdle means the runner exists but has no session yet.
	StateIdle State = iota

	// StateLoading means the fallback set is seeded and the AI set race
	// is in flight.
	StateLoading

	// StateInProgress means the student is answering questions.
	StateInProgress

	// StateSubmitted means the attempt has been scored.
	StateSubmitted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateInProgress:
		return "in-progress"
	case StateSubmitted:
		return "submitted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Answer is one captured response. Choice is the zero-based option index
// for mcq items and -1 for free-text items; Text holds the written
// answer for free-text items.
type Answer struct {
	Choice int    `json:"choice"`
	Text   string `json:"text,omitempty"`
}

// SessionState is the resumable snapshot persisted to the cache on every
// mutation. A restored snapshot reproduces the exact question set,
// position, and captured answers of the interrupted attempt.
type SessionState struct {
	Mode         bank.Mode      `json:"mode"`
	TopicID      string         `json:"topicId"`
	Items        []bank.Record  `json:"items"`
	CurrentIndex int            `json:"currentIndex"`
	Answers      map[int]Answer `json:"answers"`
	StartedAt    time.Time      `json:"startedAt"`
}

// CacheKey returns the session cache key for a (mode, topic) pair.
func CacheKey(mode bank.Mode, topicID string) string {
	return fmt.Sprintf("runner-%s-%s", mode, topicID)
}
