// Package runner drives a timed, resumable practice session for one
// (mode, topic) pair: it seeds a locally sampled question set so the
// session always opens instantly, races an AI-generated set against a
// fixed timeout, captures navigation and answers with persistence on
// every mutation, and scores the attempt on submission.
package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/AndyVanLandhof/psychprep/internal/bank"
	"github.com/AndyVanLandhof/psychprep/internal/genset"
	"github.com/AndyVanLandhof/psychprep/internal/marking"
	"github.com/AndyVanLandhof/psychprep/internal/score"
)

// ErrNoQuestions is returned by Start when neither the bank nor the
// generator can supply a single question for the requested pair.
var ErrNoQuestions = errors.New("no questions available for topic and mode")

// TransitionError reports an operation called in the wrong state.
type TransitionError struct {
	Op    string
	State State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s in state %s", e.Op, e.State)
}

// Cache is the resumable session store. Get must return (nil, nil) on a
// miss. Satisfied by store.CacheRepo and store.MemoryCache.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// SetGenerator produces an AI question set. Satisfied by *genset.Generator.
type SetGenerator interface {
	Generate(ctx context.Context, input genset.Input) ([]bank.Record, error)
}

// Marker grades free-text answers. Satisfied by *marking.Client.
type Marker interface {
	Mark(ctx context.Context, mode bank.Mode, req marking.Request) marking.Outcome
	MarkItems(ctx context.Context, mode bank.Mode, excerptFor func(bank.Record) string, items []marking.Item) marking.Outcome
}

// ProgressSink receives the final result of a submitted attempt.
// Implementations must not block on user interaction.
type ProgressSink interface {
	RecordAttempt(ctx context.Context, mode bank.Mode, topicID string, result score.Result) error
}

// Config tunes a Runner.
type Config struct {
	// FetchTimeout bounds the AI set race at session start. The
	// underlying call is not aborted on timeout; its late result is
	// discarded.
	FetchTimeout time.Duration

	// Count is the question set size. Zero means the mode default.
	Count int
}

// DefaultConfig returns the standard runner configuration.
func DefaultConfig() Config {
	return Config{FetchTimeout: 10 * time.Second}
}

// Runner is the per-(mode, topic) session state machine.
type Runner struct {
	mode       bank.Mode
	topicID    string
	topicTitle string

	index  *bank.Index
	gen    SetGenerator
	marker Marker
	cache  Cache
	sink   ProgressSink
	cfg    Config

	mu        sync.Mutex
	state     State
	sess      SessionState
	cancelled bool
	outcome   *marking.Outcome
}

// New creates an idle Runner. gen and sink may be nil: without gen the
// session runs on the bank fallback set only; without sink submission
// results are simply not reported upward.
func New(mode bank.Mode, topicID, topicTitle string, index *bank.Index, gen SetGenerator, marker Marker, cache Cache, sink ProgressSink, cfg Config) *Runner {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultConfig().FetchTimeout
	}
	return &Runner{
		mode:       mode,
		topicID:    topicID,
		topicTitle: topicTitle,
		index:      index,
		gen:        gen,
		marker:     marker,
		cache:      cache,
		sink:       sink,
		cfg:        cfg,
		state:      StateIdle,
	}
}

// State returns the current lifecycle state.
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Start opens the session. If the cache holds a snapshot for this
// (mode, topic), it is restored exactly and no fetch happens. Otherwise
// a fallback set is sampled from the bank, persisted, and an AI set is
// raced against the fetch timeout; the AI set replaces the fallback only
// if it arrives in time and the runner was not cancelled meanwhile. A
// late result is discarded.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.state != StateIdle {
		defer r.mu.Unlock()
		return &TransitionError{Op: "start", State: r.state}
	}
	r.state = StateLoading
	r.mu.Unlock()

	if restored, err := r.restore(ctx); err != nil {
		slog.Warn("session restore failed, starting fresh", "mode", r.mode, "topic", r.topicID, "err", err)
	} else if restored {
		return nil
	}

	count := r.cfg.Count
	if count <= 0 {
		count = genset.DefaultCount(r.mode)
	}
	fallback := r.index.Sample(r.topicID, r.mode, count)

	r.mu.Lock()
	r.sess = SessionState{
		Mode:      r.mode,
		TopicID:   r.topicID,
		Items:     fallback,
		Answers:   map[int]Answer{},
		StartedAt: time.Now(),
	}
	r.persistLocked(ctx)
	r.mu.Unlock()

	r.raceAISet(ctx, count)

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sess.Items) == 0 {
		r.state = StateIdle
		return ErrNoQuestions
	}
	r.state = StateInProgress
	return nil
}

// raceAISet waits for the generator or the timeout, whichever is first.
// The losing generation call keeps running; its result is ignored.
func (r *Runner) raceAISet(ctx context.Context, count int) {
	if r.gen == nil {
		return
	}

	type genResult struct {
		records []bank.Record
		err     error
	}
	ch := make(chan genResult, 1)
	go func() {
		records, err := r.gen.Generate(ctx, genset.Input{
			TopicID:    r.topicID,
			TopicTitle: r.topicTitle,
			Mode:       r.mode,
			Count:      count,
			StyleCues:  r.styleCues(),
		})
		ch <- genResult{records, err}
	}()

	timer := time.NewTimer(r.cfg.FetchTimeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		if res.err != nil {
			slog.Debug("AI set generation failed, keeping fallback", "mode", r.mode, "topic", r.topicID, "err", res.err)
			return
		}
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.cancelled || r.state != StateLoading {
			return
		}
		r.sess.Items = res.records
		r.sess.CurrentIndex = 0
		r.sess.Answers = map[int]Answer{}
		r.persistLocked(ctx)
	case <-timer.C:
		slog.Debug("AI set race timed out, keeping fallback", "mode", r.mode, "topic", r.topicID)
	case <-ctx.Done():
	}
}

// styleCues picks two bank stems as phrasing examples for the generator.
func (r *Runner) styleCues() []string {
	cues := r.index.Sample(r.topicID, r.mode, 2)
	out := make([]string, 0, len(cues))
	for _, c := range cues {
		out = append(out, c.Stem)
	}
	return out
}

// restore resumes a cached session if one exists for this (mode, topic).
func (r *Runner) restore(ctx context.Context) (bool, error) {
	raw, err := r.cache.Get(ctx, CacheKey(r.mode, r.topicID))
	if err != nil {
		return false, err
	}
	if raw == nil {
		return false, nil
	}

	var sess SessionState
	if err := json.Unmarshal(raw, &sess); err != nil {
		return false, fmt.Errorf("decode cached session: %w", err)
	}
	if len(sess.Items) == 0 {
		return false, nil
	}
	if sess.Answers == nil {
		sess.Answers = map[int]Answer{}
	}
	// A foreign or corrupted snapshot may carry a cursor past the set.
	if sess.CurrentIndex < 0 || sess.CurrentIndex >= len(sess.Items) {
		sess.CurrentIndex = 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sess = sess
	r.state = StateInProgress
	return true, nil
}

// persistLocked writes the session snapshot to the cache. Callers hold
// r.mu. Cache failures are logged, never surfaced: losing resumability
// must not interrupt the session.
func (r *Runner) persistLocked(ctx context.Context) {
	raw, err := json.Marshal(r.sess)
	if err != nil {
		slog.Warn("session snapshot marshal failed", "err", err)
		return
	}
	if err := r.cache.Put(ctx, CacheKey(r.mode, r.topicID), raw); err != nil {
		slog.Warn("session snapshot write failed", "err", err)
	}
}

// Current returns the record at the cursor and the cursor position.
func (r *Runner) Current() (bank.Record, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateInProgress && r.state != StateSubmitted {
		return bank.Record{}, 0, &TransitionError{Op: "read current item", State: r.state}
	}
	return r.sess.Items[r.sess.CurrentIndex], r.sess.CurrentIndex, nil
}

// Len returns the number of items in the session set.
func (r *Runner) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sess.Items)
}

// Next advances the cursor. At the last item it is a no-op.
func (r *Runner) Next(ctx context.Context) error {
	return r.move(ctx, 1)
}

// Prev moves the cursor back. At the first item it is a no-op.
func (r *Runner) Prev(ctx context.Context) error {
	return r.move(ctx, -1)
}

func (r *Runner) move(ctx context.Context, delta int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateInProgress {
		return &TransitionError{Op: "navigate", State: r.state}
	}
	next := r.sess.CurrentIndex + delta
	if next < 0 || next >= len(r.sess.Items) {
		return nil
	}
	r.sess.CurrentIndex = next
	r.persistLocked(ctx)
	return nil
}

// Answer captures a response for item i and persists the snapshot.
func (r *Runner) Answer(ctx context.Context, i int, ans Answer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateInProgress {
		return &TransitionError{Op: "answer", State: r.state}
	}
	if i < 0 || i >= len(r.sess.Items) {
		return fmt.Errorf("answer index %d out of range [0,%d)", i, len(r.sess.Items))
	}
	r.sess.Answers[i] = ans
	r.persistLocked(ctx)
	return nil
}

// Snapshot returns a copy of the current session state.
func (r *Runner) Snapshot() SessionState {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess := r.sess
	sess.Items = append([]bank.Record(nil), r.sess.Items...)
	sess.Answers = make(map[int]Answer, len(r.sess.Answers))
	for k, v := range r.sess.Answers {
		sess.Answers[k] = v
	}
	return sess
}

// Submit scores the attempt: objective sets through the scoring table,
// free-text sets through the marking client. The result is reported to
// the progress sink and retained for inspection; the cache entry is kept
// so a submitted attempt survives reload, and is cleared only by Restart.
func (r *Runner) Submit(ctx context.Context) (marking.Outcome, error) {
	r.mu.Lock()
	if r.state != StateInProgress {
		defer r.mu.Unlock()
		return marking.Outcome{}, &TransitionError{Op: "submit", State: r.state}
	}
	sess := r.sess
	sess.Answers = make(map[int]Answer, len(r.sess.Answers))
	for k, v := range r.sess.Answers {
		sess.Answers[k] = v
	}
	r.mu.Unlock()

	var out marking.Outcome
	switch sess.Mode {
	case bank.ModeMCQ:
		out = r.scoreMCQ(sess)
	case bank.ModeEssay:
		out = r.markEssay(ctx, sess)
	default:
		out = r.markFreeText(ctx, sess)
	}

	r.mu.Lock()
	r.state = StateSubmitted
	r.outcome = &out
	r.mu.Unlock()

	if r.sink != nil {
		if err := r.sink.RecordAttempt(ctx, sess.Mode, sess.TopicID, out.Result); err != nil {
			slog.Warn("progress report failed", "mode", sess.Mode, "topic", sess.TopicID, "err", err)
		}
	}
	return out, nil
}

func (r *Runner) scoreMCQ(sess SessionState) marking.Outcome {
	keys := make([]int, len(sess.Items))
	picked := make([]int, len(sess.Items))
	for i, rec := range sess.Items {
		keys[i] = rec.AnswerIndex
		picked[i] = -1
		if ans, ok := sess.Answers[i]; ok {
			picked[i] = ans.Choice
		}
	}
	// Objective scoring has no marking-service involvement, so the
	// outcome carries no source tag.
	return marking.Outcome{Result: score.MCQ(keys, picked)}
}

func (r *Runner) markFreeText(ctx context.Context, sess SessionState) marking.Outcome {
	items := make([]marking.Item, 0, len(sess.Items))
	for i, rec := range sess.Items {
		items = append(items, marking.Item{Record: rec, Answer: sess.Answers[i].Text})
	}
	return r.marker.MarkItems(ctx, sess.Mode, excerptFor, items)
}

func (r *Runner) markEssay(ctx context.Context, sess SessionState) marking.Outcome {
	rec := sess.Items[0]
	return r.marker.Mark(ctx, bank.ModeEssay, marking.Request{
		QuestionText:      rec.Stem,
		MarkSchemeExcerpt: excerptFor(rec),
		StudentAnswer:     sess.Answers[0].Text,
		MaxMarks:          rec.Marks,
	})
}

// excerptFor assembles a mark-scheme excerpt from a record's indicative
// points and band descriptors.
func excerptFor(rec bank.Record) string {
	parts := append([]string(nil), rec.Indicative...)
	for _, level := range []string{"L1", "L2", "L3", "L4"} {
		if desc, ok := rec.Band[level]; ok {
			parts = append(parts, level+": "+desc)
		}
	}
	return strings.Join(parts, "; ")
}

// Result returns the submitted outcome, if any.
func (r *Runner) Result() (marking.Outcome, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.outcome == nil {
		return marking.Outcome{}, false
	}
	return *r.outcome, true
}

// Cancel marks the runner cancelled. It is cooperative: a fetch already
// in flight keeps running, but its result will not be applied.
func (r *Runner) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelled = true
}

// Restart clears the cached attempt and returns the runner to Idle so a
// fresh set can be started. This is the only operation that removes the
// cache entry.
func (r *Runner) Restart(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateLoading {
		return &TransitionError{Op: "restart", State: r.state}
	}
	if err := r.cache.Delete(ctx, CacheKey(r.mode, r.topicID)); err != nil {
		return fmt.Errorf("clear session cache: %w", err)
	}
	r.state = StateIdle
	r.sess = SessionState{}
	r.outcome = nil
	r.cancelled = false
	return nil
}
