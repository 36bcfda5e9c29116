package runner

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/AndyVanLandhof/psychprep/internal/bank"
	"github.com/AndyVanLandhof/psychprep/internal/genset"
)

// prefetchModes are the set shapes warmed ahead of a topic being opened.
var prefetchModes = []bank.Mode{bank.ModeMCQ, bank.ModeShort, bank.ModeScenario}

// Prefetch warms the session cache for a topic: every mode slot is first
// seeded with a bank-sampled fallback set so opening is instant, then the
// three AI sets are generated concurrently, each against its own timeout,
// each overwriting only its own cache slot on success. Failures leave the
// fallback in place. Slots already holding a session are not touched, so
// prefetch never clobbers an attempt in progress.
func Prefetch(ctx context.Context, index *bank.Index, gen SetGenerator, cache Cache, topicID, topicTitle string, timeout time.Duration) {
	if timeout <= 0 {
		timeout = DefaultConfig().FetchTimeout
	}

	var wg sync.WaitGroup
	for _, mode := range prefetchModes {
		if existing, err := cache.Get(ctx, CacheKey(mode, topicID)); err == nil && existing != nil {
			continue
		}

		fallback := index.Sample(topicID, mode, genset.DefaultCount(mode))
		writeSlot(ctx, cache, mode, topicID, fallback)

		if gen == nil {
			continue
		}
		wg.Add(1)
		go func(mode bank.Mode) {
			defer wg.Done()
			prefetchMode(ctx, gen, cache, index, mode, topicID, topicTitle, timeout)
		}(mode)
	}
	wg.Wait()
}

// prefetchMode races one mode's generation against the timeout. The
// generation call itself is not aborted on timeout; a late result is
// simply not written.
func prefetchMode(ctx context.Context, gen SetGenerator, cache Cache, index *bank.Index, mode bank.Mode, topicID, topicTitle string, timeout time.Duration) {
	type genResult struct {
		records []bank.Record
		err     error
	}
	ch := make(chan genResult, 1)
	go func() {
		cues := index.Sample(topicID, mode, 2)
		stems := make([]string, 0, len(cues))
		for _, c := range cues {
			stems = append(stems, c.Stem)
		}
		records, err := gen.Generate(ctx, genset.Input{
			TopicID:    topicID,
			TopicTitle: topicTitle,
			Mode:       mode,
			StyleCues:  stems,
		})
		ch <- genResult{records, err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		if res.err != nil {
			slog.Debug("prefetch generation failed, keeping fallback", "mode", mode, "topic", topicID, "err", res.err)
			return
		}
		writeSlot(ctx, cache, mode, topicID, res.records)
	case <-timer.C:
		slog.Debug("prefetch timed out, keeping fallback", "mode", mode, "topic", topicID)
	case <-ctx.Done():
	}
}

func writeSlot(ctx context.Context, cache Cache, mode bank.Mode, topicID string, items []bank.Record) {
	if len(items) == 0 {
		return
	}
	raw, err := json.Marshal(SessionState{
		Mode:      mode,
		TopicID:   topicID,
		Items:     items,
		Answers:   map[int]Answer{},
		StartedAt: time.Now(),
	})
	if err != nil {
		slog.Warn("prefetch snapshot marshal failed", "err", err)
		return
	}
	if err := cache.Put(ctx, CacheKey(mode, topicID), raw); err != nil {
		slog.Warn("prefetch snapshot write failed", "mode", mode, "topic", topicID, "err", err)
	}
}
