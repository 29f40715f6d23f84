package memory

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/archive-ai/brain/pkg/models"
)

// Surprise gate defaults. A message is kept when the blend of how hard it
// was to predict and how unlike existing memories it is crosses the
// threshold.
const (
	defaultAlpha       = 0.6
	defaultNormDivisor = 5.0
)

// Scorer supplies the mean token logprob used for perplexity.
type Scorer interface {
	MeanLogprob(ctx context.Context, text string) (float64, error)
}

// vectorStore is the slice of Store the worker needs.
type vectorStore interface {
	Store(ctx context.Context, message string, perplexity, surprise float64, sessionID string, metadata map[string]string) (string, error)
	Search(ctx context.Context, query string, topK int, sessionID string) ([]models.Memory, error)
}

// WorkerConfig holds the surprise worker settings.
type WorkerConfig struct {
	StreamKey       string
	LastIDKey       string
	StartFromLatest bool
	Threshold       float64

	// Alpha weights perplexity against novelty in the surprise blend;
	// novelty gets 1-Alpha.
	Alpha float64
	// NormDivisor squashes log-perplexity into the unit interval.
	NormDivisor float64
}

// Worker consumes the input stream, scores each entry for surprise, and
// stores the ones worth remembering. One worker runs per process.
type Worker struct {
	rdb      *redis.Client
	store    vectorStore
	scorer   Scorer
	cfg      WorkerConfig
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewWorker creates a surprise worker.
func NewWorker(rdb *redis.Client, store vectorStore, scorer Scorer, cfg WorkerConfig) *Worker {
	if cfg.Threshold == 0 {
		cfg.Threshold = 0.7
	}
	if cfg.Alpha == 0 {
		cfg.Alpha = defaultAlpha
	}
	if cfg.NormDivisor == 0 {
		cfg.NormDivisor = defaultNormDivisor
	}
	return &Worker{
		rdb:    rdb,
		store:  store,
		scorer: scorer,
		cfg:    cfg,
		stopCh: make(chan struct{}),
	}
}

// Start begins the consume loop in a goroutine.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop signals the worker to stop and waits for it to finish.
// It is safe to call Stop multiple times.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
}

// Status reports the worker's view of the stream for health responses.
func (w *Worker) Status(ctx context.Context) WorkerStatus {
	st := WorkerStatus{
		Enabled:         true,
		StartFromLatest: w.cfg.StartFromLatest,
	}
	if id, err := w.rdb.Get(ctx, w.cfg.LastIDKey).Result(); err == nil {
		st.LastID = id
	}
	if n, err := w.rdb.XLen(ctx, w.cfg.StreamKey).Result(); err == nil {
		st.StreamLength = n
	}
	return st
}

// WorkerStatus is the health-endpoint view of the surprise worker.
type WorkerStatus struct {
	Enabled         bool   `json:"enabled"`
	StartFromLatest bool   `json:"start_from_latest"`
	LastID          string `json:"last_id"`
	StreamLength    int64  `json:"stream_length"`
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	lastID := w.resolveStartID(ctx)
	slog.Info("Surprise worker started",
		"stream", w.cfg.StreamKey, "last_id", lastID, "threshold", w.cfg.Threshold)

	for {
		select {
		case <-w.stopCh:
			slog.Info("Surprise worker shutting down")
			return
		case <-ctx.Done():
			slog.Info("Context cancelled, surprise worker shutting down")
			return
		default:
		}

		streams, err := w.rdb.XRead(ctx, &redis.XReadArgs{
			Streams: []string{w.cfg.StreamKey, lastID},
			Count:   10,
			Block:   time.Second,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue // block timed out, nothing new
			}
			if ctx.Err() != nil {
				continue // shutting down
			}
			slog.Error("Failed to read input stream", "error", err)
			w.sleep(time.Second)
			continue
		}

		for _, stream := range streams {
			for _, entry := range stream.Messages {
				w.processEntry(ctx, entry)
				lastID = entry.ID
				if err := w.rdb.Set(ctx, w.cfg.LastIDKey, lastID, 0).Err(); err != nil {
					slog.Warn("Failed to persist stream cursor", "error", err)
				}
			}
		}
	}
}

// sleep waits for the given duration or until stop is signalled.
func (w *Worker) sleep(d time.Duration) {
	select {
	case <-w.stopCh:
	case <-time.After(d):
	}
}

// processEntry scores one stream entry and stores it when surprising enough.
// Failures are logged and skipped; the cursor still advances so one bad
// entry cannot wedge the stream.
func (w *Worker) processEntry(ctx context.Context, entry redis.XMessage) {
	message, _ := entry.Values["message"].(string)
	if message == "" {
		return
	}

	meanLogprob, err := w.scorer.MeanLogprob(ctx, message)
	if err != nil {
		slog.Warn("Failed to score entry, skipping", "entry_id", entry.ID, "error", err)
		return
	}
	perplexity := math.Exp(-meanLogprob)
	novelty := w.novelty(ctx, message)
	surprise := SurpriseScore(perplexity, novelty, w.cfg.Alpha, w.cfg.NormDivisor)

	if surprise < w.cfg.Threshold {
		slog.Debug("Entry below surprise threshold",
			"entry_id", entry.ID, "surprise", surprise, "threshold", w.cfg.Threshold)
		return
	}

	metadata := map[string]string{"entry_id": entry.ID}
	if ts, ok := entry.Values["timestamp"].(string); ok && ts != "" {
		metadata["timestamp"] = ts
	}
	id, err := w.store.Store(ctx, message, perplexity, surprise, "default", metadata)
	if err != nil {
		slog.Error("Failed to store surprising memory", "entry_id", entry.ID, "error", err)
		return
	}
	slog.Info("Stored surprising memory",
		"memory_id", id, "surprise", surprise, "perplexity", perplexity, "novelty", novelty)
}

// novelty is the cosine distance to the nearest stored memory: 1 when the
// store is empty (everything is novel), 0.5 when the search itself fails.
func (w *Worker) novelty(ctx context.Context, message string) float64 {
	results, err := w.store.Search(ctx, message, 1, "")
	if err != nil {
		slog.Warn("Novelty search failed, using neutral novelty", "error", err)
		return 0.5
	}
	if len(results) == 0 {
		return 1.0
	}
	return results[0].Score
}

// SurpriseScore blends normalized perplexity with novelty: alpha weights
// perplexity, 1-alpha weights novelty. Perplexity is squashed with
// log(p+1)/normDivisor and capped at 1 so pathological perplexities cannot
// drown out novelty.
func SurpriseScore(perplexity, novelty, alpha, normDivisor float64) float64 {
	normalized := math.Min(1.0, math.Log(perplexity+1)/normDivisor)
	return alpha*normalized + (1-alpha)*novelty
}

// resolveStartID returns the stream cursor to resume from: the persisted
// cursor when present, otherwise the stream's current tail (when
// StartFromLatest) or the beginning.
func (w *Worker) resolveStartID(ctx context.Context) string {
	id, err := w.rdb.Get(ctx, w.cfg.LastIDKey).Result()
	if err == nil && id != "" {
		return id
	}
	if err != nil && !errors.Is(err, redis.Nil) {
		slog.Warn("Failed to read stream cursor, starting from beginning", "error", err)
		return "0"
	}
	if !w.cfg.StartFromLatest {
		return "0"
	}
	msgs, err := w.rdb.XRevRangeN(ctx, w.cfg.StreamKey, "+", "-", 1).Result()
	if err != nil || len(msgs) == 0 {
		return "0"
	}
	return msgs[0].ID
}
