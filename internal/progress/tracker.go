// Package progress tracks crawl completion counts and emits periodic
// summaries. It is a read-only observer of the result stream.
package progress

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/depcrawl/depcrawl/internal/pipeline"
)

const errPreviewLen = 80

// Summary is a point-in-time snapshot of run counters.
type Summary struct {
	Total     int
	Completed int
	Succeeded int
	Failed    int
	Elapsed   time.Duration
}

// Tracker implements pipeline.Observer: it counts completions, logs one
// line per URL, and logs a rate/ETA summary every batch.
type Tracker struct {
	mu        sync.Mutex
	total     int
	completed int
	succeeded int
	failed    int
	batchSize int
	started   time.Time
	clock     pipeline.Clock
	logger    *zap.Logger
}

// NewTracker constructs a Tracker summarizing every batchSize
// completions.
func NewTracker(batchSize int, clock pipeline.Clock, logger *zap.Logger) *Tracker {
	if batchSize < 1 {
		batchSize = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		batchSize: batchSize,
		clock:     clock,
		logger:    logger,
	}
}

// Start resets the counters for a run of total pending items.
func (t *Tracker) Start(total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.total = total
	t.completed = 0
	t.succeeded = 0
	t.failed = 0
	t.started = t.clock.Now()
}

// Observe records one terminal result.
func (t *Tracker) Observe(rec pipeline.ResultRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.completed++
	if rec.Succeeded() {
		t.succeeded++
		t.logger.Info("crawled",
			zap.String("url", rec.URL),
			zap.Int("completed", t.completed),
			zap.Int("total", t.total),
		)
	} else {
		t.failed++
		t.logger.Warn("crawl failed",
			zap.String("url", rec.URL),
			zap.String("error", truncate(rec.ErrorMsg, errPreviewLen)),
			zap.Int("completed", t.completed),
			zap.Int("total", t.total),
		)
	}

	if t.completed%t.batchSize == 0 || t.completed == t.total {
		t.logBatchLocked()
	}
}

func (t *Tracker) logBatchLocked() {
	elapsed := t.clock.Now().Sub(t.started)
	var avg time.Duration
	if t.completed > 0 {
		avg = elapsed / time.Duration(t.completed)
	}
	eta := time.Duration(t.total-t.completed) * avg
	t.logger.Info("progress",
		zap.Int("completed", t.completed),
		zap.Int("total", t.total),
		zap.Int("succeeded", t.succeeded),
		zap.Int("failed", t.failed),
		zap.Duration("elapsed", elapsed.Round(100*time.Millisecond)),
		zap.Duration("avg_per_url", avg.Round(time.Millisecond)),
		zap.Duration("eta", eta.Round(time.Second)),
	)
}

// Summary returns the current counters.
func (t *Tracker) Summary() Summary {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Summary{
		Total:     t.total,
		Completed: t.completed,
		Succeeded: t.succeeded,
		Failed:    t.failed,
		Elapsed:   t.clock.Now().Sub(t.started),
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
