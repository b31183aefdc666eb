// Package retry wraps one extraction attempt with a bounded-retry policy
// and converts exhausted retries into a terminal failure record.
package retry

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/depcrawl/depcrawl/internal/pipeline"
)

// Policy selects how the delay between attempts grows.
type Policy string

const (
	// PolicyFixed waits the same delay between every attempt.
	PolicyFixed Policy = "fixed"
	// PolicyExponential doubles the delay after each failed attempt.
	PolicyExponential Policy = "exponential"
)

// Config controls Retrier behavior. MaxAttempts is the total number of
// extraction attempts per work item, including the first one.
type Config struct {
	MaxAttempts int
	Delay       time.Duration
	Policy      Policy
}

// Retrier invokes an Extractor up to MaxAttempts times per work item.
// Any success short-circuits; exhaustion yields a failed record whose
// error message carries the attempt count and the last failure.
type Retrier struct {
	extractor pipeline.Extractor
	cfg       Config
	clock     pipeline.Clock
	logger    *zap.Logger
}

// New constructs a Retrier.
func New(extractor pipeline.Extractor, cfg Config, clock pipeline.Clock, logger *zap.Logger) *Retrier {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.Policy == "" {
		cfg.Policy = PolicyFixed
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retrier{
		extractor: extractor,
		cfg:       cfg,
		clock:     clock,
		logger:    logger,
	}
}

// Attempt processes one work item to a terminal record. It sleeps only
// the calling goroutine between attempts, and the sleep ends early if
// ctx does.
func (r *Retrier) Attempt(ctx context.Context, item pipeline.WorkItem) pipeline.ResultRecord {
	rec := pipeline.ResultRecord{
		OriginalRow: item.OriginalRow,
		URL:         item.URL,
		CrawledAt:   r.clock.Now(),
		Status:      pipeline.StatusFailed,
	}

	var lastErr error
	for attempt := 0; attempt < r.cfg.MaxAttempts; attempt++ {
		change, err := r.extractor.Extract(ctx, item.URL)
		if err == nil {
			rec.Status = pipeline.StatusSuccess
			rec.Change = change
			return rec
		}
		lastErr = err
		r.logger.Debug("extraction attempt failed",
			zap.String("url", item.URL),
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", r.cfg.MaxAttempts),
			zap.Error(err),
		)
		if attempt == r.cfg.MaxAttempts-1 {
			break
		}
		if !r.sleep(ctx, r.backoff(attempt)) {
			lastErr = fmt.Errorf("canceled while waiting to retry: %w", lastErr)
			break
		}
	}

	rec.ErrorMsg = fmt.Sprintf("exhausted %d attempts; last error: %v", r.cfg.MaxAttempts, lastErr)
	return rec
}

// backoff returns the wait after the given zero-based failed attempt.
func (r *Retrier) backoff(attempt int) time.Duration {
	if r.cfg.Policy != PolicyExponential {
		return r.cfg.Delay
	}
	delay := r.cfg.Delay
	for i := 0; i < attempt; i++ {
		delay *= 2
	}
	return delay
}

// sleep waits d or until ctx ends, reporting whether the full wait
// elapsed.
func (r *Retrier) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
