package retry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/depcrawl/depcrawl/internal/pipeline"
)

type stubClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type scriptedExtractor struct {
	mu       sync.Mutex
	errs     []error
	change   pipeline.ChangeRecord
	attempts int
}

func (e *scriptedExtractor) Extract(_ context.Context, _ string) (pipeline.ChangeRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	i := e.attempts
	e.attempts++
	if i < len(e.errs) && e.errs[i] != nil {
		return pipeline.ChangeRecord{}, e.errs[i]
	}
	return e.change, nil
}

func TestAttemptSucceedsFirstTry(t *testing.T) {
	t.Parallel()

	ext := &scriptedExtractor{change: pipeline.ChangeRecord{API: "Foo"}}
	r := New(ext, Config{MaxAttempts: 2}, &stubClock{}, nil)

	rec := r.Attempt(context.Background(), pipeline.WorkItem{URL: "https://a.example.com", OriginalRow: 2})
	require.Equal(t, pipeline.StatusSuccess, rec.Status)
	require.Equal(t, "Foo", rec.Change.API)
	require.Empty(t, rec.ErrorMsg)
	require.Equal(t, 1, ext.attempts)
	require.False(t, rec.CrawledAt.IsZero())
}

func TestAttemptSucceedsAfterFailure(t *testing.T) {
	t.Parallel()

	ext := &scriptedExtractor{
		errs:   []error{errors.New("flaky")},
		change: pipeline.ChangeRecord{API: "Foo"},
	}
	r := New(ext, Config{MaxAttempts: 3, Delay: time.Millisecond}, &stubClock{}, nil)

	rec := r.Attempt(context.Background(), pipeline.WorkItem{URL: "https://a.example.com"})
	require.Equal(t, pipeline.StatusSuccess, rec.Status)
	require.Equal(t, 2, ext.attempts)
}

func TestAttemptExhaustsRetries(t *testing.T) {
	t.Parallel()

	ext := &scriptedExtractor{errs: []error{errors.New("down"), errors.New("still down")}}
	r := New(ext, Config{MaxAttempts: 2, Delay: time.Millisecond}, &stubClock{}, nil)

	rec := r.Attempt(context.Background(), pipeline.WorkItem{URL: "https://a.example.com", OriginalRow: 4})
	require.Equal(t, pipeline.StatusFailed, rec.Status)
	require.Equal(t, 4, rec.OriginalRow)
	require.Equal(t, "exhausted 2 attempts; last error: still down", rec.ErrorMsg)
	require.Equal(t, 2, ext.attempts)
}

func TestAttemptCanceledDuringBackoff(t *testing.T) {
	t.Parallel()

	ext := &scriptedExtractor{errs: []error{errors.New("down"), errors.New("down"), errors.New("down")}}
	r := New(ext, Config{MaxAttempts: 3, Delay: time.Hour}, &stubClock{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := r.Attempt(ctx, pipeline.WorkItem{URL: "https://a.example.com"})
	require.Equal(t, pipeline.StatusFailed, rec.Status)
	require.Contains(t, rec.ErrorMsg, "canceled while waiting to retry")
	require.Equal(t, 1, ext.attempts)
}

func TestBackoffPolicies(t *testing.T) {
	t.Parallel()

	fixed := New(nil, Config{MaxAttempts: 3, Delay: 2 * time.Second, Policy: PolicyFixed}, &stubClock{}, nil)
	require.Equal(t, 2*time.Second, fixed.backoff(0))
	require.Equal(t, 2*time.Second, fixed.backoff(3))

	exp := New(nil, Config{MaxAttempts: 3, Delay: 2 * time.Second, Policy: PolicyExponential}, &stubClock{}, nil)
	require.Equal(t, 2*time.Second, exp.backoff(0))
	require.Equal(t, 4*time.Second, exp.backoff(1))
	require.Equal(t, 8*time.Second, exp.backoff(2))
}

func TestNewDefaults(t *testing.T) {
	t.Parallel()

	r := New(&scriptedExtractor{}, Config{}, &stubClock{}, nil)
	require.Equal(t, 1, r.cfg.MaxAttempts)
	require.Equal(t, PolicyFixed, r.cfg.Policy)
}
