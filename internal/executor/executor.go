// Package executor runs extraction tasks under a fixed concurrency
// budget, surfacing each terminal record as soon as it is ready.
package executor

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/depcrawl/depcrawl/internal/pipeline"
)

// TaskFunc processes one work item to a terminal record. Tasks report
// failures inside the record, never as errors.
type TaskFunc func(ctx context.Context, item pipeline.WorkItem) pipeline.ResultRecord

// Config controls Executor behavior.
type Config struct {
	Concurrency int
	TaskTimeout time.Duration
}

// Executor implements pipeline.Runner with a bounded worker budget. At
// most Concurrency tasks are in flight at any instant; a completed task
// frees its slot for the next queued item.
type Executor struct {
	task   TaskFunc
	cfg    Config
	clock  pipeline.Clock
	logger *zap.Logger
}

// New constructs an Executor.
func New(task TaskFunc, cfg Config, clock pipeline.Clock, logger *zap.Logger) *Executor {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		task:   task,
		cfg:    cfg,
		clock:  clock,
		logger: logger,
	}
}

// Run dispatches items across the worker budget. The returned channel
// yields records in completion order and closes once every admitted
// item has a terminal record. Once ctx ends no further items are
// admitted; unstarted items stay pending for the next run.
func (e *Executor) Run(ctx context.Context, items []pipeline.WorkItem) <-chan pipeline.ResultRecord {
	results := make(chan pipeline.ResultRecord, e.cfg.Concurrency)

	go func() {
		defer close(results)

		var g errgroup.Group
		g.SetLimit(e.cfg.Concurrency)
		for i, item := range items {
			if ctx.Err() != nil {
				e.logger.Warn("run canceled; leaving remaining items pending",
					zap.Int("remaining", len(items)-i),
				)
				break
			}
			g.Go(func() error {
				results <- e.runOne(ctx, item)
				return nil
			})
		}
		_ = g.Wait()
	}()

	return results
}

// runOne applies the per-task timeout and converts panics from the task
// into a failed record so one fault cannot abort the whole run.
func (e *Executor) runOne(ctx context.Context, item pipeline.WorkItem) pipeline.ResultRecord {
	taskCtx := ctx
	cancel := context.CancelFunc(func() {})
	if e.cfg.TaskTimeout > 0 {
		taskCtx, cancel = context.WithTimeout(ctx, e.cfg.TaskTimeout)
	}
	defer cancel()

	// The buffered channel lets a task that outlives its deadline finish
	// its send and exit instead of leaking on a blocked channel.
	done := make(chan pipeline.ResultRecord, 1)
	go func() {
		defer func() {
			if v := recover(); v != nil {
				e.logger.Error("task fault",
					zap.String("url", item.URL),
					zap.Any("panic", v),
				)
				done <- e.failedRecord(item, fmt.Sprintf("task fault: %v", v))
			}
		}()
		done <- e.task(taskCtx, item)
	}()

	select {
	case rec := <-done:
		return rec
	case <-taskCtx.Done():
		if ctx.Err() != nil {
			return e.failedRecord(item, "canceled")
		}
		return e.failedRecord(item, "timeout")
	}
}

func (e *Executor) failedRecord(item pipeline.WorkItem, msg string) pipeline.ResultRecord {
	return pipeline.ResultRecord{
		OriginalRow: item.OriginalRow,
		URL:         item.URL,
		CrawledAt:   e.clock.Now(),
		Status:      pipeline.StatusFailed,
		ErrorMsg:    msg,
	}
}
