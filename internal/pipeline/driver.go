package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// DriverConfig controls run-level driver behavior.
type DriverConfig struct {
	// OutputPath is the final artifact the durable log is promoted to.
	OutputPath string
}

// Summary is the final report for a pipeline run.
type Summary struct {
	ManifestTotal int
	AlreadyDone   int
	Processed     int
	Succeeded     int
	Failed        int
	Elapsed       time.Duration
	OutputPath    string
}

// SuccessRate returns the percentage of processed items that succeeded.
func (s Summary) SuccessRate() float64 {
	if s.Processed == 0 {
		return 0
	}
	return float64(s.Succeeded) / float64(s.Processed) * 100
}

// Driver sequences manifest loading, bounded execution, durable appends,
// and final promotion.
type Driver struct {
	source   Source
	runner   Runner
	sink     Sink
	observer Observer
	clock    Clock
	cfg      DriverConfig
	logger   *zap.Logger
}

// NewDriver constructs a Driver.
func NewDriver(
	source Source,
	runner Runner,
	sink Sink,
	observer Observer,
	clock Clock,
	cfg DriverConfig,
	logger *zap.Logger,
) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{
		source:   source,
		runner:   runner,
		sink:     sink,
		observer: observer,
		clock:    clock,
		cfg:      cfg,
		logger:   logger,
	}
}

// Run drives the pipeline to completion. Per-URL failures are recorded
// in the durable log and do not abort the run; manifest-level and
// sink-level failures do.
func (d *Driver) Run(ctx context.Context) (Summary, error) {
	start := d.clock.Now()

	items, completed, err := d.source.LoadPending()
	if err != nil {
		return Summary{}, err
	}

	sum := Summary{
		ManifestTotal: completed + len(items),
		AlreadyDone:   completed,
		OutputPath:    d.cfg.OutputPath,
	}

	// The log must exist with its header before any append, and before
	// promotion when a prior crashed run left nothing pending.
	if err := d.sink.Initialize(); err != nil {
		return sum, fmt.Errorf("initialize durable log: %w", err)
	}

	if len(items) == 0 {
		d.logger.Info("all manifest URLs already crawled; promoting durable log",
			zap.Int("already_done", completed),
		)
		if err := d.sink.Promote(d.cfg.OutputPath); err != nil {
			return sum, fmt.Errorf("promote durable log: %w", err)
		}
		sum.Elapsed = d.clock.Now().Sub(start)
		return sum, nil
	}

	d.logger.Info("starting crawl",
		zap.Int("pending", len(items)),
		zap.Int("already_done", completed),
	)
	if d.observer != nil {
		d.observer.Start(len(items))
	}

	for rec := range d.runner.Run(ctx, items) {
		if err := d.append(rec); err != nil {
			return sum, err
		}
		sum.Processed++
		if rec.Succeeded() {
			sum.Succeeded++
		} else {
			sum.Failed++
		}
		if d.observer != nil {
			d.observer.Observe(rec)
		}
	}

	if err := d.sink.Promote(d.cfg.OutputPath); err != nil {
		return sum, fmt.Errorf("promote durable log: %w", err)
	}
	sum.Elapsed = d.clock.Now().Sub(start)
	return sum, nil
}

// append retries a failed write once before aborting the run. A silently
// dropped row would break the resumability invariant, so the second
// failure propagates.
func (d *Driver) append(rec ResultRecord) error {
	err := d.sink.Append(rec)
	if err == nil {
		return nil
	}
	d.logger.Warn("durable log append failed; retrying once",
		zap.String("url", rec.URL),
		zap.Error(err),
	)
	if err := d.sink.Append(rec); err != nil {
		return fmt.Errorf("append result for %s: %w", rec.URL, err)
	}
	return nil
}
