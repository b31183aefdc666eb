// Package sink persists terminal records to an append-only CSV log and
// promotes the log to the final artifact when a run completes.
package sink

import (
	"encoding/csv"
	"fmt"
	"os"
	"sync"

	"github.com/depcrawl/depcrawl/internal/pipeline"
)

// CSVSink implements pipeline.Sink over a single CSV file. All writers
// serialize through one lock so no interleaved or partial row is ever
// written.
type CSVSink struct {
	mu   sync.Mutex
	path string
}

// New returns a sink writing the durable log at path.
func New(path string) *CSVSink {
	return &CSVSink{path: path}
}

// Initialize creates the durable log with its header row if it does not
// already exist. An existing log is left untouched; that is what makes
// resumption possible.
func (s *CSVSink) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat durable log: %w", err)
	}

	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create durable log %s: %w", s.path, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(pipeline.Columns()); err != nil {
		_ = f.Close()
		return fmt.Errorf("write durable log header: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return fmt.Errorf("flush durable log header: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close durable log: %w", err)
	}
	return nil
}

// Append writes exactly one row for the record using the fixed column
// order. Write failures propagate to the caller; a silently lost row
// would break resumability.
func (s *CSVSink) Append(rec pipeline.ResultRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("open durable log for append: %w", err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(rec.Row()); err != nil {
		_ = f.Close()
		return fmt.Errorf("write row for %s: %w", rec.URL, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return fmt.Errorf("flush row for %s: %w", rec.URL, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close durable log: %w", err)
	}
	return nil
}

// Promote swaps the durable log into the final artifact path. A prior
// artifact at finalPath is removed first; the rename itself is atomic
// from the filesystem's perspective, so no partially-written final file
// is ever observable.
func (s *CSVSink) Promote(finalPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path); err != nil {
		return fmt.Errorf("stat durable log before promotion: %w", err)
	}
	if err := os.Remove(finalPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove prior artifact %s: %w", finalPath, err)
	}
	if err := os.Rename(s.path, finalPath); err != nil {
		return fmt.Errorf("promote durable log to %s: %w", finalPath, err)
	}
	return nil
}
