package pipeline

import (
	"context"
	"time"
)

// Extractor turns one documentation URL into a structured change record.
// Implementations must be safe for concurrent use; the executor calls
// Extract from many goroutines at once.
type Extractor interface {
	Extract(ctx context.Context, url string) (ChangeRecord, error)
}

// Source computes the set of work items still needing processing from
// the input manifest and the durable log of a prior run. It also reports
// how many manifest URLs are already done.
type Source interface {
	LoadPending() (items []WorkItem, completed int, err error)
}

// Runner executes work items under a bounded concurrency budget. The
// returned channel yields each terminal record as soon as it is ready,
// in completion order, and closes once every admitted item has one.
type Runner interface {
	Run(ctx context.Context, items []WorkItem) <-chan ResultRecord
}

// Sink persists terminal records to the durable log and promotes the
// log to the final artifact once a run completes.
type Sink interface {
	Initialize() error
	Append(rec ResultRecord) error
	Promote(finalPath string) error
}

// Observer consumes each terminal record for reporting. Observers are
// purely observational and must not affect control flow.
type Observer interface {
	Start(total int)
	Observe(rec ResultRecord)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
