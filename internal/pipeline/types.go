// Package pipeline defines core types shared across the crawl subsystems
// and the driver that sequences a run.
package pipeline

import (
	"strconv"
	"time"
)

// Status represents the terminal outcome recorded for one work item.
type Status string

// Status values persisted in the durable log.
const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// TimeLayout is the wall-clock format used for crawl_time in the durable
// log. Timestamps are recorded in local time.
const TimeLayout = "2006-01-02 15:04:05"

// Change types the extraction model is allowed to report. The empty
// string is also valid: it means the page carried no explicit change
// statement.
const (
	ChangeAPIRemoval     = "API Removal"
	ChangeAPIDeprecation = "API Deprecation"
	ChangeParameter      = "Parameter Change"
	ChangeBehavior       = "Behavior Change"
	ChangePerformance    = "Performance Optimization"
)

// KnownChangeType reports whether v is one of the enumerated change
// types or empty.
func KnownChangeType(v string) bool {
	switch v {
	case "", ChangeAPIRemoval, ChangeAPIDeprecation, ChangeParameter, ChangeBehavior, ChangePerformance:
		return true
	}
	return false
}

// WorkItem is one manifest URL awaiting extraction. The URL doubles as
// the dedup key; OriginalRow preserves the manifest row number for
// traceability and is never used for ordering.
type WorkItem struct {
	URL         string
	OriginalRow int
}

// ChangeRecord is the structured payload returned by the extraction
// model. The json tags match the model's reply schema.
type ChangeRecord struct {
	API          string `json:"api"`
	Package      string `json:"package"`
	Language     string `json:"language"`
	DeprecatedIn string `json:"deprecated_in"`
	RemovedIn    string `json:"removed_in"`
	ReplacedBy   string `json:"replaced_by"`
	ChangeType   string `json:"change_type"`
	Reason       string `json:"reason"`
	Source       string `json:"source"`
}

// ResultRecord is the terminal outcome persisted for one work item. It
// is appended to the durable log exactly once and never mutated after.
type ResultRecord struct {
	OriginalRow int
	URL         string
	CrawledAt   time.Time
	Status      Status
	ErrorMsg    string
	Change      ChangeRecord
}

// Succeeded reports whether the record carries an extracted payload.
func (r ResultRecord) Succeeded() bool {
	return r.Status == StatusSuccess
}

// Columns returns the durable log header in its fixed order. Every row,
// success or failure, has exactly this many fields.
func Columns() []string {
	return []string{
		"original_row_num", "url", "crawl_time", "crawl_status", "error_msg",
		"api", "package", "language",
		"deprecated_in", "removed_in", "replaced_by", "change_type", "reason",
		"source",
	}
}

// Row renders the record as one durable log row matching Columns.
// Fields not applicable to the record are empty strings, never omitted.
func (r ResultRecord) Row() []string {
	return []string{
		strconv.Itoa(r.OriginalRow),
		r.URL,
		r.CrawledAt.Format(TimeLayout),
		string(r.Status),
		r.ErrorMsg,
		r.Change.API,
		r.Change.Package,
		r.Change.Language,
		r.Change.DeprecatedIn,
		r.Change.RemovedIn,
		r.Change.ReplacedBy,
		r.Change.ChangeType,
		r.Change.Reason,
		r.Change.Source,
	}
}
