// Package manifest loads the input URL manifest and the durable log of a
// prior run, producing the set of work items still needing processing.
package manifest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/depcrawl/depcrawl/internal/pipeline"
)

// Sentinel errors surfaced to the CLI for a non-zero exit before any
// work starts.
var (
	ErrManifestMissing   = errors.New("input manifest not found")
	ErrManifestMalformed = errors.New("input manifest is missing the url column")
)

// Loader implements pipeline.Source over CSV files.
type Loader struct {
	manifestPath string
	logPath      string
}

// NewLoader constructs a Loader reading the manifest at manifestPath and
// the durable log (if any) at logPath.
func NewLoader(manifestPath, logPath string) *Loader {
	return &Loader{manifestPath: manifestPath, logPath: logPath}
}

// LoadPending returns the manifest URLs without a successful record in
// the durable log, plus the number of already-completed URLs. Failed
// records do not count as completed; those URLs are retried. Row numbers
// start at 2 because the header occupies row 1.
func (l *Loader) LoadPending() ([]pipeline.WorkItem, int, error) {
	completed, err := l.completedURLs()
	if err != nil {
		return nil, 0, err
	}

	f, err := os.Open(l.manifestPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, fmt.Errorf("%w: %s", ErrManifestMissing, l.manifestPath)
		}
		return nil, 0, fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("%w: no header row in %s", ErrManifestMalformed, l.manifestPath)
	}
	urlCol := columnIndex(header, "url")
	if urlCol < 0 {
		return nil, 0, fmt.Errorf("%w: %s", ErrManifestMalformed, l.manifestPath)
	}

	var items []pipeline.WorkItem
	seen := make(map[string]struct{}, len(completed))
	for row := 2; ; row++ {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("read manifest row %d: %w", row, err)
		}
		if urlCol >= len(record) {
			continue
		}
		url := strings.TrimSpace(record[urlCol])
		if url == "" {
			continue
		}
		if _, dup := seen[url]; dup {
			continue
		}
		seen[url] = struct{}{}
		if _, done := completed[url]; done {
			continue
		}
		items = append(items, pipeline.WorkItem{URL: url, OriginalRow: row})
	}
	return items, len(completed), nil
}

// completedURLs collects URLs with a success record in the durable log.
// A missing log means a fresh run; a log without the expected columns is
// treated the same way rather than blocking the run.
func (l *Loader) completedURLs() (map[string]struct{}, error) {
	completed := make(map[string]struct{})

	f, err := os.Open(l.logPath)
	if err != nil {
		if os.IsNotExist(err) {
			return completed, nil
		}
		return nil, fmt.Errorf("open durable log: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return completed, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read durable log header: %w", err)
	}
	urlCol := columnIndex(header, "url")
	statusCol := columnIndex(header, "crawl_status")
	if urlCol < 0 || statusCol < 0 {
		return completed, nil
	}

	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read durable log: %w", err)
		}
		if urlCol >= len(record) || statusCol >= len(record) {
			continue
		}
		if record[statusCol] == string(pipeline.StatusSuccess) {
			completed[strings.TrimSpace(record[urlCol])] = struct{}{}
		}
	}
	return completed, nil
}

func columnIndex(header []string, name string) int {
	for i, col := range header {
		if strings.TrimSpace(col) == name {
			return i
		}
	}
	return -1
}
