package extract

import (
	"context"

	"github.com/depcrawl/depcrawl/internal/pipeline"
)

// PageReader supplies the text content of a documentation page.
type PageReader interface {
	ReadPage(ctx context.Context, url string) (string, error)
}

// TextExtractor turns page text into a structured change record.
type TextExtractor interface {
	Extract(ctx context.Context, pageText, goal string) (pipeline.ChangeRecord, error)
}

// Visitor implements pipeline.Extractor by reading the page and handing
// its text to the extraction model.
type Visitor struct {
	pages  PageReader
	client TextExtractor
	goal   string
}

// NewVisitor constructs a Visitor.
func NewVisitor(pages PageReader, client TextExtractor, goal string) *Visitor {
	return &Visitor{pages: pages, client: client, goal: goal}
}

// Extract fetches the page and extracts a change record from its text.
// Fetch failures and model failures are both retryable errors.
func (v *Visitor) Extract(ctx context.Context, url string) (pipeline.ChangeRecord, error) {
	text, err := v.pages.ReadPage(ctx, url)
	if err != nil {
		return pipeline.ChangeRecord{}, err
	}

	rec, err := v.client.Extract(ctx, text, v.goal)
	if err != nil {
		return pipeline.ChangeRecord{}, err
	}
	if rec.Source == "" {
		rec.Source = url
	}
	return rec, nil
}
