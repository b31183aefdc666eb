// Package fetch reads documentation pages and converts them to plain
// text suitable for prompting.
package fetch

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// Config controls page fetching and text conversion.
type Config struct {
	UserAgent    string
	Timeout      time.Duration
	MaxTextBytes int
}

// PageReader fetches a URL and returns its text content, narrowed to the
// API section named by the URL fragment when one can be located.
type PageReader struct {
	cfg       Config
	base      *colly.Collector
	converter *md.Converter
	logger    *zap.Logger
}

// NewPageReader builds a PageReader.
func NewPageReader(cfg Config, logger *zap.Logger) *PageReader {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxTextBytes <= 0 {
		cfg.MaxTextBytes = 2000
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true
	// Retries revisit the same URL within one process.
	c.AllowURLRevisit = true
	return &PageReader{
		cfg:       cfg,
		base:      c,
		converter: md.NewConverter("", true, nil),
		logger:    logger,
	}
}

// ReadPage GETs the URL and returns its text. Transport errors, non-2xx
// statuses, and empty pages are errors; the caller treats them as
// retryable extraction failures.
func (p *PageReader) ReadPage(ctx context.Context, rawURL string) (string, error) {
	body, err := p.fetch(ctx, rawURL)
	if err != nil {
		return "", err
	}
	text, err := p.toText(rawURL, body)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("page %s produced no text content", rawURL)
	}
	p.logger.Debug("page read",
		zap.String("url", rawURL),
		zap.Int("bytes", len(body)),
		zap.Int("text_bytes", len(text)),
	)
	return p.clip(text), nil
}

func (p *PageReader) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	collector := p.base.Clone()
	if p.cfg.UserAgent != "" {
		collector.UserAgent = p.cfg.UserAgent
	}
	collector.SetRequestTimeout(p.cfg.Timeout)

	var (
		body     []byte
		fetchErr error
	)
	collector.OnResponse(func(r *colly.Response) {
		body = append([]byte(nil), r.Body...)
	})
	collector.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(rawURL)
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("fetch %s canceled: %w", rawURL, ctx.Err())
	case err := <-done:
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
		}
		if fetchErr != nil {
			return nil, fmt.Errorf("fetch %s: %w", rawURL, fetchErr)
		}
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("fetch %s: empty body", rawURL)
	}
	return body, nil
}

// toText converts the page body to text. When the URL fragment names an
// element on the page, only that element's section is converted.
func (p *PageReader) toText(rawURL string, body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", rawURL, err)
	}
	doc.Find("script,style,noscript").Remove()

	target := TargetAPI(rawURL)
	if target != "" {
		if section, ok := p.sectionHTML(doc, target); ok {
			text, err := p.converter.ConvertString(section)
			if err != nil {
				return "", fmt.Errorf("convert section %s: %w", target, err)
			}
			return fmt.Sprintf("TARGET API: %s\nTARGET API SECTION:\n%s", target, text), nil
		}
	}

	html, err := doc.Html()
	if err != nil {
		return "", fmt.Errorf("render %s: %w", rawURL, err)
	}
	text, err := p.converter.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("convert %s: %w", rawURL, err)
	}
	if target != "" {
		return fmt.Sprintf("TARGET API: %s\nFULL PAGE CONTENT:\n%s", target, text), nil
	}
	return text, nil
}

// sectionHTML returns the HTML of the element with the target id plus
// its following siblings, stopping at the next heading that introduces
// another API section.
func (p *PageReader) sectionHTML(doc *goquery.Document, target string) (string, bool) {
	node := doc.Find(fmt.Sprintf("[id=%q]", target)).First()
	if node.Length() == 0 {
		return "", false
	}

	var b strings.Builder
	if html, err := goquery.OuterHtml(node); err == nil {
		b.WriteString(html)
	}
	for sib := node.Next(); sib.Length() > 0; sib = sib.Next() {
		if startsNewSection(sib, target) {
			break
		}
		html, err := goquery.OuterHtml(sib)
		if err != nil {
			continue
		}
		b.WriteString("\n")
		b.WriteString(html)
	}
	return b.String(), true
}

var sectionKeywords = []string{"class", "function", "method", "api"}

// startsNewSection reports whether the selection is a heading for a
// different API section than the targeted one.
func startsNewSection(sel *goquery.Selection, target string) bool {
	switch goquery.NodeName(sel) {
	case "h1", "h2", "h3", "h4", "h5", "h6":
	default:
		return false
	}
	if id, _ := sel.Attr("id"); id == target {
		return false
	}
	text := strings.ToLower(strings.TrimSpace(sel.Text()))
	for _, kw := range sectionKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// TargetAPI guesses the API name a URL points at from its fragment. It
// is a best-effort helper; an empty string means the URL names no
// specific section.
func TargetAPI(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Fragment
}

func (p *PageReader) clip(text string) string {
	if len(text) <= p.cfg.MaxTextBytes {
		return text
	}
	return text[:p.cfg.MaxTextBytes] + "...\n[content truncated]"
}
