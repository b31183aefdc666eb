// Package extract prompts a language model to produce structured
// API-change records from documentation page text.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/depcrawl/depcrawl/internal/pipeline"
)

// Supported model providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
)

// Config selects and tunes the extraction model.
type Config struct {
	Provider    string
	Model       string
	APIKey      string
	OllamaHost  string
	MaxTokens   int
	Temperature float64
}

// Client asks a language model to extract change records from page
// text. It is stateless per call and safe for concurrent use.
type Client struct {
	model llms.Model
	cfg   Config
}

// NewClient builds a Client for the configured provider.
func NewClient(cfg Config) (*Client, error) {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1000
	}

	var (
		model llms.Model
		err   error
	)
	switch cfg.Provider {
	case ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai api key required")
		}
		model, err = openai.New(
			openai.WithToken(cfg.APIKey),
			openai.WithModel(cfg.Model),
		)
	case ProviderAnthropic:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("anthropic api key required")
		}
		model, err = anthropic.New(
			anthropic.WithToken(cfg.APIKey),
			anthropic.WithModel(cfg.Model),
		)
	case ProviderOllama:
		model, err = ollama.New(
			ollama.WithModel(cfg.Model),
			ollama.WithServerURL(cfg.OllamaHost),
		)
	default:
		return nil, fmt.Errorf("unsupported llm provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s model: %w", cfg.Provider, err)
	}

	return &Client{model: model, cfg: cfg}, nil
}

// NewClientWithModel wraps an already-constructed model. Tests use this
// to inject fakes.
func NewClientWithModel(model llms.Model, cfg Config) *Client {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1000
	}
	return &Client{model: model, cfg: cfg}
}

// Extract prompts the model with the page text and parses its JSON
// reply. Empty or unparsable replies are errors so the caller can retry
// them; they are never a silent success with empty fields.
func (c *Client) Extract(ctx context.Context, pageText, goal string) (pipeline.ChangeRecord, error) {
	prompt := fmt.Sprintf(extractorPrompt, goal, pageText)

	reply, err := llms.GenerateFromSinglePrompt(ctx, c.model, prompt,
		llms.WithTemperature(c.cfg.Temperature),
		llms.WithMaxTokens(c.cfg.MaxTokens),
		llms.WithJSONMode(),
	)
	if err != nil {
		return pipeline.ChangeRecord{}, fmt.Errorf("generate: %w", err)
	}
	return parseReply(reply)
}

// parseReply decodes the model reply into a ChangeRecord.
func parseReply(reply string) (pipeline.ChangeRecord, error) {
	cleaned := stripFences(strings.TrimSpace(reply))
	if cleaned == "" {
		return pipeline.ChangeRecord{}, fmt.Errorf("model returned an empty reply")
	}

	var rec pipeline.ChangeRecord
	if err := json.Unmarshal([]byte(cleaned), &rec); err != nil {
		return pipeline.ChangeRecord{}, fmt.Errorf("unparsable model reply: %w", err)
	}
	if !pipeline.KnownChangeType(rec.ChangeType) {
		// Empty is better than wrong.
		rec.ChangeType = ""
	}
	return rec, nil
}

// stripFences removes a markdown code fence around the reply, if any.
func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
