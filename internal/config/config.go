// Package config loads and validates depcrawl configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Fetch    FetchConfig    `mapstructure:"fetch"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// PipelineConfig governs the crawl pipeline: paths, concurrency, and
// retry behavior.
type PipelineConfig struct {
	InputPath          string  `mapstructure:"input_path"`
	OutputPath         string  `mapstructure:"output_path"`
	WorkLogPath        string  `mapstructure:"work_log_path"`
	Concurrency        int     `mapstructure:"concurrency"`
	MaxRetries         int     `mapstructure:"max_retries"`
	RetryDelaySeconds  float64 `mapstructure:"retry_delay_seconds"`
	RetryPolicy        string  `mapstructure:"retry_policy"`
	TaskTimeoutSeconds float64 `mapstructure:"task_timeout_seconds"`
	ProgressBatchSize  int     `mapstructure:"progress_batch_size"`
}

// FetchConfig controls page fetching and text conversion.
type FetchConfig struct {
	UserAgent      string `mapstructure:"user_agent"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	MaxTextBytes   int    `mapstructure:"max_text_bytes"`
}

// LLMConfig selects and tunes the extraction model.
type LLMConfig struct {
	Provider    string  `mapstructure:"provider"`
	Model       string  `mapstructure:"model"`
	APIKey      string  `mapstructure:"api_key"`
	OllamaHost  string  `mapstructure:"ollama_host"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
	Goal        string  `mapstructure:"goal"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

const defaultGoal = "Extract only API change information that is explicitly present on the page. " +
	"If the page has no explicit change statement, change_type and reason must be empty. " +
	"Never invent or infer information."

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("DEPCRAWL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("pipeline.input_path", "input.csv")
	v.SetDefault("pipeline.output_path", "output.csv")
	v.SetDefault("pipeline.work_log_path", "api_crawl_work.csv")
	v.SetDefault("pipeline.concurrency", 3)
	v.SetDefault("pipeline.max_retries", 2)
	v.SetDefault("pipeline.retry_delay_seconds", 2.0)
	v.SetDefault("pipeline.retry_policy", "fixed")
	v.SetDefault("pipeline.task_timeout_seconds", 60.0)
	v.SetDefault("pipeline.progress_batch_size", 10)
	v.SetDefault("fetch.user_agent", "depcrawl/1.0 (+https://github.com/depcrawl/depcrawl)")
	v.SetDefault("fetch.timeout_seconds", 15)
	v.SetDefault("fetch.max_text_bytes", 2000)
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", "gpt-4o")
	// Empty defaults keep these keys visible to AutomaticEnv so
	// DEPCRAWL_LLM_API_KEY and DEPCRAWL_LLM_OLLAMA_HOST bind.
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.ollama_host", "")
	v.SetDefault("llm.max_tokens", 1000)
	v.SetDefault("llm.temperature", 0.1)
	v.SetDefault("llm.goal", defaultGoal)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Pipeline.InputPath == "" {
		return fmt.Errorf("pipeline.input_path must be set")
	}
	if c.Pipeline.OutputPath == "" {
		return fmt.Errorf("pipeline.output_path must be set")
	}
	if c.Pipeline.WorkLogPath == "" {
		return fmt.Errorf("pipeline.work_log_path must be set")
	}
	if c.Pipeline.Concurrency < 1 {
		return fmt.Errorf("pipeline.concurrency must be >= 1")
	}
	if c.Pipeline.MaxRetries < 1 {
		return fmt.Errorf("pipeline.max_retries must be >= 1")
	}
	if c.Pipeline.RetryDelaySeconds < 0 {
		return fmt.Errorf("pipeline.retry_delay_seconds must be >= 0")
	}
	if c.Pipeline.RetryPolicy != "fixed" && c.Pipeline.RetryPolicy != "exponential" {
		return fmt.Errorf("pipeline.retry_policy must be fixed or exponential")
	}
	if c.Pipeline.TaskTimeoutSeconds <= 0 {
		return fmt.Errorf("pipeline.task_timeout_seconds must be > 0")
	}
	if c.Pipeline.ProgressBatchSize < 1 {
		return fmt.Errorf("pipeline.progress_batch_size must be >= 1")
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		return fmt.Errorf("fetch.timeout_seconds must be > 0")
	}
	if c.Fetch.MaxTextBytes < 1 {
		return fmt.Errorf("fetch.max_text_bytes must be >= 1")
	}
	if c.LLM.Provider == "" {
		return fmt.Errorf("llm.provider must be set")
	}
	return nil
}

// RetryDelay converts the retry delay config into a duration.
func (c Config) RetryDelay() time.Duration {
	return time.Duration(c.Pipeline.RetryDelaySeconds * float64(time.Second))
}

// TaskTimeout converts the per-task timeout config into a duration.
func (c Config) TaskTimeout() time.Duration {
	return time.Duration(c.Pipeline.TaskTimeoutSeconds * float64(time.Second))
}

// FetchTimeout converts the fetch timeout config into a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}
