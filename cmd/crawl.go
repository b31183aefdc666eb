package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/depcrawl/depcrawl/internal/clock/system"
	"github.com/depcrawl/depcrawl/internal/config"
	"github.com/depcrawl/depcrawl/internal/executor"
	"github.com/depcrawl/depcrawl/internal/extract"
	"github.com/depcrawl/depcrawl/internal/fetch"
	"github.com/depcrawl/depcrawl/internal/logging"
	"github.com/depcrawl/depcrawl/internal/manifest"
	"github.com/depcrawl/depcrawl/internal/pipeline"
	"github.com/depcrawl/depcrawl/internal/progress"
	"github.com/depcrawl/depcrawl/internal/retry"
	"github.com/depcrawl/depcrawl/internal/sink"
)

// newCrawlCmd creates the crawl command.
func newCrawlCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "crawl",
		Short: "Crawl the manifest URLs and produce the change dataset",
		Long: `crawl loads the URL manifest, skips URLs already recorded as
successful in the durable work log, processes the rest under the
configured concurrency budget, and promotes the work log to the final
output when every URL has a terminal record.`,
		RunE: runCrawl,
	}
}

func runCrawl(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush
	logger = logger.With(zap.String("run_id", uuid.NewString()))

	clk := system.New()

	pages := fetch.NewPageReader(fetch.Config{
		UserAgent:    cfg.Fetch.UserAgent,
		Timeout:      cfg.FetchTimeout(),
		MaxTextBytes: cfg.Fetch.MaxTextBytes,
	}, logger)

	client, err := extract.NewClient(extract.Config{
		Provider:    cfg.LLM.Provider,
		Model:       cfg.LLM.Model,
		APIKey:      cfg.LLM.APIKey,
		OllamaHost:  cfg.LLM.OllamaHost,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
	})
	if err != nil {
		return err
	}
	visitor := extract.NewVisitor(pages, client, cfg.LLM.Goal)

	retrier := retry.New(visitor, retry.Config{
		MaxAttempts: cfg.Pipeline.MaxRetries,
		Delay:       cfg.RetryDelay(),
		Policy:      retry.Policy(cfg.Pipeline.RetryPolicy),
	}, clk, logger)

	pool := executor.New(retrier.Attempt, executor.Config{
		Concurrency: cfg.Pipeline.Concurrency,
		TaskTimeout: cfg.TaskTimeout(),
	}, clk, logger)

	loader := manifest.NewLoader(cfg.Pipeline.InputPath, cfg.Pipeline.WorkLogPath)
	workLog := sink.New(cfg.Pipeline.WorkLogPath)
	tracker := progress.NewTracker(cfg.Pipeline.ProgressBatchSize, clk, logger)

	driver := pipeline.NewDriver(loader, pool, workLog, tracker, clk,
		pipeline.DriverConfig{OutputPath: cfg.Pipeline.OutputPath}, logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sum, err := driver.Run(ctx)
	if err != nil {
		return err
	}

	logger.Info("crawl complete",
		zap.Int("manifest_total", sum.ManifestTotal),
		zap.Int("already_done", sum.AlreadyDone),
		zap.Int("processed", sum.Processed),
		zap.Int("succeeded", sum.Succeeded),
		zap.Int("failed", sum.Failed),
		zap.Float64("success_rate_pct", sum.SuccessRate()),
		zap.Duration("elapsed", sum.Elapsed),
		zap.String("output", sum.OutputPath),
	)
	return nil
}
