package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/websightdev/websight/internal/api"
	"github.com/websightdev/websight/internal/config"
	"github.com/websightdev/websight/internal/crawler"
	collyfetcher "github.com/websightdev/websight/internal/fetcher/colly"
	"github.com/websightdev/websight/internal/fetcher/retry"
	"github.com/websightdev/websight/internal/logging"
	"github.com/websightdev/websight/internal/progress"
	"github.com/websightdev/websight/internal/progress/sinks"
	"github.com/websightdev/websight/internal/report"
	"github.com/websightdev/websight/internal/storage/sqlite"
)

func newCrawlCmd() *cobra.Command {
	var (
		seed     string
		maxPages int
		workers  int
	)

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl a site and export its link graph",
		Long: `Crawls breadth-first from the seed URL, restricted to the seed's
domain, until the frontier drains or the page budget is spent. The
finished graph is written to the configured output formats.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			if seed != "" {
				cfg.Crawl.Seed = seed
			}
			if cmd.Flags().Changed("max-pages") {
				cfg.Crawl.MaxPages = maxPages
			}
			if cmd.Flags().Changed("workers") {
				cfg.Crawl.Workers = workers
			}
			if cfg.Crawl.Seed == "" {
				return fmt.Errorf("a seed URL is required (--seed or crawl.seed)")
			}
			return runCrawl(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&seed, "seed", "", "seed URL to crawl from")
	cmd.Flags().IntVar(&maxPages, "max-pages", 0, "page budget, 0 for unlimited")
	cmd.Flags().IntVar(&workers, "workers", 0, "number of concurrent fetch workers")
	return cmd
}

func runCrawl(ctx context.Context, cfg config.Config) error {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	promSink, err := sinks.NewPrometheusSink(nil)
	if err != nil {
		return fmt.Errorf("init prometheus sink: %w", err)
	}
	hub := progress.NewHub(progress.Config{Logger: logger}, sinks.NewLogSink(logger), promSink)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := hub.Close(closeCtx); err != nil {
			logger.Warn("progress hub close failed", zap.Error(err))
		}
	}()

	crawlObserver := progress.NewCrawlObserver(hub)
	observer := crawler.Observer(crawlObserver)
	logger = logger.With(zap.String("run_id", crawlObserver.RunID().String()))

	var statusServer *api.Server
	serverDone := make(chan error, 1)
	if cfg.Server.Enabled {
		statusServer = api.NewServer(logger)
		observer = crawler.MultiObserver(crawlObserver, statusServer)
		go func() {
			serverDone <- statusServer.Serve(ctx, fmt.Sprintf(":%d", cfg.Server.Port))
		}()
	}

	fetcher := retry.New(
		collyfetcher.New(collyfetcher.Config{
			UserAgent: cfg.HTTP.UserAgent,
			Timeout:   cfg.HTTP.Timeout(),
		}),
		retry.Config{
			MaxRetries:  cfg.HTTP.MaxRetries,
			BackoffBase: cfg.HTTP.RetryBackoff(),
		},
		logger,
	)
	engine, err := crawler.NewEngine(crawler.EngineConfig{
		Seed:           cfg.Crawl.Seed,
		Domain:         cfg.Crawl.Domain,
		MaxPages:       cfg.Crawl.MaxPages,
		Workers:        cfg.Crawl.Workers,
		PerWorkerDelay: cfg.Crawl.Delay(),
		Timeout:        cfg.Crawl.Timeout(),
	}, fetcher, nil, observer, logger)
	if err != nil {
		return fmt.Errorf("init engine: %w", err)
	}

	graph, summary, err := engine.Run(ctx)
	if err != nil {
		return fmt.Errorf("crawl: %w", err)
	}

	snapshot := graph.Snapshot()
	if statusServer != nil {
		statusServer.SetResult(snapshot, summary)
	}
	if err := writeOutputs(ctx, cfg, snapshot, summary, logger); err != nil {
		return err
	}

	if cfg.Server.Enabled {
		logger.Info("crawl done, status server still running (Ctrl-C to exit)")
		<-ctx.Done()
		if err := <-serverDone; err != nil {
			logger.Warn("status server stopped", zap.Error(err))
		}
	}
	return nil
}

func writeOutputs(ctx context.Context, cfg config.Config, snapshot crawler.Snapshot, summary crawler.Summary, logger *zap.Logger) error {
	rep := report.New(snapshot, summary, time.Now())

	if cfg.Output.JSON || cfg.Output.CSV || cfg.Output.HTML {
		if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	write := func(name string, fn func(f *os.File) error) error {
		path := filepath.Join(cfg.Output.Dir, name)
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
		defer f.Close()
		if err := fn(f); err != nil {
			return err
		}
		logger.Info("wrote export", zap.String("path", path))
		return nil
	}

	if cfg.Output.JSON {
		if err := write("crawl.json", func(f *os.File) error { return rep.WriteJSON(f) }); err != nil {
			return err
		}
	}
	if cfg.Output.CSV {
		if err := write("crawl.csv", func(f *os.File) error { return rep.WriteCSV(f) }); err != nil {
			return err
		}
	}
	if cfg.Output.HTML {
		if err := write("crawl.html", func(f *os.File) error { return rep.WriteHTML(f) }); err != nil {
			return err
		}
	}

	if cfg.Output.SQLitePath != "" {
		store, err := sqlite.Open(cfg.Output.SQLitePath)
		if err != nil {
			return fmt.Errorf("open sqlite store: %w", err)
		}
		defer store.Close()
		crawlID, err := store.SaveCrawl(ctx, snapshot, summary, time.Now())
		if err != nil {
			return fmt.Errorf("persist crawl: %w", err)
		}
		logger.Info("persisted crawl",
			zap.String("path", cfg.Output.SQLitePath),
			zap.Int64("crawl_id", crawlID),
		)
	}
	return nil
}
