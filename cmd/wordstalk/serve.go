package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/wordstalk/internal/api"
	"github.com/IshaanNene/wordstalk/internal/config"
	"github.com/IshaanNene/wordstalk/internal/engine"
	"github.com/IshaanNene/wordstalk/internal/observability"
	"github.com/IshaanNene/wordstalk/internal/parser"
)

// serveCmd creates the "serve" subcommand, which runs crawls submitted over HTTP.
func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a REST API that runs crawl jobs",
		Long:  "Load the site snapshot once and run crawls submitted to POST /api/jobs until interrupted.",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}

	cmd.Flags().IntVar(&apiPort, "port", 8080, "API listen port")
	cmd.Flags().StringVarP(&sitePath, "site", "s", "", "site snapshot file (YAML)")
	cmd.Flags().IntVarP(&depth, "depth", "d", 0, "maximum crawl depth")
	cmd.Flags().StringVarP(&timeout, "timeout", "t", "", "crawl time limit, e.g. 2s")
	cmd.Flags().IntVarP(&popular, "top", "n", 0, "number of popular words to report")
	cmd.Flags().IntVarP(&parallelism, "parallelism", "p", 0, "worker count hint (0 = all CPUs)")
	cmd.Flags().StringVar(&impl, "implementation", "", "crawler implementation: parallel or sequential")

	return cmd
}

// runServe executes the serve command.
func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := applyCLIOverrides(cmd, cfg, nil); err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, logCloser, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("setup logger: %w", err)
	}
	defer logCloser.Close()

	site, err := loadSite(cfg.Parser, logger)
	if err != nil {
		return err
	}

	stats := &engine.Stats{}
	crawler, err := buildCrawler(cfg.Crawl, site, nil, logger, engine.WithStats(stats))
	if err != nil {
		return fmt.Errorf("create crawler: %w", err)
	}

	if cfg.Metrics.Enabled {
		metrics := observability.NewMetrics(stats, logger)
		if err := metrics.StartServer(cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
			logger.Warn("failed to start metrics server", "error", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			metrics.Shutdown(ctx)
		}()
	}

	srv := api.NewServer(apiPort, crawler, stats, logger, api.WithURLNormalizer(parser.CanonicalizeURL))
	if err := srv.Start(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info("received signal, shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
