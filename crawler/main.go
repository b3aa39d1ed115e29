package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/owldoor/door-news/internal/backfill"
	"github.com/owldoor/door-news/internal/browser"
	"github.com/owldoor/door-news/internal/config"
	"github.com/owldoor/door-news/internal/events"
	"github.com/owldoor/door-news/internal/extract"
	"github.com/owldoor/door-news/internal/feed"
	"github.com/owldoor/door-news/internal/logger"
	"github.com/owldoor/door-news/internal/pipeline"
	"github.com/owldoor/door-news/internal/scheduler"
)

func main() {
	// A missing .env is fine; the process environment still applies.
	_ = godotenv.Load()

	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var schedule bool

	cmd := &cobra.Command{
		Use:           "crawler",
		Short:         "Harvest door and interior news into the feed artifact",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := logger.New("crawler")

			cfg, err := config.LoadCrawler()
			if err != nil {
				log.Error("load config", slog.Any("err", err))
				return err
			}

			p, cleanup, err := build(cfg, log)
			if err != nil {
				log.Error("init crawler", slog.Any("err", err))
				return err
			}
			defer cleanup()

			if !schedule {
				if _, err := p.RunCycle(cmd.Context()); err != nil {
					log.Error("crawl cycle failed", slog.Any("err", err))
					return err
				}
				return nil
			}

			return runScheduled(cmd.Context(), cfg, p, log)
		},
	}

	cmd.Flags().BoolVar(&schedule, "schedule", false, "keep running and crawl on every CRAWLER_INTERVAL or CRAWLER_CRON tick")
	return cmd
}

// build wires the cycle from cfg. The returned cleanup closes the event
// writer when one was configured.
func build(cfg *config.Crawler, log *slog.Logger) (*pipeline.Pipeline, func(), error) {
	launcher, err := browser.NewLauncher(browser.Options{
		Renderer:  cfg.Renderer,
		UserAgent: cfg.UserAgent,
		ExecPath:  cfg.ChromePath,
	})
	if err != nil {
		return nil, nil, err
	}

	filler := backfill.New(backfill.Options{
		Limit: cfg.BackfillLimit,
		Open: browser.OpenOptions{
			Timeout: cfg.ArticleTimeout,
			Settle:  cfg.ArticleSettle,
		},
	}, log)

	publisher := feed.NewPublisher(feed.Options{
		Path:             cfg.OutputFile,
		MaxArticles:      cfg.MaxArticles,
		DisplayCount:     cfg.DisplayCount,
		DefaultThumbnail: cfg.DefaultThumbnail,
	})

	p := pipeline.New(pipeline.Config{
		Keywords:  cfg.Keywords,
		SearchURL: cfg.SearchURL,
		Search: browser.OpenOptions{
			Timeout: cfg.SearchTimeout,
			Settle:  cfg.SearchSettle,
		},
		KeywordDelay: cfg.KeywordDelay,
	}, launcher, extract.New(extract.DefaultRules()), filler, publisher, log)

	cleanup := func() {}
	if len(cfg.KafkaBrokers) > 0 {
		notifier := events.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		p.WithNotifier(notifier)
		cleanup = func() {
			if err := notifier.Close(); err != nil {
				log.Warn("close event writer", slog.Any("err", err))
			}
		}
		log.Info("article events enabled", slog.String("topic", cfg.KafkaTopic))
	}

	log.Info("crawler configured",
		slog.Int("keywords", len(cfg.Keywords)),
		slog.String("renderer", cfg.Renderer),
		slog.String("output", cfg.OutputFile),
	)
	return p, cleanup, nil
}

func runScheduled(parent context.Context, cfg *config.Crawler, p *pipeline.Pipeline, log *slog.Logger) error {
	sched, err := scheduler.ParseSchedule(cfg.Cron, cfg.Interval)
	if err != nil {
		log.Error("parse schedule", slog.Any("err", err))
		return fmt.Errorf("parse schedule: %w", err)
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	log.Info("crawler scheduled",
		slog.String("cron", cfg.Cron),
		slog.Duration("interval", cfg.Interval),
	)

	scheduler.New(sched, log).Run(ctx, func(ctx context.Context) error {
		_, err := p.RunCycle(ctx)
		return err
	})

	log.Info("crawler stopped")
	return nil
}
