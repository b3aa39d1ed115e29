package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/owldoor/door-news/internal/config"
	"github.com/owldoor/door-news/internal/elasticsearch"
	"github.com/owldoor/door-news/internal/logger"
	"github.com/owldoor/door-news/internal/scheduler"
)

const (
	connectAttempts = 10
	maxConnectDelay = 30 * time.Second
)

var errClusterUnreachable = errors.New("elasticsearch unreachable after retries")

type pinger interface {
	Ping(ctx context.Context) error
}

type articlePurger interface {
	DeleteOlderThan(ctx context.Context, maxAge time.Duration, batchSize int) (int64, error)
}

func main() {
	_ = godotenv.Load()

	log := logger.New("retention")
	cfg, err := config.LoadRetention()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	esClient, err := elasticsearch.New(cfg.ElasticsearchAddr, cfg.ElasticsearchIndex, log)
	if err != nil {
		log.Error("init elasticsearch", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := waitForCluster(ctx, log, esClient, connectAttempts, 2*time.Second); err != nil {
		if errors.Is(err, context.Canceled) {
			log.Info("shutdown signal received during startup")
			return
		}
		log.Error("connect elasticsearch", slog.Any("err", err))
		os.Exit(1)
	}
	log.Info("connected to elasticsearch")

	sched, err := scheduler.ParseSchedule("", cfg.Interval)
	if err != nil {
		log.Error("parse schedule", slog.Any("err", err))
		os.Exit(1)
	}

	log.Info("retention job running",
		slog.Duration("interval", cfg.Interval),
		slog.Duration("max_age", cfg.MaxAge),
	)

	scheduler.New(sched, log).Run(ctx, func(ctx context.Context) error {
		return runOnce(ctx, log, esClient, cfg)
	})
}

// waitForCluster pings until the cluster answers, doubling delay between
// attempts up to maxConnectDelay.
func waitForCluster(ctx context.Context, log *slog.Logger, es pinger, attempts int, delay time.Duration) error {
	for i := 0; i < attempts; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := es.Ping(pingCtx)
		cancel()
		if err == nil {
			return nil
		}

		log.Warn("elasticsearch ping failed, retrying",
			slog.Any("err", err),
			slog.Int("attempt", i+1),
			slog.Int("max_retries", attempts),
			slog.Duration("retry_in", delay),
		)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay = min(delay*2, maxConnectDelay)
	}
	return errClusterUnreachable
}

func runOnce(ctx context.Context, log *slog.Logger, es articlePurger, cfg *config.Retention) error {
	subCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	deleted, err := es.DeleteOlderThan(subCtx, cfg.MaxAge, cfg.BatchSize)
	if err != nil {
		return err
	}

	if deleted > 0 {
		log.Info("retention run completed", slog.Int64("deleted", deleted))
	} else {
		log.Debug("retention run completed, no old articles found")
	}
	return nil
}
