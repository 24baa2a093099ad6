// Package main provides the aggregator entry point. It collects
// cybersecurity news from RSS sources, scores articles with Gemini
// models, and publishes approved items to Telegram.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"cyberbrief/internal/adapter/ai"
	"cyberbrief/internal/adapter/ai/gemini"
	"cyberbrief/internal/adapter/feeds"
	"cyberbrief/internal/adapter/fetch"
	"cyberbrief/internal/adapter/observability"
	"cyberbrief/internal/adapter/publisher/telegram"
	"cyberbrief/internal/adapter/repo/memory"
	"cyberbrief/internal/adapter/repo/postgres"
	"cyberbrief/internal/adapter/repo/seencache"
	"cyberbrief/internal/config"
	"cyberbrief/internal/domain"
	"cyberbrief/internal/service/ratelimiter"
	"cyberbrief/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	observability.InitMetrics()
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		addr := fmt.Sprintf(":%d", cfg.MetricsPort)
		if err := http.ListenAndServe(addr, mux); err != nil {
			slog.Error("metrics server error", slog.Any("error", err))
		}
	}()

	slog.Info("starting aggregator", slog.String("env", cfg.AppEnv))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	svc, cleanup, err := buildService(ctx, cfg)
	if err != nil {
		slog.Error("service init failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer cleanup()

	if cfg.CronSpec == "" {
		if _, err := svc.Run(ctx); err != nil {
			slog.Error("aggregation pass failed", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	runOnSchedule(ctx, cfg.CronSpec, svc)
}

// buildService wires every adapter into the aggregation service.
func buildService(ctx context.Context, cfg config.Config) (usecase.AggregateService, func(), error) {
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	// Repository: Postgres when enabled, process-local otherwise.
	var repo domain.ArticleRepository
	if cfg.DBEnabled {
		pool, err := postgres.NewPool(ctx, cfg.DBURL)
		if err != nil {
			return usecase.AggregateService{}, cleanup, fmt.Errorf("database connection failed: %w", err)
		}
		cleanups = append(cleanups, pool.Close)

		articleRepo := postgres.NewArticleRepo(pool)
		if err := articleRepo.EnsureSchema(ctx); err != nil {
			return usecase.AggregateService{}, cleanup, err
		}
		repo = articleRepo
	} else {
		slog.Warn("database disabled, dedup state will not survive restarts")
		repo = memory.NewRepo()
	}

	// Redis backs the seen-cache and the publish rate limiter when
	// configured; both degrade gracefully without it.
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		cleanups = append(cleanups, func() { _ = rdb.Close() })
		repo = seencache.New(repo, rdb)
	}

	fetcher := fetch.New(cfg.FetchTimeout)
	sources, err := feeds.DefaultSources(fetcher)
	if err != nil {
		return usecase.AggregateService{}, cleanup, err
	}

	scorer := ai.NewScorer(
		gemini.New(cfg.GeminiBaseURL, "", cfg.ModelTimeout),
		cfg.GeminiKeys,
		ai.WithBatchSize(cfg.BatchSize),
		ai.WithThreshold(cfg.ApproveThreshold),
	)

	bots := telegram.DiscoverBots(cfg.TelegramBotToken, cfg.TelegramChatIDs)
	pubOpts := []telegram.Option{telegram.WithAPIBase(cfg.TelegramAPIBase)}
	if rdb != nil {
		buckets := map[string]ratelimiter.BucketConfig{}
		for _, bot := range bots {
			for _, chatID := range bot.ChatIDs {
				buckets["publish:"+chatID] = ratelimiter.NewBucketConfigFromPerMinute(cfg.PublishPerMinute)
			}
		}
		pubOpts = append(pubOpts, telegram.WithLimiter(ratelimiter.NewRedisLuaLimiter(rdb, buckets)))
	}
	pub := telegram.New(bots, cfg.TelegramTimeout, pubOpts...)

	return usecase.NewAggregateService(sources, repo, scorer, pub), cleanup, nil
}

// runOnSchedule runs passes on the cron spec until a signal arrives.
// Passes never overlap; a pass still running when the next tick fires
// wins and the tick is skipped.
func runOnSchedule(ctx context.Context, spec string, svc usecase.AggregateService) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	_, err := c.AddFunc(spec, func() {
		if _, err := svc.Run(ctx); err != nil {
			slog.Error("scheduled pass failed", slog.Any("error", err))
		}
	})
	if err != nil {
		slog.Error("invalid cron spec", slog.String("spec", spec), slog.Any("error", err))
		os.Exit(1)
	}

	c.Start()
	slog.Info("aggregator scheduled", slog.String("spec", spec))

	<-ctx.Done()
	slog.Info("signal received, shutting down")
	<-c.Stop().Done()
	slog.Info("aggregator stopped")
}
