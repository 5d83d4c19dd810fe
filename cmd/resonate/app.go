package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"

	"github.com/resonatelabs/resonate/internal/config"
	"github.com/resonatelabs/resonate/internal/ers"
	"github.com/resonatelabs/resonate/internal/feed"
	"github.com/resonatelabs/resonate/internal/health"
	"github.com/resonatelabs/resonate/internal/infrastructure/cache"
	"github.com/resonatelabs/resonate/internal/infrastructure/llm"
	"github.com/resonatelabs/resonate/internal/infrastructure/vector"
	"github.com/resonatelabs/resonate/internal/ops"
	"github.com/resonatelabs/resonate/internal/persistence/postgres"
	"github.com/resonatelabs/resonate/internal/rpb"
	"github.com/resonatelabs/resonate/internal/scheduler"
)

// app holds the wired process dependencies. Handlers stay stateless; only
// connections and rate-limiter counters live for the process lifetime.
type app struct {
	Config    *config.Config
	Builder   *rpb.Builder
	Feed      *feed.Pipeline
	Monitor   *health.Monitor
	Scheduler *scheduler.Scheduler
	Ops       *ops.Server

	db    *sqlx.DB
	cache *cache.RedisCache
}

func loadApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	db, err := postgres.Connect(cfg.Postgres)
	if err != nil {
		return nil, err
	}
	repo := postgres.NewRepository(db, cfg.Postgres.QueryTimeout())

	redisCache := cache.New(cache.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	index := vector.NewClient(vector.ClientOptions{
		Host:      cfg.Vector.Host,
		APIKey:    os.Getenv(cfg.Vector.APIKeyEnv),
		Namespace: cfg.Vector.Namespace,
		Timeout:   time.Duration(cfg.Vector.TimeoutMS) * time.Millisecond,
	})

	limiter := llm.NewLimiter(cfg.LLM.WindowCalls, cfg.LLM.WindowSeconds)
	embedder, err := llm.NewOpenAIEmbedder(os.Getenv(cfg.LLM.EmbeddingKeyEnv), cfg.LLM.EmbeddingModel, limiter)
	if err != nil {
		return nil, fmt.Errorf("embedding client: %w", err)
	}
	completer := llm.NewAnthropicCompleter(
		os.Getenv(cfg.LLM.CompletionKeyEnv),
		cfg.LLM.CompletionModel,
		cfg.LLM.Temperature,
		cfg.LLM.MaxOutputTokens,
		limiter,
	)

	builder := rpb.NewBuilder(repo, redisCache, index, embedder, cfg.Rebuild)
	engine := ers.NewEngine(repo, redisCache)
	pipeline := feed.NewPipeline(repo, redisCache, index, engine, cfg.Feed)
	monitor := health.NewMonitor(repo, completer, cfg.Health)

	sched := scheduler.New()
	if err := scheduler.RegisterCoreJobs(sched, cfg.Scheduler, builder, monitor); err != nil {
		return nil, err
	}

	return &app{
		Config:    cfg,
		Builder:   builder,
		Feed:      pipeline,
		Monitor:   monitor,
		Scheduler: sched,
		Ops:       ops.NewServer(cfg.Ops.ListenAddr, db, redisCache),
		db:        db,
		cache:     redisCache,
	}, nil
}

// RunScheduler serves the cron loop and the ops endpoints together.
func (a *app) RunScheduler(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.Scheduler.Start(gctx) })
	g.Go(func() error { return a.Ops.Run(gctx) })
	return g.Wait()
}

// Close releases pooled connections.
func (a *app) Close() {
	if a.cache != nil {
		_ = a.cache.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}
