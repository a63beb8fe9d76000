// Package app wires configuration to adapters, use cases, and lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"newsflow/internal/cache"
	"newsflow/internal/config"
	"newsflow/internal/dedup"
	"newsflow/internal/filter"
	"newsflow/internal/infrastructure/enrich"
	"newsflow/internal/infrastructure/feed"
	"newsflow/internal/infrastructure/scheduler"
	"newsflow/internal/infrastructure/storage"
	"newsflow/internal/infrastructure/telegram"
	"newsflow/internal/logging"
	"newsflow/internal/ports"
	"newsflow/internal/queue"
	"newsflow/internal/score"
	"newsflow/internal/source"
	"newsflow/internal/usecase"
)

// stopTimeout bounds how long shutdown waits for an in-progress cycle.
const stopTimeout = 15 * time.Second

// Application owns the two long-running loops (collection scheduler and
// posting dispatcher) and the shared storage handle.
type Application struct {
	cfg        config.Config
	logger     *slog.Logger
	store      *storage.Postgres
	scheduler  *usecase.Scheduler
	dispatcher *queue.Dispatcher
}

// New builds a runnable application instance from validated config.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	var store *storage.Postgres
	var publishedStore ports.PublishedStore
	var cacheStore ports.CacheStore
	if cfg.Database.DSN != "" {
		var err error
		store, err = storage.Open(cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("open storage: %w", err)
		}
		publishedStore = store
		cacheStore = store
	}

	enrichCache, err := cache.New(cfg.Cache, cacheStore, logging.ForComponent(baseLogger, "cache"))
	if err != nil {
		return nil, fmt.Errorf("build cache: %w", err)
	}

	var enricher ports.Enricher
	if cfg.Enrichment.APIKey != "" {
		enricher = enrich.NewClient(cfg.Enrichment)
	} else {
		baseLogger.Warn("no enrichment api key configured, using local heuristics")
		enricher = enrich.NewLocal()
	}

	scorer := score.New(cfg.Enrichment, cfg.Filters.MaxAge(), enrichCache, enricher,
		logging.ForComponent(baseLogger, "scorer"))

	window, err := dedup.New(cfg.Dedup)
	if err != nil {
		return nil, fmt.Errorf("build dedup window: %w", err)
	}

	registry := source.NewRegistry()
	registry.Register(feed.NewRSSScanner(nil))
	registry.Register(feed.NewHTMLScanner(nil))
	multiSource := source.NewMultiSource(registry, cfg.Sources, logging.ForComponent(baseLogger, "source"))

	backlog := queue.New(cfg.Posting.MaxQueueSize)
	publisher := telegram.NewPublisher(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
	dispatcher := queue.NewDispatcher(cfg.Posting, backlog, publisher, publishedStore, nil,
		logging.ForComponent(baseLogger, "dispatcher"))

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Source:       multiSource,
		Published:    publishedStore,
		Filter:       filter.New(cfg.Filters),
		Dedup:        window,
		Scorer:       scorer,
		Cache:        enrichCache,
		Queue:        backlog,
		Logger:       logging.ForComponent(baseLogger, "pipeline"),
		MaxPerSource: cfg.Posting.MaxPerSourceCycle,
	})

	driver := scheduler.NewIntervalScheduler(cfg.Scheduler.Interval())
	sched := usecase.NewScheduler(driver, pipeline, logging.ForComponent(baseLogger, "scheduler"))

	return &Application{
		cfg:        cfg,
		logger:     baseLogger,
		store:      store,
		scheduler:  sched,
		dispatcher: dispatcher,
	}, nil
}

// Run starts both loops and blocks until the context is canceled or the
// dispatcher fails. Shutdown stops new cycles first, then lets the
// dispatcher finish any in-flight publish.
func (a *Application) Run(ctx context.Context) error {
	if a.store != nil {
		if err := a.store.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate storage: %w", err)
		}
		defer a.store.Close()
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.dispatcher.Run(gctx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	if err := a.scheduler.Start(gctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	a.logger.Info("newsflow started",
		"sources", len(a.cfg.Sources), "interval", a.cfg.Scheduler.Interval())

	<-gctx.Done()

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stopTimeout)
	defer cancel()
	if err := a.scheduler.Stop(stopCtx); err != nil {
		a.logger.Warn("scheduler did not stop cleanly", "error", err)
	}

	if err := g.Wait(); err != nil {
		return err
	}

	a.logger.Info("newsflow stopped")
	return nil
}
