// Package app builds the research loop and its collaborators from config.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/mohammad-safakhou/scout/config"
	"github.com/mohammad-safakhou/scout/feedback"
	filestore "github.com/mohammad-safakhou/scout/feedback/file"
	pgstore "github.com/mohammad-safakhou/scout/feedback/postgres"
	redisstore "github.com/mohammad-safakhou/scout/feedback/redis"
	agentcore "github.com/mohammad-safakhou/scout/internal/agent/core"
	"github.com/mohammad-safakhou/scout/internal/logger"
	"github.com/mohammad-safakhou/scout/internal/runtime"
	openai_provider "github.com/mohammad-safakhou/scout/provider/openai"
	"github.com/mohammad-safakhou/scout/tools/web_fetch"
	"github.com/mohammad-safakhou/scout/tools/web_retrieve"
	"github.com/mohammad-safakhou/scout/tools/web_search"
	"go.uber.org/zap"
)

// App owns every long lived dependency of a scout process.
type App struct {
	Config       *config.Config
	Logger       *zap.Logger
	Telemetry    *runtime.Telemetry
	Metrics      *runtime.Metrics
	Store        feedback.Store
	Orchestrator *agentcore.Orchestrator

	closers []func(context.Context) error
}

// Options adjusts process level wiring.
type Options struct {
	Version string
	// ServeMetrics starts the standalone metrics listener on
	// telemetry.metrics_port. The API server mounts /metrics itself.
	ServeMetrics bool
	// Observer receives session progress events.
	Observer agentcore.Observer
}

// New wires logger, telemetry, gateway, search, fetch, retrieval tool,
// feedback store and orchestrator. The feedback store is initialized before
// New returns.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	log, err := logger.New(cfg.General)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	a := &App{Config: cfg, Logger: log}
	a.closers = append(a.closers, func(context.Context) error {
		_ = log.Sync()
		return nil
	})

	metricsPort := 0
	if opts.ServeMetrics {
		metricsPort = cfg.Telemetry.MetricsPort
	}
	tel, meter, tracer, err := runtime.SetupTelemetry(ctx, cfg.Telemetry, runtime.TelemetryOptions{
		ServiceVersion: opts.Version,
		MetricsPort:    metricsPort,
		Logger:         log,
	})
	if err != nil {
		return nil, errors.Join(fmt.Errorf("telemetry: %w", err), a.Close(ctx))
	}
	a.Telemetry = tel
	a.closers = append(a.closers, tel.Shutdown)

	metrics, err := runtime.NewMetrics(meter)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("metrics: %w", err), a.Close(ctx))
	}
	a.Metrics = metrics

	llm := cfg.LLM.Normalize()
	gateway := openai_provider.NewClient(llm,
		openai_provider.WithLogger(log.Named("gateway")),
		openai_provider.WithMetrics(metrics),
		openai_provider.WithTracer(tracer),
	)

	ws := cfg.Sources.WebSearch
	searcher, err := web_search.NewWebSearcher(web_search.Provider(ws.Provider), web_search.Options{
		APIKey:   ws.APIKey(),
		Endpoint: ws.Endpoint,
		Timeout:  ws.Timeout,
	})
	if err != nil {
		return nil, errors.Join(err, a.Close(ctx))
	}
	fetcher, err := web_fetch.NewWebFetcher(web_fetch.FetcherType(cfg.Fetch.Type), web_fetch.Options{
		Timeout:       cfg.Fetch.Timeout,
		MinConfidence: cfg.Fetch.MinConfidence,
		MaxBodyBytes:  cfg.Fetch.MaxBodyBytes,
	})
	if err != nil {
		return nil, errors.Join(err, a.Close(ctx))
	}
	tool := web_retrieve.New(gateway, searcher, fetcher, web_retrieve.Config{
		Model:           llm.ToolModel,
		MaxAttempts:     cfg.Tool.MaxAttempts,
		MaxTokens:       cfg.Tool.MaxTokens,
		MaxResults:      ws.MaxResults,
		GarbleThreshold: cfg.Tool.GarbleThreshold,
		FallbackRanking: cfg.Tool.FallbackRanking,
		FetcherName:     cfg.Fetch.Type,
	},
		web_retrieve.WithLogger(log.Named("tool")),
		web_retrieve.WithMetrics(metrics),
		web_retrieve.WithTracer(tracer),
	)

	store, closeStore, err := NewFeedbackStore(ctx, cfg.Storage, log)
	if err != nil {
		return nil, errors.Join(err, a.Close(ctx))
	}
	a.Store = store
	a.closers = append(a.closers, closeStore)
	if err := store.EnsureInitialized(ctx); err != nil {
		return nil, errors.Join(fmt.Errorf("initialize feedback store: %w", err), a.Close(ctx))
	}

	orchOpts := []agentcore.Option{
		agentcore.WithLogger(log.Named("orchestrator")),
		agentcore.WithMetrics(metrics),
		agentcore.WithTracer(tracer),
	}
	if opts.Observer != nil {
		orchOpts = append(orchOpts, agentcore.WithObserver(opts.Observer))
	}
	a.Orchestrator = agentcore.NewOrchestrator(gateway, tool, store, agentcore.Config{
		Model:            llm.Model,
		QAModel:          llm.QAModel,
		MaxIterations:    cfg.Agent.MaxIterations,
		FailedSitesScope: agentcore.FailedSitesScope(cfg.Agent.FailedSitesScope),
	}, orchOpts...)
	return a, nil
}

// NewFeedbackStore opens the configured backend. The returned closer
// releases its connection.
func NewFeedbackStore(ctx context.Context, cfg config.StorageConfig, log *zap.Logger) (feedback.Store, func(context.Context) error, error) {
	if log == nil {
		log = zap.NewNop()
	}
	noop := func(context.Context) error { return nil }
	switch cfg.Feedback.Backend {
	case "file", "":
		store := filestore.New(cfg.Feedback.Path)
		log.Info("feedback store", zap.String("backend", "file"), zap.String("path", store.Path()))
		return store, noop, nil
	case "redis":
		client, err := redisstore.Conn(ctx, cfg.Redis, log)
		if err != nil {
			return nil, nil, err
		}
		store := redisstore.New(client, cfg.Feedback.Namespace)
		log.Info("feedback store", zap.String("backend", "redis"), zap.String("key", store.Key()))
		return store, func(context.Context) error { return client.Close() }, nil
	case "postgres":
		dsn := cfg.Postgres.DSN()
		if cfg.Postgres.AutoMigrate {
			if err := pgstore.Migrate(dsn, "up", 0); err != nil {
				return nil, nil, fmt.Errorf("migrate feedback schema: %w", err)
			}
		}
		db, err := pgstore.Open(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}
		return pgstore.New(db, cfg.Feedback.Namespace), func(context.Context) error { return db.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unsupported feedback backend %q", cfg.Feedback.Backend)
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
