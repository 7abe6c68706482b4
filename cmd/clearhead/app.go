package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MikeSquared-Agency/ClearHead/internal/artifact"
	"github.com/MikeSquared-Agency/ClearHead/internal/batch"
	"github.com/MikeSquared-Agency/ClearHead/internal/config"
	"github.com/MikeSquared-Agency/ClearHead/internal/hermes"
	"github.com/MikeSquared-Agency/ClearHead/internal/metrics"
	"github.com/MikeSquared-Agency/ClearHead/internal/model"
	"github.com/MikeSquared-Agency/ClearHead/internal/store"
)

// app holds the wired dependencies shared by every command.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	driver  *batch.Driver
	metrics *metrics.Metrics
	runs    store.Store
	events  hermes.Client
	closers []func() error
}

func newApp(ctx context.Context, cfg *config.Config, source string, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger, metrics: metrics.New()}

	profile, err := cfg.Profile()
	if err != nil {
		return nil, err
	}

	blobs, err := a.openArtifacts(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	// Run history (optional)
	if cfg.Database.URL != "" {
		db, err := store.NewPostgresStore(ctx, cfg.Database.URL)
		if err != nil {
			logger.Warn("failed to connect to database, running without run history", "error", err)
		} else {
			a.runs = db
			a.closers = append(a.closers, db.Close)
			logger.Info("connected to database")
		}
	}

	// Hermes (optional)
	if cfg.Hermes.URL != "" {
		hc, err := hermes.NewNATSClient(ctx, cfg.Hermes.URL, logger)
		if err != nil {
			logger.Warn("failed to connect to hermes, running without events", "error", err)
		} else {
			a.events = hc
			a.closers = append(a.closers, func() error { hc.Close(); return nil })
			logger.Info("connected to hermes")
		}
	}

	a.driver = batch.NewDriver(model.NewAnalyzer(logger), batch.Options{
		Profile:     profile,
		Keywords:    cfg.EstimateKeywords(),
		Adjustments: cfg.Scoring,
		Artifacts:   blobs,
		ModelKey:    cfg.Model.Path,
		Backend:     cfg.Model.Backend,
		Samples:     cfg.Model.Samples,
		Seed:        cfg.Model.Seed,
		Source:      source,
		Events:      a.events,
		Runs:        a.runs,
		Metrics:     a.metrics,
	}, logger)
	return a, nil
}

func (a *app) openArtifacts(ctx context.Context) (artifact.Store, error) {
	switch a.cfg.Model.Backend {
	case config.BackendPostgres:
		s, err := artifact.NewPostgresStore(ctx, a.cfg.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("open model store: %w", err)
		}
		a.closers = append(a.closers, s.Close)
		return s, nil
	case config.BackendRedis:
		s, err := artifact.NewRedisStore(ctx, a.cfg.Redis.Addr, a.cfg.Redis.Password, a.cfg.Redis.DB)
		if err != nil {
			return nil, fmt.Errorf("open model store: %w", err)
		}
		a.closers = append(a.closers, s.Close)
		return s, nil
	default:
		return artifact.NewFileStore(""), nil
	}
}

// pushMetrics is a no-op unless a Pushgateway is configured.
func (a *app) pushMetrics(ctx context.Context) {
	if a.cfg.Metrics.PushgatewayURL == "" {
		return
	}
	if err := a.metrics.Push(ctx, a.cfg.Metrics.PushgatewayURL, a.cfg.Metrics.Job); err != nil {
		a.logger.Warn("failed to push metrics", "error", err)
	}
}

// Close releases connections in reverse order of opening.
func (a *app) Close() {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	if err := errors.Join(errs...); err != nil {
		a.logger.Warn("error during close", "error", err)
	}
}
