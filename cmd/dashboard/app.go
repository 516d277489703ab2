package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	corecfg "github.com/nwrousell/dashboard/internal/core/config"
	"github.com/nwrousell/dashboard/internal/core/storage"
	"github.com/nwrousell/dashboard/internal/core/storage/memory"
	"github.com/nwrousell/dashboard/internal/core/storage/postgres"
	"github.com/nwrousell/dashboard/internal/core/storage/sqlite"
	"github.com/nwrousell/dashboard/internal/cursor"
	"github.com/nwrousell/dashboard/internal/ingestion"
	"github.com/nwrousell/dashboard/internal/migrations"
	"github.com/nwrousell/dashboard/internal/source"
	"github.com/nwrousell/dashboard/internal/source/activitywatch"
	"github.com/nwrousell/dashboard/internal/source/hevy"
)

// app holds the wired components shared by every subcommand.
type app struct {
	cfg          *corecfg.Config
	store        storage.Store
	catalog      *storage.Catalog
	registry     *source.Registry
	cursor       *cursor.Cursor
	orchestrator *ingestion.Orchestrator
	metrics      *prometheus.Registry
	closers      []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			slog.Warn("[App] Close failed", "error", err)
		}
	}
}

func newApp(cfg *corecfg.Config) (*app, error) {
	a := &app{
		cfg:     cfg,
		catalog: storage.NewCatalog(),
		metrics: prometheus.NewRegistry(),
	}
	a.metrics.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	var pg *postgres.Adapter
	switch cfg.Database.Type {
	case "postgres":
		adapter, err := postgres.NewAdapter(cfg.Database.DSN, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
		if err != nil {
			return nil, fmt.Errorf("initialize database: %w", err)
		}
		a.closers = append(a.closers, adapter.Close)
		if err := migrations.RunMigrations(adapter.DB(), cfg.Database.AutoMigrate); err != nil {
			a.Close()
			return nil, fmt.Errorf("run database migrations: %w", err)
		}
		pg = adapter
		a.store = adapter
	case "memory":
		slog.Warn("[App] Using in-memory storage; data is lost on exit")
		a.store = memory.New()
	}

	kv, err := a.cursorKV(pg)
	if err != nil {
		a.Close()
		return nil, err
	}

	sources, err := buildSources(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.registry, err = source.NewRegistry(a.catalog, sources...)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("register sources: %w", err)
	}

	metrics, err := ingestion.NewMetrics(a.metrics)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.cursor = cursor.New(kv)
	a.orchestrator = ingestion.NewOrchestrator(a.registry, a.store, a.cursor, metrics)

	slog.Info("[App] Initialized",
		"database", cfg.Database.Type,
		"cursor_backend", cfg.Cursor.Backend,
		"sources", a.registry.IDs(),
	)
	return a, nil
}

func (a *app) cursorKV(pg *postgres.Adapter) (cursor.KV, error) {
	switch a.cfg.Cursor.Backend {
	case "file":
		return cursor.NewFileStore(a.cfg.Cursor.Path), nil
	case "sqlite":
		store, err := sqlite.Open(a.cfg.Cursor.Path)
		if err != nil {
			return nil, fmt.Errorf("open cursor database: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	case "memory":
		return cursor.NewMemoryStore(), nil
	case "postgres":
		if pg == nil {
			return nil, fmt.Errorf("cursor backend postgres requires a postgres database")
		}
		return postgres.NewCursorStore(pg.DB()), nil
	}
	return nil, fmt.Errorf("unsupported cursor backend %q", a.cfg.Cursor.Backend)
}

// buildSources assembles the enabled sources in their fixed run order.
func buildSources(cfg *corecfg.Config) ([]source.Source, error) {
	var sources []source.Source

	if aw := cfg.Sources.ActivityWatch; aw.Enabled {
		src, err := activitywatch.New(
			activitywatch.NewClient(aw.BaseURL, nil),
			cfg.Classifier,
			activitywatch.Options{
				Hostname:     aw.Hostname,
				GapThreshold: aw.GapThresholdDuration(),
				Epoch:        aw.EpochIn(time.Local),
			},
		)
		if err != nil {
			return nil, fmt.Errorf("activitywatch source: %w", err)
		}
		sources = append(sources, src)
	}

	if hv := cfg.Sources.Hevy; hv.Enabled {
		src, err := hevy.New(nil, hevy.Options{
			BaseURL:   hv.BaseURL,
			Username:  hv.Username,
			APIKey:    hv.APIKey,
			AuthToken: hv.AuthToken,
			PageSize:  hv.PageSize,
		})
		if err != nil {
			return nil, fmt.Errorf("hevy source: %w", err)
		}
		sources = append(sources, src)
	}

	return sources, nil
}
