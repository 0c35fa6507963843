// Package app implements the application layer for ebb.
package app

import (
	"context"
	"os"
	"time"

	"go.trai.ch/ebb/internal/adapters/cachestore"
	"go.trai.ch/ebb/internal/adapters/config"
	"go.trai.ch/ebb/internal/adapters/csvsource"
	"go.trai.ch/ebb/internal/adapters/logger"
	"go.trai.ch/ebb/internal/core/domain"
	"go.trai.ch/ebb/internal/core/ports"
	"go.trai.ch/ebb/internal/engine/reconcile"
	"go.trai.ch/ebb/internal/engine/scheduler"
	"go.trai.ch/ebb/internal/engine/updater"
	"go.trai.ch/ebb/internal/indicators"
	"go.trai.ch/zerr"
)

// App wires configuration, adapters and engines together for the CLI.
type App struct {
	loader *config.Loader
	logger ports.Logger
}

// New creates a new App instance.
func New(loader *config.Loader, log ports.Logger) *App {
	return &App{
		loader: loader,
		logger: log,
	}
}

// ReconcileOutcome bundles everything a reconcile run produces.
type ReconcileOutcome struct {
	Report     *domain.ReconciliationReport
	Repair     *domain.RepairResult
	ReportPath string
}

// RunBatch updates the derived-series cache for every entity under
// (tier, params). An empty entities slice means all entities present in
// the configured source directory.
func (a *App) RunBatch(ctx context.Context, configPath, tier, params string, entities []string) (*domain.BatchReport, error) {
	cfg, err := a.loader.Load(configPath)
	if err != nil {
		return nil, err
	}
	if !cfg.HasTier(tier) {
		return nil, zerr.With(zerr.Wrap(domain.ErrConfig, "unknown tier"), "tier", tier)
	}
	pset, ok := cfg.ParamSet(params)
	if !ok {
		return nil, zerr.With(zerr.Wrap(domain.ErrConfig, "unknown parameter set"), "params", params)
	}
	engine, err := indicators.New(pset.Family, indicators.Params{Periods: pset.Periods})
	if err != nil {
		return nil, err
	}

	log := a.runLogger(cfg)
	source := csvsource.New(cfg.SourceDir)
	cache := cachestore.New(cfg.CacheDir)

	if len(entities) == 0 {
		entities, err = source.Entities()
		if err != nil {
			return nil, zerr.Wrap(err, "failed to list source entities")
		}
	}

	upd := updater.New(source, cache, engine, log, tier, params, cfg.WarmupMultiplier)
	sched := scheduler.New(upd, cache, log, cfg.Workers(), time.Duration(cfg.RunTimeout))
	return sched.Run(ctx, tier, params, entities)
}

// Reconcile compares the two tagged sources and persists the report.
// Repair runs when requested explicitly or when auto_repair is configured;
// the authoritative side defaults to source A.
func (a *App) Reconcile(ctx context.Context, configPath, tagA, tagB string, repair bool, authoritative string, entities []string) (*ReconcileOutcome, error) {
	cfg, err := a.loader.Load(configPath)
	if err != nil {
		return nil, err
	}
	dirA, ok := cfg.SourceByTag(tagA)
	if !ok {
		return nil, zerr.With(zerr.Wrap(domain.ErrConfig, "unknown source tag"), "tag", tagA)
	}
	dirB, ok := cfg.SourceByTag(tagB)
	if !ok {
		return nil, zerr.With(zerr.Wrap(domain.ErrConfig, "unknown source tag"), "tag", tagB)
	}

	log := a.runLogger(cfg)
	cache := cachestore.New(cfg.CacheDir)
	rec := reconcile.New(csvsource.New(dirA), csvsource.New(dirB), tagA, tagB, cache, log, cfg.Tolerance)

	report, err := rec.Reconcile(ctx, entities)
	if err != nil {
		return nil, err
	}
	path, err := cache.PutReport(*report)
	if err != nil {
		return nil, err
	}

	out := &ReconcileOutcome{Report: report, ReportPath: path}
	if repair || cfg.AutoRepair {
		if authoritative == "" {
			authoritative = tagA
		}
		out.Repair, err = rec.Repair(ctx, report, authoritative)
		if err != nil {
			return out, err
		}
	}
	return out, nil
}

// runLogger builds the logger configured in ebb.yaml. The injected logger
// only covers the window before the configuration is loaded.
func (a *App) runLogger(cfg *config.Config) ports.Logger {
	return logger.NewWith(cfg.Log.Level, cfg.Log.Format, os.Stderr)
}
