package main

import (
	"context"
	"fmt"

	"bizday/internal/config"
	"bizday/internal/holiday"
	"bizday/internal/ics"
	appLog "bizday/internal/log"
	"bizday/internal/override"
	"bizday/internal/service"
)

// app is the wired object graph behind both the server and the one-shot
// commands.
type app struct {
	svc   *service.Service
	store *override.Store
	close func() error
}

// newPersistence opens the configured override backend.
func newPersistence(cfg *config.Config) (override.Persistence, func() error, error) {
	switch cfg.Overrides.Driver {
	case "sqlite":
		p, err := override.NewSQLitePersistence(cfg.Overrides.Path)
		if err != nil {
			return nil, nil, err
		}
		return p, p.Close, nil
	default:
		return override.NewFilePersistence(cfg.Overrides.Path), func() error { return nil }, nil
	}
}

// buildSource assembles the provider chain and the catalog that lists it.
func buildSource(cfg *config.Config) (holiday.Source, *holiday.Catalog) {
	var (
		chain   holiday.Chain
		listers []holiday.Lister
	)
	if cfg.Holidays.Builtin {
		b := holiday.NewBuiltin()
		chain = append(chain, b)
		listers = append(listers, b)
	}
	if len(cfg.Holidays.ICS) > 0 {
		s := holiday.NewICSSource(ics.NewFetcher(cfg.Holidays.ICSCacheDir), cfg.Holidays.ICS)
		chain = append(chain, s)
		listers = append(listers, s)
	}
	catalog := holiday.NewCatalog(listers...)

	if cfg.Holidays.CacheSize == 0 {
		return chain, catalog
	}
	return holiday.NewCached(chain, cfg.Holidays.CacheSize, cfg.Holidays.CacheTTL), catalog
}

// newApp wires providers, overrides and the service. When seed is set the
// sample overrides are written if the backend is still empty.
func newApp(ctx context.Context, cfg *config.Config, seed bool) (*app, error) {
	p, closeFn, err := newPersistence(cfg)
	if err != nil {
		return nil, fmt.Errorf("open overrides: %w", err)
	}
	if seed {
		if err := p.EnsureDefault(ctx); err != nil {
			_ = closeFn()
			return nil, fmt.Errorf("seed overrides: %w", err)
		}
	}

	store := override.NewStore(p)
	if err := store.Reload(ctx); err != nil {
		// Keep going with no overrides; a later reload can recover.
		appLog.Warn("starting without overrides", "err", err)
	}

	source, catalog := buildSource(cfg)
	appLog.Debug("holiday providers ready",
		"builtin", cfg.Holidays.Builtin,
		"ics_count", len(cfg.Holidays.ICS),
		"cache_size", cfg.Holidays.CacheSize,
		"overrides", store.Snapshot().Len(),
	)

	return &app{
		svc:   service.NewFromParts(source, catalog, store),
		store: store,
		close: closeFn,
	}, nil
}
