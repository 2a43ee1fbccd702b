// Package app assembles the coordination substrate: store, bus, request
// layer, coordinator, feature components, and the database watcher.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/keydeck/keydeck/internal/bus"
	"github.com/keydeck/keydeck/internal/components/aliases"
	"github.com/keydeck/keydeck/internal/components/binds"
	"github.com/keydeck/keydeck/internal/config"
	"github.com/keydeck/keydeck/internal/coordinator"
	"github.com/keydeck/keydeck/internal/flags"
	"github.com/keydeck/keydeck/internal/log"
	"github.com/keydeck/keydeck/internal/rpc"
	"github.com/keydeck/keydeck/internal/store"
	"github.com/keydeck/keydeck/internal/tracing"
	"github.com/keydeck/keydeck/internal/watcher"
)

// App owns the wired substrate. Construction order is store, coordinator,
// feature components, watcher; Close unwinds it in reverse.
type App struct {
	Config  config.Config
	Bus     *bus.Bus
	RPC     *rpc.Layer
	Store   *store.Cached
	Coord   *coordinator.Coordinator
	Binds   *binds.Component
	Aliases *aliases.Component

	Flags *flags.Registry

	tracer  *tracing.Provider
	watch   *watcher.Watcher
	closers []func() error
}

// New wires the application from cfg. On error everything already
// constructed is torn down before returning.
func New(cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	a := &App{
		Config: cfg,
		Bus:    bus.New(),
		RPC:    rpc.New(),
		Flags:  flags.New(cfg.Flags),
	}

	tracer, err := tracing.NewProvider(tracing.Config{
		Enabled:      cfg.Tracing.Enabled,
		Exporter:     cfg.Tracing.Exporter,
		FilePath:     cfg.Tracing.FilePath,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		SampleRate:   cfg.Tracing.SampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	a.tracer = tracer
	a.closers = append(a.closers, func() error {
		return tracer.Shutdown(context.Background())
	})

	st, err := store.Open(cfg.StorePath)
	if err != nil {
		a.unwind()
		return nil, fmt.Errorf("open store: %w", err)
	}
	a.Store = store.NewCachedWith(st, a.Flags.EnabledOr(flags.FlagProfileCache, true))
	a.closers = append(a.closers, st.Close)

	a.Coord = coordinator.New(a.Bus, a.RPC, a.Store)
	if err := a.Coord.Init(); err != nil {
		a.unwind()
		return nil, fmt.Errorf("init coordinator: %w", err)
	}
	a.closers = append(a.closers, func() error {
		a.Coord.Destroy()
		return nil
	})

	a.Binds = binds.New(a.Bus, a.RPC, a.Coord)
	if err := a.Binds.Init(); err != nil {
		a.unwind()
		return nil, fmt.Errorf("init binds component: %w", err)
	}
	a.closers = append(a.closers, func() error {
		a.Binds.Destroy()
		return nil
	})

	a.Aliases = aliases.New(a.Bus, a.RPC, a.Coord)
	if err := a.Aliases.Init(); err != nil {
		a.unwind()
		return nil, fmt.Errorf("init aliases component: %w", err)
	}
	a.closers = append(a.closers, func() error {
		a.Aliases.Destroy()
		return nil
	})

	if cfg.AutoReload {
		a.startWatcher(cfg)
	}

	log.Info(log.CatApp, "application wired",
		"store", cfg.StorePath, "auto_reload", cfg.AutoReload)
	return a, nil
}

// startWatcher begins following external database writes. The app works
// without it, so failures degrade to a warning.
func (a *App) startWatcher(cfg config.Config) {
	wcfg := watcher.DefaultConfig(cfg.StorePath)
	if cfg.DebounceMs > 0 {
		wcfg.DebounceDur = time.Duration(cfg.DebounceMs) * time.Millisecond
	}
	wcfg.Sidecars = a.Flags.EnabledOr(flags.FlagWatchSidecars, true)

	w, err := watcher.New(a.Bus, wcfg)
	if err != nil {
		log.Warn(log.CatApp, "auto-reload unavailable", "error", err.Error())
		return
	}
	if err := w.Start(); err != nil {
		_ = w.Stop()
		log.Warn(log.CatApp, "auto-reload unavailable", "error", err.Error())
		return
	}

	a.watch = w
	a.closers = append(a.closers, w.Stop)
}

// Tracer exposes the tracing provider for instrumentation.
func (a *App) Tracer() *tracing.Provider { return a.tracer }

// Watching reports whether the database watcher is running.
func (a *App) Watching() bool { return a.watch != nil }

// Close tears the application down in reverse construction order. The
// first error wins but teardown always runs to completion.
func (a *App) Close() error {
	return a.unwind()
}

func (a *App) unwind() error {
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.closers = nil
	return firstErr
}
