package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jonwraymond/modelbake/bake"
	"github.com/jonwraymond/modelbake/cache"
	"github.com/jonwraymond/modelbake/config"
	"github.com/jonwraymond/modelbake/fsprovider"
	"github.com/jonwraymond/modelbake/health"
	"github.com/jonwraymond/modelbake/observe"
	"github.com/jonwraymond/modelbake/override"
	"github.com/jonwraymond/modelbake/resolve"
	"github.com/jonwraymond/modelbake/resource"
	"github.com/jonwraymond/modelbake/store"
)

// App is a fully wired modelbake instance.
type App struct {
	cfg      config.Config
	observer observe.Observer
	logger   observe.Logger
	resolver *resolve.Resolver
	store    *store.Store
	health   *health.Aggregator
}

// NewApp wires telemetry, the pack provider, the resolver and the store
// from cfg.
func NewApp(ctx context.Context, cfg config.Config) (*App, error) {
	obs, err := observe.NewObserver(ctx, cfg.ObserveConfig())
	if err != nil {
		return nil, fmt.Errorf("observe: %w", err)
	}
	mw, err := observe.MiddlewareFromObserver(obs)
	if err != nil {
		_ = obs.Shutdown(ctx)
		return nil, fmt.Errorf("observe: %w", err)
	}
	logger := obs.Logger()

	provider := fsprovider.NewDir(cfg.Pack.Root,
		fsprovider.WithMaxParentDepth(cfg.Pack.MaxParentDepth),
		fsprovider.WithLogger(logger),
	)
	overrides := override.NewRegistry()
	pipeline := bake.NewPipeline(fsprovider.Builder(), bake.WithTracer(observe.NewTracer(obs.Tracer())))
	resolver := resolve.New(provider, pipeline,
		resolve.WithOverrides(overrides),
		resolve.WithExists(provider),
		resolve.WithOrder(cfg.Order()),
		resolve.WithVerbose(cfg.Resolve.Verbose),
		resolve.WithLogger(logger),
	)

	missingKeys, err := cfg.MissingKeys()
	if err != nil {
		_ = obs.Shutdown(ctx)
		return nil, err
	}
	missing, err := resolver.Resolve(ctx, resource.MissingKey)
	if err != nil {
		_ = obs.Shutdown(ctx)
		return nil, fmt.Errorf("bootstrap missing artifact: %w", err)
	}

	memory := health.NewMemoryChecker(health.MemoryCheckerConfig{
		WarningThreshold: cfg.Cache.PressureThreshold,
	})
	var cacheOpts []cache.MemoryOption
	if cfg.Cache.PressureThreshold > 0 {
		cacheOpts = append(cacheOpts, cache.WithPressure(memory.UnderPressure))
	}

	s, err := store.New(resolver.Resolve,
		store.WithOverrides(overrides),
		store.WithPolicy(cfg.Policy()),
		store.WithCacheOptions(cacheOpts...),
		store.WithMissing(missing, missingKeys),
		store.WithMiddleware(mw),
		store.WithLogger(logger),
	)
	if err != nil {
		_ = obs.Shutdown(ctx)
		return nil, err
	}

	agg := health.NewAggregator()
	agg.Register(memory, s.Checker(), packChecker(cfg.Pack.Root))

	return &App{
		cfg:      cfg,
		observer: obs,
		logger:   logger,
		resolver: resolver,
		store:    s,
		health:   agg,
	}, nil
}

// Store returns the artifact store.
func (a *App) Store() *store.Store { return a.store }

// Resolver returns the resolver behind the store.
func (a *App) Resolver() *resolve.Resolver { return a.resolver }

// Health returns the health aggregator.
func (a *App) Health() *health.Aggregator { return a.health }

// Run keeps the cache janitor and, when enabled, the pack watcher running
// until ctx is done.
func (a *App) Run(ctx context.Context) error {
	go a.store.Start(ctx)

	if !a.cfg.Pack.Watch {
		<-ctx.Done()
		return nil
	}
	w, err := fsprovider.NewWatcher(a.cfg.Pack.Root, a.store.InvalidateResource, fsprovider.WithWatchLogger(a.logger))
	if err != nil {
		return err
	}
	a.logger.Info(ctx, "watching pack", observe.F("root", a.cfg.Pack.Root))
	return w.Run(ctx)
}

// Close flushes telemetry.
func (a *App) Close(ctx context.Context) error {
	return a.observer.Shutdown(ctx)
}

func packChecker(root string) health.Checker {
	return health.NewCheckerFunc("pack", func(context.Context) health.Result {
		info, err := os.Stat(root)
		switch {
		case errors.Is(err, os.ErrNotExist):
			return health.Unhealthy("pack root does not exist", err)
		case err != nil:
			return health.Unhealthy("pack root unreadable", err)
		case !info.IsDir():
			return health.Unhealthy("pack root is not a directory", nil)
		}
		return health.Healthy("pack root readable").WithDetails(map[string]any{"root": root})
	})
}
