package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/pipegrid/internal/config"
	"github.com/vk/pipegrid/internal/ctxlog"
	"github.com/vk/pipegrid/internal/registry"
	"github.com/vk/pipegrid/internal/runcache"
	"github.com/vk/pipegrid/internal/supervisor"
	"github.com/vk/pipegrid/modules/noop"
)

// coreModules are the handler modules registered when the caller does
// not supply any (tests inject their own).
var coreModules = []registry.Module{
	&noop.Module{},
}

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	registry *registry.Registry
	sup      *supervisor.Supervisor
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance with its own isolated logger and registry.
// Critical startup errors (unreadable manifests, registration failures,
// unreachable cache backends) panic; cmd/cli recovers and reports them.
func NewApp(outW io.Writer, appConfig *Config, loader config.Loader, modules ...registry.Module) *App {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	model, err := loader.Load(ctx, appConfig.ManifestPath)
	if err != nil {
		panic(fmt.Errorf("failed to load pipeline manifests: %w", err))
	}
	logger.Debug("Pipeline manifests loaded.", "pipelines", len(model.Pipelines))

	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All handler modules registered.", "count", len(modules))

	// Registration validates handler parity and graph shape once, so a
	// mismatch between manifests and code is a startup failure.
	if err := reg.RegisterPipelines(model); err != nil {
		panic(err)
	}
	logger.Debug("Pipeline registration and validation passed.")

	cache, err := openCache(ctx, appConfig.CacheBackend)
	if err != nil {
		panic(fmt.Errorf("failed to open cache store: %w", err))
	}
	logger.Debug("Cache store ready.", "backend", appConfig.CacheBackend)

	return &App{
		outW:     outW,
		logger:   logger,
		config:   appConfig,
		registry: reg,
		sup:      supervisor.New(reg, cache, logger),
	}
}

// openCache builds the configured cache store backend.
func openCache(ctx context.Context, backend string) (runcache.Store, error) {
	switch backend {
	case CacheMemory:
		return runcache.NewMemoryStore(), nil
	case CachePostgres:
		cfg, err := runcache.PostgresConfigFromEnv()
		if err != nil {
			return nil, err
		}
		return runcache.OpenPostgres(ctx, cfg)
	case CacheS3:
		cfg, err := runcache.ObjectStoreConfigFromEnv()
		if err != nil {
			return nil, err
		}
		return runcache.OpenObjectStore(cfg)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", backend)
	}
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Supervisor returns the application's run supervisor.
func (a *App) Supervisor() *supervisor.Supervisor {
	return a.sup
}
