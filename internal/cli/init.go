// Package cli wires configuration, storage and the remote ledger into the
// budget command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/joho/godotenv"

	"budget/internal/backend"
	"budget/internal/cache"
	"budget/internal/config"
	"budget/internal/core"
	"budget/internal/log"
	"budget/internal/services"
	"budget/internal/storage"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadConfig loads configuration from the environment, applies command-line
// overrides and validates the result.
func LoadConfig(opts *RootOptions) (*config.Config, error) {
	cfg := config.Load()
	if opts != nil {
		if opts.DBPath != "" {
			cfg.DBPath = opts.DBPath
		}
		if opts.Backend != "" {
			cfg.LedgerBackend = opts.Backend
		}
		if opts.Verbose {
			cfg.LogLevel = "debug"
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetupLogger builds the application logger from config and makes it the
// slog default. Logs go to w so command output stays machine-readable.
func SetupLogger(cfg *config.Config, w io.Writer) (*log.Logger, error) {
	logger, err := log.FromSettings(cfg.LogLevel, cfg.LogFormat, w)
	if err != nil {
		return nil, err
	}
	log.SetDefault(logger)
	return logger, nil
}

// App holds the wired components shared by every command.
type App struct {
	Config     *config.Config
	Logger     *log.Logger
	Store      *storage.Store
	Ledger     *backend.Result
	Gateway    *services.SubmissionGateway
	Reconciler *services.SyncReconciler
	View       *services.LedgerView
	Caches     *cache.Manager
}

// NewApp opens the local store and the configured remote ledger and wires
// the services around them.
func NewApp(ctx context.Context, cfg *config.Config, logger *log.Logger) (*App, error) {
	store, err := storage.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		store.Close()
		return nil, err
	}
	remote, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger).CreateLedger(ctx, bcfg)
	if err != nil {
		store.Close()
		return nil, err
	}

	viewCache := cache.NewLRUCache[[]core.Transaction](1, cfg.ViewCacheTTL)
	caches := cache.NewManager(logger.WithComponent(log.ComponentCache).Logger)
	caches.Register(viewCache)

	app := &App{
		Config: cfg,
		Logger: logger,
		Store:  store,
		Ledger: remote,
		Caches: caches,
	}

	app.View = services.NewLedgerView(remote.Lister, store, viewCache, logger)

	rcfg := services.DefaultReconcilerConfig()
	rcfg.PollInterval = cfg.SyncInterval
	rcfg.BatchSize = cfg.SyncBatchSize
	rcfg.AppendTimeout = cfg.LedgerTimeout
	rcfg.PruneAfter = cfg.PruneAfter
	app.Reconciler = services.NewSyncReconciler(store, remote.Appender, rcfg,
		services.WithReconcilerLogger(logger),
		services.WithPassHook(func(services.PassResult) { app.View.Invalidate() }),
	)

	app.Gateway = services.NewSubmissionGateway(remote.Appender, store,
		services.GatewayConfig{RemoteTimeout: cfg.LedgerTimeout},
		services.WithGatewayLogger(logger),
		services.WithReconnectHook(func() {
			app.View.Invalidate()
			app.Reconciler.Trigger()
		}),
	)

	return app, nil
}

// Close releases the store, the remote ledger and the cache sweeper.
func (a *App) Close() error {
	a.Caches.Stop()

	var errs []error
	if a.Ledger != nil && a.Ledger.Cleanup != nil {
		if err := a.Ledger.Cleanup(); err != nil {
			errs = append(errs, fmt.Errorf("close remote ledger: %w", err))
		}
	}
	if err := a.Store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	return errors.Join(errs...)
}
