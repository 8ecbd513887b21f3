package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/pairpad/pairpad-server/internal/config"
	"github.com/pairpad/pairpad-server/internal/core"
	"github.com/pairpad/pairpad-server/internal/exec"
	"github.com/pairpad/pairpad-server/internal/store"
	"github.com/pairpad/pairpad-server/internal/store/sqlite"
	transporthttp "github.com/pairpad/pairpad-server/internal/transport/http"
)

// App wires together core, execution, storage, and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	runner          *exec.Runner
	store           store.Store
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	var st store.Store
	if cfg.DatabasePath != "" {
		sqliteStore, err := sqlite.New(cfg.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("init store: %w", err)
		}
		st = sqliteStore
		logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")
	} else {
		logger.Info().Msg("persistence disabled, rooms are in-memory only")
	}

	runner, err := exec.NewRunner(exec.Config{
		ScratchDir: cfg.Exec.ScratchDir,
		Timeout:    cfg.Exec.Timeout,
		Workers:    cfg.Exec.Workers,
		QueueDepth: cfg.Exec.QueueDepth,
	}, exec.Builtins(cfg.Exec.PythonBin, cfg.Exec.CXXBin), logger)
	if err != nil {
		return nil, fmt.Errorf("init runner: %w", err)
	}

	logger.Info().
		Strs("languages", runner.Languages()).
		Str("scratch_dir", cfg.Exec.ScratchDir).
		Dur("timeout", cfg.Exec.Timeout).
		Msg("execution coordinator ready")

	hub := core.NewHub(st, runner, logger)
	server := transporthttp.NewServer(hub, st, runner.Languages(), cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		runner:          runner,
		store:           st,
		log:             logger,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go a.hub.Run(ctx)
	a.runner.Start(ctx)

	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup()
			return err
		}

		a.cleanup()
		return <-serverErr
	}
}

// cleanup closes database and other resources.
func (a *App) cleanup() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
