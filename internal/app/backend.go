// Package app opens the configured storage backend for the server and clubctl.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/club-portal/internal/auth"
	"github.com/club-portal/internal/config"
	"github.com/club-portal/internal/firestore"
	"github.com/club-portal/internal/kafka"
	"github.com/club-portal/internal/postgres"
	"github.com/club-portal/internal/store"
)

// Backend bundles the stores one backend provides
type Backend struct {
	Name     string
	Docs     store.DocumentStore
	Accounts auth.AccountStore
	// Recorder is nil for the memory backend.
	Recorder kafka.EventRecorder
	Ping     func(ctx context.Context) error
	close    func()
}

// Close releases the backend's connections
func (b *Backend) Close() {
	if b.close != nil {
		b.close()
	}
}

// OpenBackend connects to the backend named in cfg.Store
func OpenBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backend, error) {
	switch cfg.Store.Backend {
	case config.BackendPostgres:
		logger.Info("connecting to PostgreSQL", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
		repo, err := postgres.NewRepository(&cfg.Postgres, logger)
		if err != nil {
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		if err := repo.RunMigrations(ctx); err != nil {
			repo.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
		return &Backend{
			Name:     config.BackendPostgres,
			Docs:     repo,
			Accounts: repo,
			Recorder: repo,
			Ping:     repo.Ping,
			close:    repo.Close,
		}, nil

	case config.BackendFirestore:
		logger.Info("connecting to Firestore", "project", cfg.Firestore.ProjectID)
		fs, err := firestore.New(ctx, &cfg.Firestore, logger)
		if err != nil {
			return nil, fmt.Errorf("connecting to firestore: %w", err)
		}
		return &Backend{
			Name:     config.BackendFirestore,
			Docs:     fs,
			Accounts: fs,
			Recorder: fs,
			Ping:     fs.Ping,
			close: func() {
				if err := fs.Close(); err != nil {
					logger.Warn("failed to close firestore client", "error", err)
				}
			},
		}, nil

	case config.BackendMemory:
		logger.Warn("using in-memory document store, data is lost on exit")
		return &Backend{
			Name:     config.BackendMemory,
			Docs:     store.NewMemory(),
			Accounts: auth.NewMemoryAccounts(),
			Ping:     func(context.Context) error { return nil },
		}, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}
