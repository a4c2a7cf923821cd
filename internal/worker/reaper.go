package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/club-portal/internal/config"
)

// Sweeper drops expired sessions from the whitelist and returns their tokens
type Sweeper interface {
	SweepExpired(ctx context.Context) ([]string, error)
}

// RoleInvalidator forgets the cached role of a token
type RoleInvalidator interface {
	Invalidate(ctx context.Context, token string) error
}

// SessionReaper periodically removes expired sessions and their cached roles
type SessionReaper struct {
	sessions Sweeper
	roles    RoleInvalidator
	config   *config.SessionsConfig
	logger   *slog.Logger
	stopCh   chan struct{}
	doneCh   chan struct{}
	mu       sync.Mutex
	running  bool
}

// NewSessionReaper creates a new session reaper. roles may be nil.
func NewSessionReaper(
	sessions Sweeper,
	roles RoleInvalidator,
	cfg *config.SessionsConfig,
	logger *slog.Logger,
) *SessionReaper {
	return &SessionReaper{
		sessions: sessions,
		roles:    roles,
		config:   cfg,
		logger:   logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background sweep
func (w *SessionReaper) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	w.logger.Info("session reaper started", "interval", w.config.ReapInterval)

	go w.run(ctx)
	return nil
}

// Stop stops the background sweep
func (w *SessionReaper) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("session reaper stopped")
	return nil
}

// run is the main worker loop
func (w *SessionReaper) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.config.ReapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce runs a single sweep and returns the number of tokens removed
func (w *SessionReaper) RunOnce(ctx context.Context) int {
	startTime := time.Now()

	tokens, err := w.sessions.SweepExpired(ctx)
	if err != nil {
		w.logger.Error("session sweep failed", "error", err, "swept", len(tokens))
	}

	errorCount := 0
	if w.roles != nil {
		for _, token := range tokens {
			if err := w.roles.Invalidate(ctx, token); err != nil {
				errorCount++
			}
		}
	}

	w.logger.Info("session sweep completed",
		"duration", time.Since(startTime),
		"swept", len(tokens),
		"errors", errorCount,
	)
	return len(tokens)
}

// IsRunning returns whether the worker is currently running
func (w *SessionReaper) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}
