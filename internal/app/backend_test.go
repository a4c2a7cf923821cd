package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/club-portal/internal/config"
	"github.com/club-portal/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOpenMemoryBackend(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Store.Backend = config.BackendMemory

	b, err := OpenBackend(context.Background(), cfg, testLogger())
	if err != nil {
		t.Fatalf("OpenBackend: %v", err)
	}
	defer b.Close()

	if b.Recorder != nil {
		t.Error("memory backend should not record change events")
	}
	if err := b.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
	if _, err := b.Accounts.AccountByEmail(context.Background(), "nobody@club.test"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("AccountByEmail on empty store = %v", err)
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Store.Backend = "sqlite"
	if _, err := OpenBackend(context.Background(), cfg, testLogger()); err == nil {
		t.Error("expected an error for an unknown backend")
	}
}
