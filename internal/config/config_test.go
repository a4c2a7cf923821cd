package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Store.Backend != BackendPostgres {
		t.Errorf("backend = %q", cfg.Store.Backend)
	}
	if cfg.Leaderboard.PanelSize != 3 {
		t.Errorf("panel size = %d", cfg.Leaderboard.PanelSize)
	}
	if cfg.Auth.TokenTTL != 24*time.Hour {
		t.Errorf("token ttl = %s", cfg.Auth.TokenTTL)
	}
	if !cfg.Sessions.ReapEnabled {
		t.Errorf("reaper should be enabled by default")
	}
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("CLUB_JWT_SECRET", "s3cret")
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
server:
  port: 9090
store:
  backend: memory
auth:
  jwt_secret: ${CLUB_JWT_SECRET}
club:
  name: Riverside FC
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9090 || cfg.Store.Backend != BackendMemory {
		t.Errorf("server/store not read: %+v %+v", cfg.Server, cfg.Store)
	}
	if cfg.Auth.JWTSecret != "s3cret" {
		t.Errorf("jwt secret = %q", cfg.Auth.JWTSecret)
	}
	if cfg.Club.Name != "Riverside FC" || cfg.Club.Location() != time.UTC {
		t.Errorf("club = %+v", cfg.Club)
	}
	if cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("defaults not applied: redis addr %q", cfg.Redis.Addr)
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("store:\n  backend: mongo\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestFirestoreNeedsProject(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Store.Backend = BackendFirestore
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error without project id")
	}
	cfg.Firestore.ProjectID = "club-prod"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}
