package config

import (
	"os"
	"path/filepath"
	"testing"
)

func mustLoad(t *testing.T) Config {
	t.Helper()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return cfg
}

func TestLoadUsesDefaults(t *testing.T) {
	cfg := mustLoad(t)

	if cfg.HTTPAddr != ":10000" {
		t.Fatalf("expected :10000, got %s", cfg.HTTPAddr)
	}
	if cfg.APIPrefix != "/api" {
		t.Fatalf("expected /api, got %s", cfg.APIPrefix)
	}
	if cfg.StoreBackend != BackendMemory {
		t.Fatalf("expected memory backend, got %s", cfg.StoreBackend)
	}
	if cfg.IDBase != 1 || !cfg.SeedContacts {
		t.Fatalf("unexpected memory defaults: base=%d seed=%v", cfg.IDBase, cfg.SeedContacts)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", BackendSQLite)
	t.Setenv("SQLITE_PATH", "/tmp/contacts.db")
	t.Setenv("ID_BASE", "100")
	t.Setenv("SEED_CONTACTS", "false")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.25")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.StoreBackend != BackendSQLite || cfg.SQLitePath != "/tmp/contacts.db" {
		t.Fatalf("unexpected store settings: %+v", cfg)
	}
	if cfg.IDBase != 100 || cfg.SeedContacts {
		t.Fatalf("unexpected memory settings: base=%d seed=%v", cfg.IDBase, cfg.SeedContacts)
	}
	if cfg.TracingSampleRatio != 0.25 {
		t.Fatalf("expected sample ratio 0.25, got %v", cfg.TracingSampleRatio)
	}
}

func TestInvalidEnvValuesFallBack(t *testing.T) {
	t.Setenv("ID_BASE", "ten")
	t.Setenv("SEED_CONTACTS", "maybe")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "2")

	cfg := mustLoad(t)

	if cfg.IDBase != 1 || !cfg.SeedContacts || cfg.TracingSampleRatio != 1.0 {
		t.Fatalf("expected defaults, got base=%d seed=%v ratio=%v", cfg.IDBase, cfg.SeedContacts, cfg.TracingSampleRatio)
	}
}

func TestPortSetsHTTPAddr(t *testing.T) {
	t.Setenv("PORT", "3000")

	if got := mustLoad(t).HTTPAddr; got != ":3000" {
		t.Fatalf("expected :3000, got %s", got)
	}

	t.Setenv("HTTP_ADDR", "127.0.0.1:9000")
	if got := mustLoad(t).HTTPAddr; got != "127.0.0.1:9000" {
		t.Fatalf("expected HTTP_ADDR to win, got %s", got)
	}
}

func TestLoadYAMLFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "phonebook.yaml")
	raw := []byte(`
http_addr: ":8000"
store_backend: postgres
postgres_uri: postgres://u:p@db:5432/contacts
log_format: text
`)
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.HTTPAddr != ":8000" || cfg.StoreBackend != BackendPostgres {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.PostgresURI != "postgres://u:p@db:5432/contacts" {
		t.Fatalf("unexpected postgres uri %s", cfg.PostgresURI)
	}
	if cfg.LogFormat != "json" {
		t.Fatalf("expected env to override file, got %s", cfg.LogFormat)
	}
	if cfg.GRPCAddr != ":8080" {
		t.Fatalf("expected unset keys to keep defaults, got %s", cfg.GRPCAddr)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("http_addr: [unterminated"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(bad); err == nil {
		t.Fatal("expected parse error")
	}

	t.Setenv("STORE_BACKEND", "redis")
	if _, err := Load(""); err == nil {
		t.Fatal("expected unknown backend error")
	}
}
