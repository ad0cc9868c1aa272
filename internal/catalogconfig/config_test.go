package catalogconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CATALOGD_STORE_SERVER_MODE", "")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.ListenAddr != "0.0.0.0:8181" {
		t.Errorf("ListenAddr = %q", cfg.Server.ListenAddr)
	}
	if cfg.Server.ShutdownTimeout != 15*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 15s", cfg.Server.ShutdownTimeout)
	}
	if cfg.Store.Database != "catalogd" || cfg.Store.ServerPort != 3306 {
		t.Errorf("store defaults = %+v", cfg.Store)
	}
	if cfg.Secrets.Backend != "memory" {
		t.Errorf("Secrets.Backend = %q, want memory", cfg.Secrets.Backend)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	contents := `
server:
  listen-addr: "127.0.0.1:9000"
store:
  server-mode: true
  server-host: "db.internal"
  server-port: 3307
secrets:
  backend: vault
  vault-addr: "https://vault.internal:8200"
`
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.ListenAddr != "127.0.0.1:9000" {
		t.Errorf("ListenAddr = %q", cfg.Server.ListenAddr)
	}
	if !cfg.Store.ServerMode || cfg.Store.ServerHost != "db.internal" || cfg.Store.ServerPort != 3307 {
		t.Errorf("store config = %+v", cfg.Store)
	}
	if cfg.Secrets.Backend != "vault" || cfg.Secrets.VaultAddr != "https://vault.internal:8200" {
		t.Errorf("secrets config = %+v", cfg.Secrets)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("store:\n  database: from-file\n"), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv("CATALOGD_STORE_DATABASE", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.Database != "from-env" {
		t.Errorf("Store.Database = %q, want env var to win over file", cfg.Store.Database)
	}
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Load with missing file should not error: %v", err)
	}
	if cfg.Store.Database != "catalogd" {
		t.Errorf("Store.Database = %q, want default", cfg.Store.Database)
	}
}
