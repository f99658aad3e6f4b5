package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig_ApplyDefaults(t *testing.T) {
	cfg := ApplyDefaults(Config{})

	if cfg.HTTP.Addr != ":8080" {
		t.Errorf("expected :8080, got %s", cfg.HTTP.Addr)
	}
	if cfg.Store.Driver != "memory" {
		t.Errorf("expected memory store, got %s", cfg.Store.Driver)
	}
	if cfg.Geo.Timeout != 5*time.Second || cfg.Geo.MaxRetries != 3 {
		t.Errorf("unexpected geo defaults: %+v", cfg.Geo)
	}
	if cfg.Geo.UserAgent != "IPCheck/1.0" {
		t.Errorf("unexpected user agent %s", cfg.Geo.UserAgent)
	}
	if cfg.IPDistance.PublicResults {
		t.Error("public results should be off by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestConfig_ProductionDisablesSyntheticFallback(t *testing.T) {
	cfg := ApplyDefaults(Config{App: AppConfig{Env: "production"}, Geo: GeoConfig{SyntheticFallback: true}})
	if cfg.Geo.SyntheticFallback {
		t.Error("synthetic fallback must be off in production")
	}
	if !cfg.App.Production() {
		t.Error("expected production")
	}
}

func TestConfig_ApplyEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("STORE_DRIVER", "redis")
	t.Setenv("CORS_ORIGINS", "https://ipcheck.tools, http://localhost:3000")
	t.Setenv("IPDISTANCE_PUBLIC_RESULTS", "true")

	cfg := applyEnv(Config{})

	if cfg.HTTP.Addr != ":9090" {
		t.Errorf("expected :9090, got %s", cfg.HTTP.Addr)
	}
	if cfg.Store.Driver != "redis" {
		t.Errorf("expected redis, got %s", cfg.Store.Driver)
	}
	if len(cfg.HTTP.CORSOrigins) != 2 || cfg.HTTP.CORSOrigins[1] != "http://localhost:3000" {
		t.Errorf("unexpected origins: %v", cfg.HTTP.CORSOrigins)
	}
	if !cfg.IPDistance.PublicResults {
		t.Error("expected public results from env")
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
app:
  env: staging
http:
  addr: ":7070"
geo:
  timeout: 2s
  synthetic_fallback: true
ipdistance:
  public_host: example.test
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if cfg.HTTP.Addr != ":7070" || cfg.Geo.Timeout != 2*time.Second || !cfg.Geo.SyntheticFallback {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.IPDistance.PublicHost != "example.test" {
		t.Errorf("unexpected public host %s", cfg.IPDistance.PublicHost)
	}
}

func TestLoadFromFile_Missing(t *testing.T) {
	cfg, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing file should fall back to defaults: %v", err)
	}
	if cfg.Store.Driver != "memory" {
		t.Errorf("expected defaults, got %+v", cfg.Store)
	}
}

func TestLoadFromFile_InvalidDriver(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("store:\n  driver: etcd\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromFile(path); err == nil {
		t.Fatal("expected validation error")
	}
}
