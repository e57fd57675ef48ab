package config_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Sakshi-Saware/BookSwap/config"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("BOOKSWAP_CONFIG", "")
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Store.Driver != "sqlite" {
		t.Errorf("Store.Driver = %q, want %q", cfg.Store.Driver, "sqlite")
	}
	if cfg.Identity.GuestID != "me_dummy" {
		t.Errorf("Identity.GuestID = %q, want %q", cfg.Identity.GuestID, "me_dummy")
	}
	if len(cfg.Identity.ForeignPrefixes) != 1 || cfg.Identity.ForeignPrefixes[0] != "firebase:" {
		t.Errorf("Identity.ForeignPrefixes = %q", cfg.Identity.ForeignPrefixes)
	}
	if cfg.Server.TokenTTL != 24*time.Hour {
		t.Errorf("Server.TokenTTL = %v, want 24h", cfg.Server.TokenTTL)
	}
	if cfg.Store.MaxValueBytes != 5<<20 {
		t.Errorf("Store.MaxValueBytes = %d", cfg.Store.MaxValueBytes)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	body := `store:
  driver: postgres
  dsn: postgres://bookswap@localhost/bookswap
server:
  addr: ":9090"
  token_ttl: 2h
log:
  format: json
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("BOOKSWAP_LOG_LEVEL", "debug")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Store.Driver != "postgres" {
		t.Errorf("Store.Driver = %q, want postgres", cfg.Store.Driver)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("Server.Addr = %q, want :9090", cfg.Server.Addr)
	}
	if cfg.Server.TokenTTL != 2*time.Hour {
		t.Errorf("Server.TokenTTL = %v, want 2h", cfg.Server.TokenTTL)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug (from env)", cfg.Log.Level)
	}
}

func TestLoadRejectsBrokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte("store: [unclosed"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := config.Load(path); err == nil {
		t.Fatal("expected error for malformed YAML")
	}
}

func TestExpandHome(t *testing.T) {
	home, _ := os.UserHomeDir()
	if got := config.ExpandHome("~/x.db"); got != filepath.Join(home, "x.db") {
		t.Errorf("ExpandHome = %q", got)
	}
	if got := config.ExpandHome("/abs/x.db"); got != "/abs/x.db" {
		t.Errorf("ExpandHome changed absolute path: %q", got)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log, err := config.LogConfig{Level: "warn", Format: "json"}.NewLogger(&buf)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	log.Info("hidden")
	log.Warn("shown", "key", "books_v1")
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line logged at warn level: %s", out)
	}
	if !strings.Contains(out, `"key":"books_v1"`) {
		t.Errorf("json attrs missing: %s", out)
	}

	if _, err := (config.LogConfig{Format: "xml"}).NewLogger(&buf); err == nil {
		t.Error("expected error for unknown format")
	}
	if _, err := (config.LogConfig{Level: "loud"}).NewLogger(&buf); err == nil {
		t.Error("expected error for unknown level")
	}
}
