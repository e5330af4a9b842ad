package portalcfg_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dantte-lp/goportal/internal/portalcfg"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := portalcfg.DefaultConfig()

	if cfg.HTTP.Addr != ":8443" {
		t.Errorf("HTTP.Addr = %q, want %q", cfg.HTTP.Addr, ":8443")
	}

	if cfg.Metrics.Addr != ":9100" {
		t.Errorf("Metrics.Addr = %q, want %q", cfg.Metrics.Addr, ":9100")
	}

	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "info")
	}

	if cfg.Portal.DialTimeout != 10*time.Second {
		t.Errorf("Portal.DialTimeout = %v, want %v", cfg.Portal.DialTimeout, 10*time.Second)
	}

	if cfg.Portal.ReadBufferSize != 4096 {
		t.Errorf("Portal.ReadBufferSize = %d, want %d", cfg.Portal.ReadBufferSize, 4096)
	}

	if err := portalcfg.Validate(cfg); err != nil {
		t.Errorf("DefaultConfig() failed validation: %v", err)
	}
}

func TestLoadFromYAML(t *testing.T) {
	t.Parallel()

	yamlContent := `
http:
  addr: ":9443"
metrics:
  addr: ":9200"
  path: "/custom-metrics"
log:
  level: "debug"
  format: "text"
portal:
  dial_timeout: "5s"
  read_buffer_size: 8192
inlets:
  - listen_addr: "127.0.0.1:54001"
    outlet_node: "edge-1"
    outlet_address: "outlet-trigger"
    upstream_addr: "10.0.0.1:443"
`

	path := writeTemp(t, yamlContent)

	cfg, err := portalcfg.Load(path)
	if err != nil {
		t.Fatalf("Load(%q) error: %v", path, err)
	}

	if cfg.HTTP.Addr != ":9443" {
		t.Errorf("HTTP.Addr = %q, want %q", cfg.HTTP.Addr, ":9443")
	}

	if cfg.Portal.DialTimeout != 5*time.Second {
		t.Errorf("Portal.DialTimeout = %v, want %v", cfg.Portal.DialTimeout, 5*time.Second)
	}

	if cfg.Portal.ReadBufferSize != 8192 {
		t.Errorf("Portal.ReadBufferSize = %d, want %d", cfg.Portal.ReadBufferSize, 8192)
	}

	if len(cfg.Inlets) != 1 {
		t.Fatalf("len(Inlets) = %d, want 1", len(cfg.Inlets))
	}
	if cfg.Inlets[0].ListenAddr != "127.0.0.1:54001" {
		t.Errorf("Inlets[0].ListenAddr = %q, want %q", cfg.Inlets[0].ListenAddr, "127.0.0.1:54001")
	}
}

func TestLoadMergesDefaults(t *testing.T) {
	t.Parallel()

	yamlContent := `
http:
  addr: ":7777"
log:
  level: "warn"
`

	path := writeTemp(t, yamlContent)

	cfg, err := portalcfg.Load(path)
	if err != nil {
		t.Fatalf("Load(%q) error: %v", path, err)
	}

	if cfg.HTTP.Addr != ":7777" {
		t.Errorf("HTTP.Addr = %q, want %q", cfg.HTTP.Addr, ":7777")
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "warn")
	}

	if cfg.Metrics.Addr != ":9100" {
		t.Errorf("Metrics.Addr = %q, want default %q", cfg.Metrics.Addr, ":9100")
	}
	if cfg.Portal.DialTimeout != 10*time.Second {
		t.Errorf("Portal.DialTimeout = %v, want default %v", cfg.Portal.DialTimeout, 10*time.Second)
	}
}

func TestValidateRejectsEmptyHTTPAddr(t *testing.T) {
	t.Parallel()

	cfg := portalcfg.DefaultConfig()
	cfg.HTTP.Addr = ""

	if err := portalcfg.Validate(cfg); !errors.Is(err, portalcfg.ErrEmptyHTTPAddr) {
		t.Fatalf("Validate() = %v, want ErrEmptyHTTPAddr", err)
	}
}

func TestValidateRejectsDuplicateListenAddr(t *testing.T) {
	t.Parallel()

	cfg := portalcfg.DefaultConfig()
	cfg.Inlets = []portalcfg.InletConfig{
		{ListenAddr: "127.0.0.1:1", OutletNode: "n", OutletAddress: "a", UpstreamAddr: "10.0.0.1:1"},
		{ListenAddr: "127.0.0.1:1", OutletNode: "n", OutletAddress: "b", UpstreamAddr: "10.0.0.2:1"},
	}

	if err := portalcfg.Validate(cfg); !errors.Is(err, portalcfg.ErrDuplicateListenAddr) {
		t.Fatalf("Validate() = %v, want ErrDuplicateListenAddr", err)
	}
}

func TestValidateRejectsEmptyUpstreamAddr(t *testing.T) {
	t.Parallel()

	cfg := portalcfg.DefaultConfig()
	cfg.Inlets = []portalcfg.InletConfig{
		{ListenAddr: "127.0.0.1:1", OutletNode: "n", OutletAddress: "a"},
	}

	if err := portalcfg.Validate(cfg); !errors.Is(err, portalcfg.ErrEmptyUpstreamAddr) {
		t.Fatalf("Validate() = %v, want ErrEmptyUpstreamAddr", err)
	}
}

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"debug": "DEBUG",
		"INFO":  "INFO",
		"warn":  "WARN",
		"error": "ERROR",
		"bogus": "INFO",
	}

	for input, want := range tests {
		if got := portalcfg.ParseLogLevel(input).String(); got != want {
			t.Errorf("ParseLogLevel(%q) = %s, want %s", input, got, want)
		}
	}
}

func writeTemp(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "goportal.yml")

	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp file: %v", err)
	}

	return path
}
