// Package portalcfg manages goportal daemon configuration using koanf/v2.
//
// Supports YAML files and environment variables.
package portalcfg

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// -------------------------------------------------------------------------
// Configuration Structures
// -------------------------------------------------------------------------

// Config holds the complete goportal configuration.
type Config struct {
	HTTP    HTTPConfig     `koanf:"http"`
	Metrics MetricsConfig  `koanf:"metrics"`
	Log     LogConfig      `koanf:"log"`
	Portal  PortalConfig   `koanf:"portal"`
	Inlets  []InletConfig  `koanf:"inlets"`
}

// HTTPConfig holds the health-check and introspection server configuration.
type HTTPConfig struct {
	// Addr is the HTTP listen address (e.g., ":8443").
	Addr string `koanf:"addr"`
}

// MetricsConfig holds the Prometheus metrics endpoint configuration.
type MetricsConfig struct {
	// Addr is the HTTP listen address for the metrics endpoint (e.g., ":9100").
	Addr string `koanf:"addr"`
	// Path is the URL path for the metrics endpoint (e.g., "/metrics").
	Path string `koanf:"path"`
}

// LogConfig holds the logging configuration.
type LogConfig struct {
	// Level is the log level: "debug", "info", "warn", "error".
	Level string `koanf:"level"`
	// Format is the log output format: "json" or "text".
	Format string `koanf:"format"`
}

// PortalConfig holds settings that apply to every portal worker this node
// starts, whether as Inlet or Outlet.
type PortalConfig struct {
	// DialTimeout bounds an Outlet's attempt to reach its upstream during
	// SendPong handling.
	DialTimeout time.Duration `koanf:"dial_timeout"`

	// ReadBufferSize is validated to be positive but is not passed to the
	// portal package: the Receive Processor's read buffer is always 4096
	// bytes regardless of this value.
	ReadBufferSize int `koanf:"read_buffer_size"`
}

// InletConfig describes a declarative Inlet listener from the
// configuration file: accept TCP on ListenAddr, bridge to UpstreamAddr on
// OutletNode via the overlay.
type InletConfig struct {
	// ListenAddr is the local TCP address this Inlet accepts clients on.
	ListenAddr string `koanf:"listen_addr"`

	// OutletNode names the overlay node hosting the Outlet. cmd/goportal
	// hosts a single node and routes every Ping to it, so this value is
	// validated and logged but does not select the route.
	OutletNode string `koanf:"outlet_node"`

	// OutletAddress is the overlay address on OutletNode registered to
	// receive triggering Pings.
	OutletAddress string `koanf:"outlet_address"`

	// UpstreamAddr is the TCP address the triggered Outlet dials once the
	// handshake's SendPong step runs.
	UpstreamAddr string `koanf:"upstream_addr"`
}

// -------------------------------------------------------------------------
// Defaults
// -------------------------------------------------------------------------

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Addr: ":8443",
		},
		Metrics: MetricsConfig{
			Addr: ":9100",
			Path: "/metrics",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Portal: PortalConfig{
			DialTimeout:    10 * time.Second,
			ReadBufferSize: 4096,
		},
	}
}

// -------------------------------------------------------------------------
// Loader
// -------------------------------------------------------------------------

// envPrefix is the environment variable prefix for goportal configuration.
// Variables are named GOPORTAL_<section>_<key>, e.g., GOPORTAL_HTTP_ADDR.
const envPrefix = "GOPORTAL_"

// Load reads configuration from a YAML file at path, overlays environment
// variable overrides (GOPORTAL_ prefix), and merges on top of
// DefaultConfig(). Missing fields inherit defaults.
//
// Environment variable mapping:
//
//	GOPORTAL_HTTP_ADDR            -> http.addr
//	GOPORTAL_METRICS_ADDR         -> metrics.addr
//	GOPORTAL_METRICS_PATH         -> metrics.path
//	GOPORTAL_LOG_LEVEL            -> log.level
//	GOPORTAL_LOG_FORMAT           -> log.format
//	GOPORTAL_PORTAL_DIAL_TIMEOUT  -> portal.dial_timeout
//
// Uses koanf/v2 with file + env providers and YAML parser.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	defaults := DefaultConfig()
	if err := loadDefaults(k, defaults); err != nil {
		return nil, fmt.Errorf("load config defaults: %w", err)
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load config from %s: %w", path, err)
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKeyMapper), nil); err != nil {
		return nil, fmt.Errorf("load env overrides: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config from %s: %w", path, err)
	}

	return cfg, nil
}

// envKeyMapper transforms GOPORTAL_HTTP_ADDR -> http.addr.
// Strips the GOPORTAL_ prefix, lowercases, and replaces the first _ (the
// section separator) with ., so GOPORTAL_PORTAL_DIAL_TIMEOUT ->
// portal.dial_timeout.
func envKeyMapper(s string) string {
	s = strings.TrimPrefix(s, envPrefix)
	s = strings.ToLower(s)
	return strings.Replace(s, "_", ".", 1)
}

// loadDefaults marshals the default config into koanf as the base layer.
func loadDefaults(k *koanf.Koanf, defaults *Config) error {
	defaultMap := map[string]any{
		"http.addr":               defaults.HTTP.Addr,
		"metrics.addr":            defaults.Metrics.Addr,
		"metrics.path":            defaults.Metrics.Path,
		"log.level":               defaults.Log.Level,
		"log.format":              defaults.Log.Format,
		"portal.dial_timeout":     defaults.Portal.DialTimeout.String(),
		"portal.read_buffer_size": defaults.Portal.ReadBufferSize,
	}

	for key, val := range defaultMap {
		if err := k.Set(key, val); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

// -------------------------------------------------------------------------
// Validation
// -------------------------------------------------------------------------

// Validation errors.
var (
	// ErrEmptyHTTPAddr indicates the HTTP listen address is empty.
	ErrEmptyHTTPAddr = errors.New("http.addr must not be empty")

	// ErrInvalidDialTimeout indicates the dial timeout is not positive.
	ErrInvalidDialTimeout = errors.New("portal.dial_timeout must be > 0")

	// ErrInvalidReadBufferSize indicates the read buffer size is not positive.
	ErrInvalidReadBufferSize = errors.New("portal.read_buffer_size must be > 0")

	// ErrEmptyListenAddr indicates an inlet entry has no listen address.
	ErrEmptyListenAddr = errors.New("inlet listen_addr must not be empty")

	// ErrEmptyOutletNode indicates an inlet entry has no target outlet node.
	ErrEmptyOutletNode = errors.New("inlet outlet_node must not be empty")

	// ErrEmptyOutletAddress indicates an inlet entry has no target outlet address.
	ErrEmptyOutletAddress = errors.New("inlet outlet_address must not be empty")

	// ErrEmptyUpstreamAddr indicates an inlet entry has no upstream dial target.
	ErrEmptyUpstreamAddr = errors.New("inlet upstream_addr must not be empty")

	// ErrDuplicateListenAddr indicates two inlets share the same listen address.
	ErrDuplicateListenAddr = errors.New("duplicate inlet listen_addr")
)

// Validate checks the configuration for logical errors.
// Returns the first validation error encountered.
func Validate(cfg *Config) error {
	if cfg.HTTP.Addr == "" {
		return ErrEmptyHTTPAddr
	}

	if cfg.Portal.DialTimeout <= 0 {
		return ErrInvalidDialTimeout
	}

	if cfg.Portal.ReadBufferSize <= 0 {
		return ErrInvalidReadBufferSize
	}

	return validateInlets(cfg.Inlets)
}

// validateInlets checks each declarative inlet entry for correctness.
func validateInlets(inlets []InletConfig) error {
	seen := make(map[string]struct{}, len(inlets))

	for i, ic := range inlets {
		if ic.ListenAddr == "" {
			return fmt.Errorf("inlets[%d]: %w", i, ErrEmptyListenAddr)
		}
		if ic.OutletNode == "" {
			return fmt.Errorf("inlets[%d]: %w", i, ErrEmptyOutletNode)
		}
		if ic.OutletAddress == "" {
			return fmt.Errorf("inlets[%d]: %w", i, ErrEmptyOutletAddress)
		}
		if ic.UpstreamAddr == "" {
			return fmt.Errorf("inlets[%d]: %w", i, ErrEmptyUpstreamAddr)
		}
		if _, dup := seen[ic.ListenAddr]; dup {
			return fmt.Errorf("inlets[%d] listen_addr %q: %w", i, ic.ListenAddr, ErrDuplicateListenAddr)
		}
		seen[ic.ListenAddr] = struct{}{}
	}

	return nil
}

// -------------------------------------------------------------------------
// Log Level Parsing
// -------------------------------------------------------------------------

// ParseLogLevel maps a configuration log level string to the corresponding
// slog.Level. Unknown values default to slog.LevelInfo.
//
// Recognized values: "debug", "info", "warn", "error" (case-insensitive).
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
