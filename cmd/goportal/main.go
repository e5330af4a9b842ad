// goportal daemon -- TCP portal worker (Inlet/Outlet tunnel bridge).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/grpchealth"
	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"

	"github.com/dantte-lp/goportal/internal/overlay"
	"github.com/dantte-lp/goportal/internal/portal"
	"github.com/dantte-lp/goportal/internal/portalcfg"
	"github.com/dantte-lp/goportal/internal/portalmetrics"
	"github.com/dantte-lp/goportal/internal/server"
	appversion "github.com/dantte-lp/goportal/internal/version"
)

// shutdownTimeout is the maximum time to wait for HTTP servers to drain
// active connections during graceful shutdown.
const shutdownTimeout = 10 * time.Second

// localNodeID names the single overlay node this daemon hosts. goportal
// runs one node per process; multi-node overlays are reached via Link, not
// modeled here since nothing in this deployment calls it.
const localNodeID = overlay.NodeID("local")

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to configuration file (YAML)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.New(slog.NewTextHandler(os.Stderr, nil)).Error("failed to load configuration",
			slog.String("error", err.Error()),
		)
		return 1
	}

	logLevel := new(slog.LevelVar)
	logLevel.Set(portalcfg.ParseLogLevel(cfg.Log.Level))
	logger := newLoggerWithLevel(cfg.Log, logLevel)

	logger.Info("goportal starting",
		slog.String("version", appversion.Version),
		slog.String("http_addr", cfg.HTTP.Addr),
		slog.String("metrics_addr", cfg.Metrics.Addr),
		slog.Int("inlets", len(cfg.Inlets)),
	)

	reg := prometheus.NewRegistry()
	collector := portalmetrics.NewCollector(reg)
	registry := portal.NewRegistry()

	node := overlay.NewNode(localNodeID)

	if err := runServers(cfg, node, collector, registry, reg, logger, *configPath, logLevel); err != nil {
		logger.Error("goportal exited with error",
			slog.String("error", err.Error()),
		)
		return 1
	}

	logger.Info("goportal stopped")
	return 0
}

// runServers wires the demo Inlet/Outlet topology and runs the HTTP
// servers using an errgroup with a signal-aware context for graceful
// shutdown.
func runServers(
	cfg *portalcfg.Config,
	node *overlay.Node,
	collector *portalmetrics.Collector,
	registry *portal.Registry,
	reg *prometheus.Registry,
	logger *slog.Logger,
	configPath string,
	logLevel *slog.LevelVar,
) error {
	metricsSrv := newMetricsServer(cfg.Metrics, reg)
	httpSrv := newHTTPServer(cfg.HTTP, registry, logger)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	closeListeners, err := startInlets(gCtx, cfg, node, collector, registry, logger)
	if err != nil {
		return fmt.Errorf("start inlets: %w", err)
	}
	defer closeListeners()

	startHTTPServers(gCtx, g, cfg, httpSrv, metricsSrv, logger)
	startSIGHUPHandler(gCtx, g, configPath, logLevel, logger)

	g.Go(func() error {
		return runWatchdog(gCtx, logger)
	})

	notifyReady(logger)

	g.Go(func() error {
		<-gCtx.Done()
		return gracefulShutdown(gCtx, logger, httpSrv, metricsSrv)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("run servers: %w", err)
	}
	return nil
}

// startHTTPServers registers the introspection/health and metrics HTTP
// server goroutines.
func startHTTPServers(
	ctx context.Context,
	g *errgroup.Group,
	cfg *portalcfg.Config,
	httpSrv *http.Server,
	metricsSrv *http.Server,
	logger *slog.Logger,
) {
	lc := net.ListenConfig{}

	g.Go(func() error {
		logger.Info("introspection server listening", slog.String("addr", cfg.HTTP.Addr))
		return listenAndServe(ctx, &lc, httpSrv, cfg.HTTP.Addr)
	})

	g.Go(func() error {
		logger.Info("metrics server listening",
			slog.String("addr", cfg.Metrics.Addr),
			slog.String("path", cfg.Metrics.Path),
		)
		return listenAndServe(ctx, &lc, metricsSrv, cfg.Metrics.Addr)
	})
}

// startSIGHUPHandler registers the SIGHUP reload goroutine. The only
// dynamic setting reloadable without restarting the listeners this daemon
// already opened is the log level.
func startSIGHUPHandler(
	ctx context.Context,
	g *errgroup.Group,
	configPath string,
	logLevel *slog.LevelVar,
	logger *slog.Logger,
) {
	sigHUP := make(chan os.Signal, 1)
	signal.Notify(sigHUP, syscall.SIGHUP)
	g.Go(func() error {
		defer signal.Stop(sigHUP)
		handleSIGHUP(ctx, sigHUP, configPath, logLevel, logger)
		return nil
	})
}

// handleSIGHUP listens for SIGHUP and reloads the dynamic log level.
// Blocks until ctx is cancelled.
func handleSIGHUP(
	ctx context.Context,
	sigHUP <-chan os.Signal,
	configPath string,
	logLevel *slog.LevelVar,
	logger *slog.Logger,
) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-sigHUP:
			logger.Info("received SIGHUP, reloading configuration")
			newCfg, err := loadConfig(configPath)
			if err != nil {
				logger.Error("failed to reload configuration, keeping current settings",
					slog.String("error", err.Error()),
				)
				continue
			}

			oldLevel := logLevel.Level()
			newLevel := portalcfg.ParseLogLevel(newCfg.Log.Level)
			logLevel.Set(newLevel)

			logger.Info("configuration reloaded",
				slog.String("old_log_level", oldLevel.String()),
				slog.String("new_log_level", newLevel.String()),
			)
		}
	}
}

// -------------------------------------------------------------------------
// Inlet/Outlet Topology
// -------------------------------------------------------------------------

// startInlets builds the demo overlay topology from the declarative inlet
// list: one OutletDispatcher per inlet entry, registered on node under that
// entry's OutletAddress (two entries naming the same OutletAddress fail with
// an address-in-use error), plus one TCP accept loop per ListenAddr calling
// StartNewInlet for each accepted connection. Every Ping route names this
// daemon's own node; an entry's OutletNode is only logged. Returns a func
// that closes every listener.
func startInlets(
	ctx context.Context,
	cfg *portalcfg.Config,
	node *overlay.Node,
	collector *portalmetrics.Collector,
	registry *portal.Registry,
	logger *slog.Logger,
) (func(), error) {
	var listeners []net.Listener

	closeAll := func() {
		for _, ln := range listeners {
			if err := ln.Close(); err != nil {
				logger.Warn("failed to close inlet listener", slog.String("error", err.Error()))
			}
		}
	}

	for _, ic := range cfg.Inlets {
		ic := ic

		upstream := ic.UpstreamAddr
		dispatcher := &portal.OutletDispatcher{
			Node:     node,
			Dialer:   &net.Dialer{Timeout: cfg.Portal.DialTimeout},
			Metrics:  collector,
			Registry: registry,
			Log:      logger.With(slog.String("inlet", ic.ListenAddr)),
			UpstreamFor: func(overlay.Envelope) (string, error) {
				return upstream, nil
			},
		}
		if _, err := node.Register(dispatcher, overlay.Address(ic.OutletAddress)); err != nil {
			closeAll()
			return nil, fmt.Errorf("register outlet dispatcher %q: %w", ic.OutletAddress, err)
		}

		ln, err := net.Listen("tcp", ic.ListenAddr)
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("listen on %s: %w", ic.ListenAddr, err)
		}
		listeners = append(listeners, ln)

		pingRoute := overlay.RouteTo(node.ID(), overlay.Address(ic.OutletAddress))
		go acceptLoop(ctx, ln, node, pingRoute, collector, registry, logger.With(slog.String("inlet", ic.ListenAddr)))

		logger.Info("inlet listening",
			slog.String("addr", ic.ListenAddr),
			slog.String("outlet_node", ic.OutletNode),
			slog.String("outlet_address", ic.OutletAddress),
			slog.String("upstream_addr", ic.UpstreamAddr),
		)
	}

	return closeAll, nil
}

// acceptLoop accepts client connections on ln and starts an Inlet worker
// for each, until ctx is cancelled or the listener is closed.
func acceptLoop(
	ctx context.Context,
	ln net.Listener,
	node *overlay.Node,
	pingRoute overlay.Route,
	collector *portalmetrics.Collector,
	registry *portal.Registry,
	logger *slog.Logger,
) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			logger.Warn("accept failed", slog.String("error", err.Error()))
			continue
		}

		peerAddr := conn.RemoteAddr().String()
		if _, err := portal.StartNewInlet(ctx, node, conn, peerAddr, pingRoute, collector, registry, logger); err != nil {
			logger.Warn("failed to start inlet", slog.String("peer", peerAddr), slog.String("error", err.Error()))
			_ = conn.Close()
		}
	}
}

// -------------------------------------------------------------------------
// Systemd Integration — sd_notify + watchdog
// -------------------------------------------------------------------------

// notifyReady sends READY=1 to systemd, indicating the daemon has finished
// setting up its listeners and is ready to serve.
func notifyReady(logger *slog.Logger) {
	sent, err := daemon.SdNotify(false, daemon.SdNotifyReady)
	if err != nil {
		logger.Warn("failed to notify systemd readiness",
			slog.String("error", err.Error()),
		)
		return
	}
	if sent {
		logger.Info("notified systemd: READY")
	}
}

// notifyStopping sends STOPPING=1 to systemd, indicating the daemon is
// beginning graceful shutdown.
func notifyStopping(logger *slog.Logger) {
	sent, err := daemon.SdNotify(false, daemon.SdNotifyStopping)
	if err != nil {
		logger.Warn("failed to notify systemd stopping",
			slog.String("error", err.Error()),
		)
		return
	}
	if sent {
		logger.Info("notified systemd: STOPPING")
	}
}

// runWatchdog sends periodic watchdog keepalives to systemd. The interval
// is WatchdogSec/2 as recommended by the systemd documentation. If the
// watchdog is not configured, the goroutine exits immediately.
func runWatchdog(ctx context.Context, logger *slog.Logger) error {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		logger.Warn("failed to check systemd watchdog",
			slog.String("error", err.Error()),
		)
		return nil
	}
	if interval == 0 {
		logger.Debug("systemd watchdog not configured, skipping keepalive")
		return nil
	}

	tickInterval := interval / 2
	logger.Info("systemd watchdog enabled",
		slog.Duration("watchdog_sec", interval),
		slog.Duration("keepalive_interval", tickInterval),
	)

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, wdErr := daemon.SdNotify(false, daemon.SdNotifyWatchdog); wdErr != nil {
				logger.Warn("failed to send watchdog keepalive",
					slog.String("error", wdErr.Error()),
				)
			}
		}
	}
}

// -------------------------------------------------------------------------
// Graceful Shutdown
// -------------------------------------------------------------------------

// gracefulShutdown drains the HTTP servers within shutdownTimeout.
func gracefulShutdown(
	ctx context.Context,
	logger *slog.Logger,
	servers ...*http.Server,
) error {
	logger.Info("initiating graceful shutdown")
	notifyStopping(logger)

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	var shutdownErr error
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			shutdownErr = errors.Join(shutdownErr, fmt.Errorf("shutdown server: %w", err))
		}
	}
	return shutdownErr
}

// -------------------------------------------------------------------------
// Server Setup
// -------------------------------------------------------------------------

// listenAndServe creates a TCP listener using the ListenConfig (for noctx
// compliance) and serves HTTP requests until the server is shut down.
func listenAndServe(ctx context.Context, lc *net.ListenConfig, srv *http.Server, addr string) error {
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve on %s: %w", addr, err)
	}
	return nil
}

// newMetricsServer creates an HTTP server for the Prometheus metrics endpoint.
func newMetricsServer(cfg portalcfg.MetricsConfig, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// newHTTPServer creates the introspection + health HTTP server. The handler
// is wrapped with h2c to support HTTP/2 without TLS, matching the health
// checker's ConnectRPC transport expectations.
func newHTTPServer(cfg portalcfg.HTTPConfig, registry *portal.Registry, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/v1/", server.New(registry, logger))

	checker := grpchealth.NewStaticChecker(grpchealth.HealthV1ServiceName)
	mux.Handle(grpchealth.NewHandler(checker))

	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           h2c.NewHandler(mux, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// loadConfig loads configuration from a file path or returns defaults.
func loadConfig(path string) (*portalcfg.Config, error) {
	if path != "" {
		cfg, err := portalcfg.Load(path)
		if err != nil {
			return nil, fmt.Errorf("load config from %s: %w", path, err)
		}
		return cfg, nil
	}
	return portalcfg.DefaultConfig(), nil
}

// newLoggerWithLevel creates a structured logger using a shared LevelVar
// for dynamic log level changes via SIGHUP reload.
func newLoggerWithLevel(cfg portalcfg.LogConfig, level *slog.LevelVar) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch cfg.Format {
	case "text":
		handler = slog.NewTextHandler(os.Stdout, opts)
	default:
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
