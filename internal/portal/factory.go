package portal

import (
	"context"
	"log/slog"
	"net"

	"github.com/dantte-lp/goportal/internal/overlay"
	"github.com/dantte-lp/goportal/internal/portalmetrics"
)

// StartNewInlet registers a new Inlet worker for an already-accepted TCP
// client and sends the handshake Ping along pingRoute. It returns the
// address other overlay actors use to reach this worker -- in particular
// the address the corresponding Outlet's Pong must be addressed to. metrics
// and registry may both be nil.
func StartNewInlet(ctx context.Context, node *overlay.Node, conn net.Conn, peerAddr string, pingRoute overlay.Route, metrics *portalmetrics.Collector, registry *Registry, log *slog.Logger) (overlay.Address, error) {
	w := newWorker(RoleInlet, node, peerAddr, conn, nil, metrics, registry, log)
	w.state = SendPingState(pingRoute)

	// Initialize receives and stores the non-blocking detach hook itself
	// (see overlay.Node.Start); the blocking variant returned here is for
	// an external caller that wants to force-stop the worker and is not
	// needed by the worker's own teardown path.
	if _, err := node.Start(w, []overlay.Address{w.internalAddress, w.remoteAddress}, w.Initialize); err != nil {
		return "", err
	}
	if metrics != nil {
		metrics.RegisterWorker(RoleInlet.String(), peerAddr)
	}
	if registry != nil {
		registry.Register(w.remoteAddress, RoleInlet.String(), peerAddr)
	}

	log.Info("inlet worker started", "peer", peerAddr, "internal_address", w.internalAddress, "remote_address", w.remoteAddress)
	return w.remoteAddress, nil
}

// StartNewOutlet registers a new Outlet worker in response to a routed Ping
// whose terminal hop selected this node. pongRoute is the return route
// embedded in that Ping; peerAddr is the upstream TCP server this worker
// dials once the handshake's SendPong step runs. metrics and registry may
// both be nil.
func StartNewOutlet(ctx context.Context, node *overlay.Node, peerAddr string, pongRoute overlay.Route, dialer Dialer, metrics *portalmetrics.Collector, registry *Registry, log *slog.Logger) (overlay.Address, error) {
	w := newWorker(RoleOutlet, node, peerAddr, nil, dialer, metrics, registry, log)
	w.state = SendPongState(pongRoute)

	if _, err := node.Start(w, []overlay.Address{w.internalAddress, w.remoteAddress}, w.Initialize); err != nil {
		return "", err
	}
	if metrics != nil {
		metrics.RegisterWorker(RoleOutlet.String(), peerAddr)
	}
	if registry != nil {
		registry.Register(w.remoteAddress, RoleOutlet.String(), peerAddr)
	}

	log.Info("outlet worker started", "peer", peerAddr, "internal_address", w.internalAddress, "remote_address", w.remoteAddress)
	return w.remoteAddress, nil
}
