package portal

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dantte-lp/goportal/internal/overlay"
	"github.com/dantte-lp/goportal/internal/portalmetrics"
)

// OutletDispatcher is the overlay-facing half of the listener glue: a
// handler registered at a well-known address that a node exposes so remote
// Inlets can trigger an Outlet. It decodes the inbound frame, expects it to
// be Ping, resolves which upstream to dial, and starts the Outlet worker.
//
// The TCP-accepting half of the listener glue (the Inlet side) has no
// overlay-facing surface of its own -- it just calls StartNewInlet after
// accept -- so there is no analogous type for it here.
type OutletDispatcher struct {
	Node     *overlay.Node
	Dialer   Dialer
	Metrics  *portalmetrics.Collector
	Registry *Registry
	Log      *slog.Logger

	// UpstreamFor resolves the TCP address an Outlet should dial in
	// response to an inbound Ping. Implementations typically consult
	// static configuration or service discovery; this package has no
	// opinion on that policy.
	UpstreamFor func(env overlay.Envelope) (string, error)
}

// HandleMessage implements overlay.Handler.
func (d *OutletDispatcher) HandleMessage(ctx context.Context, env overlay.Envelope) error {
	msg, err := UnmarshalMessage(env.Payload)
	if err != nil {
		return err
	}
	if msg.Kind != KindPing {
		return fmt.Errorf("%w: outlet dispatcher received %s, expected Ping", ErrProtocolError, msg.Kind)
	}

	peer, err := d.UpstreamFor(env)
	if err != nil {
		return fmt.Errorf("resolve upstream: %w", err)
	}

	if _, err := StartNewOutlet(ctx, d.Node, peer, env.ReturnRoute, d.Dialer, d.Metrics, d.Registry, d.Log); err != nil {
		d.Log.Warn("failed to start outlet", "peer", peer, "error", err)
		return err
	}
	return nil
}
