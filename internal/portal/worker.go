package portal

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/dantte-lp/goportal/internal/overlay"
	"github.com/dantte-lp/goportal/internal/portalmetrics"
)

// Dialer abstracts the single upstream dial an Outlet performs during
// SendPong handling. net.Dialer satisfies it directly.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Worker is the portal worker: one per TCP connection, serving either an
// Inlet or an Outlet role through the same state machine and message
// handler. Every field below is touched only from the single goroutine the
// owning overlay.Node's Start/Register serializes onto this worker's
// addresses -- initialize and HandleMessage never run concurrently with
// each other -- so, per the concurrency model, the worker carries no
// mutex of its own.
type Worker struct {
	role     Role
	node     *overlay.Node
	log      *slog.Logger
	metrics  *portalmetrics.Collector
	registry *Registry

	peer   string
	dialer Dialer

	conn net.Conn // nil until attached (Outlet, pre-dial)

	internalAddress  overlay.Address
	remoteAddress    overlay.Address
	receiverAddress  overlay.Address
	unregisterWorker func()

	state State

	remoteRoute   overlay.Route
	disconnecting bool

	processor           *receiveProcessor
	unregisterProcessor func()
}

// newWorker builds a Worker with no state assigned yet; callers must set
// w.state before registering it with the overlay. metrics and registry may
// both be nil, in which case no metrics are recorded and no introspection
// entry is kept.
func newWorker(role Role, node *overlay.Node, peer string, conn net.Conn, dialer Dialer, metrics *portalmetrics.Collector, registry *Registry, log *slog.Logger) *Worker {
	return &Worker{
		role:            role,
		node:            node,
		log:             log,
		metrics:         metrics,
		registry:        registry,
		peer:            peer,
		dialer:          dialer,
		conn:            conn,
		internalAddress: overlay.NewAddress(),
		remoteAddress:   overlay.NewAddress(),
		receiverAddress: overlay.NewAddress(),
	}
}

// Initialize runs once, immediately after registration, on the worker's own
// delivery goroutine (see overlay.Node.Start). unregister is the hook this
// worker must call if it needs to tear itself down before any message ever
// arrives.
func (w *Worker) Initialize(ctx context.Context, unregister func()) error {
	w.unregisterWorker = unregister

	switch w.state.Kind {
	case StateSendPing:
		route := w.state.Route
		if err := w.node.Send(ctx, w.remoteAddress, route, overlay.RouteTo(w.node.ID(), w.remoteAddress), Ping().Marshal()); err != nil {
			w.log.Warn("failed to send ping", "role", w.role, "internal_address", w.internalAddress, "error", err)
			unregister()
			return fmt.Errorf("portal: send ping: %w", err)
		}
		w.state = State{Kind: StateReceivePong}
		return nil

	case StateSendPong:
		route := w.state.Route
		if err := w.node.Send(ctx, w.remoteAddress, route, overlay.RouteTo(w.node.ID(), w.remoteAddress), Pong().Marshal()); err != nil {
			w.log.Warn("failed to send pong", "role", w.role, "internal_address", w.internalAddress, "error", err)
			unregister()
			return fmt.Errorf("portal: send pong: %w", err)
		}

		if w.conn == nil {
			conn, err := w.dialer.DialContext(ctx, "tcp", w.peer)
			if err != nil {
				w.log.Warn("outlet dial failed", "peer", w.peer, "error", err)
				if w.metrics != nil {
					w.metrics.IncDialFailures()
				}
				unregister()
				return fmt.Errorf("%w: %s: %w", ErrDialError, w.peer, err)
			}
			w.conn = conn
		}

		w.startReceiver(route)
		w.remoteRoute = route
		w.state = State{Kind: StateInitialized}
		return nil

	default:
		unregister()
		return fmt.Errorf("%w: initialize called in state %s", ErrInvalidState, w.state.Kind)
	}
}

// startReceiver spawns the Receive Processor and registers its address for
// stop tracking. Called only from SendPong-initialize or ReceivePong
// handling, i.e. exactly once per worker.
func (w *Worker) startReceiver(onwardRoute overlay.Route) {
	p := newReceiveProcessor(w.conn, w.node, w.internalAddress, w.remoteAddress, onwardRoute, w.role.String(), w.peer, w.metrics, w.log)
	w.processor = p
	w.unregisterProcessor = w.node.RegisterProcessor(w.receiverAddress, p.stop)
	go p.run()
}

// HandleMessage is the overlay callback invoked for every frame addressed
// to internalAddress or remoteAddress.
func (w *Worker) HandleMessage(ctx context.Context, env overlay.Envelope) error {
	if w.disconnecting {
		return nil
	}

	if len(env.OnwardRoute) > 1 {
		return fmt.Errorf("%w: %d hops remain after this worker", ErrUnknownRoute, len(env.OnwardRoute)-1)
	}
	returnRoute := env.ReturnRoute

	switch w.state.Kind {
	case StateSendPing, StateSendPong:
		return fmt.Errorf("%w: message received while in %s", ErrInvalidState, w.state.Kind)

	case StateReceivePong:
		if env.To != w.remoteAddress {
			return fmt.Errorf("%w: message for %s received in ReceivePong, expected remote_address", ErrInvalidState, env.To)
		}
		msg, err := UnmarshalMessage(env.Payload)
		if err != nil {
			return err
		}
		if msg.Kind != KindPong {
			return fmt.Errorf("%w: expected Pong in ReceivePong, got %s", ErrProtocolError, msg.Kind)
		}
		w.startReceiver(returnRoute)
		w.remoteRoute = returnRoute
		w.state = State{Kind: StateInitialized}
		return nil

	case StateInitialized:
		if env.To == w.internalAddress {
			msg, err := UnmarshalInternalMessage(env.Payload)
			if err != nil {
				return err
			}
			if msg.Kind == InternalKindDisconnect {
				w.startDisconnection(ctx, ReasonFailedRx)
			}
			return nil
		}

		msg, err := UnmarshalMessage(env.Payload)
		if err != nil {
			return err
		}
		switch msg.Kind {
		case KindPayload:
			if w.conn == nil {
				return fmt.Errorf("%w: payload received with no write half attached", ErrInvalidState)
			}
			if _, err := w.conn.Write(msg.Payload); err != nil {
				w.log.Debug("tcp write failed, starting teardown", "role", w.role, "internal_address", w.internalAddress, "error", err)
				w.startDisconnection(ctx, ReasonFailedTx)
				return nil
			}
			if w.metrics != nil {
				w.metrics.AddBytesTransferred(w.role.String(), w.peer, len(msg.Payload))
			}
			return nil
		case KindDisconnect:
			w.startDisconnection(ctx, ReasonRemote)
			return nil
		default:
			return fmt.Errorf("%w: %s received in Initialized", ErrProtocolError, msg.Kind)
		}

	default:
		return fmt.Errorf("%w: unrecognized state %s", ErrInvalidState, w.state.Kind)
	}
}

// startDisconnection runs the teardown plan for reason. The disconnecting
// latch is set before anything else so any envelope still queued behind
// this one becomes a no-op per the HandleMessage guard above.
func (w *Worker) startDisconnection(ctx context.Context, reason Reason) {
	w.disconnecting = true
	plan, ok := teardownTable[reason]
	if !ok {
		w.log.Error("unrecognized teardown reason", "reason", reason)
		plan = teardownTable[ReasonRemote]
	}

	w.log.Info("portal worker disconnecting", "role", w.role, "internal_address", w.internalAddress, "reason", reason)
	if w.metrics != nil {
		w.metrics.RecordTeardown(w.role.String(), reason.String())
	}

	if plan.notifyPeer {
		time.Sleep(teardownGraceDelay)
		if err := w.node.Send(ctx, w.remoteAddress, w.remoteRoute, nil, Disconnect().Marshal()); err != nil {
			w.log.Debug("failed to notify peer of disconnect", "error", err)
		}
	}

	if plan.stopProcessor {
		time.Sleep(teardownGraceDelay)
		if w.unregisterProcessor != nil {
			w.unregisterProcessor()
			w.unregisterProcessor = nil
		}
	}

	if w.conn != nil {
		_ = w.conn.Close()
	}

	if w.unregisterWorker != nil {
		w.unregisterWorker()
	}
	if w.metrics != nil {
		w.metrics.UnregisterWorker(w.role.String(), w.peer)
	}
	if w.registry != nil {
		w.registry.Unregister(w.remoteAddress)
	}
}
