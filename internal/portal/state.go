package portal

import (
	"fmt"

	"github.com/dantte-lp/goportal/internal/overlay"
)

// Role is fixed at construction and never changes for the life of a worker.
type Role uint8

const (
	RoleInlet Role = iota + 1
	RoleOutlet
)

func (r Role) String() string {
	switch r {
	case RoleInlet:
		return "inlet"
	case RoleOutlet:
		return "outlet"
	default:
		return fmt.Sprintf("Role(%d)", uint8(r))
	}
}

// StateKind names one of the four handshake states. State itself carries
// the per-state route data as a tagged struct rather than as nullable
// fields scattered across the worker, so the route is only ever readable
// in the state that is supposed to have one.
type StateKind uint8

const (
	StateSendPing StateKind = iota + 1
	StateSendPong
	StateReceivePong
	StateInitialized
)

func (k StateKind) String() string {
	switch k {
	case StateSendPing:
		return "SendPing"
	case StateSendPong:
		return "SendPong"
	case StateReceivePong:
		return "ReceivePong"
	case StateInitialized:
		return "Initialized"
	default:
		return fmt.Sprintf("StateKind(%d)", uint8(k))
	}
}

// State is the worker's handshake state. Route is meaningful only for
// StateSendPing (the route to send Ping on) and StateSendPong (the route to
// send Pong on); it is the zero value in ReceivePong and Initialized.
type State struct {
	Kind  StateKind
	Route overlay.Route
}

// SendPingState builds the initial Inlet state.
func SendPingState(pingRoute overlay.Route) State {
	return State{Kind: StateSendPing, Route: pingRoute}
}

// SendPongState builds the initial Outlet state.
func SendPongState(pongRoute overlay.Route) State {
	return State{Kind: StateSendPong, Route: pongRoute}
}
