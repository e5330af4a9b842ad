package portal

import "errors"

// Error taxonomy returned by the worker's message handler. TxError and
// RxError never reach this surface: the worker converts them into orderly
// teardown before they could be returned.
var (
	// ErrInvalidState is an event arriving in a state that forbids it,
	// e.g. a message while still in SendPing/SendPong, a ReceivePong-state
	// message addressed to internal_address, or initialize called twice.
	ErrInvalidState = errors.New("portal: invalid state for event")

	// ErrProtocolError is a syntactically valid frame whose variant is
	// forbidden in context, or one the codec cannot decode at all.
	ErrProtocolError = errors.New("portal: protocol error")

	// ErrUnknownRoute is an onward route with hops remaining after
	// stripping this worker's own address: this worker is always a
	// terminal address, never a relay.
	ErrUnknownRoute = errors.New("portal: onward route has unexpected remaining hops")

	// ErrDialError is an Outlet's failed attempt to reach its upstream
	// during SendPong handling.
	ErrDialError = errors.New("portal: failed to dial upstream")
)
