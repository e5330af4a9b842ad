// Package portal implements the TCP portal worker: a bidirectional
// tunnel endpoint that bridges one local TCP connection to a peer worker
// reachable through an overlay.Node, negotiating the connection with a
// small Ping/Pong handshake before streaming bytes in both directions.
//
// A single Worker type serves both roles. An Inlet is constructed for an
// already-accepted client connection and sends the first Ping; an Outlet is
// constructed in response to a routed Ping and replies with Pong once it
// has dialed its own upstream. Once a worker reaches the Initialized state,
// a sibling receiveProcessor owns the read half and the worker itself owns
// the write half, exactly as required by the no-shared-socket-access
// invariant.
package portal
