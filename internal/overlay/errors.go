package overlay

import "errors"

var (
	// ErrEmptyRoute indicates Send was called with a route of zero hops.
	ErrEmptyRoute = errors.New("overlay: route has no hops")

	// ErrUnknownNode indicates a route's leading hop names a node this
	// node has no link to.
	ErrUnknownNode = errors.New("overlay: unknown relay node")

	// ErrUnknownAddress indicates a route's final hop names an address
	// with no registered handler -- the overlay equivalent of "destination
	// already stopped".
	ErrUnknownAddress = errors.New("overlay: no handler registered for address")

	// ErrAddressInUse indicates Register was called with an address that
	// already has a handler.
	ErrAddressInUse = errors.New("overlay: address already registered")
)
