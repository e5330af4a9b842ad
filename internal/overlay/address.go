// Package overlay provides the minimal message-routing abstractions the
// portal worker depends on: addresses, routes, and a Router capable of
// delivering an envelope to whichever handler is registered under a
// route's final hop.
//
// The real overlay routing fabric -- multi-hop path discovery across an
// arbitrary mesh of nodes, address allocation, and worker/processor task
// scheduling -- is out of scope for this repository and is treated as an
// external collaborator. What lives here is just enough of a concrete,
// in-process implementation (Node, in router.go) to exercise the portal
// worker end-to-end in tests and in the demo command.
package overlay

import "github.com/google/uuid"

// NodeID names one participant in the overlay. A Route's every hop but
// the last is a NodeID; the last hop is always an Address local to that
// final node.
type NodeID string

// Address identifies a single registered handler (worker or processor)
// within a node. Addresses are opaque strings, generated randomly so two
// nodes never collide.
type Address string

// String implements fmt.Stringer.
func (a Address) String() string { return string(a) }

// NewAddress returns a fresh, globally-unique Address.
func NewAddress() Address {
	return Address(uuid.NewString())
}

// Route is an ordered path through the overlay: zero or more relay
// NodeIDs followed by exactly one destination Address. A Route of
// length 1 addresses a handler on the local node.
type Route []string

// Hop returns the route's final element, which must name an Address.
// Callers only call Hop on a non-empty route.
func (r Route) Hop() Address {
	return Address(r[len(r)-1])
}

// WithNode returns a copy of r with node prepended as a leading relay hop.
func (r Route) WithNode(node NodeID) Route {
	out := make(Route, 0, len(r)+1)
	out = append(out, string(node))
	out = append(out, r...)
	return out
}

// RouteTo builds a Route addressing addr on node.
func RouteTo(node NodeID, addr Address) Route {
	return Route{string(node), string(addr)}
}
