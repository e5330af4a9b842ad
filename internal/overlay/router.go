package overlay

import (
	"context"
	"fmt"
	"sync"
)

// Envelope is what a Handler receives on delivery. OnwardRoute is whatever
// remains of the route after the hop that reached this handler; for a
// locally-addressed send it is just the destination address. ReturnRoute is
// the route the sender expects a reply to travel back along.
type Envelope struct {
	To            Address
	OnwardRoute   Route
	ReturnRoute   Route
	SenderAddress Address
	Payload       []byte
}

// Handler receives envelopes delivered to one or more addresses registered
// against it. HandleMessage is invoked serially: a Node never calls
// HandleMessage for the same registration group from two goroutines at
// once, so a Handler never needs its own lock to protect state touched only
// from HandleMessage.
type Handler interface {
	HandleMessage(ctx context.Context, env Envelope) error
}

// group is the shared mailbox for one Register call. Every address in
// addrs funnels into the same channel, so the handler's own goroutine -- not
// the caller's -- serializes delivery, mirroring a single actor registered
// under several addresses.
type group struct {
	handler Handler
	inbox   chan Envelope
	done    chan struct{}
}

// processor is the lighter bookkeeping entry for a Receive Processor: it has
// no inbox because nothing ever sends it overlay messages, only a stop
// function a Node can invoke to tear it down.
type processor struct {
	stop func()
}

// Node is a single participant in the overlay: a registry of addresses,
// mapping each to either a message-routed Handler group or a Receive
// Processor's stop hook, plus a set of links to peer nodes for multi-hop
// delivery.
type Node struct {
	id NodeID

	mu         sync.Mutex
	groups     map[Address]*group
	processors map[Address]*processor
	peers      map[NodeID]*Node
}

// NewNode creates an empty Node identified by id.
func NewNode(id NodeID) *Node {
	return &Node{
		id:         id,
		groups:     make(map[Address]*group),
		processors: make(map[Address]*processor),
		peers:      make(map[NodeID]*Node),
	}
}

// ID returns the node's identity, the NodeID relay hops name in a Route.
func (n *Node) ID() NodeID { return n.id }

// Link records a bidirectional neighbor relationship so routes naming
// peer's NodeID as a relay hop can be forwarded there, and vice versa.
func (n *Node) Link(peer *Node) {
	n.mu.Lock()
	n.peers[peer.id] = peer
	n.mu.Unlock()

	peer.mu.Lock()
	peer.peers[n.id] = n
	peer.mu.Unlock()
}

// Register binds handler to every address in addrs, all sharing one
// delivery goroutine. It returns an unregister func the caller invokes on
// teardown; unregister closes the group's inbox and waits for the delivery
// goroutine to drain.
func (n *Node) Register(handler Handler, addrs ...Address) (unregister func(), err error) {
	return n.Start(handler, addrs, nil)
}

// Start is Register plus an optional initialize hook, run once on the
// group's own delivery goroutine before it begins serving envelopes from
// inbox. Running initialize there -- rather than synchronously in the
// caller -- guarantees it is serialized with every later HandleMessage call
// exactly as the overlay's scheduler promises, with no race window in
// between registration and the first message.
//
// initialize receives a non-blocking detach func (it removes the addresses
// and closes the inbox but does not wait for the delivery goroutine, which
// is the goroutine running initialize), so a worker that fails to
// initialize (e.g. an Outlet whose dial fails) can tear itself down without
// waiting for the caller to do it. The unregister func Start returns
// detaches and then also waits for the delivery goroutine to finish.
func (n *Node) Start(handler Handler, addrs []Address, initialize func(ctx context.Context, unregister func()) error) (unregister func(), err error) {
	if len(addrs) == 0 {
		return nil, fmt.Errorf("overlay: Start requires at least one address")
	}

	g := &group{
		handler: handler,
		inbox:   make(chan Envelope, 16),
		done:    make(chan struct{}),
	}

	n.mu.Lock()
	for _, a := range addrs {
		if _, exists := n.groups[a]; exists {
			n.mu.Unlock()
			return nil, fmt.Errorf("%w: %s", ErrAddressInUse, a)
		}
	}
	for _, a := range addrs {
		n.groups[a] = g
	}
	n.mu.Unlock()

	var once sync.Once
	detach := func() {
		once.Do(func() {
			n.mu.Lock()
			for _, a := range addrs {
				if n.groups[a] == g {
					delete(n.groups, a)
				}
			}
			n.mu.Unlock()
			close(g.inbox)
		})
	}

	go func() {
		defer close(g.done)
		if initialize != nil {
			_ = initialize(context.Background(), detach)
		}
		for env := range g.inbox {
			_ = g.handler.HandleMessage(context.Background(), env)
		}
	}()

	return func() {
		detach()
		<-g.done
	}, nil
}

// RegisterProcessor records addr as owned by a Receive Processor rather
// than a message-routed Handler. stop is invoked at most once, when the
// returned unregister func is called.
func (n *Node) RegisterProcessor(addr Address, stop func()) (unregister func()) {
	p := &processor{stop: stop}

	n.mu.Lock()
	n.processors[addr] = p
	n.mu.Unlock()

	var once sync.Once
	return func() {
		n.mu.Lock()
		if n.processors[addr] == p {
			delete(n.processors, addr)
		}
		n.mu.Unlock()
		once.Do(p.stop)
	}
}

// Send delivers payload (which may be nil for control messages carrying no
// bytes) along route. A single-hop route is resolved against this node's
// own registry; a multi-hop route is forwarded to the peer named by the
// leading hop, with that hop stripped first. A leading hop naming this node
// itself is stripped and the rest resolved locally.
//
// returnRoute is the route a handler at the far end should use to reply;
// callers building a fresh request normally pass RouteTo(senderNode,
// senderAddress).
func (n *Node) Send(ctx context.Context, from Address, route, returnRoute Route, payload []byte) error {
	if len(route) == 0 {
		return ErrEmptyRoute
	}

	if len(route) > 1 {
		next := NodeID(route[0])
		if next == n.id {
			return n.Send(ctx, from, route[1:], returnRoute, payload)
		}
		n.mu.Lock()
		peer, ok := n.peers[next]
		n.mu.Unlock()
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownNode, next)
		}
		return peer.Send(ctx, from, route[1:], returnRoute, payload)
	}

	dest := route.Hop()
	n.mu.Lock()
	g, ok := n.groups[dest]
	n.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAddress, dest)
	}

	g.inbox <- Envelope{
		To:            dest,
		OnwardRoute:   route,
		ReturnRoute:   returnRoute,
		SenderAddress: from,
		Payload:       payload,
	}
	return nil
}
