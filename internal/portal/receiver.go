package portal

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"

	"github.com/dantte-lp/goportal/internal/overlay"
	"github.com/dantte-lp/goportal/internal/portalmetrics"
)

// receiveProcessor is the sibling task that owns the TCP read half once the
// handshake completes. It never writes to the stream and never retries: any
// failure, overlay send included, is reported once to internalAddress and
// then it exits.
type receiveProcessor struct {
	conn            net.Conn
	node            *overlay.Node
	internalAddress overlay.Address
	remoteAddress   overlay.Address
	onwardRoute     overlay.Route
	log             *slog.Logger

	role    string
	peer    string
	metrics *portalmetrics.Collector

	stopOnce chan struct{}
}

func newReceiveProcessor(conn net.Conn, node *overlay.Node, internalAddress, remoteAddress overlay.Address, onwardRoute overlay.Route, role, peer string, metrics *portalmetrics.Collector, log *slog.Logger) *receiveProcessor {
	return &receiveProcessor{
		conn:            conn,
		node:            node,
		internalAddress: internalAddress,
		remoteAddress:   remoteAddress,
		onwardRoute:     onwardRoute,
		log:             log,
		role:            role,
		peer:            peer,
		metrics:         metrics,
		stopOnce:        make(chan struct{}),
	}
}

// run reads until the stream dies, then reports disconnect to
// internalAddress exactly once. If stop has been requested before the next
// read begins, run exits without reporting. It is meant to run in its own
// goroutine, not directly in the worker's delivery goroutine.
func (p *receiveProcessor) run() {
	buf := make([]byte, maxReadBuffer)
	for {
		select {
		case <-p.stopOnce:
			return
		default:
		}

		n, err := p.conn.Read(buf)
		if n > 0 {
			frame := PayloadMessage(append([]byte(nil), buf[:n]...)).Marshal()
			if sendErr := p.node.Send(context.Background(), p.remoteAddress, p.onwardRoute, overlay.RouteTo(p.node.ID(), p.internalAddress), frame); sendErr != nil {
				p.log.Debug("receive processor overlay send failed, reporting disconnect", "error", sendErr)
				p.reportDisconnect()
				return
			}
			if p.metrics != nil {
				p.metrics.AddBytesTransferred(p.role, p.peer, n)
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				p.log.Debug("receive processor read failed, reporting disconnect", "error", err)
			}
			p.reportDisconnect()
			return
		}
	}
}

func (p *receiveProcessor) reportDisconnect() {
	frame := InternalDisconnect().Marshal()
	_ = p.node.Send(context.Background(), p.internalAddress, overlay.Route{string(p.internalAddress)}, nil, frame)
}

// stop requests run to exit at its next opportunity. It does not interrupt
// an in-flight Read; the blocked goroutine unblocks once the peer closes
// the connection or the worker closes conn itself.
func (p *receiveProcessor) stop() {
	select {
	case <-p.stopOnce:
	default:
		close(p.stopOnce)
	}
}
