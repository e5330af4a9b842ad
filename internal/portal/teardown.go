package portal

import (
	"fmt"
	"time"
)

// Reason identifies which of the three teardown triggers fired.
type Reason uint8

const (
	// ReasonFailedTx is a local TCP write failure.
	ReasonFailedTx Reason = iota + 1
	// ReasonFailedRx is the Receive Processor reporting a dead socket.
	ReasonFailedRx
	// ReasonRemote is the peer worker sending Disconnect.
	ReasonRemote
)

func (r Reason) String() string {
	switch r {
	case ReasonFailedTx:
		return "failed-tx"
	case ReasonFailedRx:
		return "failed-rx"
	case ReasonRemote:
		return "remote"
	default:
		return fmt.Sprintf("Reason(%d)", uint8(r))
	}
}

// plan is what start_disconnection does for a given Reason, beyond the
// unconditional disconnecting-latch and final unregister.
type plan struct {
	notifyPeer    bool
	stopProcessor bool
}

var teardownTable = map[Reason]plan{
	ReasonFailedTx: {notifyPeer: true, stopProcessor: false},
	ReasonFailedRx: {notifyPeer: true, stopProcessor: true},
	ReasonRemote:   {notifyPeer: false, stopProcessor: true},
}

// teardownGraceDelay is the fixed sleep before peer-notify and before
// processor-stop that mitigates the simultaneous-teardown race. It is an
// acknowledged coarse workaround, not a principled fix; see the design
// notes for the alternative this stands in for.
const teardownGraceDelay = 1 * time.Second
