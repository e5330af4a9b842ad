package portal

import "testing"

// TestTeardownTablePlans pins the exact notify/stop-processor behavior
// start_disconnection honors for each Reason, so a future edit to the table
// can't silently change what a teardown does without a test noticing.
func TestTeardownTablePlans(t *testing.T) {
	t.Parallel()

	tests := []struct {
		reason Reason
		want   plan
	}{
		{ReasonFailedTx, plan{notifyPeer: true, stopProcessor: false}},
		{ReasonFailedRx, plan{notifyPeer: true, stopProcessor: true}},
		{ReasonRemote, plan{notifyPeer: false, stopProcessor: true}},
	}

	for _, tt := range tests {
		got, ok := teardownTable[tt.reason]
		if !ok {
			t.Errorf("teardownTable has no entry for %s", tt.reason)
			continue
		}
		if got != tt.want {
			t.Errorf("teardownTable[%s] = %+v, want %+v", tt.reason, got, tt.want)
		}
	}
}
