package commands

import (
	"strings"
	"testing"
)

func TestFormatPortalsTable(t *testing.T) {
	t.Parallel()

	infos := []portalInfo{
		{ID: "addr-1", Role: "inlet", Peer: "client-peer", StartedAt: "2026-01-01T00:00:00Z"},
	}

	out, err := formatPortals(infos, formatTable)
	if err != nil {
		t.Fatalf("formatPortals() error: %v", err)
	}

	if !strings.Contains(out, "addr-1") || !strings.Contains(out, "inlet") {
		t.Errorf("formatPortals() table output missing expected fields: %q", out)
	}
}

func TestFormatPortalsJSON(t *testing.T) {
	t.Parallel()

	infos := []portalInfo{{ID: "addr-1", Role: "outlet", Peer: "10.0.0.1:443"}}

	out, err := formatPortals(infos, formatJSON)
	if err != nil {
		t.Fatalf("formatPortals() error: %v", err)
	}

	if !strings.Contains(out, `"ID": "addr-1"`) {
		t.Errorf("formatPortals() json output missing id field: %q", out)
	}
}

func TestFormatPortalUnsupportedFormat(t *testing.T) {
	t.Parallel()

	_, err := formatPortal(portalInfo{}, "xml")
	if err == nil {
		t.Fatal("formatPortal() with unsupported format: want error, got nil")
	}
}
