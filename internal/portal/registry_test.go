package portal_test

import (
	"testing"

	"github.com/dantte-lp/goportal/internal/overlay"
	"github.com/dantte-lp/goportal/internal/portal"
)

func TestRegistryRegisterListGet(t *testing.T) {
	t.Parallel()

	reg := portal.NewRegistry()
	if got := reg.List(); len(got) != 0 {
		t.Fatalf("List() on empty registry = %v, want empty", got)
	}

	addr := overlay.NewAddress()
	reg.Register(addr, "inlet", "10.0.0.1:443")

	list := reg.List()
	if len(list) != 1 {
		t.Fatalf("List() = %d entries, want 1", len(list))
	}
	if list[0].Role != "inlet" || list[0].Peer != "10.0.0.1:443" {
		t.Fatalf("unexpected entry: %+v", list[0])
	}

	info, ok := reg.Get(string(addr))
	if !ok {
		t.Fatal("Get() did not find registered entry")
	}
	if info.ID != string(addr) {
		t.Errorf("ID = %q, want %q", info.ID, addr)
	}

	if _, ok := reg.Get("unknown"); ok {
		t.Error("Get() found an entry for an unknown id")
	}
}

func TestRegistryUnregister(t *testing.T) {
	t.Parallel()

	reg := portal.NewRegistry()
	addr := overlay.NewAddress()
	reg.Register(addr, "outlet", "10.0.0.2:8080")

	reg.Unregister(addr)

	if _, ok := reg.Get(string(addr)); ok {
		t.Error("entry still present after Unregister")
	}
	if got := reg.List(); len(got) != 0 {
		t.Fatalf("List() after Unregister = %v, want empty", got)
	}

	// Unregistering an address that was never registered is a no-op.
	reg.Unregister(overlay.NewAddress())
}
