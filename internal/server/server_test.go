package server_test

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dantte-lp/goportal/internal/overlay"
	"github.com/dantte-lp/goportal/internal/portal"
	"github.com/dantte-lp/goportal/internal/server"
)

func setupTestServer(t *testing.T) (*httptest.Server, *portal.Registry) {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	reg := portal.NewRegistry()

	handler := server.New(reg, logger)
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return srv, reg
}

func TestListPortalsEmpty(t *testing.T) {
	t.Parallel()

	srv, _ := setupTestServer(t)

	resp, err := http.Get(srv.URL + "/v1/portals")
	if err != nil {
		t.Fatalf("GET /v1/portals: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var got []portal.Info
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d portals, want 0", len(got))
	}
}

func TestListPortalsPopulated(t *testing.T) {
	t.Parallel()

	srv, reg := setupTestServer(t)

	addr := overlay.NewAddress()
	reg.Register(addr, "inlet", "10.0.0.1:443")

	resp, err := http.Get(srv.URL + "/v1/portals")
	if err != nil {
		t.Fatalf("GET /v1/portals: %v", err)
	}
	defer resp.Body.Close()

	var got []portal.Info
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d portals, want 1", len(got))
	}
	if got[0].ID != string(addr) || got[0].Role != "inlet" || got[0].Peer != "10.0.0.1:443" {
		t.Errorf("unexpected entry: %+v", got[0])
	}
}

func TestGetPortalFound(t *testing.T) {
	t.Parallel()

	srv, reg := setupTestServer(t)

	addr := overlay.NewAddress()
	reg.Register(addr, "outlet", "10.0.0.2:8080")

	resp, err := http.Get(srv.URL + "/v1/portals/" + string(addr))
	if err != nil {
		t.Fatalf("GET /v1/portals/{id}: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var got portal.Info
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Role != "outlet" || got.Peer != "10.0.0.2:8080" {
		t.Errorf("unexpected entry: %+v", got)
	}
}

func TestGetPortalNotFound(t *testing.T) {
	t.Parallel()

	srv, _ := setupTestServer(t)

	resp, err := http.Get(srv.URL + "/v1/portals/does-not-exist")
	if err != nil {
		t.Fatalf("GET /v1/portals/{id}: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}
