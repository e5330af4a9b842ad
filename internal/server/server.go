// Package server implements the portal introspection HTTP API: a small
// hand-written JSON service that lists and describes active portal workers.
// The gRPC health endpoint served alongside it is mounted by cmd/goportal,
// not by this package.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dantte-lp/goportal/internal/portal"
)

// ErrPortalNotFound is returned (via the HTTP layer) when no worker is
// registered under the requested id.
var ErrPortalNotFound = errors.New("portal not found")

// Server is the introspection HTTP API. Each handler delegates to a
// *portal.Registry for the actual worker bookkeeping -- the server is a
// thin adapter between the HTTP surface and the portal package's in-memory
// state, the same shape as BFDServer's relationship to bfd.Manager.
type Server struct {
	registry *portal.Registry
	logger   *slog.Logger
}

// New creates a Server and returns its handler, ready to be mounted
// (optionally alongside a grpchealth handler) on an http.Server. The
// returned handler is already wrapped with logging and panic recovery.
func New(registry *portal.Registry, logger *slog.Logger) http.Handler {
	srv := &Server{
		registry: registry,
		logger:   logger.With(slog.String("component", "server")),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/portals", srv.listPortals)
	mux.HandleFunc("GET /v1/portals/{id}", srv.getPortal)

	return RecoveryMiddleware(srv.logger)(LoggingMiddleware(srv.logger)(mux))
}

// listPortals handles GET /v1/portals.
func (s *Server) listPortals(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.List())
}

// getPortal handles GET /v1/portals/{id}.
func (s *Server) getPortal(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	info, ok := s.registry.Get(id)
	if !ok {
		s.logger.WarnContext(r.Context(), "portal not found", slog.String("id", id))
		writeJSON(w, http.StatusNotFound, errorResponse{Error: ErrPortalNotFound.Error()})
		return
	}

	writeJSON(w, http.StatusOK, info)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
