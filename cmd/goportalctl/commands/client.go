package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// errNotFound mirrors server.ErrPortalNotFound without importing the
// daemon's internal package; goportalctl only depends on the wire shape of
// the introspection API, not the daemon's implementation.
var errNotFound = errors.New("portal not found")

// portalInfo is the client-side view of a portal worker, decoded from the
// introspection API's JSON response.
type portalInfo struct {
	ID        string `json:"ID"`
	Role      string `json:"Role"`
	Peer      string `json:"Peer"`
	StartedAt string `json:"StartedAt"`
}

// apiClient is a minimal HTTP client for the goportal introspection API.
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(baseURL string, hc *http.Client) *apiClient {
	return &apiClient{baseURL: baseURL, http: hc}
}

// ListPortals fetches every active portal worker.
func (c *apiClient) ListPortals(ctx context.Context) ([]portalInfo, error) {
	var infos []portalInfo
	if err := c.getJSON(ctx, "/v1/portals", &infos); err != nil {
		return nil, err
	}
	return infos, nil
}

// GetPortal fetches one portal worker by id.
func (c *apiClient) GetPortal(ctx context.Context, id string) (portalInfo, error) {
	var info portalInfo
	err := c.getJSON(ctx, "/v1/portals/"+id, &info)
	return info, err
}

func (c *apiClient) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("request %s: unexpected status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response from %s: %w", path, err)
	}
	return nil
}
