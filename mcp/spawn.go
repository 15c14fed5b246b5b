// Package mcp is the gateway's MCP runtime: it stands up servers on demand
// over stdio, remote SSE, or docker transports, keeps long-lived sessions in
// a bounded pool with idle eviction, and executes tool calls with session
// reuse.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	gateway "github.com/mark3labs/x402-gateway"
)

// Transport modes a spawn config can request.
const (
	TransportStdio  = "stdio"
	TransportHTTP   = "http"
	TransportDocker = "docker"
)

// SpawnConfig tells the runtime how to stand up one MCP server. The runtime
// holds no local registry; configs come from the connector service.
type SpawnConfig struct {
	Transport string            `json:"transport"`
	Command   string            `json:"command,omitempty"`
	Args      []string          `json:"args,omitempty"`
	Env       map[string]string `json:"env,omitempty"`
	Image     string            `json:"image,omitempty"`
	Port      int               `json:"port,omitempty"`
	RemoteURL string            `json:"remoteUrl,omitempty"`
	Package   string            `json:"package,omitempty"`
}

// SpawnClient fetches spawn configs from the connector service.
type SpawnClient struct {
	BaseURL string
	Client  *http.Client
}

// NewSpawnClient builds a spawn-config client against the connector service.
func NewSpawnClient(baseURL string) *SpawnClient {
	return &SpawnClient{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// ServerEntry is one registry listing from the connector service.
type ServerEntry struct {
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Transport   string `json:"transport,omitempty"`
}

// ListServers fetches the connector service's server registry.
func (c *SpawnClient) ListServers(ctx context.Context) ([]ServerEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/registry/servers", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", gateway.ErrConnectorUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: server list fetch failed: status %d: %s", gateway.ErrConnectorUnavailable, resp.StatusCode, body)
	}

	var entries []ServerEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("failed to decode server list: %w", err)
	}
	return entries, nil
}

// SpawnConfigFor fetches the spawn config for one server id.
func (c *SpawnClient) SpawnConfigFor(ctx context.Context, serverID string) (*SpawnConfig, error) {
	url := c.BaseURL + "/registry/servers/" + serverID + "/spawn"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", gateway.ErrConnectorUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: unknown server %s", gateway.ErrToolNotFound, serverID)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: spawn config fetch failed: status %d: %s", gateway.ErrConnectorUnavailable, resp.StatusCode, body)
	}

	var cfg SpawnConfig
	if err := json.NewDecoder(resp.Body).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode spawn config: %w", err)
	}
	if cfg.Transport == "" {
		return nil, fmt.Errorf("%w: spawn config for %s has no transport", gateway.ErrInvalidInput, serverID)
	}
	return &cfg, nil
}
