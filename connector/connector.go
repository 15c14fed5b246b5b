// Package connector presents a catalog of named tool connectors behind a
// uniform list/call surface. A connector is backed either by hand-written
// HTTP tools (OAuth1-signed or bearer-token) or by a spawned MCP server.
package connector

import (
	"context"
	"fmt"
	"os"
	"sort"

	gateway "github.com/mark3labs/x402-gateway"
	"github.com/mark3labs/x402-gateway/mcp"
)

// Descriptor identifies a connector and what it needs to run.
type Descriptor struct {
	ID          string            `json:"id"`
	Label       string            `json:"label"`
	Description string            `json:"description"`
	HTTPBased   bool              `json:"httpBased"`
	Command     string            `json:"command,omitempty"`
	Args        []string          `json:"args,omitempty"`
	RequiredEnv []string          `json:"requiredEnv"`
	EnvHints    map[string]string `json:"envHints,omitempty"`
}

// MissingEnv returns the required variables not present in the environment.
func (d Descriptor) MissingEnv() []string {
	var missing []string
	for _, name := range d.RequiredEnv {
		if os.Getenv(name) == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

// Available reports whether every required variable is set.
func (d Descriptor) Available() bool {
	return len(d.MissingEnv()) == 0
}

// Connector is one catalog entry's behavior.
type Connector interface {
	Descriptor() Descriptor
	Tools(ctx context.Context) ([]gateway.Tool, error)
	CallTool(ctx context.Context, name string, args map[string]interface{}) (*gateway.CallToolResult, error)
}

// Listing is one catalog row with derived availability.
type Listing struct {
	Descriptor
	IsAvailable bool     `json:"available"`
	Missing     []string `json:"missingEnv,omitempty"`
}

// Service is the connector catalog.
type Service struct {
	connectors map[string]Connector
}

// NewService builds a catalog over the given connectors.
func NewService(connectors ...Connector) *Service {
	m := make(map[string]Connector, len(connectors))
	for _, c := range connectors {
		m[c.Descriptor().ID] = c
	}
	return &Service{connectors: m}
}

// DefaultService builds the standard catalog: the native X connector plus
// MCP-backed connectors bridged through the session pool.
func DefaultService(pool *mcp.Pool) *Service {
	return NewService(
		NewXConnector(),
		NewMCPConnector(pool, Descriptor{
			ID:          "github",
			Label:       "GitHub",
			Description: "Repository, issue and pull-request tools via the GitHub MCP server.",
			RequiredEnv: []string{"GITHUB_PERSONAL_ACCESS_TOKEN"},
			EnvHints:    map[string]string{"GITHUB_PERSONAL_ACCESS_TOKEN": "a classic or fine-grained PAT"},
		}),
		NewMCPConnector(pool, Descriptor{
			ID:          "gmail",
			Label:       "Gmail",
			Description: "Read and send mail via the Gmail MCP server.",
			RequiredEnv: []string{"GMAIL_OAUTH_CLIENT_ID", "GMAIL_OAUTH_CLIENT_SECRET", "GMAIL_REFRESH_TOKEN"},
		}),
	)
}

// List returns every connector with availability derived from the
// environment.
func (s *Service) List() []Listing {
	listings := make([]Listing, 0, len(s.connectors))
	for _, c := range s.connectors {
		d := c.Descriptor()
		missing := d.MissingEnv()
		listings = append(listings, Listing{
			Descriptor:  d,
			IsAvailable: len(missing) == 0,
			Missing:     missing,
		})
	}
	sort.Slice(listings, func(i, j int) bool { return listings[i].ID < listings[j].ID })
	return listings
}

// Get finds one connector's listing.
func (s *Service) Get(id string) (*Listing, error) {
	c, ok := s.connectors[id]
	if !ok {
		return nil, fmt.Errorf("%w: connector %s", gateway.ErrToolNotFound, id)
	}
	d := c.Descriptor()
	missing := d.MissingEnv()
	return &Listing{Descriptor: d, IsAvailable: len(missing) == 0, Missing: missing}, nil
}

// Tools lists a connector's tools. Unavailable connectors error before any
// network activity.
func (s *Service) Tools(ctx context.Context, id string) ([]gateway.Tool, error) {
	c, ok := s.connectors[id]
	if !ok {
		return nil, fmt.Errorf("%w: connector %s", gateway.ErrToolNotFound, id)
	}
	if err := requireAvailable(c); err != nil {
		return nil, err
	}
	return c.Tools(ctx)
}

// Call invokes one tool on a connector. Unavailable connectors error before
// any network activity.
func (s *Service) Call(ctx context.Context, id, toolName string, args map[string]interface{}) (*gateway.CallToolResult, error) {
	c, ok := s.connectors[id]
	if !ok {
		return nil, fmt.Errorf("%w: connector %s", gateway.ErrToolNotFound, id)
	}
	if err := requireAvailable(c); err != nil {
		return nil, err
	}
	return c.CallTool(ctx, toolName, args)
}

func requireAvailable(c Connector) error {
	d := c.Descriptor()
	if missing := d.MissingEnv(); len(missing) > 0 {
		return fmt.Errorf("%w: connector %s missing env: %v", gateway.ErrConnectorUnavailable, d.ID, missing)
	}
	return nil
}
