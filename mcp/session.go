package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/client"
	mcpproto "github.com/mark3labs/mcp-go/mcp"
	gateway "github.com/mark3labs/x402-gateway"
)

// Session is one live connection to an MCP server. Tools is immutable after
// connect; lastUsed is last-writer-wins and not correctness-critical.
type Session struct {
	ID            string
	ServerID      string
	TransportType string
	Tools         []gateway.Tool
	CreatedAt     time.Time

	client   *client.Client
	lastUsed atomic.Int64 // unix nanos
}

// newTransport is a seam for tests to substitute an in-process transport.
var newTransport = buildTransport

// connectSession builds the transport for a spawn config, connects, performs
// the MCP handshake, and lists the server's tools.
func connectSession(ctx context.Context, serverID string, cfg *SpawnConfig) (*Session, error) {
	tr, err := newTransport(cfg)
	if err != nil {
		return nil, err
	}

	c := client.NewClient(tr)
	if err := c.Start(ctx); err != nil {
		tr.Close()
		return nil, fmt.Errorf("failed to start transport for %s: %w", serverID, err)
	}

	initReq := mcpproto.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcpproto.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcpproto.Implementation{
		Name:    "x402-gateway",
		Version: "1.0.0",
	}
	if _, err := c.Initialize(ctx, initReq); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize %s: %w", serverID, err)
	}

	tools, err := listSessionTools(ctx, c)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to list tools for %s: %w", serverID, err)
	}

	s := &Session{
		ID:            uuid.NewString(),
		ServerID:      serverID,
		TransportType: cfg.Transport,
		Tools:         tools,
		CreatedAt:     time.Now(),
		client:        c,
	}
	s.Touch()
	return s, nil
}

func listSessionTools(ctx context.Context, c *client.Client) ([]gateway.Tool, error) {
	result, err := c.ListTools(ctx, mcpproto.ListToolsRequest{})
	if err != nil {
		return nil, err
	}

	tools := make([]gateway.Tool, 0, len(result.Tools))
	for _, t := range result.Tools {
		tools = append(tools, gateway.Tool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: schemaToMap(t.InputSchema),
		})
	}
	return tools, nil
}

// schemaToMap converts the typed MCP input schema to the loose JSON-Schema
// map the rest of the gateway traffics in.
func schemaToMap(schema mcpproto.ToolInputSchema) map[string]interface{} {
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}

// Probe verifies the session still answers with a lightweight tools/list.
func (s *Session) Probe(ctx context.Context) error {
	_, err := s.client.ListTools(ctx, mcpproto.ListToolsRequest{})
	return err
}

// Call invokes one tool and normalizes the result.
func (s *Session) Call(ctx context.Context, toolName string, args map[string]interface{}) (*gateway.CallToolResult, error) {
	req := mcpproto.CallToolRequest{}
	req.Params.Name = toolName
	req.Params.Arguments = args

	result, err := s.client.CallTool(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: tool %s: %v", gateway.ErrUpstreamError, toolName, err)
	}

	s.Touch()
	return normalizeResult(result), nil
}

// Touch records use for idle tracking.
func (s *Session) Touch() {
	s.lastUsed.Store(time.Now().UnixNano())
}

// LastUsed returns the last use time.
func (s *Session) LastUsed() time.Time {
	return time.Unix(0, s.lastUsed.Load())
}

// Age is the time since connect.
func (s *Session) Age() time.Duration {
	return time.Since(s.CreatedAt)
}

// Close tears down the client and its transport.
func (s *Session) Close() error {
	return s.client.Close()
}
