package connector

import (
	"context"

	gateway "github.com/mark3labs/x402-gateway"
	"github.com/mark3labs/x402-gateway/mcp"
)

// MCPConnector bridges a catalog entry onto a pooled MCP server session.
// The descriptor's ID doubles as the registry server id used for spawning.
type MCPConnector struct {
	pool *mcp.Pool
	desc Descriptor
}

// NewMCPConnector wraps an MCP server as a connector.
func NewMCPConnector(pool *mcp.Pool, desc Descriptor) *MCPConnector {
	return &MCPConnector{pool: pool, desc: desc}
}

func (c *MCPConnector) Descriptor() Descriptor {
	return c.desc
}

func (c *MCPConnector) Tools(ctx context.Context) ([]gateway.Tool, error) {
	tools, _, err := c.pool.GetServerTools(ctx, c.desc.ID)
	return tools, err
}

func (c *MCPConnector) CallTool(ctx context.Context, name string, args map[string]interface{}) (*gateway.CallToolResult, error) {
	return c.pool.ExecuteServerTool(ctx, c.desc.ID, name, args)
}
