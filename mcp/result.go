package mcp

import (
	mcpproto "github.com/mark3labs/mcp-go/mcp"
	gateway "github.com/mark3labs/x402-gateway"
)

// normalizeResult flattens an MCP tool result into the gateway's uniform
// shape. Unknown content types are dropped; the raw result is preserved.
func normalizeResult(result *mcpproto.CallToolResult) *gateway.CallToolResult {
	if result == nil {
		return &gateway.CallToolResult{}
	}

	out := &gateway.CallToolResult{
		Raw:     result,
		IsError: result.IsError,
	}
	for _, content := range result.Content {
		switch c := content.(type) {
		case mcpproto.TextContent:
			out.Content = append(out.Content, gateway.ContentPart{Type: "text", Text: c.Text})
		case mcpproto.ImageContent:
			out.Content = append(out.Content, gateway.ContentPart{Type: "image", Data: c.Data, MimeType: c.MIMEType})
		}
	}
	return out
}
