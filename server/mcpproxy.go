package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	gateway "github.com/mark3labs/x402-gateway"
	"github.com/mark3labs/x402-gateway/payment"
)

// mcpPlugins proxies the connector service's server registry.
func (s *Server) mcpPlugins(c *gin.Context) {
	entries, err := s.spawner.ListServers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"plugins": entries, "count": len(entries)})
}

// mcpTools aggregates tool schemas across live pooled sessions.
func (s *Server) mcpTools(c *gin.Context) {
	tools := make(map[string][]gateway.Tool)
	for _, session := range s.pool.Sessions() {
		tools[session.ServerID] = session.Tools
	}
	c.JSON(http.StatusOK, gin.H{"tools": tools})
}

func (s *Server) mcpStatus(c *gin.Context) {
	sessions := s.pool.Sessions()
	c.JSON(http.StatusOK, gin.H{
		"activeSessions": len(sessions),
		"maxSessions":    s.pool.MaxSessions(),
	})
}

// mcpServers lists the pooled sessions.
func (s *Server) mcpServers(c *gin.Context) {
	type sessionInfo struct {
		ServerID  string `json:"serverId"`
		SessionID string `json:"sessionId"`
		Transport string `json:"transport"`
		Tools     int    `json:"tools"`
		AgeMs     int64  `json:"ageMs"`
	}

	sessions := s.pool.Sessions()
	out := make([]sessionInfo, 0, len(sessions))
	for _, session := range sessions {
		out = append(out, sessionInfo{
			ServerID:  session.ServerID,
			SessionID: session.ID,
			Transport: session.TransportType,
			Tools:     len(session.Tools),
			AgeMs:     session.Age().Milliseconds(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"servers": out, "count": len(out)})
}

// mcpPluginTools lists one server's tools, spawning it on first touch.
func (s *Server) mcpPluginTools(c *gin.Context) {
	tools, sessionID, err := s.pool.GetServerTools(c.Request.Context(), c.Param("pluginId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"plugin":    c.Param("pluginId"),
		"sessionId": sessionID,
		"tools":     tools,
	})
}

// mcpPluginTool returns one tool's schema.
func (s *Server) mcpPluginTool(c *gin.Context) {
	tools, _, err := s.pool.GetServerTools(c.Request.Context(), c.Param("pluginId"))
	if err != nil {
		respondError(c, err)
		return
	}
	name := c.Param("toolName")
	for _, tool := range tools {
		if tool.Name == name {
			c.JSON(http.StatusOK, tool)
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "tool_not_found", "tool": name})
}

// mcpExecute runs one tool on a pooled session behind the payment gate.
func (s *Server) mcpExecute(c *gin.Context) {
	s.executeServerTool(c, c.Param("pluginId"))
}

// mcpServerCall is the slug-addressed execute alias; the x-payment header
// passes through the same gate.
func (s *Server) mcpServerCall(c *gin.Context) {
	s.executeServerTool(c, c.Param("slug"))
}

func (s *Server) executeServerTool(c *gin.Context, serverID string) {
	var body callRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}
	if body.ToolName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "toolName is required"})
		return
	}

	ctx := c.Request.Context()
	price := payment.BasePrice(payment.TaskToolTransaction)
	vc, halt := s.gate.VerifyAndReserve(ctx, c.GetHeader(payment.HeaderPayment), s.resourceURL(c), c.Request.Method, price)
	if halt != nil {
		writeGateResult(c, halt)
		return
	}

	started := time.Now()
	result, err := s.pool.ExecuteServerTool(ctx, serverID, body.ToolName, body.Args)
	if err != nil {
		respondError(c, err)
		return
	}

	settlement := s.gate.Settle(context.WithoutCancel(ctx), vc, price)
	if settlement != nil {
		if encoded, encErr := payment.EncodeSettlement(*settlement); encErr == nil {
			c.Header(payment.HeaderPaymentResponse, encoded)
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"server":     serverID,
		"tool":       body.ToolName,
		"result":     result,
		"durationMs": time.Since(started).Milliseconds(),
	})
}
