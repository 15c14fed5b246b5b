package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mark3labs/x402-gateway/payment"
)

// callRequest is the body for connector and MCP tool invocations.
type callRequest struct {
	ToolName string                 `json:"toolName"`
	Args     map[string]interface{} `json:"args"`
}

func (s *Server) listConnectors(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"connectors": s.connectors.List()})
}

func (s *Server) getConnector(c *gin.Context) {
	listing, err := s.connectors.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

func (s *Server) connectorTools(c *gin.Context) {
	tools, err := s.connectors.Tools(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"connector": c.Param("id"), "tools": tools})
}

// callConnector invokes one connector tool behind the payment gate.
// Availability is checked before the gate: a misconfigured connector answers
// 503 without demanding payment first.
func (s *Server) callConnector(c *gin.Context) {
	var body callRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}
	if body.ToolName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "toolName is required"})
		return
	}

	id := c.Param("id")
	listing, err := s.connectors.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}
	if !listing.IsAvailable {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":      "connector_unavailable",
			"connector":  id,
			"missingEnv": listing.Missing,
		})
		return
	}

	ctx := c.Request.Context()
	price := payment.BasePrice(payment.TaskToolTransaction)
	vc, halt := s.gate.VerifyAndReserve(ctx, c.GetHeader(payment.HeaderPayment), s.resourceURL(c), c.Request.Method, price)
	if halt != nil {
		writeGateResult(c, halt)
		return
	}

	result, err := s.connectors.Call(ctx, id, body.ToolName, body.Args)
	if err != nil {
		// No settlement: the work never happened.
		respondError(c, err)
		return
	}

	settlement := s.gate.Settle(context.WithoutCancel(ctx), vc, price)
	if settlement != nil {
		if encoded, encErr := payment.EncodeSettlement(*settlement); encErr == nil {
			c.Header(payment.HeaderPaymentResponse, encoded)
		}
	}
	c.JSON(http.StatusOK, result)
}
