package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	gateway "github.com/mark3labs/x402-gateway"
	"github.com/mark3labs/x402-gateway/inference"
	"github.com/mark3labs/x402-gateway/payment"
)

// handleInference brackets one inference call with the x402 protocol:
// verify before any work, route, then settle the metered cost after the last
// byte. Settlement runs detached from the request context so a client
// disconnect cannot cancel it.
func (s *Server) handleInference(c *gin.Context) {
	var req inference.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}
	if id := c.Param("modelId"); id != "" {
		req.ModelID = id
	}
	if req.ModelID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "modelId is required"})
		return
	}

	ctx := c.Request.Context()
	ceiling := s.router.Ceiling(ctx, &req)

	vc, halt := s.gate.VerifyAndReserve(ctx, c.GetHeader(payment.HeaderPayment), s.resourceURL(c), c.Request.Method, ceiling)
	if halt != nil {
		writeGateResult(c, halt)
		return
	}

	finish := func(cost payment.InferenceCost, usage gateway.TokenUsage) {
		settlement := s.gate.Settle(context.WithoutCancel(ctx), vc, cost.TotalWei)
		if settlement == nil || c.Writer.Written() {
			return
		}
		if encoded, err := payment.EncodeSettlement(*settlement); err == nil {
			c.Header(payment.HeaderPaymentResponse, encoded)
		}
	}

	if err := s.router.Handle(ctx, c.Writer, &req, finish); err != nil {
		if c.Writer.Written() {
			s.logger.Warn("inference failed mid-response", "model", req.ModelID, "error", err)
			return
		}
		respondError(c, err)
	}
}

// writeGateResult renders a payment gate stop: a 402 challenge, a 400, or a
// 503.
func writeGateResult(c *gin.Context, r *payment.Result) {
	for k, v := range r.Headers {
		c.Header(k, v)
	}
	c.JSON(r.Status, r.Body)
}
