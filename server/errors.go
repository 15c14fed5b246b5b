package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	gateway "github.com/mark3labs/x402-gateway"
)

// statusFor maps gateway sentinel errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, gateway.ErrPaymentRequired):
		return http.StatusPaymentRequired
	case errors.Is(err, gateway.ErrMalformedHeader),
		errors.Is(err, gateway.ErrUnsupportedVersion),
		errors.Is(err, gateway.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, gateway.ErrModelNotFound),
		errors.Is(err, gateway.ErrToolNotFound):
		return http.StatusNotFound
	case errors.Is(err, gateway.ErrFacilitatorUnavailable),
		errors.Is(err, gateway.ErrSourceUnavailable),
		errors.Is(err, gateway.ErrConnectorUnavailable),
		errors.Is(err, gateway.ErrProviderLoading),
		errors.Is(err, gateway.ErrSessionLimit):
		return http.StatusServiceUnavailable
	case errors.Is(err, gateway.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, gateway.ErrUpstreamError):
		// Backend non-2xx reports 500, carrying the provider's message.
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}
