package gateway

import "errors"

// Standard gateway error definitions

var (
	// ErrPaymentRequired indicates that payment is required to access the resource.
	ErrPaymentRequired = errors.New("payment required")

	// ErrMalformedHeader indicates that the x-payment header is malformed.
	ErrMalformedHeader = errors.New("malformed payment header")

	// ErrUnsupportedVersion indicates an unsupported x402 protocol version.
	ErrUnsupportedVersion = errors.New("unsupported x402 version")

	// ErrFacilitatorUnavailable indicates the facilitator service is unavailable.
	ErrFacilitatorUnavailable = errors.New("facilitator unavailable")

	// ErrVerificationFailed indicates payment verification failed.
	ErrVerificationFailed = errors.New("verification failed")

	// ErrSettlementFailed indicates on-chain settlement failed.
	ErrSettlementFailed = errors.New("settlement failed")

	// ErrModelNotFound indicates the requested model is not in the registry.
	ErrModelNotFound = errors.New("model not found")

	// ErrSourceUnavailable indicates a model source has no credential configured.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrConnectorUnavailable indicates a connector is missing required environment.
	ErrConnectorUnavailable = errors.New("connector unavailable")

	// ErrToolNotFound indicates the named tool is not advertised by the target.
	ErrToolNotFound = errors.New("tool not found")

	// ErrInvalidInput indicates the request body fails shape validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrSessionLimit indicates the MCP session pool is at capacity.
	ErrSessionLimit = errors.New("session limit reached")

	// ErrUpstreamError indicates a backend provider returned a non-2xx response.
	ErrUpstreamError = errors.New("upstream error")

	// ErrProviderLoading indicates the provider is cold-loading the model and
	// the caller should retry shortly rather than rotate providers.
	ErrProviderLoading = errors.New("provider loading")

	// ErrTimeout indicates the operation timed out.
	ErrTimeout = errors.New("operation timed out")
)
