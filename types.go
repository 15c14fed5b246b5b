// Package gateway holds the shared wire types for the x402 AI gateway: the
// payment challenge and payload shapes exchanged with clients and the
// facilitator, token usage accounting, and the uniform tool-result shape used
// by both MCP-backed and HTTP-backed tools.
package gateway

import "math/big"

// PaymentRequirement is a single payment option advertised in a 402 challenge.
// The gateway uses the "upto" scheme: MaxAmount is the ceiling the client
// authorizes; the server settles the actual metered cost, never more.
type PaymentRequirement struct {
	// Scheme is the payment scheme identifier (the gateway issues "upto").
	Scheme string `json:"scheme"`

	// Network is the blockchain network identifier (e.g., "base", "base-sepolia").
	Network string `json:"network"`

	// MaxAmount is the authorization ceiling in atomic token units (wei).
	MaxAmount string `json:"maxAmount"`

	// Asset is the token contract address (EVM) or mint address (Solana).
	Asset string `json:"asset"`

	// PayTo is the recipient address for the payment.
	PayTo string `json:"payTo"`

	// Resource is the URL of the protected resource.
	Resource string `json:"resource"`

	// Description is an optional human-readable payment description.
	Description string `json:"description,omitempty"`

	// MaxTimeoutSeconds is the validity period for the payment authorization.
	MaxTimeoutSeconds int `json:"maxTimeoutSeconds,omitempty"`

	// Extra contains scheme-specific additional data (e.g., feePayer for SVM).
	Extra map[string]interface{} `json:"extra,omitempty"`
}

// PaymentRequiredResponse is the canonical 402 challenge body.
type PaymentRequiredResponse struct {
	// X402Version is the protocol version (currently 1).
	X402Version int `json:"x402Version"`

	// Error is a stable machine-readable error tag ("payment_required").
	Error string `json:"error"`

	// Accepts lists the payment options the gateway will accept.
	Accepts []PaymentRequirement `json:"accepts"`
}

// PaymentPayload is the signed payment authorization a client sends in the
// x-payment header (base64-encoded JSON). The inner Payload is opaque to the
// gateway and forwarded to the facilitator as-is.
type PaymentPayload struct {
	// X402Version is the protocol version (currently 1).
	X402Version int `json:"x402Version"`

	// Scheme is the payment scheme identifier.
	Scheme string `json:"scheme"`

	// Network is the blockchain network identifier.
	Network string `json:"network"`

	// Payload contains the blockchain-specific signed payment data.
	Payload interface{} `json:"payload"`
}

// SettlementResponse is the facilitator's receipt after settling a payment.
type SettlementResponse struct {
	// Success indicates whether the payment was settled on-chain.
	Success bool `json:"success"`

	// ErrorReason provides details if settlement failed.
	ErrorReason string `json:"errorReason,omitempty"`

	// Transaction is the blockchain transaction hash.
	Transaction string `json:"transaction,omitempty"`

	// Network is the blockchain network where the payment was settled.
	Network string `json:"network"`

	// Payer is the address that made the payment.
	Payer string `json:"payer"`
}

// TokenUsage is the token accounting extracted from a provider response.
type TokenUsage struct {
	InputTokens     int `json:"inputTokens"`
	OutputTokens    int `json:"outputTokens"`
	ReasoningTokens int `json:"reasoningTokens,omitempty"`
	TotalTokens     int `json:"totalTokens"`
}

// Tool describes a callable tool: a name, a human description, and a JSON
// Schema for its arguments. Both MCP-advertised tools and hand-written HTTP
// connector tools are surfaced in this shape.
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// ContentPart is one element of a tool result. Type is "text" or "image";
// image parts carry base64 data and a MIME type.
type ContentPart struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	Data     string `json:"data,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
}

// CallToolResult is the normalized result of any tool invocation. IsError is
// the MCP error flag; callers decide whether that is user-facing or a
// structured result. Raw preserves the unnormalized backend response.
type CallToolResult struct {
	Content []ContentPart `json:"content"`
	Raw     interface{}   `json:"raw,omitempty"`
	IsError bool          `json:"isError"`
}

// TextResult builds a single-part text CallToolResult.
func TextResult(text string) *CallToolResult {
	return &CallToolResult{
		Content: []ContentPart{{Type: "text", Text: text}},
	}
}

// ErrorResult builds an error-flagged CallToolResult with the given message
// and the raw error detail. Callers need not re-parse the backend response.
func ErrorResult(message string, raw interface{}) *CallToolResult {
	return &CallToolResult{
		Content: []ContentPart{{Type: "text", Text: "Error: " + message}},
		Raw:     raw,
		IsError: true,
	}
}

// BigIntToAmount converts a *big.Int in atomic units to a decimal string.
// For example, 1500000 with 6 decimals becomes "1.500000".
func BigIntToAmount(value *big.Int, decimals int) string {
	if value == nil {
		return "0"
	}

	f := new(big.Float).SetInt(value)
	divisor := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	f.Quo(f, divisor)

	return f.Text('f', decimals)
}
