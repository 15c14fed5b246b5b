package payment

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	gateway "github.com/mark3labs/x402-gateway"
)

// HeaderPayment is the request header carrying the signed payment payload.
const HeaderPayment = "x-payment"

// HeaderPaymentResponse is the response header carrying the settlement receipt.
const HeaderPaymentResponse = "x-payment-response"

// HeaderCost is the response header reporting the settled cost in USDC.
const HeaderCost = "X-Cost-USDC"

// ParsePaymentHeader decodes a base64(JSON) x-payment header value and
// validates the protocol version.
//
// Returns gateway.ErrMalformedHeader for missing/undecodable values and
// gateway.ErrUnsupportedVersion when X402Version != 1.
func ParsePaymentHeader(value string) (gateway.PaymentPayload, error) {
	var payment gateway.PaymentPayload

	if value == "" {
		return payment, gateway.ErrMalformedHeader
	}

	decoded, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return payment, fmt.Errorf("%w: %v", gateway.ErrMalformedHeader, err)
	}
	if err := json.Unmarshal(decoded, &payment); err != nil {
		return payment, fmt.Errorf("%w: %v", gateway.ErrMalformedHeader, err)
	}

	if payment.X402Version != 1 {
		return payment, gateway.ErrUnsupportedVersion
	}

	return payment, nil
}

// EncodePayment converts a PaymentPayload to a base64-encoded JSON string
// suitable for the x-payment header. Used by tests and the MCP proxy.
func EncodePayment(payment gateway.PaymentPayload) (string, error) {
	paymentJSON, err := json.Marshal(payment)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payment: %w", err)
	}
	return base64.StdEncoding.EncodeToString(paymentJSON), nil
}

// EncodeSettlement converts a SettlementResponse to a base64-encoded JSON
// string for the x-payment-response header.
func EncodeSettlement(settlement gateway.SettlementResponse) (string, error) {
	settlementJSON, err := json.Marshal(settlement)
	if err != nil {
		return "", fmt.Errorf("failed to marshal settlement: %w", err)
	}
	return base64.StdEncoding.EncodeToString(settlementJSON), nil
}

// DecodeSettlement converts a base64-encoded JSON string back to a
// SettlementResponse.
func DecodeSettlement(encoded string) (gateway.SettlementResponse, error) {
	var settlement gateway.SettlementResponse

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return settlement, fmt.Errorf("failed to decode base64: %w", err)
	}
	if err := json.Unmarshal(decoded, &settlement); err != nil {
		return settlement, fmt.Errorf("failed to unmarshal settlement: %w", err)
	}

	return settlement, nil
}
