// Package payment implements the x402 payment gate that brackets every
// billable call: a facilitator client for verify/settle, the task price
// tables, metered cost computation, and the two-phase Gate used by handlers.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	gateway "github.com/mark3labs/x402-gateway"
)

// AuthorizationProvider returns an Authorization header value for the
// facilitator. Useful for short-lived tokens that must be refreshed per call.
type AuthorizationProvider func(method, path string) (string, error)

// FacilitatorClient is a client for communicating with x402 facilitator services.
type FacilitatorClient struct {
	BaseURL       string
	Client        *http.Client
	VerifyTimeout time.Duration // Timeout for verify operations
	SettleTimeout time.Duration // Timeout for settle operations (longer due to blockchain tx)

	// Authorization is a static Authorization header value.
	Authorization string

	// AuthorizationProvider takes precedence over Authorization when set.
	AuthorizationProvider AuthorizationProvider
}

// NewFacilitatorClient creates a facilitator client with the default timeouts:
// 5 s verify (quick signature check), 60 s settle (blockchain tx execution).
func NewFacilitatorClient(baseURL string) *FacilitatorClient {
	return &FacilitatorClient{
		BaseURL:       baseURL,
		Client:        &http.Client{},
		VerifyTimeout: 5 * time.Second,
		SettleTimeout: 60 * time.Second,
	}
}

// FacilitatorRequest is the request payload sent to the facilitator.
type FacilitatorRequest struct {
	X402Version         int                        `json:"x402Version"`
	PaymentPayload      gateway.PaymentPayload     `json:"paymentPayload"`
	PaymentRequirements gateway.PaymentRequirement `json:"paymentRequirements"`
}

// VerifyResponse is the response from the facilitator /verify endpoint.
type VerifyResponse struct {
	IsValid       bool   `json:"isValid"`
	InvalidReason string `json:"invalidReason,omitempty"`
	Payer         string `json:"payer"`
}

// SupportedKind represents a supported payment type.
type SupportedKind struct {
	X402Version int            `json:"x402Version"`
	Scheme      string         `json:"scheme"`
	Network     string         `json:"network"`
	Extra       map[string]any `json:"extra,omitempty"`
}

// SupportedResponse is the response from the facilitator /supported endpoint.
type SupportedResponse struct {
	Kinds []SupportedKind `json:"kinds"`
}

// Verify verifies a payment authorization without executing the transaction.
func (c *FacilitatorClient) Verify(ctx context.Context, payment gateway.PaymentPayload, requirement gateway.PaymentRequirement) (*VerifyResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.VerifyTimeout)
	defer cancel()

	var verifyResp VerifyResponse
	if err := c.post(ctx, "/verify", payment, requirement, &verifyResp); err != nil {
		return nil, err
	}
	return &verifyResp, nil
}

// Settle executes a verified payment on the blockchain. The requirement's
// MaxAmount carries the exact amount to transfer; under the upto scheme the
// facilitator transfers it as long as the signed authorization covers it.
func (c *FacilitatorClient) Settle(ctx context.Context, payment gateway.PaymentPayload, requirement gateway.PaymentRequirement) (*gateway.SettlementResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.SettleTimeout)
	defer cancel()

	var settlementResp gateway.SettlementResponse
	if err := c.post(ctx, "/settle", payment, requirement, &settlementResp); err != nil {
		return nil, err
	}
	return &settlementResp, nil
}

// Supported queries the facilitator for supported payment types.
func (c *FacilitatorClient) Supported(ctx context.Context) (*SupportedResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.VerifyTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/supported", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if err := c.authorize(httpReq, "/supported"); err != nil {
		return nil, err
	}

	resp, err := c.Client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", gateway.ErrFacilitatorUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("supported endpoint failed: status %d", resp.StatusCode)
	}

	var supportedResp SupportedResponse
	if err := json.NewDecoder(resp.Body).Decode(&supportedResp); err != nil {
		return nil, fmt.Errorf("failed to decode supported response: %w", err)
	}

	return &supportedResp, nil
}

// EnrichRequirements fetches supported payment types from the facilitator and
// enriches the provided payment requirements with network-specific data like
// feePayer. User-specified Extra values take precedence.
func (c *FacilitatorClient) EnrichRequirements(ctx context.Context, requirements []gateway.PaymentRequirement) ([]gateway.PaymentRequirement, error) {
	supported, err := c.Supported(ctx)
	if err != nil {
		return requirements, fmt.Errorf("failed to fetch supported payment types: %w", err)
	}

	supportedMap := make(map[string]SupportedKind)
	for _, kind := range supported.Kinds {
		supportedMap[kind.Network+"-"+kind.Scheme] = kind
	}

	enriched := make([]gateway.PaymentRequirement, len(requirements))
	for i, req := range requirements {
		enriched[i] = req
		kind, ok := supportedMap[req.Network+"-"+req.Scheme]
		if !ok || kind.Extra == nil {
			continue
		}
		if enriched[i].Extra == nil {
			enriched[i].Extra = make(map[string]any)
		}
		for k, v := range kind.Extra {
			if _, exists := enriched[i].Extra[k]; !exists {
				enriched[i].Extra[k] = v
			}
		}
	}

	return enriched, nil
}

func (c *FacilitatorClient) post(ctx context.Context, path string, payment gateway.PaymentPayload, requirement gateway.PaymentRequirement, out interface{}) error {
	req := FacilitatorRequest{
		X402Version:         1,
		PaymentPayload:      payment,
		PaymentRequirements: requirement,
	}

	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if err := c.authorize(httpReq, path); err != nil {
		return err
	}

	resp, err := c.Client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", gateway.ErrFacilitatorUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if path == "/settle" {
			return fmt.Errorf("%w: status %d", gateway.ErrSettlementFailed, resp.StatusCode)
		}
		return fmt.Errorf("%w: status %d", gateway.ErrVerificationFailed, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}

	return nil
}

func (c *FacilitatorClient) authorize(req *http.Request, path string) error {
	if c.AuthorizationProvider != nil {
		auth, err := c.AuthorizationProvider(req.Method, path)
		if err != nil {
			return fmt.Errorf("authorization provider: %w", err)
		}
		req.Header.Set("Authorization", auth)
		return nil
	}
	if c.Authorization != "" {
		req.Header.Set("Authorization", c.Authorization)
	}
	return nil
}
