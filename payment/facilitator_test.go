package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	gateway "github.com/mark3labs/x402-gateway"
)

func TestEnrichRequirements(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/supported" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(SupportedResponse{Kinds: []SupportedKind{
			{X402Version: 1, Scheme: "upto", Network: "solana", Extra: map[string]any{"feePayer": "FeE1"}},
			{X402Version: 1, Scheme: "upto", Network: "base"},
		}})
	}))
	defer server.Close()

	client := NewFacilitatorClient(server.URL)
	enriched, err := client.EnrichRequirements(context.Background(), []gateway.PaymentRequirement{
		{Scheme: "upto", Network: "solana"},
		{Scheme: "upto", Network: "base"},
		{Scheme: "upto", Network: "solana", Extra: map[string]any{"feePayer": "mine"}},
	})
	if err != nil {
		t.Fatalf("EnrichRequirements() error = %v", err)
	}

	if enriched[0].Extra["feePayer"] != "FeE1" {
		t.Errorf("Extra[feePayer] = %v, want FeE1", enriched[0].Extra["feePayer"])
	}
	if enriched[1].Extra != nil {
		t.Errorf("base Extra = %v, want nil", enriched[1].Extra)
	}
	// User-specified extras win over facilitator defaults.
	if enriched[2].Extra["feePayer"] != "mine" {
		t.Errorf("Extra[feePayer] = %v, want mine", enriched[2].Extra["feePayer"])
	}
}

func TestFacilitatorAuthorizationProvider(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(VerifyResponse{IsValid: true})
	}))
	defer server.Close()

	client := NewFacilitatorClient(server.URL)
	client.AuthorizationProvider = func(method, path string) (string, error) {
		return "Bearer " + method + "-" + path, nil
	}

	if _, err := client.Verify(context.Background(), gateway.PaymentPayload{X402Version: 1}, gateway.PaymentRequirement{}); err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if gotAuth != "Bearer POST-/verify" {
		t.Errorf("Authorization = %q, want per-call token", gotAuth)
	}
}

func TestSettleErrorMapping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewFacilitatorClient(server.URL)
	_, err := client.Settle(context.Background(), gateway.PaymentPayload{X402Version: 1}, gateway.PaymentRequirement{})
	if !errors.Is(err, gateway.ErrSettlementFailed) {
		t.Errorf("Settle() error = %v, want ErrSettlementFailed", err)
	}

	_, err = client.Verify(context.Background(), gateway.PaymentPayload{X402Version: 1}, gateway.PaymentRequirement{})
	if !errors.Is(err, gateway.ErrVerificationFailed) {
		t.Errorf("Verify() error = %v, want ErrVerificationFailed", err)
	}
}
