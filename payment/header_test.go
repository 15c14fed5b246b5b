package payment

import (
	"encoding/base64"
	"errors"
	"testing"

	gateway "github.com/mark3labs/x402-gateway"
)

func TestParsePaymentHeader(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		original := gateway.PaymentPayload{
			X402Version: 1,
			Scheme:      "upto",
			Network:     "base-sepolia",
			Payload:     map[string]interface{}{"signature": "0xsig"},
		}
		encoded, err := EncodePayment(original)
		if err != nil {
			t.Fatalf("EncodePayment() error = %v", err)
		}

		parsed, err := ParsePaymentHeader(encoded)
		if err != nil {
			t.Fatalf("ParsePaymentHeader() error = %v", err)
		}
		if parsed.Scheme != "upto" || parsed.Network != "base-sepolia" {
			t.Errorf("parsed = %+v, want scheme/network round-tripped", parsed)
		}
	})

	t.Run("empty", func(t *testing.T) {
		_, err := ParsePaymentHeader("")
		if !errors.Is(err, gateway.ErrMalformedHeader) {
			t.Errorf("error = %v, want ErrMalformedHeader", err)
		}
	})

	t.Run("not base64", func(t *testing.T) {
		_, err := ParsePaymentHeader("%%%not-base64%%%")
		if !errors.Is(err, gateway.ErrMalformedHeader) {
			t.Errorf("error = %v, want ErrMalformedHeader", err)
		}
	})

	t.Run("not json", func(t *testing.T) {
		_, err := ParsePaymentHeader(base64.StdEncoding.EncodeToString([]byte("hello")))
		if !errors.Is(err, gateway.ErrMalformedHeader) {
			t.Errorf("error = %v, want ErrMalformedHeader", err)
		}
	})

	t.Run("wrong version", func(t *testing.T) {
		encoded, _ := EncodePayment(gateway.PaymentPayload{X402Version: 2, Scheme: "upto", Network: "base"})
		_, err := ParsePaymentHeader(encoded)
		if !errors.Is(err, gateway.ErrUnsupportedVersion) {
			t.Errorf("error = %v, want ErrUnsupportedVersion", err)
		}
	})
}

func TestSettlementRoundTrip(t *testing.T) {
	original := gateway.SettlementResponse{
		Success:     true,
		Transaction: "0xdeadbeef",
		Network:     "base",
		Payer:       "0xpayer",
	}

	encoded, err := EncodeSettlement(original)
	if err != nil {
		t.Fatalf("EncodeSettlement() error = %v", err)
	}
	decoded, err := DecodeSettlement(encoded)
	if err != nil {
		t.Fatalf("DecodeSettlement() error = %v", err)
	}
	if decoded != original {
		t.Errorf("round trip = %+v, want %+v", decoded, original)
	}
}
