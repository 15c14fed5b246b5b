package registry

import (
	"math/big"
	"testing"

	gateway "github.com/mark3labs/x402-gateway"
)

func TestCuratedRatesDateSuffixFallback(t *testing.T) {
	exact, ok := CuratedRates(SourceOpenAI, "gpt-4o")
	if !ok || exact.Input != 2.50 {
		t.Fatalf("CuratedRates(gpt-4o) = %+v, %v", exact, ok)
	}

	dated, ok := CuratedRates(SourceAnthropic, "claude-sonnet-4-0-20250514")
	if !ok {
		t.Fatal("expected date-suffix fallback to claude-sonnet-4-0")
	}
	if dated.Input != 3.00 || dated.Output != 15.00 {
		t.Errorf("rates = %+v, want sonnet rates", dated)
	}

	if _, ok := CuratedRates(SourceOpenAI, "completely-unknown"); ok {
		t.Error("expected no rates for unknown model")
	}
}

func TestOverlayPricingWinsOverFetched(t *testing.T) {
	models := []ModelInfo{
		{ID: "gpt-4o", Source: SourceOpenAI, Pricing: &ModelPricing{Provider: "stale", Input: 99, Output: 99}},
		{ID: "unlisted", Source: SourceOpenAI, Pricing: &ModelPricing{Provider: "fetched", Input: 1, Output: 2}},
	}
	overlayPricing(models)

	if models[0].Pricing.Input != 2.50 || models[0].Pricing.Provider != SourceOpenAI {
		t.Errorf("gpt-4o pricing = %+v, want curated override", models[0].Pricing)
	}
	// Models outside the curated table keep fetched pricing.
	if models[1].Pricing.Provider != "fetched" {
		t.Errorf("unlisted pricing = %+v, want fetched pricing kept", models[1].Pricing)
	}
}

func TestCostForModel(t *testing.T) {
	model := &ModelInfo{
		ID:      "gpt-4o",
		Source:  SourceOpenAI,
		Pricing: &ModelPricing{Provider: SourceOpenAI, Input: 2.50, Output: 10.00},
	}
	usage := gateway.TokenUsage{InputTokens: 1_000_000, OutputTokens: 0, TotalTokens: 1_000_000}

	cost := CostForModel(model, usage)
	// $2.50 provider + $0.10 platform = $2.60 -> 2_600_000 wei
	if cost.TotalWei.Cmp(big.NewInt(2_600_000)) != 0 {
		t.Errorf("TotalWei = %s, want 2600000", cost.TotalWei)
	}

	// No pricing: platform fee only.
	bare := CostForModel(&ModelInfo{ID: "x"}, usage)
	if bare.ProviderCost != 0 {
		t.Errorf("ProviderCost = %v, want 0", bare.ProviderCost)
	}
	if bare.TotalWei.Cmp(big.NewInt(100_000)) != 0 {
		t.Errorf("TotalWei = %s, want 100000 (platform fee only)", bare.TotalWei)
	}
}
