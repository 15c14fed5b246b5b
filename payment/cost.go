package payment

import (
	"math"
	"math/big"

	gateway "github.com/mark3labs/x402-gateway"
)

// PlatformFeePerMillionUSD is the fixed surcharge per million total tokens,
// charged on top of the provider's metered cost.
const PlatformFeePerMillionUSD = 0.10

// MaxTokensPerCall caps the token count a single call is authorized and
// settled for. Overflow beyond the cap settles at the cap, never above.
const MaxTokensPerCall = 1_000_000

// InferenceCost is the metered cost of one inference call.
type InferenceCost struct {
	// ProviderCost is the provider's token-metered cost in USD.
	ProviderCost float64 `json:"providerCost"`

	// PlatformFee is the gateway surcharge in USD.
	PlatformFee float64 `json:"platformFee"`

	// Total is ProviderCost + PlatformFee in USD.
	Total float64 `json:"total"`

	// TotalWei is Total converted to 6-decimal stablecoin atomic units.
	TotalWei *big.Int `json:"totalWei"`

	// Provider is the pricing provider the rates came from, when known.
	Provider string `json:"provider,omitempty"`
}

// CostFromRates computes the metered cost for usage at the given per-million
// USD rates. A model with no pricing passes zero rates and is billed only the
// platform fee. Token counts beyond MaxTokensPerCall are clamped first.
func CostFromRates(inputPerMillion, outputPerMillion float64, provider string, usage gateway.TokenUsage) InferenceCost {
	in, out := clampTokens(usage.InputTokens, usage.OutputTokens)

	providerCost := float64(in)/1e6*inputPerMillion + float64(out)/1e6*outputPerMillion

	// The fee bills the reported total, which exceeds input+output when the
	// provider counts reasoning tokens separately.
	feeTokens := usage.TotalTokens
	if feeTokens < in+out {
		feeTokens = in + out
	}
	if feeTokens > MaxTokensPerCall {
		feeTokens = MaxTokensPerCall
	}
	platformFee := float64(feeTokens) / 1e6 * PlatformFeePerMillionUSD
	total := providerCost + platformFee

	return InferenceCost{
		ProviderCost: providerCost,
		PlatformFee:  platformFee,
		Total:        total,
		TotalWei:     usdToWei(total),
		Provider:     provider,
	}
}

// clampTokens enforces MaxTokensPerCall, trimming output tokens first since
// input was already consumed before the cap could bite.
func clampTokens(in, out int) (int, int) {
	if in+out <= MaxTokensPerCall {
		return in, out
	}
	if in >= MaxTokensPerCall {
		return MaxTokensPerCall, 0
	}
	return in, MaxTokensPerCall - in
}

// usdToWei converts a USD amount to 6-decimal stablecoin atomic units,
// rounding to the nearest wei.
func usdToWei(usd float64) *big.Int {
	return big.NewInt(int64(math.Round(usd * 1e6)))
}
