package gateway

import (
	"fmt"
	"os"
	"strconv"
)

// Environment variable names. These are deliberately stable: they are
// contracts with the facilitator and with each upstream provider.
const (
	EnvPort                   = "PORT"
	EnvUseMainnet             = "USE_MAINNET"
	EnvFacilitatorURL         = "FACILITATOR_URL"
	EnvFallbackFacilitatorURL = "FALLBACK_FACILITATOR_URL"
	EnvFacilitatorKeyName     = "FACILITATOR_API_KEY_NAME"
	EnvFacilitatorKeySecret   = "FACILITATOR_API_KEY_SECRET"
	EnvPayToAddress           = "PAY_TO_ADDRESS"
	EnvConnectorServiceURL    = "CONNECTOR_SERVICE_URL"

	EnvOpenAIKey      = "OPENAI_API_KEY"
	EnvAnthropicKey   = "ANTHROPIC_API_KEY"
	EnvGeminiKey      = "GEMINI_API_KEY"
	EnvASIOneKey      = "ASI_ONE_API_KEY"
	EnvASICloudKey    = "ASI_CLOUD_API_KEY"
	EnvOpenRouterKey  = "OPENROUTER_API_KEY"
	EnvAIMLKey        = "AIML_API_KEY"
	EnvHuggingFaceKey = "HF_TOKEN"
)

// DefaultFacilitatorURL is used when FACILITATOR_URL is unset.
const DefaultFacilitatorURL = "https://facilitator.x402.rs"

// Config is the process-wide configuration, read once from the environment.
type Config struct {
	// Port is the HTTP listen port.
	Port string

	// Chain is the settlement chain selected by USE_MAINNET.
	Chain ChainConfig

	// FacilitatorURL is the primary facilitator endpoint.
	FacilitatorURL string

	// FallbackFacilitatorURL is the optional backup facilitator.
	FallbackFacilitatorURL string

	// FacilitatorKeyName and FacilitatorKeySecret authenticate the gateway to
	// the facilitator (JWT bearer; the secret is a PEM-encoded private key).
	// Both optional: public facilitators accept unauthenticated calls.
	FacilitatorKeyName   string
	FacilitatorKeySecret string

	// PayTo is the recipient address for settled payments.
	PayTo string

	// ConnectorServiceURL is where the MCP runtime fetches spawn configs.
	ConnectorServiceURL string

	// ProviderKeys maps a model source name to its API credential.
	ProviderKeys map[string]string
}

// LoadConfig reads configuration from the process environment and validates
// the payment recipient against the selected chain.
func LoadConfig() (*Config, error) {
	useMainnet, _ := strconv.ParseBool(os.Getenv(EnvUseMainnet))

	cfg := &Config{
		Port:                   envOr(EnvPort, "8080"),
		Chain:                  SettlementChain(useMainnet),
		FacilitatorURL:         envOr(EnvFacilitatorURL, DefaultFacilitatorURL),
		FallbackFacilitatorURL: os.Getenv(EnvFallbackFacilitatorURL),
		FacilitatorKeyName:     os.Getenv(EnvFacilitatorKeyName),
		FacilitatorKeySecret:   os.Getenv(EnvFacilitatorKeySecret),
		PayTo:                  os.Getenv(EnvPayToAddress),
		ConnectorServiceURL:    os.Getenv(EnvConnectorServiceURL),
		ProviderKeys: map[string]string{
			"openai":      os.Getenv(EnvOpenAIKey),
			"anthropic":   os.Getenv(EnvAnthropicKey),
			"google":      os.Getenv(EnvGeminiKey),
			"asi-one":     os.Getenv(EnvASIOneKey),
			"asi-cloud":   os.Getenv(EnvASICloudKey),
			"openrouter":  os.Getenv(EnvOpenRouterKey),
			"aiml":        os.Getenv(EnvAIMLKey),
			"huggingface": os.Getenv(EnvHuggingFaceKey),
		},
	}

	if cfg.PayTo == "" {
		return nil, fmt.Errorf("%s is required", EnvPayToAddress)
	}
	if err := ValidateTokenAddress(cfg.Chain.NetworkID, cfg.PayTo); err != nil {
		return nil, fmt.Errorf("%s: %w", EnvPayToAddress, err)
	}

	return cfg, nil
}

// ProviderKey returns the credential for a model source, or "" when absent.
func (c *Config) ProviderKey(source string) string {
	return c.ProviderKeys[source]
}

// SourceAvailable reports whether the source's credential is present.
// HuggingFace model listing works without a token, so it is always available.
func (c *Config) SourceAvailable(source string) bool {
	if source == "huggingface" {
		return true
	}
	return c.ProviderKeys[source] != ""
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
