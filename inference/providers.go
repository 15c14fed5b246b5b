package inference

import (
	"fmt"

	gateway "github.com/mark3labs/x402-gateway"
	"github.com/mark3labs/x402-gateway/registry"
)

// endpoint is where a source's chat completions live and how to authenticate.
type endpoint struct {
	BaseURL string
	headers func(key string) map[string]string

	// anthropicNative marks sources that speak the Anthropic messages API
	// instead of OpenAI-style chat completions.
	anthropicNative bool
}

func bearer(key string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + key}
}

// chatEndpoints maps a model source to its streaming chat endpoint. Every
// source except Anthropic speaks the OpenAI chat-completions wire shape;
// Google through its OpenAI-compatibility surface, HuggingFace through the
// router.
var chatEndpoints = map[string]endpoint{
	registry.SourceOpenAI:      {BaseURL: "https://api.openai.com/v1", headers: bearer},
	registry.SourceASIOne:      {BaseURL: "https://api.asi1.ai/v1", headers: bearer},
	registry.SourceASICloud:    {BaseURL: "https://api.asi.cloud/v1", headers: bearer},
	registry.SourceOpenRouter:  {BaseURL: "https://openrouter.ai/api/v1", headers: bearer},
	registry.SourceAIML:        {BaseURL: "https://api.aimlapi.com/v1", headers: bearer},
	registry.SourceHuggingFace: {BaseURL: "https://router.huggingface.co/v1", headers: bearer},
	registry.SourceGoogle: {
		BaseURL: "https://generativelanguage.googleapis.com/v1beta/openai",
		headers: bearer,
	},
	registry.SourceAnthropic: {
		BaseURL: "https://api.anthropic.com/v1",
		headers: func(key string) map[string]string {
			return map[string]string{
				"x-api-key":         key,
				"anthropic-version": "2023-06-01",
			}
		},
		anthropicNative: true,
	},
}

// chatEndpoint resolves the endpoint for a model source, requiring a
// configured credential.
func (rt *Router) chatEndpoint(source string) (endpoint, string, error) {
	ep, ok := chatEndpoints[source]
	if !ok {
		return endpoint{}, "", fmt.Errorf("%w: no chat endpoint for source %s", gateway.ErrSourceUnavailable, source)
	}
	key := rt.cfg.ProviderKey(source)
	if key == "" {
		return endpoint{}, "", fmt.Errorf("%w: no credential for source %s", gateway.ErrSourceUnavailable, source)
	}
	if override, ok := rt.endpointOverrides[source]; ok {
		ep.BaseURL = override
	}
	return ep, key, nil
}
