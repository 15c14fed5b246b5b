package registry

import (
	"context"
	"net/http"
)

const anthropicAPIVersion = "2023-06-01"

// AnthropicFetcher lists Anthropic's model catalog. Every entry is a chat
// model.
type AnthropicFetcher struct {
	BaseURL string
	apiKey  string
	client  *http.Client
}

func NewAnthropicFetcher(apiKey string) *AnthropicFetcher {
	return &AnthropicFetcher{
		BaseURL: "https://api.anthropic.com/v1",
		apiKey:  apiKey,
		client:  &http.Client{},
	}
}

func (f *AnthropicFetcher) Source() string { return SourceAnthropic }

func (f *AnthropicFetcher) Fetch(ctx context.Context) ([]ModelInfo, error) {
	var list struct {
		Data []struct {
			ID          string `json:"id"`
			DisplayName string `json:"display_name"`
		} `json:"data"`
	}
	headers := map[string]string{
		"x-api-key":         f.apiKey,
		"anthropic-version": anthropicAPIVersion,
	}
	if err := getJSON(ctx, f.client, f.BaseURL+"/models", headers, &list); err != nil {
		return nil, err
	}

	models := make([]ModelInfo, 0, len(list.Data))
	for _, m := range list.Data {
		models = append(models, ModelInfo{
			ID:      m.ID,
			Name:    m.DisplayName,
			OwnedBy: "anthropic",
			Source:  SourceAnthropic,
			Task:    TaskTextGeneration,
		})
	}
	return models, nil
}
