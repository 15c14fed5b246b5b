package registry

import (
	"context"
	"net/http"
	"strconv"
)

// OpenRouterFetcher lists the OpenRouter aggregator catalog, which carries
// per-token USD pricing and modality metadata inline.
type OpenRouterFetcher struct {
	BaseURL string
	apiKey  string
	client  *http.Client
}

func NewOpenRouterFetcher(apiKey string) *OpenRouterFetcher {
	return &OpenRouterFetcher{
		BaseURL: "https://openrouter.ai/api/v1",
		apiKey:  apiKey,
		client:  &http.Client{},
	}
}

func (f *OpenRouterFetcher) Source() string { return SourceOpenRouter }

func (f *OpenRouterFetcher) Fetch(ctx context.Context) ([]ModelInfo, error) {
	var list struct {
		Data []struct {
			ID            string `json:"id"`
			Name          string `json:"name"`
			ContextLength int    `json:"context_length"`
			Architecture  struct {
				InputModalities  []string `json:"input_modalities"`
				OutputModalities []string `json:"output_modalities"`
			} `json:"architecture"`
			Pricing struct {
				Prompt     string `json:"prompt"` // USD per token, decimal string
				Completion string `json:"completion"`
			} `json:"pricing"`
		} `json:"data"`
	}
	if err := getJSON(ctx, f.client, f.BaseURL+"/models", bearerHeader(f.apiKey), &list); err != nil {
		return nil, err
	}

	models := make([]ModelInfo, 0, len(list.Data))
	for _, m := range list.Data {
		info := ModelInfo{
			ID:            m.ID,
			Name:          m.Name,
			Source:        SourceOpenRouter,
			Task:          ClassifyModelID(m.ID),
			ContextLength: m.ContextLength,
			Architecture: &Architecture{
				InputModalities:  m.Architecture.InputModalities,
				OutputModalities: m.Architecture.OutputModalities,
			},
		}

		// OpenRouter reports USD per token; the catalog stores USD per million.
		in, errIn := strconv.ParseFloat(m.Pricing.Prompt, 64)
		out, errOut := strconv.ParseFloat(m.Pricing.Completion, 64)
		if errIn == nil && errOut == nil && (in > 0 || out > 0) {
			info.Pricing = &ModelPricing{
				Provider: SourceOpenRouter,
				Input:    in * 1e6,
				Output:   out * 1e6,
			}
		}

		models = append(models, info)
	}
	return models, nil
}
