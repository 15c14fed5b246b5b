package registry

import (
	"context"
	"net/http"
	"strings"
)

// openAICompatible fetches an OpenAI-shaped GET /models catalog. OpenAI
// itself, ASI-One, ASI-Cloud, and AIML all speak this shape.
type openAICompatible struct {
	source  string
	BaseURL string
	apiKey  string
	client  *http.Client

	// keep filters ids; nil keeps everything.
	keep func(id string) bool
}

type openAIModelList struct {
	Data []struct {
		ID      string `json:"id"`
		OwnedBy string `json:"owned_by"`
	} `json:"data"`
}

func (f *openAICompatible) Source() string { return f.source }

func (f *openAICompatible) Fetch(ctx context.Context) ([]ModelInfo, error) {
	var list openAIModelList
	if err := getJSON(ctx, f.client, f.BaseURL+"/models", bearerHeader(f.apiKey), &list); err != nil {
		return nil, err
	}

	models := make([]ModelInfo, 0, len(list.Data))
	for _, m := range list.Data {
		if f.keep != nil && !f.keep(m.ID) {
			continue
		}
		models = append(models, ModelInfo{
			ID:      m.ID,
			Name:    m.ID,
			OwnedBy: m.OwnedBy,
			Source:  f.source,
			Task:    ClassifyModelID(m.ID),
		})
	}
	return models, nil
}

// NewOpenAIFetcher lists OpenAI's catalog, keeping inference-capable entries
// and dropping fine-tune checkpoints, moderation, and legacy bases.
func NewOpenAIFetcher(apiKey string) *openAICompatible {
	return &openAICompatible{
		source:  SourceOpenAI,
		BaseURL: "https://api.openai.com/v1",
		apiKey:  apiKey,
		client:  &http.Client{},
		keep: func(id string) bool {
			if strings.Contains(id, "ft:") || strings.Contains(id, "moderation") {
				return false
			}
			for _, prefix := range []string{"gpt-", "o1", "o3", "o4", "chatgpt-", "dall-e", "whisper", "tts-", "text-embedding"} {
				if strings.HasPrefix(id, prefix) {
					return true
				}
			}
			return false
		},
	}
}

// NewASIOneFetcher lists the ASI-One catalog.
func NewASIOneFetcher(apiKey string) *openAICompatible {
	return &openAICompatible{
		source:  SourceASIOne,
		BaseURL: "https://api.asi1.ai/v1",
		apiKey:  apiKey,
		client:  &http.Client{},
	}
}

// NewASICloudFetcher lists the ASI-Cloud catalog.
func NewASICloudFetcher(apiKey string) *openAICompatible {
	return &openAICompatible{
		source:  SourceASICloud,
		BaseURL: "https://api.asi.cloud/v1",
		apiKey:  apiKey,
		client:  &http.Client{},
	}
}

// NewAIMLFetcher lists the AIML aggregator catalog.
func NewAIMLFetcher(apiKey string) *openAICompatible {
	return &openAICompatible{
		source:  SourceAIML,
		BaseURL: "https://api.aimlapi.com/v1",
		apiKey:  apiKey,
		client:  &http.Client{},
	}
}
