package registry

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// GoogleFetcher pages through the Generative Language API model list.
type GoogleFetcher struct {
	BaseURL string
	apiKey  string
	client  *http.Client
}

func NewGoogleFetcher(apiKey string) *GoogleFetcher {
	return &GoogleFetcher{
		BaseURL: "https://generativelanguage.googleapis.com/v1beta",
		apiKey:  apiKey,
		client:  &http.Client{},
	}
}

func (f *GoogleFetcher) Source() string { return SourceGoogle }

func (f *GoogleFetcher) Fetch(ctx context.Context) ([]ModelInfo, error) {
	var models []ModelInfo
	pageToken := ""

	for {
		var page struct {
			Models []struct {
				Name                       string   `json:"name"` // "models/gemini-2.0-flash"
				DisplayName                string   `json:"displayName"`
				InputTokenLimit            int      `json:"inputTokenLimit"`
				SupportedGenerationMethods []string `json:"supportedGenerationMethods"`
			} `json:"models"`
			NextPageToken string `json:"nextPageToken"`
		}

		u := f.BaseURL + "/models?pageSize=200&key=" + url.QueryEscape(f.apiKey)
		if pageToken != "" {
			u += "&pageToken=" + url.QueryEscape(pageToken)
		}
		if err := getJSON(ctx, f.client, u, nil, &page); err != nil {
			return nil, err
		}

		for _, m := range page.Models {
			id := strings.TrimPrefix(m.Name, "models/")
			models = append(models, ModelInfo{
				ID:            id,
				Name:          m.DisplayName,
				OwnedBy:       "google",
				Source:        SourceGoogle,
				Task:          ClassifyGoogleModel(id, m.SupportedGenerationMethods),
				ContextLength: m.InputTokenLimit,
			})
		}

		pageToken = page.NextPageToken
		if pageToken == "" {
			return models, nil
		}
	}
}
