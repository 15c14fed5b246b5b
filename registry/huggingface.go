package registry

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"
)

// hfTasks is the documented task list enumerated from the Hub, in priority
// order.
var hfTasks = []string{
	TaskTextGeneration,
	TaskTextToImage,
	TaskImageToImage,
	TaskTextToSpeech,
	TaskASR,
	TaskTextToVideo,
	TaskTextToAudio,
	TaskFeatureExtraction,
}

const (
	hfBatchSize  = 5
	hfBatchDelay = 100 * time.Millisecond
	hfPageLimit  = 50
)

// HuggingFaceFetcher enumerates Hub models that have at least one inference
// provider, one task at a time in small concurrent batches, then joins the
// router catalog to attach per-provider pricing.
type HuggingFaceFetcher struct {
	// HubURL serves /api/models; RouterURL serves /v1/models.
	HubURL    string
	RouterURL string

	token  string
	client *http.Client
	logger *slog.Logger
}

func NewHuggingFaceFetcher(token string, logger *slog.Logger) *HuggingFaceFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &HuggingFaceFetcher{
		HubURL:    "https://huggingface.co",
		RouterURL: "https://router.huggingface.co",
		token:     token,
		client:    &http.Client{},
		logger:    logger,
	}
}

func (f *HuggingFaceFetcher) Source() string { return SourceHuggingFace }

type hfHubModel struct {
	ID          string `json:"id"`
	PipelineTag string `json:"pipeline_tag"`
}

type hfRouterModel struct {
	ID        string `json:"id"`
	Providers []struct {
		Provider      string `json:"provider"`
		Status        string `json:"status"`
		ContextLength int    `json:"context_length"`
		Pricing       *struct {
			Input  float64 `json:"input"`
			Output float64 `json:"output"`
		} `json:"pricing"`
		SupportsTools            bool `json:"supports_tools"`
		SupportsStructuredOutput bool `json:"supports_structured_output"`
	} `json:"providers"`
}

func (f *HuggingFaceFetcher) Fetch(ctx context.Context) ([]ModelInfo, error) {
	byTask := make(map[string][]hfHubModel, len(hfTasks))
	var mu sync.Mutex

	// Batch-of-5 with an inter-batch delay keeps the Hub from rate-limiting.
	for start := 0; start < len(hfTasks); start += hfBatchSize {
		end := start + hfBatchSize
		if end > len(hfTasks) {
			end = len(hfTasks)
		}

		var wg sync.WaitGroup
		for _, task := range hfTasks[start:end] {
			wg.Add(1)
			go func(task string) {
				defer wg.Done()
				models, err := f.fetchTask(ctx, task)
				if err != nil {
					f.logger.Warn("huggingface task enumeration failed", "task", task, "error", err)
					return
				}
				mu.Lock()
				byTask[task] = models
				mu.Unlock()
			}(task)
		}
		wg.Wait()

		if end < len(hfTasks) {
			select {
			case <-time.After(hfBatchDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	pricing, err := f.fetchRouterPricing(ctx)
	if err != nil {
		// Catalog without pricing is still useful; the overlay may fill gaps.
		f.logger.Warn("huggingface router pricing unavailable", "error", err)
	}

	var models []ModelInfo
	seen := make(map[string]bool)
	for _, task := range hfTasks {
		for _, hub := range byTask[task] {
			if seen[hub.ID] {
				continue
			}
			seen[hub.ID] = true

			info := ModelInfo{
				ID:     hub.ID,
				Name:   hub.ID,
				Source: SourceHuggingFace,
				Task:   task,
			}
			if hub.PipelineTag != "" {
				info.Task = hub.PipelineTag
			}
			if router, ok := pricing[hub.ID]; ok {
				f.attachProviders(&info, router)
			}
			models = append(models, info)
		}
	}
	return models, nil
}

func (f *HuggingFaceFetcher) fetchTask(ctx context.Context, task string) ([]hfHubModel, error) {
	u := f.HubURL + "/api/models?inference_provider=all&pipeline_tag=" + url.QueryEscape(task) +
		"&limit=" + strconv.Itoa(hfPageLimit) + "&sort=trendingScore"

	var models []hfHubModel
	if err := getJSON(ctx, f.client, u, bearerHeader(f.token), &models); err != nil {
		return nil, err
	}
	return models, nil
}

func (f *HuggingFaceFetcher) fetchRouterPricing(ctx context.Context) (map[string]hfRouterModel, error) {
	var list struct {
		Data []hfRouterModel `json:"data"`
	}
	if err := getJSON(ctx, f.client, f.RouterURL+"/v1/models", bearerHeader(f.token), &list); err != nil {
		return nil, err
	}

	byID := make(map[string]hfRouterModel, len(list.Data))
	for _, m := range list.Data {
		byID[m.ID] = m
	}
	return byID, nil
}

// attachProviders copies the router's provider list onto the model and
// promotes the cheapest live provider with pricing to the top-level Pricing.
func (f *HuggingFaceFetcher) attachProviders(info *ModelInfo, router hfRouterModel) {
	cheapest := math.MaxFloat64

	for _, p := range router.Providers {
		pp := ProviderPricing{
			Provider:                 p.Provider,
			Status:                   p.Status,
			ContextLength:            p.ContextLength,
			SupportsTools:            p.SupportsTools,
			SupportsStructuredOutput: p.SupportsStructuredOutput,
		}
		if p.Pricing != nil {
			pp.Pricing = &Rates{Input: p.Pricing.Input, Output: p.Pricing.Output}
		}
		info.Providers = append(info.Providers, pp)

		if p.Status != "live" || p.Pricing == nil {
			continue
		}
		if total := p.Pricing.Input + p.Pricing.Output; total < cheapest {
			cheapest = total
			info.Pricing = &ModelPricing{
				Provider: p.Provider,
				Input:    p.Pricing.Input,
				Output:   p.Pricing.Output,
			}
		}
		if info.ContextLength == 0 {
			info.ContextLength = p.ContextLength
		}
	}
}
