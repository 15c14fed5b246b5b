package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	gateway "github.com/mark3labs/x402-gateway"
	"github.com/mark3labs/x402-gateway/registry"
)

// imageTokenEquivalents is the flat usage an image generation is metered at:
// 500 input plus 500 output token-equivalents.
const imageTokenEquivalents = 500

// Provider rotation order. For image-to-image wavespeed leads because
// hf-inference rejects most img2img pipelines.
func (rt *Router) defaultT2IChain() []ImageProvider {
	return rt.routerChain("hf-inference", "wavespeed", "replicate", "novita")
}

func (rt *Router) defaultI2IChain() []ImageProvider {
	return rt.routerChain("wavespeed", "hf-inference", "replicate", "novita")
}

func (rt *Router) routerChain(providers ...string) []ImageProvider {
	chain := make([]ImageProvider, 0, len(providers))
	for _, name := range providers {
		name := name
		chain = append(chain, ImageProvider{
			Name: name,
			Generate: func(ctx context.Context, model, prompt, image string) ([]byte, error) {
				return rt.routerImageCall(ctx, name, model, prompt, image)
			},
		})
	}
	return chain
}

// routerImageCall posts a generation request to one inference-router
// provider and returns the raw image bytes.
func (rt *Router) routerImageCall(ctx context.Context, provider, model, prompt, image string) ([]byte, error) {
	body := map[string]interface{}{"inputs": prompt}
	if image != "" {
		body["image"] = image
		body["parameters"] = map[string]string{"prompt": prompt}
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	url := rt.hfRouterURL + "/" + provider + "/models/" + model
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if key := rt.cfg.ProviderKey(registry.SourceHuggingFace); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	resp, err := rt.client.Do(req)
	if err != nil {
		return nil, &providerError{provider: provider, status: 0, body: err.Error()}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &providerError{provider: provider, status: resp.StatusCode, body: err.Error()}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &providerError{provider: provider, status: resp.StatusCode, body: string(payload)}
	}
	return payload, nil
}

// generateImage runs the fallback chain and returns the image as PNG.
func (rt *Router) generateImage(ctx context.Context, w http.ResponseWriter, req *Request, model *registry.ModelInfo, chain []ImageProvider, finish FinishFunc) error {
	data, provider, err := rt.runChain(ctx, chain, req.ModelID, req.PromptText(), req.Image)
	if err != nil {
		return err
	}

	usage := gateway.TokenUsage{
		InputTokens:  imageTokenEquivalents,
		OutputTokens: imageTokenEquivalents,
		TotalTokens:  2 * imageTokenEquivalents,
	}
	cost := rt.cost(model, usage)

	rt.logger.Info("image generated", "model", req.ModelID, "provider", provider, "bytes", len(data))

	writeCostHeader(w, cost)
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		rt.logger.Warn("client disconnected before image delivery", "error", err)
	}

	finish(cost, usage)
	return nil
}
