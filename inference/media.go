package inference

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"

	gateway "github.com/mark3labs/x402-gateway"
	"github.com/mark3labs/x402-gateway/payment"
	"github.com/mark3labs/x402-gateway/registry"
)

// flatCost converts a base-price billing task into an InferenceCost. Used
// where the provider reports no measured cost.
func flatCost(task payment.BillingTask) payment.InferenceCost {
	wei := payment.BasePrice(task)
	total, _ := new(big.Float).Quo(new(big.Float).SetInt(wei), big.NewFloat(1e6)).Float64()
	return payment.InferenceCost{Total: total, TotalWei: wei}
}

type googleMediaResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				FileData *struct {
					FileURI  string `json:"fileUri"`
					MimeType string `json:"mimeType"`
				} `json:"fileData"`
				InlineData *struct {
					Data     string `json:"data"`
					MimeType string `json:"mimeType"`
				} `json:"inlineData"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// generateVideo runs a Veo-family generation and returns {videoUrl, mimeType}.
func (rt *Router) generateVideo(ctx context.Context, w http.ResponseWriter, req *Request, finish FinishFunc) error {
	genConfig := map[string]interface{}{"responseModalities": []string{"VIDEO"}}
	if req.VideoDuration > 0 {
		genConfig["videoDuration"] = req.VideoDuration
	}
	if req.AspectRatio != "" {
		genConfig["aspectRatio"] = req.AspectRatio
	}

	media, err := rt.googleGenerate(ctx, req.ModelID, req.PromptText(), genConfig)
	if err != nil {
		return err
	}

	videoURL, mimeType := "", "video/mp4"
	for _, c := range media.Candidates {
		for _, part := range c.Content.Parts {
			if part.FileData != nil {
				videoURL = part.FileData.FileURI
				if part.FileData.MimeType != "" {
					mimeType = part.FileData.MimeType
				}
			}
		}
	}
	if videoURL == "" {
		return fmt.Errorf("%w: no video in response", gateway.ErrUpstreamError)
	}

	cost := flatCost(payment.TaskVideoGen)
	writeCostHeader(w, cost)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"videoUrl": videoURL, "mimeType": mimeType})

	finish(cost, gateway.TokenUsage{})
	return nil
}

// generateAudio runs a Lyria-family generation and returns WAV bytes. Audio
// may arrive inline as base64 or behind a file URL.
func (rt *Router) generateAudio(ctx context.Context, w http.ResponseWriter, req *Request, finish FinishFunc) error {
	media, err := rt.googleGenerate(ctx, req.ModelID, req.PromptText(), map[string]interface{}{
		"responseModalities": []string{"AUDIO"},
	})
	if err != nil {
		return err
	}

	var audio []byte
	for _, c := range media.Candidates {
		for _, part := range c.Content.Parts {
			switch {
			case part.InlineData != nil:
				audio, err = base64.StdEncoding.DecodeString(part.InlineData.Data)
				if err != nil {
					return fmt.Errorf("%w: invalid inline audio: %v", gateway.ErrUpstreamError, err)
				}
			case part.FileData != nil:
				audio, err = rt.fetchURL(ctx, part.FileData.FileURI)
				if err != nil {
					return err
				}
			}
		}
	}
	if len(audio) == 0 {
		return fmt.Errorf("%w: no audio in response", gateway.ErrUpstreamError)
	}

	cost := flatCost(payment.TaskAudioTTS)
	writeCostHeader(w, cost)
	w.Header().Set("Content-Type", "audio/wav")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(audio); err != nil {
		rt.logger.Warn("client disconnected before audio delivery", "error", err)
	}

	finish(cost, gateway.TokenUsage{})
	return nil
}

func (rt *Router) googleGenerate(ctx context.Context, model, prompt string, genConfig map[string]interface{}) (*googleMediaResponse, error) {
	key := rt.cfg.ProviderKey(registry.SourceGoogle)
	if key == "" {
		return nil, fmt.Errorf("%w: no credential for source google", gateway.ErrSourceUnavailable)
	}

	body, err := json.Marshal(map[string]interface{}{
		"contents": []map[string]interface{}{
			{"parts": []map[string]string{{"text": prompt}}},
		},
		"generationConfig": genConfig,
	})
	if err != nil {
		return nil, err
	}

	u := rt.mediaBaseURL + "/models/" + model + ":generateContent?key=" + url.QueryEscape(key)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := rt.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", gateway.ErrUpstreamError, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%w: status %d: %s", gateway.ErrUpstreamError, resp.StatusCode, detail)
	}

	var media googleMediaResponse
	if err := json.NewDecoder(resp.Body).Decode(&media); err != nil {
		return nil, fmt.Errorf("%w: %v", gateway.ErrUpstreamError, err)
	}
	return &media, nil
}

func (rt *Router) fetchURL(ctx context.Context, u string) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := rt.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", gateway.ErrUpstreamError, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d fetching media", gateway.ErrUpstreamError, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
