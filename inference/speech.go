package inference

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	gateway "github.com/mark3labs/x402-gateway"
	"github.com/mark3labs/x402-gateway/registry"
)

// asrOutputMargin is the flat output-token margin added to transcription
// cost on top of the per-second input metering.
const asrOutputMargin = 50

// textToSpeech synthesizes audio through the inference router and returns
// WAV bytes. Cost is metered at one token per four characters of input.
func (rt *Router) textToSpeech(ctx context.Context, w http.ResponseWriter, req *Request, model *registry.ModelInfo, finish FinishFunc) error {
	text := req.TTSText()

	audio, err := rt.hfBinaryCall(ctx, req.ModelID, map[string]interface{}{"inputs": text}, "")
	if err != nil {
		return err
	}

	usage := gateway.TokenUsage{InputTokens: (len(text) + 3) / 4}
	usage.TotalTokens = usage.InputTokens
	cost := rt.cost(model, usage)

	writeCostHeader(w, cost)
	w.Header().Set("Content-Type", "audio/wav")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(audio); err != nil {
		rt.logger.Warn("client disconnected before audio delivery", "error", err)
	}

	finish(cost, usage)
	return nil
}

// transcribe runs speech recognition on base64 audio and returns {text}.
// Cost is metered at one "second-token" per 16000 audio bytes plus a fixed
// output margin.
func (rt *Router) transcribe(ctx context.Context, w http.ResponseWriter, req *Request, model *registry.ModelInfo, finish FinishFunc) error {
	audio, err := base64.StdEncoding.DecodeString(req.Audio)
	if err != nil {
		return fmt.Errorf("%w: audio is not valid base64: %v", gateway.ErrInvalidInput, err)
	}

	raw, err := rt.hfBinaryCall(ctx, req.ModelID, nil, string(audio))
	if err != nil {
		return err
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return fmt.Errorf("%w: unexpected transcription response: %v", gateway.ErrUpstreamError, err)
	}

	usage := gateway.TokenUsage{
		InputTokens:  (len(audio) + 15999) / 16000,
		OutputTokens: asrOutputMargin,
	}
	usage.TotalTokens = usage.InputTokens + usage.OutputTokens
	cost := rt.cost(model, usage)

	writeCostHeader(w, cost)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"text": result.Text})

	finish(cost, usage)
	return nil
}

// hfBinaryCall posts to an hf-inference model endpoint. Pass jsonBody for
// JSON requests or rawBody for binary payloads; returns the raw response
// bytes.
func (rt *Router) hfBinaryCall(ctx context.Context, model string, jsonBody map[string]interface{}, rawBody string) ([]byte, error) {
	var body io.Reader
	contentType := "application/octet-stream"
	if jsonBody != nil {
		data, err := json.Marshal(jsonBody)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	} else {
		body = bytes.NewReader([]byte(rawBody))
	}

	url := rt.hfRouterURL + "/hf-inference/models/" + model
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", contentType)
	if key := rt.cfg.ProviderKey(registry.SourceHuggingFace); key != "" {
		httpReq.Header.Set("Authorization", "Bearer "+key)
	}

	resp, err := rt.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", gateway.ErrUpstreamError, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", gateway.ErrUpstreamError, err)
	}
	if resp.StatusCode == http.StatusServiceUnavailable {
		return nil, fmt.Errorf("%w: model %s is loading, try again in 20-30 seconds", gateway.ErrProviderLoading, model)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d: %s", gateway.ErrUpstreamError, resp.StatusCode, payload)
	}
	return payload, nil
}
