package inference

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	gateway "github.com/mark3labs/x402-gateway"
	"github.com/mark3labs/x402-gateway/registry"
)

// streamText proxies a chat completion stream to the client, re-chunked per
// word. Usage comes from the provider's final chunk when reported, otherwise
// it is estimated from byte counts. finish always fires after the last
// emitted byte, including on client disconnect.
func (rt *Router) streamText(ctx context.Context, w http.ResponseWriter, req *Request, model *registry.ModelInfo, finish FinishFunc) error {
	source := registry.SourceHuggingFace
	if model != nil {
		source = model.Source
	}
	ep, key, err := rt.chatEndpoint(source)
	if err != nil {
		return err
	}

	var resp *http.Response
	if ep.anthropicNative {
		resp, err = rt.openAnthropicStream(ctx, ep, key, req)
	} else {
		resp, err = rt.openChatStream(ctx, ep, key, req)
	}
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	sse := newSSEWriter(w)
	sse.start()

	var usage gateway.TokenUsage
	var gotUsage bool
	smoother := &wordSmoother{}
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			break
		}

		var text string
		if ep.anthropicNative {
			text = parseAnthropicEvent(data, &usage, &gotUsage)
		} else {
			text = parseChatChunk(data, &usage, &gotUsage)
		}
		for _, word := range smoother.Push(text) {
			sse.content(word)
		}
		if sse.err != nil {
			// Client went away; stop pumping and settle what was produced.
			rt.logger.Info("client disconnected mid-stream", "model", req.ModelID)
			break
		}
	}

	sse.content(smoother.Flush())
	sse.done()

	if !gotUsage {
		usage = estimateUsage(req, sse.emitted)
	}
	if usage.TotalTokens == 0 {
		usage.TotalTokens = usage.InputTokens + usage.OutputTokens
	}

	finish(rt.cost(model, usage), usage)
	return nil
}

// openChatStream starts an OpenAI-style streaming completion.
func (rt *Router) openChatStream(ctx context.Context, ep endpoint, key string, req *Request) (*http.Response, error) {
	messages := req.Messages
	if len(messages) == 0 {
		messages = []Message{{Role: "user", Content: req.Prompt}}
	}

	body := map[string]interface{}{
		"model":          req.ModelID,
		"messages":       messages,
		"stream":         true,
		"stream_options": map[string]bool{"include_usage": true},
	}
	if req.MaxTokens > 0 {
		body["max_tokens"] = req.MaxTokens
	}
	if req.Temperature != nil {
		body["temperature"] = *req.Temperature
	}

	return rt.postStream(ctx, ep.BaseURL+"/chat/completions", ep.headers(key), body)
}

// openAnthropicStream starts a native Anthropic messages stream.
func (rt *Router) openAnthropicStream(ctx context.Context, ep endpoint, key string, req *Request) (*http.Response, error) {
	messages := req.Messages
	if len(messages) == 0 {
		messages = []Message{{Role: "user", Content: req.Prompt}}
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	body := map[string]interface{}{
		"model":      req.ModelID,
		"messages":   messages,
		"max_tokens": maxTokens,
		"stream":     true,
	}
	if req.Temperature != nil {
		body["temperature"] = *req.Temperature
	}

	return rt.postStream(ctx, ep.BaseURL+"/messages", ep.headers(key), body)
}

func (rt *Router) postStream(ctx context.Context, url string, headers map[string]string, body interface{}) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := rt.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", gateway.ErrUpstreamError, err)
	}
	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		resp.Body.Close()
		return nil, fmt.Errorf("%w: status %d: %s", gateway.ErrUpstreamError, resp.StatusCode, detail)
	}
	return resp, nil
}

// parseChatChunk extracts the text delta from one OpenAI-style chunk and
// captures usage from the final usage-bearing chunk.
func parseChatChunk(data string, usage *gateway.TokenUsage, gotUsage *bool) string {
	var chunk struct {
		Choices []struct {
			Delta struct {
				Content string `json:"content"`
			} `json:"delta"`
		} `json:"choices"`
		Usage *struct {
			PromptTokens            int `json:"prompt_tokens"`
			CompletionTokens        int `json:"completion_tokens"`
			TotalTokens             int `json:"total_tokens"`
			CompletionTokensDetails struct {
				ReasoningTokens int `json:"reasoning_tokens"`
			} `json:"completion_tokens_details"`
		} `json:"usage"`
	}
	if err := json.Unmarshal([]byte(data), &chunk); err != nil {
		return ""
	}

	if chunk.Usage != nil {
		usage.InputTokens = chunk.Usage.PromptTokens
		usage.OutputTokens = chunk.Usage.CompletionTokens
		usage.TotalTokens = chunk.Usage.TotalTokens
		usage.ReasoningTokens = chunk.Usage.CompletionTokensDetails.ReasoningTokens
		*gotUsage = true
	}
	if len(chunk.Choices) > 0 {
		return chunk.Choices[0].Delta.Content
	}
	return ""
}

// parseAnthropicEvent extracts the text delta from one Anthropic stream
// event. Input tokens arrive on message_start, output tokens on
// message_delta.
func parseAnthropicEvent(data string, usage *gateway.TokenUsage, gotUsage *bool) string {
	var event struct {
		Type  string `json:"type"`
		Delta struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"delta"`
		Message struct {
			Usage struct {
				InputTokens int `json:"input_tokens"`
			} `json:"usage"`
		} `json:"message"`
		Usage struct {
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return ""
	}

	switch event.Type {
	case "message_start":
		usage.InputTokens = event.Message.Usage.InputTokens
	case "message_delta":
		usage.OutputTokens = event.Usage.OutputTokens
		usage.TotalTokens = usage.InputTokens + usage.OutputTokens
		*gotUsage = true
	case "content_block_delta":
		if event.Delta.Type == "text_delta" {
			return event.Delta.Text
		}
	}
	return ""
}

// estimateUsage approximates token counts from byte lengths when the
// provider never reported usage (4 bytes per token).
func estimateUsage(req *Request, emittedBytes int) gateway.TokenUsage {
	promptBytes := len(req.Prompt)
	for _, m := range req.Messages {
		promptBytes += len(m.Content)
	}

	usage := gateway.TokenUsage{
		InputTokens:  (promptBytes + 3) / 4,
		OutputTokens: (emittedBytes + 3) / 4,
	}
	usage.TotalTokens = usage.InputTokens + usage.OutputTokens
	return usage
}
