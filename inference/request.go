// Package inference routes billable inference requests to per-task handlers:
// streamed text, image generation with provider fallback, speech, video,
// audio, and embeddings. Handlers meter usage and hand the cost to a finish
// hook; the HTTP layer settles payment there.
package inference

import (
	"fmt"

	gateway "github.com/mark3labs/x402-gateway"
)

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is the uniform inference request body. Fields are sparse; each
// task reads the ones it needs and validates the rest away.
type Request struct {
	ModelID string `json:"modelId"`

	// Task overrides detection when set.
	Task string `json:"task,omitempty"`

	// Chat / text generation.
	Messages    []Message `json:"messages,omitempty"`
	Prompt      string    `json:"prompt,omitempty"`
	MaxTokens   int       `json:"maxTokens,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`

	// Image generation. Image carries a base64 input image and upgrades
	// text-to-image to image-to-image.
	Image string `json:"image,omitempty"`

	// Speech.
	Text  string `json:"text,omitempty"`  // TTS input
	Audio string `json:"audio,omitempty"` // base64 ASR input

	// Video / audio generation.
	VideoDuration int    `json:"videoDuration,omitempty"`
	AspectRatio   string `json:"aspectRatio,omitempty"`

	// Embeddings.
	Inputs         interface{} `json:"inputs,omitempty"`
	SourceSentence string      `json:"source_sentence,omitempty"`
	Sentences      []string    `json:"sentences,omitempty"`
}

// PromptText returns the request's text input: the prompt field, or the last
// user message.
func (r *Request) PromptText() string {
	if r.Prompt != "" {
		return r.Prompt
	}
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == "user" {
			return r.Messages[i].Content
		}
	}
	return ""
}

// Validate checks the request carries the inputs its task needs.
func (r *Request) Validate(task string) error {
	switch task {
	case "text-generation", "conversational":
		if len(r.Messages) == 0 && r.Prompt == "" {
			return fmt.Errorf("%w: messages or prompt required", gateway.ErrInvalidInput)
		}
	case "text-to-image", "text-to-video", "text-to-audio":
		if r.PromptText() == "" {
			return fmt.Errorf("%w: prompt required", gateway.ErrInvalidInput)
		}
	case "image-to-image":
		if r.PromptText() == "" || r.Image == "" {
			return fmt.Errorf("%w: prompt and image required", gateway.ErrInvalidInput)
		}
	case "text-to-speech":
		if r.Text == "" && r.PromptText() == "" {
			return fmt.Errorf("%w: text required", gateway.ErrInvalidInput)
		}
	case "automatic-speech-recognition":
		if r.Audio == "" {
			return fmt.Errorf("%w: audio required", gateway.ErrInvalidInput)
		}
	case "feature-extraction":
		if r.Inputs == nil {
			return fmt.Errorf("%w: inputs required", gateway.ErrInvalidInput)
		}
	case "sentence-similarity":
		if r.SourceSentence == "" || len(r.Sentences) == 0 {
			return fmt.Errorf("%w: source_sentence and sentences required", gateway.ErrInvalidInput)
		}
	}
	return nil
}

// TTSText returns the text-to-speech input.
func (r *Request) TTSText() string {
	if r.Text != "" {
		return r.Text
	}
	return r.PromptText()
}
