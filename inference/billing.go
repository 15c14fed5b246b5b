package inference

import (
	"context"
	"math/big"
	"strings"

	"github.com/mark3labs/x402-gateway/payment"
	"github.com/mark3labs/x402-gateway/registry"
)

// BillingTaskFor maps a routed task to its billing class. Image generation
// splits on model family: SDXL-class models carry a lower base price than
// FLUX-class ones.
func BillingTaskFor(task, modelID string) payment.BillingTask {
	switch task {
	case registry.TaskTextToImage, registry.TaskImageToImage:
		id := strings.ToLower(modelID)
		if strings.Contains(id, "sdxl") || strings.Contains(id, "stable-diffusion") {
			return payment.TaskImageGenSDXL
		}
		return payment.TaskImageGenFlux
	case registry.TaskTextToSpeech:
		return payment.TaskAudioTTS
	case registry.TaskASR:
		return payment.TaskAudioASR
	case registry.TaskTextToVideo:
		return payment.TaskVideoGen
	case registry.TaskTextToAudio:
		return payment.TaskAudioTTS
	default:
		return payment.TaskAgentChat
	}
}

// Ceiling returns the authorization ceiling for a request: the base price of
// its detected billing task. Detection here mirrors Handle so the challenge
// and the dispatch agree on the task.
func (rt *Router) Ceiling(ctx context.Context, req *Request) *big.Int {
	model, err := rt.registry.GetModelInfo(ctx, req.ModelID)
	if err != nil {
		model = nil
	}
	task := DetectTask(req, model)
	return payment.BasePrice(BillingTaskFor(task, req.ModelID))
}
