package inference

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	gateway "github.com/mark3labs/x402-gateway"
	"github.com/mark3labs/x402-gateway/payment"
	"github.com/mark3labs/x402-gateway/registry"
)

// FinishFunc runs exactly once after a handler finishes billable work, with
// the metered cost and usage. The HTTP layer settles payment here. For
// streams it runs after the last byte, even when the client disconnected.
type FinishFunc func(cost payment.InferenceCost, usage gateway.TokenUsage)

// Router dispatches a request to the per-task handler.
type Router struct {
	registry *registry.Service
	cfg      *gateway.Config
	client   *http.Client
	logger   *slog.Logger

	t2iChain []ImageProvider
	i2iChain []ImageProvider

	// hfRouterURL fronts the HF inference router (speech, embeddings, and
	// the default image providers). mediaBaseURL fronts the Google
	// generative API for video/audio generation. Overridable for tests.
	hfRouterURL  string
	mediaBaseURL string

	// endpointOverrides remaps chat endpoints per source, for tests.
	endpointOverrides map[string]string
}

// RouterOption is a functional option for configuring a Router.
type RouterOption func(*Router)

// WithRouterLogger sets the router logger. Defaults to slog.Default().
func WithRouterLogger(l *slog.Logger) RouterOption {
	return func(rt *Router) { rt.logger = l }
}

// WithHTTPClient sets the HTTP client used for provider calls.
func WithHTTPClient(c *http.Client) RouterOption {
	return func(rt *Router) { rt.client = c }
}

// WithImageChains replaces the text-to-image and image-to-image provider
// fallback chains.
func WithImageChains(t2i, i2i []ImageProvider) RouterOption {
	return func(rt *Router) {
		rt.t2iChain = t2i
		rt.i2iChain = i2i
	}
}

// WithEndpointOverride remaps one source's chat endpoint.
func WithEndpointOverride(source, baseURL string) RouterOption {
	return func(rt *Router) { rt.endpointOverrides[source] = baseURL }
}

// WithHFRouterURL overrides the HF inference router base URL.
func WithHFRouterURL(u string) RouterOption {
	return func(rt *Router) { rt.hfRouterURL = u }
}

// WithMediaBaseURL overrides the Google generative API base URL.
func WithMediaBaseURL(u string) RouterOption {
	return func(rt *Router) { rt.mediaBaseURL = u }
}

// NewRouter builds the inference router.
func NewRouter(reg *registry.Service, cfg *gateway.Config, opts ...RouterOption) *Router {
	rt := &Router{
		registry:          reg,
		cfg:               cfg,
		client:            &http.Client{},
		logger:            slog.Default(),
		hfRouterURL:       "https://router.huggingface.co",
		mediaBaseURL:      "https://generativelanguage.googleapis.com/v1beta",
		endpointOverrides: make(map[string]string),
	}
	for _, opt := range opts {
		opt(rt)
	}
	if rt.t2iChain == nil {
		rt.t2iChain = rt.defaultT2IChain()
	}
	if rt.i2iChain == nil {
		rt.i2iChain = rt.defaultI2IChain()
	}
	return rt
}

// Handle detects the task and runs the matching handler. finish fires once
// with the metered cost when billable work completed; it never fires on an
// error returned before any bytes were written.
func (rt *Router) Handle(ctx context.Context, w http.ResponseWriter, req *Request, finish FinishFunc) error {
	// Models outside the registry still route: the HF router proxies a long
	// tail of Hub models the catalog snapshot may not carry.
	model, err := rt.registry.GetModelInfo(ctx, req.ModelID)
	if err != nil {
		rt.logger.Info("model not in registry, routing by heuristics", "model", req.ModelID)
		model = nil
	}

	task := DetectTask(req, model)
	if err := req.Validate(task); err != nil {
		return err
	}

	rt.logger.Info("dispatching inference", "model", req.ModelID, "task", task)

	switch task {
	case registry.TaskTextGeneration, registry.TaskConversational:
		return rt.streamText(ctx, w, req, model, finish)
	case registry.TaskTextToImage:
		return rt.generateImage(ctx, w, req, model, rt.t2iChain, finish)
	case registry.TaskImageToImage:
		return rt.generateImage(ctx, w, req, model, rt.i2iChain, finish)
	case registry.TaskTextToSpeech:
		return rt.textToSpeech(ctx, w, req, model, finish)
	case registry.TaskASR:
		return rt.transcribe(ctx, w, req, model, finish)
	case registry.TaskTextToVideo:
		return rt.generateVideo(ctx, w, req, finish)
	case registry.TaskTextToAudio:
		return rt.generateAudio(ctx, w, req, finish)
	case registry.TaskFeatureExtraction, registry.TaskSentenceSimilarity:
		return rt.embed(ctx, w, req, task, finish)
	default:
		return fmt.Errorf("%w: unsupported task %s", gateway.ErrInvalidInput, task)
	}
}

// cost computes the metered cost for usage against a model's pricing.
func (rt *Router) cost(model *registry.ModelInfo, usage gateway.TokenUsage) payment.InferenceCost {
	return registry.CostForModel(model, usage)
}

// writeCostHeader attaches the settled-cost header. Must run before the
// status line for non-streaming handlers.
func writeCostHeader(w http.ResponseWriter, cost payment.InferenceCost) {
	w.Header().Set(payment.HeaderCost, gateway.BigIntToAmount(cost.TotalWei, 6))
}
