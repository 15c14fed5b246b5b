package inference

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	gateway "github.com/mark3labs/x402-gateway"
)

// errClass buckets an image-provider error for the fallback state machine.
type errClass int

const (
	// errSkip rotates to the next provider in the chain.
	errSkip errClass = iota
	// errStopLoading short-circuits: the model is warming up on this
	// provider and will be hot shortly; rotating would just cold-start
	// another one.
	errStopLoading
	// errFatal stops the chain and surfaces the error.
	errFatal
)

// providerError is an upstream failure with enough detail to classify.
type providerError struct {
	provider string
	status   int
	body     string
}

func (e *providerError) Error() string {
	return fmt.Sprintf("provider %s: status %d: %s", e.provider, e.status, e.body)
}

// classify sorts a provider failure into the fallback buckets.
func classify(err error) errClass {
	var pe *providerError
	if !errors.As(err, &pe) {
		return errFatal
	}

	lower := strings.ToLower(pe.body)
	if strings.Contains(lower, "loading") || pe.status == http.StatusServiceUnavailable {
		return errStopLoading
	}
	if pe.status == http.StatusNotFound {
		return errSkip
	}
	for _, marker := range []string{"pro required", "not supported", "not available"} {
		if strings.Contains(lower, marker) {
			return errSkip
		}
	}
	return errFatal
}

// ImageProvider is one entry in a fallback chain.
type ImageProvider struct {
	Name     string
	Generate func(ctx context.Context, model, prompt, image string) ([]byte, error)
}

// runChain tries providers in order. Skippable errors rotate; a loading
// error stops immediately with a retry hint; anything else is fatal. A chain
// exhausted on skips produces one composite error naming the model and a
// known-good substitute.
func (rt *Router) runChain(ctx context.Context, chain []ImageProvider, model, prompt, image string) ([]byte, string, error) {
	var lastErr error
	allNotFound := true

	for _, provider := range chain {
		data, err := provider.Generate(ctx, model, prompt, image)
		if err == nil {
			return data, provider.Name, nil
		}

		switch classify(err) {
		case errSkip:
			rt.logger.Warn("image provider unavailable, rotating", "provider", provider.Name, "error", err)
			var pe *providerError
			if !errors.As(err, &pe) || pe.status != http.StatusNotFound {
				allNotFound = false
			}
			lastErr = err
		case errStopLoading:
			rt.logger.Info("image provider is loading the model", "provider", provider.Name, "model", model)
			return nil, "", fmt.Errorf("%w: model %s is loading, try again in 20-30 seconds", gateway.ErrProviderLoading, model)
		default:
			return nil, "", err
		}
	}

	if lastErr == nil {
		return nil, "", fmt.Errorf("%w: no image providers configured", gateway.ErrSourceUnavailable)
	}
	if allNotFound {
		return nil, "", fmt.Errorf("%w: model %s not found on any provider; try black-forest-labs/FLUX.1-schnell",
			gateway.ErrModelNotFound, model)
	}
	return nil, "", fmt.Errorf("all image providers failed for %s: %w", model, lastErr)
}
