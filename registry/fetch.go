package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mark3labs/x402-gateway/retry"
)

// Fetcher pulls one source's catalog. Implementations expose a BaseURL field
// so tests can point them at a stub server.
type Fetcher interface {
	Source() string
	Fetch(ctx context.Context) ([]ModelInfo, error)
}

// fetchTimeout bounds each catalog HTTP call.
const fetchTimeout = 10 * time.Second

// statusError carries a non-2xx response status through the retry classifier.
type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.status, e.body)
}

// transientFetch reports whether a catalog fetch error is worth retrying:
// network failures, rate limits, and upstream 5xx.
func transientFetch(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.status == http.StatusTooManyRequests || se.status >= 500
	}
	return true // network-level errors
}

// getJSON fetches a URL and decodes its JSON body into out, retrying
// transient failures with backoff.
func getJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, out interface{}) error {
	_, err := retry.WithRetry(ctx, retry.DefaultConfig, transientFetch, func() (struct{}, error) {
		return struct{}{}, getJSONOnce(ctx, client, url, headers, out)
	})
	return err
}

func getJSONOnce(ctx context.Context, client *http.Client, url string, headers map[string]string, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &statusError{status: resp.StatusCode, body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func bearerHeader(key string) map[string]string {
	if key == "" {
		return nil
	}
	return map[string]string{"Authorization": "Bearer " + key}
}
