package connector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	gateway "github.com/mark3labs/x402-gateway"
)

// X connector environment contract.
const (
	EnvXAPIKey            = "X_API_KEY"
	EnvXAPISecret         = "X_API_SECRET"
	EnvXAccessToken       = "X_ACCESS_TOKEN"
	EnvXAccessTokenSecret = "X_ACCESS_TOKEN_SECRET"
	EnvXBearerToken       = "X_BEARER_TOKEN"
)

// XConnector exposes a small tool surface over the X (Twitter) v2 API.
// Writes go through user-context OAuth1 signing; reads use the app bearer
// token.
type XConnector struct {
	// BaseURL is the API root, overridable for tests.
	BaseURL string
	client  *http.Client
}

// NewXConnector builds the X connector.
func NewXConnector() *XConnector {
	return &XConnector{
		BaseURL: "https://api.twitter.com/2",
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (x *XConnector) Descriptor() Descriptor {
	return Descriptor{
		ID:          "x",
		Label:       "X",
		Description: "Post and read tweets through the X v2 API.",
		HTTPBased:   true,
		RequiredEnv: []string{
			EnvXAPIKey, EnvXAPISecret,
			EnvXAccessToken, EnvXAccessTokenSecret,
			EnvXBearerToken,
		},
		EnvHints: map[string]string{
			EnvXAPIKey:      "consumer key from the developer portal",
			EnvXBearerToken: "app-only bearer token for read endpoints",
		},
	}
}

func (x *XConnector) Tools(ctx context.Context) ([]gateway.Tool, error) {
	return []gateway.Tool{
		{
			Name:        "post_tweet",
			Description: "Post a tweet from the authenticated account.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"text": map[string]interface{}{"type": "string", "description": "Tweet text, up to 280 characters."},
				},
				"required": []string{"text"},
			},
		},
		{
			Name:        "get_user_timeline",
			Description: "Fetch recent tweets for a user id.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"userId":     map[string]interface{}{"type": "string"},
					"maxResults": map[string]interface{}{"type": "integer", "minimum": 5, "maximum": 100},
				},
				"required": []string{"userId"},
			},
		},
		{
			Name:        "search_tweets",
			Description: "Search recent tweets.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"query":      map[string]interface{}{"type": "string"},
					"maxResults": map[string]interface{}{"type": "integer", "minimum": 10, "maximum": 100},
				},
				"required": []string{"query"},
			},
		},
		{
			Name:        "get_user_info",
			Description: "Look up a user by username.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"username": map[string]interface{}{"type": "string"},
				},
				"required": []string{"username"},
			},
		},
	}, nil
}

func (x *XConnector) CallTool(ctx context.Context, name string, args map[string]interface{}) (*gateway.CallToolResult, error) {
	switch name {
	case "post_tweet":
		return x.postTweet(ctx, args)
	case "get_user_timeline":
		return x.getUserTimeline(ctx, args)
	case "search_tweets":
		return x.searchTweets(ctx, args)
	case "get_user_info":
		return x.getUserInfo(ctx, args)
	default:
		return nil, fmt.Errorf("%w: tool %s", gateway.ErrToolNotFound, name)
	}
}

func (x *XConnector) signer() *OAuth1Signer {
	return &OAuth1Signer{
		ConsumerKey:    os.Getenv(EnvXAPIKey),
		ConsumerSecret: os.Getenv(EnvXAPISecret),
		Token:          os.Getenv(EnvXAccessToken),
		TokenSecret:    os.Getenv(EnvXAccessTokenSecret),
	}
}

func (x *XConnector) postTweet(ctx context.Context, args map[string]interface{}) (*gateway.CallToolResult, error) {
	text, _ := args["text"].(string)
	if text == "" {
		return nil, fmt.Errorf("%w: text is required", gateway.ErrInvalidInput)
	}

	endpoint := x.BaseURL + "/tweets"
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	// JSON-body requests sign with no extra parameters.
	auth, err := x.signer().AuthorizationHeader(http.MethodPost, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", auth)
	req.Header.Set("Content-Type", "application/json")

	return x.do(req)
}

func (x *XConnector) getUserTimeline(ctx context.Context, args map[string]interface{}) (*gateway.CallToolResult, error) {
	userID, _ := args["userId"].(string)
	if userID == "" {
		return nil, fmt.Errorf("%w: userId is required", gateway.ErrInvalidInput)
	}

	q := url.Values{"max_results": {maxResults(args, 10)}}
	return x.bearerGet(ctx, "/users/"+url.PathEscape(userID)+"/tweets?"+q.Encode())
}

func (x *XConnector) searchTweets(ctx context.Context, args map[string]interface{}) (*gateway.CallToolResult, error) {
	query, _ := args["query"].(string)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", gateway.ErrInvalidInput)
	}

	q := url.Values{"query": {query}, "max_results": {maxResults(args, 10)}}
	return x.bearerGet(ctx, "/tweets/search/recent?"+q.Encode())
}

func (x *XConnector) getUserInfo(ctx context.Context, args map[string]interface{}) (*gateway.CallToolResult, error) {
	username, _ := args["username"].(string)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", gateway.ErrInvalidInput)
	}
	return x.bearerGet(ctx, "/users/by/username/"+url.PathEscape(username))
}

func (x *XConnector) bearerGet(ctx context.Context, path string) (*gateway.CallToolResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, x.BaseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+os.Getenv(EnvXBearerToken))
	return x.do(req)
}

// do executes the request and normalizes the outcome: non-2xx becomes an
// error-flagged result, never a Go error, so callers need not re-parse.
func (x *XConnector) do(req *http.Request) (*gateway.CallToolResult, error) {
	resp, err := x.client.Do(req)
	if err != nil {
		return gateway.ErrorResult(err.Error(), nil), nil
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return gateway.ErrorResult(err.Error(), nil), nil
	}

	var parsed interface{}
	if err := json.Unmarshal(payload, &parsed); err != nil {
		parsed = string(payload)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := fmt.Sprintf("X API returned status %d", resp.StatusCode)
		return gateway.ErrorResult(msg, map[string]interface{}{"error": parsed}), nil
	}

	return &gateway.CallToolResult{
		Content: []gateway.ContentPart{{Type: "text", Text: string(payload)}},
		Raw:     parsed,
	}, nil
}

func maxResults(args map[string]interface{}, def int) string {
	if v, ok := args["maxResults"].(float64); ok && v > 0 {
		return fmt.Sprintf("%d", int(v))
	}
	return fmt.Sprintf("%d", def)
}
