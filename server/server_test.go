package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	gateway "github.com/mark3labs/x402-gateway"
	"github.com/mark3labs/x402-gateway/connector"
	"github.com/mark3labs/x402-gateway/inference"
	"github.com/mark3labs/x402-gateway/mcp"
	"github.com/mark3labs/x402-gateway/payment"
	"github.com/mark3labs/x402-gateway/registry"
)

// facilitatorStub fakes the x402 facilitator, recording verify and settle
// traffic.
type facilitatorStub struct {
	mu          sync.Mutex
	verifyCalls int
	settleCalls int
	lastSettle  payment.FacilitatorRequest
}

func (f *facilitatorStub) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/verify":
			f.mu.Lock()
			f.verifyCalls++
			f.mu.Unlock()
			json.NewEncoder(w).Encode(payment.VerifyResponse{IsValid: true, Payer: "0xPayer"})
		case "/settle":
			var req payment.FacilitatorRequest
			json.NewDecoder(r.Body).Decode(&req)
			f.mu.Lock()
			f.settleCalls++
			f.lastSettle = req
			f.mu.Unlock()
			json.NewEncoder(w).Encode(gateway.SettlementResponse{
				Success:     true,
				Transaction: "0xtx",
				Network:     "base-sepolia",
			})
		case "/supported":
			json.NewEncoder(w).Encode(map[string]interface{}{"kinds": []interface{}{}})
		default:
			http.NotFound(w, r)
		}
	}
}

func (f *facilitatorStub) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.verifyCalls, f.settleCalls
}

func (f *facilitatorStub) settledAmount() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastSettle.PaymentRequirements.MaxAmount
}

// catalogStub serves one priced chat model.
type catalogStub struct{}

func (catalogStub) Source() string { return registry.SourceASIOne }

func (catalogStub) Fetch(ctx context.Context) ([]registry.ModelInfo, error) {
	return []registry.ModelInfo{{
		ID:      "asi1-mini",
		Source:  registry.SourceASIOne,
		Task:    registry.TaskTextGeneration,
		Pricing: &registry.ModelPricing{Provider: registry.SourceASIOne, Input: 1.0, Output: 2.0},
	}}, nil
}

func testServer(t *testing.T) (*Server, *facilitatorStub) {
	t.Helper()

	fac := &facilitatorStub{}
	facSrv := httptest.NewServer(fac.handler())
	t.Cleanup(facSrv.Close)

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, d := range []string{"Hello ", "from ", "the ", "model"} {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", d)
		}
		fmt.Fprint(w, "data: {\"choices\":[],\"usage\":{\"prompt_tokens\":3,\"completion_tokens\":7,\"total_tokens\":10}}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	t.Cleanup(upstream.Close)

	spawnSrv := httptest.NewServer(http.HandlerFunc(http.NotFound))
	t.Cleanup(spawnSrv.Close)

	cfg := &gateway.Config{
		Port:  "0",
		Chain: gateway.BaseSepolia,
		PayTo: "0x1111111111111111111111111111111111111111",
		ProviderKeys: map[string]string{
			registry.SourceASIOne: "key",
		},
	}

	gate := payment.NewGate(cfg.Chain, cfg.PayTo, payment.NewFacilitatorClient(facSrv.URL))
	reg := registry.NewService(cfg, []registry.Fetcher{catalogStub{}})
	router := inference.NewRouter(reg, cfg,
		inference.WithEndpointOverride(registry.SourceASIOne, upstream.URL))
	spawner := mcp.NewSpawnClient(spawnSrv.URL)
	pool := mcp.NewPool(spawner)
	t.Cleanup(pool.Close)
	connectors := connector.DefaultService(pool)

	return New(cfg, gate, router, reg, pool, spawner, connectors), fac
}

func paymentHeader(t *testing.T) string {
	t.Helper()
	encoded, err := payment.EncodePayment(gateway.PaymentPayload{
		X402Version: 1,
		Scheme:      "upto",
		Network:     "base-sepolia",
		Payload:     map[string]interface{}{"signature": "0xsig"},
	})
	if err != nil {
		t.Fatal(err)
	}
	return encoded
}

func doJSON(t *testing.T, srv *Server, method, path, payHeader string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if payHeader != "" {
		req.Header.Set(payment.HeaderPayment, payHeader)
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	srv, _ := testServer(t)

	w := doJSON(t, srv, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" || body["service"] != "x402-gateway" {
		t.Errorf("body = %v", body)
	}
}

func TestInferenceWithoutPaymentChallenges(t *testing.T) {
	srv, fac := testServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/inference", "",
		map[string]interface{}{"modelId": "asi1-mini", "prompt": "hi"})
	if w.Code != http.StatusPaymentRequired {
		t.Fatalf("status = %d, want 402", w.Code)
	}

	var challenge gateway.PaymentRequiredResponse
	if err := json.Unmarshal(w.Body.Bytes(), &challenge); err != nil {
		t.Fatal(err)
	}
	if challenge.X402Version != 1 || challenge.Error != "payment_required" {
		t.Errorf("challenge = %+v", challenge)
	}
	if len(challenge.Accepts) != 1 {
		t.Fatalf("accepts = %+v, want one requirement", challenge.Accepts)
	}
	req := challenge.Accepts[0]
	if req.Scheme != "upto" || req.Network != "base-sepolia" || req.MaxAmount != "5000" {
		t.Errorf("requirement = %+v", req)
	}

	if verifies, settles := fac.counts(); verifies != 0 || settles != 0 {
		t.Errorf("facilitator touched without a payment header: %d/%d", verifies, settles)
	}
}

func TestInferenceStreamsAndSettlesMeteredCost(t *testing.T) {
	srv, fac := testServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/inference", paymentHeader(t),
		map[string]interface{}{"modelId": "asi1-mini", "prompt": "hi"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}
	body := w.Body.String()
	if !strings.Contains(body, "Hello") || !strings.Contains(body, "data: [DONE]") {
		t.Errorf("body missing streamed content: %q", body)
	}

	verifies, settles := fac.counts()
	if verifies != 1 || settles != 1 {
		t.Fatalf("facilitator calls = %d verify / %d settle, want 1/1", verifies, settles)
	}
	// 3 in @ $1/M + 7 out @ $2/M + 10 @ $0.10/M fee = 18 wei
	if got := fac.settledAmount(); got != "18" {
		t.Errorf("settled amount = %s, want 18", got)
	}
}

func TestInferenceMalformedPaymentHeader(t *testing.T) {
	srv, _ := testServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/inference", "not-base64!!!",
		map[string]interface{}{"modelId": "asi1-mini", "prompt": "hi"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if !strings.Contains(w.Body.String(), "invalid_payment_header") {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestInferencePathModelOverridesBody(t *testing.T) {
	srv, _ := testServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/inference/asi1-mini", "",
		map[string]interface{}{"prompt": "hi"})
	if w.Code != http.StatusPaymentRequired {
		t.Fatalf("status = %d, want 402 challenge for path-addressed model", w.Code)
	}
}

func TestConnectorListing(t *testing.T) {
	srv, _ := testServer(t)

	w := doJSON(t, srv, http.MethodGet, "/connectors", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	for _, id := range []string{`"x"`, `"github"`, `"gmail"`} {
		if !strings.Contains(body, id) {
			t.Errorf("listing missing connector %s: %s", id, body)
		}
	}
}

func TestConnectorCallUnavailableWithoutEnv(t *testing.T) {
	for _, name := range []string{
		connector.EnvXAPIKey, connector.EnvXAPISecret,
		connector.EnvXAccessToken, connector.EnvXAccessTokenSecret,
		connector.EnvXBearerToken,
	} {
		t.Setenv(name, "")
	}

	srv, fac := testServer(t)

	w := doJSON(t, srv, http.MethodPost, "/connectors/x/call", "",
		map[string]interface{}{"toolName": "post_tweet", "args": map[string]interface{}{"text": "hi"}})
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
	if !strings.Contains(w.Body.String(), "missingEnv") {
		t.Errorf("body = %s, want missing env list", w.Body.String())
	}

	// Availability is checked before the gate: no payment was demanded.
	if verifies, _ := fac.counts(); verifies != 0 {
		t.Errorf("verify called %d times for an unavailable connector", verifies)
	}
}

func TestConnectorUnknown404(t *testing.T) {
	srv, _ := testServer(t)

	w := doJSON(t, srv, http.MethodGet, "/connectors/nope", "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestMCPExecuteRequiresPayment(t *testing.T) {
	srv, _ := testServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/mcp/some-server/execute", "",
		map[string]interface{}{"toolName": "anything"})
	if w.Code != http.StatusPaymentRequired {
		t.Fatalf("status = %d, want 402", w.Code)
	}
	var challenge gateway.PaymentRequiredResponse
	if err := json.Unmarshal(w.Body.Bytes(), &challenge); err != nil {
		t.Fatal(err)
	}
	if len(challenge.Accepts) != 1 || challenge.Accepts[0].MaxAmount != "5000" {
		t.Errorf("challenge = %+v, want tool transaction ceiling", challenge)
	}
}

func TestMCPStatusEmptyPool(t *testing.T) {
	srv, _ := testServer(t)

	w := doJSON(t, srv, http.MethodGet, "/api/mcp/status", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["activeSessions"].(float64) != 0 {
		t.Errorf("activeSessions = %v, want 0", body["activeSessions"])
	}
	if body["maxSessions"].(float64) != float64(mcp.DefaultMaxSessions) {
		t.Errorf("maxSessions = %v", body["maxSessions"])
	}
}

func TestModelCatalogRoutes(t *testing.T) {
	srv, _ := testServer(t)

	t.Run("list", func(t *testing.T) {
		w := doJSON(t, srv, http.MethodGet, "/api/models", "", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		if !strings.Contains(w.Body.String(), "asi1-mini") {
			t.Errorf("body = %s", w.Body.String())
		}
	})

	t.Run("model info", func(t *testing.T) {
		w := doJSON(t, srv, http.MethodGet, "/api/registry/model/asi1-mini", "", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
	})

	t.Run("unknown model", func(t *testing.T) {
		w := doJSON(t, srv, http.MethodGet, "/api/registry/model/no-such-model", "", nil)
		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", w.Code)
		}
	})

	t.Run("by source", func(t *testing.T) {
		w := doJSON(t, srv, http.MethodGet, "/api/registry/models/asi-one", "", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		if !strings.Contains(w.Body.String(), `"count":1`) {
			t.Errorf("body = %s", w.Body.String())
		}
	})

	t.Run("refresh", func(t *testing.T) {
		w := doJSON(t, srv, http.MethodPost, "/api/registry/refresh", "", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		if !strings.Contains(w.Body.String(), `"refreshed":true`) {
			t.Errorf("body = %s", w.Body.String())
		}
	})
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := testServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/inference", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing allow-origin header")
	}
	if got := w.Header().Get("Access-Control-Allow-Headers"); !strings.Contains(got, "x-payment") {
		t.Errorf("allow-headers = %q, want x-payment", got)
	}
}

func TestStatusForMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{gateway.ErrMalformedHeader, http.StatusBadRequest},
		{gateway.ErrInvalidInput, http.StatusBadRequest},
		{gateway.ErrModelNotFound, http.StatusNotFound},
		{gateway.ErrToolNotFound, http.StatusNotFound},
		{gateway.ErrFacilitatorUnavailable, http.StatusServiceUnavailable},
		{gateway.ErrConnectorUnavailable, http.StatusServiceUnavailable},
		{gateway.ErrProviderLoading, http.StatusServiceUnavailable},
		{gateway.ErrSessionLimit, http.StatusServiceUnavailable},
		{gateway.ErrUpstreamError, http.StatusInternalServerError},
		{gateway.ErrTimeout, http.StatusGatewayTimeout},
		{fmt.Errorf("anything else"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
