package connector

import (
	"context"
	"errors"
	"testing"

	gateway "github.com/mark3labs/x402-gateway"
)

// stubConnector records whether any behavior past the availability gate ran.
type stubConnector struct {
	desc   Descriptor
	called bool
}

func (s *stubConnector) Descriptor() Descriptor { return s.desc }

func (s *stubConnector) Tools(ctx context.Context) ([]gateway.Tool, error) {
	s.called = true
	return []gateway.Tool{{Name: "noop"}}, nil
}

func (s *stubConnector) CallTool(ctx context.Context, name string, args map[string]interface{}) (*gateway.CallToolResult, error) {
	s.called = true
	return gateway.TextResult("ok"), nil
}

func TestServiceListSortedWithAvailability(t *testing.T) {
	t.Setenv("CONNECTOR_TEST_SET", "value")

	svc := NewService(
		&stubConnector{desc: Descriptor{ID: "zeta", RequiredEnv: []string{"CONNECTOR_TEST_SET"}}},
		&stubConnector{desc: Descriptor{ID: "alpha", RequiredEnv: []string{"CONNECTOR_TEST_UNSET_VAR"}}},
	)

	listings := svc.List()
	if len(listings) != 2 {
		t.Fatalf("len(listings) = %d, want 2", len(listings))
	}
	if listings[0].ID != "alpha" || listings[1].ID != "zeta" {
		t.Errorf("listing order = %s, %s; want alpha, zeta", listings[0].ID, listings[1].ID)
	}
	if listings[0].IsAvailable {
		t.Error("alpha reported available with its env var unset")
	}
	if got := listings[0].Missing; len(got) != 1 || got[0] != "CONNECTOR_TEST_UNSET_VAR" {
		t.Errorf("alpha missing = %v", got)
	}
	if !listings[1].IsAvailable {
		t.Error("zeta reported unavailable with its env var set")
	}
}

func TestServiceUnknownConnector(t *testing.T) {
	svc := NewService()

	if _, err := svc.Get("nope"); !errors.Is(err, gateway.ErrToolNotFound) {
		t.Errorf("Get error = %v, want ErrToolNotFound", err)
	}
	if _, err := svc.Tools(context.Background(), "nope"); !errors.Is(err, gateway.ErrToolNotFound) {
		t.Errorf("Tools error = %v, want ErrToolNotFound", err)
	}
	if _, err := svc.Call(context.Background(), "nope", "t", nil); !errors.Is(err, gateway.ErrToolNotFound) {
		t.Errorf("Call error = %v, want ErrToolNotFound", err)
	}
}

func TestServiceUnavailableConnectorBlocksCalls(t *testing.T) {
	stub := &stubConnector{desc: Descriptor{
		ID:          "gated",
		RequiredEnv: []string{"CONNECTOR_TEST_UNSET_VAR"},
	}}
	svc := NewService(stub)

	_, err := svc.Call(context.Background(), "gated", "noop", nil)
	if !errors.Is(err, gateway.ErrConnectorUnavailable) {
		t.Fatalf("Call error = %v, want ErrConnectorUnavailable", err)
	}
	if _, err := svc.Tools(context.Background(), "gated"); !errors.Is(err, gateway.ErrConnectorUnavailable) {
		t.Fatalf("Tools error = %v, want ErrConnectorUnavailable", err)
	}
	if stub.called {
		t.Error("connector behavior ran despite missing env")
	}
}

func TestServiceAvailableConnectorPassesThrough(t *testing.T) {
	t.Setenv("CONNECTOR_TEST_SET", "value")
	stub := &stubConnector{desc: Descriptor{
		ID:          "open",
		RequiredEnv: []string{"CONNECTOR_TEST_SET"},
	}}
	svc := NewService(stub)

	tools, err := svc.Tools(context.Background(), "open")
	if err != nil {
		t.Fatalf("Tools() error = %v", err)
	}
	if len(tools) != 1 || tools[0].Name != "noop" {
		t.Errorf("tools = %+v", tools)
	}

	result, err := svc.Call(context.Background(), "open", "noop", nil)
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if result.IsError {
		t.Errorf("result = %+v", result)
	}
}
