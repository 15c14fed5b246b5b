package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	gateway "github.com/mark3labs/x402-gateway"
)

func TestSpawnConfigFor(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/registry/servers/srv-a/spawn":
			json.NewEncoder(w).Encode(SpawnConfig{
				Transport: TransportStdio,
				Command:   "npx",
				Args:      []string{"-y", "@acme/mcp-server"},
				Env:       map[string]string{"ACME_TOKEN": ""},
			})
		case "/registry/servers/bad/spawn":
			json.NewEncoder(w).Encode(map[string]string{})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := NewSpawnClient(server.URL)

	t.Run("found", func(t *testing.T) {
		cfg, err := client.SpawnConfigFor(context.Background(), "srv-a")
		if err != nil {
			t.Fatalf("SpawnConfigFor() error = %v", err)
		}
		if cfg.Transport != TransportStdio || cfg.Command != "npx" {
			t.Errorf("cfg = %+v", cfg)
		}
	})

	t.Run("unknown server", func(t *testing.T) {
		_, err := client.SpawnConfigFor(context.Background(), "nope")
		if !errors.Is(err, gateway.ErrToolNotFound) {
			t.Errorf("error = %v, want ErrToolNotFound", err)
		}
	})

	t.Run("missing transport", func(t *testing.T) {
		_, err := client.SpawnConfigFor(context.Background(), "bad")
		if !errors.Is(err, gateway.ErrInvalidInput) {
			t.Errorf("error = %v, want ErrInvalidInput", err)
		}
	})
}
