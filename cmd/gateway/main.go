// Command gateway runs the x402 payment gateway: a paywalled HTTP surface
// over multi-provider AI inference, a dynamic model registry, MCP tool
// execution, and HTTP connectors.
package main

import (
	"context"
	"log/slog"
	"os"

	gateway "github.com/mark3labs/x402-gateway"
	"github.com/mark3labs/x402-gateway/connector"
	"github.com/mark3labs/x402-gateway/inference"
	"github.com/mark3labs/x402-gateway/mcp"
	"github.com/mark3labs/x402-gateway/payment"
	"github.com/mark3labs/x402-gateway/registry"
	"github.com/mark3labs/x402-gateway/server"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := gateway.LoadConfig()
	if err != nil {
		logger.Error("configuration error", "error", err)
		os.Exit(1)
	}

	facilitator, err := newFacilitator(cfg, cfg.FacilitatorURL)
	if err != nil {
		logger.Error("facilitator setup failed", "error", err)
		os.Exit(1)
	}

	gateOpts := []payment.GateOption{payment.WithLogger(logger)}
	if cfg.FallbackFacilitatorURL != "" {
		fallback, err := newFacilitator(cfg, cfg.FallbackFacilitatorURL)
		if err != nil {
			logger.Error("fallback facilitator setup failed", "error", err)
			os.Exit(1)
		}
		gateOpts = append(gateOpts, payment.WithFallbackFacilitator(fallback))
	}
	gate := payment.NewGate(cfg.Chain, cfg.PayTo, facilitator, gateOpts...)
	gate.Enrich(context.Background())

	reg := registry.NewService(cfg, registry.DefaultFetchers(cfg, logger),
		registry.WithServiceLogger(logger))
	router := inference.NewRouter(reg, cfg, inference.WithRouterLogger(logger))

	spawner := mcp.NewSpawnClient(cfg.ConnectorServiceURL)
	pool := mcp.NewPool(spawner, mcp.WithPoolLogger(logger))
	connectors := connector.DefaultService(pool)

	srv := server.New(cfg, gate, router, reg, pool, spawner, connectors,
		server.WithServerLogger(logger))

	if err := srv.Run(context.Background()); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

// newFacilitator builds a facilitator client, attaching JWT auth when API
// key credentials are configured.
func newFacilitator(cfg *gateway.Config, baseURL string) (*payment.FacilitatorClient, error) {
	client := payment.NewFacilitatorClient(baseURL)
	if cfg.FacilitatorKeyName == "" || cfg.FacilitatorKeySecret == "" {
		return client, nil
	}
	auth, err := payment.NewFacilitatorAuth(cfg.FacilitatorKeyName, cfg.FacilitatorKeySecret, baseURL)
	if err != nil {
		return nil, err
	}
	client.AuthorizationProvider = auth.Provider()
	return client, nil
}
