// Package server is the gateway's HTTP surface: payment-gated inference, the
// model catalog, the connector catalog, and the MCP proxy.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	gateway "github.com/mark3labs/x402-gateway"
	"github.com/mark3labs/x402-gateway/connector"
	"github.com/mark3labs/x402-gateway/inference"
	"github.com/mark3labs/x402-gateway/mcp"
	"github.com/mark3labs/x402-gateway/payment"
	"github.com/mark3labs/x402-gateway/registry"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// Server wires the gateway services behind a gin engine.
type Server struct {
	cfg        *gateway.Config
	gate       *payment.Gate
	router     *inference.Router
	registry   *registry.Service
	pool       *mcp.Pool
	spawner    *mcp.SpawnClient
	connectors *connector.Service
	logger     *slog.Logger

	engine *gin.Engine
}

// Option is a functional option for configuring a Server.
type Option func(*Server)

// WithServerLogger sets the server logger. Defaults to slog.Default().
func WithServerLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New assembles the HTTP surface over the gateway services.
func New(cfg *gateway.Config, gate *payment.Gate, router *inference.Router, reg *registry.Service, pool *mcp.Pool, spawner *mcp.SpawnClient, connectors *connector.Service, opts ...Option) *Server {
	s := &Server{
		cfg:        cfg,
		gate:       gate,
		router:     router,
		registry:   reg,
		pool:       pool,
		spawner:    spawner,
		connectors: connectors,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	gin.SetMode(gin.ReleaseMode)
	s.engine = gin.New()
	s.engine.Use(Recovery(s.logger), RequestLogger(s.logger), CORS())
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.GET("/health", s.health)

	s.engine.GET("/connectors", s.listConnectors)
	s.engine.GET("/connectors/:id", s.getConnector)
	s.engine.GET("/connectors/:id/tools", s.connectorTools)
	s.engine.POST("/connectors/:id/call", s.callConnector)

	api := s.engine.Group("/api")

	api.POST("/inference", s.handleInference)
	api.POST("/inference/:modelId", s.handleInference)

	api.GET("/models", s.listModels)
	api.GET("/registry/models", s.registrySnapshot)
	api.GET("/registry/models/available", s.availableModels)
	api.GET("/registry/models/:source", s.modelsBySource)
	api.GET("/registry/model/*id", s.modelInfo)
	api.POST("/registry/refresh", s.refreshRegistry)

	api.GET("/mcp/plugins", s.mcpPlugins)
	api.GET("/mcp/tools", s.mcpTools)
	api.GET("/mcp/status", s.mcpStatus)
	api.GET("/mcp/servers", s.mcpServers)
	api.GET("/mcp/:pluginId/tools", s.mcpPluginTools)
	api.GET("/mcp/:pluginId/tools/:toolName", s.mcpPluginTool)
	api.POST("/mcp/:pluginId/execute", s.mcpExecute)
	api.POST("/mcp/servers/:slug/call", s.mcpServerCall)
}

// Handler exposes the engine for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "x402-gateway",
		"version":   Version,
	})
}

// resourceURL reconstructs the resource identifier payment requirements are
// issued against.
func (s *Server) resourceURL(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host + c.Request.URL.Path
}

// Run serves until SIGINT/SIGTERM or context cancellation, then drains the
// MCP pool and shuts the listener down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("gateway listening", "port", s.cfg.Port, "network", s.cfg.Chain.NetworkID)
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		s.logger.Info("signal received, shutting down", "signal", sig.String())
	case <-ctx.Done():
		s.logger.Info("context canceled, shutting down")
	}

	s.pool.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
