package mcp

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/client/transport"
	gateway "github.com/mark3labs/x402-gateway"
)

// buildTransport constructs the wire transport a spawn config asks for.
func buildTransport(cfg *SpawnConfig) (transport.Interface, error) {
	switch cfg.Transport {
	case TransportStdio:
		if cfg.Command == "" {
			return nil, fmt.Errorf("%w: stdio transport needs a command", gateway.ErrInvalidInput)
		}
		return transport.NewStdio(cfg.Command, filteredEnv(cfg.Env), cfg.Args...), nil

	case TransportHTTP:
		if cfg.RemoteURL == "" {
			return nil, fmt.Errorf("%w: http transport needs a remoteUrl", gateway.ErrInvalidInput)
		}
		return transport.NewSSE(cfg.RemoteURL + "/sse")

	case TransportDocker:
		if cfg.Image == "" {
			return nil, fmt.Errorf("%w: docker transport needs an image", gateway.ErrInvalidInput)
		}
		return NewDockerTransport(cfg), nil

	default:
		return nil, fmt.Errorf("%w: unknown transport %q", gateway.ErrInvalidInput, cfg.Transport)
	}
}

// filteredEnv builds the child environment from only the variables the spawn
// config names. Empty config values are resolved from the gateway's own
// environment; nothing else leaks into the child.
func filteredEnv(env map[string]string) []string {
	if len(env) == 0 {
		return []string{}
	}
	out := make([]string, 0, len(env))
	for name, value := range env {
		if value == "" {
			value = os.Getenv(name)
		}
		out = append(out, name+"="+value)
	}
	return out
}
