package mcp

import (
	"context"
	"fmt"
	"net/http"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/client/transport"
	mcpproto "github.com/mark3labs/mcp-go/mcp"
)

const (
	dockerHealthRetries  = 30
	dockerHealthInterval = time.Second
	dockerStopGrace      = 5 // seconds
	dockerDefaultPort    = 8080
)

// DockerTransport runs an MCP server inside a container and speaks SSE to it.
// Start pulls the image, runs the container with a published random port,
// waits for /sse to come up, then delegates every transport operation to an
// inner SSE transport. Close stops and removes the container.
type DockerTransport struct {
	image string
	port  int

	containerName string
	inner         transport.Interface

	// Handler set before Start is replayed onto the inner transport.
	notifyHandler func(mcpproto.JSONRPCNotification)
}

// NewDockerTransport builds a docker transport for the config's image.
func NewDockerTransport(cfg *SpawnConfig) *DockerTransport {
	port := cfg.Port
	if port == 0 {
		port = dockerDefaultPort
	}
	return &DockerTransport{
		image:         cfg.Image,
		port:          port,
		containerName: "mcp-" + uuid.NewString(),
	}
}

// Start brings the container up and connects the inner SSE transport.
func (t *DockerTransport) Start(ctx context.Context) error {
	// Pull is best-effort: a locally cached image is fine.
	if out, err := exec.CommandContext(ctx, "docker", "pull", t.image).CombinedOutput(); err != nil {
		if _, inspectErr := exec.CommandContext(ctx, "docker", "image", "inspect", t.image).Output(); inspectErr != nil {
			return fmt.Errorf("failed to pull image %s: %v: %s", t.image, err, out)
		}
	}

	runArgs := []string{
		"run", "-d",
		"--name", t.containerName,
		"-p", "127.0.0.1:0:" + strconv.Itoa(t.port),
		t.image,
	}
	if out, err := exec.CommandContext(ctx, "docker", runArgs...).CombinedOutput(); err != nil {
		return fmt.Errorf("failed to start container: %v: %s", err, out)
	}

	hostAddr, err := t.publishedAddr(ctx)
	if err != nil {
		t.removeContainer()
		return err
	}

	baseURL := "http://" + hostAddr
	if err := t.waitHealthy(ctx, baseURL); err != nil {
		t.removeContainer()
		return err
	}

	inner, err := transport.NewSSE(baseURL + "/sse")
	if err != nil {
		t.removeContainer()
		return fmt.Errorf("failed to create SSE transport: %w", err)
	}
	if t.notifyHandler != nil {
		inner.SetNotificationHandler(t.notifyHandler)
	}
	if err := inner.Start(ctx); err != nil {
		t.removeContainer()
		return fmt.Errorf("failed to connect to container: %w", err)
	}

	t.inner = inner
	return nil
}

// publishedAddr resolves the host address docker bound the container port to.
func (t *DockerTransport) publishedAddr(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, "docker", "port", t.containerName, strconv.Itoa(t.port)+"/tcp").Output()
	if err != nil {
		return "", fmt.Errorf("failed to resolve published port: %w", err)
	}
	addr := strings.TrimSpace(strings.Split(string(out), "\n")[0])
	if addr == "" {
		return "", fmt.Errorf("container published no port for %d/tcp", t.port)
	}
	return addr, nil
}

// waitHealthy polls the SSE endpoint until the server answers.
func (t *DockerTransport) waitHealthy(ctx context.Context, baseURL string) error {
	client := &http.Client{Timeout: 2 * time.Second}

	for attempt := 0; attempt < dockerHealthRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/sse", nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err == nil {
			resp.Body.Close()
			return nil
		}

		select {
		case <-time.After(dockerHealthInterval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("container %s never became healthy at %s", t.containerName, baseURL)
}

func (t *DockerTransport) SendRequest(ctx context.Context, req transport.JSONRPCRequest) (*transport.JSONRPCResponse, error) {
	if t.inner == nil {
		return nil, fmt.Errorf("transport not started")
	}
	return t.inner.SendRequest(ctx, req)
}

func (t *DockerTransport) SendNotification(ctx context.Context, notif mcpproto.JSONRPCNotification) error {
	if t.inner == nil {
		return fmt.Errorf("transport not started")
	}
	return t.inner.SendNotification(ctx, notif)
}

func (t *DockerTransport) SetNotificationHandler(handler func(mcpproto.JSONRPCNotification)) {
	t.notifyHandler = handler
	if t.inner != nil {
		t.inner.SetNotificationHandler(handler)
	}
}

// Close disconnects, then stops the container with a grace period and
// removes it.
func (t *DockerTransport) Close() error {
	if t.inner != nil {
		t.inner.Close()
		t.inner = nil
	}
	exec.Command("docker", "stop", "-t", strconv.Itoa(dockerStopGrace), t.containerName).Run()
	t.removeContainer()
	return nil
}

func (t *DockerTransport) GetSessionId() string {
	if t.inner == nil {
		return ""
	}
	return t.inner.GetSessionId()
}

func (t *DockerTransport) removeContainer() {
	exec.Command("docker", "rm", "-f", t.containerName).Run()
}
