package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/client/transport"
	mcpproto "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	gateway "github.com/mark3labs/x402-gateway"
)

// echoServer is an in-process MCP server with one echo tool.
func echoServer() *server.MCPServer {
	srv := server.NewMCPServer("echo-server", "1.0.0")
	srv.AddTool(
		mcpproto.NewTool("echo",
			mcpproto.WithDescription("Echoes the text argument back."),
			mcpproto.WithString("text", mcpproto.Required()),
		),
		func(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
			args, _ := req.Params.Arguments.(map[string]interface{})
			text, _ := args["text"].(string)
			return mcpproto.NewToolResultText("echo: " + text), nil
		},
	)
	return srv
}

// poolFixture wires a pool whose sessions connect to an in-process MCP
// server instead of a real transport, and counts spawn-config fetches.
func poolFixture(t *testing.T, opts ...PoolOption) (*Pool, *atomic.Int32) {
	t.Helper()

	var spawnCalls atomic.Int32
	spawnSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		spawnCalls.Add(1)
		json.NewEncoder(w).Encode(SpawnConfig{Transport: TransportStdio, Command: "unused"})
	}))
	t.Cleanup(spawnSrv.Close)

	prev := newTransport
	newTransport = func(cfg *SpawnConfig) (transport.Interface, error) {
		return transport.NewInProcessTransport(echoServer()), nil
	}
	t.Cleanup(func() { newTransport = prev })

	pool := NewPool(NewSpawnClient(spawnSrv.URL), opts...)
	t.Cleanup(pool.Close)
	return pool, &spawnCalls
}

func TestPoolSessionReuse(t *testing.T) {
	pool, spawnCalls := poolFixture(t)

	tools1, sid1, err := pool.GetServerTools(context.Background(), "srv-a")
	if err != nil {
		t.Fatalf("GetServerTools() error = %v", err)
	}
	if len(tools1) != 1 || tools1[0].Name != "echo" {
		t.Fatalf("tools = %+v, want the echo tool", tools1)
	}

	_, sid2, err := pool.GetServerTools(context.Background(), "srv-a")
	if err != nil {
		t.Fatalf("GetServerTools() error = %v", err)
	}

	if sid1 != sid2 {
		t.Errorf("sessionId changed across calls: %s then %s", sid1, sid2)
	}
	if n := spawnCalls.Load(); n != 1 {
		t.Errorf("spawn config fetched %d times, want 1", n)
	}
}

func TestPoolExecuteTool(t *testing.T) {
	pool, _ := poolFixture(t)

	result, err := pool.ExecuteServerTool(context.Background(), "srv-a", "echo", map[string]interface{}{"text": "hi"})
	if err != nil {
		t.Fatalf("ExecuteServerTool() error = %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %+v", result)
	}
	if len(result.Content) != 1 || result.Content[0].Text != "echo: hi" {
		t.Errorf("content = %+v, want echoed text", result.Content)
	}
}

func TestPoolOneSessionPerServer(t *testing.T) {
	pool, _ := poolFixture(t)

	if _, _, err := pool.GetServerTools(context.Background(), "srv-a"); err != nil {
		t.Fatal(err)
	}
	if _, err := pool.ExecuteServerTool(context.Background(), "srv-a", "echo", map[string]interface{}{"text": "x"}); err != nil {
		t.Fatal(err)
	}

	if n := len(pool.Sessions()); n != 1 {
		t.Errorf("pool holds %d sessions for one server, want 1", n)
	}
}

func TestPoolSessionCap(t *testing.T) {
	pool, _ := poolFixture(t, WithMaxSessions(1))

	if _, _, err := pool.GetServerTools(context.Background(), "srv-a"); err != nil {
		t.Fatal(err)
	}
	_, _, err := pool.GetServerTools(context.Background(), "srv-b")
	if !errors.Is(err, gateway.ErrSessionLimit) {
		t.Errorf("error = %v, want ErrSessionLimit", err)
	}
}

func TestPoolCapHeldDuringSpawn(t *testing.T) {
	spawnSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(SpawnConfig{Transport: TransportStdio, Command: "unused"})
	}))
	t.Cleanup(spawnSrv.Close)

	// Block the first spawn inside transport construction so its slot
	// reservation is observable from a concurrent caller.
	var once sync.Once
	started := make(chan struct{})
	release := make(chan struct{})
	prev := newTransport
	newTransport = func(cfg *SpawnConfig) (transport.Interface, error) {
		once.Do(func() { close(started) })
		<-release
		return transport.NewInProcessTransport(echoServer()), nil
	}
	t.Cleanup(func() { newTransport = prev })

	pool := NewPool(NewSpawnClient(spawnSrv.URL), WithMaxSessions(1))
	t.Cleanup(pool.Close)

	done := make(chan error, 1)
	go func() {
		_, _, err := pool.GetServerTools(context.Background(), "srv-a")
		done <- err
	}()

	<-started
	_, _, err := pool.GetServerTools(context.Background(), "srv-b")
	if !errors.Is(err, gateway.ErrSessionLimit) {
		t.Errorf("error during in-flight spawn = %v, want ErrSessionLimit", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("blocked spawn failed after release: %v", err)
	}
	if n := len(pool.Sessions()); n != 1 {
		t.Errorf("pool holds %d sessions, want 1", n)
	}
}

func TestPoolIdleSweep(t *testing.T) {
	pool, _ := poolFixture(t,
		WithIdleTimeout(10*time.Millisecond),
		WithSweepInterval(10*time.Millisecond))

	if _, _, err := pool.GetServerTools(context.Background(), "srv-a"); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(pool.Sessions()) == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("idle session still pooled after sweep deadline")
}

func TestPoolTTLRespawns(t *testing.T) {
	pool, spawnCalls := poolFixture(t, WithSessionTTL(time.Nanosecond))

	_, sid1, err := pool.GetServerTools(context.Background(), "srv-a")
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(time.Millisecond)
	_, sid2, err := pool.GetServerTools(context.Background(), "srv-a")
	if err != nil {
		t.Fatal(err)
	}

	if sid1 == sid2 {
		t.Error("expected a fresh session after TTL expiry")
	}
	if n := spawnCalls.Load(); n != 2 {
		t.Errorf("spawn config fetched %d times, want 2", n)
	}
}

func TestNormalizeResult(t *testing.T) {
	result := &mcpproto.CallToolResult{
		Content: []mcpproto.Content{
			mcpproto.TextContent{Type: "text", Text: "hello"},
			mcpproto.ImageContent{Type: "image", Data: "aGk=", MIMEType: "image/png"},
		},
		IsError: true,
	}

	normalized := normalizeResult(result)
	if !normalized.IsError {
		t.Error("IsError not carried over")
	}
	if len(normalized.Content) != 2 {
		t.Fatalf("len(Content) = %d, want 2", len(normalized.Content))
	}
	if normalized.Content[0].Type != "text" || normalized.Content[0].Text != "hello" {
		t.Errorf("text part = %+v", normalized.Content[0])
	}
	if normalized.Content[1].Type != "image" || normalized.Content[1].MimeType != "image/png" {
		t.Errorf("image part = %+v", normalized.Content[1])
	}
	if normalized.Raw == nil {
		t.Error("raw result not preserved")
	}
}
