package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	gateway "github.com/mark3labs/x402-gateway"
)

const (
	// DefaultMaxSessions caps concurrent live sessions across all servers.
	DefaultMaxSessions = 100

	// DefaultSessionTTL is the absolute reuse bound for a session.
	DefaultSessionTTL = 30 * time.Minute

	// DefaultIdleTimeout evicts sessions unused for this long. Tighter than
	// the TTL; it is memory hygiene, not correctness.
	DefaultIdleTimeout = 5 * time.Minute

	// DefaultSweepInterval is how often the idle sweeper runs.
	DefaultSweepInterval = time.Minute

	// ConnectTimeout bounds transport start plus MCP handshake.
	ConnectTimeout = 30 * time.Second

	// CallTimeout bounds one tool invocation.
	CallTimeout = 60 * time.Second
)

// Pool keeps at most one live session per serverId and reconstructs sessions
// on demand. Spawning can take tens of seconds (container pulls), so the
// check-then-spawn path locks per serverId, never globally.
type Pool struct {
	spawner *SpawnClient
	logger  *slog.Logger

	maxSessions   int
	ttl           time.Duration
	idleTimeout   time.Duration
	sweepInterval time.Duration

	mu       sync.Mutex
	sessions map[string]*Session
	reserved int
	locks    map[string]*sync.Mutex

	stopOnce sync.Once
	stop     chan struct{}
}

// PoolOption is a functional option for configuring a Pool.
type PoolOption func(*Pool)

// WithMaxSessions overrides the session cap.
func WithMaxSessions(n int) PoolOption {
	return func(p *Pool) { p.maxSessions = n }
}

// WithSessionTTL overrides the absolute session reuse bound.
func WithSessionTTL(d time.Duration) PoolOption {
	return func(p *Pool) { p.ttl = d }
}

// WithIdleTimeout overrides the idle eviction threshold.
func WithIdleTimeout(d time.Duration) PoolOption {
	return func(p *Pool) { p.idleTimeout = d }
}

// WithSweepInterval overrides the sweeper period.
func WithSweepInterval(d time.Duration) PoolOption {
	return func(p *Pool) { p.sweepInterval = d }
}

// WithPoolLogger sets the pool logger. Defaults to slog.Default().
func WithPoolLogger(l *slog.Logger) PoolOption {
	return func(p *Pool) { p.logger = l }
}

// NewPool builds a session pool and starts its idle sweeper.
func NewPool(spawner *SpawnClient, opts ...PoolOption) *Pool {
	p := &Pool{
		spawner:       spawner,
		logger:        slog.Default(),
		maxSessions:   DefaultMaxSessions,
		ttl:           DefaultSessionTTL,
		idleTimeout:   DefaultIdleTimeout,
		sweepInterval: DefaultSweepInterval,
		sessions:      make(map[string]*Session),
		locks:         make(map[string]*sync.Mutex),
		stop:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	go p.sweep()
	return p
}

// serverLock returns the per-serverId lock, creating it on first use.
func (p *Pool) serverLock(serverID string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	lock, ok := p.locks[serverID]
	if !ok {
		lock = &sync.Mutex{}
		p.locks[serverID] = lock
	}
	return lock
}

// session returns a live session for serverID, reusing a cached one when it
// is younger than the TTL and still answers a probe. probe controls whether
// a cached session is verified before reuse.
func (p *Pool) session(ctx context.Context, serverID string, probe bool) (*Session, error) {
	lock := p.serverLock(serverID)
	lock.Lock()
	defer lock.Unlock()

	p.mu.Lock()
	cached := p.sessions[serverID]
	p.mu.Unlock()

	if cached != nil {
		if cached.Age() < p.ttl {
			if !probe {
				return cached, nil
			}
			probeCtx, cancel := context.WithTimeout(ctx, ConnectTimeout)
			err := cached.Probe(probeCtx)
			cancel()
			if err == nil {
				return cached, nil
			}
			p.logger.Warn("cached session failed probe, respawning", "server", serverID, "error", err)
		} else {
			p.logger.Info("session exceeded ttl, respawning", "server", serverID)
		}
		p.discard(serverID, cached)
	}

	// Reserve a slot before the slow spawn so concurrent spawns for other
	// serverIds cannot overshoot the cap between check and insert.
	p.mu.Lock()
	if len(p.sessions)+p.reserved >= p.maxSessions {
		p.mu.Unlock()
		return nil, fmt.Errorf("%w: pool at capacity (%d sessions)", gateway.ErrSessionLimit, p.maxSessions)
	}
	p.reserved++
	p.mu.Unlock()

	release := func() {
		p.mu.Lock()
		p.reserved--
		p.mu.Unlock()
	}

	cfg, err := p.spawner.SpawnConfigFor(ctx, serverID)
	if err != nil {
		release()
		return nil, err
	}

	connectCtx, cancel := context.WithTimeout(ctx, ConnectTimeout)
	defer cancel()
	session, err := connectSession(connectCtx, serverID, cfg)
	if err != nil {
		release()
		return nil, err
	}

	p.mu.Lock()
	p.reserved--
	p.sessions[serverID] = session
	p.mu.Unlock()

	p.logger.Info("mcp session established",
		"server", serverID, "session", session.ID,
		"transport", session.TransportType, "tools", len(session.Tools))
	return session, nil
}

// GetServerTools returns the tool schemas a server advertises, spawning it
// if needed. Cached sessions are verified with a lightweight tools/list.
func (p *Pool) GetServerTools(ctx context.Context, serverID string) ([]gateway.Tool, string, error) {
	session, err := p.session(ctx, serverID, true)
	if err != nil {
		return nil, "", err
	}
	session.Touch()
	return session.Tools, session.ID, nil
}

// ExecuteServerTool invokes one tool on a server's pooled session. A failed
// call discards the session so the next request reconstructs it.
func (p *Pool) ExecuteServerTool(ctx context.Context, serverID, toolName string, args map[string]interface{}) (*gateway.CallToolResult, error) {
	session, err := p.session(ctx, serverID, false)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, CallTimeout)
	defer cancel()

	result, err := session.Call(callCtx, toolName, args)
	if err != nil {
		p.logger.Warn("tool call failed, discarding session", "server", serverID, "tool", toolName, "error", err)
		p.discard(serverID, session)
		return nil, err
	}
	return result, nil
}

// MaxSessions returns the configured session cap.
func (p *Pool) MaxSessions() int {
	return p.maxSessions
}

// Sessions snapshots the pool state for status reporting.
func (p *Pool) Sessions() []*Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*Session, 0, len(p.sessions))
	for _, s := range p.sessions {
		out = append(out, s)
	}
	return out
}

// discard removes a session from the map if still current and closes it.
func (p *Pool) discard(serverID string, session *Session) {
	p.mu.Lock()
	if p.sessions[serverID] == session {
		delete(p.sessions, serverID)
	}
	p.mu.Unlock()

	if err := session.Close(); err != nil {
		p.logger.Warn("session close failed", "server", serverID, "error", err)
	}
}

// sweep closes idle sessions. The close runs outside the lock: docker
// teardown can be slow and must not block the pool.
func (p *Pool) sweep() {
	ticker := time.NewTicker(p.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.sweepOnce()
		case <-p.stop:
			return
		}
	}
}

func (p *Pool) sweepOnce() {
	type idle struct {
		serverID string
		session  *Session
	}

	var victims []idle
	p.mu.Lock()
	for serverID, session := range p.sessions {
		if time.Since(session.LastUsed()) > p.idleTimeout {
			victims = append(victims, idle{serverID, session})
			delete(p.sessions, serverID)
		}
	}
	p.mu.Unlock()

	for _, v := range victims {
		p.logger.Info("closing idle mcp session", "server", v.serverID, "session", v.session.ID)
		if err := v.session.Close(); err != nil {
			p.logger.Warn("idle session close failed", "server", v.serverID, "error", err)
		}
	}
}

// Close stops the sweeper and closes every pooled session. Called on
// shutdown.
func (p *Pool) Close() {
	p.stopOnce.Do(func() { close(p.stop) })

	p.mu.Lock()
	sessions := p.sessions
	p.sessions = make(map[string]*Session)
	p.mu.Unlock()

	for serverID, session := range sessions {
		if err := session.Close(); err != nil {
			p.logger.Warn("session close failed during shutdown", "server", serverID, "error", err)
		}
	}
}
