package agentclient

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/netlab-io/controller/internal/config"
	"github.com/netlab-io/controller/internal/models"
)

// HostRegistry is the subset of persistence.HostRepo the pool and health
// loop need, kept as an interface so tests can fake it.
type HostRegistry interface {
	List(ctx context.Context) ([]*models.Host, error)
	SetStatus(ctx context.Context, id string, status models.HostStatus) error
}

// ClientPool shares one httpAgentClient per agent id, keyed the same way
// the teacher's mcp/client_factory.go pools its tool clients by server
// name. Building a client is cheap (just wraps a shared *http.Client), so
// the pool mainly exists to keep base URLs stable and to back the health
// loop's offline marking.
type ClientPool struct {
	mu      sync.RWMutex
	clients map[string]*httpAgentClient

	shared *http.Client
	cfg    config.AgentClientConfig
	hosts  HostRegistry
}

// NewClientPool constructs a pool backed by one shared http.Client.
func NewClientPool(cfg config.AgentClientConfig, hosts HostRegistry) *ClientPool {
	return &ClientPool{
		clients: make(map[string]*httpAgentClient),
		shared: &http.Client{
			Timeout: 0, // per-call timeouts are set via context in httpAgentClient.do
		},
		cfg:   cfg,
		hosts: hosts,
	}
}

// Get returns (creating if needed) the client for agentID at baseURL.
func (p *ClientPool) Get(agentID, baseURL string) AgentClient {
	p.mu.RLock()
	c, ok := p.clients[agentID]
	p.mu.RUnlock()
	if ok {
		return c
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.clients[agentID]; ok {
		return c
	}
	c = newHTTPAgentClient(agentID, baseURL, p.shared, p.cfg.BackoffCap, p.cfg.MaxAttempts)
	p.clients[agentID] = c
	return c
}

// Drop removes a cached client, e.g. after an agent re-registers with a
// new address.
func (p *ClientPool) Drop(agentID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.clients, agentID)
}

// RunHealthLoop marks hosts offline when their heartbeat is older than
// the configured stale-timeout, restarting itself on panic per spec §9
// ("every long-running supervisor runs as a restartable task"). It blocks
// until ctx is cancelled.
func (p *ClientPool) RunHealthLoop(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.StaleTimeout / 3)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.sweepStaleHosts(ctx)
		}
	}
}

func (p *ClientPool) sweepStaleHosts(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("agentclient: health loop panic, continuing", "panic", fmt.Sprint(r))
		}
	}()

	hosts, err := p.hosts.List(ctx)
	if err != nil {
		slog.Warn("agentclient: health loop list failed", "error", err)
		return
	}

	now := time.Now()
	for _, h := range hosts {
		if h.Status == models.HostOffline {
			continue
		}
		if h.IsStale(now, p.cfg.StaleTimeout) {
			if err := p.hosts.SetStatus(ctx, h.ID, models.HostOffline); err != nil {
				slog.Warn("agentclient: mark offline failed", "host", h.ID, "error", err)
				continue
			}
			slog.Warn("agentclient: host marked offline", "host", h.ID, "last_heartbeat", h.LastHeartbeat)
		}
	}
}
