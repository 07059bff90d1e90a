// Package cleanup subscribes to a small event bus and runs idempotent,
// isolated teardown handlers in response (spec §4.12), grounded on the
// deferred-teardown shape of original_source's
// app/tasks/link_cleanup.py (offline agents get a tunnel marked
// "cleanup" rather than a blocking detach call).
package cleanup

import (
	"context"
	"log/slog"
	"sync"

	"github.com/netlab-io/controller/internal/agentclient"
	"github.com/netlab-io/controller/internal/agentclient/agentpb"
	"github.com/netlab-io/controller/internal/models"
	"github.com/netlab-io/controller/internal/persistence"
)

// EventType is the closed set of cleanup triggers (spec §4.12).
type EventType string

const (
	LabDeleted     EventType = "LAB_DELETED"
	NodeRemoved    EventType = "NODE_REMOVED"
	AgentOffline   EventType = "AGENT_OFFLINE"
	DeployFinished EventType = "DEPLOY_FINISHED"
	DestroyFinished EventType = "DESTROY_FINISHED"
	JobCompleted   EventType = "JOB_COMPLETED"
)

// Event carries whatever identifiers a handler needs; unused fields are
// left zero for event types that don't need them.
type Event struct {
	Type   EventType
	LabID  string
	NodeID string
	HostID string
}

// AgentResolver looks up a host's AgentClient.
type AgentResolver interface {
	Get(agentID, baseURL string) agentclient.AgentClient
}

// Handler processes one event; a returned error triggers exactly one
// retry before the failure is logged and dropped (spec §4.12).
type Handler func(ctx context.Context, ev Event) error

// Bus dispatches cleanup events to per-type handlers.
type Bus struct {
	store  *persistence.Store
	agents AgentResolver

	mu       sync.Mutex
	handlers map[EventType][]Handler
}

// New wires the bus and registers the default handler set.
func New(store *persistence.Store, agents AgentResolver) *Bus {
	b := &Bus{store: store, agents: agents, handlers: make(map[EventType][]Handler)}
	b.Subscribe(LabDeleted, b.handleLabDeleted)
	b.Subscribe(NodeRemoved, b.handleNodeRemoved)
	b.Subscribe(AgentOffline, b.handleAgentOffline)
	b.Subscribe(DestroyFinished, b.handleDestroyFinished)
	return b
}

// Subscribe registers an additional handler for an event type.
func (b *Bus) Subscribe(t EventType, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[t] = append(b.handlers[t], h)
}

// Publish runs every handler registered for ev.Type. Handlers are isolated
// from one another: a panic or error in one never stops the rest, and each
// gets exactly one retry on error before being logged and dropped (spec
// §4.12).
func (b *Bus) Publish(ctx context.Context, ev Event) {
	b.mu.Lock()
	handlers := append([]Handler(nil), b.handlers[ev.Type]...)
	b.mu.Unlock()

	for _, h := range handlers {
		b.runIsolated(ctx, ev, h)
	}
}

func (b *Bus) runIsolated(ctx context.Context, ev Event, h Handler) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("cleanup: handler panicked", "event", ev.Type, "recover", rec)
		}
	}()

	if err := h(ctx, ev); err == nil {
		return
	}

	// One retry on transient failure, then log and drop (spec §4.12).
	if err := h(ctx, ev); err != nil {
		slog.Error("cleanup: handler failed after retry", "event", ev.Type, "lab_id", ev.LabID, "error", err)
	}
}

// handleLabDeleted removes placements and reconciles every online agent's
// VXLAN ports down to an empty set for this lab (spec §4.12 table). The
// workspace-directory and config-snapshot purge named in spec §4.12 happen
// at the filesystem layer that owns the workspace path, which this package
// doesn't hold a handle to in-process — that wiring belongs to whatever
// owns Lab.WorkspacePath at call time.
func (b *Bus) handleLabDeleted(ctx context.Context, ev Event) error {
	if err := b.store.Placements.DeleteByLab(ctx, ev.LabID); err != nil {
		return err
	}

	hosts, err := b.store.Hosts.List(ctx)
	if err != nil {
		return err
	}
	for _, h := range hosts {
		if h.Status == models.HostOffline {
			continue
		}
		client := b.agents.Get(h.ID, h.Address)
		if client == nil {
			continue
		}
		if err := client.ReconcileVxlanPorts(ctx, agentpb.ReconcileVxlanPortsRequest{ValidPortNames: []string{}, Confirm: true, AllowEmpty: true}); err != nil {
			slog.Warn("cleanup: reconcile-vxlan-ports failed", "host_id", h.ID, "lab_id", ev.LabID, "error", err)
		}
	}
	return nil
}

// handleNodeRemoved deletes the node's Placement rows.
func (b *Bus) handleNodeRemoved(ctx context.Context, ev Event) error {
	return b.store.Placements.DeleteByNode(ctx, ev.LabID, ev.NodeID)
}

// handleAgentOffline marks the host offline; image-trust bookkeeping lives
// in the image-sync subsystem this spec doesn't model, so this handler's
// scope is the host status flip the rest of the system keys off of.
func (b *Bus) handleAgentOffline(ctx context.Context, ev Event) error {
	return b.store.Hosts.SetStatus(ctx, ev.HostID, models.HostOffline)
}

// handleDestroyFinished sweeps orphan placements and VXLAN tunnels for the
// lab (spec §4.12 table entry for DESTROY_FINISHED).
func (b *Bus) handleDestroyFinished(ctx context.Context, ev Event) error {
	if err := b.store.Placements.DeleteByLab(ctx, ev.LabID); err != nil {
		return err
	}
	return b.store.VxlanTunnels.DeleteByLab(ctx, ev.LabID)
}
