// Package liveedit coalesces rapid topology-edit bursts into a single
// batched flush per lab (spec §4.11), grounded on the teacher's per-session
// cancel-registry pattern (a timer per key, reset on every new event,
// drained exactly once when it finally fires).
package liveedit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/netlab-io/controller/internal/agentclient"
	"github.com/netlab-io/controller/internal/agentclient/agentpb"
	"github.com/netlab-io/controller/internal/jobrunner"
	"github.com/netlab-io/controller/internal/models"
	"github.com/netlab-io/controller/internal/persistence"
)

// RemovedNode identifies a node being torn down by LiveEdit, along with
// the host that owns its container.
type RemovedNode struct {
	NodeID string
	HostID string
}

// AgentResolver looks up a host's AgentClient.
type AgentResolver interface {
	Get(agentID, baseURL string) agentclient.AgentClient
}

type pendingEdit struct {
	adds    map[string]bool
	removes map[string]RemovedNode
	timer   *time.Timer
}

// Editor accumulates adds/removes per lab behind a debounce timer.
type Editor struct {
	store  *persistence.Store
	agents AgentResolver
	jobs   *jobrunner.Runner
	delay  time.Duration

	mu      sync.Mutex
	pending map[string]*pendingEdit
}

// New constructs an Editor. delay defaults to 500ms if zero.
func New(store *persistence.Store, agents AgentResolver, jobs *jobrunner.Runner, delay time.Duration) *Editor {
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	return &Editor{store: store, agents: agents, jobs: jobs, delay: delay, pending: make(map[string]*pendingEdit)}
}

// Submit accumulates added/removed nodes for labID and (re)starts the
// debounce timer. Three edits inside the debounce window collapse into one
// flush (spec §4.11's S4 scenario).
func (e *Editor) Submit(ctx context.Context, labID string, addedNodeIDs []string, removedNodes []RemovedNode) {
	e.mu.Lock()
	pe, ok := e.pending[labID]
	if !ok {
		pe = &pendingEdit{adds: map[string]bool{}, removes: map[string]RemovedNode{}}
		e.pending[labID] = pe
	}
	for _, id := range addedNodeIDs {
		pe.adds[id] = true
	}
	for _, rn := range removedNodes {
		pe.removes[rn.NodeID] = rn
		delete(pe.adds, rn.NodeID) // a remove always wins a same-burst add
	}

	if pe.timer != nil {
		pe.timer.Stop()
	}
	pe.timer = time.AfterFunc(e.delay, func() {
		e.flush(context.Background(), labID)
	})
	e.mu.Unlock()
}

// flush drains the accumulators for labID atomically and applies them:
// removes first, then adds (only while the lab is running or starting).
func (e *Editor) flush(ctx context.Context, labID string) {
	e.mu.Lock()
	pe, ok := e.pending[labID]
	if !ok {
		e.mu.Unlock()
		return
	}
	delete(e.pending, labID)
	e.mu.Unlock()

	for _, rn := range pe.removes {
		e.processRemove(ctx, labID, rn)
	}

	if len(pe.adds) == 0 {
		return
	}

	lab, err := e.store.Labs.Get(ctx, labID)
	if err != nil {
		slog.Warn("liveedit: lab lookup failed", "lab_id", labID, "error", err)
		return
	}
	if lab.State != models.LabRunning && lab.State != models.LabStarting {
		return
	}

	for nodeID := range pe.adds {
		e.processAdd(ctx, labID, nodeID)
	}
}

func (e *Editor) processRemove(ctx context.Context, labID string, rn RemovedNode) {
	if rn.HostID != "" {
		if client := e.agents.Get(rn.HostID, e.hostAddress(ctx, rn.HostID)); client != nil {
			if _, err := client.NodeAction(ctx, agentpb.NodeActionRequest{LabID: labID, Node: rn.NodeID, Op: "stop"}); err != nil {
				slog.Warn("liveedit: container teardown failed", "node_id", rn.NodeID, "error", err)
			}
		}
	}
	if err := e.store.NodeStates.Delete(ctx, labID, rn.NodeID); err != nil {
		slog.Warn("liveedit: delete node state failed", "node_id", rn.NodeID, "error", err)
	}
	if err := e.store.Placements.DeleteByNode(ctx, labID, rn.NodeID); err != nil {
		slog.Warn("liveedit: delete placement failed", "node_id", rn.NodeID, "error", err)
	}
}

func (e *Editor) processAdd(ctx context.Context, labID, nodeID string) {
	ns, err := e.store.NodeStates.Get(ctx, labID, nodeID)
	if err != nil {
		slog.Warn("liveedit: node state lookup failed", "node_id", nodeID, "error", err)
		return
	}
	if ns.ActualState != models.NodeUndeployed && ns.ActualState != models.NodeStopped {
		return
	}
	if err := e.store.NodeStates.TransitionActualState(ctx, labID, nodeID, models.NodePending, ""); err != nil {
		slog.Warn("liveedit: transition to pending failed", "node_id", nodeID, "error", err)
		return
	}
	if _, err := e.jobs.Submit(ctx, labID, "", "sync:node:"+nodeID); err != nil {
		slog.Warn("liveedit: enqueue sync job failed", "node_id", nodeID, "error", err)
	}
}

func (e *Editor) hostAddress(ctx context.Context, hostID string) string {
	h, err := e.store.Hosts.Get(ctx, hostID)
	if err != nil {
		return ""
	}
	return h.Address
}
