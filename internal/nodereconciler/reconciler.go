// Package nodereconciler enforces desired node state against observed
// state (spec §4.8). It runs inline within JobRunner's sync jobs rather
// than as its own ticker loop — the same control flow as the teacher's
// RealSessionExecutor.Execute driving per-stage work.
package nodereconciler

import (
	"context"
	"fmt"
	"time"

	"github.com/netlab-io/controller/internal/agentclient"
	"github.com/netlab-io/controller/internal/agentclient/agentpb"
	"github.com/netlab-io/controller/internal/apierrors"
	"github.com/netlab-io/controller/internal/models"
	"github.com/netlab-io/controller/internal/persistence"
	"github.com/netlab-io/controller/internal/statemachine"
)

// Config tunes enforcement limits (spec §4.8).
type Config struct {
	MaxEnforcementAttempts int
	StaleThreshold         time.Duration
}

// DefaultConfig matches spec §4 defaults.
func DefaultConfig() Config {
	return Config{MaxEnforcementAttempts: 3, StaleThreshold: 600 * time.Second}
}

// AgentResolver looks up a host's AgentClient for issuing node actions.
type AgentResolver interface {
	Get(agentID, baseURL string) agentclient.AgentClient
}

// Reconciler drives enforcement for one lab's scope of NodeStates.
type Reconciler struct {
	store  *persistence.Store
	agents AgentResolver
	cfg    Config
}

// New constructs a Reconciler.
func New(store *persistence.Store, agents AgentResolver, cfg Config) *Reconciler {
	if cfg.MaxEnforcementAttempts <= 0 {
		cfg.MaxEnforcementAttempts = 3
	}
	if cfg.StaleThreshold <= 0 {
		cfg.StaleThreshold = 600 * time.Second
	}
	return &Reconciler{store: store, agents: agents, cfg: cfg}
}

// ReconcileLab walks every NodeState in labID's scope, issuing enforcement
// actions and promoting stuck "pending" nodes to error.
func (r *Reconciler) ReconcileLab(ctx context.Context, labID string) error {
	states, err := r.store.NodeStates.ListByLab(ctx, labID)
	if err != nil {
		return err
	}

	for _, ns := range states {
		if r.promoteStaleIfNeeded(ctx, ns) {
			continue
		}
		if err := r.enforceOne(ctx, ns); err != nil {
			continue // per-node failures don't abort the batch (spec §7)
		}
	}
	return nil
}

// promoteStaleIfNeeded flips a node stuck in "pending" with a
// desired=running transition older than the stale threshold to "error".
// Reports whether it made that change.
func (r *Reconciler) promoteStaleIfNeeded(ctx context.Context, ns *models.NodeState) bool {
	if ns.ActualState != models.NodePending || ns.DesiredState != models.NodeDesiredRunning {
		return false
	}
	if time.Since(ns.EnteredStateAt) <= r.cfg.StaleThreshold {
		return false
	}

	if err := r.store.NodeStates.TransitionActualState(ctx, ns.LabID, ns.NodeID, models.NodeError,
		fmt.Sprintf("stuck in pending for over %s", r.cfg.StaleThreshold)); err != nil {
		return false
	}
	return true
}

func (r *Reconciler) enforceOne(ctx context.Context, ns *models.NodeState) error {
	if !statemachine.NeedsEnforcement(ns.ActualState, ns.DesiredState) {
		return nil
	}
	action := statemachine.GetEnforcementAction(ns.ActualState, ns.DesiredState)
	if action == statemachine.ActionNone {
		return nil
	}

	if ns.EnforcementFailedAt != nil {
		return apierrors.New(models.CategoryConflict, "enforcement previously failed; awaiting manual retry", map[string]any{
			"node_id": ns.NodeID,
		})
	}

	host, err := r.store.Hosts.Get(ctx, ns.HostID)
	if err != nil {
		return err
	}
	client := r.agents.Get(host.ID, host.Address)
	if client == nil {
		return apierrors.New(models.CategoryAgent, "no agent client for host", map[string]any{"host_id": ns.HostID})
	}

	op := "start"
	if action == statemachine.ActionStop {
		op = "stop"
	}

	_, err = client.NodeAction(ctx, agentpb.NodeActionRequest{LabID: ns.LabID, Node: ns.NodeID, Op: op})
	if err != nil {
		atLimit := ns.EnforcementAttempts+1 >= r.cfg.MaxEnforcementAttempts
		if incErr := r.store.NodeStates.IncrementEnforcementAttempts(ctx, ns.LabID, ns.NodeID, atLimit); incErr != nil {
			return incErr
		}
		return err
	}

	return r.store.NodeStates.ClearEnforcementFailure(ctx, ns.LabID, ns.NodeID)
}

// RetryEnforcement clears a node's fail-flag so the next reconcile pass
// retries, matching spec §4.8's "UI-triggered retry clears the fail-flag".
func (r *Reconciler) RetryEnforcement(ctx context.Context, labID, nodeID string) error {
	return r.store.NodeStates.ClearEnforcementFailure(ctx, labID, nodeID)
}
