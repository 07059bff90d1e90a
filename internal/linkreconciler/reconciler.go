// Package linkreconciler periodically re-verifies and repairs link state,
// detects duplicate VXLAN tunnels and orphaned LinkStates, and converges
// same-host port pairings (spec §4.7). The task shape — ticker loop with
// panic recovery around each pass — is ported from the teacher's
// pkg/queue orphan-detection loop; a failed pass is logged and the next
// tick runs on schedule, with no backoff.
package linkreconciler

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/netlab-io/controller/internal/agentclient"
	"github.com/netlab-io/controller/internal/agentclient/agentpb"
	"github.com/netlab-io/controller/internal/events"
	"github.com/netlab-io/controller/internal/linkmanager"
	"github.com/netlab-io/controller/internal/models"
	"github.com/netlab-io/controller/internal/persistence"
)

// Reconciler owns the periodic repair loop.
type Reconciler struct {
	store     *persistence.Store
	manager   *linkmanager.Manager
	agents    linkmanager.AgentResolver
	hosts     linkmanager.HostAddresser
	publisher *events.EventPublisher

	interval  time.Duration
	batchSize int
}

// Config tunes the reconciler's loop.
type Config struct {
	Interval  time.Duration
	BatchSize int
}

// New constructs a Reconciler.
func New(store *persistence.Store, manager *linkmanager.Manager, agents linkmanager.AgentResolver, hosts linkmanager.HostAddresser, publisher *events.EventPublisher, cfg Config) *Reconciler {
	if cfg.Interval <= 0 {
		cfg.Interval = 60 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	return &Reconciler{store: store, manager: manager, agents: agents, hosts: hosts, publisher: publisher, interval: cfg.Interval, batchSize: cfg.BatchSize}
}

// Run ticks at the configured interval until ctx is cancelled. A panic in
// one pass is recovered and logged; the loop itself keeps running (spec §9
// restartable-supervisor convention).
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.runPassSafely(ctx)
		}
	}
}

func (r *Reconciler) runPassSafely(ctx context.Context) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("linkreconciler: pass panicked", "recover", rec)
		}
	}()

	if err := r.verifyAndRepairPass(ctx); err != nil {
		slog.Warn("linkreconciler: verify/repair pass failed", "error", err)
	}
	if err := r.detectDuplicateTunnels(ctx); err != nil {
		slog.Warn("linkreconciler: duplicate-tunnel pass failed", "error", err)
	}
	if err := r.cleanupOrphans(ctx); err != nil {
		slog.Warn("linkreconciler: orphan cleanup failed", "error", err)
	}
}

// verifyAndRepairPass claims a batch of link states needing attention and
// runs the repair ladder (VLAN repair → partial recovery → full re-create)
// on each, stopping at the first step that succeeds (spec §4.7).
func (r *Reconciler) verifyAndRepairPass(ctx context.Context) error {
	return r.store.WithTx(ctx, func(tx pgx.Tx) error {
		states, err := r.store.LinkStates.ClaimNeedingReconciliation(ctx, tx, r.batchSize)
		if err != nil {
			return err
		}

		for _, ls := range states {
			r.repairOne(ctx, ls)
		}
		return nil
	})
}

func (r *Reconciler) repairOne(ctx context.Context, ls *models.LinkState) {
	link, err := r.store.Links.Get(ctx, ls.LinkID)
	if err != nil {
		slog.Warn("linkreconciler: link declaration missing for state", "link_id", ls.LinkID, "error", err)
		return
	}

	if r.vlanRepair(ctx, link, ls) {
		r.markRecovered(ctx, ls)
		return
	}

	if ls.IsCrossHost && r.partialRecovery(ctx, ls) {
		r.markRecovered(ctx, ls)
		return
	}

	if r.fullRecreate(ctx, link, ls) {
		r.markRecovered(ctx, ls)
		return
	}

	ls.ActualState = models.LinkError
	ls.ErrorMessage = "reconciliation exhausted repair ladder"
	if err := r.store.LinkStates.Upsert(ctx, ls); err != nil {
		slog.Warn("linkreconciler: failed to persist exhausted repair state", "link_id", ls.LinkID, "error", err)
	}
}

// vlanRepair rewrites OVS port tags on both sides to the tags LinkState
// already holds as source of truth. Same-host links rewrite the real
// container-attached ports via their recorded interface mappings;
// cross-host links also repair the deterministic tunnel port (spec §4.7).
func (r *Reconciler) vlanRepair(ctx context.Context, link *models.Link, ls *models.LinkState) bool {
	sourceClient := r.clientFor(ctx, ls.SourceHostID)
	targetClient := r.clientFor(ctx, ls.TargetHostID)
	if sourceClient == nil || targetClient == nil {
		return false
	}

	if !ls.IsCrossHost {
		mapA, errA := r.store.InterfaceMap.Get(ctx, ls.LabID, link.EndpointA.NodeID, link.EndpointA.IfName)
		mapB, errB := r.store.InterfaceMap.Get(ctx, ls.LabID, link.EndpointB.NodeID, link.EndpointB.IfName)
		if errA != nil || errB != nil {
			return false
		}
		if err := sourceClient.SetPortVlan(ctx, agentpb.SetPortVlanRequest{Port: mapA.LinuxIfName, VlanTag: ls.SourceVlanTag}); err != nil {
			return false
		}
		if err := sourceClient.SetPortVlan(ctx, agentpb.SetPortVlanRequest{Port: mapB.LinuxIfName, VlanTag: ls.SourceVlanTag}); err != nil {
			return false
		}
		return true
	}

	sourcePort := linkmanager.ComputeVxlanPortName(ls.LabID, link.Name)
	if err := sourceClient.SetPortVlan(ctx, agentpb.SetPortVlanRequest{Port: sourcePort, VlanTag: ls.SourceVlanTag}); err != nil {
		return false
	}

	targetPort := linkmanager.ComputeVxlanPortName(ls.LabID, link.Name)
	if err := targetClient.SetPortVlan(ctx, agentpb.SetPortVlanRequest{Port: targetPort, VlanTag: ls.TargetVlanTag}); err != nil {
		return false
	}
	return true
}

// partialRecovery re-attaches whichever cross-host sides report
// vxlan_attached=false, promoting to up only once both succeed.
func (r *Reconciler) partialRecovery(ctx context.Context, ls *models.LinkState) bool {
	if ls.SourceVxlanAttached && ls.TargetVxlanAttached {
		return false
	}

	link, err := r.store.Links.Get(ctx, ls.LinkID)
	if err != nil {
		return false
	}

	if !ls.SourceVxlanAttached {
		client := r.clientFor(ctx, ls.SourceHostID)
		if client == nil {
			return false
		}
		resp, err := client.AttachOverlay(ctx, agentpb.AttachOverlayRequest{
			Container: link.EndpointA.NodeID, Interface: link.EndpointA.IfName, VNI: ls.VNI, LinkID: link.ID,
		})
		if err != nil {
			return false
		}
		ls.SourceVlanTag = resp.VlanTag
		ls.SourceVxlanAttached = true
	}
	if !ls.TargetVxlanAttached {
		client := r.clientFor(ctx, ls.TargetHostID)
		if client == nil {
			return false
		}
		resp, err := client.AttachOverlay(ctx, agentpb.AttachOverlayRequest{
			Container: link.EndpointB.NodeID, Interface: link.EndpointB.IfName, VNI: ls.VNI, LinkID: link.ID,
		})
		if err != nil {
			return false
		}
		ls.TargetVlanTag = resp.VlanTag
		ls.TargetVxlanAttached = true
	}

	return ls.SourceVxlanAttached && ls.TargetVxlanAttached
}

// fullRecreate calls the same-host or cross-host creation path end to end.
func (r *Reconciler) fullRecreate(ctx context.Context, link *models.Link, ls *models.LinkState) bool {
	var err error
	if ls.IsCrossHost {
		_, err = r.manager.CreateCrossHost(ctx, link, ls.SourceHostID, ls.TargetHostID, "", "")
	} else {
		_, err = r.manager.CreateSameHost(ctx, link, ls.SourceHostID)
	}
	return err == nil
}

func (r *Reconciler) markRecovered(ctx context.Context, ls *models.LinkState) {
	ls.ActualState = models.LinkUp
	ls.ErrorMessage = ""
	if err := r.store.LinkStates.Upsert(ctx, ls); err != nil {
		slog.Warn("linkreconciler: failed to persist recovered state", "link_id", ls.LinkID, "error", err)
		return
	}
	r.publisher.PublishLinkState(ctx, ls.LabID, ls)
}

func (r *Reconciler) clientFor(ctx context.Context, hostID string) agentclient.AgentClient {
	if hostID == "" {
		return nil
	}
	h, err := r.hosts.Get(ctx, hostID)
	if err != nil {
		return nil
	}
	if h.Status == models.HostOffline {
		return nil
	}
	return r.agents.Get(h.ID, h.Address)
}

// tunnelKey groups VxlanTunnel rows for duplicate detection, per spec §4.7:
// (min(agentA, agentB), max(agentA, agentB), vni).
type tunnelKey struct {
	lo, hi string
	vni    int
}

// detectDuplicateTunnels groups all non-cleanup tunnels by (agent pair,
// vni). Where more than one row shares a key, the one whose LinkState is
// active and desired≠deleted, newest by creation time, is kept; the rest
// are detached (best-effort) and deleted.
func (r *Reconciler) detectDuplicateTunnels(ctx context.Context) error {
	tunnels, err := r.store.VxlanTunnels.ListActiveNonCleanup(ctx)
	if err != nil {
		return err
	}

	groups := map[tunnelKey][]*models.VxlanTunnel{}
	for _, t := range tunnels {
		lo, hi := t.AgentA, t.AgentB
		if lo > hi {
			lo, hi = hi, lo
		}
		k := tunnelKey{lo: lo, hi: hi, vni: t.VNI}
		groups[k] = append(groups[k], t)
	}

	for _, group := range groups {
		if len(group) < 2 {
			continue
		}
		keep := r.pickSurvivor(ctx, group)
		for _, t := range group {
			if t.ID == keep.ID {
				continue
			}
			r.detachTunnelAgents(ctx, t)
			if err := r.store.VxlanTunnels.Delete(ctx, t.ID); err != nil {
				slog.Warn("linkreconciler: failed to delete duplicate tunnel", "tunnel_id", t.ID, "error", err)
			}
		}
	}
	return nil
}

func (r *Reconciler) pickSurvivor(ctx context.Context, group []*models.VxlanTunnel) *models.VxlanTunnel {
	sort.Slice(group, func(i, j int) bool {
		return group[i].CreatedAt.After(group[j].CreatedAt)
	})

	for _, t := range group {
		ls, err := r.store.LinkStates.Get(ctx, t.LabID, t.LinkID)
		if err == nil && ls.ActualState == models.LinkUp && ls.DesiredState != models.LinkDesiredDeleted {
			return t
		}
	}
	return group[0]
}

func (r *Reconciler) detachTunnelAgents(ctx context.Context, t *models.VxlanTunnel) {
	for _, agentID := range []string{t.AgentA, t.AgentB} {
		client := r.clientFor(ctx, agentID)
		if client == nil {
			continue
		}
		_ = client.DetachOverlay(ctx, agentpb.DetachOverlayRequest{LinkID: t.LinkID})
	}
}

// cleanupOrphans deletes LinkStates with no matching Link declaration
// whose actual state isn't up, tearing down any tunnel they own. Offline
// agents get their tunnel marked cleanup instead of an immediate detach
// call, per spec §4.7.
func (r *Reconciler) cleanupOrphans(ctx context.Context) error {
	labs, err := r.store.Labs.ListAll(ctx)
	if err != nil {
		return err
	}

	for _, lab := range labs {
		orphans, err := r.store.LinkStates.ListOrphans(ctx, lab.ID)
		if err != nil {
			slog.Warn("linkreconciler: list orphans failed", "lab_id", lab.ID, "error", err)
			continue
		}
		for _, ls := range orphans {
			r.tearDownOrphanTunnel(ctx, ls)
			if err := r.store.LinkStates.Delete(ctx, ls.LabID, ls.LinkID); err != nil {
				slog.Warn("linkreconciler: delete orphan state failed", "link_id", ls.LinkID, "error", err)
			}
		}
	}
	return nil
}

func (r *Reconciler) tearDownOrphanTunnel(ctx context.Context, ls *models.LinkState) {
	anyOffline := false
	for _, agentID := range []string{ls.SourceHostID, ls.TargetHostID} {
		if agentID == "" {
			continue
		}
		h, err := r.hosts.Get(ctx, agentID)
		if err != nil {
			continue
		}
		if h.Status == models.HostOffline {
			anyOffline = true // no detach call; the tunnel is marked cleanup below
			continue
		}
		client := r.agents.Get(h.ID, h.Address)
		_ = client.DetachOverlay(ctx, agentpb.DetachOverlayRequest{LinkID: ls.LinkID})
	}

	tunnels, err := r.store.VxlanTunnels.ListByLab(ctx, ls.LabID)
	if err != nil {
		return
	}
	for _, t := range tunnels {
		if t.LinkID != ls.LinkID {
			continue
		}
		if anyOffline {
			_ = r.store.VxlanTunnels.SetStatus(ctx, t.ID, models.VxlanCleanup)
		} else {
			_ = r.store.VxlanTunnels.Delete(ctx, t.ID)
		}
	}
}

// ConvergeSameHostPorts builds (port-a, port-b, vlan-tag) pairings for
// every same-host LinkState with interface mappings on both endpoints and
// a non-zero VLAN tag, sending them as one batch per agent (spec §4.7
// "Same-host port convergence").
func (r *Reconciler) ConvergeSameHostPorts(ctx context.Context, labID string) error {
	states, err := r.store.LinkStates.ListByLab(ctx, labID)
	if err != nil {
		return err
	}

	byAgent := map[string][]agentpb.PortPairing{}
	for _, ls := range states {
		if ls.IsCrossHost || ls.SourceVlanTag == 0 {
			continue
		}
		link, err := r.store.Links.Get(ctx, ls.LinkID)
		if err != nil {
			continue
		}
		mapA, errA := r.store.InterfaceMap.Get(ctx, labID, link.EndpointA.NodeID, link.EndpointA.IfName)
		mapB, errB := r.store.InterfaceMap.Get(ctx, labID, link.EndpointB.NodeID, link.EndpointB.IfName)
		if errA != nil || errB != nil {
			continue
		}
		byAgent[ls.SourceHostID] = append(byAgent[ls.SourceHostID], agentpb.PortPairing{
			PortA: mapA.LinuxIfName, PortB: mapB.LinuxIfName, VlanTag: ls.SourceVlanTag,
		})
	}

	for agentID, pairings := range byAgent {
		client := r.clientFor(ctx, agentID)
		if client == nil {
			continue
		}
		if err := client.DeclarePortState(ctx, labID, agentpb.DeclarePortStateRequest{Pairings: pairings}); err != nil {
			slog.Warn("linkreconciler: declare-port-state failed", "agent_id", agentID, "lab_id", labID, "error", err)
		}
	}
	return nil
}
